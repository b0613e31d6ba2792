package publisher

import (
	"context"
	"encoding/base64"
	"math/rand/v2"
	"strconv"

	"github.com/redis/go-redis/v9"

	"sjsage522/opinionworker/pkg/errors"
)

// RedisPublisher implements Publisher using Redis streams
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	streamPrefix    string
	streamCount     int
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if streamCount <= 0 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// Publish publishes a message to a Redis stream.
// The message is base64 encoded before publishing.
func (p *RedisPublisher) Publish(key string, message []byte) error {
	encodedMessage := base64.StdEncoding.EncodeToString(message)

	// with streamCount 3 the stream is one of prefix:0 .. prefix:2
	stream := p.streamPrefix + ":" + strconv.Itoa(rand.IntN(p.streamCount))

	err := p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			key: encodedMessage,
		},
	}).Err()
	if err != nil {
		return errors.NewPublisher(stream, "XADD failed", err)
	}
	return nil
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	for i := 0; i < p.streamCount; i++ {
		stream := p.streamPrefix + ":" + strconv.Itoa(i)
		if err := p.client.XTrimMaxLen(p.ctx, stream, int64(p.streamMaxLength)).Err(); err != nil {
			return errors.NewPublisher(stream, "XTRIM failed", err)
		}
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
