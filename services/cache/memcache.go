package cache

import (
	stderrors "errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"sjsage522/opinionworker/pkg/errors"
)

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	client := memcache.New(serverAddr)
	client.Timeout = 500 * time.Millisecond
	return &MemcacheService{client: client}
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		if IsMiss(err) {
			return nil, ErrMiss
		}
		return nil, errors.NewCache(key, "get failed", err)
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time.
// Memcache stores whole seconds and reads 0 as "never expires", so a
// positive expiration under one second is rounded up to one second.
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	if expiration > 0 && expiration < time.Second {
		expiration = time.Second
	}
	err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
	if err != nil {
		return errors.NewCache(key, "set failed", err)
	}
	return nil
}

// IsMiss reports whether err means the key was absent
func IsMiss(err error) bool {
	return stderrors.Is(err, ErrMiss)
}
