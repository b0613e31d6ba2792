package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/opinionworker/helpers"
	"sjsage522/opinionworker/logger"
	"sjsage522/opinionworker/pkg/errors"
	"sjsage522/opinionworker/services/cache"
)

// minBlockTime is the shortest block written to the cache. A zero expiration
// would never expire.
const minBlockTime = time.Second

// HTTPFetcher fetches pages over HTTP. After a rate-limit response it stores
// CacheKey in the cache and refuses further requests for BlockTime.
type HTTPFetcher struct {
	Client    *http.Client
	CacheKey  string
	CacheSvc  cache.CacheService
	BlockTime time.Duration
	Logger    *logger.Logger
}

// NewHTTPFetcher creates a fetcher. cacheSvc may be nil to disable blocking.
func NewHTTPFetcher(client *http.Client, cacheSvc cache.CacheService, cacheKey string, blockTime time.Duration) *HTTPFetcher {
	if client == nil {
		client = helpers.NewClient(10 * time.Second)
	}
	return &HTTPFetcher{
		Client:    client,
		CacheKey:  cacheKey,
		CacheSvc:  cacheSvc,
		BlockTime: blockTime,
		Logger:    logger.ForComponent("fetcher"),
	}
}

// Fetch fetches and parses url
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if f.blocked() {
		return nil, errors.NewFetch(url, fmt.Sprintf("rate limited, not sending requests for %s", f.BlockTime), nil)
	}

	resp, err := helpers.FetchWithRandomHeaders(ctx, f.Client, url)
	if err != nil {
		return nil, errors.NewFetch(url, "request failed", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 430 {
		f.block(resp.RetryAfter)
	}
	if !resp.OK() {
		return &Page{URL: resp.URL, Status: resp.StatusCode}, nil
	}

	doc, err := createDocument(resp.Body)
	if err != nil {
		return nil, errors.NewFetch(url, "cannot parse HTML", err)
	}
	return &Page{URL: resp.URL, Status: resp.StatusCode, Doc: doc}, nil
}

func (f *HTTPFetcher) log() *logger.Logger {
	if f.Logger == nil {
		return logger.Nop()
	}
	return f.Logger
}

func (f *HTTPFetcher) blocked() bool {
	if f.CacheSvc == nil || f.CacheKey == "" {
		return false
	}
	_, err := f.CacheSvc.Get(f.CacheKey)
	if err == nil {
		return true
	}
	if !cache.IsMiss(err) {
		// An unreachable cache never blocks fetching
		f.log().WithError(err).Warn().Str("key", f.CacheKey).Msg("Cannot read rate-limit block")
	}
	return false
}

// block honors a numeric Retry-After when it is longer than BlockTime
func (f *HTTPFetcher) block(retryAfter string) {
	if f.CacheSvc == nil || f.CacheKey == "" {
		return
	}
	blockTime := f.BlockTime
	if secs, err := strconv.Atoi(retryAfter); err == nil && time.Duration(secs)*time.Second > blockTime {
		blockTime = time.Duration(secs) * time.Second
	}
	if blockTime < minBlockTime {
		blockTime = minBlockTime
	}
	value := []byte(strconv.Itoa(int(blockTime / time.Second)))
	if err := f.CacheSvc.Set(f.CacheKey, value, blockTime); err != nil {
		f.log().WithError(err).Error().Str("key", f.CacheKey).Msg("Cannot store rate-limit block")
		return
	}
	f.log().Warn().Dur("block_time", blockTime).Msg("Rate limited, blocking fetches")
}

// createDocument creates a goquery document from a reader
func createDocument(reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("HTML parse error: %w", err)
	}
	return doc, nil
}
