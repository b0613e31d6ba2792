package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// ErrMiss is returned by Get when the key is absent
var ErrMiss = memcache.ErrCacheMiss

// CacheService represents a generic cache service.
// Get returns ErrMiss when the key is absent.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error
}
