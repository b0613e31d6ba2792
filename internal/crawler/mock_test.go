package crawler

import (
	"errors"
	"sync"
	"time"

	"sjsage522/opinionworker/services/cache"
)

type mockEntry struct {
	value     []byte
	expiresAt time.Time
}

// MockCacheService implements an in-memory cache for testing.
// Like memcache, a zero expiration never expires. Tests move the clock with Advance.
type MockCacheService struct {
	mu     sync.Mutex
	now    time.Time
	cache  map[string]mockEntry
	ttls   map[string]time.Duration
	setErr error
	getErr error
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		now:   time.Unix(1700000000, 0),
		cache: make(map[string]mockEntry),
		ttls:  make(map[string]time.Duration),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.cache[key]
	if !ok || (!e.expiresAt.IsZero() && !m.now.Before(e.expiresAt)) {
		return nil, cache.ErrMiss
	}
	return e.value, nil
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	e := mockEntry{value: value}
	if expiration > 0 {
		e.expiresAt = m.now.Add(expiration)
	}
	m.cache[key] = e
	m.ttls[key] = expiration
	return nil
}

// Advance moves the cache clock forward
func (m *MockCacheService) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// TTL returns the expiration passed to the last Set of key
func (m *MockCacheService) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

var errCacheDown = errors.New("memcache: connection refused")
