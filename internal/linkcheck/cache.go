package linkcheck

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when a URL has no entry.
var ErrCacheMiss = errors.New("link cache miss")

// CacheEntry is one remembered verification outcome.
type CacheEntry struct {
	URL             string    `json:"url"`
	Status          int       `json:"status"`
	IsValid         bool      `json:"is_valid"`
	Error           string    `json:"error,omitempty"`
	LastChecked     time.Time `json:"last_checked"`
	FailureCount    int       `json:"failure_count"`
	FirstFailedAt   time.Time `json:"first_failed_at,omitzero"`
	ConsecutiveFail bool      `json:"consecutive_fail"`
}

// Cache stores verification results between runs and carries broken-link
// events to whoever listens.
type Cache interface {
	Get(ctx context.Context, url string) (*CacheEntry, error)
	Set(ctx context.Context, entry *CacheEntry) error
	Valid(entry *CacheEntry) bool
	PublishBroken(ctx context.Context, event *BrokenLinkEvent) error
	Close() error
}

// MemoryCache is the in-process cache used by one-shot CLI runs and tests.
// Broken-link events go nowhere.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
	ttlOK   time.Duration
	ttlFail time.Duration
}

// NewMemoryCache creates a memory cache with separate lifetimes for good
// and failed results.
func NewMemoryCache(ttlOK, ttlFail time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: map[string]CacheEntry{},
		ttlOK:   ttlOK,
		ttlFail: ttlFail,
	}
}

func (c *MemoryCache) Get(_ context.Context, url string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[url]
	if !ok {
		return nil, ErrCacheMiss
	}
	cp := entry
	return &cp, nil
}

func (c *MemoryCache) Set(_ context.Context, entry *CacheEntry) error {
	if entry == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.URL] = *entry
	return nil
}

func (c *MemoryCache) Valid(entry *CacheEntry) bool {
	if entry == nil {
		return false
	}
	ttl := c.ttlOK
	if !entry.IsValid {
		ttl = c.ttlFail
	}
	if ttl <= 0 {
		return false
	}
	return time.Since(entry.LastChecked) < ttl
}

func (c *MemoryCache) PublishBroken(context.Context, *BrokenLinkEvent) error { return nil }

func (c *MemoryCache) Close() error { return nil }
