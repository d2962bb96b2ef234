package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/northstarhq/northstar/internal/ai/provider"
)

// Entry is a cached completion with access bookkeeping.
type Entry struct {
	Key          string
	Response     *provider.CompletionResult
	CreatedAt    time.Time
	HitCount     int64
	LastAccessed time.Time
}

// Cache maps fingerprints to completion results with a TTL. All operations
// are safe under concurrent callers; the map lock is short-held (lookup plus
// touch). GetOrCompute adds single-flight semantics so that at most one
// provider call per fingerprint is in flight during a miss.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
	flight  singleflight.Group

	now func() time.Time
}

// New creates a cache with the given entry TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached response for the fingerprint if present and fresh.
// An expired entry is removed on access.
func (c *Cache) Get(fingerprint string) (*provider.CompletionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		return nil, false
	}
	now := c.now()
	if now.Sub(entry.CreatedAt) >= c.ttl {
		delete(c.entries, fingerprint)
		return nil, false
	}
	entry.HitCount++
	entry.LastAccessed = now
	return entry.Response, true
}

// Set unconditionally installs a response for the fingerprint.
func (c *Cache) Set(fingerprint string, response *provider.CompletionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[fingerprint] = &Entry{
		Key:          fingerprint,
		Response:     response,
		CreatedAt:    now,
		LastAccessed: now,
	}
}

// Sweep removes all expired entries and returns the number removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.CreatedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrCompute returns the cached response for the fingerprint, or runs
// compute under single-flight and installs its result. The second return
// reports whether the response was served from cache.
func (c *Cache) GetOrCompute(fingerprint string, compute func() (*provider.CompletionResult, error)) (*provider.CompletionResult, bool, error) {
	if res, ok := c.Get(fingerprint); ok {
		return res, true, nil
	}

	shared := false
	v, err, _ := c.flight.Do(fingerprint, func() (interface{}, error) {
		// Re-check: another caller may have populated the entry between the
		// miss and acquiring the flight slot.
		if res, ok := c.Get(fingerprint); ok {
			shared = true
			return res, nil
		}
		res, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(fingerprint, res)
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*provider.CompletionResult), shared, nil
}
