package deliveryoptions

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCacheTTL is how long a discovery response is reused.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	result  Result
	expires time.Time
}

// Cache is a TTL cache of discovery responses keyed by request path and
// query. Expired entries are dropped when they are looked up. Concurrent
// misses for the same key may both fetch; the last write wins.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache. A nil clock uses time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns a live entry.
func (c *Cache) Get(key string) (Result, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		return Result{}, false
	}
	if !c.now().Before(entry.expires) {
		c.mu.Lock()
		if current, ok := c.entries[key]; ok && current.expires.Equal(entry.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return Result{}, false
	}
	c.hits.Add(1)
	return entry.result, true
}

// Set stores a result for the configured TTL.
func (c *Cache) Set(key string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: result, expires: c.now().Add(c.ttl)}
}

// Evict removes one entry.
func (c *Cache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge removes every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Hits returns the number of lookups answered from the cache.
func (c *Cache) Hits() uint64 {
	return c.hits.Load()
}

// Misses returns the number of lookups that required a fetch.
func (c *Cache) Misses() uint64 {
	return c.misses.Load()
}
