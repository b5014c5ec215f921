// Package data provides the in-memory response cache for the tabjson API.
// Rendered JSON payloads are cached per request signature with a TTL so
// repeated requests for the same sheet do not hammer the upstream export
// endpoint.
package data

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/okvist/tabjson-api/interfaces"
	"github.com/okvist/tabjson-api/metrics"
)

// Compile-time check to ensure Cache implements ResponseCache
var _ interfaces.ResponseCache = (*Cache)(nil)

type entry struct {
	payload []byte
	expires time.Time
}

// Cache is a keyed TTL cache of rendered responses.
type Cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]entry

	hits   atomic.Uint64
	misses atomic.Uint64

	lastSweep     atomic.Value // time.Time
	fetchFailures atomic.Int64
}

// NewCache creates a cache. A non-positive ttl disables caching entirely:
// Get always misses and Set is a no-op.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
	c.lastSweep.Store(time.Time{})
	return c
}

// Get returns the cached payload for key if present and fresh.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c.ttl <= 0 {
		c.misses.Add(1)
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expires) {
		c.misses.Add(1)
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}

	c.hits.Add(1)
	metrics.CacheHitsTotal.Inc()
	return e.payload, true
}

// Set stores a rendered payload under key.
func (c *Cache) Set(key string, payload []byte) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[key] = entry{payload: payload, expires: time.Now().Add(c.ttl)}
	size := len(c.entries)
	c.mu.Unlock()

	metrics.CacheEntriesTotal.Set(float64(size))
}

// Sweep evicts expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	now := time.Now()

	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, key)
			removed++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	c.lastSweep.Store(now)
	metrics.CacheEntriesTotal.Set(float64(size))
	return removed
}

// Stats returns current cache counters.
func (c *Cache) Stats() interfaces.CacheStats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	lastSweep, _ := c.lastSweep.Load().(time.Time)

	return interfaces.CacheStats{
		Entries:   size,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		LastSweep: lastSweep,
	}
}

// RecordFetchResult tracks the upstream failure streak for health checks.
// A success resets the streak.
func (c *Cache) RecordFetchResult(ok bool) {
	if ok {
		c.fetchFailures.Store(0)
		return
	}
	c.fetchFailures.Add(1)
}

// ConsecutiveFetchFailures returns the current upstream failure streak.
func (c *Cache) ConsecutiveFetchFailures() int {
	return int(c.fetchFailures.Load())
}
