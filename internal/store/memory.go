package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/fishing-forecast/internal/fishing"
)

type cacheEntry struct {
	series   fishing.WeatherSeries
	storedAt time.Time
}

// MemoryCache is a concurrency-safe in-memory implementation of fishing.Cache.
type MemoryCache struct {
	mu sync.RWMutex

	// key: fishing.CacheKey, value: latest normalized series
	data map[string]cacheEntry

	// retention configuration
	maxEntries int           // max number of cached keys (0 = unlimited)
	ttl        time.Duration // max age of an entry (0 = unlimited)
	now        func() time.Time
}

// NewMemoryCache creates a new MemoryCache with optional limits.
// If maxEntries is <= 0, it is treated as unlimited.
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		data:       make(map[string]cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// WithClock swaps the time source; used by tests.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

// Get returns the series for key unless it has expired.
func (c *MemoryCache) Get(_ context.Context, key string) (fishing.WeatherSeries, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || c.expired(entry) {
		return fishing.WeatherSeries{}, false, nil
	}
	return entry.series, true, nil
}

// Set overwrites the entry for key and enforces the entry limit.
func (c *MemoryCache) Set(_ context.Context, key string, series fishing.WeatherSeries) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{series: series, storedAt: c.now()}

	// Enforce retention by count, evicting the oldest entries first.
	if c.maxEntries > 0 && len(c.data) > c.maxEntries {
		keys := make([]string, 0, len(c.data))
		for k := range c.data {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return c.data[keys[i]].storedAt.Before(c.data[keys[j]].storedAt)
		})
		for _, k := range keys[:len(keys)-c.maxEntries] {
			delete(c.data, k)
		}
	}
	return nil
}

// Prune removes expired entries and returns how many were dropped.
func (c *MemoryCache) Prune(_ context.Context) int {
	if c.ttl <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, entry := range c.data {
		if c.expired(entry) {
			delete(c.data, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *MemoryCache) expired(entry cacheEntry) bool {
	return c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl
}
