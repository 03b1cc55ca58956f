// Package duration memoizes measured track durations.
package duration

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	zlog "github.com/rs/zerolog/log"
)

// Cache maps track IDs to measured whole-second durations.
// The first write for a track wins; later writes are ignored.
type Cache struct {
	mu      sync.Mutex
	entries map[string]int
	bounded *lru.Cache[string, int]
}

// NewCache creates a cache. maxEntries <= 0 keeps every entry for the
// process lifetime; a positive value evicts least recently used entries.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		return &Cache{entries: make(map[string]int)}
	}

	bounded, err := lru.New[string, int](maxEntries)
	if err != nil {
		zlog.Warn().Msgf("duration: failed to create bounded cache, falling back to unbounded: err=%v", err)
		return &Cache{entries: make(map[string]int)}
	}
	return &Cache{bounded: bounded}
}

// Get returns the cached duration for a track.
func (c *Cache) Get(trackID string) (int, bool) {
	if c.bounded != nil {
		return c.bounded.Get(trackID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	seconds, ok := c.entries[trackID]
	return seconds, ok
}

// Set stores a duration unless one is already present. Negative values are
// stored as zero. It reports whether the value was stored.
func (c *Cache) Set(trackID string, seconds int) bool {
	if seconds < 0 {
		seconds = 0
	}

	if c.bounded != nil {
		ok, _ := c.bounded.ContainsOrAdd(trackID, seconds)
		return !ok
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[trackID]; ok {
		return false
	}
	c.entries[trackID] = seconds
	return true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c.bounded != nil {
		return c.bounded.Len()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
