package datasource

import (
	"strings"
	"sync"
	"time"

	"github.com/fincept/terminal/internal/models"
)

// cacheEntry pairs a cached result with its expiry instant. An entry is
// valid iff now < expiresAt; expired and missing entries are treated
// identically as misses.
type cacheEntry struct {
	value     *models.Result
	expiresAt time.Time
}

// ttlCache is the in-memory result cache. A single RWMutex guards the entry
// map and the hit/miss counters; expired entries are pruned lazily on the
// next access, there is no background sweeper.
type ttlCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	hits    uint64
	misses  uint64
	now     func() time.Time
}

func newTTLCache(now func() time.Time) *ttlCache {
	if now == nil {
		now = time.Now
	}
	return &ttlCache{
		entries: make(map[string]cacheEntry),
		now:     now,
	}
}

// Get returns the cached result for key, or nil on a miss. Expired entries
// are deleted on the way out.
func (c *ttlCache) Get(key string) (*models.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.value, true
}

// Set stores a result under key for ttl.
func (c *ttlCache) Set(key string, value *models.Result, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// Clear removes all entries whose key starts with prefix; an empty prefix
// clears everything. Returns the number of entries removed.
func (c *ttlCache) Clear(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prefix == "" {
		n := len(c.entries)
		c.entries = make(map[string]cacheEntry)
		return n
	}

	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Stats returns hit/miss counters and live item counts grouped by the key's
// data-type prefix. Expired-but-unpruned entries are excluded from counts.
func (c *ttlCache) Stats() models.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := models.CacheStats{
		Hits:   c.hits,
		Misses: c.misses,
		ByType: make(map[string]int),
	}

	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			continue
		}
		stats.Items++
		if idx := strings.Index(key, "_"); idx > 0 {
			stats.ByType[key[:idx]]++
		}
	}

	return stats
}
