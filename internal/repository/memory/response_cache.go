package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
)

const (
	defaultCacheTTL      = time.Hour
	defaultCacheCapacity = 1000
)

// ResponseCacheConfig bounds the cache and names the categories eligible for
// storage. Categories outside the allow-list always miss and are never stored.
type ResponseCacheConfig struct {
	TTL                 time.Duration
	Capacity            int
	CacheableCategories []string
}

type cacheEntry struct {
	reply      domain.CompanionReply
	insertedAt time.Time
}

// ResponseCache is a TTL and capacity bounded in-memory map of companion
// replies. Keys are a fast non-cryptographic hash of the normalised
// (category, language, text) tuple; the hash compacts keys and is not a
// security boundary. Eviction removes the entry with the oldest insertion
// timestamp, which differs from LRU whenever an old entry was recently read.
type ResponseCache struct {
	ttl       time.Duration
	capacity  int
	cacheable map[string]struct{}
	now       func() time.Time

	mu        sync.Mutex
	entries   map[string]cacheEntry
	hits      uint64
	misses    uint64
	evictions uint64
}

// NewResponseCache constructs a cache with the provided bounds, falling back to
// defaults for unset values. An empty allow-list caches the general category only.
func NewResponseCache(cfg ResponseCacheConfig) *ResponseCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}

	categories := cfg.CacheableCategories
	if len(categories) == 0 {
		categories = []string{domain.CategoryGeneral}
	}

	cacheable := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		category = strings.ToLower(strings.TrimSpace(category))
		if category == "" {
			continue
		}
		cacheable[category] = struct{}{}
	}

	return &ResponseCache{
		ttl:       ttl,
		capacity:  capacity,
		cacheable: cacheable,
		now:       time.Now,
		entries:   make(map[string]cacheEntry),
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (c *ResponseCache) WithClock(now func() time.Time) *ResponseCache {
	if now != nil {
		c.now = now
	}
	return c
}

// Get returns the cached reply for the query. Entries older than the TTL are
// removed on access and reported as misses, as are lookups for categories
// outside the allow-list.
func (c *ResponseCache) Get(query domain.CompanionQuery) (domain.CompanionReply, bool) {
	key := cacheKey(query)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCacheable(query.Category) {
		c.misses++
		return domain.CompanionReply{}, false
	}

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return domain.CompanionReply{}, false
	}

	if now.Sub(entry.insertedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return domain.CompanionReply{}, false
	}

	c.hits++
	return entry.reply, true
}

// Set stores the reply under the query's key. Error-flagged replies and
// non-cacheable categories are refused. When the cache is full, exactly one
// entry is evicted: the one with the oldest insertion timestamp.
func (c *ResponseCache) Set(query domain.CompanionQuery, reply domain.CompanionReply) {
	if reply.IsError {
		return
	}

	key := cacheKey(query)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCacheable(query.Category) {
		return
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	c.entries[key] = cacheEntry{reply: reply, insertedAt: now}
}

// Stats returns a snapshot of the counters and the current entry count.
func (c *ResponseCache) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := domain.CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}

	if lookups := c.hits + c.misses; lookups > 0 {
		stats.HitRate = float64(c.hits) / float64(lookups) * 100
	}

	return stats
}

// Clear drops every entry. Hit, miss, and eviction counters survive so the
// observed history is not erased by an operational flush.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// ResetStats zeroes the hit, miss, and eviction counters without touching entries.
func (c *ResponseCache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

// evictOldest removes the entry with the oldest insertion timestamp. Callers
// must hold the lock.
func (c *ResponseCache) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)

	for key, entry := range c.entries {
		if !found || entry.insertedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.insertedAt
			found = true
		}
	}

	if found {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}

func (c *ResponseCache) isCacheable(category string) bool {
	_, ok := c.cacheable[strings.ToLower(strings.TrimSpace(category))]
	return ok
}

// cacheKey hashes the normalised scope tuple to a fixed-length hex string.
// Equal normalised text under the same category and language always collides;
// a different category or language never does.
func cacheKey(query domain.CompanionQuery) string {
	scope := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(query.Category)),
		strings.ToLower(strings.TrimSpace(query.Language)),
		query.NormalizedText(),
	}, "|")

	return fmt.Sprintf("%016x", xxhash.Sum64String(scope))
}

var _ port.ResponseCache = (*ResponseCache)(nil)
