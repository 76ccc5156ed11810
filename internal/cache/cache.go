package cache

import (
	"strings"
	"time"

	"github.com/standardbeagle/blz/internal/model"
)

// TierStats is the common counter shape both L1 and L2 report.
type TierStats struct {
	Hits      int64
	Misses    int64
	Puts      int64
	Evictions int64
	Entries   int
	Bytes     int64
}

// Stats aggregates both tiers plus derived hit rate, per spec.md §4.4.
type Stats struct {
	Requests int64
	L1Hits   int64
	L2Hits   int64
	Misses   int64
	Puts     int64
	L1       TierStats
	L2       TierStats
}

// HitRate is (L1Hits+L2Hits)/Requests, or 0 when there have been no requests.
func (s Stats) HitRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.L1Hits+s.L2Hits) / float64(s.Requests)
}

const (
	DefaultL1MaxEntries = 1000
	DefaultL1MaxBytes   = 64 << 20 // 64MB
	DefaultL2MaxEntries = 10000
	DefaultL2MaxBytes   = 256 << 20 // 256MB
	DefaultTTL          = 10 * time.Minute
	DefaultCleanupEvery = 1 * time.Minute
)

// Cache is blz's multi-level search-result cache: L1 LRU in front of L2 TTL,
// both keyed by BuildCacheKey. Lookup order is L1 → L2 (promoting into L1
// on an L2 hit) → miss, with the L1 write happening after the L2 read lock
// (if any) is released, per spec.md §4.4.
type Cache struct {
	l1 *L1
	l2 *L2

	versions  *VersionTracker
	analytics *PopularityTracker

	requests int64
}

// Option configures a Cache at construction.
type Option func(*cacheConfig)

type cacheConfig struct {
	l1MaxEntries int
	l1MaxBytes   int64
	l2MaxEntries int
	l2MaxBytes   int64
	ttl          time.Duration
	cleanup      time.Duration
}

func defaultCacheConfig() cacheConfig {
	return cacheConfig{
		l1MaxEntries: DefaultL1MaxEntries,
		l1MaxBytes:   DefaultL1MaxBytes,
		l2MaxEntries: DefaultL2MaxEntries,
		l2MaxBytes:   DefaultL2MaxBytes,
		ttl:          DefaultTTL,
		cleanup:      DefaultCleanupEvery,
	}
}

// WithL1Bounds overrides L1's entry/byte bounds.
func WithL1Bounds(maxEntries int, maxBytes int64) Option {
	return func(c *cacheConfig) { c.l1MaxEntries, c.l1MaxBytes = maxEntries, maxBytes }
}

// WithL2Bounds overrides L2's entry/byte bounds.
func WithL2Bounds(maxEntries int, maxBytes int64) Option {
	return func(c *cacheConfig) { c.l2MaxEntries, c.l2MaxBytes = maxEntries, maxBytes }
}

// WithDefaultTTL overrides L2's default TTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *cacheConfig) { c.ttl = ttl }
}

// NewSearchCache builds a Cache with a background TTL cleaner already
// running; callers should call Close when done to stop it.
func NewSearchCache(opts ...Option) *Cache {
	cfg := defaultCacheConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	l2 := NewL2(cfg.l2MaxEntries, cfg.l2MaxBytes, cfg.ttl)
	l2.StartCleaner(cfg.cleanup)
	c := &Cache{
		l1:        NewL1(cfg.l1MaxEntries, cfg.l1MaxBytes),
		l2:        l2,
		versions:  NewVersionTracker(),
		analytics: NewPopularityTracker(),
	}
	return c
}

// Close stops the background cleaner goroutine.
func (c *Cache) Close() {
	c.l2.Stop()
}

// Versions exposes the tracker so index_blocks* callers can bump a version
// after committing, and so orchestrator callers can read the current
// version to build a cache key.
func (c *Cache) Versions() *VersionTracker {
	return c.versions
}

// Get looks up alias/query/flavor, consulting the current version token so
// a stale entry (from before the last commit) is treated as a miss.
func (c *Cache) Get(alias, query, flavor string) ([]model.SearchHit, bool) {
	c.analytics.Record(query)
	c.requests++

	version := c.versions.Global()
	if alias != "" {
		version = c.versions.Alias(alias)
	}
	key := BuildCacheKey(alias, version, flavor, query)
	return c.GetByKey(key)
}

// GetByKey performs the L1 → L2 → miss lookup for an already-built key.
func (c *Cache) GetByKey(key string) ([]model.SearchHit, bool) {
	if hits, ok := c.l1.Get(key); ok {
		return hits, true
	}
	if hits, ok := c.l2.Get(key); ok {
		c.l1.Put(key, hits) // promote after releasing the L2 read
		return hits, true
	}
	return nil, false
}

// Put stores hits under the current version for alias/query/flavor with
// the default TTL.
func (c *Cache) Put(alias, query, flavor string, hits []model.SearchHit) {
	c.PutWithTTL(alias, query, flavor, hits, time.Duration(c.l2.defaultTTL))
}

// PutWithTTL stores hits with an explicit L2 TTL.
func (c *Cache) PutWithTTL(alias, query, flavor string, hits []model.SearchHit, ttl time.Duration) {
	version := c.versions.Global()
	if alias != "" {
		version = c.versions.Alias(alias)
	}
	key := BuildCacheKey(alias, version, flavor, query)
	c.l1.Put(key, hits)
	c.l2.PutWithTTL(key, hits, ttl)
}

// Remove deletes a single key from both tiers.
func (c *Cache) Remove(alias, query, flavor string) {
	version := c.versions.Global()
	if alias != "" {
		version = c.versions.Alias(alias)
	}
	key := BuildCacheKey(alias, version, flavor, query)
	c.l1.Remove(key)
	c.l2.Remove(key)
}

// InvalidateAlias removes every cached entry for alias from both tiers and
// returns the number removed.
func (c *Cache) InvalidateAlias(alias string) int {
	prefix := "a:" + alias + "|"
	match := func(key string) bool { return strings.HasPrefix(key, prefix) }
	return c.l1.RemoveFunc(match) + c.l2.RemoveFunc(match)
}

// BumpVersion invalidates every cached entry for alias by advancing its
// version token (and the global token), called after a successful
// index_blocks*/index_blocks_flavored commit per spec.md §4.3/§8 property 9.
func (c *Cache) BumpVersion(alias string) {
	c.versions.Bump(alias)
}

// Stats returns a snapshot of both tiers plus derived totals.
func (c *Cache) Stats() Stats {
	l1, l2 := c.l1.Stats(), c.l2.Stats()
	return Stats{
		Requests: c.requests,
		L1Hits:   l1.Hits,
		L2Hits:   l2.Hits,
		Misses:   l2.Misses,
		Puts:     l1.Puts,
		L1:       l1,
		L2:       l2,
	}
}

// PopularQueries returns the top-N most popular queries tracked so far, for
// optional warmup by the caller (the cache itself never re-runs a search).
func (c *Cache) PopularQueries(n int) []string {
	return c.analytics.TopN(n)
}
