// Package cache implements blz's two-tier result cache: an L1 LRU fronted
// by an L2 TTL store, keyed by a versioned string so an index commit can
// invalidate stale entries without an explicit sweep. The L2 half is
// modeled directly on the teacher's sync.Map + atomic-counter TTL cache
// (internal/cache/metrics_cache.go); the L1 half is new, since nothing in
// the retrieval pack implements an LRU (see DESIGN.md).
package cache

import "strconv"

// BuildCacheKey renders the spec's cache key format:
//
//	a:<alias_or_'~'>|v:<version_or_'v0'>|f:<flavor_or_'~'>|q:<query>
//
// alias == "" means "all sources"; version == 0 renders as "v0"; flavor ==
// "" renders as "~". BuildCacheKey is a pure function: same inputs, same
// key, always.
func BuildCacheKey(alias string, version uint64, flavor, query string) string {
	a := alias
	if a == "" {
		a = "~"
	}
	f := flavor
	if f == "" {
		f = "~"
	}
	v := "v0"
	if version != 0 {
		v = "v" + strconv.FormatUint(version, 10)
	}
	return "a:" + a + "|v:" + v + "|f:" + f + "|q:" + query
}
