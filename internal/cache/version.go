package cache

import "sync"

// VersionTracker hands out per-alias and global version tokens. A commit to
// a source's index bumps that alias's token and the global token; every
// cache key embeds the token it was built with, so a bump alone makes every
// older key miss without needing an explicit sweep (the explicit sweep,
// InvalidateAlias, still exists for the case of correcting a bad result
// before the next commit).
type VersionTracker struct {
	mu       sync.RWMutex
	global   uint64
	perAlias map[string]uint64
}

// NewVersionTracker returns a tracker starting at version 0 for every alias.
func NewVersionTracker() *VersionTracker {
	return &VersionTracker{perAlias: make(map[string]uint64)}
}

// Alias returns the current version token for alias (0 if never bumped).
func (v *VersionTracker) Alias(alias string) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.perAlias[alias]
}

// Global returns the current global version token.
func (v *VersionTracker) Global() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.global
}

// Bump increments both alias's token and the global token, called after a
// successful index_blocks*/index_blocks_flavored commit.
func (v *VersionTracker) Bump(alias string) (aliasVersion, globalVersion uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.global++
	v.perAlias[alias]++
	return v.perAlias[alias], v.global
}
