// Package pool provides buffer reuse and string interning for blz's hot
// paths: the Markdown parser draws its per-document line slice from a
// tiered sync.Pool (NewLineAllocator), since those slices are short-lived
// and size-clustered. NewBlockAllocator and Interner are offered for
// HeadingBlock batches and repeated strings; the index writer and the
// other packages do not use them.
package pool

import (
	"sync"
	"sync/atomic"
)

// SlabAllocator is a generic, lock-free slab allocator for reducing
// allocation overhead. It keeps pre-sized pools for a handful of capacity
// tiers and picks the smallest tier that satisfies a request.
type SlabAllocator[T any] struct {
	pools []*poolTier[T]
	stats atomic.Value // *AllocatorStats
}

type poolTier[T any] struct {
	capacity int
	pool     sync.Pool
}

// AllocatorStats tracks allocation statistics for diagnostics.
type AllocatorStats struct {
	Allocations   int64
	Reuses        int64
	PoolHits      int64
	PoolMisses    int64
	TotalCapacity int64
}

// SlabTierConfig defines one capacity tier.
type SlabTierConfig struct {
	Capacity int
	Weight   float64 // relative share of requests expected at this tier
}

// LineTierConfigs is sized for the parser's per-document line buffers: most
// llms.txt files run a few hundred to a few thousand lines.
var LineTierConfigs = []SlabTierConfig{
	{Capacity: 64, Weight: 0.25},
	{Capacity: 256, Weight: 0.35},
	{Capacity: 1024, Weight: 0.25},
	{Capacity: 4096, Weight: 0.10},
	{Capacity: 16384, Weight: 0.05},
}

// BlockTierConfigs is sized for the index writer's per-source HeadingBlock
// batches: most TOCs have a few dozen to a few hundred headings.
var BlockTierConfigs = []SlabTierConfig{
	{Capacity: 16, Weight: 0.30},
	{Capacity: 64, Weight: 0.35},
	{Capacity: 256, Weight: 0.25},
	{Capacity: 1024, Weight: 0.10},
}

// NewSlabAllocator builds an allocator with the given tiers.
func NewSlabAllocator[T any](configs []SlabTierConfig) *SlabAllocator[T] {
	sa := &SlabAllocator[T]{pools: make([]*poolTier[T], len(configs))}
	for i, cfg := range configs {
		// No New func: an empty tier's Get returns nil, which getFromPool
		// counts as an allocation rather than a reuse.
		sa.pools[i] = &poolTier[T]{capacity: cfg.Capacity}
	}
	sa.stats.Store(&AllocatorStats{})
	return sa
}

// NewLineAllocator returns a [SlabAllocator] tiered for the parser's line buffers.
func NewLineAllocator[T any]() *SlabAllocator[T] {
	return NewSlabAllocator[T](LineTierConfigs)
}

// NewBlockAllocator returns a [SlabAllocator] tiered for HeadingBlock batches.
func NewBlockAllocator[T any]() *SlabAllocator[T] {
	return NewSlabAllocator[T](BlockTierConfigs)
}

// Get returns a slice with length 0 and capacity >= requested.
func (sa *SlabAllocator[T]) Get(capacity int) []T {
	if capacity <= 0 {
		return make([]T, 0)
	}
	for _, tier := range sa.pools {
		if tier.capacity >= capacity {
			return sa.getFromPool(tier)
		}
	}
	sa.updateStats(func(s *AllocatorStats) {
		s.Allocations++
		s.PoolMisses++
		s.TotalCapacity += int64(capacity)
	})
	return make([]T, 0, capacity)
}

// Put returns a slice to its tier for reuse. Slices whose capacity doesn't
// match a tier exactly are discarded.
func (sa *SlabAllocator[T]) Put(slice []T) {
	if slice == nil || cap(slice) == 0 {
		return
	}
	capacity := cap(slice)
	for _, tier := range sa.pools {
		if tier.capacity == capacity {
			tier.pool.Put(slice[:0])
			sa.updateStats(func(s *AllocatorStats) {
				s.PoolHits++
			})
			return
		}
	}
	sa.updateStats(func(s *AllocatorStats) { s.PoolMisses++ })
}

// Stats returns a snapshot of allocation statistics.
func (sa *SlabAllocator[T]) Stats() AllocatorStats {
	return *sa.stats.Load().(*AllocatorStats)
}

// ResetStats zeroes the statistics.
func (sa *SlabAllocator[T]) ResetStats() {
	sa.stats.Store(&AllocatorStats{})
}

func (sa *SlabAllocator[T]) getFromPool(tier *poolTier[T]) []T {
	if slice := tier.pool.Get(); slice != nil {
		sa.updateStats(func(s *AllocatorStats) {
			s.Reuses++
			s.PoolHits++
			s.TotalCapacity += int64(tier.capacity)
		})
		return slice.([]T)
	}
	sa.updateStats(func(s *AllocatorStats) {
		s.Allocations++
		s.PoolMisses++
		s.TotalCapacity += int64(tier.capacity)
	})
	return make([]T, 0, tier.capacity)
}

func (sa *SlabAllocator[T]) updateStats(update func(*AllocatorStats)) {
	current := sa.stats.Load().(*AllocatorStats)
	next := *current
	update(&next)
	sa.stats.Store(&next)
}
