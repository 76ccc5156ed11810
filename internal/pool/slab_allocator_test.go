package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlabAllocatorGetPicksSmallestFittingTier(t *testing.T) {
	sa := NewSlabAllocator[byte]([]SlabTierConfig{
		{Capacity: 64, Weight: 1},
		{Capacity: 256, Weight: 1},
	})

	buf := sa.Get(100)
	assert.Equal(t, 0, len(buf))
	assert.GreaterOrEqual(t, cap(buf), 100)
	assert.Equal(t, 256, cap(buf))
}

func TestSlabAllocatorGetBeyondAllTiersAllocatesExact(t *testing.T) {
	sa := NewSlabAllocator[byte]([]SlabTierConfig{
		{Capacity: 64, Weight: 1},
	})

	buf := sa.Get(1000)
	assert.Equal(t, 1000, cap(buf))

	stats := sa.Stats()
	assert.Equal(t, int64(1), stats.Allocations)
	assert.Equal(t, int64(1), stats.PoolMisses)
}

func TestSlabAllocatorGetZeroOrNegativeReturnsEmpty(t *testing.T) {
	sa := NewSlabAllocator[byte](LineTierConfigs)
	assert.Equal(t, 0, len(sa.Get(0)))
	assert.Equal(t, 0, len(sa.Get(-1)))
}

func TestSlabAllocatorPutAndReuse(t *testing.T) {
	sa := NewSlabAllocator[byte]([]SlabTierConfig{
		{Capacity: 64, Weight: 1},
	})

	buf := sa.Get(10)
	require.Equal(t, 64, cap(buf))
	buf = append(buf, 1, 2, 3)

	sa.Put(buf)

	reused := sa.Get(10)
	assert.Equal(t, 0, len(reused))
	assert.Equal(t, 64, cap(reused))

	stats := sa.Stats()
	assert.Equal(t, int64(1), stats.Reuses)
	assert.GreaterOrEqual(t, stats.PoolHits, int64(1))
}

func TestSlabAllocatorPutIgnoresNilAndMismatchedCapacity(t *testing.T) {
	sa := NewSlabAllocator[byte]([]SlabTierConfig{
		{Capacity: 64, Weight: 1},
	})

	sa.Put(nil)
	sa.Put(make([]byte, 0, 10))

	stats := sa.Stats()
	assert.Equal(t, int64(0), stats.Reuses)
	assert.Equal(t, int64(1), stats.PoolMisses)
}

func TestSlabAllocatorResetStats(t *testing.T) {
	sa := NewSlabAllocator[byte](BlockTierConfigs)
	sa.Get(10)
	sa.Get(10000)
	sa.ResetStats()

	stats := sa.Stats()
	assert.Equal(t, AllocatorStats{}, stats)
}

func TestNewLineAndBlockAllocators(t *testing.T) {
	lines := NewLineAllocator[string]()
	blocks := NewBlockAllocator[int]()

	buf := lines.Get(100)
	assert.Equal(t, 256, cap(buf))

	bbuf := blocks.Get(10)
	assert.Equal(t, 16, cap(bbuf))
}
