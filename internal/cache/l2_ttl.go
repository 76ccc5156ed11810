package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/standardbeagle/blz/internal/model"
)

// EstimatedBytesPerHit approximates the in-memory footprint of one
// SearchHit for the memory-pressure eviction path, mirroring the teacher's
// EstimatedBytesPerEntry constant (internal/cache/metrics_cache.go).
const EstimatedBytesPerHit = 256.0

// ttlEntry is the value stored in L2's sync.Map.
type ttlEntry struct {
	value     []model.SearchHit
	expiresAt int64 // unix nano
	size      int64
}

// L2 is a TTL-bounded cache over sync.Map, the same lock-free shape as the
// teacher's MetricsCache: atomic counters, lazy expiry on Get, and a
// background cleaner goroutine on an interval.
type L2 struct {
	store      sync.Map // map[string]*ttlEntry
	defaultTTL int64    // nanoseconds

	maxEntries int
	maxBytes   int64
	entries    int64
	bytes      int64

	hits      int64
	misses    int64
	puts      int64
	evictions int64

	createdAt   time.Time
	lastCleanup int64

	stop chan struct{}
	once sync.Once
}

// NewL2 creates a TTL cache with the given default TTL and bounds. A zero
// maxEntries/maxBytes means unbounded on that dimension.
func NewL2(maxEntries int, maxBytes int64, defaultTTL time.Duration) *L2 {
	return &L2{
		defaultTTL:  defaultTTL.Nanoseconds(),
		maxEntries:  maxEntries,
		maxBytes:    maxBytes,
		createdAt:   time.Now(),
		lastCleanup: time.Now().UnixNano(),
		stop:        make(chan struct{}),
	}
}

// Get returns a clone of the cached hits for key, or (nil, false) if absent
// or expired. Expired entries found during Get are deleted lazily.
func (l *L2) Get(key string) ([]model.SearchHit, bool) {
	val, ok := l.store.Load(key)
	if !ok {
		atomic.AddInt64(&l.misses, 1)
		return nil, false
	}
	entry := val.(*ttlEntry)
	if time.Now().UnixNano() > entry.expiresAt {
		l.deleteIfPresent(key, entry)
		atomic.AddInt64(&l.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&l.hits, 1)
	return model.CloneHits(entry.value), true
}

// Put inserts key with the default TTL.
func (l *L2) Put(key string, hits []model.SearchHit) {
	l.PutWithTTL(key, hits, time.Duration(atomic.LoadInt64(&l.defaultTTL)))
}

// PutWithTTL inserts key with an explicit TTL.
func (l *L2) PutWithTTL(key string, hits []model.SearchHit, ttl time.Duration) {
	size := int64(estimateSize(hits))
	entry := &ttlEntry{
		value:     model.CloneHits(hits),
		expiresAt: time.Now().Add(ttl).UnixNano(),
		size:      size,
	}
	if old, loaded := l.store.Swap(key, entry); loaded {
		atomic.AddInt64(&l.bytes, size-old.(*ttlEntry).size)
	} else {
		atomic.AddInt64(&l.entries, 1)
		atomic.AddInt64(&l.bytes, size)
	}
	atomic.AddInt64(&l.puts, 1)
	l.evictIfOverBudget()
}

// Remove deletes key if present.
func (l *L2) Remove(key string) {
	if val, ok := l.store.LoadAndDelete(key); ok {
		entry := val.(*ttlEntry)
		atomic.AddInt64(&l.entries, -1)
		atomic.AddInt64(&l.bytes, -entry.size)
	}
}

// RemoveFunc removes every key for which match returns true.
func (l *L2) RemoveFunc(match func(key string) bool) int {
	removed := 0
	l.store.Range(func(k, v any) bool {
		key := k.(string)
		if match(key) {
			l.Remove(key)
			removed++
		}
		return true
	})
	return removed
}

func (l *L2) deleteIfPresent(key string, expected *ttlEntry) {
	if l.store.CompareAndDelete(key, expected) {
		atomic.AddInt64(&l.entries, -1)
		atomic.AddInt64(&l.bytes, -expected.size)
		atomic.AddInt64(&l.evictions, 1)
	}
}

// CleanExpired sweeps the whole map removing expired entries; the
// background cleaner calls this on an interval per spec.md §4.4.
func (l *L2) CleanExpired() int {
	now := time.Now().UnixNano()
	cleaned := 0
	l.store.Range(func(k, v any) bool {
		entry := v.(*ttlEntry)
		if now > entry.expiresAt {
			if l.store.CompareAndDelete(k, entry) {
				atomic.AddInt64(&l.entries, -1)
				atomic.AddInt64(&l.bytes, -entry.size)
				cleaned++
			}
		}
		return true
	})
	atomic.AddInt64(&l.evictions, int64(cleaned))
	atomic.StoreInt64(&l.lastCleanup, now)
	return cleaned
}

// evictIfOverBudget drops an arbitrary entry (no ordering guarantee, per
// spec.md §4.4) when the cache exceeds its entry-count or byte budget.
func (l *L2) evictIfOverBudget() {
	for (l.maxEntries > 0 && atomic.LoadInt64(&l.entries) > int64(l.maxEntries)) ||
		(l.maxBytes > 0 && atomic.LoadInt64(&l.bytes) > l.maxBytes) {
		evicted := false
		l.store.Range(func(k, v any) bool {
			entry := v.(*ttlEntry)
			if l.store.CompareAndDelete(k, entry) {
				atomic.AddInt64(&l.entries, -1)
				atomic.AddInt64(&l.bytes, -entry.size)
				atomic.AddInt64(&l.evictions, 1)
				evicted = true
			}
			return false // only look at one candidate per pass
		})
		if !evicted {
			return
		}
	}
}

// StartCleaner runs CleanExpired on the given interval until Stop is
// called, matching the teacher's startAutoCleanup goroutine
// (internal/cache/metrics_cache.go).
func (l *L2) StartCleaner(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.CleanExpired()
			case <-l.stop:
				return
			}
		}
	}()
}

// Stop terminates the background cleaner goroutine, if one was started. It
// is safe to call Stop more than once or without having called StartCleaner.
func (l *L2) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Stats returns a snapshot of L2's counters.
func (l *L2) Stats() TierStats {
	return TierStats{
		Hits:      atomic.LoadInt64(&l.hits),
		Misses:    atomic.LoadInt64(&l.misses),
		Puts:      atomic.LoadInt64(&l.puts),
		Evictions: atomic.LoadInt64(&l.evictions),
		Entries:   int(atomic.LoadInt64(&l.entries)),
		Bytes:     atomic.LoadInt64(&l.bytes),
	}
}
