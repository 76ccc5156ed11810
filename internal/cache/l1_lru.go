package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/standardbeagle/blz/internal/model"
)

// l1Entry is the value stored at each container/list element. createdAt,
// lastAccessed and accessCount are the metadata the spec requires L1 to
// track per entry.
type l1Entry struct {
	key          string
	value        []model.SearchHit
	size         int
	createdAt    time.Time
	lastAccessed time.Time
	accessCount  int64
}

// L1 is an LRU cache bounded by both entry count and byte budget. The spec
// notes the reference implementation uses unsafe raw doubly-linked nodes
// for this; container/list is the safe equivalent it explicitly permits
// (§9), and is the only LRU primitive available anywhere in the pack.
type L1 struct {
	mu         sync.Mutex
	ll         *list.List // front = most recently used
	items      map[string]*list.Element
	maxEntries int
	maxBytes   int64
	bytes      int64

	hits      int64
	misses    int64
	puts      int64
	evictions int64
}

// NewL1 creates an LRU bounded by maxEntries and maxBytes. A zero value for
// either means "no bound on that dimension".
func NewL1(maxEntries int, maxBytes int64) *L1 {
	return &L1{
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
	}
}

// Get returns a clone of the cached hits for key and moves the entry to the
// MRU position, or (nil, false) on a miss.
func (l *L1) Get(key string) ([]model.SearchHit, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.items[key]
	if !ok {
		atomic.AddInt64(&l.misses, 1)
		return nil, false
	}
	l.ll.MoveToFront(el)
	entry := el.Value.(*l1Entry)
	entry.lastAccessed = time.Now()
	entry.accessCount++
	atomic.AddInt64(&l.hits, 1)
	return model.CloneHits(entry.value), true
}

// Put inserts or replaces key, evicting LRU-tail entries until the cache
// fits both maxEntries and maxBytes.
func (l *L1) Put(key string, hits []model.SearchHit) {
	size := estimateSize(hits)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if el, ok := l.items[key]; ok {
		old := el.Value.(*l1Entry)
		l.bytes += int64(size - old.size)
		old.value = model.CloneHits(hits)
		old.size = size
		old.createdAt = now
		old.lastAccessed = now
		l.ll.MoveToFront(el)
	} else {
		entry := &l1Entry{
			key: key, value: model.CloneHits(hits), size: size,
			createdAt: now, lastAccessed: now, accessCount: 0,
		}
		el := l.ll.PushFront(entry)
		l.items[key] = el
		l.bytes += int64(size)
	}
	atomic.AddInt64(&l.puts, 1)
	l.evictLocked()
}

// Remove deletes key if present.
func (l *L1) Remove(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeElementLocked(key)
}

// RemoveFunc removes every key for which match returns true, used by
// InvalidateAlias.
func (l *L1) RemoveFunc(match func(key string) bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key := range l.items {
		if match(key) {
			l.removeElementLocked(key)
			removed++
		}
	}
	return removed
}

func (l *L1) removeElementLocked(key string) {
	el, ok := l.items[key]
	if !ok {
		return
	}
	entry := el.Value.(*l1Entry)
	l.bytes -= int64(entry.size)
	l.ll.Remove(el)
	delete(l.items, key)
}

// evictLocked evicts from the LRU tail until the cache is within budget.
// Caller must hold l.mu.
func (l *L1) evictLocked() {
	for (l.maxEntries > 0 && l.ll.Len() > l.maxEntries) ||
		(l.maxBytes > 0 && l.bytes > l.maxBytes) {
		tail := l.ll.Back()
		if tail == nil {
			return
		}
		entry := tail.Value.(*l1Entry)
		l.bytes -= int64(entry.size)
		l.ll.Remove(tail)
		delete(l.items, entry.key)
		atomic.AddInt64(&l.evictions, 1)
	}
}

// Len reports the current entry count.
func (l *L1) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ll.Len()
}

// Bytes reports the current estimated byte usage.
func (l *L1) Bytes() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bytes
}

// Stats returns a snapshot of L1's counters.
func (l *L1) Stats() TierStats {
	l.mu.Lock()
	entries, bytes := l.ll.Len(), l.bytes
	l.mu.Unlock()
	return TierStats{
		Hits:      atomic.LoadInt64(&l.hits),
		Misses:    atomic.LoadInt64(&l.misses),
		Puts:      atomic.LoadInt64(&l.puts),
		Evictions: atomic.LoadInt64(&l.evictions),
		Entries:   entries,
		Bytes:     bytes,
	}
}

// estimateSize gives a rough byte estimate for a hit slice, used for the
// byte-budget eviction policy. It does not need to be exact, only
// monotonic with result size.
func estimateSize(hits []model.SearchHit) int {
	size := 0
	for _, h := range hits {
		size += len(h.Alias) + len(h.Path) + len(h.Lines) + len(h.Snippet) +
			len(h.SourceURL) + len(h.Checksum) + len(h.Anchor) + 64
		for _, p := range h.HeadingPath {
			size += len(p)
		}
	}
	return size
}
