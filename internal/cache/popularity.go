package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// queryStat tracks one query's popularity: a running count and the mean
// inter-arrival time between observations, computed incrementally so the
// tracker never needs to retain a full history.
type queryStat struct {
	query            string
	count            int64
	lastSeen         time.Time
	meanInterArrival time.Duration
}

// PopularityTracker is the cache's query-side analytics: a rolling map from
// query text to its stats, bucketed by a fast hash (cespare/xxhash) so
// lookups stay cheap even with many distinct queries.
type PopularityTracker struct {
	mu    sync.Mutex
	stats map[uint64]*queryStat
}

// NewPopularityTracker returns an empty tracker.
func NewPopularityTracker() *PopularityTracker {
	return &PopularityTracker{stats: make(map[uint64]*queryStat)}
}

// Record registers one observation of query.
func (p *PopularityTracker) Record(query string) {
	if query == "" {
		return
	}
	key := xxhash.Sum64String(query)
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stats[key]
	if !ok {
		p.stats[key] = &queryStat{query: query, count: 1, lastSeen: now}
		return
	}
	gap := now.Sub(s.lastSeen)
	if s.count == 1 {
		s.meanInterArrival = gap
	} else {
		// incremental mean: new_mean = old_mean + (gap-old_mean)/n
		s.meanInterArrival += (gap - s.meanInterArrival) / time.Duration(s.count)
	}
	s.count++
	s.lastSeen = now
}

// TopN returns the N queries with the highest observed count, most popular
// first. Ties break by query text for determinism.
func (p *PopularityTracker) TopN(n int) []string {
	p.mu.Lock()
	snapshot := make([]queryStat, 0, len(p.stats))
	for _, s := range p.stats {
		snapshot = append(snapshot, *s)
	}
	p.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].count != snapshot[j].count {
			return snapshot[i].count > snapshot[j].count
		}
		return snapshot[i].query < snapshot[j].query
	})
	if n > len(snapshot) {
		n = len(snapshot)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = snapshot[i].query
	}
	return out
}
