// Package ring implements the bounded, thread-safe FIFO of most-recent
// enriched results backing the /recent read path and the in-memory stats
// fallback.
package ring

import (
	"sync"

	"github.com/fraudpipe/riskengine/internal/domain"
)

// Ring is a capacity-bounded buffer of EnrichedResults. Push is O(1);
// Recent is O(limit). On overflow the oldest entry is evicted.
type Ring struct {
	mu       sync.Mutex
	entries  []domain.EnrichedResult
	capacity int
}

// New creates a Ring holding up to capacity entries.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 500
	}
	return &Ring{capacity: capacity}
}

// Push appends a result, evicting the oldest entry if at capacity.
func (r *Ring) Push(result domain.EnrichedResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, result)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
}

// Recent returns up to limit results, newest first.
func (r *Ring) Recent(limit int) []domain.EnrichedResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]domain.EnrichedResult, limit)
	for i := 0; i < limit; i++ {
		out[i] = r.entries[n-1-i]
	}
	return out
}

// Len returns the current number of retained entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Stats computes a cheap summary over the retained entries: total count,
// fraud count, and average risk score. Used as the /stats fallback when no
// persistent store is configured.
type Stats struct {
	Total    int
	Fraud    int
	AvgScore float64
}

func (r *Ring) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s Stats
	s.Total = len(r.entries)
	var sum float64
	for _, e := range r.entries {
		sum += e.FraudProbability
		if e.IsFraud {
			s.Fraud++
		}
	}
	if s.Total > 0 {
		s.AvgScore = sum / float64(s.Total)
	}
	return s
}
