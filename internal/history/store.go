// Package history implements the bounded per-entity sliding windows the
// feature extractor reads and appends to: one namespace each for user,
// merchant, and IP history.
package history

import (
	"sync"

	"github.com/fraudpipe/riskengine/internal/domain"
)

// Namespace qualifies a history key so user, merchant, and IP windows never
// collide even though they share one underlying map.
type Namespace string

const (
	NamespaceUser     Namespace = "user"
	NamespaceMerchant Namespace = "merchant"
	NamespaceIP       Namespace = "ip"
)

// window is a capacity-bounded FIFO of history entries for one entity.
type window struct {
	mu       sync.Mutex
	entries  []domain.HistoryEntry
	capacity int
}

func newWindow(capacity int) *window {
	return &window{capacity: capacity}
}

// snapshot returns a defensive copy of the current entries.
func (w *window) snapshot() []domain.HistoryEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.HistoryEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

// append adds an entry and evicts the oldest past capacity.
func (w *window) append(e domain.HistoryEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, e)
	if len(w.entries) > w.capacity {
		w.entries = w.entries[len(w.entries)-w.capacity:]
	}
}

func (w *window) empty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries) == 0
}

// Store holds all active per-entity windows, partitioned by namespace. Each
// entity's window is guarded by its own mutex; the outer sync.Map lets
// distinct entities be read and appended concurrently without contention.
type Store struct {
	windows  sync.Map // map[string]*window, key = namespace+":"+id
	capacity int
}

// New creates a Store whose windows hold up to capacity entries each.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Store{capacity: capacity}
}

func keyFor(ns Namespace, id string) string {
	return string(ns) + ":" + id
}

func (s *Store) getWindow(ns Namespace, id string) *window {
	key := keyFor(ns, id)
	v, _ := s.windows.LoadOrStore(key, newWindow(s.capacity))
	return v.(*window)
}

// Snapshot returns the current entries for (namespace, id) without mutating
// them. The extractor must call Snapshot before Append for the same event,
// so a transaction's own features never include itself.
func (s *Store) Snapshot(ns Namespace, id string) []domain.HistoryEntry {
	if id == "" {
		return nil
	}
	return s.getWindow(ns, id).snapshot()
}

// Append records an entry for (namespace, id), evicting the oldest entry
// once the window exceeds capacity.
func (s *Store) Append(ns Namespace, id string, entry domain.HistoryEntry) {
	if id == "" {
		return
	}
	s.getWindow(ns, id).append(entry)
}

// Sweep removes windows that are currently empty. It is safe to call
// concurrently with Snapshot/Append; a window repopulated immediately after
// being swept simply gets recreated on the next Append.
func (s *Store) Sweep() int {
	removed := 0
	s.windows.Range(func(key, value interface{}) bool {
		w := value.(*window)
		if w.empty() {
			s.windows.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
