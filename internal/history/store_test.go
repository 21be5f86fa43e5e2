package history

import (
	"sync"
	"testing"

	"github.com/fraudpipe/riskengine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotBeforeAppendExcludesSelf(t *testing.T) {
	s := New(10)

	before := s.Snapshot(NamespaceUser, "u1")
	require.Empty(t, before)

	s.Append(NamespaceUser, "u1", domain.HistoryEntry{UserID: "u1", Amount: 100, Timestamp: 1})

	after := s.Snapshot(NamespaceUser, "u1")
	assert.Len(t, after, 1)
	assert.Equal(t, 100.0, after[0].Amount)
}

func TestWindowEvictsOldestPastCapacity(t *testing.T) {
	s := New(3)
	for i := 0; i < 5; i++ {
		s.Append(NamespaceUser, "u1", domain.HistoryEntry{UserID: "u1", Amount: float64(i), Timestamp: int64(i)})
	}

	entries := s.Snapshot(NamespaceUser, "u1")
	require.Len(t, entries, 3)
	assert.Equal(t, 2.0, entries[0].Amount)
	assert.Equal(t, 4.0, entries[2].Amount)
}

func TestNamespacesDoNotCollide(t *testing.T) {
	s := New(10)
	s.Append(NamespaceUser, "x", domain.HistoryEntry{Amount: 1})
	s.Append(NamespaceMerchant, "x", domain.HistoryEntry{Amount: 2})

	userEntries := s.Snapshot(NamespaceUser, "x")
	merchantEntries := s.Snapshot(NamespaceMerchant, "x")
	require.Len(t, userEntries, 1)
	require.Len(t, merchantEntries, 1)
	assert.Equal(t, 1.0, userEntries[0].Amount)
	assert.Equal(t, 2.0, merchantEntries[0].Amount)
}

func TestSnapshotReturnsDefensiveCopy(t *testing.T) {
	s := New(10)
	s.Append(NamespaceUser, "u1", domain.HistoryEntry{Amount: 1})

	snap := s.Snapshot(NamespaceUser, "u1")
	snap[0].Amount = 999

	fresh := s.Snapshot(NamespaceUser, "u1")
	assert.Equal(t, 1.0, fresh[0].Amount)
}

func TestConcurrentAppendDifferentUsersNoRace(t *testing.T) {
	s := New(1000)
	var wg sync.WaitGroup
	for u := 0; u < 20; u++ {
		u := u
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Append(NamespaceUser, string(rune('a'+u)), domain.HistoryEntry{Amount: float64(i)})
			}
		}()
	}
	wg.Wait()

	entries := s.Snapshot(NamespaceUser, "a")
	assert.Len(t, entries, 50)
}

func TestSweepRemovesOnlyEmptyWindows(t *testing.T) {
	s := New(10)
	s.Append(NamespaceUser, "active", domain.HistoryEntry{Amount: 1})
	// force creation of an empty window
	s.getWindow(NamespaceUser, "idle")

	removed := s.Sweep()
	assert.Equal(t, 1, removed)
	assert.Len(t, s.Snapshot(NamespaceUser, "active"), 1)
}
