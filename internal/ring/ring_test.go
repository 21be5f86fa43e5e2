package ring

import (
	"testing"

	"github.com/fraudpipe/riskengine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(id string, isFraud bool, prob float64) domain.EnrichedResult {
	return domain.EnrichedResult{TransactionID: id, IsFraud: isFraud, FraudProbability: prob}
}

func TestRingBoundedSize(t *testing.T) {
	r := New(3)
	for i := 0; i < 5; i++ {
		r.Push(result(string(rune('a'+i)), false, 0))
	}
	assert.Equal(t, 3, r.Len())
}

func TestRingNewestFirst(t *testing.T) {
	r := New(5)
	r.Push(result("1", false, 0))
	r.Push(result("2", false, 0))
	r.Push(result("3", false, 0))

	recent := r.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, "3", recent[0].TransactionID)
	assert.Equal(t, "1", recent[2].TransactionID)
}

func TestRingStats(t *testing.T) {
	r := New(10)
	r.Push(result("1", true, 0.9))
	r.Push(result("2", false, 0.1))

	s := r.Stats()
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Fraud)
	assert.InDelta(t, 0.5, s.AvgScore, 1e-9)
}
