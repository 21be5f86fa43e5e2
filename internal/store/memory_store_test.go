package store

import (
	"context"
	"testing"
	"time"

	"github.com/fraudpipe/riskengine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSaveAndRecent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, domain.EnrichedResult{TransactionID: "1", IsFraud: false}))
	require.NoError(t, s.Save(ctx, domain.EnrichedResult{TransactionID: "2", IsFraud: true, FraudProbability: 0.9}))

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2", recent[0].TransactionID)
}

func TestMemoryStoreStats(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Save(ctx, domain.EnrichedResult{TransactionID: "1", IsFraud: true, FraudProbability: 0.8})
	_ = s.Save(ctx, domain.EnrichedResult{TransactionID: "2", IsFraud: false, FraudProbability: 0.2})

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalTransactions)
	assert.Equal(t, 1, st.FraudDetected)
	assert.InDelta(t, 0.5, st.AvgRiskScore, 1e-9)
}

func TestMemoryStorePruneOlderThan(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Save(ctx, domain.EnrichedResult{TransactionID: "1"})

	removed, err := s.PruneOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	st, _ := s.Stats(ctx)
	assert.Equal(t, 0, st.TotalTransactions)
}
