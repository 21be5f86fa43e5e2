//go:build integration

package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/fraudpipe/riskengine/internal/domain"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func sampleResult(id string) domain.EnrichedResult {
	return domain.EnrichedResult{
		TransactionID:    id,
		UserID:           "u1",
		Amount:           120,
		TransactionType:  domain.TransactionPayment,
		Timestamp:        time.Now(),
		FraudProbability: 0.1,
		RiskLevel:        domain.RiskLow,
		ModelUsed:        "pretrained_lr",
		Features:         map[string]float64{"amount": 120},
	}
}

// TestPostgresStoreIntegration exercises Save/Recent/Stats/PruneOlderThan
// against a real PostgreSQL instance. Skipped unless Docker is reachable;
// run with `go test -tags=integration ./internal/store/...`.
func TestPostgresStoreIntegration(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("riskengine_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
	)
	if err != nil {
		t.Skipf("docker unavailable, skipping postgres integration test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewPostgresStore(db)
	require.NoError(t, s.Migrate(ctx))

	result := sampleResult("tx-1")
	require.NoError(t, s.Save(ctx, result))

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "tx-1", recent[0].TransactionID)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalTransactions)

	removed, err := s.PruneOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
}
