// Package store persists EnrichedResults, with an in-memory implementation
// for development/testing and a PostgreSQL implementation for production.
package store

import (
	"context"
	"time"

	"github.com/fraudpipe/riskengine/internal/domain"
)

// Stats summarizes persisted results for the /stats endpoint.
type Stats struct {
	TotalTransactions int
	FraudDetected     int
	AvgRiskScore      float64
}

// Store persists and queries EnrichedResults.
type Store interface {
	Save(ctx context.Context, result domain.EnrichedResult) error
	Recent(ctx context.Context, limit int) ([]domain.EnrichedResult, error)
	Stats(ctx context.Context) (Stats, error)
	// PruneOlderThan deletes records created before cutoff, returning the
	// number removed. Supplements SPEC_FULL.md §9's periodic-sweep design.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
