package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fraudpipe/riskengine/internal/domain"
)

// PostgresStore persists EnrichedResults in PostgreSQL. Schema is managed
// by goose migrations (see migrations/), not by Migrate here — Migrate is
// retained for parity with in-process bootstrap/test paths that don't run
// the full migration runner.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed result store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the fraud_results table if it doesn't exist. Safe to call
// repeatedly; the canonical schema lives in migrations/.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fraud_results (
			transaction_id    VARCHAR(64) PRIMARY KEY,
			user_id           VARCHAR(64) NOT NULL,
			amount            DOUBLE PRECISION NOT NULL,
			transaction_type  VARCHAR(20) NOT NULL,
			merchant_id       VARCHAR(64),
			occurred_at       TIMESTAMPTZ NOT NULL,
			fraud_probability NUMERIC(5,4) NOT NULL CHECK (fraud_probability >= 0 AND fraud_probability <= 1),
			risk_level        VARCHAR(10) NOT NULL CHECK (risk_level IN ('low','medium','high','critical')),
			is_fraud          BOOLEAN NOT NULL,
			model_used        VARCHAR(40) NOT NULL,
			features          JSONB NOT NULL DEFAULT '{}',
			ai_explanation    TEXT,
			risk_factors      JSONB,
			recommendations   JSONB,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_fraud_results_is_fraud ON fraud_results (is_fraud);
		CREATE INDEX IF NOT EXISTS idx_fraud_results_risk_level ON fraud_results (risk_level);
		CREATE INDEX IF NOT EXISTS idx_fraud_results_user_id ON fraud_results (user_id, occurred_at DESC);
	`)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, result domain.EnrichedResult) error {
	featuresJSON, err := json.Marshal(result.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	var riskFactorsJSON, recommendationsJSON []byte
	if result.RiskFactors != nil {
		if riskFactorsJSON, err = json.Marshal(result.RiskFactors); err != nil {
			return fmt.Errorf("marshal risk factors: %w", err)
		}
	}
	if result.Recommendations != nil {
		if recommendationsJSON, err = json.Marshal(result.Recommendations); err != nil {
			return fmt.Errorf("marshal recommendations: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fraud_results (
			transaction_id, user_id, amount, transaction_type, merchant_id, occurred_at,
			fraud_probability, risk_level, is_fraud, model_used, features,
			ai_explanation, risk_factors, recommendations
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (transaction_id) DO NOTHING
	`,
		result.TransactionID, result.UserID, result.Amount, result.TransactionType,
		result.MerchantID, result.Timestamp,
		result.FraudProbability, result.RiskLevel, result.IsFraud, result.ModelUsed, featuresJSON,
		nullIfEmpty(result.AIExplanation), riskFactorsJSON, recommendationsJSON,
	)
	if err != nil {
		return fmt.Errorf("save fraud result: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]domain.EnrichedResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, user_id, amount, transaction_type, merchant_id, occurred_at,
		       fraud_probability, risk_level, is_fraud, model_used, features,
		       ai_explanation, risk_factors, recommendations
		FROM fraud_results
		ORDER BY occurred_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent fraud results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.EnrichedResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_fraud),
		       AVG(fraud_probability)
		FROM fraud_results
	`).Scan(&st.TotalTransactions, &st.FraudDetected, &avg)
	if err != nil {
		return Stats{}, fmt.Errorf("compute stats: %w", err)
	}
	if avg.Valid {
		st.AvgRiskScore = avg.Float64
	}
	return st, nil
}

func (s *PostgresStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM fraud_results WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune fraud results: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row rowScanner) (domain.EnrichedResult, error) {
	var r domain.EnrichedResult
	var featuresJSON, riskFactorsJSON, recommendationsJSON []byte
	var aiExplanation sql.NullString

	err := row.Scan(
		&r.TransactionID, &r.UserID, &r.Amount, &r.TransactionType, &r.MerchantID, &r.Timestamp,
		&r.FraudProbability, &r.RiskLevel, &r.IsFraud, &r.ModelUsed, &featuresJSON,
		&aiExplanation, &riskFactorsJSON, &recommendationsJSON,
	)
	if err != nil {
		return domain.EnrichedResult{}, err
	}

	r.Features = make(map[string]float64)
	_ = json.Unmarshal(featuresJSON, &r.Features)
	if aiExplanation.Valid {
		r.AIExplanation = aiExplanation.String
	}
	_ = json.Unmarshal(riskFactorsJSON, &r.RiskFactors)
	_ = json.Unmarshal(recommendationsJSON, &r.Recommendations)
	return r, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
