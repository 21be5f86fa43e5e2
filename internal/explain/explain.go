// Package explain produces narrative explanations for fraud decisions: an
// always-available template mode, and an optional remote mode that calls an
// external text-generation endpoint behind a circuit breaker, falling back
// to the template on any failure.
package explain

import (
	"context"

	"github.com/fraudpipe/riskengine/internal/domain"
)

// Request carries everything an Explainer needs to produce an Explanation.
type Request struct {
	TransactionID string
	Probability   float64
	Band          domain.RiskBand
	Features      map[string]float64
	Importance    map[string]float64
}

// Explainer produces a narrative explanation for a fraud decision.
type Explainer interface {
	Explain(ctx context.Context, req Request) (domain.Explanation, error)
}
