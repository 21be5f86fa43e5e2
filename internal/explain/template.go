package explain

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/fraudpipe/riskengine/internal/domain"
)

// narrativeCatalog holds parameterized narrative templates per risk band.
// Templates draw on amount, amountVsAvg, txnsLastHour, and probability (low
// band: amount and probability only). Each band's templates share one fixed
// placeholder order so a single
// Sprintf call can render any of them:
//
//	critical/high: amount(%.2f), txnsLastHour(%d), amountVsAvg(%.1f), confidence(%.1f)
//	medium:        amount(%.2f), amountVsAvg(%.1f), txnsLastHour(%d), confidence(%.1f)
//	low:           amount(%.2f), confidence(%.1f)
var narrativeCatalog = map[domain.RiskBand][]string{
	domain.RiskCritical: {
		"Critical fraud alert: transaction of $%.2f shows a velocity anomaly (%d txns/hour) and a %.1fx baseline deviation. Model confidence: %.1f%%.",
		"Critical risk: $%.2f transaction, %d transactions in the past hour, %.1fx baseline deviation. Confidence: %.1f%%.",
		"Immediate review required: $%.2f transaction, velocity %d/hour, %.1fx above baseline, confidence %.1f%%.",
	},
	domain.RiskHigh: {
		"High risk: $%.2f transaction with %d transactions in the last hour, %.1fx above the account's typical amount (confidence %.1f%%).",
		"Elevated risk detected on a $%.2f transaction: %d recent transactions, %.1fx deviation, confidence %.1f%%.",
		"Transaction flagged high risk: $%.2f, velocity %d/hour, %.1fx baseline deviation, confidence %.1f%%.",
	},
	domain.RiskMedium: {
		"Medium risk: $%.2f transaction shows moderate deviation (%.1fx baseline) with %d recent transactions (confidence %.1f%%).",
		"Worth monitoring: $%.2f transaction, %.1fx typical spend, %d/hour velocity, confidence %.1f%%.",
	},
	domain.RiskLow: {
		"Low risk: $%.2f transaction is consistent with the account's usual pattern (confidence %.1f%%).",
		"No significant anomalies: $%.2f transaction within expected range (confidence %.1f%%).",
	},
}

var recommendationCatalog = map[domain.RiskBand][]string{
	domain.RiskCritical: {
		"Block transaction immediately",
		"Freeze account pending review",
		"Contact customer to verify activity",
		"Escalate to deep fraud investigation",
		"Notify law enforcement if confirmed",
		"Flag amount for manual reconciliation",
	},
	domain.RiskHigh: {
		"Hold transaction for manual approval",
		"Require two-factor authentication",
		"Request enhanced identity verification",
		"Add account to activity review queue",
		"Alert fraud response team",
		"Run a velocity check on recent activity",
	},
	domain.RiskMedium: {
		"Enable enhanced monitoring for this account",
		"Send customer notification of unusual activity",
		"Approve with conditional hold",
		"Track pattern for repeat occurrences",
		"Schedule for daily review",
		"Re-check against updated threshold",
	},
	domain.RiskLow: {
		"Approve transaction",
		"Continue standard monitoring",
		"Log transaction data for future baselining",
		"Update account spending profile",
		"No action required",
	},
}

// Template is the always-available, no-network Explainer.
type Template struct {
	rand *rand.Rand
}

// NewTemplate creates a template Explainer.
func NewTemplate() *Template {
	return &Template{rand: rand.New(rand.NewSource(rand.Int63()))}
}

func (t *Template) Explain(_ context.Context, req Request) (domain.Explanation, error) {
	narrative := t.narrative(req)
	factors := topRiskFactors(req.Features, req.Importance, 5)
	recs := append([]string(nil), recommendationCatalog[req.Band]...)

	return domain.Explanation{
		Narrative:       narrative,
		RiskFactors:     factors,
		Recommendations: recs,
	}, nil
}

func (t *Template) narrative(req Request) string {
	pool := narrativeCatalog[req.Band]
	if len(pool) == 0 {
		pool = narrativeCatalog[domain.RiskLow]
	}
	tmpl := pool[t.rand.Intn(len(pool))]

	amount := req.Features["amount"]
	amountVsAvg := req.Features["amount_vs_avg"]
	txnsLastHour := int(req.Features["txns_last_hour"])
	confidence := req.Probability * 100

	switch req.Band {
	case domain.RiskCritical, domain.RiskHigh:
		return fmt.Sprintf(tmpl, amount, txnsLastHour, amountVsAvg, confidence)
	case domain.RiskMedium:
		return fmt.Sprintf(tmpl, amount, amountVsAvg, txnsLastHour, confidence)
	default:
		return fmt.Sprintf(tmpl, amount, confidence)
	}
}

// topRiskFactors ranks feature names by importance (descending) and renders
// the top n as "<name>: <value:.3f>".
func topRiskFactors(features, importance map[string]float64, n int) []string {
	names := make([]string, 0, len(importance))
	for name := range importance {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return importance[names[i]] > importance[names[j]]
	})
	if len(names) > n {
		names = names[:n]
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, fmt.Sprintf("%s: %.3f", name, features[name]))
	}
	return out
}
