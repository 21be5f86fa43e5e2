package explain

import (
	"context"
	"testing"

	"github.com/fraudpipe/riskengine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateExplainProducesAllFields(t *testing.T) {
	tmpl := NewTemplate()
	req := Request{
		TransactionID: "t1",
		Probability:   0.9,
		Band:          domain.RiskCritical,
		Features: map[string]float64{
			"amount": 800, "amount_vs_avg": 4.2, "txns_last_hour": 6,
		},
		Importance: map[string]float64{
			"amount": 0.9, "amount_vs_avg": 0.8, "txns_last_hour": 0.5,
			"ip_txn_count": 0.1, "merchant_std_amount": 0.05, "day_of_week": 0.01,
		},
	}

	expl, err := tmpl.Explain(context.Background(), req)

	require.NoError(t, err)
	assert.NotEmpty(t, expl.Narrative)
	assert.Len(t, expl.RiskFactors, 5)
	assert.NotEmpty(t, expl.Recommendations)
}

func TestTopRiskFactorsOrderedByImportance(t *testing.T) {
	features := map[string]float64{"a": 1, "b": 2, "c": 3}
	importance := map[string]float64{"a": 0.1, "b": 0.9, "c": 0.5}

	factors := topRiskFactors(features, importance, 2)

	require.Len(t, factors, 2)
	assert.Equal(t, "b: 2.000", factors[0])
	assert.Equal(t, "c: 3.000", factors[1])
}

func TestLowBandRecommendationsDoNotBlock(t *testing.T) {
	tmpl := NewTemplate()
	req := Request{
		Band:       domain.RiskLow,
		Features:   map[string]float64{"amount": 50},
		Importance: map[string]float64{"amount": 0.1},
	}

	expl, err := tmpl.Explain(context.Background(), req)

	require.NoError(t, err)
	for _, r := range expl.Recommendations {
		assert.NotContains(t, r, "Block")
	}
}
