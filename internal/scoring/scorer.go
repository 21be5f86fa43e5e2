// Package scoring implements the hybrid rule-plus-logistic fraud scorer:
// a fixed-priority rule cascade that overrides the logistic model in the
// regimes where it is empirically weak, falling back to the model (or, on
// model error, a lightweight heuristic) otherwise.
package scoring

import (
	"math"

	"github.com/fraudpipe/riskengine/internal/domain"
)

// ModelName identifies which scoring path produced a result.
const (
	ModelPretrainedLR = "pretrained_lr"
	ModelHeuristic    = "heuristic_fallback"
)

// Scorer evaluates the rule cascade and logistic model against a feature
// vector. It holds no mutable state: scoring is a pure function of its
// input, making it deterministic and safe for concurrent use.
type Scorer struct {
	modelUsed string
}

// New creates a Scorer. modelUsed names the model tag reported on
// logistic-path decisions (SPEC_FULL.md's configured model_type).
func New(modelUsed string) *Scorer {
	if modelUsed == "" {
		modelUsed = ModelPretrainedLR
	}
	return &Scorer{modelUsed: modelUsed}
}

// Score evaluates fv through the rule cascade, first-match-wins, falling
// through to the logistic model by default.
func (s *Scorer) Score(fv domain.FeatureVector) domain.Score {
	amount := fv.Amount
	userAvg := fv.UserAvgAmount
	txnsLastHour := fv.TxnsLastHour

	// R1: high value relative to the user's own history.
	if userAvg > 0 && amount > userAvg*0.9 && amount > 400 {
		baseRisk := math.Min(amount/1000, 0.8)
		velocityRisk := math.Min(0.1*txnsLastHour, 0.3)
		p := clamp01(baseRisk + velocityRisk)
		return domain.Score{Probability: p, Trace: domain.TraceRuleHighValueLowHistory, ModelUsed: "rule_based_hybrid"}
	}

	// R2: absolute magnitude cliff.
	if amount > 700 {
		return domain.Score{Probability: 0.85, Trace: domain.TraceRuleVeryHighAmount, ModelUsed: "rule_based_hybrid"}
	}

	// R3: velocity attack.
	if txnsLastHour >= 5 {
		return domain.Score{Probability: 0.75, Trace: domain.TraceRuleVelocityAttack, ModelUsed: "rule_based_hybrid"}
	}

	// Default: logistic model, boosted for moderately large amounts.
	p := logistic(fv)
	if amount > 500 {
		p = clamp01(p + 0.30)
	}
	return domain.Score{Probability: p, Trace: domain.TraceLogistic, ModelUsed: s.modelUsed}
}

// Fallback produces a score using a cheap additive heuristic, used when the
// logistic path itself errors at runtime (it cannot: logistic is pure
// arithmetic, but Fallback exists so the pipeline has somewhere to go if a
// future model implementation can fail).
func (s *Scorer) Fallback(fv domain.FeatureVector) domain.Score {
	risk := 0.0
	if fv.Amount > 400 {
		risk += 0.4
	}
	if fv.Amount > 700 {
		risk += 0.3
	}
	if fv.AmountVsAvg > 3 {
		risk += 0.2
	}
	if fv.TxnsLastHour > 3 {
		risk += 0.1
	}
	return domain.Score{Probability: clamp01(risk), Trace: domain.TraceFallbackHeuristic, ModelUsed: ModelHeuristic}
}

// Importances returns a per-feature contribution magnitude |weight * value|,
// usable for ranking which features most influenced a logistic decision.
// It is independent of any particular rule outcome.
func Importances(fv domain.FeatureVector) map[string]float64 {
	x := fv.Slice()
	out := make(map[string]float64, len(domain.FeatureNames))
	for i, name := range domain.FeatureNames {
		out[name] = math.Abs(weights[i] * x[i])
	}
	return out
}

func logistic(fv domain.FeatureVector) float64 {
	x := fv.Slice()
	z := intercept
	for i, w := range weights {
		z += w * x[i]
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
