package domain

import "time"

// EnrichedResult is the artifact published on the results topic and
// persisted by the store. Field order matches the wire contract: declaring
// them in this order keeps encoding/json's natural field order aligned with
// the documented key order.
type EnrichedResult struct {
	TransactionID    string             `json:"transaction_id"`
	UserID           string             `json:"user_id"`
	Amount           float64            `json:"amount"`
	TransactionType  TransactionType    `json:"transaction_type"`
	MerchantID       *string            `json:"merchant_id"`
	Timestamp        time.Time          `json:"timestamp"`
	FraudProbability float64            `json:"fraud_probability"`
	RiskLevel        RiskBand           `json:"risk_level"`
	IsFraud          bool               `json:"is_fraud"`
	Features         map[string]float64 `json:"features"`
	ModelUsed        string             `json:"model_used"`

	AIExplanation   string   `json:"ai_explanation,omitempty"`
	RiskFactors     []string `json:"risk_factors,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// NewEnrichedResult builds the wire/persistence artifact from a transaction,
// decision, and optional explanation.
func NewEnrichedResult(tx Transaction, decision FraudDecision, expl *Explanation) EnrichedResult {
	var merchantID *string
	if tx.MerchantID != "" {
		m := tx.MerchantID
		merchantID = &m
	}

	r := EnrichedResult{
		TransactionID:    tx.TransactionID,
		UserID:           tx.UserID,
		Amount:           tx.Amount,
		TransactionType:  tx.Type,
		MerchantID:       merchantID,
		Timestamp:        tx.Timestamp,
		FraudProbability: decision.Probability,
		RiskLevel:        decision.Band,
		IsFraud:          decision.IsFraud,
		Features:         decision.Features.ToMap(),
		ModelUsed:        decision.ModelUsed,
	}

	if expl != nil {
		r.AIExplanation = expl.Narrative
		r.RiskFactors = expl.RiskFactors
		r.Recommendations = expl.Recommendations
	}

	return r
}
