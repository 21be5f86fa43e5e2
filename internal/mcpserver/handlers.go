package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fraudpipe/riskengine/internal/domain"
	"github.com/fraudpipe/riskengine/internal/engine"
	"github.com/fraudpipe/riskengine/internal/explain"
	"github.com/fraudpipe/riskengine/internal/scoring"
)

// Handlers holds the handler functions for each MCP tool, backed directly
// by the Engine rather than an HTTP client — the MCP server runs in the
// same process as the pipeline.
type Handlers struct {
	engine *engine.Engine
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(e *engine.Engine) *Handlers {
	return &Handlers{engine: e}
}

// HandleScoreTransaction runs a transaction through the Engine's Predict
// entry point and reports the resulting decision.
func (h *Handlers) HandleScoreTransaction(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transactionID := req.GetString("transaction_id", "")
	if transactionID == "" {
		return mcp.NewToolResultError("transaction_id is required"), nil
	}
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	txType := domain.TransactionType(req.GetString("transaction_type", ""))
	if txType == "" {
		return mcp.NewToolResultError("transaction_type is required"), nil
	}

	tx := domain.Transaction{
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        req.GetFloat("amount", 0),
		Currency:      req.GetString("currency", ""),
		Type:          txType,
		MerchantID:    req.GetString("merchant_id", ""),
		MerchantCat:   req.GetString("merchant_category", ""),
		IPAddress:     req.GetString("ip_address", ""),
		DeviceID:      req.GetString("device_id", ""),
	}

	decision := h.engine.Predict(tx)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Transaction: %s\n", transactionID)
	fmt.Fprintf(&sb, "Fraud probability: %.4f\n", decision.Probability)
	fmt.Fprintf(&sb, "Risk band: %s\n", decision.Band)
	fmt.Fprintf(&sb, "Is fraud: %t\n", decision.IsFraud)
	fmt.Fprintf(&sb, "Model used: %s\n", decision.ModelUsed)
	sb.WriteString("\nFeatures:\n")
	for name, value := range decision.Features.ToMap() {
		fmt.Fprintf(&sb, "  %s: %.4f\n", name, value)
	}

	if decision.IsFraud {
		sb.WriteString("\nCall explain_transaction with these values for a narrative explanation.")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// HandleExplainTransaction runs a previously-scored transaction through the
// Engine's configured Explainer.
func (h *Handlers) HandleExplainTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transactionID := req.GetString("transaction_id", "")
	if transactionID == "" {
		return mcp.NewToolResultError("transaction_id is required"), nil
	}
	band := domain.RiskBand(req.GetString("risk_band", ""))
	if band == "" {
		return mcp.NewToolResultError("risk_band is required"), nil
	}

	features := make(map[string]float64)
	if raw := req.GetArguments()["features"]; raw != nil {
		if m, ok := raw.(map[string]any); ok {
			for k, v := range m {
				if f, ok := v.(float64); ok {
					features[k] = f
				}
			}
		}
	}

	importance := scoring.Importances(domain.FeatureVectorFromMap(features))

	expl, err := h.engine.Explain(ctx, explain.Request{
		TransactionID: transactionID,
		Probability:   req.GetFloat("probability", 0),
		Band:          band,
		Features:      features,
		Importance:    importance,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("explanation failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(expl.Narrative)
	sb.WriteString("\n\nRisk factors:\n")
	for _, f := range expl.RiskFactors {
		fmt.Fprintf(&sb, "  - %s\n", f)
	}
	sb.WriteString("\nRecommendations:\n")
	for _, r := range expl.Recommendations {
		fmt.Fprintf(&sb, "  - %s\n", r)
	}

	return mcp.NewToolResultText(sb.String()), nil
}
