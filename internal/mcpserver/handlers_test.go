package mcpserver

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudpipe/riskengine/internal/config"
	"github.com/fraudpipe/riskengine/internal/engine"
	"github.com/fraudpipe/riskengine/internal/store"
)

func testEngine() *engine.Engine {
	cfg := &config.Config{
		TransactionsTopic: config.DefaultTransactionsTopic,
		ResultsTopic:      config.DefaultResultsTopic,
		ExplanationsTopic: config.DefaultExplanationsTopic,
		ModelType:         config.DefaultModelType,
		FraudThreshold:    config.DefaultFraudThreshold,
		EnableAIReasoning: true,
		AIReasoningMode:   config.DefaultAIReasoningMode,
		FeatureWindow:     config.DefaultFeatureWindow,
		RecentRingSize:    config.DefaultRecentRingSize,
		WorkerQueueSize:   config.DefaultWorkerQueueSize,
		ShutdownDeadline:  config.DefaultShutdownDeadline,
		PersistDeadline:   config.DefaultPersistDeadline,
		ExplainDeadline:   config.DefaultExplainDeadline,
	}
	return engine.New(cfg, slog.Default(), store.NewMemoryStore())
}

func callToolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestHandleScoreTransactionRequiresTransactionID(t *testing.T) {
	h := NewHandlers(testEngine())

	result, err := h.HandleScoreTransaction(context.Background(), callToolRequest(map[string]any{
		"user_id":          "user-1",
		"transaction_type": "payment",
		"amount":           10.0,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleScoreTransactionReturnsDecisionText(t *testing.T) {
	h := NewHandlers(testEngine())

	result, err := h.HandleScoreTransaction(context.Background(), callToolRequest(map[string]any{
		"transaction_id":   "tx-1",
		"user_id":          "user-1",
		"transaction_type": "payment",
		"amount":           900.0,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Contains(t, text.Text, "Risk band: high")
	assert.Contains(t, text.Text, "Is fraud: true")
}

func TestHandleExplainTransactionRequiresRiskBand(t *testing.T) {
	h := NewHandlers(testEngine())

	result, err := h.HandleExplainTransaction(context.Background(), callToolRequest(map[string]any{
		"transaction_id": "tx-1",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleExplainTransactionReturnsNarrative(t *testing.T) {
	h := NewHandlers(testEngine())

	result, err := h.HandleExplainTransaction(context.Background(), callToolRequest(map[string]any{
		"transaction_id": "tx-1",
		"probability":    0.9,
		"risk_band":      "critical",
		"features":       map[string]any{"amount": 900.0},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.NotEmpty(t, text.Text)
}
