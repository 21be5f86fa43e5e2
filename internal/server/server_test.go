package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudpipe/riskengine/internal/config"
	"github.com/fraudpipe/riskengine/internal/engine"
	"github.com/fraudpipe/riskengine/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
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
		HTTPReadTimeout:   config.DefaultHTTPReadTimeout,
		HTTPWriteTimeout:  config.DefaultHTTPWriteTimeout,
		HTTPIdleTimeout:   config.DefaultHTTPIdleTimeout,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig()
	e := engine.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), store.NewMemoryStore())
	return New(cfg, e)
}

func TestIdentityEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpointHealthyWithoutStoreFailures(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Contains(t, resp, "redis_connected")
	assert.Contains(t, resp, "model_loaded")
}

func TestStatsEndpointEmpty(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["total_transactions"])
	assert.Equal(t, float64(0), resp["fraud_rate"])
}

func TestRecentEndpointRespectsLimit(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/recent?limit=5", nil)
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(5), resp["limit"])
	assert.Equal(t, float64(0), resp["total"])
}

func TestPredictEndpointScoresHighAmountAsFraud(t *testing.T) {
	s := newTestServer(t)

	body, err := json.Marshal(map[string]any{
		"transaction_id":   "tx-1",
		"user_id":          "user-1",
		"amount":           900,
		"transaction_type": "payment",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["is_fraud"])
	assert.Equal(t, "high", resp["risk_level"])
}

func TestPredictEndpointRejectsMissingFields(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExplainEndpointUsesTemplateExplainer(t *testing.T) {
	s := newTestServer(t)

	body, err := json.Marshal(map[string]any{
		"transaction_id": "tx-1",
		"probability":    0.9,
		"risk_band":      "critical",
		"features":       map[string]float64{"amount": 900},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/explain", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["ai_explanation"])
}

func TestRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	want := map[string]bool{
		"GET:/":           false,
		"GET:/health":     false,
		"GET:/stats":      false,
		"GET:/recent":     false,
		"POST:/predict":   false,
		"POST:/explain":   false,
		"GET:/ws/results": false,
		"GET:/metrics":    false,
	}

	for _, r := range routes {
		key := r.Method + ":" + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}

	for route, found := range want {
		assert.True(t, found, "expected route %s to be registered", route)
	}
}
