package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fraudpipe/riskengine/internal/domain"
	"github.com/fraudpipe/riskengine/internal/explain"
	"github.com/fraudpipe/riskengine/internal/scoring"
)

func (s *Server) identityHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "riskengine",
		"description": "real-time transaction fraud risk scoring",
		"version":     "0.1.0",
		"model_type":  s.cfg.ModelType,
	})
}

// healthHandler reports bus/store reachability under the redis_connected
// field name, kept for backward-compatible dashboards even though there is
// no Redis in this design — see SPEC_FULL.md §6.
func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.engine.Health.CheckAll(c.Request.Context())

	busConnected := true
	for _, st := range statuses {
		if st.Name == "bus" && !st.Healthy {
			busConnected = false
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":          status,
		"model_loaded":    s.engine.Scorer != nil,
		"redis_connected": busConnected,
		"checks":          statuses,
	})
}

func (s *Server) statsHandler(c *gin.Context) {
	total, fraud, avg, err := s.engine.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats_unavailable", "message": err.Error()})
		return
	}

	fraudRate := 0.0
	if total > 0 {
		fraudRate = float64(fraud) / float64(total) * 100
	}

	c.JSON(http.StatusOK, gin.H{
		"total_transactions": total,
		"fraud_detected":     fraud,
		"fraud_rate":         fraudRate,
		"avg_risk_score":     avg,
		"model_type":         s.cfg.ModelType,
		"uptime_seconds":     s.engine.Uptime().Seconds(),
	})
}

func (s *Server) recentHandler(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := s.engine.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recent_unavailable", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
		"limit":   limit,
	})
}

func (s *Server) predictHandler(c *gin.Context) {
	var tx domain.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if tx.TransactionID == "" || tx.UserID == "" || tx.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "transaction_id, user_id, and transaction_type are required"})
		return
	}

	decision := s.engine.Predict(tx)
	c.JSON(http.StatusOK, decision)
}

type explainPredictRequest struct {
	TransactionID string             `json:"transaction_id" binding:"required"`
	Probability   float64            `json:"probability"`
	RiskBand      domain.RiskBand    `json:"risk_band" binding:"required"`
	Features      map[string]float64 `json:"features"`
}

func (s *Server) explainHandler(c *gin.Context) {
	var req explainPredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	fv := domain.FeatureVectorFromMap(req.Features)
	expl, err := s.engine.Explain(c.Request.Context(), explain.Request{
		TransactionID: req.TransactionID,
		Probability:   req.Probability,
		Band:          req.RiskBand,
		Features:      req.Features,
		Importance:    scoring.Importances(fv),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "explain_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, expl)
}
