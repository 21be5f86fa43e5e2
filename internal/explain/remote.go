package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fraudpipe/riskengine/internal/circuitbreaker"
	"github.com/fraudpipe/riskengine/internal/domain"
	"github.com/fraudpipe/riskengine/internal/metrics"
)

const remoteBreakerKey = "remote_explainer"

// Remote calls an external text-generation endpoint to produce the
// narrative, behind a circuit breaker, falling back to the template
// Explainer on any failure: non-2xx, timeout, decode error, or an open
// circuit. Failures are logged once and never surfaced to the caller.
type Remote struct {
	url      string
	model    string
	client   *http.Client
	breaker  *circuitbreaker.Breaker
	fallback *Template
	logger   *slog.Logger
}

// NewRemote creates a Remote explainer. deadline bounds each call.
func NewRemote(url, model string, deadline time.Duration, logger *slog.Logger) *Remote {
	return &Remote{
		url:      url,
		model:    model,
		client:   &http.Client{Timeout: deadline},
		breaker:  circuitbreaker.New(5, 30*time.Second),
		fallback: NewTemplate(),
		logger:   logger,
	}
}

type remoteRequest struct {
	Model       string             `json:"model"`
	Probability float64            `json:"probability"`
	RiskLevel   string             `json:"risk_level"`
	Features    map[string]float64 `json:"features"`
}

type remoteResponse struct {
	Narrative       string   `json:"narrative"`
	RiskFactors     []string `json:"risk_factors"`
	Recommendations []string `json:"recommendations"`
}

func (r *Remote) Explain(ctx context.Context, req Request) (domain.Explanation, error) {
	start := time.Now()

	if !r.breaker.Allow(remoteBreakerKey) {
		metrics.ExplainerFallbackTotal.WithLabelValues("circuit_open").Inc()
		expl, err := r.fallback.Explain(ctx, req)
		metrics.ExplainerDuration.WithLabelValues("template").Observe(time.Since(start).Seconds())
		return expl, err
	}

	expl, err := r.callRemote(ctx, req)
	if err != nil {
		r.breaker.RecordFailure(remoteBreakerKey)
		r.logger.Warn("remote explainer failed, falling back to template",
			"transaction_id", req.TransactionID, "error", err)
		metrics.ExplainerFallbackTotal.WithLabelValues("remote_error").Inc()
		fallbackExpl, fallbackErr := r.fallback.Explain(ctx, req)
		metrics.ExplainerDuration.WithLabelValues("template").Observe(time.Since(start).Seconds())
		return fallbackExpl, fallbackErr
	}

	r.breaker.RecordSuccess(remoteBreakerKey)
	metrics.ExplainerDuration.WithLabelValues("remote").Observe(time.Since(start).Seconds())
	return expl, nil
}

func (r *Remote) callRemote(ctx context.Context, req Request) (domain.Explanation, error) {
	body, err := json.Marshal(remoteRequest{
		Model:       r.model,
		Probability: req.Probability,
		RiskLevel:   string(req.Band),
		Features:    req.Features,
	})
	if err != nil {
		return domain.Explanation{}, fmt.Errorf("encode remote explainer request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return domain.Explanation{}, fmt.Errorf("build remote explainer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return domain.Explanation{}, fmt.Errorf("remote explainer call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Explanation{}, fmt.Errorf("remote explainer returned status %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Explanation{}, fmt.Errorf("decode remote explainer response: %w", err)
	}

	return domain.Explanation{
		Narrative:       out.Narrative,
		RiskFactors:     out.RiskFactors,
		Recommendations: out.Recommendations,
	}, nil
}
