// Package engine wires every collaborator — history, features, scoring,
// explanation, ring, store, bus, realtime hub, and pipeline — into the one
// object the HTTP facade and the MCP surface both sit on top of.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fraudpipe/riskengine/internal/bus"
	"github.com/fraudpipe/riskengine/internal/config"
	"github.com/fraudpipe/riskengine/internal/domain"
	"github.com/fraudpipe/riskengine/internal/explain"
	"github.com/fraudpipe/riskengine/internal/features"
	"github.com/fraudpipe/riskengine/internal/health"
	"github.com/fraudpipe/riskengine/internal/history"
	"github.com/fraudpipe/riskengine/internal/pipeline"
	"github.com/fraudpipe/riskengine/internal/realtime"
	"github.com/fraudpipe/riskengine/internal/ring"
	"github.com/fraudpipe/riskengine/internal/scoring"
	"github.com/fraudpipe/riskengine/internal/store"
)

// Engine is the running fraud risk scoring service: one value holding every
// collaborator, rather than package-level globals, so multiple instances
// (as in tests) never share state.
type Engine struct {
	Config *config.Config
	Logger *slog.Logger

	History   *history.Store
	Extractor *features.Extractor
	Scorer    *scoring.Scorer
	Explainer explain.Explainer
	Ring      *ring.Ring
	Store     store.Store
	Bus       *bus.Bus
	Hub       *realtime.Hub
	Pipeline  *pipeline.Pipeline
	Sweeper   *history.Sweeper
	Health    *health.Registry

	startedAt time.Time
}

// New constructs an Engine from configuration. resultStore is injected by
// the caller (cmd/server decides in-memory vs. Postgres based on
// cfg.DatabaseURL); passing nil disables persistence entirely.
func New(cfg *config.Config, logger *slog.Logger, resultStore store.Store) *Engine {
	historyStore := history.New(cfg.FeatureWindow)
	extractor := features.New(historyStore)
	scorer := scoring.New(cfg.ModelType)
	explainer := newExplainer(cfg, logger)
	recentRing := ring.New(cfg.RecentRingSize)
	transactionBus := bus.New(cfg.WorkerQueueSize)
	hub := realtime.NewHub(logger)
	sweeper := history.NewSweeper(historyStore, logger, 5*time.Minute)

	p := pipeline.New(cfg, historyStore, scorer, explainer, recentRing, resultStore, transactionBus, hub, logger)

	healthRegistry := health.NewRegistry()
	healthRegistry.Register("bus", func(context.Context) health.Status {
		return health.Status{Name: "bus", Healthy: true}
	})
	if resultStore != nil {
		healthRegistry.Register("store", func(ctx context.Context) health.Status {
			if _, err := resultStore.Stats(ctx); err != nil {
				return health.Status{Name: "store", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "store", Healthy: true}
		})
	}

	return &Engine{
		Config:    cfg,
		Logger:    logger,
		History:   historyStore,
		Extractor: extractor,
		Scorer:    scorer,
		Explainer: explainer,
		Ring:      recentRing,
		Store:     resultStore,
		Bus:       transactionBus,
		Hub:       hub,
		Pipeline:  p,
		Sweeper:   sweeper,
		Health:    healthRegistry,
		startedAt: time.Now(),
	}
}

func newExplainer(cfg *config.Config, logger *slog.Logger) explain.Explainer {
	if !cfg.EnableAIReasoning {
		return nil
	}
	template := explain.NewTemplate()
	if cfg.AIReasoningMode != "remote" {
		return template
	}
	return explain.NewRemote(cfg.RemoteExplainerURL, cfg.RemoteExplainerModel, cfg.ExplainDeadline, logger)
}

// Run starts the pipeline, the realtime hub, and the history sweeper. It
// blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	go e.Hub.Run(ctx)
	go e.Sweeper.Start(ctx)
	e.Pipeline.Run(ctx)
}

// Predict scores a transaction outside the normal subscribe/publish flow,
// the shared entry point behind both POST /predict and the MCP
// score_transaction tool. It uses the same extractor and history store as
// the streaming pipeline, so an ad-hoc prediction still reflects (and
// contributes to) the caller's real transaction history.
func (e *Engine) Predict(tx domain.Transaction) domain.FraudDecision {
	tx.Normalize()
	fv := e.Extractor.Extract(tx)
	score := e.Scorer.Score(fv)
	return domain.FraudDecision{
		Probability: score.Probability,
		Band:        domain.RiskBandFor(score.Probability),
		IsFraud:     score.Probability >= e.Config.FraudThreshold,
		ModelUsed:   score.ModelUsed,
		Features:    fv,
	}
}

// Explain invokes the configured Explainer directly, the shared entry point
// behind both POST /explain and the MCP explain_transaction tool.
func (e *Engine) Explain(ctx context.Context, req explain.Request) (domain.Explanation, error) {
	if e.Explainer == nil {
		return domain.Explanation{}, fmt.Errorf("engine: explanation is disabled (ENABLE_AI_REASONING=false)")
	}
	return e.Explainer.Explain(ctx, req)
}

// Stats reports aggregate counters, preferring the persistent Store when
// configured and falling back to the in-process Ring otherwise.
func (e *Engine) Stats(ctx context.Context) (total int, fraud int, avgScore float64, err error) {
	if e.Store != nil {
		s, statErr := e.Store.Stats(ctx)
		if statErr == nil {
			return s.TotalTransactions, s.FraudDetected, s.AvgRiskScore, nil
		}
		e.Logger.Warn("store stats unavailable, falling back to recent ring", "error", statErr)
	}
	s := e.Ring.Stats()
	return s.Total, s.Fraud, s.AvgScore, nil
}

// Recent returns the most recent enriched results, preferring the
// persistent Store when configured.
func (e *Engine) Recent(ctx context.Context, limit int) ([]domain.EnrichedResult, error) {
	if e.Store != nil {
		results, err := e.Store.Recent(ctx, limit)
		if err == nil {
			return results, nil
		}
		e.Logger.Warn("store.Recent failed, falling back to in-memory ring", "error", err)
	}
	return e.Ring.Recent(limit), nil
}

// Uptime reports how long the Engine has been running.
func (e *Engine) Uptime() time.Duration {
	return time.Since(e.startedAt)
}
