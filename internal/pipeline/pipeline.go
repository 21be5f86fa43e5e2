// Package pipeline wires the scoring components into the real-time flow:
// subscribe, extract features against history taken before the event is
// recorded, score, conditionally explain, append to the recent ring,
// best-effort persist, and publish/fan out the enriched result. Transactions
// are partitioned by a stable hash of user_id across a fixed pool of
// workers, so one user's events are always processed in arrival order while
// unrelated users score concurrently.
package pipeline

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/fraudpipe/riskengine/internal/config"
	"github.com/fraudpipe/riskengine/internal/domain"
	"github.com/fraudpipe/riskengine/internal/explain"
	"github.com/fraudpipe/riskengine/internal/features"
	"github.com/fraudpipe/riskengine/internal/history"
	"github.com/fraudpipe/riskengine/internal/metrics"
	"github.com/fraudpipe/riskengine/internal/realtime"
	"github.com/fraudpipe/riskengine/internal/retry"
	"github.com/fraudpipe/riskengine/internal/ring"
	"github.com/fraudpipe/riskengine/internal/scoring"
	"github.com/fraudpipe/riskengine/internal/store"
	"github.com/fraudpipe/riskengine/internal/traces"
)

// Bus is the minimal publish/subscribe surface the pipeline needs. Matches
// internal/bus.Bus.
type Bus interface {
	Subscribe(topic string) (<-chan []byte, func())
	Publish(topic string, payload []byte) error
}

// When config.WorkerPoolSize is left at its zero value, New falls back to
// one worker per available core (runtime.GOMAXPROCS).

// persistQueueSize bounds the channel feeding the dedicated persistence
// writer, decoupling scoring latency from database latency per SPEC_FULL
// §4.5/§9. A full queue drops the write rather than blocking a worker.
const persistQueueSize = 512

// Pipeline is the wired, running fraud-scoring engine.
type Pipeline struct {
	cfg       *config.Config
	bus       Bus
	extractor *features.Extractor
	scorer    *scoring.Scorer
	explainer explain.Explainer
	ring      *ring.Ring
	store     store.Store
	hub       *realtime.Hub
	logger    *slog.Logger

	partitions []chan domain.Transaction
	persistCh  chan domain.EnrichedResult
	wg         sync.WaitGroup
	persistWg  sync.WaitGroup
}

// New wires a Pipeline from its components. hub may be nil to disable
// WebSocket fan-out; explainer may be nil to disable explanation entirely.
func New(
	cfg *config.Config,
	historyStore *history.Store,
	scorer *scoring.Scorer,
	explainer explain.Explainer,
	recentRing *ring.Ring,
	resultStore store.Store,
	transactionBus Bus,
	hub *realtime.Hub,
	logger *slog.Logger,
) *Pipeline {
	n := cfg.WorkerPoolSize
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}

	queueSize := cfg.WorkerQueueSize
	if queueSize <= 0 {
		queueSize = config.DefaultWorkerQueueSize
	}

	partitions := make([]chan domain.Transaction, n)
	for i := range partitions {
		partitions[i] = make(chan domain.Transaction, queueSize)
	}

	return &Pipeline{
		cfg:        cfg,
		bus:        transactionBus,
		extractor:  features.New(historyStore),
		scorer:     scorer,
		explainer:  explainer,
		ring:       recentRing,
		store:      resultStore,
		hub:        hub,
		logger:     logger,
		partitions: partitions,
		persistCh:  make(chan domain.EnrichedResult, persistQueueSize),
	}
}

// Run subscribes to the configured transactions topic and starts one worker
// per partition. It blocks until ctx is cancelled, then drains in-flight
// work within cfg.ShutdownDeadline before returning.
func (p *Pipeline) Run(ctx context.Context) {
	raw, cancelSub := p.bus.Subscribe(p.cfg.TransactionsTopic)
	defer cancelSub()

	for i, ch := range p.partitions {
		p.wg.Add(1)
		go p.worker(ctx, i, ch)
	}

	if p.store != nil {
		p.persistWg.Add(1)
		go p.persistWriter(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return
		case payload, ok := <-raw:
			if !ok {
				p.shutdown()
				return
			}
			var tx domain.Transaction
			if err := json.Unmarshal(payload, &tx); err != nil {
				p.logger.Warn("discarding malformed transaction payload", "error", err)
				continue
			}
			tx.Normalize()
			p.submit(tx)
		}
	}
}

// submit routes tx to its partition queue. A full queue drops the oldest
// queued transaction for that partition rather than blocking the ingest
// loop — a burst on one user's partition never stalls every other user.
func (p *Pipeline) submit(tx domain.Transaction) {
	idx := partitionFor(tx.UserID, len(p.partitions))
	ch := p.partitions[idx]

	select {
	case ch <- tx:
		return
	default:
	}

	select {
	case <-ch:
		metrics.QueueDroppedTotal.WithLabelValues(partitionLabel(idx)).Inc()
	default:
	}

	select {
	case ch <- tx:
	default:
		metrics.QueueDroppedTotal.WithLabelValues(partitionLabel(idx)).Inc()
	}
}

func (p *Pipeline) shutdown() {
	deadline := p.cfg.ShutdownDeadline
	if deadline <= 0 {
		deadline = config.DefaultShutdownDeadline
	}

	for _, ch := range p.partitions {
		close(ch)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("pipeline drained cleanly")
	case <-time.After(deadline):
		p.logger.Warn("pipeline shutdown deadline exceeded, workers still draining")
		// Workers still running may yet enqueue writes, so persistCh stays
		// open and the writer is abandoned along with them.
		return
	}

	if p.store == nil {
		return
	}
	close(p.persistCh)

	persistDone := make(chan struct{})
	go func() {
		p.persistWg.Wait()
		close(persistDone)
	}()

	select {
	case <-persistDone:
		p.logger.Info("persistence writer drained cleanly")
	case <-time.After(deadline):
		p.logger.Warn("persistence writer shutdown deadline exceeded, pending writes abandoned")
	}
}

// persistWriter is the dedicated writer the pipeline hands finished results
// to, so database latency never blocks the scoring workers. It persists
// against context.Background() rather than the run context, so queued
// writes still get their full deadline while draining during shutdown.
func (p *Pipeline) persistWriter(_ context.Context) {
	defer p.persistWg.Done()
	for result := range p.persistCh {
		p.persistNow(context.Background(), result)
	}
}

func (p *Pipeline) worker(ctx context.Context, id int, ch chan domain.Transaction) {
	defer p.wg.Done()
	label := partitionLabel(id)

	for tx := range ch {
		metrics.QueueDepth.WithLabelValues(label).Set(float64(len(ch)))
		p.process(ctx, tx)
	}
	metrics.QueueDepth.WithLabelValues(label).Set(0)
}

// process runs one transaction through feature extraction, scoring,
// optional explanation, ring append, persistence, and publication.
func (p *Pipeline) process(ctx context.Context, tx domain.Transaction) {
	start := time.Now()

	extractCtx, extractSpan := traces.StartSpan(ctx, traces.SpanExtractFeatures, traces.TransactionID(tx.TransactionID))
	fv := p.extractor.Extract(tx)
	extractSpan.End()

	_, scoreSpan := traces.StartSpan(extractCtx, traces.SpanScore, traces.TransactionID(tx.TransactionID))
	score := p.scorer.Score(fv)
	scoreSpan.End()
	metrics.ScoringDuration.WithLabelValues(score.ModelUsed).Observe(time.Since(start).Seconds())

	decision := domain.FraudDecision{
		Probability: score.Probability,
		Band:        domain.RiskBandFor(score.Probability),
		IsFraud:     score.Probability >= p.cfg.FraudThreshold,
		ModelUsed:   score.ModelUsed,
		Features:    fv,
	}

	var expl *domain.Explanation
	if decision.IsFraud && p.explainer != nil {
		expl = p.explain(ctx, tx, decision, fv)
	}

	result := domain.NewEnrichedResult(tx, decision, expl)

	p.ring.Push(result)
	p.persist(result)
	p.publish(ctx, result, expl)

	if p.hub != nil {
		p.hub.Broadcast(result)
	}

	metrics.TransactionsScoredTotal.WithLabelValues(string(decision.Band)).Inc()
	if decision.IsFraud {
		metrics.FraudDetectedTotal.WithLabelValues(decision.ModelUsed).Inc()
	}
}

func (p *Pipeline) explain(ctx context.Context, tx domain.Transaction, decision domain.FraudDecision, fv domain.FeatureVector) *domain.Explanation {
	deadline := p.cfg.ExplainDeadline
	if deadline <= 0 {
		deadline = config.DefaultExplainDeadline
	}
	explainCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	_, span := traces.StartSpan(explainCtx, traces.SpanExplain, traces.TransactionID(tx.TransactionID))
	defer span.End()

	req := explain.Request{
		TransactionID: tx.TransactionID,
		Probability:   decision.Probability,
		Band:          decision.Band,
		Features:      fv.ToMap(),
		Importance:    scoring.Importances(fv),
	}

	result, err := p.explainer.Explain(explainCtx, req)
	if err != nil {
		p.logger.Warn("explanation failed", "transaction_id", tx.TransactionID, "error", err)
		return nil
	}
	return &result
}

// persist hands result to the dedicated persistence writer without
// blocking the scoring worker. A full queue drops the write — persistence
// is best-effort, and a slow database must never back up scoring.
func (p *Pipeline) persist(result domain.EnrichedResult) {
	if p.store == nil {
		return
	}
	select {
	case p.persistCh <- result:
	default:
		p.logger.Warn("persist queue full, dropping write", "transaction_id", result.TransactionID)
		metrics.PersistFailuresTotal.WithLabelValues("queue_full").Inc()
	}
}

// persistNow performs the actual bounded-deadline write, run only on the
// persistence writer goroutine.
func (p *Pipeline) persistNow(ctx context.Context, result domain.EnrichedResult) {
	deadline := p.cfg.PersistDeadline
	if deadline <= 0 {
		deadline = config.DefaultPersistDeadline
	}
	persistCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	_, span := traces.StartSpan(persistCtx, traces.SpanPersist, traces.TransactionID(result.TransactionID))
	defer span.End()

	if err := p.store.Save(persistCtx, result); err != nil {
		p.logger.Warn("persist failed", "transaction_id", result.TransactionID, "error", err)
		metrics.PersistFailuresTotal.WithLabelValues("save").Inc()
	}
}

func (p *Pipeline) publish(ctx context.Context, result domain.EnrichedResult, expl *domain.Explanation) {
	_, span := traces.StartSpan(ctx, traces.SpanPublish, traces.TransactionID(result.TransactionID), traces.RiskBand(string(result.RiskLevel)))
	defer span.End()

	payload, err := json.Marshal(result)
	if err != nil {
		p.logger.Error("failed to marshal result for publish", "transaction_id", result.TransactionID, "error", err)
		return
	}
	p.publishWithRetry(ctx, p.cfg.ResultsTopic, result.TransactionID, payload)

	if expl == nil {
		return
	}
	explPayload, err := json.Marshal(struct {
		TransactionID string `json:"transaction_id"`
		domain.Explanation
	}{result.TransactionID, *expl})
	if err != nil {
		p.logger.Error("failed to marshal explanation for publish", "transaction_id", result.TransactionID, "error", err)
		return
	}
	p.publishWithRetry(ctx, p.cfg.ExplanationsTopic, result.TransactionID, explPayload)
}

// publishWithRetry retries a transiently-congested publish with exponential
// backoff up to a small bound, then drops and logs, per SPEC_FULL §7's
// publish-error row. A topic with no subscribers yet is not an error and
// never retries.
func (p *Pipeline) publishWithRetry(ctx context.Context, topic, transactionID string, payload []byte) {
	attempts := p.cfg.PublishRetryAttempts
	if attempts <= 0 {
		attempts = config.DefaultPublishRetryAttempts
	}
	baseDelay := p.cfg.PublishRetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = config.DefaultPublishRetryBaseDelay
	}

	err := retry.Do(ctx, attempts, baseDelay, func() error {
		return p.bus.Publish(topic, payload)
	})
	if err != nil {
		p.logger.Warn("publish exhausted retries, dropping message", "topic", topic, "transaction_id", transactionID, "error", err)
		metrics.PublishDroppedTotal.WithLabelValues(topic).Inc()
	}
}

// partitionFor hashes userID into [0, n) with FNV-1a, giving a stable
// assignment so the same user always lands on the same worker and
// per-user ordering is preserved.
func partitionFor(userID string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(n))
}

func partitionLabel(idx int) string {
	return "p" + strconv.Itoa(idx)
}
