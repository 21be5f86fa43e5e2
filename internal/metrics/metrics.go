// Package metrics exposes Prometheus collectors for the HTTP facade and the
// scoring pipeline. Collectors are package-level so any part of the binary
// can record against them without threading a registry through every call.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskengine",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests handled by the facade, by method/path/status bucket.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "riskengine",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	TransactionsScoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskengine",
		Name:      "transactions_scored_total",
		Help:      "Total transactions that completed scoring, by risk band.",
	}, []string{"risk_band"})

	FraudDetectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskengine",
		Name:      "fraud_detected_total",
		Help:      "Total transactions flagged is_fraud=true, by model used.",
	}, []string{"model"})

	ScoringDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "riskengine",
		Name:      "scoring_duration_seconds",
		Help:      "Time spent extracting features and scoring a single transaction.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"model"})

	ExplainerFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskengine",
		Name:      "explainer_fallback_total",
		Help:      "Total times the remote explainer fell back to the template explainer.",
	}, []string{"reason"})

	ExplainerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "riskengine",
		Name:      "explainer_duration_seconds",
		Help:      "Time spent producing an explanation, by explainer kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	QueueDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskengine",
		Name:      "queue_dropped_total",
		Help:      "Total transactions dropped from a partition's in-flight queue due to backpressure.",
	}, []string{"partition"})

	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "riskengine",
		Name:      "queue_depth",
		Help:      "Current number of in-flight transactions per worker partition.",
	}, []string{"partition"})

	PersistFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskengine",
		Name:      "persist_failures_total",
		Help:      "Total failed best-effort persistence attempts.",
	}, []string{"store"})

	PublishDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskengine",
		Name:      "publish_dropped_total",
		Help:      "Total publishes dropped after exhausting the bounded retry, by topic.",
	}, []string{"topic"})

	ActiveWebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskengine",
		Name:      "active_websocket_clients",
		Help:      "Current number of connected /ws/results clients.",
	})

	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskengine",
		Name:      "db_open_connections",
		Help:      "Open connections reported by database/sql.DBStats.",
	})

	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskengine",
		Name:      "db_idle_connections",
		Help:      "Idle connections reported by database/sql.DBStats.",
	})

	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskengine",
		Name:      "db_in_use_connections",
		Help:      "In-use connections reported by database/sql.DBStats.",
	})

	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskengine",
		Name:      "goroutine_count",
		Help:      "Current runtime.NumGoroutine() sample.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TransactionsScoredTotal,
		FraudDetectedTotal,
		ScoringDuration,
		ExplainerFallbackTotal,
		ExplainerDuration,
		QueueDroppedTotal,
		QueueDepth,
		PersistFailuresTotal,
		PublishDroppedTotal,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and the runtime
// goroutine count into Prometheus gauges. Call in a goroutine; it exits
// when ctx is done.
func StartDBStatsCollector(ctx context.Context, sample func() (open, idle, inUse int), interval time.Duration) {
	if sample == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			open, idle, inUse := sample()
			DBOpenConnections.Set(float64(open))
			DBIdleConnections.Set(float64(idle))
			DBInUseConnections.Set(float64(inUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request count and
// latency for every route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // route pattern, not actual path, to avoid cardinality explosion
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for the /metrics route.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
