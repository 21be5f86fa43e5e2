// Command server runs the real-time fraud risk scoring engine: it
// subscribes to the transactions topic, scores and explains each event, and
// exposes the results over HTTP.
package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/fraudpipe/riskengine/internal/config"
	"github.com/fraudpipe/riskengine/internal/engine"
	"github.com/fraudpipe/riskengine/internal/logging"
	"github.com/fraudpipe/riskengine/internal/metrics"
	"github.com/fraudpipe/riskengine/internal/server"
	"github.com/fraudpipe/riskengine/internal/store"
	"github.com/fraudpipe/riskengine/internal/traces"
)

// Build info, set by ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger not constructed yet; config failures go straight to stderr
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting riskengine",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
		"env", cfg.Env,
	)

	ctx := context.Background()

	tracerShutdown, err := traces.Init(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Warn("failed to initialize tracing", "error", err)
		tracerShutdown = func(context.Context) error { return nil }
	}
	defer func() { _ = tracerShutdown(context.Background()) }()

	resultStore, db, err := newStore(cfg)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer func() { _ = db.Close() }()
		go metrics.StartDBStatsCollector(ctx, func() (open, idle, inUse int) {
			stats := db.Stats()
			return stats.OpenConnections, stats.Idle, stats.InUse
		}, 15*time.Second)
	}

	e := engine.New(cfg, logger, resultStore)
	go e.Run(ctx)

	srv := server.New(cfg, e)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newStore(cfg *config.Config) (store.Store, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return store.NewMemoryStore(), nil, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, nil, err
	}
	return store.NewPostgresStore(db), db, nil
}
