// Command mcp exposes the risk engine's scoring and explanation tools over
// the Model Context Protocol, so agentic callers can invoke them without
// going through HTTP.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fraudpipe/riskengine/internal/config"
	"github.com/fraudpipe/riskengine/internal/engine"
	"github.com/fraudpipe/riskengine/internal/logging"
	"github.com/fraudpipe/riskengine/internal/mcpserver"
	"github.com/fraudpipe/riskengine/internal/store"
)

func main() {
	logger := logging.New("error", "text") // stdout is the MCP transport; keep it quiet

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	resultStore, err := newStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize store: %v\n", err)
		os.Exit(1)
	}

	e := engine.New(cfg, logger, resultStore)
	go e.Run(context.Background())

	s := mcpserver.NewMCPServer(e)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func newStore(cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		return store.NewMemoryStore(), nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return store.NewPostgresStore(db), nil
}
