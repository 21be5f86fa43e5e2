// Package server exposes the risk engine over HTTP: service identity,
// health/stats, ad-hoc predict/explain, the recent-results feed, a
// WebSocket upgrade onto the realtime hub, and Prometheus exposition.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fraudpipe/riskengine/internal/config"
	"github.com/fraudpipe/riskengine/internal/engine"
	"github.com/fraudpipe/riskengine/internal/idgen"
	"github.com/fraudpipe/riskengine/internal/logging"
	"github.com/fraudpipe/riskengine/internal/metrics"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Server wraps the HTTP facade around a running Engine.
type Server struct {
	cfg    *config.Config
	engine *engine.Engine
	logger *slog.Logger

	router  *gin.Engine
	httpSrv *http.Server
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger overrides the logger (used by tests).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New builds a Server around e. e.Run must be started separately (by the
// caller, typically in its own goroutine) — the HTTP facade and the
// streaming pipeline have independent lifecycles.
func New(cfg *config.Config, e *engine.Engine, opts ...Option) *Server {
	s := &Server{cfg: cfg, engine: e, logger: e.Logger}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Router exposes the underlying gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "an unexpected error occurred",
		})
	}))

	s.router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodySize)
		c.Next()
	})

	s.router.Use(metrics.Middleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.New()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed", "method", c.Request.Method, "path", path, "status", status, "latency_ms", latency.Milliseconds())
		case status >= 400:
			logger.Warn("request completed", "method", c.Request.Method, "path", path, "status", status, "latency_ms", latency.Milliseconds())
		default:
			logger.Info("request completed", "method", c.Request.Method, "path", path, "status", status, "latency_ms", latency.Milliseconds())
		}
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.identityHandler)
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/stats", s.statsHandler)
	s.router.GET("/recent", s.recentHandler)
	s.router.POST("/predict", s.predictHandler)
	s.router.POST("/explain", s.explainHandler)
	s.router.GET("/ws/results", func(c *gin.Context) {
		s.engine.Hub.HandleWebSocket(c.Writer, c.Request)
	})
	s.router.GET("/metrics", metrics.Handler())
}

// Run starts the HTTP server and blocks until ctx is cancelled or an
// interrupt/terminate signal arrives, then drains connections within
// cfg.ShutdownDeadline.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       s.cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.HTTPWriteTimeout,
		IdleTimeout:       s.cfg.HTTPIdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the HTTP server within cfg.ShutdownDeadline.
func (s *Server) Shutdown() error {
	s.logger.Info("starting graceful shutdown")

	deadline := s.cfg.ShutdownDeadline
	if deadline <= 0 {
		deadline = config.DefaultShutdownDeadline
	}
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}
