// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port             string
	Env              string // "development", "staging", "production"
	LogLevel         string
	LogFormat        string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Database (optional, uses in-memory store if not set)
	DatabaseURL string

	// Pub/sub topic names
	TransactionsTopic string
	ResultsTopic      string
	ExplanationsTopic string

	// Scoring
	ModelType      string // "pretrained_lr"
	ModelPath      string
	FraudThreshold float64

	// Explanation
	EnableAIReasoning    bool
	AIReasoningMode      string // "template" or "remote"
	RemoteExplainerURL   string
	RemoteExplainerModel string

	// History store
	FeatureWindow  int
	RecentRingSize int

	// Pipeline
	WorkerPoolSize        int
	WorkerQueueSize       int
	ShutdownDeadline      time.Duration
	PersistDeadline       time.Duration
	ExplainDeadline       time.Duration
	PublishRetryAttempts  int
	PublishRetryBaseDelay time.Duration

	// Observability
	OTLPEndpoint string
}

// Defaults mirror SPEC_FULL.md §6/§10, not the values carried in the
// upstream python reference implementation (see DESIGN.md Open Questions).
const (
	DefaultPort      = "8080"
	DefaultEnv       = "development"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultTransactionsTopic = "transactions"
	DefaultResultsTopic      = "fraud_results"
	DefaultExplanationsTopic = "fraud_explanations"

	DefaultModelType      = "pretrained_lr"
	DefaultFraudThreshold = 0.35

	DefaultAIReasoningMode = "template"

	DefaultFeatureWindow  = 1000
	DefaultRecentRingSize = 500

	DefaultWorkerQueueSize  = 256
	DefaultShutdownDeadline = 5 * time.Second
	DefaultPersistDeadline  = 2 * time.Second
	DefaultExplainDeadline  = 30 * time.Second

	DefaultPublishRetryAttempts  = 3
	DefaultPublishRetryBaseDelay = 25 * time.Millisecond

	DefaultHTTPReadTimeout  = 10 * time.Second
	DefaultHTTPWriteTimeout = 15 * time.Second
	DefaultHTTPIdleTimeout  = 60 * time.Second
)

// Load reads configuration from environment variables. It loads a .env file
// if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", DefaultPort),
		Env:       getEnv("ENV", DefaultEnv),
		LogLevel:  getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat: getEnv("LOG_FORMAT", DefaultLogFormat),

		HTTPReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", DefaultHTTPReadTimeout),
		HTTPWriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", DefaultHTTPWriteTimeout),
		HTTPIdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT", DefaultHTTPIdleTimeout),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		TransactionsTopic: getEnv("BUS_TRANSACTIONS_TOPIC", DefaultTransactionsTopic),
		ResultsTopic:      getEnv("BUS_RESULTS_TOPIC", DefaultResultsTopic),
		ExplanationsTopic: getEnv("BUS_EXPLANATIONS_TOPIC", DefaultExplanationsTopic),

		ModelType:      getEnv("MODEL_TYPE", DefaultModelType),
		ModelPath:      os.Getenv("MODEL_PATH"),
		FraudThreshold: getEnvFloat("FRAUD_THRESHOLD", DefaultFraudThreshold),

		EnableAIReasoning:    getEnvBool("ENABLE_AI_REASONING", true),
		AIReasoningMode:      getEnv("AI_REASONING_MODE", DefaultAIReasoningMode),
		RemoteExplainerURL:   os.Getenv("REMOTE_EXPLAINER_URL"),
		RemoteExplainerModel: os.Getenv("REMOTE_EXPLAINER_MODEL"),

		FeatureWindow:  int(getEnvInt64("FEATURE_WINDOW", int64(DefaultFeatureWindow))),
		RecentRingSize: int(getEnvInt64("RECENT_RING_SIZE", int64(DefaultRecentRingSize))),

		WorkerPoolSize:   int(getEnvInt64("WORKER_POOL_SIZE", 0)),
		WorkerQueueSize:  int(getEnvInt64("WORKER_QUEUE_SIZE", int64(DefaultWorkerQueueSize))),
		ShutdownDeadline: getEnvDuration("SHUTDOWN_DEADLINE", DefaultShutdownDeadline),
		PersistDeadline:  getEnvDuration("PERSIST_DEADLINE", DefaultPersistDeadline),
		ExplainDeadline:  getEnvDuration("EXPLAIN_DEADLINE", DefaultExplainDeadline),

		PublishRetryAttempts:  int(getEnvInt64("PUBLISH_RETRY_ATTEMPTS", int64(DefaultPublishRetryAttempts))),
		PublishRetryBaseDelay: getEnvDuration("PUBLISH_RETRY_BASE_DELAY", DefaultPublishRetryBaseDelay),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are within sane ranges.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port)
	}

	if c.FraudThreshold < 0 || c.FraudThreshold > 1 {
		return fmt.Errorf("FRAUD_THRESHOLD must be in [0,1], got %v", c.FraudThreshold)
	}

	if c.FeatureWindow < 1 {
		return fmt.Errorf("FEATURE_WINDOW must be >= 1, got %d", c.FeatureWindow)
	}

	if c.RecentRingSize < 1 {
		return fmt.Errorf("RECENT_RING_SIZE must be >= 1, got %d", c.RecentRingSize)
	}

	if c.AIReasoningMode != "template" && c.AIReasoningMode != "remote" {
		return fmt.Errorf("AI_REASONING_MODE must be 'template' or 'remote', got %q", c.AIReasoningMode)
	}

	if c.AIReasoningMode == "remote" && c.RemoteExplainerURL == "" {
		return fmt.Errorf("REMOTE_EXPLAINER_URL is required when AI_REASONING_MODE=remote")
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
