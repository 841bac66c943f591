package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/upb/llm-router-lab/utils"
)

// Strategy names accepted in ROUTER_STRATEGY.
const (
	StrategyCascade  = "cascade"
	StrategyNN       = "nn"
	StrategyModelMap = "modelmap"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Observability ObservabilityConfig
	Embedding     EmbeddingConfig
	Router        RouterConfig
	Backends      BackendsConfig
	Upload        UploadConfig
	Pipeline      PipelineConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// ObservabilityConfig holds logging and metrics configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
}

// EmbeddingConfig selects the embedding provider used by the nn and modelmap strategies.
type EmbeddingConfig struct {
	Provider string // openai, ollama or tei
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// RouterConfig describes the gateway's router.
type RouterConfig struct {
	Strategy     string
	Name         string
	DatasetPath  string
	InputColumn  string
	ModelColumns []string
	Maximize     bool
	K            int
	ModelDim     int
	// Tiers lists cascade tiers, e.g. "small,medium;large".
	Tiers [][]string
}

// BackendsConfig lists the models the router chooses between, as name=kind:model
// entries.
type BackendsConfig struct {
	Entries       string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaBaseURL string
	Timeout       time.Duration
}

// UploadConfig points at the evaluation service. Uploads are disabled without a URL.
type UploadConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// PipelineConfig holds generation pipeline options
type PipelineConfig struct {
	BatchGeneration bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	tiers, err := parseTiers(getEnv("ROUTER_TIERS", ""))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Embedding: EmbeddingConfig{
			Provider: getEnv("EMBEDDING_PROVIDER", "openai"),
			Model:    getEnv("EMBEDDING_MODEL", ""),
			BaseURL:  getEnv("EMBEDDING_BASE_URL", ""),
			APIKey:   getEnv("EMBEDDING_API_KEY", getEnv("OPENAI_API_KEY", "")),
			Timeout:  getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
		},
		Router: RouterConfig{
			Strategy:     strings.ToLower(getEnv("ROUTER_STRATEGY", StrategyCascade)),
			Name:         getEnv("ROUTER_NAME", ""),
			DatasetPath:  getEnv("ROUTER_DATASET", ""),
			InputColumn:  getEnv("ROUTER_INPUT_COLUMN", "prompt"),
			ModelColumns: getEnvAsList("ROUTER_MODEL_COLUMNS", nil),
			Maximize:     getEnvAsBool("ROUTER_MAXIMIZE", false),
			K:            getEnvAsInt("ROUTER_K", 10),
			ModelDim:     getEnvAsInt("ROUTER_MODEL_DIM", 384),
			Tiers:        tiers,
		},
		Backends: BackendsConfig{
			Entries:       getEnv("BACKENDS", "echo=echo"),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", ""),
			Timeout:       getEnvAsDuration("BACKEND_TIMEOUT", 60*time.Second),
		},
		Upload: UploadConfig{
			BaseURL: getEnv("UPLOAD_URL", ""),
			APIKey:  getEnv("UPLOAD_API_KEY", ""),
			Timeout: getEnvAsDuration("UPLOAD_TIMEOUT", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			BatchGeneration: getEnvAsBool("BATCH_GENERATION", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Router.Strategy {
	case StrategyCascade:
	case StrategyNN, StrategyModelMap:
		if c.Router.DatasetPath == "" {
			return fmt.Errorf("router strategy %s requires ROUTER_DATASET", c.Router.Strategy)
		}
		if err := utils.ValidateOneOf(c.Embedding.Provider, "embedding provider", []string{"openai", "ollama", "tei"}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown router strategy %q", c.Router.Strategy)
	}

	if c.Router.K < 0 {
		return fmt.Errorf("router k must not be negative")
	}
	if c.Router.ModelDim < 0 {
		return fmt.Errorf("router model dimension must not be negative")
	}
	if strings.TrimSpace(c.Backends.Entries) == "" {
		return fmt.Errorf("at least one backend is required")
	}
	if c.Upload.BaseURL != "" && c.Upload.APIKey == "" {
		return fmt.Errorf("upload API key is required when UPLOAD_URL is set")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}
	if c.Observability.LogFormat != "" {
		if err := utils.ValidateOneOf(c.Observability.LogFormat, "log format", []string{"json", "console"}); err != nil {
			return err
		}
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// UploadEnabled reports whether generation results can be forwarded.
func (c *Config) UploadEnabled() bool {
	return c.Upload.BaseURL != ""
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// parseTiers reads "a,b;c" as [[a b] [c]].
func parseTiers(value string) ([][]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var tiers [][]string
	for _, group := range strings.Split(value, ";") {
		tier := splitList(group)
		if len(tier) == 0 {
			return nil, fmt.Errorf("empty cascade tier in %q", value)
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if list := splitList(os.Getenv(key)); len(list) > 0 {
		return list
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
