package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read when no env file is given explicitly.
const DefaultEnvFile = ".env"

// Config represents the complete application configuration
type Config struct {
	Environment   string
	Server        ServerConfig
	OpenRouter    OpenRouterConfig
	Routing       RoutingConfig
	Observability ObservabilityConfig
}

// ServerConfig holds the optional HTTP transport configuration
type ServerConfig struct {
	HTTPAddr        string // empty disables the HTTP transport
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AuthToken       string // static bearer token; empty disables auth
}

// OpenRouterConfig holds the upstream API configuration
type OpenRouterConfig struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	HTTPReferer string
	AppTitle    string
}

// RoutingConfig points at the task routing table
type RoutingConfig struct {
	Path string
}

// ObservabilityConfig holds logging and metrics configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
}

// New creates a new Config from the environment. Variables already set in the
// process environment win over the ones in envFile; a missing envFile is not an error.
func New(ctx context.Context, envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			HTTPAddr:        getEnv("SERVER_HTTP_ADDR", ""),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AuthToken:       getEnv("SERVER_AUTH_TOKEN", ""),
		},
		OpenRouter: OpenRouterConfig{
			APIKey:      getEnv("OPENROUTER_API_KEY", ""),
			BaseURL:     getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Timeout:     getEnvAsDuration("OPENROUTER_TIMEOUT", 60*time.Second),
			HTTPReferer: getEnv("OPENROUTER_HTTP_REFERER", ""),
			AppTitle:    getEnv("OPENROUTER_APP_TITLE", "research-mcp-tool"),
		},
		Routing: RoutingConfig{
			Path: getEnv("ROUTING_CONFIG", "routing.yaml"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}
	cfg.Observability.LogFormat = getEnv("LOG_FORMAT", cfg.defaultLogFormat())

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.OpenRouter.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if c.OpenRouter.BaseURL == "" {
		return fmt.Errorf("openrouter base URL is required")
	}
	if c.OpenRouter.Timeout <= 0 {
		return fmt.Errorf("openrouter timeout must be positive")
	}

	if c.Routing.Path == "" {
		return fmt.Errorf("routing config path is required")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive")
	}
	if c.IsProduction() && c.Server.HTTPEnabled() && c.Server.AuthToken == "" {
		return fmt.Errorf("SERVER_AUTH_TOKEN is required when serving HTTP in production")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}
	switch c.Observability.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", c.Observability.LogFormat)
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// defaultLogFormat is console for local development and json everywhere else
func (c *Config) defaultLogFormat() string {
	if c.IsDevelopment() {
		return "console"
	}
	return "json"
}

// HTTPEnabled reports whether the HTTP transport should be started
func (c *ServerConfig) HTTPEnabled() bool {
	return c.HTTPAddr != ""
}

// Headers returns the attribution headers sent with every upstream request
func (c *OpenRouterConfig) Headers() map[string]string {
	headers := make(map[string]string, 2)
	if c.HTTPReferer != "" {
		headers["HTTP-Referer"] = c.HTTPReferer
	}
	if c.AppTitle != "" {
		headers["X-Title"] = c.AppTitle
	}
	return headers
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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
