// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// AI provider credentials. A missing key removes that provider from
	// the candidate list; it is not an error until every key is absent
	// at generation time.
	OpenAIKey    string
	AnthropicKey string
	GeminiKey    string

	// ProviderOrder is the default failover priority when a platform's
	// preferred provider is unavailable or fails.
	ProviderOrder []string

	// ProviderTimeout bounds a single provider HTTP call. Plans with
	// priority routing get PriorityTimeout instead.
	ProviderTimeout time.Duration
	PriorityTimeout time.Duration

	// Security
	RateLimitRPM int
	AdminSecret  string

	// Observability
	OTLPEndpoint string
}

const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultRateLimit       = 60
	DefaultProviderTimeout = 45 * time.Second
	DefaultPriorityTimeout = 90 * time.Second
)

// DefaultProviderOrder is the failover priority when PROVIDER_ORDER is unset.
var DefaultProviderOrder = []string{"openai", "anthropic", "gemini"}

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:     os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:    os.Getenv("ANTHROPIC_API_KEY"),
		GeminiKey:       os.Getenv("GEMINI_API_KEY"),
		ProviderOrder:   getEnvList("PROVIDER_ORDER", DefaultProviderOrder),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", DefaultProviderTimeout),
		PriorityTimeout: getEnvDuration("PRIORITY_TIMEOUT", DefaultPriorityTimeout),
		RateLimitRPM:    int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
		AdminSecret:     os.Getenv("ADMIN_SECRET"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
// Provider keys are deliberately not required: a deployment may run with
// any subset, and the router reports the all-absent case at call time.
func (c *Config) Validate() error {
	for _, p := range c.ProviderOrder {
		switch p {
		case "openai", "anthropic", "gemini":
		default:
			return fmt.Errorf("PROVIDER_ORDER contains unknown provider %q", p)
		}
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	return nil
}

// ConfiguredProviders returns the provider names that have credentials,
// in failover priority order.
func (c *Config) ConfiguredProviders() []string {
	var out []string
	for _, p := range c.ProviderOrder {
		if c.ProviderKey(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// ProviderKey returns the credential for a provider name, or "".
func (c *Config) ProviderKey(name string) string {
	switch name {
	case "openai":
		return c.OpenAIKey
	case "anthropic":
		return c.AnthropicKey
	case "gemini":
		return c.GeminiKey
	}
	return ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
