// Package common provides shared utilities for finsight
package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/budgetme/finsight/internal/interfaces"
)

// Config holds all configuration for finsight
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Clients     ClientsConfig  `toml:"clients"`
	Insights    InsightsConfig `toml:"insights"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds path configuration for the 3 storage areas.
type StorageConfig struct {
	Internal AreaConfig `toml:"internal"` // System KV (BadgerHold)
	Ledger   AreaConfig `toml:"ledger"`   // Transactions + categories (BadgerHold)
	Insight  AreaConfig `toml:"insight"`  // Insight cache (BadgerHold)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	TextGen TextGenConfig `toml:"textgen"`
}

// TextGenConfig holds text-generation client configuration.
type TextGenConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	RateLimit   int     `toml:"rate_limit"` // requests per second
	Timeout     string  `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *TextGenConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// InsightsConfig holds insight generation and cache configuration.
// The currency fields define the canonical symbol/unit the sanitizer
// normalizes generated text to.
type InsightsConfig struct {
	CacheTTL         string  `toml:"cache_ttl"`
	CurrencySymbol   string  `toml:"currency_symbol"`
	CurrencyCode     string  `toml:"currency_code"`
	CurrencyWord     string  `toml:"currency_word"`
	SavingsBenchmark float64 `toml:"savings_benchmark"` // percent, default 20
}

// GetCacheTTL parses and returns the cache TTL duration (default 7 days).
func (c *InsightsConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Storage: StorageConfig{
			Internal: AreaConfig{Path: "data/internal"},
			Ledger:   AreaConfig{Path: "data/ledger"},
			Insight:  AreaConfig{Path: "data/insight"},
		},
		Clients: ClientsConfig{
			TextGen: TextGenConfig{
				Model:       "gemini-2.0-flash",
				Temperature: 0.7,
				MaxTokens:   500,
				RateLimit:   2,
				Timeout:     "30s",
			},
		},
		Insights: InsightsConfig{
			CacheTTL:         "168h",
			CurrencySymbol:   "₱",
			CurrencyCode:     "PHP",
			CurrencyWord:     "pesos",
			SavingsBenchmark: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FINSIGHT_ENV"); env != "" {
		config.Environment = env
	}
	if host := os.Getenv("FINSIGHT_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("FINSIGHT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("FINSIGHT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if path := os.Getenv("FINSIGHT_DATA_PATH"); path != "" {
		config.Storage.Internal.Path = path + "/internal"
		config.Storage.Ledger.Path = path + "/ledger"
		config.Storage.Insight.Path = path + "/insight"
	}
	if sym := os.Getenv("FINSIGHT_CURRENCY_SYMBOL"); sym != "" {
		config.Insights.CurrencySymbol = sym
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment, the internal store's
// system KV, or a config fallback, in that order. Resolution happens once at
// construction time so pure logic never reads the environment.
func ResolveAPIKey(ctx context.Context, store interfaces.InternalStore, name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"textgen_api_key": {"GEMINI_API_KEY", "FINSIGHT_TEXTGEN_API_KEY", "GOOGLE_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if store != nil {
		apiKey, err := store.GetSystemKV(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or store", name)
}
