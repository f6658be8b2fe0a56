// Package common provides shared utilities for the Fincept terminal server.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the Fincept data service.
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Sources     SourcesConfig   `toml:"sources"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Clients     ClientsConfig   `toml:"clients"`
	Logging     LoggingConfig   `toml:"logging"`
	Auth        AuthConfig      `toml:"auth"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SourcesConfig holds data-source persistence configuration.
// ConfigPath is the JSON file holding data-type mappings and per-provider
// settings; it defaults to ~/.fincept/data_sources.json.
type SourcesConfig struct {
	ConfigPath string `toml:"config_path"`
}

// SchedulerConfig holds the background refresh scheduler configuration.
type SchedulerConfig struct {
	Enabled bool     `toml:"enabled"`
	Spec    string   `toml:"spec"`    // cron spec, e.g. "@every 5m"
	Symbols []string `toml:"symbols"` // stock symbols kept warm in the cache
}

// ClientsConfig holds API client configurations.
type ClientsConfig struct {
	YFinance     ClientConfig `toml:"yfinance"`
	AlphaVantage ClientConfig `toml:"alpha_vantage"`
	NewsAPI      ClientConfig `toml:"newsapi"`
	DBnomics     ClientConfig `toml:"dbnomics"`
}

// ClientConfig holds the common settings shared by all HTTP data clients.
type ClientConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration.
func (c *ClientConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// AuthConfig holds JWT authentication configuration for the REST API.
type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	TokenExpiry string `toml:"token_expiry"` // duration string, default "24h"
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultSourceConfigPath returns ~/.fincept/data_sources.json, falling back
// to a relative path when the home directory cannot be resolved.
func DefaultSourceConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("data", "data_sources.json")
	}
	return filepath.Join(home, ".fincept", "data_sources.json")
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Sources: SourcesConfig{
			ConfigPath: DefaultSourceConfigPath(),
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Spec:    "@every 5m",
		},
		Clients: ClientsConfig{
			YFinance: ClientConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "15s",
			},
			AlphaVantage: ClientConfig{
				BaseURL:   "https://www.alphavantage.co",
				RateLimit: 1,
				Timeout:   "30s",
			},
			NewsAPI: ClientConfig{
				BaseURL:   "https://newsapi.org/v2",
				RateLimit: 2,
				Timeout:   "20s",
			},
			DBnomics: ClientConfig{
				BaseURL:   "https://api.db.nomics.world/v22",
				RateLimit: 2,
				Timeout:   "30s",
			},
		},
		Auth: AuthConfig{
			JWTSecret:   "dev-jwt-secret-change-in-production",
			TokenExpiry: "24h",
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

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FINCEPT_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FINCEPT_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FINCEPT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FINCEPT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("FINCEPT_SOURCES_PATH"); path != "" {
		config.Sources.ConfigPath = path
	}

	if v := os.Getenv("FINCEPT_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("FINCEPT_AUTH_TOKEN_EXPIRY"); v != "" {
		config.Auth.TokenExpiry = v
	}

	if v := os.Getenv("FINCEPT_SCHEDULER_SYMBOLS"); v != "" {
		parts := strings.Split(v, ",")
		symbols := make([]string, 0, len(parts))
		for _, s := range parts {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
		config.Scheduler.Symbols = symbols
	}
}

// ResolveAPIKey resolves an API key for a named provider from the
// environment, falling back to the configured value. Environment variables
// win so keys never have to live in config files.
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"alpha_vantage": {"ALPHA_VANTAGE_API_KEY", "FINCEPT_ALPHA_VANTAGE_API_KEY"},
		"newsapi":       {"NEWSAPI_API_KEY", "FINCEPT_NEWSAPI_API_KEY"},
		"fincept_api":   {"FINCEPT_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
