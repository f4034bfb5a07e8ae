// Package common provides shared utilities for Tickerwise
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Tickerwise
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Analyst     AnalystConfig  `toml:"analyst"`
	Analysis    AnalysisConfig `toml:"analysis"`
	Clients     ClientsConfig  `toml:"clients"`
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// AnalystConfig selects and configures the agent that writes the analysis.
type AnalystConfig struct {
	Provider string `toml:"provider"` // "openai" (any OpenAI-compatible endpoint) or "gemini"
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
	MaxTurns int    `toml:"max_turns"`
}

// AnalysisConfig holds analysis pipeline settings
type AnalysisConfig struct {
	DefaultTemperature float64 `toml:"default_temperature"`
	StrictReport       bool    `toml:"strict_report"` // reject agent output that is not a six-section report
	HistoryWindow      string  `toml:"history_window"`
}

// GetHistoryWindow parses and returns the trailing history window
func (c *AnalysisConfig) GetHistoryWindow() time.Duration {
	d, err := time.ParseDuration(c.HistoryWindow)
	if err != nil || d <= 0 {
		return 90 * 24 * time.Hour
	}
	return d
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Yahoo      YahooConfig      `toml:"yahoo"`
	EODHD      EODHDConfig      `toml:"eodhd"`
	DuckDuckGo DuckDuckGoConfig `toml:"duckduckgo"`
	Gemini     GeminiConfig     `toml:"gemini"`
}

// YahooConfig holds Yahoo Finance chart API configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout)
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout)
}

// DuckDuckGoConfig holds news search configuration
type DuckDuckGoConfig struct {
	BaseURL    string `toml:"base_url"`
	MaxResults int    `toml:"max_results"`
	RateLimit  int    `toml:"rate_limit"`
	Timeout    string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *DuckDuckGoConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout)
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// StorageConfig holds the price history cache configuration.
// An empty path disables the cache.
type StorageConfig struct {
	Path string `toml:"path"`
	TTL  string `toml:"ttl"`
}

// GetTTL parses and returns how long cached history stays fresh
func (c *StorageConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Analyst: AnalystConfig{
			Provider: "openai",
			Model:    "deepseek-r1-distill-llama-70b",
			BaseURL:  "https://api.groq.com/openai/v1",
			MaxTurns: 8,
		},
		Analysis: AnalysisConfig{
			DefaultTemperature: 0.2,
			StrictReport:       true,
			HistoryWindow:      "2160h", // three months
		},
		Clients: ClientsConfig{
			Yahoo: YahooConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "30s",
			},
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			DuckDuckGo: DuckDuckGoConfig{
				BaseURL:    "https://html.duckduckgo.com",
				MaxResults: 5,
				RateLimit:  1,
				Timeout:    "20s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Storage: StorageConfig{
			Path: "data",
			TTL:  "15m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
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
	normalizeAnalyst(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TICKERWISE_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("TICKERWISE_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("TICKERWISE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if v, ok := os.LookupEnv("TICKERWISE_DATA_PATH"); ok {
		config.Storage.Path = v
	}

	if level := os.Getenv("TICKERWISE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("TICKERWISE_ANALYST_PROVIDER"); v != "" {
		config.Analyst.Provider = v
	}
	if v := os.Getenv("TICKERWISE_ANALYST_MODEL"); v != "" {
		config.Analyst.Model = v
	}
	if v := os.Getenv("TICKERWISE_ANALYST_BASE_URL"); v != "" {
		config.Analyst.BaseURL = v
	}
}

// normalizeAnalyst lower-cases the provider name and falls back to "openai"
// for anything unrecognised.
func normalizeAnalyst(config *Config) {
	p := strings.ToLower(strings.TrimSpace(config.Analyst.Provider))
	if p != "openai" && p != "gemini" {
		p = "openai"
	}
	config.Analyst.Provider = p
	if config.Analyst.MaxTurns <= 0 {
		config.Analyst.MaxTurns = 8
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// keyToEnvMapping lists the environment variables checked for each API key, in priority order.
var keyToEnvMapping = map[string][]string{
	"analyst_api_key": {"TICKERWISE_ANALYST_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY"},
	"gemini_api_key":  {"GEMINI_API_KEY", "TICKERWISE_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"eodhd_api_key":   {"EODHD_API_KEY", "TICKERWISE_EODHD_API_KEY"},
}

// ResolveAPIKey resolves an API key from the environment, falling back to the configured value
func ResolveAPIKey(name string, fallback string) (string, error) {
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
