// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrSubmitURLRequired is returned when UPSTREAM_SUBMIT_URL is not set.
	ErrSubmitURLRequired = errors.New("config: UPSTREAM_SUBMIT_URL is required")
	// ErrStatusURLRequired is returned when UPSTREAM_STATUS_URL is not set.
	ErrStatusURLRequired = errors.New("config: UPSTREAM_STATUS_URL is required")
)

// Config holds all configuration for the API server.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Upstream provider settings. A missing API key does not stop the server;
	// requests are answered with a configuration error instead.
	UpstreamAPIKey      string        `env:"UPSTREAM_API_KEY" json:"-"` // Masked in JSON
	UpstreamSubmitURL   string        `env:"UPSTREAM_SUBMIT_URL, required" json:"upstream_submit_url"`
	UpstreamStatusURL   string        `env:"UPSTREAM_STATUS_URL, required" json:"upstream_status_url"`
	UpstreamStatusToken string        `env:"UPSTREAM_STATUS_TOKEN" json:"-"` // Masked in JSON
	UpstreamTimeout     time.Duration `env:"UPSTREAM_TIMEOUT, default=60s" json:"upstream_timeout"`

	// StatusCacheTTL is how long completed and failed statuses are served from memory. Zero disables it.
	StatusCacheTTL time.Duration `env:"STATUS_CACHE_TTL, default=10m" json:"status_cache_ttl"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// StatusToken returns the bearer token for status queries,
// falling back to the API key when no dedicated token is set.
func (c *Config) StatusToken() string {
	if c.UpstreamStatusToken != "" {
		return c.UpstreamStatusToken
	}
	return c.UpstreamAPIKey
}

// Load reads the server configuration from the environment, after loading
// an optional .env file from the working directory.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "UPSTREAM_SUBMIT_URL") {
			return nil, ErrSubmitURLRequired
		}
		if strings.Contains(err.Error(), "UPSTREAM_STATUS_URL") {
			return nil, ErrStatusURLRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// NewLogger creates a structured logger writing to stdout.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return newLogger(os.Stdout, c.LogFormat, c.LogLevel)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, UpstreamAPIKey: %s, UpstreamSubmitURL: %s, UpstreamStatusURL: %s, UpstreamStatusToken: %s, UpstreamTimeout: %s, StatusCacheTTL: %s, AllowedOrigins: %v, LogFormat: %s, LogLevel: %s}",
		c.Port,
		mask(c.UpstreamAPIKey),
		c.UpstreamSubmitURL,
		c.UpstreamStatusURL,
		mask(c.UpstreamStatusToken),
		c.UpstreamTimeout,
		c.StatusCacheTTL,
		c.AllowedOrigins,
		c.LogFormat,
		c.LogLevel,
	)
}

// loadDotEnv loads files (default ".env") into the environment without
// overriding variables that are already set. Missing files are ignored.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func mask(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
