package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// ClientConfig holds the configuration for the text2video command-line client.
type ClientConfig struct {
	APIURL string `env:"TEXT2VIDEO_API_URL, default=http://localhost:8080"`

	// Polling settings
	PollInterval    time.Duration `env:"POLL_INTERVAL, default=5s"`
	PollMaxAttempts int           `env:"POLL_MAX_ATTEMPTS, default=60"`

	// Where finished videos are written.
	OutputDir string `env:"OUTPUT_DIR, default=./videos"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET"`
	S3Region           string `env:"S3_REGION, default=us-east-1"`
	S3Prefix           string `env:"S3_PREFIX"`
	S3Endpoint         string `env:"S3_ENDPOINT"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	LogFormat string `env:"LOG_FORMAT, default=text"`
	LogLevel  string `env:"LOG_LEVEL, default=warn"`
}

// S3Enabled returns true if an S3 bucket is configured.
func (c *ClientConfig) S3Enabled() bool {
	return c.S3Bucket != ""
}

// LoadClient reads the client configuration from the environment, after
// loading an optional .env file from the working directory.
func LoadClient() (*ClientConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &ClientConfig{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// NewLogger creates a structured logger writing to stderr, keeping stdout for command output.
func (c *ClientConfig) NewLogger() *slog.Logger {
	return newLogger(os.Stderr, c.LogFormat, c.LogLevel)
}
