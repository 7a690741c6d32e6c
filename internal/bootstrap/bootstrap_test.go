package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/text2video-api/internal/config"
	"github.com/maauso/text2video-api/internal/relay"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewDependencies(t *testing.T) {
	deps, err := NewDependencies(&config.Config{
		UpstreamAPIKey:    "sk-test",
		UpstreamSubmitURL: "https://provider.example/submit",
		UpstreamStatusURL: "https://provider.example/tasks",
		UpstreamTimeout:   time.Second,
		StatusCacheTTL:    time.Minute,
	}, discardLogger())
	require.NoError(t, err)

	assert.NotNil(t, deps.Submitter)
	assert.NotNil(t, deps.Statuses)
	assert.True(t, deps.Catalog.Has(relay.DefaultModelID))
}

func TestNewDependencies_MissingSubmitURL(t *testing.T) {
	_, err := NewDependencies(&config.Config{}, discardLogger())
	require.Error(t, err)
}

func TestNewDependencies_PlaceholderKeyStillStarts(t *testing.T) {
	deps, err := NewDependencies(&config.Config{
		UpstreamAPIKey:    "your_api_key_here",
		UpstreamSubmitURL: "https://provider.example/submit",
		UpstreamStatusURL: "https://provider.example/tasks",
	}, discardLogger())
	require.NoError(t, err)

	env, err := deps.Submitter.Submit(context.Background(), relay.GenerationRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, relay.KindConfiguration, relay.KindOf(err))
	assert.Equal(t, "missing_api_key", env.Error.Code)
}

func TestNewClientDependencies(t *testing.T) {
	dir := t.TempDir()
	deps, err := NewClientDependencies(context.Background(), &config.ClientConfig{
		APIURL:    "http://localhost:8080",
		OutputDir: dir,
	}, discardLogger())
	require.NoError(t, err)

	assert.NotNil(t, deps.API)
	assert.Equal(t, dir, deps.Local.Dir())
	assert.Nil(t, deps.Remote)
}

func TestNewClientDependencies_WithS3(t *testing.T) {
	deps, err := NewClientDependencies(context.Background(), &config.ClientConfig{
		APIURL:             "http://localhost:8080",
		OutputDir:          t.TempDir(),
		S3Bucket:           "videos",
		S3Region:           "us-east-1",
		S3Endpoint:         "http://localhost:4566",
		AWSAccessKeyID:     "test",
		AWSSecretAccessKey: "test",
	}, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, deps.Remote)
}
