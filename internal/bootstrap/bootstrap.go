// Package bootstrap wires the text2video server and client components from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/text2video-api/internal/catalog"
	"github.com/maauso/text2video-api/internal/client"
	"github.com/maauso/text2video-api/internal/config"
	"github.com/maauso/text2video-api/internal/relay"
	"github.com/maauso/text2video-api/internal/storage"
	"github.com/maauso/text2video-api/internal/upstream"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Catalog   *catalog.Catalog
	Submitter *relay.Submitter
	Statuses  *relay.StatusRelay
}

// NewDependencies creates and initializes all dependencies for the API server.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	up, err := upstream.NewClient(cfg.UpstreamSubmitURL,
		upstream.WithStatusURL(cfg.UpstreamStatusURL),
		upstream.WithTimeout(cfg.UpstreamTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create upstream client: %w", err)
	}

	relayCfg := relay.DefaultConfig(cfg.UpstreamAPIKey)
	if !relay.IsConfigured(cfg.UpstreamAPIKey) {
		logger.Warn("UPSTREAM_API_KEY is missing or a placeholder; generation requests will be rejected")
	}

	return &Dependencies{
		Catalog:   relayCfg.Catalog,
		Submitter: relay.NewSubmitter(up, relayCfg, logger),
		Statuses: relay.NewStatusRelay(up, cfg.StatusToken(), logger,
			relay.WithTerminalCache(cfg.StatusCacheTTL),
		),
	}, nil
}

// ClientDependencies holds the components used by the command-line client.
type ClientDependencies struct {
	API *client.Client
	// Local always receives the downloaded video.
	Local *storage.LocalStorage
	// Remote is set when S3 is configured.
	Remote storage.Archive
}

// NewClientDependencies creates the API client and the video archives.
func NewClientDependencies(ctx context.Context, cfg *config.ClientConfig, logger *slog.Logger) (*ClientDependencies, error) {
	api, err := client.NewClient(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("create API client: %w", err)
	}

	local, err := storage.NewLocalStorage(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	deps := &ClientDependencies{API: api, Local: local}

	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		deps.Remote = s3Store
	}

	return deps, nil
}
