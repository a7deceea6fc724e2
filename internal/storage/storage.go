package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joocer/s1/internal/config"
	"github.com/joocer/s1/internal/domain"
)

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (domain.ObjectStore, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		logger.Info("using local storage", "root", cfg.LocalPath)
		return NewLocalStore(cfg.LocalPath)
	case config.BackendGCS, "":
		logger.Info("using GCS storage", "project", cfg.GCSProject, "emulator", cfg.EmulatorHost)
		return NewGCSStore(ctx, GCSOptions{
			CredentialsFile: cfg.GCSCredentialsFile,
			EmulatorHost:    cfg.EmulatorHost,
		})
	case config.BackendS3:
		logger.Info("using S3 storage", "endpoint", cfg.S3Endpoint, "region", cfg.S3Region)
		return NewS3Store(S3Options{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			KeyID:        cfg.S3KeyID,
			Secret:       cfg.S3Secret,
			UsePathStyle: cfg.S3URLStyle != "vhost",
		}), nil
	case config.BackendAzure:
		logger.Info("using Azure blob storage", "account", cfg.AzureAccountName)
		return NewAzureStore(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureServiceURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
