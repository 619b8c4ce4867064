// Package storage selects the blob backend once, at startup.
package storage

import (
	"context"
	"fmt"

	"cloudsync/internal/config"
	"cloudsync/internal/port"
	"cloudsync/internal/storage/minio"
	"cloudsync/internal/storage/s3"
)

// New returns the object store for the configured provider.
func New(ctx context.Context, cfg *config.StorageConfig) (port.ObjectStore, error) {
	switch cfg.Provider {
	case config.ProviderS3:
		return s3.NewS3Client(ctx, cfg)
	case config.ProviderMinio:
		return minio.NewMinioClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}
