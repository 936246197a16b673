// Package docstore selects the remote document store driver named in the
// storage configuration.
package docstore

import (
	"context"
	"fmt"

	"flockcore/internal/config"
	"flockcore/internal/infra/docstore/memory"
	"flockcore/internal/infra/docstore/postgres"
	"flockcore/internal/infra/docstore/s3"
	"flockcore/pkg/domain"
)

// Open returns the configured store and a func releasing its resources.
//
//	memory:   process-local maps (default)
//	postgres: documents table reached through cfg.PostgresDSN
//	s3:       one JSON object per document under cfg.S3.Prefix
func Open(ctx context.Context, cfg config.StorageConfig) (domain.DocumentStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.RemoteDriver {
	case "", config.RemoteMemory:
		return memory.New(), noop, nil
	case config.RemotePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.RemoteS3:
		store, err := s3.New(ctx, s3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown remote driver %s", cfg.RemoteDriver)
	}
}
