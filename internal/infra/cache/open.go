// Package cache selects the local fowl cache driver named in the storage
// configuration.
package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"flockcore/internal/config"
	"flockcore/internal/infra/cache/badger"
	"flockcore/internal/infra/cache/sqlite"
	"flockcore/pkg/domain"
)

// Open returns the configured cache. An empty driver selects sqlite; an empty
// badger path keeps the badger cache in memory.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (domain.FowlCache, error) {
	switch cfg.CacheDriver {
	case "", config.CacheSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.CacheBadger:
		return badger.Open(badger.Options{
			Path:     cfg.BadgerPath,
			InMemory: cfg.BadgerPath == "",
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("unknown cache driver %s", cfg.CacheDriver)
	}
}
