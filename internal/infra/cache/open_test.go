package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flockcore/internal/config"
	"flockcore/internal/infra/cache/badger"
	"flockcore/internal/infra/cache/sqlite"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	c, err := Open(ctx, config.StorageConfig{SQLitePath: filepath.Join(t.TempDir(), "c.db")}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Cache{}, c)
	require.NoError(t, c.Close())

	c, err = Open(ctx, config.StorageConfig{CacheDriver: config.CacheBadger}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &badger.Cache{}, c)
	require.NoError(t, c.Close())

	_, err = Open(ctx, config.StorageConfig{CacheDriver: "realm"}, nil)
	require.Error(t, err)
}
