package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"flockcore/internal/infra/cache/cachetest"
	"flockcore/pkg/domain"
)

func TestCacheContract(t *testing.T) {
	cachetest.Run(t, func(t *testing.T) domain.FowlCache {
		c, err := Open(Options{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Options{})
	require.Error(t, err)
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := Open(Options{Path: dir, SyncWrites: true, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	require.NoError(t, c.Insert(ctx, cachetest.Sample("f1", "Persisted")))
	require.NoError(t, c.Close())

	reopened, err := Open(Options{Path: dir})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	got, err := reopened.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Persisted", got.Name)
}

func TestQueryHonoursCancelledContext(t *testing.T) {
	c, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	require.NoError(t, c.Insert(context.Background(), cachetest.Sample("f1", "A")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.QueryByField(ctx, domain.FieldName, "%")
	require.ErrorIs(t, err, context.Canceled)
}
