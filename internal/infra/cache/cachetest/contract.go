// Package cachetest holds the behavioural contract every domain.FowlCache
// driver must satisfy. Driver packages call Run from their own tests.
package cachetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flockcore/pkg/domain"
)

// Factory returns a fresh, empty cache for a subtest.
type Factory func(t *testing.T) domain.FowlCache

// Sample returns a populated fowl for fixtures.
func Sample(id, name string) domain.Fowl {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Fowl{
		Base:      domain.Base{ID: id, CreatedAt: now, UpdatedAt: now},
		Name:      name,
		Breed:     "Orpington",
		Bloodline: "Buff Line",
		Sex:       domain.SexFemale,
		Stage:     domain.StageAdult,
		OwnerID:   "owner-1",
		Traits:    []string{"docile"},
		Health:    domain.HealthHealthy,
	}
}

// Run executes the contract against caches built by newCache.
func Run(t *testing.T, newCache Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("insert and get", func(t *testing.T) {
		c := newCache(t)
		f := Sample("f1", "Henrietta")
		require.NoError(t, c.Insert(ctx, f))
		got, err := c.Get(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, "Henrietta", got.Name)
		assert.Equal(t, []string{"docile"}, got.Traits)
		assert.True(t, got.CreatedAt.Equal(f.CreatedAt))
	})

	t.Run("insert duplicate", func(t *testing.T) {
		c := newCache(t)
		require.NoError(t, c.Insert(ctx, Sample("f1", "A")))
		err := c.Insert(ctx, Sample("f1", "B"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrDuplicate))
	})

	t.Run("get missing", func(t *testing.T) {
		c := newCache(t)
		_, err := c.Get(ctx, "ghost")
		var nf domain.ErrNotFound
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "ghost", nf.ID)
	})

	t.Run("update", func(t *testing.T) {
		c := newCache(t)
		require.NoError(t, c.Insert(ctx, Sample("f1", "A")))
		f := Sample("f1", "Renamed")
		f.OwnerID = "owner-2"
		require.NoError(t, c.Update(ctx, f))
		got, err := c.Get(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		byOwner, err := c.QueryByField(ctx, domain.FieldOwnerID, "owner-2")
		require.NoError(t, err)
		require.Len(t, byOwner, 1)

		var nf domain.ErrNotFound
		require.ErrorAs(t, c.Update(ctx, Sample("missing", "x")), &nf)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		c := newCache(t)
		require.NoError(t, c.Insert(ctx, Sample("f1", "A")))
		require.NoError(t, c.Delete(ctx, "f1"))
		require.NoError(t, c.Delete(ctx, "f1"))
		_, err := c.Get(ctx, "f1")
		require.Error(t, err)
	})

	t.Run("list ordered by name", func(t *testing.T) {
		c := newCache(t)
		require.NoError(t, c.Insert(ctx, Sample("f2", "Zelda")))
		require.NoError(t, c.Insert(ctx, Sample("f1", "agnes")))
		require.NoError(t, c.Insert(ctx, Sample("f3", "Bertha")))
		all, err := c.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"agnes", "Bertha", "Zelda"}, []string{all[0].Name, all[1].Name, all[2].Name})
	})

	t.Run("query by field", func(t *testing.T) {
		c := newCache(t)
		a := Sample("f1", "Brahma Belle")
		b := Sample("f2", "Silkie Sue")
		b.Breed = "Silkie"
		b.Stage = domain.StageChick
		d := Sample("f3", "100%_pure")
		require.NoError(t, c.Insert(ctx, a))
		require.NoError(t, c.Insert(ctx, b))
		require.NoError(t, c.Insert(ctx, d))

		got, err := c.QueryByField(ctx, domain.FieldName, "%belle%")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "f1", got[0].ID)

		got, err = c.QueryByField(ctx, domain.FieldBreed, "Silkie")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "f2", got[0].ID)

		got, err = c.QueryByField(ctx, domain.FieldStage, "adult")
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = c.QueryByField(ctx, domain.FieldName, `%0\%\_%`)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "f3", got[0].ID)

		got, err = c.QueryByField(ctx, domain.FieldName, "%nobody%")
		require.NoError(t, err)
		assert.Empty(t, got)

		_, err = c.QueryByField(ctx, "payload", "%")
		require.Error(t, err)
	})

	t.Run("subscribe receives mutations", func(t *testing.T) {
		c := newCache(t)
		events, cancel := c.Subscribe()
		defer cancel()
		require.NoError(t, c.Insert(ctx, Sample("f1", "A")))
		require.NoError(t, c.Update(ctx, Sample("f1", "B")))
		require.NoError(t, c.Delete(ctx, "f1"))
		require.NoError(t, c.Delete(ctx, "f1"))

		want := []domain.CacheOp{domain.CacheInsert, domain.CacheUpdate, domain.CacheDelete}
		for i, op := range want {
			select {
			case ev := <-events:
				assert.Equal(t, op, ev.Op, "event %d", i)
				assert.Equal(t, "f1", ev.FowlID)
			case <-time.After(time.Second):
				t.Fatalf("timed out waiting for %s event", op)
			}
		}
		select {
		case ev := <-events:
			t.Fatalf("unexpected event after idempotent delete: %+v", ev)
		default:
		}
	})
}
