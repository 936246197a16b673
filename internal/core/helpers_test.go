package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flockcore/internal/infra/cache/sqlite"
	"flockcore/internal/infra/docstore/memory"
	"flockcore/pkg/domain"
)

var errRemoteDown = errors.New("remote store unreachable")

// flakyStore wraps a memory store and fails every call while down is set.
type flakyStore struct {
	*memory.Store
	mu   sync.Mutex
	down bool
	puts int
}

func newFlakyStore() *flakyStore { return &flakyStore{Store: memory.New()} }

func (s *flakyStore) setDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

func (s *flakyStore) failing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.down
}

func (s *flakyStore) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	if s.failing() {
		return domain.Document{}, errRemoteDown
	}
	return s.Store.Get(ctx, collection, id)
}

func (s *flakyStore) Put(ctx context.Context, doc domain.Document) error {
	if s.failing() {
		return errRemoteDown
	}
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return s.Store.Put(ctx, doc)
}

func (s *flakyStore) Delete(ctx context.Context, collection, id string) error {
	if s.failing() {
		return errRemoteDown
	}
	return s.Store.Delete(ctx, collection, id)
}

func (s *flakyStore) List(ctx context.Context, collection string) ([]domain.Document, error) {
	if s.failing() {
		return nil, errRemoteDown
	}
	return s.Store.List(ctx, collection)
}

// recordingCache wraps a cache and records QueryByField arguments.
type recordingCache struct {
	domain.FowlCache
	mu      sync.Mutex
	queries [][2]string
}

func (c *recordingCache) QueryByField(ctx context.Context, field, pattern string) ([]domain.Fowl, error) {
	c.mu.Lock()
	c.queries = append(c.queries, [2]string{field, pattern})
	c.mu.Unlock()
	return c.FowlCache.QueryByField(ctx, field, pattern)
}

func (c *recordingCache) lastQuery() [2]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queries) == 0 {
		return [2]string{}
	}
	return c.queries[len(c.queries)-1]
}

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	repo   *FowlRepository
	remote *flakyStore
	cache  *recordingCache
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	c, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	remote := newFlakyStore()
	cache := &recordingCache{FowlCache: c}
	seq := 0
	base := []Option{
		WithClock(ClockFunc(func() time.Time { return fixedNow })),
		WithIDGenerator(func() string {
			seq++
			return "gen-" + string(rune('a'+seq-1))
		}),
	}
	return fixture{repo: NewFowlRepository(remote, cache, append(base, opts...)...), remote: remote, cache: cache}
}

func hen(name string) domain.Fowl {
	return domain.Fowl{
		Name:      name,
		Breed:     "Orpington",
		Bloodline: "Buff",
		Sex:       domain.SexFemale,
		Stage:     domain.StageAdult,
		OwnerID:   "owner-1",
	}
}

func rooster(name string) domain.Fowl {
	f := hen(name)
	f.Sex = domain.SexMale
	return f
}

// mustAdd stores f with an explicit id and returns the stored record.
func mustAdd(t *testing.T, repo *FowlRepository, id string, f domain.Fowl) domain.Fowl {
	t.Helper()
	f.ID = id
	res := repo.AddFowl(context.Background(), f)
	require.True(t, res.OK(), "add %s: %s", id, res.Message())
	return res.Value()
}
