// Package badger implements the local fowl cache on an embedded Badger
// key-value store. Records live under fowl/<id> as JSON; field queries scan
// the prefix and evaluate LIKE patterns in process.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"flockcore/internal/infra/cache/feed"
	"flockcore/internal/infra/cache/like"
	"flockcore/pkg/domain"
)

const keyPrefix = "fowl/"

// Options configures Open.
type Options struct {
	// Path is the data directory; ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *zap.Logger
}

// Cache is a Badger-backed domain.FowlCache.
type Cache struct {
	db   *badgerdb.DB
	feed *feed.Feed
}

var _ domain.FowlCache = (*Cache)(nil)

// Open opens the store described by opts.
func Open(opts Options) (*Cache, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("badger cache: path is required for persistent cache")
	}
	var bopts badgerdb.Options
	if opts.InMemory {
		bopts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", opts.Path, err)
		}
		bopts = badgerdb.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithSyncWrites(opts.SyncWrites).WithNumVersionsToKeep(1)
	if opts.Logger != nil {
		bopts = bopts.WithLogger(zapLogger{opts.Logger.Sugar()})
	} else {
		bopts = bopts.WithLogger(nil)
	}
	db, err := badgerdb.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Cache{db: db, feed: feed.New(feed.DefaultBuffer)}, nil
}

func key(id string) []byte { return []byte(keyPrefix + id) }

// Insert adds a new record; an existing ID yields domain.ErrDuplicate.
func (c *Cache) Insert(_ context.Context, fowl domain.Fowl) error {
	if strings.TrimSpace(fowl.ID) == "" {
		return fmt.Errorf("insert fowl: id is required")
	}
	payload, err := json.Marshal(fowl)
	if err != nil {
		return fmt.Errorf("encode fowl %s: %w", fowl.ID, err)
	}
	err = c.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(key(fowl.ID)); err == nil {
			return fmt.Errorf("insert fowl %s: %w", fowl.ID, domain.ErrDuplicate)
		} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("check fowl %s: %w", fowl.ID, err)
		}
		return txn.Set(key(fowl.ID), payload)
	})
	if err != nil {
		return err
	}
	c.feed.Publish(domain.CacheEvent{Op: domain.CacheInsert, FowlID: fowl.ID, Fowl: fowl.Clone()})
	return nil
}

// Update replaces an existing record; a missing ID yields domain.ErrNotFound.
func (c *Cache) Update(_ context.Context, fowl domain.Fowl) error {
	payload, err := json.Marshal(fowl)
	if err != nil {
		return fmt.Errorf("encode fowl %s: %w", fowl.ID, err)
	}
	err = c.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(key(fowl.ID)); errors.Is(err, badgerdb.ErrKeyNotFound) {
			return domain.ErrNotFound{Entity: domain.EntityFowl, ID: fowl.ID}
		} else if err != nil {
			return fmt.Errorf("check fowl %s: %w", fowl.ID, err)
		}
		return txn.Set(key(fowl.ID), payload)
	})
	if err != nil {
		return err
	}
	c.feed.Publish(domain.CacheEvent{Op: domain.CacheUpdate, FowlID: fowl.ID, Fowl: fowl.Clone()})
	return nil
}

// Delete removes a record. Missing records are ignored and emit no event.
func (c *Cache) Delete(_ context.Context, id string) error {
	removed := false
	err := c.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(key(id)); errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		removed = true
		return txn.Delete(key(id))
	})
	if err != nil {
		return fmt.Errorf("delete fowl %s: %w", id, err)
	}
	if removed {
		c.feed.Publish(domain.CacheEvent{Op: domain.CacheDelete, FowlID: id})
	}
	return nil
}

// Get returns a cached record.
func (c *Cache) Get(_ context.Context, id string) (domain.Fowl, error) {
	var f domain.Fowl
	err := c.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key(id))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return domain.ErrNotFound{Entity: domain.EntityFowl, ID: id}
		}
		if err != nil {
			return fmt.Errorf("get fowl %s: %w", id, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &f)
		})
	})
	return f, err
}

// List returns every cached record ordered by name.
func (c *Cache) List(ctx context.Context) ([]domain.Fowl, error) {
	return c.scan(ctx, func(domain.Fowl) bool { return true })
}

// QueryByField evaluates pattern as a LIKE expression against one searchable field.
func (c *Cache) QueryByField(ctx context.Context, field, pattern string) ([]domain.Fowl, error) {
	get, ok := fieldGetters[field]
	if !ok {
		return nil, fmt.Errorf("query fowl cache: field %q is not searchable", field)
	}
	return c.scan(ctx, func(f domain.Fowl) bool { return like.Match(pattern, get(f)) })
}

// Subscribe streams cache mutations.
func (c *Cache) Subscribe() (<-chan domain.CacheEvent, func()) {
	return c.feed.Subscribe()
}

// Close ends all subscriptions and closes the store.
func (c *Cache) Close() error {
	c.feed.Close()
	return c.db.Close()
}

var fieldGetters = map[string]func(domain.Fowl) string{
	domain.FieldName:      func(f domain.Fowl) string { return f.Name },
	domain.FieldBreed:     func(f domain.Fowl) string { return f.Breed },
	domain.FieldBloodline: func(f domain.Fowl) string { return f.Bloodline },
	domain.FieldOwnerID:   func(f domain.Fowl) string { return f.OwnerID },
	domain.FieldStage:     func(f domain.Fowl) string { return string(f.Stage) },
}

func (c *Cache) scan(ctx context.Context, keep func(domain.Fowl) bool) ([]domain.Fowl, error) {
	var out []domain.Fowl
	err := c.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var f domain.Fowl
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &f)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if keep(f) {
				out = append(out, f)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan fowl cache: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// zapLogger adapts a sugared zap logger to badger's Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l zapLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l zapLogger) Infof(format string, args ...interface{})    { l.s.Infof(format, args...) }
func (l zapLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }
