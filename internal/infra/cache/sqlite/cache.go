// Package sqlite implements the local fowl cache on an embedded SQLite
// database. Searchable fields are stored as columns next to the JSON payload
// so QueryByField can run LIKE directly in SQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"flockcore/internal/infra/cache/feed"
	"flockcore/pkg/domain"
)

const (
	ddlFowlCache = `CREATE TABLE IF NOT EXISTS fowl_cache (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		breed TEXT NOT NULL,
		bloodline TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		payload BLOB NOT NULL,
		cached_at TEXT NOT NULL
	)`
	ddlOwnerIndex = `CREATE INDEX IF NOT EXISTS fowl_cache_owner ON fowl_cache(owner_id)`

	queryExists = `SELECT 1 FROM fowl_cache WHERE id = ?`
	queryInsert = `INSERT INTO fowl_cache (id, name, breed, bloodline, owner_id, stage, payload, cached_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	queryUpdate = `UPDATE fowl_cache SET name = ?, breed = ?, bloodline = ?, owner_id = ?, stage = ?, payload = ?, cached_at = ? WHERE id = ?`
	queryDelete = `DELETE FROM fowl_cache WHERE id = ?`
	queryGet    = `SELECT payload FROM fowl_cache WHERE id = ?`
	queryList   = `SELECT payload FROM fowl_cache ORDER BY name COLLATE NOCASE, id`
)

// searchColumns maps QueryByField names to table columns.
var searchColumns = map[string]string{
	domain.FieldName:      "name",
	domain.FieldBreed:     "breed",
	domain.FieldBloodline: "bloodline",
	domain.FieldOwnerID:   "owner_id",
	domain.FieldStage:     "stage",
}

// Cache is a SQLite-backed domain.FowlCache.
type Cache struct {
	db   *sql.DB
	feed *feed.Feed
	path string
	now  func() time.Time
}

var _ domain.FowlCache = (*Cache)(nil)

// Open opens (creating if needed) the cache database at path. ":memory:"
// keeps the table in process memory.
func Open(ctx context.Context, path string) (*Cache, error) {
	if path == "" {
		path = "flockcore-cache.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{ddlFowlCache, ddlOwnerIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create fowl_cache: %w", err)
		}
	}
	return &Cache{db: db, feed: feed.New(feed.DefaultBuffer), path: path, now: time.Now}, nil
}

// Path returns the database location.
func (c *Cache) Path() string { return c.path }

// DB exposes the underlying handle for diagnostics.
func (c *Cache) DB() *sql.DB { return c.db }

// Insert adds a new record; an existing ID yields domain.ErrDuplicate.
func (c *Cache) Insert(ctx context.Context, fowl domain.Fowl) (retErr error) {
	if strings.TrimSpace(fowl.ID) == "" {
		return fmt.Errorf("insert fowl: id is required")
	}
	payload, err := json.Marshal(fowl)
	if err != nil {
		return fmt.Errorf("encode fowl %s: %w", fowl.ID, err)
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	var one int
	switch err := tx.QueryRowContext(ctx, queryExists, fowl.ID).Scan(&one); {
	case err == nil:
		return fmt.Errorf("insert fowl %s: %w", fowl.ID, domain.ErrDuplicate)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check fowl %s: %w", fowl.ID, err)
	}
	if _, err := tx.ExecContext(ctx, queryInsert, fowl.ID, fowl.Name, fowl.Breed, fowl.Bloodline,
		fowl.OwnerID, string(fowl.Stage), payload, c.stamp()); err != nil {
		return fmt.Errorf("insert fowl %s: %w", fowl.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	c.feed.Publish(domain.CacheEvent{Op: domain.CacheInsert, FowlID: fowl.ID, Fowl: fowl.Clone()})
	return nil
}

// Update replaces an existing record; a missing ID yields domain.ErrNotFound.
func (c *Cache) Update(ctx context.Context, fowl domain.Fowl) error {
	payload, err := json.Marshal(fowl)
	if err != nil {
		return fmt.Errorf("encode fowl %s: %w", fowl.ID, err)
	}
	res, err := c.db.ExecContext(ctx, queryUpdate, fowl.Name, fowl.Breed, fowl.Bloodline,
		fowl.OwnerID, string(fowl.Stage), payload, c.stamp(), fowl.ID)
	if err != nil {
		return fmt.Errorf("update fowl %s: %w", fowl.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update fowl %s: %w", fowl.ID, err)
	}
	if n == 0 {
		return domain.ErrNotFound{Entity: domain.EntityFowl, ID: fowl.ID}
	}
	c.feed.Publish(domain.CacheEvent{Op: domain.CacheUpdate, FowlID: fowl.ID, Fowl: fowl.Clone()})
	return nil
}

// Delete removes a record. Missing records are ignored and emit no event.
func (c *Cache) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, queryDelete, id)
	if err != nil {
		return fmt.Errorf("delete fowl %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		c.feed.Publish(domain.CacheEvent{Op: domain.CacheDelete, FowlID: id})
	}
	return nil
}

// Get returns a cached record.
func (c *Cache) Get(ctx context.Context, id string) (domain.Fowl, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx, queryGet, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Fowl{}, domain.ErrNotFound{Entity: domain.EntityFowl, ID: id}
	}
	if err != nil {
		return domain.Fowl{}, fmt.Errorf("get fowl %s: %w", id, err)
	}
	return decode(payload)
}

// List returns every cached record ordered by name.
func (c *Cache) List(ctx context.Context) ([]domain.Fowl, error) {
	return c.query(ctx, queryList)
}

// QueryByField runs pattern as a LIKE expression against one searchable column.
func (c *Cache) QueryByField(ctx context.Context, field, pattern string) ([]domain.Fowl, error) {
	col, ok := searchColumns[field]
	if !ok {
		return nil, fmt.Errorf("query fowl cache: field %q is not searchable", field)
	}
	q := `SELECT payload FROM fowl_cache WHERE ` + col + ` LIKE ? ESCAPE '\' ORDER BY name COLLATE NOCASE, id`
	return c.query(ctx, q, pattern)
}

// Subscribe streams cache mutations.
func (c *Cache) Subscribe() (<-chan domain.CacheEvent, func()) {
	return c.feed.Subscribe()
}

// Close ends all subscriptions and closes the database.
func (c *Cache) Close() error {
	c.feed.Close()
	return c.db.Close()
}

func (c *Cache) query(ctx context.Context, q string, args ...any) ([]domain.Fowl, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query fowl cache: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Fowl
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan fowl: %w", err)
		}
		f, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fowl cache: %w", err)
	}
	return out, nil
}

func (c *Cache) stamp() string {
	return c.now().UTC().Format(time.RFC3339Nano)
}

func decode(payload []byte) (domain.Fowl, error) {
	var f domain.Fowl
	if err := json.Unmarshal(payload, &f); err != nil {
		return domain.Fowl{}, fmt.Errorf("decode fowl: %w", err)
	}
	return f, nil
}
