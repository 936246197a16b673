// Package postgres provides a Postgres-backed remote document store. Documents
// are kept as JSONB payloads keyed by collection and ID.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"flockcore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.DocumentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with docstore.Open defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/flockcore?sslmode=disable"
)

const (
	ddlDocuments = `CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (collection, id)
	)`
	queryGet    = `SELECT payload FROM documents WHERE collection = $1 AND id = $2`
	queryList   = `SELECT id, payload FROM documents WHERE collection = $1 ORDER BY id`
	queryUpsert = `INSERT INTO documents (collection, id, payload, updated_at) VALUES ($1, $2, $3, $4) ON CONFLICT (collection, id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	queryDelete = `DELETE FROM documents WHERE collection = $1 AND id = $2`
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists documents to Postgres.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens a Postgres-backed document store using the provided DSN
// (falls back to defaultDSN), pings it and ensures the documents table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, ddlDocuments); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure documents table: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Get loads a single document.
func (s *Store) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, queryGet, collection, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrDocumentNotFound)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("select %s/%s: %w", collection, id, err)
	}
	return domain.Document{Collection: collection, ID: id, Data: payload}, nil
}

// Put upserts a document.
func (s *Store) Put(ctx context.Context, doc domain.Document) error {
	if doc.Collection == "" || doc.ID == "" {
		return fmt.Errorf("document collection and id required")
	}
	if _, err := s.db.ExecContext(ctx, queryUpsert, doc.Collection, doc.ID, doc.Data, s.now()); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

// Delete removes a document; missing documents are ignored.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, queryDelete, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// List returns every document in the collection ordered by ID.
func (s *Store) List(ctx context.Context, collection string) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, queryList, collection)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Document
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, domain.Document{Collection: collection, ID: id, Data: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
