package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrDocumentNotFound is returned by DocumentStore implementations when a
// document does not exist in the requested collection.
var ErrDocumentNotFound = errors.New("document not found")

// ErrNotFound is returned when a cached record is missing.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Document is a raw JSON document held in a remote collection.
type Document struct {
	Collection string
	ID         string
	Data       []byte
}

// DocumentStore is the remote document database consumed by repositories.
// Implementations store opaque JSON payloads keyed by collection and ID.
type DocumentStore interface {
	// Get returns the document or an error wrapping ErrDocumentNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Put creates or replaces the document.
	Put(ctx context.Context, doc Document) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// List returns every document in a collection ordered by ID.
	List(ctx context.Context, collection string) ([]Document, error)
}

// CacheOp identifies a mutation applied to the local cache.
type CacheOp string

// Cache mutation kinds.
const (
	CacheInsert CacheOp = "insert"
	CacheUpdate CacheOp = "update"
	CacheDelete CacheOp = "delete"
)

// CacheEvent is emitted on the cache change stream after each mutation.
type CacheEvent struct {
	Op     CacheOp `json:"op"`
	FowlID string  `json:"fowl_id"`
	// Fowl is the stored record; zero for deletes.
	Fowl Fowl `json:"fowl"`
}

// Searchable cache fields accepted by FowlCache.QueryByField.
const (
	FieldName      = "name"
	FieldBreed     = "breed"
	FieldBloodline = "bloodline"
	FieldOwnerID   = "owner_id"
	FieldStage     = "stage"
)

// SearchableFields lists the cache columns that support QueryByField.
func SearchableFields() []string {
	return []string{FieldName, FieldBreed, FieldBloodline, FieldOwnerID, FieldStage}
}

// ErrDuplicate is returned by FowlCache.Insert when the ID already exists.
var ErrDuplicate = errors.New("record already exists")

// FowlCache is the local on-device table mirroring remote fowl documents.
type FowlCache interface {
	Insert(ctx context.Context, fowl Fowl) error
	Update(ctx context.Context, fowl Fowl) error
	Delete(ctx context.Context, id string) error
	// Get returns ErrNotFound when the record is not cached.
	Get(ctx context.Context, id string) (Fowl, error)
	List(ctx context.Context) ([]Fowl, error)
	// QueryByField matches field against a SQL LIKE pattern ('%', '_' and a
	// backslash escape).
	QueryByField(ctx context.Context, field, pattern string) ([]Fowl, error)
	// Subscribe returns a stream of cache mutations and a cancel function.
	Subscribe() (<-chan CacheEvent, func())
	Close() error
}
