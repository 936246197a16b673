// Package memory implements an in-memory remote document store for tests and
// demo mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"flockcore/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

// Store implements domain.DocumentStore backed by process memory.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

// New returns an empty in-memory document store.
func New() *Store { return &Store{collections: make(map[string]map[string][]byte)} }

// Get returns a copy of the stored document.
func (s *Store) Get(_ context.Context, collection, id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.collections[collection][id]
	if !ok {
		return domain.Document{}, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrDocumentNotFound)
	}
	return domain.Document{Collection: collection, ID: id, Data: cloneBytes(data)}, nil
}

// Put creates or replaces the document.
func (s *Store) Put(_ context.Context, doc domain.Document) error {
	if doc.Collection == "" || doc.ID == "" {
		return fmt.Errorf("document collection and id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[doc.Collection]
	if !ok {
		coll = make(map[string][]byte)
		s.collections[doc.Collection] = coll
	}
	coll[doc.ID] = cloneBytes(doc.Data)
	return nil
}

// Delete removes the document if present.
func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

// List returns all documents of a collection ordered by ID.
func (s *Store) List(_ context.Context, collection string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll := s.collections[collection]
	out := make([]domain.Document, 0, len(coll))
	for id, data := range coll {
		out = append(out, domain.Document{Collection: collection, ID: id, Data: cloneBytes(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
