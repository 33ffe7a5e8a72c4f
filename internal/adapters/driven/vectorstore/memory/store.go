// Package memory provides an in-process vector store.
// Records live only as long as the process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/dquery/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
)

// Verify interface compliance.
var (
	_ driven.VectorStore  = (*Store)(nil)
	_ driven.RecordReader = (*Store)(nil)
)

// Store is a mutex-guarded in-memory vector store with exact search.
type Store struct {
	mu      sync.RWMutex
	schema  *domain.CollectionSchema
	records []domain.IndexedRecord
	nextID  domain.RecordID
	closed  bool
}

// New creates an empty store.
func New() *Store {
	return &Store{nextID: 1}
}

// CreateCollection sets the collection schema. A second call with the same
// name is a no-op; a different name is rejected.
func (s *Store) CreateCollection(_ context.Context, schema domain.CollectionSchema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: store closed", domain.ErrStoreUnavailable)
	}
	if s.schema != nil {
		if s.schema.Name != schema.Name {
			return fmt.Errorf("%w: store already holds collection %q", domain.ErrStoreUnavailable, s.schema.Name)
		}
		return nil
	}
	s.schema = &schema
	return nil
}

// Insert appends a record and returns its auto-incremented ID.
func (s *Store) Insert(_ context.Context, vec domain.Vector, meta domain.Metadata) (domain.RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return 0, err
	}
	if len(vec) != s.schema.Dimension {
		return 0, fmt.Errorf("%w: vector has %d dimensions, collection expects %d",
			domain.ErrStoreWrite, len(vec), s.schema.Dimension)
	}

	id := s.nextID
	s.nextID++
	s.records = append(s.records, domain.IndexedRecord{
		ID:       id,
		Vector:   append(domain.Vector(nil), vec...),
		Metadata: copyMetadata(meta),
	})
	return id, nil
}

// Search scores every record and returns the best params.Limit hits.
func (s *Store) Search(_ context.Context, query domain.Vector, params domain.SearchParams) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(query) != s.schema.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection expects %d",
			domain.ErrQuery, len(query), s.schema.Dimension)
	}

	hits := make([]domain.Hit, 0, len(s.records))
	for _, rec := range s.records {
		hits = append(hits, domain.Hit{ID: rec.ID, Score: vectorstore.Score(params.Metric, query, rec.Vector)})
	}
	return vectorstore.Rank(hits, params.Metric, params.Limit), nil
}

// Count returns the number of records.
func (s *Store) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(); err != nil {
		return 0, err
	}
	return int64(len(s.records)), nil
}

// Get returns a copy of the record with the given ID.
func (s *Store) Get(_ context.Context, id domain.RecordID) (*domain.IndexedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.ID == id {
			return &domain.IndexedRecord{
				ID:       rec.ID,
				Vector:   append(domain.Vector(nil), rec.Vector...),
				Metadata: copyMetadata(rec.Metadata),
			}, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Close marks the store closed. Later calls fail with ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ready must be called with the lock held.
func (s *Store) ready() error {
	if s.closed {
		return fmt.Errorf("%w: store closed", domain.ErrStoreUnavailable)
	}
	if s.schema == nil {
		return fmt.Errorf("%w: collection does not exist", domain.ErrStoreUnavailable)
	}
	return nil
}

func copyMetadata(meta domain.Metadata) domain.Metadata {
	if meta == nil {
		return nil
	}
	out := make(domain.Metadata, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
