package driven

import (
	"context"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

// VectorStore persists vectors and answers nearest-neighbour queries.
//
// Errors are classified with domain.ErrStoreUnavailable when the backend
// cannot be reached, domain.ErrStoreWrite when an insert is rejected and
// domain.ErrQuery when search parameters are rejected.
type VectorStore interface {
	// CreateCollection creates the collection if it does not exist.
	// An existing collection is left untouched.
	CreateCollection(ctx context.Context, schema domain.CollectionSchema) error

	// Insert stores vec with optional metadata and returns the store-assigned ID.
	Insert(ctx context.Context, vec domain.Vector, meta domain.Metadata) (domain.RecordID, error)

	// Search returns up to params.Limit hits nearest to query.
	Search(ctx context.Context, query domain.Vector, params domain.SearchParams) ([]domain.Hit, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// Close releases resources.
	Close() error
}

// RecordReader is implemented by stores that can look a record up by ID.
// A missing record is reported with domain.ErrNotFound.
type RecordReader interface {
	Get(ctx context.Context, id domain.RecordID) (*domain.IndexedRecord, error)
}
