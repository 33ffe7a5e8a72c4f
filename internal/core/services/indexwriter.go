package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
	"github.com/custodia-labs/dquery/internal/logger"
)

// IndexWriter submits vectors to the store, which assigns their IDs.
type IndexWriter struct {
	store  driven.VectorStore
	schema domain.CollectionSchema
}

// NewIndexWriter creates an index writer for the given collection.
func NewIndexWriter(store driven.VectorStore, schema domain.CollectionSchema) *IndexWriter {
	return &IndexWriter{
		store:  store,
		schema: schema,
	}
}

// Schema returns the collection schema.
func (w *IndexWriter) Schema() domain.CollectionSchema {
	return w.schema
}

// EnsureCollection creates the collection if it does not already exist.
func (w *IndexWriter) EnsureCollection(ctx context.Context) error {
	if err := w.schema.Validate(); err != nil {
		return err
	}
	logger.Debug("Ensuring collection %s (dim=%d, metric=%s)", w.schema.Name, w.schema.Dimension, w.schema.Metric)
	if err := w.store.CreateCollection(ctx, w.schema); err != nil {
		return classifyStoreErr(err, domain.ErrStoreUnavailable)
	}
	return nil
}

// Index stores vec with meta and returns the assigned record ID.
// A vector of the wrong dimension is rejected without touching the store.
func (w *IndexWriter) Index(ctx context.Context, vec domain.Vector, meta domain.Metadata) (domain.RecordID, error) {
	defer logger.Timed("index")()

	if vec.Dimension() != w.schema.Dimension {
		return 0, fmt.Errorf("%w: got %d, collection %s expects %d",
			domain.ErrDimensionMismatch, vec.Dimension(), w.schema.Name, w.schema.Dimension)
	}

	id, err := w.store.Insert(ctx, vec, meta)
	if err != nil {
		return 0, classifyStoreErr(err, domain.ErrStoreWrite)
	}

	logger.Debug("Indexed record %d into %s", id, w.schema.Name)
	return id, nil
}

// Count returns the number of records in the collection.
func (w *IndexWriter) Count(ctx context.Context) (int64, error) {
	n, err := w.store.Count(ctx)
	if err != nil {
		return 0, classifyStoreErr(err, domain.ErrStoreUnavailable)
	}
	return n, nil
}

// Get returns the record with id when the store supports lookups.
func (w *IndexWriter) Get(ctx context.Context, id domain.RecordID) (*domain.IndexedRecord, error) {
	reader, ok := w.store.(driven.RecordReader)
	if !ok {
		return nil, fmt.Errorf("%w: store does not support record lookup", domain.ErrNotImplemented)
	}

	rec, err := reader.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("record %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, classifyStoreErr(err, domain.ErrQuery)
	}
	return rec, nil
}

// classifyStoreErr keeps errors that already carry a store kind and wraps
// the rest with fallback.
func classifyStoreErr(err, fallback error) error {
	if domain.IsStoreError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", fallback, err)
}
