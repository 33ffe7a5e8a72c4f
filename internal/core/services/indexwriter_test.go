package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

func testSchema(dim int) domain.CollectionSchema {
	return domain.CollectionSchema{Name: "pdf_text_search", Dimension: dim, Metric: domain.MetricIP}
}

func TestIndexWriter_Index(t *testing.T) {
	store := &mockVectorStore{}
	w := NewIndexWriter(store, testSchema(3))

	id1, err := w.Index(context.Background(), domain.Vector{1, 0, 0}, domain.Metadata{"source": "a.pdf"})
	require.NoError(t, err)
	id2, err := w.Index(context.Background(), domain.Vector{0, 1, 0}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Len(t, store.records, 2)
	assert.Equal(t, "a.pdf", store.records[0].Metadata["source"])
}

func TestIndexWriter_Index_DimensionMismatch(t *testing.T) {
	store := &mockVectorStore{}
	w := NewIndexWriter(store, testSchema(768))

	_, err := w.Index(context.Background(), make(domain.Vector, 384), nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
	assert.Equal(t, 0, store.insertCalls)
}

func TestIndexWriter_Index_StoreErrors(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		wantKind error
	}{
		{"unavailable kept", fmt.Errorf("%w: dial tcp", domain.ErrStoreUnavailable), domain.ErrStoreUnavailable},
		{"write kept", fmt.Errorf("%w: rejected", domain.ErrStoreWrite), domain.ErrStoreWrite},
		{"bare error classified as write", errors.New("disk full"), domain.ErrStoreWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewIndexWriter(&mockVectorStore{insertErr: tt.storeErr}, testSchema(2))
			_, err := w.Index(context.Background(), domain.Vector{1, 2}, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind))
		})
	}
}

func TestIndexWriter_EnsureCollection(t *testing.T) {
	store := &mockVectorStore{}
	w := NewIndexWriter(store, testSchema(768))

	require.NoError(t, w.EnsureCollection(context.Background()))
	require.NotNil(t, store.schema)
	assert.Equal(t, "pdf_text_search", store.schema.Name)
	assert.Equal(t, 768, store.schema.Dimension)
}

func TestIndexWriter_EnsureCollection_InvalidSchema(t *testing.T) {
	store := &mockVectorStore{}
	w := NewIndexWriter(store, domain.CollectionSchema{Name: "x"})

	err := w.EnsureCollection(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Nil(t, store.schema)
}

func TestIndexWriter_EnsureCollection_StoreDown(t *testing.T) {
	w := NewIndexWriter(&mockVectorStore{createErr: errors.New("connection refused")}, testSchema(4))

	err := w.EnsureCollection(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}

func TestIndexWriter_Count(t *testing.T) {
	store := &mockVectorStore{}
	w := NewIndexWriter(store, testSchema(1))
	_, err := w.Index(context.Background(), domain.Vector{1}, nil)
	require.NoError(t, err)

	n, err := w.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "pdf_text_search", w.Schema().Name)
}

func TestIndexWriter_Get(t *testing.T) {
	ctx := context.Background()
	store := &mockVectorStore{}
	w := NewIndexWriter(store, testSchema(2))

	id, err := w.Index(ctx, domain.Vector{1, 0}, domain.Metadata{"source": "a.pdf"})
	require.NoError(t, err)

	rec, err := w.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "a.pdf", rec.Metadata["source"])

	_, err = w.Get(ctx, id+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.KindNotFound, domain.ErrorKind(err))
}

func TestIndexWriter_Get_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewIndexWriter(scanOnlyStore{&mockVectorStore{}}, testSchema(2)).Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)

	store := &mockVectorStore{getErr: fmt.Errorf("%w: connection reset", domain.ErrStoreUnavailable)}
	_, err = NewIndexWriter(store, testSchema(2)).Get(ctx, 1)
	assert.Equal(t, domain.KindStoreUnavailable, domain.ErrorKind(err))

	store = &mockVectorStore{getErr: errors.New("decode metadata")}
	_, err = NewIndexWriter(store, testSchema(2)).Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrQuery)
}
