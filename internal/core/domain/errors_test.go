package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrDocumentRead", ErrDocumentRead},
		{"ErrExtraction", ErrExtraction},
		{"ErrEmbedding", ErrEmbedding},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrStoreUnavailable", ErrStoreUnavailable},
		{"ErrStoreWrite", ErrStoreWrite},
		{"ErrQuery", ErrQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrDocumentRead tests ErrDocumentRead error
func TestErrDocumentRead(t *testing.T) {
	assert.Equal(t, "document read failed", ErrDocumentRead.Error())
	assert.True(t, errors.Is(ErrDocumentRead, ErrDocumentRead))
	assert.False(t, errors.Is(ErrDocumentRead, ErrExtraction))
}

// TestErrQuery tests ErrQuery error
func TestErrQuery(t *testing.T) {
	assert.Equal(t, "query failed", ErrQuery.Error())
	assert.False(t, errors.Is(ErrQuery, ErrStoreUnavailable))
}

// TestErrors_Wrapped tests that wrapped errors keep their kind
func TestErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("%w: milvus at localhost:19530", ErrStoreUnavailable)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.False(t, errors.Is(err, ErrStoreWrite))
	assert.Contains(t, err.Error(), "vector store unavailable")
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"document read", ErrDocumentRead, KindDocumentRead},
		{"wrapped extraction", fmt.Errorf("%w: page 2", ErrExtraction), KindExtraction},
		{"embedding", ErrEmbedding, KindEmbedding},
		{"dimension mismatch", ErrDimensionMismatch, KindDimensionMismatch},
		{"store unavailable", ErrStoreUnavailable, KindStoreUnavailable},
		{"store write", ErrStoreWrite, KindStoreWrite},
		{"query", fmt.Errorf("outer: %w", fmt.Errorf("%w: limit", ErrQuery)), KindQuery},
		{"invalid input", ErrInvalidInput, KindInvalidInput},
		{"not found", ErrNotFound, KindNotFound},
		{"not implemented", ErrNotImplemented, KindNotImplemented},
		{"plain error", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ErrorKind(tt.err))
		})
	}
}

func TestIsStoreError(t *testing.T) {
	assert.True(t, IsStoreError(ErrStoreUnavailable))
	assert.True(t, IsStoreError(fmt.Errorf("%w: duplicate", ErrStoreWrite)))
	assert.True(t, IsStoreError(ErrQuery))
	assert.False(t, IsStoreError(errors.New("connection reset")))
	assert.False(t, IsStoreError(ErrEmbedding))
}

// TestPageError tests PageError formatting and unwrapping
func TestPageError(t *testing.T) {
	inner := errors.New("tesseract exited 1")
	err := &PageError{Page: 3, Err: inner}

	assert.Equal(t, "page 3: tesseract exited 1", err.Error())
	assert.True(t, errors.Is(err, inner))

	wrapped := fmt.Errorf("%w: %w", ErrExtraction, err)
	var pe *PageError
	assert.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, 3, pe.Page)
	assert.True(t, errors.Is(wrapped, ErrExtraction))
}
