package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// Pipeline Errors.

	// ErrDocumentRead indicates the document cannot be opened or rasterised.
	ErrDocumentRead = errors.New("document read failed")

	// ErrExtraction indicates the OCR engine failed on a page.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmbedding indicates the embedding backend failed or returned a
	// vector of the wrong dimension.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch indicates a vector does not match the collection dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// Store Errors.

	// ErrStoreUnavailable indicates the vector store cannot be reached.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrStoreWrite indicates the vector store rejected an insert.
	ErrStoreWrite = errors.New("vector store write failed")

	// ErrQuery indicates an invalid query or a search rejected by the store.
	ErrQuery = errors.New("query failed")
)

// Error kind names, stable across releases for front-ends and scripts.
const (
	KindDocumentRead      = "document_read"
	KindExtraction        = "extraction"
	KindEmbedding         = "embedding"
	KindDimensionMismatch = "dimension_mismatch"
	KindStoreUnavailable  = "store_unavailable"
	KindStoreWrite        = "store_write"
	KindQuery             = "query"
	KindInvalidInput      = "invalid_input"
	KindNotFound          = "not_found"
	KindNotImplemented    = "not_implemented"
	KindUnknown           = "unknown"
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrDocumentRead, KindDocumentRead},
	{ErrExtraction, KindExtraction},
	{ErrEmbedding, KindEmbedding},
	{ErrDimensionMismatch, KindDimensionMismatch},
	{ErrStoreUnavailable, KindStoreUnavailable},
	{ErrStoreWrite, KindStoreWrite},
	{ErrQuery, KindQuery},
	{ErrInvalidInput, KindInvalidInput},
	{ErrNotFound, KindNotFound},
	{ErrNotImplemented, KindNotImplemented},
}

// ErrorKind returns the kind name of the first domain error found in err's
// chain, or KindUnknown. It returns an empty string for a nil error.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// IsStoreError reports whether err carries one of the store error kinds.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrStoreWrite) ||
		errors.Is(err, ErrQuery)
}
