package search

import "errors"

// Error definitions for the search view.
var (
	// ErrNoPipelineService indicates that no pipeline service was provided.
	ErrNoPipelineService = errors.New("pipeline service is required")

	// ErrNoExtractionService indicates that opening PDFs is not available.
	ErrNoExtractionService = errors.New("text extraction is not available")

	// ErrNoPath indicates the input holds no PDF path to open or index.
	ErrNoPath = errors.New("enter a PDF path first")
)
