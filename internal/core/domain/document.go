package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Document is a multi-page PDF submitted for ingestion.
// It is transient and only lives for the duration of one pipeline call.
type Document struct {
	// Path is the location of the PDF on disk.
	Path string

	// Name is a display name. Defaults to the base name of Path.
	Name string

	// Content holds the PDF bytes when the document arrives as a stream.
	// When set it takes precedence over Path.
	Content []byte
}

// IsEmpty reports whether the document has neither a path nor content.
func (d Document) IsEmpty() bool {
	return strings.TrimSpace(d.Path) == "" && len(d.Content) == 0
}

// DisplayName returns Name, falling back to the base name of Path.
func (d Document) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Path != "" {
		return filepath.Base(d.Path)
	}
	return "stream"
}

// PageImage is a rasterised representation of one page.
// It is created by the rasteriser and released once OCR has run.
type PageImage struct {
	// Number is the 1-based page number.
	Number int

	// Path is the image file location.
	Path string

	// Format is the image encoding (e.g. "png").
	Format string
}

// PageText is the OCR output of a single page.
type PageText struct {
	Number int
	Text   string
}

// PageError records a page that failed OCR.
type PageError struct {
	// Page is the 1-based page number.
	Page int

	// Err is the underlying OCR failure.
	Err error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

// Unwrap returns the underlying error.
func (e *PageError) Unwrap() error {
	return e.Err
}

// ExtractedText is the page-ordered concatenation of per-page OCR output.
// Text may be empty when no page contains recognisable text.
type ExtractedText struct {
	// Text is the plain concatenation of page texts, with no separator added.
	Text string

	// Pages holds per-page output in page order.
	Pages []PageText

	// Skipped lists pages dropped under the skip page-failure policy.
	Skipped []PageError
}

// PageCount returns the number of pages that produced text.
func (e *ExtractedText) PageCount() int {
	return len(e.Pages)
}
