// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/dquery/internal/core/domain"
)

// SearchRequested is a command to perform a search.
type SearchRequested struct {
	Query string
	Limit int
}

// SearchCompleted carries query results back to the model.
type SearchCompleted struct {
	Result *domain.QueryResult
	Err    error
}

// TextExtracted carries the OCR output of a PDF loaded from the input.
type TextExtracted struct {
	Path string
	Text *domain.ExtractedText
	Err  error
}

// DocumentIngested signals a PDF was indexed.
type DocumentIngested struct {
	Path string
	ID   domain.RecordID
	Err  error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSearch is the query input and results view.
	ViewSearch ViewType = iota
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
