package driven

import (
	"context"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

// OCREngine recognises text on a single page image.
type OCREngine interface {
	// Recognize returns the text found on page using the given language code.
	// An empty string is a valid result for a page with no text.
	Recognize(ctx context.Context, page domain.PageImage, language string) (string, error)
}
