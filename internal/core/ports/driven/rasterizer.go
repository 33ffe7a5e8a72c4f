package driven

import (
	"context"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

// RasterResult holds the page images produced from one document.
type RasterResult struct {
	// Pages holds one image per page, in page order.
	Pages []domain.PageImage

	// Release deletes the page images. It is safe to call more than once.
	Release func() error
}

// Close calls Release if set.
func (r *RasterResult) Close() error {
	if r == nil || r.Release == nil {
		return nil
	}
	return r.Release()
}

// Rasterizer converts a PDF file into one image per page.
type Rasterizer interface {
	// Rasterize renders every page of the PDF at path.
	// The caller owns the returned images and must call Release.
	Rasterize(ctx context.Context, path string) (*RasterResult, error)
}
