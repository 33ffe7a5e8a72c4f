package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
	"github.com/custodia-labs/dquery/internal/core/ports/driving"
	"github.com/custodia-labs/dquery/internal/logger"
)

// Ensure TextExtractor can serve extraction on its own.
var _ driving.ExtractionService = (*TextExtractor)(nil)

// ExtractorConfig configures text extraction.
type ExtractorConfig struct {
	// Language is the OCR language code. Defaults to "eng".
	Language string

	// Policy decides how single-page OCR failures are handled.
	// Defaults to domain.PageFailureAbort.
	Policy domain.PageFailurePolicy

	// PageTimeout bounds OCR of one page. Zero disables the bound.
	PageTimeout time.Duration
}

// TextExtractor turns a PDF into text by rasterising every page and
// running OCR over the page images in order.
type TextExtractor struct {
	rasterizer driven.Rasterizer
	ocr        driven.OCREngine
	cfg        ExtractorConfig
}

// NewTextExtractor creates a text extractor.
func NewTextExtractor(rasterizer driven.Rasterizer, ocr driven.OCREngine, cfg ExtractorConfig) *TextExtractor {
	if cfg.Language == "" {
		cfg.Language = domain.DefaultOCRLanguage
	}
	if !cfg.Policy.IsValid() {
		cfg.Policy = domain.PageFailureAbort
	}
	return &TextExtractor{
		rasterizer: rasterizer,
		ocr:        ocr,
		cfg:        cfg,
	}
}

// ExtractText extracts doc without touching any other pipeline stage.
func (e *TextExtractor) ExtractText(ctx context.Context, doc domain.Document) (*domain.ExtractedText, error) {
	return e.Extract(ctx, doc)
}

// Extract rasterises doc and concatenates the OCR output of each page.
// Page images are always released before returning.
func (e *TextExtractor) Extract(ctx context.Context, doc domain.Document) (*domain.ExtractedText, error) {
	logger.Section("Extract")
	defer logger.Timed("extract")()

	if doc.IsEmpty() {
		return nil, fmt.Errorf("%w: document has no path or content", domain.ErrDocumentRead)
	}

	path, cleanup, err := materialise(doc)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	logger.Debug("Rasterising %s", doc.DisplayName())
	raster, err := e.rasterizer.Rasterize(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDocumentRead, doc.DisplayName(), err)
	}
	defer func() {
		if err := raster.Close(); err != nil {
			logger.Warn("Releasing page images for %s: %v", doc.DisplayName(), err)
		}
	}()

	if len(raster.Pages) == 0 {
		return nil, fmt.Errorf("%w: %s: no pages", domain.ErrDocumentRead, doc.DisplayName())
	}
	logger.Debug("Rasterised %d pages", len(raster.Pages))

	result := &domain.ExtractedText{
		Pages: make([]domain.PageText, 0, len(raster.Pages)),
	}
	var sb strings.Builder

	for _, page := range raster.Pages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
		}

		text, err := e.recognize(ctx, page)
		if err != nil {
			pageErr := &domain.PageError{Page: page.Number, Err: err}
			if e.cfg.Policy == domain.PageFailureAbort || ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, pageErr)
			}
			logger.Warn("Skipping %s: %v", doc.DisplayName(), pageErr)
			result.Skipped = append(result.Skipped, *pageErr)
			continue
		}

		logger.Debug("Page %d: %d chars", page.Number, len(text))
		sb.WriteString(text)
		result.Pages = append(result.Pages, domain.PageText{Number: page.Number, Text: text})
	}

	if len(result.Pages) == 0 {
		first := result.Skipped[0]
		return nil, fmt.Errorf("%w: %s: every page failed OCR: %w", domain.ErrExtraction, doc.DisplayName(), &first)
	}

	result.Text = sb.String()
	return result, nil
}

func (e *TextExtractor) recognize(ctx context.Context, page domain.PageImage) (string, error) {
	if e.cfg.PageTimeout <= 0 {
		return e.ocr.Recognize(ctx, page, e.cfg.Language)
	}

	pageCtx, cancel := context.WithTimeout(ctx, e.cfg.PageTimeout)
	defer cancel()

	text, err := e.ocr.Recognize(pageCtx, page, e.cfg.Language)
	if err != nil && errors.Is(pageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", fmt.Errorf("ocr timed out after %s: %w", e.cfg.PageTimeout, err)
	}
	return text, err
}

// materialise returns a filesystem path for doc, spooling in-memory
// content to a temporary file when needed.
func materialise(doc domain.Document) (string, func(), error) {
	if len(doc.Content) == 0 {
		if _, err := os.Stat(doc.Path); err != nil {
			return "", nil, fmt.Errorf("%w: %w", domain.ErrDocumentRead, err)
		}
		return doc.Path, func() {}, nil
	}

	f, err := os.CreateTemp("", "dquery-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("%w: spooling %s: %w", domain.ErrDocumentRead, doc.DisplayName(), err)
	}
	cleanup := func() {
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			logger.Warn("Removing spool file %s: %v", f.Name(), err)
		}
	}

	if _, err := f.Write(doc.Content); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("%w: spooling %s: %w", domain.ErrDocumentRead, doc.DisplayName(), err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%w: spooling %s: %w", domain.ErrDocumentRead, doc.DisplayName(), err)
	}
	return f.Name(), cleanup, nil
}
