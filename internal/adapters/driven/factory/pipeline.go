package factory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/dquery/internal/adapters/driven/ocr/tesseract"
	"github.com/custodia-labs/dquery/internal/adapters/driven/raster/pdftoppm"
	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
	"github.com/custodia-labs/dquery/internal/core/services"
	"github.com/custodia-labs/dquery/internal/logger"
)

// Collaborators overrides adapters built from settings. Nil fields are
// created from settings.
type Collaborators struct {
	Rasterizer driven.Rasterizer
	OCR        driven.OCREngine
	Tokenizer  driven.Tokenizer
	Embedding  driven.EmbeddingService
	Store      driven.VectorStore
}

// InitResult contains the wired pipeline and the resources it owns.
type InitResult struct {
	Pipeline         *services.Pipeline
	EmbeddingService driven.EmbeddingService
	VectorStore      driven.VectorStore
	Schema           domain.CollectionSchema
	Warnings         []string // Non-fatal issues found while wiring.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() error {
	var errs []error
	if r.EmbeddingService != nil {
		errs = append(errs, r.EmbeddingService.Close())
	}
	if r.VectorStore != nil {
		errs = append(errs, r.VectorStore.Close())
	}
	return errors.Join(errs...)
}

// BuildPipeline validates settings, creates every adapter not supplied in
// collab, ensures the collection exists and returns the wired pipeline.
// When validate is true the embedding backend is pinged first.
func BuildPipeline(ctx context.Context, settings *domain.AppSettings, collab Collaborators, validate bool) (*InitResult, error) {
	defer logger.Timed("build pipeline")()

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	result := &InitResult{}
	ok := false
	defer func() {
		if !ok {
			result.Close()
		}
	}()

	embedder := collab.Embedding
	if embedder == nil {
		var err error
		if validate {
			embedder, err = CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
		} else {
			embedder, err = CreateEmbeddingService(&settings.Embedding)
		}
		if err != nil {
			return nil, err
		}
		result.EmbeddingService = embedder
	}

	tokenizer := collab.Tokenizer
	if tokenizer == nil {
		var err error
		if tokenizer, err = CreateTokenizer(settings.Embedding.VocabPath); err != nil {
			return nil, err
		}
	}

	schema := settings.Schema()
	if d := embedder.Dimensions(); d > 0 && d != schema.Dimension {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"model %s produces %d dimensions, embedding.dimensions is %d; using %d",
			embedder.ModelName(), d, schema.Dimension, d))
		schema.Dimension = d
	}
	result.Schema = schema

	store := collab.Store
	if store == nil {
		var err error
		if store, err = CreateVectorStore(ctx, &settings.Store); err != nil {
			return nil, err
		}
		result.VectorStore = store
	}

	extractor := CreateTextExtractor(&settings.OCR, collab.Rasterizer, collab.OCR)
	vectorizer := services.NewVectorizer(embedder, tokenizer, settings.Embedding.MaxTokens)
	writer := services.NewIndexWriter(store, schema)
	query := services.NewQueryEngine(vectorizer, store, services.QueryConfig{
		Metric: settings.Store.Metric,
		Effort: settings.Store.NProbe,
	})

	if err := writer.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}

	result.Pipeline = services.NewPipeline(extractor, vectorizer, writer, query)
	ok = true
	return result, nil
}

// CreateTextExtractor builds the OCR stage from settings. A nil rasterizer
// or ocr engine is replaced by the pdftoppm or tesseract adapter.
func CreateTextExtractor(settings *domain.OCRSettings, rasterizer driven.Rasterizer, ocr driven.OCREngine) *services.TextExtractor {
	if rasterizer == nil {
		rasterizer = pdftoppm.New(settings.DPI).WithTempDir(settings.TempDir)
	}
	if ocr == nil {
		ocr = tesseract.New()
	}
	return services.NewTextExtractor(rasterizer, ocr, services.ExtractorConfig{
		Language:    settings.Language,
		Policy:      settings.PagePolicy,
		PageTimeout: time.Duration(settings.PageTimeoutSecs) * time.Second,
	})
}

// CheckTools reports missing external OCR tools with install guidance.
func CheckTools() error {
	var errs []error
	if err := pdftoppm.CheckAvailable(); err != nil {
		errs = append(errs, fmt.Errorf("%w\n%s", err, pdftoppm.InstallInstructions()))
	}
	if err := tesseract.CheckAvailable(); err != nil {
		errs = append(errs, fmt.Errorf("%w\n%s", err, tesseract.InstallInstructions()))
	}
	return errors.Join(errs...)
}
