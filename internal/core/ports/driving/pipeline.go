package driving

import (
	"context"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

// PipelineService indexes documents and answers semantic queries.
type PipelineService interface {
	// IngestDocument extracts, embeds and indexes a document.
	// On failure nothing is written to the store.
	IngestDocument(ctx context.Context, doc domain.Document) (domain.RecordID, error)

	// RunQuery embeds queryText and returns at most limit ranked hits.
	RunQuery(ctx context.Context, queryText string, limit int) (*domain.QueryResult, error)

	// Count returns the number of indexed records.
	Count(ctx context.Context) (int64, error)

	// Record returns the stored vector and metadata for id.
	Record(ctx context.Context, id domain.RecordID) (*domain.IndexedRecord, error)
}

// ExtractionService extracts text without indexing it.
type ExtractionService interface {
	// ExtractText rasterises and OCRs a document.
	ExtractText(ctx context.Context, doc domain.Document) (*domain.ExtractedText, error)
}
