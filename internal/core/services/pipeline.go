package services

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driving"
	"github.com/custodia-labs/dquery/internal/logger"
)

// Ensure Pipeline implements the interfaces.
var (
	_ driving.PipelineService   = (*Pipeline)(nil)
	_ driving.ExtractionService = (*Pipeline)(nil)
)

// Metadata keys attached to every indexed record.
const (
	MetaSource       = "source"
	MetaPages        = "pages"
	MetaIngestID     = "ingest_id"
	MetaModel        = "model"
	MetaIngestedAt   = "ingested_at"
	MetaSkippedPages = "skipped_pages"
)

// Pipeline orchestrates ingestion (extract, embed, index) and querying.
// It holds no per-call state and is safe for concurrent use when its
// collaborators are.
type Pipeline struct {
	extractor  *TextExtractor
	vectorizer *Vectorizer
	writer     *IndexWriter
	query      *QueryEngine
	now        func() time.Time
}

// NewPipeline creates a pipeline from its stages.
func NewPipeline(extractor *TextExtractor, vectorizer *Vectorizer, writer *IndexWriter, query *QueryEngine) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		vectorizer: vectorizer,
		writer:     writer,
		query:      query,
		now:        time.Now,
	}
}

// IngestDocument extracts, embeds and indexes doc.
// The store is only touched by the final stage.
func (p *Pipeline) IngestDocument(ctx context.Context, doc domain.Document) (domain.RecordID, error) {
	logger.Section("Ingest")
	defer logger.Timed("ingest " + doc.DisplayName())()

	text, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, err
	}

	vec, err := p.vectorizer.Embed(ctx, text.Text)
	if err != nil {
		return 0, err
	}

	id, err := p.writer.Index(ctx, vec, p.metadata(doc, text))
	if err != nil {
		return 0, err
	}

	logger.Info("Ingested %s as record %d", doc.DisplayName(), id)
	return id, nil
}

// RunQuery returns at most limit hits for queryText.
func (p *Pipeline) RunQuery(ctx context.Context, queryText string, limit int) (*domain.QueryResult, error) {
	return p.query.Search(ctx, queryText, limit)
}

// ExtractText extracts the text of doc without indexing it.
func (p *Pipeline) ExtractText(ctx context.Context, doc domain.Document) (*domain.ExtractedText, error) {
	return p.extractor.Extract(ctx, doc)
}

// Count returns the number of indexed records.
func (p *Pipeline) Count(ctx context.Context) (int64, error) {
	return p.writer.Count(ctx)
}

// Record returns the stored vector and metadata for id.
func (p *Pipeline) Record(ctx context.Context, id domain.RecordID) (*domain.IndexedRecord, error) {
	return p.writer.Get(ctx, id)
}

func (p *Pipeline) metadata(doc domain.Document, text *domain.ExtractedText) domain.Metadata {
	meta := domain.Metadata{
		MetaSource:     doc.DisplayName(),
		MetaPages:      strconv.Itoa(text.PageCount() + len(text.Skipped)),
		MetaIngestID:   uuid.New().String(),
		MetaModel:      p.vectorizer.ModelName(),
		MetaIngestedAt: p.now().UTC().Format(time.RFC3339),
	}
	if n := len(text.Skipped); n > 0 {
		meta[MetaSkippedPages] = strconv.Itoa(n)
	}
	return meta
}
