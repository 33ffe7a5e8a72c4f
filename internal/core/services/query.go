package services

import (
	"context"
	"sort"

	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
	"github.com/custodia-labs/dquery/internal/logger"
)

// QueryConfig configures nearest-neighbour search.
type QueryConfig struct {
	// Metric defaults to domain.MetricIP.
	Metric domain.Metric

	// Effort is the approximate-search effort. Defaults to domain.DefaultSearchEffort.
	Effort int
}

// QueryEngine answers free-text queries against the vector store.
type QueryEngine struct {
	vectorizer *Vectorizer
	store      driven.VectorStore
	cfg        QueryConfig
}

// NewQueryEngine creates a query engine.
func NewQueryEngine(vectorizer *Vectorizer, store driven.VectorStore, cfg QueryConfig) *QueryEngine {
	if !cfg.Metric.IsValid() {
		cfg.Metric = domain.MetricIP
	}
	if cfg.Effort <= 0 {
		cfg.Effort = domain.DefaultSearchEffort
	}
	return &QueryEngine{
		vectorizer: vectorizer,
		store:      store,
		cfg:        cfg,
	}
}

// Metric returns the metric used for ranking.
func (q *QueryEngine) Metric() domain.Metric {
	return q.cfg.Metric
}

// Search embeds queryText and returns at most limit hits, best first.
// A non-positive limit fails before any embedding or store call.
func (q *QueryEngine) Search(ctx context.Context, queryText string, limit int) (*domain.QueryResult, error) {
	logger.Section("Search")
	logger.Debug("Query: %q, limit: %d", queryText, limit)

	params := domain.SearchParams{
		Metric: q.cfg.Metric,
		Effort: q.cfg.Effort,
		Limit:  limit,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	vec, err := q.vectorizer.Embed(ctx, queryText)
	if err != nil {
		return nil, err
	}

	done := logger.Timed("vector search")
	hits, err := q.store.Search(ctx, vec, params)
	done()
	if err != nil {
		return nil, classifyStoreErr(err, domain.ErrQuery)
	}

	metric := params.Metric
	sort.SliceStable(hits, func(i, j int) bool {
		return metric.Better(hits[i].Score, hits[j].Score)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []domain.Hit{}
	}

	logger.Debug("Returning %d hits", len(hits))
	return &domain.QueryResult{
		Query:  queryText,
		Metric: metric,
		Hits:   hits,
	}, nil
}

