package domain

import "fmt"

// DefaultSearchLimit is the number of results returned when no limit is given.
const DefaultSearchLimit = 5

// DefaultSearchEffort is the default number of index lists scanned per query.
const DefaultSearchEffort = 10

// SearchParams configures a nearest-neighbour search against the store.
type SearchParams struct {
	// Metric is the similarity metric.
	Metric Metric

	// Effort is the number of index lists scanned per query (nprobe).
	// Higher values trade latency for recall.
	Effort int

	// Limit is the exact number of results requested.
	Limit int
}

// Validate checks the parameters are well formed.
func (p SearchParams) Validate() error {
	if p.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrQuery, p.Limit)
	}
	if p.Effort < 0 {
		return fmt.Errorf("%w: search effort must not be negative, got %d", ErrQuery, p.Effort)
	}
	if !p.Metric.IsValid() {
		return fmt.Errorf("%w: unknown metric %q", ErrQuery, p.Metric)
	}
	return nil
}

// Hit is a single nearest-neighbour match.
type Hit struct {
	// ID is the matched record.
	ID RecordID `json:"id"`

	// Score is the distance or similarity reported by the store.
	Score float64 `json:"distance"`
}

// QueryResult is a ranked list of hits, best match first.
type QueryResult struct {
	// Query is the query text as submitted.
	Query string `json:"query"`

	// Metric decides the ranking direction of Score.
	Metric Metric `json:"metric"`

	// Hits holds at most the requested number of matches.
	Hits []Hit `json:"hits"`
}

// Len returns the number of hits.
func (r *QueryResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Hits)
}
