package domain

import (
	"fmt"
	"strings"
)

// Vector is a fixed-dimension embedding.
type Vector []float32

// Dimension returns the vector length.
func (v Vector) Dimension() int {
	return len(v)
}

// RecordID is a store-assigned identifier for an indexed vector.
type RecordID int64

// Metadata holds optional non-text attributes stored alongside a vector.
// The extracted document text is never part of it.
type Metadata map[string]string

// IndexedRecord pairs a store-assigned identifier with its vector.
type IndexedRecord struct {
	ID       RecordID
	Vector   Vector
	Metadata Metadata
}

// Metric is the similarity metric used by the vector store.
type Metric string

// Supported metrics.
const (
	// MetricIP is inner product. Higher is more similar.
	MetricIP Metric = "IP"

	// MetricL2 is Euclidean distance. Lower is more similar.
	MetricL2 Metric = "L2"

	// MetricCosine is cosine similarity. Higher is more similar.
	MetricCosine Metric = "COSINE"
)

// ParseMetric parses a metric name case-insensitively.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, s)
	}
	return m, nil
}

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	switch m {
	case MetricIP, MetricL2, MetricCosine:
		return true
	default:
		return false
	}
}

// HigherIsBetter reports the ranking direction of the metric.
func (m Metric) HigherIsBetter() bool {
	return m != MetricL2
}

// Better reports whether score a ranks strictly ahead of score b.
func (m Metric) Better(a, b float64) bool {
	if m.HigherIsBetter() {
		return a > b
	}
	return a < b
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// VectorField is the name of the vector field in every collection.
const VectorField = "text_vector"

// IDField is the name of the auto-generated primary key field.
const IDField = "id"

// CollectionSchema describes a vector collection: an auto-generated int64
// primary key and a fixed-dimension float vector.
type CollectionSchema struct {
	// Name is the collection name.
	Name string

	// Dimension is the vector length every record must have.
	Dimension int

	// Metric is the metric the collection index is built for.
	Metric Metric

	// Description is free text stored with the collection where supported.
	Description string
}

// Validate checks the schema is usable.
func (s CollectionSchema) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: collection dimension must be positive", ErrInvalidInput)
	}
	if !s.Metric.IsValid() {
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, s.Metric)
	}
	return nil
}
