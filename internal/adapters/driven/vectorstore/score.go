package vectorstore

import (
	"math"
	"sort"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

// Score compares a stored vector against a query under metric.
// IP is the inner product, COSINE the cosine similarity and L2 the squared
// Euclidean distance, matching the values Milvus reports.
// Vectors are assumed to have equal length.
func Score(metric domain.Metric, query, stored domain.Vector) float64 {
	switch metric {
	case domain.MetricL2:
		var sum float64
		for i := range query {
			d := float64(query[i]) - float64(stored[i])
			sum += d * d
		}
		return sum
	case domain.MetricCosine:
		var dot, qn, sn float64
		for i := range query {
			q, s := float64(query[i]), float64(stored[i])
			dot += q * s
			qn += q * q
			sn += s * s
		}
		if qn == 0 || sn == 0 {
			return 0
		}
		return dot / (math.Sqrt(qn) * math.Sqrt(sn))
	default:
		var dot float64
		for i := range query {
			dot += float64(query[i]) * float64(stored[i])
		}
		return dot
	}
}

// Rank orders hits best-first under metric and keeps at most limit of them.
// Equal scores keep their input order.
func Rank(hits []domain.Hit, metric domain.Metric, limit int) []domain.Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		return metric.Better(hits[i].Score, hits[j].Score)
	})
	if limit >= 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
