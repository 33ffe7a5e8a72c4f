package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

func TestNewQueryEngine_Defaults(t *testing.T) {
	q := NewQueryEngine(NewVectorizer(&mockEmbeddingService{}, nil, 0), &mockVectorStore{}, QueryConfig{})
	assert.Equal(t, domain.MetricIP, q.Metric())
	assert.Equal(t, domain.DefaultSearchEffort, q.cfg.Effort)
}

func TestQueryEngine_Search_InvalidLimit(t *testing.T) {
	for _, limit := range []int{0, -1} {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			embedder := &mockEmbeddingService{}
			store := &mockVectorStore{}
			q := NewQueryEngine(NewVectorizer(embedder, nil, 0), store, QueryConfig{})

			_, err := q.Search(context.Background(), "hello", limit)

			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrQuery))
			assert.Empty(t, embedder.inputs, "no embedding call")
			assert.Equal(t, 0, store.searchCalls, "no store call")
		})
	}
}

func TestQueryEngine_Search_PassesParams(t *testing.T) {
	store := &mockVectorStore{hits: []domain.Hit{}}
	q := NewQueryEngine(NewVectorizer(&mockEmbeddingService{}, nil, 0), store, QueryConfig{
		Metric: domain.MetricL2,
		Effort: 32,
	})

	result, err := q.Search(context.Background(), "hello", 7)

	require.NoError(t, err)
	assert.Equal(t, domain.SearchParams{Metric: domain.MetricL2, Effort: 32, Limit: 7}, store.lastParams)
	assert.Equal(t, "hello", result.Query)
	assert.Equal(t, domain.MetricL2, result.Metric)
	assert.NotNil(t, result.Hits)
	assert.Empty(t, result.Hits)
}

func TestQueryEngine_Search_RanksByMetric(t *testing.T) {
	hits := []domain.Hit{{ID: 1, Score: 0.2}, {ID: 2, Score: 0.9}, {ID: 3, Score: 0.5}}

	t.Run("IP descending", func(t *testing.T) {
		q := NewQueryEngine(NewVectorizer(&mockEmbeddingService{}, nil, 0), &mockVectorStore{hits: hits}, QueryConfig{})
		result, err := q.Search(context.Background(), "x", 5)
		require.NoError(t, err)
		assert.Equal(t, []domain.RecordID{2, 3, 1}, ids(result))
		for i := 1; i < len(result.Hits); i++ {
			assert.GreaterOrEqual(t, result.Hits[i-1].Score, result.Hits[i].Score)
		}
	})

	t.Run("L2 ascending", func(t *testing.T) {
		q := NewQueryEngine(NewVectorizer(&mockEmbeddingService{}, nil, 0), &mockVectorStore{hits: hits},
			QueryConfig{Metric: domain.MetricL2})
		result, err := q.Search(context.Background(), "x", 5)
		require.NoError(t, err)
		assert.Equal(t, []domain.RecordID{1, 3, 2}, ids(result))
	})
}

func TestQueryEngine_Search_StableTies(t *testing.T) {
	hits := []domain.Hit{{ID: 9, Score: 0.5}, {ID: 4, Score: 0.5}, {ID: 6, Score: 0.7}, {ID: 1, Score: 0.5}}
	q := NewQueryEngine(NewVectorizer(&mockEmbeddingService{}, nil, 0), &mockVectorStore{hits: hits}, QueryConfig{})

	result, err := q.Search(context.Background(), "x", 10)

	require.NoError(t, err)
	assert.Equal(t, []domain.RecordID{6, 9, 4, 1}, ids(result))
}

func TestQueryEngine_Search_AtMostLimit(t *testing.T) {
	hits := []domain.Hit{{ID: 1, Score: 3}, {ID: 2, Score: 2}, {ID: 3, Score: 1}}
	q := NewQueryEngine(NewVectorizer(&mockEmbeddingService{}, nil, 0), &mockVectorStore{hits: hits}, QueryConfig{})

	result, err := q.Search(context.Background(), "x", 2)
	require.NoError(t, err)
	assert.Equal(t, []domain.RecordID{1, 2}, ids(result))
}

func TestQueryEngine_Search_FewerRecordsThanLimit(t *testing.T) {
	store := &mockVectorStore{}
	embedder := &mockEmbeddingService{}
	w := NewIndexWriter(store, testSchema(embedder.Dimensions()))
	v := NewVectorizer(embedder, nil, 0)
	for _, text := range []string{"alpha", "beta"} {
		vec, err := v.Embed(context.Background(), text)
		require.NoError(t, err)
		_, err = w.Index(context.Background(), vec, nil)
		require.NoError(t, err)
	}

	q := NewQueryEngine(v, store, QueryConfig{})
	result, err := q.Search(context.Background(), "alpha", 5)

	require.NoError(t, err)
	assert.Len(t, result.Hits, 2, "never padded")
}

func TestQueryEngine_Search_EmbeddingError(t *testing.T) {
	store := &mockVectorStore{}
	q := NewQueryEngine(NewVectorizer(&mockEmbeddingService{embedErr: errors.New("model not found")}, nil, 0),
		store, QueryConfig{})

	_, err := q.Search(context.Background(), "x", 5)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmbedding))
	assert.Equal(t, 0, store.searchCalls)
}

func TestQueryEngine_Search_StoreErrors(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		wantKind error
	}{
		{"unavailable", fmt.Errorf("%w: timeout", domain.ErrStoreUnavailable), domain.ErrStoreUnavailable},
		{"rejected", fmt.Errorf("%w: nprobe out of range", domain.ErrQuery), domain.ErrQuery},
		{"bare", errors.New("boom"), domain.ErrQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueryEngine(NewVectorizer(&mockEmbeddingService{}, nil, 0),
				&mockVectorStore{searchErr: tt.storeErr}, QueryConfig{})
			_, err := q.Search(context.Background(), "x", 5)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind))
		})
	}
}

func ids(r *domain.QueryResult) []domain.RecordID {
	out := make([]domain.RecordID, len(r.Hits))
	for i, h := range r.Hits {
		out[i] = h.ID
	}
	return out
}
