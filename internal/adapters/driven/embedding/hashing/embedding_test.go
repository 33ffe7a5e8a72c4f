package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(0)
	assert.Equal(t, DefaultDimensions, s.Dimensions())
	assert.Equal(t, "hashing-v1", s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

func TestEmbed_DeterministicAndNormalised(t *testing.T) {
	s := NewEmbeddingService(64)
	ctx := context.Background()

	a, err := s.Embed(ctx, "Invoice total due in March")
	require.NoError(t, err)
	b, err := s.Embed(ctx, "Invoice total due in March")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, math.Sqrt(dot(a, a)), 1e-6)
}

func TestEmbed_CaseInsensitive(t *testing.T) {
	s := NewEmbeddingService(32)
	ctx := context.Background()

	a, err := s.Embed(ctx, "HELLO World")
	require.NoError(t, err)
	b, err := s.Embed(ctx, "hello world")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbed_SimilarTextScoresHigher(t *testing.T) {
	s := NewEmbeddingService(256)
	ctx := context.Background()

	query, err := s.Embed(ctx, "quarterly revenue report")
	require.NoError(t, err)
	near, err := s.Embed(ctx, "the quarterly revenue report for finance")
	require.NoError(t, err)
	far, err := s.Embed(ctx, "hiking boots and tents")
	require.NoError(t, err)

	assert.Greater(t, dot(query, near), dot(query, far))
}

func TestEmbed_EmptyText(t *testing.T) {
	s := NewEmbeddingService(16)
	vec, err := s.Embed(context.Background(), "  ,.;  ")
	require.NoError(t, err)
	assert.Len(t, vec, 16)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbed_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEmbeddingService(8).Embed(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
}
