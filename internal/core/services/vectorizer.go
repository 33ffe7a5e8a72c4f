package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
	"github.com/custodia-labs/dquery/internal/logger"
)

// specialTokens is the number of positions taken by [CLS] and [SEP].
const specialTokens = 2

// Vectorizer maps text to a fixed-dimension vector through an embedding backend.
// Input longer than the backend's token limit is truncated first.
type Vectorizer struct {
	embedder  driven.EmbeddingService
	tokenizer driven.Tokenizer
	maxTokens int
	dims      int
}

// NewVectorizer creates a vectorizer. The dimension is fixed from the
// embedding service at construction. tokenizer may be nil, in which case
// text is passed through untruncated. maxTokens includes the special tokens;
// zero or less uses domain.DefaultMaxTokens.
func NewVectorizer(embedder driven.EmbeddingService, tokenizer driven.Tokenizer, maxTokens int) *Vectorizer {
	if maxTokens <= 0 {
		maxTokens = domain.DefaultMaxTokens
	}
	return &Vectorizer{
		embedder:  embedder,
		tokenizer: tokenizer,
		maxTokens: maxTokens,
		dims:      embedder.Dimensions(),
	}
}

// Dimensions returns the length of every vector this vectorizer produces.
func (v *Vectorizer) Dimensions() int {
	return v.dims
}

// ModelName returns the embedding model name.
func (v *Vectorizer) ModelName() string {
	return v.embedder.ModelName()
}

// Embed returns the embedding of text.
func (v *Vectorizer) Embed(ctx context.Context, text string) (domain.Vector, error) {
	defer logger.Timed("embed")()

	if v.dims <= 0 {
		return nil, fmt.Errorf("%w: model %s reports no dimension", domain.ErrEmbedding, v.embedder.ModelName())
	}

	text = v.truncate(text)

	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	if len(vec) != v.dims {
		return nil, fmt.Errorf("%w: model %s returned %d dimensions, expected %d",
			domain.ErrEmbedding, v.embedder.ModelName(), len(vec), v.dims)
	}

	logger.Debug("Embedded %d chars into %d dimensions", len(text), len(vec))
	return domain.Vector(vec), nil
}

func (v *Vectorizer) truncate(text string) string {
	if v.tokenizer == nil {
		return text
	}
	budget := v.maxTokens - specialTokens
	if budget <= 0 {
		return ""
	}
	if n := v.tokenizer.Count(text); n > budget {
		logger.Debug("Truncating input from %d to %d tokens", n, budget)
		return v.tokenizer.Truncate(text, budget)
	}
	return text
}
