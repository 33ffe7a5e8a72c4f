package driven

import (
	"context"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

// EmbeddingService generates vector embeddings from text.
//
// Implementations include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Feature hashing (offline, deterministic)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This is determined by the model and must match the collection schema.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingValidator verifies an embedding configuration by testing connectivity.
type EmbeddingValidator interface {
	// ValidateEmbedding pings the configured provider.
	// Returns nil if configuration is valid.
	ValidateEmbedding(ctx context.Context, config *domain.EmbeddingSettings) error
}
