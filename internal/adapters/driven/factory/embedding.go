// Package factory builds driven adapters from application settings and wires
// them into the core services.
package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/dquery/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/dquery/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/dquery/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/dquery/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/dquery/internal/adapters/driven/tokenizer/wordpiece"
	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService creates the embedding service selected by settings,
// throttled when a request rate is configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: embedding settings are required", domain.ErrInvalidInput)
	}
	if !settings.IsConfigured() {
		if settings.Provider.RequiresAPIKey() {
			return nil, fmt.Errorf("%w: %s requires embedding.api_key", domain.ErrInvalidInput, settings.Provider)
		}
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrInvalidInput, settings.Provider)
	}

	var svc driven.EmbeddingService
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings)

	case domain.AIProviderOpenAI:
		s, err := createOpenAIEmbedding(settings)
		if err != nil {
			return nil, err
		}
		svc = s

	case domain.AIProviderHashing:
		svc = hashing.NewEmbeddingService(settings.Dimensions)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrInvalidInput, settings.Provider)
	}

	return ratelimit.Wrap(svc, settings.RequestsPerSecond, 1), nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w). Run 'dquery settings show' to check the configuration",
			domain.ErrEmbedding, settings.Provider, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig creates a service for settings and pings it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateTokenizer loads a WordPiece vocabulary when vocabPath is set and
// falls back to basic BERT pre-tokenisation otherwise.
func CreateTokenizer(vocabPath string) (driven.Tokenizer, error) {
	if vocabPath == "" {
		return wordpiece.NewBasic(), nil
	}
	tok, err := wordpiece.FromFile(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load vocabulary: %w", domain.ErrInvalidInput, err)
	}
	return tok, nil
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}
