package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultAppSettings tests defaults match a local Milvus and Ollama setup
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, "eng", s.OCR.Language)
	assert.Equal(t, 200, s.OCR.DPI)
	assert.Equal(t, PageFailureAbort, s.OCR.PagePolicy)
	assert.Equal(t, AIProviderOllama, s.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", s.Embedding.Model)
	assert.Equal(t, 768, s.Embedding.Dimensions)
	assert.Equal(t, 512, s.Embedding.MaxTokens)
	assert.Equal(t, StoreProviderMilvus, s.Store.Provider)
	assert.Equal(t, "localhost:19530", s.Store.Address())
	assert.Equal(t, "pdf_text_search", s.Store.Collection)
	assert.Equal(t, MetricIP, s.Store.Metric)
	assert.Equal(t, 10, s.Store.NProbe)
	assert.Equal(t, 5, s.Search.Limit)

	require.NoError(t, s.Validate())
}

// TestAppSettings_Schema tests the derived collection schema
func TestAppSettings_Schema(t *testing.T) {
	schema := DefaultAppSettings().Schema()
	assert.Equal(t, "pdf_text_search", schema.Name)
	assert.Equal(t, 768, schema.Dimension)
	assert.Equal(t, MetricIP, schema.Metric)
	assert.NoError(t, schema.Validate())
}

// TestAppSettings_Validate tests each invalid field is reported
func TestAppSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppSettings)
		msg    string
	}{
		{"empty language", func(s *AppSettings) { s.OCR.Language = "" }, "ocr.language"},
		{"zero dpi", func(s *AppSettings) { s.OCR.DPI = 0 }, "ocr.dpi"},
		{"bad policy", func(s *AppSettings) { s.OCR.PagePolicy = "retry" }, "ocr.page_policy"},
		{"negative timeout", func(s *AppSettings) { s.OCR.PageTimeoutSecs = -1 }, "ocr.page_timeout_secs"},
		{"bad provider", func(s *AppSettings) { s.Embedding.Provider = "cohere" }, "embedding.provider"},
		{"zero dimensions", func(s *AppSettings) { s.Embedding.Dimensions = 0 }, "embedding.dimensions"},
		{"tiny max tokens", func(s *AppSettings) { s.Embedding.MaxTokens = 2 }, "embedding.max_tokens"},
		{"negative rps", func(s *AppSettings) { s.Embedding.RequestsPerSecond = -1 }, "embedding.requests_per_second"},
		{"bad store", func(s *AppSettings) { s.Store.Provider = "redis" }, "store.provider"},
		{"bad metric", func(s *AppSettings) { s.Store.Metric = "DOT" }, "store.metric"},
		{"empty collection", func(s *AppSettings) { s.Store.Collection = " " }, "store.collection"},
		{"negative nprobe", func(s *AppSettings) { s.Store.NProbe = -1 }, "store.nprobe"},
		{"pgvector without dsn", func(s *AppSettings) { s.Store.Provider = StoreProviderPGVector }, "store.dsn"},
		{"zero limit", func(s *AppSettings) { s.Search.Limit = 0 }, "search.limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultAppSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

// TestAIProvider_IsValid tests all valid and invalid providers
func TestAIProvider_IsValid(t *testing.T) {
	for _, p := range AllEmbeddingProviders() {
		assert.True(t, p.IsValid(), p)
		assert.NotEqual(t, unknownDescription, p.Description())
	}
	assert.False(t, AIProvider("anthropic").IsValid())
	assert.Equal(t, unknownDescription, AIProvider("x").Description())
}

func TestAIProvider_Traits(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderHashing.IsLocal())
	assert.False(t, AIProviderOpenAI.IsLocal())
}

// TestStoreProvider_IsValid tests all valid and invalid store providers
func TestStoreProvider_IsValid(t *testing.T) {
	for _, p := range AllStoreProviders() {
		assert.True(t, p.IsValid(), p)
		assert.NotEqual(t, unknownDescription, p.Description())
	}
	assert.False(t, StoreProvider("qdrant").IsValid())
	assert.True(t, StoreProviderMilvus.IsRemote())
	assert.False(t, StoreProviderSQLite.IsRemote())
}

// TestEmbeddingSettings_IsConfigured tests configuration checks
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}.IsConfigured())
	assert.False(t, EmbeddingSettings{}.IsConfigured())
}

func TestPageFailurePolicy_IsValid(t *testing.T) {
	assert.True(t, PageFailureAbort.IsValid())
	assert.True(t, PageFailureSkip.IsValid())
	assert.False(t, PageFailurePolicy("").IsValid())
}

func TestDefaultEmbeddingModels(t *testing.T) {
	models := DefaultEmbeddingModels()
	for _, p := range AllEmbeddingProviders() {
		assert.NotEmpty(t, models[p], p)
	}
	assert.Equal(t, 768, EmbeddingDimensions()[models[AIProviderOllama]])
}
