package domain

import (
	"fmt"
	"strings"
)

const unknownDescription = "Unknown"

// PageFailurePolicy decides what happens when OCR fails on a single page.
type PageFailurePolicy string

// Available page failure policies.
const (
	// PageFailureAbort stops extraction at the first failing page.
	PageFailureAbort PageFailurePolicy = "abort"

	// PageFailureSkip records the failing page and continues.
	PageFailureSkip PageFailurePolicy = "skip"
)

// IsValid returns true if the policy is recognised.
func (p PageFailurePolicy) IsValid() bool {
	return p == PageFailureAbort || p == PageFailureSkip
}

// String returns the string representation.
func (p PageFailurePolicy) String() string {
	return string(p)
}

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available embedding providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderHashing is the offline feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderHashing:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// StoreProvider identifies a vector store backend.
type StoreProvider string

// Available store providers.
const (
	StoreProviderMilvus   StoreProvider = "milvus"
	StoreProviderPGVector StoreProvider = "pgvector"
	StoreProviderSQLite   StoreProvider = "sqlite"
	StoreProviderMemory   StoreProvider = "memory"
)

// IsValid returns true if the store provider is recognised.
func (p StoreProvider) IsValid() bool {
	switch p {
	case StoreProviderMilvus, StoreProviderPGVector, StoreProviderSQLite, StoreProviderMemory:
		return true
	default:
		return false
	}
}

// IsRemote returns true if the store runs out of process.
func (p StoreProvider) IsRemote() bool {
	return p == StoreProviderMilvus || p == StoreProviderPGVector
}

// String returns the string representation.
func (p StoreProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p StoreProvider) Description() string {
	switch p {
	case StoreProviderMilvus:
		return "Milvus"
	case StoreProviderPGVector:
		return "PostgreSQL + pgvector"
	case StoreProviderSQLite:
		return "SQLite (embedded)"
	case StoreProviderMemory:
		return "In-memory (not persisted)"
	default:
		return unknownDescription
	}
}

// OCRSettings holds text extraction configuration.
type OCRSettings struct {
	// Language is the OCR language code passed to the engine.
	Language string

	// DPI is the rasterisation resolution.
	DPI int

	// PagePolicy decides how single-page OCR failures are handled.
	PagePolicy PageFailurePolicy

	// PageTimeoutSecs bounds OCR of a single page. Zero disables the bound.
	PageTimeoutSecs int

	// TempDir is the parent directory for page images. Empty uses the
	// system temporary directory.
	TempDir string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the embedding vector size.
	Dimensions int

	// MaxTokens is the backend's maximum input length in tokens,
	// including the two special tokens.
	MaxTokens int

	// VocabPath points to a WordPiece vocab.txt. Empty uses basic tokenisation.
	VocabPath string

	// RequestsPerSecond throttles backend calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// StoreSettings holds vector store configuration.
type StoreSettings struct {
	// Provider is the vector store backend.
	Provider StoreProvider

	// Host and Port locate a Milvus server.
	Host string
	Port int

	// Collection is the collection or table name.
	Collection string

	// Metric is the similarity metric.
	Metric Metric

	// NProbe is the approximate-search effort.
	NProbe int

	// DSN is the PostgreSQL connection string (for pgvector).
	DSN string

	// DataDir is the directory for the SQLite database.
	DataDir string

	// Token authenticates against Milvus when set.
	Token string
}

// Address returns host:port.
func (s StoreSettings) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SearchSettings holds query defaults.
type SearchSettings struct {
	// Limit is the default number of hits.
	Limit int
}

// AppSettings holds all application settings.
type AppSettings struct {
	OCR       OCRSettings
	Embedding EmbeddingSettings
	Store     StoreSettings
	Search    SearchSettings
}

// Default setting values.
const (
	DefaultOCRLanguage    = "eng"
	DefaultOCRDPI         = 200
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultDimensions     = 768
	DefaultMaxTokens      = 512
	DefaultStoreHost      = "localhost"
	DefaultStorePort      = 19530
	DefaultCollection     = "pdf_text_search"
)

// DefaultAppSettings returns settings matching a local Milvus and Ollama setup.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		OCR: OCRSettings{
			Language:   DefaultOCRLanguage,
			DPI:        DefaultOCRDPI,
			PagePolicy: PageFailureAbort,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      DefaultEmbeddingModel,
			Dimensions: DefaultDimensions,
			MaxTokens:  DefaultMaxTokens,
		},
		Store: StoreSettings{
			Provider:   StoreProviderMilvus,
			Host:       DefaultStoreHost,
			Port:       DefaultStorePort,
			Collection: DefaultCollection,
			Metric:     MetricIP,
			NProbe:     DefaultSearchEffort,
		},
		Search: SearchSettings{
			Limit: DefaultSearchLimit,
		},
	}
}

// Schema returns the collection schema implied by the settings.
func (s AppSettings) Schema() CollectionSchema {
	return CollectionSchema{
		Name:        s.Store.Collection,
		Dimension:   s.Embedding.Dimensions,
		Metric:      s.Store.Metric,
		Description: "Text vectors from PDFs",
	}
}

// Validate checks every section and returns the first problem found.
func (s AppSettings) Validate() error {
	var problems []string

	if strings.TrimSpace(s.OCR.Language) == "" {
		problems = append(problems, "ocr.language is required")
	}
	if s.OCR.DPI <= 0 {
		problems = append(problems, "ocr.dpi must be positive")
	}
	if !s.OCR.PagePolicy.IsValid() {
		problems = append(problems, fmt.Sprintf("ocr.page_policy %q is not abort or skip", s.OCR.PagePolicy))
	}
	if s.OCR.PageTimeoutSecs < 0 {
		problems = append(problems, "ocr.page_timeout_secs must not be negative")
	}
	if !s.Embedding.Provider.IsValid() {
		problems = append(problems, fmt.Sprintf("embedding.provider %q is not supported", s.Embedding.Provider))
	}
	if s.Embedding.Dimensions <= 0 {
		problems = append(problems, "embedding.dimensions must be positive")
	}
	if s.Embedding.MaxTokens < 3 {
		problems = append(problems, "embedding.max_tokens must be at least 3")
	}
	if s.Embedding.RequestsPerSecond < 0 {
		problems = append(problems, "embedding.requests_per_second must not be negative")
	}
	if !s.Store.Provider.IsValid() {
		problems = append(problems, fmt.Sprintf("store.provider %q is not supported", s.Store.Provider))
	}
	if !s.Store.Metric.IsValid() {
		problems = append(problems, fmt.Sprintf("store.metric %q is not IP, L2 or COSINE", s.Store.Metric))
	}
	if strings.TrimSpace(s.Store.Collection) == "" {
		problems = append(problems, "store.collection is required")
	}
	if s.Store.NProbe < 0 {
		problems = append(problems, "store.nprobe must not be negative")
	}
	if s.Store.Provider == StoreProviderPGVector && s.Store.DSN == "" {
		problems = append(problems, "store.dsn is required for pgvector")
	}
	if s.Search.Limit <= 0 {
		problems = append(problems, "search.limit must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderHashing,
	}
}

// AllStoreProviders returns every supported vector store backend.
func AllStoreProviders() []StoreProvider {
	return []StoreProvider{
		StoreProviderMilvus,
		StoreProviderPGVector,
		StoreProviderSQLite,
		StoreProviderMemory,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
		AIProviderHashing: "hashing-v1",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
