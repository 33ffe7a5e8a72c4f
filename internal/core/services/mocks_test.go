package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockRasterizer implements driven.Rasterizer for testing.
type mockRasterizer struct {
	pages      int
	err        error
	calls      int
	released   int
	releaseErr error
	lastPath   string
}

func (m *mockRasterizer) Rasterize(_ context.Context, path string) (*driven.RasterResult, error) {
	m.calls++
	m.lastPath = path
	if m.err != nil {
		return nil, m.err
	}
	pages := make([]domain.PageImage, m.pages)
	for i := range pages {
		pages[i] = domain.PageImage{Number: i + 1, Path: fmt.Sprintf("/tmp/page-%d.png", i+1), Format: "png"}
	}
	return &driven.RasterResult{
		Pages: pages,
		Release: func() error {
			m.released++
			return m.releaseErr
		},
	}, nil
}

// mockOCR implements driven.OCREngine for testing.
// Text for each page comes from texts; pages listed in failPages fail.
type mockOCR struct {
	texts     map[int]string
	failPages map[int]bool
	languages []string
	pages     []int
	block     bool
}

func (m *mockOCR) Recognize(ctx context.Context, page domain.PageImage, language string) (string, error) {
	m.languages = append(m.languages, language)
	m.pages = append(m.pages, page.Number)
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.failPages[page.Number] {
		return "", errors.New("tesseract: unable to read image")
	}
	return m.texts[page.Number], nil
}

// mockTokenizer implements driven.Tokenizer by splitting on whitespace.
type mockTokenizer struct{}

func (mockTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

func (mockTokenizer) Truncate(text string, maxTokens int) string {
	fields := strings.Fields(text)
	if len(fields) <= maxTokens {
		return text
	}
	return strings.Join(fields[:maxTokens], " ")
}

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Without a fixed embedding it derives a deterministic vector from the text.
type mockEmbeddingService struct {
	embedding []float32
	embedErr  error
	dims      int
	inputs    []string
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.inputs = append(m.inputs, text)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.embedding != nil {
		return m.embedding, nil
	}
	vec := make([]float32, m.Dimensions())
	for i, r := range text {
		vec[(i+int(r))%len(vec)] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 8
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockVectorStore implements driven.VectorStore with inner-product scoring.
type mockVectorStore struct {
	mu          sync.Mutex
	records     []domain.IndexedRecord
	nextID      domain.RecordID
	insertErr   error
	searchErr   error
	createErr   error
	getErr      error
	hits        []domain.Hit
	insertCalls int
	searchCalls int
	lastParams  domain.SearchParams
	schema      *domain.CollectionSchema
}

func (m *mockVectorStore) CreateCollection(_ context.Context, schema domain.CollectionSchema) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.schema = &schema
	return nil
}

func (m *mockVectorStore) Insert(_ context.Context, vec domain.Vector, meta domain.Metadata) (domain.RecordID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.nextID++
	m.records = append(m.records, domain.IndexedRecord{ID: m.nextID, Vector: vec, Metadata: meta})
	return m.nextID, nil
}

func (m *mockVectorStore) Search(_ context.Context, query domain.Vector, params domain.SearchParams) ([]domain.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls++
	m.lastParams = params
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if m.hits != nil {
		return append([]domain.Hit(nil), m.hits...), nil
	}
	hits := make([]domain.Hit, 0, len(m.records))
	for _, r := range m.records {
		var dot float64
		for i := range r.Vector {
			dot += float64(r.Vector[i]) * float64(query[i])
		}
		hits = append(hits, domain.Hit{ID: r.ID, Score: dot})
	}
	return hits, nil
}

func (m *mockVectorStore) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.records)), nil
}

func (m *mockVectorStore) Get(_ context.Context, id domain.RecordID) (*domain.IndexedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, r := range m.records {
		if r.ID == id {
			rec := r
			return &rec, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockVectorStore) Close() error {
	return nil
}

// scanOnlyStore hides the record lookup of the store it wraps.
type scanOnlyStore struct {
	driven.VectorStore
}

// mockConfigStore implements driven.ConfigStore backed by a map.
type mockConfigStore struct {
	values map[string]any
	setErr error
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.values[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	switch v := m.values[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Delete(key string) error {
	delete(m.values, key)
	return nil
}

func (m *mockConfigStore) Save() error { return nil }
func (m *mockConfigStore) Load() error { return nil }
func (m *mockConfigStore) Path() string {
	return "mock://config"
}

// mockValidator implements driven.EmbeddingValidator.
type mockValidator struct {
	err   error
	calls int
}

func (m *mockValidator) ValidateEmbedding(_ context.Context, _ *domain.EmbeddingSettings) error {
	m.calls++
	return m.err
}
