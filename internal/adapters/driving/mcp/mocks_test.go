package mcp

import (
	"context"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

// mockPipelineService is a mock implementation of driving.PipelineService.
type mockPipelineService struct {
	result    *domain.QueryResult
	id        domain.RecordID
	count     int64
	err       error
	lastQuery string
	lastLimit int
	lastDoc   domain.Document
	record    *domain.IndexedRecord
}

func (m *mockPipelineService) IngestDocument(_ context.Context, doc domain.Document) (domain.RecordID, error) {
	m.lastDoc = doc
	return m.id, m.err
}

func (m *mockPipelineService) RunQuery(_ context.Context, query string, limit int) (*domain.QueryResult, error) {
	m.lastQuery = query
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.QueryResult{Query: query, Metric: domain.MetricIP}, nil
	}
	return m.result, nil
}

func (m *mockPipelineService) Count(_ context.Context) (int64, error) {
	return m.count, m.err
}

func (m *mockPipelineService) Record(_ context.Context, id domain.RecordID) (*domain.IndexedRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.record == nil || m.record.ID != id {
		return nil, domain.ErrNotFound
	}
	return m.record, nil
}

// mockExtractionService is a mock implementation of driving.ExtractionService.
type mockExtractionService struct {
	text *domain.ExtractedText
	err  error
}

func (m *mockExtractionService) ExtractText(_ context.Context, _ domain.Document) (*domain.ExtractedText, error) {
	return m.text, m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings *domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.settings == nil {
		s := domain.DefaultAppSettings()
		return &s, nil
	}
	return m.settings, nil
}

func (m *mockSettingsService) Save(_ *domain.AppSettings) error {
	return m.err
}

func (m *mockSettingsService) Set(_, _ string) error {
	return m.err
}

func (m *mockSettingsService) Unset(_ string) error {
	return m.err
}

func (m *mockSettingsService) Keys() []string {
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.err
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig(_ context.Context) error {
	return m.err
}
