package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	service := NewSettingsService(newMockConfigStore(), nil)
	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(newMockConfigStore(), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := newMockConfigStore()
	store.values[KeyStoreProvider] = "sqlite"
	store.values[KeyStoreNProbe] = int64(32)
	store.values[KeyStoreMetric] = "l2"
	store.values[KeyEmbedRPS] = 2.5
	store.values[KeyOCRPagePolicy] = "skip"

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.StoreProviderSQLite, settings.Store.Provider)
	assert.Equal(t, 32, settings.Store.NProbe)
	assert.Equal(t, domain.MetricL2, settings.Store.Metric)
	assert.Equal(t, 2.5, settings.Embedding.RequestsPerSecond)
	assert.Equal(t, domain.PageFailureSkip, settings.OCR.PagePolicy)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := newMockConfigStore()
	store.values[KeyStoreProvider] = "redis"
	store.values[KeyOCRDPI] = "high"

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Store.Provider, settings.Store.Provider)
	assert.Equal(t, defaults.OCR.DPI, settings.OCR.DPI)
}

func TestSettingsService_Save(t *testing.T) {
	store := newMockConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Store.Collection = "invoices"
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "invoices", store.values[KeyStoreCollection])
	assert.Equal(t, 19530, store.values[KeyStorePort])
	_, hasKey := store.values[KeyEmbedAPIKey]
	assert.False(t, hasKey, "empty secrets are not written")

	loaded, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *loaded)
}

func TestSettingsService_Save_Invalid(t *testing.T) {
	store := newMockConfigStore()
	settings := domain.DefaultAppSettings()
	settings.Search.Limit = 0

	err := NewSettingsService(store, nil).Save(&settings)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Empty(t, store.values)
}

func TestSettingsService_Save_StoreError(t *testing.T) {
	store := newMockConfigStore()
	store.setErr = errors.New("read-only file system")
	settings := domain.DefaultAppSettings()

	err := NewSettingsService(store, nil).Save(&settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save ocr.language")
}

func TestSettingsService_Set(t *testing.T) {
	store := newMockConfigStore()
	service := NewSettingsService(store, nil)

	require.NoError(t, service.Set(KeyStoreNProbe, "16"))
	assert.Equal(t, 16, store.values[KeyStoreNProbe])

	require.NoError(t, service.Set(KeyStoreMetric, "cosine"))
	assert.Equal(t, "COSINE", store.values[KeyStoreMetric])
}

func TestSettingsService_Set_ModelUpdatesDimensions(t *testing.T) {
	store := newMockConfigStore()
	service := NewSettingsService(store, nil)

	require.NoError(t, service.Set(KeyEmbedModel, "mxbai-embed-large"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "mxbai-embed-large", settings.Embedding.Model)
	assert.Equal(t, 1024, settings.Embedding.Dimensions)
}

func TestSettingsService_Set_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "llm.provider", "openai"},
		{"not an integer", KeyStorePort, "abc"},
		{"bad policy", KeyOCRPagePolicy, "retry"},
		{"bad metric", KeyStoreMetric, "dot"},
		{"fails validation", KeySearchLimit, "-1"},
		{"bad float", KeyEmbedRPS, "fast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockConfigStore()
			err := NewSettingsService(store, nil).Set(tt.key, tt.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
			assert.Empty(t, store.values)
		})
	}
}

func TestSettingsService_Unset(t *testing.T) {
	store := newMockConfigStore()
	store.values[KeyStoreNProbe] = 32
	service := NewSettingsService(store, nil)

	require.NoError(t, service.Unset(KeyStoreNProbe))
	assert.NotContains(t, store.values, KeyStoreNProbe)

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 10, settings.Store.NProbe)

	err = service.Unset("nope")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Keys(t *testing.T) {
	keys := NewSettingsService(newMockConfigStore(), nil).Keys()
	assert.Contains(t, keys, KeyOCRLanguage)
	assert.Contains(t, keys, KeySearchLimit)
	assert.Equal(t, KeyOCRLanguage, keys[0])
	assert.True(t, IsSecretKey(KeyEmbedAPIKey))
	assert.True(t, IsSecretKey(KeyStoreToken))
	assert.False(t, IsSecretKey(KeyStoreHost))
	assert.False(t, IsSecretKey("nope"))
}

func TestSettingValue(t *testing.T) {
	settings := domain.DefaultAppSettings()

	v, ok := SettingValue(&settings, KeyStorePort)
	require.True(t, ok)
	assert.Equal(t, "19530", v)

	_, ok = SettingValue(&settings, "nope")
	assert.False(t, ok)
}

func TestSettingsService_Validate(t *testing.T) {
	store := newMockConfigStore()
	assert.NoError(t, NewSettingsService(store, nil).Validate())

	store.values[KeyStoreProvider] = "pgvector"
	err := NewSettingsService(store, nil).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.dsn")
}

func TestSettingsService_GetDefaults(t *testing.T) {
	assert.Equal(t, domain.DefaultAppSettings(), NewSettingsService(newMockConfigStore(), nil).GetDefaults())
}

func TestSettingsService_ValidateEmbeddingConfig(t *testing.T) {
	assert.NoError(t, NewSettingsService(newMockConfigStore(), nil).ValidateEmbeddingConfig(context.Background()))

	v := &mockValidator{err: errors.New("unreachable")}
	err := NewSettingsService(newMockConfigStore(), v).ValidateEmbeddingConfig(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, v.calls)
}
