package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
	"github.com/custodia-labs/dquery/internal/core/ports/driving"
	"github.com/custodia-labs/dquery/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyOCRLanguage     = "ocr.language"
	KeyOCRDPI          = "ocr.dpi"
	KeyOCRPagePolicy   = "ocr.page_policy"
	KeyOCRPageTimeout  = "ocr.page_timeout_secs"
	KeyOCRTempDir      = "ocr.temp_dir"
	KeyEmbedProvider   = "embedding.provider"
	KeyEmbedModel      = "embedding.model"
	KeyEmbedBaseURL    = "embedding.base_url"
	KeyEmbedAPIKey     = "embedding.api_key"
	KeyEmbedDimensions = "embedding.dimensions"
	KeyEmbedMaxTokens  = "embedding.max_tokens"
	KeyEmbedVocabPath  = "embedding.vocab_path"
	KeyEmbedRPS        = "embedding.requests_per_second"
	KeyStoreProvider   = "store.provider"
	KeyStoreHost       = "store.host"
	KeyStorePort       = "store.port"
	KeyStoreCollection = "store.collection"
	KeyStoreMetric     = "store.metric"
	KeyStoreNProbe     = "store.nprobe"
	KeyStoreDSN        = "store.dsn"
	KeyStoreDataDir    = "store.data_dir"
	KeyStoreToken      = "store.token"
	KeySearchLimit     = "search.limit"
)

// setting binds a config key to a field of domain.AppSettings.
type setting struct {
	key    string
	secret bool
	get    func(*domain.AppSettings) any
	set    func(*domain.AppSettings, string) error
}

func stringSetting(key string, secret bool, field func(*domain.AppSettings) *string) setting {
	return setting{
		key:    key,
		secret: secret,
		get:    func(s *domain.AppSettings) any { return *field(s) },
		set: func(s *domain.AppSettings, v string) error {
			*field(s) = v
			return nil
		},
	}
}

func intSetting(key string, field func(*domain.AppSettings) *int) setting {
	return setting{
		key: key,
		get: func(s *domain.AppSettings) any { return *field(s) },
		set: func(s *domain.AppSettings, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s must be an integer", key)
			}
			*field(s) = n
			return nil
		},
	}
}

var settingsTable = []setting{
	stringSetting(KeyOCRLanguage, false, func(s *domain.AppSettings) *string { return &s.OCR.Language }),
	intSetting(KeyOCRDPI, func(s *domain.AppSettings) *int { return &s.OCR.DPI }),
	{
		key: KeyOCRPagePolicy,
		get: func(s *domain.AppSettings) any { return s.OCR.PagePolicy.String() },
		set: func(s *domain.AppSettings, v string) error {
			p := domain.PageFailurePolicy(strings.ToLower(strings.TrimSpace(v)))
			if !p.IsValid() {
				return fmt.Errorf("%s must be abort or skip", KeyOCRPagePolicy)
			}
			s.OCR.PagePolicy = p
			return nil
		},
	},
	intSetting(KeyOCRPageTimeout, func(s *domain.AppSettings) *int { return &s.OCR.PageTimeoutSecs }),
	stringSetting(KeyOCRTempDir, false, func(s *domain.AppSettings) *string { return &s.OCR.TempDir }),
	{
		key: KeyEmbedProvider,
		get: func(s *domain.AppSettings) any { return s.Embedding.Provider.String() },
		set: func(s *domain.AppSettings, v string) error {
			p := domain.AIProvider(strings.ToLower(strings.TrimSpace(v)))
			if !p.IsValid() {
				return fmt.Errorf("%s %q is not supported", KeyEmbedProvider, v)
			}
			s.Embedding.Provider = p
			return nil
		},
	},
	stringSetting(KeyEmbedModel, false, func(s *domain.AppSettings) *string { return &s.Embedding.Model }),
	stringSetting(KeyEmbedBaseURL, false, func(s *domain.AppSettings) *string { return &s.Embedding.BaseURL }),
	stringSetting(KeyEmbedAPIKey, true, func(s *domain.AppSettings) *string { return &s.Embedding.APIKey }),
	intSetting(KeyEmbedDimensions, func(s *domain.AppSettings) *int { return &s.Embedding.Dimensions }),
	intSetting(KeyEmbedMaxTokens, func(s *domain.AppSettings) *int { return &s.Embedding.MaxTokens }),
	stringSetting(KeyEmbedVocabPath, false, func(s *domain.AppSettings) *string { return &s.Embedding.VocabPath }),
	{
		key: KeyEmbedRPS,
		get: func(s *domain.AppSettings) any { return s.Embedding.RequestsPerSecond },
		set: func(s *domain.AppSettings, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s must be a number", KeyEmbedRPS)
			}
			s.Embedding.RequestsPerSecond = f
			return nil
		},
	},
	{
		key: KeyStoreProvider,
		get: func(s *domain.AppSettings) any { return s.Store.Provider.String() },
		set: func(s *domain.AppSettings, v string) error {
			p := domain.StoreProvider(strings.ToLower(strings.TrimSpace(v)))
			if !p.IsValid() {
				return fmt.Errorf("%s %q is not supported", KeyStoreProvider, v)
			}
			s.Store.Provider = p
			return nil
		},
	},
	stringSetting(KeyStoreHost, false, func(s *domain.AppSettings) *string { return &s.Store.Host }),
	intSetting(KeyStorePort, func(s *domain.AppSettings) *int { return &s.Store.Port }),
	stringSetting(KeyStoreCollection, false, func(s *domain.AppSettings) *string { return &s.Store.Collection }),
	{
		key: KeyStoreMetric,
		get: func(s *domain.AppSettings) any { return s.Store.Metric.String() },
		set: func(s *domain.AppSettings, v string) error {
			m, err := domain.ParseMetric(v)
			if err != nil {
				return fmt.Errorf("%s must be IP, L2 or COSINE", KeyStoreMetric)
			}
			s.Store.Metric = m
			return nil
		},
	},
	intSetting(KeyStoreNProbe, func(s *domain.AppSettings) *int { return &s.Store.NProbe }),
	stringSetting(KeyStoreDSN, true, func(s *domain.AppSettings) *string { return &s.Store.DSN }),
	stringSetting(KeyStoreDataDir, false, func(s *domain.AppSettings) *string { return &s.Store.DataDir }),
	stringSetting(KeyStoreToken, true, func(s *domain.AppSettings) *string { return &s.Store.Token }),
	intSetting(KeySearchLimit, func(s *domain.AppSettings) *int { return &s.Search.Limit }),
}

func lookupSetting(key string) (setting, bool) {
	for _, st := range settingsTable {
		if st.key == key {
			return st, true
		}
	}
	return setting{}, false
}

// SettingKeys returns every recognised setting key in display order.
func SettingKeys() []string {
	keys := make([]string, len(settingsTable))
	for i, st := range settingsTable {
		keys[i] = st.key
	}
	return keys
}

// IsSecretKey reports whether the key holds a credential.
func IsSecretKey(key string) bool {
	st, ok := lookupSetting(key)
	return ok && st.secret
}

// SettingValue returns the value of key in settings formatted for display.
func SettingValue(settings *domain.AppSettings, key string) (string, bool) {
	st, ok := lookupSetting(key)
	if !ok {
		return "", false
	}
	return fmt.Sprint(st.get(settings)), true
}

// LoadSettings reads settings from store over the defaults.
// Unparseable values are ignored and the default is kept.
func LoadSettings(store driven.ConfigStore) domain.AppSettings {
	settings := domain.DefaultAppSettings()
	for _, st := range settingsTable {
		val, ok := store.Get(st.key)
		if !ok || val == nil {
			continue
		}
		raw := fmt.Sprint(val)
		if raw == "" {
			continue
		}
		if err := st.set(&settings, raw); err != nil {
			logger.Warn("Ignoring %s from %s: %v", st.key, store.Path(), err)
		}
	}
	return settings
}

// SaveSettings writes every setting to store. Empty secrets are not written.
func SaveSettings(store driven.ConfigStore, settings *domain.AppSettings) error {
	for _, st := range settingsTable {
		val := st.get(settings)
		if st.secret && val == "" {
			continue
		}
		if err := store.Set(st.key, val); err != nil {
			return fmt.Errorf("save %s: %w", st.key, err)
		}
	}
	return nil
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.EmbeddingValidator
}

// NewSettingsService creates a new settings service.
// The validator is optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, validator driven.EmbeddingValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validator:   validator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := LoadSettings(s.configStore)
	return &settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return SaveSettings(s.configStore, settings)
}

// Set updates a single setting. The resulting settings must validate.
func (s *SettingsService) Set(key, value string) error {
	st, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := st.set(settings, value); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	// Selecting a known model also fixes its dimension.
	if key == KeyEmbedModel {
		if d, ok := domain.EmbeddingDimensions()[value]; ok {
			settings.Embedding.Dimensions = d
			if err := s.configStore.Set(KeyEmbedDimensions, d); err != nil {
				return fmt.Errorf("save %s: %w", KeyEmbedDimensions, err)
			}
		}
	}

	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.configStore.Set(key, st.get(settings)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Unset removes a stored value so its default applies again.
func (s *SettingsService) Unset(key string) error {
	if _, ok := lookupSetting(key); !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if err := s.configStore.Delete(key); err != nil {
		return fmt.Errorf("unset %s: %w", key, err)
	}
	return nil
}

// Keys returns every recognised setting key in display order.
func (s *SettingsService) Keys() []string {
	return SettingKeys()
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.validator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.validator.ValidateEmbedding(ctx, &settings.Embedding)
}
