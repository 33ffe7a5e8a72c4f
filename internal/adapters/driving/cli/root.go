// Package cli implements the dquery command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/dquery/internal/adapters/driven/config/file"
	"github.com/custodia-labs/dquery/internal/adapters/driven/factory"
	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driving"
	"github.com/custodia-labs/dquery/internal/core/services"
	"github.com/custodia-labs/dquery/internal/logger"
)

// Exit codes returned by Execute.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitBadInput    = 2
	ExitUnavailable = 3
)

// Environment variables that override secrets from the config file.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	EnvOpenAIAPIKey = "DQUERY_OPENAI_API_KEY"
	EnvMilvusToken  = "DQUERY_MILVUS_TOKEN"
	EnvPostgresDSN  = "DQUERY_PG_DSN"
)

var version = "dev"

// Global flags.
var (
	verbose       bool
	configPath    string
	storeOverride string
)

// Services shared by commands. Built on first use; tests inject mocks.
var (
	settingsService   driving.SettingsService
	pipelineService   driving.PipelineService
	extractionService driving.ExtractionService
	pipelineCleanup   func() error
)

var rootCmd = &cobra.Command{
	Use:   "dquery",
	Short: "Semantic search over scanned PDF documents",
	Long: `dquery turns scanned PDFs into searchable vectors.

Each page is rasterised with pdftoppm and read with tesseract. The text is
embedded and stored in a vector database (Milvus, pgvector, SQLite or memory).
Queries are embedded the same way and answered with the nearest records.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print detailed progress")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVar(&storeOverride, "store", "", "vector store to use (milvus, pgvector, sqlite, memory)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// cobra's Print helpers default to stderr.
	rootCmd.SetOut(os.Stdout)

	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeServices(); cerr != nil {
		logger.Warn("Closing resources: %v", cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitCode(err)
	}
	return ExitOK
}

// exitCode maps an error to a process exit code by its domain kind.
func exitCode(err error) int {
	switch domain.ErrorKind(err) {
	case "":
		return ExitOK
	case domain.KindInvalidInput, domain.KindDocumentRead, domain.KindNotFound,
		domain.KindQuery, domain.KindDimensionMismatch:
		return ExitBadInput
	case domain.KindStoreUnavailable, domain.KindEmbedding:
		return ExitUnavailable
	default:
		return ExitFailure
	}
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if settingsService != nil {
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Reading .env: %v", err)
	}

	var (
		store *file.ConfigStore
		err   error
	)
	if configPath != "" {
		store, err = file.NewConfigStoreAt(configPath)
	} else {
		store, err = file.NewConfigStore("")
	}
	if err != nil {
		return fmt.Errorf("%w: open config: %w", domain.ErrInvalidInput, err)
	}
	logger.Debug("Using config %s", store.Path())

	settingsService = services.NewSettingsService(store, factory.NewConfigValidator())
	return nil
}

// effectiveSettings returns stored settings with environment and flag
// overrides applied.
func effectiveSettings() (*domain.AppSettings, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	applyOverrides(settings)
	return settings, nil
}

func applyOverrides(settings *domain.AppSettings) {
	if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
		settings.Embedding.APIKey = v
	}
	if v := os.Getenv(EnvMilvusToken); v != "" {
		settings.Store.Token = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		settings.Store.DSN = v
	}
	if storeOverride != "" {
		settings.Store.Provider = domain.StoreProvider(storeOverride)
	}
}

// pipeline returns the pipeline service, wiring it on first use.
func pipeline(ctx context.Context) (driving.PipelineService, error) {
	if pipelineService != nil {
		return pipelineService, nil
	}

	settings, err := effectiveSettings()
	if err != nil {
		return nil, err
	}
	result, err := factory.BuildPipeline(ctx, settings, factory.Collaborators{}, false)
	if err != nil {
		return nil, err
	}

	pipelineService = result.Pipeline
	pipelineCleanup = result.Close
	return pipelineService, nil
}

// extraction returns the OCR service. It needs neither an embedder nor a store.
func extraction() (driving.ExtractionService, error) {
	if extractionService != nil {
		return extractionService, nil
	}

	settings, err := effectiveSettings()
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	extractionService = factory.CreateTextExtractor(&settings.OCR, nil, nil)
	return extractionService, nil
}

func closeServices() error {
	if pipelineCleanup == nil {
		return nil
	}
	err := pipelineCleanup()
	pipelineCleanup = nil
	return err
}
