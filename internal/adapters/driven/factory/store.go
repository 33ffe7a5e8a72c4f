package factory

import (
	"context"
	"fmt"

	"github.com/custodia-labs/dquery/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/dquery/internal/adapters/driven/vectorstore/milvus"
	"github.com/custodia-labs/dquery/internal/adapters/driven/vectorstore/pgvector"
	"github.com/custodia-labs/dquery/internal/adapters/driven/vectorstore/sqlite"
	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
)

// CreateVectorStore opens the store selected by settings.
// Milvus connects on first use; pgvector and sqlite connect immediately.
func CreateVectorStore(ctx context.Context, settings *domain.StoreSettings) (driven.VectorStore, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: store settings are required", domain.ErrInvalidInput)
	}

	switch settings.Provider {
	case domain.StoreProviderMilvus:
		return milvus.New(milvus.Config{
			Host:  settings.Host,
			Port:  settings.Port,
			Token: settings.Token,
		}), nil

	case domain.StoreProviderPGVector:
		store, err := pgvector.New(ctx, settings.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil

	case domain.StoreProviderSQLite:
		store, err := sqlite.NewStore(settings.DataDir)
		if err != nil {
			return nil, err
		}
		return store, nil

	case domain.StoreProviderMemory:
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("%w: unsupported store provider %q", domain.ErrInvalidInput, settings.Provider)
	}
}
