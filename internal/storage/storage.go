package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cyderes/catalog-ingestion-service/internal/config"
	"github.com/cyderes/catalog-ingestion-service/internal/models"
	"go.uber.org/zap"
)

// ErrUnsupportedType is returned by NewStorage for an unknown STORAGE_TYPE.
var ErrUnsupportedType = errors.New("unsupported storage type")

// DocumentStore defines the contract for the catalog document store.
// Identifiers are generated by the store, and a retried CreateRecord may
// produce a second document with a new id.
type DocumentStore interface {
	CreateRecord(ctx context.Context, collection string, fields models.Fields) (models.Record, error)
	Close() error
}

// Collections lists every collection the pipeline writes to.
var Collections = []string{
	models.CollectionMovies,
	models.CollectionShows,
	models.CollectionSeasons,
	models.CollectionEpisodes,
}

// NewStorage creates a new document store based on configuration
func NewStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (DocumentStore, error) {
	switch cfg.Type {
	case "dynamodb":
		return NewDynamoDBStorage(ctx, cfg)
	case "mongodb":
		return NewMongoDBStorage(ctx, cfg)
	case "postgresql":
		return NewPostgreSQLStorage(ctx, cfg, logger)
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cfg.Type)
	}
}

func isKnownCollection(collection string) bool {
	for _, c := range Collections {
		if c == collection {
			return true
		}
	}
	return false
}
