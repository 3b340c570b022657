package storage

import (
	"context"
	"fmt"

	"productapi/internal/models"
)

// Factory provides a centralized way to create storage instances based on
// configuration. This allows for easy extensibility and provider swapping
// without code changes.
type Factory struct{}

// NewFactory creates a new storage factory
func NewFactory() *Factory {
	return &Factory{}
}

// Create instantiates a storage provider based on the provided configuration.
// Supported providers:
//   - memory: In-memory storage (for testing/development)
//   - sqlite: SQLite database storage (single-node deployments)
//   - postgres: PostgreSQL database storage (production-ready)
func (f *Factory) Create(ctx context.Context, config models.StorageConfig) (Storage, error) {
	switch config.Type {
	case models.StorageTypeMemory:
		return NewMemoryStorage(), nil
	case models.StorageTypeSQLite:
		return NewSQLiteStorage(config.Database.DSN)
	case models.StorageTypePostgres:
		return NewPostgresStorage(ctx, config.Database)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}

// Create instantiates a storage provider using the default factory.
func Create(ctx context.Context, config models.StorageConfig) (Storage, error) {
	return NewFactory().Create(ctx, config)
}

// GetSupportedProviders returns a list of all supported storage provider types
func (f *Factory) GetSupportedProviders() []string {
	return []string{models.StorageTypeMemory, models.StorageTypeSQLite, models.StorageTypePostgres}
}

// ValidateConfig validates that a storage configuration is valid for its type
func (f *Factory) ValidateConfig(config models.StorageConfig) error {
	switch config.Type {
	case models.StorageTypeMemory:
		// Memory storage requires no additional configuration
	case models.StorageTypeSQLite, models.StorageTypePostgres:
		if config.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s storage", config.Type)
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", config.Type)
	}
	return nil
}
