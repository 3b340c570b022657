package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productapi/internal/models"
)

func TestFactory_CreateMemory(t *testing.T) {
	factory := NewFactory()

	store, err := factory.Create(context.Background(), models.StorageConfig{Type: models.StorageTypeMemory})
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &MemoryStorage{}, store)
}

func TestFactory_CreateSQLite(t *testing.T) {
	factory := NewFactory()

	store, err := factory.Create(context.Background(), models.StorageConfig{
		Type: models.StorageTypeSQLite,
		Database: models.DatabaseConfig{
			DSN: filepath.Join(t.TempDir(), "factory.db"),
		},
	})
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &SQLiteStorage{}, store)
}

func TestCreate_DefaultFactory(t *testing.T) {
	store, err := Create(context.Background(), models.StorageConfig{Type: models.StorageTypeMemory})
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &MemoryStorage{}, store)

	_, err = Create(context.Background(), models.StorageConfig{Type: "cassandra"})
	assert.Error(t, err)
}

func TestFactory_CreateUnsupported(t *testing.T) {
	factory := NewFactory()

	_, err := factory.Create(context.Background(), models.StorageConfig{Type: "cassandra"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage type")
}

func TestFactory_GetSupportedProviders(t *testing.T) {
	factory := NewFactory()

	providers := factory.GetSupportedProviders()
	assert.Contains(t, providers, models.StorageTypeMemory)
	assert.Contains(t, providers, models.StorageTypeSQLite)
	assert.Contains(t, providers, models.StorageTypePostgres)
}

func TestFactory_ValidateConfig(t *testing.T) {
	factory := NewFactory()

	assert.NoError(t, factory.ValidateConfig(models.StorageConfig{Type: models.StorageTypeMemory}))

	assert.Error(t, factory.ValidateConfig(models.StorageConfig{Type: models.StorageTypePostgres}))
	assert.NoError(t, factory.ValidateConfig(models.StorageConfig{
		Type:     models.StorageTypePostgres,
		Database: models.DatabaseConfig{DSN: "postgres://localhost/productapi"},
	}))

	assert.Error(t, factory.ValidateConfig(models.StorageConfig{Type: "unknown"}))
}
