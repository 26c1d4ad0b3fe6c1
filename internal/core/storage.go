package core

import (
	"fmt"
	"os"

	"vlabprogress/internal/infra/persistence/memory"
	"vlabprogress/internal/infra/persistence/postgres"
	"vlabprogress/internal/infra/persistence/sqlite"
	"vlabprogress/pkg/domain"
)

// StorageDriver identifies a concrete durable storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenKVStore selects a durable store backend using environment variables.
// Defaults to sqlite when unset.
//
//	VLAB_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	VLAB_SQLITE_PATH: path to sqlite file (default ./vlabprogress.db)
//	VLAB_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenKVStore() (domain.KVStore, error) {
	driver := os.Getenv("VLAB_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("VLAB_SQLITE_PATH"))
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("VLAB_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
