package vectorstore

import (
	"fmt"

	"researchmind/internal/config"
)

// Open constructs the configured backend.
func Open(cfg config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return NewMemoryStore(), nil
	case "json", "":
		return OpenJSONFileStore(cfg.StorePath)
	case "sqlite":
		return OpenSQLiteStore(cfg.StorePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}
