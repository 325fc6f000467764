package store

import (
	"github.com/codervisor/devlog/types"
)

// NewProvider selects and constructs a storage backend from configuration.
// Configuration problems fail fast here, before any I/O; callers still
// need to run Initialize on the returned provider.
func NewProvider(cfg types.StorageConfig, workspace string, verbose bool) (Provider, error) {
	cfg.Normalize()

	switch cfg.Type {
	case types.StorageFile:
		return NewFileStore(cfg)
	case types.StorageSQLite:
		return NewSQLiteStore(cfg)
	case types.StorageGitJSON:
		return NewGitStore(cfg, workspace, verbose)
	case types.StorageGitWithCache:
		return NewHybridStore(cfg, workspace, verbose)
	case "":
		return nil, types.NewConfigError("storage.type", "storage type is required")
	default:
		return nil, types.NewConfigError("storage.type", "unknown storage type %q", cfg.Type)
	}
}
