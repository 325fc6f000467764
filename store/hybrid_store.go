package store

import (
	"context"
	"path/filepath"

	"github.com/codervisor/devlog/internal/git"
	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

// HybridStore layers a local SQLite read cache over the git-backed store.
// The git repository stays the source of truth; the cache only accelerates
// listing and search and is rebuilt whenever a pull may have changed the
// entry files. The cache database lives outside git via the ignore rules
// the repository layer appends.
type HybridStore struct {
	gitStore *GitStore
	cache    *SQLiteStore
}

// NewHybridStore creates the hybrid git+cache backend.
func NewHybridStore(cfg types.StorageConfig, workspace string, verbose bool) (*HybridStore, error) {
	gitStore, err := NewGitStore(cfg, workspace, verbose)
	if err != nil {
		return nil, err
	}

	cacheCfg := cfg
	if cacheCfg.Database == "" {
		cacheCfg.Database = filepath.Join(cfg.RootDir, ".devlog-cache.db")
	}
	cache, err := NewSQLiteStore(cacheCfg)
	if err != nil {
		return nil, err
	}
	return &HybridStore{gitStore: gitStore, cache: cache}, nil
}

// Initialize prepares both layers and warms the cache from the repository.
func (h *HybridStore) Initialize(ctx context.Context) error {
	if err := h.gitStore.Initialize(ctx); err != nil {
		return err
	}
	if err := h.cache.Initialize(ctx); err != nil {
		return err
	}
	return h.rebuildCache(ctx)
}

// rebuildCache replaces the cache content with the repository's entries.
func (h *HybridStore) rebuildCache(ctx context.Context) error {
	entries, err := h.gitStore.List(ctx, nil)
	if err != nil {
		return err
	}
	cached, err := h.cache.List(ctx, nil)
	if err != nil {
		return err
	}
	current := map[int]bool{}
	for _, e := range entries {
		current[e.ID] = true
		if err := h.cache.put(ctx, e); err != nil {
			return err
		}
	}
	for _, e := range cached {
		if !current[e.ID] {
			if err := h.cache.Delete(ctx, e.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Exists checks the cache, falling back to the repository so a stale
// cache never hides an entry Get would return.
func (h *HybridStore) Exists(ctx context.Context, id int) (bool, error) {
	ok, err := h.cache.Exists(ctx, id)
	if err != nil || ok {
		return ok, err
	}
	return h.gitStore.Exists(ctx, id)
}

// Get reads from the cache, falling back to the repository and
// backfilling on a miss.
func (h *HybridStore) Get(ctx context.Context, id int) (*models.Entry, error) {
	e, err := h.cache.Get(ctx, id)
	if err != nil || e != nil {
		return e, err
	}
	e, err = h.gitStore.Get(ctx, id)
	if err != nil || e == nil {
		return e, err
	}
	if cerr := h.cache.put(ctx, e); cerr != nil {
		return nil, cerr
	}
	return e, nil
}

// Save writes through to the repository first, then mirrors the entry
// into the cache with the timestamps the repository settled on.
func (h *HybridStore) Save(ctx context.Context, entry *models.Entry) error {
	if err := h.gitStore.Save(ctx, entry); err != nil {
		return err
	}
	return h.cache.put(ctx, entry)
}

// Delete removes from the repository first, then the cache.
func (h *HybridStore) Delete(ctx context.Context, id int) error {
	if err := h.gitStore.Delete(ctx, id); err != nil {
		return err
	}
	return h.cache.Delete(ctx, id)
}

// List serves from the cache.
func (h *HybridStore) List(ctx context.Context, filter *ListFilter) ([]*models.Entry, error) {
	return h.cache.List(ctx, filter)
}

// Search serves from the cache.
func (h *HybridStore) Search(ctx context.Context, query string) ([]*models.Entry, error) {
	return h.cache.Search(ctx, query)
}

// GetStats serves from the cache.
func (h *HybridStore) GetStats(ctx context.Context) (*Stats, error) {
	return h.cache.GetStats(ctx)
}

// Dispose tears down both layers.
func (h *HybridStore) Dispose() error {
	gitErr := h.gitStore.Dispose()
	cacheErr := h.cache.Dispose()
	if gitErr != nil {
		return gitErr
	}
	return cacheErr
}

// IsGitBased reports true.
func (h *HybridStore) IsGitBased() bool { return true }

// IsRemoteStorage delegates to the git layer.
func (h *HybridStore) IsRemoteStorage() bool { return h.gitStore.IsRemoteStorage() }

// Clone delegates to the git layer.
func (h *HybridStore) Clone(ctx context.Context) error {
	return h.gitStore.Clone(ctx)
}

// Pull merges remote state and rebuilds the cache from the merged files.
func (h *HybridStore) Pull(ctx context.Context) error {
	if err := h.gitStore.Pull(ctx); err != nil {
		return err
	}
	return h.rebuildCache(ctx)
}

// Push delegates to the git layer; a push never changes local entries.
func (h *HybridStore) Push(ctx context.Context, commitMessage string) error {
	return h.gitStore.Push(ctx, commitMessage)
}

// RemoteStatus delegates to the git layer.
func (h *HybridStore) RemoteStatus(ctx context.Context) (*git.RemoteStatus, error) {
	return h.gitStore.RemoteStatus(ctx)
}

// ResolveConflicts delegates to the git layer, then refreshes the cache.
func (h *HybridStore) ResolveConflicts(ctx context.Context, policy types.ConflictPolicy) error {
	if err := h.gitStore.ResolveConflicts(ctx, policy); err != nil {
		return err
	}
	return h.rebuildCache(ctx)
}

var _ GitProvider = (*HybridStore)(nil)
