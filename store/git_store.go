package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codervisor/devlog/internal/git"
	"github.com/codervisor/devlog/internal/repository"
	"github.com/codervisor/devlog/internal/resolve"
	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

// GitStore implements GitProvider on top of a git working copy holding the
// JSON repository layout. Writes are local-first: Save updates files and
// index immediately, and remote synchronization happens on an explicit
// Push/Pull or through the background auto-sync loop.
//
// The repository layer is the real serialization point for the index; the
// store's own mutex only serializes whole sync cycles so a Pull never
// interleaves with a Push.
type GitStore struct {
	cfg       types.StorageConfig
	workspace string
	repo      *repository.Repository
	git       *git.Client

	syncMu sync.Mutex

	verbose bool

	// auto-sync state, owned by this instance so multiple workspaces can
	// coexist in one process. Dispose tears all of it down.
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup

	dirtyMu sync.Mutex
	dirty   bool
}

// NewGitStore creates a git-backed store. The git configuration is
// validated here, before any I/O.
func NewGitStore(cfg types.StorageConfig, workspace string, verbose bool) (*GitStore, error) {
	if cfg.RootDir == "" {
		return nil, types.NewConfigError("storage", "git-json backend requires storage.rootDir")
	}
	cfg.Normalize()

	return &GitStore{
		cfg:       cfg,
		workspace: workspace,
		repo:      repository.New(cfg.RootDir),
		git:       git.NewClient(cfg.RootDir, cfg.Git.Branch),
		verbose:   verbose,
		done:      make(chan struct{}),
	}, nil
}

// cmdCtx derives a bounded context for one git subprocess invocation.
func (g *GitStore) cmdCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(g.cfg.Git.CommandTimeoutSeconds)*time.Second)
}

func (g *GitStore) logf(format string, args ...interface{}) {
	if g.verbose {
		fmt.Fprintf(os.Stderr, "devlog: "+format+"\n", args...)
	}
}

// Initialize prepares the working copy: clones the configured remote when
// the root does not exist yet, otherwise creates the repository layout in
// place (initializing git if needed). Idempotent.
func (g *GitStore) Initialize(ctx context.Context) error {
	cctx, cancel := g.cmdCtx(ctx)
	defer cancel()

	_, statErr := os.Stat(g.cfg.RootDir)
	if errors.Is(statErr, fs.ErrNotExist) && g.cfg.Git.Repository != "" {
		if err := g.Clone(ctx); err != nil {
			return err
		}
	} else if !g.git.IsRepository(cctx) {
		if err := os.MkdirAll(g.cfg.RootDir, 0o755); err != nil {
			return fmt.Errorf("failed to create repository root: %w", err)
		}
		if err := g.git.Init(cctx); err != nil {
			return err
		}
	}

	if err := g.repo.Initialize(g.workspace, g.cfg); err != nil {
		return err
	}

	if g.cfg.Git.AutoSync {
		if err := g.startAutoSync(); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether an entry is present in the index.
func (g *GitStore) Exists(ctx context.Context, id int) (bool, error) {
	idx, err := g.repo.ReadIndex()
	if err != nil {
		return false, err
	}
	_, ok := idx.Get(id)
	return ok, nil
}

// Get returns the entry with the given id, or nil when absent.
func (g *GitStore) Get(ctx context.Context, id int) (*models.Entry, error) {
	e, ok, err := g.repo.ReadEntry(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return e, nil
}

// Save writes the entry file and index locally, then marks the store dirty
// for the next sync cycle.
func (g *GitStore) Save(ctx context.Context, entry *models.Entry) error {
	if entry.ID == 0 {
		id, err := g.repo.AllocateID()
		if err != nil {
			return err
		}
		entry.ID = id
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.Touch()

	if err := g.repo.WriteEntry(entry); err != nil {
		return err
	}
	g.refreshStats()
	g.markDirty()
	return nil
}

// Delete removes the entry file and index record.
func (g *GitStore) Delete(ctx context.Context, id int) error {
	if err := g.repo.DeleteEntry(id); err != nil {
		return err
	}
	g.refreshStats()
	g.markDirty()
	return nil
}

// refreshStats rewrites workspace metadata from the index. Stats are
// derived data; failures only get logged.
func (g *GitStore) refreshStats() {
	idx, err := g.repo.ReadIndex()
	if err != nil {
		g.logf("stats refresh skipped: %v", err)
		return
	}
	if err := g.repo.WriteWorkspaceStats(repository.StatsFromIndex(idx)); err != nil {
		g.logf("stats refresh failed: %v", err)
	}
}

// List loads entries matching the filter through the index, newest first.
func (g *GitStore) List(ctx context.Context, filter *ListFilter) ([]*models.Entry, error) {
	idx, err := g.repo.ReadIndex()
	if err != nil {
		return nil, err
	}
	var result []*models.Entry
	for _, rec := range idx.Records() {
		e, err := g.repo.ReadEntryFile(rec.File)
		if err != nil {
			return nil, err
		}
		if filter.Matches(e) {
			result = append(result, e)
		}
	}
	return result, nil
}

// Search scans all entries for the query.
func (g *GitStore) Search(ctx context.Context, query string) ([]*models.Entry, error) {
	all, err := g.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	var result []*models.Entry
	for _, e := range all {
		if matchesQuery(e, query) {
			result = append(result, e)
		}
	}
	return result, nil
}

// GetStats aggregates counts from the index without reading entry files.
func (g *GitStore) GetStats(ctx context.Context) (*Stats, error) {
	idx, err := g.repo.ReadIndex()
	if err != nil {
		return nil, err
	}
	ws := repository.StatsFromIndex(idx)
	return &Stats{
		TotalEntries: ws.TotalEntries,
		ByStatus:     ws.ByStatus,
		ByType:       ws.ByType,
		ByPriority:   ws.ByPriority,
	}, nil
}

// Validate checks index/file consistency. Exposed for the doctor command.
func (g *GitStore) Validate() (*repository.ValidationResult, error) {
	return g.repo.Validate()
}

// Repair reconciles index and files in both directions.
func (g *GitStore) Repair() ([]string, error) {
	return g.repo.Repair()
}

// Dispose stops the auto-sync loop and the filesystem watcher.
func (g *GitStore) Dispose() error {
	select {
	case <-g.done:
		// already disposed
	default:
		close(g.done)
	}
	if g.watcher != nil {
		_ = g.watcher.Close()
	}
	g.wg.Wait()
	return nil
}

// IsGitBased reports true.
func (g *GitStore) IsGitBased() bool { return true }

// IsRemoteStorage reports whether a remote repository is configured.
func (g *GitStore) IsRemoteStorage() bool { return g.cfg.Git.Repository != "" }

// Clone materializes the configured remote into the root directory.
func (g *GitStore) Clone(ctx context.Context) error {
	if g.cfg.Git.Repository == "" {
		return types.NewConfigError("storage.git", "clone requires storage.git.repository")
	}
	cctx, cancel := g.cmdCtx(ctx)
	defer cancel()
	return g.git.Clone(cctx, g.cfg.Git.Repository)
}

// Push commits all local changes and pushes them to origin.
func (g *GitStore) Push(ctx context.Context, commitMessage string) error {
	g.syncMu.Lock()
	defer g.syncMu.Unlock()
	return g.pushLocked(ctx, commitMessage)
}

func (g *GitStore) pushLocked(ctx context.Context, commitMessage string) error {
	cctx, cancel := g.cmdCtx(ctx)
	defer cancel()

	dirty, err := g.git.IsDirty(cctx)
	if err != nil {
		return err
	}
	if dirty {
		if err := g.git.AddAll(cctx); err != nil {
			return err
		}
		if commitMessage == "" {
			commitMessage = "devlog: update entries"
		}
		if err := g.git.Commit(cctx, commitMessage); err != nil {
			return err
		}
	}

	if !g.git.HasRemote(cctx) {
		g.clearDirty()
		return nil
	}
	if err := g.git.Push(cctx); err != nil {
		return err
	}
	g.clearDirty()
	return nil
}

// Pull fetches remote state and merges it into the working copy. Diverged
// entries are reconciled per the configured conflict policy; the index is
// repaired afterwards so it exactly matches the merged entry files.
func (g *GitStore) Pull(ctx context.Context) error {
	g.syncMu.Lock()
	defer g.syncMu.Unlock()
	return g.pullLocked(ctx, g.cfg.Git.ConflictResolution)
}

func (g *GitStore) pullLocked(ctx context.Context, policy types.ConflictPolicy) error {
	cctx, cancel := g.cmdCtx(ctx)
	defer cancel()

	if !g.git.HasRemote(cctx) {
		return nil
	}

	// Local changes must be committed before a merge can run.
	dirty, err := g.git.IsDirty(cctx)
	if err != nil {
		return err
	}
	if dirty {
		if err := g.git.AddAll(cctx); err != nil {
			return err
		}
		if err := g.git.Commit(cctx, "devlog: local changes before sync"); err != nil {
			return err
		}
	}

	pullErr := g.git.Pull(cctx)
	if pullErr == nil {
		_, err := g.repo.Repair()
		return err
	}

	// A failed pull is only recoverable here when it left merge conflicts
	// behind; anything else propagates with git's own diagnostic.
	conflicts, cerr := g.git.ConflictedFiles(cctx)
	if cerr != nil || len(conflicts) == 0 {
		return pullErr
	}

	if err := g.resolveConflictedFiles(cctx, conflicts, policy); err != nil {
		return err
	}
	if err := g.git.AddAll(cctx); err != nil {
		return err
	}
	if err := g.git.Commit(cctx, "devlog: resolve sync conflicts"); err != nil {
		return err
	}
	_, err = g.repo.Repair()
	return err
}

// resolveConflictedFiles settles each unmerged path. Entry files are
// resolved through the conflict policy; the index and metadata files take
// the remote side and are rebuilt from the merged entries afterwards.
func (g *GitStore) resolveConflictedFiles(ctx context.Context, conflicts []string, policy types.ConflictPolicy) error {
	for _, path := range conflicts {
		if !strings.HasPrefix(path, "entries/") || !strings.HasSuffix(path, ".json") {
			if err := g.git.CheckoutTheirs(ctx, path); err != nil {
				return err
			}
			continue
		}

		localRaw, err := g.git.ShowStage(ctx, 2, path)
		if err != nil {
			return err
		}
		remoteRaw, err := g.git.ShowStage(ctx, 3, path)
		if err != nil {
			return err
		}

		var local, remote models.Entry
		if err := json.Unmarshal([]byte(localRaw), &local); err != nil {
			return fmt.Errorf("failed to parse local version of %s: %w", path, err)
		}
		if err := json.Unmarshal([]byte(remoteRaw), &remote); err != nil {
			return fmt.Errorf("failed to parse remote version of %s: %w", path, err)
		}

		winner, err := resolve.Resolve(&local, &remote, policy)
		if err != nil {
			return err
		}
		g.logf("conflict on %s resolved to updatedAt=%s", path, winner.UpdatedAt.Format(time.RFC3339))

		data, err := json.MarshalIndent(winner, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal resolved entry %d: %w", winner.ID, err)
		}
		data = append(data, '\n')
		if err := os.WriteFile(filepath.Join(g.cfg.RootDir, path), data, 0o644); err != nil {
			return fmt.Errorf("failed to write resolved entry %s: %w", path, err)
		}
	}
	return nil
}

// RemoteStatus reports how the local branch relates to origin.
func (g *GitStore) RemoteStatus(ctx context.Context) (*git.RemoteStatus, error) {
	cctx, cancel := g.cmdCtx(ctx)
	defer cancel()
	return g.git.RemoteStatus(cctx)
}

// ResolveConflicts re-runs resolution over currently unmerged files with an
// explicit policy.
func (g *GitStore) ResolveConflicts(ctx context.Context, policy types.ConflictPolicy) error {
	g.syncMu.Lock()
	defer g.syncMu.Unlock()

	cctx, cancel := g.cmdCtx(ctx)
	defer cancel()

	conflicts, err := g.git.ConflictedFiles(cctx)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}
	if err := g.resolveConflictedFiles(cctx, conflicts, policy); err != nil {
		return err
	}
	if err := g.git.AddAll(cctx); err != nil {
		return err
	}
	if err := g.git.Commit(cctx, "devlog: resolve sync conflicts"); err != nil {
		return err
	}
	_, err = g.repo.Repair()
	return err
}

func (g *GitStore) markDirty() {
	g.dirtyMu.Lock()
	g.dirty = true
	g.dirtyMu.Unlock()
}

func (g *GitStore) clearDirty() {
	g.dirtyMu.Lock()
	g.dirty = false
	g.dirtyMu.Unlock()
}

func (g *GitStore) isDirty() bool {
	g.dirtyMu.Lock()
	defer g.dirtyMu.Unlock()
	return g.dirty
}

// startAutoSync launches the background sync loop and a filesystem watcher
// over entries/ so out-of-band edits (another tool writing entry files)
// also get picked up.
func (g *GitStore) startAutoSync() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := watcher.Add(g.repo.EntriesDir()); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch entries directory: %w", err)
	}
	g.watcher = watcher

	interval := time.Duration(g.cfg.Git.AutoSyncIntervalSeconds) * time.Second

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-g.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					g.markDirty()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				g.logf("watcher error: %v", err)
			case <-ticker.C:
				g.syncOnce()
			}
		}
	}()
	return nil
}

// syncOnce runs one pull/push cycle. Auto-sync failures are logged, not
// fatal: the next tick retries, and explicit Push/Pull still surface
// errors to callers.
func (g *GitStore) syncOnce() {
	if !g.isDirty() {
		return
	}
	ctx := context.Background()
	if err := g.Pull(ctx); err != nil {
		g.logf("auto-sync pull failed: %v", err)
		return
	}
	if err := g.Push(ctx, "devlog: auto-sync"); err != nil {
		g.logf("auto-sync push failed: %v", err)
	}
}

var _ GitProvider = (*GitStore)(nil)
