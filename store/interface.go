// Package store defines the storage provider contract shared by all devlog
// backends and the backends themselves: a single-file store, a SQLite
// store, a git-backed JSON repository store, and a hybrid git store with a
// SQLite read cache.
package store

import (
	"context"

	"github.com/codervisor/devlog/internal/git"
	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

// Stats holds aggregate counts over all entries in a backend.
type Stats struct {
	TotalEntries int            `json:"totalEntries"`
	ByStatus     map[string]int `json:"byStatus"`
	ByType       map[string]int `json:"byType"`
	ByPriority   map[string]int `json:"byPriority"`
}

// Provider is the storage contract consumed by the UI/MCP layer.
//
// Get and Exists never fail on an unknown id: Get returns (nil, nil) and
// Exists returns (false, nil), because "not found" is an expected outcome,
// not an error. I/O and git failures propagate unmodified; retry policy
// belongs to the deployment, not the provider.
//
// Implementations are safe for concurrent use from multiple goroutines
// within one process.
type Provider interface {
	// Initialize prepares the backend (directories, schema, clone).
	// It is idempotent.
	Initialize(ctx context.Context) error

	// Exists reports whether an entry with the given id is stored.
	Exists(ctx context.Context, id int) (bool, error)

	// Get returns the entry with the given id, or nil when absent.
	Get(ctx context.Context, id int) (*models.Entry, error)

	// Save persists an entry, creating or replacing it. An entry with
	// id 0 is assigned the next available id, written back to the
	// entry. Save bumps UpdatedAt.
	Save(ctx context.Context, entry *models.Entry) error

	// Delete removes an entry. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id int) error

	// List returns entries matching the filter (nil means all), sorted
	// by UpdatedAt descending with ties broken by id.
	List(ctx context.Context, filter *ListFilter) ([]*models.Entry, error)

	// Search performs case-insensitive keyword matching across title,
	// description, and note content. Ordering is deterministic for a
	// fixed input set.
	Search(ctx context.Context, query string) ([]*models.Entry, error)

	// GetStats returns aggregate counts by status, type, and priority.
	GetStats(ctx context.Context) (*Stats, error)

	// Dispose releases resources held by the provider (locks, database
	// handles, background sync). The provider is unusable afterwards.
	Dispose() error

	// IsGitBased reports whether the backend persists through git.
	IsGitBased() bool

	// IsRemoteStorage reports whether the backend syncs to a remote.
	IsRemoteStorage() bool
}

// GitProvider extends Provider with git-specific operations. Only the
// git-backed backends implement it.
type GitProvider interface {
	Provider

	// Clone materializes the configured remote repository locally.
	Clone(ctx context.Context) error

	// Pull fetches remote state and reconciles diverged entries through
	// the configured conflict policy before updating files and index.
	Pull(ctx context.Context) error

	// Push commits local changes with the given message and pushes them.
	Push(ctx context.Context, commitMessage string) error

	// RemoteStatus reports the local/remote relation after a fetch.
	RemoteStatus(ctx context.Context) (*git.RemoteStatus, error)

	// ResolveConflicts re-runs conflict resolution with an explicit
	// policy, overriding the configured one for this call.
	ResolveConflicts(ctx context.Context, policy types.ConflictPolicy) error
}
