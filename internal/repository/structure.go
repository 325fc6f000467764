// Package repository owns the on-disk layout of a devlog repository: the
// per-entry JSON files under entries/, the index file, workspace metadata,
// and repository config. It is the sole reader/writer of that layout; all
// other components go through it.
//
// Within one process every index mutation is serialized by the repository
// mutex. Cross-process writers are reconciled by the git layer, not by
// filesystem locking.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/codervisor/devlog/internal/workspace"
	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

const (
	entriesDirName  = "entries"
	metadataDirName = "metadata"
	indexFileName   = "index.json"
	configFileName  = "config.json"
	metadataFile    = "workspace-info.json"

	// IndexVersion is the index schema version written to new repositories.
	IndexVersion = 1

	slugMaxLen = 50
)

// gitignoreMarker guards the appended ignore rules so repeated Initialize
// calls never duplicate them.
const gitignoreMarker = "# devlog storage"

var gitignoreRules = gitignoreMarker + `
*.db
*.db-journal
.devlog-cache.db
!` + entriesDirName + `/
!*.json
`

// Repository provides access to a devlog repository rooted at one directory.
type Repository struct {
	root string

	// mu serializes every index read-modify-write cycle. Entry file I/O
	// does not hold it longer than the index update itself.
	mu sync.Mutex
}

// New creates a Repository handle for the given root directory.
// It performs no I/O; call Initialize to create the layout.
func New(root string) *Repository {
	return &Repository{root: root}
}

// Root returns the repository root directory.
func (r *Repository) Root() string { return r.root }

// EntriesDir returns the directory holding per-entry files.
func (r *Repository) EntriesDir() string { return filepath.Join(r.root, entriesDirName) }

// IndexPath returns the path to index.json.
func (r *Repository) IndexPath() string { return filepath.Join(r.root, indexFileName) }

// ConfigPath returns the path to config.json.
func (r *Repository) ConfigPath() string { return filepath.Join(r.root, configFileName) }

// MetadataPath returns the path to metadata/workspace-info.json.
func (r *Repository) MetadataPath() string {
	return filepath.Join(r.root, metadataDirName, metadataFile)
}

// RepoConfig is the persisted shape of config.json.
type RepoConfig struct {
	Version int `json:"version"`
	Storage struct {
		Type       string `json:"type"`
		Repository string `json:"repository,omitempty"`
		Branch     string `json:"branch,omitempty"`
	} `json:"storage"`
	Features struct {
		AutoSync           bool                 `json:"autoSync"`
		ConflictResolution types.ConflictPolicy `json:"conflictResolution"`
	} `json:"features"`
}

// Initialize creates the repository layout. It is idempotent and
// non-destructive: directories are created if missing, index.json and
// config.json are written only when absent, and the devlog ignore rules
// are appended (never overwritten) to any existing .gitignore.
func (r *Repository) Initialize(workspaceName string, cfg types.StorageConfig) error {
	for _, dir := range []string{r.root, r.EntriesDir(), filepath.Join(r.root, metadataDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if _, err := os.Stat(r.IndexPath()); errors.Is(err, fs.ErrNotExist) {
		idx := &Index{
			Version:      IndexVersion,
			Entries:      map[string]IndexEntry{},
			NextID:       1,
			CreatedAt:    time.Now().UTC(),
			LastModified: time.Now().UTC(),
			Workspace:    workspaceName,
		}
		r.mu.Lock()
		err := r.writeIndexFile(idx)
		r.mu.Unlock()
		if err != nil {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("failed to stat %s: %w", r.IndexPath(), err)
	}

	if _, err := os.Stat(r.ConfigPath()); errors.Is(err, fs.ErrNotExist) {
		var rc RepoConfig
		rc.Version = 1
		rc.Storage.Type = string(cfg.Type)
		rc.Storage.Repository = cfg.Git.Repository
		rc.Storage.Branch = cfg.Git.Branch
		rc.Features.AutoSync = cfg.Git.AutoSync
		rc.Features.ConflictResolution = cfg.Git.ConflictResolution
		if err := writeJSONFile(r.ConfigPath(), &rc); err != nil {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("failed to stat %s: %w", r.ConfigPath(), err)
	}

	if _, err := os.Stat(r.MetadataPath()); errors.Is(err, fs.ErrNotExist) {
		info := &WorkspaceInfo{
			Workspace: workspaceName,
			CreatedAt: time.Now().UTC(),
		}
		// Best effort; detection failure should not block init.
		if project, perr := workspace.Describe(filepath.Dir(r.root)); perr == nil {
			info.Project = project
		}
		if err := writeJSONFile(r.MetadataPath(), info); err != nil {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("failed to stat %s: %w", r.MetadataPath(), err)
	}

	return r.appendGitignore()
}

// ReadConfig loads config.json. An unparsable file is a corruption error.
func (r *Repository) ReadConfig() (*RepoConfig, error) {
	data, err := os.ReadFile(r.ConfigPath())
	if err != nil {
		return nil, &types.CorruptionError{Path: configFileName, Err: err}
	}
	var rc RepoConfig
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, &types.CorruptionError{Path: configFileName, Err: err}
	}
	return &rc, nil
}

// appendGitignore appends the devlog ignore rules to .gitignore if they are
// not already present. An existing file is never truncated.
func (r *Repository) appendGitignore() error {
	path := filepath.Join(r.root, ".gitignore")

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .gitignore: %w", err)
	}
	if strings.Contains(string(existing), gitignoreMarker) {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open .gitignore: %w", err)
	}
	defer func() { _ = f.Close() }()

	content := gitignoreRules
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		content = "\n" + content
	}
	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to append .gitignore rules: %w", err)
	}
	return nil
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a filesystem-safe name from a title: lowercased,
// non-alphanumeric runs collapsed to single hyphens, trimmed, and
// truncated to 50 characters. Two entries with the same title produce
// filenames differing only by id prefix; the slug itself is not
// deduplicated, which is documented behavior.
func Slug(title string) string {
	s := strings.ToLower(title)
	s = slugNonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > slugMaxLen {
		s = strings.Trim(s[:slugMaxLen], "-")
	}
	if s == "" {
		s = "untitled"
	}
	return s
}

// EntryFilename returns the deterministic on-disk filename for an entry:
// a zero-padded id (3 digits minimum) plus the title slug.
func EntryFilename(e *models.Entry) string {
	return fmt.Sprintf("%03d-%s.json", e.ID, Slug(e.Title))
}

// WriteEntry persists an entry file and updates the index record for it in
// one call. If the title changed, the previous file (named after the old
// slug) is removed so index and files never drift apart.
func (r *Repository) WriteEntry(e *models.Entry) error {
	if err := models.ValidateStruct(e); err != nil {
		return fmt.Errorf("invalid entry %d: %w", e.ID, err)
	}

	filename := EntryFilename(e)
	path := filepath.Join(r.EntriesDir(), filename)
	if err := writeJSONFile(path, e); err != nil {
		return err
	}

	return r.updateIndexLocked(e, filename)
}

// ReadEntryFile loads one entry from a filename relative to entries/.
func (r *Repository) ReadEntryFile(filename string) (*models.Entry, error) {
	path := filepath.Join(r.EntriesDir(), filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry file %s: %w", filename, err)
	}
	var e models.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse entry file %s: %w", filename, err)
	}
	return &e, nil
}

// ReadEntry loads an entry by id via the index. The second return value is
// false when the id is unknown; that is not an error.
func (r *Repository) ReadEntry(id int) (*models.Entry, bool, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, false, err
	}
	rec, ok := idx.Get(id)
	if !ok {
		return nil, false, nil
	}
	e, err := r.ReadEntryFile(rec.File)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// DeleteEntry removes an entry file and its index record. Deleting an
// unknown id is a no-op.
func (r *Repository) DeleteEntry(id int) error {
	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}
	rec, ok := idx.Get(id)
	if !ok {
		return nil
	}

	path := filepath.Join(r.EntriesDir(), rec.File)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove entry file %s: %w", rec.File, err)
	}
	return r.RemoveFromIndex(id)
}

// ListEntryFiles returns the entry filenames currently on disk.
func (r *Repository) ListEntryFiles() ([]string, error) {
	dirents, err := os.ReadDir(r.EntriesDir())
	if err != nil {
		return nil, fmt.Errorf("failed to read entries directory: %w", err)
	}
	var files []string
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			continue
		}
		files = append(files, d.Name())
	}
	return files, nil
}

// writeJSONFile writes pretty-printed JSON atomically via temp file + rename.
func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	defer func() { _ = os.Remove(tmp) }()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", tmp, path, err)
	}
	return nil
}
