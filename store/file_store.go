package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	yaml "gopkg.in/yaml.v3"

	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

const (
	defaultDataFile = "devlog.json"
	checksumSuffix  = ".checksum"

	formatJSON = "json"
	formatYAML = "yaml"
	formatTOML = "toml"
)

// entryFile is the persisted shape of the single-file backend.
type entryFile struct {
	Entries []*models.Entry `json:"entries" yaml:"entries" toml:"entries"`
	NextID  int             `json:"nextId" yaml:"nextId" toml:"nextId"`
}

// FileStore implements Provider with a single data file in JSON, YAML, or
// TOML format. Cross-process access is serialized with a file lock, and
// every write goes through a temp file, a checksum sidecar, and an atomic
// rename.
type FileStore struct {
	filePath string
	format   string
	flk      *flock.Flock

	entries map[int]*models.Entry
	nextID  int
}

// NewFileStore creates a file-backed store from configuration. The
// configuration is checked before any I/O happens.
func NewFileStore(cfg types.StorageConfig) (*FileStore, error) {
	path := cfg.File
	if path == "" {
		if cfg.RootDir == "" {
			return nil, types.NewConfigError("storage", "file backend requires storage.file or storage.rootDir")
		}
		path = filepath.Join(cfg.RootDir, defaultDataFile)
	}

	format := strings.ToLower(cfg.Format)
	switch format {
	case "", formatJSON:
		format = formatJSON
	case formatYAML, formatTOML:
	default:
		return nil, types.NewConfigError("storage.format", "unsupported format %q (json, yaml, toml)", cfg.Format)
	}

	return &FileStore{
		filePath: path,
		format:   format,
		entries:  map[int]*models.Entry{},
		nextID:   1,
	}, nil
}

// Initialize creates the data file's directory, acquires the file lock,
// and loads existing entries. Idempotent.
func (s *FileStore) Initialize(ctx context.Context) error {
	dir := filepath.Dir(s.filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	s.flk = flock.New(s.filePath)
	if err := s.flk.Lock(); err != nil {
		return fmt.Errorf("failed to acquire initial lock for %s: %w", s.filePath, err)
	}
	defer func() { _ = s.flk.Unlock() }()

	return s.load()
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// load reads the data file, verifies its checksum sidecar, and rebuilds
// the in-memory map. Callers hold the file lock.
func (s *FileStore) load() error {
	checksumPath := s.filePath + checksumSuffix

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.entries = map[int]*models.Entry{}
			s.nextID = 1
			_ = os.Remove(checksumPath)
			return nil
		}
		return fmt.Errorf("failed to read data file %s: %w", s.filePath, err)
	}

	if expected, err := os.ReadFile(checksumPath); err == nil {
		if actual := checksum(data); actual != strings.TrimSpace(string(expected)) {
			return &types.CorruptionError{
				Path: s.filePath,
				Err:  fmt.Errorf("checksum mismatch: expected %s, got %s", strings.TrimSpace(string(expected)), actual),
			}
		}
	}

	if len(data) == 0 {
		s.entries = map[int]*models.Entry{}
		s.nextID = 1
		return nil
	}

	var ef entryFile
	switch s.format {
	case formatJSON:
		err = json.Unmarshal(data, &ef)
	case formatYAML:
		err = yaml.Unmarshal(data, &ef)
	case formatTOML:
		err = toml.Unmarshal(data, &ef)
	}
	if err != nil {
		return &types.CorruptionError{Path: s.filePath, Err: err}
	}

	s.entries = make(map[int]*models.Entry, len(ef.Entries))
	maxID := 0
	for _, e := range ef.Entries {
		s.entries[e.ID] = e
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	s.nextID = ef.NextID
	if s.nextID <= maxID {
		s.nextID = maxID + 1
	}
	return nil
}

// persist writes the in-memory state to disk: marshal, temp file, checksum
// sidecar, atomic rename. Callers hold the file lock.
func (s *FileStore) persist() error {
	ef := entryFile{
		Entries: make([]*models.Entry, 0, len(s.entries)),
		NextID:  s.nextID,
	}
	for _, e := range s.entries {
		ef.Entries = append(ef.Entries, e)
	}
	sortEntries(ef.Entries)

	var data []byte
	var err error
	switch s.format {
	case formatJSON:
		data, err = json.MarshalIndent(ef, "", "  ")
	case formatYAML:
		data, err = yaml.Marshal(ef)
	case formatTOML:
		buf := new(bytes.Buffer)
		if encErr := toml.NewEncoder(buf).Encode(ef); encErr != nil {
			err = encErr
		} else {
			data = buf.Bytes()
		}
	}
	if err != nil {
		return fmt.Errorf("failed to marshal entries to %s: %w", s.format, err)
	}

	tmpData := s.filePath + ".tmp"
	checksumPath := s.filePath + checksumSuffix
	tmpChecksum := checksumPath + ".tmp"
	defer func() { _ = os.Remove(tmpData) }()
	defer func() { _ = os.Remove(tmpChecksum) }()

	if err := os.WriteFile(tmpData, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary data file %s: %w", tmpData, err)
	}
	if err := os.WriteFile(tmpChecksum, []byte(checksum(data)), 0o644); err != nil {
		return fmt.Errorf("failed to write temporary checksum file %s: %w", tmpChecksum, err)
	}
	if err := os.Rename(tmpData, s.filePath); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", tmpData, s.filePath, err)
	}
	if err := os.Rename(tmpChecksum, checksumPath); err != nil {
		return fmt.Errorf("data file %s updated but checksum file %s was not: %w", s.filePath, checksumPath, err)
	}
	return nil
}

// withLock runs fn with the file lock held and fresh state loaded.
func (s *FileStore) withLock(fn func() error) error {
	if s.flk == nil {
		return fmt.Errorf("store not initialized: %s", s.filePath)
	}
	if err := s.flk.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock for %s: %w", s.filePath, err)
	}
	defer func() { _ = s.flk.Unlock() }()

	if err := s.load(); err != nil {
		return err
	}
	return fn()
}

// Exists reports whether an entry with the given id is stored.
func (s *FileStore) Exists(ctx context.Context, id int) (bool, error) {
	var found bool
	err := s.withLock(func() error {
		_, found = s.entries[id]
		return nil
	})
	return found, err
}

// Get returns the entry with the given id, or nil when absent.
func (s *FileStore) Get(ctx context.Context, id int) (*models.Entry, error) {
	var entry *models.Entry
	err := s.withLock(func() error {
		if e, ok := s.entries[id]; ok {
			copied := *e
			entry = &copied
		}
		return nil
	})
	return entry, err
}

// Save persists an entry, assigning an id when it has none.
func (s *FileStore) Save(ctx context.Context, entry *models.Entry) error {
	return s.withLock(func() error {
		if entry.ID == 0 {
			entry.ID = s.nextID
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		entry.Touch()
		if err := models.ValidateStruct(entry); err != nil {
			return fmt.Errorf("validation failed for entry %d: %w", entry.ID, err)
		}

		copied := *entry
		s.entries[entry.ID] = &copied
		if entry.ID >= s.nextID {
			s.nextID = entry.ID + 1
		}
		if err := s.persist(); err != nil {
			// Reload from the unchanged file so memory matches disk.
			_ = s.load()
			return fmt.Errorf("failed to save entry %d: %w", entry.ID, err)
		}
		return nil
	})
}

// Delete removes an entry. Deleting an unknown id is a no-op.
func (s *FileStore) Delete(ctx context.Context, id int) error {
	return s.withLock(func() error {
		if _, ok := s.entries[id]; !ok {
			return nil
		}
		delete(s.entries, id)
		if err := s.persist(); err != nil {
			_ = s.load()
			return fmt.Errorf("failed to save after deleting entry %d: %w", id, err)
		}
		return nil
	})
}

// List returns entries matching the filter, newest first.
func (s *FileStore) List(ctx context.Context, filter *ListFilter) ([]*models.Entry, error) {
	var result []*models.Entry
	err := s.withLock(func() error {
		for _, e := range s.entries {
			if filter.Matches(e) {
				copied := *e
				result = append(result, &copied)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortEntries(result)
	return result, nil
}

// Search performs case-insensitive substring matching.
func (s *FileStore) Search(ctx context.Context, query string) ([]*models.Entry, error) {
	var result []*models.Entry
	err := s.withLock(func() error {
		for _, e := range s.entries {
			if matchesQuery(e, query) {
				copied := *e
				result = append(result, &copied)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortEntries(result)
	return result, nil
}

// GetStats returns aggregate counts.
func (s *FileStore) GetStats(ctx context.Context) (*Stats, error) {
	var stats *Stats
	err := s.withLock(func() error {
		all := make([]*models.Entry, 0, len(s.entries))
		for _, e := range s.entries {
			all = append(all, e)
		}
		stats = statsFromEntries(all)
		return nil
	})
	return stats, err
}

// Dispose releases the file lock.
func (s *FileStore) Dispose() error {
	if s.flk != nil {
		return s.flk.Unlock()
	}
	return nil
}

// IsGitBased reports false: the file backend does not persist through git.
func (s *FileStore) IsGitBased() bool { return false }

// IsRemoteStorage reports false: the file backend is purely local.
func (s *FileStore) IsRemoteStorage() bool { return false }

var _ Provider = (*FileStore)(nil)
