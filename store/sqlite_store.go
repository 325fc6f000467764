package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

// SQLiteStore implements Provider with a SQLite database. The full entry is
// stored as a JSON document alongside the projected columns used for
// filtering and search.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	search_text TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_updated_at ON entries(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(status);
`

// NewSQLiteStore creates a SQLite-backed store from configuration.
func NewSQLiteStore(cfg types.StorageConfig) (*SQLiteStore, error) {
	path := cfg.Database
	if path == "" {
		if cfg.RootDir == "" {
			return nil, types.NewConfigError("storage", "sqlite backend requires storage.database or storage.rootDir")
		}
		path = filepath.Join(cfg.RootDir, "devlog.db")
	}
	return &SQLiteStore{dbPath: path}, nil
}

// Initialize opens the database and creates the schema. Idempotent.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if s.dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", s.dbPath, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.db = db
	return nil
}

func (s *SQLiteStore) ready() error {
	if s.db == nil {
		return fmt.Errorf("sqlite store not initialized: %s", s.dbPath)
	}
	return nil
}

// searchText flattens the searchable fields of an entry for LIKE queries.
func searchText(e *models.Entry) string {
	parts := []string{e.Title, e.Description}
	for _, n := range e.Notes {
		parts = append(parts, n.Content)
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}

// Exists reports whether an entry with the given id is stored.
func (s *SQLiteStore) Exists(ctx context.Context, id int) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM entries WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check entry %d: %w", id, err)
	}
	return true, nil
}

// Get returns the entry with the given id, or nil when absent.
func (s *SQLiteStore) Get(ctx context.Context, id int) (*models.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM entries WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entry %d: %w", id, err)
	}
	var e models.Entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, fmt.Errorf("failed to parse stored entry %d: %w", id, err)
	}
	return &e, nil
}

// Save persists an entry, assigning an id when it has none.
func (s *SQLiteStore) Save(ctx context.Context, entry *models.Entry) error {
	if err := s.ready(); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.Touch()
	return s.put(ctx, entry)
}

// put writes the entry exactly as given, preserving its timestamps. The
// hybrid backend uses it so the cache never diverges from the git-tracked
// files, which carry the authoritative updatedAt.
func (s *SQLiteStore) put(ctx context.Context, entry *models.Entry) error {
	if err := s.ready(); err != nil {
		return err
	}
	if entry.ID == 0 {
		var maxID sql.NullInt64
		if err := s.db.QueryRowContext(ctx, "SELECT MAX(id) FROM entries").Scan(&maxID); err != nil {
			return fmt.Errorf("failed to allocate id: %w", err)
		}
		entry.ID = int(maxID.Int64) + 1
	}
	if err := models.ValidateStruct(entry); err != nil {
		return fmt.Errorf("validation failed for entry %d: %w", entry.ID, err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry %d: %w", entry.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (id, title, type, status, priority, search_text, created_at, updated_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			type = excluded.type,
			status = excluded.status,
			priority = excluded.priority,
			search_text = excluded.search_text,
			updated_at = excluded.updated_at,
			data = excluded.data`,
		entry.ID, entry.Title, string(entry.Type), string(entry.Status), string(entry.Priority),
		searchText(entry), entry.CreatedAt.Format(time.RFC3339Nano),
		entry.UpdatedAt.Format(time.RFC3339Nano), string(data))
	if err != nil {
		return fmt.Errorf("failed to save entry %d: %w", entry.ID, err)
	}
	return nil
}

// Delete removes an entry. Deleting an unknown id is a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, id int) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete entry %d: %w", id, err)
	}
	return nil
}

// queryEntries runs a SELECT over data and unmarshals the results.
func (s *SQLiteStore) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Entry
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		var e models.Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("failed to parse stored entry: %w", err)
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}

// List returns entries matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter *ListFilter) ([]*models.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	entries, err := s.queryEntries(ctx, "SELECT data FROM entries ORDER BY updated_at DESC, id ASC")
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return entries, nil
	}
	filtered := make([]*models.Entry, 0, len(entries))
	for _, e := range entries {
		if filter.Matches(e) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Search performs case-insensitive substring matching via the flattened
// search_text column.
func (s *SQLiteStore) Search(ctx context.Context, query string) ([]*models.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return s.queryEntries(ctx,
		"SELECT data FROM entries WHERE search_text LIKE ? ORDER BY updated_at DESC, id ASC", pattern)
}

// GetStats returns aggregate counts computed in SQL.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	stats := &Stats{
		ByStatus:   map[string]int{},
		ByType:     map[string]int{},
		ByPriority: map[string]int{},
	}
	rows, err := s.db.QueryContext(ctx, "SELECT status, type, priority FROM entries")
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var status, typ, priority string
		if err := rows.Scan(&status, &typ, &priority); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.TotalEntries++
		stats.ByStatus[status]++
		stats.ByType[typ]++
		stats.ByPriority[priority]++
	}
	return stats, rows.Err()
}

// Dispose closes the database handle.
func (s *SQLiteStore) Dispose() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// IsGitBased reports false for the plain SQLite backend.
func (s *SQLiteStore) IsGitBased() bool { return false }

// IsRemoteStorage reports false: the database is purely local.
func (s *SQLiteStore) IsRemoteStorage() bool { return false }

var _ Provider = (*SQLiteStore)(nil)
