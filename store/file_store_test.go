package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

func newTestFileStore(t *testing.T, format string) *FileStore {
	t.Helper()
	cfg := types.StorageConfig{
		Type:   types.StorageFile,
		File:   filepath.Join(t.TempDir(), "devlog."+format),
		Format: format,
	}
	s, err := NewFileStore(cfg)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Dispose() })
	return s
}

func TestFileStore_SaveAssignsIDs(t *testing.T) {
	s := newTestFileStore(t, "json")
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		e := models.NewEntry(0, "entry", models.TypeTask)
		if err := s.Save(ctx, e); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		if e.ID != want {
			t.Errorf("assigned id = %d, want %d", e.ID, want)
		}
	}
}

func TestFileStore_SaveGetRoundTrip(t *testing.T) {
	for _, format := range []string{"json", "yaml", "toml"} {
		t.Run(format, func(t *testing.T) {
			s := newTestFileStore(t, format)
			ctx := context.Background()

			e := models.NewEntry(0, "persisted across formats", models.TypeFeature)
			e.Description = "format-independent payload"
			e.Priority = models.PriorityHigh
			if err := s.Save(ctx, e); err != nil {
				t.Fatalf("Save() error: %v", err)
			}

			got, err := s.Get(ctx, e.ID)
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if got == nil {
				t.Fatal("Get() returned nil for a saved entry")
			}
			if got.Title != e.Title || got.Description != e.Description || got.Priority != e.Priority {
				t.Errorf("Get() = %+v, want fields of %+v", got, e)
			}
		})
	}
}

func TestFileStore_GetUnknownIDIsNil(t *testing.T) {
	s := newTestFileStore(t, "json")

	got, err := s.Get(context.Background(), 404)
	if err != nil {
		t.Fatalf("Get() unknown id error: %v", err)
	}
	if got != nil {
		t.Errorf("Get() unknown id = %+v, want nil", got)
	}
}

func TestFileStore_DeleteUnknownIDIsNoop(t *testing.T) {
	s := newTestFileStore(t, "json")
	if err := s.Delete(context.Background(), 404); err != nil {
		t.Errorf("Delete() unknown id error: %v", err)
	}
}

func TestFileStore_ListOrderingAndFilter(t *testing.T) {
	s := newTestFileStore(t, "json")
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []struct {
		title   string
		typ     models.EntryType
		status  models.EntryStatus
		updated time.Time
	}{
		{"oldest", models.TypeTask, models.StatusNew, base},
		{"middle", models.TypeBugfix, models.StatusInProgress, base.Add(time.Hour)},
		{"newest", models.TypeBugfix, models.StatusDone, base.Add(2 * time.Hour)},
	}
	for _, sd := range seed {
		e := models.NewEntry(0, sd.title, sd.typ)
		e.Status = sd.status
		if err := s.Save(ctx, e); err != nil {
			t.Fatal(err)
		}
		// Pin UpdatedAt after Save's Touch for deterministic ordering.
		e.CreatedAt = sd.updated.Add(-time.Minute)
		e.UpdatedAt = sd.updated
		if err := s.withLock(func() error {
			copied := *e
			s.entries[e.ID] = &copied
			return s.persist()
		}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx, nil)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(all))
	}
	if all[0].Title != "newest" || all[2].Title != "oldest" {
		t.Errorf("List() order = [%s %s %s], want newest first", all[0].Title, all[1].Title, all[2].Title)
	}

	bugfixes, err := s.List(ctx, &ListFilter{Types: []models.EntryType{models.TypeBugfix}})
	if err != nil {
		t.Fatal(err)
	}
	if len(bugfixes) != 2 {
		t.Errorf("type filter returned %d entries, want 2", len(bugfixes))
	}

	combined, err := s.List(ctx, &ListFilter{
		Types:    []models.EntryType{models.TypeBugfix},
		Statuses: []models.EntryStatus{models.StatusDone},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(combined) != 1 || combined[0].Title != "newest" {
		t.Errorf("combined filter = %v entries, want just the done bugfix", len(combined))
	}
}

func TestFileStore_Search(t *testing.T) {
	s := newTestFileStore(t, "json")
	ctx := context.Background()

	a := models.NewEntry(0, "Webhook retry backlog", models.TypeFeature)
	b := models.NewEntry(0, "Unrelated cleanup", models.TypeTask)
	b.Notes = []models.Note{{
		ID:        "n1",
		Timestamp: time.Now().UTC(),
		Content:   "touched the WEBHOOK worker by accident",
	}}
	c := models.NewEntry(0, "Nothing to see", models.TypeTask)
	for _, e := range []*models.Entry{a, b, c} {
		if err := s.Save(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Search(ctx, "webhook")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Search() returned %d entries, want 2 (title and note match, case-insensitive)", len(got))
	}
}

func TestFileStore_PersistenceAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	cfg := types.StorageConfig{Type: types.StorageFile, File: filepath.Join(dir, "devlog.json")}
	ctx := context.Background()

	s1, err := NewFileStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	e := models.NewEntry(0, "survives restart", models.TypeTask)
	if err := s1.Save(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := s1.Dispose(); err != nil {
		t.Fatal(err)
	}

	s2, err := NewFileStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s2.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s2.Dispose() }()

	got, err := s2.Get(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Title != "survives restart" {
		t.Errorf("entry did not survive a restart: %+v", got)
	}

	next := models.NewEntry(0, "id continues", models.TypeTask)
	if err := s2.Save(ctx, next); err != nil {
		t.Fatal(err)
	}
	if next.ID != e.ID+1 {
		t.Errorf("id after restart = %d, want %d", next.ID, e.ID+1)
	}
}

func TestFileStore_ChecksumMismatchIsCorruption(t *testing.T) {
	dir := t.TempDir()
	cfg := types.StorageConfig{Type: types.StorageFile, File: filepath.Join(dir, "devlog.json")}
	ctx := context.Background()

	s1, err := NewFileStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s1.Save(ctx, models.NewEntry(0, "about to be tampered with", models.TypeTask)); err != nil {
		t.Fatal(err)
	}
	if err := s1.Dispose(); err != nil {
		t.Fatal(err)
	}

	// Tamper with the data file without updating the sidecar.
	if err := os.WriteFile(cfg.File, []byte(`{"entries":[],"nextId":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s2, err := NewFileStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	err = s2.Initialize(ctx)
	var corrupt *types.CorruptionError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Initialize() on tampered file error = %v, want CorruptionError", err)
	}
}

func TestNewFileStore_RejectsUnknownFormat(t *testing.T) {
	_, err := NewFileStore(types.StorageConfig{Type: types.StorageFile, File: "x.xml", Format: "xml"})
	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("NewFileStore() error = %v, want ConfigError", err)
	}
}
