package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	cfg := types.StorageConfig{
		Type:     types.StorageSQLite,
		Database: filepath.Join(t.TempDir(), "devlog.db"),
	}
	s, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Dispose() })
	return s
}

func TestSQLiteStore_SaveGetRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	e := models.NewEntry(0, "sqlite backed", models.TypeFeature)
	e.Description = "stored as a JSON document"
	e.Notes = []models.Note{{ID: "n1", Timestamp: e.CreatedAt, Content: "first note"}}
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if e.ID != 1 {
		t.Errorf("assigned id = %d, want 1", e.ID)
	}

	got, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil for a saved entry")
	}
	if got.Title != e.Title || len(got.Notes) != 1 || got.Notes[0].Content != "first note" {
		t.Errorf("Get() = %+v, want full document back", got)
	}
}

func TestSQLiteStore_SaveIsUpsert(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	e := models.NewEntry(0, "original", models.TypeTask)
	if err := s.Save(ctx, e); err != nil {
		t.Fatal(err)
	}
	e.Title = "revised"
	e.Status = models.StatusInProgress
	if err := s.Save(ctx, e); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "revised" || got.Status != models.StatusInProgress {
		t.Errorf("Get() after update = %+v", got)
	}

	all, err := s.List(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("List() after upsert = %d rows, want 1", len(all))
	}
}

func TestSQLiteStore_GetUnknownIDIsNil(t *testing.T) {
	s := newTestSQLiteStore(t)
	got, err := s.Get(context.Background(), 404)
	if err != nil {
		t.Fatalf("Get() unknown id error: %v", err)
	}
	if got != nil {
		t.Errorf("Get() unknown id = %+v, want nil", got)
	}
}

func TestSQLiteStore_ExistsAndDelete(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	e := models.NewEntry(0, "to remove", models.TypeTask)
	if err := s.Save(ctx, e); err != nil {
		t.Fatal(err)
	}
	ok, err := s.Exists(ctx, e.ID)
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v, want true", ok, err)
	}

	if err := s.Delete(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	ok, err = s.Exists(ctx, e.ID)
	if err != nil || ok {
		t.Fatalf("Exists() after delete = %v, %v, want false", ok, err)
	}

	// Unknown id is a no-op.
	if err := s.Delete(ctx, 404); err != nil {
		t.Errorf("Delete() unknown id error: %v", err)
	}
}

func TestSQLiteStore_SearchMatchesNotes(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	a := models.NewEntry(0, "Queue overhaul", models.TypeFeature)
	a.Notes = []models.Note{{ID: "n1", Timestamp: a.CreatedAt, Content: "switched to BACKOFF retries"}}
	b := models.NewEntry(0, "Docs pass", models.TypeDocs)
	for _, e := range []*models.Entry{a, b} {
		if err := s.Save(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Search(ctx, "backoff")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("Search() = %d entries, want the note match only", len(got))
	}
}

func TestSQLiteStore_Stats(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	seed := []struct {
		typ    models.EntryType
		status models.EntryStatus
	}{
		{models.TypeBugfix, models.StatusDone},
		{models.TypeBugfix, models.StatusNew},
		{models.TypeFeature, models.StatusNew},
	}
	for _, sd := range seed {
		e := models.NewEntry(0, "seed", sd.typ)
		e.Status = sd.status
		if err := s.Save(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.TotalEntries != 3 {
		t.Errorf("TotalEntries = %d, want 3", stats.TotalEntries)
	}
	if stats.ByType["bugfix"] != 2 || stats.ByStatus["new"] != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
