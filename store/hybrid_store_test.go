package store

import (
	"context"
	"testing"
	"time"

	"github.com/codervisor/devlog/internal/git"
	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

func newTestHybridStore(t *testing.T) (*HybridStore, *scriptedCommander) {
	t.Helper()
	m := newScriptedCommander()
	cfg := types.StorageConfig{
		Type:    types.StorageGitWithCache,
		RootDir: t.TempDir(),
	}
	h, err := NewHybridStore(cfg, "test-workspace", false)
	if err != nil {
		t.Fatalf("NewHybridStore() error: %v", err)
	}
	h.gitStore.git = git.NewClientWithCommander(cfg.RootDir, "main", m)
	m.responses["rev-parse --is-inside-work-tree"] = "true"
	if err := h.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	t.Cleanup(func() { _ = h.Dispose() })
	return h, m
}

func TestHybridStore_WriteThrough(t *testing.T) {
	h, _ := newTestHybridStore(t)
	ctx := context.Background()

	e := models.NewEntry(0, "cached and committed", models.TypeFeature)
	if err := h.Save(ctx, e); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// Both layers hold the entry: the repository as the source of truth,
	// the cache for reads.
	fromGit, err := h.gitStore.Get(ctx, e.ID)
	if err != nil || fromGit == nil {
		t.Fatalf("git layer Get() = %v, %v", fromGit, err)
	}
	fromCache, err := h.cache.Get(ctx, e.ID)
	if err != nil || fromCache == nil {
		t.Fatalf("cache layer Get() = %v, %v", fromCache, err)
	}

	got, err := h.Get(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Title != e.Title {
		t.Errorf("Get() = %+v", got)
	}
}

func TestHybridStore_GetBackfillsCacheMiss(t *testing.T) {
	h, _ := newTestHybridStore(t)
	ctx := context.Background()

	// Write behind the cache's back, straight into the repository.
	e := models.NewEntry(0, "only in git", models.TypeTask)
	if err := h.gitStore.Save(ctx, e); err != nil {
		t.Fatal(err)
	}

	got, err := h.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil || got.Title != "only in git" {
		t.Fatalf("Get() = %+v, want fallback to the repository", got)
	}

	// The miss is backfilled.
	cached, err := h.cache.Get(ctx, e.ID)
	if err != nil || cached == nil {
		t.Errorf("cache not backfilled after miss: %v, %v", cached, err)
	}
}

func TestHybridStore_DeleteRemovesFromBothLayers(t *testing.T) {
	h, _ := newTestHybridStore(t)
	ctx := context.Background()

	e := models.NewEntry(0, "short lived", models.TypeTask)
	if err := h.Save(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := h.Delete(ctx, e.ID); err != nil {
		t.Fatal(err)
	}

	if got, _ := h.gitStore.Get(ctx, e.ID); got != nil {
		t.Error("entry still in the repository after delete")
	}
	if got, _ := h.cache.Get(ctx, e.ID); got != nil {
		t.Error("entry still in the cache after delete")
	}
}

func TestHybridStore_InitializeWarmsCache(t *testing.T) {
	m := newScriptedCommander()
	cfg := types.StorageConfig{Type: types.StorageGitWithCache, RootDir: t.TempDir()}

	// Seed the repository through a plain git store first.
	seed, err := NewGitStore(cfg, "ws", false)
	if err != nil {
		t.Fatal(err)
	}
	seed.git = git.NewClientWithCommander(cfg.RootDir, "main", m)
	m.responses["rev-parse --is-inside-work-tree"] = "true"
	ctx := context.Background()
	if err := seed.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	e := models.NewEntry(0, "preexisting", models.TypeTask)
	if err := seed.Save(ctx, e); err != nil {
		t.Fatal(err)
	}
	_ = seed.Dispose()

	h, err := NewHybridStore(cfg, "ws", false)
	if err != nil {
		t.Fatal(err)
	}
	h.gitStore.git = git.NewClientWithCommander(cfg.RootDir, "main", m)
	if err := h.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = h.Dispose() }()

	cached, err := h.cache.Get(ctx, e.ID)
	if err != nil || cached == nil {
		t.Errorf("cache not warmed from repository on Initialize: %v, %v", cached, err)
	}
}

func TestHybridStore_IsGitBased(t *testing.T) {
	h, _ := newTestHybridStore(t)
	if !h.IsGitBased() {
		t.Error("IsGitBased() = false")
	}
	if h.IsRemoteStorage() {
		t.Error("IsRemoteStorage() = true with no remote configured")
	}
}

func TestHybridStore_CachePreservesTimestamps(t *testing.T) {
	h, _ := newTestHybridStore(t)
	ctx := context.Background()

	e := models.NewEntry(0, "timestamps agree", models.TypeFeature)
	if err := h.Save(ctx, e); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	fromGit, err := h.gitStore.Get(ctx, e.ID)
	if err != nil || fromGit == nil {
		t.Fatalf("git layer Get() = %v, %v", fromGit, err)
	}
	fromCache, err := h.cache.Get(ctx, e.ID)
	if err != nil || fromCache == nil {
		t.Fatalf("cache layer Get() = %v, %v", fromCache, err)
	}
	if !fromCache.UpdatedAt.Equal(fromGit.UpdatedAt) {
		t.Errorf("cache updatedAt %s diverged from git file %s",
			fromCache.UpdatedAt, fromGit.UpdatedAt)
	}
	if !fromCache.UpdatedAt.Equal(e.UpdatedAt) {
		t.Errorf("Get after Save changed updatedAt: saved %s, cached %s",
			e.UpdatedAt, fromCache.UpdatedAt)
	}

	// A rebuild mirrors the repository; it must not bump timestamps.
	if err := h.rebuildCache(ctx); err != nil {
		t.Fatalf("rebuildCache() error: %v", err)
	}
	rebuilt, err := h.cache.Get(ctx, e.ID)
	if err != nil || rebuilt == nil {
		t.Fatalf("cache Get() after rebuild = %v, %v", rebuilt, err)
	}
	if !rebuilt.UpdatedAt.Equal(fromGit.UpdatedAt) {
		t.Errorf("rebuild bumped updatedAt: file %s, cache %s",
			fromGit.UpdatedAt, rebuilt.UpdatedAt)
	}
}

func TestHybridStore_ListOrderSurvivesRebuild(t *testing.T) {
	h, _ := newTestHybridStore(t)
	ctx := context.Background()

	older := models.NewEntry(0, "older", models.TypeTask)
	if err := h.Save(ctx, older); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	newer := models.NewEntry(0, "newer", models.TypeTask)
	if err := h.Save(ctx, newer); err != nil {
		t.Fatal(err)
	}

	if err := h.rebuildCache(ctx); err != nil {
		t.Fatalf("rebuildCache() error: %v", err)
	}
	entries, err := h.List(ctx, nil)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != newer.ID || entries[1].ID != older.ID {
		t.Errorf("List() order after rebuild = %v, want newest first by real updatedAt",
			[]int{entries[0].ID, entries[1].ID})
	}
}

func TestHybridStore_ExistsFallsBackToRepository(t *testing.T) {
	h, _ := newTestHybridStore(t)
	ctx := context.Background()

	// Write behind the cache's back, straight into the repository.
	e := models.NewEntry(0, "uncached", models.TypeTask)
	if err := h.gitStore.Save(ctx, e); err != nil {
		t.Fatal(err)
	}

	ok, err := h.Exists(ctx, e.ID)
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if !ok {
		t.Error("Exists() = false for an entry Get would return")
	}
}
