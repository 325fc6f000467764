package resolve

import (
	"errors"
	"testing"
	"time"

	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

func entryAt(id int, title string, updated time.Time) *models.Entry {
	e := models.NewEntry(id, title, models.TypeTask)
	e.CreatedAt = updated.Add(-time.Hour)
	e.UpdatedAt = updated
	return e
}

func TestResolve_TimestampWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := entryAt(1, "older local", base)
	newer := entryAt(1, "newer remote", base.Add(time.Minute))

	got, err := Resolve(older, newer, types.ConflictTimestampWins)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.Title != "newer remote" {
		t.Errorf("Resolve() picked %q, want the later version", got.Title)
	}

	// Reversed roles: the later local version wins.
	got, err = Resolve(newer, older, types.ConflictTimestampWins)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "newer remote" {
		t.Errorf("Resolve() picked %q, want the later version", got.Title)
	}
}

func TestResolve_TimestampTieRemoteWins(t *testing.T) {
	same := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	local := entryAt(1, "local", same)
	remote := entryAt(1, "remote", same)

	// Every replica resolving the same tie must pick the same side.
	got, err := Resolve(local, remote, types.ConflictTimestampWins)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "remote" {
		t.Errorf("tie resolved to %q, want remote", got.Title)
	}
}

func TestResolve_EmptyPolicyDefaultsToTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	local := entryAt(1, "local", base.Add(time.Minute))
	remote := entryAt(1, "remote", base)

	got, err := Resolve(local, remote, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "local" {
		t.Errorf("Resolve(\"\") picked %q, want the later version", got.Title)
	}
}

func TestResolve_LocalWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	local := entryAt(1, "local", base)
	remote := entryAt(1, "remote", base.Add(time.Hour))

	got, err := Resolve(local, remote, types.ConflictLocalWins)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "local" {
		t.Errorf("local-wins picked %q", got.Title)
	}
}

func TestResolve_RemoteWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	local := entryAt(1, "local", base.Add(time.Hour))
	remote := entryAt(1, "remote", base)

	got, err := Resolve(local, remote, types.ConflictRemoteWins)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "remote" {
		t.Errorf("remote-wins picked %q", got.Title)
	}
}

func TestResolve_ManualRefuses(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	local := entryAt(42, "local", base)
	remote := entryAt(42, "remote", base)

	_, err := Resolve(local, remote, types.ConflictManual)
	if !errors.Is(err, types.ErrManualResolution) {
		t.Fatalf("manual policy error = %v, want ErrManualResolution", err)
	}
}

func TestResolve_UnknownPolicy(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := Resolve(entryAt(1, "a", base), entryAt(1, "b", base), "coin-flip")
	if err == nil {
		t.Fatal("Resolve() accepted an unknown policy")
	}
	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("unknown policy error = %T, want ConfigError", err)
	}
}
