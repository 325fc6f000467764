package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	path := filepath.Join(parts...)
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func touch(t *testing.T, parts ...string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(parts...), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDescribe_SingleRepo(t *testing.T) {
	dir := t.TempDir()
	mkdir(t, dir, ".git")

	p, err := Describe(dir)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if p.Layout != LayoutSingle {
		t.Errorf("Layout = %s, want single", p.Layout)
	}
	if p.Name != filepath.Base(dir) {
		t.Errorf("Name = %q, want %q", p.Name, filepath.Base(dir))
	}
	if p.PackageCount() != 1 {
		t.Errorf("PackageCount = %d, want 1", p.PackageCount())
	}
}

func TestDescribe_Monorepo(t *testing.T) {
	dir := t.TempDir()
	mkdir(t, dir, ".git")
	mkdir(t, dir, "api")
	touch(t, dir, "api", "go.mod")
	mkdir(t, dir, "web")
	touch(t, dir, "web", "package.json")

	p, err := Describe(dir)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if p.Layout != LayoutMonorepo {
		t.Errorf("Layout = %s, want monorepo", p.Layout)
	}
	if len(p.Packages) != 2 {
		t.Errorf("Packages = %v, want [api web]", p.Packages)
	}
}

func TestDescribe_MultiRepo(t *testing.T) {
	dir := t.TempDir()
	mkdir(t, dir, "service-a", ".git")
	mkdir(t, dir, "service-b", ".git")

	p, err := Describe(dir)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if p.Layout != LayoutMultiRepo {
		t.Errorf("Layout = %s, want multi-repo", p.Layout)
	}
	if p.PackageCount() != 2 {
		t.Errorf("PackageCount = %d, want 2", p.PackageCount())
	}
}

func TestDescribe_SkipsDependencyDirs(t *testing.T) {
	dir := t.TempDir()
	mkdir(t, dir, ".git")
	mkdir(t, dir, "node_modules", "leftpad")
	touch(t, dir, "node_modules", "leftpad", "package.json")
	mkdir(t, dir, ".hidden")

	p, err := Describe(dir)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if p.Layout != LayoutSingle {
		t.Errorf("Layout = %s, want single (node_modules must not count)", p.Layout)
	}
}

func TestDescribe_PlainDirectory(t *testing.T) {
	p, err := Describe(t.TempDir())
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if p.Layout != LayoutSingle || len(p.Packages) != 0 {
		t.Errorf("got %s/%v, want single with no packages", p.Layout, p.Packages)
	}
}
