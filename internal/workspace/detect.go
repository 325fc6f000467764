/*
Package workspace describes the project a devlog repository lives in.

The detected shape is recorded in the workspace metadata so that entries
synced to another machine still say what kind of project they came from:
a plain single-repo project, a monorepo with nested packages, or a
directory of independent repositories.
*/
package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// Layout classifies how the surrounding project is organized.
type Layout string

const (
	// LayoutSingle is a normal single-project repository.
	LayoutSingle Layout = "single"
	// LayoutMonorepo is a single git root containing multiple packages.
	LayoutMonorepo Layout = "monorepo"
	// LayoutMultiRepo is a directory of independent git repositories.
	LayoutMultiRepo Layout = "multi-repo"
)

// Project is what Describe learns about the directory holding the
// devlog storage root. It marshals directly into workspace metadata.
type Project struct {
	Name     string   `json:"name"`
	Layout   Layout   `json:"layout"`
	Root     string   `json:"root"`
	Packages []string `json:"packages,omitempty"`
}

// Describe inspects basePath and reports the project it contains.
// It never fails on unreadable subdirectories; the worst case is a
// single-layout project with no packages.
func Describe(basePath string) (*Project, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Name: filepath.Base(absPath),
		Root: absPath,
	}

	nested := findNestedPackages(absPath)

	switch {
	case len(nested) > 0 && hasGitDir(absPath):
		p.Layout = LayoutMonorepo
		p.Packages = nested
	case len(nested) > 0:
		p.Layout = LayoutMultiRepo
		p.Packages = nested
	default:
		p.Layout = LayoutSingle
	}

	return p, nil
}

// PackageCount returns the number of detected packages. A single-layout
// project counts as one.
func (p *Project) PackageCount() int {
	if len(p.Packages) == 0 {
		return 1
	}
	return len(p.Packages)
}

func hasGitDir(path string) bool {
	stat, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && stat.IsDir()
}

// findNestedPackages lists sub-directories that look like independent
// packages or repositories.
func findNestedPackages(basePath string) []string {
	var packages []string

	entries, err := os.ReadDir(basePath)
	if err != nil {
		return packages
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") || isSkippableDir(name) {
			continue
		}

		if hasProjectMarker(filepath.Join(basePath, name)) {
			packages = append(packages, name)
		}
	}

	return packages
}

// hasProjectMarker checks for files that indicate an independent project.
func hasProjectMarker(path string) bool {
	markers := []string{
		".git",
		"package.json",
		"go.mod",
		"pom.xml",
		"build.gradle",
		"requirements.txt",
		"pyproject.toml",
		"Cargo.toml",
		"Dockerfile",
	}

	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(path, marker)); err == nil {
			return true
		}
	}
	return false
}

// isSkippableDir filters build output and dependency directories.
func isSkippableDir(name string) bool {
	skippable := map[string]bool{
		"node_modules": true,
		"vendor":       true,
		"dist":         true,
		"build":        true,
		"out":          true,
		"target":       true,
		"bin":          true,
		"__pycache__":  true,
		".next":        true,
		"coverage":     true,
	}
	return skippable[name]
}
