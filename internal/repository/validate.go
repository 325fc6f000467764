package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ValidationResult reports the outcome of a repository consistency check.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

// Validate checks the repository layout without mutating it. It verifies
// that the directories exist, that index.json parses and carries its
// required fields, and that every file under entries/ has an index record
// (orphaned files). It deliberately does not check the converse — index
// records whose file is missing are Repair's concern.
// Corruption is surfaced as an issue rather than an error so callers can
// choose to repair.
func (r *Repository) Validate() (*ValidationResult, error) {
	res := &ValidationResult{Valid: true}

	for _, dir := range []string{r.root, r.EntriesDir(), filepath.Join(r.root, metadataDirName)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			res.Valid = false
			res.Issues = append(res.Issues, fmt.Sprintf("missing directory: %s", dir))
		}
	}

	data, err := os.ReadFile(r.IndexPath())
	if err != nil {
		res.Valid = false
		res.Issues = append(res.Issues, "missing or corrupted index.json")
		return res, nil
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		res.Valid = false
		res.Issues = append(res.Issues, "missing or corrupted index.json")
		return res, nil
	}
	if idx.Version == 0 {
		res.Valid = false
		res.Issues = append(res.Issues, "index.json missing required field: version")
	}
	if idx.Entries == nil {
		res.Valid = false
		res.Issues = append(res.Issues, "index.json missing required field: entries")
	}
	if idx.NextID == 0 {
		res.Valid = false
		res.Issues = append(res.Issues, "index.json missing required field: nextId")
	}

	indexed := map[string]bool{}
	for _, rec := range idx.Entries {
		indexed[rec.File] = true
	}

	files, err := r.ListEntryFiles()
	if err != nil {
		res.Valid = false
		res.Issues = append(res.Issues, fmt.Sprintf("cannot list entries directory: %v", err))
		return res, nil
	}
	for _, f := range files {
		if !indexed[f] {
			res.Valid = false
			res.Issues = append(res.Issues, fmt.Sprintf("orphaned entry file not in index: %s", f))
		}
	}

	return res, nil
}

// Repair reconciles the index with the entry files in both directions:
// orphaned files are re-indexed from their own content, and index records
// whose file is missing are dropped. It returns a description of every
// action taken.
func (r *Repository) Repair() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}

	var actions []string

	files, err := r.ListEntryFiles()
	if err != nil {
		return nil, err
	}
	onDisk := map[string]bool{}
	for _, f := range files {
		onDisk[f] = true
	}

	indexed := map[string]bool{}
	for _, rec := range idx.Entries {
		indexed[rec.File] = true
	}

	for _, f := range files {
		if indexed[f] {
			continue
		}
		e, err := r.ReadEntryFile(f)
		if err != nil {
			actions = append(actions, fmt.Sprintf("skipped unreadable file %s: %v", f, err))
			continue
		}
		idx.Entries[strconv.Itoa(e.ID)] = indexRecord(e, f)
		if e.ID >= idx.NextID {
			idx.NextID = e.ID + 1
		}
		actions = append(actions, fmt.Sprintf("re-indexed orphaned file %s", f))
	}

	for key, rec := range idx.Entries {
		if !onDisk[rec.File] {
			delete(idx.Entries, key)
			actions = append(actions, fmt.Sprintf("dropped dangling index record %s (%s)", key, rec.File))
		}
	}

	if len(actions) > 0 {
		idx.LastModified = idx.LastModified.UTC()
		if err := r.writeIndexFile(idx); err != nil {
			return actions, err
		}
	}
	return actions, nil
}
