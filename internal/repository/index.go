package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

// IndexEntry is the lightweight projection of an entry kept in index.json
// so listings never have to read every entry file.
type IndexEntry struct {
	ID        int                  `json:"id"`
	Title     string               `json:"title"`
	Type      models.EntryType     `json:"type"`
	Status    models.EntryStatus   `json:"status"`
	Priority  models.EntryPriority `json:"priority"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
	File      string               `json:"file"`
	Slug      string               `json:"slug"`
}

// Index is the persisted shape of index.json. Entries is keyed by the
// decimal string form of the entry id. NextID is monotonic and always
// at least max(existing id)+1.
type Index struct {
	Version      int                   `json:"version"`
	Entries      map[string]IndexEntry `json:"entries"`
	NextID       int                   `json:"nextId"`
	LastModified time.Time             `json:"lastModified"`
	CreatedAt    time.Time             `json:"createdAt"`
	Workspace    string                `json:"workspace,omitempty"`
}

// Get returns the index record for an id.
func (idx *Index) Get(id int) (IndexEntry, bool) {
	rec, ok := idx.Entries[strconv.Itoa(id)]
	return rec, ok
}

// Records returns all index records sorted by UpdatedAt descending.
// Ties keep ascending id order so the result is deterministic.
func (idx *Index) Records() []IndexEntry {
	recs := make([]IndexEntry, 0, len(idx.Entries))
	for _, rec := range idx.Entries {
		recs = append(recs, rec)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].UpdatedAt.Equal(recs[j].UpdatedAt) {
			return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
	return recs
}

// indexRecord builds the projection for one entry.
func indexRecord(e *models.Entry, filename string) IndexEntry {
	return IndexEntry{
		ID:        e.ID,
		Title:     e.Title,
		Type:      e.Type,
		Status:    e.Status,
		Priority:  e.Priority,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
		File:      filename,
		Slug:      Slug(e.Title),
	}
}

// ReadIndex loads and parses index.json. A missing or unparsable index is a
// hard failure reported as a corruption error; callers that want to recover
// go through Validate/Repair instead.
func (r *Repository) ReadIndex() (*Index, error) {
	data, err := os.ReadFile(r.IndexPath())
	if err != nil {
		return nil, &types.CorruptionError{Path: indexFileName, Err: err}
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, &types.CorruptionError{Path: indexFileName, Err: err}
	}
	if idx.Entries == nil {
		idx.Entries = map[string]IndexEntry{}
	}
	return &idx, nil
}

// AllocateID reserves the next entry id and advances nextId on disk.
func (r *Repository) AllocateID() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.ReadIndex()
	if err != nil {
		return 0, err
	}
	id := idx.NextID
	idx.NextID++
	idx.LastModified = time.Now().UTC()
	if err := r.writeIndexFile(idx); err != nil {
		return 0, err
	}
	return id, nil
}

// updateIndexLocked performs the index read-modify-write for one entry
// under the repository mutex. If the entry was previously stored under a
// different filename (title change), the stale file is removed so the
// one-file-per-index-record invariant holds.
func (r *Repository) updateIndexLocked(e *models.Entry, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}

	key := strconv.Itoa(e.ID)
	if prev, ok := idx.Entries[key]; ok && prev.File != filename {
		_ = os.Remove(filepath.Join(r.EntriesDir(), prev.File))
	}

	idx.Entries[key] = indexRecord(e, filename)
	if e.ID >= idx.NextID {
		idx.NextID = e.ID + 1
	}
	idx.LastModified = time.Now().UTC()
	return r.writeIndexFile(idx)
}

// UpdateIndex refreshes the index record for an entry already written to
// the given filename.
func (r *Repository) UpdateIndex(e *models.Entry) error {
	return r.updateIndexLocked(e, EntryFilename(e))
}

// RemoveFromIndex deletes the index record for an id. Removing an unknown
// id is a no-op.
func (r *Repository) RemoveFromIndex(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}
	key := strconv.Itoa(id)
	if _, ok := idx.Entries[key]; !ok {
		return nil
	}
	delete(idx.Entries, key)
	idx.LastModified = time.Now().UTC()
	return r.writeIndexFile(idx)
}

// writeIndexFile persists the index atomically. Callers hold r.mu.
func (r *Repository) writeIndexFile(idx *Index) error {
	return writeJSONFile(r.IndexPath(), idx)
}
