package store

import (
	"sort"
	"strings"

	"github.com/codervisor/devlog/models"
)

// ListFilter narrows a List call. Fields are AND-combined; each field is a
// membership test over its set, and an empty set means no constraint on
// that field.
type ListFilter struct {
	Types      []models.EntryType
	Statuses   []models.EntryStatus
	Priorities []models.EntryPriority
}

// Matches reports whether an entry satisfies every populated filter field.
func (f *ListFilter) Matches(e *models.Entry) bool {
	if f == nil {
		return true
	}
	if len(f.Types) > 0 && !containsType(f.Types, e.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, e.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, e.Priority) {
		return false
	}
	return true
}

func containsType(set []models.EntryType, v models.EntryType) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsStatus(set []models.EntryStatus, v models.EntryStatus) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsPriority(set []models.EntryPriority, v models.EntryPriority) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// matchesQuery reports whether an entry matches a search query: a
// case-insensitive substring test across title, description, and note
// content.
func matchesQuery(e *models.Entry, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(e.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Description), q) {
		return true
	}
	for _, note := range e.Notes {
		if strings.Contains(strings.ToLower(note.Content), q) {
			return true
		}
	}
	return false
}

// sortEntries orders entries by UpdatedAt descending, ties broken by
// ascending id so results are deterministic.
func sortEntries(entries []*models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

// statsFromEntries aggregates counts over a slice of entries.
func statsFromEntries(entries []*models.Entry) *Stats {
	stats := &Stats{
		TotalEntries: len(entries),
		ByStatus:     map[string]int{},
		ByType:       map[string]int{},
		ByPriority:   map[string]int{},
	}
	for _, e := range entries {
		stats.ByStatus[string(e.Status)]++
		stats.ByType[string(e.Type)]++
		stats.ByPriority[string(e.Priority)]++
	}
	return stats
}
