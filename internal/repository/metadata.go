package repository

import (
	"encoding/json"
	"os"
	"time"

	"github.com/codervisor/devlog/internal/workspace"
	"github.com/codervisor/devlog/types"
)

// WorkspaceStats holds aggregate counts over all entries.
type WorkspaceStats struct {
	TotalEntries int            `json:"totalEntries"`
	ByStatus     map[string]int `json:"byStatus"`
	ByType       map[string]int `json:"byType"`
	ByPriority   map[string]int `json:"byPriority"`
}

// WorkspaceInfo is the persisted shape of metadata/workspace-info.json.
type WorkspaceInfo struct {
	Workspace string             `json:"workspace"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt,omitempty"`
	Project   *workspace.Project `json:"project,omitempty"`
	Stats     WorkspaceStats     `json:"statistics"`
}

// ReadWorkspaceInfo loads metadata/workspace-info.json.
func (r *Repository) ReadWorkspaceInfo() (*WorkspaceInfo, error) {
	data, err := os.ReadFile(r.MetadataPath())
	if err != nil {
		return nil, &types.CorruptionError{Path: metadataFile, Err: err}
	}
	var info WorkspaceInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, &types.CorruptionError{Path: metadataFile, Err: err}
	}
	return &info, nil
}

// WriteWorkspaceStats refreshes the aggregate statistics after a mutation.
// Failures here are surfaced so callers can decide whether stale metadata
// matters; the index remains the source of truth.
func (r *Repository) WriteWorkspaceStats(stats WorkspaceStats) error {
	info, err := r.ReadWorkspaceInfo()
	if err != nil {
		return err
	}
	info.Stats = stats
	info.UpdatedAt = time.Now().UTC()
	return writeJSONFile(r.MetadataPath(), info)
}

// StatsFromIndex computes aggregate statistics from the index alone.
func StatsFromIndex(idx *Index) WorkspaceStats {
	stats := WorkspaceStats{
		TotalEntries: len(idx.Entries),
		ByStatus:     map[string]int{},
		ByType:       map[string]int{},
		ByPriority:   map[string]int{},
	}
	for _, rec := range idx.Entries {
		stats.ByStatus[string(rec.Status)]++
		stats.ByType[string(rec.Type)]++
		stats.ByPriority[string(rec.Priority)]++
	}
	return stats
}
