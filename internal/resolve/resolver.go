// Package resolve picks a winner when local and remote copies of the same
// entry disagree. It never performs I/O; the caller writes the resolved
// version back through the repository layer.
package resolve

import (
	"fmt"

	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

// Resolve applies the configured policy to two diverged versions of an
// entry and returns the winner wholesale; no field-level merge is
// attempted. The manual policy refuses to decide.
func Resolve(local, remote *models.Entry, policy types.ConflictPolicy) (*models.Entry, error) {
	switch policy {
	case types.ConflictTimestampWins, "":
		// Later updatedAt wins. On an exact tie the remote wins so every
		// replica converges to the same version.
		if local.UpdatedAt.After(remote.UpdatedAt) {
			return local, nil
		}
		return remote, nil
	case types.ConflictLocalWins:
		return local, nil
	case types.ConflictRemoteWins:
		return remote, nil
	case types.ConflictManual:
		return nil, fmt.Errorf("entry %d: %w", local.ID, types.ErrManualResolution)
	default:
		return nil, types.NewConfigError("features.conflictResolution", "unknown policy %q", policy)
	}
}
