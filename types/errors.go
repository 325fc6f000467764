/*
Copyright © 2025 Codervisor
*/
package types

import (
	"errors"
	"fmt"
)

// ErrManualResolution is returned when the conflict policy is "manual" and
// two diverged versions cannot be reconciled automatically.
var ErrManualResolution = errors.New("conflict requires manual resolution")

// CorruptionError indicates an on-disk artifact (index, config) failed to
// parse. The message always names the offending file.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("missing or corrupted %s: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// GitError indicates a git subprocess exited non-zero. Stderr is carried
// verbatim so callers see git's own diagnostic.
type GitError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *GitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git command failed: %v: %s", e.Err, e.Stderr)
	}
	return fmt.Sprintf("git command failed: %v", e.Err)
}

func (e *GitError) Unwrap() error { return e.Err }

// GitTimeoutError indicates a git subprocess exceeded its deadline. It is a
// distinct kind from GitError so callers can choose to retry or abort.
type GitTimeoutError struct {
	Args []string
}

func (e *GitTimeoutError) Error() string {
	return fmt.Sprintf("git command timed out: git %v", e.Args)
}

// ExternalAPIError indicates a non-2xx response from an external issue
// tracker. StatusCode and the response body are preserved.
type ExternalAPIError struct {
	System     string
	StatusCode int
	Body       string
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API request failed with status %d: %s", e.System, e.StatusCode, e.Body)
}

// ConfigError indicates a required configuration section is missing or
// invalid for the selected backend or strategy. It is raised at
// construction time, before any I/O.
type ConfigError struct {
	Section string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration [%s]: %s", e.Section, e.Reason)
}

// NewConfigError creates a configuration error for the given section.
func NewConfigError(section, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Section: section, Reason: fmt.Sprintf(format, args...)}
}
