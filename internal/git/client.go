// Package git provides a thin synchronous wrapper over the external git
// binary for one (repository, branch) working copy. It uses os/exec instead
// of an in-process git implementation so the user's SSH keys, credential
// helpers, and signing config apply unchanged.
//
// The wrapper carries no business logic and no retry policy; it translates
// non-zero exit codes into errors carrying the captured stderr and leaves
// everything else to the caller.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/codervisor/devlog/types"
)

// Common errors returned by git operations.
var (
	ErrGitNotInstalled  = errors.New("git is not installed or not in PATH")
	ErrNotGitRepository = errors.New("not a git repository")
	ErrNoRemote         = errors.New("no remote configured for this repository")
)

// Commander is an interface for executing commands.
// This allows mocking in tests.
type Commander interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ShellCommander executes real shell commands.
type ShellCommander struct{}

// Run executes a command in the specified directory, bounded by ctx.
func (c *ShellCommander) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", &types.GitTimeoutError{Args: args}
		}
		return "", &types.GitError{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Client wraps git operations against one working copy.
type Client struct {
	commander Commander
	workDir   string
	branch    string
}

// NewClient creates a git client for the given working directory and branch.
func NewClient(workDir, branch string) *Client {
	return &Client{
		commander: &ShellCommander{},
		workDir:   workDir,
		branch:    branch,
	}
}

// NewClientWithCommander creates a client with a custom commander (for testing).
func NewClientWithCommander(workDir, branch string, commander Commander) *Client {
	return &Client{
		commander: commander,
		workDir:   workDir,
		branch:    branch,
	}
}

// WorkDir returns the working copy directory.
func (c *Client) WorkDir() string { return c.workDir }

// Branch returns the branch this client is bound to.
func (c *Client) Branch() string { return c.branch }

// IsInstalled checks if the git binary is available in PATH.
func (c *Client) IsInstalled(ctx context.Context) bool {
	_, err := c.commander.Run(ctx, "", "git", "--version")
	return err == nil
}

// IsRepository checks if the working directory is a git repository.
func (c *Client) IsRepository(ctx context.Context) bool {
	_, err := c.commander.Run(ctx, c.workDir, "git", "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// Init creates a new repository in the working directory on the configured
// branch.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.commander.Run(ctx, c.workDir, "git", "init", "-b", c.branch)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	return nil
}

// Clone clones the repository into the working directory, checked out at
// the configured branch.
func (c *Client) Clone(ctx context.Context, repository string) error {
	_, err := c.commander.Run(ctx, "", "git", "clone", "--branch", c.branch, repository, c.workDir)
	if err != nil {
		return fmt.Errorf("clone %s: %w", repository, err)
	}
	return nil
}

// Pull fetches and merges changes from origin.
func (c *Client) Pull(ctx context.Context) error {
	_, err := c.commander.Run(ctx, c.workDir, "git", "pull", "origin", c.branch)
	if err != nil {
		return fmt.Errorf("pull origin/%s: %w", c.branch, err)
	}
	return nil
}

// Fetch fetches updates from origin without merging.
func (c *Client) Fetch(ctx context.Context) error {
	_, err := c.commander.Run(ctx, c.workDir, "git", "fetch", "origin")
	if err != nil {
		return fmt.Errorf("fetch origin: %w", err)
	}
	return nil
}

// AddAll stages all changes in the working directory.
func (c *Client) AddAll(ctx context.Context) error {
	_, err := c.commander.Run(ctx, c.workDir, "git", "add", "-A")
	if err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}
	return nil
}

// Commit creates a commit with the given message. Committing with nothing
// staged is reported by git as a failure and surfaces as one.
func (c *Client) Commit(ctx context.Context, message string) error {
	_, err := c.commander.Run(ctx, c.workDir, "git", "commit", "-m", message)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Push pushes the configured branch to origin.
func (c *Client) Push(ctx context.Context) error {
	_, err := c.commander.Run(ctx, c.workDir, "git", "push", "origin", c.branch)
	if err != nil {
		return fmt.Errorf("push origin/%s: %w", c.branch, err)
	}
	return nil
}

// IsDirty checks if the working directory has uncommitted changes.
func (c *Client) IsDirty(ctx context.Context) (bool, error) {
	output, err := c.commander.Run(ctx, c.workDir, "git", "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("check dirty state: %w", err)
	}
	return output != "", nil
}

// ChangedFiles returns paths with uncommitted changes, as reported by
// git status --porcelain.
func (c *Client) ChangedFiles(ctx context.Context) ([]string, error) {
	output, err := c.commander.Run(ctx, c.workDir, "git", "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("list changed files: %w", err)
	}
	var files []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Format is "XY path" with a two-character status prefix.
		parts := strings.SplitN(line, " ", 2)
		if len(parts) == 2 {
			files = append(files, strings.TrimSpace(parts[1]))
		}
	}
	return files, nil
}

// RemoteStatus describes the relation between the local branch and origin.
type RemoteStatus struct {
	Status string `json:"status"` // up-to-date, ahead, behind, diverged, no-remote
	Ahead  int    `json:"ahead"`
	Behind int    `json:"behind"`
	Dirty  bool   `json:"dirty"`
}

// RemoteStatus compares the local branch against origin after a fetch.
func (c *Client) RemoteStatus(ctx context.Context) (*RemoteStatus, error) {
	if !c.HasRemote(ctx) {
		dirty, err := c.IsDirty(ctx)
		if err != nil {
			return nil, err
		}
		return &RemoteStatus{Status: "no-remote", Dirty: dirty}, nil
	}

	if err := c.Fetch(ctx); err != nil {
		return nil, err
	}

	upstream := "origin/" + c.branch
	output, err := c.commander.Run(ctx, c.workDir, "git", "rev-list", "--left-right", "--count",
		fmt.Sprintf("HEAD...%s", upstream))
	if err != nil {
		return nil, fmt.Errorf("compare with %s: %w", upstream, err)
	}

	var ahead, behind int
	if _, err := fmt.Sscanf(output, "%d\t%d", &ahead, &behind); err != nil {
		if _, err := fmt.Sscanf(output, "%d %d", &ahead, &behind); err != nil {
			return nil, fmt.Errorf("parse rev-list output %q: %w", output, err)
		}
	}

	dirty, err := c.IsDirty(ctx)
	if err != nil {
		return nil, err
	}

	status := "up-to-date"
	switch {
	case ahead > 0 && behind > 0:
		status = "diverged"
	case ahead > 0:
		status = "ahead"
	case behind > 0:
		status = "behind"
	}
	return &RemoteStatus{Status: status, Ahead: ahead, Behind: behind, Dirty: dirty}, nil
}

// HasRemote checks if origin is configured.
func (c *Client) HasRemote(ctx context.Context) bool {
	_, err := c.commander.Run(ctx, c.workDir, "git", "remote", "get-url", "origin")
	return err == nil
}

// ConflictedFiles returns paths that are unmerged after a failed pull.
func (c *Client) ConflictedFiles(ctx context.Context) ([]string, error) {
	output, err := c.commander.Run(ctx, c.workDir, "git", "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, fmt.Errorf("list conflicted files: %w", err)
	}
	var files []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// ShowStage returns a file's content from the given merge stage:
// 2 is ours (local), 3 is theirs (remote).
func (c *Client) ShowStage(ctx context.Context, stage int, path string) (string, error) {
	output, err := c.commander.Run(ctx, c.workDir, "git", "show", fmt.Sprintf(":%d:%s", stage, path))
	if err != nil {
		return "", fmt.Errorf("show stage %d of %s: %w", stage, path, err)
	}
	return output, nil
}

// CheckoutTheirs resolves a conflicted path by taking the remote version.
func (c *Client) CheckoutTheirs(ctx context.Context, path string) error {
	_, err := c.commander.Run(ctx, c.workDir, "git", "checkout", "--theirs", "--", path)
	if err != nil {
		return fmt.Errorf("checkout theirs %s: %w", path, err)
	}
	return nil
}

// ShowRemoteFile returns the content of a file as it exists on the fetched
// remote branch, without touching the working tree.
func (c *Client) ShowRemoteFile(ctx context.Context, path string) (string, error) {
	output, err := c.commander.Run(ctx, c.workDir, "git", "show",
		fmt.Sprintf("origin/%s:%s", c.branch, path))
	if err != nil {
		return "", fmt.Errorf("show remote file %s: %w", path, err)
	}
	return output, nil
}
