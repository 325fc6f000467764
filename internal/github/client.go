// Package github maps devlog entries onto GitHub Issues: a small REST
// client for the Issues API and a bidirectional mapper that embeds the
// full structured entry in the issue body.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codervisor/devlog/types"
)

const defaultBaseURL = "https://api.github.com"

// Issue is the external issue representation consumed and produced by the
// mapper. Body is the sole channel for structured metadata.
type Issue struct {
	Number      int       `json:"number,omitempty"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	State       string    `json:"state,omitempty"`        // open or closed
	StateReason string    `json:"state_reason,omitempty"` // completed or not_planned
	Type        string    `json:"type,omitempty"`         // native issue type (Bug, Feature, Task)
	Labels      []string  `json:"-"`
	Assignees   []string  `json:"assignees,omitempty"`
	HTMLURL     string    `json:"html_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// issuePayload is the request shape for create/update calls.
type issuePayload struct {
	Title       string   `json:"title,omitempty"`
	Body        string   `json:"body,omitempty"`
	State       string   `json:"state,omitempty"`
	StateReason string   `json:"state_reason,omitempty"`
	Type        string   `json:"type,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Assignees   []string `json:"assignees,omitempty"`
}

// issueResponse is the response shape; labels come back as objects.
type issueResponse struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	State       string    `json:"state"`
	StateReason string    `json:"state_reason"`
	HTMLURL     string    `json:"html_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Type        *struct {
		Name string `json:"name"`
	} `json:"type"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Assignees []struct {
		Login string `json:"login"`
	} `json:"assignees"`
}

func (r *issueResponse) toIssue() *Issue {
	issue := &Issue{
		Number:      r.Number,
		Title:       r.Title,
		Body:        r.Body,
		State:       r.State,
		StateReason: r.StateReason,
		HTMLURL:     r.HTMLURL,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Type != nil {
		issue.Type = r.Type.Name
	}
	for _, l := range r.Labels {
		issue.Labels = append(issue.Labels, l.Name)
	}
	for _, a := range r.Assignees {
		issue.Assignees = append(issue.Assignees, a.Login)
	}
	return issue
}

// Client is a minimal GitHub Issues API client. It holds no global state;
// each configured system gets its own instance.
type Client struct {
	baseURL string
	owner   string
	repo    string
	token   string
	http    *http.Client
}

// NewClient builds a client from system configuration; missing required
// fields fail fast before any request is made.
func NewClient(cfg types.ExternalSystemConfig) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, types.NewConfigError("external.systems", "github system %q requires owner and repo", cfg.Name)
	}
	if cfg.Token == "" {
		return nil, types.NewConfigError("external.systems", "github system %q requires a token", cfg.Name)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		token:   cfg.Token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// do issues one API request and decodes the response into out. Non-2xx
// responses surface as ExternalAPIError carrying status code and body.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &types.ExternalAPIError{System: "github", StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func (c *Client) issuesPath() string {
	return fmt.Sprintf("/repos/%s/%s/issues", c.owner, c.repo)
}

// CreateIssue creates a new issue.
func (c *Client) CreateIssue(ctx context.Context, issue *Issue) (*Issue, error) {
	payload := issuePayload{
		Title:     issue.Title,
		Body:      issue.Body,
		Type:      issue.Type,
		Labels:    issue.Labels,
		Assignees: issue.Assignees,
	}
	var resp issueResponse
	if err := c.do(ctx, http.MethodPost, c.issuesPath(), &payload, &resp); err != nil {
		return nil, err
	}
	created := resp.toIssue()

	// The create endpoint ignores state; closing happens as a follow-up.
	if issue.State == "closed" {
		return c.UpdateIssue(ctx, created.Number, issue)
	}
	return created, nil
}

// UpdateIssue patches an existing issue.
func (c *Client) UpdateIssue(ctx context.Context, number int, issue *Issue) (*Issue, error) {
	payload := issuePayload{
		Title:       issue.Title,
		Body:        issue.Body,
		State:       issue.State,
		StateReason: issue.StateReason,
		Type:        issue.Type,
		Labels:      issue.Labels,
		Assignees:   issue.Assignees,
	}
	var resp issueResponse
	path := fmt.Sprintf("%s/%d", c.issuesPath(), number)
	if err := c.do(ctx, http.MethodPatch, path, &payload, &resp); err != nil {
		return nil, err
	}
	return resp.toIssue(), nil
}

// GetIssue fetches an issue by number.
func (c *Client) GetIssue(ctx context.Context, number int) (*Issue, error) {
	var resp issueResponse
	path := fmt.Sprintf("%s/%d", c.issuesPath(), number)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toIssue(), nil
}
