package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codervisor/devlog/types"
)

func testSystemConfig(baseURL string) types.ExternalSystemConfig {
	return types.ExternalSystemConfig{
		Name:    "github-test",
		Kind:    "github",
		Owner:   "acme",
		Repo:    "devlog",
		Token:   "test-token",
		BaseURL: baseURL,
	}
}

func TestNewClient_RequiresOwnerRepoToken(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*types.ExternalSystemConfig)
	}{
		{"missing owner", func(c *types.ExternalSystemConfig) { c.Owner = "" }},
		{"missing repo", func(c *types.ExternalSystemConfig) { c.Repo = "" }},
		{"missing token", func(c *types.ExternalSystemConfig) { c.Token = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testSystemConfig("")
			tt.mut(&cfg)
			_, err := NewClient(cfg)
			var cfgErr *types.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("NewClient() error = %v, want ConfigError", err)
			}
		})
	}
}

func TestCreateIssue(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload issuePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"number": 101,
			"title": "Add webhook retries",
			"state": "open",
			"html_url": "https://github.com/acme/devlog/issues/101",
			"labels": [{"name": "enhancement"}, {"name": "high"}]
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(testSystemConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	created, err := client.CreateIssue(context.Background(), &Issue{
		Title:  "Add webhook retries",
		Body:   "body",
		Labels: []string{"enhancement", "high"},
	})
	if err != nil {
		t.Fatalf("CreateIssue() error: %v", err)
	}

	if gotPath != "POST /repos/acme/devlog/issues" {
		t.Errorf("request = %q", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(gotPayload.Labels) != 2 {
		t.Errorf("payload labels = %v", gotPayload.Labels)
	}
	if created.Number != 101 {
		t.Errorf("Number = %d, want 101", created.Number)
	}
	if created.HTMLURL == "" {
		t.Error("HTMLURL not decoded")
	}
	if len(created.Labels) != 2 || created.Labels[0] != "enhancement" {
		t.Errorf("Labels = %v, want flattened label names", created.Labels)
	}
}

func TestCreateIssue_ClosedStateFollowUp(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		_, _ = w.Write([]byte(`{"number": 5, "state": "closed", "state_reason": "completed"}`))
	}))
	defer srv.Close()

	client, err := NewClient(testSystemConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	// The create endpoint cannot close an issue; a PATCH must follow.
	_, err = client.CreateIssue(context.Background(), &Issue{
		Title: "done already", State: "closed", StateReason: "completed",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(requests) != 2 {
		t.Fatalf("requests = %v, want create then update", requests)
	}
	if requests[0] != "POST /repos/acme/devlog/issues" || requests[1] != "PATCH /repos/acme/devlog/issues/5" {
		t.Errorf("requests = %v", requests)
	}
}

func TestUpdateIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/repos/acme/devlog/issues/42" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"number": 42, "state": "open"}`))
	}))
	defer srv.Close()

	client, err := NewClient(testSystemConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	updated, err := client.UpdateIssue(context.Background(), 42, &Issue{Title: "t"})
	if err != nil {
		t.Fatalf("UpdateIssue() error: %v", err)
	}
	if updated.Number != 42 {
		t.Errorf("Number = %d", updated.Number)
	}
}

func TestAPIError_CarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Validation Failed"}`))
	}))
	defer srv.Close()

	client, err := NewClient(testSystemConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.CreateIssue(context.Background(), &Issue{Title: "t"})

	var apiErr *types.ExternalAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want ExternalAPIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", apiErr.StatusCode)
	}
	if apiErr.Body == "" {
		t.Error("Body not captured")
	}
}

func TestGetIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/repos/acme/devlog/issues/9" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"number": 9, "title": "fetched", "state": "closed", "state_reason": "not_planned"}`))
	}))
	defer srv.Close()

	client, err := NewClient(testSystemConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	issue, err := client.GetIssue(context.Background(), 9)
	if err != nil {
		t.Fatalf("GetIssue() error: %v", err)
	}
	if issue.Title != "fetched" || issue.StateReason != "not_planned" {
		t.Errorf("issue = %+v", issue)
	}
}

func TestGetIssue_NativeTypeObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"number": 3, "title": "typed", "type": {"name": "Bug"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(testSystemConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	issue, err := client.GetIssue(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetIssue() error: %v", err)
	}
	if issue.Type != "Bug" {
		t.Errorf("issue.Type = %q, want Bug (flattened from the type object)", issue.Type)
	}
}
