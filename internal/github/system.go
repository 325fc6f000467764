package github

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

// System adapts the client+mapper pair to the syncer's external-system
// contract for one configured GitHub repository.
type System struct {
	name   string
	client *Client
	mapper *Mapper
}

// NewSystem builds a GitHub-backed external system from configuration.
func NewSystem(cfg types.ExternalSystemConfig) (*System, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &System{
		name:   cfg.Name,
		client: client,
		mapper: NewMapper(cfg.Mapping),
	}, nil
}

// Name returns the configured system name.
func (s *System) Name() string { return s.name }

// Create encodes the entry and opens a new issue for it.
func (s *System) Create(ctx context.Context, e *models.Entry) (models.ExternalReference, error) {
	issue, err := s.mapper.Encode(e)
	if err != nil {
		return models.ExternalReference{}, err
	}
	created, err := s.client.CreateIssue(ctx, issue)
	if err != nil {
		return models.ExternalReference{}, err
	}
	return s.reference(created), nil
}

// Update re-encodes the entry onto its existing issue.
func (s *System) Update(ctx context.Context, e *models.Entry, ref models.ExternalReference) (models.ExternalReference, error) {
	number, err := strconv.Atoi(ref.ID)
	if err != nil {
		return models.ExternalReference{}, fmt.Errorf("invalid issue number %q for system %s: %w", ref.ID, s.name, err)
	}
	issue, err := s.mapper.Encode(e)
	if err != nil {
		return models.ExternalReference{}, err
	}
	updated, err := s.client.UpdateIssue(ctx, number, issue)
	if err != nil {
		return models.ExternalReference{}, err
	}
	return s.reference(updated), nil
}

// Fetch pulls the external issue back as a devlog entry, letting the
// external system act as an alternate source of truth.
func (s *System) Fetch(ctx context.Context, ref models.ExternalReference) (*models.Entry, error) {
	number, err := strconv.Atoi(ref.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid issue number %q for system %s: %w", ref.ID, s.name, err)
	}
	issue, err := s.client.GetIssue(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.mapper.Decode(issue)
}

func (s *System) reference(issue *Issue) models.ExternalReference {
	state := issue.State
	if issue.StateReason != "" {
		state = issue.State + ":" + issue.StateReason
	}
	return models.ExternalReference{
		System:   s.name,
		ID:       strconv.Itoa(issue.Number),
		URL:      issue.HTMLURL,
		Status:   state,
		LastSync: time.Now().UTC(),
	}
}
