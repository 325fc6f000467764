package github

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

// Fixed markers delimiting the machine-parseable metadata block inside an
// issue body. Everything between them is a fenced JSON document carrying
// the full structured entry metadata; the prose above them is
// presentation only.
const (
	metadataStart = "<!-- devlog-metadata:start -->"
	metadataEnd   = "<!-- devlog-metadata:end -->"
)

// machineBlock is the structured payload embedded in the issue body. It
// carries every field that must round-trip byte-faithfully through an
// external system; type/status/priority deliberately stay out of it and
// travel through labels and native state, so external edits to those
// remain visible.
type machineBlock struct {
	ID                 int                        `json:"id,omitempty"`
	Key                string                     `json:"key,omitempty"`
	Context            models.EntryContext        `json:"context,omitempty"`
	AIContext          models.AIContext           `json:"aiContext,omitempty"`
	Notes              []models.Note              `json:"notes,omitempty"`
	Decisions          []models.Decision          `json:"decisions,omitempty"`
	Files              []string                   `json:"files,omitempty"`
	RelatedDevlogs     []int                      `json:"relatedDevlogs,omitempty"`
	ExternalReferences []models.ExternalReference `json:"externalReferences,omitempty"`
	CreatedAt          time.Time                  `json:"createdAt,omitempty"`
}

// Mapper translates between devlog entries and external issues under one
// field-mapping configuration. It is pure: no I/O, no retained state.
type Mapper struct {
	cfg types.MappingConfig
}

// NewMapper creates a mapper for the given mapping configuration.
func NewMapper(cfg types.MappingConfig) *Mapper {
	return &Mapper{cfg: cfg}
}

// Encode renders an entry as an external issue: readable prose sections
// first, then the delimited machine block with the full structured
// metadata. Re-encoding an already-encoded entry produces an equivalent
// machine block, so encode/decode round-trips are stable.
func (m *Mapper) Encode(e *models.Entry) (*Issue, error) {
	var b strings.Builder

	if e.Description != "" {
		b.WriteString("## Description\n\n")
		b.WriteString(e.Description)
		b.WriteString("\n\n")
	}
	if e.Context.TechnicalContext != "" {
		b.WriteString("## Technical Context\n\n")
		b.WriteString(e.Context.TechnicalContext)
		b.WriteString("\n\n")
	}
	if e.Context.BusinessContext != "" {
		b.WriteString("## Business Context\n\n")
		b.WriteString(e.Context.BusinessContext)
		b.WriteString("\n\n")
	}
	if len(e.Context.AcceptanceCriteria) > 0 {
		b.WriteString("## Acceptance Criteria\n\n")
		for _, c := range e.Context.AcceptanceCriteria {
			b.WriteString("- [ ] ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	block := machineBlock{
		ID:                 e.ID,
		Key:                e.Key,
		Context:            e.Context,
		AIContext:          e.AIContext,
		Notes:              e.Notes,
		Decisions:          e.Decisions,
		Files:              e.Files,
		RelatedDevlogs:     e.RelatedDevlogs,
		ExternalReferences: e.ExternalReferences,
		CreatedAt:          e.CreatedAt,
	}
	data, err := json.MarshalIndent(&block, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata block: %w", err)
	}

	b.WriteString(metadataStart)
	b.WriteString("\n```json\n")
	b.Write(data)
	b.WriteString("\n```\n")
	b.WriteString(metadataEnd)
	b.WriteString("\n")

	issue := &Issue{
		Title:  e.Title,
		Body:   b.String(),
		Labels: EncodeLabels(e, m.cfg),
	}

	if m.cfg.UseNativeType {
		if name, ok := nativeIssueTypes[e.Type]; ok {
			issue.Type = name
		}
	}
	if m.cfg.UseNativeState {
		switch e.Status {
		case models.StatusDone:
			issue.State = "closed"
			issue.StateReason = "completed"
		case models.StatusClosed:
			issue.State = "closed"
			issue.StateReason = "not_planned"
		default:
			issue.State = "open"
		}
	}
	return issue, nil
}

// extractMachineBlock returns the JSON payload between the metadata
// markers, or false when the body carries none (an issue authored by a
// human directly in the external system).
func extractMachineBlock(body string) (string, bool) {
	start := strings.Index(body, metadataStart)
	if start < 0 {
		return "", false
	}
	rest := body[start+len(metadataStart):]
	end := strings.Index(rest, metadataEnd)
	if end < 0 {
		return "", false
	}
	payload := strings.TrimSpace(rest[:end])
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(strings.TrimSpace(payload), "```")
	return strings.TrimSpace(payload), true
}

// Decode reconstructs an entry from an external issue. The machine block
// is authoritative for everything it contains; prose sections are only a
// fallback for issues that never carried a block. Type, status, and
// priority resolve through their decision chains: native fields (when the
// mapping opts in), then label conventions, then hard defaults.
func (m *Mapper) Decode(issue *Issue) (*models.Entry, error) {
	e := &models.Entry{
		Title:     issue.Title,
		CreatedAt: issue.CreatedAt,
		UpdatedAt: issue.UpdatedAt,
	}

	if payload, ok := extractMachineBlock(issue.Body); ok {
		var block machineBlock
		if err := json.Unmarshal([]byte(payload), &block); err != nil {
			return nil, fmt.Errorf("failed to parse metadata block: %w", err)
		}
		e.ID = block.ID
		e.Key = block.Key
		e.Context = block.Context
		e.AIContext = block.AIContext
		e.Notes = block.Notes
		e.Decisions = block.Decisions
		e.Files = block.Files
		e.RelatedDevlogs = block.RelatedDevlogs
		e.ExternalReferences = block.ExternalReferences
		if !block.CreatedAt.IsZero() {
			e.CreatedAt = block.CreatedAt
		}
		e.Description = proseSection(issue.Body, "Description")
	} else {
		// No machine block: salvage what the prose carries.
		e.Description = proseSection(issue.Body, "Description")
		if e.Description == "" {
			e.Description = strings.TrimSpace(issue.Body)
		}
		e.Context.TechnicalContext = proseSection(issue.Body, "Technical Context")
		e.Context.BusinessContext = proseSection(issue.Body, "Business Context")
		e.Context.AcceptanceCriteria = proseChecklist(issue.Body, "Acceptance Criteria")
	}

	e.Type = m.decodeType(issue)
	e.Status = m.decodeStatus(issue)
	e.Priority = m.decodePriority(issue)

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.UpdatedAt.Before(e.CreatedAt) {
		e.UpdatedAt = e.CreatedAt
	}
	return e, nil
}

func (m *Mapper) decodeType(issue *Issue) models.EntryType {
	if m.cfg.UseNativeType && issue.Type != "" {
		if t, ok := typeFromNativeIssueType[strings.ToLower(issue.Type)]; ok {
			return t
		}
	}
	if t, ok := decodeTypeFromLabels(issue.Labels); ok {
		return t
	}
	return models.TypeTask
}

func (m *Mapper) decodeStatus(issue *Issue) models.EntryStatus {
	if m.cfg.UseNativeState && issue.State == "closed" {
		// The close reason distinguishes finished work from abandoned
		// work; both must survive the round trip as distinct states.
		if issue.StateReason == "not_planned" {
			return models.StatusClosed
		}
		return models.StatusDone
	}
	if s, ok := decodeStatusFromLabels(issue.Labels); ok {
		return s
	}
	return models.StatusNew
}

func (m *Mapper) decodePriority(issue *Issue) models.EntryPriority {
	if p, ok := decodePriorityFromLabels(issue.Labels); ok {
		return p
	}
	return models.PriorityMedium
}

// proseSection returns the text under a "## <name>" heading, stopping at
// the next heading or the metadata block.
func proseSection(body, name string) string {
	heading := "## " + name
	start := strings.Index(body, heading)
	if start < 0 {
		return ""
	}
	rest := body[start+len(heading):]
	if end := strings.Index(rest, "\n## "); end >= 0 {
		rest = rest[:end]
	}
	if end := strings.Index(rest, metadataStart); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// proseChecklist parses "- [ ]"/"- [x]" items under a heading.
func proseChecklist(body, name string) []string {
	section := proseSection(body, name)
	if section == "" {
		return nil
	}
	var items []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"- [ ] ", "- [x] ", "- [X] ", "- "} {
			if item, ok := strings.CutPrefix(line, prefix); ok {
				items = append(items, item)
				break
			}
		}
	}
	return items
}
