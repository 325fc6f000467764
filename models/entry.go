package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// EntryType classifies the kind of work an entry tracks.
type EntryType string

const (
	TypeFeature  EntryType = "feature"
	TypeBugfix   EntryType = "bugfix"
	TypeTask     EntryType = "task"
	TypeRefactor EntryType = "refactor"
	TypeDocs     EntryType = "docs"
)

// EntryStatus represents the workflow state of an entry.
// Done and Closed are distinct terminal states: Done means the work was
// completed, Closed means it was abandoned or not planned.
type EntryStatus string

const (
	StatusNew        EntryStatus = "new"
	StatusInProgress EntryStatus = "in-progress"
	StatusBlocked    EntryStatus = "blocked"
	StatusInReview   EntryStatus = "in-review"
	StatusTesting    EntryStatus = "testing"
	StatusDone       EntryStatus = "done"
	StatusClosed     EntryStatus = "closed"
)

// EntryPriority represents the priority level of an entry.
type EntryPriority string

const (
	PriorityLow      EntryPriority = "low"
	PriorityMedium   EntryPriority = "medium"
	PriorityHigh     EntryPriority = "high"
	PriorityCritical EntryPriority = "critical"
)

// Weight returns the numeric sort weight for a priority.
// Unknown priorities sort below low.
func (p EntryPriority) Weight() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ParseType decodes a raw string into an EntryType.
// The second return value reports whether the value was recognized, so
// callers decide fallback behavior instead of getting a silent default.
func ParseType(raw string) (EntryType, bool) {
	switch EntryType(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeFeature:
		return TypeFeature, true
	case TypeBugfix:
		return TypeBugfix, true
	case TypeTask:
		return TypeTask, true
	case TypeRefactor:
		return TypeRefactor, true
	case TypeDocs:
		return TypeDocs, true
	}
	return "", false
}

// ParseStatus decodes a raw string into an EntryStatus.
func ParseStatus(raw string) (EntryStatus, bool) {
	switch EntryStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusNew:
		return StatusNew, true
	case StatusInProgress:
		return StatusInProgress, true
	case StatusBlocked:
		return StatusBlocked, true
	case StatusInReview:
		return StatusInReview, true
	case StatusTesting:
		return StatusTesting, true
	case StatusDone:
		return StatusDone, true
	case StatusClosed:
		return StatusClosed, true
	}
	return "", false
}

// ParsePriority decodes a raw string into an EntryPriority.
func ParsePriority(raw string) (EntryPriority, bool) {
	switch EntryPriority(strings.ToLower(strings.TrimSpace(raw))) {
	case PriorityLow:
		return PriorityLow, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	case PriorityCritical:
		return PriorityCritical, true
	}
	return "", false
}

// Note is one append-only history record on an entry.
type Note struct {
	ID        string    `json:"id" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Category  string    `json:"category,omitempty"`
	Content   string    `json:"content" validate:"required"`
	Files     []string  `json:"files,omitempty"`
}

// Decision is one record in an entry's decision audit log.
type Decision struct {
	ID            string    `json:"id,omitempty"`
	Decision      string    `json:"decision" validate:"required"`
	Rationale     string    `json:"rationale,omitempty"`
	Alternatives  []string  `json:"alternatives,omitempty"`
	DecisionMaker string    `json:"decisionMaker,omitempty"`
	Timestamp     time.Time `json:"timestamp" validate:"required"`
}

// EntryContext holds the free-text narrative context of an entry.
type EntryContext struct {
	BusinessContext    string   `json:"businessContext,omitempty"`
	TechnicalContext   string   `json:"technicalContext,omitempty"`
	AcceptanceCriteria []string `json:"acceptanceCriteria,omitempty"`
	Dependencies       []string `json:"dependencies,omitempty"`
	Decisions          []string `json:"decisions,omitempty"`
	Risks              []string `json:"risks,omitempty"`
}

// AIContext is the mutable derived-summary block maintained for an entry.
// ContextVersion increments monotonically on every update.
type AIContext struct {
	CurrentSummary     string    `json:"currentSummary,omitempty"`
	KeyInsights        []string  `json:"keyInsights,omitempty"`
	OpenQuestions      []string  `json:"openQuestions,omitempty"`
	SuggestedNextSteps []string  `json:"suggestedNextSteps,omitempty"`
	RelatedPatterns    []string  `json:"relatedPatterns,omitempty"`
	ContextVersion     int       `json:"contextVersion"`
	LastAIUpdate       time.Time `json:"lastAIUpdate,omitempty"`
}

// ExternalReference links an entry to its counterpart in one external system.
// At most one reference exists per (entry, system) pair.
type ExternalReference struct {
	System   string    `json:"system" validate:"required"`
	ID       string    `json:"id" validate:"required"`
	URL      string    `json:"url,omitempty"`
	Status   string    `json:"status,omitempty"`
	LastSync time.Time `json:"lastSync,omitempty"`
}

// Entry represents one tracked unit of development work.
type Entry struct {
	ID          int           `json:"id" validate:"required,min=1"`
	Key         string        `json:"key,omitempty"`
	Title       string        `json:"title" validate:"required,min=1,max=255"`
	Type        EntryType     `json:"type" validate:"required,oneof=feature bugfix task refactor docs"`
	Status      EntryStatus   `json:"status" validate:"required,oneof=new in-progress blocked in-review testing done closed"`
	Priority    EntryPriority `json:"priority" validate:"required,oneof=low medium high critical"`
	Description string        `json:"description,omitempty"`

	Context   EntryContext `json:"context,omitempty"`
	AIContext AIContext    `json:"aiContext,omitempty"`

	// Notes and Decisions are append-only: existing elements are never
	// edited or reordered, only appended.
	Notes     []Note     `json:"notes,omitempty" validate:"dive"`
	Decisions []Decision `json:"decisions,omitempty" validate:"dive"`

	RelatedDevlogs     []int               `json:"relatedDevlogs,omitempty"`
	Files              []string            `json:"files,omitempty"`
	ExternalReferences []ExternalReference `json:"externalReferences,omitempty" validate:"dive"`

	CreatedAt time.Time `json:"createdAt" validate:"required"`
	UpdatedAt time.Time `json:"updatedAt" validate:"required"`
}

// FindReference returns the external reference for the given system, if any.
func (e *Entry) FindReference(system string) (ExternalReference, bool) {
	for _, ref := range e.ExternalReferences {
		if ref.System == system {
			return ref, true
		}
	}
	return ExternalReference{}, false
}

// SetReference records an external reference on the entry, replacing any
// existing reference for the same system rather than appending a duplicate.
func (e *Entry) SetReference(ref ExternalReference) {
	for i, existing := range e.ExternalReferences {
		if existing.System == ref.System {
			e.ExternalReferences[i] = ref
			return
		}
	}
	e.ExternalReferences = append(e.ExternalReferences, ref)
}

// global validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct performs validation on any struct that has validation tags.
func ValidateStruct(s interface{}) error {
	if validate == nil {
		validate = validator.New()
	}
	err := validate.Struct(s)
	if err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, fmt.Sprintf("Validation failed on field '%s': rule '%s' (value: '%v')", e.StructNamespace(), e.Tag(), e.Value()))
		}
		return fmt.Errorf("%s", strings.Join(errorMessages, "; "))
	}
	return nil
}

// NewEntry creates an entry with default status/priority and fresh timestamps.
func NewEntry(id int, title string, entryType EntryType) *Entry {
	now := time.Now().UTC()
	return &Entry{
		ID:        id,
		Title:     title,
		Type:      entryType,
		Status:    StatusNew,
		Priority:  PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps UpdatedAt, keeping the updatedAt >= createdAt invariant.
func (e *Entry) Touch() {
	e.UpdatedAt = time.Now().UTC()
	if e.UpdatedAt.Before(e.CreatedAt) {
		e.UpdatedAt = e.CreatedAt
	}
}
