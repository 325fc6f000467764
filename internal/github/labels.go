package github

import (
	"strings"

	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

// Label prefixes for the custom prefixed scheme.
const (
	labelPrefixType     = "devlog-type:"
	labelPrefixStatus   = "devlog-status:"
	labelPrefixPriority = "devlog-priority:"
)

// nativeTypeLabels maps entry types onto GitHub's common label convention.
var nativeTypeLabels = map[models.EntryType]string{
	models.TypeFeature:  "enhancement",
	models.TypeBugfix:   "bug",
	models.TypeDocs:     "documentation",
	models.TypeTask:     "task",
	models.TypeRefactor: "refactor",
}

// typeFromNativeLabel is the decode direction of nativeTypeLabels.
var typeFromNativeLabel = map[string]models.EntryType{
	"enhancement":   models.TypeFeature,
	"bug":           models.TypeBugfix,
	"documentation": models.TypeDocs,
	"task":          models.TypeTask,
	"refactor":      models.TypeRefactor,
}

// nativeIssueTypes maps entry types onto GitHub's default issue types.
// Only these three exist out of the box; the others keep traveling as
// labels even when native types are enabled.
var nativeIssueTypes = map[models.EntryType]string{
	models.TypeFeature: "Feature",
	models.TypeBugfix:  "Bug",
	models.TypeTask:    "Task",
}

// typeFromNativeIssueType is the decode direction of nativeIssueTypes.
var typeFromNativeIssueType = map[string]models.EntryType{
	"feature": models.TypeFeature,
	"bug":     models.TypeBugfix,
	"task":    models.TypeTask,
}

// EncodeLabels renders the label set for an entry under the configured
// scheme. Exactly one scheme is active per field, never both, so decode
// never sees contradictory labels for the same field.
func EncodeLabels(e *models.Entry, cfg types.MappingConfig) []string {
	var labels []string

	switch cfg.Labels {
	case types.LabelsPrefixed:
		labels = append(labels,
			labelPrefixType+string(e.Type),
			labelPrefixStatus+string(e.Status),
			labelPrefixPriority+string(e.Priority),
		)
	default: // native/common labels
		if _, native := nativeIssueTypes[e.Type]; !cfg.UseNativeType || !native {
			if name, ok := nativeTypeLabels[e.Type]; ok {
				labels = append(labels, name)
			}
		}
		labels = append(labels, string(e.Priority))
		if !cfg.UseNativeState {
			labels = append(labels, string(e.Status))
		}
	}
	return labels
}

// decodeTypeFromLabels resolves the entry type from issue labels:
// system-specific convention first, then the generic prefixed convention.
func decodeTypeFromLabels(labels []string) (models.EntryType, bool) {
	for _, l := range labels {
		if t, ok := typeFromNativeLabel[strings.ToLower(l)]; ok {
			return t, true
		}
	}
	for _, l := range labels {
		if raw, ok := strings.CutPrefix(l, labelPrefixType); ok {
			if t, ok := models.ParseType(raw); ok {
				return t, true
			}
		}
	}
	return "", false
}

// decodeStatusFromLabels resolves the entry status from issue labels.
func decodeStatusFromLabels(labels []string) (models.EntryStatus, bool) {
	for _, l := range labels {
		if s, ok := models.ParseStatus(l); ok {
			return s, true
		}
	}
	for _, l := range labels {
		if raw, ok := strings.CutPrefix(l, labelPrefixStatus); ok {
			if s, ok := models.ParseStatus(raw); ok {
				return s, true
			}
		}
	}
	return "", false
}

// decodePriorityFromLabels resolves the entry priority from issue labels.
func decodePriorityFromLabels(labels []string) (models.EntryPriority, bool) {
	for _, l := range labels {
		if p, ok := models.ParsePriority(l); ok {
			return p, true
		}
	}
	for _, l := range labels {
		if raw, ok := strings.CutPrefix(l, labelPrefixPriority); ok {
			if p, ok := models.ParsePriority(raw); ok {
				return p, true
			}
		}
	}
	return "", false
}
