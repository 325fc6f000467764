package github

import (
	"reflect"
	"testing"

	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

func TestEncodeLabels_NativeScheme(t *testing.T) {
	e := models.NewEntry(1, "t", models.TypeBugfix)
	e.Priority = models.PriorityCritical
	e.Status = models.StatusInReview

	labels := EncodeLabels(e, types.MappingConfig{Labels: types.LabelsNative})
	want := []string{"bug", "critical", "in-review"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("EncodeLabels() = %v, want %v", labels, want)
	}
}

func TestEncodeLabels_NativeSchemeWithNativeState(t *testing.T) {
	e := models.NewEntry(1, "t", models.TypeFeature)
	e.Status = models.StatusDone

	// Status travels through open/closed state, so no status label.
	labels := EncodeLabels(e, types.MappingConfig{Labels: types.LabelsNative, UseNativeState: true})
	want := []string{"enhancement", "medium"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("EncodeLabels() = %v, want %v", labels, want)
	}
}

func TestEncodeLabels_PrefixedScheme(t *testing.T) {
	e := models.NewEntry(1, "t", models.TypeRefactor)
	e.Priority = models.PriorityLow
	e.Status = models.StatusBlocked

	labels := EncodeLabels(e, types.MappingConfig{Labels: types.LabelsPrefixed})
	want := []string{"devlog-type:refactor", "devlog-status:blocked", "devlog-priority:low"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("EncodeLabels() = %v, want %v", labels, want)
	}
}

func TestEncodeLabels_ExactlyOneSchemePerField(t *testing.T) {
	e := models.NewEntry(1, "t", models.TypeBugfix)
	for _, scheme := range []types.LabelScheme{types.LabelsNative, types.LabelsPrefixed} {
		labels := EncodeLabels(e, types.MappingConfig{Labels: scheme})
		var bare, prefixed bool
		for _, l := range labels {
			if l == "bug" {
				bare = true
			}
			if l == "devlog-type:bugfix" {
				prefixed = true
			}
		}
		if bare && prefixed {
			t.Errorf("scheme %s emitted both label conventions for the type field: %v", scheme, labels)
		}
	}
}

func TestDecodeTypeFromLabels(t *testing.T) {
	tests := []struct {
		labels []string
		want   models.EntryType
		ok     bool
	}{
		{[]string{"enhancement"}, models.TypeFeature, true},
		{[]string{"Bug"}, models.TypeBugfix, true},
		{[]string{"documentation"}, models.TypeDocs, true},
		{[]string{"devlog-type:refactor"}, models.TypeRefactor, true},
		// System convention beats the prefixed one when both appear.
		{[]string{"devlog-type:task", "bug"}, models.TypeBugfix, true},
		{[]string{"wontfix", "duplicate"}, "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := decodeTypeFromLabels(tt.labels)
		if ok != tt.ok || got != tt.want {
			t.Errorf("decodeTypeFromLabels(%v) = %q/%v, want %q/%v", tt.labels, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDecodeStatusFromLabels(t *testing.T) {
	tests := []struct {
		labels []string
		want   models.EntryStatus
		ok     bool
	}{
		{[]string{"in-progress"}, models.StatusInProgress, true},
		{[]string{"devlog-status:testing"}, models.StatusTesting, true},
		{[]string{"unrelated"}, "", false},
	}
	for _, tt := range tests {
		got, ok := decodeStatusFromLabels(tt.labels)
		if ok != tt.ok || got != tt.want {
			t.Errorf("decodeStatusFromLabels(%v) = %q/%v, want %q/%v", tt.labels, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDecodePriorityFromLabels(t *testing.T) {
	tests := []struct {
		labels []string
		want   models.EntryPriority
		ok     bool
	}{
		{[]string{"critical"}, models.PriorityCritical, true},
		{[]string{"devlog-priority:low"}, models.PriorityLow, true},
		{[]string{"bug"}, "", false},
	}
	for _, tt := range tests {
		got, ok := decodePriorityFromLabels(tt.labels)
		if ok != tt.ok || got != tt.want {
			t.Errorf("decodePriorityFromLabels(%v) = %q/%v, want %q/%v", tt.labels, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEncodeLabels_NativeSchemeWithNativeType(t *testing.T) {
	e := models.NewEntry(1, "t", models.TypeBugfix)
	e.Priority = models.PriorityHigh

	// Type travels through the issue type field, so no type label.
	labels := EncodeLabels(e, types.MappingConfig{Labels: types.LabelsNative, UseNativeType: true})
	want := []string{"high", "new"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("EncodeLabels() = %v, want %v", labels, want)
	}
}

func TestEncodeLabels_NativeTypeKeepsLabelForUnmappedTypes(t *testing.T) {
	e := models.NewEntry(1, "t", models.TypeRefactor)

	// refactor has no native issue type, so the label stays.
	labels := EncodeLabels(e, types.MappingConfig{Labels: types.LabelsNative, UseNativeType: true})
	want := []string{"refactor", "medium", "new"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("EncodeLabels() = %v, want %v", labels, want)
	}
}
