package spotter

import (
	"testing"

	"github.com/google/uuid"

	"github.com/teslashibe/go-spotter/pkg/detection"
)

func dets(labels ...string) []detection.Detection {
	out := make([]detection.Detection, len(labels))
	for i, l := range labels {
		out[i] = detection.Detection{Label: l, Confidence: 0.9}
	}
	return out
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		labels   LabelSet
		inFlight bool
		wantOK   bool
		wantText string
	}{
		{"single label", NewLabelSet("dog"), false, true, "I see dog"},
		{"sorted join", NewLabelSet("person", "dog", "cat"), false, true, "I see cat, dog, person"},
		{"in flight", NewLabelSet("dog"), true, false, ""},
		{"empty", NewLabelSet(), false, false, ""},
		{"empty and in flight", nil, true, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann, ok := Decide(tt.labels, tt.inFlight)
			if ok != tt.wantOK {
				t.Fatalf("Decide() ok = %v, want %v", ok, tt.wantOK)
			}
			if ann.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", ann.Text, tt.wantText)
			}
			if ok && ann.ID == uuid.Nil {
				t.Error("announcement should carry an ID")
			}
		})
	}
}

func TestPolicy_Custom(t *testing.T) {
	p := Policy{Prefix: "Spotted: ", Separator: " and "}
	ann, ok := p.Decide(NewLabelSet("cat", "bird"), false)
	if !ok {
		t.Fatal("expected an announcement")
	}
	if ann.Text != "Spotted: bird and cat" {
		t.Errorf("Text = %q", ann.Text)
	}
	if len(ann.Labels) != 2 || ann.Labels[0] != "bird" {
		t.Errorf("Labels = %v", ann.Labels)
	}
}

func TestLabelsOf_Dedup(t *testing.T) {
	once := LabelsOf(dets("person"))
	thrice := LabelsOf(dets("person", "person", "person"))

	if thrice.Len() != 1 {
		t.Fatalf("expected 1 label, got %d", thrice.Len())
	}
	a, _ := Decide(once, false)
	b, _ := Decide(thrice, false)
	if a.Text != b.Text || a.Text != "I see person" {
		t.Errorf("dedup mismatch: %q vs %q", a.Text, b.Text)
	}
}

func TestLabelsOf_SkipsBlank(t *testing.T) {
	s := LabelsOf(dets("", "dog", ""))
	if got := s.Sorted(); len(got) != 1 || got[0] != "dog" {
		t.Errorf("Sorted() = %v", got)
	}
}
