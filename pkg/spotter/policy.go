package spotter

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-spotter/pkg/detection"
)

// LabelSet is the set of distinct class labels seen in one frame.
type LabelSet map[string]struct{}

// NewLabelSet builds a set from labels, dropping duplicates and blanks.
func NewLabelSet(labels ...string) LabelSet {
	s := make(LabelSet, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		s[l] = struct{}{}
	}
	return s
}

// LabelsOf returns the distinct labels of dets.
func LabelsOf(dets []detection.Detection) LabelSet {
	s := make(LabelSet, len(dets))
	for _, d := range dets {
		if d.Label == "" {
			continue
		}
		s[d.Label] = struct{}{}
	}
	return s
}

// Len returns the number of distinct labels.
func (s LabelSet) Len() int { return len(s) }

// Sorted returns the labels in lexicographic order.
func (s LabelSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Announcement is one utterance to be spoken.
type Announcement struct {
	ID      uuid.UUID
	Text    string
	Labels  []string
	Created time.Time
}

// Policy turns a frame's label set into at most one announcement.
type Policy struct {
	Prefix    string
	Separator string
}

// DefaultPolicy returns the "I see a, b" policy.
func DefaultPolicy() Policy {
	return Policy{Prefix: "I see ", Separator: ", "}
}

// Decide returns an announcement for labels, or false when nothing should be
// said: either an announcement is already in flight or no labels were seen.
// Decide keeps no state between calls.
func (p Policy) Decide(labels LabelSet, inFlight bool) (Announcement, bool) {
	if inFlight || labels.Len() == 0 {
		return Announcement{}, false
	}
	sorted := labels.Sorted()
	return Announcement{
		ID:      uuid.New(),
		Text:    p.Prefix + strings.Join(sorted, p.Separator),
		Labels:  sorted,
		Created: time.Now(),
	}, true
}

// Decide applies DefaultPolicy.
func Decide(labels LabelSet, inFlight bool) (Announcement, bool) {
	return DefaultPolicy().Decide(labels, inFlight)
}
