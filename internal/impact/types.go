// Package impact decides which sections of a document a described
// artifact change invalidates.
//
// The caller supplies the change descriptor (what was added, removed,
// or modified in the documented artifact); deriving those changes from
// source code is someone else's job. The analyzer is a pure function:
// it matches target names against section headings and machine span
// content with a token-overlap heuristic and reports affected sections
// with a confidence level. Reports are advisory and never persisted.
package impact

import (
	"fmt"
)

// --- Change kind enum ---

// ChangeKind categorizes what happened to an artifact element.
type ChangeKind string

const (
	KindAdded    ChangeKind = "added"
	KindRemoved  ChangeKind = "removed"
	KindModified ChangeKind = "modified"
)

// validKinds is the set of allowed change kinds.
var validKinds = map[ChangeKind]bool{
	KindAdded:    true,
	KindRemoved:  true,
	KindModified: true,
}

// ValidateKind returns an error if the kind is not recognized.
func ValidateKind(k ChangeKind) error {
	if !validKinds[k] {
		return fmt.Errorf("invalid change kind %q: must be one of: added, removed, modified", k)
	}
	return nil
}

// --- Confidence enum ---

// Confidence ranks how certain the analyzer is that a section is stale.
// exact: the target matches the heading or a machine span completely.
// probable: token overlap above the threshold.
// Matches below the threshold are excluded from the report entirely.
type Confidence string

const (
	ConfidenceExact    Confidence = "exact"
	ConfidenceProbable Confidence = "probable"
)

// rank orders confidences for dedup: the strongest match per section wins.
var rank = map[Confidence]int{
	ConfidenceProbable: 1,
	ConfidenceExact:    2,
}

// --- Descriptor and report ---

// ArtifactChange describes one change to the documented artifact.
type ArtifactChange struct {
	Kind            ChangeKind `json:"kind"`
	TargetName      string     `json:"target_name"`
	BeforeSignature string     `json:"before_signature,omitempty"`
	AfterSignature  string     `json:"after_signature,omitempty"`
}

// Validate checks a change for use in analysis.
func (c ArtifactChange) Validate() error {
	if err := ValidateKind(c.Kind); err != nil {
		return err
	}
	if c.TargetName == "" {
		return fmt.Errorf("change of kind %q has no target_name", c.Kind)
	}
	return nil
}

// AffectedSection names one stale section and why it was flagged.
type AffectedSection struct {
	SectionID  string     `json:"section_id"`
	Reason     string     `json:"reason"`
	Confidence Confidence `json:"confidence"`
}

// Report lists the sections invalidated by a change descriptor, in
// document order, at most one entry per section.
type Report struct {
	Affected []AffectedSection `json:"affected"`
}

// SectionIDs returns the affected section ids in report order.
func (r *Report) SectionIDs() []string {
	ids := make([]string, len(r.Affected))
	for i, a := range r.Affected {
		ids[i] = a.SectionID
	}
	return ids
}
