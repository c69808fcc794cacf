package impact

import (
	"fmt"
	"unicode"

	"github.com/scribeworks/docsurgeon/internal/document"
)

// DefaultThreshold is the token-overlap ratio above which a partial
// match is reported as probable. It trades false positives (flagging
// fresh sections) against false negatives (missing stale ones); the
// removed-kind rule below makes the dangerous direction conservative
// independently of this knob.
const DefaultThreshold = 0.5

// Analyze matches each change against the document's sections and
// returns the affected set. Matching is token-based: names are
// lowercased and split on delimiters and camelCase boundaries, so
// "/v2/enroll", "enrollUser" and "Enroll User" all share tokens.
//
// Rules, per change and section:
//   - every target token in the heading: exact
//   - every target token in the section's machine spans: exact
//   - overlap ratio against heading plus machine text >= threshold: probable
//   - kind=removed: any token mention anywhere in the section flags it,
//     regardless of threshold. Stale docs about a deleted artifact are
//     worse than an over-flagged section.
//
// Duplicate matches collapse to the strongest confidence per section.
// The report lists sections in document order.
func Analyze(doc *document.Document, changes []ArtifactChange, threshold float64) *Report {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	type sectionIndex struct {
		id      string
		heading map[string]bool
		machine map[string]bool
		all     map[string]bool
	}
	index := make([]sectionIndex, len(doc.Sections))
	for i := range doc.Sections {
		s := &doc.Sections[i]
		idx := sectionIndex{
			id:      s.ID,
			heading: tokenSet(s.Heading),
			machine: map[string]bool{},
			all:     tokenSet(s.Heading),
		}
		for _, sp := range s.Spans {
			for tok := range tokenSet(sp.Text) {
				idx.all[tok] = true
				if sp.Provenance == document.ProvenanceMachine {
					idx.machine[tok] = true
				}
			}
		}
		index[i] = idx
	}

	best := map[string]AffectedSection{}
	record := func(id, reason string, conf Confidence) {
		if prev, ok := best[id]; ok && rank[prev.Confidence] >= rank[conf] {
			return
		}
		best[id] = AffectedSection{SectionID: id, Reason: reason, Confidence: conf}
	}

	for _, change := range changes {
		target := tokenSet(change.TargetName)
		if len(target) == 0 {
			continue
		}
		for _, idx := range index {
			switch {
			case containsAll(idx.heading, target):
				record(idx.id, fmt.Sprintf("heading matches %s %q", change.Kind, change.TargetName), ConfidenceExact)
			case containsAll(idx.machine, target):
				record(idx.id, fmt.Sprintf("documents %s %q", change.Kind, change.TargetName), ConfidenceExact)
			case overlapRatio(idx.heading, idx.machine, target) >= threshold:
				record(idx.id, fmt.Sprintf("shares terms with %s %q", change.Kind, change.TargetName), ConfidenceProbable)
			case change.Kind == KindRemoved && overlapsAny(idx.all, target):
				record(idx.id, fmt.Sprintf("mentions removed %q", change.TargetName), ConfidenceProbable)
			}
		}
	}

	report := &Report{}
	for _, idx := range index {
		if a, ok := best[idx.id]; ok {
			report.Affected = append(report.Affected, a)
		}
	}
	return report
}

// tokenSet normalizes a name or text chunk into a set of lowercase
// tokens. Non-alphanumeric runes delimit tokens; an upper-case rune
// after a lower-case or digit rune starts a new token so camelCase
// names split the same way as path segments.
func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	var tok []rune
	flush := func() {
		if len(tok) > 0 {
			set[string(tok)] = true
			tok = tok[:0]
		}
	}
	var prev rune
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
				flush()
			}
			tok = append(tok, unicode.ToLower(r))
		default:
			flush()
		}
		prev = r
	}
	flush()
	return set
}

// containsAll reports whether every token of target is in set.
func containsAll(set, target map[string]bool) bool {
	if len(target) == 0 {
		return false
	}
	for tok := range target {
		if !set[tok] {
			return false
		}
	}
	return true
}

// overlapsAny reports whether at least one target token is in set.
func overlapsAny(set, target map[string]bool) bool {
	for tok := range target {
		if set[tok] {
			return true
		}
	}
	return false
}

// overlapRatio is the share of target tokens found in either the
// heading or the machine text of a section.
func overlapRatio(heading, machine, target map[string]bool) float64 {
	if len(target) == 0 {
		return 0
	}
	hits := 0
	for tok := range target {
		if heading[tok] || machine[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(target))
}
