package document

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSectionNotFound reports an update target that does not exist in
// the document.
var ErrSectionNotFound = errors.New("section not found")

// Merge surgically applies new machine content to a document and
// returns the result as a new document; the input is never mutated.
//
// A section is rewritten only when its id appears both in affectedIDs
// and as a key of newContent. In a rewritten section the machine spans
// collapse into a single machine span carrying the new text, placed at
// the position of the first original machine span; human text keeps
// its exact bytes and relative order, with spans left adjacent by the
// collapse folded into one. A section with no machine span (human-only
// legacy content) gets the new machine span appended after the
// existing content; nothing is ever deleted from unmarked text. All
// other sections are untouched.
//
// The returned ids list the rewritten sections in document order.
func Merge(doc *Document, affectedIDs []string, newContent map[string]string) (*Document, []string, error) {
	targets := map[string]string{}
	for _, id := range affectedIDs {
		text, ok := newContent[id]
		if !ok {
			continue
		}
		if containsMarker(text) {
			return nil, nil, fmt.Errorf("section %q: %w: replacement content contains machine span markers", id, ErrMalformedMarker)
		}
		if doc.Section(id) == nil {
			return nil, nil, fmt.Errorf("%w: %q (document has: %s)", ErrSectionNotFound, id, strings.Join(doc.SectionIDs(), ", "))
		}
		targets[id] = text
	}

	out := doc.clone()
	var updated []string
	for i := range out.Sections {
		s := &out.Sections[i]
		text, ok := targets[s.ID]
		if !ok {
			continue
		}
		s.Spans = replaceMachineSpans(s.Spans, normalizeMachineText(text))
		updated = append(updated, s.ID)
	}
	return out, updated, nil
}

// replaceMachineSpans rebuilds a span list with all machine spans
// collapsed into one holding the new text, positioned where the first
// machine span was. Human text passes through byte-identical, but two
// human spans left adjacent by a dropped machine span fold into one:
// Parse never produces adjacent human spans, so the folded list is
// what a reparse of the serialized section yields. With no machine
// span present, the new span goes after the existing content.
func replaceMachineSpans(spans []Span, text string) []Span {
	out := make([]Span, 0, len(spans)+1)
	inserted := false
	for _, sp := range spans {
		if sp.Provenance == ProvenanceMachine {
			if !inserted {
				out = append(out, Span{Provenance: ProvenanceMachine, Text: text})
				inserted = true
			}
			continue
		}
		if n := len(out); n > 0 && out[n-1].Provenance == ProvenanceHuman {
			out[n-1].Text += sp.Text
			continue
		}
		out = append(out, sp)
	}
	if !inserted {
		out = append(out, Span{Provenance: ProvenanceMachine, Text: text})
	}
	return out
}

// normalizeMachineText guarantees the span text invariant: empty or
// newline-terminated. Machine content is ours to canonicalize; human
// text never passes through here.
func normalizeMachineText(text string) string {
	if text == "" {
		return ""
	}
	if !strings.HasSuffix(text, "\n") {
		return text + "\n"
	}
	return text
}
