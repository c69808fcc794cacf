// Package document models a documentation file as an ordered list of
// named sections, each made of provenance-tagged spans.
//
// A span is either machine-authored (delimited by a begin/end marker
// pair carrying the owning section id) or human-authored (everything
// else). The model is the single source of truth for what is safe to
// overwrite: merges replace machine spans only and never touch a byte
// of human content.
//
// Design principles, shared with the rest of the engine:
// - SRP: types, markers, parsing, serialization, and merging in separate files
// - documents are immutable values: Parse builds one, Merge returns a new one
package document

import (
	"fmt"
	"strings"
)

// --- Provenance enum ---

// Provenance records who authored a span of text.
type Provenance string

const (
	ProvenanceMachine Provenance = "machine"
	ProvenanceHuman   Provenance = "human"
)

// validProvenances is the set of allowed provenance values.
var validProvenances = map[Provenance]bool{
	ProvenanceMachine: true,
	ProvenanceHuman:   true,
}

// ValidateProvenance returns an error if the provenance is not recognized.
func ValidateProvenance(p Provenance) error {
	if !validProvenances[p] {
		return fmt.Errorf("invalid provenance %q: must be one of: machine, human", p)
	}
	return nil
}

// --- Core data structures ---

// Span is a contiguous run of text within a section. Text holds the
// content lines, each terminated by a newline; marker lines are never
// part of Text.
type Span struct {
	Provenance Provenance
	Text       string
}

// Section is a named, addressable block of a document. ID is derived
// from the heading text and is stable for a given heading sequence.
// A section with no body has an empty span list.
type Section struct {
	ID      string
	Heading string
	Spans   []Span
}

// Body returns the section's text content: the concatenation of its
// spans in order, without marker lines.
func (s *Section) Body() string {
	var b strings.Builder
	for _, sp := range s.Spans {
		b.WriteString(sp.Text)
	}
	return b.String()
}

// HasMachineSpan reports whether any span of the section is
// machine-authored.
func (s *Section) HasMachineSpan() bool {
	for _, sp := range s.Spans {
		if sp.Provenance == ProvenanceMachine {
			return true
		}
	}
	return false
}

// Document is an ordered sequence of sections plus the preamble text
// that precedes the first heading (title, badges, intro prose).
type Document struct {
	Path     string
	Preamble string
	Sections []Section

	// noFinalNewline records that the source file's last line was not
	// newline-terminated. Span text always carries a trailing newline
	// for uniformity; Serialize strips the final one again so the file
	// keeps its exact last byte.
	noFinalNewline bool
}

// Section returns the section with the given id, or nil.
func (d *Document) Section(id string) *Section {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return &d.Sections[i]
		}
	}
	return nil
}

// SectionIDs returns the section ids in document order.
func (d *Document) SectionIDs() []string {
	ids := make([]string, len(d.Sections))
	for i := range d.Sections {
		ids[i] = d.Sections[i].ID
	}
	return ids
}

// clone returns a deep copy of the document. Strings are immutable, so
// copying the section and span slices is enough.
func (d *Document) clone() *Document {
	out := &Document{
		Path:           d.Path,
		Preamble:       d.Preamble,
		Sections:       make([]Section, len(d.Sections)),
		noFinalNewline: d.noFinalNewline,
	}
	for i, s := range d.Sections {
		cp := s
		if s.Spans != nil {
			cp.Spans = make([]Span, len(s.Spans))
			copy(cp.Spans, s.Spans)
		}
		out.Sections[i] = cp
	}
	return out
}

// --- Slug generation ---

const maxSlugLen = 50

// Slugify converts heading text into a stable, filesystem-safe section id.
// Example: "API Reference" → "api-reference"
//
// Rules:
//   - Lowercase
//   - Spaces and underscores become hyphens
//   - Non-alphanumeric characters (except hyphens) are removed
//   - Consecutive hyphens are collapsed
//   - Leading/trailing hyphens are trimmed
//   - Truncated to 50 characters (at a word boundary if possible)
//   - Empty input returns "section"
func Slugify(heading string) string {
	if strings.TrimSpace(heading) == "" {
		return "section"
	}

	s := strings.ToLower(strings.TrimSpace(heading))

	var b strings.Builder
	prevHyphen := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevHyphen = false
		case r == ' ' || r == '_' || r == '-':
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")

	if slug == "" {
		return "section"
	}

	if len(slug) <= maxSlugLen {
		return slug
	}

	// Truncate at word boundary if possible.
	truncated := slug[:maxSlugLen]
	if lastHyphen := strings.LastIndex(truncated, "-"); lastHyphen > maxSlugLen/2 {
		truncated = truncated[:lastHyphen]
	}

	return strings.TrimRight(truncated, "-")
}
