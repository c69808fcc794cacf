package document

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrRoundTrip reports that a document did not survive a
// serialize/reparse cycle. The write that produced it must halt.
var ErrRoundTrip = errors.New("document failed round-trip verification")

// Serialize renders the document back to file bytes. Human span text
// is emitted verbatim; machine spans are re-wrapped in canonical
// marker lines carrying the owning section id. A source file whose
// last line had no terminating newline serializes back without one.
// For any document this package produces, Parse(Serialize(d)) == d.
func (d *Document) Serialize() []byte {
	var b strings.Builder
	b.WriteString(d.Preamble)
	for i := range d.Sections {
		s := &d.Sections[i]
		b.WriteString("## ")
		b.WriteString(s.Heading)
		b.WriteByte('\n')
		for _, sp := range s.Spans {
			if sp.Provenance == ProvenanceMachine {
				b.WriteString(BeginMarker(s.ID))
				b.WriteByte('\n')
				b.WriteString(sp.Text)
				b.WriteString(EndMarker(s.ID))
				b.WriteByte('\n')
			} else {
				b.WriteString(sp.Text)
			}
		}
	}
	out := b.String()
	if d.noFinalNewline {
		out = strings.TrimSuffix(out, "\n")
	}
	return []byte(out)
}

// VerifyRoundTrip serializes the document, parses the result, and
// compares. It returns ErrRoundTrip on any mismatch. Callers run this
// before writing a merged document to disk so a corrupted model can
// never reach the file.
func VerifyRoundTrip(d *Document) error {
	reparsed, err := Parse(d.Path, d.Serialize())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRoundTrip, err)
	}
	if !reflect.DeepEqual(d, reparsed) {
		return fmt.Errorf("%w: %s: reparsed document differs from source model", ErrRoundTrip, d.Path)
	}
	return nil
}

// NewFromMarkdown builds a fully machine-owned document from plain
// Markdown content: each "## " heading starts a section whose body
// becomes a single machine span. Text before the first heading joins
// the preamble after the title line. The content must not already
// contain marker lines and must hold at least one section heading.
func NewFromMarkdown(path, title, content string) (*Document, error) {
	if containsMarker(content) {
		return nil, fmt.Errorf("%s: %w: content already contains machine span markers", path, ErrMalformedMarker)
	}

	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	d := &Document{Path: path}
	if title != "" {
		d.Preamble = "# " + strings.TrimSpace(title) + "\n\n"
	}

	var (
		cur     *Section
		run     []string
		inFence bool
		usedIDs = map[string]bool{}
	)
	flush := func() {
		if cur == nil {
			if len(run) > 0 {
				d.Preamble += joinLines(run)
			}
			run = nil
			return
		}
		if text := joinLines(run); text != "" {
			cur.Spans = append(cur.Spans, Span{Provenance: ProvenanceMachine, Text: text})
		}
		run = nil
		d.Sections = append(d.Sections, *cur)
		cur = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if !inFence {
			if heading, isHeading := headingText(line); isHeading {
				flush()
				cur = &Section{ID: assignID(usedIDs, heading), Heading: heading}
				continue
			}
		}
		run = append(run, line)
	}
	flush()

	if len(d.Sections) == 0 {
		return nil, fmt.Errorf("%s: content must contain at least one %q section heading", path, "## ")
	}
	return d, nil
}
