package document

import (
	"fmt"
	"strings"
)

// Parse builds a Document from file bytes.
//
// Parsing rules:
//   - A "## " heading outside a fenced code block starts a new section.
//     Text before the first heading is the preamble.
//   - Lines between a begin/end marker pair form a machine span; any
//     other contiguous run of lines forms a human span. Unmarked legacy
//     files therefore parse as one human span per section and nothing
//     in them is ever overwritten.
//   - Marker and heading detection is suppressed inside fenced code
//     blocks, so documentation ABOUT the marker convention stays plain
//     content.
//
// Malformed markers (stray end, nested begin, id mismatch, begin left
// unclosed at a section boundary or EOF) fail with ErrMalformedMarker.
func Parse(path string, data []byte) (*Document, error) {
	raw := string(data)
	lines := strings.Split(raw, "\n")
	// A trailing newline produces one final empty element; drop it so
	// every element is exactly one line. Serialize restores it.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	d := &Document{Path: path}
	// An unterminated last line gets a newline folded into its span
	// for uniform text; Serialize strips it again so unasked bytes
	// never change on rewrite.
	d.noFinalNewline = raw != "" && !strings.HasSuffix(raw, "\n")
	var (
		cur          *Section
		run          []string // current human or preamble run
		machineRun   []string
		openID       string // id of the open begin marker, "" when closed
		openLine     int
		inFence      bool
		usedIDs      = map[string]bool{}
		flushHuman   func()
		flushSection func()
	)

	flushHuman = func() {
		if len(run) == 0 {
			return
		}
		text := joinLines(run)
		run = nil
		if cur == nil {
			d.Preamble += text
			return
		}
		cur.Spans = append(cur.Spans, Span{Provenance: ProvenanceHuman, Text: text})
	}
	flushSection = func() {
		flushHuman()
		if cur != nil {
			d.Sections = append(d.Sections, *cur)
			cur = nil
		}
	}

	for i, line := range lines {
		lineNo := i + 1
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}

		if !inFence {
			verb, id, isMarker, err := parseMarker(line, lineNo)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			if isMarker {
				switch verb {
				case markerVerbBegin:
					if cur == nil {
						return nil, fmt.Errorf("%s: %w: line %d: begin marker before first section heading", path, ErrMalformedMarker, lineNo)
					}
					if openID != "" {
						return nil, fmt.Errorf("%s: %w: line %d: nested begin marker (previous begin at line %d)", path, ErrMalformedMarker, lineNo, openLine)
					}
					if id != cur.ID {
						return nil, fmt.Errorf("%s: %w: line %d: begin marker id %q does not belong to section %q", path, ErrMalformedMarker, lineNo, id, cur.ID)
					}
					flushHuman()
					openID = id
					openLine = lineNo
				case markerVerbEnd:
					if openID == "" {
						return nil, fmt.Errorf("%s: %w: line %d: end marker without a matching begin", path, ErrMalformedMarker, lineNo)
					}
					if id != openID {
						return nil, fmt.Errorf("%s: %w: line %d: end marker id %q does not match begin id %q", path, ErrMalformedMarker, lineNo, id, openID)
					}
					cur.Spans = append(cur.Spans, Span{Provenance: ProvenanceMachine, Text: joinLines(machineRun)})
					machineRun = nil
					openID = ""
				}
				continue
			}

			if heading, isHeading := headingText(line); isHeading {
				if openID != "" {
					return nil, fmt.Errorf("%s: %w: begin marker at line %d not closed before next section heading", path, ErrMalformedMarker, openLine)
				}
				flushSection()
				cur = &Section{ID: assignID(usedIDs, heading), Heading: heading}
				continue
			}
		}

		if openID != "" {
			machineRun = append(machineRun, line)
		} else {
			run = append(run, line)
		}
	}

	if openID != "" {
		return nil, fmt.Errorf("%s: %w: begin marker at line %d not closed before end of file", path, ErrMalformedMarker, openLine)
	}
	flushSection()

	return d, nil
}

// headingText reports whether the line is a section heading and, if
// so, its text. Sections live at the H2 level; the H1 title and any
// deeper headings are plain content.
func headingText(line string) (string, bool) {
	rest, found := strings.CutPrefix(line, "## ")
	if !found {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// assignID derives a unique section id from the heading, appending a
// numeric suffix on collision: "api", "api-2", "api-3".
func assignID(used map[string]bool, heading string) string {
	base := Slugify(heading)
	id := base
	for n := 2; used[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	used[id] = true
	return id
}

// joinLines rebuilds a text chunk from lines, each newline-terminated.
// Span and preamble text is always either empty or ends with a newline.
func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
