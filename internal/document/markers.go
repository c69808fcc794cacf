package document

import (
	"errors"
	"fmt"
	"strings"
)

// Machine spans are delimited by HTML-comment marker lines so they are
// invisible in rendered Markdown:
//
//	<!-- docsurgeon:begin api-reference -->
//	`POST /enroll`
//	<!-- docsurgeon:end api-reference -->
//
// The id in the marker is the owning section's id. A line that opens
// with the marker prefix but does not match this grammar exactly is a
// parse error, never a guess: misreading a marker risks classifying
// human content as machine-owned.

const (
	markerPrefix = "<!-- docsurgeon:"
	markerSuffix = " -->"

	markerVerbBegin = "begin"
	markerVerbEnd   = "end"
)

// ErrMalformedMarker reports an unrecognized or mismatched machine
// span marker. Writes against the affected file must halt.
var ErrMalformedMarker = errors.New("malformed machine span marker")

// BeginMarker returns the begin marker line for a section id.
func BeginMarker(id string) string {
	return markerPrefix + markerVerbBegin + " " + id + markerSuffix
}

// EndMarker returns the end marker line for a section id.
func EndMarker(id string) string {
	return markerPrefix + markerVerbEnd + " " + id + markerSuffix
}

// parseMarker inspects a line for the marker grammar. It returns the
// verb and section id when the line is a well-formed marker. A line
// that does not carry the marker prefix is plain content (ok=false,
// no error); a line that carries the prefix but breaks the grammar is
// malformed.
func parseMarker(line string, lineNo int) (verb, id string, ok bool, err error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, markerPrefix) {
		return "", "", false, nil
	}
	rest, found := strings.CutSuffix(trimmed, markerSuffix)
	if !found {
		return "", "", false, fmt.Errorf("%w: line %d: missing %q terminator", ErrMalformedMarker, lineNo, markerSuffix)
	}
	rest = strings.TrimPrefix(rest, markerPrefix)

	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return "", "", false, fmt.Errorf("%w: line %d: expected %q or %q", ErrMalformedMarker, lineNo, BeginMarker("<id>"), EndMarker("<id>"))
	}
	verb, id = fields[0], fields[1]
	if verb != markerVerbBegin && verb != markerVerbEnd {
		return "", "", false, fmt.Errorf("%w: line %d: unknown verb %q", ErrMalformedMarker, lineNo, verb)
	}
	if id == "" {
		return "", "", false, fmt.Errorf("%w: line %d: empty section id", ErrMalformedMarker, lineNo)
	}
	return verb, id, true, nil
}

// containsMarker reports whether any line of the text carries the
// marker prefix. Used to reject content that would double-wrap.
func containsMarker(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), markerPrefix) {
			return true
		}
	}
	return false
}
