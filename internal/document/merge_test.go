package document

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func mustParse(t *testing.T, raw string) *Document {
	t.Helper()
	d, err := Parse("d.md", []byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d
}

func TestMergeReplacesOnlyMachineSpans(t *testing.T) {
	d := mustParse(t, sampleDoc)
	before := string(d.Serialize())

	merged, updated, err := Merge(d, []string{"api"}, map[string]string{"api": "`POST /v2/enroll`"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !reflect.DeepEqual(updated, []string{"api"}) {
		t.Errorf("updated = %v, want [api]", updated)
	}

	// The input document is never mutated.
	if got := string(d.Serialize()); got != before {
		t.Error("Merge mutated its input document")
	}

	api := merged.Section("api")
	if len(api.Spans) != 1 || api.Spans[0].Text != "`POST /v2/enroll`\n" {
		t.Errorf("api spans = %+v, want single machine span with new text", api.Spans)
	}

	// Untouched sections stay byte-identical.
	purpose := merged.Section("purpose")
	if !reflect.DeepEqual(purpose.Spans, d.Section("purpose").Spans) {
		t.Errorf("purpose spans changed: %+v", purpose.Spans)
	}
	if merged.Preamble != d.Preamble {
		t.Errorf("preamble changed: %q", merged.Preamble)
	}
}

func TestMergePreservesHumanSpansInAffectedSection(t *testing.T) {
	raw := "## API\nHuman intro.\n<!-- docsurgeon:begin api -->\nold generated\n<!-- docsurgeon:end api -->\nHuman outro.\n"
	d := mustParse(t, raw)

	merged, _, err := Merge(d, []string{"api"}, map[string]string{"api": "new generated"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	spans := merged.Section("api").Spans
	want := []Span{
		{Provenance: ProvenanceHuman, Text: "Human intro.\n"},
		{Provenance: ProvenanceMachine, Text: "new generated\n"},
		{Provenance: ProvenanceHuman, Text: "Human outro.\n"},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("spans = %+v\nwant %+v", spans, want)
	}
}

func TestMergeAppendsMachineSpanToHumanOnlySection(t *testing.T) {
	d := mustParse(t, "## Setup\nHand-written steps.\n")

	merged, _, err := Merge(d, []string{"setup"}, map[string]string{"setup": "generated addendum"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	spans := merged.Section("setup").Spans
	if len(spans) != 2 {
		t.Fatalf("spans = %+v, want human then machine", spans)
	}
	if spans[0].Provenance != ProvenanceHuman || spans[0].Text != "Hand-written steps.\n" {
		t.Errorf("human span altered: %+v", spans[0])
	}
	if spans[1].Provenance != ProvenanceMachine || spans[1].Text != "generated addendum\n" {
		t.Errorf("machine span = %+v", spans[1])
	}
}

func TestMergeCollapsesMultipleMachineSpans(t *testing.T) {
	raw := "## API\n<!-- docsurgeon:begin api -->\none\n<!-- docsurgeon:end api -->\nmiddle note\n<!-- docsurgeon:begin api -->\ntwo\n<!-- docsurgeon:end api -->\n"
	d := mustParse(t, raw)

	merged, _, err := Merge(d, []string{"api"}, map[string]string{"api": "only"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	spans := merged.Section("api").Spans
	want := []Span{
		{Provenance: ProvenanceMachine, Text: "only\n"},
		{Provenance: ProvenanceHuman, Text: "middle note\n"},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("spans = %+v\nwant %+v", spans, want)
	}
}

func TestMergeCollapseFoldsAdjacentHumanSpans(t *testing.T) {
	// Human text after the last machine span: dropping the second
	// machine span leaves two human spans side by side, which must
	// fold into one so the merged model survives a reparse.
	raw := "## API\n<!-- docsurgeon:begin api -->\none\n<!-- docsurgeon:end api -->\nmiddle note\n<!-- docsurgeon:begin api -->\ntwo\n<!-- docsurgeon:end api -->\ntrailing note\n"
	d := mustParse(t, raw)

	merged, _, err := Merge(d, []string{"api"}, map[string]string{"api": "only"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	spans := merged.Section("api").Spans
	want := []Span{
		{Provenance: ProvenanceMachine, Text: "only\n"},
		{Provenance: ProvenanceHuman, Text: "middle note\ntrailing note\n"},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("spans = %+v\nwant %+v", spans, want)
	}
	if err := VerifyRoundTrip(merged); err != nil {
		t.Errorf("VerifyRoundTrip after collapse: %v", err)
	}
}

func TestMergeSkipsContentOutsideAffectedSet(t *testing.T) {
	d := mustParse(t, sampleDoc)

	// "purpose" content supplied but not affected: ignored, not an error.
	merged, updated, err := Merge(d, []string{"api"}, map[string]string{
		"api":     "new",
		"purpose": "should be ignored",
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !reflect.DeepEqual(updated, []string{"api"}) {
		t.Errorf("updated = %v, want [api]", updated)
	}
	if !reflect.DeepEqual(merged.Section("purpose").Spans, d.Section("purpose").Spans) {
		t.Error("purpose section changed despite not being affected")
	}
}

func TestMergeUnknownSectionFails(t *testing.T) {
	d := mustParse(t, sampleDoc)
	_, _, err := Merge(d, []string{"nonexistent"}, map[string]string{"nonexistent": "x"})
	if !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("error = %v, want ErrSectionNotFound", err)
	}
}

func TestMergeRejectsMarkerInjection(t *testing.T) {
	d := mustParse(t, sampleDoc)
	_, _, err := Merge(d, []string{"api"}, map[string]string{
		"api": "text\n<!-- docsurgeon:end api -->\nsmuggled",
	})
	if !errors.Is(err, ErrMalformedMarker) {
		t.Errorf("error = %v, want ErrMalformedMarker", err)
	}
}

func TestMergePreservesMissingFinalNewline(t *testing.T) {
	raw := "## API\n<!-- docsurgeon:begin api -->\nold\n<!-- docsurgeon:end api -->\n\n## Notes\nhand-written, no newline at end"
	d := mustParse(t, raw)

	merged, _, err := Merge(d, []string{"api"}, map[string]string{"api": "new"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	out := string(merged.Serialize())
	if strings.HasSuffix(out, "\n") {
		t.Error("rewriting an unrelated section added a final newline")
	}
	if !strings.HasSuffix(out, "hand-written, no newline at end") {
		t.Errorf("trailing human text changed: %q", out)
	}
	if err := VerifyRoundTrip(merged); err != nil {
		t.Errorf("VerifyRoundTrip: %v", err)
	}
}

func TestMergedDocumentRoundTrips(t *testing.T) {
	raw := "intro\n\n## A\nhuman a\n\n## B\n<!-- docsurgeon:begin b -->\nold b\n<!-- docsurgeon:end b -->\n\n## C\n"
	d := mustParse(t, raw)

	merged, _, err := Merge(d, []string{"b", "c"}, map[string]string{"b": "new b", "c": "fresh c"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := VerifyRoundTrip(merged); err != nil {
		t.Errorf("VerifyRoundTrip after merge: %v", err)
	}
}
