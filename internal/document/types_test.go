package document

import (
	"testing"
)

func TestValidateProvenance(t *testing.T) {
	tests := []struct {
		name    string
		input   Provenance
		wantErr bool
	}{
		{"machine is valid", ProvenanceMachine, false},
		{"human is valid", ProvenanceHuman, false},
		{"empty is invalid", Provenance(""), true},
		{"unknown is invalid", Provenance("robot"), true},
		{"case sensitive", Provenance("Machine"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProvenance(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProvenance(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple heading",
			input: "API Reference",
			want:  "api-reference",
		},
		{
			name:  "already slugified",
			input: "api-reference",
			want:  "api-reference",
		},
		{
			name:  "special characters removed",
			input: "Errors & Retries (v2.0)!",
			want:  "errors-retries-v20",
		},
		{
			name:  "consecutive spaces collapsed",
			input: "too   many   spaces",
			want:  "too-many-spaces",
		},
		{
			name:  "underscores become hyphens",
			input: "config_file_layout",
			want:  "config-file-layout",
		},
		{
			name:  "empty input",
			input: "",
			want:  "section",
		},
		{
			name:  "only symbols",
			input: "!!! ???",
			want:  "section",
		},
		{
			name:  "long heading truncated at word boundary",
			input: "a very long heading that keeps going well past the fifty character limit",
			want:  "a-very-long-heading-that-keeps-going-well-past",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slugify(tt.input)
			if got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if len(got) > maxSlugLen {
				t.Errorf("Slugify(%q) length = %d, exceeds %d", tt.input, len(got), maxSlugLen)
			}
		})
	}
}

func TestSectionBody(t *testing.T) {
	s := Section{
		ID:      "api",
		Heading: "API",
		Spans: []Span{
			{Provenance: ProvenanceHuman, Text: "Intro line.\n"},
			{Provenance: ProvenanceMachine, Text: "`POST /enroll`\n"},
		},
	}
	want := "Intro line.\n`POST /enroll`\n"
	if got := s.Body(); got != want {
		t.Errorf("Body() = %q, want %q", got, want)
	}

	empty := Section{ID: "notes", Heading: "Notes"}
	if got := empty.Body(); got != "" {
		t.Errorf("Body() of empty section = %q, want empty", got)
	}
}

func TestDocumentSectionLookup(t *testing.T) {
	d := &Document{
		Sections: []Section{
			{ID: "purpose", Heading: "Purpose"},
			{ID: "api", Heading: "API"},
		},
	}

	if s := d.Section("api"); s == nil || s.Heading != "API" {
		t.Errorf("Section(\"api\") = %+v, want the API section", s)
	}
	if s := d.Section("missing"); s != nil {
		t.Errorf("Section(\"missing\") = %+v, want nil", s)
	}

	ids := d.SectionIDs()
	if len(ids) != 2 || ids[0] != "purpose" || ids[1] != "api" {
		t.Errorf("SectionIDs() = %v, want [purpose api]", ids)
	}
}
