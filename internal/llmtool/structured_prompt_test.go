package llmtool

import (
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/reny1cao/crypto-insights/internal/types"
)

func TestRender_RendersSections(t *testing.T) {
	spec := ApplyPresets(StructuredPromptSpec{
		Role:         "You are the Lead Researcher.",
		Purpose:      "Review submissions.",
		Background:   "Daily report for 2025-06-01.",
		OutputFormat: "JSON only.",
		Language:     "English",
		OutputFields: []PromptField{
			{Name: "approved", Type: "bool", Required: true, Description: "Verdict."},
			{Name: "notes", Type: "string"},
		},
		Rules: []string{"Be concise."},
	}, PresetStrictJSON())
	spec = spec.WithContext(
		Block{Title: "new submissions", Body: "[...]"},
		Block{Title: "approved reports", Fallback: "No analyses have been approved yet."},
		Block{Title: "skipped"},
	)

	out, err := Render(spec)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	for _, sec := range []string{
		"[ROLE]", "[PURPOSE]", "[BACKGROUND]", "[NEW_SUBMISSIONS]", "[APPROVED_REPORTS]",
		"[OUTPUT]", "[CONSTRAINTS]", "[RULES]", "[OUTPUT_FORMAT]", "[LANGUAGE]",
	} {
		if !strings.Contains(out, sec) {
			t.Fatalf("expected section %s in prompt:\n%s", sec, out)
		}
	}
	if strings.Contains(out, "[SKIPPED]") {
		t.Fatalf("empty block should be skipped")
	}
	if !strings.Contains(out, "No analyses have been approved yet.") {
		t.Fatalf("fallback body missing")
	}
	if !strings.Contains(out, "- approved (bool, required): Verdict.") {
		t.Fatalf("field line missing:\n%s", out)
	}
	if strings.Index(out, "Return a single JSON value") > strings.Index(out, "[RULES]") {
		t.Fatalf("preset constraints should render before rules")
	}
}

func TestRender_RequiresPurpose(t *testing.T) {
	if _, err := Render(StructuredPromptSpec{}); err == nil {
		t.Fatalf("expected error for empty purpose")
	}
}

func TestFieldsFromSchema_FollowsOrderingAndEnums(t *testing.T) {
	s := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"zeta":  {Type: genai.TypeString},
			"level": {Type: genai.TypeString, Enum: []string{"high", "low"}, Description: "Confidence."},
			"tags":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required:         []string{"level"},
		PropertyOrdering: []string{"level", "tags"},
	}
	got := FieldsFromSchema(s)
	if len(got) != 3 {
		t.Fatalf("got %d fields", len(got))
	}
	if got[0].Name != "level" || got[1].Name != "tags" || got[2].Name != "zeta" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if !got[0].Required || got[1].Required {
		t.Fatalf("required flags wrong: %+v", got)
	}
	if got[0].Description != "Confidence. (one of: high, low)" {
		t.Fatalf("enum description: %q", got[0].Description)
	}
	if got[1].Type != "[]string" {
		t.Fatalf("array type: %q", got[1].Type)
	}
}

func TestFormatSources(t *testing.T) {
	got := FormatSources([]types.Source{{URI: "https://a", Title: "A"}, {URI: "https://b", Title: "B"}})
	want := "[1] A: https://a\n[2] B: https://b"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
