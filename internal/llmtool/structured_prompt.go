package llmtool

import (
	"bytes"
	"fmt"
	"strings"
)

// PromptField describes a single output field.
type PromptField struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// Block is a titled piece of context material (agenda, draft, feedback...).
// An empty body renders Fallback instead; a block with neither is skipped.
type Block struct {
	Title    string
	Body     string
	Fallback string
}

// StructuredPromptSpec defines the sections for a structured prompt.
type StructuredPromptSpec struct {
	Role         string
	Purpose      string
	Background   string
	Context      []Block
	OutputFields []PromptField
	Constraints  []string
	Rules        []string
	OutputFormat string
	Language     string
}

// WithContext returns a copy of spec with blocks appended to its context.
func (s StructuredPromptSpec) WithContext(blocks ...Block) StructuredPromptSpec {
	s.Context = append(append([]Block(nil), s.Context...), blocks...)
	return s
}

// Render builds the prompt text. Each non-empty section is emitted as
// "[TITLE]\nbody\n\n".
func Render(spec StructuredPromptSpec) (string, error) {
	if strings.TrimSpace(spec.Purpose) == "" {
		return "", fmt.Errorf("llmtool: purpose is empty")
	}
	var buf bytes.Buffer
	writeSection(&buf, "ROLE", spec.Role)
	writeSection(&buf, "PURPOSE", spec.Purpose)
	writeSection(&buf, "BACKGROUND", spec.Background)
	for _, b := range spec.Context {
		body := b.Body
		if strings.TrimSpace(body) == "" {
			body = b.Fallback
		}
		writeSection(&buf, sectionTitle(b.Title), body)
	}
	writeSection(&buf, "OUTPUT", formatFields(spec.OutputFields))
	writeSection(&buf, "CONSTRAINTS", formatList(spec.Constraints))
	writeSection(&buf, "RULES", formatList(spec.Rules))
	writeSection(&buf, "OUTPUT_FORMAT", spec.OutputFormat)
	writeSection(&buf, "LANGUAGE", spec.Language)
	return strings.TrimSpace(buf.String()) + "\n", nil
}

// MustRender panics on error; prompt specs are package literals.
func MustRender(spec StructuredPromptSpec) string {
	out, err := Render(spec)
	if err != nil {
		panic(err)
	}
	return out
}

func sectionTitle(title string) string {
	title = strings.ToUpper(strings.TrimSpace(title))
	return strings.Join(strings.Fields(title), "_")
}

func formatFields(fields []PromptField) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		req := "optional"
		if f.Required {
			req = "required"
		}
		if f.Description != "" {
			fmt.Fprintf(&buf, "- %s (%s, %s): %s\n", name, f.Type, req, f.Description)
		} else {
			fmt.Fprintf(&buf, "- %s (%s, %s)\n", name, f.Type, req)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
