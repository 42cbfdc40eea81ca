package llmtool

import (
	"sort"
	"strings"

	"google.golang.org/genai"
)

// FieldsFromSchema lists the top-level properties of an object schema as
// prompt fields. Property order follows PropertyOrdering, then name.
func FieldsFromSchema(s *genai.Schema) []PromptField {
	if s == nil {
		return nil
	}
	if s.Type == genai.TypeArray && s.Items != nil {
		s = s.Items
	}
	required := map[string]bool{}
	for _, r := range s.Required {
		required[r] = true
	}
	names := make([]string, 0, len(s.Properties))
	seen := map[string]bool{}
	for _, n := range s.PropertyOrdering {
		if _, ok := s.Properties[n]; ok && !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}
	var rest []string
	for n := range s.Properties {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	out := make([]PromptField, 0, len(names))
	for _, n := range names {
		p := s.Properties[n]
		desc := strings.TrimSpace(p.Description)
		if len(p.Enum) > 0 {
			enum := "one of: " + strings.Join(p.Enum, ", ")
			if desc == "" {
				desc = enum
			} else {
				desc += " (" + enum + ")"
			}
		}
		out = append(out, PromptField{
			Name:        n,
			Type:        typeString(p),
			Required:    required[n],
			Description: desc,
		})
	}
	return out
}

func typeString(s *genai.Schema) string {
	if s == nil {
		return "any"
	}
	switch s.Type {
	case genai.TypeString:
		return "string"
	case genai.TypeBoolean:
		return "bool"
	case genai.TypeInteger:
		return "int"
	case genai.TypeNumber:
		return "float64"
	case genai.TypeArray:
		return "[]" + typeString(s.Items)
	case genai.TypeObject:
		return "object"
	}
	return strings.ToLower(string(s.Type))
}
