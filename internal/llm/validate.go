package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"google.golang.org/genai"
)

// SchemaError reports the first place a value departs from its schema.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation at %s: %s", e.Path, e.Reason)
}

const schemaURL = "structured-output.json"

var (
	compiled, _ = lru.New[string, *jsonschema.Schema](128)
	printer     = message.NewPrinter(language.English)
)

// Validate checks raw JSON against schema. The genai schema is converted to
// JSON Schema and compiled once per distinct shape.
func Validate(schema *genai.Schema, raw []byte) error {
	v, err := decodeValue(raw)
	if err != nil {
		return err
	}
	if schema == nil {
		return nil
	}
	sch, err := compile(schema)
	if err != nil {
		return err
	}
	if err := sch.Validate(v); err != nil {
		return toSchemaError(err)
	}
	return nil
}

func decodeValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidJSON)
	}
	return v, nil
}

func compile(s *genai.Schema) (*jsonschema.Schema, error) {
	doc := JSONSchema(s)
	key, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if sch, ok := compiled.Get(string(key)); ok {
		return sch, nil
	}
	// AddResource expects decoded JSON values.
	resource, err := jsonschema.UnmarshalJSON(bytes.NewReader(key))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	if err := c.AddResource(schemaURL, resource); err != nil {
		return nil, fmt.Errorf("llm: add schema: %w", err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("llm: compile schema: %w", err)
	}
	compiled.Add(string(key), sch)
	return sch, nil
}

// JSONSchema renders s in JSON Schema form. Only the keywords used for
// structured output are carried: type, nullable, properties, required,
// enum, items and numeric or array bounds.
func JSONSchema(s *genai.Schema) map[string]any {
	out := map[string]any{}
	if s == nil {
		return out
	}
	if s.Type != "" && s.Type != genai.TypeUnspecified {
		t := strings.ToLower(string(s.Type))
		if s.Nullable != nil && *s.Nullable {
			out["type"] = []string{t, "null"}
		} else {
			out["type"] = t
		}
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, sub := range s.Properties {
			props[name] = JSONSchema(sub)
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = JSONSchema(s.Items)
	}
	if s.MinItems != nil {
		out["minItems"] = *s.MinItems
	}
	if s.MaxItems != nil {
		out["maxItems"] = *s.MaxItems
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		out["maximum"] = *s.Maximum
	}
	return out
}

// toSchemaError reduces a validation tree to its first leaf.
func toSchemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &SchemaError{Path: "$", Reason: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	path := "$"
	for _, seg := range ve.InstanceLocation {
		if isIndex(seg) {
			path += "[" + seg + "]"
		} else {
			path += "." + seg
		}
	}
	return &SchemaError{Path: path, Reason: ve.ErrorKind.LocalizedString(printer)}
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
