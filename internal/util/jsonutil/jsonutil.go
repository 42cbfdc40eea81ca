package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?\\s*```")

// ExtractJSON returns the JSON payload of a model response, unwrapping a
// markdown code fence when the model added one.
func ExtractJSON(text string) []byte {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return []byte(strings.TrimSpace(m[1]))
	}
	return []byte(strings.TrimSpace(text))
}

// MarshalNoEscape encodes v into JSON without HTML-escaping <, > and &.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalNoEscapeIndent is MarshalNoEscape with indentation.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Pretty renders v as indented JSON for prompts, or "null" on failure.
func Pretty(v any) string {
	b, err := MarshalNoEscapeIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}

// UnmarshalFlex tries a direct unmarshal first and then retries once with a
// payload that was itself encoded as a JSON string.
func UnmarshalFlex(raw []byte, v any) error {
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return err
	}
	if err2 := json.Unmarshal([]byte(s), v); err2 != nil {
		return errors.Join(err, err2)
	}
	return nil
}
