package llm

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

// ErrMissingRequired is wrapped by CheckRequired for every absent required field.
var ErrMissingRequired = errors.New("missing required field")

// SchemaType is a JSON schema primitive type.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the subset of JSON schema that every provider can express.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	Enum        []string
	Nullable    bool
}

// JSONSchema renders the schema as a JSON schema document.
func (s *Schema) JSONSchema() map[string]any {
	if s == nil {
		return nil
	}

	out := map[string]any{"type": string(s.Type)}
	if s.Nullable {
		out["type"] = []string{string(s.Type), "null"}
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.JSONSchema()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

// String renders the schema as compact JSON.
func (s *Schema) String() string {
	data, err := json.Marshal(s.JSONSchema())
	if err != nil {
		return ""
	}
	return string(data)
}

// CheckRequired reports required fields that are absent from data, or null
// where the field schema is not nullable. Present empty strings and arrays
// pass. Type mismatches are left to the decoder.
func (s *Schema) CheckRequired(data []byte) error {
	if s == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	var problems []error
	s.collectMissing(v, "", &problems)
	return errors.Join(problems...)
}

func (s *Schema) collectMissing(v any, path string, problems *[]error) {
	switch s.Type {
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return
		}
		for _, name := range s.Required {
			val, present := obj[name]
			prop := s.Properties[name]
			if !present || (val == nil && (prop == nil || !prop.Nullable)) {
				*problems = append(*problems, fmt.Errorf("%w: %s", ErrMissingRequired, joinPath(path, name)))
			}
		}
		for _, name := range slices.Sorted(maps.Keys(s.Properties)) {
			if val, ok := obj[name]; ok && val != nil {
				s.Properties[name].collectMissing(val, joinPath(path, name), problems)
			}
		}
	case TypeArray:
		arr, ok := v.([]any)
		if !ok || s.Items == nil {
			return
		}
		for i, item := range arr {
			if item != nil {
				s.Items.collectMissing(item, fmt.Sprintf("%s[%d]", path, i), problems)
			}
		}
	}
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

const jsonOnlyInstruction = "Respond with JSON only, no prose or code fences."

// schemaInstruction is appended to the system instruction for providers that
// cannot enforce a schema natively.
func schemaInstruction(s *Schema) string {
	return jsonOnlyInstruction + " The JSON must match this schema: " + s.String()
}

// jsonSystemInstruction returns the system instruction with the JSON
// requirement spelled out, for providers without native schema support.
func jsonSystemInstruction(req *Request) string {
	switch {
	case !req.JSON:
		return req.SystemInstruction
	case req.Schema != nil:
		return strings.TrimSpace(req.SystemInstruction + "\n\n" + schemaInstruction(req.Schema))
	default:
		return strings.TrimSpace(req.SystemInstruction + "\n\n" + jsonOnlyInstruction)
	}
}
