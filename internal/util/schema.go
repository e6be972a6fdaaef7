package util

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// ValidationError describes a parameter that failed schema validation.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// SchemaFor infers a JSON schema from T and returns it both typed and as a
// plain map suitable for tool definitions.
func SchemaFor[T any]() (*jsonschema.Schema, map[string]any, error) {
	s, err := jsonschema.For[T](&jsonschema.ForOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("infer schema: %w", err)
	}
	m, err := SchemaMap(s)
	if err != nil {
		return nil, nil, err
	}
	return s, m, nil
}

// SchemaMap converts a typed schema into a generic map.
func SchemaMap(s *jsonschema.Schema) (map[string]any, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return m, nil
}

// ValidateValue checks a decoded JSON value against a typed schema.
func ValidateValue(s *jsonschema.Schema, v any) error {
	resolved, err := s.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve schema: %w", err)
	}
	return resolved.Validate(v)
}

// ValidateParameters validates decoded tool arguments against a JSON schema
// map. It checks required keys, primitive types, enums and recurses into
// nested objects and arrays. Unknown fields are allowed.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	return validateObject("", params, schema)
}

func validateObject(path string, obj map[string]any, schema map[string]any) error {
	for _, name := range stringList(schema["required"]) {
		if _, ok := obj[name]; !ok {
			return &ValidationError{Field: join(path, name), Message: "required field is missing"}
		}
	}
	properties, _ := schema["properties"].(map[string]any)
	for name, value := range obj {
		prop, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}
		if err := validateValue(join(path, name), value, prop); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(path string, value any, schema map[string]any) error {
	if value == nil {
		return nil
	}
	expected := schemaType(schema)
	if !isValidType(value, expected) {
		return &ValidationError{Field: path, Value: value, Message: fmt.Sprintf("expected type %s, got %T", expected, value)}
	}
	if enum, ok := schema["enum"].([]any); ok && len(enum) > 0 {
		if !slices.ContainsFunc(enum, func(e any) bool { return fmt.Sprint(e) == fmt.Sprint(value) }) {
			return &ValidationError{Field: path, Value: value, Message: fmt.Sprintf("must be one of %v", enum)}
		}
	}
	switch v := value.(type) {
	case map[string]any:
		return validateObject(path, v, schema)
	case []any:
		items, ok := schema["items"].(map[string]any)
		if !ok {
			return nil
		}
		for i, item := range v {
			if err := validateValue(fmt.Sprintf("%s[%d]", path, i), item, items); err != nil {
				return err
			}
		}
	}
	return nil
}

// schemaType returns the declared type, taking the first non-null entry of
// a type list.
func schemaType(schema map[string]any) string {
	switch t := schema["type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				return s
			}
		}
	case []string:
		for _, s := range t {
			if s != "null" {
				return s
			}
		}
	}
	return ""
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return strings.Join([]string{path, name}, ".")
}

func isValidType(value any, expectedType string) bool {
	switch expectedType {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64: // JSON numbers decode as float64
			return v == float64(int64(v))
		case json.Number:
			_, err := v.Int64()
			return err == nil
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64, json.Number:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}
