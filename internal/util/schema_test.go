package util

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weatherArgs struct {
	City string `json:"city" jsonschema:"the city to look up"`
	Days int    `json:"days,omitempty"`
}

func TestSchemaFor(t *testing.T) {
	s, m, err := SchemaFor[weatherArgs]()
	require.NoError(t, err)
	assert.Equal(t, "object", s.Type)
	assert.Contains(t, s.Required, "city")
	props, ok := m["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "city")
	assert.Contains(t, props, "days")
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"city"},
		"properties": map[string]any{
			"city":  map[string]any{"type": "string"},
			"units": map[string]any{"type": "string", "enum": []any{"c", "f"}},
			"days":  map[string]any{"type": "integer"},
			"stops": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object", "required": []string{"name"}, "properties": map[string]any{"name": map[string]any{"type": "string"}}},
			},
		},
	}

	require.NoError(t, ValidateParameters(map[string]any{"city": "paris", "days": float64(3), "extra": true}, schema))

	cases := []struct {
		name  string
		args  map[string]any
		field string
	}{
		{"missing required", map[string]any{}, "city"},
		{"wrong type", map[string]any{"city": 1}, "city"},
		{"bad enum", map[string]any{"city": "x", "units": "k"}, "units"},
		{"fractional integer", map[string]any{"city": "x", "days": 1.5}, "days"},
		{"nested", map[string]any{"city": "x", "stops": []any{map[string]any{}}}, "stops[0].name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateParameters(tc.args, schema)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestValidateValue(t *testing.T) {
	zero := 0.0
	s := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"points"},
		Properties: map[string]*jsonschema.Schema{
			"points": {Type: "integer", Minimum: &zero},
		},
	}
	assert.NoError(t, ValidateValue(s, map[string]any{"points": float64(10)}))
	assert.Error(t, ValidateValue(s, map[string]any{"points": float64(-1)}))
	assert.Error(t, ValidateValue(s, map[string]any{}))
}
