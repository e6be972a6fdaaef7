package core

import (
	"encoding/json"
	"fmt"
)

// partEnvelope is the wire form of a Part; exactly one field is set.
type partEnvelope struct {
	Text             *string           `json:"text,omitempty"`
	Data             map[string]any    `json:"data,omitempty"`
	File             *File             `json:"file,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

type contentWire struct {
	Role  string         `json:"role,omitempty"`
	Parts []partEnvelope `json:"parts"`
}

// MarshalJSON encodes parts as typed envelopes.
func (c Content) MarshalJSON() ([]byte, error) {
	w := contentWire{Role: c.Role, Parts: make([]partEnvelope, 0, len(c.Parts))}
	for _, p := range c.Parts {
		var env partEnvelope
		switch v := p.(type) {
		case TextPart:
			t := v.Text
			env.Text = &t
		case DataPart:
			env.Data = v.Data
			if env.Data == nil {
				env.Data = map[string]any{}
			}
		case FilePart:
			f := v.File
			env.File = &f
		case FunctionCallPart:
			fc := v.FunctionCall
			env.FunctionCall = &fc
		case FunctionResponsePart:
			fr := v.FunctionResponse
			env.FunctionResponse = &fr
		default:
			return nil, fmt.Errorf("unsupported part type %T", p)
		}
		w.Parts = append(w.Parts, env)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes typed part envelopes.
func (c *Content) UnmarshalJSON(b []byte) error {
	var w contentWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	c.Role = w.Role
	c.Parts = make([]Part, 0, len(w.Parts))
	for i, env := range w.Parts {
		switch {
		case env.Text != nil:
			c.Parts = append(c.Parts, TextPart{Text: *env.Text})
		case env.FunctionCall != nil:
			c.Parts = append(c.Parts, FunctionCallPart{FunctionCall: *env.FunctionCall})
		case env.FunctionResponse != nil:
			c.Parts = append(c.Parts, FunctionResponsePart{FunctionResponse: *env.FunctionResponse})
		case env.File != nil:
			c.Parts = append(c.Parts, FilePart{File: *env.File})
		case env.Data != nil:
			c.Parts = append(c.Parts, DataPart{Data: env.Data})
		default:
			return fmt.Errorf("part %d: empty envelope", i)
		}
	}
	return nil
}
