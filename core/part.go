package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Conversation roles used in Content.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// DataPart is a structured data segment.
type DataPart struct {
	Data map[string]any
}

func (DataPart) isPart() {}

// File describes an attachment either inlined as bytes or referenced by URI.
type File struct {
	Name     string `json:"name,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// FilePart is a file attachment segment.
type FilePart struct {
	File File
}

func (FilePart) isPart() {}

// FunctionCall describes a tool invocation request produced by a model.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // JSON object
}

// Args decodes the JSON argument payload. An empty payload yields an empty map.
func (fc FunctionCall) Args() (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(fc.Arguments) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
		return nil, fmt.Errorf("decode arguments of %s: %w", fc.Name, err)
	}
	return args, nil
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
}

func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call.
type FunctionResponse struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Response any    `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
}

func (FunctionResponsePart) isPart() {}

// Content holds a role and its ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// NewTextContent builds content with a single text part.
func NewTextContent(role, text string) *Content {
	return &Content{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// Text concatenates all text parts.
func (c Content) Text() string {
	var sb strings.Builder
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// IsEmpty reports whether the content has no parts or only empty text.
func (c Content) IsEmpty() bool {
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok && tp.Text == "" {
			continue
		}
		return false
	}
	return true
}

// Clone returns a copy with an independent parts slice.
func (c Content) Clone() Content {
	return Content{Role: c.Role, Parts: append([]Part(nil), c.Parts...)}
}
