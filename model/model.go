package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/seobando/agentkit/core"
)

// Finish reasons reported in Response.FinishReason.
const (
	FinishStop      = "stop"
	FinishLength    = "length"
	FinishToolCalls = "tool_calls"
	FinishSafety    = "safety"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a function exposed to the model. Parameters
// is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by flows.
type Request struct {
	Instructions string             `json:"instructions"`
	Contents     []core.Content     `json:"contents"`
	Tools        []ToolDefinition   `json:"tools,omitempty"`
	OutputSchema *jsonschema.Schema `json:"output_schema,omitempty"`
	Stream       bool               `json:"stream,omitempty"`
	Temperature  *float64           `json:"temperature,omitempty"`
	MaxTokens    int                `json:"max_tokens,omitempty"`
}

// LastUserText returns the text of the most recent user content.
func (r Request) LastUserText() string {
	for i := len(r.Contents) - 1; i >= 0; i-- {
		if r.Contents[i].Role == core.RoleUser {
			if txt := r.Contents[i].Text(); txt != "" {
				return txt
			}
		}
	}
	return ""
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a partial or final chunk emitted by a model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"`
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// NewTextResponse builds a final assistant text response.
func NewTextResponse(text string) Response {
	return Response{Content: *core.NewTextContent(core.RoleAssistant, text), FinishReason: FinishStop}
}

// NewFunctionCallResponse builds a final response requesting function calls.
func NewFunctionCallResponse(calls ...core.FunctionCall) Response {
	parts := make([]core.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}
	return Response{Content: core.Content{Role: core.RoleAssistant, Parts: parts}, FinishReason: FinishToolCalls}
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by flows and agents to drive
// generation. Implementations close the response channel when done and send
// at most one error on a buffered error channel.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)
	Info() Info
}

// Collect drains a generation and returns its final response. When a
// provider only streams partial chunks their text is joined.
func Collect(ctx context.Context, m Model, req Request) (*Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final   *Response
		partial strings.Builder
	)
	for resp := range respCh {
		if resp.Partial {
			partial.WriteString(resp.Content.Text())
			continue
		}
		r := resp
		final = &r
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if final == nil {
		if partial.Len() == 0 {
			return nil, fmt.Errorf("model %s returned no response", m.Info().Name)
		}
		r := NewTextResponse(partial.String())
		final = &r
	}
	return final, nil
}
