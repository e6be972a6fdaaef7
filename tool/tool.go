// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities with schema validated arguments and
// consistent error reporting.
package tool

import (
	"fmt"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/internal/util"
	"github.com/seobando/agentkit/model"
)

// Error codes reported in ToolError.Code.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "TOOL_NOT_FOUND"
)

// Tool is a capability an agent can expose to its model.
//
// Implementations must be safe for concurrent use: the flow may run several
// calls of the same tool in parallel, each with its own ToolContext.
type Tool interface {
	// Name returns the identifier used in function declarations (snake_case).
	Name() string

	// Description tells the model when and how to use the tool.
	Description() string

	// Parameters returns the JSON schema of the arguments.
	Parameters() map[string]any

	// Call executes the tool with decoded arguments.
	Call(tc *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError is returned in ToolError.Details when arguments do not
// match the schema.
type ValidationError = util.ValidationError

// ToolError is the structured failure sent back to the model in place of a
// result.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// Definition returns the declaration of t sent to models.
func Definition(t Tool) model.ToolDefinition {
	params := t.Parameters()
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  params,
		},
	}
}

// Definitions returns the declarations of tools in order.
func Definitions(tools []Tool) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, Definition(t))
	}
	return defs
}

// Find returns the tool named name.
func Find(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}
