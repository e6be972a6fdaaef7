package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/internal/util"
)

// FunctionTool exposes a plain Go function as a tool.
//
// Arguments are validated against the parameter schema before the function
// runs. Errors are normalized to *ToolError:
//
//	*ToolError returned by fn  -> forwarded unchanged
//	schema mismatch            -> Code VALIDATION_ERROR
//	any other error            -> Code EXECUTION_ERROR
//
// A FunctionTool has no mutable state and is safe for concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(tc *core.ToolContext, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit schema.
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(tc *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{name: name, description: description, parameters: parameters, fn: fn}
}

// NewTyped derives the schema from A and decodes validated arguments into
// it before calling fn.
//
//	type SumArgs struct {
//	  A float64 `json:"a" jsonschema:"first addend"`
//	  B float64 `json:"b" jsonschema:"second addend"`
//	}
//
//	sumTool, err := NewTyped("calculate_sum", "Calculate a sum",
//	  func(tc *core.ToolContext, args SumArgs) (any, error) { return args.A + args.B, nil })
func NewTyped[A any](name, description string, fn func(tc *core.ToolContext, args A) (any, error)) (*FunctionTool, error) {
	_, params, err := util.SchemaFor[A]()
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return NewFunctionTool(name, description, params, func(tc *core.ToolContext, raw map[string]any) (any, error) {
		var args A
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &args); err != nil {
			return nil, &ToolError{Tool: name, Message: fmt.Sprintf("decode arguments: %v", err), Code: CodeValidation}
		}
		return fn(tc, args)
	}), nil
}

// MustTyped is like NewTyped but panics on schema errors. Intended for
// package-level tool declarations.
func MustTyped[A any](name, description string, fn func(tc *core.ToolContext, args A) (any, error)) *FunctionTool {
	t, err := NewTyped(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the description shown to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the argument schema.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args and invokes the wrapped function.
func (t *FunctionTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	start := time.Now()
	tc.LogDebug("tool.call.start", "tool", t.name)

	if args == nil {
		args = map[string]any{}
	}
	if err := util.ValidateParameters(args, t.parameters); err != nil {
		tc.LogWarn("tool.call.validation_failed", "tool", t.name, "error", err.Error())
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(tc, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			tc.LogError("tool.call.error", "tool", t.name, "error", toolErr.Message)
			return nil, toolErr
		}
		tc.LogError("tool.call.error", "tool", t.name, "error", err.Error())
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: CodeExecution}
	}

	tc.LogInfo("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}
