package middleware

import (
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/tool"
)

// Call describes a tool invocation seen by function middleware.
type Call struct {
	Tool string
	Args map[string]any
}

// FunctionHandler executes a tool call.
type FunctionHandler func(tc *core.ToolContext, call Call) (any, error)

// FunctionMiddleware wraps a tool call.
type FunctionMiddleware func(tc *core.ToolContext, call Call, next FunctionHandler) (any, error)

type wrappedTool struct {
	tool.Tool
	handler FunctionHandler
}

// WrapTool returns t with mws applied around Call.
func WrapTool(t tool.Tool, mws ...FunctionMiddleware) tool.Tool {
	if len(mws) == 0 {
		return t
	}
	h := FunctionHandler(func(tc *core.ToolContext, call Call) (any, error) { return t.Call(tc, call.Args) })
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], h
		h = func(tc *core.ToolContext, call Call) (any, error) { return mw(tc, call, next) }
	}
	return &wrappedTool{Tool: t, handler: h}
}

func (w *wrappedTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	return w.handler(tc, Call{Tool: w.Name(), Args: args})
}
