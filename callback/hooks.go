package callback

import (
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/tool"
)

// BeforeAgent runs before an agent. Returning content skips the agent and
// uses the content as its reply.
type BeforeAgent func(cc *core.CallbackContext) (*core.Content, error)

// AfterAgent runs after an agent. Returned content is emitted as an
// additional reply.
type AfterAgent func(cc *core.CallbackContext) (*core.Content, error)

// BeforeModel runs before each model call and may edit the request.
// Returning a response skips the call.
type BeforeModel func(cc *core.CallbackContext, req *model.Request) (*model.Response, error)

// AfterModel runs on the final model response. Returning a response
// replaces it.
type AfterModel func(cc *core.CallbackContext, resp *model.Response) (*model.Response, error)

// BeforeTool runs before a tool call. Returning a non-nil result skips the
// tool.
type BeforeTool func(tc *core.ToolContext, t tool.Tool, args map[string]any) (any, error)

// AfterTool runs after a tool call. Returning a non-nil result replaces it.
type AfterTool func(tc *core.ToolContext, t tool.Tool, args map[string]any, result any) (any, error)

// RunBeforeAgent runs hooks in order until one returns content or fails.
func RunBeforeAgent(cc *core.CallbackContext, hooks []BeforeAgent) (*core.Content, error) {
	for _, h := range hooks {
		c, err := h(cc)
		if err != nil || c != nil {
			return c, err
		}
	}
	return nil, nil
}

// RunAfterAgent runs hooks in order until one returns content or fails.
func RunAfterAgent(cc *core.CallbackContext, hooks []AfterAgent) (*core.Content, error) {
	for _, h := range hooks {
		c, err := h(cc)
		if err != nil || c != nil {
			return c, err
		}
	}
	return nil, nil
}

// RunBeforeModel runs hooks in order until one returns a response or fails.
func RunBeforeModel(cc *core.CallbackContext, req *model.Request, hooks []BeforeModel) (*model.Response, error) {
	for _, h := range hooks {
		r, err := h(cc, req)
		if err != nil || r != nil {
			return r, err
		}
	}
	return nil, nil
}

// RunAfterModel runs hooks in order until one returns a response or fails.
func RunAfterModel(cc *core.CallbackContext, resp *model.Response, hooks []AfterModel) (*model.Response, error) {
	for _, h := range hooks {
		r, err := h(cc, resp)
		if err != nil || r != nil {
			return r, err
		}
	}
	return nil, nil
}

// RunBeforeTool runs hooks in order until one returns a result or fails.
func RunBeforeTool(tc *core.ToolContext, t tool.Tool, args map[string]any, hooks []BeforeTool) (any, error) {
	for _, h := range hooks {
		r, err := h(tc, t, args)
		if err != nil || r != nil {
			return r, err
		}
	}
	return nil, nil
}

// RunAfterTool runs hooks in order until one returns a result or fails.
func RunAfterTool(tc *core.ToolContext, t tool.Tool, args map[string]any, result any, hooks []AfterTool) (any, error) {
	for _, h := range hooks {
		r, err := h(tc, t, args, result)
		if err != nil || r != nil {
			return r, err
		}
	}
	return nil, nil
}
