package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/tool"
)

type stubAgent struct {
	name string
	runs int
}

func (s *stubAgent) Name() string { return s.name }
func (s *stubAgent) Description() string { return "stub" }
func (s *stubAgent) Start(*core.InvocationContext) error { return nil }
func (s *stubAgent) Stop(*core.InvocationContext) error { return nil }
func (s *stubAgent) Run(*core.InvocationContext) error { s.runs++; return nil }
func (s *stubAgent) SetSubAgents(...core.Agent) error { return nil }
func (s *stubAgent) SubAgents() []core.Agent { return nil }
func (s *stubAgent) Parent() core.Agent { return nil }
func (s *stubAgent) FindAgent(name string) core.Agent { return nil }
func (s *stubAgent) FindSubAgent(name string) core.Agent { return nil }

func TestWrapAgent_Order(t *testing.T) {
	inner := &stubAgent{name: "math_tutor"}
	var trace []string
	mw := func(label string) AgentMiddleware {
		return func(ic *core.InvocationContext, next AgentHandler) error {
			trace = append(trace, label+":before")
			err := next(ic)
			trace = append(trace, label+":after")
			return err
		}
	}
	wrapped := WrapAgent(inner, mw("outer"), mw("inner"))
	assert.Equal(t, "math_tutor", wrapped.Name())

	ic := core.NewInvocationContext(context.Background(), core.InvocationOptions{})
	require.NoError(t, wrapped.Run(ic))
	assert.Equal(t, 1, inner.runs)
	assert.Equal(t, []string{"outer:before", "inner:before", "inner:after", "outer:after"}, trace)

	assert.Same(t, core.Agent(inner), WrapAgent(inner))
}

func TestWrapAgent_Block(t *testing.T) {
	inner := &stubAgent{name: "a"}
	wrapped := WrapAgent(inner, func(*core.InvocationContext, AgentHandler) error { return errors.New("denied") })
	err := wrapped.Run(core.NewInvocationContext(context.Background(), core.InvocationOptions{}))
	assert.EqualError(t, err, "denied")
	assert.Zero(t, inner.runs)
}

func TestWrapModel_BlockAndModify(t *testing.T) {
	mock := model.NewMockModel("mock", "test")
	block := func(_ context.Context, req *model.Request, next ModelHandler) (*model.Response, error) {
		if strings.Contains(req.LastUserText(), "+") {
			r := model.NewTextResponse("blocked")
			return &r, nil
		}
		return next(context.Background(), req)
	}
	suffix := func(ctx context.Context, req *model.Request, next ModelHandler) (*model.Response, error) {
		resp, err := next(ctx, req)
		if err != nil {
			return nil, err
		}
		out := model.NewTextResponse(resp.Content.Text() + " 🤖")
		return &out, nil
	}
	m := WrapModel(mock, suffix, block)

	resp, err := model.Collect(context.Background(), m, model.Request{Contents: []core.Content{*core.NewTextContent(core.RoleUser, "1+1")}})
	require.NoError(t, err)
	assert.Equal(t, "blocked 🤖", resp.Content.Text())
	assert.Empty(t, mock.Requests())

	resp, err = model.Collect(context.Background(), m, model.Request{Contents: []core.Content{*core.NewTextContent(core.RoleUser, "hello")}, Stream: true})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hello 🤖", resp.Content.Text())
	assert.False(t, resp.Partial)
}

func TestWrapModel_PropagatesErrors(t *testing.T) {
	m := WrapModel(model.NewMockModel("mock", "test"), LogCalls(nil))
	_, err := model.Collect(context.Background(), m, model.Request{})
	assert.Error(t, err)
}

func TestRateLimit(t *testing.T) {
	m := WrapModel(model.NewMockModel("mock", "test"), RateLimit(1, 1))
	req := model.Request{Contents: []core.Content{*core.NewTextContent(core.RoleUser, "hi")}}

	_, err := model.Collect(context.Background(), m, req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = model.Collect(ctx, m, req)
	assert.Error(t, err, "second call must wait past the deadline")
}

func TestWrapTool(t *testing.T) {
	inner := tool.NewFunctionTool("echo", "Echo", nil, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args["text"], nil
	})
	var seen Call
	wrapped := WrapTool(inner, func(tc *core.ToolContext, call Call, next FunctionHandler) (any, error) {
		seen = call
		out, err := next(tc, call)
		return strings.ToUpper(out.(string)), err
	})
	assert.Equal(t, "echo", wrapped.Name())

	tc := core.NewToolContext(core.NewInvocationContext(context.Background(), core.InvocationOptions{}), "fc")
	out, err := wrapped.Call(tc, map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "HI", out)
	assert.Equal(t, "echo", seen.Tool)
}
