package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/internal/testutil"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/tool"
)

// testAgent is a minimal FlowAgent.
type testAgent struct {
	name        string
	desc        string
	parent      core.Agent
	subs        []core.Agent
	llm         model.Model
	global      string
	instruction string
	tools       []tool.Tool
	outputKey   string
	schema      *jsonschema.Schema
	include     IncludeContents
	maxHistory  int
	stream      bool
	transfer    bool
	maxParallel int
	callbacks   Callbacks
}

func newTestAgent(name string, llm model.Model) *testAgent {
	return &testAgent{name: name, desc: name + " agent", llm: llm}
}

func (a *testAgent) Name() string { return a.name }
func (a *testAgent) Description() string { return a.desc }
func (a *testAgent) Start(*core.InvocationContext) error { return nil }
func (a *testAgent) Stop(*core.InvocationContext) error { return nil }

func (a *testAgent) Run(ic *core.InvocationContext) error {
	return SelectFlow(a).Run(ic.WithAgent(core.AgentInfo{Name: a.name, Type: "model"}))
}

func (a *testAgent) SetSubAgents(children ...core.Agent) error {
	for _, c := range children {
		c.(*testAgent).parent = a
	}
	a.subs = children
	return nil
}

func (a *testAgent) SubAgents() []core.Agent { return a.subs }
func (a *testAgent) Parent() core.Agent { return a.parent }

func (a *testAgent) FindAgent(name string) core.Agent {
	if a.name == name {
		return a
	}
	return a.FindSubAgent(name)
}

func (a *testAgent) FindSubAgent(name string) core.Agent {
	for _, s := range a.subs {
		if found := s.FindAgent(name); found != nil {
			return found
		}
	}
	return nil
}

func (a *testAgent) Model() model.Model { return a.llm }
func (a *testAgent) Instructions(*core.InvocationContext) (string, string, error) {
	return a.global, a.instruction, nil
}
func (a *testAgent) Tools() []tool.Tool { return a.tools }
func (a *testAgent) OutputKey() string { return a.outputKey }
func (a *testAgent) OutputSchema() *jsonschema.Schema { return a.schema }
func (a *testAgent) IncludeContents() IncludeContents { return a.include }
func (a *testAgent) MaxHistoryMessages() int { return a.maxHistory }
func (a *testAgent) IsStreamingEnabled() bool { return a.stream }
func (a *testAgent) IsTransferEnabled() bool { return a.transfer }
func (a *testAgent) MaxParallelTools() int { return a.maxParallel }
func (a *testAgent) GenerateConfig() GenerateConfig { return GenerateConfig{} }
func (a *testAgent) Callbacks() Callbacks { return a.callbacks }

func newContext(t *testing.T, agent string, session *core.Session) (*core.InvocationContext, chan core.Event) {
	t.Helper()
	emit := make(chan core.Event, 256)
	ic := core.NewInvocationContext(context.Background(), core.InvocationOptions{
		InvocationID: "inv-1",
		Agent:        core.AgentInfo{Name: agent, Type: "model"},
		Session:      session,
		Emit:         emit,
	})
	return ic, emit
}

func userSession(text string) *core.Session {
	return testutil.NewSessionBuilder("s1").
		Event(testutil.NewEventBuilder().Author(core.AuthorUser).UserText(text).Build()).
		Build()
}

func drain(ch chan core.Event) []core.Event {
	var out []core.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func addTool() tool.Tool {
	return tool.NewFunctionTool("add", "Adds a and b", nil, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})
}

func TestFlow_TextResponse(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueText("hello there")
	a := newTestAgent("assistant", llm)
	ic, emit := newContext(t, "assistant", userSession("hi"))

	require.NoError(t, NewSingleAgentFlow(a).Run(ic))

	events := drain(emit)
	require.Len(t, events, 1)
	assert.Equal(t, "hello there", events[0].Text())
	assert.Equal(t, "assistant", events[0].Author)
	assert.True(t, events[0].TurnComplete)
	assert.Len(t, ic.Session.GetEvents(), 2)
}

func TestFlow_FunctionCallLoop(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueFunctionCall("c1", "add", map[string]any{"a": 1, "b": 2})
	llm.EnqueueText("the sum is 3")
	a := newTestAgent("calc", llm)
	a.tools = []tool.Tool{addTool()}
	ic, emit := newContext(t, "calc", userSession("1+2?"))

	require.NoError(t, NewSingleAgentFlow(a).Run(ic))

	events := drain(emit)
	require.Len(t, events, 3)
	require.Len(t, events[0].FunctionCalls(), 1)
	assert.False(t, events[0].TurnComplete)

	responses := events[1].FunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "c1", responses[0].ID)
	assert.Equal(t, 3.0, responses[0].Response)
	assert.Equal(t, core.RoleTool, events[1].Content.Role)
	assert.Equal(t, "the sum is 3", events[2].Text())

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[0].Tools, 1)
	last := reqs[1].Contents[len(reqs[1].Contents)-1]
	assert.Equal(t, core.RoleTool, last.Role)
}

func TestFlow_ParallelCallsKeepOrderAndMergeState(t *testing.T) {
	slow := tool.NewFunctionTool("slow", "", nil, func(tc *core.ToolContext, _ map[string]any) (any, error) {
		time.Sleep(30 * time.Millisecond)
		tc.SetState("slow", true)
		return "slow done", nil
	})
	fast := tool.NewFunctionTool("fast", "", nil, func(tc *core.ToolContext, _ map[string]any) (any, error) {
		tc.SetState("fast", true)
		return "fast done", nil
	})

	llm := model.NewMockModel("mock", "test")
	llm.Enqueue(model.NewFunctionCallResponse(
		core.FunctionCall{ID: "c1", Name: "slow"},
		core.FunctionCall{ID: "c2", Name: "fast"},
	))
	llm.EnqueueText("both done")
	a := newTestAgent("worker", llm)
	a.tools = []tool.Tool{slow, fast}
	ic, emit := newContext(t, "worker", userSession("go"))

	require.NoError(t, NewSingleAgentFlow(a).Run(ic))

	events := drain(emit)
	require.Len(t, events, 3)
	responses := events[1].FunctionResponses()
	require.Len(t, responses, 2)
	assert.Equal(t, "c1", responses[0].ID)
	assert.Equal(t, "c2", responses[1].ID)
	assert.Equal(t, map[string]any{"slow": true, "fast": true}, events[1].Actions.StateDelta)

	v, ok := ic.GetState("slow")
	require.True(t, ok)
	assert.Equal(t, true, v)
}

func TestFlow_ParallelCallsShareStateForSameKey(t *testing.T) {
	appendItem := tool.NewFunctionTool("append", "", nil, func(tc *core.ToolContext, args map[string]any) (any, error) {
		var items []any
		if v, ok := tc.GetState("items"); ok {
			items = v.([]any)
		}
		time.Sleep(10 * time.Millisecond)
		items = append(append([]any{}, items...), args["item"])
		tc.SetState("items", items)
		return map[string]any{"count": len(items)}, nil
	})

	llm := model.NewMockModel("mock", "test")
	llm.Enqueue(model.NewFunctionCallResponse(
		core.FunctionCall{ID: "c1", Name: "append", Arguments: `{"item":"a"}`},
		core.FunctionCall{ID: "c2", Name: "append", Arguments: `{"item":"b"}`},
		core.FunctionCall{ID: "c3", Name: "append", Arguments: `{"item":"c"}`},
	))
	llm.EnqueueText("done")
	a := newTestAgent("worker", llm)
	a.tools = []tool.Tool{appendItem}
	ic, emit := newContext(t, "worker", userSession("go"))

	require.NoError(t, NewSingleAgentFlow(a).Run(ic))

	events := drain(emit)
	require.Len(t, events, 3)
	delta := events[1].Actions.StateDelta
	require.Contains(t, delta, "items")
	assert.ElementsMatch(t, []any{"a", "b", "c"}, delta["items"])

	v, ok := ic.GetState("items")
	require.True(t, ok)
	assert.Len(t, v, 3)
}

func TestFlow_ToolFailuresBecomeErrorResponses(t *testing.T) {
	boom := tool.NewFunctionTool("boom", "", nil, func(*core.ToolContext, map[string]any) (any, error) {
		panic("kaboom")
	})
	llm := model.NewMockModel("mock", "test")
	llm.Enqueue(model.NewFunctionCallResponse(
		core.FunctionCall{ID: "c1", Name: "missing"},
		core.FunctionCall{ID: "c2", Name: "boom"},
		core.FunctionCall{ID: "c3", Name: "add", Arguments: "{not json"},
	))
	llm.EnqueueText("sorry")
	a := newTestAgent("worker", llm)
	a.tools = []tool.Tool{boom, addTool()}
	ic, emit := newContext(t, "worker", userSession("go"))

	require.NoError(t, NewSingleAgentFlow(a).Run(ic))

	events := drain(emit)
	require.Len(t, events, 3)
	responses := events[1].FunctionResponses()
	require.Len(t, responses, 3)
	assert.Contains(t, responses[0].Error, "[TOOL_NOT_FOUND]")
	assert.Contains(t, responses[1].Error, "[EXECUTION_ERROR]")
	assert.Contains(t, responses[1].Error, "kaboom")
	assert.Contains(t, responses[2].Error, "[VALIDATION_ERROR]")
	assert.Equal(t, "sorry", events[2].Text())
}

func TestFlow_SkipSummarizationStopsLoop(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueFunctionCall("c1", "exit_loop", map[string]any{})
	a := newTestAgent("looper", llm)
	a.tools = []tool.Tool{tool.NewExitLoopTool()}
	ic, emit := newContext(t, "looper", userSession("stop"))

	require.NoError(t, NewSingleAgentFlow(a).Run(ic))

	events := drain(emit)
	require.Len(t, events, 2)
	assert.True(t, events[1].Actions.Escalate)
	assert.Len(t, llm.Requests(), 1)
}

func TestFlow_StreamingEmitsPartials(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueText("one two three")
	a := newTestAgent("streamer", llm)
	a.stream = true
	ic, emit := newContext(t, "streamer", userSession("count"))

	require.NoError(t, NewSingleAgentFlow(a).Run(ic))

	events := drain(emit)
	require.Len(t, events, 4)
	for _, ev := range events[:3] {
		assert.True(t, ev.Partial)
	}
	assert.False(t, events[3].Partial)
	assert.Equal(t, "one two three", events[3].Text())
	// partial events are never persisted
	assert.Len(t, ic.Session.GetEvents(), 2)
}

func TestFlow_OutputKeyText(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueText("42 minutes")
	a := newTestAgent("timer", llm)
	a.outputKey = "estimate"
	ic, emit := newContext(t, "timer", userSession("how long?"))

	require.NoError(t, NewSingleAgentFlow(a).Run(ic))

	events := drain(emit)
	require.Len(t, events, 1)
	assert.Equal(t, "42 minutes", events[0].Actions.StateDelta["estimate"])
	v, _ := ic.GetState("estimate")
	assert.Equal(t, "42 minutes", v)
}

func TestFlow_OutputSchemaRepairsAndValidates(t *testing.T) {
	schema := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"title"},
		Properties: map[string]*jsonschema.Schema{
			"title":   {Type: "string"},
			"minutes": {Type: "integer"},
		},
	}

	llm := model.NewMockModel("mock", "test")
	llm.EnqueueText("```json\n{\"title\": \"Soup\", \"minutes\": 10,}\n```")
	a := newTestAgent("chef", llm)
	a.outputKey = "recipe"
	a.schema = schema
	ic, _ := newContext(t, "chef", userSession("recipe please"))

	require.NoError(t, NewSingleAgentFlow(a).Run(ic))
	v, ok := ic.GetState("recipe")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"title": "Soup", "minutes": float64(10)}, v)
	assert.NotNil(t, llm.Requests()[0].OutputSchema)

	llm.EnqueueText(`{"minutes": 5}`)
	ic, emit := newContext(t, "chef", userSession("again"))
	err := NewSingleAgentFlow(a).Run(ic)
	require.Error(t, err)
	events := drain(emit)
	require.Len(t, events, 1)
	assert.Equal(t, ErrorCodeOutput, events[0].ErrorCode)
}

func TestFlow_ModelCallLimit(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueFunctionCall("c1", "add", map[string]any{"a": 1, "b": 1})
	llm.EnqueueText("2")
	a := newTestAgent("calc", llm)
	a.tools = []tool.Tool{addTool()}
	ic, emit := newContext(t, "calc", userSession("1+1"))
	ic.Limiter = core.NewModelLimiter(1)

	err := NewSingleAgentFlow(a).Run(ic)
	require.ErrorIs(t, err, core.ErrModelCallLimitExceeded)

	events := drain(emit)
	require.NotEmpty(t, events)
	assert.Equal(t, ErrorCodeLimit, events[len(events)-1].ErrorCode)
}

func TestFlow_ModelError(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.SetHandler(func(model.Request) (model.Response, error) {
		return model.Response{}, errors.New("unavailable")
	})
	a := newTestAgent("assistant", llm)
	ic, emit := newContext(t, "assistant", userSession("hi"))

	err := NewSingleAgentFlow(a).Run(ic)
	require.Error(t, err)
	events := drain(emit)
	require.Len(t, events, 1)
	assert.Equal(t, ErrorCodeModel, events[0].ErrorCode)
	assert.Contains(t, events[0].ErrorMessage, "unavailable")
}

func TestFlow_BeforeModelCallbackShortCircuits(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	a := newTestAgent("guarded", llm)
	a.callbacks.BeforeModel = append(a.callbacks.BeforeModel, func(_ *core.CallbackContext, req *model.Request) (*model.Response, error) {
		if req.LastUserText() == "blocked word" {
			r := model.NewTextResponse("I cannot help with that.")
			return &r, nil
		}
		return nil, nil
	})
	ic, emit := newContext(t, "guarded", userSession("blocked word"))

	require.NoError(t, NewSingleAgentFlow(a).Run(ic))
	events := drain(emit)
	require.Len(t, events, 1)
	assert.Equal(t, "I cannot help with that.", events[0].Text())
	assert.Empty(t, llm.Requests())
}

func TestFlow_TransferRunsTarget(t *testing.T) {
	rootLLM := model.NewMockModel("root", "test")
	rootLLM.EnqueueFunctionCall("c1", tool.TransferToAgentName, map[string]any{"agent_name": "billing"})
	billingLLM := model.NewMockModel("billing", "test")
	billingLLM.EnqueueText("billing here")

	root := newTestAgent("support", rootLLM)
	root.transfer = true
	billing := newTestAgent("billing", billingLLM)
	require.NoError(t, root.SetSubAgents(billing))

	ic, emit := newContext(t, "support", userSession("refund please"))
	require.NoError(t, SelectFlow(root).Run(ic))

	events := drain(emit)
	require.Len(t, events, 3)
	assert.Equal(t, "billing", events[1].Actions.TransferToAgent)
	assert.Equal(t, "billing", events[2].Author)
	assert.Equal(t, "billing here", events[2].Text())

	names := map[string]bool{}
	for _, d := range rootLLM.Requests()[0].Tools {
		names[d.Function.Name] = true
	}
	assert.True(t, names[tool.TransferToAgentName])
	assert.Contains(t, rootLLM.Requests()[0].Instructions, "Agent name: billing")
}

func TestFlow_TransferToUnknownAgent(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueFunctionCall("c1", tool.TransferToAgentName, map[string]any{"agent_name": "ghost"})
	root := newTestAgent("support", llm)
	root.transfer = true
	require.NoError(t, root.SetSubAgents(newTestAgent("billing", nil)))

	ic, _ := newContext(t, "support", userSession("hello"))
	err := SelectFlow(root).Run(ic)
	require.ErrorIs(t, err, core.ErrAgentNotFound)
}

func TestSelectFlow(t *testing.T) {
	a := newTestAgent("solo", nil)
	a.transfer = true
	assert.IsType(t, &SingleAgentFlow{}, SelectFlow(a))

	require.NoError(t, a.SetSubAgents(newTestAgent("child", nil)))
	assert.IsType(t, &MultiAgentFlow{}, SelectFlow(a))

	a.transfer = false
	assert.IsType(t, &SingleAgentFlow{}, SelectFlow(a))
}
