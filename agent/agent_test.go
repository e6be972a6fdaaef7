package agent

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/internal/testutil"
	"github.com/seobando/agentkit/middleware"
	"github.com/seobando/agentkit/model"
)

// scriptAgent runs an arbitrary function as its body.
type scriptAgent struct {
	BaseAgent
	body  func(ic *core.InvocationContext) error
	calls atomic.Int32
}

func newScriptAgent(name string, body func(ic *core.InvocationContext) error) *scriptAgent {
	a := &scriptAgent{BaseAgent: NewBaseAgent(name), body: body}
	a.Bind(a)
	return a
}

func (a *scriptAgent) Run(ic *core.InvocationContext) error {
	a.calls.Add(1)
	return a.RunWithCallbacks(ic, "script", func(ic *core.InvocationContext) error {
		if a.body == nil {
			return nil
		}
		return a.body(ic)
	})
}

// say returns a body emitting one text event.
func say(text string) func(ic *core.InvocationContext) error {
	return func(ic *core.InvocationContext) error {
		return ic.EmitEvent(core.NewMessageEvent(ic.InvocationID, ic.Agent.Name, text))
	}
}

func newContext(t *testing.T, userText string) (*core.InvocationContext, chan core.Event) {
	t.Helper()
	emit := make(chan core.Event, 256)
	session := testutil.NewSessionBuilder("s1").
		Event(testutil.NewEventBuilder().Author(core.AuthorUser).UserText(userText).Build()).
		Build()
	ic := core.NewInvocationContext(context.Background(), core.InvocationOptions{
		InvocationID: "inv-1",
		Session:      session,
		Emit:         emit,
		UserContent:  *core.NewTextContent(core.RoleUser, userText),
	})
	return ic, emit
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

func TestBaseAgent_Hierarchy(t *testing.T) {
	child := NewModelAgent("child", nil)
	grandchild := NewModelAgent("grandchild", nil)
	root := NewModelAgent("root", nil)

	require.NoError(t, child.SetSubAgents(grandchild))
	require.NoError(t, root.SetSubAgents(child))

	assert.Equal(t, core.Agent(root), child.Parent())
	assert.Equal(t, core.Agent(child), grandchild.Parent())
	assert.Nil(t, root.Parent())

	found := root.FindAgent("grandchild")
	require.NotNil(t, found)
	assert.IsType(t, &ModelAgent{}, found)
	assert.Equal(t, core.Agent(root), root.FindAgent("root"))
	assert.Nil(t, root.FindAgent("nobody"))
	assert.Nil(t, root.FindSubAgent("root"))
	assert.Equal(t, core.Agent(root), core.RootAgent(grandchild))
}

func TestBaseAgent_SingleParent(t *testing.T) {
	shared := NewModelAgent("shared", nil)
	first := NewModelAgent("first", nil)
	second := NewModelAgent("second", nil)

	require.NoError(t, first.SetSubAgents(shared))
	err := second.SetSubAgents(shared)
	require.ErrorIs(t, err, core.ErrAgentHasParent)
	assert.Empty(t, second.SubAgents())

	// re-attaching to the same parent is fine, and replacing children
	// releases the old ones
	require.NoError(t, first.SetSubAgents(shared))
	require.NoError(t, first.SetSubAgents())
	assert.Nil(t, shared.Parent())
	require.NoError(t, second.SetSubAgents(shared))
}

func TestBaseAgent_DuplicateChildNames(t *testing.T) {
	root := NewModelAgent("root", nil)
	err := root.SetSubAgents(NewModelAgent("x", nil), NewModelAgent("x", nil))
	assert.Error(t, err)
}

func TestBaseAgent_WrappedChildGetsParent(t *testing.T) {
	inner := NewModelAgent("inner", nil)
	var wrapped atomic.Bool
	w := middleware.WrapAgent(inner, func(ic *core.InvocationContext, next middleware.AgentHandler) error {
		wrapped.Store(true)
		return next(ic)
	})
	root := NewModelAgent("root", nil)
	require.NoError(t, root.SetSubAgents(w))
	assert.Equal(t, core.Agent(root), inner.Parent())
	assert.Equal(t, w, root.FindAgent("inner"))
}

func TestBaseAgent_StartStop(t *testing.T) {
	a := newScriptAgent("svc", nil)
	ic, _ := newContext(t, "hi")
	require.NoError(t, a.Start(ic))
	require.NoError(t, a.Start(ic))
	assert.True(t, a.Running())
	require.NoError(t, a.Stop(ic))
	require.NoError(t, a.Stop(ic))
	assert.False(t, a.Running())
	assert.Error(t, a.Stop(ic))
}

func TestRunWithCallbacks_BeforeAgentSkips(t *testing.T) {
	a := newScriptAgent("greeter", say("should not run"))
	a.AddBeforeAgentCallbacks(func(cc *core.CallbackContext) (*core.Content, error) {
		return core.NewTextContent("", "skipped"), nil
	})
	ic, emit := newContext(t, "hi")

	require.NoError(t, a.Run(ic))
	events := drain(emit)
	require.Len(t, events, 1)
	assert.Equal(t, "skipped", events[0].Text())
	assert.Equal(t, "greeter", events[0].Author)
	assert.Equal(t, core.RoleAssistant, events[0].Content.Role)
}

func TestRunWithCallbacks_StateFlows(t *testing.T) {
	a := newScriptAgent("worker", say("done"))
	a.AddBeforeAgentCallbacks(func(cc *core.CallbackContext) (*core.Content, error) {
		cc.SetState("started", true)
		return nil, nil
	})
	a.AddAfterAgentCallbacks(func(cc *core.CallbackContext) (*core.Content, error) {
		cc.SetState("finished", true)
		return nil, nil
	})
	ic, emit := newContext(t, "go")

	require.NoError(t, a.Run(ic))
	events := drain(emit)
	require.Len(t, events, 2)
	assert.Equal(t, true, events[0].Actions.StateDelta["started"])
	assert.Nil(t, events[1].Content)
	assert.Equal(t, true, events[1].Actions.StateDelta["finished"])

	v, ok := ic.Session.GetState("finished")
	require.True(t, ok)
	assert.Equal(t, true, v)
}

func TestRunWithCallbacks_AfterAgentReply(t *testing.T) {
	a := newScriptAgent("worker", say("main"))
	a.AddAfterAgentCallbacks(func(cc *core.CallbackContext) (*core.Content, error) {
		return core.NewTextContent(core.RoleAssistant, "postscript"), nil
	})
	ic, emit := newContext(t, "go")

	require.NoError(t, a.Run(ic))
	events := drain(emit)
	require.Len(t, events, 2)
	assert.Equal(t, "main", events[0].Text())
	assert.Equal(t, "postscript", events[1].Text())
}

func TestModelAgent_Run(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.AddResponse("hello", "hi there")
	a := NewModelAgent("assistant", llm, func(o *ModelAgentOptions) {
		o.Instruction = NewInstructionFromText("Be kind.")
		o.OutputKey = "reply"
	})
	ic, emit := newContext(t, "hello")

	require.NoError(t, a.Run(ic))
	events := drain(emit)
	require.Len(t, events, 1)
	assert.Equal(t, "hi there", events[0].Text())
	assert.Equal(t, "assistant", events[0].Author)

	v, _ := ic.Session.GetState("reply")
	assert.Equal(t, "hi there", v)
	assert.Equal(t, "Be kind.", llm.Requests()[0].Instructions)
}
