package flow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/internal/testutil"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/tool"
)

func TestInstructionsProcessor(t *testing.T) {
	a := newTestAgent("guide", nil)
	a.global = "You work for {app:company}."
	a.instruction = "Greet {user_name}. Mood: {mood?}. Keep {braces like this}."
	session := testutil.NewSessionBuilder("s1").State("app:company", "Acme").State("user_name", "Sam").Build()
	ic, _ := newContext(t, "guide", session)

	req := &model.Request{}
	require.NoError(t, NewInstructionsProcessor().ProcessRequest(ic, req, a))
	assert.Equal(t, "You work for Acme.\n\nGreet Sam. Mood: . Keep {braces like this}.", req.Instructions)

	a.instruction = "Hello {missing}"
	err := NewInstructionsProcessor().ProcessRequest(ic, &model.Request{}, a)
	assert.True(t, errors.Is(err, core.ErrMissingStateKey))
}

func TestContentsProcessor_RewritesForeignAgents(t *testing.T) {
	session := testutil.NewSessionBuilder("s1").Events(
		testutil.NewEventBuilder().Author(core.AuthorUser).UserText("plan a trip").Build(),
		testutil.NewEventBuilder().Author("flights").AssistantText("Found a flight to Rome").Build(),
		testutil.NewEventBuilder().Author("flights").FunctionCall("c1", "book", `{"seat":"12A"}`).Build(),
		testutil.NewEventBuilder().Author("flights").FunctionResponse("c1", "book", map[string]any{"ok": true}, nil).Build(),
		testutil.NewEventBuilder().Author("hotels").AssistantText("draft").Partial().Build(),
		testutil.NewEventBuilder().Author("planner").AssistantText("Let me check hotels").Build(),
	).Build()
	ic, _ := newContext(t, "planner", session)

	req := &model.Request{}
	require.NoError(t, NewContentsProcessor().ProcessRequest(ic, req, newTestAgent("planner", nil)))
	require.Len(t, req.Contents, 5)

	assert.Equal(t, core.RoleUser, req.Contents[0].Role)
	assert.Equal(t, core.RoleUser, req.Contents[1].Role)
	assert.Contains(t, req.Contents[1].Text(), "For context:")
	assert.Contains(t, req.Contents[1].Text(), "[flights] said: Found a flight to Rome")
	assert.Contains(t, req.Contents[2].Text(), "[flights] called tool `book` with parameters: {\"seat\":\"12A\"}")
	assert.Contains(t, req.Contents[3].Text(), "[flights] `book` tool returned result: {\"ok\":true}")
	assert.Equal(t, core.RoleAssistant, req.Contents[4].Role)
	assert.Equal(t, "Let me check hotels", req.Contents[4].Text())
}

func TestContentsProcessor_BranchFiltering(t *testing.T) {
	session := testutil.NewSessionBuilder("s1").Events(
		testutil.NewEventBuilder().Author(core.AuthorUser).UserText("start").Build(),
		testutil.NewEventBuilder().Author("root").Branch("root").AssistantText("root note").Build(),
		testutil.NewEventBuilder().Author("a").Branch("root.a").AssistantText("from a").Build(),
		testutil.NewEventBuilder().Author("b").Branch("root.b").AssistantText("from b").Build(),
		testutil.NewEventBuilder().Author("a").Branch("root.ab").AssistantText("lookalike").Build(),
	).Build()
	ic, _ := newContext(t, "a", session)
	ic = ic.WithBranch("root.a")

	req := &model.Request{}
	require.NoError(t, NewContentsProcessor().ProcessRequest(ic, req, newTestAgent("a", nil)))
	require.Len(t, req.Contents, 3)
	assert.Equal(t, "start", req.Contents[0].Text())
	assert.Contains(t, req.Contents[1].Text(), "root note")
	assert.Equal(t, "from a", req.Contents[2].Text())
}

func TestContentsProcessor_IncludeNone(t *testing.T) {
	session := testutil.NewSessionBuilder("s1").Events(
		testutil.NewEventBuilder().Author(core.AuthorUser).UserText("old question").Build(),
		testutil.NewEventBuilder().Author("bot").AssistantText("old answer").Build(),
		testutil.NewEventBuilder().Author(core.AuthorUser).UserText("new question").Build(),
	).Build()
	ic, _ := newContext(t, "bot", session)
	a := newTestAgent("bot", nil)
	a.include = IncludeContentsNone

	req := &model.Request{}
	require.NoError(t, NewContentsProcessor().ProcessRequest(ic, req, a))
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "new question", req.Contents[0].Text())
}

func TestContentsProcessor_MaxHistoryDropsDanglingResponses(t *testing.T) {
	session := testutil.NewSessionBuilder("s1").Events(
		testutil.NewEventBuilder().Author(core.AuthorUser).UserText("q").Build(),
		testutil.NewEventBuilder().Author("bot").FunctionCall("c1", "lookup", `{}`).Build(),
		testutil.NewEventBuilder().Author("bot").FunctionResponse("c1", "lookup", "data", nil).Build(),
		testutil.NewEventBuilder().Author("bot").AssistantText("answer").Build(),
	).Build()
	ic, _ := newContext(t, "bot", session)
	a := newTestAgent("bot", nil)
	a.maxHistory = 2

	req := &model.Request{}
	require.NoError(t, NewContentsProcessor().ProcessRequest(ic, req, a))
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "answer", req.Contents[0].Text())
}

func TestContentsProcessor_FallsBackToUserContent(t *testing.T) {
	ic, _ := newContext(t, "bot", core.NewSession(core.SessionKey{}))
	ic.UserContent = *core.NewTextContent("", "direct input")

	req := &model.Request{}
	require.NoError(t, NewContentsProcessor().ProcessRequest(ic, req, newTestAgent("bot", nil)))
	require.Len(t, req.Contents, 1)
	assert.Equal(t, core.RoleUser, req.Contents[0].Role)
	assert.Equal(t, "direct input", req.Contents[0].Text())
}

func TestToolsProcessor(t *testing.T) {
	a := newTestAgent("calc", nil)
	a.tools = []tool.Tool{addTool()}
	req := &model.Request{}
	require.NoError(t, NewToolsProcessor().ProcessRequest(nil, req, a))
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "add", req.Tools[0].Function.Name)
}

func TestTransferTargets(t *testing.T) {
	root := newTestAgent("root", nil)
	a := newTestAgent("a", nil)
	b := newTestAgent("b", nil)
	a1 := newTestAgent("a1", nil)
	require.NoError(t, root.SetSubAgents(a, b))
	require.NoError(t, a.SetSubAgents(a1))

	names := func(agents []core.Agent) []string {
		out := make([]string, 0, len(agents))
		for _, ag := range agents {
			out = append(out, ag.Name())
		}
		return out
	}
	assert.Equal(t, []string{"a", "b"}, names(TransferTargets(root)))
	assert.Equal(t, []string{"a1", "root", "b"}, names(TransferTargets(a)))
	assert.Equal(t, []string{"root", "a"}, names(TransferTargets(b)))
	assert.Equal(t, []string{"a"}, names(TransferTargets(a1)))
}

func TestTransferToolInjector(t *testing.T) {
	root := newTestAgent("root", nil)
	root.transfer = true
	require.NoError(t, root.SetSubAgents(newTestAgent("billing", nil)))

	req := &model.Request{Instructions: "base"}
	p := NewTransferToolInjector()
	require.NoError(t, p.ProcessRequest(nil, req, root))
	require.NoError(t, p.ProcessRequest(nil, req, root))

	require.Len(t, req.Tools, 1)
	assert.Equal(t, tool.TransferToAgentName, req.Tools[0].Function.Name)
	assert.Contains(t, req.Instructions, "Agent name: billing")
	assert.Contains(t, req.Instructions, "Agent description: billing agent")

	root.transfer = false
	req = &model.Request{}
	require.NoError(t, p.ProcessRequest(nil, req, root))
	assert.Empty(t, req.Tools)
}

func TestParseJSON(t *testing.T) {
	v, err := parseJSON(`{"a": 1}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, v)

	v, err = parseJSON("```json\n{'a': 1,}\n```")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, v)
}
