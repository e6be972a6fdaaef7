package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/agent"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/middleware"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/runner"
)

func ask(t *testing.T, r *runner.Runner, text string) string {
	t.Helper()
	events, err := r.RunSync(context.Background(), "user", "", *core.NewTextContent(core.RoleUser, text))
	require.NoError(t, err)
	require.NotEmpty(t, events)
	return events[len(events)-1].Text()
}

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"What is 5 + 3?", true},
		{"Can you CALCULATE my taxes", true},
		{"seven times eight", true},
		{"x = y", true},
		{"Tell me a joke about cats", false},
		{"What's the capital of France?", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBlocked(tt.text))
		})
	}
}

func TestNewAgent_BlocksMath(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	r := runner.New("filter", NewAgent(llm, nil))

	assert.Equal(t, BlockedReply, ask(t, r, "What is 5 + 3?"))
	assert.Empty(t, llm.Requests(), "model must not be called for blocked input")
}

func TestNewAgent_SignsAnswers(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.EnqueueText("Why did the cat sit on the computer? To keep an eye on the mouse.")
	r := runner.New("filter", NewAgent(llm, nil))

	got := ask(t, r, "Tell me a joke")
	assert.Equal(t, "Why did the cat sit on the computer? To keep an eye on the mouse."+Signature, got)
	require.Len(t, llm.Requests(), 1)
}

func TestNewAgent_SignsModelAnswerMatchingRefusal(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.EnqueueText(BlockedReply)
	llm.EnqueueText("Paris.")
	r := runner.New("filter", NewAgent(llm, nil))

	assert.Equal(t, BlockedReply+Signature, ask(t, r, "Repeat your refusal line"))
	assert.Equal(t, BlockedReply, ask(t, r, "What is 2 + 2?"))
	assert.Equal(t, "Paris."+Signature, ask(t, r, "Capital of France?"))
	assert.Len(t, llm.Requests(), 2)
}

func TestAfterModel_SkipsEmptyText(t *testing.T) {
	resp := model.NewFunctionCallResponse(core.FunctionCall{ID: "c1", Name: "noop", Arguments: "{}"})
	out, err := AfterModel()(nil, &resp)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestMiddleware(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.EnqueueText("Paris")
	wrapped := middleware.WrapModel(llm, Middleware(nil))
	r := runner.New("filter", agent.NewModelAgent("chatbot", wrapped))

	assert.Equal(t, BlockedReply, ask(t, r, "10 divided by 2"))
	assert.Empty(t, llm.Requests())

	assert.Equal(t, "Paris"+Signature, ask(t, r, "Capital of France?"))
	assert.Len(t, llm.Requests(), 1)
}
