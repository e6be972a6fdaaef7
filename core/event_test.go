package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_ConstructorsAndHelpers(t *testing.T) {
	e := NewEvent("inv-123", "authorA")
	assert.Equal(t, "authorA", e.Author)
	assert.Equal(t, "inv-123", e.InvocationID)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())

	msg := NewMessageEvent("inv", "agent1", "hello world")
	require.NotNil(t, msg.Content)
	assert.Equal(t, RoleAssistant, msg.Content.Role)
	assert.Equal(t, "hello world", msg.Text())

	user := NewUserContentEvent("inv", Content{Parts: []Part{TextPart{Text: "hi"}}})
	assert.Equal(t, AuthorUser, user.Author)
	assert.Equal(t, RoleUser, user.Content.Role)
}

func TestEvent_IsFinalResponse(t *testing.T) {
	assert.True(t, NewMessageEvent("inv", "a", "done").IsFinalResponse())

	partial := NewMessageEvent("inv", "a", "par")
	partial.Partial = true
	assert.False(t, partial.IsFinalResponse())

	call := NewEvent("inv", "a")
	call.Content = &Content{Role: RoleAssistant, Parts: []Part{FunctionCallPart{FunctionCall: FunctionCall{Name: "f"}}}}
	assert.False(t, call.IsFinalResponse())
	assert.Len(t, call.FunctionCalls(), 1)

	skipped := call
	skipped.Actions.SkipSummarization = true
	assert.True(t, skipped.IsFinalResponse())
}

func TestEventActions_Merge(t *testing.T) {
	a := EventActions{StateDelta: map[string]any{"x": 1}}
	a.Merge(EventActions{StateDelta: map[string]any{"x": 2, "y": 3}, Escalate: true, TransferToAgent: "b"})
	assert.Equal(t, map[string]any{"x": 2, "y": 3}, a.StateDelta)
	assert.True(t, a.Escalate)
	assert.Equal(t, "b", a.TransferToAgent)
	assert.False(t, a.IsEmpty())
	assert.True(t, EventActions{}.IsEmpty())
}

func TestEvent_JSONKeepsPartTypes(t *testing.T) {
	ev := NewEvent("inv", "agent")
	ev.Content = &Content{Role: RoleTool, Parts: []Part{
		TextPart{Text: "hello"},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "add", Arguments: `{"a":1}`}},
		FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "c1", Name: "add", Response: map[string]any{"sum": 3.0}}},
		DataPart{Data: map[string]any{"k": "v"}},
		FilePart{File: File{Name: "a.txt", MIMEType: "text/plain", Data: []byte("abc")}},
	}}
	ev.Actions.StateDelta = map[string]any{"k": "v"}

	b, err := json.Marshal(ev)
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(b, &got))
	require.NotNil(t, got.Content)
	require.Len(t, got.Content.Parts, 5)
	assert.Equal(t, TextPart{Text: "hello"}, got.Content.Parts[0])
	assert.Equal(t, "add", got.FunctionCalls()[0].Name)
	assert.Equal(t, map[string]any{"sum": 3.0}, got.FunctionResponses()[0].Response)
	assert.IsType(t, DataPart{}, got.Content.Parts[3])
	assert.Equal(t, []byte("abc"), got.Content.Parts[4].(FilePart).File.Data)
	assert.Equal(t, "v", got.Actions.StateDelta["k"])
}

func TestFunctionCall_Args(t *testing.T) {
	args, err := FunctionCall{Name: "f", Arguments: `{"city":"Paris"}`}.Args()
	require.NoError(t, err)
	assert.Equal(t, "Paris", args["city"])

	args, err = FunctionCall{Name: "f"}.Args()
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = FunctionCall{Name: "f", Arguments: "{"}.Args()
	assert.Error(t, err)
}
