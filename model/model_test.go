package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/core"
)

func userRequest(text string) Request {
	return Request{Contents: []core.Content{*core.NewTextContent(core.RoleUser, text)}}
}

func TestMockModel_SelectionOrder(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("hi", "hello!")

	resp, err := Collect(context.Background(), m, userRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello!", resp.Content.Text())

	resp, err = Collect(context.Background(), m, userRequest("other"))
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: other", resp.Content.Text())

	m.EnqueueFunctionCall("c1", "lookup", map[string]any{"q": "x"})
	resp, err = Collect(context.Background(), m, userRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, FinishToolCalls, resp.FinishReason)
	require.Len(t, resp.Content.Parts, 1)
	fc := resp.Content.Parts[0].(core.FunctionCallPart).FunctionCall
	assert.Equal(t, "lookup", fc.Name)
	assert.JSONEq(t, `{"q":"x"}`, fc.Arguments)

	m.SetHandler(func(Request) (Response, error) { return Response{}, errors.New("down") })
	_, err = Collect(context.Background(), m, userRequest("hi"))
	assert.EqualError(t, err, "down")

	assert.Len(t, m.Requests(), 4)
}

func TestMockModel_Streaming(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.EnqueueText("one two three")

	req := userRequest("go")
	req.Stream = true
	respCh, errCh := m.Generate(context.Background(), req)

	var chunks []string
	var final Response
	for r := range respCh {
		if r.Partial {
			chunks = append(chunks, r.Content.Text())
			continue
		}
		final = r
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"one ", "two ", "three"}, chunks)
	assert.Equal(t, "one two three", final.Content.Text())
}

func TestMockModel_NoContents(t *testing.T) {
	_, err := Collect(context.Background(), NewMockModel("m", "p"), Request{})
	assert.Error(t, err)
}

func TestRequest_LastUserText(t *testing.T) {
	req := Request{Contents: []core.Content{
		*core.NewTextContent(core.RoleUser, "first"),
		*core.NewTextContent(core.RoleAssistant, "reply"),
		*core.NewTextContent(core.RoleUser, "second"),
		{Role: core.RoleTool, Parts: []core.Part{core.FunctionResponsePart{}}},
	}}
	assert.Equal(t, "second", req.LastUserText())
}
