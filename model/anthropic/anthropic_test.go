package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
)

func TestBuildMessages_ToolResultsInUserTurn(t *testing.T) {
	msgs := buildMessages([]core.Content{
		*core.NewTextContent(core.RoleUser, "weather in paris?"),
		{Role: core.RoleAssistant, Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "t1", Name: "get_weather", Arguments: `{"city":"paris"}`}}}},
		{Role: core.RoleTool, Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "t1", Name: "get_weather", Response: "sunny"}}}},
		*core.NewTextContent(core.RoleSystem, "ignored here"),
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[2].Role))
	require.Len(t, msgs[2].Content, 1)
	assert.NotNil(t, msgs[2].Content[0].OfToolResult)
}

func TestSystemBlocks(t *testing.T) {
	blocks := systemBlocks(model.Request{
		Instructions: "be nice",
		Contents:     []core.Content{*core.NewTextContent(core.RoleSystem, "extra")},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "be nice", blocks[0].Text)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        "get_weather",
			Description: "weather lookup",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"city": map[string]any{"type": "string"}},
				"required":   []any{"city"},
			},
		},
	}})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "get_weather", tools[0].OfTool.Name)
	assert.Equal(t, []string{"city"}, tools[0].OfTool.InputSchema.Required)
}

func TestResultText(t *testing.T) {
	txt, isErr := resultText(core.FunctionResponse{Error: "nope"})
	assert.True(t, isErr)
	assert.Equal(t, "nope", txt)

	txt, isErr = resultText(core.FunctionResponse{Response: map[string]any{"a": 1}})
	assert.False(t, isErr)
	assert.JSONEq(t, `{"a":1}`, txt)
}

func TestNormalizeStop(t *testing.T) {
	assert.Equal(t, model.FinishStop, normalizeStop("end_turn"))
	assert.Equal(t, model.FinishToolCalls, normalizeStop("tool_use"))
	assert.Equal(t, model.FinishLength, normalizeStop("max_tokens"))
}
