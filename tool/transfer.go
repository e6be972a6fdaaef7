package tool

import (
	"fmt"

	"github.com/seobando/agentkit/core"
)

// TransferToAgentName is the name of the transfer tool injected by flows.
const TransferToAgentName = "transfer_to_agent"

// transferToAgentTool requests that another agent takes over the turn.
type transferToAgentTool struct{}

// NewTransferToAgentTool returns the transfer tool.
func NewTransferToAgentTool() Tool { return transferToAgentTool{} }

func (transferToAgentTool) Name() string { return TransferToAgentName }

func (transferToAgentTool) Description() string {
	return "Transfer the question to another agent. Use when another agent is better suited to answer."
}

func (transferToAgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent_name": map[string]any{"type": "string", "description": "the agent to transfer to"},
		},
		"required": []string{"agent_name"},
	}
}

func (transferToAgentTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	name, _ := args["agent_name"].(string)
	if name == "" {
		return nil, &ToolError{Tool: TransferToAgentName, Message: "agent_name must be a non-empty string", Code: CodeValidation}
	}
	tc.TransferToAgent(name)
	return map[string]any{"transferred": true, "agent_name": name}, nil
}

// exitLoopTool lets a model inside a LoopAgent end the loop.
type exitLoopTool struct{}

// NewExitLoopTool returns the exit_loop tool.
func NewExitLoopTool() Tool { return exitLoopTool{} }

func (exitLoopTool) Name() string { return "exit_loop" }

func (exitLoopTool) Description() string {
	return "Exits the loop. Call this function only when you are instructed to do so."
}

func (exitLoopTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (exitLoopTool) Call(tc *core.ToolContext, _ map[string]any) (any, error) {
	tc.Escalate()
	tc.SkipSummarization()
	return map[string]any{}, nil
}

// loadMemoryTool searches past conversations of the current user.
type loadMemoryTool struct{}

// NewLoadMemoryTool returns the load_memory tool.
func NewLoadMemoryTool() Tool { return loadMemoryTool{} }

func (loadMemoryTool) Name() string { return "load_memory" }

func (loadMemoryTool) Description() string {
	return "Loads memories of earlier conversations with the current user that match a query."
}

func (loadMemoryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "keywords to search for"},
		},
		"required": []string{"query"},
	}
}

func (loadMemoryTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	entries, err := tc.SearchMemory(query, 10)
	if err != nil {
		return nil, fmt.Errorf("search memory: %w", err)
	}
	memories := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		memories = append(memories, map[string]any{
			"author":    e.Author,
			"text":      e.Text,
			"timestamp": e.Timestamp.Format("2006-01-02 15:04:05"),
		})
	}
	return map[string]any{"memories": memories}, nil
}

// loadArtifactsTool lists the session artifacts or returns one of them.
type loadArtifactsTool struct{}

// NewLoadArtifactsTool returns the load_artifacts tool.
func NewLoadArtifactsTool() Tool { return loadArtifactsTool{} }

func (loadArtifactsTool) Name() string { return "load_artifacts" }

func (loadArtifactsTool) Description() string {
	return "Lists the artifacts of this session, or loads the named artifact when a name is given."
}

func (loadArtifactsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "description": "artifact to load"},
		},
	}
}

func (loadArtifactsTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	name, _ := args["name"].(string)
	if name == "" {
		names, err := tc.ListArtifacts()
		if err != nil {
			return nil, err
		}
		return map[string]any{"artifacts": names}, nil
	}
	art, err := tc.LoadArtifact(name, 0)
	if err != nil {
		return nil, err
	}
	return map[string]any{"name": name, "mime_type": art.MIMEType, "content": string(art.Data)}, nil
}
