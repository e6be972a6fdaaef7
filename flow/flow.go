// Package flow runs the request, model and tool loop of a model-backed agent.
//
// A flow builds a model.Request through an ordered list of request
// processors, calls the model, emits the resulting events through the
// invocation context, executes requested functions and repeats until the
// model produces a final answer, a tool skips summarization, or control is
// transferred to another agent.
package flow

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/seobando/agentkit/callback"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/tool"
)

// IncludeContents controls how much session history reaches the model.
type IncludeContents string

const (
	// IncludeContentsDefault sends the branch-filtered session history.
	IncludeContentsDefault IncludeContents = "default"
	// IncludeContentsNone sends only the current turn.
	IncludeContentsNone IncludeContents = "none"
)

// Flow executes one agent turn on an invocation.
type Flow interface {
	Run(ic *core.InvocationContext) error
}

// Callbacks groups the model and tool hooks of an agent.
type Callbacks struct {
	BeforeModel []callback.BeforeModel
	AfterModel  []callback.AfterModel
	BeforeTool  []callback.BeforeTool
	AfterTool   []callback.AfterTool
}

// GenerateConfig carries per-agent sampling overrides.
type GenerateConfig struct {
	Temperature *float64
	MaxTokens   int
}

// FlowAgent is what a flow needs from the agent it drives.
type FlowAgent interface {
	core.Agent

	// Model returns the model to call.
	Model() model.Model

	// Instructions returns the raw global and agent instruction templates.
	Instructions(ic *core.InvocationContext) (global, instruction string, err error)

	// Tools returns the agent's own tools.
	Tools() []tool.Tool

	// OutputKey returns the state key that receives the final answer.
	OutputKey() string

	// OutputSchema returns the schema the final answer must satisfy.
	OutputSchema() *jsonschema.Schema

	IncludeContents() IncludeContents

	// MaxHistoryMessages caps the history sent to the model; 0 is unlimited.
	MaxHistoryMessages() int

	IsStreamingEnabled() bool

	// IsTransferEnabled reports whether the transfer tool is offered.
	IsTransferEnabled() bool

	// MaxParallelTools bounds concurrent tool calls; 0 is unlimited.
	MaxParallelTools() int

	GenerateConfig() GenerateConfig

	Callbacks() Callbacks
}

// RequestProcessor mutates the request before the model call.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest edits req for agent.
	ProcessRequest(ic *core.InvocationContext, req *model.Request, agent FlowAgent) error
}
