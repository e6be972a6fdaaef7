package agent

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/seobando/agentkit/callback"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/flow"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/tool"
)

// ModelAgentOptions configures a ModelAgent.
type ModelAgentOptions struct {
	Description       string
	Instruction       Instruction
	GlobalInstruction Instruction
	Tools             []tool.Tool
	// OutputKey receives the final text, or the parsed object when
	// OutputSchema is set.
	OutputKey          string
	OutputSchema       *jsonschema.Schema
	IncludeContents    flow.IncludeContents
	MaxHistoryMessages int
	AllowTransfer      bool
	Stream             bool
	MaxParallelTools   int
	Temperature        *float64
	MaxTokens          int

	BeforeAgent []callback.BeforeAgent
	AfterAgent  []callback.AfterAgent
	BeforeModel []callback.BeforeModel
	AfterModel  []callback.AfterModel
	BeforeTool  []callback.BeforeTool
	AfterTool   []callback.AfterTool
}

// ModelAgent is driven by a language model. It answers from its
// instructions and the conversation, calls tools, and may hand the
// conversation to another agent of the tree.
type ModelAgent struct {
	BaseAgent
	llm   model.Model
	opts  ModelAgentOptions
	tools []tool.Tool
}

// NewModelAgent creates a model agent. By default it may transfer when it
// has targets, sends the full branch history and runs tools with unbounded
// parallelism.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:     NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		IncludeContents: flow.IncludeContentsDefault,
		AllowTransfer:   true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &ModelAgent{
		BaseAgent: NewBaseAgent(name),
		llm:       llm,
		opts:      opts,
		tools:     append([]tool.Tool(nil), opts.Tools...),
	}
	a.Bind(a)
	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}
	a.AddBeforeAgentCallbacks(opts.BeforeAgent...)
	a.AddAfterAgentCallbacks(opts.AfterAgent...)
	return a
}

// RegisterTools adds tools, replacing any registered tool of the same name.
func (a *ModelAgent) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		replaced := false
		for i, existing := range a.tools {
			if existing.Name() == t.Name() {
				a.tools[i], replaced = t, true
				break
			}
		}
		if !replaced {
			a.tools = append(a.tools, t)
		}
	}
}

// HasTool reports whether a tool named name is registered.
func (a *ModelAgent) HasTool(name string) bool {
	_, ok := tool.Find(a.tools, name)
	return ok
}

// Run executes the agent through the flow matching its capabilities.
func (a *ModelAgent) Run(ic *core.InvocationContext) error {
	return a.RunWithCallbacks(ic, "model", func(ic *core.InvocationContext) error {
		fl := flow.SelectFlow(a)
		ic.LogDebug("agent.flow.selected", "flow", fmt.Sprintf("%T", fl))
		return fl.Run(ic)
	})
}

// Model returns the model driving the agent.
func (a *ModelAgent) Model() model.Model { return a.llm }

// Instructions returns the global and agent instruction templates. Without
// its own global instruction the agent inherits the one of the root agent.
func (a *ModelAgent) Instructions(ic *core.InvocationContext) (string, string, error) {
	global := a.opts.GlobalInstruction
	if global.IsZero() {
		if root, ok := core.RootAgent(a).(*ModelAgent); ok && root != a {
			global = root.opts.GlobalInstruction
		}
	}
	g, err := global.Resolve(ic)
	if err != nil {
		return "", "", fmt.Errorf("global instruction of %s: %w", a.Name(), err)
	}
	in, err := a.opts.Instruction.Resolve(ic)
	if err != nil {
		return "", "", fmt.Errorf("instruction of %s: %w", a.Name(), err)
	}
	return g, in, nil
}

// Tools returns the registered tools.
func (a *ModelAgent) Tools() []tool.Tool { return append([]tool.Tool(nil), a.tools...) }

// OutputKey returns the state key receiving the final answer.
func (a *ModelAgent) OutputKey() string { return a.opts.OutputKey }

// OutputSchema returns the schema of the final answer, if any.
func (a *ModelAgent) OutputSchema() *jsonschema.Schema { return a.opts.OutputSchema }

// IncludeContents reports how much session history goes into requests.
func (a *ModelAgent) IncludeContents() flow.IncludeContents { return a.opts.IncludeContents }

// MaxHistoryMessages caps the history messages sent to the model; 0 means no cap.
func (a *ModelAgent) MaxHistoryMessages() int { return a.opts.MaxHistoryMessages }

// IsStreamingEnabled reports whether the model is called in streaming mode.
func (a *ModelAgent) IsStreamingEnabled() bool { return a.opts.Stream }

// IsTransferEnabled reports whether the agent may hand control to another agent.
func (a *ModelAgent) IsTransferEnabled() bool { return a.opts.AllowTransfer }

// MaxParallelTools bounds concurrent tool calls in one turn; 0 means no bound.
func (a *ModelAgent) MaxParallelTools() int { return a.opts.MaxParallelTools }

// GenerateConfig returns the sampling settings applied to every request.
func (a *ModelAgent) GenerateConfig() flow.GenerateConfig {
	return flow.GenerateConfig{Temperature: a.opts.Temperature, MaxTokens: a.opts.MaxTokens}
}

// Callbacks returns the model and tool hooks the flow runs around each call.
func (a *ModelAgent) Callbacks() flow.Callbacks {
	return flow.Callbacks{
		BeforeModel: a.opts.BeforeModel,
		AfterModel:  a.opts.AfterModel,
		BeforeTool:  a.opts.BeforeTool,
		AfterTool:   a.opts.AfterTool,
	}
}

var _ flow.FlowAgent = (*ModelAgent)(nil)
