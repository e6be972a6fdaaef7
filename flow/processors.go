package flow

import (
	"fmt"
	"strings"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/internal/util"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/tool"
)

// InstructionsProcessor resolves the global and agent instructions and
// injects state values into their {key} placeholders.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates an instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets req.Instructions.
func (p *InstructionsProcessor) ProcessRequest(ic *core.InvocationContext, req *model.Request, agent FlowAgent) error {
	global, instruction, err := agent.Instructions(ic)
	if err != nil {
		return fmt.Errorf("resolve instructions: %w", err)
	}
	state := ic.State()

	var sections []string
	for _, tmpl := range []string{global, instruction} {
		if tmpl == "" {
			continue
		}
		text, err := util.InjectState(tmpl, state)
		if err != nil {
			return err
		}
		sections = append(sections, text)
	}
	if req.Instructions != "" {
		sections = append(sections, req.Instructions)
	}
	req.Instructions = strings.Join(sections, "\n\n")
	ic.LogDebug("agent.instruction.resolved", "length", len(req.Instructions))
	return nil
}

// ContentsProcessor turns the session history into model contents.
//
// Events are filtered to the agent's branch lineage; partial and error events
// are dropped. Messages from other agents are rewritten as user-role context
// so the model does not mistake them for its own turns.
type ContentsProcessor struct{}

// NewContentsProcessor creates a contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest sets req.Contents.
func (p *ContentsProcessor) ProcessRequest(ic *core.InvocationContext, req *model.Request, agent FlowAgent) error {
	events := ic.Session.GetEvents()
	if agent.IncludeContents() == IncludeContentsNone {
		events = currentTurn(events)
	}

	contents := make([]core.Content, 0, len(events))
	for _, ev := range events {
		if ev.Partial || ev.IsError() || ev.Content == nil || ev.Content.IsEmpty() {
			continue
		}
		if !inBranch(ic.Branch, ev.Branch) {
			continue
		}
		switch {
		case ev.Author == core.AuthorUser:
			c := ev.Content.Clone()
			c.Role = core.RoleUser
			contents = append(contents, c)
		case ev.Author == agent.Name():
			contents = append(contents, ev.Content.Clone())
		default:
			contents = append(contents, foreignContent(ev))
		}
	}

	if max := agent.MaxHistoryMessages(); max > 0 && len(contents) > max {
		contents = contents[len(contents)-max:]
	}
	// a window must not open on a dangling function response
	for len(contents) > 0 && contents[0].Role == core.RoleTool {
		contents = contents[1:]
	}

	if len(contents) == 0 && !ic.UserContent.IsEmpty() {
		c := ic.UserContent.Clone()
		c.Role = core.RoleUser
		contents = append(contents, c)
	}
	req.Contents = append(req.Contents, contents...)
	return nil
}

// currentTurn returns the events from the latest user message on.
func currentTurn(events []core.Event) []core.Event {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Author == core.AuthorUser {
			return events[i:]
		}
	}
	return events
}

// inBranch reports whether an event on evBranch is visible from branch: it
// must sit on the same branch or one of its ancestors.
func inBranch(branch, evBranch string) bool {
	if evBranch == "" || branch == evBranch {
		return true
	}
	return strings.HasPrefix(branch, evBranch+".")
}

// foreignContent rewrites another agent's event as user-role context.
func foreignContent(ev core.Event) core.Content {
	parts := []core.Part{core.TextPart{Text: "For context:"}}
	for _, p := range ev.Content.Parts {
		switch v := p.(type) {
		case core.TextPart:
			if v.Text != "" {
				parts = append(parts, core.TextPart{Text: fmt.Sprintf("[%s] said: %s", ev.Author, v.Text)})
			}
		case core.FunctionCallPart:
			parts = append(parts, core.TextPart{Text: fmt.Sprintf("[%s] called tool `%s` with parameters: %s", ev.Author, v.FunctionCall.Name, argsJSON(v.FunctionCall.Arguments))})
		case core.FunctionResponsePart:
			result := v.FunctionResponse.Response
			if v.FunctionResponse.Error != "" {
				result = map[string]any{"error": v.FunctionResponse.Error}
			}
			parts = append(parts, core.TextPart{Text: fmt.Sprintf("[%s] `%s` tool returned result: %s", ev.Author, v.FunctionResponse.Name, formatResult(result))})
		case core.DataPart:
			parts = append(parts, core.TextPart{Text: fmt.Sprintf("[%s] shared data: %s", ev.Author, formatResult(v.Data))})
		default:
			parts = append(parts, p)
		}
	}
	return core.Content{Role: core.RoleUser, Parts: parts}
}

// ToolsProcessor declares the agent's tools, plus transfer_to_agent when
// transfer is enabled and a target exists.
type ToolsProcessor struct{}

// NewToolsProcessor creates a tools processor.
func NewToolsProcessor() *ToolsProcessor { return &ToolsProcessor{} }

// Name returns the processor's identifier.
func (p *ToolsProcessor) Name() string { return "tools" }

// ProcessRequest sets req.Tools.
func (p *ToolsProcessor) ProcessRequest(_ *core.InvocationContext, req *model.Request, agent FlowAgent) error {
	req.Tools = append(req.Tools, tool.Definitions(agent.Tools())...)
	return nil
}

// OutputSchemaProcessor asks the model for output matching the agent's
// output schema.
type OutputSchemaProcessor struct{}

// NewOutputSchemaProcessor creates an output schema processor.
func NewOutputSchemaProcessor() *OutputSchemaProcessor { return &OutputSchemaProcessor{} }

// Name returns the processor's identifier.
func (p *OutputSchemaProcessor) Name() string { return "output_schema" }

// ProcessRequest sets req.OutputSchema.
func (p *OutputSchemaProcessor) ProcessRequest(_ *core.InvocationContext, req *model.Request, agent FlowAgent) error {
	if s := agent.OutputSchema(); s != nil {
		req.OutputSchema = s
	}
	return nil
}
