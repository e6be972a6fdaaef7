package flow

import (
	"fmt"
	"strings"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/tool"
)

var transferTool = tool.NewTransferToAgentTool()

// TransferTargets returns the agents a can hand off to: its sub-agents and,
// when its parent is itself a model-driven agent, the parent and its peers.
func TransferTargets(a core.Agent) []core.Agent {
	seen := map[string]bool{a.Name(): true}
	var targets []core.Agent
	add := func(agents ...core.Agent) {
		for _, t := range agents {
			if t == nil || seen[t.Name()] {
				continue
			}
			seen[t.Name()] = true
			targets = append(targets, t)
		}
	}
	add(a.SubAgents()...)
	if parent, ok := a.Parent().(FlowAgent); ok {
		add(parent)
		add(parent.SubAgents()...)
	}
	return targets
}

// TransferToolInjector offers transfer_to_agent and describes the possible
// targets in the instructions.
type TransferToolInjector struct{}

// NewTransferToolInjector creates the injector.
func NewTransferToolInjector() *TransferToolInjector { return &TransferToolInjector{} }

// Name returns the processor's identifier.
func (p *TransferToolInjector) Name() string { return "transfer_tool_injector" }

// ProcessRequest adds the transfer tool and its instructions.
func (p *TransferToolInjector) ProcessRequest(_ *core.InvocationContext, req *model.Request, agent FlowAgent) error {
	if !agent.IsTransferEnabled() {
		return nil
	}
	targets := TransferTargets(agent)
	if len(targets) == 0 {
		return nil
	}
	for _, def := range req.Tools {
		if def.Function.Name == tool.TransferToAgentName {
			return nil
		}
	}
	req.Tools = append(req.Tools, tool.Definition(transferTool))

	var sb strings.Builder
	sb.WriteString("You have a list of other agents to transfer to:\n")
	for _, t := range targets {
		fmt.Fprintf(&sb, "\nAgent name: %s\nAgent description: %s\n", t.Name(), t.Description())
	}
	sb.WriteString("\nIf you are the best to answer the question according to your description, you can answer it.\n")
	fmt.Fprintf(&sb, "\nIf another agent is better for answering the question according to its description, call `%s` function to transfer the question to that agent. When transferring, do not generate any text other than the function call.", tool.TransferToAgentName)

	if req.Instructions != "" {
		req.Instructions += "\n\n"
	}
	req.Instructions += sb.String()
	return nil
}
