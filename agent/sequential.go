package agent

import (
	"errors"
	"fmt"

	"github.com/seobando/agentkit/callback"
	"github.com/seobando/agentkit/core"
)

// WorkflowOptions configures SequentialAgent and ParallelAgent.
type WorkflowOptions struct {
	Description string
	BeforeAgent []callback.BeforeAgent
	AfterAgent  []callback.AfterAgent
}

// SequentialAgent runs its sub-agents one after another on the same
// session, so every step sees the state written by the steps before it.
// It stops at the first error or escalation.
type SequentialAgent struct {
	BaseAgent
}

// NewSequentialAgent creates a sequential agent owning subAgents.
func NewSequentialAgent(name string, subAgents []core.Agent, optFns ...func(o *WorkflowOptions)) (*SequentialAgent, error) {
	opts := WorkflowOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	s := &SequentialAgent{BaseAgent: NewBaseAgent(name)}
	s.Bind(s)
	if err := s.setup(opts, subAgents); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *BaseAgent) setup(opts WorkflowOptions, subAgents []core.Agent) error {
	if opts.Description != "" {
		b.SetDescription(opts.Description)
	}
	b.AddBeforeAgentCallbacks(opts.BeforeAgent...)
	b.AddAfterAgentCallbacks(opts.AfterAgent...)
	return b.SetSubAgents(subAgents...)
}

// Run implements core.Agent.
func (s *SequentialAgent) Run(ic *core.InvocationContext) error {
	return s.RunWithCallbacks(ic, "sequential", func(ic *core.InvocationContext) error {
		if err := flushState(ic); err != nil {
			return err
		}
		r := newRelay(ic)
		for _, child := range s.SubAgents() {
			err := r.run(ic.Context, "", child.Run)
			if errors.Is(err, ErrEscalated) {
				ic.LogInfo("agent.sequential.escalated", "child", child.Name())
				return nil
			}
			if err != nil {
				return fmt.Errorf("sequential agent %s failed at %s: %w", s.Name(), child.Name(), err)
			}
		}
		return nil
	})
}
