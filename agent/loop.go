package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/seobando/agentkit/callback"
	"github.com/seobando/agentkit/core"
)

// LoopAgentOptions configures a LoopAgent.
type LoopAgentOptions struct {
	Description string
	// MaxIterations bounds the loop; 0 means unbounded.
	MaxIterations int
	// Interval is the pause between iterations.
	Interval time.Duration
	// Until is checked against the session state after every iteration.
	Until func(state map[string]any) bool
	// ContinueOnError keeps looping when a sub-agent fails.
	ContinueOnError bool
	BeforeAgent     []callback.BeforeAgent
	AfterAgent      []callback.AfterAgent
}

// LoopAgent runs its sub-agents in order, repeatedly, until an event
// escalates, Until returns true, or MaxIterations is reached.
type LoopAgent struct {
	BaseAgent
	opts LoopAgentOptions
}

// NewLoopAgent creates a loop agent owning subAgents.
func NewLoopAgent(name string, subAgents []core.Agent, optFns ...func(o *LoopAgentOptions)) (*LoopAgent, error) {
	opts := LoopAgentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	l := &LoopAgent{BaseAgent: NewBaseAgent(name), opts: opts}
	l.Bind(l)
	wf := WorkflowOptions{Description: opts.Description, BeforeAgent: opts.BeforeAgent, AfterAgent: opts.AfterAgent}
	if err := l.setup(wf, subAgents); err != nil {
		return nil, err
	}
	return l, nil
}

// Run implements core.Agent.
func (l *LoopAgent) Run(ic *core.InvocationContext) error {
	return l.RunWithCallbacks(ic, "loop", func(ic *core.InvocationContext) error {
		children := l.SubAgents()
		if len(children) == 0 {
			return nil
		}
		if err := flushState(ic); err != nil {
			return err
		}

		r := newRelay(ic)
		max := l.opts.MaxIterations
		for i := 0; max == 0 || i < max; i++ {
			if err := ic.Err(); err != nil {
				return err
			}
			ic.LogDebug("agent.loop.iteration", "iteration", i+1)

			for _, child := range children {
				err := r.run(ic.Context, "", child.Run)
				if errors.Is(err, ErrEscalated) {
					ic.LogInfo("agent.loop.escalated", "iteration", i+1, "child", child.Name())
					return nil
				}
				if err != nil {
					if !l.opts.ContinueOnError {
						return fmt.Errorf("loop agent %s iteration %d failed at %s: %w", l.Name(), i+1, child.Name(), err)
					}
					ic.LogWarn("agent.loop.child_failed", "iteration", i+1, "child", child.Name(), "error", err.Error())
				}
			}

			if l.opts.Until != nil && l.opts.Until(ic.State()) {
				ic.LogInfo("agent.loop.condition_met", "iteration", i+1)
				return nil
			}
			if l.opts.Interval > 0 && (max == 0 || i < max-1) {
				select {
				case <-ic.Done():
					return ic.Err()
				case <-time.After(l.opts.Interval):
				}
			}
		}
		ic.LogDebug("agent.loop.max_iterations", "iterations", max)
		return nil
	})
}

// NewEscalationEvent builds an event asking enclosing loops to stop.
func NewEscalationEvent(invocationID, author string, content *core.Content) core.Event {
	ev := core.NewEvent(invocationID, author)
	ev.Actions.Escalate = true
	ev.Content = content
	return ev
}
