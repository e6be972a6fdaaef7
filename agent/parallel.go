package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seobando/agentkit/core"
)

// ParallelAgent runs its sub-agents concurrently. Each child runs on its own
// branch "<parent>.<child>", so siblings never see each other's events in
// their history while all of them share the session state. The first failing
// child cancels its siblings.
type ParallelAgent struct {
	BaseAgent
	timeout time.Duration
}

// ParallelAgentOptions configures a ParallelAgent.
type ParallelAgentOptions struct {
	WorkflowOptions
	// Timeout bounds the whole fan-out; 0 means no limit.
	Timeout time.Duration
}

// NewParallelAgent creates a parallel agent owning subAgents.
func NewParallelAgent(name string, subAgents []core.Agent, optFns ...func(o *ParallelAgentOptions)) (*ParallelAgent, error) {
	opts := ParallelAgentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	p := &ParallelAgent{BaseAgent: NewBaseAgent(name), timeout: opts.Timeout}
	p.Bind(p)
	if err := p.setup(opts.WorkflowOptions, subAgents); err != nil {
		return nil, err
	}
	return p, nil
}

// Run implements core.Agent.
func (p *ParallelAgent) Run(ic *core.InvocationContext) error {
	return p.RunWithCallbacks(ic, "parallel", func(ic *core.InvocationContext) error {
		if err := flushState(ic); err != nil {
			return err
		}

		ctx := ic.Context
		if p.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}

		r := newRelay(ic)
		g, gctx := errgroup.WithContext(ctx)
		for _, child := range p.SubAgents() {
			branch := branchPath(ic.Branch, p.Name()+"."+child.Name())
			g.Go(func() error {
				err := r.run(gctx, branch, child.Run)
				if err != nil && !errors.Is(err, ErrEscalated) {
					return fmt.Errorf("parallel agent %s: branch %s: %w", p.Name(), child.Name(), err)
				}
				return nil
			})
		}
		return g.Wait()
	})
}
