package agent

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/seobando/agentkit/core"
)

// ErrEscalated is returned by a relayed run when one of its events escalated.
// Workflow agents treat it as a stop signal, not a failure.
var ErrEscalated = errors.New("child agent escalated")

// branchPath joins a parent branch and a child segment with a dot.
func branchPath(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}

// relay runs children on child contexts and forwards their events to the
// parent context. Forwarding is serialized, so concurrent children reach the
// runner one event at a time, and each child resumes only after its own
// event was acknowledged.
type relay struct {
	parent *core.InvocationContext
	mu     sync.Mutex
}

func newRelay(parent *core.InvocationContext) *relay {
	return &relay{parent: parent}
}

// run executes fn on a child context of ctx. A non-empty branch replaces the
// parent's. It returns ErrEscalated when fn completed after escalating.
func (r *relay) run(ctx context.Context, branch string, fn func(ic *core.InvocationContext) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan core.Event)
	resume := make(chan struct{})
	r.mu.Lock()
	child := r.parent.NewChildContext(ctx, events, resume, branch)
	copyTemp(child.StateDelta, r.parent.StateDelta)
	r.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- fn(child) }()

	escalated := false
	for {
		select {
		case ev := <-events:
			if ev.Actions.Escalate {
				escalated = true
			}
			if err := r.forward(ev); err != nil {
				cancel()
				<-done
				return err
			}
			if !ev.Partial {
				select {
				case resume <- struct{}{}:
				case <-ctx.Done():
				}
			}
		case err := <-done:
			// temp keys written by the child stay visible to later siblings
			r.mu.Lock()
			copyTemp(r.parent.StateDelta, child.StateDelta)
			r.mu.Unlock()
			if err != nil {
				return err
			}
			if escalated {
				return ErrEscalated
			}
			return nil
		}
	}
}

func (r *relay) forward(ev core.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.parent.Forward(ev)
}

func copyTemp(dst, src map[string]any) {
	for k, v := range src {
		if strings.HasPrefix(k, core.TempPrefix) {
			dst[k] = v
		}
	}
}
