package agent

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/seobando/agentkit/callback"
	"github.com/seobando/agentkit/core"
)

// BaseAgent bundles lifecycle (Start/Stop), hierarchy management and agent
// callbacks. Embed it in concrete agents, call Bind with the outer value in
// the constructor and supply a Run method. Exported methods are
// goroutine-safe.
type BaseAgent struct {
	name        string
	description string
	self        core.Agent

	mu        sync.Mutex
	active    int
	parent    core.Agent
	subAgents []core.Agent

	beforeAgent []callback.BeforeAgent
	afterAgent  []callback.AfterAgent
}

// NewBaseAgent constructs a BaseAgent with a generated description.
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Bind records the concrete agent embedding b. Parent links and FindAgent
// hand out this value.
func (b *BaseAgent) Bind(self core.Agent) { b.self = self }

// Name returns the agent's name.
func (b *BaseAgent) Name() string { return b.name }

// Description returns what the agent does.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the description shown to transferring agents.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// AddBeforeAgentCallbacks appends hooks run before the agent.
func (b *BaseAgent) AddBeforeAgentCallbacks(cbs ...callback.BeforeAgent) {
	b.beforeAgent = append(b.beforeAgent, cbs...)
}

// AddAfterAgentCallbacks appends hooks run after the agent.
func (b *BaseAgent) AddAfterAgentCallbacks(cbs ...callback.AfterAgent) {
	b.afterAgent = append(b.afterAgent, cbs...)
}

// Start registers a run of the agent. Runs may overlap; each Start must be
// paired with a Stop.
func (b *BaseAgent) Start(_ *core.InvocationContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active++
	return nil
}

// Stop ends a run started by Start.
func (b *BaseAgent) Stop(_ *core.InvocationContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == 0 {
		return errors.New("agent is not running")
	}
	b.active--
	return nil
}

// Running reports whether at least one run is active.
func (b *BaseAgent) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active > 0
}

// parented is implemented by every agent embedding BaseAgent.
type parented interface {
	attachParent(p core.Agent) error
	detachParent(p core.Agent)
}

// unwrapper is implemented by decorated agents such as middleware wrappers.
type unwrapper interface{ Unwrap() core.Agent }

func parentLink(a core.Agent) (parented, bool) {
	for a != nil {
		if p, ok := a.(parented); ok {
			return p, true
		}
		u, ok := a.(unwrapper)
		if !ok {
			return nil, false
		}
		a = u.Unwrap()
	}
	return nil, false
}

// SetSubAgents replaces the children and becomes their parent. An agent that
// already belongs to another parent is rejected with core.ErrAgentHasParent
// and the existing children are left untouched.
func (b *BaseAgent) SetSubAgents(children ...core.Agent) error {
	if b.self == nil {
		return fmt.Errorf("agent %s: SetSubAgents before Bind", b.name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]bool, len(children))
	for _, c := range children {
		if seen[c.Name()] {
			return fmt.Errorf("agent %s: duplicate sub-agent %s", b.name, c.Name())
		}
		seen[c.Name()] = true
		if p := c.Parent(); p != nil && p != b.self {
			return fmt.Errorf("attach %s to %s: %w (%s)", c.Name(), b.name, core.ErrAgentHasParent, p.Name())
		}
	}

	for _, c := range b.subAgents {
		if link, ok := parentLink(c); ok {
			link.detachParent(b.self)
		}
	}
	b.subAgents = nil
	for _, c := range children {
		if link, ok := parentLink(c); ok {
			if err := link.attachParent(b.self); err != nil {
				return err
			}
		}
		b.subAgents = append(b.subAgents, c)
	}
	return nil
}

func (b *BaseAgent) attachParent(p core.Agent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.parent != nil && b.parent != p {
		return fmt.Errorf("attach %s to %s: %w (%s)", b.name, p.Name(), core.ErrAgentHasParent, b.parent.Name())
	}
	b.parent = p
	return nil
}

func (b *BaseAgent) detachParent(p core.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.parent == p {
		b.parent = nil
	}
}

// Parent returns the parent agent, or nil for a root.
func (b *BaseAgent) Parent() core.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parent
}

// SubAgents returns a copy of the children.
func (b *BaseAgent) SubAgents() []core.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]core.Agent, len(b.subAgents))
	copy(result, b.subAgents)
	return result
}

// FindAgent searches the subtree rooted at this agent, itself included,
// depth first.
func (b *BaseAgent) FindAgent(name string) core.Agent {
	if b.name == name {
		return b.self
	}
	return b.FindSubAgent(name)
}

// FindSubAgent searches the descendants of this agent depth first.
func (b *BaseAgent) FindSubAgent(name string) core.Agent {
	for _, child := range b.SubAgents() {
		if child.Name() == name {
			return child
		}
		if found := child.FindAgent(name); found != nil {
			return found
		}
	}
	return nil
}

// RunWithCallbacks binds ic to this agent and runs run between the before
// and after agent callbacks.
//
// Content returned by a before callback is emitted as the agent's reply and
// run is skipped. Content returned by an after callback is emitted as an
// extra reply. State staged by callbacks that no event carried is flushed in
// a final state-only event; temp keys are handed back to the caller.
func (b *BaseAgent) RunWithCallbacks(ic *core.InvocationContext, kind string, run func(ic *core.InvocationContext) error) error {
	caller := ic
	ic = ic.WithAgent(core.AgentInfo{Name: b.name, Type: kind})
	ic.LogDebug("agent.run.start")
	defer func() { copyTemp(caller.StateDelta, ic.StateDelta) }()

	cc := core.NewCallbackContext(ic)
	content, err := callback.RunBeforeAgent(cc, b.beforeAgent)
	if err != nil {
		return fmt.Errorf("before agent callback of %s: %w", b.name, err)
	}
	if content != nil {
		ic.LogDebug("agent.run.skipped", "reason", "before_agent_callback")
		return ic.EmitEvent(replyEvent(ic, content))
	}

	if err := run(ic); err != nil {
		ic.LogDebug("agent.run.error", "error", err.Error())
		return err
	}

	content, err = callback.RunAfterAgent(cc, b.afterAgent)
	if err != nil {
		return fmt.Errorf("after agent callback of %s: %w", b.name, err)
	}
	if content != nil {
		if err := ic.EmitEvent(replyEvent(ic, content)); err != nil {
			return err
		}
	}
	if err := flushState(ic); err != nil {
		return err
	}
	ic.LogDebug("agent.run.complete")
	return nil
}

func replyEvent(ic *core.InvocationContext, content *core.Content) core.Event {
	ev := core.NewEvent(ic.InvocationID, ic.Agent.Name)
	c := content.Clone()
	if c.Role == "" {
		c.Role = core.RoleAssistant
	}
	ev.Content = &c
	ev.TurnComplete = true
	return ev
}

// flushState emits a content-free event when ic holds staged state or
// artifact changes that must be persisted. Temp keys alone do not count.
func flushState(ic *core.InvocationContext) error {
	pending := len(ic.ArtifactDelta) > 0
	for k := range ic.StateDelta {
		if !strings.HasPrefix(k, core.TempPrefix) {
			pending = true
			break
		}
	}
	if !pending {
		return nil
	}
	return ic.EmitEvent(core.NewEvent(ic.InvocationID, ic.Agent.Name))
}
