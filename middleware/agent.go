package middleware

import (
	"github.com/seobando/agentkit/core"
)

// AgentHandler runs an agent on an invocation.
type AgentHandler func(ic *core.InvocationContext) error

// AgentMiddleware wraps an agent run.
type AgentMiddleware func(ic *core.InvocationContext, next AgentHandler) error

// wrappedAgent decorates Run and delegates everything else, so the name and
// sub-agent tree stay those of the inner agent.
type wrappedAgent struct {
	core.Agent
	handler AgentHandler
}

// WrapAgent returns a with mws applied around Run.
func WrapAgent(a core.Agent, mws ...AgentMiddleware) core.Agent {
	if len(mws) == 0 {
		return a
	}
	return &wrappedAgent{Agent: a, handler: chainAgent(a.Run, mws)}
}

func (w *wrappedAgent) Run(ic *core.InvocationContext) error { return w.handler(ic) }

// Unwrap returns the decorated agent.
func (w *wrappedAgent) Unwrap() core.Agent { return w.Agent }

func chainAgent(final AgentHandler, mws []AgentMiddleware) AgentHandler {
	h := final
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], h
		h = func(ic *core.InvocationContext) error { return mw(ic, next) }
	}
	return h
}
