package core

import "context"

// CallbackContext is handed to agent and model callbacks. State writes are
// staged on the invocation and land on the next emitted event.
type CallbackContext struct {
	ic *InvocationContext

	*loggerAdapter
}

// NewCallbackContext wraps an invocation context for callbacks.
func NewCallbackContext(ic *InvocationContext) *CallbackContext {
	return &CallbackContext{ic: ic, loggerAdapter: ic.loggerAdapter}
}

// Context returns the cancellation context.
func (cc *CallbackContext) Context() context.Context { return cc.ic.Context }

// InvocationContext returns the wrapped invocation context.
func (cc *CallbackContext) InvocationContext() *InvocationContext { return cc.ic }

// AgentName returns the name of the running agent.
func (cc *CallbackContext) AgentName() string { return cc.ic.Agent.Name }

// InvocationID returns the invocation id.
func (cc *CallbackContext) InvocationID() string { return cc.ic.InvocationID }

// UserContent returns the message that started the invocation.
func (cc *CallbackContext) UserContent() Content { return cc.ic.UserContent }

// SessionKey returns the address of the session.
func (cc *CallbackContext) SessionKey() SessionKey { return cc.ic.SessionKey() }

// GetState reads a state key.
func (cc *CallbackContext) GetState(k string) (any, bool) { return cc.ic.GetState(k) }

// SetState stages a state write.
func (cc *CallbackContext) SetState(k string, v any) { cc.ic.SetState(k, v) }

// State returns the merged state view.
func (cc *CallbackContext) State() map[string]any { return cc.ic.State() }

// SaveArtifact stores an artifact version for the session.
func (cc *CallbackContext) SaveArtifact(name string, art Artifact) (int, error) {
	return cc.ic.SaveArtifact(name, art)
}

// LoadArtifact loads a session artifact; version <= 0 is latest.
func (cc *CallbackContext) LoadArtifact(name string, version int) (Artifact, error) {
	return cc.ic.LoadArtifact(name, version)
}
