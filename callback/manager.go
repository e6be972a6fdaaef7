package callback

import (
	"context"
	"sync"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/logging"
)

// Type identifies a runner lifecycle point.
type Type string

const (
	// RunStart fires after the user event is persisted, before the agent runs.
	RunStart Type = "run_start"
	// OnEvent fires for every event the agent emits, before it is persisted.
	OnEvent Type = "event"
	// OnStateChange fires for events that carry a state delta.
	OnStateChange Type = "state_change"
	// RunEnd fires once the agent returned successfully.
	RunEnd Type = "run_end"
	// OnError fires when the run fails.
	OnError Type = "error"
)

// Context is what lifecycle observers receive.
type Context struct {
	InvocationContext *core.InvocationContext
	// Event is the event being processed; nil for run_start, run_end and
	// errors not tied to an event.
	Event     *core.Event
	AgentName string
	Type      Type
	Err       error
	Metadata  map[string]any
}

// Callback observes one lifecycle point. Returning an error fails the run.
type Callback interface {
	Type() Type
	Execute(ctx context.Context, cbCtx *Context) error
}

// FunctionCallback adapts a function to Callback.
type FunctionCallback struct {
	typ Type
	fn  func(ctx context.Context, cbCtx *Context) error
}

// NewFunctionCallback creates a callback for typ.
func NewFunctionCallback(typ Type, fn func(ctx context.Context, cbCtx *Context) error) *FunctionCallback {
	return &FunctionCallback{typ: typ, fn: fn}
}

// Type returns the lifecycle point.
func (c *FunctionCallback) Type() Type { return c.typ }

// Execute calls the wrapped function.
func (c *FunctionCallback) Execute(ctx context.Context, cbCtx *Context) error { return c.fn(ctx, cbCtx) }

// LoggingCallback logs every occurrence of a lifecycle point.
type LoggingCallback struct {
	typ    Type
	logger logging.Logger
}

// NewLoggingCallback creates a logging observer for typ.
func NewLoggingCallback(typ Type, logger logging.Logger) *LoggingCallback {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LoggingCallback{typ: typ, logger: logger}
}

// Type returns the lifecycle point.
func (c *LoggingCallback) Type() Type { return c.typ }

// Execute logs the occurrence.
func (c *LoggingCallback) Execute(_ context.Context, cbCtx *Context) error {
	args := []any{"type", string(c.typ), "agent", cbCtx.AgentName}
	if cbCtx.InvocationContext != nil {
		args = append(args, "invocation_id", cbCtx.InvocationContext.InvocationID)
	}
	if ev := cbCtx.Event; ev != nil {
		args = append(args, "event_id", ev.ID, "author", ev.Author, "final", ev.IsFinalResponse())
	}
	if cbCtx.Err != nil {
		c.logger.Error("callback.lifecycle", append(args, "error", cbCtx.Err.Error())...)
		return nil
	}
	c.logger.Info("callback.lifecycle", args...)
	return nil
}

// StateValidationCallback rejects events whose state delta fails validation.
type StateValidationCallback struct {
	validator func(delta map[string]any) error
}

// NewStateValidationCallback creates a state_change observer.
//
//	cb := NewStateValidationCallback(func(delta map[string]any) error {
//	    if v, ok := delta["loyalty_points"].(float64); ok && v < 0 {
//	        return errors.New("loyalty_points must not be negative")
//	    }
//	    return nil
//	})
func NewStateValidationCallback(validator func(delta map[string]any) error) *StateValidationCallback {
	return &StateValidationCallback{validator: validator}
}

// Type returns OnStateChange.
func (c *StateValidationCallback) Type() Type { return OnStateChange }

// Execute validates the delta of the current event.
func (c *StateValidationCallback) Execute(_ context.Context, cbCtx *Context) error {
	if c.validator == nil || cbCtx.Event == nil || len(cbCtx.Event.Actions.StateDelta) == 0 {
		return nil
	}
	return c.validator(cbCtx.Event.Actions.StateDelta)
}

// Manager routes lifecycle points to registered observers. Registration and
// execution are safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	callbacks map[Type][]Callback
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{callbacks: make(map[Type][]Callback)}
}

// Register adds observers. They run in registration order.
func (m *Manager) Register(cbs ...Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cb := range cbs {
		m.callbacks[cb.Type()] = append(m.callbacks[cb.Type()], cb)
	}
}

// Len returns the number of observers registered for typ.
func (m *Manager) Len(typ Type) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.callbacks[typ])
}

// Execute runs the observers of typ and stops at the first error. A nil
// manager does nothing.
func (m *Manager) Execute(ctx context.Context, typ Type, cbCtx *Context) error {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	cbs := append([]Callback(nil), m.callbacks[typ]...)
	m.mu.RUnlock()

	cbCtx.Type = typ
	for _, cb := range cbs {
		if err := cb.Execute(ctx, cbCtx); err != nil {
			return err
		}
	}
	return nil
}
