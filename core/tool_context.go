package core

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// ToolBatch is the state overlay shared by the function calls of one model
// turn. A call takes the batch lock the first time it touches state and holds
// it until Release, so a read-modify-write by one call is never interleaved
// with another call of the same batch.
type ToolBatch struct {
	mu    sync.Mutex
	delta map[string]any
}

// NewToolBatch creates an empty batch overlay.
func NewToolBatch() *ToolBatch {
	return &ToolBatch{delta: map[string]any{}}
}

// StateDelta returns a copy of every key written in the batch with its final
// value. Deleted keys map to nil.
func (b *ToolBatch) StateDelta() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.delta) == 0 {
		return nil
	}
	return maps.Clone(b.delta)
}

// ToolContext provides a constrained surface for tool implementations. State
// writes go to the batch overlay and are also recorded in the call's
// EventActions together with transfers, escalation and artifact versions.
// The flow attaches them to the function response event, so tools never
// write to the shared invocation buffers.
type ToolContext struct {
	ic             *InvocationContext
	functionCallID string
	actions        EventActions

	batch    *ToolBatch
	lockOnce sync.Once
	locked   bool

	*loggerAdapter
}

// NewToolContext binds a tool context to an invocation and a function call id.
// The context gets a batch of its own.
func NewToolContext(ic *InvocationContext, functionCallID string) *ToolContext {
	return NewBatchToolContext(ic, functionCallID, NewToolBatch())
}

// NewBatchToolContext binds a tool context that shares state with the other
// calls of batch.
func NewBatchToolContext(ic *InvocationContext, functionCallID string, batch *ToolBatch) *ToolContext {
	return &ToolContext{
		ic:             ic,
		functionCallID: functionCallID,
		batch:          batch,
		loggerAdapter:  newLoggerAdapter(ic.Logger(), append(append([]any{}, ic.loggerAdapter.attrs...), "function_call_id", functionCallID)...),
	}
}

// acquire takes the batch lock once per call.
func (tc *ToolContext) acquire() {
	tc.lockOnce.Do(func() {
		tc.batch.mu.Lock()
		tc.locked = true
	})
}

// Release gives up the batch lock if this call took it. The flow calls it
// when the function returns.
func (tc *ToolContext) Release() {
	tc.lockOnce.Do(func() {})
	if tc.locked {
		tc.locked = false
		tc.batch.mu.Unlock()
	}
}

// Context returns the cancellation context of the invocation.
func (tc *ToolContext) Context() context.Context { return tc.ic.Context }

// InvocationContext returns the owning invocation context.
func (tc *ToolContext) InvocationContext() *InvocationContext { return tc.ic }

// FunctionCallID returns the id of the call being served.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the name of the calling agent.
func (tc *ToolContext) AgentName() string { return tc.ic.Agent.Name }

// InvocationID returns the invocation id.
func (tc *ToolContext) InvocationID() string { return tc.ic.InvocationID }

// SessionKey returns the address of the session.
func (tc *ToolContext) SessionKey() SessionKey { return tc.ic.SessionKey() }

// GetState reads a key, preferring values written earlier in the batch.
func (tc *ToolContext) GetState(k string) (any, bool) {
	tc.acquire()
	if v, ok := tc.batch.delta[k]; ok {
		return v, v != nil
	}
	return tc.ic.GetState(k)
}

// SetState writes k to the batch overlay and records it in the call's actions.
func (tc *ToolContext) SetState(k string, v any) {
	tc.acquire()
	tc.batch.delta[k] = v
	if tc.actions.StateDelta == nil {
		tc.actions.StateDelta = map[string]any{}
	}
	tc.actions.StateDelta[k] = v
}

// State returns the merged state view including the batch's writes.
func (tc *ToolContext) State() map[string]any {
	tc.acquire()
	st := tc.ic.State()
	ApplyDelta(st, tc.batch.delta)
	return st
}

// Actions returns the actions accumulated by this call.
func (tc *ToolContext) Actions() *EventActions { return &tc.actions }

// SkipSummarization asks the flow not to call the model again with the
// function response.
func (tc *ToolContext) SkipSummarization() { tc.actions.SkipSummarization = true }

// TransferToAgent hands control to the named agent after this call.
func (tc *ToolContext) TransferToAgent(name string) {
	tc.actions.TransferToAgent = name
	tc.LogInfo("tool.transfer.request", "to_agent", name)
}

// Escalate signals enclosing loops to stop.
func (tc *ToolContext) Escalate() {
	tc.actions.Escalate = true
	tc.LogInfo("tool.escalate.request")
}

// SaveArtifact persists a new artifact version and records it in the actions.
func (tc *ToolContext) SaveArtifact(name string, art Artifact) (int, error) {
	if tc.ic.ArtifactStore == nil {
		return 0, fmt.Errorf("artifact store: %w", ErrNotConfigured)
	}
	v, err := tc.ic.ArtifactStore.Save(tc.ic.Context, tc.ic.artifactKey(name), art)
	if err != nil {
		return 0, err
	}
	if tc.actions.ArtifactDelta == nil {
		tc.actions.ArtifactDelta = map[string]int{}
	}
	tc.actions.ArtifactDelta[name] = v
	return v, nil
}

// LoadArtifact loads a session artifact; version <= 0 is latest.
func (tc *ToolContext) LoadArtifact(name string, version int) (Artifact, error) {
	return tc.ic.LoadArtifact(name, version)
}

// ListArtifacts returns the artifact names of the session.
func (tc *ToolContext) ListArtifacts() ([]string, error) { return tc.ic.ListArtifacts() }

// SearchMemory queries past conversations of the current user.
func (tc *ToolContext) SearchMemory(query string, limit int) ([]MemoryEntry, error) {
	return tc.ic.SearchMemory(query, limit)
}
