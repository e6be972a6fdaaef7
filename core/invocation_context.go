package core

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seobando/agentkit/logging"
)

// InvocationOptions configures a new InvocationContext.
type InvocationOptions struct {
	InvocationID  string
	Agent         AgentInfo
	UserContent   Content
	Session       *Session
	Emit          chan<- Event
	Resume        <-chan struct{}
	SessionStore  SessionStore
	ArtifactStore ArtifactStore
	MemoryStore   MemoryStore
	Limiter       *ModelLimiter
	Logger        logging.Logger
}

// InvocationContext carries the mutable, per-invocation execution scope
// passed to Agent.Run, flows and tools. It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (invocation, session, agent, branch)
//   - Input user Content
//   - Emission / resumption coordination channels
//   - Backing stores (session, artifact, memory)
//   - A working Session snapshot plus staged StateDelta / ArtifactDelta
//
// State writes made through SetState are staged until the next non-partial
// EmitEvent, which moves them into the event's actions. Cloning produces an
// isolated staging buffer while sharing stores and the session snapshot.
type InvocationContext struct {
	Context       context.Context
	InvocationID  string
	Agent         AgentInfo
	Branch        string
	UserContent   Content
	Emit          chan<- Event
	Resume        <-chan struct{}
	SessionStore  SessionStore
	ArtifactStore ArtifactStore
	MemoryStore   MemoryStore
	Session       *Session
	StateDelta    map[string]any
	ArtifactDelta map[string]int
	Limiter       *ModelLimiter

	*loggerAdapter
}

// NewInvocationContext constructs a context with empty staging buffers. A
// missing invocation id is generated and a nil session becomes an empty one.
func NewInvocationContext(ctx context.Context, opts InvocationOptions) *InvocationContext {
	if opts.InvocationID == "" {
		opts.InvocationID = "inv-" + uuid.NewString()
	}
	if opts.Session == nil {
		opts.Session = NewSession(SessionKey{})
	}
	ic := &InvocationContext{
		Context:       ctx,
		InvocationID:  opts.InvocationID,
		Agent:         opts.Agent,
		UserContent:   opts.UserContent,
		Emit:          opts.Emit,
		Resume:        opts.Resume,
		SessionStore:  opts.SessionStore,
		ArtifactStore: opts.ArtifactStore,
		MemoryStore:   opts.MemoryStore,
		Session:       opts.Session,
		StateDelta:    map[string]any{},
		ArtifactDelta: map[string]int{},
		Limiter:       opts.Limiter,
	}
	ic.resetLogger(opts.Logger)
	return ic
}

func (ic *InvocationContext) resetLogger(l logging.Logger) {
	attrs := []any{"invocation_id", ic.InvocationID, "agent", ic.Agent.Name}
	if ic.Branch != "" {
		attrs = append(attrs, "branch", ic.Branch)
	}
	ic.loggerAdapter = newLoggerAdapter(l, attrs...)
}

// Done mirrors context.Context's Done.
func (ic *InvocationContext) Done() <-chan struct{} { return ic.Context.Done() }

// Err returns the cancellation error of the underlying context.
func (ic *InvocationContext) Err() error { return ic.Context.Err() }

// SessionKey returns the address of the working session.
func (ic *InvocationContext) SessionKey() SessionKey { return ic.Session.Key() }

// AppName returns the app of the working session.
func (ic *InvocationContext) AppName() string { return ic.Session.AppName }

// UserID returns the user of the working session.
func (ic *InvocationContext) UserID() string { return ic.Session.UserID }

// SessionID returns the id of the working session.
func (ic *InvocationContext) SessionID() string { return ic.Session.ID }

// GetState returns a staged value if present, else the session value. A
// staged nil marks a pending deletion.
func (ic *InvocationContext) GetState(k string) (any, bool) {
	if v, ok := ic.StateDelta[k]; ok {
		return v, v != nil
	}
	return ic.Session.GetState(k)
}

// SetState stages a state mutation. A nil value deletes the key once applied.
func (ic *InvocationContext) SetState(k string, v any) { ic.StateDelta[k] = v }

// State returns the merged view of session state and staged changes.
func (ic *InvocationContext) State() map[string]any {
	st := ic.Session.StateSnapshot()
	if st == nil {
		st = map[string]any{}
	}
	ApplyDelta(st, ic.StateDelta)
	return st
}

// EmitEvent fills in missing correlation fields, moves staged deltas into the
// actions of non-partial events, and sends the event. After a non-partial
// event it blocks until the runner signals that the event was persisted.
// Temp keys stay staged for the rest of the invocation.
func (ic *InvocationContext) EmitEvent(ev Event) error {
	if ev.ID == "" {
		ev.ID = NewEventID()
	}
	if ev.InvocationID == "" {
		ev.InvocationID = ic.InvocationID
	}
	if ev.Author == "" {
		ev.Author = ic.Agent.Name
	}
	if ev.Branch == "" {
		ev.Branch = ic.Branch
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	if !ev.Partial {
		ev.Actions = ic.takeStaged(ev.Actions)
		ic.Session.ApplyStateDelta(ev.Actions.StateDelta)
		ic.Session.AddEvent(ev)
	}

	return ic.Forward(ev)
}

// takeStaged returns own merged over the staged buffers and clears them.
func (ic *InvocationContext) takeStaged(own EventActions) EventActions {
	merged := EventActions{}
	temp := map[string]any{}
	if len(ic.StateDelta) > 0 {
		merged.StateDelta = map[string]any{}
		for k, v := range ic.StateDelta {
			if strings.HasPrefix(k, TempPrefix) {
				temp[k] = v
				continue
			}
			merged.StateDelta[k] = v
		}
		if len(merged.StateDelta) == 0 {
			merged.StateDelta = nil
		}
	}
	if len(ic.ArtifactDelta) > 0 {
		merged.ArtifactDelta = maps.Clone(ic.ArtifactDelta)
	}
	merged.Merge(own)
	ic.StateDelta = temp
	ic.ArtifactDelta = map[string]int{}
	return merged
}

// Forward sends ev unchanged. After a non-partial event it waits for the
// resume signal. Composite agents use it to relay events of child contexts.
func (ic *InvocationContext) Forward(ev Event) error {
	if ic.Emit == nil {
		return fmt.Errorf("emit channel: %w", ErrNotConfigured)
	}
	select {
	case <-ic.Context.Done():
		return ic.Context.Err()
	case ic.Emit <- ev:
	}
	if ev.Partial {
		return nil
	}
	return ic.WaitForResume()
}

// WaitForResume blocks until the Resume channel signals or the context is
// cancelled. A nil Resume returns immediately.
func (ic *InvocationContext) WaitForResume() error {
	if ic.Resume == nil {
		return nil
	}
	select {
	case <-ic.Resume:
		return nil
	case <-ic.Context.Done():
		return ic.Context.Err()
	}
}

// Clone returns a copy with independent staging buffers. Stores, the session
// snapshot and the limiter are shared.
func (ic *InvocationContext) Clone() *InvocationContext {
	c := *ic
	c.StateDelta = maps.Clone(ic.StateDelta)
	c.ArtifactDelta = maps.Clone(ic.ArtifactDelta)
	if c.StateDelta == nil {
		c.StateDelta = map[string]any{}
	}
	if c.ArtifactDelta == nil {
		c.ArtifactDelta = map[string]int{}
	}
	c.resetLogger(ic.Logger())
	return &c
}

// WithAgent clones the context for running agent a.
func (ic *InvocationContext) WithAgent(info AgentInfo) *InvocationContext {
	c := ic.Clone()
	c.Agent = info
	c.resetLogger(ic.Logger())
	return c
}

// WithBranch clones the context and sets the branch label.
func (ic *InvocationContext) WithBranch(b string) *InvocationContext {
	c := ic.Clone()
	c.Branch = b
	c.resetLogger(ic.Logger())
	return c
}

// WithContext clones the context replacing the cancellation context.
func (ic *InvocationContext) WithContext(ctx context.Context) *InvocationContext {
	c := ic.Clone()
	c.Context = ctx
	return c
}

// NewChildContext derives a context whose events go to emit and whose resume
// signals come from resume. Staging buffers start empty; a non-empty branch
// replaces the current one.
func (ic *InvocationContext) NewChildContext(ctx context.Context, emit chan<- Event, resume <-chan struct{}, branch string) *InvocationContext {
	c := ic.Clone()
	if ctx != nil {
		c.Context = ctx
	}
	c.Emit = emit
	c.Resume = resume
	c.StateDelta = map[string]any{}
	c.ArtifactDelta = map[string]int{}
	if branch != "" {
		c.Branch = branch
	}
	c.resetLogger(ic.Logger())
	return c
}

// RefreshSession reloads the session snapshot from the SessionStore. The
// snapshot is updated in place so every context sharing it sees the result.
func (ic *InvocationContext) RefreshSession() error {
	if ic.SessionStore == nil {
		return nil
	}
	s, err := ic.SessionStore.Get(ic.Context, ic.SessionKey())
	if err != nil {
		return err
	}
	ic.Session.Replace(s)
	return nil
}

// SaveArtifact stores a new artifact version and stages it for the next event.
func (ic *InvocationContext) SaveArtifact(name string, art Artifact) (int, error) {
	if ic.ArtifactStore == nil {
		return 0, fmt.Errorf("artifact store: %w", ErrNotConfigured)
	}
	v, err := ic.ArtifactStore.Save(ic.Context, ic.artifactKey(name), art)
	if err != nil {
		return 0, err
	}
	ic.ArtifactDelta[name] = v
	return v, nil
}

// LoadArtifact loads a version of a session artifact; version <= 0 is latest.
func (ic *InvocationContext) LoadArtifact(name string, version int) (Artifact, error) {
	if ic.ArtifactStore == nil {
		return Artifact{}, fmt.Errorf("artifact store: %w", ErrNotConfigured)
	}
	return ic.ArtifactStore.Load(ic.Context, ic.artifactKey(name), version)
}

// ListArtifacts returns artifact names stored for the session.
func (ic *InvocationContext) ListArtifacts() ([]string, error) {
	if ic.ArtifactStore == nil {
		return []string{}, nil
	}
	return ic.ArtifactStore.List(ic.Context, ic.AppName(), ic.UserID(), ic.SessionID())
}

// SearchMemory queries the memory store for the current user.
func (ic *InvocationContext) SearchMemory(query string, limit int) ([]MemoryEntry, error) {
	if ic.MemoryStore == nil {
		return []MemoryEntry{}, nil
	}
	return ic.MemoryStore.Search(ic.Context, ic.AppName(), ic.UserID(), query, limit)
}

func (ic *InvocationContext) artifactKey(name string) ArtifactKey {
	return ArtifactKey{AppName: ic.AppName(), UserID: ic.UserID(), SessionID: ic.SessionID(), Name: name}
}
