package testutil

import (
	"github.com/seobando/agentkit/core"
)

// SessionBuilder helps construct sessions in tests.
//
//	sess := NewSessionBuilder("sess-1").State("k", "v").Events(ev1, ev2).Build()
type SessionBuilder struct {
	key    core.SessionKey
	state  map[string]any
	events []core.Event
}

// NewSessionBuilder creates a builder for session id in app "app" owned by
// user "user".
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{
		key:   core.SessionKey{AppName: "app", UserID: "user", SessionID: id},
		state: map[string]any{},
	}
}

// App sets the app name.
func (b *SessionBuilder) App(name string) *SessionBuilder { b.key.AppName = name; return b }

// User sets the user id.
func (b *SessionBuilder) User(id string) *SessionBuilder { b.key.UserID = id; return b }

// State sets a state value.
func (b *SessionBuilder) State(key string, val any) *SessionBuilder {
	b.state[key] = val
	return b
}

// Event appends one event to the history.
func (b *SessionBuilder) Event(ev core.Event) *SessionBuilder {
	b.events = append(b.events, ev)
	return b
}

// Events appends several events to the history.
func (b *SessionBuilder) Events(evs ...core.Event) *SessionBuilder {
	b.events = append(b.events, evs...)
	return b
}

// Build returns the session.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.key)
	for k, v := range b.state {
		s.State[k] = v
	}
	for _, ev := range b.events {
		s.AddEvent(ev)
	}
	return s
}
