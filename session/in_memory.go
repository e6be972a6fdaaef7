package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seobando/agentkit/core"
)

var _ core.SessionStore = (*InMemoryStore)(nil)

// InMemoryStore keeps sessions in nested maps guarded by a RWMutex.
//
// Layout: app -> user -> sessionID -> session. App-scoped and user-scoped
// state live in their own maps and are merged into every returned session.
// All returned sessions are deep copies.
type InMemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]map[string]map[string]*core.Session
	appState  map[string]map[string]any
	userState map[string]map[string]map[string]any
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:  make(map[string]map[string]map[string]*core.Session),
		appState:  make(map[string]map[string]any),
		userState: make(map[string]map[string]map[string]any),
	}
}

// Create registers a new session. Initial state is split by key prefix.
func (s *InMemoryStore) Create(_ context.Context, req core.CreateSessionRequest) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := s.lookup(req.AppName, req.UserID, id); ok {
		return nil, fmt.Errorf("create session %s: %w", id, core.ErrSessionExists)
	}

	sess := core.NewSession(core.SessionKey{AppName: req.AppName, UserID: req.UserID, SessionID: id})
	s.applyLocked(sess, req.State)

	users, ok := s.sessions[req.AppName]
	if !ok {
		users = make(map[string]map[string]*core.Session)
		s.sessions[req.AppName] = users
	}
	byID, ok := users[req.UserID]
	if !ok {
		byID = make(map[string]*core.Session)
		users[req.UserID] = byID
	}
	byID[id] = sess

	return s.viewLocked(sess, true), nil
}

// Get returns a copy of the session with merged app and user state.
func (s *InMemoryStore) Get(_ context.Context, key core.SessionKey) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.lookup(key.AppName, key.UserID, key.SessionID)
	if !ok {
		return nil, fmt.Errorf("get session %s: %w", key.SessionID, core.ErrSessionNotFound)
	}
	return s.viewLocked(sess, true), nil
}

// List returns the sessions of a user ordered by id, without events.
func (s *InMemoryStore) List(_ context.Context, appName, userID string) ([]*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.sessions[appName][userID]
	out := make([]*core.Session, 0, len(byID))
	for _, sess := range byID {
		out = append(out, s.viewLocked(sess, false))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes a session. App and user state are kept.
func (s *InMemoryStore) Delete(_ context.Context, key core.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key.AppName, key.UserID, key.SessionID); !ok {
		return fmt.Errorf("delete session %s: %w", key.SessionID, core.ErrSessionNotFound)
	}
	delete(s.sessions[key.AppName][key.UserID], key.SessionID)
	return nil
}

// AppendEvent applies the event's state delta and records non-partial events.
func (s *InMemoryStore) AppendEvent(_ context.Context, key core.SessionKey, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.lookup(key.AppName, key.UserID, key.SessionID)
	if !ok {
		return fmt.Errorf("append event to session %s: %w", key.SessionID, core.ErrSessionNotFound)
	}
	s.applyLocked(sess, ev.Actions.StateDelta)
	if ev.Partial {
		return nil
	}
	sess.AddEvent(ev.Clone())
	return nil
}

func (s *InMemoryStore) lookup(app, user, id string) (*core.Session, bool) {
	sess, ok := s.sessions[app][user][id]
	return sess, ok
}

// applyLocked routes a delta to the app, user and session scopes.
func (s *InMemoryStore) applyLocked(sess *core.Session, delta map[string]any) {
	if len(delta) == 0 {
		return
	}
	app, user, local := core.SplitStateDelta(delta)
	if len(app) > 0 {
		st, ok := s.appState[sess.AppName]
		if !ok {
			st = make(map[string]any)
			s.appState[sess.AppName] = st
		}
		core.ApplyDelta(st, copyState(app))
	}
	if len(user) > 0 {
		users, ok := s.userState[sess.AppName]
		if !ok {
			users = make(map[string]map[string]any)
			s.userState[sess.AppName] = users
		}
		st, ok := users[sess.UserID]
		if !ok {
			st = make(map[string]any)
			users[sess.UserID] = st
		}
		core.ApplyDelta(st, copyState(user))
	}
	sess.ApplyStateDelta(copyState(local))
}

func (s *InMemoryStore) viewLocked(sess *core.Session, withEvents bool) *core.Session {
	c := sess.Clone()
	c.State = core.MergeState(
		copyState(s.appState[sess.AppName]),
		copyState(s.userState[sess.AppName][sess.UserID]),
		c.State,
	)
	if !withEvents {
		c.Events = []core.Event{}
	}
	if c.LastUpdateTime.IsZero() {
		c.LastUpdateTime = time.Now().UTC()
	}
	return c
}

func copyState(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = core.DeepCopyValue(v)
	}
	return out
}
