package core

import (
	"encoding/json"
	"maps"
	"strings"
	"sync"
	"time"
)

// State key prefixes. Keys without a prefix belong to a single session.
const (
	// AppPrefix scopes a key to every session of an app.
	AppPrefix = "app:"
	// UserPrefix scopes a key to every session of one user within an app.
	UserPrefix = "user:"
	// TempPrefix marks a key that lives only for the current invocation and is
	// never persisted.
	TempPrefix = "temp:"
)

// SessionKey addresses a session.
type SessionKey struct {
	AppName   string `json:"app_name"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Session represents a conversational container tracking mutable key/value
// state plus an ordered event history. It is safe for concurrent access.
//
// Contract:
//   - State mutations update LastUpdateTime
//   - Events returns a defensive copy
//   - Clone performs deep copies of maps and slices
type Session struct {
	ID             string         `json:"id"`
	AppName        string         `json:"app_name"`
	UserID         string         `json:"user_id"`
	State          map[string]any `json:"state"`
	Events         []Event        `json:"events"`
	LastUpdateTime time.Time      `json:"last_update_time"`
	mu             sync.RWMutex
}

// NewSession creates an empty session for key.
func NewSession(key SessionKey) *Session {
	return &Session{
		ID:             key.SessionID,
		AppName:        key.AppName,
		UserID:         key.UserID,
		State:          map[string]any{},
		Events:         []Event{},
		LastUpdateTime: time.Now().UTC(),
	}
}

// Key returns the address of the session.
func (s *Session) Key() SessionKey {
	return SessionKey{AppName: s.AppName, UserID: s.UserID, SessionID: s.ID}
}

// GetState returns the value and existence flag for a state key.
func (s *Session) GetState(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.State[key]
	return v, ok
}

// StateSnapshot returns a shallow copy of the state map.
func (s *Session) StateSnapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.State)
}

// ApplyStateDelta merges delta into State. Temp keys are skipped and a nil
// value deletes the key.
func (s *Session) ApplyStateDelta(delta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == nil {
		s.State = map[string]any{}
	}
	for k, v := range delta {
		if strings.HasPrefix(k, TempPrefix) {
			continue
		}
		if v == nil {
			delete(s.State, k)
			continue
		}
		s.State[k] = v
	}
	s.LastUpdateTime = time.Now().UTC()
}

// AddEvent appends an event to the history.
func (s *Session) AddEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, ev)
	if ev.Timestamp.After(s.LastUpdateTime) {
		s.LastUpdateTime = ev.Timestamp
	} else {
		s.LastUpdateTime = time.Now().UTC()
	}
}

// GetEvents returns a defensive copy of the event history.
func (s *Session) GetEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.Events...)
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := &Session{
		ID:             s.ID,
		AppName:        s.AppName,
		UserID:         s.UserID,
		State:          make(map[string]any, len(s.State)),
		Events:         make([]Event, len(s.Events)),
		LastUpdateTime: s.LastUpdateTime,
	}
	for k, v := range s.State {
		c.State[k] = DeepCopyValue(v)
	}
	for i, ev := range s.Events {
		c.Events[i] = ev.Clone()
	}
	return c
}

// Replace overwrites the state and history of s with a deep copy of from.
// Contexts holding s observe the update.
func (s *Session) Replace(from *Session) {
	c := from.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = c.State
	s.Events = c.Events
	s.LastUpdateTime = c.LastUpdateTime
}

// SplitStateDelta partitions a delta into app, user and session scopes. App
// and user keys keep their prefix stripped; temp keys are dropped.
func SplitStateDelta(delta map[string]any) (app, user, sess map[string]any) {
	app, user, sess = map[string]any{}, map[string]any{}, map[string]any{}
	for k, v := range delta {
		switch {
		case strings.HasPrefix(k, TempPrefix):
		case strings.HasPrefix(k, AppPrefix):
			app[strings.TrimPrefix(k, AppPrefix)] = v
		case strings.HasPrefix(k, UserPrefix):
			user[strings.TrimPrefix(k, UserPrefix)] = v
		default:
			sess[k] = v
		}
	}
	return app, user, sess
}

// MergeState builds the state view of a session from its scopes.
func MergeState(app, user, sess map[string]any) map[string]any {
	merged := make(map[string]any, len(app)+len(user)+len(sess))
	maps.Copy(merged, sess)
	for k, v := range app {
		merged[AppPrefix+k] = v
	}
	for k, v := range user {
		merged[UserPrefix+k] = v
	}
	return merged
}

// ApplyDelta merges delta into dst, deleting keys whose value is nil.
func ApplyDelta(dst, delta map[string]any) {
	for k, v := range delta {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}

// DeepCopyValue copies JSON-shaped values (maps, slices) recursively. Other
// values are returned as is.
func DeepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = DeepCopyValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = DeepCopyValue(vv)
		}
		return s
	case json.RawMessage:
		return append(json.RawMessage(nil), t...)
	default:
		return v
	}
}
