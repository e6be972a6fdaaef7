package memory

import (
	"context"
	"sync"

	"github.com/seobando/agentkit/core"
)

var _ core.MemoryStore = (*InMemoryStore)(nil)

// InMemoryStore is a process-local MemoryStore.
//
// Layout: app -> user -> eventID -> entry. Re-adding a session replaces the
// entries of events already indexed. Search is a linear keyword scan and is
// suitable for tests and demos only.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]map[string]core.MemoryEntry
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]map[string]map[string]core.MemoryEntry)}
}

// AddSession indexes the text events of sess.
func (m *InMemoryStore) AddSession(_ context.Context, sess *core.Session) error {
	entries := EntriesFromSession(sess)
	if len(entries) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	users, ok := m.entries[sess.AppName]
	if !ok {
		users = make(map[string]map[string]core.MemoryEntry)
		m.entries[sess.AppName] = users
	}
	byID, ok := users[sess.UserID]
	if !ok {
		byID = make(map[string]core.MemoryEntry)
		users[sess.UserID] = byID
	}
	for _, e := range entries {
		byID[e.ID] = e
	}
	return nil
}

// Search returns entries of the user matching query.
func (m *InMemoryStore) Search(_ context.Context, appName, userID, query string, limit int) ([]core.MemoryEntry, error) {
	m.mu.RLock()
	byID := m.entries[appName][userID]
	candidates := make([]core.MemoryEntry, 0, len(byID))
	for _, e := range byID {
		candidates = append(candidates, e)
	}
	m.mu.RUnlock()
	return Rank(candidates, query, limit), nil
}
