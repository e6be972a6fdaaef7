package artifact

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/seobando/agentkit/core"
)

var _ core.ArtifactStore = (*InMemoryStore)(nil)

type sessionKey struct{ app, user, session string }

// InMemoryStore keeps artifact versions in memory guarded by a RWMutex. Data
// is copied on save and load so callers cannot mutate stored buffers.
//
// Layout: (app, user, session) -> name -> versions, where versions[i] holds
// version i+1.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[sessionKey]map[string][]core.Artifact
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[sessionKey]map[string][]core.Artifact)}
}

func keyOf(k core.ArtifactKey) sessionKey { return sessionKey{k.AppName, k.UserID, k.SessionID} }

// Save appends a new version and returns its number.
func (s *InMemoryStore) Save(_ context.Context, key core.ArtifactKey, art core.Artifact) (int, error) {
	if key.Name == "" {
		return 0, fmt.Errorf("save artifact: empty name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byName, ok := s.artifacts[keyOf(key)]
	if !ok {
		byName = make(map[string][]core.Artifact)
		s.artifacts[keyOf(key)] = byName
	}
	byName[key.Name] = append(byName[key.Name], clone(art))
	return len(byName[key.Name]), nil
}

// Load returns a copy of the given version, or the latest when version <= 0.
func (s *InMemoryStore) Load(_ context.Context, key core.ArtifactKey, version int) (core.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.artifacts[keyOf(key)][key.Name]
	if len(versions) == 0 {
		return core.Artifact{}, fmt.Errorf("load %s: %w", key.Name, ErrArtifactNotFound)
	}
	if version <= 0 {
		version = len(versions)
	}
	if version > len(versions) {
		return core.Artifact{}, fmt.Errorf("load %s version %d: %w", key.Name, version, ErrArtifactNotFound)
	}
	return clone(versions[version-1]), nil
}

// List returns the sorted artifact names of a session.
func (s *InMemoryStore) List(_ context.Context, appName, userID, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byName := s.artifacts[sessionKey{appName, userID, sessionID}]
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes every version of an artifact.
func (s *InMemoryStore) Delete(_ context.Context, key core.ArtifactKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byName := s.artifacts[keyOf(key)]
	if _, ok := byName[key.Name]; !ok {
		return fmt.Errorf("delete %s: %w", key.Name, ErrArtifactNotFound)
	}
	delete(byName, key.Name)
	return nil
}

// Versions lists the stored version numbers in ascending order.
func (s *InMemoryStore) Versions(_ context.Context, key core.ArtifactKey) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.artifacts[keyOf(key)][key.Name])
	if n == 0 {
		return nil, fmt.Errorf("versions of %s: %w", key.Name, ErrArtifactNotFound)
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out, nil
}

func clone(a core.Artifact) core.Artifact {
	return core.Artifact{Data: append([]byte(nil), a.Data...), MIMEType: a.MIMEType}
}
