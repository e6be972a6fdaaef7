package core

import (
	"context"
	"time"
)

// CreateSessionRequest describes a new session. An empty SessionID lets the
// store generate one.
type CreateSessionRequest struct {
	AppName   string
	UserID    string
	SessionID string
	State     map[string]any
}

// SessionStore persists sessions and their evolving state and event history.
//
// Implementations split state into app, user and session scopes according to
// the key prefix, never persist temp keys, and return sessions that the caller
// may mutate freely.
type SessionStore interface {
	Create(ctx context.Context, req CreateSessionRequest) (*Session, error)
	Get(ctx context.Context, key SessionKey) (*Session, error)
	// List returns the sessions of a user without their events.
	List(ctx context.Context, appName, userID string) ([]*Session, error)
	Delete(ctx context.Context, key SessionKey) error
	// AppendEvent applies the event's state delta and records the event.
	// Partial events only update state.
	AppendEvent(ctx context.Context, key SessionKey, ev Event) error
}

// ArtifactKey addresses every version of a named artifact.
type ArtifactKey struct {
	AppName   string
	UserID    string
	SessionID string
	Name      string
}

// Artifact is a binary blob with a MIME type.
type Artifact struct {
	Data     []byte
	MIMEType string
}

// ArtifactStore persists versioned binary artifacts. Versions start at 1.
type ArtifactStore interface {
	// Save stores a new version and returns its number.
	Save(ctx context.Context, key ArtifactKey, art Artifact) (int, error)
	// Load returns the given version, or the latest when version <= 0.
	Load(ctx context.Context, key ArtifactKey, version int) (Artifact, error)
	// List returns artifact names stored for a session, sorted.
	List(ctx context.Context, appName, userID, sessionID string) ([]string, error)
	Delete(ctx context.Context, key ArtifactKey) error
	Versions(ctx context.Context, key ArtifactKey) ([]int, error)
}

// MemoryEntry is a recalled piece of past conversation.
type MemoryEntry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// MemoryStore ingests finished sessions and answers keyword recall queries
// scoped to one user of one app.
type MemoryStore interface {
	AddSession(ctx context.Context, sess *Session) error
	Search(ctx context.Context, appName, userID, query string, limit int) ([]MemoryEntry, error)
}
