package core

import "errors"

var (
	// ErrSessionNotFound is returned by session stores for unknown keys.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when creating a session with a taken id.
	ErrSessionExists = errors.New("session already exists")
	// ErrAgentNotFound is returned when a transfer target cannot be resolved.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrAgentHasParent is returned when attaching an agent that already belongs to another parent.
	ErrAgentHasParent = errors.New("agent already has a parent")
	// ErrModelCallLimitExceeded is returned once an invocation exceeds its model call budget.
	ErrModelCallLimitExceeded = errors.New("model call limit exceeded")
	// ErrMissingStateKey is returned when an instruction references an unset state key.
	ErrMissingStateKey = errors.New("missing state key")
	// ErrNotConfigured is returned when an optional store is used but absent.
	ErrNotConfigured = errors.New("service not configured")
)
