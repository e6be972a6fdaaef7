package core

import (
	"maps"
	"time"

	"github.com/oklog/ulid/v2"
)

// Well-known event authors.
const (
	AuthorUser   = "user"
	AuthorSystem = "system"
)

// EventActions encodes side effects and orchestration signals attached to an
// Event. The runner applies StateDelta when the event is persisted; flows act
// on TransferToAgent and Escalate.
type EventActions struct {
	SkipSummarization bool           `json:"skip_summarization,omitempty"`
	StateDelta        map[string]any `json:"state_delta,omitempty"`
	ArtifactDelta     map[string]int `json:"artifact_delta,omitempty"`
	TransferToAgent   string         `json:"transfer_to_agent,omitempty"`
	Escalate          bool           `json:"escalate,omitempty"`
}

// IsEmpty reports whether no action is set.
func (a EventActions) IsEmpty() bool {
	return !a.SkipSummarization && len(a.StateDelta) == 0 && len(a.ArtifactDelta) == 0 &&
		a.TransferToAgent == "" && !a.Escalate
}

// Merge folds other into a. Map entries from other win; flags are OR-ed and a
// non-empty transfer target replaces the current one.
func (a *EventActions) Merge(other EventActions) {
	if len(other.StateDelta) > 0 {
		if a.StateDelta == nil {
			a.StateDelta = map[string]any{}
		}
		maps.Copy(a.StateDelta, other.StateDelta)
	}
	if len(other.ArtifactDelta) > 0 {
		if a.ArtifactDelta == nil {
			a.ArtifactDelta = map[string]int{}
		}
		maps.Copy(a.ArtifactDelta, other.ArtifactDelta)
	}
	if other.TransferToAgent != "" {
		a.TransferToAgent = other.TransferToAgent
	}
	a.Escalate = a.Escalate || other.Escalate
	a.SkipSummarization = a.SkipSummarization || other.SkipSummarization
}

// Event is the primary unit of communication between agents, the runner and
// external clients. After emission it should be treated as immutable. It
// captures:
//   - Correlation (InvocationID, ID, Author, Branch)
//   - Conversational content (optional role-based Parts)
//   - Orchestration directives (Actions)
//   - Error metadata
//
// Content may be nil for control or error-only events.
type Event struct {
	ID           string       `json:"id"`
	InvocationID string       `json:"invocation_id"`
	Author       string       `json:"author"`
	Branch       string       `json:"branch,omitempty"`
	Content      *Content     `json:"content,omitempty"`
	Actions      EventActions `json:"actions"`
	Partial      bool         `json:"partial,omitempty"`
	TurnComplete bool         `json:"turn_complete,omitempty"`
	ErrorCode    string       `json:"error_code,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// NewEvent creates a bare event authored by author bound to an invocation.
func NewEvent(invocationID, author string) Event {
	return Event{
		ID:           NewEventID(),
		InvocationID: invocationID,
		Author:       author,
		Timestamp:    time.Now().UTC(),
	}
}

// NewMessageEvent creates an assistant message event with a single text part.
func NewMessageEvent(invocationID, author, message string) Event {
	e := NewEvent(invocationID, author)
	e.Content = NewTextContent(RoleAssistant, message)
	return e
}

// NewUserContentEvent creates a user-authored event carrying content.
func NewUserContentEvent(invocationID string, content Content) Event {
	e := NewEvent(invocationID, AuthorUser)
	c := content
	if c.Role == "" {
		c.Role = RoleUser
	}
	e.Content = &c
	return e
}

// NewErrorEvent records a failure attributed to author.
func NewErrorEvent(invocationID, author, code string, err error) Event {
	e := NewEvent(invocationID, author)
	e.ErrorCode = code
	if err != nil {
		e.ErrorMessage = err.Error()
	}
	return e
}

// NewEventID returns a lexicographically sortable unique event id.
func NewEventID() string { return ulid.Make().String() }

// FunctionCalls returns the function call parts of the event in order.
func (e Event) FunctionCalls() []FunctionCall {
	if e.Content == nil {
		return nil
	}
	var calls []FunctionCall
	for _, p := range e.Content.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// FunctionResponses returns the function response parts of the event in order.
func (e Event) FunctionResponses() []FunctionResponse {
	if e.Content == nil {
		return nil
	}
	var responses []FunctionResponse
	for _, p := range e.Content.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// Text concatenates the text parts of the event content.
func (e Event) Text() string {
	if e.Content == nil {
		return ""
	}
	return e.Content.Text()
}

// IsFinalResponse reports whether the event closes an agent turn: it is not
// partial and carries no pending function calls or responses.
func (e Event) IsFinalResponse() bool {
	if e.Actions.SkipSummarization {
		return true
	}
	return !e.Partial && len(e.FunctionCalls()) == 0 && len(e.FunctionResponses()) == 0
}

// IsError reports whether the event records a failure.
func (e Event) IsError() bool { return e.ErrorCode != "" }

// Clone returns a copy with independent action maps and content parts.
func (e Event) Clone() Event {
	c := e
	if e.Content != nil {
		cc := e.Content.Clone()
		c.Content = &cc
	}
	if e.Actions.StateDelta != nil {
		c.Actions.StateDelta = maps.Clone(e.Actions.StateDelta)
	}
	if e.Actions.ArtifactDelta != nil {
		c.Actions.ArtifactDelta = maps.Clone(e.Actions.ArtifactDelta)
	}
	return c
}
