// Package studybuddy is the study assistant demo. One agent tracks courses,
// assignments and study sessions in session state through tools. A Buddy
// resumes the first existing session of the student or starts a new one.
package studybuddy

import (
	"context"
	"fmt"
	"strings"

	"github.com/seobando/agentkit/agent"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/runner"
)

const (
	// AppName is the application name of study sessions.
	AppName = "SimpleStudyBuddy"
	// AgentName is the name of the study agent.
	AgentName = "StudyBuddy"
	// DefaultUser is the user of the CLI demo.
	DefaultUser = "student"
	// FallbackReply is returned when a turn produces no text.
	FallbackReply = "I'm having trouble understanding. Can you rephrase?"
)

const instruction = `You are a friendly study assistant helping {student_name} manage their academic life.

Current Status:
- Student: {student_name}
- Learning Style: {learning_style}
- Total Study Time: {total_study_minutes} minutes

You can help with:
- Course management: add_course(name, instructor), view_courses()
- Assignment tracking: add_assignment(course_name, title, due_date), view_assignments(status_filter), complete_assignment(title)
- Study logging: log_study_session(subject, duration_minutes, notes), view_study_stats()

When users ask to:
- "Add course Math with Dr. Smith": call add_course("Math", "Dr. Smith")
- "Show my courses": call view_courses()
- "Add assignment homework for Math due tomorrow": call add_assignment("Math", "homework", "<date>")
- "View assignments": call view_assignments()
- "Complete homework": call complete_assignment("homework")
- "Log 30 minute study session on calculus": call log_study_session("calculus", 30)
- "Show study stats": call view_study_stats()

Always be encouraging and help them stay organized! Provide brief, helpful responses.`

// NewAgent returns the study agent with its tools.
func NewAgent(llm model.Model) *agent.ModelAgent {
	return agent.NewModelAgent(AgentName, llm, func(o *agent.ModelAgentOptions) {
		o.Description = "Personal study assistant"
		o.Instruction = agent.NewInstructionFromText(instruction)
		o.Tools = Tools()
	})
}

// Buddy is one student's conversation with the study agent.
type Buddy struct {
	runner    *runner.Runner
	userID    string
	sessionID string
	resumed   bool
}

// Profile seeds a new session.
type Profile struct {
	Name          string
	LearningStyle string
}

// Open resumes the first session of userID or creates one from profile.
// Session storage comes from the runner options.
func Open(ctx context.Context, llm model.Model, userID string, profile Profile, optFns ...func(o *runner.Options)) (*Buddy, error) {
	r := runner.New(AppName, NewAgent(llm), optFns...)
	store := r.SessionStore()

	existing, err := store.List(ctx, AppName, userID)
	if err != nil {
		return nil, fmt.Errorf("list study sessions: %w", err)
	}
	if len(existing) > 0 {
		return &Buddy{runner: r, userID: userID, sessionID: existing[0].ID, resumed: true}, nil
	}
	sess, err := store.Create(ctx, core.CreateSessionRequest{
		AppName: AppName,
		UserID:  userID,
		State:   InitialState(profile.Name, profile.LearningStyle),
	})
	if err != nil {
		return nil, fmt.Errorf("create study session: %w", err)
	}
	return &Buddy{runner: r, userID: userID, sessionID: sess.ID}, nil
}

// SessionID returns the active session id.
func (b *Buddy) SessionID() string { return b.sessionID }

// Resumed reports whether Open picked up an existing session.
func (b *Buddy) Resumed() bool { return b.resumed }

// Ask sends message to the agent and joins the text of its final responses.
func (b *Buddy) Ask(ctx context.Context, message string) (string, error) {
	events, err := b.runner.RunSync(ctx, b.userID, b.sessionID, *core.NewTextContent(core.RoleUser, message))
	if err != nil {
		return "", err
	}
	var parts []string
	for _, ev := range events {
		if ev.Author == core.AuthorUser || !ev.IsFinalResponse() {
			continue
		}
		if txt := ev.Text(); txt != "" {
			parts = append(parts, txt)
		}
	}
	if len(parts) == 0 {
		return FallbackReply, nil
	}
	return strings.Join(parts, " "), nil
}

// State loads the current session state.
func (b *Buddy) State(ctx context.Context) (State, error) {
	sess, err := b.runner.SessionStore().Get(ctx, core.SessionKey{AppName: AppName, UserID: b.userID, SessionID: b.sessionID})
	if err != nil {
		return State{}, err
	}
	return StateFromMap(sess.StateSnapshot())
}

// Command is a CLI command handled without the model.
type Command int

const (
	CommandNone Command = iota
	CommandHelp
	CommandStatus
	CommandClear
	CommandQuit
)

// ParseCommand recognizes the special CLI commands.
func ParseCommand(input string) Command {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "help", "?":
		return CommandHelp
	case "status", "info":
		return CommandStatus
	case "clear", "cls":
		return CommandClear
	case "quit", "exit", "q":
		return CommandQuit
	default:
		return CommandNone
	}
}
