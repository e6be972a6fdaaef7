// Package recipes is the persistent recipe assistant demo. The agent manages
// a recipe collection in session state through tools, and a SQLite Store
// keeps the collection and the conversation across restarts.
package recipes

import (
	"context"
	"fmt"

	"github.com/seobando/agentkit/agent"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/runner"
)

const (
	// AppName is the application name used for sessions and stored state.
	AppName = "Personal Recipe Assistant"
	// AgentName is the name of the recipe agent.
	AgentName = "recipe_agent"
	// DefaultUser is the user of the CLI demo.
	DefaultUser = "alice"
)

const instruction = `You help users manage their personal recipe collection. You can add, view, search, and delete recipes.

When the user wants to:
  - Add a recipe: call add_recipe(name, ingredients, instructions, cook_time)
  - View all recipes: call view_recipes()
  - Get a specific recipe: call get_recipe(name)
  - Delete a recipe: call delete_recipe(name)
  - Search by ingredient: call search_recipes(ingredient)

Always be friendly and helpful. Suggest recipe ideas if asked. Confirm actions taken.

Current state:
- chef_name: {chef_name}
- total_recipes: {total_recipes}
- recipes: {recipes}`

// NewAgent returns the recipe agent with its tools.
func NewAgent(llm model.Model) *agent.ModelAgent {
	return agent.NewModelAgent(AgentName, llm, func(o *agent.ModelAgentOptions) {
		o.Description = "Personal recipe collection assistant"
		o.Instruction = agent.NewInstructionFromText(instruction)
		o.Tools = Tools()
	})
}

// Assistant runs the recipe agent for one user. Each turn is recorded in the
// Store and the resulting collection is saved there.
type Assistant struct {
	runner    *runner.Runner
	store     *Store
	userID    string
	sessionID string
}

// NewAssistant starts a session for userID seeded with the stored collection.
func NewAssistant(ctx context.Context, llm model.Model, store *Store, userID string, optFns ...func(o *runner.Options)) (*Assistant, error) {
	st, err := store.GetState(ctx, userID, AppName)
	if err != nil {
		return nil, err
	}
	initial, err := st.Map()
	if err != nil {
		return nil, err
	}
	r := runner.New(AppName, NewAgent(llm), optFns...)
	sess, err := r.SessionStore().Create(ctx, core.CreateSessionRequest{AppName: AppName, UserID: userID, State: initial})
	if err != nil {
		return nil, fmt.Errorf("create recipe session: %w", err)
	}
	return &Assistant{runner: r, store: store, userID: userID, sessionID: sess.ID}, nil
}

// SessionID returns the id of the running session.
func (a *Assistant) SessionID() string { return a.sessionID }

// Ask sends text to the agent and returns its final answer.
func (a *Assistant) Ask(ctx context.Context, text string) (string, error) {
	if _, err := a.store.AddMessage(ctx, a.userID, AppName, core.RoleUser, text); err != nil {
		return "", err
	}
	events, err := a.runner.RunSync(ctx, a.userID, a.sessionID, *core.NewTextContent(core.RoleUser, text))
	if err != nil {
		return "", err
	}
	reply := FinalText(events)

	st, err := a.State(ctx)
	if err != nil {
		return "", err
	}
	if err := a.store.SaveState(ctx, a.userID, AppName, st); err != nil {
		return "", err
	}
	if reply != "" {
		if _, err := a.store.AddMessage(ctx, a.userID, AppName, core.RoleAssistant, reply); err != nil {
			return "", err
		}
	}
	return reply, nil
}

// State returns the collection held by the session.
func (a *Assistant) State(ctx context.Context) (State, error) {
	sess, err := a.runner.SessionStore().Get(ctx, core.SessionKey{AppName: AppName, UserID: a.userID, SessionID: a.sessionID})
	if err != nil {
		return State{}, err
	}
	return StateFromMap(sess.StateSnapshot())
}

// FinalText returns the text of the last final response in events.
func FinalText(events []core.Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].IsFinalResponse() {
			if txt := events[i].Text(); txt != "" {
				return txt
			}
		}
	}
	return ""
}
