package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/demo/content"
	"github.com/seobando/agentkit/demo/guard"
	"github.com/seobando/agentkit/demo/support"
	"github.com/seobando/agentkit/demo/timing"
	"github.com/seobando/agentkit/demo/travel"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/runner"
	"github.com/seobando/agentkit/session"
)

func newCallbacksCommand(deps commandDeps) *cobra.Command {
	var (
		message       string
		useMiddleware bool
	)

	cmd := &cobra.Command{
		Use:   "callbacks",
		Short: "Ask the math tutor and log how long each run takes",
		Example: "  agentkit callbacks\n" +
			"  agentkit callbacks --middleware --message \"What is 7 * 6?\"",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(deps)
			if err != nil {
				return err
			}
			llm, err := rt.newModel(cmd.Context())
			if err != nil {
				return err
			}

			var tutor core.Agent = timing.NewAgent(llm, rt.logger)
			if useMiddleware {
				tutor = timing.NewWrappedAgent(llm, rt.logger)
			}
			r := runner.New(timing.AgentName, tutor, rt.runnerOptions)

			printHeading(deps.out, "Math Tutor")
			fmt.Fprintf(deps.out, "User: %s\n\n", message)
			events, err := r.RunSync(cmd.Context(), rt.cfg.App.UserID, "", *core.NewTextContent(core.RoleUser, message))
			if err != nil {
				return mapCommandError(err)
			}
			fmt.Fprintf(deps.out, "%s %s\n", labelStyle.Render("Math Tutor:"), finalText(events))
			return nil
		},
	}

	cmd.Flags().StringVar(&message, "message", "What is 2 + 2?", "Question for the tutor")
	cmd.Flags().BoolVar(&useMiddleware, "middleware", false, "Time the run with agent middleware instead of callbacks")
	return cmd
}

func newFilterCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter [message...]",
		Short: "Chat with a bot that refuses math questions",
		Example: "  agentkit filter\n" +
			"  agentkit filter \"Tell me a joke\" \"What is 3 times 4?\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"Hello, how are you?", "Can you help me calculate 15 + 25?"}
			}
			rt, err := loadRuntime(deps)
			if err != nil {
				return err
			}
			llm, err := rt.newModel(cmd.Context())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			r := runner.New(guard.AgentName, guard.NewAgent(llm, rt.logger), rt.runnerOptions)
			sess, err := newSession(ctx, r, rt.cfg.App.UserID, nil)
			if err != nil {
				return err
			}

			printHeading(deps.out, "Filtered Chatbot")
			for i, msg := range args {
				printSection(deps.out, fmt.Sprintf("Message %d", i+1), "User: "+msg)
				events, err := r.RunSync(ctx, rt.cfg.App.UserID, sess.ID, *core.NewTextContent(core.RoleUser, msg))
				if err != nil {
					return mapCommandError(err)
				}
				fmt.Fprintf(deps.out, "%s %s\n", labelStyle.Render("Response:"), finalText(events))
			}
			return nil
		},
	}
	return cmd
}

func newTravelCommand(deps commandDeps) *cobra.Command {
	var request string

	cmd := &cobra.Command{
		Use:   "travel",
		Short: "Plan a trip with the research, itinerary and optimizer pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(deps)
			if err != nil {
				return err
			}
			llm, err := rt.newModel(cmd.Context())
			if err != nil {
				return err
			}
			system, err := travel.NewSystem(travel.Models{Default: llm})
			if err != nil {
				return mapCommandError(err)
			}

			ctx := cmd.Context()
			r := runner.New(travel.Name, system, rt.runnerOptions)
			sess, err := newSession(ctx, r, rt.cfg.App.UserID, nil)
			if err != nil {
				return err
			}

			printHeading(deps.out, "Travel Planning System")
			fmt.Fprintf(deps.out, "User Request: %s\n", request)
			events, err := r.RunSync(ctx, rt.cfg.App.UserID, sess.ID, *core.NewTextContent(core.RoleUser, request))
			if err != nil {
				return mapCommandError(err)
			}

			plan := finalText(events)
			if stored, err := r.SessionStore().Get(ctx, sess.Key()); err == nil {
				if v, ok := stored.GetState(travel.PlanKey); ok {
					if s, ok := v.(string); ok && s != "" {
						plan = s
					}
				}
			}
			printSection(deps.out, "FINAL TRAVEL PLAN", plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&request, "request", "Plan a 5-day trip to Tokyo, Japan for a family with kids", "Trip request")
	return cmd
}

func newContentCommand(deps commandDeps) *cobra.Command {
	var (
		topic   string
		timeout time.Duration
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "content",
		Short: "Draft blog, SEO, visual, social and email content in parallel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(deps)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			models := make(map[string]model.Model, len(content.Specialists))
			for _, s := range content.Specialists {
				m, err := rt.newModel(ctx)
				if err != nil {
					return err
				}
				models[s.Name] = m
			}
			system, err := content.NewSystem(func(s content.Specialist) model.Model { return models[s.Name] }, timeout)
			if err != nil {
				return mapCommandError(err)
			}

			r := runner.New(content.Name, system, rt.runnerOptions)
			sess, err := newSession(ctx, r, rt.cfg.App.UserID, nil)
			if err != nil {
				return err
			}

			printHeading(deps.out, "Content Creation")
			fmt.Fprintf(deps.out, "Creating content for: %q\n", topic)
			if _, err := r.RunSync(ctx, rt.cfg.App.UserID, sess.ID, *core.NewTextContent(core.RoleUser, topic)); err != nil {
				return mapCommandError(err)
			}
			stored, err := r.SessionStore().Get(ctx, sess.Key())
			if err != nil {
				return mapCommandError(err)
			}

			results := content.Gather(stored.StateSnapshot())
			for _, sec := range results.Sections {
				body := sec.Text
				if limit > 0 {
					body = truncate(body, limit)
				}
				printSection(deps.out, sec.Title, body)
			}
			if !results.Complete() {
				fmt.Fprintln(deps.out, dimStyle.Render("\nsome specialists did not finish"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "sustainable fashion for millennials", "Content topic")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Deadline for all specialists; 0 disables it")
	cmd.Flags().IntVar(&limit, "limit", 500, "Truncate each section to this many characters; 0 prints everything")
	return cmd
}

func newSupportCommand(deps commandDeps) *cobra.Command {
	var question string

	cmd := &cobra.Command{
		Use:   "support",
		Short: "Answer a customer and merge the structured reply into session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(deps)
			if err != nil {
				return err
			}
			llm, err := rt.newModel(cmd.Context())
			if err != nil {
				return err
			}
			a, err := support.NewAgent(llm)
			if err != nil {
				return mapCommandError(err)
			}

			ctx := cmd.Context()
			r := runner.New(support.AppName, a, rt.runnerOptions)
			sess, err := newSession(ctx, r, support.CustomerID, support.InitialState())
			if err != nil {
				return err
			}

			printHeading(deps.out, "TechStore Support")
			if err := printJSON(deps, "Initial state", sess.StateSnapshot()); err != nil {
				return err
			}
			fmt.Fprintf(deps.out, "\nCustomer: %s\n", question)
			events, err := r.RunSync(ctx, support.CustomerID, sess.ID, *core.NewTextContent(core.RoleUser, question))
			if err != nil {
				return mapCommandError(err)
			}
			fmt.Fprintf(deps.out, "%s %s\n", labelStyle.Render("Agent:"), finalText(events))

			if _, err := support.MergeStructuredOutput(ctx, r.SessionStore(), sess.Key()); err != nil {
				return mapCommandError(err)
			}
			stored, err := r.SessionStore().Get(ctx, sess.Key())
			if err != nil {
				return mapCommandError(err)
			}
			return printJSON(deps, "Final state", stored.StateSnapshot())
		},
	}

	cmd.Flags().StringVar(&question, "question", support.Question, "Customer question")
	return cmd
}

func newSessionsCommand(deps commandDeps) *cobra.Command {
	var appName string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Create, inspect and delete an in-memory session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store := session.NewInMemoryStore()
			sess, err := store.Create(ctx, core.CreateSessionRequest{
				AppName: appName,
				UserID:  "user" + uuid.NewString(),
				State:   map[string]any{"initial_key": "Hello World for State!"},
			})
			if err != nil {
				return mapCommandError(err)
			}

			printHeading(deps.out, "Examining Session Properties")
			state, err := json.Marshal(sess.StateSnapshot())
			if err != nil {
				return err
			}
			fmt.Fprintf(deps.out, "ID (id):                         %s\n", sess.ID)
			fmt.Fprintf(deps.out, "Application Name (app_name):     %s\n", sess.AppName)
			fmt.Fprintf(deps.out, "User ID (user_id):               %s\n", sess.UserID)
			fmt.Fprintf(deps.out, "State (state):                   %s\n", state)
			fmt.Fprintf(deps.out, "Events (events):                 %d\n", len(sess.GetEvents()))
			fmt.Fprintf(deps.out, "Last Update (last_update_time):  %s\n", sess.LastUpdateTime.Format(time.RFC3339))

			if err := store.Delete(ctx, sess.Key()); err != nil {
				return mapCommandError(err)
			}
			remaining, err := store.List(ctx, sess.AppName, sess.UserID)
			if err != nil {
				return mapCommandError(err)
			}
			fmt.Fprintf(deps.out, "\nDeleted session %s, %d remaining\n", sess.ID, len(remaining))
			return nil
		},
	}

	cmd.Flags().StringVar(&appName, "app", "my_app", "App name for the session")
	return cmd
}

func printJSON(deps commandDeps, title string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	printSection(deps.out, title, string(b))
	return nil
}
