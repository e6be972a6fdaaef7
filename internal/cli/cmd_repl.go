package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seobando/agentkit"
	"github.com/seobando/agentkit/agent"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/demo/recipes"
	"github.com/seobando/agentkit/demo/studybuddy"
	"github.com/seobando/agentkit/runner"
)

type lineReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newLineReader(in io.Reader, out io.Writer) *lineReader {
	return &lineReader{scanner: bufio.NewScanner(in), out: out}
}

// prompt prints p and reads one trimmed line. It reports false at end of input.
func (l *lineReader) prompt(p string) (string, bool) {
	fmt.Fprint(l.out, p)
	if !l.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(l.scanner.Text()), true
}

func newRecipesCommand(deps commandDeps) *cobra.Command {
	var (
		dbPath  string
		userID  string
		history int
	)

	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "Chat with the recipe assistant; the collection is kept in SQLite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if history < 0 {
				return usageErrorf("--history must be >= 0")
			}
			rt, err := loadRuntime(deps)
			if err != nil {
				return err
			}
			llm, err := rt.newModel(cmd.Context())
			if err != nil {
				return err
			}
			store, err := recipes.OpenStore(dbPath, rt.logger)
			if err != nil {
				return mapCommandError(err)
			}
			defer store.Close()

			ctx := cmd.Context()
			assistant, err := recipes.NewAssistant(ctx, llm, store, userID, rt.runnerOptions)
			if err != nil {
				return mapCommandError(err)
			}

			printHeading(deps.out, "🍳 Personal Recipe Assistant ready! (type 'quit' to exit)")
			fmt.Fprintln(deps.out, dimStyle.Render("Try: 'add pasta recipe', 'view recipes', 'search chicken', 'get pasta recipe'"))
			if history > 0 {
				msgs, err := store.History(ctx, userID, recipes.AppName, history)
				if err != nil {
					return mapCommandError(err)
				}
				for _, m := range msgs {
					fmt.Fprintln(deps.out, dimStyle.Render(fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format("2006-01-02 15:04"), m.Role, m.Content)))
				}
			}
			fmt.Fprintln(deps.out)

			lines := newLineReader(cmd.InOrStdin(), deps.out)
			for {
				q, ok := lines.prompt("You: ")
				if !ok || strings.EqualFold(q, "quit") || strings.EqualFold(q, "exit") {
					fmt.Fprintln(deps.out, "Recipe collection saved. Happy cooking! 👋")
					return nil
				}
				if q == "" {
					continue
				}
				reply, err := assistant.Ask(ctx, q)
				if err != nil {
					return mapCommandError(err)
				}
				fmt.Fprintf(deps.out, "\n👩‍🍳 Recipe Assistant: %s\n\n", reply)
			}
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "recipes.db", "SQLite database holding the recipe collection")
	cmd.Flags().StringVar(&userID, "user", recipes.DefaultUser, "User whose collection to load")
	cmd.Flags().IntVar(&history, "history", 0, "Print this many earlier messages on start")
	return cmd
}

func newStudyCommand(deps commandDeps) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "study",
		Short: "Track courses, assignments and study time with the study buddy",
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
			stores, err := agentkit.OpenStores(rt.cfg, rt.logger)
			if err != nil {
				return mapCommandError(err)
			}
			defer stores.Close()

			ctx := cmd.Context()
			lines := newLineReader(cmd.InOrStdin(), deps.out)
			printHeading(deps.out, studybuddy.Header)

			existing, err := stores.Sessions.List(ctx, studybuddy.AppName, userID)
			if err != nil {
				return mapCommandError(err)
			}
			var profile studybuddy.Profile
			if len(existing) == 0 {
				profile = askProfile(lines, deps.out)
			}

			buddy, err := studybuddy.Open(ctx, llm, userID, profile, func(o *runner.Options) {
				rt.runnerOptions(o)
				o.SessionStore = stores.Sessions
			})
			if err != nil {
				return mapCommandError(err)
			}
			if buddy.Resumed() {
				fmt.Fprintf(deps.out, "Welcome back! Resuming session %s\n", buddy.SessionID())
			}

			for {
				input, ok := lines.prompt("\nYou: ")
				if !ok {
					return nil
				}
				switch studybuddy.ParseCommand(input) {
				case studybuddy.CommandQuit:
					fmt.Fprintln(deps.out, "👋 Goodbye! Keep up the great work!")
					return nil
				case studybuddy.CommandHelp:
					fmt.Fprintln(deps.out, studybuddy.Help)
					continue
				case studybuddy.CommandClear:
					fmt.Fprint(deps.out, "\033[H\033[2J")
					printHeading(deps.out, studybuddy.Header)
					continue
				case studybuddy.CommandStatus:
					st, err := buddy.State(ctx)
					if err != nil {
						return mapCommandError(err)
					}
					fmt.Fprintln(deps.out, studybuddy.FormatStatus(st))
					continue
				}
				if input == "" {
					continue
				}
				reply, err := buddy.Ask(ctx, input)
				if err != nil {
					return mapCommandError(err)
				}
				fmt.Fprintf(deps.out, "\n🤖 Study Buddy: %s\n", reply)
			}
		},
	}

	cmd.Flags().StringVar(&userID, "user", studybuddy.DefaultUser, "Student id used to find an earlier session")
	return cmd
}

func askProfile(lines *lineReader, out io.Writer) studybuddy.Profile {
	var p studybuddy.Profile
	p.Name, _ = lines.prompt("Enter your name (or press Enter for 'Student'): ")

	fmt.Fprintln(out, "\nWhat's your learning style?")
	fmt.Fprintln(out, "  1. Visual (diagrams, charts)")
	fmt.Fprintln(out, "  2. Auditory (lectures, discussions)")
	fmt.Fprintln(out, "  3. Kinesthetic (hands-on practice)")
	fmt.Fprintln(out, "  4. Reading/Writing (notes, texts)")
	for {
		choice, ok := lines.prompt("Enter choice (1-4): ")
		if !ok {
			return p
		}
		if style, found := studybuddy.LearningStyles[choice]; found {
			p.LearningStyle = style
			return p
		}
		fmt.Fprintln(out, "Please enter 1, 2, 3, or 4")
	}
}

func newChatCommand(deps commandDeps) *cobra.Command {
	var instruction string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a plain assistant over the configured stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(deps)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			llm, err := rt.newModel(ctx)
			if err != nil {
				return err
			}
			app, stores, err := agentkit.NewFromConfig(rt.cfg, rt.logger)
			if err != nil {
				return mapCommandError(err)
			}
			defer stores.Close()

			assistant := agent.NewModelAgent(rt.cfg.App.Name, llm, func(o *agent.ModelAgentOptions) {
				o.Description = "General purpose assistant"
				o.Instruction = agent.NewInstructionFromText(instruction)
			})
			if err := app.Register(assistant); err != nil {
				return mapCommandError(err)
			}

			userID := rt.cfg.App.UserID
			sess, err := app.Sessions().Create(ctx, core.CreateSessionRequest{AppName: assistant.Name(), UserID: userID})
			if err != nil {
				return mapCommandError(err)
			}

			printHeading(deps.out, assistant.Name())
			fmt.Fprintln(deps.out, dimStyle.Render("Commands: help, status, clear, quit"))
			lines := newLineReader(cmd.InOrStdin(), deps.out)
			for {
				input, ok := lines.prompt("\nYou: ")
				if !ok {
					return nil
				}
				switch strings.ToLower(input) {
				case "":
					continue
				case "quit", "exit", "q":
					fmt.Fprintln(deps.out, "Goodbye!")
					return nil
				case "help", "?":
					fmt.Fprintln(deps.out, "help shows this list, status prints the session, clear starts a new session, quit exits")
					continue
				case "status":
					current, err := app.Sessions().Get(ctx, sess.Key())
					if err != nil {
						return mapCommandError(err)
					}
					fmt.Fprintf(deps.out, "Session %s: %d events, %d state keys\n", current.ID, len(current.GetEvents()), len(current.StateSnapshot()))
					continue
				case "clear":
					sess, err = app.Sessions().Create(ctx, core.CreateSessionRequest{AppName: assistant.Name(), UserID: userID})
					if err != nil {
						return mapCommandError(err)
					}
					fmt.Fprintf(deps.out, "Started session %s\n", sess.ID)
					continue
				}

				events, err := app.InvokeSync(ctx, assistant.Name(), userID, sess.ID, *core.NewTextContent(core.RoleUser, input))
				if err != nil {
					return mapCommandError(err)
				}
				fmt.Fprintf(deps.out, "\n%s %s\n", labelStyle.Render("Assistant:"), finalText(events))
			}
		},
	}

	cmd.Flags().StringVar(&instruction, "instruction", "You are a helpful assistant. Answer clearly and concisely.", "System instruction")
	return cmd
}
