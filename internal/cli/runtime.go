package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/seobando/agentkit"
	"github.com/seobando/agentkit/config"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/logging"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/runner"
)

var (
	loadConfigFn = config.Load
	newModelFn   = agentkit.NewModel
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

// runtime is the loaded configuration shared by one command invocation.
type runtime struct {
	cfg    config.Config
	logger logging.Logger
}

func loadRuntime(deps commandDeps) (*runtime, error) {
	g := deps.globals
	cfg, err := loadConfigFn(config.LoadOptions{
		ConfigPath: strings.TrimSpace(g.ConfigPath),
		Flags: config.FlagOverrides{
			Provider: &g.Provider,
			Model:    &g.Model,
			LogLevel: &g.LogLevel,
		},
	})
	if err != nil {
		return nil, mapCommandError(fmt.Errorf("load config: %w", err))
	}

	lc := cfg.LoggerConfig()
	lc.Output = deps.out
	return &runtime{cfg: cfg, logger: logging.New(lc)}, nil
}

func (rt *runtime) newModel(ctx context.Context) (model.Model, error) {
	m, err := newModelFn(ctx, rt.cfg.Model, rt.logger)
	if err != nil {
		return nil, mapCommandError(fmt.Errorf("create model: %w", err))
	}
	return m, nil
}

// runnerOptions applies the configured limits and logger to a demo runner.
func (rt *runtime) runnerOptions(o *runner.Options) {
	o.MaxModelCalls = rt.cfg.Model.MaxCalls
	o.Logger = rt.logger
}

// newSession creates a session up front so several turns can share it.
func newSession(ctx context.Context, r *runner.Runner, userID string, state map[string]any) (*core.Session, error) {
	sess, err := r.SessionStore().Create(ctx, core.CreateSessionRequest{
		AppName: r.AppName(),
		UserID:  userID,
		State:   state,
	})
	if err != nil {
		return nil, mapCommandError(fmt.Errorf("create session: %w", err))
	}
	return sess, nil
}

// finalText joins the text of the final responses in events.
func finalText(events []core.Event) string {
	var parts []string
	for _, ev := range events {
		if !ev.IsFinalResponse() {
			continue
		}
		if text := strings.TrimSpace(ev.Text()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

func printHeading(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("=", 60)))
}

func printSection(w io.Writer, title, body string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, labelStyle.Render(title))
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("-", 40)))
	fmt.Fprintln(w, body)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
