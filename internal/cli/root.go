// Package cli implements the agentkit command line: one subcommand per demo
// agent, a generic chat loop and the development server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type globalOptions struct {
	ConfigPath string
	Provider   string
	Model      string
	LogLevel   string
}

type commandDeps struct {
	out     io.Writer
	build   BuildInfo
	globals *globalOptions
}

func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	globals := &globalOptions{}
	deps := commandDeps{out: out, build: build, globals: globals}

	cmd := &cobra.Command{
		Use:           "agentkit",
		Short:         "Run agentkit demo agents and the development server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&globals.ConfigPath, "config", "", "Path to a TOML or YAML config file")
	flags.StringVar(&globals.Provider, "provider", "", "Model provider: openai, anthropic, gemini or mock")
	flags.StringVar(&globals.Model, "model", "", "Model name passed to the provider")
	flags.StringVar(&globals.LogLevel, "log-level", "", "Log level: debug, info, warn or error")

	cmd.AddCommand(newVersionCommand(deps))
	cmd.AddCommand(newCallbacksCommand(deps))
	cmd.AddCommand(newFilterCommand(deps))
	cmd.AddCommand(newTravelCommand(deps))
	cmd.AddCommand(newContentCommand(deps))
	cmd.AddCommand(newSupportCommand(deps))
	cmd.AddCommand(newSessionsCommand(deps))
	cmd.AddCommand(newRecipesCommand(deps))
	cmd.AddCommand(newStudyCommand(deps))
	cmd.AddCommand(newChatCommand(deps))
	cmd.AddCommand(newServeCommand(deps))
	return cmd
}

func newVersionCommand(deps commandDeps) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				enc := json.NewEncoder(deps.out)
				enc.SetIndent("", "  ")
				return enc.Encode(deps.build)
			}

			_, err := fmt.Fprintf(deps.out, "version=%s commit=%s build_time=%s\n", deps.build.Version, deps.build.Commit, deps.build.BuildTime)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version as JSON")
	return cmd
}
