package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seobando/agentkit"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/demo/guard"
	"github.com/seobando/agentkit/demo/timing"
	"github.com/seobando/agentkit/demo/travel"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/server"
	"github.com/seobando/agentkit/telemetry"
)

func newServeCommand(deps commandDeps) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo agents over HTTP and websocket",
		Example: "  agentkit serve\n" +
			"  agentkit --provider openai serve --addr :9090",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(deps)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if rt.cfg.Telemetry.Tracing {
				shutdown, err := telemetry.Setup(ctx, func(o *telemetry.Options) {
					o.ServiceName = rt.cfg.App.Name
					o.ServiceVersion = deps.build.Version
				})
				if err != nil {
					return mapCommandError(err)
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = shutdown(shutdownCtx)
				}()
			}

			llm, err := rt.newModel(ctx)
			if err != nil {
				return err
			}
			app, stores, err := agentkit.NewFromConfig(rt.cfg, rt.logger)
			if err != nil {
				return mapCommandError(err)
			}
			defer stores.Close()

			agents, err := demoAgents(llm, rt)
			if err != nil {
				return mapCommandError(err)
			}
			if err := app.Register(agents...); err != nil {
				return mapCommandError(err)
			}

			listen := rt.cfg.Server.Addr
			if addr != "" {
				listen = addr
			}
			srv := server.New(app, func(o *server.Options) {
				o.Addr = listen
				o.ReadTimeout = rt.cfg.Server.ReadTimeout.Std()
				o.ShutdownTimeout = rt.cfg.Server.ShutdownTimeout.Std()
				o.Metrics = rt.cfg.Telemetry.Metrics
				o.Logger = rt.logger
			})
			fmt.Fprintf(deps.out, "%s %s\n", labelStyle.Render("serving"), dimStyle.Render(fmt.Sprintf("%v on %s", app.Agents(), listen)))
			return mapCommandError(srv.ListenAndServe(ctx))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address; overrides server.addr")
	return cmd
}

// demoAgents returns the agents served by default. Each gets its own name so
// sessions stay separate per app.
func demoAgents(llm model.Model, rt *runtime) ([]core.Agent, error) {
	planner, err := travel.NewSystem(travel.Models{Default: llm})
	if err != nil {
		return nil, err
	}
	return []core.Agent{
		timing.NewAgent(llm, rt.logger),
		guard.NewAgent(llm, rt.logger),
		planner,
	}, nil
}
