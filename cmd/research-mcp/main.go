// Command research-mcp serves the research tools over MCP (stdio) and,
// optionally, HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/upb/research-mcp/app"
	"github.com/upb/research-mcp/config"
	"github.com/upb/research-mcp/internal/observability"
	"github.com/upb/research-mcp/routes"
	"github.com/upb/research-mcp/services/providers"
	"github.com/upb/research-mcp/services/tools"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// globalOptions are shared by every command that needs the application.
type globalOptions struct {
	envFile     string
	routingPath string
}

type serveOptions struct {
	stdio    bool
	httpAddr string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "research-mcp",
		Short: "MCP server that routes research tasks to OpenRouter models",
		Long: `research-mcp exposes list_models, validate_model, route_chat and cost_estimate
as MCP tools. route_chat picks the model configured for a task and falls back
to the first available alternative when it is missing upstream.`,
		Version:      app.Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Environment file to load")
	rootCmd.PersistentFlags().StringVar(&opts.routingPath, "routing", "", "Routing table (overrides ROUTING_CONFIG)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newRouteCmd(opts),
		newModelsCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newServeCmd(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio and, optionally, HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(ctx, global)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.Server.HTTPAddr = opts.httpAddr
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("config validation failed: %w", err)
				}
			}
			if !opts.stdio && !cfg.Server.HTTPEnabled() {
				return errors.New("nothing to serve: enable --stdio or set --http-addr")
			}

			logger, err := initLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			deps, err := app.NewDependencies(ctx, cfg, logger)
			if err != nil {
				logger.Error("failed to initialize dependencies", zap.Error(err))
				return err
			}
			defer func() { _ = deps.Close(context.Background()) }()

			var in io.Reader
			if opts.stdio {
				in = cmd.InOrStdin()
			}
			return runServe(ctx, deps, in, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.stdio, "stdio", true, "Serve MCP on stdin/stdout")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "", "HTTP listen address (overrides SERVER_HTTP_ADDR)")
	return cmd
}

// runServe runs the stdio transport when in is non-nil and the HTTP transport
// when configured. Closing stdin or cancelling ctx stops both.
func runServe(ctx context.Context, deps *app.Dependencies, in io.Reader, out io.Writer) error {
	var listener net.Listener
	if deps.Config.Server.HTTPEnabled() {
		var err error
		listener, err = net.Listen("tcp", deps.Config.Server.HTTPAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", deps.Config.Server.HTTPAddr, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if in != nil {
		g.Go(func() error {
			defer cancel()
			return deps.MCP.Serve(ctx, in, out)
		})
	}

	if listener != nil {
		srv := &http.Server{
			Handler:      routes.SetupRoutes(deps),
			ReadTimeout:  deps.Config.Server.ReadTimeout,
			WriteTimeout: deps.Config.Server.WriteTimeout,
		}

		g.Go(func() error {
			deps.Logger.Info("http server listening", zap.String("addr", listener.Addr().String()))
			if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), deps.Config.Server.ShutdownTimeout)
			defer shutdownCancel()

			deps.Logger.Info("shutting down http server")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http shutdown: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func newRouteCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "route <task>",
		Short: "Resolve a task against the live model catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps, err := buildDependencies(ctx, global)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close(context.Background()) }()

			models, err := deps.Upstream.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("failed to list models: %w", err)
			}

			decision, err := deps.Router.Resolve(args[0], providers.ModelIDs(models))
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), routeOutput{
				Task:           decision.Task,
				RequestedModel: decision.RequestedModel,
				Model:          decision.Model,
				FallbackUsed:   decision.FallbackUsed,
			})
		},
	}
}

type routeOutput struct {
	Task           string `json:"task"`
	RequestedModel string `json:"requested_model"`
	Model          string `json:"model"`
	FallbackUsed   bool   `json:"fallback_used"`
}

func newModelsCmd(global *globalOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List upstream models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps, err := buildDependencies(ctx, global)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close(context.Background()) }()

			raw, err := json.Marshal(map[string]string{"filter": filter})
			if err != nil {
				return err
			}
			result, err := deps.Tools.Call(ctx, tools.ToolListModels, raw)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Case-insensitive substring of model id or provider")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "research-mcp %s\n", app.Version)
		},
	}
}

func loadConfig(ctx context.Context, opts *globalOptions) (*config.Config, error) {
	cfg, err := config.New(ctx, opts.envFile)
	if err != nil {
		return nil, err
	}
	if opts.routingPath != "" {
		cfg.Routing.Path = opts.routingPath
	}
	return cfg, nil
}

func buildDependencies(ctx context.Context, opts *globalOptions) (*app.Dependencies, error) {
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return nil, err
	}
	return app.NewDependencies(ctx, cfg, logger)
}

// initLogger builds the process logger; it always writes to stderr so stdout
// carries only MCP frames and command output.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.With(zap.String("service", "research-mcp"), zap.String("environment", cfg.Environment)), nil
}

func printJSON(w io.Writer, v interface{}) error {
	text, err := tools.FormatResult(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, text)
	return err
}
