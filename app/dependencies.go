package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/research-mcp/config"
	"github.com/upb/research-mcp/internal/mcp"
	"github.com/upb/research-mcp/internal/observability"
	"github.com/upb/research-mcp/middleware"
	"github.com/upb/research-mcp/services/pricing"
	"github.com/upb/research-mcp/services/providers"
	"github.com/upb/research-mcp/services/providers/openrouter"
	"github.com/upb/research-mcp/services/routing"
	"github.com/upb/research-mcp/services/tools"
	"go.uber.org/zap"
)

// Version is overridden at build time with -ldflags "-X github.com/upb/research-mcp/app.Version=...".
var Version = "0.1.0-dev"

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics // nil when metrics are disabled

	// Upstream and routing
	Upstream providers.Upstream
	Router   *routing.TaskRouter
	Costs    *pricing.Table

	// Transports
	Tools          *tools.Dispatcher
	MCP            *mcp.Server
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
// A routing table that cannot be loaded is fatal.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initMetrics(cfg)
	deps.initUpstream(cfg)

	// Initialize task router
	if err := deps.initRouter(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	deps.Costs = pricing.DefaultTable()
	deps.Tools = tools.NewDispatcher(deps.Upstream, deps.Router, deps.Costs, deps.Metrics, logger)
	deps.MCP = mcp.NewServer(deps.Tools, Version, logger).WithInstructions(instructions(deps.Router))
	deps.AuthMiddleware = middleware.NewAuthMiddleware(cfg.Server.AuthToken, logger)

	logger.Info("all dependencies initialized successfully",
		zap.String("version", Version),
		zap.String("environment", cfg.Environment),
		zap.Bool("metrics_enabled", deps.Metrics != nil),
		zap.Bool("auth_enabled", deps.AuthMiddleware.Enabled()))
	return deps, nil
}

func (d *Dependencies) initMetrics(cfg *config.Config) {
	if !cfg.Observability.MetricsEnabled {
		d.Logger.Info("metrics disabled")
		return
	}
	d.Metrics = observability.NewMetrics()
}

// initUpstream builds the OpenRouter client, instrumented when metrics are on
func (d *Dependencies) initUpstream(cfg *config.Config) {
	providerCfg := providers.DefaultProviderConfig()
	providerCfg.APIKey = cfg.OpenRouter.APIKey
	providerCfg.BaseURL = cfg.OpenRouter.BaseURL
	if cfg.OpenRouter.Timeout > 0 {
		providerCfg.Timeout = cfg.OpenRouter.Timeout
	}
	for name, value := range cfg.OpenRouter.Headers() {
		providerCfg.Headers[name] = value
	}
	adapter := openrouter.NewAdapter(providerCfg, d.Logger)

	// An untyped nil observer leaves the adapter unwrapped.
	var observer providers.Observer
	if d.Metrics != nil {
		observer = d.Metrics
	}
	d.Upstream = providers.Instrument(adapter, observer)

	d.Logger.Info("upstream configured",
		zap.String("provider", adapter.Name()),
		zap.String("base_url", adapter.BaseURL()),
		zap.Duration("timeout", cfg.OpenRouter.Timeout))
}

func (d *Dependencies) initRouter(cfg *config.Config) error {
	router, err := routing.Load(cfg.Routing.Path, d.Logger)
	if err != nil {
		return err
	}
	d.Router = router
	return nil
}

func instructions(router *routing.TaskRouter) string {
	return fmt.Sprintf(
		"Call route_chat with one of the configured tasks (%s); the server picks the model "+
			"and falls back when it is unavailable. Use list_models, validate_model and "+
			"cost_estimate to inspect the catalogue and pricing.",
		strings.Join(router.AvailableTasks(), ", "))
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return nil
}
