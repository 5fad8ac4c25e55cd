// Package tools implements the four research tools on top of the upstream
// client, the task router and the cost table.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/research-mcp/internal/observability"
	"github.com/upb/research-mcp/services"
	"github.com/upb/research-mcp/services/pricing"
	"github.com/upb/research-mcp/services/providers"
	"github.com/upb/research-mcp/services/routing"
	"github.com/upb/research-mcp/utils"
	"go.uber.org/zap"
)

// Routing outcomes recorded in metrics.
const (
	OutcomePreferred   = "preferred"
	OutcomeFallback    = "fallback"
	OutcomeUnknownTask = "unknown_task"
	OutcomeNoModel     = "no_model"
)

// unknownLabel replaces caller-supplied tool and task names that are not configured.
const unknownLabel = "unknown"

// Dispatcher executes tool calls by name.
type Dispatcher struct {
	upstream providers.Upstream
	router   *routing.TaskRouter
	costs    *pricing.Table
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. metrics may be nil.
func NewDispatcher(
	upstream providers.Upstream,
	router *routing.TaskRouter,
	costs *pricing.Table,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Dispatcher {
	if costs == nil {
		costs = pricing.DefaultTable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		upstream: upstream,
		router:   router,
		costs:    costs,
		metrics:  metrics,
		logger:   logger,
	}
}

// Definitions lists the tools in a stable order.
func (d *Dispatcher) Definitions() []Definition {
	return definitions(d.router.AvailableTasks())
}

// Has reports whether name is a known tool.
func (d *Dispatcher) Has(name string) bool {
	switch name {
	case ToolListModels, ToolValidateModel, ToolRouteChat, ToolCostEstimate:
		return true
	}
	return false
}

// Call runs tool name with raw JSON arguments and returns a JSON-serializable result.
// Failures are *services.DomainError values.
func (d *Dispatcher) Call(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	callID := uuid.New().String()
	logger := d.logger.With(zap.String("call_id", callID), zap.String("tool", name))
	logger.Debug("tool call started")

	var (
		result interface{}
		err    error
	)
	switch name {
	case ToolListModels:
		var a listModelsArgs
		if err = decodeArgs(args, &a); err == nil {
			result, err = d.listModels(ctx, a)
		}
	case ToolValidateModel:
		var a validateModelArgs
		if err = decodeArgs(args, &a); err == nil {
			result, err = d.validateModel(ctx, a)
		}
	case ToolRouteChat:
		var a routeChatArgs
		if err = decodeArgs(args, &a); err == nil {
			result, err = d.routeChat(ctx, logger, a)
		}
	case ToolCostEstimate:
		var a costEstimateArgs
		if err = decodeArgs(args, &a); err == nil {
			result = d.costEstimate(a)
		}
	default:
		err = services.NewDomainError(services.ErrorTypeNotFound, fmt.Sprintf("Unknown tool: %s", name), nil).
			WithDetail("tool", name)
	}

	label := name
	if !d.Has(name) {
		label = unknownLabel
	}
	d.metrics.RecordToolCall(label, err)
	if err != nil {
		logger.Error("tool call failed", zap.Error(err))
		return nil, err
	}
	logger.Debug("tool call finished")
	return result, nil
}

// decodeArgs unmarshals args into out and validates it. Missing or null
// arguments decode as an empty object.
func decodeArgs(args json.RawMessage, out interface{}) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return services.NewDomainError(services.ErrorTypeValidation, "invalid arguments", err)
	}

	if err := utils.ValidateStruct(out); err != nil {
		var fieldErr *utils.ValidationError
		if errors.As(err, &fieldErr) {
			return services.NewDomainError(services.ErrorTypeValidation, fieldErr.Summary(), nil).
				WithDetail("fields", fieldErr.Fields)
		}
		return services.NewDomainError(services.ErrorTypeValidation, "invalid arguments", err)
	}
	return nil
}

func (d *Dispatcher) fetchModels(ctx context.Context) ([]providers.ModelInfo, error) {
	models, err := d.upstream.ListModels(ctx)
	if err != nil {
		return nil, services.WrapExternal("failed to list upstream models", err)
	}
	return models, nil
}

func (d *Dispatcher) listModels(ctx context.Context, args listModelsArgs) (*ModelList, error) {
	models, err := d.fetchModels(ctx)
	if err != nil {
		return nil, err
	}

	filter := strings.ToLower(strings.TrimSpace(args.Filter))
	out := &ModelList{Models: make([]ModelSummary, 0, len(models))}
	for _, m := range models {
		if filter != "" &&
			!strings.Contains(strings.ToLower(m.ID), filter) &&
			!strings.Contains(strings.ToLower(m.Provider), filter) {
			continue
		}
		out.Models = append(out.Models, ModelSummary{
			Name:     m.ID,
			Context:  m.ContextLength,
			Pricing:  m.Pricing,
			Provider: m.Provider,
		})
	}
	out.Count = len(out.Models)
	return out, nil
}

func (d *Dispatcher) validateModel(ctx context.Context, args validateModelArgs) (*ModelValidation, error) {
	models, err := d.fetchModels(ctx)
	if err != nil {
		return nil, err
	}

	want := routing.NormalizeModelID(args.Name)
	for _, m := range models {
		if routing.NormalizeModelID(m.ID) == want {
			return &ModelValidation{
				Name:     m.ID,
				Context:  m.ContextLength,
				Pricing:  m.Pricing,
				Provider: m.Provider,
				Exists:   true,
			}, nil
		}
	}

	return &ModelValidation{
		Exists: false,
		Error:  fmt.Sprintf("Model '%s' not found", args.Name),
	}, nil
}

func (d *Dispatcher) routeChat(ctx context.Context, logger *zap.Logger, args routeChatArgs) (*ChatResult, error) {
	models, err := d.fetchModels(ctx)
	if err != nil {
		return nil, err
	}

	taskLabel := d.taskLabel(args.Task)
	decision, err := d.router.Resolve(args.Task, providers.ModelIDs(models))
	if err != nil {
		switch {
		case services.IsUnknownTaskError(err):
			d.metrics.RecordRoutingDecision(taskLabel, OutcomeUnknownTask)
		case services.IsNoModelAvailableError(err):
			d.metrics.RecordRoutingDecision(taskLabel, OutcomeNoModel)
		}
		return nil, err
	}

	outcome := OutcomePreferred
	if decision.FallbackUsed {
		outcome = OutcomeFallback
	}
	d.metrics.RecordRoutingDecision(taskLabel, outcome)
	logger.Info("task routed",
		zap.String("task", args.Task),
		zap.String("requested_model", decision.RequestedModel),
		zap.String("model", decision.Model),
		zap.Bool("fallback_used", decision.FallbackUsed))

	req := &providers.ChatRequest{
		Model:    decision.Model,
		Messages: make([]providers.Message, len(args.Messages)),
	}
	for i, msg := range args.Messages {
		req.Messages[i] = providers.Message{Role: msg.Role, Content: msg.Content}
	}
	if opts := args.Options; opts != nil {
		req.Temperature = opts.Temperature
		req.TopP = opts.TopP
		req.Reasoning = opts.Reasoning
		if opts.MaxTokens != nil {
			req.MaxTokens = *opts.MaxTokens
		}
		if opts.SearchLimit != nil && *opts.SearchLimit > 0 && isSearchModel(decision.Model) {
			logger.Info("search limit noted", zap.String("model", decision.Model), zap.Int("search_limit", *opts.SearchLimit))
		}
	}

	resp, err := d.upstream.ChatCompletion(ctx, req)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeExternal, "chat completion failed", err).
			WithDetail("model", decision.Model).
			WithDetail("upstream_status", providers.StatusCode(err))
	}

	return &ChatResult{
		ModelUsed:      decision.Model,
		RequestedModel: decision.RequestedModel,
		FallbackUsed:   decision.FallbackUsed,
		Tokens: TokenUsage{
			In:  resp.Usage.PromptTokens,
			Out: resp.Usage.CompletionTokens,
		},
		Content:   resp.Content(),
		Citations: resp.Citations,
	}, nil
}

// taskLabel keeps the task metric label bounded to the configured tasks.
func (d *Dispatcher) taskLabel(task string) string {
	if _, ok := d.router.ModelForTask(task); ok {
		return task
	}
	return unknownLabel
}

// isSearchModel reports whether model performs web searches.
func isSearchModel(model string) bool {
	return strings.Contains(routing.NormalizeModelID(model), "perplexity")
}

func (d *Dispatcher) costEstimate(args costEstimateArgs) *CostEstimate {
	e := d.costs.Estimate(args.Model, *args.TokensIn, *args.TokensOut, args.Searches)

	out := &CostEstimate{
		Model:       args.Model,
		EstimateUSD: pricing.FormatUSD(e.TotalCost),
		Breakdown: CostBreakdown{
			InputTokens:  pricing.FormatUSD(e.InputCost),
			OutputTokens: pricing.FormatUSD(e.OutputCost),
		},
	}
	if e.SearchCost.IsPositive() {
		out.Breakdown.Searches = pricing.FormatUSD(e.SearchCost)
	}
	return out
}

// FormatResult renders a tool result as indented JSON text.
func FormatResult(result interface{}) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", services.WrapInternal("failed to encode tool result", err)
	}
	return string(data), nil
}
