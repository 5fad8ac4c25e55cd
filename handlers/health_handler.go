package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/upb/research-mcp/services/providers"
	"github.com/upb/research-mcp/utils"
	"go.uber.org/zap"
)

const readinessTimeout = 5 * time.Second

var errUpstreamNotConfigured = errors.New("upstream not configured")

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
	Models    int               `json:"models,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	upstream providers.Upstream
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(upstream providers.Upstream, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		upstream: upstream,
		logger:   logger,
	}
}

// HandleHealth handles GET /healthz
// Basic liveness check - always returns 200 if the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleReadiness handles GET /readyz
// Readiness check - the upstream must answer a model listing
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	response := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string),
	}

	count, err := h.checkUpstream(ctx)
	if err != nil {
		h.logger.Warn("upstream readiness check failed",
			zap.Int("upstream_status", providers.StatusCode(err)),
			zap.Error(err))
		response.Status = "not_ready"
		response.Checks["upstream"] = "unhealthy"
		_ = utils.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response.Checks["upstream"] = "healthy"
	response.Models = count
	_ = utils.WriteJSON(w, http.StatusOK, response)
}

func (h *HealthHandler) checkUpstream(ctx context.Context) (int, error) {
	if h.upstream == nil {
		return 0, errUpstreamNotConfigured
	}
	models, err := h.upstream.ListModels(ctx)
	if err != nil {
		return 0, err
	}
	return len(models), nil
}
