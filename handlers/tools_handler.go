package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/research-mcp/internal/mcp"
	"github.com/upb/research-mcp/middleware"
	"github.com/upb/research-mcp/services/tools"
	"github.com/upb/research-mcp/utils"
	"go.uber.org/zap"
)

// maxArgumentsBytes bounds a tool call request body.
const maxArgumentsBytes = 1 << 20

// ToolsListResponse is returned by GET /api/v1/tools
type ToolsListResponse struct {
	Tools []tools.Definition `json:"tools"`
}

// ToolsHandler exposes the tools as plain REST endpoints
type ToolsHandler struct {
	tools  mcp.ToolHandler
	logger *zap.Logger
}

// NewToolsHandler creates a new ToolsHandler
func NewToolsHandler(handler mcp.ToolHandler, logger *zap.Logger) *ToolsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolsHandler{
		tools:  handler,
		logger: logger,
	}
}

// HandleList handles GET /api/v1/tools
func (h *ToolsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, ToolsListResponse{Tools: h.tools.Definitions()})
}

// HandleCall handles POST /api/v1/tools/{name}; the body holds the tool arguments
func (h *ToolsHandler) HandleCall(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	logger := h.logger.With(
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("tool", name))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArgumentsBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = utils.WriteBadRequest(w, "request body too large", nil)
			return
		}
		_ = utils.WriteBadRequest(w, "failed to read request body", nil)
		return
	}

	result, err := h.tools.Call(r.Context(), name, json.RawMessage(body))
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, result); err != nil {
		logger.Error("failed to write tool result", zap.Error(err))
	}
}
