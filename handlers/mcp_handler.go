package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/upb/research-mcp/internal/mcp"
	"github.com/upb/research-mcp/utils"
	"go.uber.org/zap"
)

const maxMessageBytes = 16 << 20

// MessageHandler answers a single JSON-RPC message. *mcp.Server implements it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, data []byte) *mcp.Message
}

// MCPHandler carries MCP over HTTP: one JSON-RPC message per POST
type MCPHandler struct {
	server MessageHandler
	logger *zap.Logger
}

// NewMCPHandler creates a new MCPHandler
func NewMCPHandler(server MessageHandler, logger *zap.Logger) *MCPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MCPHandler{
		server: server,
		logger: logger,
	}
}

// HandleMessage handles POST /mcp. Notifications are acknowledged with 204.
func (h *MCPHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		_ = utils.WriteBadRequest(w, "failed to read request body", nil)
		return
	}

	resp := h.server.HandleMessage(r.Context(), body)
	if resp == nil {
		utils.WriteNoContent(w)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("failed to write MCP response", zap.Error(err))
	}
}
