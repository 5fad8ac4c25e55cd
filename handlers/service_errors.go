package handlers

import (
	"net/http"

	"github.com/upb/research-mcp/services"
	"github.com/upb/research-mcp/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	message := services.GetErrorMessage(err)
	details := services.GetErrorDetails(err)

	var status int
	switch {
	case services.IsValidationError(err):
		status = http.StatusBadRequest
	case services.IsNotFoundError(err), services.IsUnknownTaskError(err):
		status = http.StatusNotFound
	case services.IsNoModelAvailableError(err):
		status = http.StatusServiceUnavailable
	case services.IsExternalError(err):
		// Upstream failures are mapped to 502 Bad Gateway
		status = http.StatusBadGateway
	case services.IsInternalError(err), services.IsConfigError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write error response", zap.Error(err))
		}
		return
	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		status = http.StatusInternalServerError
		message = "An unexpected error occurred"
		details = nil
	}

	if status < http.StatusInternalServerError {
		logger.Debug("handled service error",
			zap.Int("status", status),
			zap.String("type", string(services.GetErrorType(err))),
			zap.String("message", message))
	}

	if err := utils.WriteError(w, status, message, details); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}
