package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/upb/research-mcp/utils"
	"go.uber.org/zap"
)

// AuthMiddleware guards routes with a single static bearer token
type AuthMiddleware struct {
	token  string
	logger *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. An empty token disables the check.
func NewAuthMiddleware(token string, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		token:  token,
		logger: logger,
	}
}

// Enabled reports whether requests are checked at all
func (m *AuthMiddleware) Enabled() bool {
	return m.token != ""
}

// RequireAuth is a middleware that requires the configured bearer token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	if !m.Enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := GetRequestIDFromContext(r.Context())

		token := extractBearerToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			m.logger.Warn("token rejected",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	// Check if it starts with "Bearer "
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
