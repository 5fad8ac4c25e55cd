package providers

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Upstream is the chat-completion API every tool call is delegated to.
type Upstream interface {
	// Name returns the upstream name (e.g., "openrouter")
	Name() string

	// ListModels returns the models the upstream currently serves
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// ChatCompletion performs a non-streaming chat completion request
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// ChatRequest represents a unified chat completion request
type ChatRequest struct {
	// Model identifier (e.g., "openai/gpt-4o", "perplexity/sonar-reasoning")
	Model string `json:"model"`

	// Messages in the conversation
	Messages []Message `json:"messages"`

	// MaxTokens limits the response length
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 2.0)
	Temperature *float64 `json:"temperature,omitempty"`

	// TopP controls nucleus sampling
	TopP *float64 `json:"top_p,omitempty"`

	// Reasoning asks reasoning-capable models to expose their reasoning
	Reasoning bool `json:"reasoning,omitempty"`
}

// Message represents a single message in a conversation
type Message struct {
	// Role is passed through unchanged ("system", "user", "assistant", "tool", ...)
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// ChatResponse represents a unified chat completion response
type ChatResponse struct {
	// ID is the unique identifier for this completion
	ID string `json:"id"`

	// Model used for the completion, as reported by the upstream
	Model string `json:"model"`

	// Choices contains the completion results
	Choices []Choice `json:"choices"`

	// Usage statistics
	Usage Usage `json:"usage"`

	// Citations returned by search-backed models
	Citations []string `json:"citations,omitempty"`

	// Provider that handled the request
	Provider string `json:"provider"`

	// Latency of the request
	Latency time.Duration `json:"latency"`
}

// Content returns the text of the first choice, or "" when there is none.
func (r *ChatResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Choice represents a completion choice
type Choice struct {
	// Index of this choice
	Index int `json:"index"`

	// Message contains the response
	Message Message `json:"message"`

	// FinishReason indicates why the completion finished
	FinishReason string `json:"finish_reason"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Pricing is the upstream's price object keyed by component ("prompt",
// "completion", "request", "image", "web_search", ...), values as reported.
type Pricing map[string]string

// ModelInfo contains metadata about a model
type ModelInfo struct {
	// ID is the model identifier
	ID string `json:"id"`

	// Name is the human-readable name
	Name string `json:"name"`

	// Provider that offers this model
	Provider string `json:"provider"`

	// ContextLength is the context window size in tokens
	ContextLength int `json:"context_length"`

	// Pricing information
	Pricing Pricing `json:"pricing"`
}

// ModelIDs returns the identifiers of models in order.
func ModelIDs(models []ModelInfo) []string {
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids
}

// ProviderFromModelID returns the vendor prefix of an identifier like "openai/gpt-4o".
func ProviderFromModelID(id string) string {
	if i := strings.Index(id, "/"); i > 0 {
		return id[:i]
	}
	return ""
}

// ProviderConfig holds common configuration for upstream clients
type ProviderConfig struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Timeout for requests
	Timeout time.Duration

	// Additional headers
	Headers map[string]string
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout: 60 * time.Second,
		Headers: make(map[string]string),
	}
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.StatusCode
	}
	return 0
}
