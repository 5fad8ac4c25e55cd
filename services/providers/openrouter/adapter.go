package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/research-mcp/services/providers"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	providerName   = "openrouter"

	// maxErrorBody caps how much of a failed response is kept in the error message.
	maxErrorBody = 2048
)

// Adapter implements providers.Upstream for OpenRouter and API-compatible gateways.
type Adapter struct {
	config     providers.ProviderConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAdapter creates a new OpenRouter adapter
func NewAdapter(config providers.ProviderConfig, logger *zap.Logger) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Timeout == 0 {
		config.Timeout = providers.DefaultProviderConfig().Timeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.With(zap.String("provider", providerName)),
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return providerName
}

// BaseURL returns the API root requests are sent to
func (a *Adapter) BaseURL() string {
	return a.config.BaseURL
}

// ListModels fetches the model catalogue
func (a *Adapter) ListModels(ctx context.Context) ([]providers.ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/models", nil)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "REQUEST_ERROR", "Failed to create request", 0, err)
	}

	var listResp modelListResponse
	if err := a.do(httpReq, &listResp); err != nil {
		return nil, err
	}

	models := make([]providers.ModelInfo, 0, len(listResp.Data))
	for _, m := range listResp.Data {
		provider := m.OwnedBy
		if provider == "" {
			provider = providers.ProviderFromModelID(m.ID)
		}
		models = append(models, providers.ModelInfo{
			ID:            m.ID,
			Name:          m.Name,
			Provider:      provider,
			ContextLength: m.ContextLength,
			Pricing:       m.pricing(),
		})
	}

	a.logger.Debug("listed models", zap.Int("count", len(models)))
	return models, nil
}

// ChatCompletion performs a chat completion request
func (a *Adapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	if req == nil || req.Model == "" {
		return nil, providers.NewProviderError(a.Name(), "INVALID_REQUEST", "model is required", 0, nil)
	}

	startTime := time.Now()

	reqBody, err := json.Marshal(buildChatRequest(req))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "Failed to marshal request", 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "REQUEST_ERROR", "Failed to create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var chatResp chatResponse
	if err := a.do(httpReq, &chatResp); err != nil {
		return nil, err
	}

	resp := convertToUnifiedResponse(&chatResp, time.Since(startTime))
	a.logger.Debug("chat completion finished",
		zap.String("model", req.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("latency", resp.Latency))
	return resp, nil
}

// do sends httpReq with auth headers and decodes a 2xx JSON body into out.
func (a *Adapter) do(httpReq *http.Request, out interface{}) error {
	httpReq.Header.Set("Accept", "application/json")
	if a.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	}
	for k, v := range a.config.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return providers.NewProviderError(a.Name(), "HTTP_ERROR", "HTTP request failed", 0, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return providers.NewProviderError(a.Name(), "READ_ERROR", "Failed to read response", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return a.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "Failed to unmarshal response", httpResp.StatusCode, err)
	}
	return nil
}

// handleErrorResponse turns a non-2xx response into a ProviderError
func (a *Adapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		text := strings.TrimSpace(string(body))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		if text == "" {
			text = http.StatusText(statusCode)
		}
		return providers.NewProviderError(a.Name(), "UNKNOWN_ERROR",
			fmt.Sprintf("upstream returned %d: %s", statusCode, text), statusCode, nil)
	}

	code := errResp.Error.Type
	if code == "" {
		code = fmt.Sprint(errResp.Error.Code)
	}

	return providers.NewProviderError(
		a.Name(),
		code,
		fmt.Sprintf("upstream returned %d", statusCode),
		statusCode,
		errors.New(errResp.Error.Message),
	)
}

func buildChatRequest(req *providers.ChatRequest) *chatRequest {
	out := &chatRequest{
		Model:       req.Model,
		Messages:    make([]chatMessage, len(req.Messages)),
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	for i, msg := range req.Messages {
		out.Messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	if req.MaxTokens > 0 {
		out.MaxTokens = &req.MaxTokens
	}
	if req.Reasoning {
		out.Reasoning = &reasoningOptions{Enabled: true}
	}

	return out
}

func convertToUnifiedResponse(resp *chatResponse, latency time.Duration) *providers.ChatResponse {
	out := &providers.ChatResponse{
		ID:       resp.ID,
		Model:    resp.Model,
		Provider: providerName,
		Choices:  make([]providers.Choice, len(resp.Choices)),
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Citations: resp.Citations,
		Latency:   latency,
	}

	for i, choice := range resp.Choices {
		out.Choices[i] = providers.Choice{
			Index: choice.Index,
			Message: providers.Message{
				Role:    choice.Message.Role,
				Content: choice.Message.Content,
			},
			FinishReason: choice.FinishReason,
		}
	}

	// Search models may attach citations to the choice instead of the response.
	if len(out.Citations) == 0 && len(resp.Choices) > 0 {
		out.Citations = resp.Choices[0].Citations
	}

	return out
}

// OpenRouter wire types

type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []chatMessage     `json:"messages"`
	MaxTokens   *int              `json:"max_tokens,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	TopP        *float64          `json:"top_p,omitempty"`
	Reasoning   *reasoningOptions `json:"reasoning,omitempty"`
}

type reasoningOptions struct {
	Enabled bool `json:"enabled"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID        string       `json:"id"`
	Model     string       `json:"model"`
	Created   int64        `json:"created"`
	Choices   []chatChoice `json:"choices"`
	Usage     chatUsage    `json:"usage"`
	Citations []string     `json:"citations,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
	Citations    []string    `json:"citations,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type modelListResponse struct {
	Data []modelEntry `json:"data"`
}

type modelEntry struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	ContextLength int                    `json:"context_length"`
	OwnedBy       string                 `json:"owned_by"`
	Pricing       map[string]priceString `json:"pricing"`
}

// pricing keeps every component the upstream reports; null prices are dropped.
func (m modelEntry) pricing() providers.Pricing {
	if len(m.Pricing) == 0 {
		return nil
	}
	out := make(providers.Pricing, len(m.Pricing))
	for component, price := range m.Pricing {
		if price != "" {
			out[component] = string(price)
		}
	}
	return out
}

// priceString accepts a price encoded either as a JSON string or a JSON number.
type priceString string

func (p *priceString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = priceString(s)
		return nil
	}
	if string(data) == "null" {
		*p = ""
		return nil
	}
	*p = priceString(data)
	return nil
}

type errorResponse struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}
