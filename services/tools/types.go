package tools

import "github.com/upb/research-mcp/services/providers"

// Tool arguments as sent by MCP clients.

type listModelsArgs struct {
	Filter string `json:"filter"`
}

type validateModelArgs struct {
	Name string `json:"name" validate:"required"`
}

// ChatMessage is one message of a route_chat conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system developer user assistant tool"`
	Content string `json:"content" validate:"required"`
}

// ChatOptions are the optional generation parameters of route_chat.
type ChatOptions struct {
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int     `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	TopP        *float64 `json:"top_p,omitempty" validate:"omitempty,gt=0,lte=1"`
	Reasoning   bool     `json:"reasoning,omitempty"`
	SearchLimit *int     `json:"search_limit,omitempty" validate:"omitempty,gte=0"`
}

type routeChatArgs struct {
	Task     string        `json:"task" validate:"required"`
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Options  *ChatOptions  `json:"options,omitempty"`
}

type costEstimateArgs struct {
	Model     string `json:"model" validate:"required"`
	TokensIn  *int   `json:"tokens_in" validate:"required,gte=0"`
	TokensOut *int   `json:"tokens_out" validate:"required,gte=0"`
	Searches  int    `json:"searches" validate:"gte=0"`
}

// Tool results. Field names match what MCP clients of the tool already read.

// ModelSummary is one entry of a list_models result.
type ModelSummary struct {
	Name     string            `json:"name"`
	Context  int               `json:"context"`
	Pricing  providers.Pricing `json:"pricing"`
	Provider string            `json:"provider"`
}

// ModelList is the list_models result.
type ModelList struct {
	Count  int            `json:"count"`
	Models []ModelSummary `json:"models"`
}

// ModelValidation is the validate_model result.
type ModelValidation struct {
	Name     string            `json:"name,omitempty"`
	Context  int               `json:"context,omitempty"`
	Pricing  providers.Pricing `json:"pricing,omitempty"`
	Provider string            `json:"provider,omitempty"`
	Exists   bool              `json:"exists"`
	Error    string            `json:"error,omitempty"`
}

// TokenUsage reports prompt and completion tokens.
type TokenUsage struct {
	In  int `json:"in"`
	Out int `json:"out"`
}

// ChatResult is the route_chat result.
type ChatResult struct {
	ModelUsed      string     `json:"model_used"`
	RequestedModel string     `json:"requested_model"`
	FallbackUsed   bool       `json:"fallback_used"`
	Tokens         TokenUsage `json:"tokens"`
	Content        string     `json:"content"`
	Citations      []string   `json:"citations,omitempty"`
}

// CostBreakdown splits an estimate by component.
type CostBreakdown struct {
	InputTokens  string `json:"input_tokens"`
	OutputTokens string `json:"output_tokens"`
	Searches     string `json:"searches,omitempty"`
}

// CostEstimate is the cost_estimate result.
type CostEstimate struct {
	Model       string        `json:"model"`
	EstimateUSD string        `json:"estimate_usd"`
	Breakdown   CostBreakdown `json:"breakdown"`
}
