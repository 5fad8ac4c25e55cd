package tools

import "strings"

// Tool names exposed over MCP and HTTP.
const (
	ToolListModels    = "list_models"
	ToolValidateModel = "validate_model"
	ToolRouteChat     = "route_chat"
	ToolCostEstimate  = "cost_estimate"
)

// Definition describes one tool in the MCP tools/list shape.
type Definition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

type schema = map[string]interface{}

func objectSchema(properties schema, required ...string) schema {
	s := schema{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func typed(kind, description string) schema {
	s := schema{"type": kind}
	if description != "" {
		s["description"] = description
	}
	return s
}

// definitions builds the tool list. The route_chat task description names the
// configured tasks so clients can discover them.
func definitions(tasks []string) []Definition {
	taskDescription := "Task type"
	if len(tasks) > 0 {
		taskDescription = "Task type (" + strings.Join(tasks, ", ") + ")"
	}

	return []Definition{
		{
			Name:        ToolListModels,
			Description: "List available models from OpenRouter, optionally filtered by name/provider",
			InputSchema: objectSchema(schema{
				"filter": typed("string", "Optional filter to match model names or providers"),
			}),
		},
		{
			Name:        ToolValidateModel,
			Description: "Validate if a model exists and return its details",
			InputSchema: objectSchema(schema{
				"name": typed("string", "Model name to validate"),
			}, "name"),
		},
		{
			Name:        ToolRouteChat,
			Description: "Route a chat request to appropriate model based on task type",
			InputSchema: objectSchema(schema{
				"task": typed("string", taskDescription),
				"messages": schema{
					"type": "array",
					"items": objectSchema(schema{
						"role":    schema{"type": "string", "enum": []string{"system", "developer", "user", "assistant", "tool"}},
						"content": typed("string", ""),
					}, "role", "content"),
					"description": "Chat messages in OpenAI format",
				},
				"options": schema{
					"type": "object",
					"properties": schema{
						"temperature":  typed("number", ""),
						"max_tokens":   typed("integer", ""),
						"top_p":        typed("number", ""),
						"reasoning":    typed("boolean", ""),
						"search_limit": typed("integer", ""),
					},
					"description": "Optional generation parameters",
				},
			}, "task", "messages"),
		},
		{
			Name:        ToolCostEstimate,
			Description: "Estimate cost for using a specific model",
			InputSchema: objectSchema(schema{
				"model":      typed("string", "Model name"),
				"tokens_in":  typed("integer", "Input tokens"),
				"tokens_out": typed("integer", "Output tokens"),
				"searches": schema{
					"type":        "integer",
					"description": "Number of searches (for Perplexity models)",
					"default":     0,
				},
			}, "model", "tokens_in", "tokens_out"),
		},
	}
}
