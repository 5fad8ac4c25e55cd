package providers

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestChatResponseContent(t *testing.T) {
	var nilResp *ChatResponse
	if nilResp.Content() != "" {
		t.Error("Content() on nil response should be empty")
	}

	empty := &ChatResponse{}
	if empty.Content() != "" {
		t.Error("Content() with no choices should be empty")
	}

	resp := &ChatResponse{
		Choices: []Choice{
			{Index: 0, Message: Message{Role: "assistant", Content: "first"}},
			{Index: 1, Message: Message{Role: "assistant", Content: "second"}},
		},
	}
	if resp.Content() != "first" {
		t.Errorf("Content() = %s, want first", resp.Content())
	}
}

func TestModelIDs(t *testing.T) {
	models := []ModelInfo{
		{ID: "openai/gpt-4o"},
		{ID: "perplexity/sonar-reasoning"},
	}

	ids := ModelIDs(models)
	if len(ids) != 2 || ids[0] != "openai/gpt-4o" || ids[1] != "perplexity/sonar-reasoning" {
		t.Errorf("ModelIDs() = %v", ids)
	}

	if len(ModelIDs(nil)) != 0 {
		t.Error("ModelIDs(nil) should be empty")
	}
}

func TestProviderFromModelID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"openai/gpt-4o", "openai"},
		{"meta-llama/llama-3.1-70b-instruct", "meta-llama"},
		{"a/b/c", "a"},
		{"gpt-4o", ""},
		{"/leading", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := ProviderFromModelID(tt.id); got != tt.want {
				t.Errorf("ProviderFromModelID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestProviderConfig(t *testing.T) {
	config := DefaultProviderConfig()

	if config.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", config.Timeout)
	}

	if config.Headers == nil {
		t.Error("Headers should be initialized")
	}
}

func TestProviderError(t *testing.T) {
	t.Run("NewProviderError", func(t *testing.T) {
		cause := errors.New("connection failed")
		err := NewProviderError("openrouter", "HTTP_ERROR", "Failed to connect", 502, cause)

		if err.Provider != "openrouter" {
			t.Errorf("Provider = %s, want openrouter", err.Provider)
		}

		if err.Code != "HTTP_ERROR" {
			t.Errorf("Code = %s, want HTTP_ERROR", err.Code)
		}

		if err.StatusCode != 502 {
			t.Errorf("StatusCode = %d, want 502", err.StatusCode)
		}

		if err.Cause != cause {
			t.Error("Cause not set correctly")
		}
	})

	t.Run("ErrorMethod", func(t *testing.T) {
		err := NewProviderError("provider", "CODE", "message", 400, nil)
		if err.Error() != "message" {
			t.Errorf("Error() = %s, want message", err.Error())
		}

		cause := errors.New("cause")
		err = NewProviderError("provider", "CODE", "message", 400, cause)
		if err.Error() != "message: cause" {
			t.Errorf("Error() = %s, want 'message: cause'", err.Error())
		}
	})

	t.Run("Unwrap", func(t *testing.T) {
		cause := errors.New("underlying error")
		err := NewProviderError("provider", "CODE", "message", 500, cause)

		if !errors.Is(err, cause) {
			t.Error("errors.Is did not find the cause")
		}
	})

	t.Run("StatusCode", func(t *testing.T) {
		err := fmt.Errorf("list models: %w", NewProviderError("provider", "CODE", "message", 429, nil))
		if StatusCode(err) != 429 {
			t.Errorf("StatusCode() = %d, want 429", StatusCode(err))
		}

		if StatusCode(errors.New("plain")) != 0 {
			t.Error("StatusCode() should be 0 for non-ProviderError")
		}
	})
}
