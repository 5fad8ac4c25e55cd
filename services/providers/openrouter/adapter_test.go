package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/research-mcp/services/providers"
	"go.uber.org/zap"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewAdapter(providers.ProviderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/",
		Timeout: 5 * time.Second,
		Headers: map[string]string{
			"HTTP-Referer": "https://example.test",
			"X-Title":      "research-mcp-tool",
			"X-Empty":      "",
		},
	}, zap.NewNop())
}

func TestNewAdapter(t *testing.T) {
	adapter := NewAdapter(providers.ProviderConfig{APIKey: "k"}, nil)

	assert.Equal(t, "openrouter", adapter.Name())
	assert.Equal(t, defaultBaseURL, adapter.BaseURL())
	assert.Equal(t, 60*time.Second, adapter.httpClient.Timeout)

	adapter = NewAdapter(providers.ProviderConfig{BaseURL: "http://localhost:9000/api/v1//"}, nil)
	assert.Equal(t, "http://localhost:9000/api/v1", adapter.BaseURL())
}

func TestAdapter_ListModels(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "https://example.test", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "research-mcp-tool", r.Header.Get("X-Title"))
		_, hasEmpty := r.Header["X-Empty"]
		assert.False(t, hasEmpty)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[
			{"id":"openai/gpt-4o","name":"GPT-4o","context_length":128000,"owned_by":"openai",
			 "pricing":{"prompt":"0.000005","completion":"0.000015","request":"0","image":"0.007225","web_search":"0.005"}},
			{"id":"perplexity/sonar-reasoning","name":"Sonar Reasoning","context_length":127000,
			 "pricing":{"prompt":0.000001,"completion":null}}
		]}`)
	})

	models, err := adapter.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)

	assert.Equal(t, providers.ModelInfo{
		ID:            "openai/gpt-4o",
		Name:          "GPT-4o",
		Provider:      "openai",
		ContextLength: 128000,
		Pricing: providers.Pricing{
			"prompt":     "0.000005",
			"completion": "0.000015",
			"request":    "0",
			"image":      "0.007225",
			"web_search": "0.005",
		},
	}, models[0])

	// Provider falls back to the id prefix when owned_by is missing.
	assert.Equal(t, "perplexity", models[1].Provider)
	assert.Equal(t, providers.Pricing{"prompt": "0.000001"}, models[1].Pricing)
}

func TestAdapter_ListModels_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantCode   string
		wantInMsg  string
	}{
		{
			name:       "structured error",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"message":"No auth credentials found","code":401}}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "401",
			wantInMsg:  "No auth credentials found",
		},
		{
			name:       "plain text error",
			status:     http.StatusBadGateway,
			body:       "bad gateway",
			wantStatus: http.StatusBadGateway,
			wantCode:   "UNKNOWN_ERROR",
			wantInMsg:  "bad gateway",
		},
		{
			name:       "empty error body",
			status:     http.StatusServiceUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "UNKNOWN_ERROR",
			wantInMsg:  "Service Unavailable",
		},
		{
			name:       "invalid json on success",
			status:     http.StatusOK,
			body:       "{not json",
			wantStatus: http.StatusOK,
			wantCode:   "UNMARSHAL_ERROR",
			wantInMsg:  "unmarshal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			models, err := adapter.ListModels(context.Background())
			require.Error(t, err)
			assert.Nil(t, models)

			var provErr *providers.ProviderError
			require.True(t, errors.As(err, &provErr))
			assert.Equal(t, "openrouter", provErr.Provider)
			assert.Equal(t, tt.wantStatus, provErr.StatusCode)
			assert.Equal(t, tt.wantCode, provErr.Code)
			assert.Contains(t, err.Error(), tt.wantInMsg)
		})
	}
}

func TestAdapter_ChatCompletion(t *testing.T) {
	var captured map[string]interface{}
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id":"gen-123",
			"model":"perplexity/sonar-reasoning",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Answer"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":34,"total_tokens":46},
			"citations":["https://a.example","https://b.example"]
		}`)
	})

	temperature := 0.2
	resp, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Model:       "perplexity/sonar-reasoning",
		Messages:    []providers.Message{{Role: "user", Content: "Hello"}},
		MaxTokens:   256,
		Temperature: &temperature,
		Reasoning:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, "perplexity/sonar-reasoning", captured["model"])
	assert.Equal(t, float64(256), captured["max_tokens"])
	assert.Equal(t, 0.2, captured["temperature"])
	assert.NotContains(t, captured, "top_p")
	assert.Equal(t, map[string]interface{}{"enabled": true}, captured["reasoning"])
	assert.Equal(t, []interface{}{map[string]interface{}{"role": "user", "content": "Hello"}}, captured["messages"])

	assert.Equal(t, "gen-123", resp.ID)
	assert.Equal(t, "openrouter", resp.Provider)
	assert.Equal(t, "Answer", resp.Content())
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 34, resp.Usage.CompletionTokens)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, resp.Citations)
}

func TestAdapter_ChatCompletion_ChoiceCitations(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"choices":[{"index":0,"message":{"role":"assistant","content":"x"},"citations":["https://c.example"]}],
			"usage":{}
		}`)
	})

	resp, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Model:    "perplexity/sonar-deep-research",
		Messages: []providers.Message{{Role: "user", Content: "q"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://c.example"}, resp.Citations)
}

func TestAdapter_ChatCompletion_OmitsUnsetOptions(t *testing.T) {
	var captured map[string]interface{}
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})

	resp, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Model:    "openai/gpt-4o-mini",
		Messages: []providers.Message{{Role: "user", Content: "q"}},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Content())

	for _, key := range []string{"max_tokens", "temperature", "top_p", "reasoning"} {
		assert.NotContains(t, captured, key)
	}
}

func TestAdapter_ChatCompletion_NoRetry(t *testing.T) {
	calls := 0
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	})

	_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Model:    "openai/gpt-4o",
		Messages: []providers.Message{{Role: "user", Content: "q"}},
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusInternalServerError, providers.StatusCode(err))
	assert.Contains(t, err.Error(), "overloaded")
}

func TestAdapter_ChatCompletion_RequiresModel(t *testing.T) {
	adapter := NewAdapter(providers.ProviderConfig{}, zap.NewNop())

	_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{})
	require.Error(t, err)

	_, err = adapter.ChatCompletion(context.Background(), nil)
	require.Error(t, err)
}

func TestAdapter_ContextCancelled(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := adapter.ListModels(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
