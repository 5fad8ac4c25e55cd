package routing

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/research-mcp/services"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newTestRouter(t *testing.T, cfg *Config) *TaskRouter {
	t.Helper()
	router, err := NewTaskRouter(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return router
}

func researchConfig() *Config {
	return &Config{
		Tasks:     map[string]string{"research": "vendor/big"},
		Fallbacks: []string{"vendor/small"},
	}
}

func TestTaskRouter_Scenarios(t *testing.T) {
	router := newTestRouter(t, researchConfig())

	tests := []struct {
		name      string
		task      string
		available []string
		want      string
		wantKind  error
		wantInMsg string
	}{
		{
			name:      "preferred model available",
			task:      "research",
			available: []string{"vendor/big", "vendor/small"},
			want:      "vendor/big",
		},
		{
			name:      "falls back when preferred missing",
			task:      "research",
			available: []string{"vendor/small"},
			want:      "vendor/small",
		},
		{
			name:      "nothing available",
			task:      "research",
			available: []string{"other/model"},
			wantKind:  services.ErrNoModelAvailable,
			wantInMsg: "vendor/big",
		},
		{
			name:      "unknown task lists configured tasks",
			task:      "ux",
			available: []string{"vendor/big"},
			wantKind:  services.ErrUnknownTask,
			wantInMsg: "research",
		},
		{
			name:      "empty available list",
			task:      "research",
			available: nil,
			wantKind:  services.ErrNoModelAvailable,
			wantInMsg: "vendor/big",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := router.RouteTask(tt.task, tt.available)
			if tt.wantKind != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantKind), "got %v", err)
				assert.Contains(t, err.Error(), tt.wantInMsg)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskRouter_RejectsInvalidConfig(t *testing.T) {
	_, err := NewTaskRouter(&Config{Tasks: map[string]string{"x": "a"}, Fallbacks: []string{}}, zap.NewNop())
	assert.True(t, errors.Is(err, services.ErrConfigValidation))

	_, err = NewTaskRouter(&Config{Tasks: map[string]string{}, Fallbacks: []string{"a"}}, zap.NewNop())
	assert.True(t, errors.Is(err, services.ErrConfigValidation))
}

func TestTaskRouter_Load(t *testing.T) {
	path := writeConfig(t, "tasks:\n  research: vendor/big\nfallbacks:\n  - vendor/small\n")

	router, err := Load(path, zap.NewNop())
	require.NoError(t, err)

	model, err := router.RouteTask("research", []string{"VENDOR/SMALL"})
	require.NoError(t, err)
	assert.Equal(t, "vendor/small", model)

	_, err = Load(writeConfig(t, "tasks:\n  research: vendor/big\n"), zap.NewNop())
	assert.True(t, errors.Is(err, services.ErrConfigValidation))
}

func TestTaskRouter_Lookups(t *testing.T) {
	router := newTestRouter(t, &Config{
		Tasks: map[string]string{
			"research_fast": "perplexity/sonar-reasoning",
			"research_deep": "perplexity/sonar-deep-research",
		},
		Fallbacks: []string{"openai/gpt-4o-mini", "meta-llama/llama-3.1-70b-instruct"},
	})

	model, ok := router.ModelForTask("research_deep")
	assert.True(t, ok)
	assert.Equal(t, "perplexity/sonar-deep-research", model)

	model, ok = router.ModelForTask("nonexistent")
	assert.False(t, ok)
	assert.Empty(t, model)

	assert.Equal(t, []string{"research_deep", "research_fast"}, router.AvailableTasks())
	assert.Len(t, router.Fallbacks(), 2)
}

func TestTaskRouter_ReturnsCopies(t *testing.T) {
	cfg := researchConfig()
	router := newTestRouter(t, cfg)

	fallbacks := router.Fallbacks()
	fallbacks[0] = "mutated/model"
	tasks := router.AvailableTasks()
	tasks[0] = "mutated"

	assert.Equal(t, []string{"vendor/small"}, router.Fallbacks())
	assert.Equal(t, []string{"research"}, router.AvailableTasks())

	// Changing the source config after construction has no effect either.
	cfg.Tasks["research"] = "other/model"
	cfg.Fallbacks[0] = "other/fallback"
	model, _ := router.ModelForTask("research")
	assert.Equal(t, "vendor/big", model)
	assert.Equal(t, []string{"vendor/small"}, router.Fallbacks())
}

func TestTaskRouter_CaseInsensitiveMatchPreservesConfiguredCase(t *testing.T) {
	router := newTestRouter(t, &Config{
		Tasks:     map[string]string{"write": "Anthropic/Claude-3.7-Sonnet"},
		Fallbacks: []string{"OpenAI/GPT-4o-Mini"},
	})

	model, err := router.RouteTask("write", []string{"anthropic/claude-3.7-sonnet"})
	require.NoError(t, err)
	assert.Equal(t, "Anthropic/Claude-3.7-Sonnet", model)

	model, err = router.RouteTask("write", []string{"OPENAI/gpt-4O-MINI"})
	require.NoError(t, err)
	assert.Equal(t, "OpenAI/GPT-4o-Mini", model)
}

func TestTaskRouter_ValidateOrFallback(t *testing.T) {
	router := newTestRouter(t, &Config{
		Tasks:     map[string]string{"x": "vendor/x"},
		Fallbacks: []string{"A", "B"},
	})

	// Preferred casing of the input is kept, not the available entry's.
	got, err := router.ValidateOrFallback("Some/Model", []string{"some/model"})
	require.NoError(t, err)
	assert.Equal(t, "Some/Model", got)

	// Fallback order decides, not position in the available list.
	got, err = router.ValidateOrFallback("missing/model", []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, "A", got)

	got, err = router.ValidateOrFallback("missing/model", []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, "B", got)

	_, err = router.ValidateOrFallback("missing/model", []string{"c"})
	require.Error(t, err)
	assert.True(t, services.IsNoModelAvailableError(err))
	assert.Contains(t, err.Error(), "missing/model")
	assert.Contains(t, err.Error(), "fallbacks are exhausted")
	assert.Equal(t, "missing/model", services.GetErrorDetails(err)["requested_model"])
}

func TestTaskRouter_UnknownTaskEnumeratesOptions(t *testing.T) {
	router := newTestRouter(t, &Config{
		Tasks:     map[string]string{"x": "vendor/x", "y": "vendor/y"},
		Fallbacks: []string{"vendor/z"},
	})

	_, err := router.RouteTask("bogus", []string{"vendor/x"})

	require.Error(t, err)
	assert.True(t, services.IsUnknownTaskError(err))
	assert.Contains(t, err.Error(), "Unknown task")
	assert.Contains(t, err.Error(), "x")
	assert.Contains(t, err.Error(), "y")
	assert.Equal(t, []string{"x", "y"}, services.GetErrorDetails(err)["available_tasks"])
}

func TestTaskRouter_Resolve(t *testing.T) {
	router := newTestRouter(t, researchConfig())

	decision, err := router.Resolve("research", []string{"vendor/big"})
	require.NoError(t, err)
	assert.Equal(t, Decision{Task: "research", RequestedModel: "vendor/big", Model: "vendor/big"}, decision)

	decision, err = router.Resolve("research", []string{"vendor/small"})
	require.NoError(t, err)
	assert.True(t, decision.FallbackUsed)
	assert.Equal(t, "vendor/big", decision.RequestedModel)
	assert.Equal(t, "vendor/small", decision.Model)
}

func TestTaskRouter_Deterministic(t *testing.T) {
	router := newTestRouter(t, &Config{
		Tasks:     map[string]string{"a": "p/1", "b": "p/2", "c": "p/3"},
		Fallbacks: []string{"f/1", "f/2", "f/3"},
	})
	available := []string{"f/3", "p/2", "F/2", "f/1"}

	for _, task := range []string{"a", "b", "c", "d"} {
		first, firstErr := router.RouteTask(task, available)
		for i := 0; i < 20; i++ {
			got, err := router.RouteTask(task, available)
			assert.Equal(t, first, got)
			assert.Equal(t, firstErr, err)
		}
	}
}

func TestTaskRouter_ConcurrentUse(t *testing.T) {
	router := newTestRouter(t, researchConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			available := []string{"vendor/small"}
			if i%2 == 0 {
				available = append(available, "vendor/big")
			}
			model, err := router.RouteTask("research", available)
			assert.NoError(t, err)
			if i%2 == 0 {
				assert.Equal(t, "vendor/big", model)
			} else {
				assert.Equal(t, "vendor/small", model)
			}
		}(i)
	}
	wg.Wait()
}

func TestNormalizeModelID(t *testing.T) {
	assert.Equal(t, "openai/gpt-4o", NormalizeModelID("OpenAI/GPT-4o"))
	assert.Equal(t, "", NormalizeModelID(""))
}
