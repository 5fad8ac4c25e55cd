package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/upb/research-mcp/services"
	"go.uber.org/zap"
)

// Decision describes how a task was resolved.
type Decision struct {
	Task           string
	RequestedModel string
	Model          string
	FallbackUsed   bool
}

// TaskRouter resolves task names to currently available models.
// All methods are pure functions of the routing table and their arguments.
type TaskRouter struct {
	tasks        map[string]string
	taskNames    []string
	fallbacks    []string
	fallbackKeys []string
}

// NormalizeModelID is the single normalization applied to every model identifier
// before availability matching.
func NormalizeModelID(model string) string {
	return strings.ToLower(model)
}

// Load reads the routing table at path and builds a router from it.
func Load(path string, logger *zap.Logger) (*TaskRouter, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewTaskRouter(cfg, logger)
}

// NewTaskRouter builds a router from cfg. The router keeps private copies, so later
// changes to cfg do not affect it.
func NewTaskRouter(cfg *Config, logger *zap.Logger) (*TaskRouter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &TaskRouter{
		tasks:        make(map[string]string, len(cfg.Tasks)),
		taskNames:    make([]string, 0, len(cfg.Tasks)),
		fallbacks:    make([]string, len(cfg.Fallbacks)),
		fallbackKeys: make([]string, len(cfg.Fallbacks)),
	}
	for task, model := range cfg.Tasks {
		r.tasks[task] = model
		r.taskNames = append(r.taskNames, task)
	}
	sort.Strings(r.taskNames)

	copy(r.fallbacks, cfg.Fallbacks)
	for i, model := range r.fallbacks {
		r.fallbackKeys[i] = NormalizeModelID(model)
	}

	if logger != nil {
		logger.Info("routing config loaded",
			zap.Int("tasks", len(r.tasks)),
			zap.Int("fallbacks", len(r.fallbacks)))
	}
	return r, nil
}

// ModelForTask returns the preferred model for task and whether the task is configured.
func (r *TaskRouter) ModelForTask(task string) (string, bool) {
	model, ok := r.tasks[task]
	return model, ok
}

// Fallbacks returns a copy of the ordered fallback list.
func (r *TaskRouter) Fallbacks() []string {
	out := make([]string, len(r.fallbacks))
	copy(out, r.fallbacks)
	return out
}

// AvailableTasks returns the configured task names in sorted order.
func (r *TaskRouter) AvailableTasks() []string {
	out := make([]string, len(r.taskNames))
	copy(out, r.taskNames)
	return out
}

// ValidateOrFallback returns preferred if it is available, otherwise the first
// available fallback in configured order.
func (r *TaskRouter) ValidateOrFallback(preferred string, available []string) (string, error) {
	model, _, err := r.resolveModel(preferred, available)
	return model, err
}

// RouteTask resolves task to an available model.
func (r *TaskRouter) RouteTask(task string, available []string) (string, error) {
	decision, err := r.Resolve(task, available)
	if err != nil {
		return "", err
	}
	return decision.Model, nil
}

// Resolve is RouteTask with the details of the decision.
func (r *TaskRouter) Resolve(task string, available []string) (Decision, error) {
	preferred, ok := r.ModelForTask(task)
	if !ok {
		tasks := r.AvailableTasks()
		return Decision{}, services.NewDomainError(services.ErrorTypeUnknownTask,
			fmt.Sprintf("Unknown task '%s'. Available tasks: %s", task, strings.Join(tasks, ", ")), nil).
			WithDetail("task", task).
			WithDetail("available_tasks", tasks)
	}

	model, fallbackUsed, err := r.resolveModel(preferred, available)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Task:           task,
		RequestedModel: preferred,
		Model:          model,
		FallbackUsed:   fallbackUsed,
	}, nil
}

func (r *TaskRouter) resolveModel(preferred string, available []string) (string, bool, error) {
	availableSet := make(map[string]struct{}, len(available))
	for _, model := range available {
		availableSet[NormalizeModelID(model)] = struct{}{}
	}

	if _, ok := availableSet[NormalizeModelID(preferred)]; ok {
		return preferred, false, nil
	}

	for i, key := range r.fallbackKeys {
		if _, ok := availableSet[key]; ok {
			return r.fallbacks[i], true, nil
		}
	}

	return "", false, services.NewDomainError(services.ErrorTypeNoModelAvailable,
		fmt.Sprintf("Model '%s' is not available and all fallbacks are exhausted", preferred), nil).
		WithDetail("requested_model", preferred).
		WithDetail("fallbacks", r.Fallbacks())
}
