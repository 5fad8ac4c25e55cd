package routing

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/upb/research-mcp/services"
	"gopkg.in/yaml.v3"
)

const (
	reasonNotMapping        = "routing config must be a mapping"
	reasonMissingTasks      = "routing config must have 'tasks' section"
	reasonMissingFallbacks  = "routing config must have 'fallbacks' section"
	reasonTasksNotMapping   = "'tasks' must be a non-empty mapping of task name to model"
	reasonFallbacksNotSeq   = "'fallbacks' must be a non-empty sequence of models"
	reasonEmptyModel        = "model identifiers must be non-empty strings"
	reasonDuplicateTaskName = "duplicate task name"
)

// Config is the routing table: task name to preferred model, plus ordered fallbacks.
type Config struct {
	Tasks     map[string]string `yaml:"tasks"`
	Fallbacks []string          `yaml:"fallbacks"`
}

// LoadConfig reads and validates the routing table at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.NewDomainError(services.ErrorTypeConfigNotFound,
				fmt.Sprintf("routing config not found: %s", path), nil).
				WithDetail("path", path)
		}
		return nil, services.NewDomainError(services.ErrorTypeConfigParse,
			fmt.Sprintf("failed to read routing config %s", path), err).
			WithDetail("path", path)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML routing table. The document shape is checked on the
// node tree before anything is decoded, so a wrong shape is reported as a
// validation error rather than a YAML type error.
func ParseConfig(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeConfigParse, "routing config is not valid YAML", err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, validationError(reasonNotMapping)
	}
	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, validationError(reasonNotMapping)
	}

	var tasksNode, fallbacksNode *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		switch root.Content[i].Value {
		case "tasks":
			tasksNode = resolve(root.Content[i+1])
		case "fallbacks":
			fallbacksNode = resolve(root.Content[i+1])
		}
	}

	if tasksNode == nil {
		return nil, validationError(reasonMissingTasks)
	}
	if fallbacksNode == nil {
		return nil, validationError(reasonMissingFallbacks)
	}

	tasks, err := decodeTasks(tasksNode)
	if err != nil {
		return nil, err
	}
	fallbacks, err := decodeFallbacks(fallbacksNode)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Tasks: tasks, Fallbacks: fallbacks}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants of a Config built in code.
func (c *Config) Validate() error {
	if c == nil {
		return validationError(reasonNotMapping)
	}
	if len(c.Tasks) == 0 {
		return validationError(reasonTasksNotMapping)
	}
	if len(c.Fallbacks) == 0 {
		return validationError(reasonFallbacksNotSeq)
	}
	for task, model := range c.Tasks {
		if strings.TrimSpace(task) == "" || strings.TrimSpace(model) == "" {
			return validationError(reasonEmptyModel).WithDetail("task", task)
		}
	}
	for i, model := range c.Fallbacks {
		if strings.TrimSpace(model) == "" {
			return validationError(reasonEmptyModel).WithDetail("fallback_index", i)
		}
	}
	return nil
}

func decodeTasks(node *yaml.Node) (map[string]string, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) == 0 {
		return nil, validationError(reasonTasksNotMapping)
	}

	tasks := make(map[string]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := resolve(node.Content[i])
		value := resolve(node.Content[i+1])
		if !isStringScalar(key) || !isStringScalar(value) {
			return nil, validationError(reasonTasksNotMapping).WithDetail("line", node.Content[i].Line)
		}
		if _, dup := tasks[key.Value]; dup {
			return nil, validationError(reasonDuplicateTaskName).WithDetail("task", key.Value)
		}
		tasks[key.Value] = value.Value
	}
	return tasks, nil
}

func decodeFallbacks(node *yaml.Node) ([]string, error) {
	if node.Kind != yaml.SequenceNode || len(node.Content) == 0 {
		return nil, validationError(reasonFallbacksNotSeq)
	}

	fallbacks := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		item = resolve(item)
		if !isStringScalar(item) {
			return nil, validationError(reasonFallbacksNotSeq).WithDetail("line", item.Line)
		}
		fallbacks = append(fallbacks, item.Value)
	}
	return fallbacks, nil
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func isStringScalar(node *yaml.Node) bool {
	return node != nil && node.Kind == yaml.ScalarNode && node.Tag != "!!null"
}

func validationError(reason string) *services.DomainError {
	return services.NewDomainError(services.ErrorTypeConfigValidation, reason, nil)
}
