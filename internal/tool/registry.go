package tool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"qroute/internal/llm"
)

// ErrToolNotFound indicates the requested tool does not exist
var ErrToolNotFound = errors.New("tool not found")

type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = tool
	return nil
}

func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	return tool, nil
}

// List returns the registered tools ordered by name
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name() < tools[j].Name()
	})
	return tools
}

// Definition returns the LLM-facing schema of a single tool. The pipeline
// offers exactly this definition when it forces a call to that tool.
func (r *Registry) Definition(name string) (*llm.ToolDefinition, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return definitionOf(t), nil
}

func (r *Registry) Definitions() []*llm.ToolDefinition {
	tools := r.List()
	defs := make([]*llm.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = definitionOf(t)
	}
	return defs
}

func definitionOf(t Tool) *llm.ToolDefinition {
	return &llm.ToolDefinition{
		Type: "function",
		Function: &llm.FunctionDef{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}
