package tools

import (
	"fmt"
	"slices"
	"sync"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/schema"
)

// Canonical names of the built-in tools.
const (
	ToolCalculator = "calculator"
	ToolWeather    = "get_weather"
	ToolWebSearch  = "web_search"
	ToolRunCode    = "run_code"
	ToolReadFile   = "read_file"
	ToolFetchURL   = "fetch_url"
)

// Registry holds named tools in registration order.
// Lookups and listings may run concurrently with each other.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]schema.Tool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]schema.Tool)}
}

// Register installs tool under its name. A second tool with the same name is
// rejected and the first stays installed.
func (r *Registry) Register(tool schema.Tool) error {
	if tool == nil {
		return fmt.Errorf("%w: nil tool", ErrInvalidTool)
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; ok {
		return &DuplicateNameError{Name: name}
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Unregister removes the named tool. Absent names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return
	}
	delete(r.tools, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
}

// Lookup returns the named tool or a *ToolError of KindNotFound.
func (r *Registry) Lookup(name string) (schema.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, newToolError(KindNotFound, name, nil)
	}
	return t, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// List returns a snapshot of the registered tools in registration order.
// Mutating the returned slice does not affect the registry.
func (r *Registry) List() []schema.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schema.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Definitions describes every tool for listings and the HTTP API.
func (r *Registry) Definitions() []map[string]any {
	list := r.List()
	out := make([]map[string]any, 0, len(list))
	for _, t := range list {
		out = append(out, map[string]any{
			"name":        t.Name(),
			"description": t.Description(),
			"parameters":  t.Schema().JSONSchema(),
		})
	}
	return out
}
