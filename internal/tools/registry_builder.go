package tools

import "github.com/sanimiftah/ngamumule-platform-sub000/internal/schema"

// RegistryBuilder accumulates tools during the construction phase.
// Call Build() to produce a Registry ready for use.
type RegistryBuilder struct {
	tools []schema.Tool
}

// NewRegistryBuilder returns a fresh RegistryBuilder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{}
}

// WithTool adds a tool and returns the builder, enabling chaining.
func (b *RegistryBuilder) WithTool(tool schema.Tool) *RegistryBuilder {
	b.tools = append(b.tools, tool)
	return b
}

// WithToolIf adds tool only when cond holds.
func (b *RegistryBuilder) WithToolIf(cond bool, tool schema.Tool) *RegistryBuilder {
	if cond {
		b.tools = append(b.tools, tool)
	}
	return b
}

// Build registers the accumulated tools in order and fails on the first
// duplicate or invalid tool.
func (b *RegistryBuilder) Build() (*Registry, error) {
	r := NewRegistry()
	for _, t := range b.tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
