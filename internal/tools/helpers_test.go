package tools

import (
	"context"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/schema"
)

// stubTool is a configurable schema.Tool for tests.
type stubTool struct {
	name   string
	schema schema.ParameterSchema
	run    func(ctx context.Context, params map[string]any) (string, error)
	calls  int
}

func newStub(name string, run func(ctx context.Context, params map[string]any) (string, error)) *stubTool {
	return &stubTool{name: name, run: run}
}

func (s *stubTool) Name() string                   { return s.name }
func (s *stubTool) Description() string            { return "stub " + s.name }
func (s *stubTool) Schema() schema.ParameterSchema { return s.schema }
func (s *stubTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	s.calls++
	if s.run == nil {
		return "ok", nil
	}
	return s.run(ctx, params)
}
