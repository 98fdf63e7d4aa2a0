// Package schema holds the contracts shared by the registry, router, executor
// and orchestrator. Concrete tools live in internal/tools.
package schema

import (
	"context"
	"fmt"
	"slices"
)

// Tool is a named capability the orchestrator can invoke.
// Execute may block; it must not mutate the tool or the registry holding it.
type Tool interface {
	Name() string
	Description() string
	Schema() ParameterSchema
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// FieldKind is the declared type of a single parameter.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindNumber  FieldKind = "number"
	KindInteger FieldKind = "integer"
	KindBoolean FieldKind = "boolean"
	KindObject  FieldKind = "object"
	KindArray   FieldKind = "array"
)

// Field describes one parameter of a tool.
type Field struct {
	Kind        FieldKind
	Description string
	Enum        []string
}

// ParameterSchema declares the parameters a tool accepts.
type ParameterSchema struct {
	Required []string
	Fields   map[string]Field
}

// Missing returns the required fields absent from params, in declaration order.
func (s ParameterSchema) Missing(params map[string]any) []string {
	var missing []string
	for _, name := range s.Required {
		if v, ok := params[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// Check validates the kind and enum of every declared field present in params.
// Undeclared keys are ignored.
func (s ParameterSchema) Check(params map[string]any) error {
	for name, field := range s.Fields {
		v, ok := params[name]
		if !ok || v == nil {
			continue
		}
		if !field.Kind.accepts(v) {
			return fmt.Errorf("field %q: expected %s, got %T", name, field.Kind, v)
		}
		if len(field.Enum) > 0 {
			str, _ := v.(string)
			if !slices.Contains(field.Enum, str) {
				return fmt.Errorf("field %q: %v is not one of %v", name, v, field.Enum)
			}
		}
	}
	return nil
}

// JSONSchema renders the schema in JSON Schema object form for listings.
func (s ParameterSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	for name, f := range s.Fields {
		p := map[string]any{"type": string(f.Kind)}
		if f.Description != "" {
			p["description"] = f.Description
		}
		if len(f.Enum) > 0 {
			p["enum"] = f.Enum
		}
		props[name] = p
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(s.Required) > 0 {
		out["required"] = slices.Clone(s.Required)
	}
	return out
}

func (k FieldKind) accepts(v any) bool {
	switch k {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindNumber:
		switch v.(type) {
		case float64, float32, int, int64, int32:
			return true
		}
		return false
	case KindInteger:
		switch n := v.(type) {
		case int, int64, int32:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindObject:
		_, ok := v.(map[string]any)
		return ok
	case KindArray:
		_, ok := v.([]any)
		if !ok {
			_, ok = v.([]string)
		}
		return ok
	default:
		return true
	}
}
