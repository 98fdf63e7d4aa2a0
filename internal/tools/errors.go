package tools

import (
	"errors"
	"fmt"
)

// Sentinel errors reachable through errors.Is on a *ToolError.
var (
	ErrToolNotFound  = errors.New("tool not found")
	ErrValidation    = errors.New("invalid tool parameters")
	ErrToolExecution = errors.New("tool execution failed")
	ErrToolTimeout   = errors.New("tool timed out")
	ErrToolCancelled = errors.New("tool call cancelled")

	ErrDuplicateName = errors.New("tool name already registered")
	ErrInvalidTool   = errors.New("invalid tool")
)

// ErrorKind classifies a tool-level failure. All kinds are recoverable by the
// orchestrator loop.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindValidation
	KindExecution
	KindTimeout
	// KindCancelled means the caller's context ended, not the per-call deadline.
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindExecution:
		return "execution"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrToolNotFound
	case KindValidation:
		return ErrValidation
	case KindTimeout:
		return ErrToolTimeout
	case KindCancelled:
		return ErrToolCancelled
	default:
		return ErrToolExecution
	}
}

// ToolError is the typed failure carried by a Result.
type ToolError struct {
	Kind ErrorKind
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tool %q: %s", e.Tool, e.Kind.sentinel())
	}
	return fmt.Sprintf("tool %q: %s: %v", e.Tool, e.Kind.sentinel(), e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

func newToolError(kind ErrorKind, tool string, err error) *ToolError {
	return &ToolError{Kind: kind, Tool: tool, Err: err}
}

// DuplicateNameError is returned by Register when the name is taken.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// PanicError wraps a value recovered from a panicking tool.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
