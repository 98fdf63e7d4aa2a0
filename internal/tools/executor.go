package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/metrics"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/schema"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/shared/stringutils"
)

// DefaultTimeout bounds a single tool call when no per-tool timeout is set.
const DefaultTimeout = 10 * time.Second

// Result is the outcome of one tool call: either Output or Err is meaningful.
type Result struct {
	Tool     string
	Output   string
	Err      *ToolError
	Duration time.Duration
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Text is the observation folded back into the conversation context.
func (r Result) Text() string {
	if r.Err != nil {
		return "Error: " + r.Err.Error()
	}
	return r.Output
}

// Outcome is a short label for logs, metrics and the action log.
func (r Result) Outcome() string {
	if r.Err != nil {
		return r.Err.Kind.String()
	}
	return "ok"
}

// Lookuper resolves tool names. *Registry satisfies it.
type Lookuper interface {
	Lookup(name string) (schema.Tool, error)
}

// Executor validates parameters and runs tools under a deadline, converting
// every failure into a Result instead of propagating it.
type Executor struct {
	tools    Lookuper
	timeout  time.Duration
	timeouts map[string]time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeout sets the default per-call deadline.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithToolTimeout overrides the deadline for one tool.
func WithToolTimeout(name string, d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeouts[name] = d
		}
	}
}

func WithExecutorMetrics(m *metrics.Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor returns an Executor resolving tools through tools.
func NewExecutor(tools Lookuper, opts ...ExecutorOption) *Executor {
	e := &Executor{
		tools:    tools,
		timeout:  DefaultTimeout,
		timeouts: make(map[string]time.Duration),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the named tool with params. It never panics and never returns
// an error; failures are reported through Result.Err.
func (e *Executor) Execute(ctx context.Context, name string, params map[string]any) Result {
	start := time.Now()
	res := e.execute(ctx, name, params)
	res.Tool = name
	res.Duration = time.Since(start)

	e.metrics.ObserveTool(name, res.Outcome(), res.Duration)
	if res.OK() {
		e.logger.Info("Tool call", "name", name, "duration", res.Duration,
			"output", stringutils.Truncate(res.Output, 200))
	} else {
		e.logger.Warn("Tool call failed", "name", name, "kind", res.Err.Kind.String(), "err", res.Err.Err)
	}
	return res
}

func (e *Executor) execute(ctx context.Context, name string, params map[string]any) Result {
	tool, err := e.tools.Lookup(name)
	if err != nil {
		var te *ToolError
		if !errors.As(err, &te) {
			te = newToolError(KindNotFound, name, err)
		}
		return Result{Err: te}
	}

	s := tool.Schema()
	if missing := s.Missing(params); len(missing) > 0 {
		return Result{Err: newToolError(KindValidation, name,
			fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))}
	}
	if err := s.Check(params); err != nil {
		return Result{Err: newToolError(KindValidation, name, err)}
	}

	if err := ctx.Err(); err != nil {
		return Result{Err: newToolError(KindCancelled, name, err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeoutFor(name))
	defer cancel()

	out, err := invoke(callCtx, tool, maps.Clone(params))
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return Result{Err: newToolError(KindCancelled, name, ctx.Err())}
		case errors.Is(err, context.DeadlineExceeded):
			return Result{Err: newToolError(KindTimeout, name, err)}
		default:
			return Result{Err: newToolError(KindExecution, name, err)}
		}
	}
	return Result{Output: out}
}

type invocation struct {
	out string
	err error
}

// invoke runs tool.Execute on its own goroutine so that a tool ignoring ctx
// still cannot hold the loop past the deadline. A panic becomes a *PanicError.
func invoke(ctx context.Context, tool schema.Tool, params map[string]any) (string, error) {
	done := make(chan invocation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invocation{err: &PanicError{Value: r}}
			}
		}()
		out, err := tool.Execute(ctx, params)
		done <- invocation{out: out, err: err}
	}()

	select {
	case inv := <-done:
		return inv.out, inv.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (e *Executor) timeoutFor(name string) time.Duration {
	if d, ok := e.timeouts[name]; ok {
		return d
	}
	return e.timeout
}
