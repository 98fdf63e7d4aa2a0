// Package agent runs the think/act/respond loop over one session.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/clock"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/metrics"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/router"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/schema"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/session"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/shared/stringutils"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/tools"
)

// DefaultMaxIterations caps loop iterations per message.
const DefaultMaxIterations = 5

const (
	faultReply     = "Sorry, something went wrong while I was working on that. Please try again."
	cancelledReply = "The request was cancelled before I could finish."
)

// Orchestrator owns one session and drives the loop for each user message.
// Messages on the same Orchestrator are processed one at a time; a message
// arriving while another is in flight is rejected with ErrBusy.
type Orchestrator struct {
	registry   *tools.Registry
	executor   *tools.Executor
	router     router.Router
	synth      Synthesizer
	session    *session.Session
	archive    session.ArchiveSink
	clock      clock.Clock
	logger     *slog.Logger
	metrics    *metrics.Metrics
	maxIter    int
	thinkDelay time.Duration
	sessionID  string

	run sync.Mutex

	mu    sync.RWMutex
	state State
	idle  chan struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxIterations sets the iteration cap. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.maxIter = n
		}
	}
}

func WithSynthesizer(s Synthesizer) Option {
	return func(o *Orchestrator) { o.synth = s }
}

func WithExecutor(e *tools.Executor) Option {
	return func(o *Orchestrator) { o.executor = e }
}

func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithArchive sets where ArchiveActions sends truncated actions.
func WithArchive(a session.ArchiveSink) Option {
	return func(o *Orchestrator) { o.archive = a }
}

// WithSessionID fixes the session ID instead of generating one.
func WithSessionID(id string) Option {
	return func(o *Orchestrator) { o.sessionID = id }
}

// WithThinkDelay adds a simulated pause before each routing step.
func WithThinkDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.thinkDelay = d }
}

// New builds an Orchestrator over registry and rt. The registry may be shared
// between orchestrators; the session never is.
func New(registry *tools.Registry, rt router.Router, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		router:   rt,
		clock:    clock.System{},
		logger:   slog.Default(),
		maxIter:  DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.executor == nil {
		o.executor = tools.NewExecutor(registry,
			tools.WithExecutorMetrics(o.metrics),
			tools.WithExecutorLogger(o.logger),
		)
	}
	if o.synth == nil {
		o.synth = NewTemplateSynthesizer(registry)
	}
	o.session = session.New(o.sessionID, o.clock)
	o.logger = o.logger.With("session", o.session.ID())
	return o
}

// turn carries the per-message loop state.
type turn struct {
	input        string
	context      string
	observations []string
	hadToolUse   bool
	iterations   int
	reply        string
	outcome      string
	responded    bool
	err          error
}

// Exchange is what one user message added to the session.
type Exchange struct {
	// Messages holds the user message and the assistant reply.
	Messages []session.ChatMessage
	// Actions holds the actions recorded while handling the message.
	Actions []session.Action
}

// ProcessMessage runs the loop for one user message and returns the messages
// it appended: the user message and exactly one assistant reply. It fails
// only with ErrEmptyMessage or ErrBusy; every tool failure, fault and
// exhausted budget still produces a reply.
func (o *Orchestrator) ProcessMessage(ctx context.Context, text string) ([]session.ChatMessage, error) {
	ex, err := o.Process(ctx, text)
	if err != nil {
		return nil, err
	}
	return ex.Messages, nil
}

// Process is ProcessMessage that also returns the actions the message
// produced, captured while the session is held.
func (o *Orchestrator) Process(ctx context.Context, text string) (Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Exchange{}, ErrEmptyMessage
	}
	if !o.run.TryLock() {
		o.metrics.IncRejected("busy")
		return Exchange{}, ErrBusy
	}
	idle := make(chan struct{})
	o.mu.Lock()
	o.idle = idle
	o.mu.Unlock()
	defer func() {
		o.run.Unlock()
		close(idle)
	}()

	o.metrics.IncInFlight()
	defer o.metrics.DecInFlight()

	o.session.SetThinking(true, text)
	defer func() {
		o.session.SetThinking(false, "")
		o.setState(StateIdle)
	}()

	o.logger.Info("Processing message", "content", stringutils.Truncate(text, 80))

	start := o.session.ActionCount()
	user := o.session.AddUser(text)
	t := o.runSafely(ctx, text)
	reply := o.session.AddAssistant(t.reply)

	o.metrics.ObserveRequest(t.outcome, t.iterations)
	o.logger.Info("Message processed", "outcome", t.outcome, "iterations", t.iterations)

	return Exchange{
		Messages: []session.ChatMessage{user, reply},
		Actions:  o.session.ActionsFrom(start),
	}, nil
}

// runSafely recovers panics and synthesis failures into a fault reply.
func (o *Orchestrator) runSafely(ctx context.Context, input string) (t *turn) {
	t = &turn{input: input, context: input}
	defer func() {
		var fault *FaultError
		if r := recover(); r != nil {
			fault = &FaultError{Cause: r, Stack: debug.Stack()}
		} else if t.err != nil {
			fault = &FaultError{Cause: t.err}
		}
		if fault == nil {
			return
		}
		o.logger.Error("orchestrator fault", "err", fault, "iterations", t.iterations)
		if !t.responded {
			o.setState(StateResponding)
			o.respond(t, faultReply, "fault")
		}
	}()

	t.err = o.loop(ctx, t)
	return t
}

func (o *Orchestrator) loop(ctx context.Context, t *turn) error {
	for t.iterations < o.maxIter {
		if ctx.Err() != nil {
			o.setState(StateResponding)
			o.respond(t, cancelledReply, "cancelled")
			return nil
		}
		t.iterations++
		o.setState(StateThinking)
		if o.thinkDelay > 0 {
			if err := o.clock.Sleep(ctx, o.thinkDelay); err != nil {
				o.setState(StateResponding)
				o.respond(t, cancelledReply, "cancelled")
				return nil
			}
		}

		d := o.router.Classify(t.context, o.registry)
		o.session.AppendAction(session.Action{
			Type:    session.ActionThought,
			Content: describe(t, d),
		})

		if d.Kind == router.NeedsTool {
			o.setState(StateToolUse)
			res := o.executor.Execute(ctx, d.Tool, d.Params)
			o.session.AppendAction(session.Action{
				Type:       session.ActionToolUse,
				Content:    fmt.Sprintf("Using %s", d.Tool),
				Tool:       d.Tool,
				ToolInput:  d.Params,
				ToolOutput: res.Text(),
				Outcome:    res.Outcome(),
			})
			t.hadToolUse = true
			t.observations = append(t.observations, res.Text())
			t.context = router.Fold(t.input, t.observations...)
			continue
		}

		o.setState(StateResponding)
		text, err := o.synth.Synthesize(ctx, t.context, t.hadToolUse)
		if err != nil {
			return fmt.Errorf("synthesize: %w", err)
		}
		o.respond(t, text, "response")
		return nil
	}

	o.setState(StateResponding)
	o.logger.Warn("iteration budget exhausted", "max_iterations", o.maxIter)
	o.respond(t,
		fmt.Sprintf("I've reached the maximum of %d reasoning steps without a final answer.", o.maxIter),
		"exhausted",
	)
	return nil
}

func (o *Orchestrator) respond(t *turn, text, outcome string) {
	actionOutcome := outcome
	if outcome == "exhausted" {
		actionOutcome = ErrIterationBudgetExhausted.Error()
	}
	o.session.AppendAction(session.Action{
		Type:    session.ActionResponse,
		Content: text,
		Outcome: actionOutcome,
	})
	t.reply = text
	t.outcome = outcome
	t.responded = true
}

func describe(t *turn, d router.Decision) string {
	switch {
	case d.Kind == router.NeedsTool:
		return fmt.Sprintf("Step %d: %q needs the %s tool (matched %s)",
			t.iterations, stringutils.Truncate(t.input, 60), d.Tool, d.Matcher)
	case t.hadToolUse:
		return fmt.Sprintf("Step %d: I have the tool results, composing a response", t.iterations)
	default:
		return fmt.Sprintf("Step %d: I can answer %q directly", t.iterations, stringutils.Truncate(t.input, 60))
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// State returns the current loop state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// ID returns the session ID.
func (o *Orchestrator) ID() string { return o.session.ID() }

// Session returns a snapshot of the session.
func (o *Orchestrator) Session() session.Snapshot { return o.session.Snapshot() }

// Actions returns a copy of the action log.
func (o *Orchestrator) Actions() []session.Action { return o.session.Actions() }

// Messages returns a copy of the message history.
func (o *Orchestrator) Messages() []session.ChatMessage { return o.session.Messages() }

func (o *Orchestrator) IsThinking() bool { return o.session.IsThinking() }

// AddTool registers tool with the underlying registry.
func (o *Orchestrator) AddTool(tool schema.Tool) error { return o.registry.Register(tool) }

// RemoveTool unregisters name; absent names are ignored.
func (o *Orchestrator) RemoveTool(name string) { o.registry.Unregister(name) }

// AvailableTools lists the registered tools in registration order.
func (o *Orchestrator) AvailableTools() []schema.Tool { return o.registry.List() }

// ArchiveActions moves all but the newest keep actions to the archive sink.
// It returns the number archived. On sink failure the actions stay in the log.
// A session with a message in flight reports ErrBusy even without a sink.
func (o *Orchestrator) ArchiveActions(ctx context.Context, keep int) (int, error) {
	if !o.run.TryLock() {
		return 0, ErrBusy
	}
	defer o.run.Unlock()
	if o.archive == nil {
		return 0, ErrNoArchive
	}

	removed := o.session.TruncateActions(keep)
	if len(removed) == 0 {
		return 0, nil
	}
	if err := o.archive.Archive(ctx, o.session.ID(), removed); err != nil {
		o.session.Restore(removed)
		return 0, fmt.Errorf("archive actions: %w", err)
	}
	o.logger.Info("actions archived", "count", len(removed), "kept", keep)
	return len(removed), nil
}

// Reset archives the whole action log when a sink is configured, then clears
// the session.
func (o *Orchestrator) Reset(ctx context.Context) error {
	if o.archive != nil {
		if _, err := o.ArchiveActions(ctx, 0); err != nil {
			return err
		}
	}
	if !o.run.TryLock() {
		return ErrBusy
	}
	defer o.run.Unlock()
	o.session.Clear()
	return nil
}

// WaitIdle blocks until the message in flight, if any, has finished. It does
// not hold the session, so a new message may start right after it returns.
func (o *Orchestrator) WaitIdle() {
	o.mu.RLock()
	idle := o.idle
	o.mu.RUnlock()
	if idle != nil {
		<-idle
	}
}

// IsBusy reports whether err is a rejection caused by an in-flight message.
func IsBusy(err error) bool { return errors.Is(err, ErrBusy) }
