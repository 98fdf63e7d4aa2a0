// Package router decides whether an utterance needs a tool, and which one.
package router

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/metrics"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/shared/stringutils"
)

// Kind is the classification outcome.
type Kind int

const (
	DirectResponse Kind = iota
	NeedsTool
)

func (k Kind) String() string {
	if k == NeedsTool {
		return "needs_tool"
	}
	return "direct_response"
}

// Decision is the result of classifying one utterance.
type Decision struct {
	Kind    Kind
	Tool    string
	Params  map[string]any
	Matcher string
}

// Direct is the DirectResponse decision.
func Direct() Decision { return Decision{Kind: DirectResponse} }

// Tools is the registry view the router consults.
type Tools interface {
	Has(name string) bool
}

// Router classifies an utterance, or the running context built from it.
// Implementations must not mutate tools.
type Router interface {
	Classify(utterance string, tools Tools) Decision
}

// Config controls the rule router.
type Config struct {
	// Priority lists matcher names in evaluation order. Empty keeps the
	// default order; otherwise only the listed matchers are active.
	Priority        []string
	DefaultLocation string
	MaxAuditLog     int
}

// Record is one entry of the decision audit log.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Utterance string    `json:"utterance"`
	Kind      string    `json:"kind"`
	Matcher   string    `json:"matcher,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Skipped   []string  `json:"skipped,omitempty"`
}

// Stats summarises decisions since the router was created.
type Stats struct {
	Total         int64            `json:"total"`
	Direct        int64            `json:"direct"`
	MatcherCounts map[string]int64 `json:"matcher_counts"`
}

// RuleRouter evaluates ordered matchers; the first whose predicate holds and
// whose tool is registered wins.
type RuleRouter struct {
	logger   *slog.Logger
	matchers []Matcher
	metrics  *metrics.Metrics
	maxAudit int

	mu       sync.RWMutex
	auditLog []Record
	stats    Stats
}

// NewRuleRouter builds a router over matchers (DefaultMatchers when nil),
// ordered by cfg.Priority. Unknown or repeated names in the priority list are
// rejected.
func NewRuleRouter(logger *slog.Logger, cfg Config, matchers []Matcher, m *metrics.Metrics) (*RuleRouter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if matchers == nil {
		matchers = DefaultMatchers(cfg.DefaultLocation)
	}
	if cfg.MaxAuditLog <= 0 {
		cfg.MaxAuditLog = 500
	}

	ordered, err := applyPriority(matchers, cfg.Priority)
	if err != nil {
		return nil, err
	}
	return &RuleRouter{
		logger:   logger,
		matchers: ordered,
		metrics:  m,
		maxAudit: cfg.MaxAuditLog,
		auditLog: make([]Record, 0, min(cfg.MaxAuditLog, 64)),
		stats:    Stats{MatcherCounts: make(map[string]int64)},
	}, nil
}

func applyPriority(matchers []Matcher, priority []string) ([]Matcher, error) {
	byName := make(map[string]Matcher, len(matchers))
	for _, m := range matchers {
		if m.Name == "" || m.Tool == "" || m.Predicate == nil || m.Extract == nil {
			return nil, fmt.Errorf("router: matcher %q is incomplete", m.Name)
		}
		if _, dup := byName[m.Name]; dup {
			return nil, fmt.Errorf("router: duplicate matcher %q", m.Name)
		}
		byName[m.Name] = m
	}
	if len(priority) == 0 {
		return append([]Matcher(nil), matchers...), nil
	}

	out := make([]Matcher, 0, len(priority))
	seen := make(map[string]bool, len(priority))
	for _, name := range priority {
		m, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("router: unknown matcher %q in priority", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("router: matcher %q listed twice in priority", name)
		}
		seen[name] = true
		out = append(out, m)
	}
	return out, nil
}

// Order returns the active matcher names in evaluation order.
func (r *RuleRouter) Order() []string {
	names := make([]string, len(r.matchers))
	for i, m := range r.matchers {
		names[i] = m.Name
	}
	return names
}

// Classify implements Router. A context that already carries a tool
// observation is answered directly.
func (r *RuleRouter) Classify(utterance string, tools Tools) Decision {
	rec := Record{
		Timestamp: time.Now(),
		Utterance: stringutils.Truncate(utterance, 120),
	}

	d := r.classify(utterance, tools, &rec)

	rec.Kind = d.Kind.String()
	rec.Matcher = d.Matcher
	rec.Tool = d.Tool
	r.record(rec)
	r.metrics.IncDecision(d.Matcher)

	r.logger.Debug("utterance routed",
		"kind", rec.Kind,
		"matcher", d.Matcher,
		"tool", d.Tool,
		"skipped", rec.Skipped,
	)
	return d
}

func (r *RuleRouter) classify(utterance string, tools Tools, rec *Record) Decision {
	if HasObservation(utterance) {
		return Direct()
	}
	lower := strings.ToLower(utterance)
	for _, m := range r.matchers {
		if !m.Predicate(lower) {
			continue
		}
		if tools != nil && !tools.Has(m.Tool) {
			rec.Skipped = append(rec.Skipped, m.Name)
			continue
		}
		params := m.Extract(utterance)
		if params == nil {
			params = map[string]any{}
		}
		return Decision{Kind: NeedsTool, Tool: m.Tool, Params: params, Matcher: m.Name}
	}
	return Direct()
}

func (r *RuleRouter) record(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.auditLog) >= r.maxAudit {
		r.auditLog = r.auditLog[1:]
	}
	r.auditLog = append(r.auditLog, rec)

	r.stats.Total++
	if rec.Matcher == "" {
		r.stats.Direct++
	} else {
		r.stats.MatcherCounts[rec.Matcher]++
	}
}

// AuditLog returns up to limit of the most recent decisions, oldest first.
func (r *RuleRouter) AuditLog(limit int) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.auditLog) {
		limit = len(r.auditLog)
	}
	start := len(r.auditLog) - limit
	out := make([]Record, limit)
	for i, rec := range r.auditLog[start:] {
		rec.Skipped = append([]string(nil), rec.Skipped...)
		out[i] = rec
	}
	return out
}

// Stats returns a copy of the routing statistics.
func (r *RuleRouter) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.stats
	s.MatcherCounts = maps.Clone(r.stats.MatcherCounts)
	return s
}
