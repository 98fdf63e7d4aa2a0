// Package metrics exposes Prometheus collectors for orchestrator and tool activity.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ngamumule"

// Metrics groups the collectors recorded by the executor, router and loop.
type Metrics struct {
	toolCalls       *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	iterations      prometheus.Histogram
	inFlight        prometheus.Gauge
	routerDecisions *prometheus.CounterVec
	sessions        prometheus.Gauge
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the process-wide instance registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers the collectors with reg, reusing collectors that are
// already registered. Any other registration error panics.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		toolCalls: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tools",
				Name:      "calls_total",
				Help:      "Tool invocations by tool and outcome.",
			},
			[]string{"tool", "outcome"},
		)),
		toolDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "tools",
				Name:      "duration_seconds",
				Help:      "Time spent executing a tool.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		)),
		requests: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "orchestrator",
				Name:      "requests_total",
				Help:      "Processed user messages by outcome.",
			},
			[]string{"outcome"},
		)),
		iterations: register(reg, prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "orchestrator",
				Name:      "iterations",
				Help:      "Loop iterations used per processed message.",
				Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
			},
		)),
		inFlight: register(reg, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "orchestrator",
				Name:      "in_flight",
				Help:      "Messages currently being processed.",
			},
		)),
		routerDecisions: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "decisions_total",
				Help:      "Router decisions by matcher; direct responses use matcher=\"none\".",
			},
			[]string{"matcher"},
		)),
		sessions: register(reg, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "sessions",
				Help:      "Sessions held in the gateway pool.",
			},
		)),
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveTool records one tool invocation.
func (m *Metrics) ObserveTool(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveRequest records a finished message with the iterations it used.
func (m *Metrics) ObserveRequest(outcome string, iterations int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	if iterations > 0 {
		m.iterations.Observe(float64(iterations))
	}
}

// IncRejected counts a message refused before processing.
func (m *Metrics) IncRejected(reason string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) DecInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// IncDecision counts a router decision.
func (m *Metrics) IncDecision(matcher string) {
	if m == nil {
		return
	}
	if matcher == "" {
		matcher = "none"
	}
	m.routerDecisions.WithLabelValues(matcher).Inc()
}

// SetSessions reports the gateway pool size.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}
