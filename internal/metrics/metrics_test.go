package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordsTools(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	m.ObserveTool("calculator", "ok", 10*time.Millisecond)
	m.ObserveTool("calculator", "ok", 10*time.Millisecond)
	m.ObserveTool("get_weather", "timeout", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("calculator", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("get_weather", "timeout")))
}

func TestMetrics_InFlightAndDecisions(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())

	m.IncInFlight()
	m.IncInFlight()
	m.DecInFlight()
	m.IncDecision("")
	m.IncDecision("weather")
	m.SetSessions(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.routerDecisions.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.routerDecisions.WithLabelValues("weather")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.sessions))
}

func TestMustNew_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNew(reg)
	second := MustNew(reg)

	first.ObserveRequest("response", 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.requests.WithLabelValues("response")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTool("x", "ok", time.Second)
		m.ObserveRequest("response", 1)
		m.IncRejected("busy")
		m.IncInFlight()
		m.DecInFlight()
		m.IncDecision("x")
		m.SetSessions(1)
	})
}
