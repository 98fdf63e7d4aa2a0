package gateway

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/agent"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/clock"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/metrics"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/router"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/session"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/tools"
)

type fixture struct {
	registry *tools.Registry
	archive  *session.FileArchive
	promReg  *prometheus.Registry
	metrics  *metrics.Metrics
	router   router.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := clock.NewFake(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	reg, err := tools.NewRegistryBuilder().
		WithTool(tools.NewCalculatorTool()).
		WithTool(tools.NewWeatherTool(fake, 0)).
		Build()
	require.NoError(t, err)

	archive, err := session.NewFileArchive(filepath.Join(t.TempDir(), "archive"))
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	m := metrics.MustNew(promReg)
	rt, err := router.NewRuleRouter(nil, router.Config{}, nil, m)
	require.NoError(t, err)

	return &fixture{registry: reg, archive: archive, promReg: promReg, metrics: m, router: rt}
}

func (f *fixture) factory(id string) *agent.Orchestrator {
	return agent.New(f.registry, f.router,
		agent.WithSessionID(id),
		agent.WithArchive(f.archive),
		agent.WithMetrics(f.metrics),
	)
}

func (f *fixture) pool(t *testing.T, size int) *Pool {
	t.Helper()
	p, err := NewPool(size, f.factory, nil, f.metrics)
	require.NoError(t, err)
	return p
}
