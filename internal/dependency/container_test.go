package dependency

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/clock"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/config"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/router"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/tools"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Tools.Workspace = filepath.Join(dir, "workspace")
	cfg.Archive.Dir = filepath.Join(dir, "archive")
	return &cfg
}

func newTestContainer(t *testing.T, cfg *config.Config) (*Container, error) {
	t.Helper()
	return New(cfg,
		WithClock(clock.NewFake(time.Now())),
		WithPrometheus(prometheus.NewRegistry()),
	)
}

func TestNew_WiresServices(t *testing.T) {
	c, err := newTestContainer(t, testConfig(t))
	require.NoError(t, err)

	assert.Equal(t, []string{
		tools.ToolCalculator, tools.ToolWeather, tools.ToolWebSearch, tools.ToolRunCode, tools.ToolReadFile,
		tools.ToolFetchURL,
	}, c.Registry().Names())
	assert.Equal(t, router.DefaultPriority, c.Router().Order())
	assert.NotNil(t, c.Gateway())
	assert.NotNil(t, c.Gatherer())
	assert.Empty(t, c.Scheduler().Jobs())
}

func TestNew_OrchestratorUsesConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agent.DefaultLocation = "Reykjavik"
	c, err := newTestContainer(t, cfg)
	require.NoError(t, err)

	o := c.NewOrchestrator("cli")
	msgs, err := o.ProcessMessage(context.Background(), "what's the weather like?")
	require.NoError(t, err)
	assert.Contains(t, msgs[1].Content, "Reykjavik")

	n, err := o.ArchiveActions(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestNew_RunCodeDisabledByDefault(t *testing.T) {
	c, err := newTestContainer(t, testConfig(t))
	require.NoError(t, err)

	msgs, err := c.NewOrchestrator("").ProcessMessage(context.Background(), "run this python snippet: print('hi')")
	require.NoError(t, err)
	assert.Contains(t, msgs[1].Content, "disabled")
}

func TestNew_SchedulerJobs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Prompts = []config.ScheduledPrompt{{Name: "tick", Schedule: "@hourly", Session: "sched", Message: "12 * 4"}}
	cfg.Archive.Schedule = "@daily"
	c, err := newTestContainer(t, cfg)
	require.NoError(t, err)

	jobs := c.Scheduler().Jobs()
	require.Len(t, jobs, 2)

	require.NoError(t, c.Scheduler().Run(context.Background(), "tick"))
	o, ok := c.Pool().Get("sched")
	require.True(t, ok)
	assert.Len(t, o.Messages(), 2)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown matcher", func(c *config.Config) { c.Router.Priority = []string{"weather", "astrology"} }},
		{"bad schedule", func(c *config.Config) {
			c.Scheduler.Prompts = []config.ScheduledPrompt{{Name: "x", Schedule: "whenever", Message: "hi"}}
		}},
		{"zero pool", func(c *config.Config) { c.Gateway.MaxSessions = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := newTestContainer(t, cfg)
			assert.Error(t, err)
		})
	}
}
