package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
agent:
  max_iterations: 8
  default_location: Nairobi
router:
  priority: [weather, calculator, search, code, read_file]
tools:
  default_timeout: 2s
  timeouts:
    web_search: 500ms
  run_code:
    enabled: true
  fetch:
    max_chars: 1200
gateway:
  cors: true
scheduler:
  prompts:
    - name: morning
      schedule: "0 7 * * *"
      session: daily
      message: weather in Nairobi
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Agent.MaxIterations)
	assert.Equal(t, "Nairobi", cfg.Agent.DefaultLocation)
	assert.Equal(t, []string{"weather", "calculator", "search", "code", "read_file"}, cfg.Router.Priority)
	assert.Equal(t, 2*time.Second, cfg.Tools.DefaultTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Tools.Timeouts["web_search"])
	assert.True(t, cfg.Tools.RunCode.Enabled)
	assert.Equal(t, FetchConfig{Enabled: true, MaxChars: 1200}, cfg.Tools.Fetch)
	assert.True(t, cfg.Gateway.CORS)
	require.Len(t, cfg.Scheduler.Prompts, 1)
	assert.Equal(t, "daily", cfg.Scheduler.Prompts[0].Session)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialConfig_UsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "agent:\n  default_location: Quito\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, "Quito", cfg.Agent.DefaultLocation)
	assert.Equal(t, def.Agent.MaxIterations, cfg.Agent.MaxIterations)
	assert.Equal(t, def.Gateway, cfg.Gateway)
	assert.Equal(t, def.Tools.DefaultTimeout, cfg.Tools.DefaultTimeout)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "agent: [unterminated\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("NGAMUMULE_AGENT_MAX_ITERATIONS", "3")
	t.Setenv("NGAMUMULE_GATEWAY_ADDR", ":9999")
	path := writeConfig(t, t.TempDir(), "agent:\n  max_iterations: 7\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Agent.MaxIterations)
	assert.Equal(t, ":9999", cfg.Gateway.Addr)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	original := DefaultConfig()
	original.Agent.MaxIterations = 9
	original.Tools.Timeouts = map[string]time.Duration{"get_weather": 3 * time.Second}
	original.Scheduler.Prompts = []ScheduledPrompt{{Name: "n", Schedule: "@hourly", Session: "s", Message: "hi"}}

	require.NoError(t, Save(&original, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, *loaded)
}

func TestSave_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	cfg := DefaultConfig()
	require.NoError(t, Save(&cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero iterations", func(c *Config) { c.Agent.MaxIterations = 0 }, "agent.max_iterations"},
		{"zero sessions", func(c *Config) { c.Gateway.MaxSessions = 0 }, "gateway.max_sessions"},
		{"bad timeout", func(c *Config) { c.Tools.Timeouts = map[string]time.Duration{"x": 0} }, "tools.timeouts.x"},
		{"negative keep", func(c *Config) { c.Archive.Keep = -1 }, "archive.keep"},
		{"prompt without message", func(c *Config) {
			c.Scheduler.Prompts = []ScheduledPrompt{{Name: "p", Schedule: "@daily"}}
		}, "scheduler.prompts[0]"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "unknown log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{" TRACE ", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewLogger_RendersTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelTrace)
	logger.Log(context.Background(), LevelTrace, "wire")
	assert.Contains(t, buf.String(), "level=TRACE")
}
