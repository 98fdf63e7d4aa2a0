// Package config defines the configuration schema for ngamumule.
//
// Keys use snake_case in both the YAML file and NGAMUMULE_* environment
// variables (nested keys joined by "_", e.g. NGAMUMULE_AGENT_MAX_ITERATIONS).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AgentConfig controls the orchestrator loop.
type AgentConfig struct {
	MaxIterations   int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	DefaultLocation string        `mapstructure:"default_location" yaml:"default_location"`
	ThinkDelay      time.Duration `mapstructure:"think_delay" yaml:"think_delay"`
}

func defaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxIterations:   5,
		DefaultLocation: "San Francisco",
	}
}

// RouterConfig orders the intent matchers. An empty priority keeps the
// built-in order.
type RouterConfig struct {
	Priority []string `mapstructure:"priority" yaml:"priority,omitempty"`
}

// RunCodeConfig gates the run_code tool.
type RunCodeConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// FetchConfig controls the fetch_url tool.
type FetchConfig struct {
	Enabled  bool `mapstructure:"enabled" yaml:"enabled"`
	MaxChars int  `mapstructure:"max_chars" yaml:"max_chars"`
}

// ToolsConfig configures the built-in tools and their execution limits.
type ToolsConfig struct {
	DefaultTimeout   time.Duration            `mapstructure:"default_timeout" yaml:"default_timeout"`
	Timeouts         map[string]time.Duration `mapstructure:"timeouts" yaml:"timeouts,omitempty"`
	Workspace        string                   `mapstructure:"workspace" yaml:"workspace"`
	SimulatedLatency time.Duration            `mapstructure:"simulated_latency" yaml:"simulated_latency"`
	SearchResults    int                      `mapstructure:"search_results" yaml:"search_results"`
	RunCode          RunCodeConfig            `mapstructure:"run_code" yaml:"run_code"`
	Fetch            FetchConfig              `mapstructure:"fetch" yaml:"fetch"`
}

func defaultToolsConfig() ToolsConfig {
	return ToolsConfig{
		DefaultTimeout:   10 * time.Second,
		Workspace:        "~/.ngamumule/workspace",
		SimulatedLatency: 300 * time.Millisecond,
		SearchResults:    3,
		Fetch:            FetchConfig{Enabled: true, MaxChars: 8000},
	}
}

// GatewayConfig configures the HTTP/WebSocket server.
type GatewayConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	MaxSessions int    `mapstructure:"max_sessions" yaml:"max_sessions"`
	CORS        bool   `mapstructure:"cors" yaml:"cors"`
}

func defaultGatewayConfig() GatewayConfig {
	return GatewayConfig{Addr: "127.0.0.1:18790", MaxSessions: 256}
}

// ScheduledPrompt sends Message into Session every time Schedule fires.
type ScheduledPrompt struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
	Session  string `mapstructure:"session" yaml:"session"`
	Message  string `mapstructure:"message" yaml:"message"`
}

// SchedulerConfig lists the scheduled prompts.
type SchedulerConfig struct {
	Prompts []ScheduledPrompt `mapstructure:"prompts" yaml:"prompts"`
}

// ArchiveConfig controls where truncated action logs go and how often
// pooled sessions are trimmed. An empty Schedule disables periodic trimming.
type ArchiveConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir"`
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
	Keep     int    `mapstructure:"keep" yaml:"keep"`
}

func defaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{Dir: "~/.ngamumule/archive", Keep: 50}
}

// Config is the root configuration object, loaded from ~/.ngamumule/config.yaml.
type Config struct {
	Agent     AgentConfig     `mapstructure:"agent" yaml:"agent"`
	Router    RouterConfig    `mapstructure:"router" yaml:"router"`
	Tools     ToolsConfig     `mapstructure:"tools" yaml:"tools"`
	Gateway   GatewayConfig   `mapstructure:"gateway" yaml:"gateway"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Archive   ArchiveConfig   `mapstructure:"archive" yaml:"archive"`
	LogLevel  string          `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agent:    defaultAgentConfig(),
		Tools:    defaultToolsConfig(),
		Gateway:  defaultGatewayConfig(),
		Archive:  defaultArchiveConfig(),
		LogLevel: "info",
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Agent.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be at least 1, got %d", c.Agent.MaxIterations))
	}
	if c.Agent.ThinkDelay < 0 {
		errs = append(errs, errors.New("agent.think_delay must not be negative"))
	}
	if c.Tools.DefaultTimeout <= 0 {
		errs = append(errs, errors.New("tools.default_timeout must be positive"))
	}
	for name, d := range c.Tools.Timeouts {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("tools.timeouts.%s must be positive", name))
		}
	}
	if c.Tools.Fetch.MaxChars < 0 {
		errs = append(errs, errors.New("tools.fetch.max_chars must not be negative"))
	}
	if c.Gateway.MaxSessions < 1 {
		errs = append(errs, fmt.Errorf("gateway.max_sessions must be at least 1, got %d", c.Gateway.MaxSessions))
	}
	if c.Archive.Keep < 0 {
		errs = append(errs, errors.New("archive.keep must not be negative"))
	}
	for i, p := range c.Scheduler.Prompts {
		if p.Schedule == "" || strings.TrimSpace(p.Message) == "" {
			errs = append(errs, fmt.Errorf("scheduler.prompts[%d] (%s): schedule and message are required", i, p.Name))
		}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// WorkspacePath returns the expanded path of the read_file workspace.
func (c *Config) WorkspacePath() string {
	return expandHome(c.Tools.Workspace)
}

// ArchiveDir returns the expanded archive directory, or "" when archiving
// is disabled.
func (c *Config) ArchiveDir() string {
	return expandHome(c.Archive.Dir)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
