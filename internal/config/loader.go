package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NGAMUMULE"

// ConfigPath returns the default configuration file path: ~/.ngamumule/config.yaml.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// DataDir returns the ngamumule data directory: ~/.ngamumule.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ngamumule"
	}
	return filepath.Join(home, ".ngamumule")
}

// Load reads the config file at path and applies NGAMUMULE_* environment
// overrides. If path is empty, ConfigPath() is used. A missing file yields
// the defaults; a file that fails to parse logs a warning and also yields
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
		case isParseError(err):
			slog.Warn("Failed to parse config, using defaults", "path", path, "err", err)
			cfg := DefaultConfig()
			return &cfg, nil
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

// setDefaults registers every scalar key so that AutomaticEnv can override
// keys absent from the file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("agent.max_iterations", d.Agent.MaxIterations)
	v.SetDefault("agent.default_location", d.Agent.DefaultLocation)
	v.SetDefault("agent.think_delay", d.Agent.ThinkDelay)
	v.SetDefault("tools.default_timeout", d.Tools.DefaultTimeout)
	v.SetDefault("tools.workspace", d.Tools.Workspace)
	v.SetDefault("tools.simulated_latency", d.Tools.SimulatedLatency)
	v.SetDefault("tools.search_results", d.Tools.SearchResults)
	v.SetDefault("tools.run_code.enabled", d.Tools.RunCode.Enabled)
	v.SetDefault("tools.fetch.enabled", d.Tools.Fetch.Enabled)
	v.SetDefault("tools.fetch.max_chars", d.Tools.Fetch.MaxChars)
	v.SetDefault("gateway.addr", d.Gateway.Addr)
	v.SetDefault("gateway.max_sessions", d.Gateway.MaxSessions)
	v.SetDefault("gateway.cors", d.Gateway.CORS)
	v.SetDefault("archive.dir", d.Archive.Dir)
	v.SetDefault("archive.schedule", d.Archive.Schedule)
	v.SetDefault("archive.keep", d.Archive.Keep)
	v.SetDefault("log_level", d.LogLevel)
}

func isParseError(err error) bool {
	var parseErr viper.ConfigParseError
	return errors.As(err, &parseErr)
}

// Save writes cfg to path as YAML.
// If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
