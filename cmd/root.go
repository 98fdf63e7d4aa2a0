// Package cmd implements the ngamumule CLI using cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/config"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/shared/cmdutils"
)

const version = "0.1.0"

var (
	configPath string
	logLevel   string
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:           "ngamumule",
	Short:         cmdutils.Logo + " ngamumule: tool-using conversational assistant",
	Long:          cmdutils.Logo + " ngamumule routes each message to a tool or a direct reply and keeps a full action trace.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cmdutils.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.ngamumule/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(statusCmd)
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.ConfigPath()
}

// loadConfig reads and validates the config, then installs the default
// logger. fallbackLevel applies when neither --log-level nor the file sets one.
func loadConfig(fallbackLevel string) (*config.Config, error) {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	switch {
	case logLevel != "":
		cfg.LogLevel = logLevel
	case cfg.LogLevel == "" || cfg.LogLevel == config.DefaultConfig().LogLevel:
		if fallbackLevel != "" {
			cfg.LogLevel = fallbackLevel
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s:\n%w", resolvedConfigPath(), err)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	slog.SetDefault(config.NewLogger(os.Stderr, level))
	return cfg, nil
}
