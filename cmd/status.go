package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/dependency"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/shared/cmdutils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ngamumule status",
	RunE:  runStatus,
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	cfgPath := resolvedConfigPath()

	fmt.Fprintf(out, "%s ngamumule Status\n\n", cmdutils.Logo)
	fmt.Fprintf(out, "Config:    %s %s\n", cfgPath, cmdutils.Status(exists(cfgPath)))

	cfg, err := loadConfig("warn")
	if err != nil {
		fmt.Fprintf(out, "  (could not load config: %v)\n", err)
		return nil
	}
	container, err := dependency.New(cfg)
	if err != nil {
		fmt.Fprintf(out, "  (could not wire services: %v)\n", err)
		return nil
	}

	fmt.Fprintf(out, "Workspace: %s %s\n", cfg.WorkspacePath(), cmdutils.Status(exists(cfg.WorkspacePath())))
	fmt.Fprintf(out, "Archive:   %s %s\n", cfg.ArchiveDir(), cmdutils.Status(exists(cfg.ArchiveDir())))
	fmt.Fprintf(out, "Gateway:   %s (max %d sessions)\n", cfg.Gateway.Addr, cfg.Gateway.MaxSessions)
	fmt.Fprintf(out, "Loop:      max %d iterations\n\n", cfg.Agent.MaxIterations)

	fmt.Fprintf(out, "Tools:     %s\n", strings.Join(container.Registry().Names(), ", "))
	fmt.Fprintf(out, "Routing:   %s\n", strings.Join(container.Router().Order(), " → "))
	fmt.Fprintf(out, "Run code:  %s\n", cmdutils.Status(cfg.Tools.RunCode.Enabled))
	fmt.Fprintf(out, "Fetch URL: %s\n", cmdutils.Status(cfg.Tools.Fetch.Enabled))

	if jobs := container.Scheduler().Jobs(); len(jobs) > 0 {
		fmt.Fprintln(out, "\nScheduled jobs:")
		for _, j := range jobs {
			fmt.Fprintf(out, "  %-16s %-14s %s\n", j.Name, j.Schedule, j.Kind)
		}
	}
	return nil
}
