package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/config"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/shared/cmdutils"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration, workspace and archive directories",
	RunE:  runOnboard,
}

func runOnboard(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	cfgPath := resolvedConfigPath()

	var cfg *config.Config
	if _, err := os.Stat(cfgPath); err == nil {
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			return loadErr
		}
		cfg = existing
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Config refreshed at %s (existing values kept)\n", cfgPath)
	} else {
		def := config.DefaultConfig()
		cfg = &def
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Created config at %s\n", cfgPath)
	}

	for label, dir := range map[string]string{"Workspace": cfg.WorkspacePath(), "Archive": cfg.ArchiveDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		fmt.Fprintf(out, "✓ %s at %s\n", label, dir)
	}

	fmt.Fprintf(out, "\n%s ngamumule is ready!\n\n", cmdutils.Logo)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Chat:    ngamumule chat -m \"what's 12 * 4?\"")
	fmt.Fprintln(out, "  2. Serve:   ngamumule gateway")
	fmt.Fprintf(out, "  3. Tweak:   %s\n", cfgPath)
	return nil
}
