package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/dependency"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/shared/cmdutils"
)

var gatewayAddr string

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the HTTP/WebSocket gateway and the scheduler",
	RunE:  runGateway,
}

func init() {
	gatewayCmd.Flags().StringVarP(&gatewayAddr, "addr", "a", "", "Listen address (overrides gateway.addr)")
}

func runGateway(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	if gatewayAddr != "" {
		cfg.Gateway.Addr = gatewayAddr
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Starting ngamumule gateway on %s...\n", cmdutils.Logo, cfg.Gateway.Addr)
	if jobs := container.Scheduler().Jobs(); len(jobs) > 0 {
		fmt.Fprintf(out, "✓ Scheduled jobs: %d\n", len(jobs))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.Gateway().Start(gctx) })
	g.Go(func() error { return container.Scheduler().Start(gctx) })

	fmt.Fprintf(out, "%s Gateway running. Press Ctrl+C to stop.\n", cmdutils.Logo)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("gateway: %w", err)
	}
	fmt.Fprintln(out, "\nShutdown complete.")
	return nil
}
