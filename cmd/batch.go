package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/agent"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/dependency"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/shared/cmdutils"
)

var batchConcurrency int

var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Run one message per line, each in its own session",
	Long: "Reads FILE (or stdin when FILE is \"-\") and processes every non-empty line " +
		"in a fresh session. Lines starting with # are skipped. Results print in input order.",
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 4, "Sessions processed in parallel")
}

type batchResult struct {
	prompt string
	reply  string
	err    error
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("warn")
	if err != nil {
		return err
	}
	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	prompts, err := readPrompts(in)
	if err != nil {
		return err
	}

	results := processBatch(cmd.Context(), prompts, batchConcurrency, func(i int) *agent.Orchestrator {
		return container.NewOrchestrator(fmt.Sprintf("batch:%d", i+1))
	})
	return printBatch(cmd.OutOrStdout(), results)
}

// readPrompts returns the non-empty, non-comment lines of r.
func readPrompts(r io.Reader) ([]string, error) {
	var prompts []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}
	return prompts, scanner.Err()
}

// processBatch runs every prompt in its own session, at most limit at a time.
// Per-prompt failures are kept in the result rather than aborting the batch.
func processBatch(ctx context.Context, prompts []string, limit int, newSession func(i int) *agent.Orchestrator) []batchResult {
	if limit < 1 {
		limit = 1
	}
	results := make([]batchResult, len(prompts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range prompts {
		i, p := i, p
		g.Go(func() error {
			results[i].prompt = p
			msgs, err := newSession(i).ProcessMessage(gctx, p)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].reply = msgs[len(msgs)-1].Content
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func printBatch(w io.Writer, results []batchResult) error {
	failed := 0
	for i, r := range results {
		fmt.Fprintf(w, "[%d] > %s\n", i+1, r.prompt)
		if r.err != nil {
			failed++
			cmdutils.PrintError(w, r.err)
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "%s\n\n", r.reply)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d messages failed", failed, len(results))
	}
	return nil
}
