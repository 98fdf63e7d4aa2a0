package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/agent"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/dependency"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/shared/cmdutils"
)

var (
	chatMessage string
	chatSession string
	chatTrace   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "cli:direct", "Session ID")
	chatCmd.Flags().BoolVar(&chatTrace, "trace", false, "Print the action trace for each message")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig("warn")
	if err != nil {
		return err
	}
	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}
	o := container.NewOrchestrator(chatSession)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if chatMessage != "" {
		return sendMessage(ctx, o, out, chatMessage, chatTrace)
	}
	return runInteractive(ctx, o, cmd.InOrStdin(), out)
}

// runInteractive reads lines until EOF, an exit command or ctx cancellation.
func runInteractive(ctx context.Context, o *agent.Orchestrator, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "%s Interactive mode (type 'exit' or Ctrl+C to quit, /help for commands)\n\n", cmdutils.Logo)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() || ctx.Err() != nil {
			fmt.Fprintln(out, "\nGoodbye!")
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if reply, ok := o.HandleCommand(ctx, line); ok {
			cmdutils.PrintResponse(out, reply)
			continue
		}
		if err := sendMessage(ctx, o, out, line, chatTrace); err != nil {
			cmdutils.PrintError(out, err)
		}
	}
}

// sendMessage processes one message and prints the reply, preceded by the
// actions it produced when trace is set.
func sendMessage(ctx context.Context, o *agent.Orchestrator, out io.Writer, text string, trace bool) error {
	ex, err := o.Process(ctx, text)
	if err != nil {
		return err
	}
	if trace {
		for _, a := range ex.Actions {
			cmdutils.PrintAction(out, a)
		}
	}
	cmdutils.PrintResponse(out, ex.Messages[len(ex.Messages)-1].Content)
	return nil
}
