package agent

import (
	"context"
	"fmt"
	"strings"
)

const helpText = `ngamumule commands:
/new   Start a new conversation
/tools List available tools
/help  Show available commands`

// HandleCommand runs a slash command. It reports false when text is not a
// known command, in which case the caller should process it as a message.
func (o *Orchestrator) HandleCommand(ctx context.Context, text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "/new":
		if err := o.Reset(ctx); err != nil {
			return fmt.Sprintf("Could not start a new conversation: %v", err), true
		}
		return "New conversation started.", true
	case "/tools":
		var b strings.Builder
		b.WriteString("Available tools:")
		for _, t := range o.AvailableTools() {
			fmt.Fprintf(&b, "\n- %s: %s", t.Name(), t.Description())
		}
		return b.String(), true
	case "/help":
		return helpText, true
	}
	return "", false
}
