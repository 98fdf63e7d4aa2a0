// Package cmdutils formats CLI output.
package cmdutils

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/session"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/shared/stringutils"
)

const Logo = "🦉"

var (
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// PrintResponse writes an assistant reply. Empty text prints nothing.
func PrintResponse(w io.Writer, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(w, "\n%s %s\n%s\n\n", Logo, cyan("ngamumule"), text)
}

// PrintAction writes one trace line for an action.
func PrintAction(w io.Writer, a session.Action) {
	switch a.Type {
	case session.ActionThought:
		fmt.Fprintf(w, "  %s %s\n", gray("thought"), gray(a.Content))
	case session.ActionToolUse:
		mark := green("✓")
		if a.Outcome != "ok" {
			mark = red("✗ " + a.Outcome)
		}
		fmt.Fprintf(w, "  %s %s(%s) %s\n", yellow("tool"), a.Tool, formatParams(a.ToolInput), mark)
		fmt.Fprintf(w, "    ↳ %s\n", stringutils.Truncate(strings.ReplaceAll(a.ToolOutput, "\n", " "), 120))
	case session.ActionResponse:
		fmt.Fprintf(w, "  %s %s\n", cyan("response"), gray(a.Outcome))
	}
}

// PrintError writes err in red.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", red("Error:"), err)
}

// Status formats a ✓/✗ marker.
func Status(ok bool) string {
	if ok {
		return green("✓")
	}
	return red("✗")
}

func formatParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, fmt.Sprint(params[k])))
	}
	return strings.Join(parts, ", ")
}
