package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/router"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/schema"
)

// Synthesizer turns the running context into the final assistant text.
// An error is treated as an orchestrator fault.
type Synthesizer interface {
	Synthesize(ctx context.Context, running string, hadToolUse bool) (string, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, running string, hadToolUse bool) (string, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, c string, hadToolUse bool) (string, error) {
	return f(ctx, c, hadToolUse)
}

// ToolLister exposes the tools a response may advertise.
type ToolLister interface {
	List() []schema.Tool
}

var (
	reGreeting = regexp.MustCompile(`^(?:hi|hello|hey|howdy|good (?:morning|afternoon|evening)|greetings)\b`)
	reThanks   = regexp.MustCompile(`\b(?:thanks|thank you|cheers)\b`)
	reHelp     = regexp.MustCompile(`\b(?:help|what can you do|capabilities)\b`)
)

// TemplateSynthesizer composes replies from fixed templates: tool
// observations are reported verbatim, everything else gets a greeting or
// a capability summary.
type TemplateSynthesizer struct {
	tools ToolLister
}

func NewTemplateSynthesizer(tools ToolLister) *TemplateSynthesizer {
	return &TemplateSynthesizer{tools: tools}
}

func (s *TemplateSynthesizer) Synthesize(_ context.Context, c string, hadToolUse bool) (string, error) {
	original, observations := router.Unfold(c)
	if hadToolUse && len(observations) > 0 {
		return s.fromObservations(observations), nil
	}

	lower := strings.ToLower(strings.TrimSpace(original))
	switch {
	case reGreeting.MatchString(lower):
		return "Hello! " + s.capabilities(), nil
	case reThanks.MatchString(lower):
		return "You're welcome! Let me know if there's anything else I can do.", nil
	case reHelp.MatchString(lower):
		return s.capabilities(), nil
	default:
		return fmt.Sprintf("I don't have a tool for %q yet. %s", original, s.capabilities()), nil
	}
}

func (s *TemplateSynthesizer) fromObservations(observations []string) string {
	var ok, failed []string
	for _, o := range observations {
		if strings.HasPrefix(o, "Error: ") {
			failed = append(failed, strings.TrimPrefix(o, "Error: "))
		} else {
			ok = append(ok, o)
		}
	}

	var b strings.Builder
	if len(ok) > 0 {
		b.WriteString("Here's what I found:\n\n")
		b.WriteString(strings.Join(ok, "\n\n"))
	}
	if len(failed) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("I tried to use a tool but it didn't work out:\n")
		for _, f := range failed {
			b.WriteString("- ")
			b.WriteString(f)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *TemplateSynthesizer) capabilities() string {
	var list []schema.Tool
	if s.tools != nil {
		list = s.tools.List()
	}
	if len(list) == 0 {
		return "I can chat, but no tools are available right now."
	}
	var b strings.Builder
	b.WriteString("I can help with:")
	for _, t := range list {
		fmt.Fprintf(&b, "\n- %s: %s", t.Name(), t.Description())
	}
	return b.String()
}
