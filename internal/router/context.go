package router

import "strings"

const (
	originalPrefix    = "Original request: "
	observationPrefix = "Tool result: "
)

// Fold builds the running context from the original request and the tool
// observations gathered so far:
//
//	Original request: {input}
//	Tool result: {output}
func Fold(original string, observations ...string) string {
	if len(observations) == 0 {
		return original
	}
	var b strings.Builder
	b.WriteString(originalPrefix)
	b.WriteString(original)
	for _, o := range observations {
		b.WriteString("\n")
		b.WriteString(observationPrefix)
		b.WriteString(o)
	}
	return b.String()
}

// HasObservation reports whether ctx was produced by Fold with at least one
// observation.
func HasObservation(ctx string) bool {
	return strings.HasPrefix(ctx, originalPrefix) && strings.Contains(ctx, "\n"+observationPrefix)
}

// Unfold splits a folded context back into the original request and its
// observations. An unfolded context is returned as the request.
func Unfold(ctx string) (original string, observations []string) {
	if !HasObservation(ctx) {
		return ctx, nil
	}
	parts := strings.Split(strings.TrimPrefix(ctx, originalPrefix), "\n"+observationPrefix)
	return parts[0], parts[1:]
}
