package router

import (
	"regexp"
	"strings"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/tools"
)

// Matcher pairs a predicate over the lowercased utterance with an extractor
// that builds tool parameters from the original text.
type Matcher struct {
	Name      string
	Tool      string
	Predicate func(lower string) bool
	Extract   func(original string) map[string]any
}

// Default matcher names, also their default priority.
const (
	MatchFetch      = "fetch"
	MatchCalculator = "calculator"
	MatchWeather    = "weather"
	MatchSearch     = "search"
	MatchCode       = "code"
	MatchReadFile   = "read_file"
)

// DefaultPriority is the evaluation order used when none is configured.
var DefaultPriority = []string{MatchFetch, MatchCalculator, MatchWeather, MatchSearch, MatchCode, MatchReadFile}

var (
	reURL = regexp.MustCompile(`https?://[^\s<>"'` + "`" + `]+`)

	reArithmetic  = regexp.MustCompile(`[\d)]\s*(?:\*\*|[-+*/%^×÷])\s*-?\s*[\d(]`)
	reExpression  = regexp.MustCompile(`-?[\d(][\d\s+\-*/%^().×÷]*[\d)]`)
	reCalcKeyword = regexp.MustCompile(`(?i)\b(?:calculate|compute|evaluate)\b\s*:?\s*(.+)`)
	reWhatIs      = regexp.MustCompile(`(?i)^(?:what\s+is|what's)\s+`)

	reWeatherWord = regexp.MustCompile(`\b(?:weather|forecast|temperature)\b`)
	reLocation    = regexp.MustCompile(`(?i)\b(?:in|for|at)\s+([\p{L}][\p{L} .'-]*?)\s*(?:[?.!,]|$|\b(?:today|tonight|tomorrow|now|right now|later|this (?:week(?:end)?|morning|afternoon|evening)|next (?:week(?:end)?|few days)|(?:over|on) the weekend)\b)`)

	reSearchWord  = regexp.MustCompile(`\b(?:search|look up|lookup|find information|google|who is|who was)\b`)
	reSearchQuery = regexp.MustCompile(`(?i)\b(?:search(?:\s+the\s+web)?(?:\s+for)?|look\s*up|find\s+information\s+(?:about|on)|google)\s+(.+)`)

	reCodeVerb  = regexp.MustCompile(`\b(?:run|execute|eval)\b`)
	reCodeNoun  = regexp.MustCompile(`\b(?:code|javascript|js|python|script|snippet)\b`)
	reFence     = regexp.MustCompile("(?s)```([A-Za-z]*)\\s*\\n?(.*?)```")
	reCodeAfter = regexp.MustCompile(`(?is)\b(?:run|execute|eval)\s+(?:this\s+)?(?:(javascript|js|python|go)\b\s*)?(?:code|script|snippet)?\s*:?\s*(.*)`)

	reFileWord = regexp.MustCompile(`\b(?:read|show|open)\s+(?:the\s+)?file\b|\bcontents\s+of\b`)
	reFilePath = regexp.MustCompile("(?i)\\b(?:file|of)\\s+[\"'`]?([^\\s\"'`]+)")
)

// DefaultMatchers returns the built-in matchers in DefaultPriority order.
// defaultLocation fills the weather location when none is named.
func DefaultMatchers(defaultLocation string) []Matcher {
	if defaultLocation == "" {
		defaultLocation = "San Francisco"
	}
	return []Matcher{
		{
			Name:      MatchFetch,
			Tool:      tools.ToolFetchURL,
			Predicate: reURL.MatchString,
			Extract:   extractURL,
		},
		{
			Name:      MatchCalculator,
			Tool:      tools.ToolCalculator,
			Predicate: isCalculation,
			Extract:   extractExpression,
		},
		{
			Name:      MatchWeather,
			Tool:      tools.ToolWeather,
			Predicate: reWeatherWord.MatchString,
			Extract: func(original string) map[string]any {
				return map[string]any{"location": extractLocation(original, defaultLocation)}
			},
		},
		{
			Name:      MatchSearch,
			Tool:      tools.ToolWebSearch,
			Predicate: reSearchWord.MatchString,
			Extract:   extractQuery,
		},
		{
			Name:      MatchCode,
			Tool:      tools.ToolRunCode,
			Predicate: isCodeRequest,
			Extract:   extractCode,
		},
		{
			Name:      MatchReadFile,
			Tool:      tools.ToolReadFile,
			Predicate: reFileWord.MatchString,
			Extract:   extractPath,
		},
	}
}

func extractURL(original string) map[string]any {
	return map[string]any{"url": strings.TrimRight(reURL.FindString(original), ".,;:!?)")}
}

func isCalculation(lower string) bool {
	if reArithmetic.MatchString(lower) {
		return true
	}
	return reCalcKeyword.MatchString(lower) && strings.ContainsAny(lower, "0123456789")
}

func extractExpression(original string) map[string]any {
	var best string
	for _, m := range reExpression.FindAllString(original, -1) {
		if len(strings.TrimSpace(m)) > len(best) && reArithmetic.MatchString(m) {
			best = strings.TrimSpace(m)
		}
	}
	if best == "" {
		if m := reCalcKeyword.FindStringSubmatch(original); m != nil {
			best = m[1]
		} else {
			best = reWhatIs.ReplaceAllString(original, "")
		}
		best = strings.TrimSpace(strings.TrimRight(best, "?.! "))
	}
	return map[string]any{"expression": best}
}

func extractLocation(original, fallback string) string {
	m := reLocation.FindStringSubmatch(original)
	if m == nil {
		return fallback
	}
	loc := strings.TrimSpace(strings.TrimRight(m[1], " .'-"))
	if loc == "" {
		return fallback
	}
	return loc
}

func extractQuery(original string) map[string]any {
	q := original
	if m := reSearchQuery.FindStringSubmatch(original); m != nil {
		q = m[1]
	}
	return map[string]any{"query": strings.TrimSpace(strings.TrimRight(q, "?.! "))}
}

func isCodeRequest(lower string) bool {
	if strings.Contains(lower, "```") {
		return true
	}
	return reCodeVerb.MatchString(lower) && reCodeNoun.MatchString(lower)
}

func extractCode(original string) map[string]any {
	params := map[string]any{}
	var lang, code string
	if m := reFence.FindStringSubmatch(original); m != nil {
		lang, code = m[1], m[2]
	} else if m := reCodeAfter.FindStringSubmatch(original); m != nil {
		lang, code = m[1], m[2]
	} else {
		code = original
	}
	params["code"] = strings.TrimSpace(code)
	if l := normalizeLanguage(lang); l != "" {
		params["language"] = l
	}
	return params
}

func normalizeLanguage(lang string) string {
	switch strings.ToLower(lang) {
	case "js", "javascript":
		return "javascript"
	case "py", "python":
		return "python"
	case "go", "golang":
		return "go"
	default:
		return ""
	}
}

func extractPath(original string) map[string]any {
	if m := reFilePath.FindStringSubmatch(original); m != nil {
		return map[string]any{"path": strings.TrimRight(m[1], "?.!,")}
	}
	return map[string]any{}
}
