package tools

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
	"time"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/clock"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/schema"
)

// ---------------------------------------------------------------------------
// CalculatorTool
// ---------------------------------------------------------------------------

// CalculatorTool evaluates arithmetic with the restricted evaluator.
type CalculatorTool struct{}

func NewCalculatorTool() *CalculatorTool { return &CalculatorTool{} }

func (t *CalculatorTool) Name() string { return ToolCalculator }
func (t *CalculatorTool) Description() string {
	return "Evaluate an arithmetic expression such as \"12 * 4\" or \"sqrt(2) ^ 2\"."
}
func (t *CalculatorTool) Schema() schema.ParameterSchema {
	return schema.ParameterSchema{
		Required: []string{"expression"},
		Fields: map[string]schema.Field{
			"expression": {Kind: schema.KindString, Description: "The arithmetic expression to evaluate"},
		},
	}
}

func (t *CalculatorTool) Execute(_ context.Context, params map[string]any) (string, error) {
	expr, _ := params["expression"].(string)
	v, err := Evaluate(expr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s", strings.TrimSpace(expr), FormatNumber(v)), nil
}

// ---------------------------------------------------------------------------
// WeatherTool
// ---------------------------------------------------------------------------

var weatherConditions = []string{
	"sunny", "partly cloudy", "overcast", "light rain", "thunderstorms", "foggy", "windy", "snow showers",
}

// WeatherTool reports simulated conditions derived from the location name.
type WeatherTool struct {
	clock   clock.Clock
	latency time.Duration
}

func NewWeatherTool(c clock.Clock, latency time.Duration) *WeatherTool {
	if c == nil {
		c = clock.System{}
	}
	return &WeatherTool{clock: c, latency: latency}
}

func (t *WeatherTool) Name() string        { return ToolWeather }
func (t *WeatherTool) Description() string { return "Get the current weather for a location." }
func (t *WeatherTool) Schema() schema.ParameterSchema {
	return schema.ParameterSchema{
		Required: []string{"location"},
		Fields: map[string]schema.Field{
			"location": {Kind: schema.KindString, Description: "City or region name"},
			"units":    {Kind: schema.KindString, Description: "Temperature units", Enum: []string{"metric", "imperial"}},
		},
	}
}

func (t *WeatherTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	location := strings.TrimSpace(fmt.Sprint(params["location"]))
	if location == "" {
		return "", errors.New("location is empty")
	}
	if err := t.clock.Sleep(ctx, t.latency); err != nil {
		return "", err
	}

	h := hashString(strings.ToLower(location))
	celsius := int(h%35) - 5
	condition := weatherConditions[int(h/35)%len(weatherConditions)]
	humidity := 30 + int(h/7)%60

	temp := fmt.Sprintf("%d°C", celsius)
	if units, _ := params["units"].(string); units == "imperial" {
		temp = fmt.Sprintf("%d°F", celsius*9/5+32)
	}
	return fmt.Sprintf("Weather in %s: %s, %s, humidity %d%%", location, temp, condition, humidity), nil
}

// ---------------------------------------------------------------------------
// WebSearchTool
// ---------------------------------------------------------------------------

// WebSearchTool returns simulated search results for a query.
type WebSearchTool struct {
	clock      clock.Clock
	latency    time.Duration
	maxResults int
}

func NewWebSearchTool(c clock.Clock, latency time.Duration, maxResults int) *WebSearchTool {
	if c == nil {
		c = clock.System{}
	}
	if maxResults <= 0 {
		maxResults = 3
	}
	return &WebSearchTool{clock: c, latency: latency, maxResults: maxResults}
}

func (t *WebSearchTool) Name() string        { return ToolWebSearch }
func (t *WebSearchTool) Description() string { return "Search the web and return the top results." }
func (t *WebSearchTool) Schema() schema.ParameterSchema {
	return schema.ParameterSchema{
		Required: []string{"query"},
		Fields: map[string]schema.Field{
			"query": {Kind: schema.KindString, Description: "Search query"},
			"count": {Kind: schema.KindInteger, Description: "Results (1-10)"},
		},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query := strings.TrimSpace(fmt.Sprint(params["query"]))
	if query == "" {
		return "", errors.New("query is empty")
	}
	n := t.maxResults
	if c, ok := params["count"].(float64); ok {
		n = min(max(int(c), 1), 10)
	} else if c, ok := params["count"].(int); ok {
		n = min(max(c, 1), 10)
	}
	if err := t.clock.Sleep(ctx, t.latency); err != nil {
		return "", err
	}

	slug := url.PathEscape(strings.ReplaceAll(strings.ToLower(query), " ", "-"))
	sources := []string{"wikipedia.org/wiki", "news.example.com", "docs.example.org", "blog.example.net"}

	var b strings.Builder
	fmt.Fprintf(&b, "Results for: %s\n", query)
	for i := 0; i < n; i++ {
		src := sources[i%len(sources)]
		fmt.Fprintf(&b, "\n%d. %s (result %d)\n   https://%s/%s\n", i+1, query, i+1, src, slug)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// ---------------------------------------------------------------------------
// RunCodeTool
// ---------------------------------------------------------------------------

var ErrCodeExecutionDisabled = errors.New("code execution is disabled")

// RunCodeTool is gated off by default. When enabled it still only evaluates
// arithmetic through Evaluate; no general-purpose interpreter is embedded.
type RunCodeTool struct {
	enabled bool
}

func NewRunCodeTool(enabled bool) *RunCodeTool { return &RunCodeTool{enabled: enabled} }

func (t *RunCodeTool) Name() string { return ToolRunCode }
func (t *RunCodeTool) Description() string {
	return "Evaluate a snippet of code. Disabled unless tools.run_code.enabled is set."
}
func (t *RunCodeTool) Schema() schema.ParameterSchema {
	return schema.ParameterSchema{
		Required: []string{"code"},
		Fields: map[string]schema.Field{
			"code":     {Kind: schema.KindString, Description: "Source to evaluate"},
			"language": {Kind: schema.KindString, Enum: []string{"javascript", "python", "go", "expression"}},
		},
	}
}

func (t *RunCodeTool) Execute(_ context.Context, params map[string]any) (string, error) {
	if !t.enabled {
		return "", ErrCodeExecutionDisabled
	}
	code, _ := params["code"].(string)

	var out []string
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), ";")
		line = unwrapCall(unwrapCall(line, "console.log("), "print(")
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := Evaluate(line)
		if err != nil {
			return "", fmt.Errorf("only arithmetic expressions are supported: %w", err)
		}
		out = append(out, FormatNumber(v))
	}
	if len(out) == 0 {
		return "(no output)", nil
	}
	return strings.Join(out, "\n"), nil
}

func unwrapCall(line, prefix string) string {
	if strings.HasPrefix(line, prefix) && strings.HasSuffix(line, ")") {
		return line[len(prefix) : len(line)-1]
	}
	return line
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
