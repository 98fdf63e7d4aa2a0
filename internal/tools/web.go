package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/schema"
)

const (
	fetchUserAgent    = "ngamumule/1.0 (+https://github.com/sanimiftah/ngamumule-platform-sub000)"
	fetchMaxRedirects = 5
	fetchMaxBody      = 2 << 20
)

// validateURL accepts absolute http(s) URLs with a host.
func validateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("only http and https URLs are allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in URL %q", rawURL)
	}
	return u, nil
}

// FetchURLTool downloads a page and returns its readable text.
type FetchURLTool struct {
	maxChars   int
	httpClient *http.Client
}

// NewFetchURLTool creates a FetchURLTool. maxChars defaults to 8000.
func NewFetchURLTool(maxChars int) *FetchURLTool {
	if maxChars <= 0 {
		maxChars = 8000
	}
	client := &http.Client{
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= fetchMaxRedirects {
				return fmt.Errorf("stopped after %d redirects", fetchMaxRedirects)
			}
			return nil
		},
	}
	return &FetchURLTool{maxChars: maxChars, httpClient: client}
}

func (t *FetchURLTool) Name() string { return ToolFetchURL }
func (t *FetchURLTool) Description() string {
	return "Fetch a web page and return its readable text."
}
func (t *FetchURLTool) Schema() schema.ParameterSchema {
	return schema.ParameterSchema{
		Required: []string{"url"},
		Fields: map[string]schema.Field{
			"url": {Kind: schema.KindString, Description: "The http or https URL to fetch"},
		},
	}
}

func (t *FetchURLTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	rawURL, _ := params["url"].(string)
	u, err := validateURL(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("fetch %s: %s", u, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBody))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", u, err)
	}

	var text string
	ctype := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(ctype, "application/json"):
		var buf bytes.Buffer
		if json.Indent(&buf, body, "", "  ") == nil {
			text = buf.String()
		} else {
			text = string(body)
		}
	case strings.Contains(ctype, "text/html") || isHTMLPrefix(body):
		text = extractReadable(body, resp.Request.URL)
	default:
		text = string(body)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Sprintf("%s returned no readable content", u), nil
	}
	if r := []rune(text); len(r) > t.maxChars {
		text = string(r[:t.maxChars]) + "\n... (truncated)"
	}
	return text, nil
}

func extractReadable(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return stripHTMLTags(string(body))
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		text = stripHTMLTags(article.Content)
	}
	text = normalizeWhitespace(text)
	if article.Title != "" {
		text = article.Title + "\n\n" + text
	}
	return text
}

func isHTMLPrefix(b []byte) bool {
	prefix := strings.ToLower(strings.TrimSpace(string(b[:min(256, len(b))])))
	return strings.HasPrefix(prefix, "<!doctype") || strings.HasPrefix(prefix, "<html")
}

var (
	reScript   = regexp.MustCompile(`(?is)<script.*?</script>`)
	reStyle    = regexp.MustCompile(`(?is)<style.*?</style>`)
	reTags     = regexp.MustCompile(`<[^>]+>`)
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)
)

func stripHTMLTags(text string) string {
	text = reScript.ReplaceAllString(text, "")
	text = reStyle.ReplaceAllString(text, "")
	text = reTags.ReplaceAllString(text, "")
	return normalizeWhitespace(text)
}

func normalizeWhitespace(text string) string {
	text = reSpaces.ReplaceAllString(text, " ")
	text = reNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
