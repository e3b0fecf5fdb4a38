package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

//nolint:gochecknoinits // tools self-register
func init() {
	Register(ToolFetchDocumentation, "Fetch a documentation page as text", func(ctx AgentContext) (Tool, error) {
		client := ctx.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 30 * time.Second}
		}
		return &FetchDocumentationTool{httpClient: client, maxBodyBytes: 100 * 1024, maxChars: 20000}, nil
	})
}

// FetchDocumentationTool downloads a page and returns its readable text.
type FetchDocumentationTool struct {
	httpClient   *http.Client
	maxBodyBytes int64
	maxChars     int
}

func (t *FetchDocumentationTool) Name() string { return ToolFetchDocumentation }

func (t *FetchDocumentationTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: ToolFetchDocumentation,
		Description: "Fetch a documentation URL and return its title and text content (HTML stripped, truncated). " +
			"Only http(s) text pages are supported.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"url": {Type: "string", Description: "Full URL, e.g. 'https://docs.python.org/3/library/json.html'"},
			},
			Required: []string{"url"},
		},
	}
}

func (t *FetchDocumentationTool) PromptDocumentation() string {
	return `- **fetch_documentation** - Read a documentation page
  - Parameters: url (string, REQUIRED)`
}

func (t *FetchDocumentationTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	urlStr, err := requiredString(args, "url")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		return errorResult("URL must start with http:// or https://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, http.NoBody)
	if err != nil {
		return errorResult("failed to create request: " + err.Error())
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; projectgen/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return errorResult("fetch request failed: " + err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errorResult(fmt.Sprintf("HTTP error: %s", resp.Status))
	}
	if ct := resp.Header.Get("Content-Type"); !isTextContent(ct) {
		return errorResult(fmt.Sprintf("unsupported content type: %s", ct))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodyBytes))
	if err != nil {
		return errorResult("failed to read response: " + err.Error())
	}

	html := string(body)
	text := extractText(html)
	truncated := false
	if len(text) > t.maxChars {
		text = text[:t.maxChars]
		truncated = true
	}
	return jsonResult(map[string]any{
		"success":   true,
		"url":       urlStr,
		"title":     extractTitle(html),
		"content":   text,
		"truncated": truncated,
	})
}

func isTextContent(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, kind := range []string{"text/html", "text/plain", "application/xhtml", "application/xml", "text/xml", "text/markdown"} {
		if strings.Contains(ct, kind) {
			return true
		}
	}
	return false
}

var (
	titleRe   = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	scriptRe  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockRe   = regexp.MustCompile(`(?i)</?(p|div|br|li|h[1-6]|tr|pre|section|article)[^>]*>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	blankRe   = regexp.MustCompile(`\n\s*\n+`)
)

func extractTitle(html string) string {
	if m := titleRe.FindStringSubmatch(html); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractText(html string) string {
	html = scriptRe.ReplaceAllString(html, "")
	html = styleRe.ReplaceAllString(html, "")
	html = commentRe.ReplaceAllString(html, "")
	html = blockRe.ReplaceAllString(html, "\n")
	html = tagRe.ReplaceAllString(html, "")

	replacer := strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'")
	html = replacer.Replace(html)
	html = spaceRe.ReplaceAllString(html, " ")
	html = blankRe.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}
