package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

//nolint:gochecknoinits // tools self-register
func init() {
	Register(ToolWebSearch, "Search the web for documentation", func(ctx AgentContext) (Tool, error) {
		provider := ctx.Search
		if provider == nil {
			provider = NewDuckDuckGoProvider(ctx.HTTPClient)
		}
		return &WebSearchTool{provider: provider, maxResults: 5}, nil
	})
}

// SearchResult is a single search hit.
type SearchResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// SearchProvider is a web search backend.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// WebSearchTool lets the coder look up library documentation and versions.
type WebSearchTool struct {
	provider   SearchProvider
	maxResults int
}

func (t *WebSearchTool) Name() string { return ToolWebSearch }

func (t *WebSearchTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: ToolWebSearch,
		Description: "Search the web for current technical information such as library versions, " +
			"API usage or error messages. Returns titles, descriptions and URLs; follow up with fetch_documentation.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"query": {Type: "string", Description: "Search query, e.g. 'FastAPI dependency injection'"},
			},
			Required: []string{"query"},
		},
	}
}

func (t *WebSearchTool) PromptDocumentation() string {
	return `- **web_search** - Search the web
  - Parameters: query (string, REQUIRED)`
}

func (t *WebSearchTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	query, err := requiredString(args, "query")
	if err != nil {
		return nil, err
	}
	results, err := t.provider.Search(ctx, query, t.maxResults)
	if err != nil {
		return errorResult(fmt.Sprintf("search failed: %v", err))
	}

	response := map[string]any{
		"success":      true,
		"query":        query,
		"provider":     t.provider.Name(),
		"result_count": len(results),
		"results":      results,
	}
	if len(results) == 0 {
		response["note"] = "No results found. Try a different search query."
	}
	return jsonResult(response)
}

// DuckDuckGoProvider uses DuckDuckGo's Instant Answer API. It returns
// encyclopedic answers and related topics, not a full web index.
type DuckDuckGoProvider struct {
	httpClient *http.Client
	endpoint   string
}

// NewDuckDuckGoProvider creates a provider; a nil client gets a 30s default.
func NewDuckDuckGoProvider(client *http.Client) *DuckDuckGoProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &DuckDuckGoProvider{httpClient: client, endpoint: "https://api.duckduckgo.com/"}
}

func (p *DuckDuckGoProvider) Name() string { return "duckduckgo" }

type ddgTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

type duckDuckGoResponse struct {
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Heading       string     `json:"Heading"`
	Answer        string     `json:"Answer"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
	Results       []ddgTopic `json:"Results"`
}

func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	searchURL := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1", p.endpoint, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "projectgen/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var ddg duckDuckGoResponse
	if err := json.Unmarshal(body, &ddg); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var results []SearchResult
	if ddg.AbstractText != "" {
		results = append(results, SearchResult{Title: ddg.Heading, Description: ddg.AbstractText, URL: ddg.AbstractURL})
	}
	if ddg.Answer != "" {
		results = append(results, SearchResult{Title: "Instant Answer", Description: ddg.Answer})
	}
	for _, group := range [][]ddgTopic{ddg.RelatedTopics, ddg.Results} {
		for _, topic := range group {
			if topic.Text != "" && len(results) < maxResults {
				results = append(results, SearchResult{Description: topic.Text, URL: topic.FirstURL})
			}
		}
	}
	return results, nil
}
