package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"qroute/internal/knowledge"
	"qroute/internal/tool"

	"github.com/sourcegraph/conc/iter"
)

// SearchName is the tool name offered to the model
const SearchName = "web_search"

const (
	defaultSearchLimit   = 3
	defaultSnippetLength = 500
)

// Searcher is the knowledge source behind the search tool
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Hit, error)
	FetchExtract(ctx context.Context, pageID int64) (*knowledge.Page, error)
}

// SearchResult is one entry of the search tool payload
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

type SearchTool struct {
	source        Searcher
	limit         int
	snippetLength int
}

// SearchOption configures a SearchTool
type SearchOption func(*SearchTool)

// WithLimit caps the number of pages looked up per query
func WithLimit(n int) SearchOption {
	return func(t *SearchTool) {
		if n > 0 {
			t.limit = n
		}
	}
}

// WithSnippetLength sets how many characters of each extract are kept
func WithSnippetLength(n int) SearchOption {
	return func(t *SearchTool) {
		if n > 0 {
			t.snippetLength = n
		}
	}
}

func NewSearchTool(source Searcher, opts ...SearchOption) *SearchTool {
	t := &SearchTool{
		source:        source,
		limit:         defaultSearchLimit,
		snippetLength: defaultSnippetLength,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *SearchTool) Name() string {
	return SearchName
}

func (t *SearchTool) Description() string {
	return "Perform a web search query"
}

func (t *SearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query to perform",
			},
		},
		"required": []string{"query"},
	}
}

func (t *SearchTool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	var p struct {
		Query string `json:"query"`
	}

	if err := json.Unmarshal(params, &p); err != nil {
		return tool.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	return t.Search(ctx, p.Query), nil
}

// Search looks query up in the knowledge source and returns
// {"results": [...]} in source ranking order, or {"error": reason}.
// Pages whose extract cannot be fetched are left out.
func (t *SearchTool) Search(ctx context.Context, query string) *tool.Result {
	if strings.TrimSpace(query) == "" {
		return tool.ErrorResult("query is required")
	}

	hits, err := t.source.Search(ctx, query, t.limit)
	if err != nil {
		var statusErr *knowledge.StatusError
		if errors.As(err, &statusErr) {
			return tool.ErrorResult(fmt.Sprintf("search failed with status code %d: %s",
				statusErr.StatusCode, strings.TrimSpace(statusErr.Body)))
		}
		return tool.ErrorResult(fmt.Sprintf("search failed: %v", err))
	}
	if len(hits) == 0 {
		return tool.ErrorResult("No results found")
	}
	if len(hits) > t.limit {
		hits = hits[:t.limit]
	}

	// iter.Map keeps input order, so ranking survives the fan-out
	fetched := iter.Map(hits, func(hit *knowledge.Hit) *SearchResult {
		page, err := t.source.FetchExtract(ctx, hit.PageID)
		if err != nil {
			return nil
		}
		return &SearchResult{
			Title:   page.Title,
			Snippet: snippet(page.Extract, t.snippetLength),
			Link:    page.URL,
		}
	})

	results := make([]SearchResult, 0, len(fetched))
	for _, r := range fetched {
		if r != nil {
			results = append(results, *r)
		}
	}
	if len(results) == 0 {
		return tool.ErrorResult("No results found")
	}

	res := tool.JSONResult(map[string]any{"results": results})
	res.Data = map[string]any{
		"hits":    len(hits),
		"skipped": len(hits) - len(results),
	}
	return res
}

// snippet keeps the first n characters of text and always appends "..."
func snippet(text string, n int) string {
	r := []rune(text)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}
