// Package knowledge is a small client for the MediaWiki action API, the
// external knowledge source behind the web_search tool.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultEndpoint is the Chinese Wikipedia action API
const DefaultEndpoint = "https://zh.wikipedia.org/w/api.php"

const defaultUserAgent = "qroute/1.0"

// maxErrorBody bounds how much of a failed response is kept in StatusError
const maxErrorBody = 1024

// Hit is one entry of a full-text search, in source ranking order
type Hit struct {
	PageID int64
	Title  string
}

// Page is the plain-text introduction of a single page
type Page struct {
	PageID  int64
	Title   string
	Extract string
	URL     string
}

// StatusError is returned when the API answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status code %d: %s", e.StatusCode, e.Body)
}

// Client talks to a MediaWiki action API endpoint. It is safe for
// concurrent use.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds every request made by the client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header. Wikimedia rejects anonymous
// clients, so an empty value keeps the default.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a client for endpoint, falling back to DefaultEndpoint
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Query *struct {
		Search []struct {
			PageID int64  `json:"pageid"`
			Title  string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// Search runs a full-text search and returns at most limit hits. A response
// without a result list yields no hits and no error.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("utf8", "1")

	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Query == nil {
		return nil, nil
	}

	hits := make([]Hit, 0, len(resp.Query.Search))
	for _, s := range resp.Query.Search {
		hits = append(hits, Hit{PageID: s.PageID, Title: s.Title})
	}
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

type extractResponse struct {
	Query *struct {
		Pages map[string]struct {
			PageID  int64  `json:"pageid"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
		} `json:"pages"`
	} `json:"query"`
}

// FetchExtract returns the plain-text introduction and canonical URL of a page
func (c *Client) FetchExtract(ctx context.Context, pageID int64) (*Page, error) {
	id := strconv.FormatInt(pageID, 10)

	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("prop", "extracts|info")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("inprop", "url")
	params.Set("pageids", id)
	params.Set("utf8", "1")

	var resp extractResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Query == nil || len(resp.Query.Pages) == 0 {
		return nil, fmt.Errorf("page %s not found", id)
	}

	p, ok := resp.Query.Pages[id]
	if !ok {
		// pages is keyed by id; take whatever single entry came back
		for _, v := range resp.Query.Pages {
			p = v
			break
		}
	}

	return &Page{
		PageID:  pageID,
		Title:   p.Title,
		Extract: p.Extract,
		URL:     p.FullURL,
	}, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}
