// Package tavily provides a client for the Tavily web search API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL     = "https://api.tavily.com"
	defaultSearchDepth = "basic"
	defaultMaxResults  = 5
)

// Client performs web searches against the Tavily API.
type Client interface {
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// SearchResponse is the parsed response from POST /search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []SearchResult `json:"results"`
}

// SearchResult is a single search hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

// SearchOption configures a single search request.
type SearchOption func(*searchRequest)

// WithSearchDepth sets the search depth ("basic" or "advanced").
func WithSearchDepth(depth string) SearchOption {
	return func(r *searchRequest) {
		if depth != "" {
			r.SearchDepth = depth
		}
	}
}

// WithMaxResults caps the number of results returned.
func WithMaxResults(n int) SearchOption {
	return func(r *searchRequest) {
		if n > 0 {
			r.MaxResults = n
		}
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Tavily API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	req := searchRequest{
		Query:       query,
		SearchDepth: defaultSearchDepth,
		MaxResults:  defaultMaxResults,
	}
	for _, opt := range opts {
		opt(&req)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "tavily: marshal request")
	}

	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		respBody, statusCode, err := c.post(ctx, c.baseURL+"/search", body)
		if err == nil && statusCode == http.StatusOK {
			var result SearchResponse
			if err := json.Unmarshal(respBody, &result); err != nil {
				return nil, eris.Wrap(err, "tavily: unmarshal response")
			}
			return &result, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = eris.Errorf("tavily: unexpected status %d: %s", statusCode, string(respBody))
			if !retryableStatusCode(statusCode) {
				return nil, lastErr
			}
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return nil, lastErr
}

func (c *httpClient) post(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, eris.Wrap(err, "tavily: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, eris.Wrap(err, "tavily: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "tavily: read response")
	}
	return respBody, resp.StatusCode, nil
}
