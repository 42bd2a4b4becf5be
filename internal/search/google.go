package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrMissingCredentials is returned when the API key or engine id is absent
var ErrMissingCredentials = errors.New("GOOGLE_API_KEY or GOOGLE_CX is not set")

// Result is one search hit
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// StatusError is a non-2xx answer from the search API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return strings.TrimSpace(fmt.Sprintf("google search failed: %d %s", e.StatusCode, e.Body))
}

// Config configures a Client
type Config struct {
	APIKey   string
	EngineID string
	BaseURL  string
	Num      int
	Language string
	Country  string
	Timeout  time.Duration
}

// Client queries the Google Custom Search JSON API
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// NewClient creates a search client. A nil httpClient gets cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if cfg.Num <= 0 {
		cfg.Num = 5
	}
	if cfg.Language == "" {
		cfg.Language = "ru"
	}
	if cfg.Country == "" {
		cfg.Country = "ru"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{httpClient: httpClient, cfg: cfg}
}

type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search runs a query and returns the hits that carry a link
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" || strings.TrimSpace(c.cfg.EngineID) == "" {
		return nil, ErrMissingCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("cx", c.cfg.EngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(c.cfg.Num))
	params.Set("hl", c.cfg.Language)
	params.Set("gl", c.cfg.Country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]Result, 0, len(decoded.Items))
	for _, item := range decoded.Items {
		if item.Link == "" {
			continue
		}
		results = append(results, Result{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}
	return results, nil
}

// Links returns the links of results in order
func Links(results []Result) []string {
	links := make([]string, 0, len(results))
	for _, r := range results {
		links = append(links, r.Link)
	}
	return links
}
