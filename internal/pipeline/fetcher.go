package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/findorigin/internal/model"
	"github.com/ppiankov/findorigin/internal/util"
)

const postTextClass = "tgme_widget_message_text"

// RateLimiter throttles outbound requests per host
type RateLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// RobotsPolicy decides whether a URL may be fetched
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, rawURL string) bool
}

// FetchStatus tells which branch of a FetchOutcome is set
type FetchStatus int

const (
	FetchFallback FetchStatus = iota
	FetchFetched
)

// FetchOutcome is the result of a post fetch: either the post text or the
// reason the caller must fall back to the message text
type FetchOutcome struct {
	Status FetchStatus
	Text   string
	Reason string
}

// Fetched wraps extracted post text
func Fetched(text string) FetchOutcome {
	return FetchOutcome{Status: FetchFetched, Text: text}
}

// Fallback records why no post text is available
func Fallback(reason string) FetchOutcome {
	return FetchOutcome{Status: FetchFallback, Reason: reason}
}

// OK reports whether post text was extracted
func (o FetchOutcome) OK() bool {
	return o.Status == FetchFetched && o.Text != ""
}

// PostFetcherConfig configures a PostFetcher
type PostFetcherConfig struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	MaxBytes   int64
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// PostFetcher downloads public channel posts through the embed widget
type PostFetcher struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	maxBytes   int64
	limiter    RateLimiter
	robots     RobotsPolicy
}

// NewPostFetcher creates a PostFetcher. limiter may be nil.
func NewPostFetcher(cfg PostFetcherConfig, limiter RateLimiter) *PostFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 2_000_000
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://t.me"
	}

	client := util.NewHTTPClient(cfg.Timeout, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	return &PostFetcher{
		httpClient: client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBytes,
		limiter:    limiter,
	}
}

// WithRobots makes the fetcher consult robots before every request
func (f *PostFetcher) WithRobots(robots RobotsPolicy) *PostFetcher {
	f.robots = robots
	return f
}

// HTTPClient returns the proxy-aware client used for post fetches
func (f *PostFetcher) HTTPClient() *http.Client {
	return f.httpClient
}

// EmbedURL returns the widget URL for a post
func (f *PostFetcher) EmbedURL(link model.TelegramLink) string {
	return fmt.Sprintf("%s/%s/%s?embed=1", f.baseURL, url.PathEscape(link.Channel), url.PathEscape(link.MessageID))
}

// FetchPost never fails: every error becomes a Fallback outcome
func (f *PostFetcher) FetchPost(ctx context.Context, link model.TelegramLink) FetchOutcome {
	body, err := f.fetch(ctx, f.EmbedURL(link))
	if err != nil {
		return Fallback(err.Error())
	}

	text, err := ExtractPostText(body)
	if err != nil {
		return Fallback(err.Error())
	}
	if text == "" {
		return Fallback("post text is empty")
	}
	return Fetched(text)
}

func (f *PostFetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if f.robots != nil && !f.robots.IsAllowed(ctx, rawURL) {
		return nil, fmt.Errorf("disallowed by robots.txt")
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// ExtractPostText pulls the message text out of an embed page. An empty
// string means the page had no message text block.
func ExtractPostText(page []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	node := findPostTextNode(doc)
	if node == nil {
		return "", nil
	}

	var sb strings.Builder
	writePostText(&sb, node)

	text := strings.ReplaceAll(sb.String(), "\u00a0", " ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text), nil
}

func findPostTextNode(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Div &&
		strings.HasPrefix(attr(n, "class"), postTextClass) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findPostTextNode(c); found != nil {
			return found
		}
	}
	return nil
}

// writePostText renders text nodes, turns <br> into newlines and separates
// adjacent paragraphs with a newline
func writePostText(sb *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if isParagraph(c.PrevSibling) && isParagraph(c.NextSibling) && strings.TrimSpace(c.Data) == "" {
				continue
			}
			sb.WriteString(c.Data)
		case html.ElementNode:
			switch c.DataAtom {
			case atom.Br:
				sb.WriteString("\n")
			case atom.P:
				if isParagraph(previousElement(c)) {
					sb.WriteString("\n")
				}
				writePostText(sb, c)
			default:
				writePostText(sb, c)
			}
		}
	}
}

func previousElement(n *html.Node) *html.Node {
	for p := n.PrevSibling; p != nil; p = p.PrevSibling {
		if p.Type == html.ElementNode {
			return p
		}
		if p.Type == html.TextNode && strings.TrimSpace(p.Data) != "" {
			return nil
		}
	}
	return nil
}

func isParagraph(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == atom.P
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
