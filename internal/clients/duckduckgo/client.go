// Package duckduckgo provides a news search client over DuckDuckGo's HTML endpoint
package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/interfaces"
	"github.com/bobmcallan/tickerwise/internal/models"
)

const (
	DefaultBaseURL    = "https://html.duckduckgo.com"
	DefaultTimeout    = 20 * time.Second
	DefaultRateLimit  = 1 // requests per second
	DefaultMaxResults = 5

	defaultUserAgent = "Mozilla/5.0 (compatible; tickerwise/1.0)"
)

// Client implements the NewsSearcher interface
type Client struct {
	baseURL    string
	userAgent  string
	maxResults int
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxResults caps results when the caller passes no limit
func WithMaxResults(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// NewClient creates a new DuckDuckGo client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		userAgent:  defaultUserAgent,
		maxResults: DefaultMaxResults,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-200 search response
type APIError struct {
	StatusCode int
	Message    string
	Query      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("DuckDuckGo search error: %s (status: %d, query: %q)", e.Message, e.StatusCode, e.Query)
}

// SearchNews runs a web search and returns up to limit organic results.
// A limit of zero or less uses the configured maximum.
func (c *Client) SearchNews(ctx context.Context, query string, limit int) ([]models.NewsItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if limit <= 0 {
		limit = c.maxResults
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	reqURL := fmt.Sprintf("%s/html/?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug().Str("query", query).Int("limit", limit).Msg("DuckDuckGo search request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body)), Query: query}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	items := parseResults(doc, limit)
	c.logger.Debug().Str("query", query).Int("results", len(items)).Msg("DuckDuckGo search complete")
	return items, nil
}

// parseResults extracts organic hits from a results page, skipping ads
func parseResults(doc *goquery.Document, limit int) []models.NewsItem {
	items := make([]models.NewsItem, 0, limit)
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.HasClass("result--ad") {
			return true
		}
		link := sel.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return true
		}

		target := resolveLink(href)
		items = append(items, models.NewsItem{
			Title:   title,
			URL:     target,
			Snippet: collapseSpace(sel.Find(".result__snippet").First().Text()),
			Source:  sourceOf(sel, target),
		})
		return len(items) < limit
	})
	return items
}

// resolveLink unwraps DuckDuckGo's redirect links ("//duckduckgo.com/l/?uddg=...")
func resolveLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func sourceOf(sel *goquery.Selection, target string) string {
	if s := strings.TrimSpace(sel.Find(".result__url").First().Text()); s != "" {
		host, _, _ := strings.Cut(s, "/")
		return strings.TrimPrefix(host, "www.")
	}
	if u, err := url.Parse(target); err == nil {
		return strings.TrimPrefix(u.Hostname(), "www.")
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Ensure Client implements NewsSearcher
var _ interfaces.NewsSearcher = (*Client)(nil)
