// Package yahoo provides a client for the Yahoo Finance chart API
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/interfaces"
	"github.com/bobmcallan/tickerwise/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second

	// Yahoo rejects requests without a browser-like agent
	defaultUserAgent = "Mozilla/5.0 (compatible; tickerwise/1.0)"

	providerName = "yahoo"
)

// Client implements the MarketDataProvider interface on top of Yahoo's
// unauthenticated v8 chart endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time
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

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: defaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error. Status is 200 when Yahoo reports the
// error inside the chart envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("Yahoo API error: %s: %s (status: %d, endpoint: %s)", e.Code, e.Message, e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("Yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// chartResponse is the /v8/finance/chart payload. Price arrays hold nulls
// for non-trading intervals.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Symbol               string   `json:"symbol"`
	Currency             string   `json:"currency"`
	ExchangeName         string   `json:"exchangeName"`
	FullExchangeName     string   `json:"fullExchangeName"`
	InstrumentType       string   `json:"instrumentType"`
	ExchangeTimezoneName string   `json:"exchangeTimezoneName"`
	GMTOffset            int      `json:"gmtoffset"`
	LongName             string   `json:"longName"`
	ShortName            string   `json:"shortName"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	RegularMarketTime    int64    `json:"regularMarketTime"`
	PostMarketPrice      *float64 `json:"postMarketPrice"`
	PreviousClose        *float64 `json:"previousClose"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose"`
	FiftyTwoWeekHigh     *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      *float64 `json:"fiftyTwoWeekLow"`
	RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
}

// chart performs a rate-limited chart request and returns the first result
func (c *Client) chart(ctx context.Context, ticker string, params url.Values) (*chartResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	path := "/v8/finance/chart/" + url.PathEscape(ticker)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", c.baseURL+path).Str("query", params.Encode()).Msg("Yahoo API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var chart chartResponse
	decodeErr := json.Unmarshal(body, &chart)

	// Yahoo answers unknown symbols with 404 plus an error envelope
	if decodeErr == nil && chart.Chart.Error != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       chart.Chart.Error.Code,
			Message:    chart.Chart.Error.Description,
			Endpoint:   path,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "no chart result", Endpoint: path}
	}

	return &chart.Chart.Result[0], nil
}

// Name returns the provider name
func (c *Client) Name() string {
	return providerName
}

// GetSnapshot retrieves current, post-market and previous-close prices
func (c *Client) GetSnapshot(ctx context.Context, ticker string) (*models.PriceSnapshot, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")
	params.Set("includePrePost", "true")

	result, err := c.chart(ctx, ticker, params)
	if err != nil {
		return nil, err
	}

	meta := result.Meta
	snap := &models.PriceSnapshot{
		Ticker:        ticker,
		Current:       positive(meta.RegularMarketPrice),
		AfterHours:    positive(meta.PostMarketPrice),
		PreviousClose: positive(meta.PreviousClose),
		Currency:      meta.Currency,
		Source:        providerName,
		Timestamp:     c.now(),
	}
	if snap.PreviousClose == nil {
		snap.PreviousClose = positive(meta.ChartPreviousClose)
	}
	if meta.RegularMarketTime > 0 {
		snap.Timestamp = time.Unix(meta.RegularMarketTime, 0)
	}

	return snap, nil
}

// GetHistory retrieves daily bars between from and to, oldest first.
// Intervals where Yahoo reports no prices are skipped.
func (c *Client) GetHistory(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	if to.IsZero() {
		to = c.now()
	}
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", strconv.FormatInt(from.Unix(), 10))
	params.Set("period2", strconv.FormatInt(to.Unix(), 10))

	result, err := c.chart(ctx, ticker, params)
	if err != nil {
		return nil, err
	}

	if len(result.Indicators.Quote) == 0 {
		return []models.PriceBar{}, nil
	}
	quote := result.Indicators.Quote[0]

	loc := exchangeLocation(result.Meta)
	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, cl := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == nil || h == nil || l == nil || cl == nil {
			continue
		}
		var vol int64
		if v := at(quote.Volume, i); v != nil {
			vol = int64(*v)
		}
		bars = append(bars, models.PriceBar{
			Date:   dayOf(time.Unix(ts, 0).In(loc)),
			Open:   *o,
			High:   *h,
			Low:    *l,
			Close:  *cl,
			Volume: vol,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// GetCompanyInfo builds company info from the chart metadata. The chart
// endpoint carries names, listing and 52-week range but no analyst data.
func (c *Client) GetCompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	result, err := c.chart(ctx, ticker, params)
	if err != nil {
		return nil, err
	}

	meta := result.Meta
	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	exchange := meta.FullExchangeName
	if exchange == "" {
		exchange = meta.ExchangeName
	}

	info := &models.CompanyInfo{
		Ticker:   ticker,
		Name:     name,
		Exchange: exchange,
		Currency: meta.Currency,
		Source:   providerName,
		Warnings: []string{"analyst ratings unavailable from yahoo chart data"},
	}
	if meta.FiftyTwoWeekHigh != nil {
		info.High52Week = *meta.FiftyTwoWeekHigh
	}
	if meta.FiftyTwoWeekLow != nil {
		info.Low52Week = *meta.FiftyTwoWeekLow
	}
	return info, nil
}

func at(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

// positive drops zero and negative prices, which Yahoo uses for "no data"
func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// exchangeLocation returns the listing exchange's time zone. Daily bars are
// stamped at the session open, so they must be read in exchange time to land
// on the right trading day.
func exchangeLocation(meta chartMeta) *time.Location {
	if meta.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(meta.ExchangeTimezoneName); err == nil {
			return loc
		}
	}
	if meta.GMTOffset != 0 {
		return time.FixedZone(meta.ExchangeName, meta.GMTOffset)
	}
	return time.UTC
}

// dayOf truncates t to its calendar day in t's own location, returned as
// midnight UTC
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Ensure Client implements MarketDataProvider
var _ interfaces.MarketDataProvider = (*Client)(nil)
