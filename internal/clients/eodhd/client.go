// Package eodhd provides a client for the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/interfaces"
	"github.com/bobmcallan/tickerwise/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" || s == "NA" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// flexInt64 handles JSON integers that may arrive as strings.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	var ff flexFloat64
	if err := ff.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = flexInt64(ff)
	return nil
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	// DefaultExchange is appended to bare tickers ("AAPL" -> "AAPL.US")
	DefaultExchange = "US"

	providerName = "eodhd"
)

// Client implements the MarketDataProvider interface on top of EODHD
type Client struct {
	baseURL    string
	apiKey     string
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

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
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

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// Symbol converts a plain ticker to EODHD's CODE.EXCHANGE form
func Symbol(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if strings.Contains(t, ".") {
		return t
	}
	return t + "." + DefaultExchange
}

// realTimeResponse is the /real-time payload
type realTimeResponse struct {
	Code          string      `json:"code"`
	Timestamp     flexInt64   `json:"timestamp"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	Volume        flexInt64   `json:"volume"`
	PreviousClose flexFloat64 `json:"previousClose"`
	Change        flexFloat64 `json:"change"`
	ChangePct     flexFloat64 `json:"change_p"`
}

// GetRealTimeQuote retrieves the live (15-20 min delayed) quote for a symbol
func (c *Client) GetRealTimeQuote(ctx context.Context, symbol string) (*models.RealTimeQuote, error) {
	path := fmt.Sprintf("/real-time/%s", symbol)

	var resp realTimeResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	return &models.RealTimeQuote{
		Code:          resp.Code,
		Open:          float64(resp.Open),
		High:          float64(resp.High),
		Low:           float64(resp.Low),
		Close:         float64(resp.Close),
		PreviousClose: float64(resp.PreviousClose),
		Change:        float64(resp.Change),
		ChangePct:     float64(resp.ChangePct),
		Volume:        int64(resp.Volume),
		Timestamp:     time.Unix(int64(resp.Timestamp), 0),
	}, nil
}

// GetEOD retrieves daily bars for a symbol between from and to, oldest first
func (c *Client) GetEOD(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "a")
	if !from.IsZero() {
		params.Set("from", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		params.Set("to", to.Format("2006-01-02"))
	}

	path := fmt.Sprintf("/eod/%s", symbol)

	var bars []eodBarResponse
	if err := c.get(ctx, path, params, &bars); err != nil {
		return nil, err
	}

	result := make([]models.PriceBar, 0, len(bars))
	for _, bar := range bars {
		date, err := time.Parse("2006-01-02", bar.Date)
		if err != nil {
			c.logger.Debug().Str("date", bar.Date).Msg("Skipping EOD bar with unparseable date")
			continue
		}
		result = append(result, models.PriceBar{
			Date:   date,
			Open:   float64(bar.Open),
			High:   float64(bar.High),
			Low:    float64(bar.Low),
			Close:  float64(bar.Close),
			Volume: int64(bar.Volume),
		})
	}

	return result, nil
}

// eodBarResponse represents the API response for EOD data
type eodBarResponse struct {
	Date          string      `json:"date"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	AdjustedClose flexFloat64 `json:"adjusted_close"`
	Volume        flexInt64   `json:"volume"`
}

// GetFundamentals retrieves company fundamentals and analyst ratings
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (*models.CompanyInfo, error) {
	path := fmt.Sprintf("/fundamentals/%s", symbol)

	var resp fundamentalsResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	ar := resp.AnalystRatings
	info := &models.CompanyInfo{
		Ticker:        symbol,
		Name:          resp.General.Name,
		Exchange:      resp.General.Exchange,
		Currency:      resp.General.CurrencyCode,
		Sector:        resp.General.Sector,
		Industry:      resp.General.Industry,
		Description:   resp.General.Description,
		MarketCap:     float64(resp.Highlights.MarketCapitalization),
		PE:            float64(resp.Highlights.PERatio),
		EPS:           float64(resp.Highlights.EarningsShare),
		DividendYield: float64(resp.Highlights.DividendYield),
		High52Week:    float64(resp.Technicals.High52Week),
		Low52Week:     float64(resp.Technicals.Low52Week),
		AnalystRating: ar.Rating.label(),
		AnalystTarget: float64(ar.TargetPrice),
		AnalystCount:  int(ar.StrongBuy + ar.Buy + ar.Hold + ar.Sell + ar.StrongSell),
		Source:        providerName,
	}

	return info, nil
}

// analystRating is EODHD's 1-5 consensus score, sometimes sent as a label
type analystRating string

func (r *analystRating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = analystRating(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*r = analystRating(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	*r = ""
	return nil
}

// label maps a numeric consensus score to a rating word
func (r analystRating) label() string {
	score, err := strconv.ParseFloat(string(r), 64)
	if err != nil {
		return string(r)
	}
	switch {
	case score <= 0:
		return ""
	case score < 1.5:
		return "Strong Sell"
	case score < 2.5:
		return "Sell"
	case score < 3.5:
		return "Hold"
	case score < 4.5:
		return "Buy"
	default:
		return "Strong Buy"
	}
}

// fundamentalsResponse represents the API response structure
type fundamentalsResponse struct {
	General struct {
		Code         string `json:"Code"`
		Name         string `json:"Name"`
		Type         string `json:"Type"`
		Exchange     string `json:"Exchange"`
		CurrencyCode string `json:"CurrencyCode"`
		Sector       string `json:"Sector"`
		Industry     string `json:"Industry"`
		Description  string `json:"Description"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization flexFloat64 `json:"MarketCapitalization"`
		PERatio              flexFloat64 `json:"PERatio"`
		EarningsShare        flexFloat64 `json:"EarningsShare"`
		DividendYield        flexFloat64 `json:"DividendYield"`
	} `json:"Highlights"`
	Technicals struct {
		High52Week flexFloat64 `json:"52WeekHigh"`
		Low52Week  flexFloat64 `json:"52WeekLow"`
	} `json:"Technicals"`
	AnalystRatings struct {
		Rating      analystRating `json:"Rating"`
		TargetPrice flexFloat64   `json:"TargetPrice"`
		StrongBuy   flexInt64     `json:"StrongBuy"`
		Buy         flexInt64     `json:"Buy"`
		Hold        flexInt64     `json:"Hold"`
		Sell        flexInt64     `json:"Sell"`
		StrongSell  flexInt64     `json:"StrongSell"`
	} `json:"AnalystRatings"`
}

// Name returns the provider name
func (c *Client) Name() string {
	return providerName
}

// GetSnapshot maps the real-time quote to a price snapshot. EODHD has no
// extended-hours figure so AfterHours is always nil.
func (c *Client) GetSnapshot(ctx context.Context, ticker string) (*models.PriceSnapshot, error) {
	quote, err := c.GetRealTimeQuote(ctx, Symbol(ticker))
	if err != nil {
		return nil, err
	}

	snap := &models.PriceSnapshot{
		Ticker:    ticker,
		Source:    providerName,
		Timestamp: quote.Timestamp,
	}
	if quote.Close > 0 {
		v := quote.Close
		snap.Current = &v
	}
	if quote.PreviousClose > 0 {
		v := quote.PreviousClose
		snap.PreviousClose = &v
	}
	if quote.Timestamp.Unix() <= 0 {
		snap.Timestamp = c.now()
	}
	return snap, nil
}

// GetHistory retrieves daily bars between from and to
func (c *Client) GetHistory(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	return c.GetEOD(ctx, Symbol(ticker), from, to)
}

// GetCompanyInfo retrieves fundamentals for a plain ticker
func (c *Client) GetCompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	info, err := c.GetFundamentals(ctx, Symbol(ticker))
	if err != nil {
		return nil, err
	}
	info.Ticker = ticker
	return info, nil
}

// Ensure Client implements MarketDataProvider
var _ interfaces.MarketDataProvider = (*Client)(nil)
