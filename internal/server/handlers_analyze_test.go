package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tickerwise/internal/app"
	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/models"
	"github.com/bobmcallan/tickerwise/internal/services/analysis"
)

// --- Mocks ---

type mockAnalysisService struct {
	result *models.AnalysisResult
	err    error
	calls  []models.AnalysisRequest
}

func (m *mockAnalysisService) Analyze(_ context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	m.calls = append(m.calls, req)
	return m.result, m.err
}

type mockMarketService struct {
	bars       []models.PriceBar
	historyErr error
}

func (m *mockMarketService) Snapshot(_ context.Context, ticker string) (*models.PriceSnapshot, error) {
	p := 227.5
	return &models.PriceSnapshot{Ticker: ticker, Current: &p}, nil
}

func (m *mockMarketService) History(_ context.Context, ticker string) (*models.ChartSeries, error) {
	if m.historyErr != nil {
		return nil, fmt.Errorf("price history for %s: %w", ticker, m.historyErr)
	}
	return models.NewChartSeries(m.bars), nil
}

func (m *mockMarketService) CompanyInfo(_ context.Context, ticker string) (*models.CompanyInfo, error) {
	return &models.CompanyInfo{Ticker: ticker}, nil
}

func (m *mockMarketService) Bars(_ context.Context, _ string) ([]models.PriceBar, error) {
	return m.bars, m.historyErr
}

type mockAnalyst struct {
	content     string
	prompt      string
	temperature float64
}

func (m *mockAnalyst) Analyze(_ context.Context, prompt string, temperature float64) (*models.AgentResponse, error) {
	m.prompt, m.temperature = prompt, temperature
	return &models.AgentResponse{Content: m.content}, nil
}

const agentReport = "<|tool_call|>get_stock_data<|end|>```json\n" + `{
  "Company Overview": "Apple designs consumer electronics.",
  "Stock Performance": ["Up 4% over three months"],
  "Recent News": "Services revenue hit a record.",
  "Analyst Ratings": "Consensus Buy.",
  "Technical Trend Analysis": "| Indicator | Value |\n|---|---|\n| SMA20 | 221.4 |",
  "Final Buy/Hold/Sell Recommendation": "Hold"
}` + "\n```"

func barsOf(n int) []models.PriceBar {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	for i := range bars {
		c := 200 + float64(i%5)
		bars[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: int64(1000 + i)}
	}
	return bars
}

func newTestServer(svc *mockAnalysisService) *Server {
	logger := common.NewSilentLogger()
	a := &app.App{
		Config:          common.NewDefaultConfig(),
		Logger:          logger,
		AnalysisService: svc,
		MarketService:   &mockMarketService{},
	}
	return &Server{app: a, logger: logger}
}

func postForm(t *testing.T, h http.Handler, form url.Values) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return rr, body
}

// --- Tests ---

func TestHandleAnalyze_EmptyTicker(t *testing.T) {
	svc := &mockAnalysisService{}
	srv := newTestServer(svc)

	for _, ticker := range []string{"", "   "} {
		rr, _ := postForm(t, http.HandlerFunc(srv.handleAnalyze), url.Values{"ticker": {ticker}})

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"error": "Please enter a valid stock ticker."}`, rr.Body.String())
	}
	assert.Empty(t, svc.calls, "no collaborator may be invoked on a validation failure")
}

func TestHandleAnalyze_InvalidTemperature(t *testing.T) {
	svc := &mockAnalysisService{}
	srv := newTestServer(svc)

	rr, _ := postForm(t, http.HandlerFunc(srv.handleAnalyze), url.Values{"ticker": {"AAPL"}, "temperature": {"warm"}})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"error": "Please enter a valid temperature."}`, rr.Body.String())
	assert.Empty(t, svc.calls)
}

func TestHandleAnalyze_NormalizesRequest(t *testing.T) {
	svc := &mockAnalysisService{result: &models.AnalysisResult{Result: "<p>ok</p>"}}
	srv := newTestServer(svc)

	postForm(t, http.HandlerFunc(srv.handleAnalyze), url.Values{"ticker": {"aapl "}})
	postForm(t, http.HandlerFunc(srv.handleAnalyze), url.Values{"ticker": {"msft"}, "temperature": {"0.9"}})

	require.Len(t, svc.calls, 2)
	assert.Equal(t, models.AnalysisRequest{Ticker: "AAPL", Temperature: 0.2}, svc.calls[0])
	assert.Equal(t, models.AnalysisRequest{Ticker: "MSFT", Temperature: 0.9}, svc.calls[1])
}

func TestHandleAnalyze_NoData(t *testing.T) {
	svc := &mockAnalysisService{err: fmt.Errorf("%w for ZZZZ", analysis.ErrNoData)}
	srv := newTestServer(svc)

	rr, body := postForm(t, http.HandlerFunc(srv.handleAnalyze), url.Values{"ticker": {"zzzz"}})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"error": "No stock data found for ZZZZ."}, body)
}

func TestHandleAnalyze_ProcessingError(t *testing.T) {
	svc := &mockAnalysisService{err: fmt.Errorf("analyst: %w", errors.New("rate limited"))}
	srv := newTestServer(svc)

	rr, body := postForm(t, http.HandlerFunc(srv.handleAnalyze), url.Values{"ticker": {"AAPL"}})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Error processing request: analyst: rate limited", body["error"])
	assert.NotContains(t, body, "result")
}

func TestHandleAnalyze_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(&mockAnalysisService{})

	req := httptest.NewRequest(http.MethodGet, "/analyze", nil)
	rr := httptest.NewRecorder()
	srv.handleAnalyze(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

// TestAnalyze_EndToEnd drives the full pipeline through the middleware stack
// with a stubbed analyst and market.
func TestAnalyze_EndToEnd(t *testing.T) {
	analyst := &mockAnalyst{content: agentReport}
	market := &mockMarketService{bars: barsOf(63)}
	a := app.NewWithServices(common.NewDefaultConfig(), common.NewSilentLogger(), market, analyst)
	h := NewServer(a).Handler()

	rr, body := postForm(t, h, url.Values{"ticker": {"aapl "}})

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotContains(t, body, "error", body["error"])
	assert.Equal(t, 0.2, analyst.temperature)
	assert.Contains(t, analyst.prompt, "AAPL")
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))

	for _, key := range []string{"result", "plot_data", "disclaimer"} {
		assert.Contains(t, body, key)
	}

	result := body["result"].(string)
	assert.Contains(t, result, "<h3>Company Overview</h3>")
	assert.Contains(t, result, `<table class="table table-bordered table-striped">`)
	assert.NotContains(t, result, "<|tool")
	assert.NotContains(t, result, "```")
	assert.Equal(t, analysis.Disclaimer, body["disclaimer"])

	plot := body["plot_data"].(map[string]any)
	for _, key := range []string{"dates", "open", "high", "low", "close", "volume"} {
		series, ok := plot[key].([]any)
		require.True(t, ok, "plot_data.%s missing", key)
		assert.Len(t, series, 63, "plot_data.%s", key)
	}
}

func TestAnalyze_EndToEndEmptyHistory(t *testing.T) {
	a := app.NewWithServices(common.NewDefaultConfig(), common.NewSilentLogger(),
		&mockMarketService{}, &mockAnalyst{content: agentReport})
	h := NewServer(a).Handler()

	rr, body := postForm(t, h, url.Values{"ticker": {"zzzz"}})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"error": "No stock data found for ZZZZ."}, body)
}

func TestAnalyze_EndToEndNoAnalyst(t *testing.T) {
	a := app.NewWithServices(common.NewDefaultConfig(), common.NewSilentLogger(),
		&mockMarketService{bars: barsOf(5)}, nil)
	h := NewServer(a).Handler()

	rr, body := postForm(t, h, url.Values{"ticker": {"AAPL"}})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Error processing request: "+analysis.ErrNoAnalyst.Error(), body["error"])
}
