package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/interfaces"
	"github.com/bobmcallan/tickerwise/internal/models"
)

// --- Mocks ---

type mockMarket struct {
	snap       *models.PriceSnapshot
	snapErr    error
	bars       []models.PriceBar
	historyErr error
	calls      []string
}

func (m *mockMarket) Snapshot(_ context.Context, ticker string) (*models.PriceSnapshot, error) {
	m.calls = append(m.calls, "snapshot:"+ticker)
	return m.snap, m.snapErr
}

func (m *mockMarket) History(_ context.Context, ticker string) (*models.ChartSeries, error) {
	m.calls = append(m.calls, "history:"+ticker)
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return models.NewChartSeries(m.bars), nil
}

func (m *mockMarket) CompanyInfo(_ context.Context, _ string) (*models.CompanyInfo, error) {
	return &models.CompanyInfo{}, nil
}

func (m *mockMarket) Bars(_ context.Context, _ string) ([]models.PriceBar, error) {
	return m.bars, m.historyErr
}

type mockAnalyst struct {
	content     string
	err         error
	prompt      string
	temperature float64
	called      bool
}

func (m *mockAnalyst) Analyze(_ context.Context, prompt string, temperature float64) (*models.AgentResponse, error) {
	m.called = true
	m.prompt, m.temperature = prompt, temperature
	if m.err != nil {
		return nil, m.err
	}
	return &models.AgentResponse{Content: m.content}, nil
}

func threeBars() []models.PriceBar {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return []models.PriceBar{
		{Date: start, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Date: start.AddDate(0, 0, 1), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 20},
		{Date: start.AddDate(0, 0, 2), Open: 2, High: 3, Low: 1.5, Close: 2.5, Volume: 30},
	}
}

func newTestService(market interfaces.MarketService, analyst interfaces.Analyst, strict bool) *Service {
	return NewService(market, analyst, strict, common.NewSilentLogger())
}

// --- Tests ---

func TestAnalyze_Success(t *testing.T) {
	market := &mockMarket{snap: &models.PriceSnapshot{Current: ptr(227.5)}, bars: threeBars()}
	analyst := &mockAnalyst{content: "<|tool_call|>x<|end|>" + validReport}
	svc := newTestService(market, analyst, true)

	result, err := svc.Analyze(context.Background(), models.AnalysisRequest{Ticker: "AAPL", Temperature: 0.2})
	require.NoError(t, err)

	assert.Equal(t, 0.2, analyst.temperature)
	assert.Contains(t, analyst.prompt, "Live Stock Price: $227.50")
	assert.Equal(t, []string{"snapshot:AAPL", "history:AAPL"}, market.calls)

	assert.Contains(t, result.Result, "<h3>Company Overview</h3>")
	assert.Contains(t, result.Result, "<h3>Final Buy/Hold/Sell Recommendation</h3>")
	assert.NotContains(t, result.Result, "<|tool")
	assert.Equal(t, Disclaimer, result.Disclaimer)

	assert.Equal(t, 3, result.PlotData.Len())
	assert.Len(t, result.PlotData.Open, 3)
	assert.Len(t, result.PlotData.Volume, 3)
}

func TestAnalyze_EmptyHistory(t *testing.T) {
	market := &mockMarket{snap: &models.PriceSnapshot{Current: ptr(1)}, bars: nil}
	svc := newTestService(market, &mockAnalyst{content: validReport}, true)

	result, err := svc.Analyze(context.Background(), models.AnalysisRequest{Ticker: "ZZZZ", Temperature: 0.2})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrNoData))
	assert.Contains(t, err.Error(), "ZZZZ")
}

func TestAnalyze_SnapshotError(t *testing.T) {
	market := &mockMarket{snapErr: errors.New("yahoo down")}
	analyst := &mockAnalyst{content: validReport}
	svc := newTestService(market, analyst, true)

	_, err := svc.Analyze(context.Background(), models.AnalysisRequest{Ticker: "AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yahoo down")
	assert.False(t, analyst.called)
}

func TestAnalyze_AnalystError(t *testing.T) {
	market := &mockMarket{snap: &models.PriceSnapshot{}, bars: threeBars()}
	svc := newTestService(market, &mockAnalyst{err: errors.New("rate limited")}, true)

	_, err := svc.Analyze(context.Background(), models.AnalysisRequest{Ticker: "AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.NotContains(t, market.calls, "history:AAPL")
}

func TestAnalyze_StrictRejectsMalformedOutput(t *testing.T) {
	market := &mockMarket{snap: &models.PriceSnapshot{}, bars: threeBars()}
	svc := newTestService(market, &mockAnalyst{content: "Apple is a buy."}, true)

	_, err := svc.Analyze(context.Background(), models.AnalysisRequest{Ticker: "AAPL"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidReport))
}

func TestAnalyze_LenientPassesThrough(t *testing.T) {
	market := &mockMarket{snap: &models.PriceSnapshot{}, bars: threeBars()}
	svc := newTestService(market, &mockAnalyst{content: "Apple is a **buy**."}, false)

	result, err := svc.Analyze(context.Background(), models.AnalysisRequest{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Contains(t, result.Result, "Apple is a <strong>buy</strong>.")
}

func TestAnalyze_NoAnalyst(t *testing.T) {
	market := &mockMarket{}
	svc := newTestService(market, nil, true)

	_, err := svc.Analyze(context.Background(), models.AnalysisRequest{Ticker: "AAPL"})
	assert.ErrorIs(t, err, ErrNoAnalyst)
	assert.Empty(t, market.calls)
}

type panickingAnalyst struct{}

func (panickingAnalyst) Analyze(context.Context, string, float64) (*models.AgentResponse, error) {
	panic("nil map write")
}

func TestAnalyze_RecoversPanic(t *testing.T) {
	market := &mockMarket{snap: &models.PriceSnapshot{}, bars: threeBars()}
	svc := newTestService(market, panickingAnalyst{}, true)

	result, err := svc.Analyze(context.Background(), models.AnalysisRequest{Ticker: "AAPL"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "nil map write")
}
