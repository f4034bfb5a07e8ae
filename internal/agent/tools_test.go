package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tickerwise/internal/models"
)

type stubMarket struct {
	snap    *models.PriceSnapshot
	info    *models.CompanyInfo
	bars    []models.PriceBar
	snapErr error
	infoErr error
	barsErr error
}

func (s *stubMarket) Snapshot(ctx context.Context, ticker string) (*models.PriceSnapshot, error) {
	return s.snap, s.snapErr
}

func (s *stubMarket) History(ctx context.Context, ticker string) (*models.ChartSeries, error) {
	return models.NewChartSeries(s.bars), s.barsErr
}

func (s *stubMarket) CompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	return s.info, s.infoErr
}

func (s *stubMarket) Bars(ctx context.Context, ticker string) ([]models.PriceBar, error) {
	return s.bars, s.barsErr
}

type stubSearcher struct {
	query string
	limit int
}

func (s *stubSearcher) SearchNews(ctx context.Context, query string, limit int) ([]models.NewsItem, error) {
	s.query, s.limit = query, limit
	return []models.NewsItem{{Title: "Headline", URL: "https://example.com"}}, nil
}

func makeBars(closes ...float64) []models.PriceBar {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	return bars
}

func TestStockDataTool_PartialData(t *testing.T) {
	price := 150.0
	market := &stubMarket{
		snap:    &models.PriceSnapshot{Ticker: "AAPL", Current: &price},
		infoErr: errors.New("fundamentals down"),
		bars:    makeBars(100, 110),
	}
	tool := NewStockDataTool(market)

	assert.Equal(t, StockDataToolName, tool.Name)
	assert.Contains(t, tool.ParamsJSONSchema["properties"], "ticker")

	out, err := tool.Invoke(context.Background(), `{"ticker":" aapl "}`)
	require.NoError(t, err)

	var data StockData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "AAPL", data.Ticker)
	require.NotNil(t, data.Price)
	assert.Nil(t, data.Company)
	require.NotNil(t, data.History)
	assert.Equal(t, 10.0, data.History.ChangePct)
	require.Len(t, data.Warnings, 1)
	assert.Contains(t, data.Warnings[0], "fundamentals down")
}

func TestStockDataTool_NothingAvailable(t *testing.T) {
	boom := errors.New("down")
	tool := NewStockDataTool(&stubMarket{snapErr: boom, infoErr: boom, barsErr: boom})

	_, err := tool.Invoke(context.Background(), `{"ticker":"ZZZZ"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZZZZ")

	_, err = tool.Invoke(context.Background(), `{"ticker":""}`)
	assert.Error(t, err)

	_, err = tool.Invoke(context.Background(), `not json`)
	assert.Error(t, err)
}

func TestNewsSearchTool_Limits(t *testing.T) {
	searcher := &stubSearcher{}
	tool := NewNewsSearchTool(searcher)

	out, err := tool.Invoke(context.Background(), `{"query":"AAPL news"}`)
	require.NoError(t, err)
	assert.Equal(t, "AAPL news", searcher.query)
	assert.Equal(t, defaultNewsResults, searcher.limit)
	assert.Contains(t, out, "Headline")

	_, err = tool.Invoke(context.Background(), `{"query":"AAPL news","max_results":50}`)
	require.NoError(t, err)
	assert.Equal(t, maxNewsResults, searcher.limit)
}

func TestSummarizeHistory(t *testing.T) {
	assert.Nil(t, SummarizeHistory(nil))

	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	s := SummarizeHistory(makeBars(closes...))

	require.NotNil(t, s)
	assert.Equal(t, 50, s.Days)
	assert.Equal(t, "2026-07-01", s.From)
	assert.Equal(t, 100.0, s.FirstClose)
	assert.Equal(t, 149.0, s.LastClose)
	assert.Equal(t, 49.0, s.ChangePct)
	assert.Equal(t, 150.0, s.High)
	assert.Equal(t, 99.0, s.Low)
	require.NotNil(t, s.Signals)
	assert.Equal(t, 139.5, s.Signals.SMA20)
	assert.Equal(t, 124.5, s.Signals.SMA50)
	assert.Equal(t, "overbought", s.Signals.RSIState)
	assert.Equal(t, int64(100), s.AverageVolume)
}

func TestReflectSchema_Inline(t *testing.T) {
	schema := NewNewsSearchTool(&stubSearcher{}).ParamsJSONSchema

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	assert.NotContains(t, schema, "$ref")
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Equal(t, []any{"query"}, schema["required"])
}
