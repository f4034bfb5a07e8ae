// Package models defines data structures for Tickerwise
package models

import (
	"time"
)

// ChartDateFormat is the layout used for dates in chart payloads
const ChartDateFormat = "2006-01-02"

// PriceSnapshot holds point-in-time price figures for a ticker.
// A nil field means the provider did not report that figure.
type PriceSnapshot struct {
	Ticker        string    `json:"ticker"`
	Current       *float64  `json:"current,omitempty"`
	AfterHours    *float64  `json:"after_hours,omitempty"`
	PreviousClose *float64  `json:"previous_close,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Source        string    `json:"source,omitempty"` // "yahoo" or "eodhd"
	Timestamp     time.Time `json:"timestamp"`
}

// DisplayPrice returns the price to show: the current price, else the
// previous close. ok is false when neither is available. fallback reports
// whether the previous close was substituted.
func (s *PriceSnapshot) DisplayPrice() (price float64, fallback bool, ok bool) {
	if s == nil {
		return 0, false, false
	}
	if s.Current != nil {
		return *s.Current, false, true
	}
	if s.PreviousClose != nil {
		return *s.PreviousClose, true, true
	}
	return 0, false, false
}

// RealTimeQuote holds a live OHLCV snapshot from EODHD's real-time endpoint
type RealTimeQuote struct {
	Code          string    `json:"code"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`          // current/last price
	PreviousClose float64   `json:"previous_close"` // previous day's close
	Change        float64   `json:"change"`
	ChangePct     float64   `json:"change_p"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// PriceBar represents a single day's price data
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// ChartSeries is the column-oriented price history sent to the chart.
// All slices have the same length.
type ChartSeries struct {
	Dates  []string  `json:"dates"`
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []int64   `json:"volume"`
}

// NewChartSeries builds a ChartSeries from bars ordered oldest first.
func NewChartSeries(bars []PriceBar) *ChartSeries {
	s := &ChartSeries{
		Dates:  make([]string, len(bars)),
		Open:   make([]float64, len(bars)),
		High:   make([]float64, len(bars)),
		Low:    make([]float64, len(bars)),
		Close:  make([]float64, len(bars)),
		Volume: make([]int64, len(bars)),
	}
	for i, b := range bars {
		s.Dates[i] = b.Date.Format(ChartDateFormat)
		s.Open[i] = b.Open
		s.High[i] = b.High
		s.Low[i] = b.Low
		s.Close[i] = b.Close
		s.Volume[i] = b.Volume
	}
	return s
}

// Len returns the number of points in the series
func (s *ChartSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Dates)
}

// Empty reports whether the series has no data
func (s *ChartSeries) Empty() bool {
	return s.Len() == 0
}

// CompanyInfo holds descriptive and analyst data for a ticker
type CompanyInfo struct {
	Ticker            string   `json:"ticker"`
	Name              string   `json:"name,omitempty"`
	Exchange          string   `json:"exchange,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	Sector            string   `json:"sector,omitempty"`
	Industry          string   `json:"industry,omitempty"`
	Description       string   `json:"description,omitempty"`
	MarketCap         float64  `json:"market_cap,omitempty"`
	PE                float64  `json:"pe,omitempty"`
	EPS               float64  `json:"eps,omitempty"`
	DividendYield     float64  `json:"dividend_yield,omitempty"`
	High52Week        float64  `json:"high_52_week,omitempty"`
	Low52Week         float64  `json:"low_52_week,omitempty"`
	AnalystRating     string   `json:"analyst_rating,omitempty"`
	AnalystTarget     float64  `json:"analyst_target_price,omitempty"`
	AnalystCount      int      `json:"analyst_count,omitempty"`
	RecommendationKey string   `json:"recommendation_key,omitempty"`
	Source            string   `json:"source,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// NewsItem is a single web search hit for a news query
type NewsItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Source  string `json:"source,omitempty"`
}

// TrendType classifies the direction of the trailing price window
type TrendType string

const (
	TrendBullish TrendType = "bullish"
	TrendBearish TrendType = "bearish"
	TrendNeutral TrendType = "neutral"
)

// TechnicalSignals are indicators computed from daily bars
type TechnicalSignals struct {
	Price            float64   `json:"price"`
	SMA20            float64   `json:"sma_20,omitempty"`
	SMA50            float64   `json:"sma_50,omitempty"`
	DistanceToSMA20  float64   `json:"distance_to_sma_20_pct,omitempty"`
	DistanceToSMA50  float64   `json:"distance_to_sma_50_pct,omitempty"`
	RSI              float64   `json:"rsi_14"`
	RSIState         string    `json:"rsi_state"` // overbought, oversold, neutral
	MACD             float64   `json:"macd"`
	MACDSignal       float64   `json:"macd_signal"`
	MACDHistogram    float64   `json:"macd_histogram"`
	ATR              float64   `json:"atr_14,omitempty"`
	VolumeRatio      float64   `json:"volume_ratio"`
	VolumeState      string    `json:"volume_state"` // spike, low, normal
	Crossover        string    `json:"sma_20_50_crossover"`
	Support          float64   `json:"support,omitempty"`
	Resistance       float64   `json:"resistance,omitempty"`
	Trend            TrendType `json:"trend"`
	TrendDescription string    `json:"trend_description"`
}
