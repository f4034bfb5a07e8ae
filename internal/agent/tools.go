package agent

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bobmcallan/tickerwise/internal/interfaces"
	"github.com/bobmcallan/tickerwise/internal/models"
	"github.com/bobmcallan/tickerwise/internal/signals"
)

const (
	StockDataToolName  = "get_stock_data"
	NewsSearchToolName = "search_news"

	defaultNewsResults = 5
	maxNewsResults     = 10
)

// StockDataArgs are the arguments of the market data tool
type StockDataArgs struct {
	Ticker string `json:"ticker" jsonschema:"description=Stock ticker symbol such as AAPL"`
}

// StockData is the market data tool's result
type StockData struct {
	Ticker   string                `json:"ticker"`
	Price    *models.PriceSnapshot `json:"price,omitempty"`
	Company  *models.CompanyInfo   `json:"company,omitempty"`
	History  *HistorySummary       `json:"history,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
}

// HistorySummary condenses the trailing price history for the model
type HistorySummary struct {
	From          string  `json:"from"`
	To            string  `json:"to"`
	Days          int     `json:"trading_days"`
	FirstClose    float64 `json:"first_close"`
	LastClose     float64 `json:"last_close"`
	ChangePct     float64 `json:"change_pct"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	AverageVolume int64   `json:"average_volume"`

	Signals *models.TechnicalSignals `json:"technical_signals,omitempty"`
}

// NewsSearchArgs are the arguments of the news search tool
type NewsSearchArgs struct {
	Query      string `json:"query" jsonschema:"description=Web search query for recent news"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results (default 5 max 10)"`
}

// NewStockDataTool exposes prices, company info, analyst data and a history
// summary. Partial data is returned with warnings rather than failing.
func NewStockDataTool(market interfaces.MarketService) FunctionTool {
	return NewFunctionTool(StockDataToolName,
		"Get the live price, company information, analyst recommendations and a three month price summary for a stock ticker.",
		func(ctx context.Context, args StockDataArgs) (*StockData, error) {
			ticker := strings.ToUpper(strings.TrimSpace(args.Ticker))
			if ticker == "" {
				return nil, fmt.Errorf("ticker is required")
			}

			data := &StockData{Ticker: ticker}

			snap, err := market.Snapshot(ctx, ticker)
			if err != nil {
				data.Warnings = append(data.Warnings, "price unavailable: "+err.Error())
			} else {
				data.Price = snap
			}

			info, err := market.CompanyInfo(ctx, ticker)
			if err != nil {
				data.Warnings = append(data.Warnings, "company info unavailable: "+err.Error())
			} else {
				data.Company = info
			}

			bars, err := market.Bars(ctx, ticker)
			if err != nil {
				data.Warnings = append(data.Warnings, "history unavailable: "+err.Error())
			} else {
				data.History = SummarizeHistory(bars)
			}

			if data.Price == nil && data.Company == nil && data.History == nil {
				return nil, fmt.Errorf("no market data found for %s", ticker)
			}
			return data, nil
		})
}

// NewNewsSearchTool exposes web search for recent news
func NewNewsSearchTool(searcher interfaces.NewsSearcher) FunctionTool {
	return NewFunctionTool(NewsSearchToolName,
		"Search the web for the latest news about a company or stock. Returns headlines with links and snippets.",
		func(ctx context.Context, args NewsSearchArgs) ([]models.NewsItem, error) {
			limit := args.MaxResults
			if limit <= 0 {
				limit = defaultNewsResults
			}
			if limit > maxNewsResults {
				limit = maxNewsResults
			}
			return searcher.SearchNews(ctx, args.Query, limit)
		})
}

// SummarizeHistory reduces daily bars (oldest first) to range, change and
// technical signals. Returns nil for no bars.
func SummarizeHistory(bars []models.PriceBar) *HistorySummary {
	if len(bars) == 0 {
		return nil
	}

	first, last := bars[0], bars[len(bars)-1]
	s := &HistorySummary{
		From:       first.Date.Format(models.ChartDateFormat),
		To:         last.Date.Format(models.ChartDateFormat),
		Days:       len(bars),
		FirstClose: first.Close,
		LastClose:  last.Close,
		High:       first.High,
		Low:        first.Low,
	}

	var volume int64
	for _, b := range bars {
		s.High = math.Max(s.High, b.High)
		s.Low = math.Min(s.Low, b.Low)
		volume += b.Volume
	}
	s.AverageVolume = volume / int64(len(bars))

	if first.Close != 0 {
		s.ChangePct = round2((last.Close - first.Close) / first.Close * 100)
	}
	s.Signals = signals.Compute(bars)

	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
