// Package interfaces defines service contracts for Tickerwise
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/tickerwise/internal/models"
)

// MarketDataProvider is a source of prices and company data
type MarketDataProvider interface {
	// Name identifies the provider in logs and payloads ("yahoo", "eodhd")
	Name() string

	// GetSnapshot retrieves current, after-hours and previous-close prices
	GetSnapshot(ctx context.Context, ticker string) (*models.PriceSnapshot, error)

	// GetHistory retrieves daily bars between from and to, oldest first
	GetHistory(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error)

	// GetCompanyInfo retrieves descriptive and analyst data
	GetCompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error)
}

// NewsSearcher runs web searches for recent news
type NewsSearcher interface {
	SearchNews(ctx context.Context, query string, limit int) ([]models.NewsItem, error)
}

// Analyst is the agent collaborator: it turns a prompt into analysis text,
// calling its own tools as it sees fit.
type Analyst interface {
	Analyze(ctx context.Context, prompt string, temperature float64) (*models.AgentResponse, error)
}

// AnalystFunc adapts a plain function to the Analyst interface
type AnalystFunc func(ctx context.Context, prompt string, temperature float64) (*models.AgentResponse, error)

// Analyze calls f(ctx, prompt, temperature)
func (f AnalystFunc) Analyze(ctx context.Context, prompt string, temperature float64) (*models.AgentResponse, error) {
	return f(ctx, prompt, temperature)
}

// BarStorage caches daily price history between requests
type BarStorage interface {
	// GetBars returns cached bars fetched within maxAge
	GetBars(ctx context.Context, ticker string, maxAge time.Duration) ([]models.PriceBar, bool)

	// SaveBars replaces the cached bars for ticker
	SaveBars(ctx context.Context, ticker string, bars []models.PriceBar) error

	// PurgeMarket drops every cached entry and returns how many were removed
	PurgeMarket() int
}
