package interfaces

import (
	"context"

	"github.com/bobmcallan/tickerwise/internal/models"
)

// MarketService provides market data for a ticker over the analysis window
type MarketService interface {
	// Snapshot returns the live price snapshot
	Snapshot(ctx context.Context, ticker string) (*models.PriceSnapshot, error)

	// History returns the trailing daily price history as chart columns
	History(ctx context.Context, ticker string) (*models.ChartSeries, error)

	// CompanyInfo returns descriptive and analyst data
	CompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error)

	// Bars returns the trailing daily bars, oldest first
	Bars(ctx context.Context, ticker string) ([]models.PriceBar, error)
}

// AnalysisService runs the ticker-to-report pipeline
type AnalysisService interface {
	// Analyze runs the pipeline for an already validated request
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
}
