// Package market provides market data with automatic provider fallback
package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/interfaces"
	"github.com/bobmcallan/tickerwise/internal/models"
)

// DefaultHistoryWindow is the trailing window used for price history
const DefaultHistoryWindow = 90 * 24 * time.Hour

// Service implements MarketService with a primary provider and an optional
// fallback. The fallback is consulted when the primary fails or returns
// nothing usable.
type Service struct {
	primary  interfaces.MarketDataProvider
	fallback interfaces.MarketDataProvider
	window   time.Duration
	cache    interfaces.BarStorage
	cacheTTL time.Duration
	logger   *common.Logger
	now      func() time.Time // injectable clock for testing
}

// NewService creates a new market service.
// fallback may be nil, in which case primary errors are returned directly.
func NewService(primary, fallback interfaces.MarketDataProvider, window time.Duration, logger *common.Logger) *Service {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Service{
		primary:  primary,
		fallback: fallback,
		window:   window,
		logger:   logger,
		now:      time.Now,
	}
}

// SetCache enables caching of price history for ttl
func (s *Service) SetCache(cache interfaces.BarStorage, ttl time.Duration) {
	s.cache = cache
	s.cacheTTL = ttl
}

// Snapshot retrieves the live price snapshot. Missing figures in the
// primary snapshot are filled from the fallback when one is configured.
func (s *Service) Snapshot(ctx context.Context, ticker string) (*models.PriceSnapshot, error) {
	snap, primaryErr := s.primary.GetSnapshot(ctx, ticker)
	if primaryErr == nil && snap != nil {
		if _, _, ok := snap.DisplayPrice(); ok || s.fallback == nil {
			return snap, nil
		}
	}

	if s.fallback == nil {
		return nil, primaryErr
	}

	s.logger.Info().
		Str("ticker", ticker).
		Str("primary", s.primary.Name()).
		Str("fallback", s.fallback.Name()).
		Bool("primary_failed", primaryErr != nil).
		Msg("Attempting fallback price snapshot")

	alt, altErr := s.fallback.GetSnapshot(ctx, ticker)
	if altErr != nil {
		s.logger.Warn().Err(altErr).Str("ticker", ticker).Msg("Fallback snapshot failed")
		if primaryErr != nil {
			return nil, primaryErr
		}
		return snap, nil
	}

	if snap == nil {
		return alt, nil
	}
	return mergeSnapshots(snap, alt), nil
}

// Bars retrieves daily bars over the trailing window, oldest first.
// Non-empty results are cached when a cache is set.
func (s *Service) Bars(ctx context.Context, ticker string) ([]models.PriceBar, error) {
	if s.cache != nil {
		if bars, ok := s.cache.GetBars(ctx, ticker, s.cacheTTL); ok {
			return bars, nil
		}
	}

	bars, err := s.fetchBars(ctx, ticker)
	if err == nil && len(bars) > 0 && s.cache != nil {
		if cerr := s.cache.SaveBars(ctx, ticker, bars); cerr != nil {
			s.logger.Warn().Err(cerr).Str("ticker", ticker).Msg("Failed to cache price history")
		}
	}
	return bars, err
}

func (s *Service) fetchBars(ctx context.Context, ticker string) ([]models.PriceBar, error) {
	to := s.now()
	from := to.Add(-s.window)

	bars, primaryErr := s.primary.GetHistory(ctx, ticker, from, to)
	if primaryErr == nil && (len(bars) > 0 || s.fallback == nil) {
		return bars, nil
	}

	if s.fallback == nil {
		return nil, primaryErr
	}

	s.logger.Info().
		Str("ticker", ticker).
		Str("fallback", s.fallback.Name()).
		Bool("primary_failed", primaryErr != nil).
		Msg("Attempting fallback price history")

	alt, altErr := s.fallback.GetHistory(ctx, ticker, from, to)
	if altErr != nil {
		s.logger.Warn().Err(altErr).Str("ticker", ticker).Msg("Fallback history failed")
		if primaryErr != nil {
			return nil, primaryErr
		}
		return bars, nil
	}
	return alt, nil
}

// History retrieves the trailing window as chart columns
func (s *Service) History(ctx context.Context, ticker string) (*models.ChartSeries, error) {
	bars, err := s.Bars(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("price history for %s: %w", ticker, err)
	}
	return models.NewChartSeries(bars), nil
}

// CompanyInfo retrieves company data. When both providers are configured
// their answers are merged, primary first.
func (s *Service) CompanyInfo(ctx context.Context, ticker string) (*models.CompanyInfo, error) {
	info, primaryErr := s.primary.GetCompanyInfo(ctx, ticker)
	if s.fallback == nil {
		return info, primaryErr
	}
	if primaryErr == nil && info != nil && info.AnalystRating != "" && info.Sector != "" {
		return info, nil
	}

	alt, altErr := s.fallback.GetCompanyInfo(ctx, ticker)
	switch {
	case altErr != nil && primaryErr != nil:
		return nil, primaryErr
	case altErr != nil:
		s.logger.Debug().Err(altErr).Str("ticker", ticker).Msg("Fallback company info failed")
		return info, nil
	case primaryErr != nil || info == nil:
		return alt, nil
	}
	return mergeCompanyInfo(info, alt), nil
}

// mergeSnapshots fills nil price fields of a from b
func mergeSnapshots(a, b *models.PriceSnapshot) *models.PriceSnapshot {
	out := *a
	if out.Current == nil {
		out.Current = b.Current
	}
	if out.AfterHours == nil {
		out.AfterHours = b.AfterHours
	}
	if out.PreviousClose == nil {
		out.PreviousClose = b.PreviousClose
	}
	if out.Currency == "" {
		out.Currency = b.Currency
	}
	if a.Current == nil && b.Current != nil {
		out.Source = b.Source
		out.Timestamp = b.Timestamp
	}
	return &out
}

// mergeCompanyInfo fills empty fields of a from b
func mergeCompanyInfo(a, b *models.CompanyInfo) *models.CompanyInfo {
	out := *a
	fillString(&out.Name, b.Name)
	fillString(&out.Exchange, b.Exchange)
	fillString(&out.Currency, b.Currency)
	fillString(&out.Sector, b.Sector)
	fillString(&out.Industry, b.Industry)
	fillString(&out.Description, b.Description)
	fillString(&out.AnalystRating, b.AnalystRating)
	fillString(&out.RecommendationKey, b.RecommendationKey)
	fillFloat(&out.MarketCap, b.MarketCap)
	fillFloat(&out.PE, b.PE)
	fillFloat(&out.EPS, b.EPS)
	fillFloat(&out.DividendYield, b.DividendYield)
	fillFloat(&out.High52Week, b.High52Week)
	fillFloat(&out.Low52Week, b.Low52Week)
	fillFloat(&out.AnalystTarget, b.AnalystTarget)
	if out.AnalystCount == 0 {
		out.AnalystCount = b.AnalystCount
	}
	if b.Source != "" && !strings.Contains(out.Source, b.Source) {
		out.Source = strings.Trim(out.Source+"+"+b.Source, "+")
	}
	// warnings about missing analyst data no longer apply once merged
	if out.AnalystRating != "" {
		out.Warnings = nil
	}
	return &out
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func fillFloat(dst *float64, v float64) {
	if *dst == 0 {
		*dst = v
	}
}

// Ensure Service implements MarketService
var _ interfaces.MarketService = (*Service)(nil)
