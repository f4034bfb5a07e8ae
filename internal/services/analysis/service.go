// Package analysis runs the ticker-to-report pipeline: price snapshot,
// prompt, analyst call, report validation, formatting and price history.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/interfaces"
	"github.com/bobmcallan/tickerwise/internal/models"
)

// Disclaimer is attached to every successful analysis
const Disclaimer = "<div class='alert alert-warning'>Disclaimer: The stock analysis and recommendations provided " +
	"are for informational purposes only and should not be considered financial advice. Always do your " +
	"own research or consult with a financial professional.</div>"

// ErrNoData is returned when the price history window is empty
var ErrNoData = errors.New("no stock data found")

// ErrNoAnalyst is returned when no analyst is configured
var ErrNoAnalyst = errors.New("analyst is not configured")

// Service implements AnalysisService
type Service struct {
	market       interfaces.MarketService
	analyst      interfaces.Analyst
	strictReport bool
	logger       *common.Logger
}

// NewService creates a new analysis service. With strictReport the agent
// output must be a valid six-section report; otherwise unparseable output is
// formatted as-is.
func NewService(market interfaces.MarketService, analyst interfaces.Analyst, strictReport bool, logger *common.Logger) *Service {
	return &Service{
		market:       market,
		analyst:      analyst,
		strictReport: strictReport,
		logger:       logger,
	}
}

// Analyze runs the pipeline for a validated request. Panics in any stage are
// recovered and returned as errors.
func (s *Service) Analyze(ctx context.Context, req models.AnalysisRequest) (result *models.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("ticker", req.Ticker).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Panic in analysis pipeline")
			result, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()

	if s.analyst == nil {
		return nil, ErrNoAnalyst
	}

	snap, err := s.market.Snapshot(ctx, req.Ticker)
	if err != nil {
		return nil, fmt.Errorf("price snapshot: %w", err)
	}

	prompt := BuildPrompt(req.Ticker, snap)

	s.logger.Debug().
		Str("ticker", req.Ticker).
		Float64("temperature", req.Temperature).
		Int("prompt_length", len(prompt)).
		Msg("Invoking analyst")

	resp, err := s.analyst.Analyze(ctx, prompt, req.Temperature)
	if err != nil {
		return nil, fmt.Errorf("analyst: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("analyst: empty response")
	}

	body, err := s.reportMarkdown(req.Ticker, resp.Content)
	if err != nil {
		return nil, err
	}
	formatted := Format(body)

	series, err := s.market.History(ctx, req.Ticker)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	if series.Empty() {
		return nil, fmt.Errorf("%w for %s", ErrNoData, req.Ticker)
	}

	s.logger.Debug().Str("ticker", req.Ticker).Str("result", formatted).Msg("Formatted analysis")

	return &models.AnalysisResult{
		Result:     formatted,
		PlotData:   *series,
		Disclaimer: Disclaimer,
	}, nil
}

// reportMarkdown validates the agent output and renders it as markdown
func (s *Service) reportMarkdown(ticker, content string) (string, error) {
	report, err := ParseReport(content)
	if err == nil {
		return report.Markdown(), nil
	}
	if s.strictReport {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Rejected agent output")
		return "", err
	}
	s.logger.Debug().Err(err).Str("ticker", ticker).Msg("Agent output is not a report, formatting as-is")
	return content, nil
}

// Ensure Service implements AnalysisService
var _ interfaces.AnalysisService = (*Service)(nil)
