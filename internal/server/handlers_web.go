package server

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/bobmcallan/tickerwise/internal/services/chart"
)

//go:embed static/index.html
var indexHTML []byte

// handleIndex serves the landing page at GET /.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexHTML)
}

// handleChart handles GET /api/chart/{ticker} and returns a PNG of the
// trailing closing prices.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := PathTicker(r, "/api/chart/")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	series, err := s.app.MarketService.History(r.Context(), ticker)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Price history unavailable for chart")
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Price history unavailable for %s", ticker))
		return
	}

	png, err := chart.RenderPriceChart(ticker, series)
	if err != nil {
		if errors.Is(err, chart.ErrNotEnoughData) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("No stock data found for %s.", ticker))
			return
		}
		s.logger.Error().Err(err).Str("ticker", ticker).Msg("Chart render failed")
		WriteError(w, http.StatusInternalServerError, "Chart render failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
