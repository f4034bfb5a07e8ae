package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bobmcallan/tickerwise/internal/services/analysis"
)

// Messages returned in the error field of /analyze responses
const (
	msgInvalidTicker      = "Please enter a valid stock ticker."
	msgInvalidTemperature = "Please enter a valid temperature."
)

// handleAnalyze handles POST /analyze with form fields ticker and
// temperature. Responses are always HTTP 200; failures are reported in
// the error field of the body.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	req, err := analysis.NewRequest(
		r.FormValue("ticker"),
		r.FormValue("temperature"),
		s.app.Config.Analysis.DefaultTemperature,
	)
	switch {
	case errors.Is(err, analysis.ErrInvalidTicker):
		WriteError(w, http.StatusOK, msgInvalidTicker)
		return
	case errors.Is(err, analysis.ErrInvalidTemperature):
		WriteError(w, http.StatusOK, msgInvalidTemperature)
		return
	}

	result, err := s.app.AnalysisService.Analyze(r.Context(), req)
	if err != nil {
		if errors.Is(err, analysis.ErrNoData) {
			s.logger.Info().Str("ticker", req.Ticker).Msg("No price history for ticker")
			WriteError(w, http.StatusOK, fmt.Sprintf("No stock data found for %s.", req.Ticker))
			return
		}
		s.logger.Error().Err(err).Str("ticker", req.Ticker).Msg("Analysis failed")
		WriteError(w, http.StatusOK, "Error processing request: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
