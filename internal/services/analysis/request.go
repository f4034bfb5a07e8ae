package analysis

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/bobmcallan/tickerwise/internal/models"
)

// DefaultTemperature is used when the caller leaves temperature blank
const DefaultTemperature = 0.2

// Validation errors returned by NewRequest
var (
	ErrInvalidTicker      = errors.New("invalid ticker")
	ErrInvalidTemperature = errors.New("invalid temperature")
)

// NormalizeTicker trims and upper-cases a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// NewRequest validates raw form input. A blank temperature takes
// defaultTemperature; anything else must parse as a finite float.
func NewRequest(ticker, temperature string, defaultTemperature float64) (models.AnalysisRequest, error) {
	req := models.AnalysisRequest{
		Ticker:      NormalizeTicker(ticker),
		Temperature: defaultTemperature,
	}
	if req.Ticker == "" {
		return req, ErrInvalidTicker
	}

	if t := strings.TrimSpace(temperature); t != "" {
		v, err := strconv.ParseFloat(t, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return req, ErrInvalidTemperature
		}
		req.Temperature = v
	}

	return req, nil
}
