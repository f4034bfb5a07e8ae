package signals

import (
	"math"
	"slices"

	"github.com/bobmcallan/tickerwise/internal/models"
)

// Indicator periods
const (
	rsiPeriod        = 14
	atrPeriod        = 14
	volumePeriod     = 20
	supportLookback  = 20
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// Compute calculates technical signals from daily bars ordered oldest first.
// Returns nil when there are no bars.
func Compute(bars []models.PriceBar) *models.TechnicalSignals {
	if len(bars) == 0 {
		return nil
	}

	// Indicators read newest first
	recent := slices.Clone(bars)
	slices.Reverse(recent)

	currentPrice := recent[0].Close
	sma20 := SMA(recent, 20)
	sma50 := SMA(recent, 50)

	rsi := RSI(recent, rsiPeriod)
	macdLine, macdSignal, macdHist := MACD(recent, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	volRatio := VolumeRatio(recent, volumePeriod)
	support, resistance := DetectSupportResistance(recent, supportLookback)
	crossover := DetectCrossover(recent, 20, 50)
	trend := DetermineTrend(currentPrice, sma20, sma50)

	return &models.TechnicalSignals{
		Price:            currentPrice,
		SMA20:            round2(sma20),
		SMA50:            round2(sma50),
		DistanceToSMA20:  round2(DistanceToSMA(currentPrice, sma20)),
		DistanceToSMA50:  round2(DistanceToSMA(currentPrice, sma50)),
		RSI:              round2(rsi),
		RSIState:         ClassifyRSI(rsi),
		MACD:             round4(macdLine),
		MACDSignal:       round4(macdSignal),
		MACDHistogram:    round4(macdHist),
		ATR:              round2(ATR(recent, atrPeriod)),
		VolumeRatio:      round2(volRatio),
		VolumeState:      ClassifyVolume(volRatio),
		Crossover:        crossover,
		Support:          support,
		Resistance:       resistance,
		Trend:            trend,
		TrendDescription: TrendDescription(trend, crossover),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
