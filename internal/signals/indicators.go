// Package signals provides technical indicator calculations.
//
// Indicator functions take bars newest first (bars[0] is the latest
// session); Compute accepts the oldest-first bars the market service
// returns and reorders them.
package signals

import (
	"math"
	"sort"

	"github.com/bobmcallan/tickerwise/internal/models"
)

// SMA calculates Simple Moving Average for the given period
func SMA(bars []models.PriceBar, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += bars[i].Close
	}
	return sum / float64(period)
}

// EMA calculates Exponential Moving Average for the given period, seeded
// with the SMA of the oldest period closes.
func EMA(bars []models.PriceBar, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}
	series := emaSeries(closesOldestFirst(bars), period)
	return series[len(series)-1]
}

// RSI calculates Relative Strength Index
func RSI(bars []models.PriceBar, period int) float64 {
	if len(bars) < period+1 {
		return 50 // Neutral default
	}

	var gains, losses float64
	for i := 0; i < period; i++ {
		change := bars[i].Close - bars[i+1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACD calculates Moving Average Convergence Divergence.
// Returns MACD line, Signal line, and Histogram; zeros when there are fewer
// than slowPeriod+signalPeriod-1 bars.
func MACD(bars []models.PriceBar, fastPeriod, slowPeriod, signalPeriod int) (float64, float64, float64) {
	if fastPeriod <= 0 || slowPeriod <= fastPeriod || signalPeriod <= 0 || len(bars) < slowPeriod+signalPeriod-1 {
		return 0, 0, 0
	}

	closes := closesOldestFirst(bars)
	fast := emaSeries(closes, fastPeriod)
	slow := emaSeries(closes, slowPeriod)

	// fast[i] and slow[i] are aligned on the close at index i+period-1
	offset := slowPeriod - fastPeriod
	macd := make([]float64, len(slow))
	for i := range slow {
		macd[i] = fast[i+offset] - slow[i]
	}

	signal := emaSeries(macd, signalPeriod)
	macdLine := macd[len(macd)-1]
	signalLine := signal[len(signal)-1]

	return macdLine, signalLine, macdLine - signalLine
}

// ATR calculates Average True Range
func ATR(bars []models.PriceBar, period int) float64 {
	if len(bars) < period+1 {
		return 0
	}

	trSum := 0.0
	for i := 0; i < period; i++ {
		high := bars[i].High
		low := bars[i].Low
		prevClose := bars[i+1].Close

		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)

		trSum += math.Max(tr1, math.Max(tr2, tr3))
	}

	return trSum / float64(period)
}

// AverageVolume calculates average volume over a period
func AverageVolume(bars []models.PriceBar, period int) int64 {
	if period <= 0 || len(bars) < period {
		return 0
	}

	var sum int64
	for i := 0; i < period; i++ {
		sum += bars[i].Volume
	}
	return sum / int64(period)
}

// VolumeRatio calculates current volume as ratio of average
func VolumeRatio(bars []models.PriceBar, period int) float64 {
	if len(bars) == 0 {
		return 1.0
	}

	avg := AverageVolume(bars, period)
	if avg == 0 {
		return 1.0
	}

	return float64(bars[0].Volume) / float64(avg)
}

// DetectSupportResistance finds support and resistance levels as the lower
// quartile of lows and upper quartile of highs over lookback sessions.
func DetectSupportResistance(bars []models.PriceBar, lookback int) (support, resistance float64) {
	if len(bars) < lookback {
		lookback = len(bars)
	}
	if lookback == 0 {
		return 0, 0
	}

	highs := make([]float64, lookback)
	lows := make([]float64, lookback)
	for i := 0; i < lookback; i++ {
		highs[i] = bars[i].High
		lows[i] = bars[i].Low
	}

	sort.Float64s(highs)
	sort.Float64s(lows)

	resistance = highs[int(float64(len(highs)-1)*0.75)]
	support = lows[int(float64(len(lows)-1)*0.25)]

	return support, resistance
}

// DetectCrossover detects SMA crossovers on the latest session.
// Returns "golden_cross", "death_cross", or "none"
func DetectCrossover(bars []models.PriceBar, shortPeriod, longPeriod int) string {
	if len(bars) < longPeriod+1 {
		return "none"
	}

	shortSMA := SMA(bars, shortPeriod)
	longSMA := SMA(bars, longPeriod)

	prevShortSMA := SMA(bars[1:], shortPeriod)
	prevLongSMA := SMA(bars[1:], longPeriod)

	if prevShortSMA <= prevLongSMA && shortSMA > longSMA {
		return "golden_cross"
	}

	if prevShortSMA >= prevLongSMA && shortSMA < longSMA {
		return "death_cross"
	}

	return "none"
}

// ClassifyRSI classifies RSI value
func ClassifyRSI(rsi float64) string {
	if rsi >= 70 {
		return "overbought"
	}
	if rsi <= 30 {
		return "oversold"
	}
	return "neutral"
}

// ClassifyVolume classifies volume based on ratio
func ClassifyVolume(ratio float64) string {
	if ratio >= 2.0 {
		return "spike"
	}
	if ratio <= 0.5 {
		return "low"
	}
	return "normal"
}

// DistanceToSMA calculates percentage distance from current price to SMA
func DistanceToSMA(currentPrice, sma float64) float64 {
	if sma == 0 {
		return 0
	}
	return ((currentPrice - sma) / sma) * 100
}

// DetermineTrend classifies the trend over a three month window. A missing
// SMA (zero) yields neutral.
func DetermineTrend(currentPrice, sma20, sma50 float64) models.TrendType {
	if sma20 == 0 || sma50 == 0 {
		return models.TrendNeutral
	}

	// BULLISH: Price > SMA50 AND SMA20 > SMA50
	if currentPrice > sma50 && sma20 > sma50 {
		return models.TrendBullish
	}

	// BEARISH: Price < SMA50 AND SMA20 < SMA50
	if currentPrice < sma50 && sma20 < sma50 {
		return models.TrendBearish
	}

	return models.TrendNeutral
}

// TrendDescription returns a human-readable trend description
func TrendDescription(trend models.TrendType, sma20Cross50 string) string {
	switch trend {
	case models.TrendBullish:
		desc := "Bullish trend: Price above 50-day SMA with positive momentum"
		if sma20Cross50 == "golden_cross" {
			desc += " (recent golden cross)"
		}
		return desc
	case models.TrendBearish:
		desc := "Bearish trend: Price below 50-day SMA with negative momentum"
		if sma20Cross50 == "death_cross" {
			desc += " (recent death cross)"
		}
		return desc
	default:
		return "Neutral trend: Mixed signals, no clear direction"
	}
}

// closesOldestFirst returns closing prices in chronological order
func closesOldestFirst(bars []models.PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[len(bars)-1-i] = b.Close
	}
	return closes
}

// emaSeries returns the EMA of values (chronological) for every index from
// period-1 onwards, seeded with the SMA of the first period values.
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	ema := seed / float64(period)

	multiplier := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)
	out = append(out, ema)
	for _, v := range values[period:] {
		ema = (v-ema)*multiplier + ema
		out = append(out, ema)
	}
	return out
}
