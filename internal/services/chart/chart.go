// Package chart renders price history charts as PNG images
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/tickerwise/internal/models"
)

// ErrNotEnoughData is returned when the series has fewer than two points
var ErrNotEnoughData = errors.New("need at least 2 data points")

// RenderPriceChart renders a PNG line chart of closing prices with a 20-day
// simple moving average when the series is long enough. Returns raw PNG bytes.
func RenderPriceChart(ticker string, series *models.ChartSeries) ([]byte, error) {
	if series.Len() < 2 {
		return nil, fmt.Errorf("%w, got %d", ErrNotEnoughData, series.Len())
	}

	xValues := make([]time.Time, 0, series.Len())
	closeY := make([]float64, 0, series.Len())
	for i, d := range series.Dates {
		t, err := time.Parse(models.ChartDateFormat, d)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q at index %d: %w", d, i, err)
		}
		xValues = append(xValues, t)
		closeY = append(closeY, series.Close[i])
	}

	closeSeries := chart.TimeSeries{
		Name: "Close",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: closeY,
	}

	seriesList := []chart.Series{closeSeries}

	if len(closeY) >= smaPeriod {
		seriesList = append(seriesList, chart.TimeSeries{
			Name: fmt.Sprintf("SMA %d", smaPeriod),
			Style: chart.Style{
				StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{5.0, 3.0},
			},
			XValues: xValues[smaPeriod-1:],
			YValues: movingAverage(closeY, smaPeriod),
		})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s Closing Price", ticker),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Range: flatRange(closeY),
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.2f", f)
				}
				return ""
			},
		},
		Series: seriesList,
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

const smaPeriod = 20

// flatRange pads the Y axis around a series whose values are all equal,
// which would otherwise have a zero-height range. Returns nil (auto range)
// otherwise.
func flatRange(values []float64) chart.Range {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi > lo {
		return nil
	}
	pad := math.Abs(lo) * 0.01
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// movingAverage returns the trailing n-period averages of values, starting
// at index n-1.
func movingAverage(values []float64, n int) []float64 {
	out := make([]float64, 0, len(values)-n+1)
	var sum float64
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out = append(out, sum/float64(n))
		}
	}
	return out
}
