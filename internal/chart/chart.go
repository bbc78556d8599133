// Package chart renders the price chart attached to a report.
package chart

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"stocksignal/internal/analysis/indicators"
	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/models"
)

// DefaultBars is the number of candles drawn.
const DefaultBars = 120

var (
	colorClose = drawing.ColorFromHex("1f77b4")
	colorEMA20 = drawing.ColorFromHex("e6b800")
	colorEMA50 = drawing.ColorFromHex("17becf")
	colorBand  = drawing.ColorFromHex("9e9e9e")
)

// Renderer writes chart PNGs into a directory.
type Renderer struct {
	dir    string
	bars   int
	logger zerolog.Logger
}

// NewRenderer creates a renderer writing into dir.
func NewRenderer(dir string, bars int, logger zerolog.Logger) *Renderer {
	if dir == "" {
		dir = "charts"
	}
	if bars < 2 {
		bars = DefaultBars
	}
	return &Renderer{dir: dir, bars: bars, logger: logger.With().Str("component", "chart").Logger()}
}

// Path returns where the chart of ticker is written.
func (r *Renderer) Path(ticker string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_chart.png", strings.ToUpper(ticker)))
}

// Render draws close, EMA20, EMA50 and Bollinger bands of the last bars and
// returns the absolute path of the PNG.
func (r *Renderer) Render(ticker string, candles []models.Candle, set *indicators.Set) (string, error) {
	if len(candles) < 2 {
		return "", apperrors.NewDataError("chart", ticker, "need at least two candles", apperrors.ErrInsufficientData)
	}
	start := len(candles) - r.bars
	if start < 0 {
		start = 0
	}
	window := candles[start:]

	xs := make([]time.Time, len(window))
	closes := make([]float64, len(window))
	for i, c := range window {
		xs[i] = c.Timestamp
		closes[i] = c.Close
	}

	series := []gochart.Series{
		gochart.TimeSeries{
			Name:    "Close",
			XValues: xs,
			YValues: closes,
			Style:   gochart.Style{StrokeColor: colorClose, StrokeWidth: 2},
		},
	}
	if set != nil {
		series = appendOverlay(series, "EMA 20", set.Series(indicators.KeyEMA20), window, start, gochart.Style{StrokeColor: colorEMA20, StrokeWidth: 1.5})
		series = appendOverlay(series, "EMA 50", set.Series(indicators.KeyEMA50), window, start, gochart.Style{StrokeColor: colorEMA50, StrokeWidth: 1.5})
		band := gochart.Style{StrokeColor: colorBand, StrokeWidth: 1, StrokeDashArray: []float64{4, 2}}
		series = appendOverlay(series, "BB Upper", set.Series(indicators.KeyBBUpper), window, start, band)
		series = appendOverlay(series, "BB Lower", set.Series(indicators.KeyBBLower), window, start, band)
	}

	graph := gochart.Chart{
		Title:  fmt.Sprintf("%s Daily Chart", ticker),
		Width:  1200,
		Height: 640,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{ValueFormatter: gochart.TimeDateValueFormatter},
		YAxis: gochart.YAxis{Name: "Price (IDR)"},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("creating chart directory: %w", err)
	}
	path := r.Path(ticker)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating chart file: %w", err)
	}
	defer f.Close()

	if err := graph.Render(gochart.PNG, f); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("rendering chart: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	r.logger.Debug().Str("path", abs).Int("bars", len(window)).Msg("Chart saved")
	return abs, nil
}

// appendOverlay adds an indicator line, skipping warm-up values.
func appendOverlay(series []gochart.Series, name string, values []float64, window []models.Candle, offset int, style gochart.Style) []gochart.Series {
	if len(values) < offset+len(window) {
		return series
	}
	var xs []time.Time
	var ys []float64
	for i, c := range window {
		v := values[offset+i]
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xs = append(xs, c.Timestamp)
		ys = append(ys, v)
	}
	if len(xs) < 2 {
		return series
	}
	return append(series, gochart.TimeSeries{Name: name, XValues: xs, YValues: ys, Style: style})
}

// Remove deletes a rendered chart; a missing file is not an error.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
