package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stocksignal/internal/analysis/indicators"
	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/models"
)

func series(n int) []models.Candle {
	out := make([]models.Candle, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		p := 1000 + float64(i%17)*5 + float64(i)
		out[i] = models.Candle{Timestamp: base.AddDate(0, 0, i), Open: p, High: p + 10, Low: p - 10, Close: p + 2, Volume: 100000}
	}
	return out
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, 120, zerolog.Nop())

	candles := series(150)
	set := indicators.NewSet(len(candles))
	ema := make([]float64, len(candles))
	for i := 20; i < len(candles); i++ {
		ema[i] = candles[i].Close - 5
	}
	set.Put(indicators.KeyEMA20, ema)

	path, err := r.Render("BBCA.JK", candles, set)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !filepath.IsAbs(path) || filepath.Base(path) != "BBCA.JK_chart.png" {
		t.Errorf("unexpected path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}

	if err := Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := Remove(path); err != nil {
		t.Errorf("removing a missing chart should succeed: %v", err)
	}
}

func TestRenderTooFewCandles(t *testing.T) {
	r := NewRenderer(t.TempDir(), 0, zerolog.Nop())
	if _, err := r.Render("X", series(1), nil); !apperrors.Is(err, apperrors.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}
