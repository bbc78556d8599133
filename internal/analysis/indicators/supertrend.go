package indicators

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"stocksignal/internal/models"
)

// SuperTrend calculates the SuperTrend indicator.
type SuperTrend struct {
	atrPeriod  int
	multiplier float64
}

// NewSuperTrend creates a new SuperTrend indicator.
func NewSuperTrend(atrPeriod int, multiplier float64) *SuperTrend {
	return &SuperTrend{
		atrPeriod:  atrPeriod,
		multiplier: multiplier,
	}
}

func (s *SuperTrend) Name() string {
	return fmt.Sprintf("SUPERTREND_%d_%g", s.atrPeriod, s.multiplier)
}

func (s *SuperTrend) Period() int {
	return s.atrPeriod + 1
}

// Calculate returns the trailing line and a direction series (1 up, -1 down).
func (s *SuperTrend) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if s.atrPeriod <= 0 || s.multiplier <= 0 {
		return nil, ErrInvalidPeriod
	}
	if err := need(candles, s.Period()); err != nil {
		return nil, err
	}

	n := len(candles)
	atr := talib.Atr(highPrices(candles), lowPrices(candles), closePrices(candles), s.atrPeriod)

	line := make([]float64, n)
	direction := make([]float64, n)
	upper := make([]float64, n)
	lower := make([]float64, n)

	start := s.atrPeriod
	for i := start; i < n; i++ {
		hl2 := (candles[i].High + candles[i].Low) / 2
		upper[i] = hl2 + s.multiplier*atr[i]
		lower[i] = hl2 - s.multiplier*atr[i]

		if i == start {
			line[i] = upper[i]
			direction[i] = -1
			continue
		}

		// Bands only tighten while price stays on the same side.
		if lower[i] < lower[i-1] && candles[i-1].Close > lower[i-1] {
			lower[i] = lower[i-1]
		}
		if upper[i] > upper[i-1] && candles[i-1].Close < upper[i-1] {
			upper[i] = upper[i-1]
		}

		if direction[i-1] < 0 {
			if candles[i].Close > upper[i] {
				line[i], direction[i] = lower[i], 1
			} else {
				line[i], direction[i] = upper[i], -1
			}
		} else {
			if candles[i].Close < lower[i] {
				line[i], direction[i] = upper[i], -1
			} else {
				line[i], direction[i] = lower[i], 1
			}
		}
	}

	return map[string][]float64{
		"supertrend": line,
		"direction":  direction,
	}, nil
}
