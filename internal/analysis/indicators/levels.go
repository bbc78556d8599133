package indicators

import (
	"stocksignal/internal/models"
)

// FibonacciRatios are the retracement ratios reported, low to high.
var FibonacciRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1}

// Fibonacci measures retracement levels between the lowest low and the
// highest high of the last lookback candles.
func Fibonacci(candles []models.Candle, lookback int) []models.FibLevel {
	if len(candles) == 0 {
		return nil
	}
	window := tail(candles, lookback)
	hi := highest(highPrices(window))
	lo := lowest(lowPrices(window))
	diff := hi - lo

	levels := make([]models.FibLevel, len(FibonacciRatios))
	for i, r := range FibonacciRatios {
		levels[i] = models.FibLevel{Ratio: r, Price: lo + r*diff}
	}
	// Pin the top level to the observed high.
	levels[len(levels)-1].Price = hi
	return levels
}

// Pivots calculates standard floor pivots from one candle.
func Pivots(c models.Candle) models.Pivots {
	p := (c.High + c.Low + c.Close) / 3
	rng := c.High - c.Low
	return models.Pivots{
		P:  p,
		R1: 2*p - c.Low,
		S1: 2*p - c.High,
		R2: p + rng,
		S2: p - rng,
	}
}

// SupportResistance returns the lowest low and highest high of the last period candles.
func SupportResistance(candles []models.Candle, period int) (support, resistance float64) {
	window := tail(candles, period)
	return lowest(lowPrices(window)), highest(highPrices(window))
}
