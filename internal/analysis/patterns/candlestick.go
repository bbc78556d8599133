// Package patterns provides candlestick pattern detection.
package patterns

import (
	"strings"

	"stocksignal/internal/models"
)

// NoPattern is reported when the latest candle forms no known pattern.
const NoPattern = "Tidak Ada Pola Signifikan"

// Direction is the expected move implied by a pattern.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// Pattern represents a detected candlestick pattern.
type Pattern struct {
	Name          string
	Direction     Direction
	StartIndex    int
	EndIndex      int
	Strength      float64
	VolumeConfirm bool
}

// CandlestickDetector detects candlestick patterns in price data.
type CandlestickDetector struct {
	dojiThreshold      float64 // Body size as % of range for doji
	shadowThreshold    float64 // Shadow size as multiple of body for hammer/shooting star
	volumeConfirmRatio float64 // Volume ratio for confirmation
}

// NewCandlestickDetector creates a new candlestick pattern detector.
func NewCandlestickDetector() *CandlestickDetector {
	return &CandlestickDetector{
		dojiThreshold:      0.1,
		shadowThreshold:    2.0,
		volumeConfirmRatio: 1.5,
	}
}

func (d *CandlestickDetector) Name() string {
	return "CandlestickDetector"
}

// DetectAt returns the patterns that complete on candle idx.
func (d *CandlestickDetector) DetectAt(candles []models.Candle, idx int) []Pattern {
	if idx < 0 || idx >= len(candles) {
		return nil
	}

	avgVolume := d.calculateAverageVolume(candles)
	var found []Pattern
	for _, detect := range []func([]models.Candle, int, float64) *Pattern{
		d.detectDoji,
		d.detectEngulfing,
		d.detectHammer,
		d.detectShootingStar,
	} {
		if p := detect(candles, idx, avgVolume); p != nil {
			found = append(found, *p)
		}
	}
	return found
}

// Latest detects patterns on the most recent candle.
func (d *CandlestickDetector) Latest(candles []models.Candle) []Pattern {
	return d.DetectAt(candles, len(candles)-1)
}

// Summary renders pattern names joined by ", ", or NoPattern.
func Summary(found []Pattern) string {
	if len(found) == 0 {
		return NoPattern
	}
	names := make([]string, len(found))
	for i, p := range found {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

// Helper functions for candle analysis
func (d *CandlestickDetector) bodySize(c models.Candle) float64 {
	return abs(c.Close - c.Open)
}

func (d *CandlestickDetector) candleRange(c models.Candle) float64 {
	return c.High - c.Low
}

func (d *CandlestickDetector) upperShadow(c models.Candle) float64 {
	return c.High - max(c.Open, c.Close)
}

func (d *CandlestickDetector) lowerShadow(c models.Candle) float64 {
	return min(c.Open, c.Close) - c.Low
}

func (d *CandlestickDetector) isBullish(c models.Candle) bool {
	return c.Close > c.Open
}

func (d *CandlestickDetector) isBearish(c models.Candle) bool {
	return c.Close < c.Open
}

func (d *CandlestickDetector) calculateAverageVolume(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	var total int64
	for _, c := range candles {
		total += c.Volume
	}
	return float64(total) / float64(len(candles))
}

func (d *CandlestickDetector) hasVolumeConfirmation(c models.Candle, avgVolume float64) bool {
	if avgVolume == 0 {
		return false
	}
	return float64(c.Volume) >= avgVolume*d.volumeConfirmRatio
}

func (d *CandlestickDetector) calculateStrength(baseStrength float64, volumeConfirm bool) float64 {
	if volumeConfirm {
		return min(1.0, baseStrength*1.2)
	}
	return baseStrength
}

// isInDowntrend checks if the three closes before idx are falling.
func (d *CandlestickDetector) isInDowntrend(candles []models.Candle, idx int) bool {
	if idx < 3 {
		return false
	}
	return candles[idx-1].Close < candles[idx-2].Close &&
		candles[idx-2].Close < candles[idx-3].Close
}

// isInUptrend checks if the three closes before idx are rising.
func (d *CandlestickDetector) isInUptrend(candles []models.Candle, idx int) bool {
	if idx < 3 {
		return false
	}
	return candles[idx-1].Close > candles[idx-2].Close &&
		candles[idx-2].Close > candles[idx-3].Close
}

// detectDoji detects Doji patterns (open close to close)
func (d *CandlestickDetector) detectDoji(candles []models.Candle, idx int, avgVolume float64) *Pattern {
	c := candles[idx]
	rng := d.candleRange(c)
	if rng == 0 {
		return nil
	}

	if d.bodySize(c)/rng > d.dojiThreshold {
		return nil
	}

	volumeConfirm := d.hasVolumeConfirmation(c, avgVolume)
	return &Pattern{
		Name:          "Doji",
		Direction:     Neutral,
		StartIndex:    idx,
		EndIndex:      idx,
		Strength:      d.calculateStrength(0.5, volumeConfirm),
		VolumeConfirm: volumeConfirm,
	}
}

// detectHammer detects Hammer patterns (bullish reversal at bottom)
func (d *CandlestickDetector) detectHammer(candles []models.Candle, idx int, avgVolume float64) *Pattern {
	c := candles[idx]
	body := d.bodySize(c)
	if body == 0 {
		return nil
	}

	if d.lowerShadow(c) < body*d.shadowThreshold {
		return nil
	}
	if d.upperShadow(c) > body*0.5 {
		return nil
	}
	if !d.isInDowntrend(candles, idx) {
		return nil
	}

	volumeConfirm := d.hasVolumeConfirmation(c, avgVolume)
	return &Pattern{
		Name:          "Hammer",
		Direction:     Bullish,
		StartIndex:    idx,
		EndIndex:      idx,
		Strength:      d.calculateStrength(0.7, volumeConfirm),
		VolumeConfirm: volumeConfirm,
	}
}

// detectShootingStar detects Shooting Star patterns (bearish reversal at top)
func (d *CandlestickDetector) detectShootingStar(candles []models.Candle, idx int, avgVolume float64) *Pattern {
	c := candles[idx]
	body := d.bodySize(c)
	if body == 0 {
		return nil
	}

	if d.upperShadow(c) < body*d.shadowThreshold {
		return nil
	}
	if d.lowerShadow(c) > body*0.5 {
		return nil
	}
	if !d.isInUptrend(candles, idx) {
		return nil
	}

	volumeConfirm := d.hasVolumeConfirmation(c, avgVolume)
	return &Pattern{
		Name:          "Shooting Star",
		Direction:     Bearish,
		StartIndex:    idx,
		EndIndex:      idx,
		Strength:      d.calculateStrength(0.7, volumeConfirm),
		VolumeConfirm: volumeConfirm,
	}
}

// detectEngulfing detects bullish and bearish engulfing pairs
func (d *CandlestickDetector) detectEngulfing(candles []models.Candle, idx int, avgVolume float64) *Pattern {
	if idx < 1 {
		return nil
	}

	prev := candles[idx-1]
	curr := candles[idx]

	if d.bodySize(curr) <= d.bodySize(prev) {
		return nil
	}

	volumeConfirm := d.hasVolumeConfirmation(curr, avgVolume)

	if d.isBearish(prev) && d.isBullish(curr) && curr.Open <= prev.Close && curr.Close >= prev.Open {
		return &Pattern{
			Name:          "Bullish Engulfing",
			Direction:     Bullish,
			StartIndex:    idx - 1,
			EndIndex:      idx,
			Strength:      d.calculateStrength(0.8, volumeConfirm),
			VolumeConfirm: volumeConfirm,
		}
	}

	if d.isBullish(prev) && d.isBearish(curr) && curr.Open >= prev.Close && curr.Close <= prev.Open {
		return &Pattern{
			Name:          "Bearish Engulfing",
			Direction:     Bearish,
			StartIndex:    idx - 1,
			EndIndex:      idx,
			Strength:      d.calculateStrength(0.8, volumeConfirm),
			VolumeConfirm: volumeConfirm,
		}
	}

	return nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
