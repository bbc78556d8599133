package indicators

import (
	"stocksignal/internal/models"
)

// VWAP calculates a Volume Weighted Average Price anchored to each calendar day.
// On daily bars this collapses to the bar's typical price.
type VWAP struct{}

// NewVWAP creates a new VWAP indicator.
func NewVWAP() *VWAP {
	return &VWAP{}
}

func (v *VWAP) Name() string {
	return "VWAP"
}

func (v *VWAP) Period() int {
	return 1
}

func (v *VWAP) Calculate(candles []models.Candle) ([]float64, error) {
	if len(candles) == 0 {
		return nil, ErrInsufficientData
	}

	result := make([]float64, len(candles))

	var cumTPV, cumVol float64
	var session string
	for i, c := range candles {
		day := c.Timestamp.Format("2006-01-02")
		if day != session {
			session = day
			cumTPV, cumVol = 0, 0
		}
		tp := typicalPrice(c)
		cumTPV += tp * float64(c.Volume)
		cumVol += float64(c.Volume)

		if cumVol != 0 {
			result[i] = cumTPV / cumVol
		} else {
			result[i] = tp
		}
	}

	return result, nil
}

// VolumeProfile summarises recent volume relative to its average.
type VolumeProfile struct {
	Current int64
	Average float64
	Ratio   float64
}

// RecentVolume compares the latest volume with the mean of the last period bars.
// A zero latest volume (an unfinished session) falls back to the previous bar.
func RecentVolume(candles []models.Candle, period int) VolumeProfile {
	n := len(candles)
	if n == 0 {
		return VolumeProfile{}
	}
	start := n - period
	if start < 0 {
		start = 0
	}
	var total float64
	for _, c := range candles[start:] {
		total += float64(c.Volume)
	}
	avg := total / float64(n-start)

	current := candles[n-1].Volume
	if current <= 0 && n > 1 {
		current = candles[n-2].Volume
	}

	vp := VolumeProfile{Current: current, Average: avg}
	if avg > 0 {
		vp.Ratio = float64(current) / avg
	}
	return vp
}
