// Package valuation normalises fundamental ratios and labels them.
package valuation

import (
	"math"

	"stocksignal/internal/models"
)

// Valuation labels.
const (
	StatusUndervalued = "Undervalued (Cheap)"
	StatusOvervalued  = "Overvalued (Expensive)"
	StatusNegative    = "Negative Earnings"
	StatusFair        = "Fair Value"
	StatusNA          = "N/A"
)

// DefaultUSDIDR is the conservative conversion used when none is configured.
const DefaultUSDIDR = 16200.0

// Fundamentals are raw quote fields as reported by a data source.
// PER is nil when the source omitted it.
type Fundamentals struct {
	Source            string
	Price             float64
	PER               *float64
	ForwardPER        *float64
	PBV               float64
	BookValue         float64
	ROE               float64
	DER               float64
	EPS               float64
	ForwardEPS        float64
	EarningsGrowth    float64 // fraction, 0.15 = 15%
	MarketCap         float64
	Currency          string
	FinancialCurrency string
}

// Status labels a PER/PBV pair.
func Status(per, pbv float64) string {
	if per <= 0 && pbv <= 0 {
		return StatusNA
	}
	switch {
	case per > 0 && per < 10 && pbv > 0 && pbv < 1:
		return StatusUndervalued
	case per > 25 || pbv > 4:
		return StatusOvervalued
	case per <= 0 && pbv > 0 && pbv < 1:
		// Loss making but trading below book.
		return StatusUndervalued
	case per <= 0 && pbv > 0:
		return StatusNegative
	default:
		return StatusFair
	}
}

// Normalize converts raw fundamentals to IDR based ratios with a status.
func Normalize(f Fundamentals, usdIDR float64) models.Valuation {
	if usdIDR <= 0 {
		usdIDR = DefaultUSDIDR
	}

	eps := f.EPS
	if eps == 0 {
		eps = f.ForwardEPS
	}

	var per float64
	switch {
	case f.PER != nil:
		per = *f.PER
	case f.ForwardPER != nil:
		per = *f.ForwardPER
	case f.Price != 0 && eps != 0:
		per = f.Price / eps
	}

	currency := f.Currency
	if currency == "" {
		currency = "IDR"
	}
	finCurrency := f.FinancialCurrency
	if finCurrency == "" {
		finCurrency = currency
	}

	v := models.Valuation{
		PER:       per,
		PBV:       f.PBV,
		ROE:       f.ROE,
		DER:       f.DER,
		EPS:       eps,
		EPSGrowth: f.EarningsGrowth * 100,
		MarketCap: f.MarketCap,
		BookValue: f.BookValue,
		Currency:  "IDR",
		Source:    f.Source,
	}

	if currency == "USD" {
		v.MarketCap *= usdIDR
		v.EPS *= usdIDR
		v.Converted = true
	}

	if v.PBV > 100 {
		v.PBV = correctPBV(f, finCurrency, usdIDR)
		v.Converted = true
	}

	v.PBV = round2(v.PBV)
	v.Status = Status(v.PER, v.PBV)
	return v
}

// correctPBV recomputes an implausible price-to-book. When the book value is
// reported in USD against an IDR price the ratio is off by the FX rate.
func correctPBV(f Fundamentals, finCurrency string, usdIDR float64) float64 {
	if f.BookValue <= 0 || f.Price <= 0 {
		return f.PBV / usdIDR
	}
	if finCurrency == "USD" {
		return f.Price / (f.BookValue * usdIDR)
	}
	direct := f.Price / f.BookValue
	if direct > 100 {
		return f.Price / (f.BookValue * usdIDR)
	}
	return direct
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
