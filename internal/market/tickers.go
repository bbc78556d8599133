// Package market fetches price bars, fundamentals, holders and IDX flow data.
package market

import (
	"strings"

	"stocksignal/internal/models"
)

// IDXSuffix is the Yahoo suffix of Indonesia Stock Exchange listings.
const IDXSuffix = ".JK"

// CandidateTickers lists the symbols to try for user input. Bare four-letter
// codes are IDX listings first and foreign symbols second.
func CandidateTickers(ticker string) []string {
	t := models.NormalizeTicker(ticker)
	if t == "" {
		return nil
	}
	if len(t) == 4 && !strings.Contains(t, ".") {
		return []string{t + IDXSuffix, t}
	}
	return []string{t}
}

// IsIDX reports whether a ticker looks like an IDX listing.
func IsIDX(ticker string) bool {
	t := models.NormalizeTicker(ticker)
	if strings.HasSuffix(t, IDXSuffix) {
		return true
	}
	if len(t) != 4 {
		return false
	}
	for _, r := range t {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Range is the history window and bar interval for a timeframe.
type Range struct {
	Years    int
	Interval string
}

// RangeFor returns the window fetched for tf.
func RangeFor(tf models.Timeframe) Range {
	switch tf {
	case models.TimeframeWeekly:
		return Range{Years: 2, Interval: "1wk"}
	case models.TimeframeMonthly:
		return Range{Years: 5, Interval: "1mo"}
	default:
		return Range{Years: 1, Interval: "1d"}
	}
}
