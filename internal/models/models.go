// Package models provides domain models for the stock report pipeline.
package models

import (
	"strings"
	"time"
)

// Timeframe selects the bar interval used for analysis.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
)

// ParseTimeframe maps user input to a Timeframe, defaulting to daily.
func ParseTimeframe(s string) Timeframe {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly", "1wk", "w":
		return TimeframeWeekly
	case "monthly", "1mo", "m":
		return TimeframeMonthly
	default:
		return TimeframeDaily
	}
}

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time `json:"timestamp" csv:"date"`
	Open      float64   `json:"open" csv:"open"`
	High      float64   `json:"high" csv:"high"`
	Low       float64   `json:"low" csv:"low"`
	Close     float64   `json:"close" csv:"close"`
	Volume    int64     `json:"volume" csv:"volume"`
}

// Valuation holds fundamental ratios for a ticker.
type Valuation struct {
	PER       float64 `json:"per"`
	PBV       float64 `json:"pbv"`
	ROE       float64 `json:"roe"`
	DER       float64 `json:"der"`
	EPS       float64 `json:"eps"`
	EPSGrowth float64 `json:"eps_growth"`
	MarketCap float64 `json:"market_cap"`
	BookValue float64 `json:"book_value"`
	Currency  string  `json:"currency"`
	Status    string  `json:"valuation_status"`
	Source    string  `json:"source"`
	Converted bool    `json:"converted"`
}

// HasData reports whether any ratio was populated.
func (v Valuation) HasData() bool {
	return v.PER != 0 || v.PBV != 0
}

// NewsItem is a single headline from a news provider.
type NewsItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Date    string `json:"date,omitempty"`
	Source  string `json:"source"`
}

// NormalizeTicker upper-cases and trims a user supplied ticker.
func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// BaseTicker strips an exchange suffix such as ".JK".
func BaseTicker(t string) string {
	t = NormalizeTicker(t)
	if i := strings.IndexByte(t, '.'); i > 0 {
		return t[:i]
	}
	return t
}
