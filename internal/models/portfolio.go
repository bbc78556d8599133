package models

import "time"

// SharesPerLot is the IDX board lot size.
const SharesPerLot = 100

// PortfolioEntry is a stored holding.
type PortfolioEntry struct {
	Ticker    string    `json:"ticker" csv:"ticker"`
	AvgPrice  float64   `json:"avg_price" csv:"avg_price"`
	Lots      int       `json:"lots" csv:"lots"`
	UpdatedAt time.Time `json:"updated_at" csv:"updated_at"`
}

// PortfolioLine is a holding valued at the latest price.
type PortfolioLine struct {
	PortfolioEntry
	LastPrice   float64 `json:"last_price"`
	Shares      int64   `json:"shares"`
	Invested    float64 `json:"invested"`
	MarketValue float64 `json:"market_value"`
	PnL         float64 `json:"pnl"`
	PnLPercent  float64 `json:"pnl_pct"`
	PriceError  string  `json:"price_error,omitempty"`
}

// PortfolioSummary totals a set of lines.
type PortfolioSummary struct {
	Lines       []PortfolioLine `json:"lines"`
	Invested    float64         `json:"invested"`
	MarketValue float64         `json:"market_value"`
	PnL         float64         `json:"pnl"`
	PnLPercent  float64         `json:"pnl_pct"`
}

// HistoryEntry is a searched ticker.
type HistoryEntry struct {
	Ticker    string    `json:"ticker"`
	Timestamp time.Time `json:"timestamp"`
}
