package market

import (
	"context"

	"github.com/rs/zerolog"

	"stocksignal/internal/models"
)

// Quoter returns the latest daily close of a ticker.
type Quoter struct {
	prices PriceSource
	logger zerolog.Logger
}

// NewQuoter creates a quoter over a price source.
func NewQuoter(prices PriceSource, logger zerolog.Logger) *Quoter {
	return &Quoter{prices: prices, logger: logger}
}

// LastPrice resolves ticker and returns its last close.
func (q *Quoter) LastPrice(ctx context.Context, ticker string) (float64, error) {
	_, candles, err := Resolve(ctx, q.prices, ticker, models.TimeframeDaily, q.logger)
	if err != nil {
		return 0, err
	}
	return candles[len(candles)-1].Close, nil
}
