// Package portfolio values stored holdings at the latest price.
package portfolio

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"stocksignal/internal/models"
)

// PriceQuoter returns the latest price of a ticker.
type PriceQuoter interface {
	LastPrice(ctx context.Context, ticker string) (float64, error)
}

// Valuer prices a portfolio.
type Valuer struct {
	quoter  PriceQuoter
	workers int
	logger  zerolog.Logger
}

// NewValuer creates a valuer that quotes up to workers tickers at once.
func NewValuer(quoter PriceQuoter, workers int, logger zerolog.Logger) *Valuer {
	if workers <= 0 {
		workers = 4
	}
	return &Valuer{quoter: quoter, workers: workers, logger: logger}
}

// Summarize values every entry. A ticker whose price cannot be fetched is
// valued at its average price and carries the error text.
func (v *Valuer) Summarize(ctx context.Context, entries []models.PortfolioEntry) models.PortfolioSummary {
	lines := make([]models.PortfolioLine, len(entries))

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(v.workers)
	for i, e := range entries {
		i, e := i, e
		p.Go(func() {
			price, err := v.quoter.LastPrice(ctx, e.Ticker)
			line := Line(e, price)
			if err != nil {
				v.logger.Warn().Err(err).Str("ticker", e.Ticker).Msg("Price unavailable")
				line = Line(e, e.AvgPrice)
				line.PriceError = err.Error()
			}
			mu.Lock()
			lines[i] = line
			mu.Unlock()
		})
	}
	p.Wait()

	return Total(lines)
}

// Line values one holding at price.
func Line(e models.PortfolioEntry, price float64) models.PortfolioLine {
	shares := decimal.NewFromInt(int64(e.Lots) * models.SharesPerLot)
	invested := decimal.NewFromFloat(e.AvgPrice).Mul(shares)
	market := decimal.NewFromFloat(price).Mul(shares)
	pnl := market.Sub(invested)

	line := models.PortfolioLine{
		PortfolioEntry: e,
		LastPrice:      price,
		Shares:         shares.IntPart(),
		Invested:       invested.InexactFloat64(),
		MarketValue:    market.InexactFloat64(),
		PnL:            pnl.InexactFloat64(),
	}
	if invested.IsPositive() {
		line.PnLPercent = pnl.Div(invested).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	return line
}

// Total sums lines into a summary.
func Total(lines []models.PortfolioLine) models.PortfolioSummary {
	invested := decimal.Zero
	market := decimal.Zero
	for _, l := range lines {
		invested = invested.Add(decimal.NewFromFloat(l.Invested))
		market = market.Add(decimal.NewFromFloat(l.MarketValue))
	}
	pnl := market.Sub(invested)

	s := models.PortfolioSummary{
		Lines:       lines,
		Invested:    invested.InexactFloat64(),
		MarketValue: market.InexactFloat64(),
		PnL:         pnl.InexactFloat64(),
	}
	if invested.IsPositive() {
		s.PnLPercent = pnl.Div(invested).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	return s
}
