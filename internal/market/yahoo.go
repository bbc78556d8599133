package market

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stocksignal/internal/analysis/valuation"
	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/models"
	"stocksignal/internal/resilience"
)

// PriceSource returns bars for one exact symbol.
type PriceSource interface {
	Bars(ctx context.Context, symbol string, r Range) ([]models.Candle, error)
}

// FundamentalsSource returns raw quote fundamentals for one exact symbol.
type FundamentalsSource interface {
	Fundamentals(ctx context.Context, symbol string) (*valuation.Fundamentals, error)
}

// YahooSource reads Yahoo Finance through finance-go.
type YahooSource struct {
	breaker *resilience.Breaker
	logger  zerolog.Logger
	now     func() time.Time
}

// NewYahooSource creates a Yahoo source. breaker may be nil.
func NewYahooSource(breaker *resilience.Breaker, logger zerolog.Logger) *YahooSource {
	return &YahooSource{
		breaker: breaker,
		logger:  logger.With().Str("component", "yahoo").Logger(),
		now:     time.Now,
	}
}

// Bars fetches OHLCV bars for symbol over r.
func (y *YahooSource) Bars(ctx context.Context, symbol string, r Range) ([]models.Candle, error) {
	return resilience.DoWithResult(ctx, y.breaker, func(ctx context.Context) ([]models.Candle, error) {
		end := y.now()
		start := end.AddDate(-r.Years, 0, 0)

		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.Interval(r.Interval),
		}

		iter := chart.Get(params)
		var candles []models.Candle
		for iter.Next() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			bar := iter.Bar()
			candles = append(candles, models.Candle{
				Timestamp: time.Unix(int64(bar.Timestamp), 0).UTC(),
				Open:      toFloat(bar.Open),
				High:      toFloat(bar.High),
				Low:       toFloat(bar.Low),
				Close:     toFloat(bar.Close),
				Volume:    int64(bar.Volume),
			})
		}
		if err := iter.Err(); err != nil {
			return nil, apperrors.NewDataError("yahoo", symbol, "chart request failed", err)
		}
		return dropEmptyBars(candles), nil
	})
}

// Fundamentals fetches the quote summary for symbol.
func (y *YahooSource) Fundamentals(ctx context.Context, symbol string) (*valuation.Fundamentals, error) {
	return resilience.DoWithResult(ctx, y.breaker, func(ctx context.Context) (*valuation.Fundamentals, error) {
		q, err := equity.Get(symbol)
		if err != nil {
			return nil, apperrors.NewDataError("yahoo", symbol, "quote request failed", err)
		}
		if q == nil {
			return nil, apperrors.NewDataError("yahoo", symbol, "empty quote", apperrors.ErrNotFound)
		}

		f := &valuation.Fundamentals{
			Source:     "yahoo",
			Price:      q.RegularMarketPrice,
			PBV:        q.PriceToBook,
			BookValue:  q.BookValue,
			EPS:        q.EpsTrailingTwelveMonths,
			ForwardEPS: q.EpsForward,
			MarketCap:  float64(q.MarketCap),
			Currency:   q.CurrencyID,
		}
		if q.TrailingPE != 0 {
			pe := q.TrailingPE
			f.PER = &pe
		}
		if q.ForwardPE != 0 {
			fpe := q.ForwardPE
			f.ForwardPER = &fpe
		}
		return f, nil
	})
}

// Resolve walks the candidate symbols and returns the first with live bars.
// A candidate is live when its last five bars traded any volume.
func Resolve(ctx context.Context, src PriceSource, ticker string, tf models.Timeframe, logger zerolog.Logger) (string, []models.Candle, error) {
	candidates := CandidateTickers(ticker)
	if len(candidates) == 0 {
		return "", nil, apperrors.ErrInvalidTicker
	}

	r := RangeFor(tf)
	var lastErr error
	for _, symbol := range candidates {
		candles, err := src.Bars(ctx, symbol, r)
		if err != nil {
			if ctx.Err() != nil {
				return "", nil, ctx.Err()
			}
			lastErr = err
			logger.Debug().Err(err).Str("symbol", symbol).Msg("Candidate rejected")
			continue
		}
		if len(candles) == 0 || recentVolume(candles, 5) <= 0 {
			logger.Debug().Str("symbol", symbol).Int("bars", len(candles)).Msg("Candidate has no recent volume")
			continue
		}
		return symbol, candles, nil
	}

	msg := fmt.Sprintf("no price data for candidates %v", candidates)
	if lastErr != nil {
		return "", nil, apperrors.NewDataError("yahoo", ticker, msg, fmt.Errorf("%w: %v", apperrors.ErrNoPriceData, lastErr))
	}
	return "", nil, apperrors.NewDataError("yahoo", ticker, msg, apperrors.ErrNoPriceData)
}

func recentVolume(candles []models.Candle, n int) int64 {
	start := len(candles) - n
	if start < 0 {
		start = 0
	}
	var total int64
	for _, c := range candles[start:] {
		total += c.Volume
	}
	return total
}

// dropEmptyBars removes placeholder rows Yahoo emits for halted sessions.
func dropEmptyBars(candles []models.Candle) []models.Candle {
	out := candles[:0]
	for _, c := range candles {
		if c.Close == 0 && c.Open == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
