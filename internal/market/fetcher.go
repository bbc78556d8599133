package market

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"stocksignal/internal/analysis/valuation"
	"stocksignal/internal/models"
)

// HolderLookup resolves the largest institutional holder of a symbol.
type HolderLookup interface {
	TopInstitutionalHolder(ctx context.Context, symbol string) string
}

// Data is everything fetched for one ticker before analysis.
type Data struct {
	Symbol      string
	Candles     []models.Candle
	Valuation   models.Valuation
	MajorHolder string
	// Overrides holds GoAPI indicator readings, daily timeframe only.
	Overrides *IndicatorValues
}

// Fetcher gathers prices, fundamentals and holders concurrently.
type Fetcher struct {
	prices       PriceSource
	fundamentals FundamentalsSource
	goapi        *GoAPIClient
	holders      HolderLookup
	usdIDR       float64
	logger       zerolog.Logger
}

// NewFetcher creates a fetcher. goapi and holders may be nil.
func NewFetcher(prices PriceSource, fundamentals FundamentalsSource, goapi *GoAPIClient, holders HolderLookup, usdIDR float64, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		prices:       prices,
		fundamentals: fundamentals,
		goapi:        goapi,
		holders:      holders,
		usdIDR:       usdIDR,
		logger:       logger.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch resolves the ticker and loads its data. Only the price fetch is
// fatal; valuation, holders and overrides degrade to empty values.
func (f *Fetcher) Fetch(ctx context.Context, ticker string, tf models.Timeframe) (*Data, error) {
	candidates := CandidateTickers(ticker)

	var (
		symbol    string
		candles   []models.Candle
		priceErr  error
		profile   *Profile
		raw       *valuation.Fundamentals
		holder    = HolderNA
		overrides *IndicatorValues
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		symbol, candles, priceErr = Resolve(ctx, f.prices, ticker, tf, f.logger)
	})
	wg.Go(func() {
		profile, raw = f.fetchValuation(ctx, ticker, candidates)
	})
	if f.holders != nil && len(candidates) > 0 {
		wg.Go(func() {
			holder = f.holders.TopInstitutionalHolder(ctx, candidates[0])
		})
	}
	if f.goapi.Enabled() && tf == models.TimeframeDaily {
		wg.Go(func() {
			ind, err := f.goapi.Indicators(ctx, ticker)
			if err != nil {
				f.logger.Debug().Err(err).Msg("GoAPI indicators unavailable")
				return
			}
			overrides = ind
		})
	}
	wg.Wait()

	if priceErr != nil {
		return nil, priceErr
	}

	last := candles[len(candles)-1].Close
	data := &Data{
		Symbol:      symbol,
		Candles:     candles,
		MajorHolder: holder,
		Overrides:   overrides,
	}

	switch {
	case profile != nil:
		data.Valuation = valuation.Normalize(*profile.Fundamentals(last), f.usdIDR)
	case raw != nil:
		if raw.Price == 0 {
			raw.Price = last
		}
		data.Valuation = valuation.Normalize(*raw, f.usdIDR)
	default:
		data.Valuation = models.Valuation{Status: valuation.StatusNA, Currency: "IDR"}
	}

	f.logger.Debug().
		Str("symbol", symbol).
		Int("bars", len(candles)).
		Str("valuation_source", data.Valuation.Source).
		Bool("overrides", overrides != nil).
		Msg("Market data fetched")

	return data, nil
}

// fetchValuation prefers the GoAPI profile and falls back to Yahoo.
func (f *Fetcher) fetchValuation(ctx context.Context, ticker string, candidates []string) (*Profile, *valuation.Fundamentals) {
	if f.goapi.Enabled() {
		p, err := f.goapi.Profile(ctx, ticker)
		if err == nil && p != nil {
			return p, nil
		}
		f.logger.Debug().Err(err).Msg("GoAPI profile unavailable, using Yahoo")
	}
	if f.fundamentals == nil {
		return nil, nil
	}
	for _, symbol := range candidates {
		raw, err := f.fundamentals.Fundamentals(ctx, symbol)
		if err != nil {
			f.logger.Debug().Err(err).Str("symbol", symbol).Msg("Fundamentals unavailable")
			continue
		}
		return nil, raw
	}
	return nil, nil
}
