package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"stocksignal/internal/models"
)

type fakeQuoter map[string]float64

func (f fakeQuoter) LastPrice(ctx context.Context, ticker string) (float64, error) {
	if p, ok := f[ticker]; ok {
		return p, nil
	}
	return 0, errors.New("no price data")
}

func TestLine(t *testing.T) {
	line := Line(models.PortfolioEntry{Ticker: "TLKM", AvgPrice: 3000, Lots: 10}, 3300)

	if line.Shares != 1000 {
		t.Errorf("shares = %d, want 1000", line.Shares)
	}
	if line.Invested != 3000000 || line.MarketValue != 3300000 {
		t.Errorf("invested=%v market=%v", line.Invested, line.MarketValue)
	}
	if line.PnL != 300000 || line.PnLPercent != 10 {
		t.Errorf("pnl=%v pct=%v", line.PnL, line.PnLPercent)
	}
}

func TestSummarize(t *testing.T) {
	v := NewValuer(fakeQuoter{"TLKM": 3300, "BBCA": 9000}, 2, zerolog.Nop())
	s := v.Summarize(context.Background(), []models.PortfolioEntry{
		{Ticker: "TLKM", AvgPrice: 3000, Lots: 10},
		{Ticker: "BBCA", AvgPrice: 10000, Lots: 1},
		{Ticker: "GONE", AvgPrice: 500, Lots: 2},
	})

	if len(s.Lines) != 3 || s.Lines[0].Ticker != "TLKM" || s.Lines[2].Ticker != "GONE" {
		t.Fatalf("lines out of order: %+v", s.Lines)
	}
	if s.Lines[2].PriceError == "" || s.Lines[2].PnL != 0 {
		t.Errorf("missing price should value at cost: %+v", s.Lines[2])
	}
	// invested 3,000,000 + 1,000,000 + 100,000; market 3,300,000 + 900,000 + 100,000
	if s.Invested != 4100000 || s.MarketValue != 4300000 || s.PnL != 200000 {
		t.Errorf("totals: invested=%v market=%v pnl=%v", s.Invested, s.MarketValue, s.PnL)
	}
	if s.PnLPercent != 4.88 {
		t.Errorf("pnl pct = %v, want 4.88", s.PnLPercent)
	}
}

func TestEmptyPortfolio(t *testing.T) {
	s := NewValuer(fakeQuoter{}, 0, zerolog.Nop()).Summarize(context.Background(), nil)
	if s.Invested != 0 || s.PnLPercent != 0 || len(s.Lines) != 0 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestProperty_PnLIdentity(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("market value minus invested equals pnl", prop.ForAll(
		func(avg, price float64, lots int) bool {
			l := Line(models.PortfolioEntry{AvgPrice: avg, Lots: lots}, price)
			diff := l.MarketValue - l.Invested - l.PnL
			return diff < 0.01 && diff > -0.01 && l.Shares == int64(lots)*100
		},
		gen.Float64Range(50, 50000),
		gen.Float64Range(50, 50000),
		gen.IntRange(1, 5000),
	))
	properties.TestingRun(t)
}
