package valuation

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func f64(v float64) *float64 { return &v }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      Fundamentals
		status  string
		pbvLow  float64
		pbvHigh float64
	}{
		{
			name:   "zero per low pbv",
			in:     Fundamentals{PER: f64(0), PBV: 0.5, MarketCap: 1e9},
			status: StatusUndervalued,
		},
		{
			name:   "negative per high pbv",
			in:     Fundamentals{PER: f64(-5), PBV: 5},
			status: StatusOvervalued,
		},
		{
			name:   "classic cheap",
			in:     Fundamentals{PER: f64(5), PBV: 0.8},
			status: StatusUndervalued,
		},
		{
			name:    "garbage pbv recomputed from book",
			in:      Fundamentals{PER: f64(10), PBV: 99999.99, BookValue: 100, Price: 200},
			status:  StatusFair,
			pbvLow:  2,
			pbvHigh: 2,
		},
		{
			name:    "book value in usd",
			in:      Fundamentals{PER: f64(0), PBV: 88999, BookValue: 0.004, Price: 356},
			status:  StatusOvervalued,
			pbvLow:  5,
			pbvHigh: 6,
		},
		{
			name:   "loss maker above book",
			in:     Fundamentals{PER: f64(-3), PBV: 2},
			status: StatusNegative,
		},
		{
			name:   "no data",
			in:     Fundamentals{},
			status: StatusNA,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Normalize(tt.in, DefaultUSDIDR)
			if v.Status != tt.status {
				t.Errorf("status = %q, want %q (per=%v pbv=%v)", v.Status, tt.status, v.PER, v.PBV)
			}
			if tt.pbvHigh > 0 && (v.PBV < tt.pbvLow || v.PBV > tt.pbvHigh) {
				t.Errorf("pbv = %v, want [%v, %v]", v.PBV, tt.pbvLow, tt.pbvHigh)
			}
		})
	}
}

func TestNormalizeFallsBackToPriceOverEPS(t *testing.T) {
	v := Normalize(Fundamentals{Price: 1000, EPS: -50, PBV: 1.5}, DefaultUSDIDR)
	if v.PER != -20 {
		t.Errorf("PER = %v, want -20", v.PER)
	}
	if v.Status != StatusNegative {
		t.Errorf("status = %q", v.Status)
	}
}

func TestNormalizeConvertsUSDQuote(t *testing.T) {
	v := Normalize(Fundamentals{PER: f64(12), PBV: 2, EPS: 0.5, MarketCap: 1000, Currency: "USD"}, 16000)
	if v.MarketCap != 16000000 || v.EPS != 8000 || !v.Converted {
		t.Errorf("conversion: %+v", v)
	}
	if v.Currency != "IDR" {
		t.Errorf("currency = %s", v.Currency)
	}
}

func TestProperty_StatusNeverNAWithPositivePBV(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("any positive pbv yields a label", prop.ForAll(
		func(per, pbv float64) bool {
			return Status(per, pbv) != StatusNA
		},
		gen.Float64Range(-100, 100),
		gen.Float64Range(0.01, 50),
	))

	properties.Property("pbv above 4 is always overvalued", prop.ForAll(
		func(per, pbv float64) bool {
			return Status(per, pbv) == StatusOvervalued
		},
		gen.Float64Range(-100, 100),
		gen.Float64Range(4.01, 50),
	))

	properties.TestingRun(t)
}
