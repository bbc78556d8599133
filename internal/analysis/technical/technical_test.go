package technical

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/models"
)

func trendingCandles(n int, step float64) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		c := 1000 + step*float64(i)
		out[i] = models.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c - step/2,
			High:      c + 5,
			Low:       c - step/2 - 5,
			Close:     c,
			Volume:    int64(100000 + i*100),
		}
	}
	return out
}

func TestAnalyzeUptrend(t *testing.T) {
	a := NewAnalyzer(nil, 120)
	candles := trendingCandles(200, 10)

	snap, set, err := a.Analyze(context.Background(), Input{
		Ticker:    "BBCA.JK",
		Timeframe: models.TimeframeDaily,
		Candles:   candles,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if set == nil || set.Len() == 0 {
		t.Fatal("expected indicator set")
	}
	if !strings.HasPrefix(snap.Trend, "Bullish") {
		t.Errorf("trend = %q, want Bullish", snap.Trend)
	}
	if snap.WeeklyTrend != "Bullish" {
		t.Errorf("weekly trend = %q", snap.WeeklyTrend)
	}
	if snap.Price != candles[len(candles)-1].Close {
		t.Errorf("price = %v", snap.Price)
	}
	if !(snap.StopLoss < snap.Price && snap.Price < snap.Target) {
		t.Errorf("stop %v price %v target %v", snap.StopLoss, snap.Price, snap.Target)
	}
	if len(snap.RecentHistory) != 5 {
		t.Errorf("history rows = %d, want 5", len(snap.RecentHistory))
	}
	if snap.Support > snap.Resistance {
		t.Errorf("support %v above resistance %v", snap.Support, snap.Resistance)
	}
	if snap.IndicatorSource != "local" {
		t.Errorf("source = %q", snap.IndicatorSource)
	}
	if snap.Verdict != VerdictFor(snap.FinalScore) {
		t.Errorf("verdict %q does not match score %d", snap.Verdict, snap.FinalScore)
	}
}

func TestAnalyzeOverrides(t *testing.T) {
	rsi, ema20 := 71.5, 1234.0
	snap, _, err := NewAnalyzer(nil, 0).Analyze(context.Background(), Input{
		Ticker:    "TLKM.JK",
		Candles:   trendingCandles(80, 2),
		Overrides: &Overrides{RSI: &rsi, EMA20: &ema20},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if snap.RSI != rsi || snap.EMA20 != ema20 {
		t.Errorf("rsi = %v ema20 = %v", snap.RSI, snap.EMA20)
	}
	if snap.IndicatorSource != "goapi" {
		t.Errorf("source = %q", snap.IndicatorSource)
	}
}

func TestAnalyzeShortInput(t *testing.T) {
	_, _, err := NewAnalyzer(nil, 0).Analyze(context.Background(), Input{
		Ticker:  "X",
		Candles: trendingCandles(1, 1),
	})
	if !errors.Is(err, apperrors.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestAnalyzeFewBarsUsesDefaults(t *testing.T) {
	snap, _, err := NewAnalyzer(nil, 0).Analyze(context.Background(), Input{
		Ticker:  "NEWIPO",
		Candles: trendingCandles(3, 1),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if snap.RSI != 50 || snap.MFI != 50 || snap.StochK != 50 {
		t.Errorf("rsi %v mfi %v stoch %v, want 50 defaults", snap.RSI, snap.MFI, snap.StochK)
	}
	if snap.ATR != snap.Price*0.02 {
		t.Errorf("atr = %v, want 2%% of price", snap.ATR)
	}
	if snap.WeeklyTrend != "Netral" {
		t.Errorf("weekly = %q", snap.WeeklyTrend)
	}
}

func TestVolumeStatus(t *testing.T) {
	tests := []struct {
		ratio, tx float64
		want      string
	}{
		{3, 0, "EXPLOSIVE VOL (Spike)"},
		{1.5, 0, "High Volume"},
		{0.5, 1e12, "Low / Dry"},
		{1, 25e9, "High Liquidity (Active)"},
		{1, 1e9, "Normal (Retail)"},
	}
	for _, tt := range tests {
		if got := VolumeStatus(tt.ratio, tt.tx); got != tt.want {
			t.Errorf("VolumeStatus(%v, %v) = %q, want %q", tt.ratio, tt.tx, got, tt.want)
		}
	}
}

func TestSmartMoney(t *testing.T) {
	tests := []struct {
		name             string
		change, ratio    float64
		mfiBull, obvBull bool
		status, action   string
	}{
		{"strong up", 10, 1.5, true, false, "AKUMULASI KUAT", "Big Money Masuk (Vol + MFI)"},
		{"light up", 10, 1.1, false, false, "Akumulasi Ringan", "Follow Trend"},
		{"thin up", 10, 0.8, true, true, "Rebound Tanpa Volume", "Hati-hati Bull Trap"},
		{"strong down", -10, 1.5, true, false, "DISTRIBUSI KUAT", "Big Money Keluar (Vol + MFI)"},
		{"light down", -10, 1.1, true, true, "Distribusi Ringan", "Profit Taking?"},
		{"thin down", -10, 0.5, false, false, "Koreksi Wajar", "Pantau Support"},
		{"flat", 0, 3, true, true, "Netral", "Wait & See"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, a := SmartMoney(tt.change, tt.ratio, tt.mfiBull, tt.obvBull)
			if s != tt.status || a != tt.action {
				t.Errorf("got (%q, %q), want (%q, %q)", s, a, tt.status, tt.action)
			}
		})
	}
}

func TestTrendAndStrength(t *testing.T) {
	if got := Trend(110, 105, 100, 60); got != "Bullish (Sangat Kuat)" {
		t.Errorf("got %q", got)
	}
	if got := Trend(90, 95, 100, 30); got != "Bearish (Kuat)" {
		t.Errorf("got %q", got)
	}
	if got := Trend(100, 105, 100, 10); got != "Sideways / Konsolidasi" {
		t.Errorf("got %q", got)
	}
}

func TestADXStrengthBoundaries(t *testing.T) {
	tests := []struct {
		adx  float64
		want string
	}{
		{75, "Sangat Kuat"},
		{50.1, "Sangat Kuat"},
		{50, "Kuat"},
		{25.1, "Kuat"},
		{25, "Lemah"},
		{0, "Lemah"},
	}
	for _, tt := range tests {
		if got := ADXStrength(tt.adx); got != tt.want {
			t.Errorf("ADXStrength(%v) = %q, want %q", tt.adx, got, tt.want)
		}
	}
}

func TestMajorTrendByTimeframe(t *testing.T) {
	a := NewAnalyzer(nil, 0)
	candles := trendingCandles(200, 10)

	weekly, _, err := a.Analyze(context.Background(), Input{
		Ticker:    "BBRI.JK",
		Timeframe: models.TimeframeWeekly,
		Candles:   candles,
	})
	if err != nil {
		t.Fatalf("Analyze weekly: %v", err)
	}
	if weekly.WeeklyTrend != "Bullish" {
		t.Errorf("weekly timeframe trend = %q, want Bullish", weekly.WeeklyTrend)
	}

	monthly, _, err := a.Analyze(context.Background(), Input{
		Ticker:    "BBRI.JK",
		Timeframe: models.TimeframeMonthly,
		Candles:   candles,
	})
	if err != nil {
		t.Fatalf("Analyze monthly: %v", err)
	}
	if monthly.WeeklyTrend != "" {
		t.Errorf("monthly timeframe trend = %q, want empty", monthly.WeeklyTrend)
	}
}

func TestMACDAndBBStatus(t *testing.T) {
	tests := []struct {
		macd, signal float64
		want         string
	}{
		{-1, -2, "Golden Cross (Bullish)"},
		{2, 1, "Bullish Momentum"},
		{1, 2, "Dead Cross (Bearish)"},
		{-2, -1, "Bearish Momentum"},
		{1, 1, "Netral"},
	}
	for _, tt := range tests {
		if got := MACDStatus(tt.macd, tt.signal); got != tt.want {
			t.Errorf("MACDStatus(%v, %v) = %q, want %q", tt.macd, tt.signal, got, tt.want)
		}
	}
	if BBStatus(110, 110, 90) != "Overbought (Atas BB)" ||
		BBStatus(90, 110, 90) != "Oversold (Bawah BB)" ||
		BBStatus(100, 110, 90) != "Dalam Range" {
		t.Error("unexpected BB status")
	}
}

func TestScores(t *testing.T) {
	if got := TechScore("Bullish (Kuat)", "Golden Cross (Bullish)", 60, 30); got != 90 {
		t.Errorf("tech score = %d, want 90", got)
	}
	if got := TechScore("Bearish (Lemah)", "Dead Cross (Bearish)", 40, 10); got != 20 {
		t.Errorf("tech score = %d, want 20", got)
	}
	if got := ProxyBandarScore("AKUMULASI KUAT", 2, 60, 10, 5); got != 100 {
		t.Errorf("bandar score = %d, want 100", got)
	}
	if got := BlendScore(90, 100, 50); got != 86 {
		t.Errorf("blend = %d, want 86", got)
	}
	tests := map[int]string{
		80: "STRONG BUY",
		75: "STRONG BUY",
		60: "BUY / ACCUMULATE",
		50: "WAIT & SEE",
		45: "SELL / AVOID",
		30: "STRONG SELL",
	}
	for score, want := range tests {
		if got := VerdictFor(score); got != want {
			t.Errorf("VerdictFor(%d) = %q, want %q", score, got, want)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	rows := RecentHistory(trendingCandles(3, 10), 5)
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	out := FormatHistory(rows)
	if !strings.HasPrefix(out, "Date | Close | Vol | Change%\n") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "2024-01-03 | 1020 | 100k | +0.99%") {
		t.Errorf("unexpected body: %q", out)
	}
	if FormatHistory(nil) != "Data History N/A" {
		t.Error("empty history")
	}
}

func TestBlendScoreProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("blend stays within 0..100", prop.ForAll(
		func(tech, bandar, sentiment int) bool {
			s := BlendScore(tech, bandar, sentiment)
			return s >= 0 && s <= 100
		},
		gen.IntRange(-100, 200),
		gen.IntRange(-100, 200),
		gen.IntRange(-100, 200),
	))

	properties.Property("tech score stays within 0..100", prop.ForAll(
		func(rsi, adx float64, bull bool) bool {
			trend := "Bearish (Lemah)"
			macd := "Dead Cross (Bearish)"
			if bull {
				trend, macd = "Bullish (Kuat)", "Golden Cross (Bullish)"
			}
			s := TechScore(trend, macd, rsi, adx)
			return s >= 0 && s <= 100
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
