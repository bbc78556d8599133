// Package technical turns candles and indicator series into a labelled
// snapshot of the latest bar.
package technical

import (
	"context"
	"fmt"
	"strings"

	"stocksignal/internal/analysis/indicators"
	"stocksignal/internal/analysis/patterns"
	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/models"
)

// HighLiquidityIDR is the traded value above which a normal-volume session
// is still considered active.
const HighLiquidityIDR = 20_000_000_000

// Overrides replace locally computed values with exchange supplied ones.
type Overrides struct {
	RSI   *float64
	EMA20 *float64
	EMA50 *float64
}

// Input is everything Analyze needs for one ticker.
type Input struct {
	Ticker      string
	Timeframe   models.Timeframe
	Candles     []models.Candle
	Valuation   models.Valuation
	MajorHolder string
	Overrides   *Overrides
}

// Analyzer computes technical snapshots.
type Analyzer struct {
	engine      *indicators.Engine
	detector    *patterns.CandlestickDetector
	fibLookback int
}

// NewAnalyzer creates an analyzer around an indicator engine.
func NewAnalyzer(engine *indicators.Engine, fibLookback int) *Analyzer {
	if engine == nil {
		engine = indicators.NewStandardEngine(4)
	}
	if fibLookback <= 0 {
		fibLookback = 120
	}
	return &Analyzer{
		engine:      engine,
		detector:    patterns.NewCandlestickDetector(),
		fibLookback: fibLookback,
	}
}

// Analyze computes indicators and labels the latest bar.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*models.TechnicalSnapshot, *indicators.Set, error) {
	candles := in.Candles
	if len(candles) < 2 {
		return nil, nil, apperrors.NewDataError("technical", in.Ticker, "need at least two candles", apperrors.ErrInsufficientData)
	}

	set, err := a.engine.CalculateAll(ctx, candles)
	if err != nil {
		return nil, nil, err
	}

	latest := candles[len(candles)-1]
	prev := candles[len(candles)-2]
	price := latest.Close

	snap := &models.TechnicalSnapshot{
		Ticker:          in.Ticker,
		Timeframe:       in.Timeframe,
		AsOf:            latest.Timestamp,
		Price:           price,
		Valuation:       in.Valuation,
		MajorHolder:     in.MajorHolder,
		IndicatorSource: "local",
	}
	if prev.Close != 0 {
		snap.ChangePct = (price - prev.Close) / prev.Close * 100
	}

	snap.SMA5 = lastOr(set, indicators.KeySMA5, price)
	snap.SMA8 = lastOr(set, indicators.KeySMA8, price)
	snap.SMA13 = lastOr(set, indicators.KeySMA13, price)
	snap.EMA20 = lastOr(set, indicators.KeyEMA20, price)
	snap.EMA50 = lastOr(set, indicators.KeyEMA50, price)
	snap.RSI = lastOr(set, indicators.KeyRSI, 50)
	snap.CCI = lastOr(set, indicators.KeyCCI, 0)
	snap.StochK = lastOr(set, indicators.KeyStochK, 50)
	snap.StochD = lastOr(set, indicators.KeyStochD, 50)
	snap.ADX = lastOr(set, indicators.KeyADX, 0)
	snap.PlusDI = lastOr(set, indicators.KeyPlusDI, 0)
	snap.MinusDI = lastOr(set, indicators.KeyMinusDI, 0)
	snap.ATR = lastOr(set, indicators.KeyATR, 0)
	if snap.ATR <= 0 {
		snap.ATR = price * 0.02
	}
	snap.MFI = lastOr(set, indicators.KeyMFI, 50)
	snap.PrevMFI = prevOr(set, indicators.KeyMFI, 50)
	snap.OBV = lastOr(set, indicators.KeyOBV, 0)
	snap.OBVEMA = lastOr(set, indicators.KeyOBVEMA, 0)
	snap.VWAP = lastOr(set, indicators.KeyVWAP, 0)
	snap.MACD = lastOr(set, indicators.KeyMACD, 0)
	snap.MACDSignal = lastOr(set, indicators.KeyMACDSignal, 0)
	snap.MACDHist = lastOr(set, indicators.KeyMACDHist, 0)
	snap.BBUpper = lastOr(set, indicators.KeyBBUpper, price)
	snap.BBMiddle = lastOr(set, indicators.KeyBBMiddle, price)
	snap.BBLower = lastOr(set, indicators.KeyBBLower, price)
	snap.Supertrend = lastOr(set, indicators.KeySuperTrend, 0)
	snap.SupertrendUp = set.Last(indicators.KeySTDirection) > 0

	if o := in.Overrides; o != nil {
		if o.RSI != nil {
			snap.RSI = *o.RSI
			snap.IndicatorSource = "goapi"
		}
		if o.EMA20 != nil {
			snap.EMA20 = *o.EMA20
			snap.IndicatorSource = "goapi"
		}
		if o.EMA50 != nil {
			snap.EMA50 = *o.EMA50
			snap.IndicatorSource = "goapi"
		}
	}

	vp := indicators.RecentVolume(candles, 20)
	snap.Volume = vp.Current
	snap.AvgVolume20 = vp.Average
	snap.VolRatio = vp.Ratio
	snap.TxValue = price * float64(vp.Current)
	snap.VolStatus = VolumeStatus(snap.VolRatio, snap.TxValue)

	mfiBull := snap.MFI > 50 && snap.MFI > snap.PrevMFI
	obvBull := snap.OBV > snap.OBVEMA
	snap.BandarStatus, snap.BandarAction = SmartMoney(price-prev.Close, snap.VolRatio, mfiBull, obvBull)

	snap.ADXStrength = ADXStrength(snap.ADX)
	snap.Trend = Trend(price, snap.EMA20, snap.EMA50, snap.ADX)
	snap.MACDStatus = MACDStatus(snap.MACD, snap.MACDSignal)
	snap.BBStatus = BBStatus(price, snap.BBUpper, snap.BBLower)
	snap.CandlePattern = patterns.Summary(a.detector.Latest(candles))
	snap.WeeklyTrend = a.majorTrend(ctx, candles, in.Timeframe)

	snap.Pivots = indicators.Pivots(latest)
	snap.Fibonacci = indicators.Fibonacci(candles, a.fibLookback)
	snap.Support, snap.Resistance = indicators.SupportResistance(candles, 20)
	snap.StopLoss = price - 2*snap.ATR
	snap.Target = price + 3*snap.ATR

	snap.RecentHistory = RecentHistory(candles, 5)

	snap.TechScore = TechScore(snap.Trend, snap.MACDStatus, snap.RSI, snap.ADX)
	snap.BandarScore = ProxyBandarScore(snap.BandarStatus, snap.VolRatio, snap.MFI, snap.OBV, snap.OBVEMA)
	snap.FinalScore = BlendScore(snap.TechScore, snap.BandarScore, 50)
	snap.Verdict = VerdictFor(snap.FinalScore)

	return snap, set, nil
}

// majorTrend compares the last weekly close with its 20 week EMA. Monthly
// bars are coarser than weeks, so no weekly trend is reported for them.
func (a *Analyzer) majorTrend(ctx context.Context, candles []models.Candle, tf models.Timeframe) string {
	var weekly []models.Candle
	switch tf {
	case "", models.TimeframeDaily:
		weekly = indicators.ResampleWeekly(candles)
	case models.TimeframeWeekly:
		weekly = candles
	default:
		return ""
	}
	ema, err := a.engine.Calculate(ctx, indicators.KeyEMA20, weekly)
	if err != nil || len(ema) == 0 {
		return "Netral"
	}
	last := ema[len(ema)-1]
	if last <= 0 {
		return "Netral"
	}
	if weekly[len(weekly)-1].Close > last {
		return "Bullish"
	}
	return "Bearish"
}

// RecentHistory returns the last n bars with their close-to-close change.
func RecentHistory(candles []models.Candle, n int) []models.HistoryRow {
	start := len(candles) - n
	if start < 0 {
		start = 0
	}
	rows := make([]models.HistoryRow, 0, len(candles)-start)
	for i := start; i < len(candles); i++ {
		row := models.HistoryRow{
			Date:   candles[i].Timestamp,
			Close:  candles[i].Close,
			Volume: candles[i].Volume,
		}
		if i > 0 && candles[i-1].Close != 0 {
			row.ChangePct = (candles[i].Close - candles[i-1].Close) / candles[i-1].Close * 100
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatHistory renders rows as the compact table used in prompts.
func FormatHistory(rows []models.HistoryRow) string {
	if len(rows) == 0 {
		return "Data History N/A"
	}
	var sb strings.Builder
	sb.WriteString("Date | Close | Vol | Change%\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "%s | %.0f | %.0fk | %+.2f%%\n",
			r.Date.Format("2006-01-02"), r.Close, float64(r.Volume)/1000, r.ChangePct)
	}
	return sb.String()
}

func lastOr(set *indicators.Set, key string, def float64) float64 {
	if !set.Has(key) {
		return def
	}
	return set.Last(key)
}

func prevOr(set *indicators.Set, key string, def float64) float64 {
	if !set.Has(key) || len(set.Series(key)) < 2 {
		return def
	}
	return set.Prev(key)
}
