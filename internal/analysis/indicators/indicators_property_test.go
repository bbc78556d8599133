package indicators

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"stocksignal/internal/models"
)

// candleGen generates valid candle data with realistic OHLCV values
func candleGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.Candle{}), map[string]gopter.Gen{
		"Timestamp": gen.Const(time.Time{}),
		"Open":      gen.Float64Range(100.0, 1000.0),
		"High":      gen.Float64Range(100.0, 1000.0),
		"Low":       gen.Float64Range(100.0, 1000.0),
		"Close":     gen.Float64Range(100.0, 1000.0),
		"Volume":    gen.Int64Range(1000, 10000000),
	}).Map(func(c models.Candle) models.Candle {
		c.High = math.Max(c.High, math.Max(c.Open, c.Close))
		c.Low = math.Min(c.Low, math.Min(c.Open, c.Close))
		if c.High <= c.Low {
			c.High = c.Low + 1.0
		}
		return c
	})
}

// candleSliceGen generates n daily candles with ascending timestamps
func candleSliceGen(n int) gopter.Gen {
	return gen.SliceOfN(n, candleGen()).Map(func(candles []models.Candle) []models.Candle {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := range candles {
			candles[i].Timestamp = start.AddDate(0, 0, i)
		}
		return candles
	})
}

func within(values []float64, lo, hi float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || v < lo-1e-9 || v > hi+1e-9 {
			return false
		}
	}
	return true
}

func TestProperty_OscillatorsBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("RSI within [0, 100]", prop.ForAll(
		func(candles []models.Candle) bool {
			values, err := NewRSI(14).Calculate(candles)
			return err == nil && within(values, 0, 100)
		},
		candleSliceGen(80),
	))

	properties.Property("MFI within [0, 100]", prop.ForAll(
		func(candles []models.Candle) bool {
			values, err := NewMFI(14).Calculate(candles)
			return err == nil && within(values, 0, 100)
		},
		candleSliceGen(80),
	))

	properties.Property("Stochastic within [0, 100]", prop.ForAll(
		func(candles []models.Candle) bool {
			out, err := NewStochastic(14, 3, 3).Calculate(candles)
			return err == nil && within(out["k"], 0, 100) && within(out["d"], 0, 100)
		},
		candleSliceGen(80),
	))

	properties.Property("ADX within [0, 100]", prop.ForAll(
		func(candles []models.Candle) bool {
			out, err := NewADX(14).Calculate(candles)
			return err == nil && within(out["adx"], 0, 100)
		},
		candleSliceGen(80),
	))

	properties.TestingRun(t)
}

func TestProperty_LevelsOrdering(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("pivot levels are ordered S2 <= S1 <= P <= R1 <= R2", prop.ForAll(
		func(c models.Candle) bool {
			p := Pivots(c)
			return p.S2 <= p.S1 && p.S1 <= p.P && p.P <= p.R1 && p.R1 <= p.R2
		},
		candleGen(),
	))

	properties.Property("fibonacci levels ascend from low to high", prop.ForAll(
		func(candles []models.Candle) bool {
			levels := Fibonacci(candles, 120)
			if len(levels) != len(FibonacciRatios) {
				return false
			}
			for i := 1; i < len(levels); i++ {
				if levels[i].Price < levels[i-1].Price {
					return false
				}
			}
			support, resistance := SupportResistance(candles, len(candles))
			return levels[0].Price == support && levels[len(levels)-1].Price == resistance
		},
		candleSliceGen(40),
	))

	properties.Property("daily VWAP sits inside the bar", prop.ForAll(
		func(candles []models.Candle) bool {
			values, err := NewVWAP().Calculate(candles)
			if err != nil {
				return false
			}
			for i, v := range values {
				if v < candles[i].Low-1e-9 || v > candles[i].High+1e-9 {
					return false
				}
			}
			return true
		},
		candleSliceGen(30),
	))

	properties.Property("weekly resample preserves volume and extremes", prop.ForAll(
		func(candles []models.Candle) bool {
			weekly := ResampleWeekly(candles)
			var dv, wv int64
			for _, c := range candles {
				dv += c.Volume
			}
			for _, w := range weekly {
				wv += w.Volume
			}
			_, dh := SupportResistance(candles, len(candles))
			_, wh := SupportResistance(weekly, len(weekly))
			return dv == wv && dh == wh && weekly[len(weekly)-1].Close == candles[len(candles)-1].Close
		},
		candleSliceGen(60),
	))

	properties.TestingRun(t)
}

func TestStandardEngineProducesAllSeries(t *testing.T) {
	candles := make([]models.Candle, 200)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		base := 1000 + 50*math.Sin(float64(i)/7)
		candles[i] = models.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      base - 5,
			High:      base + 10,
			Low:       base - 10,
			Close:     base + 3,
			Volume:    int64(100000 + i*10),
		}
	}

	set, err := NewStandardEngine(4).CalculateAll(context.Background(), candles)
	if err != nil {
		t.Fatalf("CalculateAll: %v", err)
	}

	for _, key := range []string{
		KeySMA5, KeySMA8, KeySMA13, KeyEMA20, KeyEMA50, KeyRSI, KeyCCI, KeyATR, KeyMFI, KeyVWAP,
		KeyStochK, KeyStochD, KeyADX, KeyPlusDI, KeyMinusDI, KeyOBV, KeyOBVEMA,
		KeyMACD, KeyMACDSignal, KeyMACDHist, KeyBBUpper, KeyBBMiddle, KeyBBLower,
		KeySuperTrend, KeySTDirection,
	} {
		if !set.Has(key) {
			t.Errorf("missing series %s", key)
			continue
		}
		if got := len(set.Series(key)); got != len(candles) {
			t.Errorf("%s has %d values, want %d", key, got, len(candles))
		}
	}

	if set.Last(KeyBBUpper) < set.Last(KeyBBLower) {
		t.Errorf("upper band below lower band")
	}
	if d := set.Last(KeySTDirection); d != 1 && d != -1 {
		t.Errorf("supertrend direction = %v", d)
	}
}

func TestEngineSkipsShortInput(t *testing.T) {
	candles := make([]models.Candle, 10)
	for i := range candles {
		candles[i] = models.Candle{Open: 10, High: 11, Low: 9, Close: 10, Volume: 100}
	}

	set, err := NewStandardEngine(2).CalculateAll(context.Background(), candles)
	if err != nil {
		t.Fatalf("CalculateAll: %v", err)
	}
	if set.Has(KeyEMA50) || set.Has(KeyMACD) {
		t.Error("long-period indicators should be skipped")
	}
	if !set.Has(KeySMA5) {
		t.Error("SMA_5 should be calculated")
	}
}

func TestEngineCalculateByName(t *testing.T) {
	candles := make([]models.Candle, 40)
	for i := range candles {
		c := 100 + float64(i)
		candles[i] = models.Candle{Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	e := NewStandardEngine(2)

	ema, err := e.Calculate(context.Background(), KeyEMA20, candles)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if len(ema) != len(candles) || ema[len(ema)-1] >= candles[len(candles)-1].Close {
		t.Errorf("EMA_20 last = %v, want below close in an uptrend", ema[len(ema)-1])
	}

	if _, err := e.Calculate(context.Background(), "EMA_200", candles); err == nil {
		t.Error("expected error for unregistered indicator")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Calculate(ctx, KeyEMA20, candles); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestSetKeysSorted(t *testing.T) {
	set := NewSet(2)
	set.Put(KeyRSI, []float64{1, 2})
	set.Put(KeyATR, []float64{1, 2})
	set.Put(Key("MACD", "signal"), []float64{1, 2})

	keys := set.Keys()
	want := []string{KeyATR, "MACD.signal", KeyRSI}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys = %v, want %v", keys, want)
			break
		}
	}
}

func TestRecentVolumeFallsBackOnEmptyBar(t *testing.T) {
	candles := []models.Candle{{Volume: 100}, {Volume: 200}, {Volume: 300}, {Volume: 0}}
	vp := RecentVolume(candles, 20)
	if vp.Current != 300 {
		t.Errorf("Current = %d, want 300", vp.Current)
	}
	if vp.Average != 150 {
		t.Errorf("Average = %v, want 150", vp.Average)
	}
	if vp.Ratio != 2 {
		t.Errorf("Ratio = %v, want 2", vp.Ratio)
	}
}
