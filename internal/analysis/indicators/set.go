package indicators

import "sort"

// Series keys produced by the standard engine.
const (
	KeySMA5        = "SMA_5"
	KeySMA8        = "SMA_8"
	KeySMA13       = "SMA_13"
	KeyEMA20       = "EMA_20"
	KeyEMA50       = "EMA_50"
	KeyRSI         = "RSI_14"
	KeyCCI         = "CCI_20"
	KeyATR         = "ATR_14"
	KeyMFI         = "MFI_14"
	KeyVWAP        = "VWAP"
	KeyStochK      = "STOCH_14_3_3.k"
	KeyStochD      = "STOCH_14_3_3.d"
	KeyADX         = "ADX_14.adx"
	KeyPlusDI      = "ADX_14.plus_di"
	KeyMinusDI     = "ADX_14.minus_di"
	KeyOBV         = "OBV.obv"
	KeyOBVEMA      = "OBV.ema"
	KeyMACD        = "MACD_12_26_9.macd"
	KeyMACDSignal  = "MACD_12_26_9.signal"
	KeyMACDHist    = "MACD_12_26_9.hist"
	KeyBBUpper     = "BB_20_2.upper"
	KeyBBMiddle    = "BB_20_2.middle"
	KeyBBLower     = "BB_20_2.lower"
	KeySuperTrend  = "SUPERTREND_10_3.supertrend"
	KeySTDirection = "SUPERTREND_10_3.direction"
)

// Key joins a multi-value indicator name with one of its outputs.
func Key(name, output string) string {
	return name + "." + output
}

// Set holds indicator series aligned to the input candles.
type Set struct {
	n      int
	series map[string][]float64
}

// NewSet creates an empty set for n candles.
func NewSet(n int) *Set {
	return &Set{n: n, series: make(map[string][]float64)}
}

// Put stores a series under key.
func (s *Set) Put(key string, values []float64) {
	s.series[key] = values
}

// Series returns the full series for key, or nil.
func (s *Set) Series(key string) []float64 {
	return s.series[key]
}

// Has reports whether key was calculated.
func (s *Set) Has(key string) bool {
	_, ok := s.series[key]
	return ok
}

// At returns the value of key at index i, or 0 when unavailable.
func (s *Set) At(key string, i int) float64 {
	v := s.series[key]
	if i < 0 || i >= len(v) {
		return 0
	}
	return v[i]
}

// Last returns the latest value of key.
func (s *Set) Last(key string) float64 {
	v := s.series[key]
	return s.At(key, len(v)-1)
}

// Prev returns the value before the latest one.
func (s *Set) Prev(key string) float64 {
	v := s.series[key]
	return s.At(key, len(v)-2)
}

// Keys returns the sorted series keys.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.series))
	for k := range s.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of candles the set was built from.
func (s *Set) Len() int {
	return s.n
}
