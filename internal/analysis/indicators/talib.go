package indicators

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"stocksignal/internal/models"
)

// MA is a simple or exponential moving average of closes.
type MA struct {
	period int
	kind   talib.MaType
}

// NewSMA creates a simple moving average.
func NewSMA(period int) *MA {
	return &MA{period: period, kind: talib.SMA}
}

// NewEMA creates an exponential moving average.
func NewEMA(period int) *MA {
	return &MA{period: period, kind: talib.EMA}
}

func (m *MA) Name() string {
	if m.kind == talib.EMA {
		return fmt.Sprintf("EMA_%d", m.period)
	}
	return fmt.Sprintf("SMA_%d", m.period)
}

func (m *MA) Period() int {
	return m.period
}

func (m *MA) Calculate(candles []models.Candle) ([]float64, error) {
	if err := need(candles, m.period); err != nil {
		return nil, err
	}
	closes := closePrices(candles)
	if m.kind == talib.EMA {
		return talib.Ema(closes, m.period), nil
	}
	return talib.Sma(closes, m.period), nil
}

// RSI calculates the Relative Strength Index.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period + 1
}

func (r *RSI) Calculate(candles []models.Candle) ([]float64, error) {
	if err := need(candles, r.Period()); err != nil {
		return nil, err
	}
	return talib.Rsi(closePrices(candles), r.period), nil
}

// CCI calculates the Commodity Channel Index.
type CCI struct {
	period int
}

// NewCCI creates a new CCI indicator.
func NewCCI(period int) *CCI {
	return &CCI{period: period}
}

func (c *CCI) Name() string {
	return fmt.Sprintf("CCI_%d", c.period)
}

func (c *CCI) Period() int {
	return c.period
}

func (c *CCI) Calculate(candles []models.Candle) ([]float64, error) {
	if err := need(candles, c.period); err != nil {
		return nil, err
	}
	return talib.Cci(highPrices(candles), lowPrices(candles), closePrices(candles), c.period), nil
}

// ATR calculates the Average True Range.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR_%d", a.period)
}

func (a *ATR) Period() int {
	return a.period + 1
}

func (a *ATR) Calculate(candles []models.Candle) ([]float64, error) {
	if err := need(candles, a.Period()); err != nil {
		return nil, err
	}
	return talib.Atr(highPrices(candles), lowPrices(candles), closePrices(candles), a.period), nil
}

// MFI calculates the Money Flow Index.
type MFI struct {
	period int
}

// NewMFI creates a new MFI indicator.
func NewMFI(period int) *MFI {
	return &MFI{period: period}
}

func (m *MFI) Name() string {
	return fmt.Sprintf("MFI_%d", m.period)
}

func (m *MFI) Period() int {
	return m.period + 1
}

func (m *MFI) Calculate(candles []models.Candle) ([]float64, error) {
	if err := need(candles, m.Period()); err != nil {
		return nil, err
	}
	return talib.Mfi(highPrices(candles), lowPrices(candles), closePrices(candles), floatVolumes(candles), m.period), nil
}

// Stochastic calculates the slow stochastic oscillator.
type Stochastic struct {
	fastK int
	slowK int
	slowD int
}

// NewStochastic creates a new Stochastic indicator.
func NewStochastic(fastK, slowK, slowD int) *Stochastic {
	return &Stochastic{fastK: fastK, slowK: slowK, slowD: slowD}
}

func (s *Stochastic) Name() string {
	return fmt.Sprintf("STOCH_%d_%d_%d", s.fastK, s.slowK, s.slowD)
}

func (s *Stochastic) Period() int {
	return s.fastK + s.slowK + s.slowD
}

func (s *Stochastic) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if err := need(candles, s.Period()); err != nil {
		return nil, err
	}
	k, d := talib.Stoch(highPrices(candles), lowPrices(candles), closePrices(candles),
		s.fastK, s.slowK, talib.SMA, s.slowD, talib.SMA)
	return map[string][]float64{"k": k, "d": d}, nil
}

// ADX calculates the Average Directional Index with its directional lines.
type ADX struct {
	period int
}

// NewADX creates a new ADX indicator.
func NewADX(period int) *ADX {
	return &ADX{period: period}
}

func (a *ADX) Name() string {
	return fmt.Sprintf("ADX_%d", a.period)
}

func (a *ADX) Period() int {
	return a.period * 2
}

func (a *ADX) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if err := need(candles, a.Period()); err != nil {
		return nil, err
	}
	h, l, c := highPrices(candles), lowPrices(candles), closePrices(candles)
	return map[string][]float64{
		"adx":      talib.Adx(h, l, c, a.period),
		"plus_di":  talib.PlusDI(h, l, c, a.period),
		"minus_di": talib.MinusDI(h, l, c, a.period),
	}, nil
}

// OBV calculates On-Balance Volume and its EMA signal line.
type OBV struct {
	signal int
}

// NewOBV creates a new OBV indicator with an EMA of the given period.
func NewOBV(signal int) *OBV {
	return &OBV{signal: signal}
}

func (o *OBV) Name() string {
	return "OBV"
}

func (o *OBV) Period() int {
	return o.signal
}

func (o *OBV) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if err := need(candles, o.Period()); err != nil {
		return nil, err
	}
	obv := talib.Obv(closePrices(candles), floatVolumes(candles))
	return map[string][]float64{
		"obv": obv,
		"ema": talib.Ema(obv, o.signal),
	}, nil
}

// MACD calculates Moving Average Convergence Divergence.
type MACD struct {
	fast   int
	slow   int
	signal int
}

// NewMACD creates a new MACD indicator.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{fast: fast, slow: slow, signal: signal}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.fast, m.slow, m.signal)
}

func (m *MACD) Period() int {
	return m.slow + m.signal
}

func (m *MACD) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if err := need(candles, m.Period()); err != nil {
		return nil, err
	}
	macd, signal, hist := talib.Macd(closePrices(candles), m.fast, m.slow, m.signal)
	return map[string][]float64{
		"macd":   macd,
		"signal": signal,
		"hist":   hist,
	}, nil
}

// BollingerBands calculates SMA based Bollinger Bands.
type BollingerBands struct {
	period int
	stdDev float64
}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{period: period, stdDev: stdDev}
}

func (b *BollingerBands) Name() string {
	return fmt.Sprintf("BB_%d_%g", b.period, b.stdDev)
}

func (b *BollingerBands) Period() int {
	return b.period
}

func (b *BollingerBands) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if err := need(candles, b.period); err != nil {
		return nil, err
	}
	upper, middle, lower := talib.BBands(closePrices(candles), b.period, b.stdDev, b.stdDev, talib.SMA)
	return map[string][]float64{
		"upper":  upper,
		"middle": middle,
		"lower":  lower,
	}, nil
}
