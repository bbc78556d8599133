package technical

import (
	"math"
	"strings"
)

// VolumeStatus labels relative volume, falling back to absolute liquidity.
func VolumeStatus(ratio, txValue float64) string {
	switch {
	case ratio > 2.5:
		return "EXPLOSIVE VOL (Spike)"
	case ratio > 1.2:
		return "High Volume"
	case ratio < 0.6:
		return "Low / Dry"
	case txValue > HighLiquidityIDR:
		return "High Liquidity (Active)"
	default:
		return "Normal (Retail)"
	}
}

// SmartMoney is the volume based accumulation/distribution proxy.
func SmartMoney(priceChange, volRatio float64, mfiBull, obvBull bool) (status, action string) {
	switch {
	case priceChange > 0:
		switch {
		case volRatio > 1.2 && (mfiBull || obvBull):
			return "AKUMULASI KUAT", "Big Money Masuk (Vol + MFI)"
		case volRatio > 1.0:
			return "Akumulasi Ringan", "Follow Trend"
		default:
			return "Rebound Tanpa Volume", "Hati-hati Bull Trap"
		}
	case priceChange < 0:
		switch {
		case volRatio > 1.2 && (!mfiBull || !obvBull):
			return "DISTRIBUSI KUAT", "Big Money Keluar (Vol + MFI)"
		case volRatio > 1.0:
			return "Distribusi Ringan", "Profit Taking?"
		default:
			return "Koreksi Wajar", "Pantau Support"
		}
	}
	return "Netral", "Wait & See"
}

// ADXStrength grades trend strength.
func ADXStrength(adx float64) string {
	switch {
	case adx > 50:
		return "Sangat Kuat"
	case adx > 25:
		return "Kuat"
	default:
		return "Lemah"
	}
}

// Trend labels EMA alignment with ADX strength.
func Trend(price, ema20, ema50, adx float64) string {
	strength := ADXStrength(adx)
	switch {
	case price > ema20 && ema20 > ema50:
		return "Bullish (" + strength + ")"
	case price < ema20 && ema20 < ema50:
		return "Bearish (" + strength + ")"
	default:
		return "Sideways / Konsolidasi"
	}
}

// MACDStatus labels the MACD line against its signal.
func MACDStatus(macd, signal float64) string {
	switch {
	case macd > signal:
		if macd < 0 {
			return "Golden Cross (Bullish)"
		}
		return "Bullish Momentum"
	case macd < signal:
		if macd > 0 {
			return "Dead Cross (Bearish)"
		}
		return "Bearish Momentum"
	default:
		return "Netral"
	}
}

// BBStatus places price relative to the Bollinger envelope.
func BBStatus(price, upper, lower float64) string {
	switch {
	case price >= upper:
		return "Overbought (Atas BB)"
	case price <= lower:
		return "Oversold (Bawah BB)"
	default:
		return "Dalam Range"
	}
}

// TechScore scores trend, MACD, RSI and ADX around a neutral 50.
func TechScore(trend, macdStatus string, rsi, adx float64) int {
	score := 50
	switch {
	case strings.Contains(trend, "Bullish"):
		score += 20
	case strings.Contains(trend, "Bearish"):
		score -= 20
	}
	switch {
	case strings.Contains(macdStatus, "Golden Cross"):
		score += 10
	case strings.Contains(macdStatus, "Dead Cross"):
		score -= 10
	}
	if rsi > 50 {
		score += 5
	}
	if adx > 25 {
		score += 5
	}
	return score
}

// ProxyBandarScore scores the volume proxy around a neutral 50.
func ProxyBandarScore(status string, volRatio, mfi, obv, obvEMA float64) int {
	score := 50
	switch {
	case strings.Contains(status, "AKUMULASI"):
		score += 30
	case strings.Contains(status, "DISTRIBUSI"):
		score -= 30
	}
	if volRatio > 1.5 {
		score += 10
	}
	if mfi > 50 && obv > obvEMA {
		score += 10
	}
	return score
}

// BlendScore weights technical 40%, proxy bandar 40% and sentiment 20%.
func BlendScore(tech, bandar, sentiment int) int {
	s := float64(tech)*0.4 + float64(bandar)*0.4 + float64(sentiment)*0.2
	return int(math.Max(0, math.Min(100, s)))
}

// VerdictFor maps a blended score to a recommendation.
func VerdictFor(score int) string {
	switch {
	case score >= 75:
		return "STRONG BUY"
	case score >= 60:
		return "BUY / ACCUMULATE"
	case score <= 30:
		return "STRONG SELL"
	case score <= 45:
		return "SELL / AVOID"
	default:
		return "WAIT & SEE"
	}
}
