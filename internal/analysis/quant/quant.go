// Package quant scores broker flow, foreign flow and ATR risk, and blends
// them with the technical score into a final verdict.
package quant

import (
	"fmt"
	"math"
	"sort"

	"stocksignal/internal/models"
)

// Broker codes used to classify the top buyer.
var (
	RetailBrokers        = []string{"YP", "PD", "CC", "NI", "XC", "XL", "KK"}
	InstitutionalBrokers = []string{"BK", "ZP", "AK", "KZ", "RX", "CS", "CG"}
)

const (
	BuyerRetail        = "Retail"
	BuyerInstitutional = "Institusi/Market Maker"
)

// Analyzer holds the broker lists used for classification.
type Analyzer struct {
	retail map[string]bool
	insti  map[string]bool
}

// NewAnalyzer creates an analyzer with the default broker lists.
func NewAnalyzer() *Analyzer {
	a := &Analyzer{retail: make(map[string]bool), insti: make(map[string]bool)}
	for _, b := range RetailBrokers {
		a.retail[b] = true
	}
	for _, b := range InstitutionalBrokers {
		a.insti[b] = true
	}
	return a
}

// IsRetail reports whether broker is a known retail broker.
func (a *Analyzer) IsRetail(broker string) bool {
	return a.retail[broker]
}

// IsInstitutional reports whether broker is a known institutional broker.
func (a *Analyzer) IsInstitutional(broker string) bool {
	return a.insti[broker]
}

// GroupBySide sums volume and averages price per broker for one side,
// sorted by volume descending.
func GroupBySide(tx []models.BrokerTransaction, side models.TradeSide) []models.BrokerStat {
	type agg struct {
		vol    float64
		prices float64
		n      int
	}
	by := make(map[string]*agg)
	var order []string
	for _, t := range tx {
		if t.Side != side {
			continue
		}
		a, ok := by[t.Broker]
		if !ok {
			a = &agg{}
			by[t.Broker] = a
			order = append(order, t.Broker)
		}
		a.vol += t.Volume
		a.prices += t.Price
		a.n++
	}

	stats := make([]models.BrokerStat, 0, len(order))
	for _, b := range order {
		a := by[b]
		stats = append(stats, models.BrokerStat{Broker: b, Volume: a.vol, AvgPrice: a.prices / float64(a.n)})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Volume > stats[j].Volume })
	return stats
}

func head(stats []models.BrokerStat, n int) []models.BrokerStat {
	if len(stats) > n {
		return stats[:n]
	}
	return stats
}

func sumVolume(stats []models.BrokerStat) float64 {
	var v float64
	for _, s := range stats {
		v += s.Volume
	}
	return v
}

func meanPrice(stats []models.BrokerStat) float64 {
	if len(stats) == 0 {
		return 0
	}
	var p float64
	for _, s := range stats {
		p += s.AvgPrice
	}
	return p / float64(len(stats))
}

// AnalyzeBrokerSummary compares the top-3 buyers with the top-3 sellers.
// Score ranges from -50 (heavy distribution) to +50 (institutional accumulation).
func (a *Analyzer) AnalyzeBrokerSummary(tx []models.BrokerTransaction) models.BandarAnalysis {
	if len(tx) == 0 {
		return models.BandarAnalysis{
			Status:    "Neutral",
			Score:     0,
			Summary:   "Data Broker Tidak Tersedia",
			BuyerType: "Unknown",
		}
	}

	buys := GroupBySide(tx, models.SideBuy)
	sells := GroupBySide(tx, models.SideSell)
	topBuys, topSells := head(buys, 3), head(sells, 3)

	buyVol, sellVol := sumVolume(topBuys), sumVolume(topSells)

	topBuyer, topSeller := "N/A", "N/A"
	if len(buys) > 0 {
		topBuyer = buys[0].Broker
	}
	if len(sells) > 0 {
		topSeller = sells[0].Broker
	}

	buyerType := BuyerInstitutional
	if a.IsRetail(topBuyer) {
		buyerType = BuyerRetail
	}

	var ratio float64
	if sellVol > 0 {
		ratio = buyVol / sellVol
	}

	status, score := "Netral", 0
	switch {
	case ratio > 1.5:
		if buyerType == BuyerInstitutional {
			status, score = "BIG ACCUMULATION (Institusi)", 50
		} else {
			status, score = "Akumulasi Retail (Hati-hati)", 20
		}
	case ratio > 1.1:
		status, score = "Akumulasi Ringan", 10
	case ratio < 0.6:
		status, score = "BIG DISTRIBUTION", -50
	case ratio < 0.9:
		status, score = "Distribusi Ringan", -20
	}

	return models.BandarAnalysis{
		Status:       status,
		Score:        score,
		Summary:      fmt.Sprintf("%s. Buyer Utama: %s (%s).", status, topBuyer, buyerType),
		TopBuyer:     topBuyer,
		TopSeller:    topSeller,
		BuyerType:    buyerType,
		NetVolRatio:  ratio,
		AvgPriceDiff: meanPrice(topBuys) - meanPrice(topSells),
		TopBuyers:    topBuys,
		TopSellers:   topSells,
	}
}

// AnalyzeForeignFlow scores net foreign buying over 1, 5 and 20 sessions.
// days must be ordered oldest first.
func AnalyzeForeignFlow(days []models.ForeignFlowDay) models.ForeignAnalysis {
	if len(days) == 0 {
		return models.ForeignAnalysis{Status: "Unknown"}
	}

	sumLast := func(n int) float64 {
		start := len(days) - n
		if start < 0 {
			start = 0
		}
		var s float64
		for _, d := range days[start:] {
			s += d.NetBuy
		}
		return s
	}

	fa := models.ForeignAnalysis{
		Status: "Netral",
		Net1D:  days[len(days)-1].NetBuy,
		Net5D:  sumLast(5),
		Net20D: sumLast(20),
	}

	switch {
	case fa.Net1D > 0 && fa.Net5D > 0:
		fa.Status, fa.Score = "Foreign Inflow (Masuk)", 20
		if fa.Net20D > 0 {
			fa.Status, fa.Score = "Strong Foreign Accumulation", 30
		}
	case fa.Net1D < 0 && fa.Net5D < 0:
		fa.Status, fa.Score = "Foreign Outflow (Keluar)", -20
	}
	return fa
}

// Risk methods for DynamicRisk.
const (
	RiskConservative = "conservative"
	RiskAggressive   = "aggressive"
)

// DynamicRisk places stop and target at ATR multiples from entry.
// Conservative uses 2x/3x ATR, anything else 1.5x/2.5x.
func DynamicRisk(entry, atr float64, method string) models.RiskPlan {
	slMult, tpMult := 1.5, 2.5
	if method == RiskConservative {
		slMult, tpMult = 2.0, 3.0
	} else {
		method = RiskAggressive
	}

	sl := entry - slMult*atr
	tp := entry + tpMult*atr

	var riskPct float64
	if entry != 0 {
		riskPct = math.Round((entry-sl)/entry*100*100) / 100
	}

	return models.RiskPlan{
		Method:      method,
		Entry:       entry,
		StopLoss:    int(sl),
		TakeProfit:  int(tp),
		RiskPercent: riskPct,
		RiskReward:  fmt.Sprintf("1:%.1f", tpMult/slMult),
	}
}

// Verdict signals.
const (
	SignalStrongBuy  = "STRONG BUY"
	SignalBuy        = "BUY / ACCUMULATE"
	SignalWait       = "WAIT & SEE"
	SignalSell       = "SELL / AVOID"
	SignalStrongSell = "STRONG SELL"
)

// FinalVerdict blends technical (40%), bandar (30%), foreign (15%) and
// sentiment (15%) into a 0..100 score. The bandar score (-50..50) and
// foreign score (-20..30) are first normalised onto 0..100.
func FinalVerdict(tech, bandar, foreign, sentiment int) models.Verdict {
	normBandar := float64(bandar + 50)
	normForeign := 50 + float64(foreign)*1.5

	techC := float64(tech) * 0.40
	bandarC := normBandar * 0.30
	foreignC := normForeign * 0.15
	sentimentC := float64(sentiment) * 0.15

	score := clamp(techC+bandarC+foreignC+sentimentC, 0, 100)

	signal := SignalWait
	switch {
	case score >= 80:
		signal = SignalStrongBuy
	case score >= 60:
		signal = SignalBuy
	case score <= 30:
		signal = SignalStrongSell
	case score <= 45:
		signal = SignalSell
	}

	return models.Verdict{
		Score:  int(score),
		Signal: signal,
		Details: map[string]float64{
			"technical_contribution": techC,
			"bandar_contribution":    bandarC,
			"foreign_contribution":   foreignC,
			"sentiment_contribution": sentimentC,
		},
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
