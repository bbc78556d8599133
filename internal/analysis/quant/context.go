package quant

import (
	"fmt"
	"strings"

	"stocksignal/internal/models"
)

// BandarContext is the forensic evidence handed to the bandarmology agent.
type BandarContext struct {
	TodaySummary   string  `json:"today_summary"`
	TopBuyer       string  `json:"top_buyer"`
	TopSeller      string  `json:"top_seller"`
	SellerHistNet  string  `json:"seller_hist_net"`
	SellerAvgPrice float64 `json:"seller_avg_price"`
	Top1BuyPrice   float64 `json:"top1_buy_price"`
	VWAP           float64 `json:"vwap"`
	PriceChange    float64 `json:"price_change"`
	Close          float64 `json:"close"`
}

// BuildBandarContext summarises today's broker flow and the top seller's
// net position over the previous sessions in history.
func (a *Analyzer) BuildBandarContext(ba models.BandarAnalysis, history [][]models.BrokerTransaction, snap *models.TechnicalSnapshot) BandarContext {
	bc := BandarContext{
		TodaySummary:  "N/A",
		TopBuyer:      ba.TopBuyer,
		TopSeller:     ba.TopSeller,
		SellerHistNet: "N/A",
	}
	if snap != nil {
		bc.VWAP = snap.VWAP
		bc.PriceChange = snap.ChangePct
		bc.Close = snap.Price
	}
	if len(ba.TopSellers) > 0 {
		bc.SellerAvgPrice = ba.TopSellers[0].AvgPrice
	}
	if len(ba.TopBuyers) > 0 {
		bc.Top1BuyPrice = ba.TopBuyers[0].AvgPrice
	}

	if len(ba.TopBuyers) > 0 || len(ba.TopSellers) > 0 {
		var sb strings.Builder
		sb.WriteString(ba.Summary)
		sb.WriteString("\nTop Buyer: ")
		sb.WriteString(a.formatStats(ba.TopBuyers))
		sb.WriteString("\nTop Seller: ")
		sb.WriteString(a.formatStats(ba.TopSellers))
		sb.WriteString(fmt.Sprintf("\nRasio Volume Top3 Buy/Sell: %.2fx", ba.NetVolRatio))
		bc.TodaySummary = sb.String()
	}

	if ba.TopSeller != "" && ba.TopSeller != "N/A" && len(history) > 0 {
		var net float64
		for _, day := range history {
			for _, t := range day {
				if t.Broker != ba.TopSeller {
					continue
				}
				if t.Side == models.SideBuy {
					net += t.Volume
				} else {
					net -= t.Volume
				}
			}
		}
		label := "Net Buy"
		if net < 0 {
			label = "Net Sell"
		}
		bc.SellerHistNet = fmt.Sprintf("%s %.0f lot (%d hari sebelumnya)", label, abs(net), len(history))
	}

	return bc
}

func (a *Analyzer) formatStats(stats []models.BrokerStat) string {
	if len(stats) == 0 {
		return "-"
	}
	parts := make([]string, len(stats))
	for i, s := range stats {
		tag := ""
		switch {
		case a.IsRetail(s.Broker):
			tag = " [Ritel]"
		case a.IsInstitutional(s.Broker):
			tag = " [Institusi]"
		}
		parts[i] = fmt.Sprintf("%s%s %.0f lot @%.0f", s.Broker, tag, s.Volume, s.AvgPrice)
	}
	return strings.Join(parts, " | ")
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
