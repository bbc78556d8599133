// Package report renders finished analyses for WhatsApp and the terminal.
package report

import (
	"fmt"
	"strings"

	"stocksignal/internal/models"
)

// Footer closes every WhatsApp message.
const Footer = "_Dibuat oleh StockSignal Bot_"

// Disclaimer precedes the footer.
const Disclaimer = "_Disclaimer: Plan ini auto-generated, bukan ajakan jual/beli. DYOR._"

// FormatMessage renders the WhatsApp markdown message of a report.
func FormatMessage(r *models.Report) string {
	s := r.Technical
	if s == nil {
		s = &models.TechnicalSnapshot{}
	}

	trendEmoji := "📉"
	if strings.Contains(s.Trend, "Bullish") {
		trendEmoji = "📈"
	}
	volEmoji := "💤"
	if s.VolRatio > 1.5 {
		volEmoji = "🔥"
	}
	holder := s.MajorHolder
	if holder == "" {
		holder = "N/A"
	}
	candle := s.CandlePattern
	if candle == "" {
		candle = "-"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🚨 *STOCK INTELLIGENCE: $%s*\n\n", r.Ticker)

	sb.WriteString("📊 *DATA TEKNIKAL & VOLUME FLOW:*\n")
	fmt.Fprintf(&sb, "• *Tren:* %s %s\n", s.Trend, trendEmoji)
	if s.WeeklyTrend != "" {
		fmt.Fprintf(&sb, "• *Tren Mingguan:* %s\n", s.WeeklyTrend)
	}
	fmt.Fprintf(&sb, "• *Candle:* %s\n", candle)
	fmt.Fprintf(&sb, "• *MACD:* %s\n", s.MACDStatus)
	fmt.Fprintf(&sb, "• *Volume Flow:* %s\n", s.BandarStatus)
	fmt.Fprintf(&sb, "• *Indikasi:* %s\n", s.BandarAction)
	fmt.Fprintf(&sb, "• *MFI (Money Flow):* %.2f\n", s.MFI)
	fmt.Fprintf(&sb, "• *Holder Utama:* %s\n", holder)
	fmt.Fprintf(&sb, "• *Harga:* %.0f\n", s.Price)
	fmt.Fprintf(&sb, "• *Volume:* %s %s\n", s.VolStatus, volEmoji)
	fmt.Fprintf(&sb, "• *RSI:* %.2f | *ADX:* %.2f\n", s.RSI, s.ADX)
	if s.Valuation.HasData() {
		fmt.Fprintf(&sb, "• *Valuasi:* PER %.2f | PBV %.2f (%s)\n", s.Valuation.PER, s.Valuation.PBV, s.Valuation.Status)
	}

	if news := strings.TrimSpace(r.News); news != "" {
		fmt.Fprintf(&sb, "\n🌍 *SENTIMEN BERITA (Update):*\n%s\n", news)
	}

	fmt.Fprintf(&sb, "\n🤖 *ANALISA AI (Smart Money & News):*\n%s\n", strings.TrimSpace(r.AIAnalysis))

	writeForensics(&sb, r)
	writePlan(&sb, r, s)
	writeCIO(&sb, r)

	sb.WriteString("\n")
	sb.WriteString(Disclaimer)
	sb.WriteString("\n\n")
	sb.WriteString(Footer)
	return sb.String()
}

func writeForensics(sb *strings.Builder, r *models.Report) {
	var op *models.AgentOpinion
	if r.Council != nil && (r.Council.Bandar.Analysis != "" || r.Council.Bandar.Status != "") {
		op = &r.Council.Bandar
	}
	if r.Bandar == nil && r.Foreign == nil && op == nil {
		return
	}

	sb.WriteString("\n🕵️ *FORENSIK BANDAR:*\n")
	if r.Bandar != nil {
		fmt.Fprintf(sb, "• *Broker Summary:* %s (Skor %+d)\n", r.Bandar.Status, r.Bandar.Score)
		fmt.Fprintf(sb, "• *Top Buyer:* %s | *Top Seller:* %s\n", r.Bandar.TopBuyer, r.Bandar.TopSeller)
	}
	if r.Foreign != nil {
		fmt.Fprintf(sb, "• *Foreign Flow:* %s\n", r.Foreign.Status)
	}
	if op != nil {
		if op.Status != "" {
			fmt.Fprintf(sb, "• *Status:* %s\n", op.Status)
		}
		if op.Analysis != "" {
			fmt.Fprintf(sb, "• *Temuan:* %s\n", op.Analysis)
		}
		if op.Warning != "" {
			fmt.Fprintf(sb, "⚠️ %s\n", op.Warning)
		}
	}
}

func writePlan(sb *strings.Builder, r *models.Report, s *models.TechnicalSnapshot) {
	entry := fmt.Sprintf("%.0f", s.Price)
	tp := fmt.Sprintf("%.0f", s.Target)
	sl := fmt.Sprintf("%.0f", s.StopLoss)
	if r.Council != nil && r.Council.Technical.Plan != nil {
		p := r.Council.Technical.Plan
		entry = orDefault(p.BuyArea, entry)
		tp = orDefault(p.TargetProfit, tp)
		sl = orDefault(p.StopLoss, sl)
	}

	sb.WriteString("\n🎯 *RENCANA TRADING:*\n")
	fmt.Fprintf(sb, "• *Area Entry:* %s\n", entry)
	fmt.Fprintf(sb, "• *Target (TP):* %s\n", tp)
	fmt.Fprintf(sb, "• *Stop Loss (SL):* %s\n", sl)
	if r.Risk != nil {
		fmt.Fprintf(sb, "• *Risk/Reward:* %s (Risk %.2f%%)\n", r.Risk.RiskReward, r.Risk.RiskPercent)
	}
}

func writeCIO(sb *strings.Builder, r *models.Report) {
	if r.Council == nil || r.Council.CIO == nil {
		if r.Verdict != nil {
			fmt.Fprintf(sb, "\n⚖️ *SKOR AKHIR:* %d/100 (%s)\n", r.Verdict.Score, r.Verdict.Signal)
		}
		return
	}
	c := r.Council.CIO
	sb.WriteString("\n🏛️ *CIO NOTE:*\n")
	fmt.Fprintf(sb, "• *VERDICT: %s* (Skor %d/100)\n", c.RecommendedAction, c.FinalScore)
	fmt.Fprintf(sb, "• STRATEGY: %s | Alloc: %s\n", c.PrimaryStrategy, c.AllocationSize)
	if c.FinalReasoning != "" {
		fmt.Fprintf(sb, "_%s_\n", c.FinalReasoning)
	}
}

// ComposeAIAnalysis merges the council opinions into the AI section text.
func ComposeAIAnalysis(c *models.Council) string {
	if c == nil {
		return "Analisa AI tidak tersedia."
	}
	var parts []string
	if t := c.Technical; t.Analysis != "" {
		line := "*Teknikal:* " + t.Analysis
		if t.Action != "" {
			line += fmt.Sprintf(" [%s]", t.Action)
		}
		parts = append(parts, line)
	}
	if f := c.Fundamental; f.Analysis != "" {
		line := "*Fundamental:* " + f.Analysis
		if f.ValuationStatus != "" {
			line += fmt.Sprintf(" [%s]", f.ValuationStatus)
		}
		parts = append(parts, line)
	}
	if len(parts) == 0 {
		return "Analisa AI tidak tersedia."
	}
	return strings.Join(parts, "\n\n")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
