package report

import (
	"fmt"
	"strings"

	"stocksignal/internal/models"
	"stocksignal/pkg/utils"
)

// Headline is the one line summary shown first in the terminal.
func Headline(r *models.Report) string {
	s := r.Technical
	if s == nil {
		return fmt.Sprintf("%s  score %d", r.Ticker, r.Score())
	}
	return fmt.Sprintf("%s  %s (%s)  %s  score %d",
		r.Ticker, utils.FormatRupiah(s.Price), utils.FormatPercent(s.ChangePct), VerdictLabel(r), r.Score())
}

// VerdictLabel returns the CIO action, else the blended verdict.
func VerdictLabel(r *models.Report) string {
	if r.Council != nil && r.Council.CIO != nil && r.Council.CIO.RecommendedAction != "" {
		return r.Council.CIO.RecommendedAction
	}
	if r.Verdict != nil && r.Verdict.Signal != "" {
		return r.Verdict.Signal
	}
	if r.Technical != nil {
		return r.Technical.Verdict
	}
	return "N/A"
}

// FormatTerminal renders a compact plain text view of a report.
func FormatTerminal(r *models.Report) string {
	var sb strings.Builder
	sb.WriteString(Headline(r))
	sb.WriteString("\n")

	if s := r.Technical; s != nil {
		if s.WeeklyTrend != "" {
			fmt.Fprintf(&sb, "Trend   %s | Weekly %s | ADX %.1f (%s)\n", s.Trend, s.WeeklyTrend, s.ADX, s.ADXStrength)
		} else {
			fmt.Fprintf(&sb, "Trend   %s | ADX %.1f (%s)\n", s.Trend, s.ADX, s.ADXStrength)
		}
		fmt.Fprintf(&sb, "Momentum RSI %.1f | MFI %.1f | MACD %s\n", s.RSI, s.MFI, s.MACDStatus)
		fmt.Fprintf(&sb, "Volume  %s (%.2fx) | %s\n", s.VolStatus, s.VolRatio, s.BandarStatus)
		fmt.Fprintf(&sb, "Levels  S %.0f | R %.0f | SL %.0f | TP %.0f\n", s.Support, s.Resistance, s.StopLoss, s.Target)
		if s.Valuation.HasData() {
			fmt.Fprintf(&sb, "Value   PER %.2f | PBV %.2f | %s\n", s.Valuation.PER, s.Valuation.PBV, s.Valuation.Status)
		}
	}
	if r.Bandar != nil {
		fmt.Fprintf(&sb, "Bandar  %s | buyer %s | seller %s\n", r.Bandar.Status, r.Bandar.TopBuyer, r.Bandar.TopSeller)
	}
	if r.Foreign != nil {
		fmt.Fprintf(&sb, "Foreign %s | 5D %s\n", r.Foreign.Status, utils.FormatCompact(r.Foreign.Net5D))
	}
	if r.Risk != nil {
		fmt.Fprintf(&sb, "Risk    %s SL %d TP %d R:R %s\n", r.Risk.Method, r.Risk.StopLoss, r.Risk.TakeProfit, r.Risk.RiskReward)
	}
	if r.Council != nil && r.Council.CIO != nil {
		c := r.Council.CIO
		fmt.Fprintf(&sb, "CIO     %s | %s | %s\n", c.RecommendedAction, c.PrimaryStrategy, c.AllocationSize)
	}
	if r.ChartPath != "" {
		fmt.Fprintf(&sb, "Chart   %s\n", r.ChartPath)
	}
	if r.FromCache {
		sb.WriteString("(cached)\n")
	}
	return sb.String()
}
