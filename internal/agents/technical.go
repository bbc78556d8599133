package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"stocksignal/internal/analysis/technical"
	"stocksignal/internal/models"
)

const technicalSystem = "Kamu adalah Senior Trader dan Risk Manager di pasar saham Indonesia. Jawab hanya dengan JSON valid."

// TechnicalAgent turns the indicator snapshot into a trading plan.
type TechnicalAgent struct {
	BaseAgent
}

// NewTechnicalAgent creates a new technical analysis agent.
func NewTechnicalAgent(llm LLMClient, logger zerolog.Logger) *TechnicalAgent {
	return &TechnicalAgent{BaseAgent: NewBaseAgent(NameTechnical, llm, logger)}
}

// Analyze asks for a trading plan grounded on the snapshot and news.
func (a *TechnicalAgent) Analyze(ctx context.Context, req Request) (models.AgentOpinion, error) {
	if req.Snapshot == nil {
		return NeutralOpinion(a.name, nil), fmt.Errorf("technical agent: snapshot is required")
	}
	var resp opinionResponse
	if err := a.ask(ctx, technicalSystem, TechnicalPrompt(req), &resp); err != nil {
		return NeutralOpinion(a.name, err), err
	}
	return resp.opinion(a.name), nil
}

// TechnicalPrompt renders the technical agent prompt.
func TechnicalPrompt(req Request) string {
	s := req.Snapshot
	var sb strings.Builder

	fmt.Fprintf(&sb, "Bertindaklah sebagai Senior Trader & Risk Manager. Buatkan TRADING PLAN untuk saham %s.\n\n", req.Ticker)

	sb.WriteString("DATA PASAR:\n")
	fmt.Fprintf(&sb, "- Harga Terakhir: %.0f (%+.2f%%)\n", s.Price, s.ChangePct)
	fmt.Fprintf(&sb, "- Tren: %s (ADX %.1f: %s)\n", s.Trend, s.ADX, adxHint(s.ADX))
	if s.WeeklyTrend != "" {
		fmt.Fprintf(&sb, "- Tren Mingguan: %s\n", s.WeeklyTrend)
	}
	fmt.Fprintf(&sb, "- Volume: %s (Rasio %.2fx rata-rata 20 hari)\n", s.VolStatus, s.VolRatio)
	fmt.Fprintf(&sb, "- Smart Money: %s, %s\n", s.BandarStatus, s.BandarAction)
	fmt.Fprintf(&sb, "- RSI: %.1f | MFI: %.1f | MACD: %s\n", s.RSI, s.MFI, s.MACDStatus)
	fmt.Fprintf(&sb, "- Bollinger: %s\n", s.BBStatus)
	fmt.Fprintf(&sb, "- ATR: %.0f (SL teknikal %.0f, TP teknikal %.0f)\n", s.ATR, s.StopLoss, s.Target)
	fmt.Fprintf(&sb, "- Support: %.0f | Resistance: %.0f | Pivot: %.0f\n", s.Support, s.Resistance, s.Pivots.P)
	fmt.Fprintf(&sb, "- Pola Candle: %s\n", s.CandlePattern)

	sb.WriteString("\nDATA HISTORIS SINGKAT:\n")
	sb.WriteString(technical.FormatHistory(s.RecentHistory))

	sb.WriteString("\nBERITA & SENTIMEN:\n")
	news := strings.TrimSpace(req.News)
	if news == "" {
		news = "Tidak ada berita."
	}
	sb.WriteString(news)
	sb.WriteString("\n")

	sb.WriteString(`
TUGAS ANALISIS:
1. Tentukan apakah momentum saat ini layak dieksekusi atau harus menunggu.
2. Validasi tren dengan volume: kenaikan tanpa volume adalah jebakan.
3. Susun area beli, stop loss dan target profit yang realistis berbasis ATR dan support/resistance.

OUTPUT JSON:
{
  "sentiment_score": 0-100,
  "analysis": "ringkasan maksimal 150 kata",
  "action": "BUY_ON_WEAKNESS | BUY_ON_BREAKOUT | WAIT_AND_SEE | SELL | AVOID",
  "trading_plan": {"buy_area": "...", "stop_loss": "...", "target_profit": "..."}
}`)
	return sb.String()
}

func adxHint(adx float64) string {
	switch {
	case adx > 25:
		return ">25=Strong Trend"
	case adx < 20:
		return "<20=Choppy/Sideways"
	default:
		return "Trend Sedang"
	}
}
