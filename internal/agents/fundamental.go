package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"stocksignal/internal/models"
)

const fundamentalSystem = "Kamu adalah analis fundamental saham Indonesia yang konservatif. Jawab hanya dengan JSON valid."

// FundamentalAgent judges valuation and news catalysts.
type FundamentalAgent struct {
	BaseAgent
}

// NewFundamentalAgent creates a new fundamental agent.
func NewFundamentalAgent(llm LLMClient, logger zerolog.Logger) *FundamentalAgent {
	return &FundamentalAgent{BaseAgent: NewBaseAgent(NameFundamental, llm, logger)}
}

// Analyze asks for a valuation and catalyst read.
func (a *FundamentalAgent) Analyze(ctx context.Context, req Request) (models.AgentOpinion, error) {
	if req.Snapshot == nil {
		return NeutralOpinion(a.name, nil), fmt.Errorf("fundamental agent: snapshot is required")
	}
	var resp opinionResponse
	if err := a.ask(ctx, fundamentalSystem, FundamentalPrompt(req), &resp); err != nil {
		op := NeutralOpinion(a.name, err)
		op.ValuationStatus = req.Snapshot.Valuation.Status
		return op, err
	}
	op := resp.opinion(a.name)
	if op.ValuationStatus == "" {
		op.ValuationStatus = req.Snapshot.Valuation.Status
	}
	return op, nil
}

// FundamentalPrompt renders the fundamental agent prompt.
func FundamentalPrompt(req Request) string {
	v := req.Snapshot.Valuation
	var sb strings.Builder

	fmt.Fprintf(&sb, "ROLE: Analis Fundamental & Katalis untuk saham %s\n\n", req.Ticker)

	sb.WriteString("[VALUASI]\n")
	fmt.Fprintf(&sb, "- Harga: %.0f\n", req.Snapshot.Price)
	fmt.Fprintf(&sb, "- PER: %s | PBV: %s\n", ratio(v.PER), ratio(v.PBV))
	fmt.Fprintf(&sb, "- ROE: %s | DER: %s\n", ratio(v.ROE), ratio(v.DER))
	fmt.Fprintf(&sb, "- EPS: %s | Pertumbuhan EPS: %s\n", ratio(v.EPS), ratio(v.EPSGrowth))
	fmt.Fprintf(&sb, "- Status Valuasi: %s (sumber %s)\n", v.Status, v.Source)
	fmt.Fprintf(&sb, "- Pemegang Saham Utama: %s\n\n", req.Snapshot.MajorHolder)

	sb.WriteString("[BERITA TERKINI]\n")
	news := strings.TrimSpace(req.News)
	if news == "" {
		news = "Tidak ada berita."
	}
	sb.WriteString(news)
	sb.WriteString("\n")

	sb.WriteString(`
TUGAS:
1. Nilai apakah harga saat ini murah, wajar atau mahal dibanding laba dan aset.
2. Identifikasi katalis positif atau risiko dari berita.
3. Jangan mengarang angka yang tidak tersedia; tulis N/A bila data kosong.

OUTPUT JSON:
{
  "sentiment_score": 0-100,
  "valuation_status": "UNDERVALUED | FAIR | OVERVALUED",
  "analysis": "ringkasan maksimal 120 kata"
}`)
	return sb.String()
}

func ratio(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v)
}
