package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"stocksignal/internal/models"
)

const cioSystem = "Kamu adalah Chief Investment Officer sebuah fund saham Indonesia. Jawab hanya dengan JSON valid."

// CIOAgent fuses the council opinions with the quantitative verdict.
type CIOAgent struct {
	BaseAgent
}

// NewCIOAgent creates a new chief investment agent.
func NewCIOAgent(llm LLMClient, logger zerolog.Logger) *CIOAgent {
	return &CIOAgent{BaseAgent: NewBaseAgent(NameCIO, llm, logger)}
}

type cioResponse struct {
	FinalScore        looseInt    `json:"final_score"`
	RecommendedAction looseString `json:"recommended_action"`
	PrimaryStrategy   looseString `json:"primary_strategy"`
	AllocationSize    looseString `json:"allocation_size"`
	FinalReasoning    looseString `json:"final_reasoning"`
}

// Decide returns the final decision. When the model cannot be used the
// rule based decision is returned together with the error.
func (a *CIOAgent) Decide(ctx context.Context, req Request, council models.Council) (*models.CIODecision, error) {
	var resp cioResponse
	if err := a.ask(ctx, cioSystem, CIOPrompt(req, council), &resp); err != nil {
		return RuleDecision(req, council), err
	}

	d := &models.CIODecision{
		FinalScore:        ClampScore(int(resp.FinalScore)),
		RecommendedAction: strings.ToUpper(strings.TrimSpace(string(resp.RecommendedAction))),
		PrimaryStrategy:   strings.TrimSpace(string(resp.PrimaryStrategy)),
		AllocationSize:    strings.TrimSpace(string(resp.AllocationSize)),
		FinalReasoning:    strings.TrimSpace(string(resp.FinalReasoning)),
	}
	fallback := RuleDecision(req, council)
	if d.RecommendedAction == "" {
		d.RecommendedAction = fallback.RecommendedAction
	}
	if d.PrimaryStrategy == "" {
		d.PrimaryStrategy = fallback.PrimaryStrategy
	}
	if d.AllocationSize == "" {
		d.AllocationSize = fallback.AllocationSize
	}
	return d, nil
}

// RuleDecision fuses the council without a model: the quantitative verdict
// score when present, else a weighted mean of the three opinions.
func RuleDecision(req Request, council models.Council) *models.CIODecision {
	score := 0
	if req.Verdict != nil {
		score = req.Verdict.Score
	} else {
		score = int(0.4*float64(council.Technical.SentimentScore) +
			0.35*float64(council.Bandar.SentimentScore) +
			0.25*float64(council.Fundamental.SentimentScore) + 0.5)
	}
	score = ClampScore(score)

	d := &models.CIODecision{
		FinalScore:      score,
		PrimaryStrategy: "WAIT_AND_SEE",
	}
	if council.Technical.Action != "" {
		d.PrimaryStrategy = council.Technical.Action
	}

	switch {
	case score >= 75:
		d.RecommendedAction = "BUY"
		d.AllocationSize = "Full (100%)"
	case score >= 60:
		d.RecommendedAction = "ACCUMULATE"
		d.AllocationSize = "Half (50%)"
	case score <= 30:
		d.RecommendedAction = "SELL"
		d.AllocationSize = "0%"
		d.PrimaryStrategy = "AVOID"
	case score <= 45:
		d.RecommendedAction = "AVOID"
		d.AllocationSize = "0%"
		d.PrimaryStrategy = "AVOID"
	default:
		d.RecommendedAction = "WAIT"
		d.AllocationSize = "Small (25%)"
	}
	d.FinalReasoning = fmt.Sprintf("Skor gabungan %d dari teknikal %d, bandar %d, fundamental %d.",
		score, council.Technical.SentimentScore, council.Bandar.SentimentScore, council.Fundamental.SentimentScore)
	return d
}

// CIOPrompt renders the chief investment agent prompt.
func CIOPrompt(req Request, council models.Council) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "ROLE: Chief Investment Officer. Putuskan eksekusi final untuk saham %s.\n\n", req.Ticker)

	sb.WriteString("[LAPORAN TIM]\n")
	writeOpinion(&sb, "Technical Analyst", council.Technical)
	writeOpinion(&sb, "Bandarmology Investigator", council.Bandar)
	writeOpinion(&sb, "Fundamental Analyst", council.Fundamental)

	sb.WriteString("\n[MODEL KUANTITATIF]\n")
	if req.Verdict != nil {
		fmt.Fprintf(&sb, "- Skor Kuant: %d (%s)\n", req.Verdict.Score, req.Verdict.Signal)
	} else {
		sb.WriteString("- Skor Kuant: N/A\n")
	}
	if req.Risk != nil {
		fmt.Fprintf(&sb, "- Risk Plan (%s): SL %d | TP %d | Risk %.2f%% | R:R %s\n",
			req.Risk.Method, req.Risk.StopLoss, req.Risk.TakeProfit, req.Risk.RiskPercent, req.Risk.RiskReward)
	}
	if req.Foreign != nil {
		fmt.Fprintf(&sb, "- Foreign Flow: %s\n", req.Foreign.Status)
	}

	sb.WriteString(`
ATURAN:
1. Jika bandar DISTRIBUSI atau CHURNING, jangan rekomendasikan BUY meski teknikal bagus.
2. Jika teknikal dan bandar sejalan, naikkan keyakinan dan alokasi.
3. Alokasi dinyatakan sebagai ukuran posisi (misal "Half (50%)").

OUTPUT JSON:
{
  "final_score": 0-100,
  "recommended_action": "BUY | ACCUMULATE | WAIT | AVOID | SELL",
  "primary_strategy": "BUY_ON_WEAKNESS | BUY_ON_BREAKOUT | WAIT_AND_SEE | AVOID",
  "allocation_size": "...",
  "final_reasoning": "maksimal 80 kata"
}`)
	return sb.String()
}

func writeOpinion(sb *strings.Builder, role string, op models.AgentOpinion) {
	fmt.Fprintf(sb, "- %s: skor %d", role, op.SentimentScore)
	if op.Action != "" {
		fmt.Fprintf(sb, ", aksi %s", op.Action)
	}
	if op.Status != "" {
		fmt.Fprintf(sb, ", status %s", op.Status)
	}
	if op.ValuationStatus != "" {
		fmt.Fprintf(sb, ", valuasi %s", op.ValuationStatus)
	}
	analysis := op.Analysis
	if analysis == "" {
		analysis = "-"
	}
	fmt.Fprintf(sb, ". %s\n", analysis)
}
