package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"stocksignal/internal/analysis/quant"
	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/logging"
	"stocksignal/internal/models"
)

// Agent names.
const (
	NameTechnical   = "technical"
	NameBandar      = "bandarmology"
	NameFundamental = "fundamental"
	NameCIO         = "cio"
)

// NeutralScore is reported when a model cannot be asked or answered badly.
const NeutralScore = 50

// MsgMissingKey is the analysis text of an opinion produced without a key.
const MsgMissingKey = "API Key Missing"

// Agent is one narration voice of the council.
type Agent interface {
	// Name returns the unique name of the agent.
	Name() string
	// Analyze asks the model and returns its parsed opinion.
	Analyze(ctx context.Context, req Request) (models.AgentOpinion, error)
}

// Request contains all data the agents may quote.
type Request struct {
	Ticker   string
	Snapshot *models.TechnicalSnapshot
	News     string
	// Bandar is nil when no broker summary was available.
	Bandar         *quant.BandarContext
	BandarAnalysis *models.BandarAnalysis
	Foreign        *models.ForeignAnalysis
	Risk           *models.RiskPlan
	Verdict        *models.Verdict
}

// BaseAgent provides the model plumbing shared by all agents.
type BaseAgent struct {
	name   string
	llm    LLMClient
	logger zerolog.Logger
}

// NewBaseAgent creates a new base agent with the given name.
func NewBaseAgent(name string, llm LLMClient, logger zerolog.Logger) BaseAgent {
	return BaseAgent{
		name:   name,
		llm:    llm,
		logger: logging.WithAgent(logger, name),
	}
}

// Name returns the agent's name.
func (b *BaseAgent) Name() string {
	return b.name
}

// ask sends the prompt and parses the reply into out.
func (b *BaseAgent) ask(ctx context.Context, system, prompt string, out interface{}) error {
	if b.llm == nil {
		return apperrors.NewAgentError(b.name, "complete", apperrors.ErrMissingAPIKey)
	}
	text, err := b.llm.CompleteWithSystem(ctx, system, prompt)
	if err != nil {
		return apperrors.NewAgentError(b.name, "complete", err)
	}
	b.logger.Debug().Int("chars", len(text)).Msg("Model replied")

	if err := decodeInto(ParseJSON(text), out); err != nil {
		return apperrors.NewAgentError(b.name, "decode", err)
	}
	return nil
}

// opinionResponse is the JSON shape shared by the narration agents.
type opinionResponse struct {
	SentimentScore  looseInt     `json:"sentiment_score"`
	Analysis        looseString  `json:"analysis"`
	Action          looseString  `json:"action"`
	Status          looseString  `json:"status"`
	Warning         looseString  `json:"warning"`
	ValuationStatus looseString  `json:"valuation_status"`
	Plan            *planPayload `json:"trading_plan"`
}

type planPayload struct {
	BuyArea      looseString `json:"buy_area"`
	StopLoss     looseString `json:"stop_loss"`
	TargetProfit looseString `json:"target_profit"`
}

func (r opinionResponse) opinion(agent string) models.AgentOpinion {
	op := models.AgentOpinion{
		Agent:           agent,
		SentimentScore:  ClampScore(int(r.SentimentScore)),
		Analysis:        strings.TrimSpace(string(r.Analysis)),
		Action:          strings.ToUpper(strings.TrimSpace(string(r.Action))),
		Status:          strings.TrimSpace(string(r.Status)),
		Warning:         strings.TrimSpace(string(r.Warning)),
		ValuationStatus: strings.TrimSpace(string(r.ValuationStatus)),
	}
	if r.Plan != nil {
		op.Plan = &models.TradingPlan{
			BuyArea:      string(r.Plan.BuyArea),
			StopLoss:     string(r.Plan.StopLoss),
			TargetProfit: string(r.Plan.TargetProfit),
		}
	}
	return op
}

// NeutralOpinion is the opinion reported when the model could not be used.
func NeutralOpinion(agent string, err error) models.AgentOpinion {
	op := models.AgentOpinion{Agent: agent, SentimentScore: NeutralScore}
	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.ErrMissingAPIKey):
		op.Analysis = MsgMissingKey
	default:
		op.Analysis = fmt.Sprintf("Error: %v", err)
	}
	return op
}

// ClampScore ensures a score is within [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
