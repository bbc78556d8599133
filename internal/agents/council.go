package agents

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"stocksignal/internal/models"
)

// CallObserver records one agent call.
type CallObserver interface {
	ObserveAgentCall(agent string, d time.Duration, err error)
}

// Council runs the narration agents in parallel and asks the CIO to decide.
type Council struct {
	technical   Agent
	bandar      Agent
	fundamental Agent
	cio         *CIOAgent
	observer    CallObserver
	logger      zerolog.Logger
}

// NewCouncil builds the standard council on one model client. A nil client
// yields neutral opinions and a rule based decision.
func NewCouncil(llm LLMClient, logger zerolog.Logger) *Council {
	return &Council{
		technical:   NewTechnicalAgent(llm, logger),
		bandar:      NewBandarAgent(llm, logger),
		fundamental: NewFundamentalAgent(llm, logger),
		cio:         NewCIOAgent(llm, logger),
		logger:      logger.With().Str("component", "council").Logger(),
	}
}

// WithObserver attaches a call observer.
func (c *Council) WithObserver(o CallObserver) *Council {
	c.observer = o
	return c
}

// Run executes the three narration agents concurrently, then the CIO.
// Agent failures never fail the run; they surface as neutral opinions.
func (c *Council) Run(ctx context.Context, req Request) models.Council {
	var out models.Council

	p := pool.New().WithMaxGoroutines(3)
	p.Go(func() { out.Technical = c.call(ctx, c.technical, req) })
	p.Go(func() { out.Bandar = c.call(ctx, c.bandar, req) })
	p.Go(func() { out.Fundamental = c.call(ctx, c.fundamental, req) })
	p.Wait()

	start := time.Now()
	decision, err := c.cio.Decide(ctx, req, out)
	c.observe(NameCIO, time.Since(start), err)
	if err != nil {
		c.logger.Warn().Err(err).Str("ticker", req.Ticker).Msg("CIO fell back to rule based decision")
	}
	out.CIO = decision
	return out
}

func (c *Council) call(ctx context.Context, a Agent, req Request) models.AgentOpinion {
	start := time.Now()
	op, err := a.Analyze(ctx, req)
	c.observe(a.Name(), time.Since(start), err)
	if err != nil {
		c.logger.Warn().Err(err).Str("agent", a.Name()).Str("ticker", req.Ticker).Msg("Agent failed")
	}
	op.Agent = a.Name()
	return op
}

func (c *Council) observe(agent string, d time.Duration, err error) {
	if c.observer != nil {
		c.observer.ObserveAgentCall(agent, d, err)
	}
}
