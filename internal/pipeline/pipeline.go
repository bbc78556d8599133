// Package pipeline runs one ticker through fetch, analysis, narration,
// charting and caching, and dispatches the finished report.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"stocksignal/internal/agents"
	"stocksignal/internal/analysis/indicators"
	"stocksignal/internal/analysis/quant"
	"stocksignal/internal/analysis/technical"
	"stocksignal/internal/chart"
	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/logging"
	"stocksignal/internal/market"
	"stocksignal/internal/metrics"
	"stocksignal/internal/models"
	"stocksignal/internal/news"
	"stocksignal/internal/report"
	"stocksignal/internal/security"
	"stocksignal/internal/store"
	"stocksignal/pkg/utils"
)

// Stage names used in logs and metrics.
const (
	StageCache     = "cache"
	StageFetch     = "fetch"
	StageTechnical = "technical"
	StageFlow      = "flow"
	StageNews      = "news"
	StageCouncil   = "council"
	StageChart     = "chart"
	StageSave      = "save"
	StageDispatch  = "dispatch"
)

// sellerHistoryDays is how many earlier sessions are scanned for the top
// seller's position.
const sellerHistoryDays = 5

// anyAge disables the freshness check when reading back a stored report.
const anyAge = 10 * 365 * 24 * time.Hour

// ProgressFunc receives the completed fraction (0..1) and a status line.
type ProgressFunc func(progress float64, message string)

// MarketFetcher loads prices and fundamentals.
type MarketFetcher interface {
	Fetch(ctx context.Context, ticker string, tf models.Timeframe) (*market.Data, error)
}

// FlowSource provides broker summaries and foreign flow.
type FlowSource interface {
	Enabled() bool
	BrokerSummary(ctx context.Context, ticker string, date time.Time) ([]models.BrokerTransaction, error)
	ForeignFlow(ctx context.Context, ticker string) ([]models.ForeignFlowDay, error)
}

// NewsSource returns the news block for a ticker.
type NewsSource interface {
	Fetch(ctx context.Context, ticker string) news.Result
}

// CouncilRunner asks the narration agents for their opinions.
type CouncilRunner interface {
	Run(ctx context.Context, req agents.Request) models.Council
}

// ChartRenderer draws the report chart.
type ChartRenderer interface {
	Render(ticker string, candles []models.Candle, set *indicators.Set) (string, error)
}

// Dispatcher delivers a report to a recipient.
type Dispatcher interface {
	SendReport(ctx context.Context, r *models.Report, recipient string) error
}

// Deps are the collaborators of a Controller. Flow, News, Chart and
// Dispatcher may be nil.
type Deps struct {
	Store      store.DataStore
	Cache      store.ReportCache
	Market     MarketFetcher
	Technical  *technical.Analyzer
	Quant      *quant.Analyzer
	Flow       FlowSource
	News       NewsSource
	Council    CouncilRunner
	Chart      ChartRenderer
	Dispatcher Dispatcher
	Metrics    *metrics.Recorder
}

// Settings tune a Controller.
type Settings struct {
	CacheTTL         time.Duration
	RiskMethod       string
	DefaultPhone     string
	DeleteChartAfter bool
}

// Options select how one analysis runs.
type Options struct {
	Timeframe models.Timeframe
	NoCache   bool
}

// Controller orchestrates the report pipeline.
type Controller struct {
	deps     Deps
	settings Settings
	logger   zerolog.Logger
	now      func() time.Time
}

// NewController creates a controller. When deps.Cache is nil the store
// doubles as the report cache.
func NewController(deps Deps, settings Settings, logger zerolog.Logger) *Controller {
	if deps.Cache == nil {
		deps.Cache = deps.Store
	}
	if deps.Quant == nil {
		deps.Quant = quant.NewAnalyzer()
	}
	if deps.Technical == nil {
		deps.Technical = technical.NewAnalyzer(nil, 0)
	}
	if settings.CacheTTL <= 0 {
		settings.CacheTTL = store.DefaultCacheValidity
	}
	if settings.RiskMethod == "" {
		settings.RiskMethod = quant.RiskConservative
	}
	return &Controller{
		deps:     deps,
		settings: settings,
		logger:   logger.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
	}
}

// RunAnalysis produces a report for ticker, serving a fresh cached report
// unless opts.NoCache is set.
func (c *Controller) RunAnalysis(ctx context.Context, ticker string, opts Options, progress ProgressFunc) (rep *models.Report, err error) {
	if progress == nil {
		progress = func(float64, string) {}
	}
	ticker, err = security.ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	if opts.Timeframe == "" {
		opts.Timeframe = models.TimeframeDaily
	}

	logger := logging.WithTicker(c.logger, ticker)
	ctx = logging.WithLogger(ctx, logger)
	defer func() {
		score := 0
		if rep != nil {
			score = rep.Score()
		}
		c.deps.Metrics.RecordReport(ticker, score, err)
	}()

	c.step(logger, ticker, StageCache, 0.1, progress, fmt.Sprintf("🔵 Memulai Deep Dive untuk %s...", ticker))

	if c.deps.Store != nil {
		if err := c.deps.Store.AddHistory(ctx, ticker); err != nil {
			logger.Warn().Err(err).Msg("Failed to record history")
		}
	}

	if !opts.NoCache {
		if cached := c.cached(ctx, ticker); cached != nil {
			progress(1.0, "⚡ Menggunakan Data Cache (Hemat Token)...")
			return cached, nil
		}
	}

	// Market data and technicals.
	c.step(logger, ticker, StageFetch, 0.3, progress, "📊 Menjalankan Analisa Teknikal...")
	start := time.Now()
	data, err := c.deps.Market.Fetch(ctx, ticker, opts.Timeframe)
	c.deps.Metrics.ObserveStage(StageFetch, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetching market data: %w", err)
	}

	start = time.Now()
	snap, set, err := c.deps.Technical.Analyze(ctx, technical.Input{
		Ticker:      data.Symbol,
		Timeframe:   opts.Timeframe,
		Candles:     data.Candles,
		Valuation:   data.Valuation,
		MajorHolder: data.MajorHolder,
		Overrides:   overrides(data.Overrides),
	})
	c.deps.Metrics.ObserveStage(StageTechnical, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("technical analysis: %w", err)
	}
	stageLogger := logging.WithStage(logger, StageTechnical)
	stageLogger.Debug().
		Strs("indicators", set.Keys()).
		Str("verdict", snap.Verdict).
		Msg("Indicators calculated")

	rep = &models.Report{
		ID:        uuid.NewString(),
		Ticker:    data.Symbol,
		CreatedAt: c.now().UTC(),
		Technical: snap,
	}
	risk := quant.DynamicRisk(snap.Price, snap.ATR, c.settings.RiskMethod)
	rep.Risk = &risk

	// Broker and foreign flow.
	start = time.Now()
	bandarCtx := c.flow(ctx, logger, rep)
	c.deps.Metrics.ObserveStage(StageFlow, time.Since(start))

	// News.
	c.step(logger, ticker, StageNews, 0.5, progress, "🌍 Mengambil Berita Real-Time...")
	if c.deps.News != nil {
		start = time.Now()
		res := c.deps.News.Fetch(ctx, data.Symbol)
		c.deps.Metrics.ObserveStage(StageNews, time.Since(start))
		rep.News = res.Text
		rep.NewsItems = res.Items
		if !res.HasItems() {
			stageLogger := logging.WithStage(logger, StageNews)
			stageLogger.Info().Str("reason", res.Text).Msg("No relevant news")
		}
	}

	// Narration and verdict.
	c.step(logger, ticker, StageCouncil, 0.7, progress, "🧠 Melakukan Riset AI...")
	foreignScore := 0
	if rep.Foreign != nil {
		foreignScore = rep.Foreign.Score
	}
	preVerdict := quant.FinalVerdict(snap.TechScore, bandarScore(rep), foreignScore, agents.NeutralScore)
	req := agents.Request{
		Ticker:         data.Symbol,
		Snapshot:       snap,
		News:           rep.News,
		Bandar:         bandarCtx,
		BandarAnalysis: rep.Bandar,
		Foreign:        rep.Foreign,
		Risk:           rep.Risk,
		Verdict:        &preVerdict,
	}
	if c.deps.Council != nil {
		start = time.Now()
		council := c.deps.Council.Run(ctx, req)
		c.deps.Metrics.ObserveStage(StageCouncil, time.Since(start))
		rep.Council = &council
	}
	sentiment := agents.NeutralScore
	if rep.Council != nil {
		sentiment = rep.Council.Technical.SentimentScore
	}
	verdict := quant.FinalVerdict(snap.TechScore, bandarScore(rep), foreignScore, sentiment)
	rep.Verdict = &verdict

	// Chart.
	c.step(logger, ticker, StageChart, 0.8, progress, "📈 Membuat Chart...")
	if c.deps.Chart != nil {
		start = time.Now()
		path, err := c.deps.Chart.Render(data.Symbol, data.Candles, set)
		c.deps.Metrics.ObserveStage(StageChart, time.Since(start))
		if err != nil {
			stageLogger := logging.WithStage(logger, StageChart)
			stageLogger.Warn().Err(err).Msg("Chart rendering failed")
		} else {
			rep.ChartPath = path
		}
	}

	rep.AIAnalysis = report.ComposeAIAnalysis(rep.Council)
	rep.Message = report.FormatMessage(rep)

	// Save.
	if c.deps.Cache != nil {
		start = time.Now()
		if err := c.deps.Cache.SaveAnalysis(ctx, rep); err != nil {
			stageLogger := logging.WithStage(logger, StageSave)
			stageLogger.Warn().Err(err).Msg("Failed to cache analysis")
		}
		c.deps.Metrics.ObserveStage(StageSave, time.Since(start))
	}

	logging.LogVerdict(logger, rep.Ticker, report.VerdictLabel(rep), rep.Score())
	progress(1.0, "✅ Analisa Selesai.")
	return rep, nil
}

// SendReport dispatches a report to phone, or to the default phone when
// empty. The chart is removed afterwards when configured.
func (c *Controller) SendReport(ctx context.Context, rep *models.Report, phone string) error {
	if rep == nil {
		return apperrors.NewValidationError("report", nil, "report is required")
	}
	if phone == "" {
		phone = c.settings.DefaultPhone
	}
	phone, err := security.ValidatePhone(phone)
	if err != nil {
		return err
	}
	if c.deps.Dispatcher == nil {
		return fmt.Errorf("no dispatcher configured")
	}

	start := time.Now()
	err = c.deps.Dispatcher.SendReport(ctx, rep, phone)
	c.deps.Metrics.ObserveStage(StageDispatch, time.Since(start))
	c.deps.Metrics.RecordBridgeSend(err)
	if err != nil {
		return fmt.Errorf("sending report: %w", err)
	}

	if c.settings.DeleteChartAfter && rep.ChartPath != "" {
		if err := chart.Remove(rep.ChartPath); err != nil {
			c.logger.Warn().Err(err).Str("path", rep.ChartPath).Msg("⚠️ Gagal menghapus chart")
		} else {
			c.logger.Debug().Str("path", rep.ChartPath).Msg("Chart removed")
			rep.ChartPath = ""
		}
	}
	return nil
}

// Report returns the newest cached report of ticker regardless of age.
func (c *Controller) Report(ctx context.Context, ticker string) (*models.Report, error) {
	ticker, err := security.ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	if c.deps.Cache == nil {
		return nil, apperrors.ErrCacheMiss
	}
	var last error
	for _, candidate := range market.CandidateTickers(ticker) {
		rep, err := c.deps.Cache.GetCachedAnalysis(ctx, candidate, anyAge)
		if err == nil {
			return rep, nil
		}
		last = err
	}
	return nil, last
}

func (c *Controller) cached(ctx context.Context, ticker string) *models.Report {
	if c.deps.Cache == nil {
		return nil
	}
	for _, candidate := range market.CandidateTickers(ticker) {
		rep, err := c.deps.Cache.GetCachedAnalysis(ctx, candidate, c.settings.CacheTTL)
		if err != nil {
			if !apperrors.Is(err, apperrors.ErrCacheMiss) {
				c.logger.Warn().Err(err).Msg("Cache lookup failed")
			}
			continue
		}
		c.deps.Metrics.RecordCache(true)
		rep.FromCache = true
		if rep.ChartPath != "" {
			if _, err := os.Stat(rep.ChartPath); err != nil {
				rep.ChartPath = ""
			}
		}
		return rep
	}
	c.deps.Metrics.RecordCache(false)
	return nil
}

// flow fills the bandar and foreign sections. Failures only reduce the
// report; they never abort it.
func (c *Controller) flow(ctx context.Context, logger zerolog.Logger, rep *models.Report) *quant.BandarContext {
	if c.deps.Flow == nil || !c.deps.Flow.Enabled() {
		return nil
	}

	day := utils.LastTradingDay(c.now())
	tx, err := c.deps.Flow.BrokerSummary(ctx, rep.Ticker, day)
	if err != nil {
		logger.Debug().Err(err).Msg("Broker summary unavailable")
	}

	var bandarCtx *quant.BandarContext
	if len(tx) > 0 {
		ba := c.deps.Quant.AnalyzeBrokerSummary(tx)
		rep.Bandar = &ba

		p := pool.NewWithResults[[]models.BrokerTransaction]().WithMaxGoroutines(sellerHistoryDays)
		for _, d := range utils.PreviousTradingDays(day, sellerHistoryDays) {
			p.Go(func() []models.BrokerTransaction {
				hist, err := c.deps.Flow.BrokerSummary(ctx, rep.Ticker, d)
				if err != nil {
					logger.Debug().Err(err).Time("date", d).Msg("Seller history unavailable")
				}
				return hist
			})
		}
		var history [][]models.BrokerTransaction
		for _, h := range p.Wait() {
			if len(h) > 0 {
				history = append(history, h)
			}
		}
		bc := c.deps.Quant.BuildBandarContext(ba, history, rep.Technical)
		bandarCtx = &bc
	}

	days, err := c.deps.Flow.ForeignFlow(ctx, rep.Ticker)
	if err != nil {
		logger.Debug().Err(err).Msg("Foreign flow unavailable")
	}
	if len(days) > 0 {
		fa := quant.AnalyzeForeignFlow(days)
		rep.Foreign = &fa
	}
	return bandarCtx
}

func (c *Controller) step(logger zerolog.Logger, ticker, stage string, fraction float64, progress ProgressFunc, message string) {
	logging.LogStage(logger, ticker, stage, fraction)
	progress(fraction, message)
}

// bandarScore returns the -50..50 bandar score, falling back to the volume
// proxy when no broker summary exists.
func bandarScore(rep *models.Report) int {
	if rep.Bandar != nil {
		return rep.Bandar.Score
	}
	if rep.Technical == nil {
		return 0
	}
	s := rep.Technical.BandarScore - 50
	if s > 50 {
		s = 50
	}
	if s < -50 {
		s = -50
	}
	return s
}

func overrides(v *market.IndicatorValues) *technical.Overrides {
	if v == nil {
		return nil
	}
	return &technical.Overrides{RSI: v.RSI, EMA20: v.EMA20, EMA50: v.EMA50}
}
