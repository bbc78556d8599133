package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"stocksignal/internal/agents"
	"stocksignal/internal/analysis/indicators"
	"stocksignal/internal/analysis/technical"
	"stocksignal/internal/chart"
	"stocksignal/internal/config"
	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/market"
	"stocksignal/internal/metrics"
	"stocksignal/internal/news"
	"stocksignal/internal/notify"
	"stocksignal/internal/performance"
	"stocksignal/internal/pipeline"
	"stocksignal/internal/portfolio"
	"stocksignal/internal/resilience"
	"stocksignal/internal/server"
	"stocksignal/internal/store"
	"stocksignal/internal/stream"
)

// App holds the application dependencies. Services are built on first use
// so that commands like version and config never open the database.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	Store     store.DataStore
	Analyzer  server.Analyzer
	Bridge    server.Bridge
	Portfolio server.PortfolioValuer
	Market    pipeline.MarketFetcher
	Technical *technical.Analyzer
	Breakers  *resilience.Registry
	Health    *resilience.HealthChecker
	Metrics   *metrics.Recorder

	ready   bool
	closers []func() error
}

// ensure builds the services unless they were injected.
func (a *App) ensure(ctx context.Context) error {
	if a.ready {
		return nil
	}
	if err := a.build(ctx); err != nil {
		a.Close()
		return err
	}
	a.ready = true
	return nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	logger := a.Logger

	a.Metrics = metrics.New()
	a.Breakers = resilience.NewRegistry(resilience.DefaultBreakerConfig())
	a.Breakers.OnStateChange(func(name string, from, to resilience.CircuitState) {
		logger.Warn().Str("upstream", name).Str("from", string(from)).Str("to", string(to)).Msg("Circuit state changed")
		a.Metrics.SetBreakerState(name, string(to))
	})

	sqlite, err := store.NewSQLiteStore(cfg.Cache.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	a.Store = sqlite
	a.closers = append(a.closers, sqlite.Close)
	logger.Debug().Str("path", cfg.Cache.DBPath).Msg("SQLite store initialized")

	var cache store.ReportCache
	if cfg.Cache.Backend == "redis" {
		rc, err := store.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB, cfg.Cache.RedisPrefix, cfg.CacheTTL())
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		cache = rc
		a.closers = append(a.closers, rc.Close)
		logger.Debug().Str("addr", cfg.Cache.RedisAddr).Msg("Redis report cache initialized")
	}

	yahoo := market.NewYahooSource(a.Breakers.Get(resilience.UpstreamYahoo), logger)
	goapi := market.NewGoAPIClient(cfg.Credentials.GoAPI.APIKey, logger,
		market.WithGoAPIBreaker(a.Breakers.Get(resilience.UpstreamGoAPI)))
	holders := market.NewHolderSource("", a.Breakers.Get(resilience.UpstreamYahoo), logger)
	fetcher := market.NewFetcher(yahoo, yahoo, goapi, holders, cfg.Analysis.USDIDRRate, logger)
	a.Market = fetcher
	a.Technical = technical.NewAnalyzer(indicators.NewStandardEngine(4), cfg.Analysis.FibLookback)

	var primaryNews news.Provider
	if goapi.Enabled() {
		primaryNews = goapi
	}
	serper := news.NewSerperClient(news.SerperConfig{
		APIKey:   cfg.Credentials.Serper.APIKey,
		Timeout:  cfg.News.Timeout,
		Attempts: cfg.News.Retries,
	}, a.Breakers.Get(resilience.UpstreamSerper), logger)
	newsFetcher := news.NewFetcher(primaryNews, serper, cfg.News.MaxItems, logger)

	var llm agents.LLMClient
	if gemini := agents.NewGeminiClient(agents.GeminiConfig{
		APIKey:      cfg.Credentials.Google.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		JSONMode:    true,
	}, a.Breakers.Get(resilience.UpstreamLLM), logger); gemini != nil {
		llm = gemini
	} else {
		logger.Warn().Msg("GOOGLE_API_KEY not set, council falls back to rule based opinions")
	}
	council := agents.NewCouncil(llm, logger).WithObserver(a.Metrics)

	wa := notify.NewWhatsAppClient(cfg.WhatsApp.ServiceURL, cfg.WhatsApp.Timeout, a.Breakers.Get(resilience.UpstreamWhatsApp), logger)
	a.Bridge = wa
	notifier := notify.NewMultiNotifier(cfg.Notifications,
		notify.NewWhatsAppChannel(wa, notify.NewConsoleChannel(os.Stdout)))

	a.Analyzer = pipeline.NewController(pipeline.Deps{
		Store:      sqlite,
		Cache:      cache,
		Market:     fetcher,
		Technical:  a.Technical,
		Flow:       goapi,
		News:       newsFetcher,
		Council:    council,
		Chart:      chart.NewRenderer(cfg.Analysis.ChartDir, cfg.Analysis.ChartBars, logger),
		Dispatcher: notifier,
		Metrics:    a.Metrics,
	}, pipeline.Settings{
		CacheTTL:         cfg.CacheTTL(),
		RiskMethod:       cfg.Analysis.RiskMethod,
		DefaultPhone:     cfg.WhatsApp.DefaultPhone,
		DeleteChartAfter: cfg.WhatsApp.DeleteChartAfter,
	}, logger)

	a.Portfolio = portfolio.NewValuer(market.NewQuoter(yahoo, logger), 4, logger)

	a.Health = resilience.NewHealthChecker(5*time.Second, a.Breakers)
	a.Health.Register("database", resilience.DatabaseHealthCheck(sqlite.Ping))
	if rc, ok := cache.(*store.RedisCache); ok {
		a.Health.Register("redis", resilience.DatabaseHealthCheck(rc.Ping))
	}
	a.Health.Register("whatsapp", resilience.OptionalHealthCheck(func(ctx context.Context) (string, error) {
		h, err := wa.Health(ctx)
		if err != nil {
			return "", err
		}
		if !h.WhatsAppReady {
			return "", apperrors.ErrBridgeNotReady
		}
		return h.Status, nil
	}))
	a.Health.Register("goapi", resilience.OptionalHealthCheck(func(ctx context.Context) (string, error) {
		if !goapi.Enabled() {
			return "disabled", nil
		}
		if !goapi.CheckConnection(ctx) {
			return "", fmt.Errorf("goapi unreachable")
		}
		return "ok", nil
	}))

	return nil
}

// Server builds the HTTP API around the app services. The progress hub
// runs until ctx is done.
func (a *App) Server(ctx context.Context, host string, port int) *server.Server {
	hub := stream.NewHub()
	hub.Start(ctx)
	handler := server.NewHandler(server.HandlerDeps{
		Analyzer:  a.Analyzer,
		Store:     a.Store,
		Portfolio: a.Portfolio,
		Bridge:    a.Bridge,
		Hub:       hub,
		Health:    a.Health,
		Metrics:   a.Metrics,
		Limiter:   performance.NewKeyedLimiter(0.2, 3, 10*time.Minute),
	}, a.Logger)
	return server.New(handler, a.Logger, server.WithHost(host), server.WithPort(port))
}

// Close releases the store and cache connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}
