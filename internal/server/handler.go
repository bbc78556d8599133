package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/metrics"
	"stocksignal/internal/models"
	"stocksignal/internal/notify"
	"stocksignal/internal/performance"
	"stocksignal/internal/pipeline"
	"stocksignal/internal/resilience"
	"stocksignal/internal/security"
	"stocksignal/internal/store"
	"stocksignal/internal/stream"
)

// Analyzer runs and dispatches reports.
type Analyzer interface {
	RunAnalysis(ctx context.Context, ticker string, opts pipeline.Options, progress pipeline.ProgressFunc) (*models.Report, error)
	SendReport(ctx context.Context, rep *models.Report, phone string) error
	Report(ctx context.Context, ticker string) (*models.Report, error)
}

// Bridge is the read side of the WhatsApp bridge.
type Bridge interface {
	Health(ctx context.Context) (*notify.BridgeHealth, error)
	QR(ctx context.Context) (*notify.QRCode, error)
	Groups(ctx context.Context) ([]notify.Group, error)
}

// PortfolioValuer prices stored holdings.
type PortfolioValuer interface {
	Summarize(ctx context.Context, entries []models.PortfolioEntry) models.PortfolioSummary
}

// Handler serves the API routes.
type Handler struct {
	analyzer  Analyzer
	store     store.DataStore
	portfolio PortfolioValuer
	bridge    Bridge
	hub       *stream.Hub
	health    *resilience.HealthChecker
	metrics   *metrics.Recorder
	limiter   *performance.KeyedLimiter
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
}

// HandlerDeps are the collaborators of a Handler. Only Analyzer and Store
// are required.
type HandlerDeps struct {
	Analyzer  Analyzer
	Store     store.DataStore
	Portfolio PortfolioValuer
	Bridge    Bridge
	Hub       *stream.Hub
	Health    *resilience.HealthChecker
	Metrics   *metrics.Recorder
	Limiter   *performance.KeyedLimiter
}

// NewHandler creates a handler. A started hub must be supplied for
// /ws/analyze; one is created when nil.
func NewHandler(deps HandlerDeps, logger zerolog.Logger) *Handler {
	if deps.Hub == nil {
		deps.Hub = stream.NewHub()
		deps.Hub.Start(context.Background())
	}
	if deps.Health == nil {
		deps.Health = resilience.NewHealthChecker(5*time.Second, nil)
	}
	return &Handler{
		analyzer:  deps.Analyzer,
		store:     deps.Store,
		portfolio: deps.Portfolio,
		bridge:    deps.Bridge,
		hub:       deps.Hub,
		health:    deps.Health,
		metrics:   deps.Metrics,
		limiter:   deps.Limiter,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes mounts every route on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")

	api.POST("/analyze", h.analyze)
	api.GET("/reports/:ticker", h.getReport)
	api.POST("/send", h.send)

	api.GET("/favorites", h.listFavorites)
	api.POST("/favorites", h.addFavorite)
	api.GET("/favorites/:ticker", h.isFavorite)
	api.DELETE("/favorites/:ticker", h.removeFavorite)

	api.GET("/history", h.listHistory)

	api.GET("/portfolio", h.getPortfolio)
	api.PUT("/portfolio", h.upsertPortfolio)
	api.DELETE("/portfolio/:ticker", h.deletePortfolio)

	api.GET("/whatsapp/status", h.whatsappStatus)
	api.GET("/whatsapp/qr", h.whatsappQR)
	api.GET("/whatsapp/groups", h.whatsappGroups)

	e.GET("/ws/analyze", h.analyzeStream)
	e.GET("/health", h.healthz)
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	}
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Ticker    string `json:"ticker" validate:"required,max=16"`
	Timeframe string `json:"timeframe" default:"daily" validate:"oneof=daily weekly monthly"`
	NoCache   bool   `json:"no_cache"`
	Send      bool   `json:"send"`
	Phone     string `json:"phone" validate:"max=40"`
}

// AnalyzeResponse is returned by POST /api/analyze.
type AnalyzeResponse struct {
	Report    *models.Report `json:"report"`
	Sent      bool           `json:"sent"`
	SendError string         `json:"send_error,omitempty"`
}

func (h *Handler) analyze(c echo.Context) error {
	var req AnalyzeRequest
	if errs := bindAndValidate(c, &req); errs != nil {
		return dataResponse(c, http.StatusBadRequest, errs)
	}
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		return dataResponse(c, http.StatusTooManyRequests, []FieldError{{Code: "ERR_RATE_LIMIT", Message: "too many analyses, try again shortly"}})
	}

	ctx := c.Request().Context()
	rep, err := h.analyzer.RunAnalysis(ctx, req.Ticker, pipeline.Options{
		Timeframe: models.ParseTimeframe(req.Timeframe),
		NoCache:   req.NoCache,
	}, nil)
	if err != nil {
		return errorResponse(c, err)
	}

	resp := AnalyzeResponse{Report: rep}
	if req.Send {
		if err := h.analyzer.SendReport(ctx, rep, req.Phone); err != nil {
			resp.SendError = security.MaskSensitive(err.Error())
		} else {
			resp.Sent = true
		}
	}
	return ok(c, resp)
}

func (h *Handler) getReport(c echo.Context) error {
	rep, err := h.analyzer.Report(c.Request().Context(), c.Param("ticker"))
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, rep)
}

// SendRequest is the body of POST /api/send.
type SendRequest struct {
	Ticker string `json:"ticker" validate:"required,max=16"`
	Phone  string `json:"phone" validate:"max=40"`
}

func (h *Handler) send(c echo.Context) error {
	var req SendRequest
	if errs := bindAndValidate(c, &req); errs != nil {
		return dataResponse(c, http.StatusBadRequest, errs)
	}
	ctx := c.Request().Context()
	rep, err := h.analyzer.Report(ctx, req.Ticker)
	if err != nil {
		return errorResponse(c, err)
	}
	if err := h.analyzer.SendReport(ctx, rep, req.Phone); err != nil {
		return errorResponse(c, err)
	}
	return ok(c, map[string]interface{}{"ticker": rep.Ticker, "sent": true})
}

// TickerRequest carries a single ticker.
type TickerRequest struct {
	Ticker string `json:"ticker" validate:"required,max=16"`
}

func (h *Handler) listFavorites(c echo.Context) error {
	favs, err := h.store.ListFavorites(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, favs)
}

func (h *Handler) addFavorite(c echo.Context) error {
	var req TickerRequest
	if errs := bindAndValidate(c, &req); errs != nil {
		return dataResponse(c, http.StatusBadRequest, errs)
	}
	ticker, err := security.ValidateTicker(req.Ticker)
	if err != nil {
		return errorResponse(c, err)
	}
	if err := h.store.AddFavorite(c.Request().Context(), ticker); err != nil {
		return errorResponse(c, err)
	}
	return dataResponse(c, http.StatusCreated, map[string]string{"ticker": ticker})
}

func (h *Handler) isFavorite(c echo.Context) error {
	fav, err := h.store.IsFavorite(c.Request().Context(), c.Param("ticker"))
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, map[string]bool{"favorite": fav})
}

func (h *Handler) removeFavorite(c echo.Context) error {
	if err := h.store.RemoveFavorite(c.Request().Context(), c.Param("ticker")); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) listHistory(c echo.Context) error {
	limit := 10
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 100 {
			return dataResponse(c, http.StatusBadRequest, []FieldError{{Code: "ERR_BAD_REQUEST", Field: "limit", Message: "limit must be between 1 and 100"}})
		}
		limit = n
	}
	hist, err := h.store.ListHistory(c.Request().Context(), limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, hist)
}

// PortfolioRequest is the body of PUT /api/portfolio.
type PortfolioRequest struct {
	Ticker   string  `json:"ticker" validate:"required,max=16"`
	AvgPrice float64 `json:"avg_price" validate:"gt=0"`
	Lots     int     `json:"lots" validate:"gt=0"`
}

func (h *Handler) getPortfolio(c echo.Context) error {
	ctx := c.Request().Context()
	entries, err := h.store.ListPortfolio(ctx)
	if err != nil {
		return errorResponse(c, err)
	}
	if h.portfolio == nil {
		return ok(c, models.PortfolioSummary{})
	}
	return ok(c, h.portfolio.Summarize(ctx, entries))
}

func (h *Handler) upsertPortfolio(c echo.Context) error {
	var req PortfolioRequest
	if errs := bindAndValidate(c, &req); errs != nil {
		return dataResponse(c, http.StatusBadRequest, errs)
	}
	ticker, err := security.ValidateTicker(req.Ticker)
	if err != nil {
		return errorResponse(c, err)
	}
	entry := models.PortfolioEntry{Ticker: ticker, AvgPrice: req.AvgPrice, Lots: req.Lots}
	if err := h.store.UpsertPortfolio(c.Request().Context(), entry); err != nil {
		return errorResponse(c, err)
	}
	return ok(c, entry)
}

func (h *Handler) deletePortfolio(c echo.Context) error {
	removed, err := h.store.DeletePortfolio(c.Request().Context(), c.Param("ticker"))
	if err != nil {
		return errorResponse(c, err)
	}
	if !removed {
		return errorResponse(c, apperrors.ErrNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) whatsappStatus(c echo.Context) error {
	if h.bridge == nil {
		return errorResponse(c, apperrors.ErrBridgeUnavailable)
	}
	health, err := h.bridge.Health(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, health)
}

func (h *Handler) whatsappQR(c echo.Context) error {
	if h.bridge == nil {
		return errorResponse(c, apperrors.ErrBridgeUnavailable)
	}
	qr, err := h.bridge.QR(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, qr)
}

func (h *Handler) whatsappGroups(c echo.Context) error {
	if h.bridge == nil {
		return errorResponse(c, apperrors.ErrBridgeUnavailable)
	}
	groups, err := h.bridge.Groups(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, groups)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	resilience.SystemHealth
	Stream  stream.HubMetrics    `json:"stream"`
	Runtime performance.MemStats `json:"runtime"`
}

func (h *Handler) healthz(c echo.Context) error {
	sys := h.health.Run(c.Request().Context())
	status := http.StatusOK
	if sys.Status == resilience.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, HealthResponse{
		SystemHealth: sys,
		Stream:       h.hub.Metrics(),
		Runtime:      performance.MemoryStats(),
	})
}
