package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stocksignal/internal/analysis/valuation"
	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/logging"
	"stocksignal/internal/models"
	"stocksignal/internal/resilience"
)

// DefaultGoAPIBaseURL is the IDX endpoint of GoAPI.
const DefaultGoAPIBaseURL = "https://api.goapi.id/v1/stock/idx"

// GoAPIClient reads IDX profile, indicators, broker summary, foreign flow
// and news. Every method returns nil data and no error without a key.
type GoAPIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *resilience.Breaker
	logger  zerolog.Logger
}

// GoAPIOption customises a GoAPIClient.
type GoAPIOption func(*GoAPIClient)

// WithGoAPIBaseURL overrides the endpoint, mainly for tests.
func WithGoAPIBaseURL(u string) GoAPIOption {
	return func(c *GoAPIClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithGoAPIBreaker guards calls with a circuit breaker.
func WithGoAPIBreaker(b *resilience.Breaker) GoAPIOption {
	return func(c *GoAPIClient) { c.breaker = b }
}

// NewGoAPIClient creates a client with a 5 second timeout.
func NewGoAPIClient(apiKey string, logger zerolog.Logger, opts ...GoAPIOption) *GoAPIClient {
	c := &GoAPIClient{
		baseURL: DefaultGoAPIBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger.With().Str("component", "goapi").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a key is configured.
func (c *GoAPIClient) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// CheckConnection verifies the key against a liquid ticker.
func (c *GoAPIClient) CheckConnection(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}
	err := c.get(ctx, "/BBCA", nil, nil)
	return err == nil
}

// Profile is the company profile subset used for valuation.
type Profile struct {
	Name      string
	PER       *float64
	PBV       float64
	ROE       float64
	DER       float64
	EPS       float64
	MarketCap float64
}

type profileDTO struct {
	Name      string    `json:"name"`
	PER       *flexFloat `json:"per"`
	PBV       flexFloat `json:"pbv"`
	ROE       flexFloat `json:"roe"`
	DER       flexFloat `json:"der"`
	EPSTTM    flexFloat `json:"eps_ttm"`
	EPS       flexFloat `json:"eps"`
	MarketCap flexFloat `json:"market_cap"`
}

// Profile fetches the company profile.
func (c *GoAPIClient) Profile(ctx context.Context, ticker string) (*Profile, error) {
	if !c.Enabled() {
		return nil, nil
	}
	var dto profileDTO
	if err := c.get(ctx, "/"+models.BaseTicker(ticker)+"/profile", nil, &dto); err != nil {
		return nil, err
	}
	p := &Profile{
		Name:      dto.Name,
		PBV:       float64(dto.PBV),
		ROE:       float64(dto.ROE),
		DER:       float64(dto.DER),
		EPS:       float64(dto.EPSTTM),
		MarketCap: float64(dto.MarketCap),
	}
	if p.EPS == 0 {
		p.EPS = float64(dto.EPS)
	}
	if dto.PER != nil {
		per := float64(*dto.PER)
		p.PER = &per
	}
	return p, nil
}

// Fundamentals adapts Profile to the valuation input.
func (p *Profile) Fundamentals(price float64) *valuation.Fundamentals {
	return &valuation.Fundamentals{
		Source:    "goapi",
		Price:     price,
		PER:       p.PER,
		PBV:       p.PBV,
		ROE:       p.ROE,
		DER:       p.DER,
		EPS:       p.EPS,
		MarketCap: p.MarketCap,
		Currency:  "IDR",
	}
}

// IndicatorValues are exchange computed indicator readings.
type IndicatorValues struct {
	RSI   *float64
	EMA20 *float64
	EMA50 *float64
}

type indicatorDTO struct {
	RSI   *flexFloat `json:"rsi"`
	EMA20 *flexFloat `json:"ema20"`
	EMA50 *flexFloat `json:"ema50"`
}

// Indicators fetches RSI and EMA readings.
func (c *GoAPIClient) Indicators(ctx context.Context, ticker string) (*IndicatorValues, error) {
	if !c.Enabled() {
		return nil, nil
	}
	var dto indicatorDTO
	if err := c.get(ctx, "/"+models.BaseTicker(ticker)+"/indicators", nil, &dto); err != nil {
		return nil, err
	}
	return &IndicatorValues{
		RSI:   dto.RSI.ptr(),
		EMA20: dto.EMA20.ptr(),
		EMA50: dto.EMA50.ptr(),
	}, nil
}

type brokerDTO struct {
	Broker   string    `json:"broker"`
	Side     string    `json:"type"`
	Volume   flexFloat `json:"volume"`
	Value    flexFloat `json:"value"`
	AvgPrice flexFloat `json:"avg_price"`
}

// BrokerSummary fetches the broker summary of one session.
func (c *GoAPIClient) BrokerSummary(ctx context.Context, ticker string, date time.Time) ([]models.BrokerTransaction, error) {
	if !c.Enabled() {
		return nil, nil
	}
	q := url.Values{"date": {date.Format("2006-01-02")}}
	var rows []brokerDTO
	if err := c.get(ctx, "/"+models.BaseTicker(ticker)+"/broker_summary", q, &rows); err != nil {
		return nil, err
	}

	out := make([]models.BrokerTransaction, 0, len(rows))
	for _, r := range rows {
		side := models.TradeSide(strings.ToUpper(strings.TrimSpace(r.Side)))
		if side != models.SideBuy && side != models.SideSell {
			continue
		}
		out = append(out, models.BrokerTransaction{
			Broker: strings.ToUpper(strings.TrimSpace(r.Broker)),
			Side:   side,
			Volume: float64(r.Volume),
			Value:  float64(r.Value),
			Price:  float64(r.AvgPrice),
		})
	}
	return out, nil
}

type foreignDTO struct {
	Date   string    `json:"date"`
	NetBuy flexFloat `json:"net_buy"`
	Buy    flexFloat `json:"buy"`
	Sell   flexFloat `json:"sell"`
}

// ForeignFlow fetches daily foreign net flow, oldest first.
func (c *GoAPIClient) ForeignFlow(ctx context.Context, ticker string) ([]models.ForeignFlowDay, error) {
	if !c.Enabled() {
		return nil, nil
	}
	var rows []foreignDTO
	if err := c.get(ctx, "/"+models.BaseTicker(ticker)+"/foreign_flow", nil, &rows); err != nil {
		return nil, err
	}

	out := make([]models.ForeignFlowDay, 0, len(rows))
	for _, r := range rows {
		day := models.ForeignFlowDay{
			NetBuy: float64(r.NetBuy),
			Buy:    float64(r.Buy),
			Sell:   float64(r.Sell),
		}
		if t, err := time.Parse("2006-01-02", r.Date); err == nil {
			day.Date = t
		}
		if day.NetBuy == 0 && (day.Buy != 0 || day.Sell != 0) {
			day.NetBuy = day.Buy - day.Sell
		}
		out = append(out, day)
	}
	sortFlowOldestFirst(out)
	return out, nil
}

type newsDTO struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Date        string `json:"date"`
}

// News fetches recent headlines.
func (c *GoAPIClient) News(ctx context.Context, ticker string, limit int) ([]models.NewsItem, error) {
	if !c.Enabled() {
		return nil, nil
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var rows []newsDTO
	if err := c.get(ctx, "/"+models.BaseTicker(ticker)+"/news", q, &rows); err != nil {
		return nil, err
	}

	out := make([]models.NewsItem, 0, len(rows))
	for _, r := range rows {
		date := r.PublishedAt
		if date == "" {
			date = r.Date
		}
		out = append(out, models.NewsItem{Title: r.Title, URL: r.URL, Date: date, Source: "goapi"})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// get issues a GET and decodes the "data" envelope into out.
func (c *GoAPIClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.breaker.Do(ctx, func(ctx context.Context) error {
		start := time.Now()
		err := c.doGet(ctx, path, query, out)
		logging.LogAPICall(c.logger, http.MethodGet, path, time.Since(start), err)
		return err
	})
}

func (c *GoAPIClient) doGet(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewDataError("goapi", path, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apperrors.NewDataError("goapi", path, "reading body", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.NewDataError("goapi", path, "rate limited", apperrors.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NewDataError("goapi", path, "not found", apperrors.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return apperrors.NewDataError("goapi", path, fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(body), 200)), nil)
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apperrors.NewDataError("goapi", path, "decoding envelope", err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return apperrors.NewDataError("goapi", path, "missing data field", apperrors.ErrNotFound)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return apperrors.NewDataError("goapi", path, "decoding data", err)
	}
	return nil
}

func sortFlowOldestFirst(days []models.ForeignFlowDay) {
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
}

// flexFloat accepts JSON numbers, numeric strings and null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("flexFloat: %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

func (f *flexFloat) ptr() *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
