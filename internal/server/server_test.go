package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
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
	"stocksignal/internal/portfolio"
	"stocksignal/internal/store"
	"stocksignal/internal/stream"
)

type fakeAnalyzer struct {
	mu      sync.Mutex
	opts    pipeline.Options
	sentTo  string
	stored  *models.Report
	runErr  error
	sendErr error
}

func (f *fakeAnalyzer) RunAnalysis(ctx context.Context, ticker string, opts pipeline.Options, progress pipeline.ProgressFunc) (*models.Report, error) {
	f.mu.Lock()
	f.opts = opts
	f.mu.Unlock()
	if progress != nil {
		progress(0.1, "start")
		progress(0.5, "news")
		progress(1.0, "done")
	}
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &models.Report{ID: "r-1", Ticker: strings.ToUpper(ticker) + ".JK", Message: "*BBCA*"}, nil
}

func (f *fakeAnalyzer) lastOpts() pipeline.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts
}

func (f *fakeAnalyzer) SendReport(ctx context.Context, rep *models.Report, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentTo = phone
	return f.sendErr
}

func (f *fakeAnalyzer) Report(ctx context.Context, ticker string) (*models.Report, error) {
	if f.stored == nil {
		return nil, apperrors.ErrCacheMiss
	}
	return f.stored, nil
}

type fakeBridge struct {
	err error
}

func (b *fakeBridge) Health(ctx context.Context) (*notify.BridgeHealth, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &notify.BridgeHealth{Status: "ok", WhatsAppReady: true}, nil
}

func (b *fakeBridge) QR(ctx context.Context) (*notify.QRCode, error) {
	return &notify.QRCode{QR: "2@abc", Status: "scan"}, nil
}

func (b *fakeBridge) Groups(ctx context.Context) ([]notify.Group, error) {
	return []notify.Group{{Name: "Saham", ID: "120363025246125888@g.us"}}, nil
}

type fixedQuoter map[string]float64

func (q fixedQuoter) LastPrice(ctx context.Context, ticker string) (float64, error) {
	return q[ticker], nil
}

type testEnv struct {
	echo     *echo.Echo
	analyzer *fakeAnalyzer
	bridge   *fakeBridge
}

func newTestEnv(t *testing.T, limiter *performance.KeyedLimiter) *testEnv {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hub := stream.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub.Start(ctx)

	env := &testEnv{analyzer: &fakeAnalyzer{}, bridge: &fakeBridge{}}
	h := NewHandler(HandlerDeps{
		Analyzer:  env.analyzer,
		Store:     st,
		Portfolio: portfolio.NewValuer(fixedQuoter{"BBCA": 10000}, 2, zerolog.Nop()),
		Bridge:    env.bridge,
		Hub:       hub,
		Metrics:   metrics.New(),
		Limiter:   limiter,
	}, zerolog.Nop())
	env.echo = New(h, zerolog.Nop()).Echo()
	return env
}

func (env *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	var resp APIResponse
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func TestAnalyzeEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, resp := env.do(t, http.MethodPost, "/api/analyze", `{"ticker":"bbca","send":true,"phone":"628123456789"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	data, _ := json.Marshal(resp.Data)
	var out AnalyzeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Report == nil || out.Report.Ticker != "BBCA.JK" || !out.Sent {
		t.Errorf("unexpected response %+v", out)
	}
	if env.analyzer.lastOpts().Timeframe != models.TimeframeDaily {
		t.Errorf("timeframe default not applied: %q", env.analyzer.lastOpts().Timeframe)
	}
	if env.analyzer.sentTo != "628123456789" {
		t.Errorf("sent to %q", env.analyzer.sentTo)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []string{
		`{}`,
		`{"ticker":"BBCA","timeframe":"hourly"}`,
		`{"ticker":`,
	}
	for _, body := range tests {
		rec, _ := env.do(t, http.MethodPost, "/api/analyze", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status %d, want 400", body, rec.Code)
		}
	}

	env.analyzer.runErr = apperrors.NewDataError("yahoo", "ZZZZ", "no rows", apperrors.ErrNoPriceData)
	rec, _ := env.do(t, http.MethodPost, "/api/analyze", `{"ticker":"ZZZZ"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("no price data status = %d", rec.Code)
	}
}

func TestAnalyzeRateLimited(t *testing.T) {
	env := newTestEnv(t, performance.NewKeyedLimiter(0.001, 1, time.Minute))

	if rec, _ := env.do(t, http.MethodPost, "/api/analyze", `{"ticker":"BBCA"}`); rec.Code != http.StatusOK {
		t.Fatalf("first request status %d", rec.Code)
	}
	if rec, _ := env.do(t, http.MethodPost, "/api/analyze", `{"ticker":"BBCA"}`); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status %d, want 429", rec.Code)
	}
}

func TestReportAndSend(t *testing.T) {
	env := newTestEnv(t, nil)

	if rec, _ := env.do(t, http.MethodGet, "/api/reports/BBCA", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing report status %d", rec.Code)
	}

	env.analyzer.stored = &models.Report{ID: "r-9", Ticker: "BBCA.JK"}
	if rec, _ := env.do(t, http.MethodGet, "/api/reports/BBCA", ""); rec.Code != http.StatusOK {
		t.Errorf("report status %d", rec.Code)
	}

	env.analyzer.sendErr = apperrors.NewBridgeError(503, "not ready")
	if rec, _ := env.do(t, http.MethodPost, "/api/send", `{"ticker":"BBCA"}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("bridge not ready status %d", rec.Code)
	}
}

func TestFavoritesAndHistory(t *testing.T) {
	env := newTestEnv(t, nil)

	if rec, _ := env.do(t, http.MethodPost, "/api/favorites", `{"ticker":"tlkm"}`); rec.Code != http.StatusCreated {
		t.Fatalf("add favorite status %d", rec.Code)
	}
	_, resp := env.do(t, http.MethodGet, "/api/favorites", "")
	if favs, ok := resp.Data.([]interface{}); !ok || len(favs) != 1 || favs[0] != "TLKM" {
		t.Errorf("favorites = %v", resp.Data)
	}
	_, resp = env.do(t, http.MethodGet, "/api/favorites/TLKM", "")
	if m, ok := resp.Data.(map[string]interface{}); !ok || m["favorite"] != true {
		t.Errorf("is favorite = %v", resp.Data)
	}
	if rec, _ := env.do(t, http.MethodDelete, "/api/favorites/TLKM", ""); rec.Code != http.StatusNoContent {
		t.Errorf("remove favorite status %d", rec.Code)
	}

	if rec, _ := env.do(t, http.MethodGet, "/api/history?limit=0", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status %d", rec.Code)
	}
	if rec, _ := env.do(t, http.MethodGet, "/api/history", ""); rec.Code != http.StatusOK {
		t.Errorf("history status %d", rec.Code)
	}
}

func TestPortfolioEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	if rec, _ := env.do(t, http.MethodPut, "/api/portfolio", `{"ticker":"BBCA","avg_price":9000,"lots":2}`); rec.Code != http.StatusOK {
		t.Fatalf("upsert status %d body %s", rec.Code, rec.Body.String())
	}
	if rec, _ := env.do(t, http.MethodPut, "/api/portfolio", `{"ticker":"BBCA","avg_price":9000,"lots":0}`); rec.Code != http.StatusBadRequest {
		t.Errorf("zero lots status %d", rec.Code)
	}

	rec, resp := env.do(t, http.MethodGet, "/api/portfolio", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("portfolio status %d", rec.Code)
	}
	data, _ := json.Marshal(resp.Data)
	var summary models.PortfolioSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatal(err)
	}
	if len(summary.Lines) != 1 || summary.MarketValue != 2_000_000 || summary.PnL != 200_000 {
		t.Errorf("summary = %+v", summary)
	}

	if rec, _ := env.do(t, http.MethodDelete, "/api/portfolio/BBCA", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status %d", rec.Code)
	}
	if rec, _ := env.do(t, http.MethodDelete, "/api/portfolio/BBCA", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status %d", rec.Code)
	}
}

func TestWhatsAppEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/whatsapp/status", "/api/whatsapp/qr", "/api/whatsapp/groups"} {
		if rec, _ := env.do(t, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s status %d", path, rec.Code)
		}
	}

	env.bridge.err = apperrors.ErrBridgeUnavailable
	if rec, _ := env.do(t, http.MethodGet, "/api/whatsapp/status", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unavailable bridge status %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, _ := env.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"runtime"`) {
		t.Errorf("health status %d body %s", rec.Code, rec.Body.String())
	}

	rec, _ = env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("metrics status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "stocksignal_http_requests_total") || !strings.Contains(body, `route="/health"`) {
		t.Errorf("metrics missing request counter for /health")
	}
}

func TestAnalyzeStream(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.echo)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/analyze?ticker=bbca&timeframe=weekly"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	var progress int
	var final StreamMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if msg.Type == "progress" {
			progress++
			continue
		}
		final = msg
		break
	}

	if final.Type != "report" || final.Report == nil || final.Report.Ticker != "BBCA.JK" {
		t.Errorf("final frame = %+v", final)
	}
	if progress == 0 {
		t.Error("no progress frames received")
	}
	if env.analyzer.lastOpts().Timeframe != models.TimeframeWeekly {
		t.Errorf("timeframe = %q", env.analyzer.lastOpts().Timeframe)
	}
}

func TestAnalyzeStreamRejectsBadTicker(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, _ := env.do(t, http.MethodGet, "/ws/analyze?ticker=", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
}
