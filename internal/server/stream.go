package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"stocksignal/internal/models"
	"stocksignal/internal/pipeline"
	"stocksignal/internal/security"
	"stocksignal/internal/stream"
)

// drainWait bounds how long trailing progress events are awaited after the
// analysis returned.
const drainWait = 250 * time.Millisecond

// StreamMessage is one frame sent on /ws/analyze.
type StreamMessage struct {
	Type     string                `json:"type"` // progress, report or error
	Progress *stream.ProgressEvent `json:"progress,omitempty"`
	Report   *models.Report        `json:"report,omitempty"`
	Error    string                `json:"error,omitempty"`
}

type analysisResult struct {
	report *models.Report
	err    error
}

// analyzeStream upgrades to a websocket, runs one analysis and streams its
// progress followed by the report.
//
//	GET /ws/analyze?ticker=BBCA&timeframe=daily&no_cache=true
func (h *Handler) analyzeStream(c echo.Context) error {
	ticker, err := security.ValidateTicker(c.QueryParam("ticker"))
	if err != nil {
		return errorResponse(c, err)
	}
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		return dataResponse(c, http.StatusTooManyRequests, []FieldError{{Code: "ERR_RATE_LIMIT", Message: "too many analyses, try again shortly"}})
	}
	opts := pipeline.Options{
		Timeframe: models.ParseTimeframe(c.QueryParam("timeframe")),
		NoCache:   c.QueryParam("no_cache") == "true",
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	jobID := uuid.NewString()
	events := h.hub.Subscribe(jobID)
	defer h.hub.Unsubscribe(jobID, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan analysisResult, 1)
	go func() {
		rep, err := h.analyzer.RunAnalysis(ctx, ticker, opts, pipeline.ProgressFunc(h.hub.Reporter(jobID, ticker)))
		if err != nil {
			h.hub.Fail(jobID, ticker, err)
		}
		done <- analysisResult{report: rep, err: err}
	}()

	// A closed client cancels the analysis.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := h.writeFrame(conn, StreamMessage{Type: "progress", Progress: &ev}); err != nil {
				return nil
			}
		case res := <-done:
			h.drain(conn, events)
			if res.err != nil {
				_ = h.writeFrame(conn, StreamMessage{Type: "error", Error: security.MaskSensitive(res.err.Error())})
			} else {
				_ = h.writeFrame(conn, StreamMessage{Type: "report", Report: res.report})
			}
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
	}
}

// drain forwards queued events until the terminal one or drainWait.
func (h *Handler) drain(conn *websocket.Conn, events <-chan stream.ProgressEvent) {
	timer := time.NewTimer(drainWait)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := h.writeFrame(conn, StreamMessage{Type: "progress", Progress: &ev}); err != nil || ev.Done {
				return
			}
		case <-timer.C:
			return
		}
	}
}

func (h *Handler) writeFrame(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(msg)
}
