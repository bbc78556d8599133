package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	r := New()

	r.RecordCache(true)
	r.RecordCache(false)
	r.RecordCache(false)
	r.ObserveAgentCall("technical", 120*time.Millisecond, nil)
	r.ObserveAgentCall("technical", 80*time.Millisecond, errors.New("boom"))
	r.RecordBridgeSend(nil)
	r.RecordReport("BBCA", 72, nil)
	r.RecordReport("BBCA", 0, errors.New("fetch failed"))

	if got := testutil.ToFloat64(r.cacheLookup.WithLabelValues("miss")); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.agentCalls.WithLabelValues("technical", "error")); got != 1 {
		t.Errorf("agent errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.finalScore.WithLabelValues("BBCA")); got != 72 {
		t.Errorf("final score = %v, want 72", got)
	}
	if got := testutil.ToFloat64(r.reports.WithLabelValues("error")); got != 1 {
		t.Errorf("failed reports = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveStage("fetch", time.Second)
	r.RecordBridgeSend(nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{"stocksignal_stage_duration_seconds", "stocksignal_bridge_sends_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestHTTPAndBreakerMetrics(t *testing.T) {
	r := New()
	r.ObserveHTTP("/api/analyze", "POST", 200, 2*time.Second)
	r.ObserveHTTP("/api/analyze", "POST", 429, time.Millisecond)
	r.ObserveHTTP("", "GET", 404, time.Millisecond)

	if got := testutil.ToFloat64(r.httpReqs.WithLabelValues("/api/analyze", "POST", "429")); got != 1 {
		t.Errorf("429 requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.httpReqs.WithLabelValues("unmatched", "GET", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}

	tests := []struct {
		state string
		want  float64
	}{
		{"OPEN", 2},
		{"HALF_OPEN", 1},
		{"CLOSED", 0},
	}
	for _, tt := range tests {
		r.SetBreakerState("yahoo", tt.state)
		if got := testutil.ToFloat64(r.breaker.WithLabelValues("yahoo")); got != tt.want {
			t.Errorf("state %s = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.RecordCache(true)
	r.ObserveStage("fetch", time.Second)
	r.ObserveAgentCall("cio", time.Second, nil)
	r.RecordBridgeSend(nil)
	r.RecordReport("X", 1, nil)
}
