// Package metrics records pipeline and upstream metrics with Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects report pipeline metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	reports     *prometheus.CounterVec
	stageTime   *prometheus.HistogramVec
	cacheLookup *prometheus.CounterVec
	agentCalls  *prometheus.CounterVec
	agentTime   *prometheus.HistogramVec
	bridgeSends *prometheus.CounterVec
	finalScore  *prometheus.GaugeVec
	httpReqs    *prometheus.CounterVec
	httpTime    *prometheus.HistogramVec
	breaker     *prometheus.GaugeVec
}

// New creates a recorder and registers its collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		reports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksignal_reports_total",
				Help: "Total number of report runs by outcome",
			},
			[]string{"outcome"},
		),
		stageTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocksignal_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		cacheLookup: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksignal_cache_lookups_total",
				Help: "Report cache lookups by result",
			},
			[]string{"result"},
		),
		agentCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksignal_agent_calls_total",
				Help: "Council agent calls by agent and status",
			},
			[]string{"agent", "status"},
		),
		agentTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocksignal_agent_duration_seconds",
				Help:    "Council agent latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		bridgeSends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksignal_bridge_sends_total",
				Help: "WhatsApp bridge sends by status",
			},
			[]string{"status"},
		),
		finalScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stocksignal_final_score",
				Help: "Last final score per ticker",
			},
			[]string{"ticker"},
		),
		httpReqs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksignal_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocksignal_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"route", "method", "class"},
		),
		breaker: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stocksignal_circuit_state",
				Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
			},
			[]string{"upstream"},
		),
	}
	reg.MustRegister(
		r.reports, r.stageTime, r.cacheLookup,
		r.agentCalls, r.agentTime, r.bridgeSends, r.finalScore,
		r.httpReqs, r.httpTime, r.breaker,
		prometheus.NewGoCollector(),
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveStage records how long a pipeline stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageTime.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordCache records a cache hit or miss.
func (r *Recorder) RecordCache(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookup.WithLabelValues(result).Inc()
}

// RecordReport records a finished run and its final score.
func (r *Recorder) RecordReport(ticker string, score int, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.reports.WithLabelValues("error").Inc()
		return
	}
	r.reports.WithLabelValues("ok").Inc()
	r.finalScore.WithLabelValues(ticker).Set(float64(score))
}

// ObserveAgentCall records one council agent call.
func (r *Recorder) ObserveAgentCall(agent string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.agentCalls.WithLabelValues(agent, status(err)).Inc()
	r.agentTime.WithLabelValues(agent).Observe(d.Seconds())
}

// RecordBridgeSend records a WhatsApp dispatch.
func (r *Recorder) RecordBridgeSend(err error) {
	if r == nil {
		return
	}
	r.bridgeSends.WithLabelValues(status(err)).Inc()
}

// ObserveHTTP records one served request. route should be the route
// template, not the raw path, to keep label cardinality low.
func (r *Recorder) ObserveHTTP(route, method string, code int, d time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.httpReqs.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	r.httpTime.WithLabelValues(route, method, statusClass(code)).Observe(d.Seconds())
}

// SetBreakerState records the circuit state of an upstream. Unknown states
// are reported as closed.
func (r *Recorder) SetBreakerState(upstream, state string) {
	if r == nil {
		return
	}
	value := 0.0
	switch state {
	case "HALF_OPEN":
		value = 1
	case "OPEN":
		value = 2
	}
	r.breaker.WithLabelValues(upstream).Set(value)
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
