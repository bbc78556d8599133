package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker("goapi", BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})
	boom := errors.New("boom")
	fail := func(context.Context) error { return boom }

	for i := 0; i < 2; i++ {
		if err := b.Do(context.Background(), fail); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}
	if b.State() != CircuitOpen {
		t.Fatalf("state = %s, want OPEN", b.State())
	}

	called := false
	err := b.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("err = %v called = %v", err, called)
	}
	if got := b.Stats().TotalRejected; got != 1 {
		t.Errorf("rejected = %d", got)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	b := NewBreaker("llm", BreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Cooldown: 10 * time.Second})
	b.now = func() time.Time { return now }

	var transitions []CircuitState
	b.OnStateChange(func(_ string, _, to CircuitState) { transitions = append(transitions, to) })

	_ = b.Do(context.Background(), func(context.Context) error { return errors.New("down") })
	now = now.Add(11 * time.Second)

	v, err := DoWithResult(context.Background(), b, func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("v = %d err = %v", v, err)
	}
	if b.State() != CircuitClosed {
		t.Errorf("state = %s", b.State())
	}
	want := []CircuitState{CircuitOpen, CircuitHalfOpen, CircuitClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	b := NewBreaker("serper", BreakerConfig{FailureThreshold: 1})
	_ = b.Do(context.Background(), func(context.Context) error { return context.Canceled })
	if b.State() != CircuitClosed {
		t.Errorf("state = %s", b.State())
	}
}

func TestNilBreakerPassesThrough(t *testing.T) {
	var b *Breaker
	if err := b.Do(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	var r *Registry
	if r.Get("x") != nil {
		t.Error("nil registry should hand out nil breakers")
	}
}

func TestRegistryReusesBreakers(t *testing.T) {
	r := NewRegistry(DefaultBreakerConfig())
	if r.Get(UpstreamGoAPI) != r.Get(UpstreamGoAPI) {
		t.Error("expected the same breaker")
	}
	r.Get(UpstreamLLM)
	stats := r.AllStats()
	if len(stats) != 2 || stats[0].Name != UpstreamGoAPI {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHealthCheckerAggregates(t *testing.T) {
	h := NewHealthChecker(time.Second, NewRegistry(DefaultBreakerConfig()))
	h.Register("db", DatabaseHealthCheck(func(context.Context) error { return nil }))
	h.Register("whatsapp", OptionalHealthCheck(func(context.Context) (string, error) {
		return "", errors.New("bridge offline")
	}))

	res := h.Run(context.Background())
	if res.Status != HealthStatusDegraded {
		t.Errorf("status = %s, want DEGRADED", res.Status)
	}
	if len(res.Components) != 3 {
		t.Errorf("components = %d", len(res.Components))
	}

	h.Register("panicky", func(context.Context) ComponentHealth { panic("boom") })
	if res := h.Run(context.Background()); res.Status != HealthStatusUnhealthy {
		t.Errorf("status = %s, want UNHEALTHY", res.Status)
	}
}
