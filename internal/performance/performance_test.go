package performance

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimiterBurstAndRefill(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)}
	limiter := newRateLimiter(2, 3, clock.Now)

	allowed := 0
	for i := 0; i < 5; i++ {
		if limiter.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("burst allowed %d, want 3", allowed)
	}

	clock.Advance(500 * time.Millisecond)
	if !limiter.Allow() {
		t.Error("expected a token after refill")
	}
	if limiter.Allow() {
		t.Error("expected bucket to be empty again")
	}
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	limiter := NewRateLimiter(0, 1)
	limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Error("expected context error")
	}
}

func TestKeyedLimiterIsolatesClients(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)}
	k := NewKeyedLimiter(0.1, 1, time.Minute)
	k.now = clock.Now

	if !k.Allow("10.0.0.1") {
		t.Fatal("first request should pass")
	}
	if k.Allow("10.0.0.1") {
		t.Error("second request from same client should be throttled")
	}
	if !k.Allow("10.0.0.2") {
		t.Error("other client should not be throttled")
	}

	clock.Advance(2 * time.Minute)
	k.Allow("10.0.0.3")
	if k.Len() != 1 {
		t.Errorf("idle buckets not evicted, have %d", k.Len())
	}
}

func TestMemoryStats(t *testing.T) {
	stats := MemoryStats()

	if stats.HeapAlloc == 0 {
		t.Error("Expected non-zero HeapAlloc")
	}
	if stats.Goroutines == 0 {
		t.Error("Expected non-zero Goroutines")
	}
}
