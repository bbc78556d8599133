// Package performance provides request throttling and runtime statistics for
// the API server.
package performance

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter.
type RateLimiter struct {
	rate       float64 // tokens per second
	burst      int
	tokens     float64
	lastUpdate time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return newRateLimiter(rate, burst, time.Now)
}

func newRateLimiter(rate float64, burst int, now func() time.Time) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: now(),
		now:        now,
	}
}

// Allow reports whether a request may proceed and consumes a token if so.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	r.tokens += elapsed * r.rate
	if r.tokens > float64(r.burst) {
		r.tokens = float64(r.burst)
	}

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// Wait blocks until a request is allowed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if r.Allow() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// KeyedLimiter keeps one bucket per client key. Analysis requests are
// throttled per caller since each one fans out to several LLM calls.
type KeyedLimiter struct {
	rate    float64
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	buckets  map[string]*RateLimiter
	lastSeen map[string]time.Time
}

// NewKeyedLimiter creates a per-key limiter. Buckets idle for longer than
// idleTTL are dropped on the next call.
func NewKeyedLimiter(rate float64, burst int, idleTTL time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		rate:     rate,
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
		buckets:  make(map[string]*RateLimiter),
		lastSeen: make(map[string]time.Time),
	}
}

// Allow reports whether key may proceed.
func (k *KeyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	now := k.now()
	k.evict(now)
	b, ok := k.buckets[key]
	if !ok {
		b = newRateLimiter(k.rate, k.burst, k.now)
		k.buckets[key] = b
	}
	k.lastSeen[key] = now
	k.mu.Unlock()

	return b.Allow()
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

func (k *KeyedLimiter) evict(now time.Time) {
	if k.idleTTL <= 0 {
		return
	}
	for key, seen := range k.lastSeen {
		if now.Sub(seen) > k.idleTTL {
			delete(k.buckets, key)
			delete(k.lastSeen, key)
		}
	}
}

// MemStats contains the runtime figures reported by the health endpoint.
type MemStats struct {
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapInuse  uint64 `json:"heap_inuse"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`
}

// MemoryStats returns current memory statistics.
func MemoryStats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemStats{
		HeapAlloc:  m.HeapAlloc,
		HeapInuse:  m.HeapInuse,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}
