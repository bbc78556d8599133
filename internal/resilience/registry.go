package resilience

import (
	"sort"
	"sync"
)

// Upstream names shared by the clients.
const (
	UpstreamYahoo    = "yahoo"
	UpstreamGoAPI    = "goapi"
	UpstreamSerper   = "serper"
	UpstreamLLM      = "llm"
	UpstreamWhatsApp = "whatsapp"
)

// Registry hands out one breaker per upstream.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	config   BreakerConfig
	hook     func(name string, from, to CircuitState)
}

// NewRegistry creates a registry whose breakers share config.
func NewRegistry(config BreakerConfig) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		config:   config,
	}
}

// OnStateChange installs a hook on current and future breakers.
func (r *Registry) OnStateChange(fn func(name string, from, to CircuitState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = fn
	for _, b := range r.breakers {
		b.OnStateChange(fn)
	}
}

// Get returns or creates the breaker for name. A nil registry returns nil.
func (r *Registry) Get(name string) *Breaker {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	if b, ok := r.breakers[name]; ok {
		r.mu.RUnlock()
		return b
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if b, ok := r.breakers[name]; ok {
		return b
	}

	b := NewBreaker(name, r.config)
	if r.hook != nil {
		b.OnStateChange(r.hook)
	}
	r.breakers[name] = b
	return b
}

// AllStats returns statistics for all breakers sorted by name.
func (r *Registry) AllStats() []BreakerStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make([]BreakerStats, 0, len(r.breakers))
	for _, b := range r.breakers {
		stats = append(stats, b.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// ResetAll closes every circuit.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
