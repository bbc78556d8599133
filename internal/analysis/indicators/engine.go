// Package indicators provides technical indicator calculations with parallel processing.
package indicators

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"stocksignal/internal/models"
)

// Indicator defines the interface for single-value technical indicators.
type Indicator interface {
	Name() string
	Calculate(candles []models.Candle) ([]float64, error)
	Period() int
}

// MultiValueIndicator defines the interface for indicators that return multiple values.
type MultiValueIndicator interface {
	Name() string
	Calculate(candles []models.Candle) (map[string][]float64, error)
	Period() int
}

// Engine provides parallel indicator calculation using a worker pool.
type Engine struct {
	workers     int
	indicators  map[string]Indicator
	multiIndics map[string]MultiValueIndicator
	mu          sync.RWMutex
}

// NewEngine creates a new indicator engine with the specified number of workers.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		workers:     workers,
		indicators:  make(map[string]Indicator),
		multiIndics: make(map[string]MultiValueIndicator),
	}
}

// NewStandardEngine returns an engine with the report indicator set registered.
func NewStandardEngine(workers int) *Engine {
	e := NewEngine(workers)
	for _, p := range []int{5, 8, 13} {
		e.RegisterIndicator(NewSMA(p))
	}
	for _, p := range []int{20, 50} {
		e.RegisterIndicator(NewEMA(p))
	}
	e.RegisterIndicator(NewRSI(14))
	e.RegisterIndicator(NewCCI(20))
	e.RegisterIndicator(NewATR(14))
	e.RegisterIndicator(NewMFI(14))
	e.RegisterIndicator(NewVWAP())

	e.RegisterMultiIndicator(NewStochastic(14, 3, 3))
	e.RegisterMultiIndicator(NewADX(14))
	e.RegisterMultiIndicator(NewOBV(20))
	e.RegisterMultiIndicator(NewMACD(12, 26, 9))
	e.RegisterMultiIndicator(NewBollingerBands(20, 2))
	e.RegisterMultiIndicator(NewSuperTrend(10, 3))
	return e
}

// RegisterIndicator registers a single-value indicator.
func (e *Engine) RegisterIndicator(ind Indicator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indicators[ind.Name()] = ind
}

// RegisterMultiIndicator registers a multi-value indicator.
func (e *Engine) RegisterMultiIndicator(ind MultiValueIndicator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.multiIndics[ind.Name()] = ind
}

// CalculateAll calculates all registered indicators in parallel.
// Indicators that lack enough data are left out of the result.
func (e *Engine) CalculateAll(ctx context.Context, candles []models.Candle) (*Set, error) {
	e.mu.RLock()
	indicators := make([]Indicator, 0, len(e.indicators))
	for _, ind := range e.indicators {
		indicators = append(indicators, ind)
	}
	multiIndics := make([]MultiValueIndicator, 0, len(e.multiIndics))
	for _, ind := range e.multiIndics {
		multiIndics = append(multiIndics, ind)
	}
	e.mu.RUnlock()

	set := NewSet(len(candles))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(e.workers)
	for _, ind := range indicators {
		ind := ind
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			values, err := ind.Calculate(candles)
			if err != nil {
				return
			}
			mu.Lock()
			set.Put(ind.Name(), values)
			mu.Unlock()
		})
	}
	for _, ind := range multiIndics {
		ind := ind
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			values, err := ind.Calculate(candles)
			if err != nil {
				return
			}
			mu.Lock()
			for key, series := range values {
				set.Put(Key(ind.Name(), key), series)
			}
			mu.Unlock()
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// Calculate calculates a specific indicator by name.
func (e *Engine) Calculate(ctx context.Context, name string, candles []models.Candle) ([]float64, error) {
	e.mu.RLock()
	ind, ok := e.indicators[name]
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("indicator %s not found", name)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return ind.Calculate(candles)
	}
}
