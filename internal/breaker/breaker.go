// Package breaker wraps provider calls in a per-provider circuit breaker so
// a provider in sustained failure stops receiving traffic until it has had
// time to recover.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/JustinTDCT/enrichr/internal/perr"
)

// Registry holds one circuit breaker per provider name, all built with the
// same threshold/reset policy.
type Registry struct {
	mu        sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker[any]
	threshold uint32
	reset     time.Duration
}

func New(threshold uint32, resetTimeout time.Duration) *Registry {
	return &Registry{
		breakers:  make(map[string]*gobreaker.CircuitBreaker[any]),
		threshold: threshold,
		reset:     resetTimeout,
	}
}

func (r *Registry) breakerFor(provider string) *gobreaker.CircuitBreaker[any] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[provider]; ok {
		return b
	}
	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     r.reset,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.threshold
		},
	}
	b := gobreaker.NewCircuitBreaker[any](settings)
	r.breakers[provider] = b
	return b
}

// Do runs fn through provider's breaker. An open breaker returns a
// perr.CircuitOpen error without invoking fn.
func (r *Registry) Do(ctx context.Context, provider string, fn func(context.Context) (any, error)) (any, error) {
	b := r.breakerFor(provider)
	result, err := b.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, perr.CircuitOpen(err)
	}
	return result, err
}

// State reports the current state of provider's breaker for diagnostics.
func (r *Registry) State(provider string) gobreaker.State {
	return r.breakerFor(provider).State()
}
