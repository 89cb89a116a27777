// Package ratelimit throttles outbound provider requests with a per-provider
// token bucket, and reacts to explicit 429 responses by widening the bucket's
// interval until the provider reports success again.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter holds one token bucket per provider name. Every caller waits on
// the same bucket; no share of capacity is held back for webhook-triggered
// work.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	requests int
	window   time.Duration
}

type bucket struct {
	lim        *rate.Limiter
	baseEvery  rate.Limit
	backedOff  bool
}

// New builds a Limiter whose default bucket allows requests tokens per
// window, refilled continuously, for any provider not given its own
// Configure call.
func New(requests int, window time.Duration) *Limiter {
	return &Limiter{
		buckets:  make(map[string]*bucket),
		requests: requests,
		window:   window,
	}
}

// Configure installs a provider-specific rate, overriding the default.
func (l *Limiter) Configure(provider string, requests int, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	every := rate.Every(window / time.Duration(requests))
	l.buckets[provider] = &bucket{lim: rate.NewLimiter(every, requests), baseEvery: every}
}

func (l *Limiter) bucketFor(provider string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[provider]
	if !ok {
		every := rate.Every(l.window / time.Duration(l.requests))
		b = &bucket{lim: rate.NewLimiter(every, l.requests), baseEvery: every}
		l.buckets[provider] = b
	}
	return b
}

// Wait blocks until a token is available for provider, or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	return l.bucketFor(provider).lim.Wait(ctx)
}

// Reserved is a no-op: it reserves no capacity, and no request bypasses its
// provider's bucket through it.
func (l *Limiter) Reserved() {}

// Throttle widens the bucket's interval after the provider returns 429,
// doubling the gap between tokens up to a ceiling of one request per
// minute. Call Recover on the next success to restore normal pacing.
func (l *Limiter) Throttle(provider string, retryAfter time.Duration) {
	b := l.bucketFor(provider)
	l.mu.Lock()
	defer l.mu.Unlock()
	if b.baseEvery == 0 {
		b.baseEvery = rate.Every(l.window / time.Duration(l.requests))
	}
	next := time.Duration(float64(time.Second)/float64(b.lim.Limit())) * 2
	if retryAfter > next {
		next = retryAfter
	}
	ceiling := time.Minute
	if next > ceiling {
		next = ceiling
	}
	b.lim.SetLimit(rate.Every(next))
	b.backedOff = true
}

// Recover restores provider's bucket to its configured rate after a
// successful request following a prior Throttle call.
func (l *Limiter) Recover(provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[provider]
	if !ok || !b.backedOff {
		return
	}
	b.lim.SetLimit(b.baseEvery)
	b.backedOff = false
}
