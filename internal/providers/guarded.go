package providers

import (
	"context"

	"github.com/JustinTDCT/enrichr/internal/breaker"
	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/perr"
	"github.com/JustinTDCT/enrichr/internal/ratelimit"
)

// Guarded wraps a Provider with rate limiting and circuit breaking so every
// adapter gets the same backpressure behavior without repeating it in each
// adapter's HTTP plumbing.
type Guarded struct {
	inner    Provider
	limiter  *ratelimit.Limiter
	breakers *breaker.Registry
}

func NewGuarded(inner Provider, limiter *ratelimit.Limiter, breakers *breaker.Registry) *Guarded {
	return &Guarded{inner: inner, limiter: limiter, breakers: breakers}
}

func (g *Guarded) Name() string               { return g.inner.Name() }
func (g *Guarded) Capabilities() Capabilities { return g.inner.Capabilities() }

func (g *Guarded) guard(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	name := g.inner.Name()
	if err := g.limiter.Wait(ctx, name); err != nil {
		return nil, perr.Cancelled(err)
	}

	result, err := g.breakers.Do(ctx, name, fn)
	if err != nil {
		if perr.KindOf(err) == perr.KindRateLimit {
			g.limiter.Throttle(name, 0)
		}
		return nil, err
	}
	g.limiter.Recover(name)
	return result, nil
}

func (g *Guarded) Search(ctx context.Context, query string, kind models.MediaKind, year int) ([]SearchResult, error) {
	out, err := g.guard(ctx, func(ctx context.Context) (any, error) {
		return g.inner.Search(ctx, query, kind, year)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return out.([]SearchResult), nil
}

func (g *Guarded) GetMetadata(ctx context.Context, externalID string) (Metadata, error) {
	out, err := g.guard(ctx, func(ctx context.Context) (any, error) {
		return g.inner.GetMetadata(ctx, externalID)
	})
	if err != nil {
		return Metadata{}, err
	}
	return out.(Metadata), nil
}

func (g *Guarded) GetAssets(ctx context.Context, externalID string) ([]AssetResult, error) {
	out, err := g.guard(ctx, func(ctx context.Context) (any, error) {
		return g.inner.GetAssets(ctx, externalID)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return out.([]AssetResult), nil
}

func (g *Guarded) TestConnection(ctx context.Context) TestResult {
	return g.inner.TestConnection(ctx)
}
