// Package fetch fans a single entity's metadata/asset request out across
// every capable provider concurrently, with per-provider timeouts and a
// metadata-before-assets ordering so asset scoring can use what metadata
// contributed (e.g. a confirmed external ID) before assets are requested.
package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/providers"
	"github.com/JustinTDCT/enrichr/internal/registry"
)

// ProgressFunc is called as each provider in a fan-out completes, so callers
// can push progress events without the orchestrator depending on any
// specific notification transport.
type ProgressFunc func(provider string, done, total int)

// MetadataResult pairs a provider's contribution with any error it hit —
// partial failures are expected and handled by the caller, not fatal here.
type MetadataResult struct {
	Provider string
	Metadata providers.Metadata
	Err      error
}

// AssetResult pairs a provider's asset candidates with any error it hit.
type AssetResult struct {
	Provider string
	Assets   []providers.AssetResult
	Err      error
}

// Results aggregates everything a fan-out produced for one entity.
type Results struct {
	Metadata []MetadataResult
	Assets   []AssetResult
}

// AllFailed reports whether every provider that was asked for metadata
// returned an error — the enrichment orchestrator treats this as a
// phase-level failure rather than partial success.
func (r Results) AllFailed() bool {
	if len(r.Metadata) == 0 {
		return true
	}
	for _, m := range r.Metadata {
		if m.Err == nil {
			return false
		}
	}
	return true
}

const perProviderTimeout = 15 * time.Second

// FetchMetadata calls GetMetadata in parallel on every metadata-capable
// provider for an already matched entity. externalIDs maps provider name to
// the id that provider should be queried with (e.g. the TMDB id is reused
// for Fanart.tv); a provider with no entry gets an error result.
func FetchMetadata(ctx context.Context, reg *registry.Registry, externalIDs map[string]string, progress ProgressFunc) []MetadataResult {
	providerList := reg.SupportingMetadata()
	var wg sync.WaitGroup
	results := make([]MetadataResult, len(providerList))
	var done int32
	var mu sync.Mutex

	for i, p := range providerList {
		wg.Add(1)
		go func(i int, p providers.Provider) {
			defer wg.Done()
			id, ok := externalIDs[p.Name()]
			if !ok {
				results[i] = MetadataResult{Provider: p.Name(), Err: context.Canceled}
				return
			}
			reqCtx, cancel := context.WithTimeout(ctx, perProviderTimeout)
			defer cancel()
			md, err := p.GetMetadata(reqCtx, id)
			results[i] = MetadataResult{Provider: p.Name(), Metadata: md, Err: err}

			if progress != nil {
				mu.Lock()
				done++
				progress(p.Name(), int(done), len(providerList))
				mu.Unlock()
			}
		}(i, p)
	}
	wg.Wait()
	return results
}

// FetchAssets runs GetAssets across every provider that can supply
// assetType, in parallel, after metadata has already been fetched.
func FetchAssets(ctx context.Context, reg *registry.Registry, assetType models.AssetType, externalIDs map[string]string, progress ProgressFunc) []AssetResult {
	providerList := reg.SupportingAsset(assetType)
	var wg sync.WaitGroup
	results := make([]AssetResult, len(providerList))
	var done int32
	var mu sync.Mutex

	for i, p := range providerList {
		wg.Add(1)
		go func(i int, p providers.Provider) {
			defer wg.Done()
			id, ok := externalIDs[p.Name()]
			if !ok {
				results[i] = AssetResult{Provider: p.Name(), Err: context.Canceled}
				return
			}
			reqCtx, cancel := context.WithTimeout(ctx, perProviderTimeout)
			defer cancel()
			assets, err := p.GetAssets(reqCtx, id)
			results[i] = AssetResult{Provider: p.Name(), Assets: assets, Err: err}

			if progress != nil {
				mu.Lock()
				done++
				progress(p.Name(), int(done), len(providerList))
				mu.Unlock()
			}
		}(i, p)
	}
	wg.Wait()
	return results
}
