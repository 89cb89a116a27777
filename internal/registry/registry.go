// Package registry indexes configured providers by capability so the fetch
// orchestrator can ask "who can search movies" or "who supplies posters"
// without hard-coding adapter names.
package registry

import (
	"sync"

	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/providers"
)

// Registry holds constructed provider instances by name. Entries change only
// through Register and Unregister; capabilities are read from each instance
// on every lookup.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]providers.Provider
}

func New() *Registry {
	return &Registry{instances: make(map[string]providers.Provider)}
}

// Register installs or replaces the instance for a provider name.
func (r *Registry) Register(p providers.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[p.Name()] = p
}

// Unregister removes a provider, e.g. when it is disabled in configuration.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, name)
}

func (r *Registry) Get(name string) (providers.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.instances[name]
	return p, ok
}

// All returns every registered provider in no particular order.
func (r *Registry) All() []providers.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]providers.Provider, 0, len(r.instances))
	for _, p := range r.instances {
		out = append(out, p)
	}
	return out
}

// WithCapability returns every registered provider whose Capabilities
// satisfy pred, e.g. SupportsSearch or a specific AssetType membership.
func (r *Registry) WithCapability(pred func(providers.Capabilities) bool) []providers.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []providers.Provider
	for _, p := range r.instances {
		if pred(p.Capabilities()) {
			out = append(out, p)
		}
	}
	return out
}

// SupportingSearch returns providers that can take a title/year query.
func (r *Registry) SupportingSearch() []providers.Provider {
	return r.WithCapability(func(c providers.Capabilities) bool { return c.SupportsSearch })
}

// SupportingMetadata returns providers that can enrich a matched entity.
func (r *Registry) SupportingMetadata() []providers.Provider {
	return r.WithCapability(func(c providers.Capabilities) bool { return c.SupportsMetadata })
}

// SupportingAsset returns providers that can supply a specific asset type.
func (r *Registry) SupportingAsset(assetType models.AssetType) []providers.Provider {
	return r.WithCapability(func(c providers.Capabilities) bool {
		for _, at := range c.AssetTypes {
			if at == assetType {
				return true
			}
		}
		return false
	})
}
