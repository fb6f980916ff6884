package data

import (
	"sync"

	"github.com/qqsync/webui-bridge/internal/biz/repo"
)

// ComponentRegistry is an in-process implementation of repo.Registry.
// Components register under a name at startup and may come and go at
// runtime; the adapter probes through Lookup on every cache expiry.
type ComponentRegistry struct {
	mu         sync.RWMutex
	components map[string]repo.Capability
}

// NewComponentRegistry creates an empty registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{components: make(map[string]repo.Capability)}
}

// Register attaches a component under name, replacing any previous one.
func (r *ComponentRegistry) Register(name string, c repo.Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[name] = c
}

// Deregister detaches the named component.
func (r *ComponentRegistry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.components, name)
}

// Lookup resolves the named component.
func (r *ComponentRegistry) Lookup(name string) (repo.Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	return c, ok
}
