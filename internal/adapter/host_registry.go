package adapter

import (
	"sort"
	"sync"

	"gooze.dev/pkg/testbench/internal/loader"
	m "gooze.dev/pkg/testbench/internal/model"
)

// HostRegistry is the host environment: units available to every loading
// context without going through a code source.
type HostRegistry struct {
	mu    sync.RWMutex
	units map[string]*m.Unit
}

// NewHostRegistry returns a registry holding units.
func NewHostRegistry(units ...*m.Unit) *HostRegistry {
	r := &HostRegistry{units: map[string]*m.Unit{}}
	for _, u := range units {
		r.Register(u)
	}

	return r
}

// NewBuiltinHostRegistry returns a registry with the infrastructure units
// shared by every execution.
func NewBuiltinHostRegistry() *HostRegistry {
	var units []*m.Unit

	for _, name := range loader.DefaultPolicy().HostNames {
		units = append(units, &m.Unit{
			Name:     name,
			Origin:   m.OriginHost,
			Manifest: &m.Manifest{Name: name},
		})
	}

	return NewHostRegistry(units...)
}

// Register adds or replaces u.
func (r *HostRegistry) Register(u *m.Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Origin = m.OriginHost
	r.units[u.Name] = u
}

// Lookup implements loader.HostEnvironment.
func (r *HostRegistry) Lookup(name string) (*m.Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.units[name]

	return u, ok
}

// Names returns the registered names in sorted order.
func (r *HostRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.units))
	for name := range r.units {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
