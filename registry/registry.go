// Package registry maps platform names to notifier constructors, decoupling
// which platforms exist from how the bridge talks to them.
//
// An external discovery mechanism (static list, dependency injection,
// whatever the host application prefers) is expected to populate a registry
// before the first send; the framework itself only depends on the read
// interface.
package registry

import (
	"slices"
	"sync"

	"github.com/loonghao/notify-bridge-go/errors"
	"github.com/loonghao/notify-bridge-go/httpclient"
	"github.com/loonghao/notify-bridge-go/notifier"
)

// Constructor produces a notifier instance bound to the given HTTP client
// configuration. A nil config means platform defaults.
type Constructor func(cfg *httpclient.Config) (notifier.Notifier, error)

// Registry is a name→constructor mapping. Names are case-sensitive and
// unique within one registry; re-registering a name replaces the prior entry.
// Safe for concurrent use: lookups take a read lock, mutation an exclusive
// one (mutation is expected to be rare, typically only at startup).
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
	order []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register stores the (name, constructor) pair. Overwriting an existing name
// is allowed and not an error: last registration wins, supporting built-in
// defaults overridden by callers. A replaced name keeps its original
// position in List.
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[name]; !exists {
		r.order = append(r.order, name)
	}
	r.ctors[name] = ctor
}

// Unregister removes the entry if present; removing an absent name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[name]; !exists {
		return
	}
	delete(r.ctors, name)
	if i := slices.Index(r.order, name); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

// Lookup returns the constructor for name.
func (r *Registry) Lookup(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[name]
	return ctor, ok
}

// Create looks up the constructor for name and invokes it with cfg.
func (r *Registry) Create(name string, cfg *httpclient.Config) (notifier.Notifier, error) {
	ctor, ok := r.Lookup(name)
	if !ok {
		return nil, errors.Newf("notifier %q not found", name).
			Category(errors.CategoryNotFound).
			Notifier(name).
			Build()
	}
	n, err := ctor(cfg)
	if err != nil {
		return nil, errors.Newf("constructor for %q failed: %s", name, err).
			Category(errors.CategoryPlugin).
			Notifier(name).
			Build()
	}
	if n == nil {
		return nil, errors.Newf("constructor for %q returned no notifier", name).
			Category(errors.CategoryPlugin).
			Notifier(name).
			Build()
	}
	return n, nil
}

// List returns a snapshot of registered names in insertion order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ctors)
}
