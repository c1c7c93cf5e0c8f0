// Package hooks implements per-engine listener registries, replacing the
// static mutable event lists the teacher's source pattern relies on
// (spec.md §9). Each Engine owns its own Registry per hook; registration
// is safe to call concurrently with Snapshot, since Snapshot copies the
// listener slice under lock before the caller iterates it — so listeners
// registered from a worker thread mid-iteration are tolerated without
// racing the iterator.
package hooks

import "sync"

// Registry is a thread-safe, append-only (until Clear) list of listeners
// of type F. F is typically a function type.
type Registry[F any] struct {
	mu        sync.Mutex
	listeners []F
}

// Register appends a listener.
func (r *Registry[F]) Register(f F) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, f)
}

// Snapshot returns a copy of the current listener list, safe to iterate
// without holding any lock — the caller may be invoking user code
// (onPathPreSearch et al. are documented reentrant) that registers more
// listeners mid-iteration.
func (r *Registry[F]) Snapshot() []F {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]F, len(r.listeners))
	copy(out, r.listeners)
	return out
}

// Clear removes every listener. Used by Engine.Destroy to null out every
// registry.
func (r *Registry[F]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = nil
}

// Len reports how many listeners are registered.
func (r *Registry[F]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}
