// Package pathid implements PathIdGenerator: a 16-bit rolling path
// identifier with an overflow callback (spec.md §4.3). Path ids are stored
// once per node in a PathHandler as a "visited this search" marker, so 16
// bits keeps that compact; 0 is reserved as invalid/sentinel and never
// issued.
package pathid

import "sync"

// OverflowFunc is invoked exactly once per wrap from 65535 back to 1, then
// cleared so subscribers must re-register. Per spec.md §9 Open Question
// (b), implementations of this callback are expected to enqueue a reset of
// every node's last-seen path-id before id reuse can cause stale-visit
// reads; Generator itself does not do this — its owner wires the reset via
// SetOverflow.
type OverflowFunc func()

// Generator is main-thread-only (or equivalently blocked-window-only), per
// spec.md §5.
type Generator struct {
	mu       sync.Mutex
	current  uint16
	overflow OverflowFunc
}

// New creates a Generator that will issue 1 as its first id.
func New() *Generator {
	return &Generator{current: 0}
}

// SetOverflow registers the callback fired on the next 65535->1 wrap. The
// callback is cleared immediately after firing, so a caller that wants to
// be notified of every wrap must re-register from inside the callback.
func (g *Generator) SetOverflow(f OverflowFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.overflow = f
}

// Next returns the next path id, skipping 0. On wrap, it invokes the
// registered overflow callback (if any) and then clears it, per spec.md
// §4.3.
func (g *Generator) Next() uint16 {
	g.mu.Lock()

	g.current++
	var cb OverflowFunc
	if g.current == 0 {
		// wrapped past 65535; 0 is the sentinel, so advance once more.
		cb = g.overflow
		g.overflow = nil
		g.current = 1
	}
	id := g.current
	g.mu.Unlock()

	// cb is invoked after releasing g.mu: the callback is expected to
	// re-register itself via SetOverflow (spec.md §9 Open Question (b)),
	// and SetOverflow takes the same non-reentrant mutex.
	if cb != nil {
		cb()
	}
	return id
}

// Current returns the most recently issued id, for diagnostics.
func (g *Generator) Current() uint16 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}
