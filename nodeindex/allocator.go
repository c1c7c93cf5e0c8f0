// Package nodeindex implements NodeIndexAllocator: a monotonic allocator of
// dense integer node handles with a free-list for reuse (spec.md §4.4).
// It is main-thread-only (equivalently, blocked-window-only): Destroy must
// never run concurrently with a SearchWorker holding the index.
package nodeindex

import (
	"github.com/dd0wney/pathengine/internal/graph"
)

// GrowListener is notified whenever a new index is allocated, so each
// worker's PathHandler can grow its per-node table in lockstep. Notified
// only inside the blocked window (spec.md §4.4).
type GrowListener interface {
	GrowTo(n int)
}

// Allocator hands out dense NodeIndex values starting at 1 (0 is the
// sentinel, never issued) and reclaims them via a LIFO free-list.
type Allocator struct {
	next     int32
	freeList []graph.NodeIndex
	listeners []GrowListener
}

// New creates an allocator with no indices issued yet.
func New() *Allocator {
	return &Allocator{next: 1}
}

// RegisterGrowListener adds l to the set notified on Allocate.
func (a *Allocator) RegisterGrowListener(l GrowListener) {
	a.listeners = append(a.listeners, l)
}

// Allocate returns a fresh NodeIndex, preferring the free-list, and
// broadcasts a GrowTo to every registered listener so each worker's
// PathHandler can extend its table. Must only be called in the blocked
// window.
func (a *Allocator) Allocate() graph.NodeIndex {
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		return idx
	}
	idx := graph.NodeIndex(a.next)
	a.next++
	for _, l := range a.listeners {
		l.GrowTo(int(a.next) - 1)
	}
	return idx
}

// Destroy returns idx to the free-list for reuse. Must only be called in
// the blocked window: while any SearchWorker holds a reference to idx, it
// must not be re-issued (spec.md §3 invariant).
func (a *Allocator) Destroy(idx graph.NodeIndex) {
	if idx == 0 {
		return
	}
	a.freeList = append(a.freeList, idx)
}

// Allocated reports how many indices have ever been issued (the live
// range's upper bound), for sizing per-worker tables.
func (a *Allocator) Allocated() int {
	return int(a.next) - 1
}

// FreeListLen reports the number of reclaimed indices awaiting reuse, for
// metrics and tests.
func (a *Allocator) FreeListLen() int {
	return len(a.freeList)
}
