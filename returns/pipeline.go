// Package returns implements the ReturnPipeline from spec.md §4.8: the
// lock-free hand-off that lets any number of SearchWorker goroutines
// publish finished Paths without blocking, and lets the main thread drain
// them under its own per-tick time and count budget.
package returns

import (
	"sync/atomic"
	"time"

	"github.com/dd0wney/pathengine/path"
)

// DefaultDrainBudget and DefaultMinReturns mirror internal/config's
// defaults; Pipeline takes its own copies so it has no config dependency.
const (
	DefaultDrainBudget = time.Millisecond
	DefaultMinReturns  = 5
)

// Pipeline is a LIFO, lock-free return queue: workers Push (a
// compare-and-swap loop on the head), and Drain pops the whole batch at
// once and walks it on the main thread.
type Pipeline struct {
	head atomic.Pointer[path.Path]

	// carry holds paths pulled from head in a previous Drain that the
	// time budget didn't get to; they are walked first on the next call
	// so no path waits more than one extra tick past its budgeted slot.
	carry *path.Path

	drainBudget time.Duration
	minReturns  int
}

// New constructs a Pipeline with the given per-drain time budget and
// minimum guaranteed return count (spec.md §4.8: at least minReturns
// paths are always returned even if the budget is exhausted).
func New(drainBudget time.Duration, minReturns int) *Pipeline {
	return &Pipeline{drainBudget: drainBudget, minReturns: minReturns}
}

// Push publishes a completed path. Safe to call concurrently from any
// number of SearchWorker goroutines; never blocks.
func (p *Pipeline) Push(np *path.Path) {
	for {
		old := p.head.Load()
		np.Next = old
		if p.head.CompareAndSwap(old, np) {
			return
		}
	}
}

// Drain walks completed paths calling visit(p) for each, honoring the
// time budget but never returning fewer than minReturns paths while any
// remain. It is only ever called from the main thread.
func (p *Pipeline) Drain(visit func(*path.Path)) int {
	deadline := time.Now().Add(p.drainBudget)
	returned := 0

	next := func() *path.Path {
		if p.carry != nil {
			n := p.carry
			p.carry = n.Next
			n.Next = nil
			return n
		}
		batch := p.head.Swap(nil)
		if batch == nil {
			return nil
		}
		// batch arrived in LIFO (most-recent-first) push order; reverse
		// it into FIFO so paths return roughly in completion order.
		var ordered *path.Path
		for cur := batch; cur != nil; {
			nxt := cur.Next
			cur.Next = ordered
			ordered = cur
			cur = nxt
		}
		n := ordered
		p.carry = n.Next
		n.Next = nil
		return n
	}

	for {
		if returned >= p.minReturns && time.Now().After(deadline) {
			return returned
		}
		cur := next()
		if cur == nil {
			return returned
		}
		visit(cur)
		returned++
	}
}

// Pending reports whether any path is waiting to be drained, without
// consuming it. Intended for diagnostics/metrics only.
func (p *Pipeline) Pending() bool {
	return p.carry != nil || p.head.Load() != nil
}
