// Package workitem implements the WorkItemRunner from spec.md §4.5: the
// serial, main-thread-only executor of deferred operations that may only
// run while every SearchWorker is quiesced.
package workitem

import (
	"github.com/dd0wney/pathengine/internal/logging"
	"github.com/dd0wney/pathengine/internal/perr"
)

// Item is one deferred operation. Init runs exactly once before the
// first Update call; Update returns true when the item is complete and
// may be called across multiple Runner.Run invocations for long-running
// operations.
type Item struct {
	Init   func()
	Update func() (done bool)

	initDone bool
}

// OneShot wraps a plain function as a single-update work item.
func OneShot(fn func()) *Item {
	return &Item{Update: func() bool { fn(); return true }}
}

// Resumable builds a work item from an init closure and a step closure
// called repeatedly until it reports done.
func Resumable(init func(), step func() bool) *Item {
	return &Item{Init: init, Update: step}
}

// Runner processes Items strictly in enqueue order, one at a time, and
// only while the caller holds the quiescence window (spec.md §4.5/§5).
// Items may enqueue further items; Run detects and rejects reentrant
// calls rather than allowing nested execution.
type Runner struct {
	queue []*Item

	running bool

	pendingFloodFill bool
	heuristicDirty   bool

	log logging.Logger
}

// New constructs an empty Runner.
func New(log logging.Logger) *Runner {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Runner{log: log}
}

// Enqueue appends an item to the back of the queue. Safe to call from
// Run itself (an item's Update may enqueue more work), but not safe to
// call concurrently with Run from another goroutine — the caller must
// only do so inside the blocked window, same as Run.
func (r *Runner) Enqueue(item *Item) {
	r.queue = append(r.queue, item)
}

// MarkDirtyConnectivity flags that a just-processed item changed graph
// connectivity; FloodFiller will be run once the queue drains.
func (r *Runner) MarkDirtyConnectivity() { r.pendingFloodFill = true }

// MarkHeuristicDirty flags that edge costs need a single recompute once
// the queue drains.
func (r *Runner) MarkHeuristicDirty() { r.heuristicDirty = true }

// Run steps through the queue in order, calling each item's Init once
// and one Update per item per call, completing items as it goes. An
// item whose Update returns false stays at the front of the queue and
// Run returns immediately, so order is preserved and the item resumes
// on the next call — this is how a long-running item spans multiple
// ticks. If force is true, an incomplete Update is instead a fatal logic
// error (spec.md §4.5). floodFill and recomputeHeuristic are invoked at
// most once each, only once the queue has fully drained, and their
// corresponding flags are cleared.
//
// Run must not be called while already running; doing so returns
// perr.ErrNestedWorkItem without mutating the queue.
func (r *Runner) Run(force bool, floodFill func(), recomputeHeuristic func()) error {
	if r.running {
		r.log.Error("nested WorkItemRunner.Run detected")
		return perr.ErrNestedWorkItem
	}
	r.running = true
	defer func() { r.running = false }()

	for len(r.queue) > 0 {
		item := r.queue[0]

		if !item.initDone {
			if item.Init != nil {
				item.Init()
			}
			item.initDone = true
		}

		if done := item.Update(); done {
			r.queue = r.queue[1:]
			continue
		}

		if force {
			return perr.ErrForceIncomplete
		}
		// Leave the item at the front so enqueue order is preserved;
		// resume it on the next Run call rather than spinning here.
		return nil
	}

	if r.pendingFloodFill {
		if floodFill != nil {
			floodFill()
		}
		r.pendingFloodFill = false
	}
	if r.heuristicDirty {
		if recomputeHeuristic != nil {
			recomputeHeuristic()
		}
		r.heuristicDirty = false
	}
	return nil
}

// Len reports the number of items still queued (including an
// in-progress resumable item left at the front after an incomplete
// Update).
func (r *Runner) Len() int { return len(r.queue) }
