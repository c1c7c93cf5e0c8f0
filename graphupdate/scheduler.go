// Package graphupdate implements the GraphUpdateScheduler from spec.md
// §4.6: batches graph-mutation requests, rate-limits flushes, classifies
// each update by threading requirement, and dispatches it to the right
// half of the pipeline.
package graphupdate

import (
	"time"

	"github.com/dd0wney/pathengine/internal/graph"
	"github.com/dd0wney/pathengine/internal/logging"
)

// phase distinguishes which half of an update a queued entry represents.
type phase int

const (
	phaseFull     phase = iota // both Init and body run in this dispatch
	phaseInitOnly              // main-thread Init half of a split update
	phaseBodyOnly              // async body half of a split update
)

type entry struct {
	update graph.Update
	graph  graph.Graph
	phase  phase
}

type delayedEntry struct {
	entry
	readyAt time.Time
}

// Scheduler batches GraphUpdateObjects across two sub-queues — regular
// (main-thread work) and async (the async graph-update thread's work) —
// and flushes them under a rate limit that a direct Flush call overrides.
type Scheduler struct {
	rateLimited bool
	minInterval time.Duration
	lastFlush   time.Time
	haveFlushed bool

	regular []entry
	async   []entry
	delayed []delayedEntry

	log logging.Logger
}

// New constructs a Scheduler. When rateLimited is true, flushes within
// minInterval of the previous one are deferred until ReadyToFlush
// reports true, unless the caller calls Flush directly.
func New(rateLimited bool, minInterval time.Duration, log logging.Logger) *Scheduler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Scheduler{rateLimited: rateLimited, minInterval: minInterval, log: log}
}

// Enqueue classifies update against g and routes it to the regular or
// async sub-queue (or both, for a split SeparateAndUnityInit update),
// taking effect on the next Flush.
func (s *Scheduler) Enqueue(update graph.Update, g graph.Graph) {
	s.route(update, g)
}

// EnqueueDelayed schedules update to become eligible for routing only
// once delay has elapsed past now. A Flush call before then will not see
// it; Tick (or Flush itself) promotes it once ready.
func (s *Scheduler) EnqueueDelayed(update graph.Update, g graph.Graph, delay time.Duration, now time.Time) {
	s.delayed = append(s.delayed, delayedEntry{entry: entry{update: update, graph: g}, readyAt: now.Add(delay)})
}

func (s *Scheduler) route(update graph.Update, g graph.Graph) {
	switch g.ThreadingClassFor(update) {
	case graph.UnityThread:
		s.regular = append(s.regular, entry{update: update, graph: g, phase: phaseFull})
	case graph.SeparateAndUnityInit:
		s.regular = append(s.regular, entry{update: update, graph: g, phase: phaseInitOnly})
	case graph.SeparateThread:
		s.async = append(s.async, entry{update: update, graph: g, phase: phaseFull})
	}
}

func (s *Scheduler) promoteDelayed(now time.Time) {
	if len(s.delayed) == 0 {
		return
	}
	remaining := s.delayed[:0]
	for _, d := range s.delayed {
		if now.Before(d.readyAt) {
			remaining = append(remaining, d)
			continue
		}
		s.route(d.update, d.graph)
	}
	s.delayed = remaining
}

// Pending reports whether any update is queued or waiting on a delay,
// regardless of the rate limit. FlushGraphUpdates uses this to make a
// second, no-op flush call cheap (spec.md §8 round-trip property).
func (s *Scheduler) Pending() bool {
	return len(s.regular) > 0 || len(s.async) > 0 || len(s.delayed) > 0
}

// ReadyToFlush reports whether an automatic flush is due: something is
// waiting, and either rate-limiting is disabled, no flush has happened
// yet, or minInterval has elapsed since the last flush.
func (s *Scheduler) ReadyToFlush(now time.Time) bool {
	if len(s.regular) == 0 && len(s.async) == 0 && len(s.delayed) == 0 {
		return false
	}
	if !s.rateLimited || !s.haveFlushed {
		return true
	}
	return now.Sub(s.lastFlush) >= s.minInterval
}

// Result summarizes one Flush call.
type Result struct {
	UpdatesApplied  int
	FloodFillNeeded bool
}

// Flush drains both sub-queues unconditionally, ignoring the rate limit
// (spec.md §4.6: "A Flush call overrides the rate limit"). Async-bound
// work for any split update enqueued during this flush's main-thread
// pass is drained within the same call, since this scheduler has no
// standing async thread of its own — the caller decides whether to run
// Flush from a worker goroutine.
func (s *Scheduler) Flush(now time.Time) Result {
	s.promoteDelayed(now)
	s.lastFlush = now
	s.haveFlushed = true

	var result Result

	// Async-queued work (pure SeparateThread updates, plus any
	// phaseBodyOnly continuations from a prior flush) drains first, so a
	// single graph never observes a main-thread update from this flush
	// before an async one enqueued earlier (spec.md §4.6).
	s.drainAsync(&result)

	pendingBodies := s.drainRegular(&result)
	s.async = append(s.async, pendingBodies...)
	s.drainAsync(&result)

	return result
}

func (s *Scheduler) drainAsync(result *Result) {
	for _, e := range s.async {
		if e.update.RequiresFloodFill() {
			result.FloodFillNeeded = true
		}
		s.applyAsync(e)
		result.UpdatesApplied++
	}
	s.async = s.async[:0]
}

func (s *Scheduler) drainRegular(result *Result) []entry {
	var bodies []entry
	for _, e := range s.regular {
		if e.update.RequiresFloodFill() {
			result.FloodFillNeeded = true
		}
		if err := e.graph.UpdateAreaInit(e.update); err != nil {
			s.log.Error("graph update init failed", logging.Error(err))
			continue
		}
		switch e.phase {
		case phaseFull:
			if err := e.graph.UpdateArea(e.update); err != nil {
				s.log.Error("graph update body failed", logging.Error(err))
			}
			result.UpdatesApplied++
		case phaseInitOnly:
			bodies = append(bodies, entry{update: e.update, graph: e.graph, phase: phaseBodyOnly})
		}
	}
	s.regular = s.regular[:0]
	return bodies
}

func (s *Scheduler) applyAsync(e entry) {
	if e.phase == phaseFull {
		if err := e.graph.UpdateAreaInit(e.update); err != nil {
			s.log.Error("async graph update init failed", logging.Error(err))
			return
		}
	}
	if err := e.graph.UpdateArea(e.update); err != nil {
		s.log.Error("async graph update body failed", logging.Error(err))
	}
}
