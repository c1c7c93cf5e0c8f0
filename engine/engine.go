// Package engine implements Engine, the top-level lifecycle owner from
// spec.md §4.9: Initialize, Scan, Tick, WaitForPath, Destroy, plus the
// public surface (StartPath, UpdateGraphs, FlushGraphUpdates,
// RegisterSafeUpdate, GetNearest, FloodFill).
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/pathengine/floodfill"
	"github.com/dd0wney/pathengine/graphupdate"
	"github.com/dd0wney/pathengine/hooks"
	"github.com/dd0wney/pathengine/internal/config"
	"github.com/dd0wney/pathengine/internal/graph"
	"github.com/dd0wney/pathengine/internal/logging"
	"github.com/dd0wney/pathengine/internal/metrics"
	"github.com/dd0wney/pathengine/internal/perr"
	"github.com/dd0wney/pathengine/nodeindex"
	"github.com/dd0wney/pathengine/path"
	"github.com/dd0wney/pathengine/pathid"
	"github.com/dd0wney/pathengine/pathqueue"
	"github.com/dd0wney/pathengine/returns"
	"github.com/dd0wney/pathengine/search"
	"github.com/dd0wney/pathengine/workitem"
)

// Engine owns every core subsystem and is the only type application code
// constructs directly. Not restartable after Destroy (spec.md §7): build
// a new Engine instead.
type Engine struct {
	cfg     config.EngineConfig
	log     logging.Logger
	metrics *metrics.Registry

	graphs []graph.Graph

	queue          *pathqueue.PathQueue
	allocator      *nodeindex.Allocator
	idGen          *pathid.Generator
	returnPipeline *returns.Pipeline
	runner         *workitem.Runner
	scheduler      *graphupdate.Scheduler
	floodFiller    *floodfill.FloodFiller

	handlers    []*path.PathHandler
	workers     []*search.Worker
	cooperative *search.Cooperative
	workerWG    sync.WaitGroup

	safeMu        sync.Mutex
	safeCallbacks []func()

	userOverflowCB func()

	heuristicRecompute func()

	waitDepth   atomic.Int32
	destroying  atomic.Bool
	initialized bool

	onAwakeSettings  hooks.Registry[func()]
	onGraphPreScan   hooks.Registry[func(graph.Graph)]
	onGraphPostScan  hooks.Registry[func(graph.Graph)]
	onPathPreSearch  hooks.Registry[func(*path.Path)]
	onPathPostSearch hooks.Registry[func(*path.Path)]
	onPreScan        hooks.Registry[func()]
	onPostScan       hooks.Registry[func()]
	onLatePostScan   hooks.Registry[func()]
	onGraphsUpdated  hooks.Registry[func()]
}

// New constructs an Engine over graphs, unstarted until Initialize.
// metricsReg may be nil; log may be nil (defaults to a no-op logger).
func New(cfg config.EngineConfig, graphs []graph.Graph, log logging.Logger, metricsReg *metrics.Registry) *Engine {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Engine{cfg: cfg, log: log, metrics: metricsReg, graphs: graphs}
}

// RegisterOn65kOverflow sets the one-shot listener fired the next time the
// PathIdGenerator wraps. Per spec.md §4.3/§9, it is cleared once fired; a
// caller that wants to hear about every wrap must re-register from inside
// the callback.
func (e *Engine) RegisterOn65kOverflow(fn func()) { e.userOverflowCB = fn }

// RegisterHeuristicRecompute wires the single callback run once per
// blocked window when the heuristic-embedding dirty flag is set (spec.md
// §4.5). The engine has no heuristic-embedding component of its own;
// supplying this lets a caller's search implementation hook the recompute.
func (e *Engine) RegisterHeuristicRecompute(fn func()) { e.heuristicRecompute = fn }

// MarkHeuristicDirty flags that edge costs need recomputation before the
// next Unblock.
func (e *Engine) MarkHeuristicDirty() { e.runner.MarkHeuristicDirty() }

// OnAwakeSettings, OnGraphPreScan, and the remaining hook accessors expose
// the per-engine listener registries named in spec.md §6.
func (e *Engine) OnAwakeSettings() *hooks.Registry[func()]            { return &e.onAwakeSettings }
func (e *Engine) OnGraphPreScan() *hooks.Registry[func(graph.Graph)]  { return &e.onGraphPreScan }
func (e *Engine) OnGraphPostScan() *hooks.Registry[func(graph.Graph)] { return &e.onGraphPostScan }
func (e *Engine) OnPathPreSearch() *hooks.Registry[func(*path.Path)]  { return &e.onPathPreSearch }
func (e *Engine) OnPathPostSearch() *hooks.Registry[func(*path.Path)] { return &e.onPathPostSearch }
func (e *Engine) OnPreScan() *hooks.Registry[func()]                  { return &e.onPreScan }
func (e *Engine) OnPostScan() *hooks.Registry[func()]                 { return &e.onPostScan }
func (e *Engine) OnLatePostScan() *hooks.Registry[func()]             { return &e.onLatePostScan }
func (e *Engine) OnGraphsUpdated() *hooks.Registry[func()]            { return &e.onGraphsUpdated }

// Initialize computes the worker count from cfg's hint, allocates one
// PathHandler per worker, constructs the PathQueue with one registered
// receiver per threaded worker, and
// starts worker goroutines (or a single cooperative worker when the hint
// resolves to zero). Idempotent: a second call is a no-op.
func (e *Engine) Initialize() error {
	if e.initialized {
		return nil
	}

	e.queue = pathqueue.New()
	e.allocator = nodeindex.New()
	e.idGen = pathid.New()
	e.idGen.SetOverflow(e.onPathIDOverflow)
	e.returnPipeline = returns.New(e.cfg.ReturnDrainBudget, e.cfg.MinReturnsPerDrain)
	e.runner = workitem.New(e.log)
	e.scheduler = graphupdate.New(e.cfg.GraphUpdateMinInterval > 0, e.cfg.GraphUpdateMinInterval, e.log)
	e.floodFiller = floodfill.New(e.cfg.FloodFillMinAreaSize, e.cfg.FloodFillMaxAreaIndex, e.log)

	workerCount := e.cfg.ResolveWorkers()
	searchHooks := e.buildSearchHooks()

	if workerCount == 0 {
		handler := path.NewPathHandler(0)
		e.allocator.RegisterGrowListener(handler)
		e.handlers = []*path.PathHandler{handler}
		e.cooperative = search.NewCooperative(handler, e.queue, e.returnPipeline, searchHooks, e.log)
	} else {
		for i := 0; i < workerCount; i++ {
			handler := path.NewPathHandler(i)
			e.allocator.RegisterGrowListener(handler)
			e.handlers = append(e.handlers, handler)
			e.queue.RegisterReceiver()
			e.workers = append(e.workers, search.NewWorker(i, handler, e.queue, e.returnPipeline, searchHooks, e.maxFrameTime, e.log))
		}
		for _, w := range e.workers {
			e.workerWG.Add(1)
			go func(w *search.Worker) {
				defer e.workerWG.Done()
				w.Run()
			}(w)
		}
	}

	e.initialized = true
	if e.metrics != nil {
		e.metrics.ReceiverCount.Set(float64(workerCount))
	}
	return nil
}

func (e *Engine) maxFrameTime() time.Duration { return e.cfg.MaxFrameTime }

func (e *Engine) buildSearchHooks() search.Hooks {
	return search.Hooks{
		OnPathPreSearch: func(p *path.Path) {
			for _, l := range e.onPathPreSearch.Snapshot() {
				l(p)
			}
		},
		OnPathPostSearch: func(p *path.Path) {
			for _, l := range e.onPathPostSearch.Snapshot() {
				l(p)
			}
		},
	}
}

// onPathIDOverflow is the PathIdGenerator's overflow callback. It enqueues
// the node-reset work item spec.md §9 Open Question (b) requires, fires
// the user-registered one-shot listener if any, then re-subscribes itself
// so the engine keeps handling every subsequent wrap.
func (e *Engine) onPathIDOverflow() {
	e.runner.Enqueue(workitem.OneShot(func() {
		for _, h := range e.handlers {
			h.ResetAll()
		}
	}))
	if cb := e.userOverflowCB; cb != nil {
		e.userOverflowCB = nil
		cb()
	}
	e.idGen.SetOverflow(e.onPathIDOverflow)
}

// NextPathID issues the next id from the engine's PathIdGenerator. Callers
// that build their own Search implementations need this up front, since a
// Search is constructed before the Path that carries its id.
func (e *Engine) NextPathID() uint16 { return e.idGen.Next() }

// StartPath hands p to the engine. p must be in the Created state.
func (e *Engine) StartPath(p *path.Path, pushToFront bool) error {
	if e.queue.Terminating() {
		return perr.ErrShuttingDown
	}
	if len(e.graphs) == 0 {
		return perr.ErrNoGraphs
	}
	if p.State() != path.Created {
		return perr.ErrPathNotCreated
	}

	p.Retain()
	if e.metrics != nil {
		e.metrics.PathsStarted.Inc()
	}
	if pushToFront {
		return e.queue.PushFront(p)
	}
	return e.queue.Push(p)
}

// Scan quiesces all workers, rebuilds every graph from source, re-assigns
// graph indices, runs the scan hooks, flood-fills, and unblocks.
func (e *Engine) Scan() error {
	if len(e.graphs) == 0 {
		return perr.ErrNoGraphs
	}

	e.blockUntilQuiesced()
	defer e.queue.Unblock()

	for _, l := range e.onPreScan.Snapshot() {
		l()
	}

	e.allocator = nodeindex.New()
	for _, h := range e.handlers {
		e.allocator.RegisterGrowListener(h)
	}

	for idx, g := range e.graphs {
		for _, l := range e.onGraphPreScan.Snapshot() {
			l(g)
		}
		if err := g.Scan(func(float64) {}); err != nil {
			return perr.Wrap("Scan", "graph", uint64(idx), err)
		}
		g.SetGraphIndex(uint8(idx))
		for _, l := range e.onGraphPostScan.Snapshot() {
			l(g)
		}
	}

	for _, l := range e.onPostScan.Snapshot() {
		l()
	}

	e.runFloodFill()

	for _, l := range e.onLatePostScan.Snapshot() {
		l()
	}
	return nil
}

// blockUntilQuiesced sets the PathQueue's blocking flag and spin-waits
// (1ms sleeps, per spec.md §5) until every receiver is parked.
func (e *Engine) blockUntilQuiesced() {
	e.queue.Block()
	for !e.queue.AllReceiversBlocked() {
		time.Sleep(time.Millisecond)
	}
}

// Tick advances the cooperative worker (if any) one step, opportunistically
// performs the blocked-window maintenance pass, drains terminated queued
// paths if the engine has been Terminate-d, then drains the return
// pipeline unconditionally within its own time budget (spec.md §2, §4.9).
func (e *Engine) Tick() {
	if e.cooperative != nil {
		e.cooperative.Step(e.cfg.MaxFrameTime)
	}

	e.performBlocking()

	if e.queue.Terminating() {
		for _, p := range e.queue.DrainTerminated() {
			e.returnPath(p)
		}
	}

	n := e.returnPipeline.Drain(e.returnPath)
	if e.metrics != nil && n > 0 {
		e.metrics.ReturnDrainBatch.Observe(float64(n))
	}
}

// returnPath records per-path metrics (outcome, search duration) before
// handing p to its callback. The only path through which the engine ever
// completes a Path, threaded or cooperative, queued or in-flight.
func (e *Engine) returnPath(p *path.Path) {
	if e.metrics != nil {
		outcome := "ok"
		if p.Errored() {
			outcome = "error"
		}
		e.metrics.PathsReturned.WithLabelValues(outcome).Inc()
		if p.Duration() > 0 {
			e.metrics.PathSearchDuration.Observe(p.Duration().Seconds())
		}
	}
	p.ReturnPath()
}

// performBlocking attempts the blocked window: if every receiver is
// parked, it drains returns, runs any pending thread-safe callback, and
// executes work items until a yield point, then unblocks. If quiescence
// isn't achieved, it unblocks immediately rather than starving workers.
func (e *Engine) performBlocking() {
	e.queue.Block()
	if e.metrics != nil {
		e.metrics.QueueDepth.Set(float64(e.queue.Len()))
	}
	if !e.queue.AllReceiversBlocked() {
		e.queue.Unblock()
		return
	}

	e.returnPipeline.Drain(e.returnPath)
	e.runPendingSafeCallbacks()

	now := time.Now()
	if e.scheduler.ReadyToFlush(now) {
		e.applyGraphUpdates(now)
	}

	start := time.Now()
	if err := e.runner.Run(false, func() { e.runFloodFill() }, e.recomputeHeuristicIfDirty); err != nil {
		e.log.Error("work item runner error", logging.Error(err))
	}
	if e.metrics != nil {
		e.metrics.WorkItemRunDuration.Observe(time.Since(start).Seconds())
	}

	e.queue.Unblock()
}

// runFloodFill re-labels every graph's connected components and records
// the resulting count. Called after a Scan, after a graph update that
// reports RequiresFloodFill, and on demand via FloodFill.
func (e *Engine) runFloodFill() int {
	n := e.floodFiller.Run(e.graphs)
	if e.metrics != nil {
		e.metrics.FloodFillComponents.Set(float64(n))
		e.metrics.FloodFillRuns.Inc()
	}
	return n
}

func (e *Engine) recomputeHeuristicIfDirty() {
	if e.heuristicRecompute != nil {
		e.heuristicRecompute()
	}
}

func (e *Engine) runPendingSafeCallbacks() {
	e.safeMu.Lock()
	cbs := e.safeCallbacks
	e.safeCallbacks = nil
	e.safeMu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

// RegisterSafeUpdate appends callback to the thread-safe-callback slot and
// requests a blocked window so it runs at the next opportunity. Per
// spec.md §9 Open Question (c), a mutex (not a bare append) protects the
// slot, and Block is called after the append completes.
func (e *Engine) RegisterSafeUpdate(callback func()) {
	e.safeMu.Lock()
	e.safeCallbacks = append(e.safeCallbacks, callback)
	e.safeMu.Unlock()
	e.queue.Block()
}

// WaitForPath blocks the calling goroutine (spin-waiting with 1ms sleeps)
// until p reaches Returned, draining the return pipeline as it goes. It
// warns if re-entered past cfg.WaitForPathWarnDepth and refuses to run
// during teardown.
func (e *Engine) WaitForPath(p *path.Path) error {
	if e.destroying.Load() {
		return perr.ErrDuringTeardown
	}
	if p.State() == path.Created {
		return perr.ErrNotStarted
	}

	depth := e.waitDepth.Add(1)
	defer e.waitDepth.Add(-1)
	if int(depth) >= e.cfg.WaitForPathWarnDepth {
		e.log.Warn("WaitForPath re-entered past warn depth", logging.Count(int(depth)))
	}

	for p.State() != path.Returned {
		e.returnPipeline.Drain(e.returnPath)
		if p.State() != path.Returned {
			time.Sleep(time.Millisecond)
		}
	}
	return nil
}

// UpdateGraphs enqueues update against g, either for the next Flush (delay
// <= 0) or after delay elapses.
func (e *Engine) UpdateGraphs(update graph.Update, g graph.Graph, delay time.Duration) {
	if delay > 0 {
		e.scheduler.EnqueueDelayed(update, g, delay, time.Now())
		return
	}
	e.scheduler.Enqueue(update, g)
}

// FlushGraphUpdates drains the GraphUpdateScheduler, overriding its rate
// limit (spec.md §4.6: "a Flush call overrides the rate limit"). A call
// with nothing queued since the previous Flush is a no-op (spec.md §8).
// Tick also triggers an automatic flush once the rate limit's own
// ReadyToFlush window has elapsed, so callers that never call this
// directly still see updates applied rather than left pending forever.
func (e *Engine) FlushGraphUpdates() error {
	if !e.scheduler.Pending() {
		return nil
	}
	e.applyGraphUpdates(time.Now())
	return nil
}

// applyGraphUpdates runs one Flush and reacts to its Result: counting
// applied updates, re-running flood fill if connectivity may have
// changed, and notifying onGraphsUpdated listeners.
func (e *Engine) applyGraphUpdates(now time.Time) {
	result := e.scheduler.Flush(now)
	if e.metrics != nil {
		e.metrics.GraphUpdatesApplied.WithLabelValues("mixed").Add(float64(result.UpdatesApplied))
	}
	if result.FloodFillNeeded {
		e.runFloodFill()
	}
	for _, l := range e.onGraphsUpdated.Snapshot() {
		l()
	}
}

// FloodFill runs the FloodFiller against every graph immediately. Callers
// normally rely on the automatic post-update and post-scan runs; this is
// for an explicit on-demand recompute.
func (e *Engine) FloodFill() int {
	return e.runFloodFill()
}

// GetNearest finds the nearest node to pos across every graph, honoring
// constraint, NearestMaxDistance, and prioritizeGraphs short-circuiting
// (spec.md §4.10). Ties break toward the earlier graph index.
func (e *Engine) GetNearest(pos graph.Position, constraint graph.Constraint) (graph.NearestInfo, bool) {
	var best graph.NearestInfo
	found := false

	for _, g := range e.graphs {
		info, ok := g.GetNearest(pos, constraint)
		if !ok {
			continue
		}

		if constraint != nil {
			if info.HasConstrained {
				info.Node = info.ConstrainedNode
				info.ClampedPosition = info.ConstrainedPos
			} else if forced, ok2 := g.GetNearestForce(pos, constraint); ok2 {
				info = forced
			} else {
				continue
			}
		}

		if e.cfg.NearestMaxDistance > 0 && info.Distance > e.cfg.NearestMaxDistance {
			continue
		}

		if !found || info.Distance < best.Distance {
			best = info
			found = true
		}

		if e.cfg.NearestPrioritizeGraphs && info.Distance <= e.cfg.NearestPrioritizeGraphsLimit {
			return info, true
		}
	}

	return best, found
}

// Destroy terminates the PathQueue, joins worker goroutines with a short
// timeout, drains every remaining path (queued and in-flight) as errored,
// and clears every hook registry. Idempotent; safe to call more than
// once. The Engine is not usable afterward.
func (e *Engine) Destroy() error {
	if !e.destroying.CompareAndSwap(false, true) {
		return nil
	}

	e.queue.Terminate()
	if e.metrics != nil {
		e.metrics.EngineTerminated.Set(1)
	}

	done := make(chan struct{})
	go func() {
		e.workerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		e.log.Error("workers did not exit within teardown timeout")
	}

	for _, p := range e.queue.DrainTerminated() {
		e.returnPath(p)
	}
	e.returnPipeline.Drain(e.returnPath)

	e.onAwakeSettings.Clear()
	e.onGraphPreScan.Clear()
	e.onGraphPostScan.Clear()
	e.onPathPreSearch.Clear()
	e.onPathPostSearch.Clear()
	e.onPreScan.Clear()
	e.onPostScan.Clear()
	e.onLatePostScan.Clear()
	e.onGraphsUpdated.Clear()

	return nil
}
