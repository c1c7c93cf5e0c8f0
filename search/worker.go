package search

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/dd0wney/pathengine/internal/logging"
	"github.com/dd0wney/pathengine/path"
)

// Popper is the subset of pathqueue.PathQueue a threaded worker needs to
// pull work and observe shutdown.
type Popper interface {
	PopBlocking() (*path.Path, error)
	Terminating() bool
	Terminate()
}

// ReturnSink is the subset of returns.Pipeline a worker pushes completed
// paths onto.
type ReturnSink interface {
	Push(p *path.Path)
}

// Hooks bundles the worker-visible listener registries. Listeners are
// invoked from worker goroutines and must be reentrant (spec.md §6).
type Hooks struct {
	OnPathPreSearch  func(*path.Path)
	OnPathPostSearch func(*path.Path)
}

// Worker runs one threaded SearchWorker: pop a path, drive it to
// completion against its own PathHandler, push it onto the return
// pipeline, repeat until the queue terminates.
type Worker struct {
	ID      int
	Handler *path.PathHandler

	queue        Popper
	sink         ReturnSink
	hooks        Hooks
	maxFrameTime func() time.Duration
	log          logging.Logger
}

// NewWorker constructs a threaded worker. maxFrameTime is called on every
// yield so live tuning of the per-iteration budget takes effect
// immediately (spec.md §4.2).
func NewWorker(id int, handler *path.PathHandler, queue Popper, sink ReturnSink, hooks Hooks, maxFrameTime func() time.Duration, log logging.Logger) *Worker {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Worker{ID: id, Handler: handler, queue: queue, sink: sink, hooks: hooks, maxFrameTime: maxFrameTime, log: log}
}

// Run is the worker's goroutine body. It returns when the queue
// terminates or after recovering a fatal panic from the search loop,
// which is treated identically: mark the in-flight path errored and push
// it for return, then exit.
func (w *Worker) Run() {
	w.log.Info("worker starting", logging.WorkerID(w.ID))
	defer w.log.Info("worker stopped", logging.WorkerID(w.ID))

	for {
		p, err := w.queue.PopBlocking()
		if err != nil {
			return // ErrTerminated: clean exit, no retry.
		}
		w.runOnePath(p)
	}
}

func (w *Worker) runOnePath(p *path.Path) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("unhandled panic in search loop, terminating engine",
				logging.WorkerID(w.ID), logging.PathID(p.ID),
				logging.Any("panic", r), logging.String("stack", string(debug.Stack())))
			p.SetError()
			w.finish(p)
			w.queue.Terminate()
		}
	}()

	p.AdvanceState(path.Processing)
	p.Search.PrepareBase(w.Handler)

	if listener := w.hooks.OnPathPreSearch; listener != nil {
		listener(p)
	}

	if done := p.Search.Prepare(); done {
		// Prepare short-circuited (invalid start/end): skip Initialize,
		// emit the same completion path (spec.md §4.2).
		w.finish(p)
		return
	}

	p.Search.Initialize()

	for {
		target := time.Now().Add(w.maxFrameTime())
		if p.Search.CalculateStep(target) {
			break
		}
		if w.queue.Terminating() {
			p.SetError()
			break
		}
		// Threaded worker: yield the OS thread between iterations so a
		// long search doesn't starve other goroutines.
		yieldThreaded()
	}

	w.finish(p)
}

func (w *Worker) finish(p *path.Path) {
	p.Search.Cleanup()
	if listener := w.hooks.OnPathPostSearch; listener != nil {
		listener(p)
	}
	p.AdvanceState(path.ReturnQueue)
	w.sink.Push(p)
}

// yieldThreaded hands the OS thread back to the scheduler. runtime.Gosched
// is Go's equivalent of the source's "sleep/zero-yield for threaded"
// policy (spec.md §4.2); time.Sleep(0) would return without yielding.
func yieldThreaded() {
	runtime.Gosched()
}
