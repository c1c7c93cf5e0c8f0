// Package path implements the Path entity from spec.md §3/§4.2/§6: a
// search request that moves through a strictly monotonic state machine as
// it travels from requester, through a SearchWorker, onto the
// ReturnPipeline, and back to the requester's callback.
package path

import (
	"sync/atomic"
	"time"

	"github.com/dd0wney/pathengine/internal/logging"
)

// State is a Path's position in its lifecycle. States only ever advance;
// see AdvanceState.
type State int32

const (
	Created State = iota
	Queued
	Processing
	ReturnQueue
	Returned
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Queued:
		return "Queued"
	case Processing:
		return "Processing"
	case ReturnQueue:
		return "ReturnQueue"
	case Returned:
		return "Returned"
	default:
		return "Unknown"
	}
}

// Search is the opaque, caller-supplied search algorithm: start, end,
// constraints and heuristic live inside an implementation of this
// interface. The engine never interprets the payload, only drives it
// through these calls (spec.md §6).
type Search interface {
	// PrepareBase binds this search to the worker's scratch memory. Runs
	// once, before Prepare.
	PrepareBase(handler *PathHandler)
	// Prepare may resolve trivial failure (invalid start/end) and return
	// true to signal the search is already done, skipping Initialize.
	Prepare() (done bool)
	// Initialize sets up algorithm state for a non-trivial search.
	Initialize()
	// CalculateStep runs until targetTick is reached or the search
	// completes, returning true when done.
	CalculateStep(targetTick time.Time) (done bool)
	// Cleanup releases any resources the search held, run exactly once.
	Cleanup()
}

// Callback is invoked exactly once when a Path reaches Returned.
type Callback func(p *Path)

// Path is shared by the requester and the engine under a reference count;
// it is released once Returned (spec.md §3).
type Path struct {
	ID uint16

	state     atomic.Int32
	errored   atomic.Bool
	refCount  atomic.Int32
	startedAt time.Time
	duration  time.Duration

	Search          Search
	Callback        Callback
	ImmediateResult bool // set by Prepare() when it short-circuits

	// Next links Paths together on the ReturnPipeline's intrusive list;
	// the pushing worker sets it in Pipeline.Push, and after that only
	// the main thread touches it while draining.
	Next *Path

	log logging.Logger
}

// New creates a Path in the Created state with a single reference held by
// the caller.
func New(id uint16, search Search, cb Callback, log logging.Logger) *Path {
	if log == nil {
		log = logging.NewNopLogger()
	}
	p := &Path{ID: id, Search: search, Callback: cb, log: log}
	p.state.Store(int32(Created))
	p.refCount.Store(1)
	return p
}

// State returns the Path's current lifecycle state.
func (p *Path) State() State { return State(p.state.Load()) }

// Errored reports whether the search completed with an error.
func (p *Path) Errored() bool { return p.errored.Load() }

// SetError marks the path as failed; completion proceeds normally per
// spec.md §7 (transient search errors are recorded, not thrown).
func (p *Path) SetError() { p.errored.Store(true) }

// Duration returns how long the search ran, valid once Returned.
func (p *Path) Duration() time.Duration { return p.duration }

// AdvanceState moves the path to next. A move to an earlier or equal
// state is logged and ignored; a forward move may skip states (a skipped
// Queued is logged at debug level) and is not rejected.
func (p *Path) AdvanceState(next State) {
	cur := p.State()
	if next <= cur {
		p.log.Error("path state regression attempted",
			logging.PathID(p.ID), logging.String("from", cur.String()), logging.String("to", next.String()))
		return
	}
	if cur == Created && next == Processing {
		p.log.Debug("path skipped Queued", logging.PathID(p.ID))
	}
	p.state.Store(int32(next))
	if next == Processing {
		p.startedAt = time.Now()
	}
	if next == ReturnQueue && !p.startedAt.IsZero() {
		p.duration = time.Since(p.startedAt)
	}
}

// Retain increments the path's reference count; held by the requester and
// by the engine while the path is in flight.
func (p *Path) Retain() { p.refCount.Add(1) }

// Release decrements the reference count, returning true if this was the
// last reference.
func (p *Path) Release() bool {
	return p.refCount.Add(-1) == 0
}

// ReturnPath invokes the user callback exactly once and advances state to
// Returned. Called only by the main thread, draining the ReturnPipeline.
func (p *Path) ReturnPath() {
	p.AdvanceState(Returned)
	if p.Callback != nil {
		p.Callback(p)
	}
	p.Release()
}
