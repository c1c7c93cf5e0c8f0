package search

import (
	"time"

	"github.com/dd0wney/pathengine/internal/logging"
	"github.com/dd0wney/pathengine/path"
)

// cooperativePhase tracks where an in-progress path sits in the
// single-threaded (M=0) worker's state machine, since that worker cannot
// park on Prepare/Initialize/CalculateStep the way a threaded Worker does
// and must instead resume across Tick calls (spec.md §4.9/§9).
type cooperativePhase int

const (
	phaseIdle cooperativePhase = iota
	phaseRunning
)

// Cooperative is the single-worker mode (WorkerCountHint SingleThreaded)
// driven entirely from the host's Tick, never its own goroutine. It
// advances at most one in-flight path per Step call, budgeted to
// maxFrameTime just like the threaded Worker.
type Cooperative struct {
	Handler *path.PathHandler

	queue Popper
	sink  ReturnSink
	hooks Hooks
	log   logging.Logger

	phase   cooperativePhase
	current *path.Path

	blockedReported bool
}

// NewCooperative constructs the single-worker state machine.
func NewCooperative(handler *path.PathHandler, queue Popper, sink ReturnSink, hooks Hooks, log logging.Logger) *Cooperative {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Cooperative{Handler: handler, queue: queue, sink: sink, hooks: hooks, log: log}
}

// Step advances the state machine by one frame budget. It never blocks:
// if there is no in-flight path it tries a non-blocking pop, and if there
// is nothing to pop it returns immediately.
func (c *Cooperative) Step(maxFrameTime time.Duration) {
	if c.phase == phaseIdle {
		p, _, err := c.popNext()
		if err != nil || p == nil {
			return
		}
		c.current = p
		c.beginPath()
		if c.phase == phaseIdle {
			// Prepare short-circuited; the path already finished.
			return
		}
	}

	target := time.Now().Add(maxFrameTime)
	done := c.current.Search.CalculateStep(target)
	if c.queue.Terminating() {
		c.current.SetError()
		done = true
	}
	if !done {
		return
	}

	c.finishCurrent()
}

func (c *Cooperative) popNext() (*path.Path, bool, error) {
	type nonBlockingPopper interface {
		PopNonBlocking(alreadyReportedBlock bool) (*path.Path, bool, error)
	}
	nb, ok := c.queue.(nonBlockingPopper)
	if !ok {
		return nil, false, nil
	}
	p, reportedBlock, err := nb.PopNonBlocking(c.blockedReported)
	c.blockedReported = reportedBlock
	return p, reportedBlock, err
}

func (c *Cooperative) beginPath() {
	p := c.current
	p.AdvanceState(path.Processing)
	p.Search.PrepareBase(c.Handler)

	if listener := c.hooks.OnPathPreSearch; listener != nil {
		listener(p)
	}

	if done := p.Search.Prepare(); done {
		c.finishCurrent()
		return
	}
	p.Search.Initialize()
	c.phase = phaseRunning
}

func (c *Cooperative) finishCurrent() {
	p := c.current
	p.Search.Cleanup()
	if listener := c.hooks.OnPathPostSearch; listener != nil {
		listener(p)
	}
	p.AdvanceState(path.ReturnQueue)
	c.sink.Push(p)
	c.current = nil
	c.phase = phaseIdle
}
