// Package pathqueue implements PathQueue, the only synchronization
// primitive between the engine's main thread and its SearchWorkers
// (spec.md §4.1). Graph mutation safety is derived entirely from
// AllReceiversBlocked being observable by the main thread.
package pathqueue

import (
	"container/list"
	"sync"

	"github.com/dd0wney/pathengine/internal/perr"
	"github.com/dd0wney/pathengine/path"
)

// PathQueue is a multi-producer/multi-consumer FIFO of pending Paths with
// a three-state control protocol: open, blocking, terminating. It has no
// capacity limit: Push and PushFront fail only once the queue terminates.
type PathQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	items *list.List // of *path.Path

	receiverCount int
	blockedCount  int
	blocking      bool
	terminating   bool
}

// New creates an open PathQueue with no registered receivers.
func New() *PathQueue {
	q := &PathQueue{items: list.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// RegisterReceiver and UnregisterReceiver track how many SearchWorkers
// participate in AllReceiversBlocked. Call RegisterReceiver once per
// worker at startup and UnregisterReceiver when a worker exits.
func (q *PathQueue) RegisterReceiver() {
	q.mu.Lock()
	q.receiverCount++
	q.mu.Unlock()
}

func (q *PathQueue) UnregisterReceiver() {
	q.mu.Lock()
	q.receiverCount--
	q.mu.Unlock()
}

// Push appends p to the tail of the queue and advances it to Queued.
// Fails with ErrTerminated once the queue has been terminated.
func (q *PathQueue) Push(p *path.Path) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.terminating {
		return perr.ErrTerminated
	}
	q.items.PushBack(p)
	p.AdvanceState(path.Queued)
	q.cond.Broadcast()
	return nil
}

// PushFront head-inserts p, giving it exactly one slot's worth of
// priority over the rest of the FIFO (spec.md §5).
func (q *PathQueue) PushFront(p *path.Path) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.terminating {
		return perr.ErrTerminated
	}
	q.items.PushFront(p)
	p.AdvanceState(path.Queued)
	q.cond.Broadcast()
	return nil
}

// PopBlocking is called by a threaded SearchWorker. It parks on a
// condition variable until a path is available, the queue enters the
// blocking state, or the queue terminates. While blocking is set, Pop
// parks regardless of queue contents — Block() is only called when the
// engine wants every worker quiesced for a graph mutation, so queued
// paths must wait too.
func (q *PathQueue) PopBlocking() (*path.Path, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.terminating {
			return nil, perr.ErrTerminated
		}
		if q.blocking {
			q.blockedCount++
			q.cond.Wait()
			q.blockedCount--
			continue
		}
		if q.items.Len() > 0 {
			return q.popFrontLocked(), nil
		}
		q.cond.Wait()
	}
}

// PopNonBlocking is called by the cooperative (single-threaded) worker
// once per step. It never parks: an empty queue returns (nil, true, nil)
// and the caller must pass back the returned blocked flag as
// alreadyReportedBlock on its next call, so blockedCount reflects exactly
// one "virtual" blocked receiver while the cooperative worker is idle.
func (q *PathQueue) PopNonBlocking(alreadyReportedBlock bool) (p *path.Path, reportedBlock bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.terminating {
		return nil, alreadyReportedBlock, perr.ErrTerminated
	}
	if q.items.Len() > 0 {
		if alreadyReportedBlock {
			q.blockedCount--
		}
		return q.popFrontLocked(), false, nil
	}
	if !alreadyReportedBlock {
		q.blockedCount++
	}
	return nil, true, nil
}

func (q *PathQueue) popFrontLocked() *path.Path {
	e := q.items.Front()
	q.items.Remove(e)
	return e.Value.(*path.Path)
}

// Block sets the blocking flag; every subsequent PopBlocking call counts
// its caller as blocked and parks it, regardless of whether work is
// queued. PopNonBlocking does not check the flag.
func (q *PathQueue) Block() {
	q.mu.Lock()
	q.blocking = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Unblock clears the blocking flag and wakes every parked receiver.
func (q *PathQueue) Unblock() {
	q.mu.Lock()
	q.blocking = false
	q.cond.Broadcast()
	q.mu.Unlock()
}

// AllReceiversBlocked reports whether every registered receiver is
// currently parked — the quiescence predicate graph mutation safety rests
// on. With zero registered receivers (no workers), quiescence trivially
// holds.
func (q *PathQueue) AllReceiversBlocked() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.receiverCount == 0 {
		return true
	}
	return q.blockedCount == q.receiverCount
}

// Terminate marks the queue terminating, one-way: every parked receiver
// wakes and every subsequent Pop raises ErrTerminated. Calling Terminate
// more than once is a no-op.
func (q *PathQueue) Terminate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.terminating {
		return
	}
	q.terminating = true
	q.cond.Broadcast()
}

// Terminating reports whether Terminate has been called.
func (q *PathQueue) Terminating() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.terminating
}

// Len returns the number of paths currently queued (not yet dequeued),
// for metrics and tests.
func (q *PathQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// DrainTerminated pops and returns every remaining queued path, marking
// each errored. Used by the engine during Destroy to ensure queued
// requesters still get a callback (spec.md §8 scenario 5).
func (q *PathQueue) DrainTerminated() []*path.Path {
	q.mu.Lock()
	defer q.mu.Unlock()

	var drained []*path.Path
	for q.items.Len() > 0 {
		p := q.popFrontLocked()
		p.SetError()
		drained = append(drained, p)
	}
	return drained
}
