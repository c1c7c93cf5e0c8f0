package search

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/pathengine/path"
	"github.com/dd0wney/pathengine/pathqueue"
)

type countingSink struct {
	mu   sync.Mutex
	seen []*path.Path
}

func (s *countingSink) Push(p *path.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, p)
}

func (s *countingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

type instantSearch struct{ prepareDone bool }

func (s *instantSearch) PrepareBase(*path.PathHandler)    {}
func (s *instantSearch) Prepare() bool                    { return s.prepareDone }
func (s *instantSearch) Initialize()                      {}
func (s *instantSearch) CalculateStep(time.Time) bool     { return true }
func (s *instantSearch) Cleanup()                         {}

type panicSearch struct{}

func (panicSearch) PrepareBase(*path.PathHandler) { panic("boom") }
func (panicSearch) Prepare() bool                 { return false }
func (panicSearch) Initialize()                   {}
func (panicSearch) CalculateStep(time.Time) bool  { return true }
func (panicSearch) Cleanup()                      {}

func TestWorker_PopsSearchesAndPushesToSink(t *testing.T) {
	q := pathqueue.New()
	q.RegisterReceiver()
	sink := &countingSink{}
	handler := path.NewPathHandler(0)
	w := NewWorker(0, handler, q, sink, Hooks{}, func() time.Duration { return 5 * time.Millisecond }, nil)

	require.NoError(t, q.Push(path.New(1, &instantSearch{}, nil, nil)))

	done := make(chan struct{})
	go func() { w.Run(); close(done) }()

	require.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, time.Millisecond)

	q.Terminate()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after Terminate")
	}
}

func TestWorker_PrepareShortCircuitSkipsInitialize(t *testing.T) {
	q := pathqueue.New()
	q.RegisterReceiver()
	sink := &countingSink{}
	handler := path.NewPathHandler(0)
	w := NewWorker(0, handler, q, sink, Hooks{}, func() time.Duration { return time.Millisecond }, nil)

	p := path.New(1, &instantSearch{prepareDone: true}, nil, nil)
	require.NoError(t, q.Push(p))

	go w.Run()
	require.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, time.Millisecond)
	q.Terminate()
}

func TestWorker_PanicInSearchTerminatesQueueAndReturnsErroredPath(t *testing.T) {
	q := pathqueue.New()
	q.RegisterReceiver()
	sink := &countingSink{}
	handler := path.NewPathHandler(0)
	w := NewWorker(0, handler, q, sink, Hooks{}, func() time.Duration { return time.Millisecond }, nil)

	p := path.New(1, panicSearch{}, nil, nil)
	require.NoError(t, q.Push(p))

	done := make(chan struct{})
	go func() { w.Run(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after panic-triggered termination")
	}

	assert.True(t, p.Errored())
	assert.True(t, q.Terminating())
	assert.Equal(t, 1, sink.len())
}

func TestWorker_PreAndPostSearchHooksFire(t *testing.T) {
	q := pathqueue.New()
	q.RegisterReceiver()
	sink := &countingSink{}
	handler := path.NewPathHandler(0)

	var pre, post int
	hooks := Hooks{
		OnPathPreSearch:  func(*path.Path) { pre++ },
		OnPathPostSearch: func(*path.Path) { post++ },
	}
	w := NewWorker(0, handler, q, sink, hooks, func() time.Duration { return time.Millisecond }, nil)

	require.NoError(t, q.Push(path.New(1, &instantSearch{}, nil, nil)))
	go w.Run()
	require.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, time.Millisecond)
	q.Terminate()

	assert.Equal(t, 1, pre)
	assert.Equal(t, 1, post)
}
