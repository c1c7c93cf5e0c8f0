package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/pathengine/internal/config"
	"github.com/dd0wney/pathengine/internal/graph"
	"github.com/dd0wney/pathengine/internal/perr"
	"github.com/dd0wney/pathengine/path"
)

// fakeGraph is a single-node stub graph implementing graph.Graph, enough
// to drive Scan/GetNearest/UpdateGraphs without a real navmesh.
type fakeGraph struct {
	idx         uint8
	scanCalls   int
	nearestNode graph.NodeIndex
	nearestDist float64
	initCalls   []graph.Update
	bodyCalls   []graph.Update
}

func (g *fakeGraph) Scan(progress func(float64)) error {
	g.scanCalls++
	progress(1.0)
	return nil
}
func (g *fakeGraph) GetNodes(visit func(graph.NodeIndex) bool) { visit(1) }
func (g *fakeGraph) GetNearest(graph.Position, graph.Constraint) (graph.NearestInfo, bool) {
	return graph.NearestInfo{Node: g.nearestNode, Distance: g.nearestDist}, true
}
func (g *fakeGraph) GetNearestForce(graph.Position, graph.Constraint) (graph.NearestInfo, bool) {
	return graph.NearestInfo{Node: g.nearestNode, Distance: g.nearestDist}, true
}
func (g *fakeGraph) ThreadingClassFor(graph.Update) graph.ThreadingClass { return graph.UnityThread }
func (g *fakeGraph) UpdateAreaInit(u graph.Update) error {
	g.initCalls = append(g.initCalls, u)
	return nil
}
func (g *fakeGraph) UpdateArea(u graph.Update) error {
	g.bodyCalls = append(g.bodyCalls, u)
	return nil
}
func (g *fakeGraph) Walkable(graph.NodeIndex) bool { return true }
func (g *fakeGraph) Area(graph.NodeIndex) uint32   { return 0 }
func (g *fakeGraph) SetArea(graph.NodeIndex, uint32) {}
func (g *fakeGraph) Neighbours(graph.NodeIndex, func(graph.NodeIndex) bool) {}
func (g *fakeGraph) GraphIndex() uint8   { return g.idx }
func (g *fakeGraph) SetGraphIndex(i uint8) { g.idx = i }

// fakeUpdate is a minimal graph.Update.
type fakeUpdate struct{ needsFlood bool }

func (u fakeUpdate) ThreadingClass() graph.ThreadingClass { return graph.UnityThread }
func (u fakeUpdate) RequiresFloodFill() bool              { return u.needsFlood }

// fakeSearch completes after a fixed number of CalculateStep calls.
type fakeSearch struct {
	stepsToComplete int
	steps           int
	prepareDone     bool
}

func (s *fakeSearch) PrepareBase(*path.PathHandler) {}
func (s *fakeSearch) Prepare() bool                 { return s.prepareDone }
func (s *fakeSearch) Initialize()                   {}
func (s *fakeSearch) CalculateStep(time.Time) bool {
	s.steps++
	return s.steps >= s.stepsToComplete
}
func (s *fakeSearch) Cleanup() {}

func testConfig() config.EngineConfig {
	cfg := config.Default()
	cfg.WorkerHint = config.SingleThreaded
	cfg.MaxFrameTime = time.Millisecond
	cfg.ReturnDrainBudget = time.Millisecond
	cfg.MinReturnsPerDrain = 1
	return cfg
}

func newTestEngine(t *testing.T, graphs []graph.Graph) *Engine {
	t.Helper()
	e := New(testConfig(), graphs, nil, nil)
	require.NoError(t, e.Initialize())
	return e
}

func TestEngine_InitializeIsIdempotent(t *testing.T) {
	e := newTestEngine(t, []graph.Graph{&fakeGraph{}})
	require.NoError(t, e.Initialize())
	assert.Len(t, e.handlers, 1)
}

func TestEngine_StartPathRejectsWithNoGraphs(t *testing.T) {
	e := newTestEngine(t, nil)
	p := path.New(1, &fakeSearch{stepsToComplete: 1}, nil, nil)
	err := e.StartPath(p, false)
	assert.ErrorIs(t, err, perr.ErrNoGraphs)
}

func TestEngine_StartPathRejectsNonCreatedPath(t *testing.T) {
	e := newTestEngine(t, []graph.Graph{&fakeGraph{}})
	p := path.New(1, &fakeSearch{stepsToComplete: 1}, nil, nil)
	p.AdvanceState(path.Queued)
	err := e.StartPath(p, false)
	require.Error(t, err)
}

func TestEngine_CooperativeRoundTripReturnsPath(t *testing.T) {
	e := newTestEngine(t, []graph.Graph{&fakeGraph{}})
	defer e.Destroy()

	var returned *path.Path
	p := path.New(1, &fakeSearch{stepsToComplete: 3}, func(pp *path.Path) { returned = pp }, nil)
	require.NoError(t, e.StartPath(p, false))

	for i := 0; i < 50 && p.State() != path.Returned; i++ {
		e.Tick()
		time.Sleep(time.Millisecond)
	}

	require.Equal(t, path.Returned, p.State())
	require.NotNil(t, returned)
	assert.False(t, returned.Errored())
}

func TestEngine_WaitForPathBlocksUntilReturned(t *testing.T) {
	e := newTestEngine(t, []graph.Graph{&fakeGraph{}})
	defer e.Destroy()

	p := path.New(1, &fakeSearch{stepsToComplete: 2}, nil, nil)
	require.NoError(t, e.StartPath(p, false))

	done := make(chan error, 1)
	go func() { done <- e.WaitForPath(p) }()

	for i := 0; i < 50 && p.State() != path.Returned; i++ {
		e.Tick()
		time.Sleep(time.Millisecond)
	}

	err := <-done
	require.NoError(t, err)
	assert.Equal(t, path.Returned, p.State())
}

func TestEngine_WaitForPathRejectsUnstartedPath(t *testing.T) {
	e := newTestEngine(t, []graph.Graph{&fakeGraph{}})
	defer e.Destroy()

	p := path.New(1, &fakeSearch{stepsToComplete: 1}, nil, nil)
	err := e.WaitForPath(p)
	require.Error(t, err)
}

func TestEngine_ScanAssignsGraphIndicesAndRunsFloodFill(t *testing.T) {
	g0 := &fakeGraph{}
	g1 := &fakeGraph{}
	e := newTestEngine(t, []graph.Graph{g0, g1})
	defer e.Destroy()

	require.NoError(t, e.Scan())
	assert.Equal(t, uint8(0), g0.GraphIndex())
	assert.Equal(t, uint8(1), g1.GraphIndex())
	assert.Equal(t, 1, g0.scanCalls)
}

func TestEngine_FlushGraphUpdatesSecondCallIsNoop(t *testing.T) {
	g := &fakeGraph{}
	e := newTestEngine(t, []graph.Graph{g})
	defer e.Destroy()

	e.UpdateGraphs(fakeUpdate{}, g, 0)
	require.NoError(t, e.FlushGraphUpdates())
	require.Len(t, g.bodyCalls, 1)

	require.NoError(t, e.FlushGraphUpdates())
	assert.Len(t, g.bodyCalls, 1, "second flush with nothing enqueued must not re-apply")
}

func TestEngine_GetNearestHonorsPrioritizeGraphsLimit(t *testing.T) {
	near := &fakeGraph{nearestNode: 1, nearestDist: 5}
	far := &fakeGraph{nearestNode: 2, nearestDist: 1} // closer, but checked second
	e := newTestEngine(t, []graph.Graph{near, far})
	defer e.Destroy()
	e.cfg.NearestPrioritizeGraphs = true
	e.cfg.NearestPrioritizeGraphsLimit = 10

	info, ok := e.GetNearest(graph.Position{}, nil)
	require.True(t, ok)
	assert.Equal(t, graph.NodeIndex(1), info.Node, "first graph within the limit should win despite the closer second graph")
}

func TestEngine_GetNearestRejectsBeyondMaxDistance(t *testing.T) {
	g := &fakeGraph{nearestNode: 1, nearestDist: 1000}
	e := newTestEngine(t, []graph.Graph{g})
	defer e.Destroy()
	e.cfg.NearestMaxDistance = 10

	_, ok := e.GetNearest(graph.Position{}, nil)
	assert.False(t, ok)
}

func TestEngine_DestroyDrainsQueuedPathsAsErrored(t *testing.T) {
	g := &fakeGraph{}
	e := New(testConfig(), []graph.Graph{g}, nil, nil)
	require.NoError(t, e.Initialize())

	var returned *path.Path
	p := path.New(1, &fakeSearch{stepsToComplete: 1000000}, func(pp *path.Path) { returned = pp }, nil)
	require.NoError(t, e.StartPath(p, false))

	require.NoError(t, e.Destroy())
	require.NoError(t, e.Destroy(), "Destroy must be idempotent")

	require.NotNil(t, returned)
	assert.True(t, returned.Errored())
	assert.Equal(t, path.Returned, returned.State())
}

func TestEngine_RegisterOn65kOverflowFiresAndEngineResetsHandlers(t *testing.T) {
	e := newTestEngine(t, []graph.Graph{&fakeGraph{}})
	defer e.Destroy()

	fired := 0
	e.RegisterOn65kOverflow(func() { fired++ })

	e.handlers[0].GrowTo(2)
	e.handlers[0].BeginSearch(1)
	e.handlers[0].Visit(1, 0, 0, 0, 0)

	for i := 0; i < 65535; i++ {
		e.idGen.Next()
	}
	id := e.idGen.Next() // 65536th call: wraps 65535 -> 1
	assert.Equal(t, uint16(1), id)
	assert.Equal(t, 1, fired)

	require.NoError(t, e.runner.Run(false, nil, nil))
	_, ok := e.handlers[0].Get(1)
	assert.False(t, ok, "ResetAll should have cleared the stale stamp via the enqueued work item")
}
