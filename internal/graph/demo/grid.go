// Package demo provides a synthetic grid graph.Graph implementation and a
// matching A* path.Search, used by the engine's demo binary and available
// to any caller that wants a concrete Graph without writing a navmesh.
package demo

import (
	"math"

	"github.com/dd0wney/pathengine/internal/graph"
)

// Grid is a fixed-size rectangular graph.Graph. Node 0 is reserved (per
// graph.NodeIndex's sentinel convention); cell (x, y) maps to node index
// y*Width + x + 1.
type Grid struct {
	Width, Height int

	blocked   []bool // len Width*Height, indexed like node indices minus 1
	area      []uint32
	graphIdx  uint8
}

// NewGrid creates an all-walkable Width x Height grid.
func NewGrid(width, height int) *Grid {
	n := width * height
	return &Grid{
		Width:   width,
		Height:  height,
		blocked: make([]bool, n),
		area:    make([]uint32, n),
	}
}

// SetBlocked marks (x, y) as unwalkable or clears that mark.
func (g *Grid) SetBlocked(x, y int, blocked bool) {
	if i, ok := g.cellIndex(x, y); ok {
		g.blocked[i] = blocked
	}
}

func (g *Grid) cellIndex(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return 0, false
	}
	return y*g.Width + x, true
}

// NodeAt returns the NodeIndex for cell (x, y).
func (g *Grid) NodeAt(x, y int) graph.NodeIndex {
	i, ok := g.cellIndex(x, y)
	if !ok {
		return 0
	}
	return graph.NodeIndex(i + 1)
}

// XY returns the cell coordinates for a NodeIndex.
func (g *Grid) XY(idx graph.NodeIndex) (x, y int) {
	i := int(idx) - 1
	if i < 0 || i >= len(g.blocked) {
		return -1, -1
	}
	return i % g.Width, i / g.Width
}

// Scan rebuilds nothing (the grid is static); it exists to satisfy
// graph.Graph and reports completion immediately.
func (g *Grid) Scan(progress func(float64)) error {
	progress(1.0)
	return nil
}

func (g *Grid) GetNodes(visit func(graph.NodeIndex) bool) {
	for i := range g.blocked {
		if !visit(graph.NodeIndex(i + 1)) {
			return
		}
	}
}

// GetNearest does a linear scan for the closest walkable node satisfying
// constraint; good enough for a demo grid, not for a production navmesh.
func (g *Grid) GetNearest(pos graph.Position, constraint graph.Constraint) (graph.NearestInfo, bool) {
	return g.nearest(pos, constraint, false)
}

// GetNearestForce ignores constraint failures on the fast path and always
// does the exhaustive scan; on a Grid that is the same scan GetNearest
// does, since there is no faster spatial index to fall back from.
func (g *Grid) GetNearestForce(pos graph.Position, constraint graph.Constraint) (graph.NearestInfo, bool) {
	return g.nearest(pos, constraint, true)
}

func (g *Grid) nearest(pos graph.Position, constraint graph.Constraint, force bool) (graph.NearestInfo, bool) {
	best := graph.NearestInfo{}
	found := false
	for i, b := range g.blocked {
		if b {
			continue
		}
		idx := graph.NodeIndex(i + 1)
		if constraint != nil && !constraint(idx) {
			continue
		}
		x, y := g.XY(idx)
		d := math.Hypot(pos.X-float64(x), pos.Y-float64(y))
		if !found || d < best.Distance {
			best = graph.NearestInfo{Node: idx, Distance: d, ClampedPosition: graph.Position{X: float64(x), Y: float64(y)}}
			found = true
		}
	}
	return best, found
}

func (g *Grid) ThreadingClassFor(graph.Update) graph.ThreadingClass { return graph.UnityThread }

func (g *Grid) UpdateAreaInit(update graph.Update) error {
	if u, ok := update.(BlockUpdate); ok {
		g.SetBlocked(u.X, u.Y, u.Blocked)
	}
	return nil
}

func (g *Grid) UpdateArea(graph.Update) error { return nil }

func (g *Grid) Walkable(idx graph.NodeIndex) bool {
	i := int(idx) - 1
	if i < 0 || i >= len(g.blocked) {
		return false
	}
	return !g.blocked[i]
}

func (g *Grid) Area(idx graph.NodeIndex) uint32 {
	i := int(idx) - 1
	if i < 0 || i >= len(g.area) {
		return 0
	}
	return g.area[i]
}

func (g *Grid) SetArea(idx graph.NodeIndex, area uint32) {
	i := int(idx) - 1
	if i < 0 || i >= len(g.area) {
		return
	}
	g.area[i] = area
}

var fourDirs = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

func (g *Grid) Neighbours(idx graph.NodeIndex, visit func(graph.NodeIndex) bool) {
	x, y := g.XY(idx)
	if x < 0 {
		return
	}
	for _, d := range fourDirs {
		n := g.NodeAt(x+d[0], y+d[1])
		if n == 0 || !g.Walkable(n) {
			continue
		}
		if !visit(n) {
			return
		}
	}
}

func (g *Grid) GraphIndex() uint8      { return g.graphIdx }
func (g *Grid) SetGraphIndex(i uint8) { g.graphIdx = i }

// BlockUpdate toggles a single cell's walkability. It runs entirely on
// the main thread (UnityThread) and may change connectivity.
type BlockUpdate struct {
	X, Y    int
	Blocked bool
}

func (BlockUpdate) ThreadingClass() graph.ThreadingClass { return graph.UnityThread }
func (BlockUpdate) RequiresFloodFill() bool              { return true }
