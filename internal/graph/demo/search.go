package demo

import (
	"container/heap"
	"math"
	"time"

	"github.com/dd0wney/pathengine/internal/graph"
	"github.com/dd0wney/pathengine/path"
)

// AStarSearch is a path.Search over a Grid. It is not safe to share
// across concurrent Paths; each StartPath call must build its own.
type AStarSearch struct {
	g          *Grid
	start, end graph.NodeIndex
	pathID     uint16

	handler *path.PathHandler
	open    openHeap
	done    bool
	found   bool

	// Result holds the node sequence once the search completes
	// successfully; empty otherwise.
	Result []graph.NodeIndex
}

// NewAStarSearch builds a search from start to end over g. id must match
// the Path this search is attached to, since PathHandler stamps entries
// by path id rather than by search instance.
func NewAStarSearch(g *Grid, start, end graph.NodeIndex, id uint16) *AStarSearch {
	return &AStarSearch{g: g, start: start, end: end, pathID: id}
}

func (s *AStarSearch) PrepareBase(h *path.PathHandler) {
	s.handler = h
	h.BeginSearch(s.pathID)
}

// Prepare resolves the trivial cases (same start/end, unwalkable
// endpoints) without running a search.
func (s *AStarSearch) Prepare() bool {
	if !s.g.Walkable(s.start) || !s.g.Walkable(s.end) {
		s.done = true
		return true
	}
	if s.start == s.end {
		s.Result = []graph.NodeIndex{s.start}
		s.done = true
		s.found = true
		return true
	}
	return false
}

func (s *AStarSearch) Initialize() {
	sx, sy := s.g.XY(s.start)
	ex, ey := s.g.XY(s.end)
	h := heuristic(sx, sy, ex, ey)
	s.handler.Visit(s.start, 0, h, h, 0)
	s.open = openHeap{{node: s.start, f: h}}
}

func heuristic(x0, y0, x1, y1 int) float64 {
	return math.Abs(float64(x1-x0)) + math.Abs(float64(y1-y0))
}

// CalculateStep pops nodes off the open set, expanding their neighbours,
// until the end node is reached, the open set is exhausted, or targetTick
// passes — whichever comes first within this call's budget.
func (s *AStarSearch) CalculateStep(targetTick time.Time) bool {
	for len(s.open) > 0 {
		if time.Now().After(targetTick) {
			return false
		}
		current := heap.Pop(&s.open).(openEntry).node
		entry, ok := s.handler.Get(current)
		if !ok {
			continue
		}
		if current == s.end {
			s.found = true
			s.Result = s.reconstruct(current)
			s.done = true
			return true
		}
		s.expand(current, entry)
	}
	s.done = true
	return true
}

func (s *AStarSearch) expand(current graph.NodeIndex, currentEntry path.Entry) {
	ex, ey := s.g.XY(s.end)
	s.g.Neighbours(current, func(n graph.NodeIndex) bool {
		g := currentEntry.G + 1
		if existing, ok := s.handler.Get(n); ok && existing.G <= g {
			return true
		}
		nx, ny := s.g.XY(n)
		h := heuristic(nx, ny, ex, ey)
		s.handler.Visit(n, g, h, g+h, current)
		heap.Push(&s.open, openEntry{node: n, f: g + h})
		return true
	})
}

func (s *AStarSearch) reconstruct(end graph.NodeIndex) []graph.NodeIndex {
	var nodes []graph.NodeIndex
	n := end
	for {
		nodes = append(nodes, n)
		if n == s.start {
			break
		}
		entry, ok := s.handler.Get(n)
		if !ok {
			break
		}
		n = entry.Parent
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return nodes
}

func (s *AStarSearch) Cleanup() { s.open = nil }

// Found reports whether the search located a path; valid only after
// CalculateStep returns true (or Prepare short-circuited).
func (s *AStarSearch) Found() bool { return s.found }

type openEntry struct {
	node graph.NodeIndex
	f    float64
}

type openHeap []openEntry

func (h openHeap) Len() int            { return len(h) }
func (h openHeap) Less(i, j int) bool  { return h[i].f < h[j].f }
func (h openHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *openHeap) Push(x interface{}) { *h = append(*h, x.(openEntry)) }
func (h *openHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
