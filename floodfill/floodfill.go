// Package floodfill implements the FloodFiller from spec.md §4.7: explicit
// work-stack connected-component labelling across every graph, with
// small-area collapsing to keep area ids inside their bit-packed budget.
package floodfill

import (
	"github.com/dd0wney/pathengine/internal/graph"
	"github.com/dd0wney/pathengine/internal/logging"
)

// FloodFiller assigns area ids to walkable nodes. It holds no state
// between runs beyond its configured thresholds; Run is the whole
// algorithm.
type FloodFiller struct {
	minAreaSize  int
	maxAreaIndex uint32
	log          logging.Logger
}

// New constructs a FloodFiller. Components smaller than minAreaSize are
// candidates for relabeling when the running area counter would exceed
// maxAreaIndex.
func New(minAreaSize int, maxAreaIndex uint32, log logging.Logger) *FloodFiller {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FloodFiller{minAreaSize: minAreaSize, maxAreaIndex: maxAreaIndex, log: log}
}

// smallComponent records a just-labelled component small enough to be a
// relabeling candidate.
type smallComponent struct {
	areaID uint32
	graph  graph.Graph
	nodes  []graph.NodeIndex
}

// Run zeroes every node's area across all graphs, then labels each
// connected component of walkable nodes with a fresh area id, relabeling
// the most recent small component to reclaim an id once the counter
// would exceed maxAreaIndex (spec.md §4.7 steps 1-4). It reports the
// number of components labelled, including those later collapsed to
// maxAreaIndex.
func (f *FloodFiller) Run(graphs []graph.Graph) int {
	for _, g := range graphs {
		g.GetNodes(func(n graph.NodeIndex) bool {
			g.SetArea(n, 0)
			return true
		})
	}

	var nextArea uint32 = 1
	var smallest *smallComponent
	liveComponents := 0
	var stack []graph.NodeIndex

	for _, g := range graphs {
		g.GetNodes(func(seed graph.NodeIndex) bool {
			if !g.Walkable(seed) || g.Area(seed) != 0 {
				return true
			}

			areaID := nextArea
			if areaID > f.maxAreaIndex {
				if smallest != nil {
					f.collapse(smallest)
					areaID = smallest.areaID
					smallest = nil
				} else {
					// No small component available to reclaim; stay valid
					// by decrementing back into range and warn.
					f.log.Warn("flood fill exhausted area index budget with no small component to collapse",
						logging.Count(int(f.maxAreaIndex)))
					areaID = f.maxAreaIndex
					nextArea = f.maxAreaIndex
				}
			}

			stack = append(stack[:0], seed)
			g.SetArea(seed, areaID)
			var members []graph.NodeIndex

			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				members = append(members, cur)

				g.Neighbours(cur, func(nb graph.NodeIndex) bool {
					if g.Walkable(nb) && g.Area(nb) == 0 {
						g.SetArea(nb, areaID)
						stack = append(stack, nb)
					}
					return true
				})
			}

			liveComponents++
			if len(members) < f.minAreaSize {
				smallest = &smallComponent{areaID: areaID, graph: g, nodes: members}
			}
			if areaID == nextArea {
				nextArea++
			}
			return true
		})
	}

	return liveComponents
}

// collapse relabels every node of c to the reserved MaxAreaIndex value,
// freeing its original id for reuse (spec.md §4.7 step 3).
func (f *FloodFiller) collapse(c *smallComponent) {
	for _, n := range c.nodes {
		c.graph.SetArea(n, f.maxAreaIndex)
	}
}
