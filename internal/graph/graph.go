// Package graph defines the narrow interfaces the engine calls into for
// everything spec.md §1 treats as an external collaborator: the graph
// generators, the spatial nearest-neighbour index, and the search
// algorithm inner loop. Nothing in this package mutates a Graph outside
// the blocked window; that discipline is enforced by the callers in
// package engine, not here.
package graph

// NodeIndex is the dense integer handle allocated by nodeindex.Allocator.
// 0 is reserved as a sentinel and is never a live node.
type NodeIndex int32

// Position is an opaque 3-vector; the engine never interprets its
// components, only passes them through to Graph implementations.
type Position struct {
	X, Y, Z float64
}

// Constraint is an accept-predicate used by GetNearest; nil accepts any
// walkable node.
type Constraint func(NodeIndex) bool

// NearestInfo is the result of a nearest-node query.
type NearestInfo struct {
	Node             NodeIndex
	Distance         float64
	ClampedPosition  Position
	ConstrainedNode  NodeIndex // 0 if no constrained node was found
	ConstrainedPos   Position
	HasConstrained   bool
}

// ThreadingClass classifies how a GraphUpdate must be executed, per
// spec.md §4.6.
type ThreadingClass int

const (
	// UnityThread updates run entirely on the main thread inside the
	// blocked window.
	UnityThread ThreadingClass = iota
	// SeparateAndUnityInit updates run their init half on the main
	// thread and their body on the async graph-update thread.
	SeparateAndUnityInit
	// SeparateThread updates run entirely on the async graph-update
	// thread.
	SeparateThread
)

// Update is the payload of a graph-mutation request; it is immutable once
// enqueued (spec.md §3, GraphUpdateObject).
type Update interface {
	// ThreadingClass reports how this update must be dispatched.
	ThreadingClass() ThreadingClass
	// RequiresFloodFill reports whether applying this update may have
	// changed connectivity, requiring a FloodFiller pass afterward.
	RequiresFloodFill() bool
}

// Graph is the narrow surface the engine needs from a graph generator. The
// generator itself — navmesh/grid/point construction — is out of scope;
// this interface is the only contract the engine depends on.
type Graph interface {
	// Scan rebuilds the graph from its source. May take arbitrarily
	// long; only called while all SearchWorkers are quiesced.
	Scan(progress func(fraction float64)) error

	// GetNodes iterates every node; visit returning false stops early.
	GetNodes(visit func(NodeIndex) bool)

	// GetNearest returns the nearest node to pos satisfying constraint
	// (nil constraint accepts any walkable node).
	GetNearest(pos Position, constraint Constraint) (NearestInfo, bool)
	// GetNearestForce is the exhaustive variant of GetNearest, used when
	// the fast query's result fails the constraint.
	GetNearestForce(pos Position, constraint Constraint) (NearestInfo, bool)

	// ThreadingClassFor classifies update for dispatch.
	ThreadingClassFor(update Update) ThreadingClass

	// UpdateAreaInit runs the main-thread half of update. Called inside
	// the blocked window.
	UpdateAreaInit(update Update) error
	// UpdateArea runs the (possibly async) body of update.
	UpdateArea(update Update) error

	// Walkable and Area read a node's flood-fill-relevant state.
	Walkable(NodeIndex) bool
	Area(NodeIndex) uint32
	SetArea(NodeIndex, uint32)
	// Neighbours iterates a node's walkable neighbours for FloodFiller
	// and for the (external) search algorithm.
	Neighbours(NodeIndex, func(NodeIndex) bool)

	// GraphIndex returns this graph's position in the engine's graph
	// list, reassigned on every Scan.
	GraphIndex() uint8
	SetGraphIndex(uint8)
}

// SearchPayload is the opaque start/end/constraints/heuristic state a
// requester attaches to a Path. The engine never interprets it; it is
// handed verbatim to the Path's Prepare/Initialize/CalculateStep.
type SearchPayload interface{}
