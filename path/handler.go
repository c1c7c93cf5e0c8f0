package path

import "github.com/dd0wney/pathengine/internal/graph"

// Entry is the per-node transient state a search keeps while it runs: G,
// H, F costs, the parent pointer used to reconstruct a path, and the
// path-id that last wrote this entry — doubling as the "visited this
// search" marker (spec.md §4.3 rationale).
type Entry struct {
	LastPathID uint16
	G, H, F    float64
	Parent     graph.NodeIndex
}

// PathHandler is a SearchWorker's per-thread scratch table, indexed by
// NodeIndex (spec.md §4.2/§3). Rather than clearing the array between
// searches, each entry is stamped with the 16-bit id of the path that
// last wrote it; a node is "visited this search" iff its stamp equals the
// currently-running path's id. This is exactly why PathIdGenerator's id
// space wrapping matters: once ids recycle, a stale stamp could alias the
// new search's id and read as already-visited — see ResetAll.
type PathHandler struct {
	WorkerID  int
	entries   []Entry
	currentID uint16
}

// NewPathHandler creates an empty handler for the given worker.
func NewPathHandler(workerID int) *PathHandler {
	return &PathHandler{WorkerID: workerID}
}

// GrowTo extends the handler's table to cover node indices up to n. It
// implements nodeindex.GrowListener structurally; only called inside the
// blocked window, per spec.md §4.4.
func (h *PathHandler) GrowTo(n int) {
	if n <= len(h.entries) {
		return
	}
	grown := make([]Entry, n)
	copy(grown, h.entries)
	h.entries = grown
}

// BeginSearch binds the handler to pathID for the duration of one search;
// subsequent Get calls only report entries stamped with this id.
func (h *PathHandler) BeginSearch(pathID uint16) {
	h.currentID = pathID
}

// CurrentPathID returns the id BeginSearch was last called with.
func (h *PathHandler) CurrentPathID() uint16 { return h.currentID }

// Get returns the entry for idx if it was written during the current
// search; ok is false for a stale or never-visited node.
func (h *PathHandler) Get(idx graph.NodeIndex) (Entry, bool) {
	i := int(idx)
	if i <= 0 || i >= len(h.entries) {
		return Entry{}, false
	}
	e := h.entries[i]
	return e, e.LastPathID == h.currentID
}

// Visit writes (or overwrites) the entry for idx, stamping it with the
// currently running path's id.
func (h *PathHandler) Visit(idx graph.NodeIndex, g, hh, f float64, parent graph.NodeIndex) {
	i := int(idx)
	if i <= 0 || i >= len(h.entries) {
		return
	}
	h.entries[i] = Entry{LastPathID: h.currentID, G: g, H: hh, F: f, Parent: parent}
}

// Cap reports the handler's current table size, for tests and metrics.
func (h *PathHandler) Cap() int { return len(h.entries) }

// ResetAll zeroes every entry's last-seen path-id. This is the work item
// the default path-id overflow callback enqueues (spec.md §9 Open
// Question (b)): without it, once 16-bit ids recycle, a stale stamp left
// by a search from the previous id cycle could alias a new search's id
// and be misread as already-visited.
func (h *PathHandler) ResetAll() {
	for i := range h.entries {
		h.entries[i].LastPathID = 0
	}
}
