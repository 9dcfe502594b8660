// Package graph builds the runtime streaming view of a parsed document: a
// depth-first walk of the node hierarchy producing one NodeRecord per
// mesh-bearing node, with precomputed world transforms, world-space bounds,
// and the deduplicated set of external payloads each node needs.
package graph

import (
	"sync/atomic"

	"github.com/strata3d/strata/common"
)

// LoadState is the streaming lifecycle state of a NodeRecord.
type LoadState int32

const (
	// StateNotLoaded means the node's geometry is not resident.
	StateNotLoaded LoadState = iota

	// StateLoading means a load for this node is in flight.
	StateLoading

	// StateLoaded means the node's geometry is resident with the renderer.
	StateLoaded
)

// String returns a human-readable name for the state.
func (s LoadState) String() string {
	switch s {
	case StateNotLoaded:
		return "not-loaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// NodeRecord is the runtime streaming state for one mesh-bearing node.
// Immutable fields (index, transform, bounds, resource lists) are set by the
// builder; the load state, visibility flag, and renderer handle are mutated by
// the scheduler and loader only.
type NodeRecord struct {
	// NodeIndex is the document node this record tracks.
	NodeIndex int

	// Name is the node name, or the mesh name when the node is unnamed.
	Name string

	// MeshIndex is the document mesh attached to the node.
	MeshIndex int

	// World is the composed world transform (column-major).
	World [16]float32

	// Bounds is the world-space AABB, unioned across the mesh's primitives.
	// Empty when no primitive declared position min/max.
	Bounds common.AABB

	// BufferURIs is the exact, deduplicated set of external payload
	// identifiers reachable from the mesh's accessors.
	BufferURIs []string

	// MaterialIndices lists the material indices referenced by the mesh's
	// primitives, deduplicated, in first-reference order.
	MaterialIndices []int

	// Visible is the render-enable flag set by the scheduler each tick.
	Visible bool

	// Handle is the opaque renderer-owned geometry handle, nil when unloaded.
	Handle any

	state atomic.Int32
}

// State returns the record's current load state.
//
// Returns:
//   - LoadState: the current state
func (r *NodeRecord) State() LoadState {
	return LoadState(r.state.Load())
}

// SetState sets the record's load state.
//
// Parameters:
//   - s: the new state
func (r *NodeRecord) SetState(s LoadState) {
	r.state.Store(int32(s))
}
