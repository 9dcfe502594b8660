package streamer

import (
	"github.com/strata3d/strata/common"
	"github.com/strata3d/strata/engine/codec"
	"github.com/strata3d/strata/engine/material"
)

// Renderer is the external collaborator that owns GPU-facing resources. The
// core hands it decoded geometry and resolved materials and stores only the
// opaque handle it returns; it never constructs renderer-native resources
// itself.
type Renderer interface {
	// CreateRenderable turns decoded geometry and its materials into a
	// renderer-owned resource.
	//
	// Parameters:
	//   - mesh: the decoded geometry for one draw call
	//   - materials: the resolved materials referenced by the geometry
	//
	// Returns:
	//   - any: an opaque handle identifying the renderable
	//   - error: error if resource creation fails
	CreateRenderable(mesh *codec.MeshData, materials []*material.Resolved) (any, error)

	// DestroyRenderable releases a renderable previously created by
	// CreateRenderable. Shared cache entries are unaffected.
	//
	// Parameters:
	//   - handle: the handle returned by CreateRenderable
	DestroyRenderable(handle any)
}

// Observer samples the viewpoint driving streaming decisions, once per tick.
type Observer interface {
	// State returns the observer position and view frustum.
	//
	// Returns:
	//   - [3]float32: the observer position in world space
	//   - common.Frustum: the view frustum
	State() ([3]float32, common.Frustum)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func() ([3]float32, common.Frustum)

// State calls the wrapped function.
func (f ObserverFunc) State() ([3]float32, common.Frustum) {
	return f()
}
