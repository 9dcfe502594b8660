package common

import (
	"github.com/chewxy/math32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined View * Projection matrix.
// Uses the Gribb/Hartmann method for plane extraction.
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	var f Frustum

	// For column-major matrix M, row r lives at indices (c*4 + r) for each
	// column c. Each frustum plane is row3 ± one of rows 0..2.
	row := func(r int) [4]float32 {
		return [4]float32{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r3 := row(3)

	set := func(index int, r [4]float32, sign float32) {
		f.Planes[index] = Plane{
			Normal:   [3]float32{r3[0] + sign*r[0], r3[1] + sign*r[1], r3[2] + sign*r[2]},
			Distance: r3[3] + sign*r[3],
		}
	}

	r0, r1, r2 := row(0), row(1), row(2)
	set(FrustumLeft, r0, 1)
	set(FrustumRight, r0, -1)
	set(FrustumBottom, r1, 1)
	set(FrustumTop, r1, -1)
	set(FrustumNear, r2, 1)
	set(FrustumFar, r2, -1)

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := math32.Sqrt(
		p.Normal[0]*p.Normal[0] +
			p.Normal[1]*p.Normal[1] +
			p.Normal[2]*p.Normal[2],
	)

	if length > 0 {
		invLen := 1.0 / length
		p.Normal[0] *= invLen
		p.Normal[1] *= invLen
		p.Normal[2] *= invLen
		p.Distance *= invLen
	}
}

// IntersectsAABB tests whether the box intersects (or is contained in) the
// frustum. Uses the positive-vertex test: for each plane, the box corner
// farthest along the plane normal must be on the inside half-space. The test
// is conservative — it may report intersection for boxes slightly outside a
// frustum corner, which is acceptable for streaming decisions.
//
// Parameters:
//   - box: the axis-aligned box to test
//
// Returns:
//   - bool: true if the box intersects the frustum
func (f *Frustum) IntersectsAABB(box AABB) bool {
	if box.Empty() {
		return false
	}
	for i := range f.Planes {
		p := &f.Planes[i]

		// Positive vertex: pick the corner farthest along the plane normal.
		var v [3]float32
		for axis := 0; axis < 3; axis++ {
			if p.Normal[axis] >= 0 {
				v[axis] = box.Max[axis]
			} else {
				v[axis] = box.Min[axis]
			}
		}

		if p.Normal[0]*v[0]+p.Normal[1]*v[1]+p.Normal[2]*v[2]+p.Distance < 0 {
			return false
		}
	}
	return true
}
