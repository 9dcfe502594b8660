package common

import (
	"github.com/chewxy/math32"
)

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min [3]float32
	Max [3]float32
}

// NewAABB returns an inverted (empty) box ready for accumulation via Union.
// Any union with a valid box or point replaces the inverted extents.
//
// Returns:
//   - AABB: an empty box with Min at +inf and Max at -inf
func NewAABB() AABB {
	return AABB{
		Min: [3]float32{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		Max: [3]float32{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
	}
}

// Empty reports whether the box has never been extended.
//
// Returns:
//   - bool: true if the box is still inverted
func (b AABB) Empty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// ExtendPoint grows the box to contain the given point.
//
// Parameters:
//   - p: the point to include
//
// Returns:
//   - AABB: the grown box
func (b AABB) ExtendPoint(p [3]float32) AABB {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return b
}

// Union returns the smallest box containing both boxes.
//
// Parameters:
//   - other: the box to merge with
//
// Returns:
//   - AABB: the merged box
func (b AABB) Union(other AABB) AABB {
	if other.Empty() {
		return b
	}
	if b.Empty() {
		return other
	}
	return b.ExtendPoint(other.Min).ExtendPoint(other.Max)
}

// Center returns the midpoint of the box.
//
// Returns:
//   - [3]float32: the box center
func (b AABB) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) * 0.5,
		(b.Min[1] + b.Max[1]) * 0.5,
		(b.Min[2] + b.Max[2]) * 0.5,
	}
}

// DistanceToCenter returns the Euclidean distance from p to the box center.
//
// Parameters:
//   - p: the query point
//
// Returns:
//   - float32: distance from p to the center
func (b AABB) DistanceToCenter(p [3]float32) float32 {
	c := b.Center()
	dx := p[0] - c[0]
	dy := p[1] - c[1]
	dz := p[2] - c[2]
	return math32.Sqrt(dx*dx + dy*dy + dz*dz)
}

// SquaredDistanceToPoint returns the squared distance from p to the closest
// point on (or in) the box. A point inside the box yields zero.
//
// Parameters:
//   - p: the query point
//
// Returns:
//   - float32: squared distance from p to the box surface, 0 if inside
func (b AABB) SquaredDistanceToPoint(p [3]float32) float32 {
	var sq float32
	for i := 0; i < 3; i++ {
		v := p[i]
		if v < b.Min[i] {
			d := b.Min[i] - v
			sq += d * d
		} else if v > b.Max[i] {
			d := v - b.Max[i]
			sq += d * d
		}
	}
	return sq
}

// ContainsPoint reports whether p lies inside or within epsilon of the box,
// measured on squared distance to the closest surface point.
//
// Parameters:
//   - p: the query point
//   - epsilon: slack on the squared distance
//
// Returns:
//   - bool: true if p is inside or within epsilon of the box
func (b AABB) ContainsPoint(p [3]float32, epsilon float32) bool {
	return b.SquaredDistanceToPoint(p) <= epsilon
}

// Transform applies a 4x4 column-major matrix to the box by transforming all
// eight corners and re-fitting an axis-aligned box around them.
//
// Parameters:
//   - m: the transform matrix (16 elements, column-major)
//
// Returns:
//   - AABB: the transformed, re-fitted box
func (b AABB) Transform(m []float32) AABB {
	if b.Empty() {
		return b
	}
	out := NewAABB()
	for i := 0; i < 8; i++ {
		corner := [3]float32{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out = out.ExtendPoint(TransformPoint(m, corner))
	}
	return out
}
