package scene

import (
	"fmt"
	"math"

	"github.com/mjkal/tinybvh/types"
)

// Triangle is a single scene primitive. Only vertex positions are tracked;
// the harness has no use for normals or UV data.
type Triangle struct {
	V0, V1, V2 types.Vec3
}

// BBox returns the axis-aligned bounds of the triangle.
func (t Triangle) BBox() [2]types.Vec3 {
	min := types.MinVec3(types.MinVec3(t.V0, t.V1), t.V2)
	max := types.MaxVec3(types.MaxVec3(t.V0, t.V1), t.V2)
	return [2]types.Vec3{min, max}
}

// Center returns the triangle centroid.
func (t Triangle) Center() types.Vec3 {
	return t.V0.Add(t.V1).Add(t.V2).Mul(1.0 / 3.0)
}

// Normal returns the (unnormalized direction preserved) geometric normal.
func (t Triangle) Normal() types.Vec3 {
	return t.V1.Sub(t.V0).Cross(t.V2.Sub(t.V0)).Normalize()
}

// Scene is an immutable set of triangles with a derived bounding box. It is
// assembled once via Append calls and then only read by the rest of the
// harness.
type Scene struct {
	Name string

	tris []Triangle
	min  types.Vec3
	max  types.Vec3
}

// Create an empty named scene.
func New(name string) *Scene {
	return &Scene{
		Name: name,
		min:  types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		max:  types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Append triangles to the scene, growing the bounding box.
func (s *Scene) Append(tris []Triangle) {
	for _, tri := range tris {
		bbox := tri.BBox()
		s.min = types.MinVec3(s.min, bbox[0])
		s.max = types.MaxVec3(s.max, bbox[1])
	}
	s.tris = append(s.tris, tris...)
}

// Tris returns the scene triangle list. Callers must treat it as read-only.
func (s *Scene) Tris() []Triangle {
	return s.tris
}

// TriCount returns the number of triangles in the scene.
func (s *Scene) TriCount() int {
	return len(s.tris)
}

// Bounds returns the scene bounding box extents.
func (s *Scene) Bounds() (min, max types.Vec3) {
	return s.min, s.max
}

// Extent returns the bounding box diagonal.
func (s *Scene) Extent() types.Vec3 {
	return s.max.Sub(s.min)
}

// Size returns the largest bounding box side. Sampling thresholds are
// derived from this so the generator is scale-invariant across scenes.
func (s *Scene) Size() float32 {
	return s.Extent().MaxComponent()
}

// Stats returns a human-readable scene summary.
func (s *Scene) Stats() string {
	return fmt.Sprintf("%s: %d triangles, bounds %v - %v", s.Name, len(s.tris), s.min, s.max)
}
