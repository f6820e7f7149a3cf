package bvh

import (
	"github.com/mjkal/tinybvh/scene"
	"github.com/mjkal/tinybvh/types"
)

const triEpsilon float32 = 1e-9

// Intersect traces the ray through the hierarchy, updating the ray's hit
// record with the closest intersection found. It returns the number of
// traversal steps taken, which serves as the portable cost unit for
// hierarchy comparison.
func (b *BVH) Intersect(r *Ray) int {
	if b.UsedNodes == 0 || len(b.Tris) == 0 {
		return 0
	}

	steps := 0
	// Reinsertion rounds can grow unbalanced spines well past any fixed
	// depth, so the deferred-child stack has to be able to grow.
	stack := make([]uint32, 0, 128)
	nodeIdx := uint32(0)
	for {
		steps++
		node := &b.Nodes[nodeIdx]
		if node.IsLeaf() {
			first, count := node.LeftFirst, node.Count
			for i := first; i < first+count; i++ {
				prim := b.PrimIdx[i]
				intersectTri(r, &b.Tris[prim], prim)
			}
			if len(stack) == 0 {
				break
			}
			nodeIdx = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			continue
		}

		child1, child2 := node.LeftFirst, node.LeftFirst+1
		d1 := intersectAABB(r, b.Nodes[child1].Min, b.Nodes[child1].Max)
		d2 := intersectAABB(r, b.Nodes[child2].Min, b.Nodes[child2].Max)
		if d1 > d2 {
			d1, d2 = d2, d1
			child1, child2 = child2, child1
		}
		if d1 == FarDistance {
			if len(stack) == 0 {
				break
			}
			nodeIdx = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			continue
		}
		nodeIdx = child1
		if d2 != FarDistance {
			stack = append(stack, child2)
		}
	}
	return steps
}

// Slab test. Returns the entry distance, or FarDistance when the box is
// missed or lies beyond the current closest hit.
func intersectAABB(r *Ray, min, max types.Vec3) float32 {
	tx1 := (min[0] - r.O[0]) * r.rD[0]
	tx2 := (max[0] - r.O[0]) * r.rD[0]
	tmin := min32(tx1, tx2)
	tmax := max32(tx1, tx2)
	ty1 := (min[1] - r.O[1]) * r.rD[1]
	ty2 := (max[1] - r.O[1]) * r.rD[1]
	tmin = max32(tmin, min32(ty1, ty2))
	tmax = min32(tmax, max32(ty1, ty2))
	tz1 := (min[2] - r.O[2]) * r.rD[2]
	tz2 := (max[2] - r.O[2]) * r.rD[2]
	tmin = max32(tmin, min32(tz1, tz2))
	tmax = min32(tmax, max32(tz1, tz2))
	if tmax >= tmin && tmin < r.Hit.T && tmax > 0 {
		return tmin
	}
	return FarDistance
}

// Moeller-Trumbore ray/triangle test.
func intersectTri(r *Ray, tri *scene.Triangle, prim uint32) {
	e1 := tri.V1.Sub(tri.V0)
	e2 := tri.V2.Sub(tri.V0)
	h := r.D.Cross(e2)
	a := e1.Dot(h)
	if a > -triEpsilon && a < triEpsilon {
		return
	}
	f := 1.0 / a
	s := r.O.Sub(tri.V0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return
	}
	q := s.Cross(e1)
	v := f * r.D.Dot(q)
	if v < 0 || u+v > 1 {
		return
	}
	t := f * e2.Dot(q)
	if t > 0 && t < r.Hit.T {
		r.Hit = HitRecord{T: t, Prim: prim, U: u, V: v}
	}
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
