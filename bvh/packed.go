package bvh

import (
	"github.com/mjkal/tinybvh/types"
)

// PackedBVH is a read-only traversal-optimized copy of a hierarchy: nodes
// are relaid in depth-first order and leaf triangles are gathered into a
// contiguous array with precomputed edges. Used for wall-clock timing runs;
// step-count measurements stay on the plain BVH.
type PackedBVH struct {
	nodes []packedNode
	tris  []packedTri
}

type packedNode struct {
	min       types.Vec3
	leftFirst uint32
	max       types.Vec3
	count     uint32
}

type packedTri struct {
	v0, e1, e2 types.Vec3
	prim       uint32
}

// Pack builds the traversal-optimized copy. The source hierarchy is not
// modified.
func Pack(b *BVH) *PackedBVH {
	p := &PackedBVH{
		nodes: make([]packedNode, b.UsedNodes),
		tris:  make([]packedTri, 0, len(b.PrimIdx)),
	}
	if b.UsedNodes == 0 {
		return p
	}
	used := 1
	var emit func(src uint32, slot int)
	emit = func(src uint32, slot int) {
		n := &b.Nodes[src]
		if n.IsLeaf() {
			first := uint32(len(p.tris))
			for i := n.LeftFirst; i < n.LeftFirst+n.Count; i++ {
				prim := b.PrimIdx[i]
				tri := &b.Tris[prim]
				p.tris = append(p.tris, packedTri{
					v0:   tri.V0,
					e1:   tri.V1.Sub(tri.V0),
					e2:   tri.V2.Sub(tri.V0),
					prim: prim,
				})
			}
			p.nodes[slot] = packedNode{min: n.Min, max: n.Max, leftFirst: first, count: n.Count}
			return
		}
		left := used
		used += 2
		p.nodes[slot] = packedNode{min: n.Min, max: n.Max, leftFirst: uint32(left)}
		emit(n.LeftFirst, left)
		emit(n.LeftFirst+1, left+1)
	}
	emit(0, 0)
	return p
}

// Intersect updates the ray's hit record with the closest intersection.
// No step counting; this path exists to be fast.
func (p *PackedBVH) Intersect(r *Ray) {
	if len(p.nodes) == 0 {
		return
	}
	stack := make([]uint32, 0, 128)
	nodeIdx := uint32(0)
	for {
		node := &p.nodes[nodeIdx]
		if node.count > 0 {
			for i := node.leftFirst; i < node.leftFirst+node.count; i++ {
				p.tris[i].intersect(r)
			}
			if len(stack) == 0 {
				return
			}
			nodeIdx = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			continue
		}

		child1, child2 := node.leftFirst, node.leftFirst+1
		d1 := intersectAABB(r, p.nodes[child1].min, p.nodes[child1].max)
		d2 := intersectAABB(r, p.nodes[child2].min, p.nodes[child2].max)
		if d1 > d2 {
			d1, d2 = d2, d1
			child1, child2 = child2, child1
		}
		if d1 == FarDistance {
			if len(stack) == 0 {
				return
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
}

func (t *packedTri) intersect(r *Ray) {
	h := r.D.Cross(t.e2)
	a := t.e1.Dot(h)
	if a > -triEpsilon && a < triEpsilon {
		return
	}
	f := 1.0 / a
	s := r.O.Sub(t.v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return
	}
	q := s.Cross(t.e1)
	v := f * r.D.Dot(q)
	if v < 0 || u+v > 1 {
		return
	}
	tt := f * t.e2.Dot(q)
	if tt > 0 && tt < r.Hit.T {
		r.Hit = HitRecord{T: tt, Prim: t.prim, U: u, V: v}
	}
}
