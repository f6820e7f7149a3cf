package bvh

import (
	"github.com/mjkal/tinybvh/scene"
	"github.com/mjkal/tinybvh/types"
)

const (
	// FarDistance is the hit record sentinel meaning "no hit".
	FarDistance float32 = 1e30

	// NoPrim is the hit record sentinel for the primitive index.
	NoPrim uint32 = 0xffffffff

	// Cost model constants per Aila et al., "On Quality Metrics of
	// Bounding Volume Hierarchies".
	costTraversal float32 = 1.2
	costIntersect float32 = 1.0
)

// HitRecord tracks the closest intersection found along a ray.
type HitRecord struct {
	T    float32
	Prim uint32
	U, V float32
}

// Ray is a single traversal query. The hit record is mutated by Intersect;
// copy the ray and call Reset to replay the same query against another
// hierarchy.
type Ray struct {
	O, D types.Vec3
	rD   types.Vec3
	Hit  HitRecord
}

// Create a ray with a normalized direction and a pristine hit record.
func NewRay(origin, dir types.Vec3) Ray {
	d := dir.Normalize()
	r := Ray{
		O:  origin,
		D:  d,
		rD: types.Vec3{1.0 / d[0], 1.0 / d[1], 1.0 / d[2]},
	}
	r.Reset()
	return r
}

// Reset clears the hit record so the ray can be traced again.
func (r *Ray) Reset() {
	r.Hit = HitRecord{T: FarDistance, Prim: NoPrim}
}

// Node is a single hierarchy node. Nodes are stored in a contiguous arena
// with the root at index 0; an internal node's children occupy adjacent
// slots LeftFirst and LeftFirst+1. For leaves (Count > 0) LeftFirst indexes
// into the primitive permutation array instead.
type Node struct {
	Min       types.Vec3
	LeftFirst uint32
	Max       types.Vec3
	Count     uint32
}

func (n *Node) IsLeaf() bool {
	return n.Count > 0
}

// Half surface area of a bounding box; only used in ratios so the factor
// of two is dropped.
func boxArea(min, max types.Vec3) float32 {
	d := max.Sub(min)
	if d[0] < 0 || d[1] < 0 || d[2] < 0 {
		return 0
	}
	return d[0]*d[1] + d[1]*d[2] + d[2]*d[0]
}

// BVH is a bounding volume hierarchy over a triangle list. The triangle
// slice is referenced, never copied or mutated.
type BVH struct {
	Tris      []scene.Triangle
	Nodes     []Node
	PrimIdx   []uint32
	UsedNodes int
}

// Snapshot is a deep copy of the node storage, used by the optimization
// driver to roll back rejected mutations.
type Snapshot struct {
	nodes   []Node
	primIdx []uint32
	used    int
}

// Snapshot deep-copies the node arena, primitive permutation and node
// counts.
func (b *BVH) Snapshot() *Snapshot {
	s := &Snapshot{
		nodes:   make([]Node, len(b.Nodes)),
		primIdx: make([]uint32, len(b.PrimIdx)),
		used:    b.UsedNodes,
	}
	copy(s.nodes, b.Nodes)
	copy(s.primIdx, b.PrimIdx)
	return s
}

// Restore overwrites the hierarchy with a snapshot taken earlier, leaving
// node storage and counts exactly as they were at snapshot time.
func (b *BVH) Restore(s *Snapshot) {
	b.Nodes = make([]Node, len(s.nodes))
	b.PrimIdx = make([]uint32, len(s.primIdx))
	copy(b.Nodes, s.nodes)
	copy(b.PrimIdx, s.primIdx)
	b.UsedNodes = s.used
}
