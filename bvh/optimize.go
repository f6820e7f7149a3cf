package bvh

import (
	"sort"

	"github.com/mjkal/tinybvh/types"
)

// Reinsertion-based local search over the tree topology, in the spirit of
// Bittner et al., "Fast Insertion-Based Optimization of Bounding Volume
// Hierarchies". Each round removes a batch of high-cost internal nodes and
// reinserts their subtrees where they grow the tree least, then rebuilds
// the packed node layout.

const maxReinsertions = 256

// Optimize runs the given number of reinsertion rounds.
func (b *BVH) Optimize(rounds int) {
	for i := 0; i < rounds; i++ {
		b.optimizeRound()
	}
}

// OptimizeOnce applies a single reinsertion round, producing the candidate
// tree the optimization driver measures against the pre-mutation cost.
func (b *BVH) OptimizeOnce() {
	b.Optimize(1)
}

func (b *BVH) optimizeRound() {
	// Relinking needs a grandparent above the removed node.
	if b.UsedNodes < 7 {
		return
	}
	et := newEditTree(b)
	et.reinsertWorst()
	et.refit(et.root)
	et.flatten(b)
}

// editNode mirrors a flat node with explicit child and parent links so
// subtrees can be unlinked and relinked freely during a round. count > 0
// marks a leaf.
type editNode struct {
	min, max     types.Vec3
	parent       int
	left, right  int
	first, count uint32
}

type editTree struct {
	nodes []editNode
	root  int
}

func newEditTree(b *BVH) *editTree {
	et := &editTree{nodes: make([]editNode, b.UsedNodes), root: 0}
	var walk func(idx, parent int)
	walk = func(idx, parent int) {
		n := &b.Nodes[idx]
		e := editNode{min: n.Min, max: n.Max, parent: parent, left: -1, right: -1}
		if n.IsLeaf() {
			e.first, e.count = n.LeftFirst, n.Count
		} else {
			e.left, e.right = int(n.LeftFirst), int(n.LeftFirst)+1
		}
		et.nodes[idx] = e
		if e.left >= 0 {
			walk(e.left, idx)
			walk(e.right, idx)
		}
	}
	walk(et.root, -1)
	return et
}

// reinsertWorst removes the largest-area internal nodes and reinserts
// their child subtrees at better positions.
func (et *editTree) reinsertWorst() {
	type candidate struct {
		idx  int
		area float32
	}
	var cands []candidate
	for i := range et.nodes {
		n := &et.nodes[i]
		if n.count > 0 || i == et.root {
			continue
		}
		// Need a grandparent to splice the sibling into.
		if n.parent < 0 || et.nodes[n.parent].parent < 0 {
			continue
		}
		cands = append(cands, candidate{idx: i, area: boxArea(n.min, n.max)})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].area != cands[j].area {
			return cands[i].area > cands[j].area
		}
		return cands[i].idx < cands[j].idx
	})

	limit := len(cands) / 20
	if limit < 1 {
		limit = 1
	}
	if limit > maxReinsertions {
		limit = maxReinsertions
	}

	freed := make([]bool, len(et.nodes))
	for _, c := range cands[:limit] {
		if !et.removable(c.idx, freed) {
			continue
		}
		et.removeAndReinsert(c.idx, freed)
	}
}

// removable re-validates a candidate against mutations made earlier in the
// same round.
func (et *editTree) removable(idx int, freed []bool) bool {
	n := &et.nodes[idx]
	if freed[idx] || n.count > 0 || n.left < 0 {
		return false
	}
	p := n.parent
	if p < 0 || freed[p] || et.nodes[p].count > 0 {
		return false
	}
	if et.nodes[p].left != idx && et.nodes[p].right != idx {
		return false
	}
	g := et.nodes[p].parent
	if g < 0 || freed[g] {
		return false
	}
	if et.nodes[g].left != p && et.nodes[g].right != p {
		return false
	}
	return true
}

func (et *editTree) removeAndReinsert(idx int, freed []bool) {
	n := &et.nodes[idx]
	p := n.parent
	g := et.nodes[p].parent

	// Splice the sibling into the grandparent slot.
	sibling := et.nodes[p].left
	if sibling == idx {
		sibling = et.nodes[p].right
	}
	if et.nodes[g].left == p {
		et.nodes[g].left = sibling
	} else {
		et.nodes[g].right = sibling
	}
	et.nodes[sibling].parent = g
	et.refitPath(g)

	left, right := n.left, n.right
	freed[idx] = true
	freed[p] = true

	// The two freed slots become the joints for the reinserted subtrees.
	et.insert(left, p, freed)
	et.insert(right, idx, freed)
}

// insert pairs subtree x with the leaf it grows least, reusing the spare
// node slot as the new joint.
func (et *editTree) insert(x, spare int, freed []bool) {
	xmin, xmax := et.nodes[x].min, et.nodes[x].max

	cur := et.root
	for et.nodes[cur].count == 0 {
		l, r := et.nodes[cur].left, et.nodes[cur].right
		if et.growth(l, xmin, xmax) <= et.growth(r, xmin, xmax) {
			cur = l
		} else {
			cur = r
		}
	}

	p := et.nodes[cur].parent
	et.nodes[spare] = editNode{
		min:    types.MinVec3(xmin, et.nodes[cur].min),
		max:    types.MaxVec3(xmax, et.nodes[cur].max),
		parent: p,
		left:   cur,
		right:  x,
	}
	if et.nodes[p].left == cur {
		et.nodes[p].left = spare
	} else {
		et.nodes[p].right = spare
	}
	et.nodes[cur].parent = spare
	et.nodes[x].parent = spare
	freed[spare] = false
	et.refitPath(p)
}

func (et *editTree) growth(idx int, min, max types.Vec3) float32 {
	n := &et.nodes[idx]
	return boxArea(types.MinVec3(n.min, min), types.MaxVec3(n.max, max)) - boxArea(n.min, n.max)
}

// refitPath recomputes bounds from the given node up to the root.
func (et *editTree) refitPath(idx int) {
	for idx >= 0 {
		n := &et.nodes[idx]
		if n.count == 0 {
			l, r := &et.nodes[n.left], &et.nodes[n.right]
			n.min = types.MinVec3(l.min, r.min)
			n.max = types.MaxVec3(l.max, r.max)
		}
		idx = n.parent
	}
}

// refit recomputes all bounds bottom-up.
func (et *editTree) refit(idx int) (types.Vec3, types.Vec3) {
	n := &et.nodes[idx]
	if n.count > 0 {
		return n.min, n.max
	}
	lmin, lmax := et.refit(n.left)
	rmin, rmax := et.refit(n.right)
	n.min = types.MinVec3(lmin, rmin)
	n.max = types.MaxVec3(lmax, rmax)
	return n.min, n.max
}

// flatten writes the edit tree back into the packed layout with children
// in adjacent slots.
func (et *editTree) flatten(b *BVH) {
	nodes := make([]Node, len(et.nodes))
	used := 1
	var emit func(e, slot int)
	emit = func(e, slot int) {
		en := &et.nodes[e]
		if en.count > 0 {
			nodes[slot] = Node{Min: en.min, Max: en.max, LeftFirst: en.first, Count: en.count}
			return
		}
		left := used
		used += 2
		nodes[slot] = Node{Min: en.min, Max: en.max, LeftFirst: uint32(left)}
		emit(en.left, left)
		emit(en.right, left+1)
	}
	emit(et.root, 0)
	b.Nodes = nodes[:used]
	b.UsedNodes = used
}
