package bvh

// SAHCost returns the surface area heuristic cost of the tree: the expected
// traversal expense of a random ray under the Aila et al. cost constants.
// Independent of any ray set; used as a secondary construction-quality
// metric next to the measured RRS cost.
func (b *BVH) SAHCost() float32 {
	if b.UsedNodes == 0 {
		return 0
	}
	root := &b.Nodes[0]
	rootArea := boxArea(root.Min, root.Max)
	if rootArea <= 0 {
		return 0
	}

	var sum float32
	stack := make([]uint32, 0, 64)
	stack = append(stack, 0)
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &b.Nodes[idx]
		area := boxArea(node.Min, node.Max)
		if node.IsLeaf() {
			sum += costIntersect * area * float32(node.Count)
			continue
		}
		sum += costTraversal * area
		stack = append(stack, node.LeftFirst, node.LeftFirst+1)
	}
	return sum / rootArea
}
