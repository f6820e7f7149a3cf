package bvh

import (
	"math"
	"sort"
	"time"

	"github.com/mjkal/tinybvh/log"
	"github.com/mjkal/tinybvh/scene"
	"github.com/mjkal/tinybvh/types"
)

const (
	// DefaultBinCount is the number of split-plane candidates evaluated
	// per axis when no bin count is configured.
	DefaultBinCount = 8

	// Centroid extents below this are not worth splitting along.
	minAxisExtent float32 = 1e-6

	defaultMinLeaf = 2
)

// BuildOptions control the high-quality builder.
type BuildOptions struct {
	// Split-plane candidates per axis.
	BinCount int

	// Use one extra bin on odd tree levels. Doubles the resolution of a
	// bin count sweep without doubling the step size; a configuration
	// with OddEven set is reported as "N.5 bins".
	OddEven bool

	// Jitter the per-node bin count between DefaultBinCount and BinCount
	// when non-zero.
	RandomSeed uint32

	// Evaluate every split position over sorted centroids instead of
	// binning. Ignores BinCount.
	FullSweep bool

	// Create a leaf at or below this primitive count.
	MinLeafSize int
}

// Bins returns the effective bin count as the fractional value used in
// reports and checkpoint names (N.5 when odd/even alternation is on).
func (o BuildOptions) Bins() float32 {
	b := float32(o.BinCount)
	if o.BinCount <= 1 {
		b = DefaultBinCount
	}
	if o.OddEven {
		b += 0.5
	}
	return b
}

var builderLog = log.New("bvh")

// Build constructs a hierarchy with default settings (8 bins). Used for
// intermediate traversal oracles where build speed matters more than tree
// quality.
func Build(tris []scene.Triangle) *BVH {
	return BuildHQ(tris, BuildOptions{})
}

// BuildHQ constructs a hierarchy using binned SAH splits with the given
// options.
func BuildHQ(tris []scene.Triangle, opt BuildOptions) *BVH {
	if opt.BinCount <= 1 {
		opt.BinCount = DefaultBinCount
	}
	if opt.MinLeafSize <= 0 {
		opt.MinLeafSize = defaultMinLeaf
	}

	b := &builder{
		tris:    tris,
		opt:     opt,
		rng:     opt.RandomSeed,
		nodes:   make([]Node, 2*len(tris)+1),
		primIdx: make([]uint32, len(tris)),
	}
	b.centroids = make([]types.Vec3, len(tris))
	for i, tri := range tris {
		b.primIdx[i] = uint32(i)
		b.centroids[i] = tri.Center()
	}

	start := time.Now()
	b.used = 1
	root := &b.nodes[0]
	root.LeftFirst = 0
	root.Count = uint32(len(tris))
	b.updateBounds(0)
	if len(tris) > 0 {
		b.subdivide(0, 0)
	}
	builderLog.Debugf("built BVH over %d tris: %d nodes, %d leafs, %d ms",
		len(tris), b.used, b.leafs, time.Since(start).Nanoseconds()/1e6)

	return &BVH{
		Tris:      tris,
		Nodes:     b.nodes[:b.used],
		PrimIdx:   b.primIdx,
		UsedNodes: b.used,
	}
}

type builder struct {
	tris      []scene.Triangle
	centroids []types.Vec3
	opt       BuildOptions
	rng       uint32

	nodes   []Node
	primIdx []uint32
	used    int
	leafs   int
}

func (b *builder) updateBounds(nodeIdx int) {
	node := &b.nodes[nodeIdx]
	node.Min = types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	node.Max = types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	first, count := int(node.LeftFirst), int(node.Count)
	for i := first; i < first+count; i++ {
		bbox := b.tris[b.primIdx[i]].BBox()
		node.Min = types.MinVec3(node.Min, bbox[0])
		node.Max = types.MaxVec3(node.Max, bbox[1])
	}
}

func (b *builder) subdivide(nodeIdx, depth int) {
	node := &b.nodes[nodeIdx]
	count := int(node.Count)
	if count <= b.opt.MinLeafSize {
		b.leafs++
		return
	}

	var leftCount int
	var cost float32
	var ok bool
	if b.opt.FullSweep {
		leftCount, cost, ok = b.sweepSplit(node)
	} else {
		var axis int
		var pos float32
		axis, pos, cost, ok = b.binnedSplit(node, depth)
		if ok {
			leftCount = b.partition(node, axis, pos)
			ok = leftCount > 0 && leftCount < count
		}
	}

	// A split has to beat the cost of leaving the node as a leaf.
	if !ok || cost >= boxArea(node.Min, node.Max)*float32(count) {
		b.leafs++
		return
	}

	first := int(node.LeftFirst)
	left := b.used
	b.used += 2
	b.nodes[left] = Node{LeftFirst: uint32(first), Count: uint32(leftCount)}
	b.nodes[left+1] = Node{LeftFirst: uint32(first + leftCount), Count: uint32(count - leftCount)}
	node.LeftFirst = uint32(left)
	node.Count = 0
	b.updateBounds(left)
	b.updateBounds(left + 1)
	b.subdivide(left, depth+1)
	b.subdivide(left+1, depth+1)
}

// Reorder the node's primitive segment around the split plane and return
// the left partition size.
func (b *builder) partition(node *Node, axis int, pos float32) int {
	i := int(node.LeftFirst)
	j := i + int(node.Count) - 1
	for i <= j {
		if b.centroids[b.primIdx[i]][axis] < pos {
			i++
		} else {
			b.primIdx[i], b.primIdx[j] = b.primIdx[j], b.primIdx[i]
			j--
		}
	}
	return i - int(node.LeftFirst)
}

// Pick the cheapest binned SAH split for the node.
func (b *builder) binnedSplit(node *Node, depth int) (bestAxis int, bestPos float32, bestCost float32, ok bool) {
	bins := b.opt.BinCount
	if b.opt.OddEven && depth&1 == 1 {
		bins++
	}
	if b.opt.RandomSeed != 0 {
		span := b.opt.BinCount - DefaultBinCount + 1
		if span < 2 {
			span = 2
		}
		bins = DefaultBinCount + int(xorShift32(&b.rng)%uint32(span))
	}
	if bins < 2 {
		bins = 2
	}

	first, count := int(node.LeftFirst), int(node.Count)

	// Centroid bounds drive the bin placement.
	cmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	cmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := first; i < first+count; i++ {
		c := b.centroids[b.primIdx[i]]
		cmin = types.MinVec3(cmin, c)
		cmax = types.MaxVec3(cmax, c)
	}

	bestCost = math.MaxFloat32
	binMin := make([]types.Vec3, bins)
	binMax := make([]types.Vec3, bins)
	binCount := make([]int, bins)
	leftArea := make([]float32, bins-1)
	rightArea := make([]float32, bins-1)
	leftCount := make([]int, bins-1)
	rightCount := make([]int, bins-1)

	for axis := 0; axis < 3; axis++ {
		extent := cmax[axis] - cmin[axis]
		if extent < minAxisExtent {
			continue
		}

		for i := range binCount {
			binCount[i] = 0
			binMin[i] = types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
			binMax[i] = types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
		}
		scale := float32(bins) / extent
		for i := first; i < first+count; i++ {
			idx := b.primIdx[i]
			bi := int((b.centroids[idx][axis] - cmin[axis]) * scale)
			if bi >= bins {
				bi = bins - 1
			}
			bbox := b.tris[idx].BBox()
			binCount[bi]++
			binMin[bi] = types.MinVec3(binMin[bi], bbox[0])
			binMax[bi] = types.MaxVec3(binMax[bi], bbox[1])
		}

		// Sweep the plane candidates from both sides.
		gmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
		gmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
		sum := 0
		for i := 0; i < bins-1; i++ {
			sum += binCount[i]
			leftCount[i] = sum
			gmin = types.MinVec3(gmin, binMin[i])
			gmax = types.MaxVec3(gmax, binMax[i])
			leftArea[i] = boxArea(gmin, gmax)
		}
		gmin = types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
		gmax = types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
		sum = 0
		for i := bins - 1; i > 0; i-- {
			sum += binCount[i]
			rightCount[i-1] = sum
			gmin = types.MinVec3(gmin, binMin[i])
			gmax = types.MaxVec3(gmax, binMax[i])
			rightArea[i-1] = boxArea(gmin, gmax)
		}

		for i := 0; i < bins-1; i++ {
			if leftCount[i] == 0 || rightCount[i] == 0 {
				continue
			}
			cost := leftArea[i]*float32(leftCount[i]) + rightArea[i]*float32(rightCount[i])
			if cost < bestCost {
				bestCost = cost
				bestAxis = axis
				bestPos = cmin[axis] + extent*float32(i+1)/float32(bins)
				ok = true
			}
		}
	}
	return bestAxis, bestPos, bestCost, ok
}

// Evaluate every split position over centroid-sorted primitives and
// reorder the node's segment so the best split is a contiguous partition.
func (b *builder) sweepSplit(node *Node) (leftCount int, bestCost float32, ok bool) {
	first, count := int(node.LeftFirst), int(node.Count)
	seg := b.primIdx[first : first+count]

	sorted := make([]uint32, count)
	areaL := make([]float32, count)
	areaR := make([]float32, count)
	var bestAxis, bestSplit int
	bestCost = math.MaxFloat32

	for axis := 0; axis < 3; axis++ {
		order := make([]uint32, count)
		copy(order, seg)
		a := axis
		sort.Slice(order, func(i, j int) bool {
			ci, cj := b.centroids[order[i]][a], b.centroids[order[j]][a]
			if ci != cj {
				return ci < cj
			}
			return order[i] < order[j]
		})

		gmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
		gmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
		for i := 0; i < count; i++ {
			bbox := b.tris[order[i]].BBox()
			gmin = types.MinVec3(gmin, bbox[0])
			gmax = types.MaxVec3(gmax, bbox[1])
			areaL[i] = boxArea(gmin, gmax)
		}
		gmin = types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
		gmax = types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
		for i := count - 1; i > 0; i-- {
			bbox := b.tris[order[i]].BBox()
			gmin = types.MinVec3(gmin, bbox[0])
			gmax = types.MaxVec3(gmax, bbox[1])
			areaR[i-1] = boxArea(gmin, gmax)
		}

		for i := 0; i < count-1; i++ {
			cost := areaL[i]*float32(i+1) + areaR[i]*float32(count-i-1)
			if cost < bestCost {
				bestCost = cost
				bestAxis = axis
				bestSplit = i + 1
				ok = true
			}
		}
		if ok && bestAxis == axis {
			copy(sorted, order)
		}
	}
	if !ok {
		return 0, 0, false
	}
	copy(seg, sorted)
	return bestSplit, bestCost, true
}

func xorShift32(state *uint32) uint32 {
	*state ^= *state << 13
	*state ^= *state >> 17
	*state ^= *state << 5
	return *state
}
