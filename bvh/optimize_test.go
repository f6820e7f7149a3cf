package bvh

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjkal/tinybvh/types"
)

func TestOptimizePreservesHits(t *testing.T) {
	tris := randomTris(120, 0xfeed)
	b := BuildHQ(tris, BuildOptions{BinCount: 8})

	for round := 0; round < 3; round++ {
		b.OptimizeOnce()
		requireValid(t, b)
	}

	// The optimized tree must answer every query exactly like a linear
	// scan; reinsertion moves subtrees, never primitives.
	seed := uint32(0x42)
	for i := 0; i < 100; i++ {
		origin := types.XYZ(testRand(&seed)*2-0.5, testRand(&seed)*2-0.5, testRand(&seed)*2-0.5)
		dir := types.XYZ(testRand(&seed)*2-1, testRand(&seed)*2-1, testRand(&seed)*2-1)
		if dir.Len() < 0.1 {
			continue
		}
		r := NewRay(origin, dir)
		b.Intersect(&r)
		require.InDelta(t, bruteForce(NewRay(origin, dir), tris), r.Hit.T, 1e-3)
	}
}

func TestOptimizeKeepsNodeCount(t *testing.T) {
	b := BuildHQ(randomTris(80, 0x9), BuildOptions{BinCount: 8})
	before := b.UsedNodes
	b.OptimizeOnce()
	assert.Equal(t, before, b.UsedNodes)
}

func TestOptimizeTinyTreeIsNoop(t *testing.T) {
	b := Build(randomTris(2, 0x3))
	snap := b.Snapshot()
	b.OptimizeOnce()
	b2 := &BVH{}
	b2.Restore(snap)
	assert.Empty(t, cmp.Diff(b2.Nodes, b.Nodes))
}

func TestSnapshotRollbackExactness(t *testing.T) {
	tris := randomTris(100, 0xdead)
	b := BuildHQ(tris, BuildOptions{BinCount: 16})

	snap := b.Snapshot()
	nodesBefore := append([]Node(nil), b.Nodes...)
	primBefore := append([]uint32(nil), b.PrimIdx...)
	usedBefore := b.UsedNodes

	b.OptimizeOnce()
	b.Restore(snap)

	assert.Empty(t, cmp.Diff(nodesBefore, b.Nodes))
	assert.Empty(t, cmp.Diff(primBefore, b.PrimIdx))
	assert.Equal(t, usedBefore, b.UsedNodes)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	b := BuildHQ(randomTris(50, 0x21), BuildOptions{})
	snap := b.Snapshot()
	orig := b.Nodes[0]

	b.Nodes[0].Min = types.XYZ(-99, -99, -99)
	b.Restore(snap)
	assert.Equal(t, orig, b.Nodes[0])
}
