package bvh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjkal/tinybvh/scene"
	"github.com/mjkal/tinybvh/types"
)

func testRand(state *uint32) float32 {
	*state ^= *state << 13
	*state ^= *state >> 17
	*state ^= *state << 5
	return float32(*state) * (1.0 / 4294967296.0)
}

func testVec(state *uint32, scale, offset float32) types.Vec3 {
	return types.XYZ(
		testRand(state)*scale+offset,
		testRand(state)*scale+offset,
		testRand(state)*scale+offset,
	)
}

// randomTris scatters small triangles through the unit cube.
func randomTris(n int, seed uint32) []scene.Triangle {
	tris := make([]scene.Triangle, n)
	for i := range tris {
		base := types.XYZ(testRand(&seed), testRand(&seed), testRand(&seed))
		tris[i] = scene.Triangle{
			V0: base,
			V1: base.Add(types.XYZ(testRand(&seed)*0.1, testRand(&seed)*0.1, 0)),
			V2: base.Add(types.XYZ(0, testRand(&seed)*0.1, testRand(&seed)*0.1)),
		}
	}
	return tris
}

// requireValid checks the structural invariants of a hierarchy: every
// primitive appears in exactly one leaf, and every node bounds its
// content.
func requireValid(t *testing.T, b *BVH) {
	t.Helper()
	require.Equal(t, len(b.Tris), len(b.PrimIdx))

	seen := make([]int, len(b.Tris))
	var walk func(idx uint32)
	walk = func(idx uint32) {
		require.Less(t, int(idx), b.UsedNodes)
		node := &b.Nodes[idx]
		if node.IsLeaf() {
			for i := node.LeftFirst; i < node.LeftFirst+node.Count; i++ {
				prim := b.PrimIdx[i]
				seen[prim]++
				bbox := b.Tris[prim].BBox()
				require.Equal(t, node.Min, types.MinVec3(node.Min, bbox[0]), "leaf %d does not bound prim %d", idx, prim)
				require.Equal(t, node.Max, types.MaxVec3(node.Max, bbox[1]), "leaf %d does not bound prim %d", idx, prim)
			}
			return
		}
		left, right := node.LeftFirst, node.LeftFirst+1
		for _, c := range []uint32{left, right} {
			child := &b.Nodes[c]
			require.Equal(t, node.Min, types.MinVec3(node.Min, child.Min), "node %d does not bound child %d", idx, c)
			require.Equal(t, node.Max, types.MaxVec3(node.Max, child.Max), "node %d does not bound child %d", idx, c)
		}
		walk(left)
		walk(right)
	}
	walk(0)

	for prim, count := range seen {
		require.Equal(t, 1, count, "prim %d referenced %d times", prim, count)
	}
}

// bruteForce returns the closest hit distance over a linear scan.
func bruteForce(r Ray, tris []scene.Triangle) float32 {
	r.Reset()
	for i := range tris {
		intersectTri(&r, &tris[i], uint32(i))
	}
	return r.Hit.T
}
