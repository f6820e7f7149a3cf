package rrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjkal/tinybvh/bvh"
	"github.com/mjkal/tinybvh/types"
)

// scatterRays aims rays from a loose shell around the test room at points
// near its center, so most of them strike geometry.
func scatterRays(n int, seed uint32) *RaySet {
	center := types.XYZ(5, 5, 5)
	rays := make([]bvh.Ray, n)
	for i := range rays {
		origin := center.Add(randUnitVec3(&seed).Mul(25))
		target := center.Add(randUnitVec3(&seed).Mul(4))
		rays[i] = bvh.NewRay(origin, target.Sub(origin))
	}
	return &RaySet{Mode: ModeExterior, Rays: rays}
}

func TestTraceCostShardInvariance(t *testing.T) {
	sc := interiorScene()
	h := bvh.Build(sc.Tris())

	for _, n := range []int{64, 103} {
		eval := NewEvaluator(scatterRays(n, 0xabcd))
		eval.Shards = 1
		want := eval.TraceCost(h, nil)
		require.Greater(t, want, float32(0))

		for _, shards := range []int{2, 3, 5, 8, n + 7} {
			eval.Shards = shards
			assert.Equal(t, want, eval.TraceCost(h, nil), "n=%d shards=%d", n, shards)
		}
	}
}

func TestTraceCostLeavesSetUntouched(t *testing.T) {
	set := scatterRays(50, 0x11)
	before := append([]bvh.Ray(nil), set.Rays...)

	eval := NewEvaluator(set)
	eval.TraceCost(bvh.Build(interiorScene().Tris()), nil)
	assert.Equal(t, before, set.Rays)
}

func TestTraceCostSelfReference(t *testing.T) {
	h := bvh.Build(interiorScene().Tris())
	eval := NewEvaluator(scatterRays(80, 0x2f))
	eval.TraceCost(h, h)
	assert.Zero(t, eval.LastMismatches)
}

func TestTraceCostDetectsDamage(t *testing.T) {
	sc := interiorScene()
	ref := bvh.Build(sc.Tris())
	broken := bvh.Build(sc.Tris())
	// Collapse the root bounds so every traversal terminates immediately.
	broken.Nodes[0].Min = types.XYZ(1e29, 1e29, 1e29)
	broken.Nodes[0].Max = types.XYZ(1e29, 1e29, 1e29)

	eval := NewEvaluator(scatterRays(80, 0x2f))
	eval.TraceCost(broken, ref)
	assert.Greater(t, eval.LastMismatches, 0)
}

func TestTraceCostEmptySet(t *testing.T) {
	eval := NewEvaluator(&RaySet{Mode: ModeInterior})
	assert.Zero(t, eval.TraceCost(bvh.Build(interiorScene().Tris()), nil))
}

func TestTraceTime(t *testing.T) {
	h := bvh.Build(interiorScene().Tris())
	eval := NewEvaluator(scatterRays(200, 0x31))
	mean := eval.TraceTime(h)
	assert.GreaterOrEqual(t, mean, float32(0))
}
