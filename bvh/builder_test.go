package bvh

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjkal/tinybvh/types"
)

func TestBuildVariants(t *testing.T) {
	tris := randomTris(200, 0xbeef)

	variants := []struct {
		name string
		opt  BuildOptions
	}{
		{"default", BuildOptions{}},
		{"binned-16", BuildOptions{BinCount: 16}},
		{"odd-even", BuildOptions{BinCount: 12, OddEven: true}},
		{"random-bins", BuildOptions{BinCount: 32, RandomSeed: 7}},
		{"full-sweep", BuildOptions{FullSweep: true}},
	}
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			b := BuildHQ(tris, v.opt)
			requireValid(t, b)
			assert.Greater(t, b.SAHCost(), float32(0))
		})
	}
}

func TestBuildTinyScenes(t *testing.T) {
	for _, n := range []int{1, 2, 3} {
		b := Build(randomTris(n, 0x11))
		requireValid(t, b)
	}
}

func TestTraversalMatchesBruteForce(t *testing.T) {
	tris := randomTris(150, 0x5eed)
	for _, opt := range []BuildOptions{{}, {BinCount: 24}, {FullSweep: true}} {
		b := BuildHQ(tris, opt)

		seed := uint32(0x1234)
		for i := 0; i < 200; i++ {
			origin := types.XYZ(testRand(&seed)*2-0.5, testRand(&seed)*2-0.5, testRand(&seed)*2-0.5)
			dir := types.XYZ(testRand(&seed)*2-1, testRand(&seed)*2-1, testRand(&seed)*2-1)
			if dir.Len() < 0.1 {
				continue
			}
			r := NewRay(origin, dir)
			steps := b.Intersect(&r)
			require.Greater(t, steps, 0)

			want := bruteForce(NewRay(origin, dir), tris)
			require.InDelta(t, want, r.Hit.T, 1e-3, "ray %d diverges from linear scan", i)
		}
	}
}

func TestIntersectMiss(t *testing.T) {
	b := Build(randomTris(10, 0x77))
	r := NewRay(types.XYZ(5, 5, 5), types.XYZ(1, 0, 0))
	b.Intersect(&r)
	assert.Equal(t, FarDistance, r.Hit.T)
	assert.Equal(t, NoPrim, r.Hit.Prim)
}

func TestBinsLabel(t *testing.T) {
	assert.Equal(t, float32(12), BuildOptions{BinCount: 12}.Bins())
	assert.Equal(t, float32(12.5), BuildOptions{BinCount: 12, OddEven: true}.Bins())
	assert.Equal(t, fmt.Sprintf("%g", float32(12.5)), "12.5")
}

func TestSAHCostOrdering(t *testing.T) {
	tris := randomTris(300, 0xabc)
	coarse := BuildHQ(tris, BuildOptions{BinCount: 2})
	fine := BuildHQ(tris, BuildOptions{BinCount: 64})
	// More split candidates should never produce a drastically worse tree.
	assert.LessOrEqual(t, fine.SAHCost(), coarse.SAHCost()*1.5)
}
