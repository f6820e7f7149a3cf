package search

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjkal/tinybvh/bvh"
)

// scriptedRefCosts replays the given values in order, ignoring the
// hierarchies themselves.
func scriptedRefCosts(t *testing.T, costs []float32) RefCostFunc {
	t.Helper()
	i := 0
	return func(h, ref *bvh.BVH) float32 {
		require.Less(t, i, len(costs), "more evaluations than scripted")
		c := costs[i]
		i++
		return c
	}
}

// nudgeRoot is a deterministic stand-in mutation that is visible in the
// committed checkpoint.
func nudgeRoot(h *bvh.BVH) {
	h.Nodes[0].Min[0] -= 0.001
}

func TestOptimizationDriverCommitAndRollback(t *testing.T) {
	dir := t.TempDir()
	sc := sweepScene()
	store := NewCheckpointStore(dir, sc.Name)

	start := bvh.Build(sc.Tris())
	require.NoError(t, store.Save(start, store.BinnedPath(8)))
	rootMin := start.Nodes[0].Min[0]

	// Evaluation order: reference, resumed start, then one per iteration.
	// Only the second mutation improves.
	d := &OptimizationDriver{
		Scene:         sc,
		Eval:          scriptedRefCosts(t, []float32{5, 10, 11, 9, 12}),
		Store:         store,
		Bins:          8,
		MaxIterations: 3,
		Mutate:        nudgeRoot,
	}
	require.NoError(t, d.Run())

	assert.Equal(t, 3, d.Iterations)
	assert.Equal(t, 1, d.Commits)
	assert.Equal(t, float32(9), d.BestCost)

	// The committed checkpoint carries exactly one mutation: the two
	// rejected iterations were rolled back before mutating again.
	opt, err := store.Load(store.OptimizedPath(), sc.Tris())
	require.NoError(t, err)
	assert.InDelta(t, rootMin-0.001, opt.Nodes[0].Min[0], 1e-7)
}

func TestOptimizationDriverMonotonicCommits(t *testing.T) {
	dir := t.TempDir()
	sc := sweepScene()
	store := NewCheckpointStore(dir, sc.Name)
	require.NoError(t, store.Save(bvh.Build(sc.Tris()), store.BinnedPath(8)))

	d := &OptimizationDriver{
		Scene:         sc,
		Eval:          scriptedRefCosts(t, []float32{5, 10, 9, 8, 8.5, 7}),
		Store:         store,
		Bins:          8,
		MaxIterations: 4,
		Mutate:        nudgeRoot,
	}
	require.NoError(t, d.Run())

	assert.Equal(t, 4, d.Iterations)
	assert.Equal(t, 3, d.Commits)
	assert.Equal(t, float32(7), d.BestCost)
}

func TestOptimizationDriverStopsWhenStale(t *testing.T) {
	dir := t.TempDir()
	sc := sweepScene()
	store := NewCheckpointStore(dir, sc.Name)
	require.NoError(t, store.Save(bvh.Build(sc.Tris()), store.BinnedPath(8)))

	d := &OptimizationDriver{
		Scene:    sc,
		Eval:     scriptedRefCosts(t, []float32{5, 10, 11, 11}),
		Store:    store,
		Bins:     8,
		MaxStale: 2,
		Mutate:   nudgeRoot,
	}
	require.NoError(t, d.Run())

	assert.Equal(t, 2, d.Iterations)
	assert.Zero(t, d.Commits)
	assert.NoFileExists(t, store.OptimizedPath())
}

func TestOptimizationDriverPrefersOptimizedCheckpoint(t *testing.T) {
	dir := t.TempDir()
	sc := sweepScene()
	store := NewCheckpointStore(dir, sc.Name)

	binned := bvh.Build(sc.Tris())
	require.NoError(t, store.Save(binned, store.BinnedPath(8)))

	resumed := bvh.Build(sc.Tris())
	resumed.Nodes[0].Min[0] = -42
	require.NoError(t, store.Save(resumed, store.OptimizedPath()))

	var seen float32
	d := &OptimizationDriver{
		Scene: sc,
		Eval:  scriptedRefCosts(t, []float32{5, 10, 11}),
		Store: store,
		Bins:  8,
		Mutate: func(h *bvh.BVH) {
			seen = h.Nodes[0].Min[0]
		},
		MaxIterations: 1,
	}
	require.NoError(t, d.Run())
	assert.Equal(t, float32(-42), seen)
}

func TestOptimizationDriverMissingCheckpoints(t *testing.T) {
	sc := sweepScene()
	d := &OptimizationDriver{
		Scene: sc,
		Eval:  scriptedRefCosts(t, []float32{5}),
		Store: NewCheckpointStore(t.TempDir(), sc.Name),
		Bins:  8,
	}
	err := d.Run()
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestReportRendersTable(t *testing.T) {
	dir := t.TempDir()
	sc := sweepScene()
	store := NewCheckpointStore(dir, sc.Name)
	require.NoError(t, store.Save(bvh.Build(sc.Tris()), store.BinnedPath(8)))

	var out bytes.Buffer
	r := &Report{
		Scene: sc,
		Eval:  func(h, ref *bvh.BVH) float32 { return h.SAHCost() },
		Time:  func(h *bvh.BVH) float32 { return 0.5 },
		Store: store,
		Bins:  8,
	}
	require.NoError(t, r.Run(&out))

	s := out.String()
	assert.Contains(t, s, "SAH (full sweep)")
	assert.Contains(t, s, "optimized full sweep")
	assert.Contains(t, s, "SBVH, 32 bins")
	assert.Contains(t, s, "SBVH, 8 bins (stage A)")
	// No optimize-stage checkpoint was written, so its row is absent.
	assert.NotContains(t, s, "RRS-optimized")
}
