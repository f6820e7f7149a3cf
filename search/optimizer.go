package search

import (
	"os"

	"github.com/mjkal/tinybvh/bvh"
	"github.com/mjkal/tinybvh/log"
	"github.com/mjkal/tinybvh/scene"
)

// RefCostFunc measures a hierarchy with an optional reference cross-check.
type RefCostFunc func(h, ref *bvh.BVH) float32

// MutateFunc applies one structural mutation round to the hierarchy.
type MutateFunc func(h *bvh.BVH)

// OptimizationDriver repeatedly mutates a hierarchy and keeps each
// mutation only if it strictly lowers the measured cost, rolling the tree
// back to a pre-mutation snapshot otherwise. Stage B of a tuning session.
//
// At the start of every iteration the current hierarchy's measured cost is
// no higher than any previously committed state: commits are monotonic.
type OptimizationDriver struct {
	Scene *scene.Scene
	Eval  RefCostFunc
	Store *CheckpointStore

	// Bin count of the stage-A checkpoint to resume from when no
	// optimized checkpoint exists yet.
	Bins float32

	// Cross-check every evaluation against an unmutated reference
	// hierarchy. Divergence is diagnostic only; the rollback path already
	// guarantees no corrupted candidate is ever committed.
	Verify bool

	// Iteration budget; 0 loops until the process is terminated.
	MaxIterations int

	// Stop after this many consecutive rejected mutations; 0 never stops.
	// The original research loop runs open-ended under manual supervision.
	MaxStale int

	// Mutation operation; one reinsertion round when nil.
	Mutate MutateFunc

	// Builder for the reference hierarchy; bvh.BuildHQ when nil.
	Build BuildFunc

	// Driver state, valid after Run.
	Iterations int
	Commits    int
	BestCost   float32

	logger log.Logger
}

// Run resumes or starts an optimization session and iterates until the
// budget (if any) is exhausted.
func (d *OptimizationDriver) Run() error {
	if d.logger == nil {
		d.logger = log.New("search")
	}
	if d.Build == nil {
		d.Build = bvh.BuildHQ
	}
	if d.Mutate == nil {
		d.Mutate = func(h *bvh.BVH) { h.OptimizeOnce() }
	}

	d.logger.Noticef("building reference hierarchy (8 bins)")
	ref := d.Build(d.Scene.Tris(), bvh.BuildOptions{BinCount: 8})
	refCost := d.Eval(ref, nil)

	current, err := d.resume()
	if err != nil {
		return err
	}
	d.BestCost = d.Eval(current, nil)
	d.logger.Noticef("starting hierarchy: SAH=%.2f, cost=%.2f (%.2f%% of reference)",
		current.SAHCost(), d.BestCost, 100*refCost/d.BestCost)

	var verifyRef *bvh.BVH
	if d.Verify {
		verifyRef = ref
	}

	stale := 0
	for d.Iterations = 0; d.MaxIterations == 0 || d.Iterations < d.MaxIterations; {
		sahBefore := current.SAHCost()
		costBefore := d.BestCost
		backup := current.Snapshot()

		d.Mutate(current)

		sahAfter := current.SAHCost()
		costAfter := d.Eval(current, verifyRef)
		d.Iterations++

		if costAfter >= costBefore {
			// Restoring the snapshot leaves the tree bit-for-bit as it
			// was before the mutation.
			current.Restore(backup)
			stale++
			d.logger.Infof("iteration %05d: SAH %.2f -> %.2f, cost %.3f -> %.3f - REJECTED",
				d.Iterations, sahBefore, sahAfter, costBefore, costAfter)
		} else {
			d.BestCost = costAfter
			d.Commits++
			stale = 0
			if err := d.Store.Save(current, d.Store.OptimizedPath()); err != nil {
				return err
			}
			d.logger.Infof("iteration %05d: SAH %.2f -> %.2f, cost %.3f -> %.3f - %.2f%%, committed",
				d.Iterations, sahBefore, sahAfter, costBefore, costAfter, 100*refCost/costAfter)
		}

		if d.MaxStale > 0 && stale >= d.MaxStale {
			d.logger.Noticef("stopping after %d consecutive rejections", stale)
			break
		}
	}
	return nil
}

// resume loads the optimized checkpoint if one exists, falling back to the
// stage-A binned checkpoint.
func (d *OptimizationDriver) resume() (*bvh.BVH, error) {
	tris := d.Scene.Tris()
	h, err := d.Store.Load(d.Store.OptimizedPath(), tris)
	if err == nil {
		d.logger.Noticef("resuming from %s", d.Store.OptimizedPath())
		return h, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	path := d.Store.BinnedPath(d.Bins)
	h, err = d.Store.Load(path, tris)
	if err != nil {
		return nil, err
	}
	d.logger.Noticef("starting from stage-A checkpoint %s", path)
	return h, nil
}
