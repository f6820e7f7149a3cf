package cmd

import (
	"errors"

	"github.com/urfave/cli"

	"github.com/mjkal/tinybvh/bvh"
	"github.com/mjkal/tinybvh/search"
)

// Optimize iteratively improves a checkpointed hierarchy through
// reinsertion mutations, committing only strict improvements (stage B).
func Optimize(ctx *cli.Context) error {
	setupLogging(ctx)

	bins := float32(ctx.Float64("bins"))
	if bins <= 0 {
		return errors.New("missing --bins (the best bin count reported by the binsearch stage)")
	}

	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	driver := &search.OptimizationDriver{
		Scene:         s.scene,
		Eval:          func(h, ref *bvh.BVH) float32 { return s.eval.TraceCost(h, ref) },
		Store:         s.store,
		Bins:          bins,
		Verify:        ctx.Bool("verify"),
		MaxIterations: ctx.Int("iterations"),
		MaxStale:      ctx.Int("stale"),
	}
	return driver.Run()
}
