package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/mjkal/tinybvh/bvh"
	"github.com/mjkal/tinybvh/search"
)

// BinSearch sweeps the construction bin count and checkpoints the best
// hierarchy found (stage A).
func BinSearch(ctx *cli.Context) error {
	setupLogging(ctx)

	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	csvPath := ctx.String("csv")
	if csvPath == "" {
		csvPath = fmt.Sprintf("sbvh_%s.csv", s.scene.Name)
	}
	rlog, err := search.OpenResultsLog(csvPath)
	if err != nil {
		return err
	}
	defer rlog.Close()

	srch := &search.BinCountSearch{
		Scene:        s.scene,
		Eval:         func(h *bvh.BVH) float32 { return s.eval.TraceCost(h, nil) },
		Store:        s.store,
		Log:          rlog,
		MinBins:      ctx.Int("min-bins"),
		MaxBins:      ctx.Int("max-bins"),
		BaselineBins: 8,
	}
	if err := srch.Run(); err != nil {
		return err
	}

	if chartPath := ctx.String("chart"); chartPath != "" {
		if err := search.WriteSweepChart(chartPath, s.scene.Name, srch.Results); err != nil {
			return err
		}
		logger.Noticef("wrote sweep chart to %s", chartPath)
	}
	return nil
}
