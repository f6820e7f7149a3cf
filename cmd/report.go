package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/mjkal/tinybvh/bvh"
	"github.com/mjkal/tinybvh/search"
)

// Report measures a family of hierarchies over the scene and prints a
// comparison table (stage C).
func Report(ctx *cli.Context) error {
	setupLogging(ctx)

	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	rep := &search.Report{
		Scene: s.scene,
		Eval:  func(h, ref *bvh.BVH) float32 { return s.eval.TraceCost(h, ref) },
		Time:  func(h *bvh.BVH) float32 { return s.eval.TraceTime(h) },
		Store: s.store,
		Bins:  float32(ctx.Float64("bins")),
	}
	return rep.Run(os.Stdout)
}

// RaySetInfo generates the representative ray set and prints its stratum
// breakdown, for sanity-checking a scene before a long run.
func RaySetInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	set := s.eval.Set()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"stratum", "rays", "share"})
	for _, st := range set.Strata() {
		table.Append([]string{
			st.Role.String(),
			strconv.Itoa(len(st.Rays)),
			fmt.Sprintf("%.1f%%", 100*float64(len(st.Rays))/float64(set.Len())),
		})
	}
	table.Render()
	return nil
}
