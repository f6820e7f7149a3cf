package search

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/mjkal/tinybvh/bvh"
	"github.com/mjkal/tinybvh/log"
	"github.com/mjkal/tinybvh/scene"
)

// TimeFunc measures the wall-clock traversal time of a hierarchy.
type TimeFunc func(h *bvh.BVH) float32

// Report builds a family of hierarchies over the scene, measures each one
// and prints a comparison table with percentage deltas against the
// full-sweep reference. Stage C of a tuning session.
type Report struct {
	Scene *scene.Scene
	Eval  RefCostFunc
	Time  TimeFunc
	Store *CheckpointStore

	// Bin count of the stage-A checkpoint to include.
	Bins float32

	logger log.Logger
}

type reportRow struct {
	name string
	sah  float32
	rrs  float32
	sec  float32
}

// Run measures all configurations and renders the table to w.
func (r *Report) Run(w io.Writer) error {
	if r.logger == nil {
		r.logger = log.New("search")
	}
	tris := r.Scene.Tris()

	var rows []reportRow
	measure := func(name string, h *bvh.BVH) {
		r.logger.Noticef("measuring %s", name)
		rows = append(rows, reportRow{
			name: name,
			sah:  h.SAHCost(),
			rrs:  r.Eval(h, nil),
			sec:  r.Time(h),
		})
	}

	sweep := bvh.BuildHQ(tris, bvh.BuildOptions{FullSweep: true})
	measure("SAH (full sweep)", sweep)
	sweep.Optimize(50)
	measure("optimized full sweep", sweep)

	measure("SBVH, 8 bins", bvh.BuildHQ(tris, bvh.BuildOptions{BinCount: 8}))
	measure("SBVH, 32 bins", bvh.BuildHQ(tris, bvh.BuildOptions{BinCount: 32}))

	if h, err := r.Store.Load(r.Store.BinnedPath(r.Bins), tris); err != nil {
		r.logger.Warningf("SBVH, optimal bins: %v", err)
	} else {
		measure(fmt.Sprintf("SBVH, %g bins (stage A)", r.Bins), h)
	}
	if h, err := r.Store.Load(r.Store.OptimizedPath(), tris); err != nil {
		if os.IsNotExist(err) {
			r.logger.Warningf("RRS-optimized: file not found, run the optimize stage first")
		} else {
			r.logger.Warningf("RRS-optimized: %v", err)
		}
	} else {
		measure("RRS-optimized (ours)", h)
	}

	renderTable(w, rows)
	return nil
}

// renderTable prints the rows with deltas relative to the first row.
func renderTable(w io.Writer, rows []reportRow) {
	if len(rows) == 0 {
		return
	}
	ref := rows[0]

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"configuration", "SAH", "RRS", "time (s)", "dSAH", "dRRS", "dTime"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT})
	for i, row := range rows {
		rec := []string{
			row.name,
			fmt.Sprintf("%.3f", row.sah),
			fmt.Sprintf("%.3f", row.rrs),
			fmt.Sprintf("%.4f", row.sec),
		}
		if i == 0 {
			rec = append(rec, "-", "-", "-")
		} else {
			rec = append(rec,
				deltaPct(ref.sah, row.sah),
				deltaPct(ref.rrs, row.rrs),
				deltaPct(ref.sec, row.sec))
		}
		table.Append(rec)
	}
	table.Render()
}

// deltaPct reports how much better (positive) or worse (negative) a value
// is relative to the reference.
func deltaPct(ref, val float32) string {
	if val == 0 {
		return "-"
	}
	return fmt.Sprintf("%+6.2f%%", 100*ref/val-100)
}
