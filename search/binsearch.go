package search

import (
	"time"

	"github.com/mjkal/tinybvh/bvh"
	"github.com/mjkal/tinybvh/log"
	"github.com/mjkal/tinybvh/scene"
)

// CostFunc measures a hierarchy against the session ray set.
type CostFunc func(h *bvh.BVH) float32

// BuildFunc constructs a hierarchy for a sweep configuration. Injectable
// so scenario tests can script builds and costs.
type BuildFunc func(tris []scene.Triangle, opt bvh.BuildOptions) *bvh.BVH

// BinCountSearch sweeps the construction bin count upward, measuring every
// configuration against the ray set and checkpointing each strictly better
// hierarchy. Stage A of a tuning session.
type BinCountSearch struct {
	Scene *scene.Scene
	Eval  CostFunc
	Store *CheckpointStore

	// Optional append-only results log, one record per configuration.
	Log *ResultsLog

	// Sweep bounds. The sweep starts at MinBins, alternates the odd/even
	// sub-configuration per step, and terminates when MaxBins is reached;
	// past that point no further improvement has been observed.
	MinBins int
	MaxBins int

	// Baseline configuration whose cost anchors the relative improvement
	// reporting.
	BaselineBins int

	// Builder; bvh.BuildHQ when nil.
	Build BuildFunc

	// Search state, valid after Run.
	BaselineCost float32
	BestCost     float32
	BestBins     float32
	Results      []SweepResult

	logger log.Logger
}

// Run executes the sweep. Ties never overwrite an existing checkpoint:
// only a strictly lower measured cost persists a new hierarchy, biasing
// toward the cheapest configuration that achieves a given cost.
func (s *BinCountSearch) Run() error {
	if s.logger == nil {
		s.logger = log.New("search")
	}
	if s.Build == nil {
		s.Build = bvh.BuildHQ
	}
	if s.MinBins <= 0 {
		s.MinBins = 8
	}
	if s.MaxBins <= s.MinBins {
		s.MaxBins = 128
	}
	if s.BaselineBins <= 0 {
		s.BaselineBins = 8
	}

	s.logger.Noticef("building reference hierarchy (%d bins)", s.BaselineBins)
	ref := s.Build(s.Scene.Tris(), bvh.BuildOptions{BinCount: s.BaselineBins})
	s.BaselineCost = s.Eval(ref)
	s.BestCost = s.BaselineCost
	s.BestBins = float32(s.BaselineBins)
	s.logger.Noticef("baseline cost: %.3f steps/ray", s.BaselineCost)

	bins := s.MinBins
	odd := false
	for bins < s.MaxBins {
		opt := bvh.BuildOptions{BinCount: bins, OddEven: odd}
		start := time.Now()
		h := s.Build(s.Scene.Tris(), opt)
		buildTime := time.Since(start).Seconds()

		sah := h.SAHCost()
		cost := s.Eval(h)
		res := SweepResult{Bins: opt.Bins(), BuildSeconds: buildTime, SAH: sah, RRSCost: cost}
		s.Results = append(s.Results, res)
		if s.Log != nil {
			if err := s.Log.Append(res); err != nil {
				return err
			}
		}

		improved := cost < s.BestCost
		s.logger.Noticef("SBVH, %g bins (%.1fs): SAH=%5.1f, RRS %.2f [%.2f%%]%s",
			opt.Bins(), buildTime, sah, cost, 100*s.BaselineCost/cost,
			markImproved(improved))
		if improved {
			s.BestCost = cost
			s.BestBins = opt.Bins()
			if err := s.Store.Save(h, s.Store.BinnedPath(opt.Bins())); err != nil {
				return err
			}
		}

		// Alternate the half-step configuration before advancing.
		if odd {
			bins++
		}
		odd = !odd
	}

	s.logger.Noticef("sweep done: best %g bins at %.3f steps/ray (%.2f%% of baseline)",
		s.BestBins, s.BestCost, 100*s.BestCost/s.BaselineCost)
	return nil
}

func markImproved(improved bool) string {
	if improved {
		return " ==> new best"
	}
	return ""
}
