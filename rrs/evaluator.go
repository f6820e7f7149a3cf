package rrs

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/mjkal/tinybvh/bvh"
	"github.com/mjkal/tinybvh/log"
)

const (
	// DefaultShards is the evaluation fan-out width.
	DefaultShards = 8

	// Timed repetitions for wall-clock measurement, plus one warmup run
	// that is discarded.
	timedReps = 10
)

// Evaluator measures hierarchies against a fixed ray set. The set is read
// shared and lock-free by all shards; every ray is copied and reset before
// tracing so the set itself is never written.
type Evaluator struct {
	// Number of parallel shards for TraceCost. The set is partitioned
	// into contiguous index ranges, one worker per range.
	Shards int

	// Cross-check mismatches found by the last TraceCost call that was
	// given a reference hierarchy.
	LastMismatches int

	set    *RaySet
	logger log.Logger
}

// NewEvaluator wraps a ray set for repeated cost measurements.
func NewEvaluator(set *RaySet) *Evaluator {
	return &Evaluator{
		Shards: DefaultShards,
		set:    set,
		logger: log.New("rrs"),
	}
}

// Set returns the wrapped ray set.
func (e *Evaluator) Set() *RaySet {
	return e.set
}

// TraceCost traces the full ray set through the hierarchy and returns the
// mean traversal step count per ray. Workers are spawned per call and
// joined before the sum is reduced; each writes only its own slot, so the
// result is deterministic for a fixed set and hierarchy regardless of
// scheduling.
//
// When ref is non-nil every ray is also traced through it and differing
// hit distances are counted as integrity diagnostics: a mismatch means the
// hierarchy under test no longer agrees with a known-correct structure.
// Mismatches are reported, never fatal.
func (e *Evaluator) TraceCost(h *bvh.BVH, ref *bvh.BVH) float32 {
	n := len(e.set.Rays)
	if n == 0 {
		return 0
	}
	shards := e.Shards
	if shards <= 0 {
		shards = DefaultShards
	}
	if shards > n {
		shards = n
	}

	sums := make([]uint64, shards)
	mismatches := make([]int, shards)
	var wg sync.WaitGroup
	shardSize := n / shards
	for s := 0; s < shards; s++ {
		start := s * shardSize
		end := start + shardSize
		if s == shards-1 {
			end = n
		}
		wg.Add(1)
		go func(slot, start, end int) {
			defer wg.Done()
			var sum uint64
			for i := start; i < end; i++ {
				r := e.set.Rays[i]
				r.Reset()
				sum += uint64(h.Intersect(&r))
				if ref != nil {
					r2 := e.set.Rays[i]
					r2.Reset()
					ref.Intersect(&r2)
					if r.Hit.T != r2.Hit.T {
						mismatches[slot]++
					}
				}
			}
			sums[slot] = sum
		}(s, start, end)
	}
	wg.Wait()

	var total uint64
	e.LastMismatches = 0
	for s := 0; s < shards; s++ {
		total += sums[s]
		e.LastMismatches += mismatches[s]
	}
	if e.LastMismatches > 0 {
		e.logger.Warningf("damaged hierarchy: %d of %d rays diverge from the reference", e.LastMismatches, n)
	}
	return float32(total) / float32(n)
}

// TraceTime runs the ray set sequentially against a traversal-optimized
// packed copy of the hierarchy and returns the mean wall-clock seconds per
// repetition. The first repetition warms the cache and is discarded. An
// implementation-dependent metric, reported alongside the portable step
// count.
func (e *Evaluator) TraceTime(h *bvh.BVH) float32 {
	packed := bvh.Pack(h)
	durations := make([]float64, 0, timedReps)
	for rep := 0; rep <= timedReps; rep++ {
		start := time.Now()
		for i := range e.set.Rays {
			r := e.set.Rays[i]
			r.Reset()
			packed.Intersect(&r)
		}
		if rep > 0 {
			durations = append(durations, time.Since(start).Seconds())
		}
	}
	mean := stat.Mean(durations, nil)
	e.logger.Debugf("wall time: %.4fs mean, %.4fs stddev over %d reps",
		mean, stat.StdDev(durations, nil), timedReps)
	return float32(mean)
}
