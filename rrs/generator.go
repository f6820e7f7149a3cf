package rrs

import (
	"fmt"

	"github.com/mjkal/tinybvh/bvh"
	"github.com/mjkal/tinybvh/log"
	"github.com/mjkal/tinybvh/scene"
	"github.com/mjkal/tinybvh/types"
)

const (
	spawnPoints = 512
	maxBounces  = 8
	gridDim     = 8
)

var logger = log.New("rrs")

// GeneratorOptions configure ray set generation.
type GeneratorOptions struct {
	// Total ray count. Must be divisible by 4 so the strata can be sized
	// exactly.
	SampleCount int

	Mode Mode

	// RNG seed; DefaultSeed when zero.
	Seed uint32

	// Path budget before generation gives up on a stratum that will not
	// fill (pathological scenes). Defaults to 4096 paths per stored ray.
	MaxPaths int
}

// Generate produces a representative ray set for the scene by tracing
// random paths against an intermediate hierarchy, classifying each cast
// ray by its role and storing it until every stratum is full. Deterministic
// for a fixed seed, scene, mode and sample count.
//
// The intermediate hierarchy is only a traversal oracle; it is discarded
// when generation completes.
func Generate(sc *scene.Scene, opt GeneratorOptions) (*RaySet, error) {
	if opt.SampleCount <= 0 || opt.SampleCount%4 != 0 {
		return nil, fmt.Errorf("sample count %d must be positive and divisible by 4", opt.SampleCount)
	}
	if sc.TriCount() == 0 {
		return nil, fmt.Errorf("scene %s has no triangles", sc.Name)
	}
	if opt.Seed == 0 {
		opt.Seed = DefaultSeed
	}
	if opt.MaxPaths <= 0 {
		opt.MaxPaths = opt.SampleCount * 4096
	}

	g := &generator{
		opt:    opt,
		scene:  sc,
		oracle: bvh.Build(sc.Tris()),
		seed:   opt.Seed,
		rays:   make([]bvh.Ray, opt.SampleCount),
	}
	bmin, _ := sc.Bounds()
	g.bmin, g.bext = bmin, sc.Extent()
	size := sc.Size()
	g.shortRay = size * 0.03
	g.longRay = size * 10
	g.epsilon = size * 1e-5
	g.tooShort = 50 * g.epsilon

	logger.Noticef("generating %s ray set: %d rays for %s", opt.Mode, opt.SampleCount, sc.Name)
	var err error
	switch opt.Mode {
	case ModeInterior:
		err = g.generateInterior()
	case ModeExterior:
		err = g.generateExterior()
	default:
		err = fmt.Errorf("unknown sampling mode %d", opt.Mode)
	}
	if err != nil {
		return nil, err
	}
	logger.Noticef("ray set complete after %d paths", g.paths)

	return &RaySet{Mode: opt.Mode, Rays: g.rays}, nil
}

type generator struct {
	opt    GeneratorOptions
	scene  *scene.Scene
	oracle *bvh.BVH
	seed   uint32

	bmin, bext types.Vec3
	shortRay   float32
	longRay    float32
	epsilon    float32
	tooShort   float32

	rays  []bvh.Ray
	paths int
}

func (g *generator) generateInterior() error {
	n := g.opt.SampleCount
	quarter := n / 4

	// Path spawn points on a regular grid, scaled inward so corner points
	// stay off the bounding box surface.
	var spawn [spawnPoints]types.Vec3
	for x := 0; x < gridDim; x++ {
		for y := 0; y < gridDim; y++ {
			for z := 0; z < gridDim; z++ {
				cell := types.XYZ(float32(x)+1, float32(y)+1, float32(z)+1)
				spawn[x+y*gridDim+z*gridDim*gridDim] = g.bmin.Add(cell.Mul(1.0 / (gridDim + 1)).MulVec(g.bext))
			}
		}
	}

	var nPrimary, nShort, nLong, nEscape int
	spawnIdx := 0
	for nPrimary+nShort+nLong+nEscape < n {
		if g.paths++; g.paths > g.opt.MaxPaths {
			return g.convergenceError([]int{nPrimary, nShort, nLong, nEscape})
		}
		p := spawn[spawnIdx&(spawnPoints-1)]
		spawnIdx++
		dir := randUnitVec3(&g.seed)
		for j := 0; j < maxBounces; j++ {
			ray := bvh.NewRay(p.Add(dir.Mul(g.epsilon)), dir)
			probe := ray
			g.oracle.Intersect(&ray)

			// Classify by role; strata that are already full drop the ray.
			t := ray.Hit.T
			switch {
			case j == 0 && t < g.longRay && nPrimary < quarter:
				g.rays[nPrimary] = probe
				nPrimary++
			case j > 0 && t < g.shortRay && t > g.tooShort && nShort < quarter:
				g.rays[quarter+nShort] = probe
				nShort++
			case j > 0 && t < g.longRay && t > g.shortRay && nLong < quarter:
				g.rays[2*quarter+nLong] = probe
				nLong++
			case j > 0 && t == bvh.FarDistance && nEscape < quarter:
				g.rays[3*quarter+nEscape] = probe
				nEscape++
			}

			if t == bvh.FarDistance {
				break
			}
			p, dir = g.bounce(&ray)
		}
	}
	return nil
}

func (g *generator) generateExterior() error {
	n := g.opt.SampleCount
	quarter := n / 4
	half := n / 2
	center := g.bmin.Add(g.bext.Mul(0.5))

	// Spawn points on an ellipsoid surrounding the scene; each path aims
	// at a shrunken copy of it so rays head roughly toward the center.
	var spawn [spawnPoints]types.Vec3
	for i := 0; i < spawnPoints; i++ {
		spawn[i] = center.Add(randUnitVec3(&g.seed).MulVec(g.bext))
	}

	var nPrimary, nSecondary, nEscape int
	spawnIdx := 0
	for nPrimary+nSecondary+nEscape < n {
		if g.paths++; g.paths > g.opt.MaxPaths {
			return g.convergenceError([]int{nPrimary, nSecondary, nEscape})
		}
		p := spawn[spawnIdx&(spawnPoints-1)]
		spawnIdx++
		target := center.Add(spawn[(spawnIdx*13)&(spawnPoints-1)].Sub(center).Mul(0.1))
		dir := target.Sub(p).Normalize()
		for j := 0; j < maxBounces; j++ {
			ray := bvh.NewRay(p.Add(dir.Mul(g.epsilon)), dir)
			probe := ray
			g.oracle.Intersect(&ray)

			t := ray.Hit.T
			switch {
			case j == 0 && t < g.longRay && nPrimary < half:
				g.rays[nPrimary] = probe
				nPrimary++
			case j > 0 && t < bvh.FarDistance && t > g.tooShort && nSecondary < quarter:
				g.rays[half+nSecondary] = probe
				nSecondary++
			case j > 0 && t == bvh.FarDistance && nEscape < quarter:
				g.rays[3*quarter+nEscape] = probe
				nEscape++
			}

			if t == bvh.FarDistance {
				break
			}
			p, dir = g.bounce(&ray)
		}
	}
	return nil
}

// bounce computes the hit point and a random continuation direction in the
// hemisphere above the surface normal, flipped to face the incoming ray.
func (g *generator) bounce(ray *bvh.Ray) (types.Vec3, types.Vec3) {
	tri := g.scene.Tris()[ray.Hit.Prim]
	n := tri.Normal()
	if n.Dot(ray.D) > 0 {
		n = n.Mul(-1)
	}
	dir := randUnitVec3(&g.seed)
	if dir.Dot(n) < 0 {
		dir = dir.Mul(-1)
	}
	hit := ray.O.Add(ray.D.Mul(ray.Hit.T))
	return hit, dir
}

func (g *generator) convergenceError(counts []int) error {
	return fmt.Errorf("ray set generation did not converge after %d paths (strata fill: %v of %d); "+
		"the scene geometry may be pathological for %s sampling",
		g.opt.MaxPaths, counts, g.opt.SampleCount, g.opt.Mode)
}
