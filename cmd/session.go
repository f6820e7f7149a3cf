package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"

	"github.com/mjkal/tinybvh/rrs"
	"github.com/mjkal/tinybvh/scene"
	"github.com/mjkal/tinybvh/search"
	"github.com/mjkal/tinybvh/types"
)

// session owns the per-run state every stage needs: the scene, the fixed
// ray set wrapped in an evaluator, and the checkpoint store.
type session struct {
	scene *scene.Scene
	eval  *rrs.Evaluator
	store *search.CheckpointStore
}

// newSession loads the scene mesh(es), generates the representative ray
// set once, and wires up the evaluator and checkpoint store from the
// shared command-line flags.
func newSession(ctx *cli.Context) (*session, error) {
	scenePath := ctx.String("scene")
	if scenePath == "" {
		return nil, errors.New("missing scene mesh file (--scene)")
	}

	name := strings.TrimSuffix(filepath.Base(scenePath), filepath.Ext(scenePath))
	sc := scene.New(name)
	if err := scene.AppendMesh(sc, scenePath, 1, types.Vec3{}); err != nil {
		return nil, err
	}
	// Additional mesh files merge into the same scene (multi-part scenes).
	for idx := 0; idx < ctx.NArg(); idx++ {
		if err := scene.AppendMesh(sc, ctx.Args().Get(idx), 1, types.Vec3{}); err != nil {
			return nil, err
		}
	}
	logger.Noticef("loaded %s", sc.Stats())

	var mode rrs.Mode
	switch ctx.String("mode") {
	case "interior":
		mode = rrs.ModeInterior
	case "exterior":
		mode = rrs.ModeExterior
	default:
		return nil, fmt.Errorf("unknown sampling mode %q (want interior or exterior)", ctx.String("mode"))
	}

	set, err := rrs.Generate(sc, rrs.GeneratorOptions{
		SampleCount: ctx.Int("rays"),
		Mode:        mode,
		Seed:        uint32(ctx.Uint("seed")),
	})
	if err != nil {
		return nil, err
	}

	eval := rrs.NewEvaluator(set)
	if shards := ctx.Int("shards"); shards > 0 {
		eval.Shards = shards
	}

	return &session{
		scene: sc,
		eval:  eval,
		store: search.NewCheckpointStore(ctx.String("checkpoint-dir"), name),
	}, nil
}
