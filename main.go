package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/mjkal/tinybvh/cmd"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	sessionFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "scene, s",
			Usage: "binary scene mesh file (extra mesh files may follow as arguments)",
		},
		cli.IntFlag{
			Name:  "rays, n",
			Value: 1000000,
			Usage: "representative ray set size",
		},
		cli.StringFlag{
			Name:  "mode, m",
			Value: "interior",
			Usage: "ray sampling mode (interior or exterior)",
		},
		cli.UintFlag{
			Name:  "seed",
			Value: 0x123456,
			Usage: "sampling RNG seed",
		},
		cli.IntFlag{
			Name:  "shards",
			Value: 8,
			Usage: "parallel shards per cost evaluation",
		},
		cli.StringFlag{
			Name:  "checkpoint-dir, d",
			Value: ".",
			Usage: "directory for hierarchy checkpoints",
		},
	}

	app := cli.NewApp()
	app.Name = "tinybvh"
	app.Usage = "measure and optimize BVH traversal cost against representative ray sets"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "binsearch",
			Usage: "find the construction bin count that minimizes measured traversal cost",
			Description: `
Build the scene hierarchy at every bin count in the sweep range (with
odd/even half-steps), measure each one against the representative ray set
and checkpoint every strictly better hierarchy. Appends one CSV record per
configuration tested.`,
			Action: cmd.BinSearch,
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "min-bins",
					Value: 8,
					Usage: "sweep start bin count",
				},
				cli.IntFlag{
					Name:  "max-bins",
					Value: 128,
					Usage: "sweep end bin count",
				},
				cli.StringFlag{
					Name:  "csv",
					Usage: "results log file (default sbvh_<scene>.csv)",
				},
				cli.StringFlag{
					Name:  "chart",
					Usage: "write an HTML cost curve chart to this file",
				},
			}, sessionFlags...),
		},
		{
			Name:  "optimize",
			Usage: "iteratively optimize a checkpointed hierarchy via reinsertion",
			Description: `
Resume from the optimized checkpoint (or the stage-A checkpoint for the
given bin count), then repeatedly mutate the tree and keep each mutation
only if it strictly lowers the measured cost. Runs until the iteration
budget is exhausted or the process is terminated; every committed
improvement is checkpointed, so interrupting is always safe.`,
			Action: cmd.Optimize,
			Flags: append([]cli.Flag{
				cli.Float64Flag{
					Name:  "bins",
					Usage: "best bin count reported by the binsearch stage",
				},
				cli.BoolFlag{
					Name:  "verify",
					Usage: "cross-check every evaluation against an unmutated reference",
				},
				cli.IntFlag{
					Name:  "iterations",
					Usage: "iteration budget (0 runs until terminated)",
				},
				cli.IntFlag{
					Name:  "stale",
					Usage: "stop after this many consecutive rejections (0 never stops)",
				},
			}, sessionFlags...),
		},
		{
			Name:   "report",
			Usage:  "compare hierarchy configurations for the scene",
			Action: cmd.Report,
			Flags: append([]cli.Flag{
				cli.Float64Flag{
					Name:  "bins",
					Usage: "bin count of the stage-A checkpoint to include",
				},
			}, sessionFlags...),
		},
		{
			Name:   "rayset",
			Usage:  "generate the representative ray set and print its stratum breakdown",
			Action: cmd.RaySetInfo,
			Flags:  sessionFlags,
		},
	}

	app.Run(os.Args)
}
