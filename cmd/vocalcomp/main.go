// Command vocalcomp runs the vocal compressor over raw PCM streams, prints
// its static curve and measures what it does to synthetic test signals.
//
// Usage:
//
//	vocalcomp curve --threshold -24 --ratio 6
//	vocalcomp process -i take.f32 -o take-comp.f32 --channels 1 --stats
//	vocalcomp analyze --loud -3 --preset vocal.json
//	vocalcomp live --channels 1   (requires the portaudio build tag)
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx := context.Background()

	appl := &cli.Command{
		Name:  "vocalcomp",
		Usage: "Single-stream vocal compressor",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}

			return ctx, nil
		},
		Commands: []*cli.Command{
			curveCommand(),
			processCommand(),
			analyzeCommand(),
			liveCommand(),
		},
	}

	if err := appl.Run(ctx, os.Args); err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}
