package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/cwbudde/algo-vocalcomp/dsp/core"
	"github.com/cwbudde/algo-vocalcomp/dsp/effects/dynamics"
	"github.com/cwbudde/algo-vocalcomp/internal/preset"
)

func curveCommand() *cli.Command {
	return &cli.Command{
		Name:  "curve",
		Usage: "Print the static transfer curve",
		Flags: append(compressorFlags(),
			&cli.FloatFlag{
				Name:  "from",
				Usage: "First input level in dBFS",
				Value: -60,
			},
			&cli.FloatFlag{
				Name:  "to",
				Usage: "Last input level in dBFS",
				Value: 0,
			},
			&cli.FloatFlag{
				Name:  "step",
				Usage: "Input level step in dB",
				Value: 3,
			},
			&cli.StringFlag{
				Name:  "save-preset",
				Usage: "Write the effective parameters to this JSON preset file",
			},
		),
		Action: func(_ context.Context, cmd *cli.Command) error {
			p, err := paramsFromCommand(cmd)
			if err != nil {
				return err
			}

			gc, err := p.GainComputer()
			if err != nil {
				return err
			}

			if path := cmd.String("save-preset"); path != "" {
				if err := preset.Save(path, p); err != nil {
					return err
				}

				slog.Info("preset saved", "path", path)
			}

			step := cmd.Float("step")
			if step <= 0 {
				return fmt.Errorf("step must be > 0: %f", step)
			}

			return printCurve(os.Stdout, gc, p.MakeupGain(gc), cmd.Float("from"), cmd.Float("to"), step)
		},
	}
}

func printCurve(w io.Writer, gc dynamics.GainComputer, makeup core.Decibels, from, to, step float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "Input [dB]\tReduction [dB]\tOutput [dB]\tWith Makeup [dB]\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := fmt.Fprintf(tw, "----------\t--------------\t-----------\t----------------\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	n := int((to-from)/step+1e-9) + 1
	for i := range n {
		in := core.Decibels(from + float64(i)*step)
		out := gc.Curve(in)

		if _, err := fmt.Fprintf(tw, "%.1f\t%.2f\t%.2f\t%.2f\n", in, gc.GainReduction(in), out, out+makeup); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	return tw.Flush()
}
