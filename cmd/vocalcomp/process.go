package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/cwbudde/algo-vocalcomp/dsp/buffer"
	"github.com/cwbudde/algo-vocalcomp/dsp/effects/dynamics"
	"github.com/cwbudde/algo-vocalcomp/internal/pcm"
	"github.com/cwbudde/algo-vocalcomp/measure/level"
)

func processCommand() *cli.Command {
	flags := append(compressorFlags(), streamFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Raw float32 little-endian PCM input, - for stdin",
			Value:   "-",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Raw float32 little-endian PCM output, - for stdout",
			Value:   "-",
		},
		&cli.BoolFlag{
			Name:  "stats",
			Usage: "Print input and output level statistics to stderr",
		},
	)

	return &cli.Command{
		Name:  "process",
		Usage: "Compress a raw interleaved float32 PCM stream",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := paramsFromCommand(cmd)
			if err != nil {
				return err
			}

			store, err := dynamics.NewParamStore(p)
			if err != nil {
				return err
			}

			proc, err := dynamics.NewProcessor(store, processorOptions(cmd)...)
			if err != nil {
				return err
			}

			in, closeIn, err := openInput(cmd.String("input"))
			if err != nil {
				return err
			}
			defer closeIn()

			out, closeOut, err := openOutput(cmd.String("output"))
			if err != nil {
				return err
			}

			cfg := proc.Config()
			slog.Debug("processing", "sampleRate", cfg.SampleRate, "channels", cfg.Channels, "blockSize", cfg.BlockSize, "params", p)

			inStats := level.NewStreamingStats()
			outStats := level.NewStreamingStats()

			frames, err := compressStream(ctx, in, out, proc, inStats, outStats)
			if cerr := closeOut(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			slog.Info("processed", "frames", frames, "seconds", float64(frames)/cfg.SampleRate)

			if cmd.Bool("stats") {
				return printLevels(os.Stderr, inStats.Result(), outStats.Result())
			}

			return nil
		},
	}
}

// compressStream runs proc over every frame of r and writes the result to w.
// Level statistics over all channels are accumulated into inStats and outStats.
func compressStream(ctx context.Context, r io.Reader, w io.Writer, proc *dynamics.Processor, inStats, outStats *level.StreamingStats) (int, error) {
	cfg := proc.Config()

	reader, err := pcm.NewReader(r, cfg.Channels)
	if err != nil {
		return 0, err
	}
	writer := pcm.NewWriter(w)

	pool := buffer.NewPool(cfg.Channels)
	frameBuf := make([]float32, cfg.BlockSize*cfg.Channels)
	var outBuf []float32

	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := reader.Read(frameBuf)
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("reading input: %w", err)
		}

		block := pool.Get(n)
		outBuf, err = compressBlock(proc, block, frameBuf[:n*cfg.Channels], outBuf, inStats, outStats)
		pool.Put(block)
		if err != nil {
			return total, err
		}

		if err := writer.Write(outBuf); err != nil {
			return total, err
		}

		total += n
	}
}

// compressBlock deinterleaves frames into block, processes it and returns the
// interleaved result in dst.
func compressBlock(proc *dynamics.Processor, block *buffer.Block, frames, dst []float32, inStats, outStats *level.StreamingStats) ([]float32, error) {
	block.Deinterleave(frames)
	for _, ch := range block.Channels() {
		inStats.Update(ch)
	}

	if err := proc.ProcessBlock(block.Channels()); err != nil {
		return dst, err
	}

	for _, ch := range block.Channels() {
		outStats.Update(ch)
	}

	return block.Interleave(dst), nil
}

func printLevels(w io.Writer, before, after level.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "\tRMS [dB]\tPeak [dB]\tCrest [dB]\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	rows := []struct {
		name string
		s    level.Stats
	}{
		{"input", before},
		{"output", after},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\n", r.name, r.s.RMS_dB, r.s.Peak_dB, r.s.CrestFactor_dB); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	if _, err := fmt.Fprintf(tw, "change\t%.2f\t\t\n", level.GainChange(before, after)); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}

	return tw.Flush()
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" || path == "" {
		return bufio.NewReader(os.Stdin), func() {}, nil
	}

	f, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}

	return bufio.NewReader(f), func() { _ = f.Close() }, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "-" || path == "" {
		bw := bufio.NewWriter(os.Stdout)
		return bw, bw.Flush, nil
	}

	f, err := os.Create(path) //nolint:gosec // CLI tool writes user-specified files
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}

	bw := bufio.NewWriter(f)

	return bw, func() error {
		if err := bw.Flush(); err != nil {
			_ = f.Close()
			return fmt.Errorf("flushing output: %w", err)
		}

		return f.Close()
	}, nil
}
