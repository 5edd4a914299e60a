//go:build portaudio

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/urfave/cli/v3"

	"github.com/cwbudde/algo-vocalcomp/dsp/buffer"
	"github.com/cwbudde/algo-vocalcomp/dsp/effects/dynamics"
)

func liveCommand() *cli.Command {
	return &cli.Command{
		Name:  "live",
		Usage: "Compress the default input device to the default output device",
		Description: "Parameters can be changed while running by typing \"<name> <value>\" lines on stdin,\n" +
			"e.g. \"threshold -24\" or \"rms false\".",
		Flags: append(compressorFlags(), streamFlags()...),
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

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			return runLive(ctx, proc)
		},
	}
}

func runLive(ctx context.Context, proc *dynamics.Processor) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	cfg := proc.Config()
	pool := buffer.NewPool(cfg.Channels)

	callback := func(in, out []float32) {
		block := pool.Get(len(in) / cfg.Channels)
		defer pool.Put(block)

		block.Deinterleave(in)
		if err := proc.ProcessBlock(block.Channels()); err != nil {
			clear(out)
			return
		}
		block.Interleave(out)
	}

	stream, err := portaudio.OpenDefaultStream(cfg.Channels, cfg.Channels, cfg.SampleRate, cfg.BlockSize, callback)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	slog.Info("stream started", "sampleRate", cfg.SampleRate, "channels", cfg.Channels, "blockSize", cfg.BlockSize)

	go readControl(ctx, os.Stdin, proc.Params())

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := stream.Stop(); err != nil {
				return fmt.Errorf("stopping stream: %w", err)
			}

			slog.Info("stream stopped")

			return nil
		case <-ticker.C:
			m := proc.Meter()
			slog.Info("meter",
				"inPeak", m.InputPeak.Decibels(),
				"outPeak", m.OutputPeak.Decibels(),
				"reduction", m.GainReduction,
				"blocks", m.Blocks)
		}
	}
}
