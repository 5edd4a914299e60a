package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/cwbudde/algo-vocalcomp/dsp/core"
	"github.com/cwbudde/algo-vocalcomp/dsp/effects/dynamics"
	"github.com/cwbudde/algo-vocalcomp/internal/preset"
)

// compressorFlags returns the parameter flags shared by every command.
// Defaults are shown for reference; unset flags fall back to the preset.
func compressorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "preset",
			Aliases: []string{"p"},
			Usage:   "JSON preset file; flags override its values",
		},
		&cli.FloatFlag{
			Name:  "threshold",
			Usage: "Threshold in dBFS [-60, 0]",
			Value: dynamics.DefaultThresholdDB,
		},
		&cli.FloatFlag{
			Name:  "ratio",
			Usage: "Compression ratio [1, 20]",
			Value: dynamics.DefaultRatio,
		},
		&cli.FloatFlag{
			Name:  "knee",
			Usage: "Soft knee width in dB [0, 96]",
			Value: dynamics.DefaultKneeDB,
		},
		&cli.FloatFlag{
			Name:  "attack",
			Usage: "Attack time in ms [0, 50]",
			Value: dynamics.DefaultAttackMs,
		},
		&cli.FloatFlag{
			Name:  "release",
			Usage: "Release time in ms [0, 1000]",
			Value: dynamics.DefaultReleaseMs,
		},
		&cli.BoolFlag{
			Name:  "rms",
			Usage: "Detect in the mean-square domain (--rms=false for peak)",
			Value: true,
		},
		&cli.FloatFlag{
			Name:  "auto-gain",
			Usage: "Makeup gain amount [0, 1]",
			Value: dynamics.DefaultAutoGain,
		},
	}
}

// streamFlags returns the stream layout flags.
func streamFlags() []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{
			Name:  "sample-rate",
			Usage: "Sample rate in Hz",
			Value: 48000,
		},
		&cli.IntFlag{
			Name:  "channels",
			Usage: "Interleaved channel count",
			Value: 2,
		},
		&cli.IntFlag{
			Name:  "block-size",
			Usage: "Frames per processing block",
			Value: 512,
		},
	}
}

// paramsFromCommand builds the compressor parameters: defaults, then the
// preset, then any flag the user set explicitly.
func paramsFromCommand(cmd *cli.Command) (dynamics.Params, error) {
	p := dynamics.DefaultParams()

	if path := cmd.String("preset"); path != "" {
		loaded, err := preset.Load(path)
		if err != nil {
			return dynamics.Params{}, err
		}

		p = loaded
	}

	floats := []struct {
		flag string
		dst  *float64
	}{
		{"threshold", &p.ThresholdDB},
		{"ratio", &p.Ratio},
		{"knee", &p.KneeDB},
		{"attack", &p.AttackMs},
		{"release", &p.ReleaseMs},
		{"auto-gain", &p.AutoGain},
	}
	for _, f := range floats {
		if cmd.IsSet(f.flag) {
			*f.dst = cmd.Float(f.flag)
		}
	}

	if cmd.IsSet("rms") {
		p.RMS = cmd.Bool("rms")
	}

	if err := p.Validate(); err != nil {
		return dynamics.Params{}, err
	}

	return p.Clamp(), nil
}

func processorOptions(cmd *cli.Command) []core.ProcessorOption {
	return []core.ProcessorOption{
		core.WithSampleRate(cmd.Float("sample-rate")),
		core.WithChannels(cmd.Int("channels")),
		core.WithBlockSize(cmd.Int("block-size")),
	}
}

// setParam applies a "name value" control message to p. Names match the
// flag names.
func setParam(p *dynamics.Params, name, value string) error {
	if name == "rms" {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("rms: %w", err)
		}

		p.RMS = v

		return nil
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	switch strings.ToLower(name) {
	case "threshold":
		p.ThresholdDB = v
	case "ratio":
		p.Ratio = v
	case "knee":
		p.KneeDB = v
	case "attack":
		p.AttackMs = v
	case "release":
		p.ReleaseMs = v
	case "auto-gain":
		p.AutoGain = v
	default:
		return fmt.Errorf("%w: unknown parameter %q", dynamics.ErrInvalidParameter, name)
	}

	return nil
}
