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
	"github.com/cwbudde/algo-vocalcomp/dsp/signal"
	"github.com/cwbudde/algo-vocalcomp/measure/distortion"
	"github.com/cwbudde/algo-vocalcomp/measure/level"
)

const analysisFFTSize = 8192

type analyzeConfig struct {
	sampleRate float64
	blockSize  int
	freq       float64
	quiet      core.Decibels
	loud       core.Decibels
	lead       float64 // seconds
	burst      float64 // seconds
	tail       float64 // seconds
	seed       int64
}

type analysisReport struct {
	burstIn, burstOut   level.Stats
	steadyReduction     core.Decibels
	maxMeterReduction   core.Decibels
	staticReduction     core.Decibels
	makeup              core.Decibels
	toneIn, toneOut     distortion.Result
	addedDistortion     float64
	releaseRecoverySecs float64
	attackSecs          float64
	releaseSecs         float64
	noiseIn, noiseOut   level.Stats
}

func analyzeCommand() *cli.Command {
	flags := append(compressorFlags(),
		&cli.FloatFlag{
			Name:  "sample-rate",
			Usage: "Sample rate in Hz",
			Value: 48000,
		},
		&cli.IntFlag{
			Name:  "block-size",
			Usage: "Frames per processing block",
			Value: 512,
		},
		&cli.FloatFlag{
			Name:  "freq",
			Usage: "Test tone frequency in Hz",
			Value: 1000,
		},
		&cli.FloatFlag{
			Name:  "quiet",
			Usage: "Peak level of the quiet sections in dBFS",
			Value: -40,
		},
		&cli.FloatFlag{
			Name:  "loud",
			Usage: "Peak level of the burst in dBFS",
			Value: -6,
		},
		&cli.FloatFlag{
			Name:  "burst",
			Usage: "Burst length in seconds",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "seed",
			Usage: "Seed of the noise test signal",
			Value: 1,
		},
	)

	return &cli.Command{
		Name:  "analyze",
		Usage: "Measure gain reduction and distortion on synthetic test signals",
		Flags: flags,
		Action: func(_ context.Context, cmd *cli.Command) error {
			p, err := paramsFromCommand(cmd)
			if err != nil {
				return err
			}

			cfg := analyzeConfig{
				sampleRate: cmd.Float("sample-rate"),
				blockSize:  cmd.Int("block-size"),
				freq:       cmd.Float("freq"),
				quiet:      core.Decibels(cmd.Float("quiet")),
				loud:       core.Decibels(cmd.Float("loud")),
				lead:       0.5,
				burst:      cmd.Float("burst"),
				tail:       1.5,
				seed:       int64(cmd.Int("seed")),
			}

			report, err := runAnalysis(p, cfg)
			if err != nil {
				return err
			}

			return printReport(os.Stdout, report)
		},
	}
}

func runAnalysis(p dynamics.Params, cfg analyzeConfig) (analysisReport, error) {
	if cfg.blockSize <= 0 {
		return analysisReport{}, fmt.Errorf("block size must be > 0: %d", cfg.blockSize)
	}

	store, err := dynamics.NewParamStore(p)
	if err != nil {
		return analysisReport{}, err
	}

	proc, err := dynamics.NewProcessor(store,
		core.WithSampleRate(cfg.sampleRate),
		core.WithBlockSize(cfg.blockSize),
		core.WithChannels(1),
	)
	if err != nil {
		return analysisReport{}, err
	}

	gen := signal.NewGenerator(core.WithSampleRate(cfg.sampleRate))

	lead := int(cfg.lead * cfg.sampleRate)
	burst := int(cfg.burst * cfg.sampleRate)
	tail := int(cfg.tail * cfg.sampleRate)

	in, err := gen.ToneBurst(cfg.freq, cfg.quiet, cfg.loud, lead, burst, tail)
	if err != nil {
		return analysisReport{}, err
	}

	var report analysisReport

	out, err := processMono(proc, cfg.blockSize, in, func(m dynamics.MeterReading) {
		report.maxMeterReduction = max(report.maxMeterReduction, m.GainReduction)
	})
	if err != nil {
		return analysisReport{}, err
	}

	gc := proc.GainComputer()
	report.makeup = p.MakeupGain(gc)
	report.staticReduction = gc.GainReduction(cfg.loud)

	// The second half of the burst is past the attack transient.
	steadyStart, steadyEnd := lead+burst/2, lead+burst
	report.burstIn = level.Calculate(in[steadyStart:steadyEnd])
	report.burstOut = level.Calculate(out[steadyStart:steadyEnd])
	report.steadyReduction = report.makeup - level.GainChange(report.burstIn, report.burstOut)
	report.releaseRecoverySecs = recoveryTime(in[lead+burst:], out[lead+burst:], report.makeup, cfg.sampleRate)

	slog.Debug("burst analyzed", "samples", len(in), "maxReduction", report.maxMeterReduction)

	if err := analyzeTone(proc, gen, cfg, &report); err != nil {
		return analysisReport{}, err
	}

	if err := analyzeTiming(proc, gen, cfg, &report); err != nil {
		return analysisReport{}, err
	}

	if err := analyzeNoise(proc, gen, cfg, &report); err != nil {
		return analysisReport{}, err
	}

	return report, nil
}

// processMono runs x through proc block by block and returns the processed
// copy. onBlock, if set, receives the meter after every block.
func processMono(proc *dynamics.Processor, blockSize int, x []float64, onBlock func(dynamics.MeterReading)) ([]float64, error) {
	out := make([]float64, len(x))
	copy(out, x)

	for start := 0; start < len(out); start += blockSize {
		end := min(start+blockSize, len(out))
		if err := proc.ProcessBlock([][]float64{out[start:end]}); err != nil {
			return nil, err
		}

		if onBlock != nil {
			onBlock(proc.Meter())
		}
	}

	return out, nil
}

// analyzeTiming feeds a level step from quiet to loud and back and measures
// how long the reduction takes to cover 63.2% of its range in each
// direction.
func analyzeTiming(proc *dynamics.Processor, gen *signal.Generator, cfg analyzeConfig, report *analysisReport) error {
	proc.Reset()

	lead := int(cfg.lead * cfg.sampleRate)
	hold := int(cfg.burst * cfg.sampleRate)
	tail := int(cfg.tail * cfg.sampleRate)
	quiet := float64(cfg.quiet.Amplitude())
	loud := float64(cfg.loud.Amplitude())

	up, err := gen.Step(quiet, loud, lead, lead+hold)
	if err != nil {
		return err
	}

	down, err := gen.Step(loud, quiet, 0, tail)
	if err != nil {
		return err
	}

	in := append(up, down...)

	out, err := processMono(proc, cfg.blockSize, in, nil)
	if err != nil {
		return err
	}

	reduction := make([]core.Decibels, len(in))
	for i := range in {
		reduction[i] = report.makeup - core.Amplitude(out[i]/in[i]).Decibels()
	}

	peak := reduction[lead+hold-1]
	if peak <= 0 {
		return nil
	}

	report.attackSecs = crossingTime(reduction[lead:lead+hold], func(r core.Decibels) bool {
		return r >= (1-timeConstantResidual)*peak
	}, cfg.sampleRate)
	report.releaseSecs = crossingTime(reduction[lead+hold:], func(r core.Decibels) bool {
		return r <= timeConstantResidual*peak
	}, cfg.sampleRate)

	slog.Debug("step analyzed", "attack", report.attackSecs, "release", report.releaseSecs)

	return nil
}

// timeConstantResidual is the part of a step left after one time constant.
const timeConstantResidual = 0.368

func crossingTime(r []core.Decibels, reached func(core.Decibels) bool, sampleRate float64) float64 {
	for i, v := range r {
		if reached(v) {
			return float64(i) / sampleRate
		}
	}

	return float64(len(r)) / sampleRate
}

// analyzeNoise compresses seeded white noise peaking at the loud level and
// records the level statistics of its settled second half.
func analyzeNoise(proc *dynamics.Processor, gen *signal.Generator, cfg analyzeConfig, report *analysisReport) error {
	proc.Reset()
	gen.SetSeed(cfg.seed)

	noise, err := gen.WhiteNoise(1, int(cfg.burst*cfg.sampleRate))
	if err != nil {
		return err
	}

	in, err := signal.Normalize(noise, float64(cfg.loud.Amplitude()))
	if err != nil {
		return err
	}

	out, err := processMono(proc, cfg.blockSize, in, nil)
	if err != nil {
		return err
	}

	half := len(in) / 2
	report.noiseIn = level.Calculate(in[half:])
	report.noiseOut = level.Calculate(out[half:])

	return nil
}

// analyzeTone feeds a sustained loud tone and measures the harmonic
// distortion of the settled output against the input.
func analyzeTone(proc *dynamics.Processor, gen *signal.Generator, cfg analyzeConfig, report *analysisReport) error {
	proc.Reset()

	settle := int(cfg.sampleRate)
	tone, err := gen.Sine(cfg.freq, float64(cfg.loud.Amplitude()), settle+analysisFFTSize)
	if err != nil {
		return err
	}

	out, err := processMono(proc, cfg.blockSize, tone, nil)
	if err != nil {
		return err
	}

	dcfg := distortion.Config{
		SampleRate:      cfg.sampleRate,
		FFTSize:         analysisFFTSize,
		FundamentalFreq: cfg.freq,
	}

	if report.toneIn, err = distortion.Analyze(tone[settle:], dcfg); err != nil {
		return err
	}
	if report.toneOut, err = distortion.Analyze(out[settle:], dcfg); err != nil {
		return err
	}

	report.addedDistortion = distortion.Added(report.toneIn, report.toneOut)

	return nil
}

// recoveryTime returns how long after the burst the applied gain stays more
// than 1 dB below the makeup gain, measured per 1 ms window.
func recoveryTime(in, out []float64, makeup core.Decibels, sampleRate float64) float64 {
	win := max(int(sampleRate/1000), 1)

	for start := 0; start+win <= len(in); start += win {
		before := level.Calculate(in[start : start+win])
		after := level.Calculate(out[start : start+win])
		if before.RMS == 0 {
			continue
		}

		if makeup-level.GainChange(before, after) < 1 {
			return float64(start) / sampleRate
		}
	}

	return float64(len(in)) / sampleRate
}

func printReport(w io.Writer, r analysisReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	lines := []struct {
		label string
		value string
	}{
		{"Burst RMS in", fmt.Sprintf("%.2f dB", r.burstIn.RMS_dB)},
		{"Burst RMS out", fmt.Sprintf("%.2f dB", r.burstOut.RMS_dB)},
		{"Crest factor in/out", fmt.Sprintf("%.2f / %.2f dB", r.burstIn.CrestFactor_dB, r.burstOut.CrestFactor_dB)},
		{"Steady gain reduction", fmt.Sprintf("%.2f dB", r.steadyReduction)},
		{"Max metered reduction", fmt.Sprintf("%.2f dB", r.maxMeterReduction)},
		{"Static reduction at burst peak", fmt.Sprintf("%.2f dB", r.staticReduction)},
		{"Makeup gain", fmt.Sprintf("%.2f dB", r.makeup)},
		{"Release recovery", fmt.Sprintf("%.3f s", r.releaseRecoverySecs)},
		{"Step attack (63%)", fmt.Sprintf("%.4f s", r.attackSecs)},
		{"Step release (63%)", fmt.Sprintf("%.4f s", r.releaseSecs)},
		{"Noise crest in/out", fmt.Sprintf("%.2f / %.2f dB", r.noiseIn.CrestFactor_dB, r.noiseOut.CrestFactor_dB)},
		{"THD in", fmt.Sprintf("%.4f %%", r.toneIn.THD*100)},
		{"THD out", fmt.Sprintf("%.4f %%", r.toneOut.THD*100)},
		{"THD added", fmt.Sprintf("%.4f %%", r.addedDistortion*100)},
	}

	for _, l := range lines {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", l.label, l.value); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}

	return tw.Flush()
}
