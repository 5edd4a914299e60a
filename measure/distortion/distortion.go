// Package distortion measures the harmonic distortion of a sustained tone,
// used to check how much a dynamics processor colours a steady signal.
package distortion

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-vocalcomp/dsp/core"
)

const (
	defaultRangeUpperHz = 20000.0
	// Main lobe half width of the Hann window in bins.
	hannCaptureBins = 2
)

// ErrEmptySignal is returned when there is nothing to analyze.
var ErrEmptySignal = errors.New("distortion: empty signal")

// Config holds THD analysis parameters.
type Config struct {
	SampleRate      float64
	FFTSize         int     // 0 selects the next power of two >= len(signal)
	FundamentalFreq float64 // 0 searches for the strongest bin
	RangeUpperFreq  float64
	MaxHarmonics    int // 0 means all harmonics below RangeUpperFreq
}

// Result holds THD measurement results.
//
//nolint:revive
type Result struct {
	FundamentalFreq  float64
	FundamentalLevel float64
	THD              float64
	THD_dB           core.Decibels
	Harmonics        []float64 // level of harmonic k+2 relative to the fundamental
}

// Analyze windows signal with a Hann window, transforms it and measures the
// ratio of harmonic to fundamental level.
func Analyze(signal []float64, cfg Config) (Result, error) {
	if len(signal) == 0 {
		return Result{}, ErrEmptySignal
	}
	if cfg.SampleRate <= 0 || math.IsNaN(cfg.SampleRate) || math.IsInf(cfg.SampleRate, 0) {
		return Result{}, fmt.Errorf("distortion sample rate must be > 0: %f", cfg.SampleRate)
	}

	fftSize := cfg.FFTSize
	if fftSize <= 0 {
		fftSize = nextPowerOf2(len(signal))
	}
	if fftSize < len(signal) {
		return Result{}, fmt.Errorf("distortion fft size %d shorter than signal %d", fftSize, len(signal))
	}

	windowed := make([]float64, len(signal))
	copy(windowed, signal)
	vecmath.MulBlockInPlace(windowed, hann(len(signal)))

	in := make([]complex128, fftSize)
	for i, v := range windowed {
		in[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return Result{}, fmt.Errorf("creating fft plan: %w", err)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return Result{}, fmt.Errorf("forward fft: %w", err)
	}

	mag := make([]float64, fftSize/2+1)
	for i := range mag {
		mag[i] = math.Hypot(real(out[i]), imag(out[i]))
	}

	cfg.FFTSize = fftSize

	return fromMagnitude(mag, cfg), nil
}

// Added returns the distortion a processor added, as the difference between
// the THD ratios of its output and input.
func Added(input, output Result) float64 {
	return output.THD - input.THD
}

func fromMagnitude(mag []float64, cfg Config) Result {
	maxBin := len(mag) - 1
	binHz := cfg.SampleRate / float64(cfg.FFTSize)

	upper := cfg.RangeUpperFreq
	if upper <= 0 {
		upper = defaultRangeUpperHz
	}
	upperBin := clampInt(int(math.Round(upper/binHz)), 1, maxBin)

	fundamentalBin := 0
	if cfg.FundamentalFreq > 0 {
		fundamentalBin = clampInt(int(math.Round(cfg.FundamentalFreq/binHz)), 1, upperBin)
	} else {
		best := -1.0
		for i := 1; i <= upperBin; i++ {
			if mag[i] > best {
				best = mag[i]
				fundamentalBin = i
			}
		}
	}

	capture := min(hannCaptureBins, fundamentalBin/2)

	res := Result{
		FundamentalFreq:  float64(fundamentalBin) * binHz,
		FundamentalLevel: binSum(mag, fundamentalBin, capture),
		THD_dB:           core.Decibels(math.Inf(-1)),
	}
	if res.FundamentalLevel <= 0 {
		return res
	}

	harmonicAbs := 0.0
	for k := 2; ; k++ {
		if cfg.MaxHarmonics > 0 && len(res.Harmonics) >= cfg.MaxHarmonics {
			break
		}

		bin := k * fundamentalBin
		if bin > upperBin {
			break
		}

		v := binSum(mag, bin, capture)
		harmonicAbs += v
		res.Harmonics = append(res.Harmonics, v/res.FundamentalLevel)
	}

	res.THD = harmonicAbs / res.FundamentalLevel
	res.THD_dB = core.Amplitude(res.THD).Decibels()

	return res
}

// hann returns a periodic Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

func binSum(mag []float64, bin, capture int) float64 {
	lo := max(bin-capture, 0)
	hi := min(bin+capture, len(mag)-1)

	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += mag[i]
	}
	return sum
}

func clampInt(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
