package level

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-vocalcomp/dsp/core"
)

// Stats holds level statistics of a signal.
//
//nolint:revive
type Stats struct {
	Length         int
	DC             float64 // mean
	RMS            float64
	RMS_dB         core.Decibels
	Peak           float64 // max(|max|, |min|)
	Peak_dB        core.Decibels
	CrestFactor    float64 // peak / RMS (linear)
	CrestFactor_dB core.Decibels
	Energy         float64 // sum of squares
}

func emptyStats() Stats {
	return Stats{
		RMS_dB:  core.Decibels(math.Inf(-1)),
		Peak_dB: core.Decibels(math.Inf(-1)),
	}
}

func finish(n int, mean, sumSq, peak float64) Stats {
	if n == 0 {
		return emptyStats()
	}

	rms := math.Sqrt(sumSq / float64(n))

	var crest float64
	if rms > 0 {
		crest = peak / rms
	}

	return Stats{
		Length:         n,
		DC:             mean,
		RMS:            rms,
		RMS_dB:         core.Amplitude(rms).Decibels(),
		Peak:           peak,
		Peak_dB:        core.Amplitude(peak).Decibels(),
		CrestFactor:    crest,
		CrestFactor_dB: crestDB(crest),
		Energy:         sumSq,
	}
}

func crestDB(crest float64) core.Decibels {
	if crest == 0 {
		return 0
	}
	return core.Amplitude(crest).Decibels()
}

// Calculate computes the level statistics of signal.
func Calculate(signal []float64) Stats {
	if len(signal) == 0 {
		return emptyStats()
	}

	return finish(len(signal), stat.Mean(signal, nil), floats.Dot(signal, signal), Peak(signal))
}

// RMS returns the root-mean-square of the signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}

	return math.Sqrt(floats.Dot(signal, signal) / float64(len(signal)))
}

// Peak returns the peak absolute amplitude of the signal.
func Peak(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}

	return math.Max(math.Abs(floats.Max(signal)), math.Abs(floats.Min(signal)))
}

// GainChange returns the RMS level change from before to after in dB.
// Negative values mean the signal got quieter.
func GainChange(before, after Stats) core.Decibels {
	return after.RMS_dB - before.RMS_dB
}

// StreamingStats accumulates level statistics across blocks.
type StreamingStats struct {
	n     int
	sum   float64
	sumSq float64
	peak  float64
}

// NewStreamingStats creates a new StreamingStats accumulator.
func NewStreamingStats() *StreamingStats {
	return &StreamingStats{}
}

// Update adds a block of samples to the running statistics.
func (s *StreamingStats) Update(samples []float64) {
	if len(samples) == 0 {
		return
	}

	s.n += len(samples)
	s.sum += floats.Sum(samples)
	s.sumSq += floats.Dot(samples, samples)
	s.peak = math.Max(s.peak, Peak(samples))
}

// Result computes the statistics of everything seen so far.
func (s *StreamingStats) Result() Stats {
	if s.n == 0 {
		return emptyStats()
	}

	return finish(s.n, s.sum/float64(s.n), s.sumSq, s.peak)
}

// Reset discards all accumulated samples.
func (s *StreamingStats) Reset() {
	*s = StreamingStats{}
}
