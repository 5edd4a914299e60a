package dynamics

import (
	"math"

	"github.com/cwbudde/algo-vocalcomp/dsp/core"
)

const (
	// dBPerNeper converts ln(amplitude) to dB: 20 / ln(10).
	dBPerNeper = 8.685889638065035
	// neperPerDB converts dB to ln(amplitude): ln(10) / 20.
	neperPerDB = 0.11512925464970229
)

// toDecibels is the per-sample amplitude to dB conversion. It honours the
// fastmath build tag, unlike core.Amplitude.Decibels.
func toDecibels(a core.Amplitude) core.Decibels {
	if a <= 0 {
		if a < 0 {
			return core.Decibels(math.NaN())
		}

		return core.Decibels(math.Inf(-1))
	}

	return core.Decibels(dBPerNeper * mathLog(float64(a)))
}

// toAmplitude is the per-sample dB to linear gain conversion.
func toAmplitude(d core.Decibels) float64 {
	if math.IsInf(float64(d), -1) {
		return 0
	}

	return mathExp(float64(d) * neperPerDB)
}
