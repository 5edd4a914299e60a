package dynamics

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-vocalcomp/dsp/core"
)

// ErrInvalidParameter is wrapped by every parameter validation error.
var ErrInvalidParameter = errors.New("invalid parameter")

// GainComputer maps an envelope level in dB to the gain reduction, in dB,
// of a compressor with a quadratic soft knee centred on the threshold.
//
// A GainComputer holds no signal state. One value can be shared by any
// number of channels as long as it is not modified while they run. The zero
// value has threshold 0 dB, ratio 1:1 and a hard knee, and never reduces.
type GainComputer struct {
	threshold core.Decibels
	ratio     float64
	knee      core.Decibels

	// slope is 1 - 1/ratio, the dB of reduction per dB above threshold.
	slope float64
}

// NewGainComputer returns a gain computer for the given threshold, ratio and
// knee width.
func NewGainComputer(threshold core.Decibels, ratio float64, knee core.Decibels) (GainComputer, error) {
	var g GainComputer

	if err := g.SetThreshold(threshold); err != nil {
		return GainComputer{}, err
	}

	if err := g.SetRatio(ratio); err != nil {
		return GainComputer{}, err
	}

	if err := g.SetKnee(knee); err != nil {
		return GainComputer{}, err
	}

	return g, nil
}

// SetThreshold sets the level in dB above which reduction starts.
func (g *GainComputer) SetThreshold(threshold core.Decibels) error {
	if !core.IsFinite(float64(threshold)) {
		return fmt.Errorf("%w: threshold must be finite: %f", ErrInvalidParameter, threshold)
	}

	g.threshold = threshold

	return nil
}

// SetRatio sets the input:output ratio above the threshold.
//   - 1 = no compression
//   - 4 = 4:1
//   - 20 and above approach limiting
func (g *GainComputer) SetRatio(ratio float64) error {
	if ratio < 1 || !core.IsFinite(ratio) {
		return fmt.Errorf("%w: ratio must be finite and >= 1: %f", ErrInvalidParameter, ratio)
	}

	g.ratio = ratio
	g.slope = 1 - 1/ratio

	return nil
}

// SetKnee sets the width in dB of the transition region. 0 is a hard knee.
func (g *GainComputer) SetKnee(knee core.Decibels) error {
	if knee < 0 || !core.IsFinite(float64(knee)) {
		return fmt.Errorf("%w: knee must be finite and >= 0: %f", ErrInvalidParameter, knee)
	}

	g.knee = knee

	return nil
}

// Threshold returns the threshold in dB.
func (g GainComputer) Threshold() core.Decibels { return g.threshold }

// Ratio returns the compression ratio.
func (g GainComputer) Ratio() float64 {
	if g.ratio == 0 {
		return 1
	}

	return g.ratio
}

// Knee returns the knee width in dB.
func (g GainComputer) Knee() core.Decibels { return g.knee }

// GainReduction returns how many dB to attenuate a signal whose envelope is
// at the given level. The result is never negative for ordered input;
// -Inf (silence) yields 0.
func (g GainComputer) GainReduction(envelope core.Decibels) core.Decibels {
	if g.slope == 0 {
		return 0
	}

	slope := core.Decibels(g.slope)

	if g.knee == 0 {
		if envelope <= g.threshold {
			return 0
		}

		return (envelope - g.threshold) * slope
	}

	half := g.knee / 2

	lower := g.threshold - half
	if envelope <= lower {
		return 0
	}

	if envelope >= g.threshold+half {
		return (envelope - g.threshold) * slope
	}

	over := envelope - lower
	position := over / g.knee

	return over * slope * position / 2
}

// Curve returns the static output level for a steady input level, i.e. the
// transfer curve input - GainReduction(input).
func (g GainComputer) Curve(input core.Decibels) core.Decibels {
	return input - g.GainReduction(input)
}
