package dynamics

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vocalcomp/dsp/core"
)

const (
	// DefaultAttackTime is the attack time constant of a new detector in seconds.
	DefaultAttackTime = 0.05
	// DefaultReleaseTime is the release time constant of a new detector in seconds.
	DefaultReleaseTime = 0.5
	// MinTimeConstant is the smallest accepted time constant in seconds.
	// Smaller, zero, negative or NaN times are raised to it.
	MinTimeConstant = 1e-4

	defaultSampleRate = 48000.0

	// timeConstantResidual is the fraction of a step left after one time
	// constant, so the envelope covers 63.2% of a step in that time.
	timeConstantResidual = 0.368
)

// ErrInvalidSampleRate is returned for zero, negative or non-finite sample rates.
var ErrInvalidSampleRate = errors.New("sample rate must be positive and finite")

// EnvelopeDetector follows the loudness of one channel with one-pole
// attack/release ballistics. In RMS mode the smoothing runs on the squared
// signal and the square root is taken on the way out.
//
// A detector holds per-channel state and must not be shared between channels.
// It is not safe for concurrent use.
type EnvelopeDetector struct {
	sampleRate float64

	// envelope is the persisted state, in the power domain when rms is set.
	envelope float64

	attackTime  float64
	releaseTime float64
	rms         bool

	attackCoeff  float64
	releaseCoeff float64
}

// NewEnvelopeDetector returns a detector with 50 ms attack, 500 ms release,
// RMS mode enabled and a 48 kHz sample rate until Prepare is called.
func NewEnvelopeDetector() *EnvelopeDetector {
	d := &EnvelopeDetector{
		sampleRate:  defaultSampleRate,
		attackTime:  DefaultAttackTime,
		releaseTime: DefaultReleaseTime,
		rms:         true,
	}

	d.updateCoefficients()

	return d
}

// Prepare sets the sample rate for the coming processing session and
// recomputes both coefficients. An invalid rate is rejected and the previous
// one is kept.
func (d *EnvelopeDetector) Prepare(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("envelope detector: %w: %f", ErrInvalidSampleRate, sampleRate)
	}

	d.sampleRate = sampleRate
	d.updateCoefficients()

	return nil
}

// Reset clears the envelope so the next call starts from silence.
func (d *EnvelopeDetector) Reset() {
	d.envelope = 0
}

// Envelope feeds one sample through the detector and returns the updated
// envelope as a linear amplitude in [0, 1]. A NaN sample leaves the state
// unchanged; an infinite sample turns it into NaN until Reset.
func (d *EnvelopeDetector) Envelope(sample float64) core.Amplitude {
	x := math.Abs(sample)
	if d.rms {
		x *= x
	}

	env := d.envelope

	switch {
	case x > env:
		env = d.attackCoeff*(env-x) + x
	case x < env:
		env = d.releaseCoeff*(env-x) + x
	}

	env = core.Clamp(core.FlushDenormals(env), 0, 1)
	d.envelope = env

	if d.rms {
		return core.Amplitude(mathSqrt(env))
	}

	return core.Amplitude(env)
}

// Value returns the persisted envelope state. In RMS mode this is the
// mean-square value, before the square root.
func (d *EnvelopeDetector) Value() float64 { return d.envelope }

// AttackTime returns the attack time constant in seconds.
func (d *EnvelopeDetector) AttackTime() float64 { return d.attackTime }

// SetAttackTime sets the attack time constant in seconds.
func (d *EnvelopeDetector) SetAttackTime(seconds float64) {
	seconds = clampTimeConstant(seconds)
	if seconds == d.attackTime {
		return
	}

	d.attackTime = seconds
	d.attackCoeff = timeCoefficient(seconds, d.sampleRate)
}

// ReleaseTime returns the release time constant in seconds.
func (d *EnvelopeDetector) ReleaseTime() float64 { return d.releaseTime }

// SetReleaseTime sets the release time constant in seconds.
func (d *EnvelopeDetector) SetReleaseTime(seconds float64) {
	seconds = clampTimeConstant(seconds)
	if seconds == d.releaseTime {
		return
	}

	d.releaseTime = seconds
	d.releaseCoeff = timeCoefficient(seconds, d.sampleRate)
}

// RMS reports whether the detector smooths in the mean-square domain.
func (d *EnvelopeDetector) RMS() bool { return d.rms }

// SetRMS selects mean-square (true) or amplitude (false) smoothing. It takes
// effect on the next Envelope call; the stored state is not converted.
func (d *EnvelopeDetector) SetRMS(rms bool) { d.rms = rms }

// SampleRate returns the sample rate in Hz.
func (d *EnvelopeDetector) SampleRate() float64 { return d.sampleRate }

// AttackCoefficient returns the cached one-pole attack coefficient.
func (d *EnvelopeDetector) AttackCoefficient() float64 { return d.attackCoeff }

// ReleaseCoefficient returns the cached one-pole release coefficient.
func (d *EnvelopeDetector) ReleaseCoefficient() float64 { return d.releaseCoeff }

func (d *EnvelopeDetector) updateCoefficients() {
	d.attackCoeff = timeCoefficient(d.attackTime, d.sampleRate)
	d.releaseCoeff = timeCoefficient(d.releaseTime, d.sampleRate)
}

// timeCoefficient returns the per-sample pole for time constant seconds:
// exp(ln(0.368) / (seconds * sampleRate)).
func timeCoefficient(seconds, sampleRate float64) float64 {
	return math.Exp(math.Log(timeConstantResidual) / (seconds * sampleRate))
}

func clampTimeConstant(seconds float64) float64 {
	if math.IsNaN(seconds) || seconds < MinTimeConstant {
		return MinTimeConstant
	}

	return seconds
}
