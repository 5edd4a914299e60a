package dynamics

import "github.com/cwbudde/algo-vocalcomp/dsp/core"

// ChannelStrip is the per-channel part of the compressor. It owns the
// channel's EnvelopeDetector; the GainComputer is passed in per call so that
// all strips of a processor share one block-constant configuration.
type ChannelStrip struct {
	detector  *EnvelopeDetector
	reduction core.Decibels
}

// NewChannelStrip returns a strip with its own default detector.
func NewChannelStrip() *ChannelStrip {
	return &ChannelStrip{detector: NewEnvelopeDetector()}
}

// Detector returns the strip's envelope detector.
func (s *ChannelStrip) Detector() *EnvelopeDetector { return s.detector }

// Prepare forwards the sample rate to the detector and clears all state.
func (s *ChannelStrip) Prepare(sampleRate float64) error {
	if err := s.detector.Prepare(sampleRate); err != nil {
		return err
	}

	s.Reset()

	return nil
}

// Reset clears the detector state and the last gain reduction.
func (s *ChannelStrip) Reset() {
	s.detector.Reset()
	s.reduction = 0
}

// Configure applies the detector part of p. Unchanged time constants do not
// recompute coefficients.
func (s *ChannelStrip) Configure(p Params) {
	s.detector.SetAttackTime(p.AttackMs * 0.001)
	s.detector.SetReleaseTime(p.ReleaseMs * 0.001)
	s.detector.SetRMS(p.RMS)
}

// Gain tracks sample and returns the linear gain to apply to it.
func (s *ChannelStrip) Gain(sample float64, gc GainComputer) float64 {
	env := s.detector.Envelope(sample)
	s.reduction = gc.GainReduction(toDecibels(env))

	return toAmplitude(-s.reduction)
}

// ProcessSample returns sample with the compressor's gain applied.
func (s *ChannelStrip) ProcessSample(sample float64, gc GainComputer) float64 {
	return sample * s.Gain(sample, gc)
}

// GainReduction returns the reduction in dB computed for the last sample.
func (s *ChannelStrip) GainReduction() core.Decibels { return s.reduction }
