// Package dynamics implements a real-time, single-band feed-forward
// compressor.
//
// The signal path per channel and sample is
//
//	sample -> EnvelopeDetector -> dB -> GainComputer -> gain -> sample * gain
//
// EnvelopeDetector follows loudness with one-pole attack/release ballistics,
// optionally in the mean-square domain. GainComputer is a stateless
// threshold/ratio/soft-knee transfer function in dB. ChannelStrip binds a
// detector to one channel, and Processor drives a set of strips over planar
// blocks with lock-free parameter updates through ParamStore and makeup gain
// scaled by Params.AutoGain.
//
// Build with the fastmath tag to replace the per-sample log/exp/sqrt with
// the approximations from algo-approx.
package dynamics
