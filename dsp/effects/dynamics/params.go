package dynamics

import (
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-vocalcomp/dsp/core"
)

// Default host parameter values.
const (
	DefaultThresholdDB = -18.0
	DefaultRatio       = 4.0
	DefaultKneeDB      = 18.0
	DefaultAttackMs    = 5.0
	DefaultReleaseMs   = 250.0
	DefaultAutoGain    = 0.5
)

// Host parameter ranges.
const (
	MinThresholdDB = -60.0
	MaxThresholdDB = 0.0
	MinRatio       = 1.0
	MaxRatio       = 20.0
	MinAttackMs    = 0.0
	MaxAttackMs    = 50.0
	MinReleaseMs   = 0.0
	MaxReleaseMs   = 1000.0
	MinKneeDB      = 0.0
	MaxKneeDB      = 96.0
	MinAutoGain    = 0.0
	MaxAutoGain    = 1.0
)

// Params is one complete compressor configuration as pushed by a host at
// block boundaries. Times are in milliseconds.
type Params struct {
	ThresholdDB float64
	Ratio       float64
	KneeDB      float64
	AttackMs    float64
	ReleaseMs   float64
	RMS         bool
	// AutoGain scales the makeup gain from 0 (off) to 1 (full compensation
	// of the reduction at 0 dBFS).
	AutoGain float64
}

// DefaultParams returns the factory configuration.
func DefaultParams() Params {
	return Params{
		ThresholdDB: DefaultThresholdDB,
		Ratio:       DefaultRatio,
		KneeDB:      DefaultKneeDB,
		AttackMs:    DefaultAttackMs,
		ReleaseMs:   DefaultReleaseMs,
		RMS:         true,
		AutoGain:    DefaultAutoGain,
	}
}

// Validate rejects non-finite values. Range violations are not errors; use
// Clamp to bring values into the host ranges.
func (p Params) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"threshold", p.ThresholdDB},
		{"ratio", p.Ratio},
		{"knee", p.KneeDB},
		{"attack", p.AttackMs},
		{"release", p.ReleaseMs},
		{"auto gain", p.AutoGain},
	}

	for _, f := range fields {
		if !core.IsFinite(f.value) {
			return fmt.Errorf("%w: %s must be finite: %f", ErrInvalidParameter, f.name, f.value)
		}
	}

	return nil
}

// Clamp returns p with every value limited to its host range.
func (p Params) Clamp() Params {
	p.ThresholdDB = core.Clamp(p.ThresholdDB, MinThresholdDB, MaxThresholdDB)
	p.Ratio = core.Clamp(p.Ratio, MinRatio, MaxRatio)
	p.KneeDB = core.Clamp(p.KneeDB, MinKneeDB, MaxKneeDB)
	p.AttackMs = core.Clamp(p.AttackMs, MinAttackMs, MaxAttackMs)
	p.ReleaseMs = core.Clamp(p.ReleaseMs, MinReleaseMs, MaxReleaseMs)
	p.AutoGain = core.Clamp(p.AutoGain, MinAutoGain, MaxAutoGain)

	return p
}

// GainComputer builds the gain computer described by p.
func (p Params) GainComputer() (GainComputer, error) {
	return NewGainComputer(core.Decibels(p.ThresholdDB), p.Ratio, core.Decibels(p.KneeDB))
}

// MakeupGain returns the downstream makeup gain in dB for gc: AutoGain times
// the static reduction of a full-scale signal.
func (p Params) MakeupGain(gc GainComputer) core.Decibels {
	return core.Decibels(p.AutoGain) * gc.GainReduction(0)
}

// ParamStore publishes Params snapshots from control goroutines to the audio
// thread without locks. Writers replace the whole snapshot; the audio thread
// loads it once per block and therefore never sees a half-updated set.
type ParamStore struct {
	current atomic.Pointer[Params]
}

// NewParamStore returns a store holding p after validation and clamping.
func NewParamStore(p Params) (*ParamStore, error) {
	s := &ParamStore{}
	if err := s.Store(p); err != nil {
		return nil, err
	}

	return s, nil
}

// Load returns the current snapshot. An empty store yields DefaultParams.
func (s *ParamStore) Load() Params {
	p := s.current.Load()
	if p == nil {
		return DefaultParams()
	}

	return *p
}

// Store validates, clamps and publishes p.
func (s *ParamStore) Store(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	p = p.Clamp()
	s.current.Store(&p)

	return nil
}

// Update applies fn to a copy of the current snapshot and publishes the
// result, retrying if another writer published in between.
func (s *ParamStore) Update(fn func(*Params)) error {
	for {
		old := s.current.Load()

		next := DefaultParams()
		if old != nil {
			next = *old
		}

		fn(&next)

		if err := next.Validate(); err != nil {
			return err
		}

		next = next.Clamp()
		if s.current.CompareAndSwap(old, &next) {
			return nil
		}
	}
}
