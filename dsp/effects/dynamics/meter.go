package dynamics

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-vocalcomp/dsp/core"
)

// MeterReading holds the levels of the most recent processed block.
type MeterReading struct {
	InputPeak     core.Amplitude // largest absolute input sample
	OutputPeak    core.Amplitude // largest absolute output sample
	GainReduction core.Decibels  // largest reduction applied, without makeup
	Blocks        uint64         // blocks processed since Reset
}

// Meter publishes per-block levels from the audio thread. Values are stored
// as float64 bits so any goroutine can read them without locking.
type Meter struct {
	inputPeak     atomic.Uint64
	outputPeak    atomic.Uint64
	gainReduction atomic.Uint64
	blocks        atomic.Uint64
}

func (m *Meter) publish(inputPeak, outputPeak float64, reduction core.Decibels) {
	m.inputPeak.Store(math.Float64bits(inputPeak))
	m.outputPeak.Store(math.Float64bits(outputPeak))
	m.gainReduction.Store(math.Float64bits(float64(reduction)))
	m.blocks.Add(1)
}

// Read returns the latest published values.
func (m *Meter) Read() MeterReading {
	return MeterReading{
		InputPeak:     core.Amplitude(math.Float64frombits(m.inputPeak.Load())),
		OutputPeak:    core.Amplitude(math.Float64frombits(m.outputPeak.Load())),
		GainReduction: core.Decibels(math.Float64frombits(m.gainReduction.Load())),
		Blocks:        m.blocks.Load(),
	}
}

// Reset zeroes all readings.
func (m *Meter) Reset() {
	m.inputPeak.Store(0)
	m.outputPeak.Store(0)
	m.gainReduction.Store(0)
	m.blocks.Store(0)
}
