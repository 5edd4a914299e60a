package dynamics

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-vocalcomp/dsp/buffer"
	"github.com/cwbudde/algo-vocalcomp/dsp/core"
)

// ErrChannelMismatch is returned when a block has more channels than the
// processor was built for.
var ErrChannelMismatch = errors.New("channel count mismatch")

// Processor runs the compressor over planar multi-channel blocks. Each channel
// has its own ChannelStrip; the gain computer and makeup gain are rebuilt from
// the ParamStore snapshot at the start of a block and shared by all channels.
//
// ProcessBlock must be called from one goroutine at a time. Parameters may be
// changed from any goroutine through Params().
type Processor struct {
	cfg    core.ProcessorConfig
	params *ParamStore
	strips []*ChannelStrip

	// scratch holds per-sample gains; sized for cfg.BlockSize.
	scratch []float64

	applied    Params
	configured bool
	gc         GainComputer
	makeup     float64

	meter Meter
}

// NewProcessor creates a processor reading its parameters from params. A nil
// store is replaced by one holding DefaultParams.
func NewProcessor(params *ParamStore, opts ...core.ProcessorOption) (*Processor, error) {
	if params == nil {
		var err error

		params, err = NewParamStore(DefaultParams())
		if err != nil {
			return nil, err
		}
	}

	cfg := core.ApplyProcessorOptions(opts...)

	p := &Processor{
		cfg:     cfg,
		params:  params,
		strips:  make([]*ChannelStrip, cfg.Channels),
		scratch: make([]float64, cfg.BlockSize),
	}

	for i := range p.strips {
		p.strips[i] = NewChannelStrip()
	}

	if err := p.Prepare(cfg.SampleRate, cfg.BlockSize); err != nil {
		return nil, err
	}

	return p, nil
}

// Prepare sets the sample rate and maximum block size for a processing
// session and resets all state.
func (p *Processor) Prepare(sampleRate float64, maxBlockSize int) error {
	for ch, s := range p.strips {
		if err := s.Prepare(sampleRate); err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
	}

	p.cfg.SampleRate = sampleRate

	if maxBlockSize > 0 {
		p.cfg.BlockSize = maxBlockSize
		p.scratch = buffer.EnsureLen(p.scratch, maxBlockSize)
	}

	p.configured = false
	p.meter.Reset()

	return nil
}

// Reset clears every channel's envelope and the meters, e.g. on a transport
// restart. Parameters are kept.
func (p *Processor) Reset() {
	for _, s := range p.strips {
		s.Reset()
	}

	p.meter.Reset()
}

// Params returns the store the processor reads its configuration from.
func (p *Processor) Params() *ParamStore { return p.params }

// Config returns the current processing configuration.
func (p *Processor) Config() core.ProcessorConfig { return p.cfg }

// Channels returns the number of channels.
func (p *Processor) Channels() int { return len(p.strips) }

// Strip returns the strip of channel ch.
func (p *Processor) Strip(ch int) *ChannelStrip { return p.strips[ch] }

// GainComputer returns the gain computer used for the last block.
func (p *Processor) GainComputer() GainComputer { return p.gc }

// MakeupGain returns the linear makeup gain used for the last block.
func (p *Processor) MakeupGain() float64 { return p.makeup }

// Meter returns the levels of the most recent block.
func (p *Processor) Meter() MeterReading { return p.meter.Read() }

// ProcessBlock compresses channels in place. channels[i] is the planar sample
// slice of channel i; fewer channels than configured are allowed. Blocks
// longer than the prepared size grow the scratch buffer, which allocates.
func (p *Processor) ProcessBlock(channels [][]float64) error {
	if len(channels) > len(p.strips) {
		return fmt.Errorf("%w: block has %d channels, processor %d", ErrChannelMismatch, len(channels), len(p.strips))
	}

	p.applyParams(p.params.Load())

	var inPeak, outPeak float64

	var maxReduction core.Decibels

	for ch, buf := range channels {
		if len(buf) == 0 {
			continue
		}

		p.scratch = buffer.EnsureLen(p.scratch, len(buf))
		gains := p.scratch
		strip := p.strips[ch]

		for i, x := range buf {
			gains[i] = strip.Gain(x, p.gc) * p.makeup

			if r := strip.GainReduction(); r > maxReduction {
				maxReduction = r
			}

			if a := math.Abs(x); a > inPeak {
				inPeak = a
			}

			if a := math.Abs(x * gains[i]); a > outPeak {
				outPeak = a
			}
		}

		vecmath.MulBlockInPlace(buf, gains)
	}

	p.meter.publish(inPeak, outPeak, maxReduction)

	return nil
}

// ProcessSample compresses one sample of channel ch using the configuration
// of the last block. It is meant for hosts that drive the strips sample by
// sample; block hosts use ProcessBlock. A channel outside the processor's
// range returns ErrChannelMismatch, as ProcessBlock does.
func (p *Processor) ProcessSample(ch int, sample float64) (float64, error) {
	if ch < 0 || ch >= len(p.strips) {
		return 0, fmt.Errorf("%w: channel %d, processor %d", ErrChannelMismatch, ch, len(p.strips))
	}

	if !p.configured {
		p.applyParams(p.params.Load())
	}

	return p.strips[ch].ProcessSample(sample, p.gc) * p.makeup, nil
}

func (p *Processor) applyParams(prm Params) {
	if p.configured && prm == p.applied {
		return
	}

	gc, err := prm.GainComputer()
	if err != nil {
		// The store only publishes validated, clamped values; keep the
		// previous computer if something slipped through.
		if !p.configured {
			gc = GainComputer{}
		} else {
			gc = p.gc
		}
	}

	for _, s := range p.strips {
		s.Configure(prm)
	}

	p.gc = gc
	p.makeup = toAmplitude(prm.MakeupGain(gc))
	p.applied = prm
	p.configured = true
}
