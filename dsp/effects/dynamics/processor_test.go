package dynamics

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-vocalcomp/dsp/core"
	"github.com/cwbudde/algo-vocalcomp/internal/testutil"
)

func newTestProcessor(t *testing.T, p Params, opts ...core.ProcessorOption) *Processor {
	t.Helper()

	store, err := NewParamStore(p)
	if err != nil {
		t.Fatalf("NewParamStore() error = %v", err)
	}

	proc, err := NewProcessor(store, opts...)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}

	return proc
}

func TestNewProcessorDefaults(t *testing.T) {
	p, err := NewProcessor(nil)
	if err != nil {
		t.Fatalf("NewProcessor(nil) error = %v", err)
	}

	if p.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", p.Channels())
	}

	if p.Config().SampleRate != 48000 {
		t.Errorf("SampleRate = %v, want 48000", p.Config().SampleRate)
	}

	if p.Params().Load() != DefaultParams() {
		t.Errorf("Params() = %+v, want defaults", p.Params().Load())
	}

	if p.Strip(0) == p.Strip(1) || p.Strip(0).Detector() == p.Strip(1).Detector() {
		t.Fatal("channels share a strip or detector")
	}
}

func TestProcessorPrepare(t *testing.T) {
	p := newTestProcessor(t, DefaultParams(), core.WithChannels(1))

	if err := p.Prepare(0, 256); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("Prepare(0) error = %v, want ErrInvalidSampleRate", err)
	}

	if err := p.Prepare(96000, 1024); err != nil {
		t.Fatalf("Prepare(96000) error = %v", err)
	}

	if got := p.Strip(0).Detector().SampleRate(); got != 96000 {
		t.Fatalf("detector sample rate = %v, want 96000", got)
	}

	if p.Config().BlockSize != 1024 {
		t.Fatalf("BlockSize = %d, want 1024", p.Config().BlockSize)
	}
}

func TestProcessorRejectsExtraChannels(t *testing.T) {
	p := newTestProcessor(t, DefaultParams(), core.WithChannels(1))

	err := p.ProcessBlock([][]float64{{0.1}, {0.1}})
	if !errors.Is(err, ErrChannelMismatch) {
		t.Fatalf("ProcessBlock() error = %v, want ErrChannelMismatch", err)
	}
}

func TestProcessorMatchesChannelStrip(t *testing.T) {
	params := DefaultParams()
	params.ThresholdDB = -30
	params.RMS = false

	p := newTestProcessor(t, params, core.WithChannels(1), core.WithBlockSize(128))

	input := testutil.DeterministicSine(440, 48000, 0.8, 1000)
	block := append([]float64(nil), input...)

	if err := p.ProcessBlock([][]float64{block}); err != nil {
		t.Fatal(err)
	}

	strip := NewChannelStrip()
	strip.Configure(params)

	gc, err := params.GainComputer()
	if err != nil {
		t.Fatal(err)
	}

	makeup := toAmplitude(params.MakeupGain(gc))

	want := make([]float64, len(input))
	for i, x := range input {
		want[i] = x * (strip.Gain(x, gc) * makeup)
	}

	testutil.RequireSliceNearlyEqual(t, block, want, 1e-12)
}

func TestProcessorChannelsAreIndependent(t *testing.T) {
	params := DefaultParams()
	params.AutoGain = 0

	p := newTestProcessor(t, params)

	loud := testutil.DC(1, 4800)
	quietIn := testutil.DeterministicSine(1000, 48000, 0.001, 4800)
	quiet := append([]float64(nil), quietIn...)

	if err := p.ProcessBlock([][]float64{loud, quiet}); err != nil {
		t.Fatal(err)
	}

	testutil.RequireSliceNearlyEqual(t, quiet, quietIn, 0)

	if loud[len(loud)-1] >= 1 {
		t.Fatalf("loud channel was not reduced: %v", loud[len(loud)-1])
	}

	if p.Strip(1).Detector().Value() > 1e-6 {
		t.Fatalf("quiet channel envelope = %v", p.Strip(1).Detector().Value())
	}
}

func TestProcessorAppliesParameterChangesAtBlockBoundaries(t *testing.T) {
	p := newTestProcessor(t, DefaultParams(), core.WithChannels(1))

	block := testutil.DC(0.9, 512)
	if err := p.ProcessBlock([][]float64{block}); err != nil {
		t.Fatal(err)
	}

	if block[511] == 0.9 {
		t.Fatal("expected compression with default parameters")
	}

	err := p.Params().Update(func(prm *Params) {
		prm.Ratio = 1
		prm.AutoGain = 0
	})
	if err != nil {
		t.Fatal(err)
	}

	block = testutil.DC(0.9, 512)
	if err := p.ProcessBlock([][]float64{block}); err != nil {
		t.Fatal(err)
	}

	testutil.RequireSliceNearlyEqual(t, block, testutil.DC(0.9, 512), 0)

	if p.GainComputer().Ratio() != 1 || p.MakeupGain() != 1 {
		t.Fatalf("processor did not pick up new parameters: ratio=%v makeup=%v", p.GainComputer().Ratio(), p.MakeupGain())
	}
}

func TestProcessorAutoGain(t *testing.T) {
	params := DefaultParams()
	params.AutoGain = 1

	p := newTestProcessor(t, params, core.WithChannels(1))

	quietIn := testutil.DeterministicSine(500, 48000, 0.001, 256)
	quiet := append([]float64(nil), quietIn...)

	if err := p.ProcessBlock([][]float64{quiet}); err != nil {
		t.Fatal(err)
	}

	// Below threshold only the makeup applies: +13.5 dB.
	factor := math.Pow(10, 13.5/20)
	for i := range quiet {
		testutil.RequireNearlyEqual(t, "sample", quiet[i], quietIn[i]*factor, 1e-12)
	}
}

func TestProcessorMeter(t *testing.T) {
	params := DefaultParams()
	params.AutoGain = 0
	params.AttackMs = 0.5
	params.RMS = false

	p := newTestProcessor(t, params, core.WithChannels(1))

	block := testutil.DC(1, 4800)
	block[0] = -1

	if err := p.ProcessBlock([][]float64{block}); err != nil {
		t.Fatal(err)
	}

	m := p.Meter()
	if m.InputPeak != 1 {
		t.Errorf("InputPeak = %v, want 1", m.InputPeak)
	}

	if m.OutputPeak <= 0 || m.OutputPeak > 1 {
		t.Errorf("OutputPeak = %v, want in (0, 1]", m.OutputPeak)
	}

	testutil.RequireNearlyEqual(t, "GainReduction", float64(m.GainReduction), 13.5, 1e-6)

	if m.Blocks != 1 {
		t.Errorf("Blocks = %d, want 1", m.Blocks)
	}

	p.Reset()

	if p.Meter() != (MeterReading{}) {
		t.Fatalf("Meter() after Reset = %+v", p.Meter())
	}

	if p.Strip(0).Detector().Value() != 0 {
		t.Fatal("Reset did not clear the envelope")
	}
}

func TestProcessorGrowsForLongBlocks(t *testing.T) {
	p := newTestProcessor(t, DefaultParams(), core.WithChannels(1), core.WithBlockSize(16))

	block := testutil.DeterministicNoise(3, 0.5, 4096)
	if err := p.ProcessBlock([][]float64{block}); err != nil {
		t.Fatal(err)
	}

	testutil.RequireFinite(t, block)
}

func TestProcessorProcessSample(t *testing.T) {
	params := DefaultParams()
	params.AutoGain = 0

	a := newTestProcessor(t, params, core.WithChannels(1))
	b := newTestProcessor(t, params, core.WithChannels(1))

	input := testutil.DeterministicSine(300, 48000, 0.7, 512)
	block := append([]float64(nil), input...)

	if err := a.ProcessBlock([][]float64{block}); err != nil {
		t.Fatal(err)
	}

	for i, x := range input {
		got, err := b.ProcessSample(0, x)
		if err != nil {
			t.Fatalf("ProcessSample() error = %v", err)
		}

		testutil.RequireNearlyEqual(t, "ProcessSample", got, block[i], 1e-12)
	}
}

func TestProcessorProcessSampleRejectsChannel(t *testing.T) {
	p := newTestProcessor(t, DefaultParams(), core.WithChannels(2))

	for _, ch := range []int{-1, 2, 5} {
		if _, err := p.ProcessSample(ch, 0.5); !errors.Is(err, ErrChannelMismatch) {
			t.Fatalf("ProcessSample(%d) error = %v, want ErrChannelMismatch", ch, err)
		}
	}

	if got := p.Strip(0).Detector().Value(); got != 0 {
		t.Fatalf("rejected sample changed channel 0 state to %v", got)
	}
}

func TestProcessorScratchReusedAcrossBlockSizes(t *testing.T) {
	p := newTestProcessor(t, DefaultParams(), core.WithChannels(1), core.WithBlockSize(64))

	for _, n := range []int{64, 8, 256, 32} {
		block := testutil.DeterministicSine(440, 48000, 0.9, n)
		if err := p.ProcessBlock([][]float64{block}); err != nil {
			t.Fatalf("ProcessBlock(%d) error = %v", n, err)
		}
		if len(p.scratch) != n {
			t.Fatalf("scratch len = %d after %d-sample block", len(p.scratch), n)
		}
		if cap(p.scratch) < 256 && n == 256 {
			t.Fatalf("scratch cap = %d, want >= 256", cap(p.scratch))
		}
	}
}
