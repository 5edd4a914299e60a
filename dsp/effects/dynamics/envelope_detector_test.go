package dynamics

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-vocalcomp/internal/testutil"
)

func newPeakDetector(t *testing.T, sampleRate, attack, release float64) *EnvelopeDetector {
	t.Helper()

	d := NewEnvelopeDetector()
	if err := d.Prepare(sampleRate); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	d.SetRMS(false)
	d.SetAttackTime(attack)
	d.SetReleaseTime(release)
	d.Reset()

	return d
}

func TestEnvelopeDetectorDefaults(t *testing.T) {
	d := NewEnvelopeDetector()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"AttackTime", d.AttackTime(), DefaultAttackTime},
		{"ReleaseTime", d.ReleaseTime(), DefaultReleaseTime},
		{"SampleRate", d.SampleRate(), 48000},
		{"Value", d.Value(), 0},
		{"AttackCoefficient", d.AttackCoefficient(), timeCoefficient(DefaultAttackTime, 48000)},
		{"ReleaseCoefficient", d.ReleaseCoefficient(), timeCoefficient(DefaultReleaseTime, 48000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if !d.RMS() {
		t.Error("RMS should be enabled by default")
	}
}

func TestEnvelopeDetectorSingleSampleFromReset(t *testing.T) {
	d := newPeakDetector(t, 48000, 0.01, 0.5)

	coeff := math.Exp(math.Log(0.368) / (0.01 * 48000))
	if d.AttackCoefficient() != coeff {
		t.Fatalf("AttackCoefficient() = %v, want %v", d.AttackCoefficient(), coeff)
	}

	got := d.Envelope(1.0)
	testutil.RequireNearlyEqual(t, "Envelope(1)", float64(got), 1-coeff, 1e-12)
	testutil.RequireNearlyEqual(t, "Value()", d.Value(), 1-coeff, 1e-12)
}

func TestEnvelopeDetectorPrepareRecomputesCoefficients(t *testing.T) {
	d := NewEnvelopeDetector()
	d.SetAttackTime(0.01)
	d.SetReleaseTime(0.2)

	if err := d.Prepare(96000); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if got, want := d.AttackCoefficient(), timeCoefficient(0.01, 96000); got != want {
		t.Errorf("AttackCoefficient() = %v, want %v", got, want)
	}

	if got, want := d.ReleaseCoefficient(), timeCoefficient(0.2, 96000); got != want {
		t.Errorf("ReleaseCoefficient() = %v, want %v", got, want)
	}
}

func TestEnvelopeDetectorPrepareRejectsInvalidRates(t *testing.T) {
	for _, sr := range []float64{0, -44100, math.NaN(), math.Inf(1)} {
		d := NewEnvelopeDetector()

		err := d.Prepare(sr)
		if !errors.Is(err, ErrInvalidSampleRate) {
			t.Fatalf("Prepare(%v) error = %v, want ErrInvalidSampleRate", sr, err)
		}

		if d.SampleRate() != 48000 {
			t.Fatalf("Prepare(%v) changed sample rate to %v", sr, d.SampleRate())
		}
	}
}

func TestEnvelopeDetectorTimeConstantClamping(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"zero", 0, MinTimeConstant},
		{"negative", -1, MinTimeConstant},
		{"NaN", math.NaN(), MinTimeConstant},
		{"tiny", 1e-9, MinTimeConstant},
		{"valid", 0.02, 0.02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewEnvelopeDetector()
			d.SetAttackTime(tt.value)
			d.SetReleaseTime(tt.value)

			if d.AttackTime() != tt.want || d.ReleaseTime() != tt.want {
				t.Fatalf("times = (%v, %v), want %v", d.AttackTime(), d.ReleaseTime(), tt.want)
			}

			for _, c := range []float64{d.AttackCoefficient(), d.ReleaseCoefficient()} {
				if !(c > 0 && c < 1) {
					t.Fatalf("coefficient %v outside (0, 1)", c)
				}
			}
		})
	}
}

func TestEnvelopeDetectorConvergesToConstantInput(t *testing.T) {
	const amplitude = 0.5

	tests := []struct {
		name      string
		rms       bool
		wantState float64
	}{
		{"peak", false, amplitude},
		{"rms", true, amplitude * amplitude},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newPeakDetector(t, 48000, 0.001, 0.1)
			d.SetRMS(tt.rms)

			states := make([]float64, 5000)
			for i := range states {
				out := d.Envelope(amplitude)
				if out < 0 || out > 1 {
					t.Fatalf("sample %d: envelope %v outside [0, 1]", i, out)
				}

				states[i] = d.Value()
			}

			testutil.RequireNonDecreasing(t, states, 0)
			testutil.RequireInRange(t, states, 0, tt.wantState)
			testutil.RequireNearlyEqual(t, "final state", states[len(states)-1], tt.wantState, 1e-9)
			testutil.RequireNearlyEqual(t, "final envelope", float64(d.Envelope(amplitude)), amplitude, 1e-9)
		})
	}
}

func TestEnvelopeDetectorReleaseDecaysMonotonically(t *testing.T) {
	d := newPeakDetector(t, 48000, 0.001, 0.05)

	for range 2000 {
		d.Envelope(1)
	}

	start := d.Value()

	// 20000 samples are 20000/2400 release time constants at 48 kHz.
	states := make([]float64, 20000)
	for i := range states {
		d.Envelope(0.2)
		states[i] = -d.Value()
	}

	testutil.RequireNonDecreasing(t, states, 0)
	want := 0.2 + (start-0.2)*math.Pow(0.368, 20000.0/2400.0)
	testutil.RequireNearlyEqual(t, "final state", -states[len(states)-1], want, 1e-9)
}

func TestEnvelopeDetectorStaysInUnitRange(t *testing.T) {
	for _, rms := range []bool{false, true} {
		d := newPeakDetector(t, 48000, MinTimeConstant, MinTimeConstant)
		d.SetRMS(rms)

		input := []float64{-3, 2, 10, 0.5, -0.25, 0, 1e6, -1e-3, 0}
		out := make([]float64, len(input))

		for i, x := range input {
			out[i] = float64(d.Envelope(x))
			if v := d.Value(); v < 0 || v > 1 {
				t.Fatalf("rms=%v sample %d: state %v outside [0, 1]", rms, i, v)
			}
		}

		testutil.RequireInRange(t, out, 0, 1)
	}
}

func TestEnvelopeDetectorAttackFasterThanRelease(t *testing.T) {
	d := newPeakDetector(t, 48000, 0.01, 0.1)

	rise := 0
	for d.Envelope(1) < 0.632 {
		rise++
		if rise > 48000 {
			t.Fatal("attack never reached 63%")
		}
	}

	for range 48000 {
		d.Envelope(1)
	}

	fall := 0
	for d.Envelope(0) > 0.368 {
		fall++
		if fall > 480000 {
			t.Fatal("release never reached 63%")
		}
	}

	if rise >= fall {
		t.Fatalf("attack took %d samples, release %d; want attack faster", rise, fall)
	}

	// One time constant is 480 samples of attack and 4800 of release.
	if rise < 470 || rise > 490 {
		t.Errorf("attack took %d samples, want ~480", rise)
	}

	if fall < 4790 || fall > 4810 {
		t.Errorf("release took %d samples, want ~4800", fall)
	}
}

func TestEnvelopeDetectorResetIsColdStart(t *testing.T) {
	d := newPeakDetector(t, 44100, 0.005, 0.2)
	fresh := newPeakDetector(t, 44100, 0.005, 0.2)

	for _, x := range testutil.DeterministicNoise(7, 0.9, 1000) {
		d.Envelope(x)
	}

	d.Reset()

	if d.Value() != 0 {
		t.Fatalf("Value() after Reset = %v, want 0", d.Value())
	}

	for i, x := range testutil.DeterministicSine(440, 44100, 0.7, 256) {
		got, want := d.Envelope(x), fresh.Envelope(x)
		if got != want {
			t.Fatalf("sample %d: %v, want %v", i, got, want)
		}
	}
}

func TestEnvelopeDetectorEqualInputHoldsState(t *testing.T) {
	d := newPeakDetector(t, 48000, 0.01, 0.1)

	if got := d.Envelope(0); got != 0 {
		t.Fatalf("Envelope(0) from reset = %v, want 0", got)
	}

	d.Envelope(0.5)
	state := d.Value()

	if got := d.Envelope(state); float64(got) != state {
		t.Fatalf("Envelope(state) = %v, want unchanged %v", got, state)
	}
}

func TestEnvelopeDetectorNonFiniteInput(t *testing.T) {
	d := newPeakDetector(t, 48000, 0.01, 0.1)

	d.Envelope(0.5)
	state := d.Value()

	// NaN compares neither above nor below the state.
	if got := d.Envelope(math.NaN()); float64(got) != state {
		t.Fatalf("Envelope(NaN) = %v, want unchanged %v", got, state)
	}

	if got := d.Envelope(math.Inf(1)); !math.IsNaN(float64(got)) {
		t.Fatalf("Envelope(+Inf) = %v, want NaN", got)
	}

	if got := d.Envelope(0.1); !math.IsNaN(float64(got)) {
		t.Fatalf("Envelope after +Inf = %v, want NaN until Reset", got)
	}

	d.Reset()

	if got := d.Envelope(0); got != 0 {
		t.Fatalf("Envelope(0) after Reset = %v, want 0", got)
	}
}
