package core

// Decibels is a level or a level difference on the 20*log10 amplitude scale.
type Decibels float64

// Amplitude is a linear amplitude or gain factor. A full-scale sample has
// amplitude 1.
type Amplitude float64

// Decibels converts a to dB. Zero maps to -Inf and negative values to NaN.
func (a Amplitude) Decibels() Decibels {
	return Decibels(LinearToDB(float64(a)))
}

// Amplitude converts d to a linear factor. -Inf maps to 0.
func (d Decibels) Amplitude() Amplitude {
	return Amplitude(DBToLinear(float64(d)))
}
