// Package core holds the numeric helpers, unit types and processor
// configuration shared by the DSP packages.
package core
