// Package level measures block and stream level statistics (RMS, peak and
// crest factor) used to report what a dynamics processor did to a signal.
package level
