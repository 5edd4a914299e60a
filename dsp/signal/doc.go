// Package signal generates deterministic test signals for exercising
// dynamics processors: sines, level steps, tone bursts and white noise.
package signal
