// Package buffer provides planar multi-channel sample blocks and a pool for
// reusing them. Blocks bridge interleaved float32 PCM, as produced by files
// and audio devices, and the planar [][]float64 layout the processors use.
package buffer
