// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/blas/blas32"
)

// RMS returns the channel-averaged root-mean-square level of buf: the RMS of
// each channel over FrameLength samples, summed as absolute values and
// divided by the channel count. It is 0 for buffers without channel data.
func RMS(buf *SampleBuffer) float32 {
	if !buf.hasData() {
		return 0
	}

	n := buf.FrameLength
	norm := float32(1 / math.Sqrt(float64(n)))
	var sum float32
	for _, ch := range buf.Channels {
		// ||x||2 / sqrt(n) == sqrt(sum(x^2) / n)
		channelRMS := blas32.Nrm2(blas32.Vector{N: n, Inc: 1, Data: ch[:n]}) * norm
		if channelRMS < 0 {
			channelRMS = -channelRMS
		}
		sum += channelRMS
	}
	return sum / float32(len(buf.Channels))
}
