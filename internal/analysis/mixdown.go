// SPDX-License-Identifier: MIT
package analysis

import (
	"gonum.org/v1/gonum/blas/blas32"
)

// ToMono sums every channel of buf into a new single-channel buffer with the
// same sample rate and frame length.
//
// The result is a plain sum, not an average: two full-scale channels produce
// samples up to 2.0. Callers that need a level-preserving downmix must scale
// the result themselves (the capture converter averages instead).
func ToMono(buf *SampleBuffer) *SampleBuffer {
	if buf == nil {
		return NewSampleBuffer(0, 1, 0)
	}
	if !buf.hasData() {
		return NewSampleBuffer(buf.SampleRate, 1, 0)
	}

	n := buf.FrameLength
	out := NewSampleBuffer(buf.SampleRate, 1, n)
	dst := blas32.Vector{N: n, Inc: 1, Data: out.Channels[0]}
	for _, ch := range buf.Channels {
		blas32.Axpy(1, blas32.Vector{N: n, Inc: 1, Data: ch[:n]}, dst)
	}
	return out
}
