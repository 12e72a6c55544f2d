// SPDX-License-Identifier: MIT
package analysis

import (
	"micpipe/pkg/bitint"

	"gonum.org/v1/gonum/blas/blas32"
)

const (
	// PeakChunkSize is the number of frames scanned per chunk.
	PeakChunkSize = 512

	// MinPeakAmplitude is the sentinel amplitude of a scan that found no
	// full chunk. It is far below any real absolute sample value.
	MinPeakAmplitude float32 = -10000.0
)

// Peak is the loudest chunk of a buffer.
type Peak struct {
	Time          float64 // Seconds from the buffer start to the winning chunk.
	FramePosition int     // First frame of the winning chunk.
	Amplitude     float32 // Largest absolute sample in the winning chunk.
}

// ScanPeak finds the loudest 512-frame chunk across all channels.
//
// Only whole chunks inside FrameLength are scanned; a trailing partial chunk
// is dropped. The reported position is the start of the winning chunk, not
// the exact sample, and the first chunk to reach the maximum wins.
//
// ok is false when the buffer is empty or has no channel data (Peak is the
// zero value), and when no full chunk exists (Amplitude is MinPeakAmplitude).
func ScanPeak(buf *SampleBuffer) (peak Peak, ok bool) {
	if !buf.hasData() {
		return Peak{}, false
	}

	peak.Amplitude = MinPeakAmplitude
	for i := range bitint.ChunkCount(buf.FrameLength, PeakChunkSize) {
		pos := i * PeakChunkSize
		for _, ch := range buf.Channels {
			chunkPeak := chunkAbsMax(ch[pos : pos+PeakChunkSize])
			if chunkPeak > peak.Amplitude {
				peak.Amplitude = chunkPeak
				peak.FramePosition = pos
				if buf.SampleRate > 0 {
					peak.Time = float64(pos) / buf.SampleRate
				}
				ok = true
			}
		}
	}
	return peak, ok
}

// chunkAbsMax returns the largest absolute value in chunk.
func chunkAbsMax(chunk []float32) float32 {
	i := blas32.Iamax(blas32.Vector{N: len(chunk), Inc: 1, Data: chunk})
	if i < 0 {
		return MinPeakAmplitude
	}
	v := chunk[i]
	if v < 0 {
		return -v
	}
	return v
}
