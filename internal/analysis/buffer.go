// SPDX-License-Identifier: MIT
/*
Package analysis implements the per-block signal measurements of the capture
pipeline:

  - SampleBuffer: planar float32 block with a known rate and frame count
  - ScanPeak: chunked peak search with frame position
  - RMS: channel-averaged root-mean-square loudness
  - ToMono: summing mixdown to one channel
  - EnvelopeFollower: attack/decay volume estimate with a noise floor gate
  - SpeechDetector: hysteresis over the envelope volume

Every measurement runs in time proportional to the block size, performs no
I/O and (except ToMono, which returns a new buffer) no allocation. Empty or
malformed buffers produce neutral results instead of errors, since silence
and transients are routine conditions on a live stream.
*/
package analysis

import (
	"fmt"
	"time"

	"github.com/go-audio/audio"
)

// SampleBuffer is a block of planar float32 samples. Every slice in Channels
// has the same length, which is at least FrameLength. Once a buffer has been
// published to consumers it must not be mutated.
type SampleBuffer struct {
	SampleRate  float64
	Channels    [][]float32
	FrameLength int
}

// NewSampleBuffer allocates a buffer with capacity frames per channel and
// FrameLength set to capacity.
func NewSampleBuffer(sampleRate float64, channelCount, capacity int) *SampleBuffer {
	if channelCount < 1 {
		channelCount = 1
	}
	if capacity < 0 {
		capacity = 0
	}
	// One backing array keeps the channels contiguous.
	backing := make([]float32, channelCount*capacity)
	channels := make([][]float32, channelCount)
	for c := range channels {
		channels[c] = backing[c*capacity : (c+1)*capacity : (c+1)*capacity]
	}
	return &SampleBuffer{
		SampleRate:  sampleRate,
		Channels:    channels,
		FrameLength: capacity,
	}
}

// ChannelCount returns the number of channels.
func (b *SampleBuffer) ChannelCount() int {
	if b == nil {
		return 0
	}
	return len(b.Channels)
}

// Channel returns the first FrameLength samples of channel c, or nil.
func (b *SampleBuffer) Channel(c int) []float32 {
	if !b.hasData() || c < 0 || c >= len(b.Channels) {
		return nil
	}
	return b.Channels[c][:b.FrameLength]
}

// Duration is the play time of FrameLength frames.
func (b *SampleBuffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.FrameLength) / b.SampleRate * float64(time.Second))
}

// hasData reports whether the buffer has at least one frame and every channel
// holds FrameLength samples.
func (b *SampleBuffer) hasData() bool {
	if b == nil || b.FrameLength <= 0 || len(b.Channels) == 0 {
		return false
	}
	for _, ch := range b.Channels {
		if len(ch) < b.FrameLength {
			return false
		}
	}
	return true
}

// FromInterleaved deinterleaves frames of channelCount samples into a new
// buffer. A trailing partial frame is ignored.
func FromInterleaved(data []float32, channelCount int, sampleRate float64) *SampleBuffer {
	if channelCount < 1 {
		channelCount = 1
	}
	frames := len(data) / channelCount
	buf := NewSampleBuffer(sampleRate, channelCount, frames)
	for f := 0; f < frames; f++ {
		for c := 0; c < channelCount; c++ {
			buf.Channels[c][f] = data[f*channelCount+c]
		}
	}
	return buf
}

// FromIntBuffer converts a go-audio integer PCM buffer (as produced by the
// WAV decoder) into a normalised SampleBuffer in [-1, 1].
func FromIntBuffer(ib *audio.IntBuffer) (*SampleBuffer, error) {
	if ib == nil || ib.Format == nil {
		return nil, fmt.Errorf("int buffer has no format")
	}
	if ib.Format.NumChannels < 1 || ib.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid int buffer format: %d channels at %d Hz", ib.Format.NumChannels, ib.Format.SampleRate)
	}
	bitDepth := ib.SourceBitDepth
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported source bit depth %d", bitDepth)
	}

	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	// 8-bit WAV is unsigned with a 128 offset.
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	channels := ib.Format.NumChannels
	frames := len(ib.Data) / channels
	buf := NewSampleBuffer(float64(ib.Format.SampleRate), channels, frames)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			buf.Channels[c][f] = float32(float64(ib.Data[f*channels+c]-offset) * scale)
		}
	}
	return buf, nil
}

// Float32Buffer exports the buffer as an interleaved go-audio buffer.
func (b *SampleBuffer) Float32Buffer() *audio.Float32Buffer {
	if !b.hasData() {
		return &audio.Float32Buffer{Format: &audio.Format{NumChannels: b.ChannelCount(), SampleRate: 0}}
	}
	channels := len(b.Channels)
	data := make([]float32, b.FrameLength*channels)
	for f := 0; f < b.FrameLength; f++ {
		for c := 0; c < channels; c++ {
			data[f*channels+c] = b.Channels[c][f]
		}
	}
	return &audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: int(b.SampleRate)},
		Data:           data,
		SourceBitDepth: 32,
	}
}
