// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"time"

	"micpipe/internal/analysis"
	applog "micpipe/internal/log"
	"micpipe/pkg/bitint"

	resampler "github.com/tphakala/go-audio-resampler"
	"gonum.org/v1/gonum/blas/blas32"
)

// Format describes the sample rate and channel count of a stream.
type Format struct {
	SampleRate float64
	Channels   int
}

func (f Format) String() string {
	return fmt.Sprintf("%.0f Hz/%dch", f.SampleRate, f.Channels)
}

// TargetFormat is the format every measurement stage consumes.
var TargetFormat = Format{SampleRate: 48000, Channels: 1}

// sampleRateConverter is the part of the resampler engine the converter uses.
type sampleRateConverter interface {
	Process(in []float32) ([]float32, error)
	Flush() ([]float32, error)
}

// EmitFunc receives each completed block. Ownership of buf passes to the
// callee.
type EmitFunc func(buf *analysis.SampleBuffer, ts Timestamp)

// FormatConverter turns interleaved native hardware frames into fixed-size
// mono blocks at the target rate. Channels are averaged, the result is
// resampled when the rates differ, and samples accumulate until a block is
// full.
//
// Write runs on the audio callback. It allocates one SampleBuffer per
// emitted block and whatever the resampler returns, nothing else once the
// scratch buffer has grown to the callback size.
// Create one per stream; not safe for concurrent use.
type FormatConverter struct {
	native    Format
	target    Format
	blockSize int

	scratch   []float32 // Channel-averaged native frames.
	resampler sampleRateConverter

	block      *analysis.SampleBuffer
	fill       int
	sampleTime int64

	now func() time.Time
}

// NewFormatConverter validates both formats and prepares the resampler.
// The target must be mono and blockSize a power of two of at least one
// peak-scan chunk.
func NewFormatConverter(native, target Format, blockSize int) (*FormatConverter, error) {
	if native.SampleRate <= 0 || native.Channels < 1 {
		return nil, fmt.Errorf("invalid native format %s", native)
	}
	if target.SampleRate <= 0 || target.Channels != 1 {
		return nil, fmt.Errorf("target format %s must be mono", target)
	}
	if blockSize < analysis.PeakChunkSize || !bitint.IsPowerOfTwo(blockSize) {
		return nil, fmt.Errorf("block size %d must be a power of two >= %d", blockSize, analysis.PeakChunkSize)
	}

	c := &FormatConverter{
		native:    native,
		target:    target,
		blockSize: blockSize,
		now:       time.Now,
	}

	if native.SampleRate != target.SampleRate {
		r, err := resampler.NewEngineFloat32(native.SampleRate, target.SampleRate, resampler.QualityLow)
		if err != nil {
			return nil, fmt.Errorf("failed to create resampler %s -> %s: %w", native, target, err)
		}
		c.resampler = r
	}

	if native != target {
		applog.Named("Capture").Warnf("converting %s to %s", native, target)
	}

	return c, nil
}

// Write consumes interleaved native frames. A trailing partial frame is
// ignored. Every block completed by this call is passed to emit in order.
func (c *FormatConverter) Write(in []float32, emit EmitFunc) error {
	frames := len(in) / c.native.Channels
	if frames == 0 {
		return nil
	}

	return c.convert(c.mixdown(in, frames), emit)
}

// convert resamples mono native samples and accumulates the result.
func (c *FormatConverter) convert(mono []float32, emit EmitFunc) error {
	if c.resampler != nil {
		out, err := c.resampler.Process(mono)
		if err != nil {
			return fmt.Errorf("resample: %w", err)
		}
		mono = out
	}

	c.accumulate(mono, emit)
	return nil
}

// WriteBuffer consumes a planar buffer at the native format, as produced by
// decoding a file.
func (c *FormatConverter) WriteBuffer(buf *analysis.SampleBuffer, emit EmitFunc) error {
	if buf.ChannelCount() != c.native.Channels || buf.SampleRate != c.native.SampleRate {
		return fmt.Errorf("buffer format %.0f Hz/%dch does not match %s",
			buf.SampleRate, buf.ChannelCount(), c.native)
	}
	frames := buf.FrameLength
	if frames <= 0 {
		return nil
	}

	mono := buf.Channel(0)
	if c.native.Channels > 1 {
		if cap(c.scratch) < frames {
			c.scratch = make([]float32, frames)
		}
		mono = c.scratch[:frames]
		clear(mono)

		dst := blas32.Vector{N: frames, Inc: 1, Data: mono}
		scale := 1 / float32(c.native.Channels)
		for ch := range c.native.Channels {
			blas32.Axpy(scale, blas32.Vector{N: frames, Inc: 1, Data: buf.Channel(ch)}, dst)
		}
	}

	return c.convert(mono, emit)
}

// Flush drains the resampler and emits whatever is buffered as a final,
// possibly short, block.
func (c *FormatConverter) Flush(emit EmitFunc) error {
	if c.resampler != nil {
		tail, err := c.resampler.Flush()
		if err != nil {
			return fmt.Errorf("resampler flush: %w", err)
		}
		c.accumulate(tail, emit)
	}

	if c.fill > 0 {
		c.block.FrameLength = c.fill
		c.emitBlock(emit)
	}
	return nil
}

// SampleTime returns the number of target-rate frames emitted so far.
func (c *FormatConverter) SampleTime() int64 {
	return c.sampleTime
}

// mixdown averages the channels of in into the scratch buffer. Mono input is
// returned as is.
func (c *FormatConverter) mixdown(in []float32, frames int) []float32 {
	channels := c.native.Channels
	if channels == 1 {
		return in[:frames]
	}

	if cap(c.scratch) < frames {
		c.scratch = make([]float32, frames)
	}
	mono := c.scratch[:frames]
	clear(mono)

	dst := blas32.Vector{N: frames, Inc: 1, Data: mono}
	scale := 1 / float32(channels)
	for ch := range channels {
		src := blas32.Vector{N: frames, Inc: channels, Data: in[ch:]}
		blas32.Axpy(scale, src, dst)
	}
	return mono
}

func (c *FormatConverter) accumulate(samples []float32, emit EmitFunc) {
	for len(samples) > 0 {
		if c.block == nil {
			c.block = analysis.NewSampleBuffer(c.target.SampleRate, 1, c.blockSize)
			c.fill = 0
		}

		n := copy(c.block.Channels[0][c.fill:], samples)
		c.fill += n
		samples = samples[n:]

		if c.fill == c.blockSize {
			c.emitBlock(emit)
		}
	}
}

func (c *FormatConverter) emitBlock(emit EmitFunc) {
	ts := Timestamp{SampleTime: c.sampleTime, HostTime: c.now()}
	buf := c.block
	c.sampleTime += int64(c.fill)
	c.block = nil
	c.fill = 0
	emit(buf, ts)
}
