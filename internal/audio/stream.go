// SPDX-License-Identifier: MIT
package audio

import (
	"time"

	"github.com/gordonklaus/portaudio"
)

// Stream is a started-or-stopped hardware input stream. Stop must not
// return while a callback is still running.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// StreamConfig describes the native input stream to open.
type StreamConfig struct {
	Device          *portaudio.DeviceInfo
	Channels        int
	SampleRate      float64
	FramesPerBuffer int
	Latency         time.Duration
}

// StreamOpener opens an input stream that calls process with interleaved
// float32 frames.
type StreamOpener func(cfg StreamConfig, process func(in []float32)) (Stream, error)

// OpenPortAudioStream opens an input-only PortAudio stream.
func OpenPortAudioStream(cfg StreamConfig, process func(in []float32)) (Stream, error) {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: cfg.Channels,
			Device:   cfg.Device,
			Latency:  cfg.Latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: cfg.FramesPerBuffer,
		SampleRate:      cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, process)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
