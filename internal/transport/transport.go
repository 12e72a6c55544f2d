// SPDX-License-Identifier: MIT
package transport

import (
	"time"

	"micpipe/internal/audio"
)

// Transport defines a generic interface for sending published snapshots or
// events. Implementations should be thread-safe and must not block the
// caller for long; slow consumers drop data instead.
type Transport interface {
	Send(data any) error
	Close() error
}

// SnapshotSource is anything that publishes capture snapshots, normally
// *audio.Engine.
type SnapshotSource interface {
	Snapshot() *audio.Snapshot
}

// LevelMessage is the JSON form of a snapshot sent to WebSocket clients.
type LevelMessage struct {
	Sequence       uint64    `json:"seq"`
	Time           time.Time `json:"time"`
	SampleTime     int64     `json:"sampleTime"`
	Capturing      bool      `json:"capturing"`
	Speaking       bool      `json:"speaking"`
	Volume         float32   `json:"volume"`
	RMS            float32   `json:"rms"`
	AveragePowerDB float64   `json:"averagePowerDb"`
	PeakPowerDB    float64   `json:"peakPowerDb"`
	Peak           *PeakInfo `json:"peak,omitempty"`
	Dropped        uint64    `json:"dropped"`
}

// PeakInfo locates the loudest chunk of the block.
type PeakInfo struct {
	Amplitude     float32 `json:"amplitude"`
	FramePosition int     `json:"framePosition"`
	Time          float64 `json:"time"`
}

// NewLevelMessage converts a snapshot for JSON consumers. Without a peak
// the peak field is omitted.
func NewLevelMessage(s *audio.Snapshot) LevelMessage {
	msg := LevelMessage{
		Sequence:       s.Sequence,
		Time:           s.Timestamp.HostTime,
		SampleTime:     s.Timestamp.SampleTime,
		Capturing:      s.Capturing,
		Speaking:       s.Speaking,
		Volume:         s.Volume,
		RMS:            s.RMS,
		AveragePowerDB: s.AveragePowerDB,
		PeakPowerDB:    s.PeakPowerDB,
		Dropped:        s.Dropped,
	}
	if s.HasPeak {
		msg.Peak = &PeakInfo{
			Amplitude:     s.Peak.Amplitude,
			FramePosition: s.Peak.FramePosition,
			Time:          s.Peak.Time,
		}
	}
	return msg
}
