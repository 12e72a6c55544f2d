// SPDX-License-Identifier: MIT
package audio

import (
	"time"

	"micpipe/internal/analysis"
)

// Timestamp locates a block in the capture stream.
type Timestamp struct {
	SampleTime int64     // Target-rate frame index of the first frame since the stream started.
	HostTime   time.Time // Wall clock when the block was completed.
}

// Snapshot is the latest published measurement of a capture session. A
// published Snapshot is never modified; readers may keep it as long as
// they like.
type Snapshot struct {
	Buffer    *analysis.SampleBuffer // Last processed block, nil when idle.
	Timestamp Timestamp

	Volume         float32 // Gated envelope volume in [0, 1].
	Peak           analysis.Peak
	HasPeak        bool
	RMS            float32
	AveragePowerDB float64
	PeakPowerDB    float64
	Speaking       bool

	Capturing bool
	Sequence  uint64 // Incremented for every published snapshot.
	Dropped   uint64 // Blocks discarded because processing fell behind.
}

func idleSnapshot(sequence, dropped uint64) *Snapshot {
	return &Snapshot{
		AveragePowerDB: analysis.MinPowerDB,
		PeakPowerDB:    analysis.MinPowerDB,
		Sequence:       sequence,
		Dropped:        dropped,
	}
}

func measuredSnapshot(b Block, m analysis.Measurement, sequence, dropped uint64) *Snapshot {
	return &Snapshot{
		Buffer:         b.Buffer,
		Timestamp:      b.Timestamp,
		Volume:         m.Volume,
		Peak:           m.Peak,
		HasPeak:        m.HasPeak,
		RMS:            m.RMS,
		AveragePowerDB: m.AveragePowerDB,
		PeakPowerDB:    m.PeakPowerDB,
		Speaking:       m.Speaking,
		Capturing:      true,
		Sequence:       sequence,
		Dropped:        dropped,
	}
}
