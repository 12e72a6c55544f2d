// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"micpipe/internal/analysis"
	"micpipe/internal/audio"
)

// staticSource publishes a fixed snapshot with an increasing sequence.
type staticSource struct {
	seq atomic.Uint64
}

func (s *staticSource) Snapshot() *audio.Snapshot {
	return testSnapshot(s.seq.Add(1))
}

func testSnapshot(seq uint64) *audio.Snapshot {
	return &audio.Snapshot{
		Timestamp:      audio.Timestamp{SampleTime: 8192, HostTime: time.Unix(1700000000, 0).UTC()},
		Volume:         0.42,
		Peak:           analysis.Peak{Time: 0.0213, FramePosition: 1024, Amplitude: 0.8},
		HasPeak:        true,
		RMS:            0.2,
		AveragePowerDB: -13.98,
		PeakPowerDB:    -1.94,
		Speaking:       true,
		Capturing:      true,
		Sequence:       seq,
	}
}

func TestNewLevelMessage(t *testing.T) {
	msg := NewLevelMessage(testSnapshot(7))

	if msg.Sequence != 7 || msg.SampleTime != 8192 || !msg.Capturing || !msg.Speaking {
		t.Errorf("message = %+v", msg)
	}
	if msg.Peak == nil || msg.Peak.FramePosition != 1024 || msg.Peak.Amplitude != 0.8 {
		t.Errorf("peak = %+v", msg.Peak)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, key := range []string{`"seq":7`, `"volume":0.42`, `"framePosition":1024`, `"speaking":true`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON %s missing %s", data, key)
		}
	}
}

func TestNewLevelMessageWithoutPeak(t *testing.T) {
	s := testSnapshot(1)
	s.HasPeak = false

	data, err := json.Marshal(NewLevelMessage(s))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), `"peak"`) {
		t.Errorf("JSON %s should omit the peak", data)
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	s := testSnapshot(1)

	if err := lt.Send(s); err != nil {
		t.Errorf("Send(snapshot) = %v", err)
	}
	if !lt.speaking {
		t.Error("transport should track the speaking state")
	}
	if err := lt.Send("not a snapshot"); err != nil {
		t.Errorf("Send(string) = %v", err)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
