// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"micpipe/internal/config"
	"micpipe/pkg/utils"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV encodes 16-bit PCM frames (interleaved) into a temp file.
func writeTestWAV(t *testing.T, sampleRate, channels int, samples []float32) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "input.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Round(float64(s) * 32767))
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func TestAnalyzeWAV(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		channels   int
		frames     int
		wantBlocks int
		tolerance  time.Duration
	}{
		{"Mono at target rate", 48000, 1, 48000, 6, time.Millisecond},
		{"Stereo at target rate", 48000, 2, 48000, 6, time.Millisecond},
		{"Mono resampled", 44100, 1, 44100, 6, 20 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sine := utils.GenerateSineWave(tt.frames, float64(tt.sampleRate), 440, 0.5)
			samples := sine
			if tt.channels == 2 {
				samples = utils.Interleave(sine, sine)
			}
			path := writeTestWAV(t, tt.sampleRate, tt.channels, samples)

			f, err := os.Open(path)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer f.Close()

			cfg := config.Default()
			var snapshots []*Snapshot
			report, err := AnalyzeWAV(f, &cfg, func(s *Snapshot) { snapshots = append(snapshots, s) })
			if err != nil {
				t.Fatalf("AnalyzeWAV: %v", err)
			}

			if report.Native.Channels != tt.channels || report.Native.SampleRate != float64(tt.sampleRate) {
				t.Errorf("Native = %s, want %d Hz/%dch", report.Native, tt.sampleRate, tt.channels)
			}
			if report.Blocks != tt.wantBlocks || len(snapshots) != tt.wantBlocks {
				t.Errorf("Blocks = %d, snapshots = %d, want %d", report.Blocks, len(snapshots), tt.wantBlocks)
			}
			if diff := report.Duration - time.Second; diff < -tt.tolerance || diff > tt.tolerance {
				t.Errorf("Duration = %v, want ~1s", report.Duration)
			}
			if !report.HasPeak || math.Abs(float64(report.Peak.Amplitude)-0.5) > 0.03 {
				t.Errorf("Peak = %+v (ok=%v), want amplitude ~0.5", report.Peak, report.HasPeak)
			}
			if report.MaxVolume <= 0 {
				t.Errorf("MaxVolume = %v, want > 0", report.MaxVolume)
			}
			if report.SpeechBlocks == 0 {
				t.Error("SpeechBlocks = 0, want a sustained tone to count as speech")
			}

			for i, s := range snapshots {
				if s.Sequence != uint64(i+1) {
					t.Errorf("snapshot %d Sequence = %d", i, s.Sequence)
				}
				if !s.Capturing {
					t.Errorf("snapshot %d not marked capturing", i)
				}
			}
			last := snapshots[len(snapshots)-1]
			if last.Buffer.FrameLength >= cfg.Audio.BlockSize {
				t.Errorf("last block has %d frames, want the short flushed tail", last.Buffer.FrameLength)
			}
		})
	}
}

func TestAnalyzeWAVSilence(t *testing.T) {
	path := writeTestWAV(t, 48000, 1, utils.GenerateConstant(16384, 0))
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	cfg := config.Default()
	report, err := AnalyzeWAV(f, &cfg, nil)
	if err != nil {
		t.Fatalf("AnalyzeWAV: %v", err)
	}
	if report.Blocks != 2 {
		t.Errorf("Blocks = %d, want 2", report.Blocks)
	}
	if report.MaxVolume != 0 || report.SpeechBlocks != 0 {
		t.Errorf("silence measured volume %v, %d speech blocks", report.MaxVolume, report.SpeechBlocks)
	}
}

func TestAnalyzeWAVInvalid(t *testing.T) {
	cfg := config.Default()
	if _, err := AnalyzeWAV(bytes.NewReader([]byte("not a wav file at all")), &cfg, nil); err == nil {
		t.Error("expected error for non-WAV input")
	}
}
