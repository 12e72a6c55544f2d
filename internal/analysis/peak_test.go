// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"micpipe/pkg/utils"
)

func monoBuffer(samples []float32) *SampleBuffer {
	buf := NewSampleBuffer(testSampleRate, 1, len(samples))
	copy(buf.Channels[0], samples)
	return buf
}

func TestScanPeakNoData(t *testing.T) {
	tests := []struct {
		name string
		buf  *SampleBuffer
	}{
		{"Nil buffer", nil},
		{"Zero frames", NewSampleBuffer(testSampleRate, 1, 0)},
		{"No channels", &SampleBuffer{SampleRate: testSampleRate, FrameLength: 10}},
		{"Short channel", &SampleBuffer{SampleRate: testSampleRate, FrameLength: 1024, Channels: [][]float32{make([]float32, 10)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peak, ok := ScanPeak(tt.buf)
			if ok {
				t.Error("expected no peak")
			}
			if peak != (Peak{}) {
				t.Errorf("peak = %+v, want zero value", peak)
			}
		})
	}
}

func TestScanPeakShorterThanChunk(t *testing.T) {
	for _, frames := range []int{1, 100, 511} {
		buf := monoBuffer(utils.GenerateConstant(frames, 0.9))
		peak, ok := ScanPeak(buf)
		if ok {
			t.Errorf("%d frames: expected sentinel, got %+v", frames, peak)
		}
		if peak.Amplitude != MinPeakAmplitude {
			t.Errorf("%d frames: amplitude = %f, want sentinel %f", frames, peak.Amplitude, MinPeakAmplitude)
		}
	}
}

func TestScanPeakWithinFullChunks(t *testing.T) {
	for chunks := 1; chunks <= 16; chunks++ {
		frames := chunks * PeakChunkSize
		buf := monoBuffer(utils.GenerateSineWave(frames, testSampleRate, 97, 0.3))
		// Put the loudest sample in the last full chunk.
		buf.Channels[0][frames-1] = -0.95

		peak, ok := ScanPeak(buf)
		if !ok {
			t.Fatalf("%d chunks: expected a peak", chunks)
		}
		if peak.FramePosition >= frames {
			t.Errorf("%d chunks: position %d beyond %d", chunks, peak.FramePosition, frames)
		}
		if peak.FramePosition%PeakChunkSize != 0 {
			t.Errorf("%d chunks: position %d is not a chunk start", chunks, peak.FramePosition)
		}
		if peak.FramePosition != frames-PeakChunkSize || peak.Amplitude != 0.95 {
			t.Errorf("%d chunks: got %+v, want last chunk at 0.95", chunks, peak)
		}
	}
}

func TestScanPeakSineBurst(t *testing.T) {
	buf := monoBuffer(utils.GenerateSineBurst(8192, 1000, testSampleRate, 440, 0.5))

	peak, ok := ScanPeak(buf)
	if !ok {
		t.Fatal("expected a peak")
	}
	if peak.FramePosition < 0 || peak.FramePosition > PeakChunkSize*(1000/PeakChunkSize) {
		t.Errorf("position = %d, want within [0, %d]", peak.FramePosition, PeakChunkSize*(1000/PeakChunkSize))
	}
	if math.Abs(float64(peak.Amplitude-0.5)) > 0.001 {
		t.Errorf("amplitude = %f, want ≈0.5", peak.Amplitude)
	}
	if want := float64(peak.FramePosition) / testSampleRate; peak.Time != want {
		t.Errorf("time = %f, want %f", peak.Time, want)
	}
}

func TestScanPeakDropsPartialChunk(t *testing.T) {
	samples := utils.GenerateConstant(1000, 0.1)
	samples[700] = 1.0 // Inside the partial second chunk.

	peak, ok := ScanPeak(monoBuffer(samples))
	if !ok {
		t.Fatal("expected a peak")
	}
	if peak.FramePosition != 0 || peak.Amplitude != 0.1 {
		t.Errorf("peak = %+v, want first chunk at 0.1", peak)
	}
}

func TestScanPeakFirstChunkWinsTie(t *testing.T) {
	samples := make([]float32, 2*PeakChunkSize)
	samples[10] = 0.8
	samples[PeakChunkSize+10] = -0.8

	peak, _ := ScanPeak(monoBuffer(samples))
	if peak.FramePosition != 0 {
		t.Errorf("position = %d, want 0 for equal chunks", peak.FramePosition)
	}
}

func TestScanPeakAcrossChannels(t *testing.T) {
	buf := NewSampleBuffer(testSampleRate, 2, 8*PeakChunkSize)
	buf.Channels[0][100] = 0.4
	buf.Channels[1][3*PeakChunkSize+7] = -0.7

	peak, ok := ScanPeak(buf)
	if !ok {
		t.Fatal("expected a peak")
	}
	if peak.FramePosition != 3*PeakChunkSize || peak.Amplitude != 0.7 {
		t.Errorf("peak = %+v, want chunk 3 at 0.7", peak)
	}
	if want := float64(3*PeakChunkSize) / testSampleRate; peak.Time != want {
		t.Errorf("time = %f, want %f", peak.Time, want)
	}
}

func TestScanPeakNoAllocs(t *testing.T) {
	buf := monoBuffer(utils.GenerateSineWave(8192, testSampleRate, 440, 0.5))
	allocs := testing.AllocsPerRun(100, func() {
		_, _ = ScanPeak(buf)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in ScanPeak, got %.1f", allocs)
	}
}

func BenchmarkScanPeak(b *testing.B) {
	buf := monoBuffer(utils.GenerateSineWave(8192, testSampleRate, 440, 0.5))
	b.ReportAllocs()
	for b.Loop() {
		_, _ = ScanPeak(buf)
	}
}
