// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"time"

	"micpipe/internal/analysis"
	"micpipe/internal/config"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// fileChunkFrames is how many native frames are decoded per read.
const fileChunkFrames = 4096

// FileReport summarises an offline analysis run.
type FileReport struct {
	Native        Format
	BitDepth      int
	Duration      time.Duration // Duration of the converted audio.
	Blocks        int
	SpeechBlocks  int
	MaxVolume     float32
	MaxRMS        float32
	Peak          analysis.Peak // Time and FramePosition relative to the start of the file.
	HasPeak       bool
	DroppedFrames int // Target-rate frames in a final block too short for a peak scan.
}

// AnalyzeWAV runs a WAV file through the same conversion and measurement
// stages as live capture. Every measured block is passed to fn, which may
// be nil. The decoder reads the file in chunks, so files of any length use
// bounded memory.
func AnalyzeWAV(r io.ReadSeeker, cfg *config.Config, fn func(*Snapshot)) (FileReport, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return FileReport{}, fmt.Errorf("not a valid WAV file")
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return FileReport{}, fmt.Errorf("failed to read WAV header: %w", err)
	}

	report := FileReport{
		Native:   Format{SampleRate: float64(dec.SampleRate), Channels: int(dec.NumChans)},
		BitDepth: int(dec.BitDepth),
	}
	target := Format{SampleRate: cfg.Audio.TargetSampleRate, Channels: 1}
	converter, err := NewFormatConverter(report.Native, target, cfg.Audio.BlockSize)
	if err != nil {
		return report, err
	}

	analyzer := newAnalyzer(cfg.Analysis)

	var sequence uint64
	measure := func(buf *analysis.SampleBuffer, ts Timestamp) {
		m := analyzer.Process(buf)
		sequence++
		report.Blocks++
		report.Duration += buf.Duration()
		if m.Speaking {
			report.SpeechBlocks++
		}
		report.MaxVolume = max(report.MaxVolume, m.Volume)
		report.MaxRMS = max(report.MaxRMS, m.RMS)
		if m.HasPeak && (!report.HasPeak || m.Peak.Amplitude > report.Peak.Amplitude) {
			report.Peak = analysis.Peak{
				Amplitude:     m.Peak.Amplitude,
				FramePosition: int(ts.SampleTime) + m.Peak.FramePosition,
				Time:          float64(ts.SampleTime)/buf.SampleRate + m.Peak.Time,
			}
			report.HasPeak = true
		}
		if !m.HasPeak {
			report.DroppedFrames += buf.FrameLength
		}
		if fn != nil {
			fn(measuredSnapshot(Block{Buffer: buf, Timestamp: ts}, m, sequence, 0))
		}
	}

	chunk := &goaudio.IntBuffer{
		Format:         dec.Format(),
		Data:           make([]int, fileChunkFrames*report.Native.Channels),
		SourceBitDepth: report.BitDepth,
	}
	data := chunk.Data
	for {
		chunk.Data = data
		n, err := dec.PCMBuffer(chunk)
		if err != nil {
			return report, fmt.Errorf("failed to decode PCM data: %w", err)
		}
		if n == 0 {
			break
		}
		chunk.Data = data[:n]

		buf, err := analysis.FromIntBuffer(chunk)
		if err != nil {
			return report, err
		}
		if err := converter.WriteBuffer(buf, measure); err != nil {
			return report, err
		}
	}

	if err := converter.Flush(measure); err != nil {
		return report, err
	}
	return report, nil
}
