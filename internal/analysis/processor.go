// SPDX-License-Identifier: MIT
package analysis

// Measurement is the result of running one block through every stage.
type Measurement struct {
	Volume         float32 // Gated envelope volume, 0 below the noise floor.
	Peak           Peak
	HasPeak        bool
	RMS            float32
	AveragePowerDB float64 // RMS in dBFS.
	PeakPowerDB    float64 // Peak amplitude in dBFS, MinPowerDB without a peak.
	Speaking       bool
}

// Analyzer runs the measurement stages over consecutive blocks of one stream.
// It owns stateful stages, so it must see blocks in arrival order from a
// single goroutine.
type Analyzer struct {
	follower *EnvelopeFollower
	speech   *SpeechDetector
}

// NewAnalyzer combines a follower and a speech detector. Nil arguments get
// the defaults.
func NewAnalyzer(follower *EnvelopeFollower, speech *SpeechDetector) *Analyzer {
	if follower == nil {
		follower = NewEnvelopeFollower()
	}
	if speech == nil {
		speech = NewSpeechDetector(1, 1)
	}
	return &Analyzer{follower: follower, speech: speech}
}

// Process measures buf. The envelope follower sees the whole block.
func (a *Analyzer) Process(buf *SampleBuffer) Measurement {
	var m Measurement
	if buf != nil {
		m.Volume = a.follower.Process(buf, buf.FrameLength)
	}
	m.Peak, m.HasPeak = ScanPeak(buf)
	m.RMS = RMS(buf)
	m.AveragePowerDB = PowerDB(m.RMS)
	m.PeakPowerDB = MinPowerDB
	if m.HasPeak {
		m.PeakPowerDB = PowerDB(m.Peak.Amplitude)
	}
	m.Speaking = a.speech.Update(m.Volume)
	return m
}

// SetNoiseFloor forwards the gate level to the envelope follower.
func (a *Analyzer) SetNoiseFloor(level float32) {
	a.follower.SetNoiseFloor(level)
}

// Reset clears all per-session state.
func (a *Analyzer) Reset() {
	a.follower.Reset()
	a.speech.Reset()
}
