// SPDX-License-Identifier: MIT
package analysis

// SpeechDetector decides whether someone is speaking from the gated envelope
// volume of consecutive blocks. A non-zero volume means the block rose above
// the noise floor. Hysteresis keeps short pauses between words from ending
// an utterance.
type SpeechDetector struct {
	startBlocks int // Consecutive active blocks needed to start speech.
	holdBlocks  int // Consecutive silent blocks needed to end speech.

	speaking     bool
	activeCount  int
	silenceCount int
}

// NewSpeechDetector returns a detector in the silent state. Counts below 1
// are raised to 1.
func NewSpeechDetector(startBlocks, holdBlocks int) *SpeechDetector {
	return &SpeechDetector{
		startBlocks: max(1, startBlocks),
		holdBlocks:  max(1, holdBlocks),
	}
}

// Update feeds the volume of the next block and returns the speaking state.
func (d *SpeechDetector) Update(volume float32) bool {
	active := volume > 0

	if d.speaking {
		if active {
			d.silenceCount = 0
			return true
		}
		d.silenceCount++
		if d.silenceCount >= d.holdBlocks {
			d.speaking = false
			d.silenceCount = 0
		}
		return d.speaking
	}

	if !active {
		d.activeCount = 0
		return false
	}
	d.activeCount++
	if d.activeCount >= d.startBlocks {
		d.speaking = true
		d.activeCount = 0
	}
	return d.speaking
}

// Speaking returns the current state.
func (d *SpeechDetector) Speaking() bool {
	return d.speaking
}

// Reset returns the detector to the silent state.
func (d *SpeechDetector) Reset() {
	d.speaking = false
	d.activeCount = 0
	d.silenceCount = 0
}
