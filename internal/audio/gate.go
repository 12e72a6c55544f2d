// SPDX-License-Identifier: MIT
package audio

import "math"

// The noise gate is the envelope follower's noise floor. Changes take effect
// from the next processed block.

func (e *Engine) EnableGate() {
	e.gateEnabled.Store(true)
}

func (e *Engine) DisableGate() {
	e.gateEnabled.Store(false)
}

// GateEnabled reports whether volumes below the threshold are suppressed.
func (e *Engine) GateEnabled() bool {
	return e.gateEnabled.Load()
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	e.setNoiseFloor(float32(threshold))
}

// GetGateThreshold returns the current noise gate threshold as a float64.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) GetGateThreshold() float64 {
	return float64(math.Float32frombits(e.noiseFloor.Load()))
}

func (e *Engine) setNoiseFloor(level float32) {
	e.noiseFloor.Store(math.Float32bits(level))
}

// effectiveNoiseFloor is the level handed to the analyzer for the next block.
func (e *Engine) effectiveNoiseFloor() float32 {
	if !e.gateEnabled.Load() {
		return 0
	}
	return math.Float32frombits(e.noiseFloor.Load())
}
