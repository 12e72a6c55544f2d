// SPDX-License-Identifier: MIT
package analysis

const (
	// DefaultAttack is the per-sample smoothing coefficient while the
	// rectified signal is above the envelope.
	DefaultAttack float32 = 0.16
	// DefaultDecay is the per-sample smoothing coefficient while the
	// rectified signal is at or below the envelope. About 53x slower than
	// DefaultAttack, giving a peak-holding, slow-release meter.
	DefaultDecay float32 = 0.003
	// DefaultNoiseFloor gates microphone self-noise: block volumes at or
	// below it are reported as 0.
	DefaultNoiseFloor float32 = 0.015
)

// EnvelopeFollower converts samples into a slowly varying volume estimate.
// Its state carries across calls so consecutive blocks of one stream must be
// processed in arrival order. It is not safe for concurrent use; a capture
// session owns exactly one.
type EnvelopeFollower struct {
	attack     float32
	decay      float32
	noiseFloor float32
	state      float32
}

// EnvelopeOption configures an EnvelopeFollower.
type EnvelopeOption func(*EnvelopeFollower)

// WithAttack overrides the attack coefficient.
func WithAttack(c float32) EnvelopeOption {
	return func(f *EnvelopeFollower) { f.attack = c }
}

// WithDecay overrides the decay coefficient.
func WithDecay(c float32) EnvelopeOption {
	return func(f *EnvelopeFollower) { f.decay = c }
}

// WithNoiseFloor overrides the noise floor gate.
func WithNoiseFloor(level float32) EnvelopeOption {
	return func(f *EnvelopeFollower) { f.noiseFloor = level }
}

// NewEnvelopeFollower returns a follower at level 0 with the default
// coefficients unless overridden.
func NewEnvelopeFollower(opts ...EnvelopeOption) *EnvelopeFollower {
	f := &EnvelopeFollower{
		attack:     DefaultAttack,
		decay:      DefaultDecay,
		noiseFloor: DefaultNoiseFloor,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Process runs the first channel of buf through the follower, at most
// bufferSize samples, and returns the highest envelope level reached during
// the block if it exceeds the noise floor, otherwise 0.
func (f *EnvelopeFollower) Process(buf *SampleBuffer, bufferSize int) float32 {
	ch := buf.Channel(0)
	n := min(bufferSize, len(ch))
	if n <= 0 {
		return 0
	}

	state := f.state
	var maxState float32
	for _, sample := range ch[:n] {
		rectified := sample
		if rectified < 0 {
			rectified = -rectified
		}
		if rectified > state {
			state += f.attack * (rectified - state)
		} else {
			state += f.decay * (rectified - state)
		}
		if state > maxState {
			maxState = state
		}
	}
	f.state = state

	if maxState > f.noiseFloor {
		return maxState
	}
	return 0
}

// Level returns the current envelope state.
func (f *EnvelopeFollower) Level() float32 {
	return f.state
}

// SetNoiseFloor changes the gate level for subsequent blocks. Negative
// levels are treated as 0.
func (f *EnvelopeFollower) SetNoiseFloor(level float32) {
	f.noiseFloor = max(0, level)
}

// NoiseFloor returns the current gate level.
func (f *EnvelopeFollower) NoiseFloor() float32 {
	return f.noiseFloor
}

// Reset returns the envelope to 0. Called when a capture session stops.
func (f *EnvelopeFollower) Reset() {
	f.state = 0
}
