// SPDX-License-Identifier: MIT
/*
Package audio implements the real-time microphone capture engine:
- PortAudio input stream delivering native float32 frames
- Format conversion to 48 kHz mono blocks on the callback thread
- Bounded drop-oldest handoff to a single processing goroutine
- Lock-free snapshot publication for pollers

Thread Safety:
- The callback never takes a lock shared with consumers and performs no I/O
- The tap is detached atomically before the stream is stopped
- Snapshots are immutable and published with atomic.Pointer
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"micpipe/internal/analysis"
	"micpipe/internal/config"
	applog "micpipe/internal/log"

	"github.com/gordonklaus/portaudio"
)

var (
	// ErrPermissionDenied is returned by Start when microphone access is
	// refused. The engine stays idle and does not ask again on its own.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrGraphConfiguration is returned by Start when the device, stream or
	// converter cannot be set up. The caller may retry.
	ErrGraphConfiguration = errors.New("audio graph configuration failed")
	// ErrEngineBusy is returned by Start when the engine is not idle.
	ErrEngineBusy = errors.New("capture engine is busy")
)

// State is the lifecycle state of an Engine.
type State int32

const (
	StateIdle State = iota
	StateRequestingPermission
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestingPermission:
		return "requesting-permission"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Observer is notified on the processing goroutine after every published
// snapshot. It must return quickly.
type Observer interface {
	Observe(s *Snapshot)
}

// tap is the per-session state reachable from the audio callback.
type tap struct {
	converter *FormatConverter
	queue     *BlockQueue
	emit      EmitFunc
	errors    atomic.Uint64
}

type Engine struct {
	config *config.Config
	log    *applog.Logger

	authorizer   Authorizer
	openStream   StreamOpener
	lookupDevice func(deviceID int) (*portaudio.DeviceInfo, error)
	observers    []Observer

	// Start and Stop are serialized; state is also read lock-free.
	mu    sync.Mutex
	state atomic.Int32

	tap      atomic.Pointer[tap]
	stream   Stream
	analyzer *analysis.Analyzer
	wg       sync.WaitGroup

	// Noise gate, applied by the processing goroutine per block.
	gateEnabled atomic.Bool
	noiseFloor  atomic.Uint32 // math.Float32bits

	snapshot atomic.Pointer[Snapshot]
	sequence uint64 // Owned by the processing goroutine while running.
	dropped  uint64 // Carried across sessions.
}

// Option configures an Engine.
type Option func(*Engine)

// WithAuthorizer replaces the authorizer derived from the configuration.
func WithAuthorizer(a Authorizer) Option {
	return func(e *Engine) { e.authorizer = a }
}

// WithStreamOpener replaces the PortAudio stream opener.
func WithStreamOpener(open StreamOpener) Option {
	return func(e *Engine) { e.openStream = open }
}

// WithDeviceLookup replaces InputDevice for resolving the configured device.
func WithDeviceLookup(lookup func(deviceID int) (*portaudio.DeviceInfo, error)) Option {
	return func(e *Engine) { e.lookupDevice = lookup }
}

// WithObserver registers an observer for every published snapshot.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// NewEngine returns an idle engine. Nothing touches the hardware until Start.
func NewEngine(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		config:       cfg,
		log:          applog.Named("Capture"),
		authorizer:   AuthorizerFromConfig(cfg.Audio),
		openStream:   OpenPortAudioStream,
		lookupDevice: InputDevice,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.gateEnabled.Store(true)
	e.setNoiseFloor(float32(cfg.Analysis.NoiseFloor))
	e.snapshot.Store(idleSnapshot(0, 0))
	return e
}

// Start requests microphone access, builds the capture graph and starts
// the hardware stream. On error the engine is idle again.
func (e *Engine) Start(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRequestingPermission)) {
		return ErrEngineBusy
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	granted, err := e.authorizer.RequestAccess(ctx)
	if err != nil {
		e.state.Store(int32(StateIdle))
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	if !granted {
		e.state.Store(int32(StateIdle))
		e.log.Warnf("microphone access denied")
		return ErrPermissionDenied
	}

	if err := e.startGraph(); err != nil {
		e.state.Store(int32(StateIdle))
		e.log.Errorf("failed to start capture: %v", err)
		return fmt.Errorf("%w: %w", ErrGraphConfiguration, err)
	}

	e.state.Store(int32(StateRunning))
	return nil
}

func (e *Engine) startGraph() error {
	audioCfg := e.config.Audio

	device, err := e.lookupDevice(audioCfg.InputDevice)
	if err != nil {
		return fmt.Errorf("input device %d: %w", audioCfg.InputDevice, err)
	}
	if device == nil || device.MaxInputChannels < 1 {
		return fmt.Errorf("input device %d has no input channels", audioCfg.InputDevice)
	}

	channels := audioCfg.InputChannels
	if channels == 0 {
		channels = min(device.MaxInputChannels, 2)
	}
	if channels > device.MaxInputChannels {
		return fmt.Errorf("device %q supports %d input channels, %d requested",
			device.Name, device.MaxInputChannels, channels)
	}

	native := Format{SampleRate: device.DefaultSampleRate, Channels: channels}
	target := Format{SampleRate: audioCfg.TargetSampleRate, Channels: 1}
	converter, err := NewFormatConverter(native, target, audioCfg.BlockSize)
	if err != nil {
		return err
	}

	latency := device.DefaultHighInputLatency
	if audioCfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	e.analyzer = newAnalyzer(e.config.Analysis)
	queue := NewBlockQueue(e.config.Analysis.QueueDepth)
	t := &tap{converter: converter, queue: queue}
	t.emit = func(buf *analysis.SampleBuffer, ts Timestamp) {
		queue.Push(Block{Buffer: buf, Timestamp: ts})
	}

	e.snapshot.Store(&Snapshot{
		AveragePowerDB: analysis.MinPowerDB,
		PeakPowerDB:    analysis.MinPowerDB,
		Capturing:      true,
		Sequence:       e.sequence,
		Dropped:        e.dropped,
	})

	e.wg.Add(1)
	go e.process(queue, e.analyzer)
	e.tap.Store(t)

	stream, err := e.openStream(StreamConfig{
		Device:          device,
		Channels:        channels,
		SampleRate:      native.SampleRate,
		FramesPerBuffer: audioCfg.FramesPerBuffer,
		Latency:         latency,
	}, e.processInputStream)
	if err != nil {
		e.teardown(t)
		return fmt.Errorf("open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		e.teardown(t)
		return fmt.Errorf("start stream: %w", err)
	}
	e.stream = stream

	e.log.Infof("capturing from %q at %s, %d-frame blocks at %s",
		device.Name, native, audioCfg.BlockSize, target)
	return nil
}

func newAnalyzer(a config.AnalysisConfig) *analysis.Analyzer {
	follower := analysis.NewEnvelopeFollower(
		analysis.WithAttack(float32(a.Attack)),
		analysis.WithDecay(float32(a.Decay)),
		analysis.WithNoiseFloor(float32(a.NoiseFloor)),
	)
	return analysis.NewAnalyzer(follower, analysis.NewSpeechDetector(a.SpeechStartBlocks, a.SpeechHoldBlocks))
}

// processInputStream is the audio callback.
// Performance Critical:
// - Runs on the PortAudio thread
// - No locks, no I/O, no logging
// - Allocates only inside the format converter
func (e *Engine) processInputStream(in []float32) {
	t := e.tap.Load()
	if t == nil {
		return
	}
	if err := t.converter.Write(in, t.emit); err != nil {
		t.errors.Add(1)
	}
}

// process measures blocks in arrival order until the queue is closed.
func (e *Engine) process(queue *BlockQueue, analyzer *analysis.Analyzer) {
	defer e.wg.Done()

	for block := range queue.Blocks() {
		analyzer.SetNoiseFloor(e.effectiveNoiseFloor())
		m := analyzer.Process(block.Buffer)

		e.sequence++
		s := measuredSnapshot(block, m, e.sequence, e.dropped+queue.Dropped())
		e.snapshot.Store(s)

		for _, o := range e.observers {
			o.Observe(s)
		}
	}
}

// Stop detaches the tap, stops the hardware stream, drains the processing
// goroutine, resets the stateful stages and publishes an idle snapshot.
// Once Stop returns no callback work is performed. Stopping an idle engine
// is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if State(e.state.Load()) != StateRunning {
		return nil
	}

	t := e.tap.Swap(nil)

	var errs []error
	if e.stream != nil {
		if err := e.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop stream: %w", err))
		}
		if err := e.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stream: %w", err))
		}
		e.stream = nil
	}

	e.teardown(t)
	if n := t.errors.Load(); n > 0 {
		e.log.Warnf("%d callback buffers failed conversion", n)
	}

	e.state.Store(int32(StateIdle))
	e.log.Infof("capture stopped after %d blocks (%d dropped)", e.sequence, e.dropped)
	return errors.Join(errs...)
}

// teardown closes the queue of t, waits for the processing goroutine and
// publishes the idle snapshot. The tap must already be unreachable from the
// callback.
func (e *Engine) teardown(t *tap) {
	e.tap.CompareAndSwap(t, nil)
	t.queue.Close()
	e.wg.Wait()

	e.dropped += t.queue.Dropped()
	e.analyzer.Reset()
	e.sequence++
	e.snapshot.Store(idleSnapshot(e.sequence, e.dropped))
}

// Snapshot returns the latest published snapshot. It never returns nil.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// IsCapturing reports whether the engine is running.
func (e *Engine) IsCapturing() bool {
	return e.State() == StateRunning
}

// Volume returns the gated envelope volume of the latest block.
func (e *Engine) Volume() float32 {
	return e.Snapshot().Volume
}
