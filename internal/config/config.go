// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	applog "micpipe/internal/log"
	"micpipe/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Defaults and limits for the capture pipeline.
const (
	DefaultInputDevice       = MinDeviceID // System default input device.
	DefaultTargetSampleRate  = 48000       // Processing format consumed by every measurement stage.
	DefaultInputChannels     = 0           // 0 opens the device with up to two native channels.
	DefaultFramesPerBuffer   = 1024        // Hardware callback size in native frames.
	DefaultBlockSize         = 8192        // Frames per processed block at the target rate.
	DefaultMicrophoneAccess  = AccessGranted
	DefaultAttack            = 0.16
	DefaultDecay             = 0.003
	DefaultNoiseFloor        = 0.015
	DefaultSpeechStartBlocks = 1
	DefaultSpeechHoldBlocks  = 3
	DefaultQueueDepth        = 8
	DefaultPollInterval      = 100 * time.Millisecond // 6/60 s UI cadence.
	DefaultHTTPAddr          = ":8080"
	DefaultUDPTargetAddress  = "127.0.0.1:9090"

	MinDeviceID     = -1
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MinBlockSize    = 512 // One peak-scan chunk.
	MaxBlockSize    = 65536
	MaxBufferFrames = 8192
	MaxChannels     = 32

	AccessGranted = "granted"
	AccessDenied  = "denied"
)

// Config is the application configuration, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // debug, info, warn, error.
	TUI       bool            `yaml:"tui"`       // Run the terminal level meter instead of headless.
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	InputDevice      int     `yaml:"input_device"`       // PortAudio device index (-1 for default).
	InputChannels    int     `yaml:"input_channels"`     // Native channels to open (0 = device default, max 2).
	TargetSampleRate float64 `yaml:"target_sample_rate"` // Processing rate in Hz; output is always mono.
	FramesPerBuffer  int     `yaml:"frames_per_buffer"`  // Native frames per hardware callback.
	BlockSize        int     `yaml:"block_size"`         // Target-rate frames per measured block.
	LowLatency       bool    `yaml:"low_latency"`        // Request the device's low input latency.
	MicrophoneAccess string  `yaml:"microphone_access"`  // granted or denied.
}

// AnalysisConfig holds envelope follower and speech gate settings.
type AnalysisConfig struct {
	Attack            float64 `yaml:"attack"`              // Envelope attack coefficient.
	Decay             float64 `yaml:"decay"`               // Envelope decay coefficient.
	NoiseFloor        float64 `yaml:"noise_floor"`         // Volumes at or below this report 0.
	SpeechStartBlocks int     `yaml:"speech_start_blocks"` // Active blocks before speech starts.
	SpeechHoldBlocks  int     `yaml:"speech_hold_blocks"`  // Silent blocks before speech ends.
	QueueDepth        int     `yaml:"queue_depth"`         // Blocks buffered between callback and processing.
}

// TransportConfig holds snapshot publishing settings.
type TransportConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"`      // Snapshot polling cadence for all consumers.
	HTTPAddr         string        `yaml:"http_addr"`          // Listen address for /levels and /metrics.
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Broadcast snapshots on /levels.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send binary snapshot packets.
	UDPTargetAddress string        `yaml:"udp_target_address"` // host:port for UDP packets.
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // Serve /metrics on transport.http_addr.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:      DefaultInputDevice,
			InputChannels:    DefaultInputChannels,
			TargetSampleRate: DefaultTargetSampleRate,
			FramesPerBuffer:  DefaultFramesPerBuffer,
			BlockSize:        DefaultBlockSize,
			MicrophoneAccess: DefaultMicrophoneAccess,
		},
		Analysis: AnalysisConfig{
			Attack:            DefaultAttack,
			Decay:             DefaultDecay,
			NoiseFloor:        DefaultNoiseFloor,
			SpeechStartBlocks: DefaultSpeechStartBlocks,
			SpeechHoldBlocks:  DefaultSpeechHoldBlocks,
			QueueDepth:        DefaultQueueDepth,
		},
		Transport: TransportConfig{
			PollInterval:     DefaultPollInterval,
			HTTPAddr:         DefaultHTTPAddr,
			UDPTargetAddress: DefaultUDPTargetAddress,
		},
	}
}

// LoadConfig loads configuration from a YAML file. If path is empty it looks
// for config.yaml in the working directory and falls back to the built-in
// defaults. Environment overrides are applied last, then the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks every field against the pipeline limits.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	}
	if a.InputChannels < 0 || a.InputChannels > MaxChannels {
		return fmt.Errorf("audio.input_channels must be in [0, %d], got %d", MaxChannels, a.InputChannels)
	}
	if a.TargetSampleRate < MinSampleRate || a.TargetSampleRate > MaxSampleRate {
		return fmt.Errorf("audio.target_sample_rate must be in [%d, %d], got %.0f", MinSampleRate, MaxSampleRate, a.TargetSampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be in [1, %d], got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if !bitint.IsPowerOfTwo(a.BlockSize) || a.BlockSize < MinBlockSize || a.BlockSize > MaxBlockSize {
		return fmt.Errorf("audio.block_size must be a power of two in [%d, %d], got %d (next power of two: %d)",
			MinBlockSize, MaxBlockSize, a.BlockSize, bitint.NextPowerOfTwo(a.BlockSize))
	}
	if a.MicrophoneAccess != AccessGranted && a.MicrophoneAccess != AccessDenied {
		return fmt.Errorf("audio.microphone_access must be %q or %q, got %q", AccessGranted, AccessDenied, a.MicrophoneAccess)
	}

	an := c.Analysis
	if an.Attack <= 0 || an.Attack > 1 {
		return fmt.Errorf("analysis.attack must be in (0, 1], got %g", an.Attack)
	}
	if an.Decay <= 0 || an.Decay > 1 {
		return fmt.Errorf("analysis.decay must be in (0, 1], got %g", an.Decay)
	}
	if an.NoiseFloor < 0 || an.NoiseFloor >= 1 {
		return fmt.Errorf("analysis.noise_floor must be in [0, 1), got %g", an.NoiseFloor)
	}
	if an.SpeechStartBlocks < 1 || an.SpeechHoldBlocks < 1 {
		return fmt.Errorf("analysis speech block counts must be >= 1")
	}
	if an.QueueDepth < 1 {
		return fmt.Errorf("analysis.queue_depth must be >= 1, got %d", an.QueueDepth)
	}

	t := c.Transport
	if t.PollInterval <= 0 {
		return fmt.Errorf("transport.poll_interval must be positive")
	}
	if (t.WebSocketEnabled || c.Metrics.Enabled) && t.HTTPAddr == "" {
		return fmt.Errorf("transport.http_addr must be set when websocket or metrics are enabled")
	}
	if t.UDPEnabled && !strings.Contains(t.UDPTargetAddress, ":") {
		return fmt.Errorf("transport.udp_target_address %q appears invalid (missing port?)", t.UDPTargetAddress)
	}

	return nil
}

// applyEnvOverrides applies ENV_* variables on top of file values.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		applog.Infof("configuration: Overriding log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_INPUT_DEVICE"); ok {
		if id, err := strconv.Atoi(val); err == nil {
			cfg.Audio.InputDevice = id
			applog.Infof("configuration: Overriding audio.input_device from env: %d", id)
		}
	}
	if val, ok := os.LookupEnv("ENV_MICROPHONE_ACCESS"); ok {
		cfg.Audio.MicrophoneAccess = strings.ToLower(val)
		applog.Infof("configuration: Overriding audio.microphone_access from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_POLL_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.PollInterval = dur
			applog.Infof("configuration: Overriding transport.poll_interval from env: %s", dur)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			applog.Infof("configuration: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		applog.Infof("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
}
