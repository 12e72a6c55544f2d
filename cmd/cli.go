// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"micpipe/internal/config"
	"micpipe/pkg/build"

	"github.com/spf13/cobra"
)

// Commands selected on the command line. An empty Command runs capture.
const (
	CommandList    = "list"
	CommandAnalyze = "analyze"
)

// Options is the parsed command line: the merged configuration plus the
// one-off command, if any.
type Options struct {
	Config  *config.Config
	Command string
	File    string // WAV path for the analyze command.
	Pick    bool   // Choose the input device interactively before capture.
}

// ParseArgs parses args (without the program name). The configuration file
// is loaded first and flags explicitly given on the command line override
// it. A nil Options with a nil error means cobra already handled the
// invocation, for example --help or --version.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	defaults := config.Default()
	options := &Options{}
	ran := false

	var (
		configPath      string
		deviceID        int
		channels        int
		sampleRate      float64
		framesPerBuffer int
		blockSize       int
		lowLatency      bool
		tui             bool
		logLevel        string
	)

	// load merges the config file with the flags the user actually set.
	load := func(cmd *cobra.Command) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("device") {
			cfg.Audio.InputDevice = deviceID
		}
		if flags.Changed("channels") {
			cfg.Audio.InputChannels = channels
		}
		if flags.Changed("sample-rate") {
			cfg.Audio.TargetSampleRate = sampleRate
		}
		if flags.Changed("frames-per-buffer") {
			cfg.Audio.FramesPerBuffer = framesPerBuffer
		}
		if flags.Changed("block-size") {
			cfg.Audio.BlockSize = blockSize
		}
		if flags.Changed("low-latency") {
			cfg.Audio.LowLatency = lowLatency
		}
		if flags.Changed("tui") {
			cfg.TUI = tui
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
		options.Config = cfg
		ran = true
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd)
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   CommandList,
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandList
			return load(cmd)
		},
	}
	rootCmd.AddCommand(listCmd)

	// Analyze command
	analyzeCmd := &cobra.Command{
		Use:   CommandAnalyze + " <file.wav>",
		Short: "Measure a WAV file offline with the capture pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandAnalyze
			options.File = args[0]
			return load(cmd)
		},
	}
	rootCmd.AddCommand(analyzeCmd)

	// Configuration file
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML configuration file (default ./config.yaml if present)")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", defaults.Audio.InputDevice,
		"Specify input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&channels, "channels", "c", defaults.Audio.InputChannels,
		"Native channels to open (0=device default, 1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64VarP(&sampleRate, "sample-rate", "s", defaults.Audio.TargetSampleRate,
		"Processing sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&framesPerBuffer, "frames-per-buffer", "b", defaults.Audio.FramesPerBuffer,
		"The number of frames per hardware buffer (affects latency)")
	rootCmd.PersistentFlags().IntVar(&blockSize, "block-size", defaults.Audio.BlockSize,
		"Frames per measured block, a power of two")
	rootCmd.PersistentFlags().BoolVarP(&lowLatency, "low-latency", "l", defaults.Audio.LowLatency,
		"Use low latency mode for real-time processing")

	// Interface Configuration
	rootCmd.Flags().BoolVarP(&tui, "tui", "t", defaults.TUI,
		"Show the terminal level meter")
	rootCmd.Flags().BoolVarP(&options.Pick, "pick", "p", false,
		"Pick the input device interactively before capture")

	// Debug Configuration
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaults.LogLevel,
		"Log level (debug, info, warn, error)")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if !ran {
		return nil, nil
	}

	return options, nil
}
