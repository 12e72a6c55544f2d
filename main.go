// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"micpipe/cmd"
	"micpipe/internal/audio"
	"micpipe/internal/config"
	applog "micpipe/internal/log"
	"micpipe/internal/metrics"
	"micpipe/internal/transport"
	"micpipe/internal/transport/udp"
	"micpipe/internal/tui"
	"micpipe/pkg/build"
)

const shutdownTimeout = 5 * time.Second

// main is the entry point for micpipe.
// The program flow is divided into three phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Run one-off commands (list, analyze)
//   - Initialize PortAudio and optionally pick a device
//
// 2. Capture Phase:
//   - Start the engine, the poller and every enabled transport
//   - Show the level meter or run headless until a signal arrives
//
// 3. Shutdown Phase:
//   - Stop polling, then capture, then the HTTP server
func main() {
	// ==================== STARTUP PHASE ====================

	if err := build.Initialize(); err != nil {
		log.Fatal(err)
	}

	options, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if options == nil {
		return
	}
	cfg := options.Config

	level, _ := applog.ParseLevel(cfg.LogLevel)
	applog.SetLevel(level)

	if options.Command == cmd.CommandAnalyze {
		if err := analyzeFile(options.File, cfg); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := audio.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer audio.Terminate()

	if options.Command == cmd.CommandList {
		if err := audio.ListDevices(os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	if options.Pick {
		sel, ok, err := tui.StartDeviceListUI()
		if err != nil {
			log.Fatal(err)
		}
		if !ok {
			return
		}
		cfg.Audio.InputDevice = sel.Device.ID
		cfg.Audio.InputChannels = sel.Channels
	}

	if err := run(cfg); err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}
}

// run wires the engine to its consumers and blocks until the meter is
// closed or a termination signal arrives.
func run(cfg *config.Config) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []audio.Option
	var server *transport.Server
	var transports []transport.Transport
	if cfg.Metrics.Enabled || cfg.Transport.WebSocketEnabled {
		server = transport.NewServer(cfg.Transport.HTTPAddr)
	}
	if cfg.Metrics.Enabled {
		m := metrics.New(nil)
		opts = append(opts, audio.WithObserver(m))
		server.Handle("/metrics", m.Handler())
	}
	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport()
		server.Handle("/levels", ws)
		transports = append(transports, ws)
	}
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		publisher, err := udp.NewUDPPublisher(sender)
		if err != nil {
			sender.Close()
			return err
		}
		transports = append(transports, publisher)
	}
	if !cfg.TUI && len(transports) == 0 {
		transports = append(transports, transport.NewLoggingTransport())
	}

	engine := audio.NewEngine(cfg, opts...)

	// ==================== CAPTURE PHASE ====================

	if server != nil {
		if err := server.Start(); err != nil {
			return err
		}
		applog.Infof("serving on %s", server.Addr())
	}

	var poller *transport.Poller
	if len(transports) > 0 {
		poller, err = transport.NewPoller(cfg.Transport.PollInterval, engine, transports...)
		if err != nil {
			return err
		}
		poller.Start()
	}

	// ==================== SHUTDOWN PHASE ====================

	defer func() {
		if poller != nil {
			err = errors.Join(err, poller.Close())
		}
		err = errors.Join(err, engine.Stop())
		if server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = errors.Join(err, server.Shutdown(shutdownCtx))
		}
	}()

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	if cfg.TUI {
		device := fmt.Sprintf("device %d", cfg.Audio.InputDevice)
		if d, err := audio.InputDevice(cfg.Audio.InputDevice); err == nil {
			device = d.Name
		}
		return tui.StartMeterUI(engine, cfg.Transport.PollInterval, device)
	}

	fmt.Printf("Capturing. Press Ctrl+C to stop. '%s --help' for usage information.\n", build.GetBuildFlags().Name)
	<-ctx.Done()
	return nil
}

// analyzeFile measures a WAV file offline and prints a summary.
func analyzeFile(path string, cfg *config.Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := audio.AnalyzeWAV(f, cfg, func(s *audio.Snapshot) {
		applog.Debugf("block %d at %d: volume %.3f rms %.1f dBFS speaking %v",
			s.Sequence, s.Timestamp.SampleTime, s.Volume, s.AveragePowerDB, s.Speaking)
	})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}

	fmt.Printf("File:          %s\n", path)
	fmt.Printf("Format:        %s, %d-bit\n", report.Native, report.BitDepth)
	fmt.Printf("Duration:      %s\n", report.Duration.Round(time.Millisecond))
	fmt.Printf("Blocks:        %d (%d with speech)\n", report.Blocks, report.SpeechBlocks)
	fmt.Printf("Max volume:    %.3f\n", report.MaxVolume)
	fmt.Printf("Max RMS:       %.3f\n", report.MaxRMS)
	if report.HasPeak {
		fmt.Printf("Peak:          %.3f at %.3fs\n", report.Peak.Amplitude, report.Peak.Time)
	}
	return nil
}
