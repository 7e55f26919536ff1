// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Chotop is a voice-channel overlay daemon. A chat-client plugin
// connects to its loopback websocket and streams voice presence and
// message notifications; chotop tracks who is in the channel, caches
// their avatars and draws the result.
//
// By default the state is written to the log. With --tui it is drawn
// in the terminal. The control socket accepts commands from chotopctl
// (test mode, configuration reload, restart, quit).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/chotop-overlay/chotop/lib/config"
	"github.com/chotop-overlay/chotop/lib/logging"
	"github.com/chotop-overlay/chotop/lib/overlay"
	"github.com/chotop-overlay/chotop/lib/overlayview"
	"github.com/chotop-overlay/chotop/lib/version"
)

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	port        int
	logLevel    string
	tui         bool
	testMode    bool
	showVersion bool
}

func parseFlags(args []string) (options, *pflag.FlagSet, error) {
	var parsed options
	flagSet := pflag.NewFlagSet("chotop", pflag.ContinueOnError)
	flagSet.StringVarP(&parsed.configPath, "config", "c", "", "configuration file (.yaml, .toml or .json); default $CHOTOP_CONFIG")
	flagSet.IntVarP(&parsed.port, "port", "p", config.DefaultPort, "websocket port, overriding the configuration")
	flagSet.StringVar(&parsed.logLevel, "log-level", "", "log level (debug, info, warn, error), overriding the configuration")
	flagSet.BoolVar(&parsed.tui, "tui", false, "draw the overlay in the terminal")
	flagSet.BoolVar(&parsed.testMode, "test-mode", false, "start with the fake test channel shown")
	flagSet.BoolVar(&parsed.showVersion, "version", false, "print version information and exit")
	err := flagSet.Parse(args)
	return parsed, flagSet, err
}

func run(args []string) error {
	parsed, flagSet, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &exitError{code: 2, err: err}
	}
	if parsed.showVersion {
		fmt.Printf("chotop %s\n", version.Info())
		return nil
	}
	if flagSet.NArg() > 0 {
		return &exitError{code: 2, err: fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))}
	}

	cfg, configPath, err := loadConfig(parsed, flagSet)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	initialLevel, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	level := new(slog.LevelVar)
	level.Set(initialLevel)

	logOptions := logging.OptionsFrom(cfg.Log, level)
	var tuiHandler *overlayview.LogHandler
	if parsed.tui {
		tuiHandler = overlayview.NewLogHandler(slog.LevelWarn)
		logOptions.Console = tuiHandler
	}
	logger, logCloser, err := logging.New(logOptions)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = serve(ctx, cfg, configPath, level, logger, parsed, tuiHandler)
	stop()

	if errors.Is(err, overlay.ErrRestart) {
		logger.Info("restarting")
		logCloser.Close()
		return restart()
	}
	logCloser.Close()
	return err
}

// loadConfig reads the file from --config or $CHOTOP_CONFIG and
// applies the flag overrides. It returns the path to watch, or "".
func loadConfig(parsed options, flagSet *pflag.FlagSet) (*config.Config, string, error) {
	path := parsed.configPath
	if path == "" {
		path = os.Getenv("CHOTOP_CONFIG")
	}

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, "", err
	}

	if flagSet.Changed("port") {
		cfg.Ingest.Port = parsed.port
	}
	if parsed.logLevel != "" {
		cfg.Log.Level = parsed.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, path, nil
}

func serve(ctx context.Context, cfg *config.Config, configPath string, level *slog.LevelVar, logger *slog.Logger, parsed options, tuiHandler *overlayview.LogHandler) error {
	d, err := newDaemon(cfg, configPath, level, logger)
	if err != nil {
		return err
	}
	logger.Info("chotop starting",
		"version", version.Info(),
		"address", cfg.Ingest.Address(),
		"control_socket", cfg.Control.SocketPath,
	)

	consume := headless(logger)
	if parsed.tui {
		consume = terminal(tuiHandler)
	}
	return d.run(ctx, parsed.testMode, consume)
}

// terminal consumes the engine with the bubbletea overlay view.
func terminal(handler *overlayview.LogHandler) consumer {
	return func(ctx context.Context, engine *overlay.Engine) error {
		model := overlayview.NewModel(ctx, engine, overlayview.Options{})
		program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		handler.SetProgram(program)
		defer handler.SetProgram(nil)

		final, err := program.Run()
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("running terminal overlay: %w", err)
		}
		if model, ok := final.(overlayview.Model); ok && model.Stop() == overlay.StopRestart {
			return overlay.ErrRestart
		}
		return nil
	}
}

// restart replaces the process with a fresh copy of itself.
func restart() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable for restart: %w", err)
	}
	if err := syscall.Exec(executable, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("restarting %s: %w", executable, err)
	}
	return nil
}
