// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"errors"
	"fmt"

	"github.com/chotop-overlay/chotop/lib/codec"
	"github.com/chotop-overlay/chotop/lib/config"
)

// Kind identifies a control command.
type Kind string

const (
	KindEnableTestMode  Kind = "enable_test_mode"
	KindDisableTestMode Kind = "disable_test_mode"
	KindUpdateConfig    Kind = "update_config"
	KindRestart         Kind = "restart"
	KindQuit            Kind = "quit"
)

// Command is one control request. Config is set only for
// KindUpdateConfig.
type Command struct {
	Kind   Kind           `cbor:"kind"`
	Config *config.Config `cbor:"config,omitempty"`
}

// EnableTestMode returns a command that shows the fake test channel.
func EnableTestMode() Command { return Command{Kind: KindEnableTestMode} }

// DisableTestMode returns a command that leaves the test channel.
func DisableTestMode() Command { return Command{Kind: KindDisableTestMode} }

// UpdateConfig returns a command that replaces the running
// configuration.
func UpdateConfig(cfg *config.Config) Command {
	return Command{Kind: KindUpdateConfig, Config: cfg}
}

// Restart returns a command that restarts the daemon.
func Restart() Command { return Command{Kind: KindRestart} }

// Quit returns a command that stops the daemon.
func Quit() Command { return Command{Kind: KindQuit} }

// Validate checks the structure of the command. The configuration
// carried by update_config is checked too.
func (c Command) Validate() error {
	switch c.Kind {
	case KindEnableTestMode, KindDisableTestMode, KindRestart, KindQuit:
		if c.Config != nil {
			return fmt.Errorf("%s does not take a config", c.Kind)
		}
		return nil
	case KindUpdateConfig:
		if c.Config == nil {
			return errors.New("update_config requires a config")
		}
		if err := c.Config.Validate(); err != nil {
			return fmt.Errorf("update_config: %w", err)
		}
		return nil
	case "":
		return errors.New("missing command kind")
	default:
		return fmt.Errorf("unknown command kind %q", c.Kind)
	}
}

// DecodeError is returned by Decode for a request that is not a valid
// command.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decoding control command: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode renders command in wire form.
func Encode(command Command) ([]byte, error) {
	return codec.Marshal(command)
}

// Decode parses and validates one wire command.
func Decode(data []byte) (Command, error) {
	var command Command
	if err := codec.Unmarshal(data, &command); err != nil {
		return Command{}, &DecodeError{Err: err}
	}
	if err := command.Validate(); err != nil {
		return Command{}, &DecodeError{Err: err}
	}
	return command, nil
}
