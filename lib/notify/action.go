// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/chotop-overlay/chotop/lib/config"
)

// ActionHandler receives the target of an activated notification.
// target is empty when the notification carried none. Implementations
// must not block the caller.
type ActionHandler interface {
	Activate(target string) error
}

// NopHandler only logs activations.
type NopHandler struct {
	Logger *slog.Logger
}

// Activate implements ActionHandler.
func (h NopHandler) Activate(target string) error {
	if h.Logger != nil {
		h.Logger.Info("notification activated", "target", target)
	}
	return nil
}

// ExecHandler launches an external program, normally the chat client,
// when a notification is activated.
type ExecHandler struct {
	// Command is split on whitespace into program and arguments.
	Command string

	// PassTarget appends the target as a final argument when non-empty.
	PassTarget bool

	Logger *slog.Logger
}

// NewActionHandler returns the handler the action section describes:
// an ExecHandler when a command is configured, NopHandler otherwise.
func NewActionHandler(section config.ActionConfig, logger *slog.Logger) ActionHandler {
	if strings.TrimSpace(section.Command) == "" {
		return NopHandler{Logger: logger}
	}
	return &ExecHandler{
		Command:    section.Command,
		PassTarget: section.PassTarget,
		Logger:     logger,
	}
}

// Activate starts the command and returns without waiting for it.
func (h *ExecHandler) Activate(target string) error {
	arguments := strings.Fields(h.Command)
	if len(arguments) == 0 {
		return errors.New("no action command configured")
	}
	if h.PassTarget && target != "" {
		arguments = append(arguments, target)
	}

	command := exec.Command(arguments[0], arguments[1:]...)
	if err := command.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", arguments[0], err)
	}
	if h.Logger != nil {
		h.Logger.Info("notification action started",
			"command", arguments[0],
			"target", target,
			"pid", command.Process.Pid,
		)
	}

	// Reap the child so it does not linger as a zombie.
	go func() {
		if err := command.Wait(); err != nil && h.Logger != nil {
			h.Logger.Debug("notification action exited", "command", arguments[0], "error", err)
		}
	}()
	return nil
}
