// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chotop-overlay/chotop/lib/avatar"
	"github.com/chotop-overlay/chotop/lib/bus"
	"github.com/chotop-overlay/chotop/lib/clock"
	"github.com/chotop-overlay/chotop/lib/config"
	"github.com/chotop-overlay/chotop/lib/control"
	"github.com/chotop-overlay/chotop/lib/notify"
	"github.com/chotop-overlay/chotop/lib/presence"
	"github.com/chotop-overlay/chotop/lib/protocol"
)

// ErrRestart is returned by Run when a restart was requested.
var ErrRestart = errors.New("restart requested")

// AvatarQueue accepts download requests without blocking.
type AvatarQueue interface {
	Submit(request avatar.Request) bool
}

// Options configures an Engine.
type Options struct {
	// Config is the starting configuration. Required.
	Config *config.Config

	// Bus supplies events, avatar results and control commands.
	// Required.
	Bus *bus.Bus

	// Avatars receives download requests. Nil disables avatars and
	// notification icons; presenters show initials.
	Avatars AvatarQueue

	// Actions handles activated notifications. Nil means the handler
	// described by Config.Action.
	Actions notify.ActionHandler

	// Clock schedules notification expiry. Nil means the real clock.
	Clock clock.Clock

	// BoundPort is the port the ingest server listens on, compared
	// against the port a plugin registers with.
	BoundPort int

	Logger *slog.Logger
}

// Engine owns presentation state. Handle, Snapshot, Activate and
// Config must be called from one goroutine. Next only receives from
// channels, so it may block on another goroutine while that one
// handles the previous message.
type Engine struct {
	bus       *bus.Bus
	avatars   AvatarQueue
	logger    *slog.Logger
	boundPort int

	config       *config.Config
	store        *presence.Store
	queue        *notify.Queue
	registration protocol.Registration
	fixedActions bool
}

// NewEngine returns an engine with empty state.
func NewEngine(options Options) *Engine {
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	actions := options.Actions
	fixedActions := actions != nil
	if actions == nil {
		actions = notify.NewActionHandler(options.Config.Action, options.Logger)
	}

	return &Engine{
		bus:          options.Bus,
		avatars:      options.Avatars,
		logger:       options.Logger,
		boundPort:    options.BoundPort,
		config:       options.Config,
		store:        presence.New(),
		queue:        notify.NewQueue(notify.ConfigFrom(options.Config.Notifications), clk, actions, options.Logger),
		fixedActions: fixedActions,
	}
}

// SetBoundPort records the port the ingest server actually bound.
func (e *Engine) SetBoundPort(port int) {
	e.boundPort = port
}

// Next waits for the next message. It returns ctx.Err() when ctx ends.
func (e *Engine) Next(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case event := <-e.bus.Events():
		return Message{Kind: MessageEvent, Event: event}, nil
	case result := <-e.bus.Avatars():
		return Message{Kind: MessageAvatar, Avatar: result}, nil
	case command := <-e.bus.Control():
		return Message{Kind: MessageControl, Command: command}, nil
	case id := <-e.queue.Expired():
		return Message{Kind: MessageExpired, NotificationID: id}, nil
	}
}

// Handle applies one message.
func (e *Engine) Handle(message Message) Outcome {
	switch message.Kind {
	case MessageEvent:
		return e.handleEvent(message.Event)
	case MessageAvatar:
		return e.handleAvatar(message.Avatar)
	case MessageControl:
		return e.handleControl(message.Command)
	case MessageExpired:
		return Outcome{Redraw: e.queue.Remove(message.NotificationID)}
	default:
		e.logger.Warn("ignoring message of unknown kind", "kind", message.Kind)
		return Outcome{}
	}
}

func (e *Engine) handleEvent(event protocol.Event) Outcome {
	switch ev := event.(type) {
	case protocol.ConfigReceived:
		e.registration = ev.Config
		if ev.Config.Port != nil && e.boundPort != 0 && *ev.Config.Port != e.boundPort {
			e.logger.Warn("plugin registered a different port; restart with that port to follow it",
				"registered", *ev.Config.Port,
				"bound", e.boundPort,
			)
		}
		e.logger.Info("plugin registered", "user_id", optional(ev.Config.UserID))
		return Outcome{Redraw: true}

	case protocol.Notification:
		item := e.queue.Push(ev.Content)
		if icon := ev.Content.IconRef(); icon != "" {
			e.submit(avatar.Request{Key: avatar.Key{Ref: icon}, Purpose: avatar.PurposeIcon})
		}
		e.logger.Debug("notification shown", "id", item.ID, "title", ev.Content.Title)
		return Outcome{Redraw: true}

	default:
		return e.applyPresence(e.store.Apply(event))
	}
}

func (e *Engine) applyPresence(result presence.Result) Outcome {
	for _, request := range result.Fetches {
		e.submit(request)
	}
	return Outcome{Redraw: result.Changed}
}

func (e *Engine) submit(request avatar.Request) {
	if e.avatars == nil {
		return
	}
	e.avatars.Submit(request)
}

func (e *Engine) handleAvatar(result avatar.Result) Outcome {
	if !result.OK {
		return Outcome{}
	}
	switch result.Purpose {
	case avatar.PurposeIcon:
		return Outcome{Redraw: e.queue.SetIcon(result.Key.Ref, result.Path) > 0}
	default:
		return Outcome{Redraw: e.store.SetAvatar(result.Key.UserID, result.Key.Ref, result.Path)}
	}
}

func (e *Engine) handleControl(command control.Command) Outcome {
	switch command.Kind {
	case control.KindEnableTestMode:
		e.logger.Info("test mode enabled")
		return e.applyPresence(e.store.EnableTestMode())
	case control.KindDisableTestMode:
		e.logger.Info("test mode disabled")
		return e.applyPresence(e.store.DisableTestMode())
	case control.KindUpdateConfig:
		if command.Config == nil {
			return Outcome{}
		}
		e.applyConfig(command.Config)
		return Outcome{Redraw: true}
	case control.KindRestart:
		e.logger.Info("restart requested")
		return Outcome{Stop: StopRestart}
	case control.KindQuit:
		e.logger.Info("quit requested")
		return Outcome{Stop: StopQuit}
	default:
		e.logger.Warn("ignoring unknown control command", "kind", command.Kind)
		return Outcome{}
	}
}

// applyConfig takes over the settings that apply while running.
// Listener, cache and bus settings only take effect on restart.
func (e *Engine) applyConfig(cfg *config.Config) {
	previous := e.config
	if previous.Ingest != cfg.Ingest || previous.Control != cfg.Control ||
		previous.Avatar != cfg.Avatar || previous.Bus != cfg.Bus || previous.Log != cfg.Log {
		e.logger.Warn("configuration changes to ingest, control, avatar, bus or log settings take effect after restart")
	}

	e.config = cfg
	e.queue.SetConfig(notify.ConfigFrom(cfg.Notifications))
	if !e.fixedActions {
		e.queue.SetHandler(notify.NewActionHandler(cfg.Action, e.logger))
	}
	e.logger.Info("configuration updated",
		"position", cfg.Overlay.Position,
		"notification_ttl", cfg.Notifications.TTL,
	)
}

// Activate forwards interaction with notification id to the action
// handler. It reports false when the notification is gone.
func (e *Engine) Activate(id string) bool {
	return e.queue.Activate(id)
}

// Dismiss removes notification id without activating it. It reports
// false when the notification is gone.
func (e *Engine) Dismiss(id string) bool {
	return e.queue.Remove(id)
}

// Config returns the configuration currently in effect.
func (e *Engine) Config() *config.Config {
	return e.config
}

// Close stops notification timers.
func (e *Engine) Close() {
	e.queue.Close()
}

// Run is the headless consumer loop. It presents the initial state,
// then one snapshot after every change. It returns nil on Quit or when
// ctx ends and ErrRestart on Restart.
func (e *Engine) Run(ctx context.Context, presenter Presenter) error {
	defer e.Close()

	presenter.Present(e.Snapshot())
	for {
		message, err := e.Next(ctx)
		if err != nil {
			return nil
		}

		outcome := e.Handle(message)
		if outcome.Redraw {
			presenter.Present(e.Snapshot())
		}
		switch outcome.Stop {
		case StopQuit:
			return nil
		case StopRestart:
			return ErrRestart
		}
	}
}

func optional(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
