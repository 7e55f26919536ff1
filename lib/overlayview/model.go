// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package overlayview

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chotop-overlay/chotop/lib/control"
	"github.com/chotop-overlay/chotop/lib/overlay"
)

// engineMsg delivers the next bus message to Update.
type engineMsg struct {
	message overlay.Message
}

// engineDoneMsg reports that the context passed to NewModel ended.
type engineDoneMsg struct{}

// Options configures a Model. Zero values select the defaults.
type Options struct {
	Keys     *KeyMap
	Theme    *Theme
	Renderer *lipgloss.Renderer
}

// Model is the bubbletea model of the overlay. The engine is driven
// exclusively by the program's update goroutine; the caller must not
// use it while the program runs.
type Model struct {
	ctx      context.Context
	engine   *overlay.Engine
	keys     KeyMap
	theme    Theme
	renderer *lipgloss.Renderer

	width  int
	height int

	status         string
	statusLevel    slog.Level
	statusSequence uint64

	stop overlay.Stop
}

// NewModel returns a model that consumes engine messages until ctx
// ends. Cancel ctx after the program exits to release the pending
// wait.
func NewModel(ctx context.Context, engine *overlay.Engine, options Options) Model {
	model := Model{
		ctx:      ctx,
		engine:   engine,
		keys:     DefaultKeyMap,
		theme:    DefaultTheme,
		renderer: options.Renderer,
	}
	if options.Keys != nil {
		model.keys = *options.Keys
	}
	if options.Theme != nil {
		model.theme = *options.Theme
	}
	if model.renderer == nil {
		model.renderer = lipgloss.DefaultRenderer()
	}
	return model
}

// Stop reports why the program ended: StopQuit for the quit key or a
// quit command, StopRestart for a restart command, Continue when the
// context ended.
func (model Model) Stop() overlay.Stop {
	return model.stop
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return waitForMessage(model.ctx, model.engine)
}

// waitForMessage returns a command that blocks until the engine has
// a message.
func waitForMessage(ctx context.Context, engine *overlay.Engine) tea.Cmd {
	return func() tea.Msg {
		message, err := engine.Next(ctx)
		if err != nil {
			return engineDoneMsg{}
		}
		return engineMsg{message: message}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height

	case engineMsg:
		outcome := model.engine.Handle(message.message)
		if outcome.Stop != overlay.Continue {
			model.stop = outcome.Stop
			return model, tea.Quit
		}
		return model, waitForMessage(model.ctx, model.engine)

	case engineDoneMsg:
		return model, tea.Quit

	case logRecordMsg:
		model.statusSequence++
		model.status = message.summary
		model.statusLevel = message.level
		sequence := model.statusSequence
		return model, tea.Tick(statusFadeDelay, func(time.Time) tea.Msg {
			return logFadeMsg{sequence: sequence}
		})

	case logFadeMsg:
		if message.sequence == model.statusSequence {
			model.status = ""
		}

	case tea.KeyMsg:
		return model.handleKey(message)
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		model.stop = overlay.StopQuit
		return model, tea.Quit

	case key.Matches(message, model.keys.Activate):
		notifications := model.engine.Snapshot().Notifications
		if index := notificationIndex(message); index >= 0 && index < len(notifications) {
			model.engine.Activate(notifications[index].ID)
		}

	case key.Matches(message, model.keys.Dismiss):
		if notifications := model.engine.Snapshot().Notifications; len(notifications) > 0 {
			model.engine.Dismiss(notifications[0].ID)
		}

	case key.Matches(message, model.keys.TestMode):
		command := control.EnableTestMode()
		if model.engine.Snapshot().TestMode {
			command = control.DisableTestMode()
		}
		model.engine.Handle(overlay.Message{Kind: overlay.MessageControl, Command: command})
	}
	return model, nil
}

func helpText(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return strings.Join(parts, " · ")
}

// notificationIndex maps a digit key to a zero-based index, or -1.
func notificationIndex(message tea.KeyMsg) int {
	pressed := message.String()
	if len(pressed) != 1 || pressed[0] < '1' || pressed[0] > '9' {
		return -1
	}
	return int(pressed[0] - '1')
}

// View implements tea.Model.
func (model Model) View() string {
	snapshot := model.engine.Snapshot()
	return Render(snapshot, RenderOptions{
		Theme:    model.theme,
		Renderer: model.renderer,
		Width:    model.width,
		Height:   model.height,
		Status:   model.statusLine(snapshot),
	})
}

// statusLine shows the latest log record, or the key help while the
// overlay is empty.
func (model Model) statusLine(snapshot overlay.Snapshot) string {
	style := model.renderer.NewStyle().Foreground(model.theme.FaintText)
	if model.status == "" {
		if snapshot.Visible || len(snapshot.Notifications) > 0 {
			return ""
		}
		return style.Render(helpText(model.keys.ShortHelp()))
	}
	switch {
	case model.statusLevel >= slog.LevelError:
		style = style.Foreground(model.theme.StatusError)
	case model.statusLevel >= slog.LevelWarn:
		style = style.Foreground(model.theme.StatusWarn)
	}
	return style.Render(model.status)
}
