// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package overlayview

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/chotop-overlay/chotop/lib/bus"
	"github.com/chotop-overlay/chotop/lib/clock"
	"github.com/chotop-overlay/chotop/lib/config"
	"github.com/chotop-overlay/chotop/lib/control"
	"github.com/chotop-overlay/chotop/lib/overlay"
	"github.com/chotop-overlay/chotop/lib/protocol"
	"github.com/chotop-overlay/chotop/lib/testutil"
)

type recordingActions struct {
	targets []string
}

func (a *recordingActions) Activate(target string) error {
	a.targets = append(a.targets, target)
	return nil
}

func newTestModel(t *testing.T) (Model, *recordingActions) {
	t.Helper()
	actions := &recordingActions{}
	engine := overlay.NewEngine(overlay.Options{
		Config:  config.Default(),
		Bus:     bus.New(bus.Capacities{}),
		Actions: actions,
		Clock:   clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		Logger:  testutil.Logger(),
	})
	t.Cleanup(engine.Close)
	model := NewModel(context.Background(), engine, Options{Renderer: plainRenderer()})
	return model, actions
}

func update(t *testing.T, model Model, message tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := model.Update(message)
	next, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T", updated)
	}
	return next, cmd
}

func runes(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func eventMsg(event protocol.Event) engineMsg {
	return engineMsg{message: overlay.Message{Kind: overlay.MessageEvent, Event: event}}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestEngineMessagesRender(t *testing.T) {
	model, _ := newTestModel(t)
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 80, Height: 24})

	model, cmd := update(t, model, eventMsg(protocol.ChannelJoined{
		ChannelName: "General",
		Users:       []protocol.VoiceUser{{UserID: "1", Username: "Alice"}},
	}))
	if cmd == nil {
		t.Fatal("expected the model to wait for the next message")
	}
	view := ansi.Strip(model.View())
	if !strings.Contains(view, "General") || !strings.Contains(view, "Alice") {
		t.Errorf("view missing channel:\n%s", view)
	}

	model, _ = update(t, model, eventMsg(protocol.ChannelLeft{}))
	if view := ansi.Strip(model.View()); strings.Contains(view, "Alice") {
		t.Errorf("user still drawn after leaving:\n%s", view)
	}
}

func TestActivateAndDismissKeys(t *testing.T) {
	model, actions := newTestModel(t)
	for _, channel := range []string{"10", "20"} {
		model, _ = update(t, model, eventMsg(protocol.Notification{Content: protocol.NotificationContent{
			Title: "t" + channel, Body: "b", ChannelID: protocol.String(channel),
		}}))
	}

	model, _ = update(t, model, runes('2'))
	model, _ = update(t, model, runes('9'))
	if len(actions.targets) != 1 || actions.targets[0] != "20" {
		t.Errorf("targets = %q", actions.targets)
	}

	model, _ = update(t, model, runes('x'))
	notifications := model.engine.Snapshot().Notifications
	if len(notifications) != 1 || notifications[0].Content.Title != "t20" {
		t.Errorf("dismiss should remove the oldest, left %+v", notifications)
	}
}

func TestTestModeKey(t *testing.T) {
	model, _ := newTestModel(t)

	model, _ = update(t, model, runes('t'))
	if !model.engine.Snapshot().TestMode {
		t.Fatal("t should enable test mode")
	}
	model, _ = update(t, model, runes('t'))
	if snapshot := model.engine.Snapshot(); snapshot.TestMode || snapshot.Visible {
		t.Error("second t should leave test mode")
	}
}

func TestQuitKey(t *testing.T) {
	model, _ := newTestModel(t)
	model, cmd := update(t, model, runes('q'))
	if !isQuit(cmd) || model.Stop() != overlay.StopQuit {
		t.Errorf("q should quit, stop = %v", model.Stop())
	}
}

func TestControlStops(t *testing.T) {
	tests := []struct {
		command control.Command
		want    overlay.Stop
	}{
		{control.Quit(), overlay.StopQuit},
		{control.Restart(), overlay.StopRestart},
	}
	for _, test := range tests {
		t.Run(string(test.command.Kind), func(t *testing.T) {
			model, _ := newTestModel(t)
			model, cmd := update(t, model, engineMsg{message: overlay.Message{Kind: overlay.MessageControl, Command: test.command}})
			if !isQuit(cmd) || model.Stop() != test.want {
				t.Errorf("stop = %v, want %v", model.Stop(), test.want)
			}
		})
	}
}

func TestInitEndsWithContext(t *testing.T) {
	model, _ := newTestModel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	model.ctx = ctx

	if _, ok := model.Init()().(engineDoneMsg); !ok {
		t.Fatal("Init should report the ended context")
	}
	if _, cmd := update(t, model, engineDoneMsg{}); !isQuit(cmd) {
		t.Error("ended context should quit")
	}
}

func TestStatusRow(t *testing.T) {
	model, _ := newTestModel(t)
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 100, Height: 10})

	// The empty overlay shows key help.
	if view := ansi.Strip(model.View()); !strings.Contains(view, "q quit") {
		t.Errorf("expected key help:\n%s", view)
	}

	model, cmd := update(t, model, logRecordMsg{summary: "avatar download failed", level: slog.LevelWarn})
	if cmd == nil {
		t.Fatal("expected a fade timer")
	}
	if view := ansi.Strip(model.View()); !strings.Contains(view, "avatar download failed") {
		t.Errorf("status missing:\n%s", view)
	}

	model, _ = update(t, model, logRecordMsg{summary: "second", level: slog.LevelError})
	model, _ = update(t, model, logFadeMsg{sequence: 1})
	if model.status != "second" {
		t.Error("a stale fade must not clear a newer record")
	}
	model, _ = update(t, model, logFadeMsg{sequence: 2})
	if model.status != "" {
		t.Error("fade should clear the status")
	}
}

func TestLogHandler(t *testing.T) {
	handler := NewLogHandler(slog.LevelWarn)
	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled")
	}

	derived := handler.WithGroup("avatar").WithAttrs([]slog.Attr{slog.String("user_id", "1")}).(*LogHandler)
	record := slog.NewRecord(time.Now(), slog.LevelWarn, "download failed", 0)
	record.AddAttrs(slog.Int("attempts", 3))
	if summary := derived.summarize(record); summary != "download failed (avatar.user_id=1, avatar.attempts=3)" {
		t.Errorf("summary = %q", summary)
	}

	// Without a program records are dropped.
	if err := derived.Handle(context.Background(), record); err != nil {
		t.Errorf("Handle: %v", err)
	}
}
