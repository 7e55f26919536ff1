// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"log/slog"

	"github.com/chotop-overlay/chotop/lib/config"
	"github.com/chotop-overlay/chotop/lib/notify"
	"github.com/chotop-overlay/chotop/lib/protocol"
)

// UserView is a present user as a presenter draws it.
type UserView struct {
	protocol.VoiceUser

	// AvatarPath is the cached image, or "" to draw Initials instead.
	AvatarPath string
	Initials   string
}

// Snapshot is a copy of everything a presenter needs. It shares no
// memory with the engine.
type Snapshot struct {
	// Visible is true when the presence set is non-empty. The voice
	// panel is drawn only when it is set.
	Visible bool

	ChannelName string
	Users       []UserView
	TestMode    bool

	// Notifications are oldest first. They are drawn regardless of
	// Visible.
	Notifications []notify.Item

	Overlay      config.OverlayConfig
	Registration protocol.Registration
}

// Snapshot returns the current presentation state.
func (e *Engine) Snapshot() Snapshot {
	members := e.store.Members()
	users := make([]UserView, len(members))
	for index, member := range members {
		users[index] = UserView{
			VoiceUser:  member.VoiceUser,
			AvatarPath: member.AvatarPath,
			Initials:   member.Initials(),
		}
	}
	return Snapshot{
		Visible:       e.store.Visible(),
		ChannelName:   e.store.ChannelName(),
		Users:         users,
		TestMode:      e.store.TestMode(),
		Notifications: e.queue.Items(),
		Overlay:       e.config.Overlay,
		Registration:  e.registration,
	}
}

// Presenter draws snapshots. Present is called on the consumer
// goroutine and must not block.
type Presenter interface {
	Present(snapshot Snapshot)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Snapshot)

// Present implements Presenter.
func (f PresenterFunc) Present(snapshot Snapshot) { f(snapshot) }

// LogPresenter logs every snapshot. It is the presenter of the
// headless daemon.
type LogPresenter struct {
	Logger *slog.Logger
}

// Present implements Presenter.
func (p LogPresenter) Present(snapshot Snapshot) {
	speaking := make([]string, 0, len(snapshot.Users))
	for _, user := range snapshot.Users {
		if user.Speaking {
			speaking = append(speaking, user.Username)
		}
	}
	p.Logger.Info("overlay state",
		"visible", snapshot.Visible,
		"channel", snapshot.ChannelName,
		"users", len(snapshot.Users),
		"speaking", speaking,
		"notifications", len(snapshot.Notifications),
		"test_mode", snapshot.TestMode,
	)
}
