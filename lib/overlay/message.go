// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"github.com/chotop-overlay/chotop/lib/avatar"
	"github.com/chotop-overlay/chotop/lib/control"
	"github.com/chotop-overlay/chotop/lib/protocol"
)

// MessageKind says which source a Message came from.
type MessageKind int

const (
	// MessageEvent is a protocol event from a plugin connection.
	MessageEvent MessageKind = iota + 1

	// MessageAvatar is a finished avatar download.
	MessageAvatar

	// MessageControl is a control socket command.
	MessageControl

	// MessageExpired is a notification whose TTL elapsed.
	MessageExpired
)

func (k MessageKind) String() string {
	switch k {
	case MessageEvent:
		return "event"
	case MessageAvatar:
		return "avatar"
	case MessageControl:
		return "control"
	case MessageExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Message is one unit of work for the engine. Only the field matching
// Kind is set.
type Message struct {
	Kind MessageKind

	Event   protocol.Event
	Avatar  avatar.Result
	Command control.Command

	// NotificationID identifies the expired notification.
	NotificationID string
}

// Stop says whether the consumer loop should end.
type Stop int

const (
	// Continue keeps the loop running.
	Continue Stop = iota

	// StopQuit ends the process.
	StopQuit

	// StopRestart ends the loop so the process can restart itself.
	StopRestart
)

// Outcome is the result of handling a message.
type Outcome struct {
	// Redraw is true when the snapshot changed.
	Redraw bool

	Stop Stop
}
