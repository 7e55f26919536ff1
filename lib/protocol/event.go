// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// Wire discriminators.
const (
	CommandRegisterConfig      = "REGISTER_CONFIG"
	CommandChannelJoined       = "CHANNEL_JOINED"
	CommandChannelLeft         = "CHANNEL_LEFT"
	CommandVoiceStateUpdate    = "VOICE_STATE_UPDATE"
	CommandMessageNotification = "MESSAGE_NOTIFICATION"
)

// Event is one decoded protocol message. The set of implementations is
// closed: ChannelJoined, ChannelLeft, VoiceStateUpdate, ConfigReceived
// and Notification.
type Event interface {
	// Command returns the wire discriminator of the event.
	Command() string

	event()
}

// ChannelJoined replaces the whole presence set.
type ChannelJoined struct {
	Users       []VoiceUser
	ChannelName string
}

// ChannelLeft clears the presence set. It is also synthesized whenever
// a plugin connection ends.
type ChannelLeft struct{}

// VoiceStateUpdate carries a sparse update for a single user.
type VoiceStateUpdate struct {
	State VoiceUserPartial
}

// ConfigReceived carries the plugin's registration.
type ConfigReceived struct {
	Config Registration
}

// Notification carries a transient message notification.
type Notification struct {
	Content NotificationContent
}

func (ChannelJoined) Command() string    { return CommandChannelJoined }
func (ChannelLeft) Command() string      { return CommandChannelLeft }
func (VoiceStateUpdate) Command() string { return CommandVoiceStateUpdate }
func (ConfigReceived) Command() string   { return CommandRegisterConfig }
func (Notification) Command() string     { return CommandMessageNotification }

func (ChannelJoined) event()    {}
func (ChannelLeft) event()      {}
func (VoiceStateUpdate) event() {}
func (ConfigReceived) event()   {}
func (Notification) event()     {}
