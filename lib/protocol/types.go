// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChannelName is used when CHANNEL_JOINED omits channelName.
const DefaultChannelName = "Voice Channel"

// VoiceUser is one member of the voice channel. UserID is the identity
// key; everything else may change through partial updates.
type VoiceUser struct {
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
	ChannelID *string `json:"channelId"`
	Deaf      bool    `json:"deaf"`
	Mute      bool    `json:"mute"`
	Streaming bool    `json:"streaming"`
	Speaking  bool    `json:"speaking"`
}

// AvatarRef returns the avatar reference (hash or literal URL), or ""
// when the user has none.
func (u VoiceUser) AvatarRef() string {
	if u.AvatarURL == nil {
		return ""
	}
	return *u.AvatarURL
}

// Initials returns the placeholder shown while no avatar image is
// available: the first letter of up to two words of the username,
// upper-cased.
func (u VoiceUser) Initials() string {
	return Initials(u.Username)
}

// Initials returns the upper-cased first rune of the first two
// whitespace-separated words of name.
func Initials(name string) string {
	words := strings.Fields(name)
	var builder strings.Builder
	for _, word := range words[:min(2, len(words))] {
		first, _ := utf8.DecodeRuneInString(word)
		builder.WriteRune(unicode.ToUpper(first))
	}
	return builder.String()
}

// VoiceUserPartial is the sparse form carried by VOICE_STATE_UPDATE.
// A nil field was absent from the message and leaves the stored value
// untouched.
type VoiceUserPartial struct {
	UserID    string  `json:"userId"`
	Username  *string `json:"username,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	ChannelID *string `json:"channelId,omitempty"`
	Deaf      *bool   `json:"deaf,omitempty"`
	Mute      *bool   `json:"mute,omitempty"`
	Streaming *bool   `json:"streaming,omitempty"`
	Speaking  *bool   `json:"speaking,omitempty"`
}

// LeavesChannel reports whether the update removes the user: the
// channel is absent or empty.
func (p VoiceUserPartial) LeavesChannel() bool {
	return p.ChannelID == nil || *p.ChannelID == ""
}

// Registration is the REGISTER_CONFIG payload. The plugin announces
// its own view of the connection and layout preferences; every field
// is optional.
type Registration struct {
	Port                    *int    `json:"port,omitempty"`
	UserID                  *string `json:"userId,omitempty"`
	MessageAlignment        *string `json:"messageAlignment,omitempty"`
	UserAlignment           *string `json:"userAlignment,omitempty"`
	VoiceSemitransparent    *bool   `json:"voiceSemitransparent,omitempty"`
	MessagesSemitransparent *bool   `json:"messagesSemitransparent,omitempty"`
}

// NotificationContent is the MESSAGE_NOTIFICATION payload. Icon is an
// image URL; ChannelID is the target forwarded when the notification
// is activated.
type NotificationContent struct {
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Icon      *string `json:"icon,omitempty"`
	ChannelID *string `json:"channelId,omitempty"`
}

// IconRef returns the icon URL or "".
func (n NotificationContent) IconRef() string {
	if n.Icon == nil {
		return ""
	}
	return *n.Icon
}

// Target returns the channel ID to navigate to on activation, or "".
func (n NotificationContent) Target() string {
	if n.ChannelID == nil {
		return ""
	}
	return *n.ChannelID
}

// String returns a pointer to s, for building optional fields.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building optional fields.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i, for building optional fields.
func Int(i int) *int { return &i }
