// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol decodes the messages a companion browser plugin
// pushes over the overlay websocket into typed events.
//
// Every message is one JSON object carrying a string "cmd"
// discriminator. Parse first decodes only the discriminator, then the
// payload schema the discriminator selects:
//
//	REGISTER_CONFIG       optional port, user id, alignment and transparency hints
//	CHANNEL_JOINED        "states": full user list, optional "channelName"
//	CHANNEL_LEFT          no payload
//	VOICE_STATE_UPDATE    "state": one sparse user object
//	MESSAGE_NOTIFICATION  "message": title, body, optional icon and channel id
//
// Parse performs no I/O and never panics. Callers treat both error
// types as "log and drop": an UnknownCommandError for a discriminator
// this package does not know, a SchemaError for a known discriminator
// whose payload does not match.
package protocol
