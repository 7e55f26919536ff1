// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest runs the loopback websocket server the companion
// browser plugin connects to.
//
// Any request path is upgraded. Each connection gets its own reader
// goroutine that parses text frames with lib/protocol and forwards the
// events to an [EventSink] in arrival order. Forwarding blocks while
// the sink is full, so a slow consumer slows the plugin down instead
// of losing presence updates. Malformed and unknown messages are
// logged (rate limited per connection) and skipped; the connection
// stays open.
//
// A binary frame, a close frame, a read error or an idle timeout ends
// the connection. Whatever the reason, the end of a connection is
// reported to the sink as a ChannelLeft event so the overlay never
// keeps showing a channel nobody is reporting on. During shutdown that
// event is published without blocking and logged if it does not fit.
//
// Idle detection: the server pings every PingInterval and any frame or
// pong pushes the read deadline IdleTimeout into the future, so a peer
// that vanished without closing is noticed within IdleTimeout.
package ingest
