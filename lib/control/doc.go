// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package control implements the local control socket used to steer a
// running overlay: toggle test mode, push a new configuration, restart
// or quit.
//
// The protocol is one request per connection on a unix socket. The
// client writes a single CBOR-encoded [Command] and half-closes; the
// server validates it, hands it to its [CommandSink] and answers with
// the two bytes "OK". A request that does not decode to a valid
// command gets no answer: the server logs it and closes the
// connection, and the client observes a closed connection without
// acknowledgment.
//
// The socket lives at $XDG_RUNTIME_DIR/chotop-control.sock by default
// (see lib/config). A stale socket file is removed before listening
// and the file is removed again on shutdown.
package control
