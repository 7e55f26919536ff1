// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for chotop packages.
//
// [RequireReceive], [RequireSend], [RequireClosed] and
// [RequireNoReceive] wrap the select-with-timeout pattern so tests do
// not need their own time.After calls. They are the only place tests
// wait on the wall clock; code under test takes a [clock.Clock].
//
// [SocketDir] creates a short directory in /tmp for unix sockets.
// Socket paths are limited to 108 bytes and t.TempDir() can exceed
// that.
//
// [Logger] returns a logger that discards output, for constructors
// that require one.
//
// All helpers call t.Fatalf on failure.
//
// [clock.Clock]: github.com/chotop-overlay/chotop/lib/clock.Clock
package testutil
