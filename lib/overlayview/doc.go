// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package overlayview draws the overlay in a terminal.
//
// [Model] is a bubbletea model that drives an [overlay.Engine]: it
// waits for the next bus message in a command, applies it on the
// update goroutine, and renders the resulting [overlay.Snapshot]
// anchored to the configured corner of the terminal. Number keys
// activate the matching notification; t toggles test mode.
//
// [Render] is the pure rendering half and is usable without a
// program, which is how the tests exercise layout.
package overlayview
