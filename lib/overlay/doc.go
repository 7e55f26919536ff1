// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package overlay is the single consumer that owns presentation state.
//
// An [Engine] holds the presence store, the notification queue, the
// plugin's registration and the presentation settings. Nothing else
// mutates them. Backend goroutines reach the engine only through the
// bus; the engine suspends only while waiting on the bus channels and
// the notification expiry channel ([Engine.Next]). Applying a message
// ([Engine.Handle]) never blocks: avatar downloads are handed to a
// worker queue and notification actions start external programs
// without waiting for them.
//
// Two loops drive an engine. [Engine.Run] is the headless loop, which
// hands a [Snapshot] to a [Presenter] after every visible change.
// lib/overlayview drives the same Next/Handle pair from a bubbletea
// program.
package overlay
