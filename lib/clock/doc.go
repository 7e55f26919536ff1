// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Components that schedule work (notification expiry, websocket read
// deadlines, control socket deadlines) take a Clock instead of calling
// the time package directly. Production code passes Real(); tests pass
// Fake() and move time forward explicitly:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	queue := notify.NewQueue(notify.Config{TTL: 7 * time.Second}, fake, logger)
//	queue.Push(content)
//	fake.WaitForTimers(1)
//	fake.Advance(7 * time.Second) // expiry fires synchronously
package clock
