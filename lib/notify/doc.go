// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify holds the transient notification list shown by the
// overlay.
//
// A Queue is owned by the overlay consumer and is not safe for
// concurrent use. Each pushed notification gets an ID and an expiry
// timer. When the timer fires it only posts the ID on the Expired
// channel; the owner removes the item the next time it drains that
// channel, so every mutation happens on the owner's goroutine. Expiry
// of an item already removed is a no-op.
//
// The list is capped: pushing past MaxItems drops the oldest item.
//
// Activating an item hands its target channel ID to an ActionHandler.
// The queue itself never navigates anywhere.
package notify
