// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package bus carries work from the backend goroutines to the single
// overlay consumer.
//
// There are three bounded channels: protocol events from websocket
// connections, avatar results from the download worker, and control
// commands from the control socket. Each is FIFO; nothing orders one
// channel relative to another. Publishing blocks while a channel is
// full, which slows the producer down instead of losing data.
// TryPublishEvent is the one non-blocking path, used where a producer
// must not wait.
//
// A Bus satisfies ingest.EventSink, avatar.ResultSink and
// control.CommandSink.
package bus

import (
	"context"

	"github.com/chotop-overlay/chotop/lib/avatar"
	"github.com/chotop-overlay/chotop/lib/config"
	"github.com/chotop-overlay/chotop/lib/control"
	"github.com/chotop-overlay/chotop/lib/protocol"
)

// DefaultCapacity is the default size of each channel.
const DefaultCapacity = 100

// Capacities sizes the three channels. A zero field means
// DefaultCapacity.
type Capacities struct {
	Events  int
	Avatars int
	Control int
}

// CapacitiesFrom converts the bus section of the daemon configuration.
func CapacitiesFrom(section config.BusConfig) Capacities {
	return Capacities{
		Events:  section.EventCapacity,
		Avatars: section.AvatarCapacity,
		Control: section.ControlCapacity,
	}
}

// Bus holds the three channels.
type Bus struct {
	events  chan protocol.Event
	avatars chan avatar.Result
	control chan control.Command
}

// New creates a bus.
func New(capacities Capacities) *Bus {
	return &Bus{
		events:  make(chan protocol.Event, orDefault(capacities.Events)),
		avatars: make(chan avatar.Result, orDefault(capacities.Avatars)),
		control: make(chan control.Command, orDefault(capacities.Control)),
	}
}

func orDefault(capacity int) int {
	if capacity <= 0 {
		return DefaultCapacity
	}
	return capacity
}

// PublishEvent queues a protocol event, waiting while the channel is
// full. It returns ctx.Err() if ctx ends first.
func (b *Bus) PublishEvent(ctx context.Context, event protocol.Event) error {
	return publish(ctx, b.events, event)
}

// TryPublishEvent queues a protocol event only if there is room.
func (b *Bus) TryPublishEvent(event protocol.Event) bool {
	select {
	case b.events <- event:
		return true
	default:
		return false
	}
}

// PublishAvatar queues an avatar result.
func (b *Bus) PublishAvatar(ctx context.Context, result avatar.Result) error {
	return publish(ctx, b.avatars, result)
}

// PublishControl queues a control command.
func (b *Bus) PublishControl(ctx context.Context, command control.Command) error {
	return publish(ctx, b.control, command)
}

func publish[T any](ctx context.Context, channel chan<- T, value T) error {
	// Prefer delivery when there is room, even if ctx is already done.
	select {
	case channel <- value:
		return nil
	default:
	}
	select {
	case channel <- value:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events is drained by the consumer.
func (b *Bus) Events() <-chan protocol.Event { return b.events }

// Avatars is drained by the consumer.
func (b *Bus) Avatars() <-chan avatar.Result { return b.avatars }

// Control is drained by the consumer.
func (b *Bus) Control() <-chan control.Command { return b.control }
