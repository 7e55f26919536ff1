// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chotop-overlay/chotop/lib/avatar"
	"github.com/chotop-overlay/chotop/lib/config"
	"github.com/chotop-overlay/chotop/lib/control"
	"github.com/chotop-overlay/chotop/lib/protocol"
	"github.com/chotop-overlay/chotop/lib/testutil"
)

func TestFIFOPerChannel(t *testing.T) {
	b := New(Capacities{Events: 10})
	ctx := context.Background()

	for index := range 5 {
		update := protocol.VoiceStateUpdate{State: protocol.VoiceUserPartial{UserID: string(rune('a' + index))}}
		if err := b.PublishEvent(ctx, update); err != nil {
			t.Fatalf("PublishEvent: %v", err)
		}
	}
	for index := range 5 {
		event := testutil.RequireReceive(t, b.Events(), time.Second, "event %d", index)
		if got := event.(protocol.VoiceStateUpdate).State.UserID; got != string(rune('a'+index)) {
			t.Errorf("event %d is %s", index, got)
		}
	}
}

func TestPublishBlocksWhenFull(t *testing.T) {
	b := New(Capacities{Events: 1, Avatars: 1, Control: 1})
	ctx := context.Background()

	if err := b.PublishEvent(ctx, protocol.ChannelLeft{}); err != nil {
		t.Fatalf("first publish: %v", err)
	}

	published := make(chan error, 1)
	go func() { published <- b.PublishEvent(ctx, protocol.ChannelLeft{}) }()
	testutil.RequireNoReceive(t, published, 50*time.Millisecond, "publish should block on a full channel")

	testutil.RequireReceive(t, b.Events(), time.Second, "draining")
	if err := testutil.RequireReceive(t, published, time.Second, "blocked publish"); err != nil {
		t.Errorf("blocked publish returned %v", err)
	}
}

func TestPublishGivesUpWhenContextEnds(t *testing.T) {
	b := New(Capacities{Avatars: 1, Control: 1})

	ctx, cancel := context.WithCancel(context.Background())
	b.PublishAvatar(ctx, avatar.Result{})
	b.PublishControl(ctx, control.Quit())
	cancel()

	if err := b.PublishAvatar(ctx, avatar.Result{}); !errors.Is(err, context.Canceled) {
		t.Errorf("PublishAvatar = %v, want context.Canceled", err)
	}
	if err := b.PublishControl(ctx, control.Restart()); !errors.Is(err, context.Canceled) {
		t.Errorf("PublishControl = %v, want context.Canceled", err)
	}
}

func TestPublishDeliversWithRoomAfterCancel(t *testing.T) {
	b := New(Capacities{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.PublishEvent(ctx, protocol.ChannelLeft{}); err != nil {
		t.Errorf("publish with room should succeed even after cancel: %v", err)
	}
}

func TestTryPublishEvent(t *testing.T) {
	b := New(Capacities{Events: 1})
	if !b.TryPublishEvent(protocol.ChannelLeft{}) {
		t.Fatal("first TryPublishEvent should succeed")
	}
	if b.TryPublishEvent(protocol.ChannelLeft{}) {
		t.Error("TryPublishEvent on a full channel should fail")
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	b := New(Capacities{Events: 1, Avatars: 1, Control: 1})
	ctx := context.Background()

	// A full event channel does not hold up the others.
	b.PublishEvent(ctx, protocol.ChannelLeft{})
	if err := b.PublishAvatar(ctx, avatar.Result{OK: true}); err != nil {
		t.Fatalf("PublishAvatar: %v", err)
	}
	if err := b.PublishControl(ctx, control.EnableTestMode()); err != nil {
		t.Fatalf("PublishControl: %v", err)
	}
	if result := testutil.RequireReceive(t, b.Avatars(), time.Second, "avatar"); !result.OK {
		t.Error("avatar result mismatch")
	}
	if command := testutil.RequireReceive(t, b.Control(), time.Second, "control"); command.Kind != control.KindEnableTestMode {
		t.Errorf("control = %s", command.Kind)
	}
}

func TestDefaults(t *testing.T) {
	b := New(CapacitiesFrom(config.Default().Bus))
	if cap(b.events) != DefaultCapacity || cap(b.avatars) != DefaultCapacity || cap(b.control) != DefaultCapacity {
		t.Errorf("capacities = %d/%d/%d", cap(b.events), cap(b.avatars), cap(b.control))
	}
	zero := New(Capacities{})
	if cap(zero.events) != DefaultCapacity {
		t.Errorf("zero capacity should default, got %d", cap(zero.events))
	}
}
