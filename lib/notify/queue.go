// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/chotop-overlay/chotop/lib/clock"
	"github.com/chotop-overlay/chotop/lib/config"
	"github.com/chotop-overlay/chotop/lib/protocol"
)

// expiredBuffer sizes the Expired channel. Timer callbacks block once
// it is full until the owner drains it or the queue is closed.
const expiredBuffer = 64

// Config configures a Queue.
type Config struct {
	// TTL is how long an item stays in the list.
	TTL time.Duration

	// MaxItems caps the list. Zero means unbounded.
	MaxItems int
}

// ConfigFrom converts the notifications section of the daemon
// configuration.
func ConfigFrom(section config.NotificationsConfig) Config {
	return Config{
		TTL:      section.TTL.Std(),
		MaxItems: section.MaxItems,
	}
}

// Item is one visible notification.
type Item struct {
	ID      string
	Content protocol.NotificationContent
	Created time.Time

	// IconPath is the cached icon file, empty until the icon has been
	// fetched (or when there is none).
	IconPath string
}

// Queue is the notification list.
type Queue struct {
	config  Config
	clock   clock.Clock
	handler ActionHandler
	logger  *slog.Logger

	items   []Item
	timers  map[string]*clock.Timer
	expired chan string
	closed  chan struct{}
	dropped uint64
}

// NewQueue returns an empty queue. A nil handler means NopHandler.
func NewQueue(cfg Config, clk clock.Clock, handler ActionHandler, logger *slog.Logger) *Queue {
	if handler == nil {
		handler = NopHandler{Logger: logger}
	}
	return &Queue{
		config:  cfg,
		clock:   clk,
		handler: handler,
		logger:  logger,
		timers:  make(map[string]*clock.Timer),
		expired: make(chan string, expiredBuffer),
		closed:  make(chan struct{}),
	}
}

// SetConfig changes the TTL and cap. Items already in the list keep
// their expiry; a lower cap is applied on the next Push.
func (q *Queue) SetConfig(cfg Config) {
	q.config = cfg
}

// SetHandler replaces the activation handler.
func (q *Queue) SetHandler(handler ActionHandler) {
	q.handler = handler
}

// Push appends a notification and schedules its expiry.
func (q *Queue) Push(content protocol.NotificationContent) Item {
	if q.config.MaxItems > 0 {
		for len(q.items) >= q.config.MaxItems {
			evicted := q.items[0]
			q.removeAt(0)
			q.dropped++
			q.logger.Debug("notification evicted", "id", evicted.ID, "title", evicted.Content.Title)
		}
	}

	item := Item{
		ID:      uuid.NewString(),
		Content: content,
		Created: q.clock.Now(),
	}
	q.items = append(q.items, item)

	id := item.ID
	q.timers[id] = q.clock.AfterFunc(q.config.TTL, func() {
		select {
		case q.expired <- id:
		case <-q.closed:
		}
	})
	return item
}

// Expired delivers the IDs of items whose TTL elapsed. The owner
// passes each to Remove.
func (q *Queue) Expired() <-chan string {
	return q.expired
}

// Remove deletes the item with id. It reports whether the item was
// still present; removing twice is harmless.
func (q *Queue) Remove(id string) bool {
	index := q.indexOf(id)
	if index < 0 {
		return false
	}
	q.removeAt(index)
	return true
}

func (q *Queue) removeAt(index int) {
	id := q.items[index].ID
	q.items = slices.Delete(q.items, index, index+1)
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
}

func (q *Queue) indexOf(id string) int {
	return slices.IndexFunc(q.items, func(item Item) bool { return item.ID == id })
}

// SetIcon attaches path to every item whose icon is ref and returns
// how many items changed.
func (q *Queue) SetIcon(ref, path string) int {
	changed := 0
	for index := range q.items {
		if q.items[index].Content.IconRef() == ref && q.items[index].IconPath != path {
			q.items[index].IconPath = path
			changed++
		}
	}
	return changed
}

// Activate forwards the target of item id to the action handler. It
// reports false when the item no longer exists.
func (q *Queue) Activate(id string) bool {
	index := q.indexOf(id)
	if index < 0 {
		return false
	}
	item := q.items[index]
	if err := q.handler.Activate(item.Content.Target()); err != nil {
		q.logger.Warn("notification action failed",
			"id", item.ID,
			"target", item.Content.Target(),
			"error", err,
		)
	}
	return true
}

// Items returns a copy of the list, oldest first.
func (q *Queue) Items() []Item {
	return slices.Clone(q.items)
}

// Len returns the number of items.
func (q *Queue) Len() int { return len(q.items) }

// Visible reports whether there is anything to show.
func (q *Queue) Visible() bool { return len(q.items) > 0 }

// Dropped returns how many items were evicted by the cap.
func (q *Queue) Dropped() uint64 { return q.dropped }

// Close stops every pending timer and releases callbacks blocked on a
// full Expired channel.
func (q *Queue) Close() {
	select {
	case <-q.closed:
		return
	default:
	}
	close(q.closed)
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
}
