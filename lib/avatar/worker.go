// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package avatar

import (
	"context"
	"log/slog"
	"sync"
)

// Purpose says what a fetched image is for.
type Purpose int

const (
	// PurposeUser is a voice channel member's avatar.
	PurposeUser Purpose = iota

	// PurposeIcon is a notification icon.
	PurposeIcon
)

func (p Purpose) String() string {
	switch p {
	case PurposeUser:
		return "user"
	case PurposeIcon:
		return "icon"
	default:
		return "unknown"
	}
}

// Request asks the Worker to resolve a key.
type Request struct {
	Key     Key
	Purpose Purpose
}

// Result is published when a request completes. OK is false when no
// image is available; Path is then empty.
type Result struct {
	Key     Key
	Path    string
	OK      bool
	Purpose Purpose
}

// ResultSink receives completed requests. PublishAvatar may block
// until ctx is done.
type ResultSink interface {
	PublishAvatar(ctx context.Context, result Result) error
}

// Worker runs cache lookups away from the consumer.
type Worker struct {
	cache    *Cache
	sink     ResultSink
	logger   *slog.Logger
	requests chan Request
}

// NewWorker returns a worker with a request queue of queueSize.
func NewWorker(cache *Cache, sink ResultSink, queueSize int, logger *slog.Logger) *Worker {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Worker{
		cache:    cache,
		sink:     sink,
		logger:   logger,
		requests: make(chan Request, queueSize),
	}
}

// Submit queues request without blocking. It returns false, and logs,
// when the queue is full.
func (w *Worker) Submit(request Request) bool {
	select {
	case w.requests <- request:
		return true
	default:
		w.logger.Warn("avatar request queue full, dropping request",
			"user_id", request.Key.UserID,
			"purpose", request.Purpose,
		)
		return false
	}
}

// Run serves queued requests until ctx is cancelled, then waits for
// requests already started. Each request runs in its own goroutine so
// requests for the same key share one download.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case request := <-w.requests:
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.resolve(ctx, request)
			}()
		}
	}
}

func (w *Worker) resolve(ctx context.Context, request Request) {
	path, ok := w.cache.Get(ctx, request.Key.UserID, request.Key.Ref)
	result := Result{
		Key:     request.Key,
		Path:    path,
		OK:      ok,
		Purpose: request.Purpose,
	}
	if err := w.sink.PublishAvatar(ctx, result); err != nil {
		w.logger.Debug("avatar result not delivered",
			"user_id", request.Key.UserID,
			"error", err,
		)
	}
}
