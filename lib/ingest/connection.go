// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/chotop-overlay/chotop/lib/netutil"
	"github.com/chotop-overlay/chotop/lib/protocol"
)

// dropLogInterval and dropLogBurst limit warnings about dropped
// messages to a burst of five, then one per second.
const (
	dropLogInterval = time.Second
	dropLogBurst    = 5
)

// errBinaryFrame ends a connection that sent a binary message.
var errBinaryFrame = errors.New("binary frame")

// connection is one plugin session.
type connection struct {
	conn   *websocket.Conn
	config Config
	sink   EventSink
	logger *slog.Logger

	dropLimiter *rate.Limiter
	suppressed  int

	forwarded int
	dropped   int
}

func newConnection(conn *websocket.Conn, cfg Config, sink EventSink, logger *slog.Logger) *connection {
	return &connection{
		conn:        conn,
		config:      cfg,
		sink:        sink,
		logger:      logger,
		dropLimiter: rate.NewLimiter(rate.Every(dropLogInterval), dropLogBurst),
	}
}

// run reads until the connection ends, then reports ChannelLeft.
func (c *connection) run(ctx context.Context) {
	c.logger.Info("plugin connected")

	done := make(chan struct{})
	var background sync.WaitGroup
	background.Add(2)

	// Close the socket on shutdown so the blocked read returns.
	go func() {
		defer background.Done()
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer background.Done()
		c.keepalive(done)
	}()

	reason := c.read(ctx)
	close(done)
	c.conn.Close()
	background.Wait()

	switch {
	case ctx.Err() != nil:
		c.logger.Info("plugin connection closed by shutdown",
			"forwarded", c.forwarded, "dropped", c.dropped)
	case netutil.IsExpectedCloseError(reason):
		c.logger.Info("plugin disconnected",
			"forwarded", c.forwarded, "dropped", c.dropped)
	default:
		c.logger.Warn("plugin connection ended",
			"reason", reason, "forwarded", c.forwarded, "dropped", c.dropped)
	}

	c.leaveChannel(ctx)
}

// read forwards events until the connection fails and returns why.
func (c *connection) read(ctx context.Context) error {
	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.extendDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendDeadline()
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		c.extendDeadline()

		if messageType != websocket.TextMessage {
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "text frames only"),
				time.Now().Add(writeWait))
			return errBinaryFrame
		}

		event, err := protocol.Parse(data)
		if err != nil {
			c.drop(err, len(data))
			continue
		}

		if err := c.sink.PublishEvent(ctx, event); err != nil {
			return err
		}
		c.forwarded++
		c.logger.Debug("event forwarded", "command", event.Command())
	}
}

// extendDeadline pushes the read deadline IdleTimeout ahead.
func (c *connection) extendDeadline() {
	if c.config.IdleTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.config.IdleTimeout))
	}
}

// keepalive pings the peer until done is closed. WriteControl may run
// concurrently with the reader.
func (c *connection) keepalive(done <-chan struct{}) {
	if c.config.PingInterval <= 0 {
		<-done
		return
	}
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// drop records a message that could not be parsed. Warnings are rate
// limited; the number suppressed is reported with the next warning.
func (c *connection) drop(err error, size int) {
	c.dropped++
	if !c.dropLimiter.Allow() {
		c.suppressed++
		return
	}

	attributes := []any{"error", err, "bytes", size}
	var unknown *protocol.UnknownCommandError
	if errors.As(err, &unknown) {
		attributes = append(attributes, "command", unknown.Command)
	}
	if c.suppressed > 0 {
		attributes = append(attributes, "suppressed", c.suppressed)
		c.suppressed = 0
	}
	c.logger.Warn("dropping plugin message", attributes...)
}

// leaveChannel reports the end of the connection. It blocks like any
// other event unless the server is shutting down, in which case it
// only publishes if there is room.
func (c *connection) leaveChannel(ctx context.Context) {
	if ctx.Err() == nil {
		if err := c.sink.PublishEvent(ctx, protocol.ChannelLeft{}); err == nil {
			return
		}
	}
	if !c.sink.TryPublishEvent(protocol.ChannelLeft{}) {
		c.logger.Warn("dropped ChannelLeft for closed connection: event queue full during shutdown")
	}
}
