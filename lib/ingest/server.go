// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chotop-overlay/chotop/lib/config"
	"github.com/chotop-overlay/chotop/lib/protocol"
)

// DefaultMaxMessageSize bounds one websocket message. A CHANNEL_JOINED
// for a full channel is a few tens of kilobytes.
const DefaultMaxMessageSize = 1 << 20

// writeWait bounds control frame writes.
const writeWait = 5 * time.Second

// EventSink receives parsed events.
type EventSink interface {
	// PublishEvent blocks until the event is accepted or ctx ends.
	PublishEvent(ctx context.Context, event protocol.Event) error

	// TryPublishEvent accepts the event only if it can do so at once.
	TryPublishEvent(event protocol.Event) bool
}

// Config configures a Server.
type Config struct {
	Host string
	Port int

	// PingInterval is the keepalive ping period.
	PingInterval time.Duration

	// IdleTimeout ends a connection that sent nothing, not even a
	// pong, for this long. Zero disables read deadlines.
	IdleTimeout time.Duration

	// MaxMessageSize bounds one message. Zero means
	// DefaultMaxMessageSize.
	MaxMessageSize int64
}

// ConfigFrom converts the ingest section of the daemon configuration.
func ConfigFrom(section config.IngestConfig) Config {
	return Config{
		Host:         section.Host,
		Port:         section.Port,
		PingInterval: section.PingInterval.Std(),
		IdleTimeout:  section.IdleTimeout.Std(),
	}
}

// Server accepts plugin connections.
type Server struct {
	config   Config
	sink     EventSink
	logger   *slog.Logger
	upgrader websocket.Upgrader

	ready chan struct{}

	mu      sync.Mutex
	addr    net.Addr
	closing bool

	connections sync.WaitGroup
}

// NewServer returns a server that will listen on cfg.Host:cfg.Port.
func NewServer(cfg Config, sink EventSink, logger *slog.Logger) *Server {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		config: cfg,
		sink:   sink,
		logger: logger,
		upgrader: websocket.Upgrader{
			// The listener is loopback-only and the plugin runs inside
			// the chat client's web origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ready: make(chan struct{}),
	}
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Serve listens and serves until ctx is cancelled. Open connections
// are closed on cancellation and Serve returns once they have all
// ended. An error is returned only when the listener cannot be bound.
func (s *Server) Serve(ctx context.Context) error {
	address := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", address, err)
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()

	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
	}

	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	s.logger.Info("websocket server listening", "address", listener.Addr().String())
	close(s.ready)

	err = httpServer.Serve(listener)

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.connections.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving %s: %w", address, err)
	}
	return nil
}

// ServeHTTP upgrades the request and runs the connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.connections.Add(1)
	s.mu.Unlock()
	defer s.connections.Done()

	connection := newConnection(conn, s.config, s.sink, s.logger.With(
		"connection", uuid.NewString(),
		"remote", r.RemoteAddr,
	))
	connection.run(r.Context())
}
