// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/chotop-overlay/chotop/lib/codec"
)

// Acknowledgment is the reply to an accepted command.
const Acknowledgment = "OK"

// readTimeout is how long a client has to send its request after
// connecting.
const readTimeout = 5 * time.Second

// writeTimeout bounds writing the acknowledgment.
const writeTimeout = 5 * time.Second

// maxRequestSize bounds one request. A full configuration is a few
// hundred bytes.
const maxRequestSize = 64 * 1024

// CommandSink receives accepted commands. PublishControl may block
// until ctx is done.
type CommandSink interface {
	PublishControl(ctx context.Context, command Command) error
}

// Server serves the control protocol on a unix socket.
type Server struct {
	socketPath string
	sink       CommandSink
	logger     *slog.Logger
	ready      chan struct{}

	// activeConnections lets Serve wait for in-flight requests before
	// returning.
	activeConnections sync.WaitGroup
}

// NewServer creates a server that will listen on socketPath.
func NewServer(socketPath string, sink CommandSink, logger *slog.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		sink:       sink,
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the socket is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Serve accepts connections until ctx is cancelled, then waits for
// active connections and returns nil. It returns an error only when
// the socket cannot be created.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		return fmt.Errorf("restricting %s: %w", s.socketPath, err)
	}

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("control socket listening", "path", s.socketPath)
	close(s.ready)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("control accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// handleConnection processes one request. Invalid requests are logged
// and the connection is closed without a reply.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// CBOR is self-delimiting: one value is one request.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			// Connected and sent nothing.
			return
		}
		s.logger.Warn("control request unreadable", "error", err)
		return
	}

	command, err := Decode(raw)
	if err != nil {
		s.logger.Warn("control request rejected", "error", err)
		return
	}

	if err := s.sink.PublishControl(ctx, command); err != nil {
		s.logger.Warn("control command not delivered", "kind", command.Kind, "error", err)
		return
	}
	s.logger.Info("control command received", "kind", command.Kind)

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := io.WriteString(conn, Acknowledgment); err != nil {
		s.logger.Debug("failed to write acknowledgment", "error", err)
	}
}
