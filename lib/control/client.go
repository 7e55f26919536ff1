// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// DefaultTimeout bounds a whole request when ctx has no deadline.
const DefaultTimeout = 5 * time.Second

// ErrNotAcknowledged is returned when the server closed the connection
// without answering "OK": it rejected the command.
var ErrNotAcknowledged = errors.New("control command not acknowledged")

// Client sends commands to a running daemon.
type Client struct {
	SocketPath string

	// Timeout applies when ctx has no deadline. Zero means
	// DefaultTimeout.
	Timeout time.Duration
}

// NewClient returns a client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{SocketPath: socketPath}
}

// Send delivers command and waits for the acknowledgment.
func (c *Client) Send(ctx context.Context, command Command) error {
	data, err := Encode(command)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", command.Kind, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", c.SocketPath)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.SocketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("sending %s: %w", command.Kind, err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		if err := unixConn.CloseWrite(); err != nil {
			return fmt.Errorf("closing write side: %w", err)
		}
	}

	reply, err := io.ReadAll(io.LimitReader(conn, 64))
	if err != nil {
		return fmt.Errorf("reading acknowledgment: %w", err)
	}
	if string(reply) != Acknowledgment {
		return ErrNotAcknowledged
	}
	return nil
}
