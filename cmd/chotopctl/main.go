// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Chotopctl talks to a running chotop overlay. It sends control
// commands over the overlay's unix socket and can stand in for the
// chat-client plugin by streaming protocol messages to the websocket.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRoot(os.Stdout).Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
