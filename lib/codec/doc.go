// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds chotop's CBOR configuration.
//
// JSON is the format of the websocket protocol because the browser
// plugin speaks it. CBOR is used for the local control socket between
// chotopctl and the daemon: it is self-delimiting, so a command can be
// decoded straight from the connection without a framing layer.
//
// Types that travel only over the control socket carry `cbor` tags.
// Types shared with configuration files (config.Config) carry `json`
// tags, which fxamacker/cbor reads as a fallback.
package codec
