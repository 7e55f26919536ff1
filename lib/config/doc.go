// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides the configuration value threaded through
// every chotop component.
//
// Nothing in chotop reads process-wide defaults: the daemon builds one
// [Config], validates it, and passes the relevant section to each
// constructor. [Default] supplies every value, so a configuration file
// only needs the fields it changes.
//
// Files are loaded by [LoadFile], which picks the decoder from the
// extension:
//
//   - .yaml, .yml: YAML
//   - .toml: TOML (the format of the overlay's historical config.toml)
//   - .json, .jsonc: JSON with comments and trailing commas
//
// ${VAR} and ${VAR:-default} patterns in path fields are expanded after
// loading. [Watch] reloads a file when it changes on disk so the daemon
// can apply presentation settings without a restart.
//
// This package depends on no other chotop packages except lib/clock.
package config
