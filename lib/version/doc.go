// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the chotop binaries.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are injected with
// -ldflags -X and default to "unknown" / "0.1.0-dev" in development
// builds:
//
//	go build -ldflags "-X github.com/chotop-overlay/chotop/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/chotop
//
// [Info] is the --version line, [Full] adds the Go toolchain and
// platform, and [UserAgent] identifies avatar downloads.
package version
