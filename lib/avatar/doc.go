// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package avatar downloads and caches the images shown next to voice
// channel members and notifications.
//
// A Cache maps a Key (user ID plus avatar reference) to a file in a
// private cache directory. Lookups that hit the in-memory index and
// find the file still on disk return immediately; misses download the
// image with a per-attempt timeout and bounded exponential retry. At
// most one download runs per key: concurrent callers for the same key
// wait on the same flight and share its outcome.
//
// Failure is never an error for callers. Get reports ok=false and the
// presenter falls back to the user's initials.
//
// The index lives only in memory and starts empty. Files left on disk
// by a previous process are overwritten by the first Get for their key
// rather than trusted.
//
// A Worker moves downloads off the consumer: requests are queued
// without blocking and each result is published to a ResultSink.
package avatar
