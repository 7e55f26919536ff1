// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

// Package presence reconciles protocol events into the set of users
// currently in the voice channel.
//
// Each user is either absent or present. Events are applied strictly
// in arrival order:
//
//   - ChannelJoined replaces the whole set (full resync).
//   - ChannelLeft clears the set.
//   - VoiceStateUpdate with an absent or empty channel removes that one
//     user. Otherwise a present user is merged field by field (a field
//     the update carries overwrites, an absent field is kept), and an
//     unknown user is created when the update carries a username, with
//     every flag the update omits defaulting to false. An update for an
//     unknown user without a username is ignored.
//
// Visible is recomputed after every mutation and is true exactly when
// the set is non-empty. Presenters use it, not their own contents, to
// decide whether to show anything.
//
// A Store has a single owner and no locking.
package presence
