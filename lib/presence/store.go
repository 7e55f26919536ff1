// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"slices"

	"github.com/chotop-overlay/chotop/lib/avatar"
	"github.com/chotop-overlay/chotop/lib/protocol"
)

// TestChannelName is the channel shown in test mode.
const TestChannelName = "Test Channel"

// Result describes the effect of applying an event.
type Result struct {
	// Changed is true when anything a presenter shows changed.
	Changed bool

	// Fetches lists avatars to download: users that appeared, or whose
	// avatar reference changed, and have a reference.
	Fetches []avatar.Request
}

type entry struct {
	user       protocol.VoiceUser
	avatarPath string

	// joined orders users by first appearance.
	joined uint64
}

// Store holds the presence set.
type Store struct {
	users       map[string]*entry
	channelName string
	visible     bool
	testMode    bool
	sequence    uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{users: make(map[string]*entry)}
}

// Apply applies one event. Events other than ChannelJoined,
// ChannelLeft and VoiceStateUpdate do not touch the store.
func (s *Store) Apply(event protocol.Event) Result {
	var result Result
	switch e := event.(type) {
	case protocol.ChannelJoined:
		result = s.resync(e.Users, e.ChannelName)
		s.testMode = false
	case protocol.ChannelLeft:
		result = s.clear()
		s.testMode = false
	case protocol.VoiceStateUpdate:
		result = s.update(e.State)
	}
	s.visible = len(s.users) > 0
	return result
}

func (s *Store) resync(users []protocol.VoiceUser, channelName string) Result {
	previous := s.users
	s.users = make(map[string]*entry, len(users))
	s.channelName = channelName

	var result Result
	result.Changed = true
	for _, user := range users {
		// A duplicate ID later in the list replaces the earlier one.
		if existing, ok := s.users[user.UserID]; ok {
			existing.user = user
			continue
		}

		current := &entry{user: user}
		if old, ok := previous[user.UserID]; ok {
			current.joined = old.joined
			if old.user.AvatarRef() == user.AvatarRef() {
				current.avatarPath = old.avatarPath
			}
		} else {
			current.joined = s.nextSequence()
		}
		s.users[user.UserID] = current
	}

	for _, current := range s.sorted() {
		if current.avatarPath == "" && current.user.AvatarRef() != "" {
			result.Fetches = append(result.Fetches, fetchFor(current.user))
		}
	}
	return result
}

func (s *Store) clear() Result {
	changed := len(s.users) > 0 || s.channelName != ""
	s.users = make(map[string]*entry)
	s.channelName = ""
	return Result{Changed: changed}
}

func (s *Store) update(partial protocol.VoiceUserPartial) Result {
	if partial.LeavesChannel() {
		if _, ok := s.users[partial.UserID]; !ok {
			return Result{}
		}
		delete(s.users, partial.UserID)
		return Result{Changed: true}
	}

	if existing, ok := s.users[partial.UserID]; ok {
		previousRef := existing.user.AvatarRef()
		merged := merge(existing.user, partial)
		if sameUser(merged, existing.user) {
			return Result{}
		}
		existing.user = merged

		result := Result{Changed: true}
		if ref := merged.AvatarRef(); ref != previousRef {
			existing.avatarPath = ""
			if ref != "" {
				result.Fetches = append(result.Fetches, fetchFor(merged))
			}
		}
		return result
	}

	if partial.Username == nil {
		return Result{}
	}

	user := merge(protocol.VoiceUser{UserID: partial.UserID}, partial)
	s.users[user.UserID] = &entry{user: user, joined: s.nextSequence()}
	result := Result{Changed: true}
	if user.AvatarRef() != "" {
		result.Fetches = append(result.Fetches, fetchFor(user))
	}
	return result
}

// merge overwrites each field of user that partial carries.
func merge(user protocol.VoiceUser, partial protocol.VoiceUserPartial) protocol.VoiceUser {
	if partial.Username != nil {
		user.Username = *partial.Username
	}
	if partial.AvatarURL != nil {
		user.AvatarURL = protocol.String(*partial.AvatarURL)
	}
	if partial.ChannelID != nil {
		user.ChannelID = protocol.String(*partial.ChannelID)
	}
	if partial.Deaf != nil {
		user.Deaf = *partial.Deaf
	}
	if partial.Mute != nil {
		user.Mute = *partial.Mute
	}
	if partial.Streaming != nil {
		user.Streaming = *partial.Streaming
	}
	if partial.Speaking != nil {
		user.Speaking = *partial.Speaking
	}
	return user
}

// sameUser compares users by value, including the optional fields.
func sameUser(a, b protocol.VoiceUser) bool {
	return a.UserID == b.UserID &&
		a.Username == b.Username &&
		sameOptional(a.AvatarURL, b.AvatarURL) &&
		sameOptional(a.ChannelID, b.ChannelID) &&
		a.Deaf == b.Deaf &&
		a.Mute == b.Mute &&
		a.Streaming == b.Streaming &&
		a.Speaking == b.Speaking
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fetchFor(user protocol.VoiceUser) avatar.Request {
	return avatar.Request{
		Key:     avatar.Key{UserID: user.UserID, Ref: user.AvatarRef()},
		Purpose: avatar.PurposeUser,
	}
}

func (s *Store) nextSequence() uint64 {
	s.sequence++
	return s.sequence
}

// Visible reports whether the presence set is non-empty.
func (s *Store) Visible() bool { return s.visible }

// Len returns the number of present users.
func (s *Store) Len() int { return len(s.users) }

// ChannelName returns the name from the last ChannelJoined, or "" when
// the channel was left.
func (s *Store) ChannelName() string { return s.channelName }

// User returns the present user with id.
func (s *Store) User(id string) (protocol.VoiceUser, bool) {
	current, ok := s.users[id]
	if !ok {
		return protocol.VoiceUser{}, false
	}
	return current.user, true
}

// Users returns the present users in order of first appearance.
func (s *Store) Users() []protocol.VoiceUser {
	entries := s.sorted()
	users := make([]protocol.VoiceUser, len(entries))
	for index, current := range entries {
		users[index] = current.user
	}
	return users
}

// Member is a present user with its cached avatar, if any.
type Member struct {
	protocol.VoiceUser
	AvatarPath string
}

// Members returns the present users with their avatar paths, in order
// of first appearance.
func (s *Store) Members() []Member {
	entries := s.sorted()
	members := make([]Member, len(entries))
	for index, current := range entries {
		members[index] = Member{VoiceUser: current.user, AvatarPath: current.avatarPath}
	}
	return members
}

func (s *Store) sorted() []*entry {
	entries := make([]*entry, 0, len(s.users))
	for _, current := range s.users {
		entries = append(entries, current)
	}
	slices.SortFunc(entries, func(a, b *entry) int {
		switch {
		case a.joined < b.joined:
			return -1
		case a.joined > b.joined:
			return 1
		default:
			return 0
		}
	})
	return entries
}

// SetAvatar records a downloaded avatar. It is ignored, returning
// false, when the user has left or changed avatar since the download
// was requested.
func (s *Store) SetAvatar(userID, ref, path string) bool {
	current, ok := s.users[userID]
	if !ok || current.user.AvatarRef() != ref || current.avatarPath == path {
		return false
	}
	current.avatarPath = path
	return true
}

// AvatarPath returns the cached avatar of a present user, or "".
func (s *Store) AvatarPath(userID string) string {
	if current, ok := s.users[userID]; ok {
		return current.avatarPath
	}
	return ""
}

// TestMode reports whether the fake test channel is shown.
func (s *Store) TestMode() bool { return s.testMode }

// EnableTestMode replaces the set with three fake users so the overlay
// can be checked without a voice connection.
func (s *Store) EnableTestMode() Result {
	result := s.Apply(protocol.ChannelJoined{Users: TestUsers(), ChannelName: TestChannelName})
	s.testMode = true
	return result
}

// DisableTestMode leaves the fake channel; it behaves as ChannelLeft.
func (s *Store) DisableTestMode() Result {
	return s.Apply(protocol.ChannelLeft{})
}

// TestUsers returns the users shown in test mode: one speaking, one
// muted, one deafened and streaming.
func TestUsers() []protocol.VoiceUser {
	channel := protocol.String("test")
	return []protocol.VoiceUser{
		{UserID: "1", Username: "Alice", ChannelID: channel, Speaking: true},
		{UserID: "2", Username: "Bob", ChannelID: channel, Mute: true},
		{UserID: "3", Username: "Charlie", ChannelID: channel, Deaf: true, Streaming: true},
	}
}
