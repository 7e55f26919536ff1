// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package avatar

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Key identifies one cached image. Notification icons use an empty
// UserID and the icon URL as Ref.
type Key struct {
	UserID string
	Ref    string
}

// encode returns an unambiguous byte encoding of the key: each field
// is prefixed by its length, so ("1_2", "3") and ("1", "2_3") differ.
func (k Key) encode() []byte {
	buffer := make([]byte, 0, 16+len(k.UserID)+len(k.Ref))
	buffer = binary.BigEndian.AppendUint64(buffer, uint64(len(k.UserID)))
	buffer = append(buffer, k.UserID...)
	buffer = binary.BigEndian.AppendUint64(buffer, uint64(len(k.Ref)))
	buffer = append(buffer, k.Ref...)
	return buffer
}

// FileName returns the name of the key's file in the cache directory.
func (k Key) FileName() string {
	sum := blake3.Sum256(k.encode())
	return hex.EncodeToString(sum[:]) + ".png"
}
