// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.
//
// The OneCore library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The OneCore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the OneCore library. If not, see <http://www.gnu.org/licenses/>.

// Package common holds the small set of value types shared by every layer of
// the store: the content hash and the reference-variant tag. Nothing in this
// package talks to disk or the network.
package common

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the length in bytes of a SHA-256 digest.
const HashSize = 32

// Hash is the content address of an object, a BLOB, a CLOB, or an ID-object.
// It is always the SHA-256 of the referenced bytes.
type Hash [HashSize]byte

// ZeroHash is the hash with all bytes zero. It never names a real object and
// is used as a sentinel for "no previous version".
var ZeroHash Hash

// String renders the hash as 64 lowercase hex digits, the canonical form
// used on the wire and in the objects/ directory layout.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Less orders hashes lexicographically by byte value, which is the order
// spec.md's CRDT tie-break rules call "greater hash".
func (h Hash) Less(other Hash) bool {
	for i := range h {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

// HashFromHex parses 64 hex digits into a Hash. It rejects any string that is
// not exactly the canonical lowercase encoding, matching the codec's refusal
// to accept non-canonical byte sequences.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	if len(s) != HashSize*2 {
		return h, fmt.Errorf("hash: wrong length %d, want %d", len(s), HashSize*2)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("hash: %w", err)
	}
	if hex.EncodeToString(b) != s {
		return h, fmt.Errorf("hash: %q is not canonical lowercase hex", s)
	}
	copy(h[:], b)
	return h, nil
}

// MustHashFromHex is HashFromHex but panics on error; useful for constants in
// tests and for pinned test vectors.
func MustHashFromHex(s string) Hash {
	h, err := HashFromHex(s)
	if err != nil {
		panic(err)
	}
	return h
}

// ReferenceKind identifies which of the four reference variants (spec.md §3)
// a hash-valued field carries. The canonical microdata tags each reference
// with one of these via the `data-type` attribute.
type ReferenceKind uint8

const (
	// RefObject is a reference to another object's content hash.
	RefObject ReferenceKind = iota
	// RefID is a reference to an ID-hash (a versioned object's identity).
	RefID
	// RefBlob is a reference to a BLOB's content hash.
	RefBlob
	// RefCLOB is a reference to a CLOB's content hash.
	RefCLOB
)

// String renders the reference kind as the microdata data-type attribute value.
func (k ReferenceKind) String() string {
	switch k {
	case RefObject:
		return "obj"
	case RefID:
		return "id"
	case RefBlob:
		return "blob"
	case RefCLOB:
		return "clob"
	default:
		return "unknown"
	}
}

// ParticipatesInReverseMap reports whether references of this kind are
// entered into the reverse-map index (spec.md §3 invariant: only
// reference-to-object / reference-to-id entries participate).
func (k ReferenceKind) ParticipatesInReverseMap() bool {
	return k == RefObject || k == RefID
}
