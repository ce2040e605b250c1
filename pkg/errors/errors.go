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

// Package errors defines the stable error taxonomy used throughout the
// OneCore codebase (storage, CRDT merge, crypto, transport, pairing, and
// Chum sync), so that every layer reports failures with the same kind codes
// instead of ad-hoc sentinel values.
package errors

import (
	"errors"
	"fmt"
)

// Kind is a stable, comparable error classification. Callers should branch
// on Kind (via Is/KindOf) rather than on error string contents.
type Kind string

const (
	KindNotFound              Kind = "not_found"
	KindHashMismatch          Kind = "hash_mismatch"
	KindCodecError            Kind = "codec_error"
	KindDecryptFailed         Kind = "decrypt_failed"
	KindNonceExhausted        Kind = "nonce_exhausted"
	KindKeyNotLoaded          Kind = "key_not_loaded"
	KindWrongSecret           Kind = "wrong_secret"
	KindHasDefaultKeys        Kind = "has_default_keys"
	KindUnknownToken          Kind = "unknown_token"
	KindTokenExpired          Kind = "token_expired"
	KindWrongPerson           Kind = "wrong_person"
	KindIdentityExchangeFailed Kind = "identity_exchange_failed"
	KindProtocolVersionMismatch Kind = "protocol_version_mismatch"
	KindTimeout               Kind = "timeout"
	KindQueueFull             Kind = "queue_full"
	KindConnectionClosed      Kind = "connection_closed"
	KindCycleDetected         Kind = "cycle_detected"
	KindIdMismatch            Kind = "id_mismatch"
	KindProtocolError         Kind = "protocol_error"
)

// Error carries a Kind alongside the usual message/wrapped-cause pair.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, ErrNotFound) to work by comparing kinds when
// the target is itself an *Error, such as one of the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, walking the Unwrap chain, and reports
// whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// =====================
// Storage & codec errors (spec.md §4.1, §4.3)
// =====================

var (
	// ErrNotFound is returned when an object, BLOB, CLOB, or id-object hash
	// is not present in the store. In the Chum protocol the exporter
	// reports it non-fatally; in setAccessForOneObject it is a normal
	// "no previous version" signal, never raised as a panic.
	ErrNotFound = New(KindNotFound, "not found")

	// ErrHashMismatch means a read object's bytes do not hash to the
	// filename/hash it was requested or stored under. Fatal to the current
	// session: it indicates corruption or a malicious peer.
	ErrHashMismatch = New(KindHashMismatch, "content does not match its hash")

	// ErrCodecError covers any violation of the canonical microdata recipe:
	// unknown type tag, wrong collection kind, non-canonical byte sequence.
	ErrCodecError = New(KindCodecError, "canonical codec violation")

	// ErrCycleDetected is returned when writing a version node whose
	// previous-pointers would close a cycle in the version tree.
	ErrCycleDetected = New(KindCycleDetected, "version tree cycle detected")

	// ErrIdMismatch is returned when a write targets an existing ID-hash but
	// the new object's identity fields hash to a different ID-hash. spec.md
	// §9 Open Questions resolves the ambiguous STORE_AS.MERGE case this way
	// rather than silently creating a new ID-object.
	ErrIdMismatch = New(KindIdMismatch, "identity fields do not match the existing id-hash")
)

// =====================
// Crypto & keychain errors (spec.md §4.4)
// =====================

var (
	// ErrKeyNotLoaded is returned when a CryptoApi operation needs a secret
	// key half that hasn't been decrypted (master key locked, or the Keys
	// object has no secret half on this host).
	ErrKeyNotLoaded = New(KindKeyNotLoaded, "key not loaded")

	// ErrDecryptFailed covers any authenticated-decryption failure: wrong
	// key, tampered ciphertext, or wrong passphrase during master-key unlock.
	ErrDecryptFailed = New(KindDecryptFailed, "decryption failed")

	// ErrWrongSecret is returned by MasterKey.ChangeSecret when the supplied
	// old passphrase fails to decrypt the current master key.
	ErrWrongSecret = New(KindWrongSecret, "wrong secret")

	// ErrHasDefaultKeys is returned when creating a second default keypair
	// for an identity that already has one.
	ErrHasDefaultKeys = New(KindHasDefaultKeys, "identity already has default keys")

	// ErrNonceExhausted is returned by the encryption pipeline plugin when
	// its nonce counter approaches 2^53 and must not wrap.
	ErrNonceExhausted = New(KindNonceExhausted, "nonce counter exhausted")
)

// =====================
// Pairing & handshake errors (spec.md §4.6)
// =====================

var (
	// ErrUnknownToken is returned when a pairing token is not in the active
	// invitations table (never issued, already consumed, or already expired
	// and swept).
	ErrUnknownToken = New(KindUnknownToken, "unknown pairing token")

	// ErrTokenExpired is returned when a token is found but its expiry time
	// has already passed.
	ErrTokenExpired = New(KindTokenExpired, "pairing token expired")

	// ErrWrongPerson is returned when a token is redeemed by a connection
	// that does not match the person the invitation was bound to.
	ErrWrongPerson = New(KindWrongPerson, "token redeemed by the wrong person")

	// ErrIdentityExchangeFailed covers any failure of the identity-exchange
	// step following a successful handshake (malformed identity object,
	// missing keys, certification failure).
	ErrIdentityExchangeFailed = New(KindIdentityExchangeFailed, "identity exchange failed")
)

// =====================
// Protocol & transport errors (spec.md §4.5, §4.7)
// =====================

var (
	// ErrProtocolVersionMismatch terminates a Chum handshake when the
	// peer's GET_PROTOCOL_VERSION reply does not match params.ProtocolVersion.
	ErrProtocolVersionMismatch = New(KindProtocolVersionMismatch, "protocol version mismatch")

	// ErrProtocolError covers fragmentation/framing sequencing violations:
	// a start sentinel received twice before an end, non-sentinel text
	// during fragmentation, or an unexpected message shape.
	ErrProtocolError = New(KindProtocolError, "protocol error")

	// ErrConnectionClosed is delivered to every pending waiter when a
	// Connection closes; it carries the close reason as Cause.
	ErrConnectionClosed = New(KindConnectionClosed, "connection closed")
)

// =====================
// Concurrency primitive errors (spec.md §4.11)
// =====================

var (
	// ErrTimeout is returned by any blocking wait whose deadline elapses
	// before an element/message/condition became available.
	ErrTimeout = New(KindTimeout, "timeout")

	// ErrQueueFull is the back-pressure signal raised by BlockingQueue.Add
	// when the queue is at maxQueueLength and has no waiting consumer.
	ErrQueueFull = New(KindQueueFull, "queue full")
)

// ConnectionClosed builds an ErrConnectionClosed carrying reason as the
// wrapped cause, so callers can still errors.Is(err, ErrConnectionClosed)
// while recovering the specific reason via errors.Unwrap.
func ConnectionClosed(reason error) *Error {
	return Wrap(KindConnectionClosed, "connection closed", reason)
}
