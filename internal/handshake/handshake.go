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

// Package handshake implements the authenticated key exchange spec.md
// §4.6 runs before installing a connection's EncryptionPlugin: each side
// proves knowledge of a long-term box secret key, then both derive the
// same session key via nacl/box.Precompute over the peer's long-term
// public key and their own long-term secret key — a Diffie-Hellman shared
// secret, not a fresh ephemeral exchange, matching the teacher-grounded
// choice to keep the primitive set to what nacl/box already provides.
package handshake

import (
	"crypto/rand"
	"io"

	"golang.org/x/crypto/nacl/box"

	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

const challengeSize = 32

// ChallengeMessage is the first message either side sends: its claimed
// long-term public key plus a random challenge the peer must echo back
// sealed under the shared key, proving it holds the matching secret key.
type ChallengeMessage struct {
	PublicKey [32]byte
	Challenge [challengeSize]byte
}

// ResponseMessage answers a ChallengeMessage: the peer's own challenge for
// the initiator to answer in turn, plus the sealed echo of the original
// challenge.
type ResponseMessage struct {
	Challenge    [challengeSize]byte
	SealedEcho   []byte
}

// Session is the shared session key both sides hold once the handshake
// completes, ready to construct an EncryptionPlugin from.
type Session struct {
	SharedKey [32]byte
}

// NewChallenge generates a random challenge.
func NewChallenge() ([challengeSize]byte, error) {
	var c [challengeSize]byte
	if _, err := io.ReadFull(rand.Reader, c[:]); err != nil {
		return c, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "handshake: generate challenge", err)
	}
	return c, nil
}

// Precompute derives the DH shared key between localSecretKey and
// remotePublicKey.
func Precompute(localSecretKey, remotePublicKey *[32]byte) [32]byte {
	var shared [32]byte
	box.Precompute(&shared, remotePublicKey, localSecretKey)
	return shared
}

// SealChallenge seals a peer's challenge under the precomputed shared key
// with a fresh nonce, proving the sealer holds the matching secret key.
func SealChallenge(sharedKey *[32]byte, challenge [challengeSize]byte, nonce *[24]byte) []byte {
	return box.SealAfterPrecomputation(nonce[:], challenge[:], nonce, sharedKey)
}

// OpenChallenge reverses SealChallenge and reports whether the opened
// plaintext matches the original challenge this side issued.
func OpenChallenge(sharedKey *[32]byte, sealed []byte, expected [challengeSize]byte) (bool, error) {
	if len(sealed) < 24 {
		return false, onecoreerrors.ErrDecryptFailed
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := box.OpenAfterPrecomputation(nil, sealed[24:], &nonce, sharedKey)
	if !ok {
		return false, onecoreerrors.ErrDecryptFailed
	}
	if len(plain) != challengeSize {
		return false, nil
	}
	for i := range plain {
		if plain[i] != expected[i] {
			return false, nil
		}
	}
	return true, nil
}

// RandomNonce generates a fresh 24-byte nonce for SealChallenge.
func RandomNonce() (*[24]byte, error) {
	var n [24]byte
	if _, err := io.ReadFull(rand.Reader, n[:]); err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "handshake: generate nonce", err)
	}
	return &n, nil
}
