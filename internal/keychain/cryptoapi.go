// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package keychain

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"

	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// CryptoApi exposes the three operation pairs spec.md §4.4 names: asymmetric
// encrypt/decrypt against a peer's box public key, ECDSA sign/verify over
// secp256k1, and symmetric encrypt/decrypt with an embedded random nonce
// for at-rest or same-identity use.
type CryptoApi struct {
	keys *Keys
}

// NewCryptoApi builds a CryptoApi over an identity's Keys. Encrypt/Decrypt
// and Sign require keys.HasSecretHalf(); Verify never does.
func NewCryptoApi(keys *Keys) *CryptoApi {
	return &CryptoApi{keys: keys}
}

// Encrypt seals message for peerPublicKey using this identity's box secret
// key and a fresh random nonce, returning nonce||ciphertext.
func (c *CryptoApi) Encrypt(message []byte, peerPublicKey *[32]byte) ([]byte, error) {
	if !c.keys.HasSecretHalf() {
		return nil, onecoreerrors.ErrKeyNotLoaded
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: generate nonce", err)
	}
	out := box.Seal(nonce[:], message, &nonce, peerPublicKey, c.keys.secretKey)
	return out, nil
}

// Decrypt opens a nonce||ciphertext blob produced by the peer's Encrypt
// call against this identity's box secret key.
func (c *CryptoApi) Decrypt(nonceAndCiphertext []byte, peerPublicKey *[32]byte) ([]byte, error) {
	if !c.keys.HasSecretHalf() {
		return nil, onecoreerrors.ErrKeyNotLoaded
	}
	if len(nonceAndCiphertext) < 24 {
		return nil, onecoreerrors.ErrDecryptFailed
	}
	var nonce [24]byte
	copy(nonce[:], nonceAndCiphertext[:24])
	plain, ok := box.Open(nil, nonceAndCiphertext[24:], &nonce, peerPublicKey, c.keys.secretKey)
	if !ok {
		return nil, onecoreerrors.ErrDecryptFailed
	}
	return plain, nil
}

// PrecomputeShared derives the box Diffie-Hellman shared secret between
// this identity and peerPublicKey, for internal/handshake to use as the
// session key basis before an EncryptionPlugin is installed (spec.md §4.6).
func (c *CryptoApi) PrecomputeShared(peerPublicKey [32]byte) ([32]byte, error) {
	if !c.keys.HasSecretHalf() {
		return [32]byte{}, onecoreerrors.ErrKeyNotLoaded
	}
	var shared [32]byte
	box.Precompute(&shared, &peerPublicKey, c.keys.secretKey)
	return shared, nil
}

// Sign produces a DER-encoded ECDSA signature over sha256(message) using
// this identity's secp256k1 secret key.
func (c *CryptoApi) Sign(message []byte) ([]byte, error) {
	if !c.keys.HasSecretHalf() {
		return nil, onecoreerrors.ErrKeyNotLoaded
	}
	digest := sha256.Sum256(message)
	sig := ecdsa.Sign(c.keys.secretSignKey, digest[:])
	return sig.Serialize(), nil
}

// Verify checks a DER-encoded ECDSA signature over sha256(message) against
// the public sign key in keys (no secret half required).
func Verify(keys *Keys, message, signature []byte) (bool, error) {
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: parse signature", err)
	}
	pub, err := parsePublicSignKey(keys.PublicSignKey)
	if err != nil {
		return false, err
	}
	digest := sha256.Sum256(message)
	return sig.Verify(digest[:], pub), nil
}

// EncryptAndEmbedNonce seals message under a shared secretbox key with a
// fresh random nonce, returning nonce||ciphertext. Used for symmetric
// at-rest encryption where no peer box key is involved (spec.md §4.4).
func EncryptAndEmbedNonce(message []byte, key *[32]byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: generate nonce", err)
	}
	return secretbox.Seal(nonce[:], message, &nonce, key), nil
}

// DecryptWithEmbeddedNonce reverses EncryptAndEmbedNonce.
func DecryptWithEmbeddedNonce(nonceAndCiphertext []byte, key *[32]byte) ([]byte, error) {
	if len(nonceAndCiphertext) < 24 {
		return nil, onecoreerrors.ErrDecryptFailed
	}
	var nonce [24]byte
	copy(nonce[:], nonceAndCiphertext[:24])
	plain, ok := secretbox.Open(nil, nonceAndCiphertext[24:], &nonce, key)
	if !ok {
		return nil, onecoreerrors.ErrDecryptFailed
	}
	return plain, nil
}

func parsePublicSignKey(compressed [33]byte) (*btcec.PublicKey, error) {
	pub, err := btcec.ParsePubKey(compressed[:])
	if err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: parse public sign key", err)
	}
	return pub, nil
}
