// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package keychain

import (
	"crypto/rand"
	"crypto/sha256"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/refinio/onecore/common"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// Keys is one identity's public key material: a curve25519 key for
// box-based encryption and a secp256k1 key for ECDSA signatures. A Keys
// object is "complete" on a host (spec.md §3) when both secret halves are
// present, encrypted under the keychain's master key.
type Keys struct {
	PublicKey     [32]byte // nacl/box public key
	PublicSignKey [33]byte // btcec compressed public key

	secretKey     *[32]byte
	secretSignKey *btcec.PrivateKey
}

// Hash is the content hash identifying this Keys object (the ID-hash a
// PersonID/GroupID in internal/access refers to).
func (k *Keys) Hash() common.Hash {
	data := append(append([]byte{}, k.PublicKey[:]...), k.PublicSignKey[:]...)
	return sha256.Sum256(data)
}

// Generate creates a fresh Keys pair with both secret halves present in
// memory (not yet persisted).
func Generate() (*Keys, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: generate box key", err)
	}
	signPriv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: generate sign key", err)
	}

	k := &Keys{secretKey: priv, secretSignKey: signPriv}
	k.PublicKey = *pub
	copy(k.PublicSignKey[:], signPriv.PubKey().SerializeCompressed())
	return k, nil
}

// HasSecretHalf reports whether this Keys value carries its secret key
// material in memory (loaded via Store.Load, or just produced by Generate).
func (k *Keys) HasSecretHalf() bool {
	return k.secretKey != nil && k.secretSignKey != nil
}

// Store persists Keys objects for one identity under dir, each identified
// by its content hash, with secret halves wrapped under a MasterKey.
type Store struct {
	dir string
	mk  *MasterKey
}

// NewStore creates a Keys store rooted at dir, using mk to wrap/unwrap
// secret halves. mk must already be unlocked for Save/Load of secret
// material to succeed; public-only operations work regardless.
func NewStore(dir string, mk *MasterKey) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: create keys dir", err)
	}
	return &Store{dir: dir, mk: mk}, nil
}

func (s *Store) secretPath(hash common.Hash) string {
	return filepath.Join(s.dir, hash.String()+".secret")
}

// Save writes k's secret halves, encrypted under the master key, keyed by
// k.Hash(). Fails KeyNotLoaded if k has no secret halves in memory, or if
// the master key is locked.
func (s *Store) Save(k *Keys) error {
	if !k.HasSecretHalf() {
		return onecoreerrors.ErrKeyNotLoaded
	}
	plain := make([]byte, 0, 32+btcec.PrivKeyBytesLen)
	plain = append(plain, k.secretKey[:]...)
	plain = append(plain, k.secretSignKey.Serialize()...)

	blob, err := s.mk.Encrypt(plain)
	if err != nil {
		return err
	}
	return os.WriteFile(s.secretPath(k.Hash()), blob, 0o600)
}

// Load reads back the secret halves for the Keys object whose public
// halves are k (k.PublicKey/PublicSignKey must already be set; Load fills
// in the secret fields). Fails KeyNotLoaded if no secret file exists for
// k.Hash(), or DecryptFailed if the master key cannot open it.
func (s *Store) Load(k *Keys) error {
	secretKey, signPriv, err := s.loadSecretHalves(k.Hash())
	if err != nil {
		return err
	}
	k.secretKey = secretKey
	k.secretSignKey = signPriv
	return nil
}

func (s *Store) loadSecretHalves(hash common.Hash) (*[32]byte, *btcec.PrivateKey, error) {
	blob, err := os.ReadFile(s.secretPath(hash))
	if os.IsNotExist(err) {
		return nil, nil, onecoreerrors.ErrKeyNotLoaded
	}
	if err != nil {
		return nil, nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: read secret key file", err)
	}
	plain, err := s.mk.Decrypt(blob)
	if err != nil {
		return nil, nil, err
	}
	if len(plain) != 32+btcec.PrivKeyBytesLen {
		return nil, nil, onecoreerrors.ErrDecryptFailed
	}

	var secretKey [32]byte
	copy(secretKey[:], plain[:32])
	signPriv, _ := btcec.PrivKeyFromBytes(plain[32:])
	return &secretKey, signPriv, nil
}

const selfPointerFileName = "self"

// SaveSelf persists k like Save, and additionally records its hash as this
// store's "self" identity, so a later process that has not yet derived
// k's public halves can recover them with LoadSelf.
func (s *Store) SaveSelf(k *Keys) error {
	if err := s.Save(k); err != nil {
		return err
	}
	hash := k.Hash()
	return os.WriteFile(filepath.Join(s.dir, selfPointerFileName), []byte(hash.String()), 0o600)
}

// LoadSelf recovers the identity previously written by SaveSelf, deriving
// both public halves back from the decrypted secret material rather than
// requiring the caller to already know them.
func (s *Store) LoadSelf() (*Keys, error) {
	pointer, err := os.ReadFile(filepath.Join(s.dir, selfPointerFileName))
	if os.IsNotExist(err) {
		return nil, onecoreerrors.ErrKeyNotLoaded
	}
	if err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: read self pointer", err)
	}
	hash, err := common.HashFromHex(string(pointer))
	if err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: malformed self pointer", err)
	}

	secretKey, signPriv, err := s.loadSecretHalves(hash)
	if err != nil {
		return nil, err
	}

	k := &Keys{secretKey: secretKey, secretSignKey: signPriv}
	pub, err := curve25519PublicFromSecret(secretKey)
	if err != nil {
		return nil, err
	}
	k.PublicKey = pub
	copy(k.PublicSignKey[:], signPriv.PubKey().SerializeCompressed())
	return k, nil
}

// curve25519PublicFromSecret derives a box public key from its secret half,
// the same scalar-multiplication nacl/box.GenerateKey itself performs, so
// LoadSelf can recover a key pair from disk without storing the public
// half separately.
func curve25519PublicFromSecret(secretKey *[32]byte) ([32]byte, error) {
	var pub [32]byte
	out, err := curve25519.X25519(secretKey[:], curve25519.Basepoint)
	if err != nil {
		return pub, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: derive public key", err)
	}
	copy(pub[:], out)
	return pub, nil
}

