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

// Package keychain protects every secret key half under one master key
// derived from a passphrase (spec.md §4.4). The master key itself is
// generated once and stored encrypted: a random salt picked at creation
// time feeds scrypt to derive a key-encryption key, which wraps the master
// key with nacl/secretbox. Losing the passphrase loses every secret key
// the keychain protects; there is no recovery path, matching the teacher's
// "fail closed" posture for credential material.
package keychain

import (
	"crypto/rand"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

const (
	saltFileName   = "master.salt"
	keyFileName    = "master.key"
	masterKeySize  = 32
	saltSize       = 32
	scryptN        = 1 << 15
	scryptR        = 8
	scryptP        = 1
	nonceSize      = 24
)

// MasterKey is the unlocked 32-byte symmetric key protecting every secret
// key half in a keychain directory. It only ever exists in memory while
// unlocked; Lock zeroes it.
type MasterKey struct {
	dir     string
	key     *[masterKeySize]byte
	unlocked bool
}

// Open prepares a MasterKey bound to dir without unlocking it. If dir has
// no existing master key material, Create must be called first.
func Open(dir string) *MasterKey {
	return &MasterKey{dir: dir}
}

// Exists reports whether master key material has already been created in
// dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, keyFileName))
	return err == nil
}

// Create generates a fresh random master key, encrypts it under a key
// derived from passphrase via scrypt, and writes the salt and ciphertext
// to dir. It fails if master key material already exists there.
func Create(dir string, passphrase []byte) (*MasterKey, error) {
	if Exists(dir) {
		return nil, onecoreerrors.New(onecoreerrors.KindHasDefaultKeys, "keychain: master key already exists")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: create dir", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: generate salt", err)
	}

	var mk [masterKeySize]byte
	if _, err := io.ReadFull(rand.Reader, mk[:]); err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: generate master key", err)
	}

	if err := writeWrapped(dir, salt, passphrase, mk[:]); err != nil {
		return nil, err
	}

	return &MasterKey{dir: dir, key: &mk, unlocked: true}, nil
}

// Unlock derives the key-encryption key from passphrase and the stored
// salt, then decrypts the stored master key. Wrong passphrase (or tampered
// ciphertext) fails DecryptFailed.
func Unlock(dir string, passphrase []byte) (*MasterKey, error) {
	salt, err := os.ReadFile(filepath.Join(dir, saltFileName))
	if err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindKeyNotLoaded, "keychain: read salt", err)
	}
	blob, err := os.ReadFile(filepath.Join(dir, keyFileName))
	if err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindKeyNotLoaded, "keychain: read master key file", err)
	}

	kek, err := deriveKEK(passphrase, salt)
	if err != nil {
		return nil, err
	}

	if len(blob) < nonceSize {
		return nil, onecoreerrors.ErrDecryptFailed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], blob[:nonceSize])

	plain, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, kek)
	if !ok || len(plain) != masterKeySize {
		return nil, onecoreerrors.ErrDecryptFailed
	}

	var mk [masterKeySize]byte
	copy(mk[:], plain)
	return &MasterKey{dir: dir, key: &mk, unlocked: true}, nil
}

// ChangeSecret re-wraps the already-unlocked master key under a new
// passphrase. Fails WrongSecret if oldPassphrase does not match the
// passphrase the key is currently unlocked under (checked by deriving the
// old key-encryption key and opening the stored master-key file with it).
func (m *MasterKey) ChangeSecret(oldPassphrase, newPassphrase []byte) error {
	if !m.unlocked {
		return onecoreerrors.ErrKeyNotLoaded
	}
	salt, err := os.ReadFile(filepath.Join(m.dir, saltFileName))
	if err != nil {
		return onecoreerrors.Wrap(onecoreerrors.KindKeyNotLoaded, "keychain: read salt", err)
	}
	oldKEK, err := deriveKEK(oldPassphrase, salt)
	if err != nil {
		return err
	}
	blob, err := os.ReadFile(filepath.Join(m.dir, keyFileName))
	if err != nil {
		return onecoreerrors.Wrap(onecoreerrors.KindKeyNotLoaded, "keychain: read master key file", err)
	}
	if len(blob) < nonceSize {
		return onecoreerrors.ErrWrongSecret
	}
	var nonce [nonceSize]byte
	copy(nonce[:], blob[:nonceSize])
	if _, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, oldKEK); !ok {
		return onecoreerrors.ErrWrongSecret
	}

	newSalt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, newSalt); err != nil {
		return onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: generate salt", err)
	}
	return writeWrapped(m.dir, newSalt, newPassphrase, m.key[:])
}

// Lock zeroes the in-memory master key. The MasterKey must not be used
// again after Lock except to Unlock it afresh.
func (m *MasterKey) Lock() {
	if m.key != nil {
		for i := range m.key {
			m.key[i] = 0
		}
	}
	m.unlocked = false
}

// Encrypt wraps plaintext (a secret key half) under the master key with a
// fresh random nonce, returning nonce||ciphertext.
func (m *MasterKey) Encrypt(plaintext []byte) ([]byte, error) {
	if !m.unlocked {
		return nil, onecoreerrors.ErrKeyNotLoaded
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: generate nonce", err)
	}
	out := secretbox.Seal(nonce[:], plaintext, &nonce, m.key)
	return out, nil
}

// Decrypt reverses Encrypt. Fails DecryptFailed on tampered ciphertext.
func (m *MasterKey) Decrypt(nonceAndCiphertext []byte) ([]byte, error) {
	if !m.unlocked {
		return nil, onecoreerrors.ErrKeyNotLoaded
	}
	if len(nonceAndCiphertext) < nonceSize {
		return nil, onecoreerrors.ErrDecryptFailed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], nonceAndCiphertext[:nonceSize])
	plain, ok := secretbox.Open(nil, nonceAndCiphertext[nonceSize:], &nonce, m.key)
	if !ok {
		return nil, onecoreerrors.ErrDecryptFailed
	}
	return plain, nil
}

func deriveKEK(passphrase, salt []byte) (*[32]byte, error) {
	derived, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: scrypt", err)
	}
	var kek [32]byte
	copy(kek[:], derived)
	return &kek, nil
}

func writeWrapped(dir string, salt, passphrase, masterKey []byte) error {
	kek, err := deriveKEK(passphrase, salt)
	if err != nil {
		return err
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: generate nonce", err)
	}
	blob := secretbox.Seal(nonce[:], masterKey, &nonce, kek)

	if err := os.WriteFile(filepath.Join(dir, saltFileName), salt, 0o600); err != nil {
		return onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: write salt", err)
	}
	if err := os.WriteFile(filepath.Join(dir, keyFileName), blob, 0o600); err != nil {
		return onecoreerrors.Wrap(onecoreerrors.KindCodecError, "keychain: write master key", err)
	}
	return nil
}
