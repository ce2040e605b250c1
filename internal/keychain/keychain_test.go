// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package keychain

import (
	"bytes"
	"testing"

	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

func TestMasterKeyCreateUnlockRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mk, err := Create(dir, []byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	plain := []byte("a secret key half")
	blob, err := mk.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	mk2, err := Unlock(dir, []byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	got, err := mk2.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("Decrypt = %q, want %q", got, plain)
	}
}

func TestMasterKeyWrongPassphraseFails(t *testing.T) {
	dir := t.TempDir()
	Create(dir, []byte("right"))

	_, err := Unlock(dir, []byte("wrong"))
	if !onecoreerrors.Is(err, onecoreerrors.KindDecryptFailed) {
		t.Fatalf("expected DecryptFailed, got %v", err)
	}
}

func TestMasterKeyChangeSecret(t *testing.T) {
	dir := t.TempDir()
	mk, _ := Create(dir, []byte("old-pass"))
	blob, _ := mk.Encrypt([]byte("payload"))

	if err := mk.ChangeSecret([]byte("old-pass"), []byte("new-pass")); err != nil {
		t.Fatalf("ChangeSecret: %v", err)
	}

	if _, err := Unlock(dir, []byte("old-pass")); err == nil {
		t.Fatal("old passphrase should no longer unlock after ChangeSecret")
	}
	mk2, err := Unlock(dir, []byte("new-pass"))
	if err != nil {
		t.Fatalf("Unlock with new passphrase: %v", err)
	}
	got, err := mk2.Decrypt(blob)
	if err != nil || string(got) != "payload" {
		t.Fatalf("Decrypt after ChangeSecret = %q, %v", got, err)
	}
}

func TestCreateFailsIfAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	Create(dir, []byte("pass"))
	_, err := Create(dir, []byte("pass"))
	if !onecoreerrors.Is(err, onecoreerrors.KindHasDefaultKeys) {
		t.Fatalf("expected HasDefaultKeys, got %v", err)
	}
}

func TestKeysSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mk, _ := Create(dir, []byte("pass"))
	store, err := NewStore(t.TempDir(), mk)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	k, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := store.Save(k); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := &Keys{PublicKey: k.PublicKey, PublicSignKey: k.PublicSignKey}
	if loaded.HasSecretHalf() {
		t.Fatal("freshly constructed Keys should not have a secret half yet")
	}
	if err := store.Load(loaded); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.HasSecretHalf() {
		t.Fatal("Load should have populated the secret half")
	}
	if loaded.Hash() != k.Hash() {
		t.Fatalf("Hash mismatch after Load")
	}
}

func TestLoadMissingKeyFailsKeyNotLoaded(t *testing.T) {
	dir := t.TempDir()
	mk, _ := Create(dir, []byte("pass"))
	store, _ := NewStore(t.TempDir(), mk)

	k, _ := Generate()
	loaded := &Keys{PublicKey: k.PublicKey, PublicSignKey: k.PublicSignKey}
	err := store.Load(loaded)
	if !onecoreerrors.Is(err, onecoreerrors.KindKeyNotLoaded) {
		t.Fatalf("expected KeyNotLoaded, got %v", err)
	}
}

func TestCryptoApiEncryptDecryptRoundTrip(t *testing.T) {
	alice, _ := Generate()
	bob, _ := Generate()

	aliceApi := NewCryptoApi(alice)
	bobApi := NewCryptoApi(bob)

	message := []byte("hello bob")
	ciphertext, err := aliceApi.Encrypt(message, &bob.PublicKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	plain, err := bobApi.Decrypt(ciphertext, &alice.PublicKey)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(plain, message) {
		t.Fatalf("Decrypt = %q, want %q", plain, message)
	}
}

func TestCryptoApiSignVerify(t *testing.T) {
	alice, _ := Generate()
	api := NewCryptoApi(alice)

	message := []byte("sign me")
	sig, err := api.Sign(message)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, err := Verify(alice, message, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("Verify returned false for a valid signature")
	}

	ok, err = Verify(alice, []byte("tampered"), sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for a tampered message")
	}
}

func TestEncryptAndEmbedNonceRoundTrip(t *testing.T) {
	var key [32]byte
	key[0] = 0x42

	blob, err := EncryptAndEmbedNonce([]byte("symmetric payload"), &key)
	if err != nil {
		t.Fatalf("EncryptAndEmbedNonce: %v", err)
	}
	plain, err := DecryptWithEmbeddedNonce(blob, &key)
	if err != nil {
		t.Fatalf("DecryptWithEmbeddedNonce: %v", err)
	}
	if string(plain) != "symmetric payload" {
		t.Fatalf("got %q", plain)
	}
}

func TestEncryptRequiresSecretHalf(t *testing.T) {
	k, _ := Generate()
	pub := &Keys{PublicKey: k.PublicKey, PublicSignKey: k.PublicSignKey}
	api := NewCryptoApi(pub)

	_, err := api.Encrypt([]byte("x"), &k.PublicKey)
	if !onecoreerrors.Is(err, onecoreerrors.KindKeyNotLoaded) {
		t.Fatalf("expected KeyNotLoaded, got %v", err)
	}
}
