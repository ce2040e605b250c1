// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package store

import (
	"testing"

	"github.com/refinio/onecore/common"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	hash, status, err := s.Put(KindObject, []byte("hello world"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if status != Created {
		t.Fatalf("status = %v, want Created", status)
	}

	data, err := s.Get(KindObject, hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("Get returned %q", data)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	h1, status1, _ := s.Put(KindObject, []byte("same bytes"))
	h2, status2, _ := s.Put(KindObject, []byte("same bytes"))

	if h1 != h2 {
		t.Fatalf("hashes differ: %s != %s", h1, h2)
	}
	if status1 != Created || status2 != Exists {
		t.Fatalf("statuses = %v, %v; want Created, Exists", status1, status2)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := openTestStore(t)
	var h common.Hash
	h[0] = 1

	_, err := s.Get(KindObject, h)
	if !onecoreerrors.Is(err, onecoreerrors.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestGetDetectsHashMismatch(t *testing.T) {
	s := openTestStore(t)
	hash, _, _ := s.Put(KindObject, []byte("original"))

	// Corrupt the stored file directly, bypassing Put.
	path := s.pathFor(KindObject, hash)
	if err := writeAtomic(path, []byte("corrupted")); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}

	_, err := s.Get(KindObject, hash)
	if !onecoreerrors.Is(err, onecoreerrors.KindHashMismatch) {
		t.Fatalf("expected HashMismatch, got %v", err)
	}
}

func TestCLOBRejectsInvalidUTF8(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.Put(KindCLOB, []byte{0xff, 0xfe, 0xfd})
	if !onecoreerrors.Is(err, onecoreerrors.KindCodecError) {
		t.Fatalf("expected CodecError for invalid UTF-8 CLOB, got %v", err)
	}
}

func TestExistsAndSize(t *testing.T) {
	s := openTestStore(t)
	hash, _, _ := s.Put(KindBlob, []byte("abcdef"))

	if !s.Exists(KindBlob, hash) {
		t.Fatal("Exists = false, want true")
	}
	size, err := s.Size(KindBlob, hash)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 6 {
		t.Fatalf("Size = %d, want 6", size)
	}
}

func TestStreamWriteFinalizesToContentHash(t *testing.T) {
	s := openTestStore(t)
	w, err := s.StreamWrite(KindBlob)
	if err != nil {
		t.Fatalf("StreamWrite: %v", err)
	}
	w.Write([]byte("streamed "))
	w.Write([]byte("content"))

	hash, status, err := w.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if status != Created {
		t.Fatalf("status = %v, want Created", status)
	}

	data, err := s.Get(KindBlob, hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "streamed content" {
		t.Fatalf("Get = %q", data)
	}
}

func TestIDObjectHead(t *testing.T) {
	s := openTestStore(t)
	var idHash, v1, v2 common.Hash
	idHash[0], v1[0], v2[0] = 1, 2, 3

	if s.HasHead(idHash) {
		t.Fatal("expected no head before first write")
	}

	if err := s.SetHead(idHash, v1); err != nil {
		t.Fatalf("SetHead: %v", err)
	}
	head, err := s.Head(idHash)
	if err != nil || head != v1 {
		t.Fatalf("Head = %s, %v; want %s, nil", head, err, v1)
	}

	if err := s.SetHead(idHash, v2); err != nil {
		t.Fatalf("SetHead update: %v", err)
	}
	head, _ = s.Head(idHash)
	if head != v2 {
		t.Fatalf("Head after update = %s, want %s", head, v2)
	}
}

func TestPutObjectWithReferencesUpdatesRevMap(t *testing.T) {
	s := openTestStore(t)
	var target common.Hash
	target[0] = 0xAB

	hash, _, err := s.PutObjectWithReferences("Access", []byte("access-object-bytes"), []Reference{
		{Target: target, Kind: common.RefObject},
	})
	if err != nil {
		t.Fatalf("PutObjectWithReferences: %v", err)
	}

	referencers, err := s.RevMap().List(target, "Access")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(referencers) != 1 || referencers[0] != hash {
		t.Fatalf("referencers = %v, want [%s]", referencers, hash)
	}
}

func TestPutObjectWithReferencesSkipsBlobRefs(t *testing.T) {
	s := openTestStore(t)
	var target common.Hash
	target[0] = 0xCD

	if _, _, err := s.PutObjectWithReferences("Doc", []byte("doc-bytes"), []Reference{
		{Target: target, Kind: common.RefBlob},
	}); err != nil {
		t.Fatalf("PutObjectWithReferences: %v", err)
	}

	referencers, _ := s.RevMap().List(target, "Doc")
	if len(referencers) != 0 {
		t.Fatalf("BLOB references should not participate in reverse map, got %v", referencers)
	}
}

func TestSecondOpenFailsWhileLocked(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	defer s1.Close()

	_, err = Open(dir)
	if err == nil {
		t.Fatal("expected second Open of the same instance root to fail")
	}
}
