// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package transport

import (
	"crypto/rand"
	"io"
	"testing"
	"time"

	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

func TestFragmentationPassesThroughSmallFrames(t *testing.T) {
	f := NewFragmentationPlugin(64)
	evt := BinaryEvent(make([]byte, 64))
	out, extra, err := f.TransformOutgoing(evt)
	if err != nil {
		t.Fatalf("TransformOutgoing: %v", err)
	}
	if out == nil || len(extra) != 0 {
		t.Fatalf("frame of exactly chunkSize should pass through unfragmented, got out=%v extra=%v", out, extra)
	}
}

func TestFragmentationChunksLargeBinaryFrame(t *testing.T) {
	f := NewFragmentationPlugin(64)
	data := make([]byte, 65)
	rand.Read(data)

	out, extra, err := f.TransformOutgoing(BinaryEvent(data))
	if err != nil {
		t.Fatalf("TransformOutgoing: %v", err)
	}
	if out != nil {
		t.Fatal("fragmented frame should swallow the direct output")
	}
	if len(extra) != 4 {
		t.Fatalf("65 bytes at chunkSize=64 should yield start + 2 chunks + end = 4 events, got %d", len(extra))
	}
	if extra[0].Text != sentinelStartBinary || extra[len(extra)-1].Text != sentinelEnd {
		t.Fatalf("expected start/end sentinels, got %v .. %v", extra[0], extra[len(extra)-1])
	}
}

func TestFragmentationReassemblesOnReceive(t *testing.T) {
	fSend := NewFragmentationPlugin(64)
	fRecv := NewFragmentationPlugin(64)

	data := make([]byte, 200)
	rand.Read(data)
	_, extra, err := fSend.TransformOutgoing(BinaryEvent(data))
	if err != nil {
		t.Fatalf("TransformOutgoing: %v", err)
	}

	var reassembled []byte
	for _, e := range extra {
		out, _, err := fRecv.TransformIncoming(e)
		if err != nil {
			t.Fatalf("TransformIncoming: %v", err)
		}
		if out != nil {
			reassembled = out.Bytes
		}
	}
	if len(reassembled) != len(data) {
		t.Fatalf("reassembled length = %d, want %d", len(reassembled), len(data))
	}
	for i := range data {
		if reassembled[i] != data[i] {
			t.Fatalf("reassembled data mismatch at byte %d", i)
		}
	}
}

func TestFragmentationRejectsDoubleStart(t *testing.T) {
	f := NewFragmentationPlugin(64)
	f.TransformIncoming(TextEvent(sentinelStartBinary))
	_, _, err := f.TransformIncoming(TextEvent(sentinelStartBinary))
	if !onecoreerrors.Is(err, onecoreerrors.KindProtocolError) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestFragmentationEscapesTextEqualToSentinel(t *testing.T) {
	f := NewFragmentationPlugin(64)
	out, _, err := f.TransformOutgoing(TextEvent(sentinelEnd))
	if err != nil {
		t.Fatalf("TransformOutgoing: %v", err)
	}
	if out.Text == sentinelEnd {
		t.Fatal("application text equal to a sentinel must be escaped before sending")
	}

	in, _, err := f.TransformIncoming(*out)
	if err != nil {
		t.Fatalf("TransformIncoming: %v", err)
	}
	if in.Text != sentinelEnd {
		t.Fatalf("round trip = %q, want %q", in.Text, sentinelEnd)
	}
}

func TestStatisticsCountsBytes(t *testing.T) {
	s := NewStatisticsPlugin(time.Now())
	s.TransformOutgoing(TextEvent("hello"))
	s.TransformIncoming(BinaryEvent([]byte("worldly")))

	snap := s.Snapshot()
	if snap.BytesOut != 5 {
		t.Fatalf("BytesOut = %d, want 5", snap.BytesOut)
	}
	if snap.BytesIn != 7 {
		t.Fatalf("BytesIn = %d, want 7", snap.BytesIn)
	}
}

func TestEncryptionRoundTrip(t *testing.T) {
	var key [32]byte
	io.ReadFull(rand.Reader, key[:])

	sender := NewEncryptionPlugin(&key, 0, 256)
	receiver := NewEncryptionPlugin(&key, 1, 256)

	out, _, err := sender.TransformOutgoing(TextEvent("secret message"))
	if err != nil {
		t.Fatalf("TransformOutgoing: %v", err)
	}
	if out.Kind != EventMessageBinary {
		t.Fatalf("sealed frame should be binary, got %v", out.Kind)
	}

	in, _, err := receiver.TransformIncoming(*out)
	if err != nil {
		t.Fatalf("TransformIncoming: %v", err)
	}
	if in.Kind != EventMessageText || in.Text != "secret message" {
		t.Fatalf("decrypted = %+v, want text %q", in, "secret message")
	}
}

func TestEncryptionDetectsTamperedCiphertext(t *testing.T) {
	var key [32]byte
	io.ReadFull(rand.Reader, key[:])
	sender := NewEncryptionPlugin(&key, 0, 0)
	receiver := NewEncryptionPlugin(&key, 1, 0)

	out, _, _ := sender.TransformOutgoing(TextEvent("hi"))
	out.Bytes[len(out.Bytes)-1] ^= 0xFF

	_, _, err := receiver.TransformIncoming(*out)
	if !onecoreerrors.Is(err, onecoreerrors.KindDecryptFailed) {
		t.Fatalf("expected DecryptFailed, got %v", err)
	}
}

func TestEncryptionRejectsReplayedNonce(t *testing.T) {
	var key [32]byte
	io.ReadFull(rand.Reader, key[:])
	sender := NewEncryptionPlugin(&key, 0, 0)
	receiver := NewEncryptionPlugin(&key, 1, 0)

	out, _, _ := sender.TransformOutgoing(TextEvent("hi"))
	if _, _, err := receiver.TransformIncoming(*out); err != nil {
		t.Fatalf("first decrypt: %v", err)
	}
	_, _, err := receiver.TransformIncoming(*out)
	if !onecoreerrors.Is(err, onecoreerrors.KindDecryptFailed) {
		t.Fatalf("expected DecryptFailed on replay, got %v", err)
	}
}

func TestPipelineAppliesPluginsInOrder(t *testing.T) {
	// A minimal two-plugin stack: fragmentation outer, encryption inner.
	// Outgoing order is inner->outer (encryption first, then
	// fragmentation), matching spec.md §4.5.
	var key [32]byte
	io.ReadFull(rand.Reader, key[:])

	frag := NewFragmentationPlugin(1 << 20) // large enough to never fragment in this test
	enc := NewEncryptionPlugin(&key, 0, 0)

	plugins := []Plugin{frag, enc}

	evt := TextEvent("pipeline test")
	cur := &evt
	for i := len(plugins) - 1; i >= 0; i-- {
		out, _, err := plugins[i].TransformOutgoing(*cur)
		if err != nil {
			t.Fatalf("plugin %d: %v", i, err)
		}
		cur = out
	}
	if cur.Kind != EventMessageBinary {
		t.Fatalf("after encryption the frame should be binary, got %v", cur.Kind)
	}

	recvFrag := NewFragmentationPlugin(1 << 20)
	recvEnc := NewEncryptionPlugin(&key, 1, 0)
	recvPlugins := []Plugin{recvFrag, recvEnc}

	for _, p := range recvPlugins {
		out, _, err := p.TransformIncoming(*cur)
		if err != nil {
			t.Fatalf("incoming %s: %v", p.Name(), err)
		}
		cur = out
	}
	if cur.Kind != EventMessageText || cur.Text != "pipeline test" {
		t.Fatalf("round trip = %+v", cur)
	}
}
