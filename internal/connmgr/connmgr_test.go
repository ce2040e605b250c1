// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package connmgr

import "testing"

func TestAcquireRefcountsSharedListener(t *testing.T) {
	m := New()
	key := ListenerKey{Endpoint: "relay:1", LocalPublicKey: [32]byte{1}}
	starts := 0
	stops := 0
	start := func() (func(), error) {
		starts++
		return func() { stops++ }, nil
	}

	if _, err := m.Acquire(key, true, start); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, err := m.Acquire(key, true, start); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if starts != 1 {
		t.Fatalf("start called %d times, want 1 (shared listener)", starts)
	}

	m.Release(key)
	if stops != 0 {
		t.Fatal("listener stopped while still referenced")
	}
	m.Release(key)
	if stops != 1 {
		t.Fatalf("stops = %d, want 1 after refcount reaches zero", stops)
	}
}

func TestOnlineRequiresAllRelayListenersListening(t *testing.T) {
	m := New()
	relayKey := ListenerKey{Endpoint: "relay:1", LocalPublicKey: [32]byte{1}}
	m.Acquire(relayKey, true, func() (func(), error) { return func() {}, nil })

	if m.Online() {
		t.Fatal("should not be online while the relay listener is still connecting")
	}

	m.SetState(relayKey, StateListening)
	if !m.Online() {
		t.Fatal("should be online once the only relay listener is listening")
	}
}

func TestOnlineWithNoRelayListenersIsTrue(t *testing.T) {
	m := New()
	directKey := ListenerKey{Endpoint: "direct:1", LocalPublicKey: [32]byte{2}}
	m.Acquire(directKey, false, func() (func(), error) { return func() {}, nil })

	if !m.Online() {
		t.Fatal("an instance with only non-relay listeners should be considered online")
	}
}
