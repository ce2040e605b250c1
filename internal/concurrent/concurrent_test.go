// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.
//
// Tests for the lock-free counters and sharded hash set.

package concurrent

import (
	"sync"
	"testing"

	"github.com/refinio/onecore/common"
)

func TestAtomicUint64NonceParity(t *testing.T) {
	even := NewAtomicUint64(0)
	odd := NewAtomicUint64(1)

	for i := 0; i < 5; i++ {
		if even.Load()%2 != 0 {
			t.Fatalf("even counter went odd: %d", even.Load())
		}
		if odd.Load()%2 != 1 {
			t.Fatalf("odd counter went even: %d", odd.Load())
		}
		even.Add(2)
		odd.Add(2)
	}
}

func TestAtomicBoolCompareAndSwap(t *testing.T) {
	b := NewAtomicBool(false)
	if !b.CompareAndSwap(false, true) {
		t.Fatal("expected CAS false->true to succeed")
	}
	if b.CompareAndSwap(false, true) {
		t.Fatal("expected CAS false->true to fail once already true")
	}
	if !b.Load() {
		t.Fatal("expected Load()=true")
	}
}

func TestShardedHashSetConcurrentAdd(t *testing.T) {
	s := NewShardedHashSet()
	var h common.Hash
	h[0] = 0x42

	var wg sync.WaitGroup
	successes := NewAtomicInt64(0)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add(h) {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	if successes.Load() != 1 {
		t.Fatalf("expected exactly one Add to win the race, got %d", successes.Load())
	}
	if !s.Contains(h) {
		t.Fatal("expected set to contain h")
	}
	if s.Len() != 1 {
		t.Fatalf("expected Len()=1, got %d", s.Len())
	}
}

func TestShardedHashSetDelete(t *testing.T) {
	s := NewShardedHashSet()
	var h common.Hash
	h[5] = 0x01

	s.Add(h)
	s.Delete(h)
	if s.Contains(h) {
		t.Fatal("expected h to be removed")
	}
}
