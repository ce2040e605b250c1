// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package idcache

import (
	"testing"

	"github.com/refinio/onecore/common"
)

func TestLookupMiss(t *testing.T) {
	c := New()
	var h common.Hash
	h[0] = 1
	if _, _, cached := c.Lookup(h); cached {
		t.Fatal("expected cache miss on empty cache")
	}
}

func TestPutAndLookup(t *testing.T) {
	c := New()
	var h, id common.Hash
	h[0], id[0] = 1, 2

	c.Put(h, id)
	gotID, versioned, cached := c.Lookup(h)
	if !cached || !versioned || gotID != id {
		t.Fatalf("Lookup after Put = (%s, %v, %v), want (%s, true, true)", gotID, versioned, cached, id)
	}
}

func TestPutNotVersioned(t *testing.T) {
	c := New()
	var h common.Hash
	h[0] = 3

	c.PutNotVersioned(h)
	_, versioned, cached := c.Lookup(h)
	if !cached || versioned {
		t.Fatalf("expected cached, not-versioned entry")
	}
}

func TestEvictionAtCapacity(t *testing.T) {
	c := NewWithCapacity(2)
	var h1, h2, h3 common.Hash
	h1[0], h2[0], h3[0] = 1, 2, 3

	c.Put(h1, h1)
	c.Put(h2, h2)
	c.Put(h3, h3) // evicts h1 (least recently used)

	if _, _, cached := c.Lookup(h1); cached {
		t.Fatal("expected h1 to be evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
}
