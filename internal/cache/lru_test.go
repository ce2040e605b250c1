// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.
//
// Tests for the generic LRU cache.

package cache

import "testing"

// =============================================================================
// Eviction Tests
// =============================================================================

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts "a"

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected \"a\" to be evicted")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("expected \"b\"=2, got %v, %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("expected \"c\"=3, got %v, %v", v, ok)
	}
}

func TestLRUGetUpdatesRecency(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // touch "a", making "b" the least recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected \"b\" to be evicted after \"a\" was touched")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected \"a\" to survive eviction")
	}
}

func TestLRUPeekDoesNotUpdateRecency(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Peek("a")
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected Peek to leave \"a\" as the least recent")
	}
}

func TestLRUDeleteAndContains(t *testing.T) {
	c := NewLRU[string, int](4)
	c.Set("a", 1)
	if !c.Contains("a") {
		t.Fatal("expected Contains to be true")
	}
	if !c.Delete("a") {
		t.Fatal("expected Delete to report removal")
	}
	if c.Contains("a") {
		t.Fatal("expected Contains to be false after Delete")
	}
	if c.Delete("a") {
		t.Fatal("expected Delete on a missing key to report false")
	}
}

func TestLRULenAndClear(t *testing.T) {
	c := NewLRU[string, int](10)
	for i := 0; i < 5; i++ {
		c.Set(string(rune('a'+i)), i)
	}
	if c.Len() != 5 {
		t.Fatalf("expected Len()=5, got %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected Len()=0 after Clear, got %d", c.Len())
	}
}

func TestLRUSetUpdatesExistingKey(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Set("a", 1)
	c.Set("a", 2)
	if c.Len() != 1 {
		t.Fatalf("expected Len()=1 for repeated key, got %d", c.Len())
	}
	if v, _ := c.Get("a"); v != 2 {
		t.Fatalf("expected updated value 2, got %d", v)
	}
}
