// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package access

import (
	"testing"

	"github.com/refinio/onecore/common"
	"github.com/refinio/onecore/internal/codec"
	"github.com/refinio/onecore/internal/store"
)

func hashByte(b byte) common.Hash {
	var h common.Hash
	h[common.HashSize-1] = b
	return h
}

func newTestManager(t *testing.T) (*Manager, common.Hash) {
	t.Helper()
	reg := codec.NewRegistry()
	Recipes(reg)
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewManager(reg, s), hashByte(0xAB)
}

func TestGrantModeAddUnionsWithPrevious(t *testing.T) {
	m, target := newTestManager(t)
	p1, p2 := hashByte(1), hashByte(2)

	_, err := m.Grant(TypeAccess, NewGrant(target, ModeAdd, []PersonID{p1}, nil), 100, hashByte(0x10))
	if err != nil {
		t.Fatalf("first Grant: %v", err)
	}

	contentHash, err := m.Grant(TypeAccess, NewGrant(target, ModeAdd, []PersonID{p2}, nil), 200, hashByte(0x20))
	if err != nil {
		t.Fatalf("second Grant: %v", err)
	}

	data, err := m.st.Get(store.KindObject, contentHash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	g, err := Decode(m.reg, TypeAccess, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !g.Persons.Contains(p1) || !g.Persons.Contains(p2) {
		t.Fatalf("persons = %v, want {p1, p2}", g.Persons.ToSlice())
	}
	if g.Persons.Cardinality() != 2 {
		t.Fatalf("persons cardinality = %d, want 2 (deduplicated union)", g.Persons.Cardinality())
	}
}

func TestGrantModeReplaceDiscardsPrevious(t *testing.T) {
	m, target := newTestManager(t)
	p1, p2 := hashByte(1), hashByte(2)

	m.Grant(TypeAccess, NewGrant(target, ModeAdd, []PersonID{p1}, nil), 100, hashByte(0x10))
	contentHash, err := m.Grant(TypeAccess, NewGrant(target, ModeReplace, []PersonID{p2}, nil), 200, hashByte(0x20))
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}

	data, _ := m.st.Get(store.KindObject, contentHash)
	g, err := Decode(m.reg, TypeAccess, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if g.Persons.Contains(p1) {
		t.Fatal("mode=replace should have discarded the previous grant")
	}
	if !g.Persons.Contains(p2) {
		t.Fatal("mode=replace should still contain the new grant")
	}
}

func TestGrantRecordsReverseMapEntry(t *testing.T) {
	m, target := newTestManager(t)
	m.Grant(TypeAccess, NewGrant(target, ModeAdd, []PersonID{hashByte(1)}, nil), 100, hashByte(0x10))

	referencers, err := m.st.RevMap().List(target, TypeAccess)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(referencers) != 1 {
		t.Fatalf("referencers = %v, want exactly one", referencers)
	}
}

func TestPermitsDirectAndGroupMembership(t *testing.T) {
	target := hashByte(0xAB)
	p1, p2, g1 := hashByte(1), hashByte(2), hashByte(0x30)
	grant := NewGrant(target, ModeAdd, []PersonID{p1}, []GroupID{g1})

	if !Permits(grant, p1, nil) {
		t.Fatal("p1 is a direct member, should be permitted")
	}
	if Permits(grant, p2, nil) {
		t.Fatal("p2 is not a member and there is no membership function, should be denied")
	}
	membership := func(group GroupID, person PersonID) bool {
		return group == g1 && person == p2
	}
	if !Permits(grant, p2, membership) {
		t.Fatal("p2 belongs to g1 per the membership function, should be permitted")
	}
}
