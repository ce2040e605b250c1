// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package codec

import (
	"testing"

	"github.com/refinio/onecore/common"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

func personRecipe() *Recipe {
	return &Recipe{
		TypeName: "Person",
		Fields: []Field{
			{Name: "email", Kind: KindString},
			{Name: "name", Kind: KindString},
		},
		IDFields: []string{"email"},
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	reg := NewRegistry()
	rec := personRecipe()
	reg.Register(rec)

	r := NewRecord("Person")
	r.SetScalar("email", "e@e")
	r.SetScalar("name", "Erik H")

	data, hash, err := reg.Encode(rec, r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, decodedRecipe, err := reg.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decodedRecipe.TypeName != "Person" {
		t.Fatalf("decoded recipe type = %q", decodedRecipe.TypeName)
	}
	if decoded.Values["email"].Scalar != "e@e" {
		t.Errorf("email = %v", decoded.Values["email"].Scalar)
	}
	if decoded.Values["name"].Scalar != "Erik H" {
		t.Errorf("name = %v", decoded.Values["name"].Scalar)
	}

	if Hash(data) != hash {
		t.Errorf("Hash(data) = %s, want %s", Hash(data), hash)
	}

	data2, hash2, err := reg.Encode(rec, decoded)
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if string(data2) != string(data) {
		t.Errorf("encode(decode(data)) != data:\n got: %s\nwant: %s", data2, data)
	}
	if hash2 != hash {
		t.Errorf("re-encoded hash mismatch")
	}
}

func TestEncodeIdempotent(t *testing.T) {
	reg := NewRegistry()
	rec := personRecipe()
	reg.Register(rec)

	r := NewRecord("Person")
	r.SetScalar("email", "a@b")
	r.SetScalar("name", "A B")

	data1, hash1, _ := reg.Encode(rec, r)
	data2, hash2, _ := reg.Encode(rec, r)
	if string(data1) != string(data2) || hash1 != hash2 {
		t.Fatal("encoding the same record twice produced different output")
	}
}

func TestDecodeRejectsOutOfOrderFields(t *testing.T) {
	reg := NewRegistry()
	reg.Register(personRecipe())

	bad := []byte(`<div itemscope itemtype="//refin.io/Person"><span itemprop="name">Erik H</span><span itemprop="email">e@e</span></div>`)
	_, _, err := reg.Decode(bad)
	if !onecoreerrors.Is(err, onecoreerrors.KindCodecError) {
		t.Fatalf("expected CodecError for out-of-order fields, got %v", err)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	reg := NewRegistry()
	data := []byte(`<div itemscope itemtype="//refin.io/Nope"></div>`)
	_, _, err := reg.Decode(data)
	if !onecoreerrors.Is(err, onecoreerrors.KindCodecError) {
		t.Fatalf("expected CodecError for unknown type, got %v", err)
	}
}

func TestReferenceFieldRoundTrip(t *testing.T) {
	rec := &Recipe{
		TypeName: "Link",
		Fields: []Field{
			{Name: "target", Kind: KindReference, ReferenceKind: common.RefObject},
		},
	}
	reg := NewRegistry()
	reg.Register(rec)

	target := Hash([]byte("hello"))
	r := NewRecord("Link")
	r.SetScalar("target", target)

	data, _, err := reg.Encode(rec, r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, _, err := reg.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := decoded.Values["target"].Scalar.(common.Hash)
	if !ok || got != target {
		t.Errorf("target = %v, want %s", decoded.Values["target"].Scalar, target)
	}
}

func TestArrayFieldRoundTrip(t *testing.T) {
	rec := &Recipe{
		TypeName: "Tags",
		Fields: []Field{
			{Name: "tags", Kind: KindString, Collection: Array},
		},
	}
	reg := NewRegistry()
	reg.Register(rec)

	r := NewRecord("Tags")
	r.SetItems("tags", []interface{}{"a", "b", "c"})

	data, _, err := reg.Encode(rec, r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, _, err := reg.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	items := decoded.Values["tags"].Items
	if len(items) != 3 || items[0] != "a" || items[1] != "b" || items[2] != "c" {
		t.Errorf("tags = %v", items)
	}
}

func TestSetFieldDedupes(t *testing.T) {
	rec := &Recipe{
		TypeName: "Group",
		Fields: []Field{
			{Name: "members", Kind: KindString, Collection: Set},
		},
	}
	reg := NewRegistry()
	reg.Register(rec)

	r := NewRecord("Group")
	r.SetItems("members", []interface{}{"alice", "bob", "alice"})

	data, _, err := reg.Encode(rec, r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, _, err := reg.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Values["members"].Items) != 2 {
		t.Errorf("expected deduped set of 2, got %v", decoded.Values["members"].Items)
	}
}

func TestIDHash(t *testing.T) {
	reg := NewRegistry()
	rec := personRecipe()
	reg.Register(rec)

	v1 := NewRecord("Person")
	v1.SetScalar("email", "e@e")
	v1.SetScalar("name", "Erik H")

	v2 := NewRecord("Person")
	v2.SetScalar("email", "e@e")
	v2.SetScalar("name", "Erik Hvid")

	id1, err := reg.IDHash(rec, v1)
	if err != nil {
		t.Fatalf("IDHash v1: %v", err)
	}
	id2, err := reg.IDHash(rec, v2)
	if err != nil {
		t.Fatalf("IDHash v2: %v", err)
	}
	if id1 != id2 {
		t.Errorf("two versions with the same email should share an ID-hash: %s != %s", id1, id2)
	}
}
