// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package access

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/refinio/onecore/common"
	"github.com/refinio/onecore/internal/codec"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// toRecord renders g as a codec.Record of the given type name.
func toRecord(typeName string, g Grant) *codec.Record {
	r := codec.NewRecord(typeName)
	r.SetScalar("target", g.Target)
	r.SetItems("person", hashesOf(g.Persons))
	r.SetItems("group", hashesOf(g.Groups))
	return r
}

func hashesOf(s mapset.Set[common.Hash]) []interface{} {
	if s == nil {
		return nil
	}
	out := make([]interface{}, 0, s.Cardinality())
	s.Each(func(h common.Hash) bool {
		out = append(out, h)
		return false
	})
	return out
}

// fromRecord rebuilds a Grant from a decoded Record. mode is always
// ModeReplace: a Grant read back off disk already holds the fully resolved
// person/group sets, there is nothing left to union.
func fromRecord(r *codec.Record, target common.Hash) (Grant, error) {
	persons, err := referencesOf(r, "person")
	if err != nil {
		return Grant{}, err
	}
	groups, err := referencesOf(r, "group")
	if err != nil {
		return Grant{}, err
	}
	return Grant{
		Target:  target,
		Persons: mapset.NewSet(persons...),
		Groups:  mapset.NewSet(groups...),
		Mode:    ModeReplace,
	}, nil
}

func referencesOf(r *codec.Record, field string) ([]common.Hash, error) {
	v, ok := r.Values[field]
	if !ok {
		return nil, nil
	}
	out := make([]common.Hash, 0, len(v.Items))
	for _, item := range v.Items {
		h, ok := item.(common.Hash)
		if !ok {
			return nil, onecoreerrors.New(onecoreerrors.KindCodecError, "access: "+field+" item is not a reference hash")
		}
		out = append(out, h)
	}
	return out, nil
}

// Encode renders g as canonical microdata bytes, its content hash and its
// ID-hash, for a
// caller to pass to internal/store.PutObjectWithReferences and
// internal/versiontree.Tree.Append.
func Encode(reg *codec.Registry, typeName string, g Grant) ([]byte, common.Hash, common.Hash, error) {
	rec, ok := reg.Lookup(typeName)
	if !ok {
		return nil, common.ZeroHash, common.ZeroHash, onecoreerrors.New(onecoreerrors.KindCodecError, "access: recipe not registered: "+typeName)
	}
	record := toRecord(typeName, g)
	data, contentHash, err := reg.Encode(rec, record)
	if err != nil {
		return nil, common.ZeroHash, common.ZeroHash, err
	}
	idHash, err := reg.IDHash(rec, record)
	if err != nil {
		return nil, common.ZeroHash, common.ZeroHash, err
	}
	return data, contentHash, idHash, nil
}

// Decode parses canonical microdata bytes back into a Grant for typeName.
func Decode(reg *codec.Registry, typeName string, data []byte) (Grant, error) {
	record, rec, err := reg.Decode(data)
	if err != nil {
		return Grant{}, err
	}
	if rec.TypeName != typeName {
		return Grant{}, onecoreerrors.New(onecoreerrors.KindCodecError, "access: decoded type "+rec.TypeName+" does not match expected "+typeName)
	}
	target, ok := record.Values["target"].Scalar.(common.Hash)
	if !ok {
		return Grant{}, onecoreerrors.New(onecoreerrors.KindCodecError, "access: missing target field")
	}
	return fromRecord(record, target)
}
