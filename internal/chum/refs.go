// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package chum

import (
	"github.com/refinio/onecore/common"
	"github.com/refinio/onecore/internal/codec"
)

// refInfo is one reference found inside a decoded record: the hash it
// points at and which of the four reference variants (spec.md §3) the
// declaring field carries. It does not know the referenced hash's own
// recipe type; decodeChildren resolves that separately, by hash.
type refInfo struct {
	Hash common.Hash
	Kind common.ReferenceKind
}

// decodeRecordReferences is the codec's link-finder (spec.md §4.7): given a
// decoded record and its recipe, it returns every reference field value
// the record carries, tagged with the reference variant its field
// declares.
func decodeRecordReferences(rec *codec.Recipe, r *codec.Record) []refInfo {
	fieldKind := make(map[string]common.ReferenceKind, len(rec.Fields))
	for _, f := range rec.Fields {
		if f.Kind == codec.KindReference {
			fieldKind[f.Name] = f.ReferenceKind
		}
	}

	var out []refInfo
	for name, v := range r.Values {
		kind, isRef := fieldKind[name]
		if !isRef {
			continue
		}
		if h, ok := v.Scalar.(common.Hash); ok {
			out = append(out, refInfo{Hash: h, Kind: kind})
		}
		for _, it := range v.Items {
			if h, ok := it.(common.Hash); ok {
				out = append(out, refInfo{Hash: h, Kind: kind})
			}
		}
		for _, it := range v.MapItems {
			if h, ok := it.(common.Hash); ok {
				out = append(out, refInfo{Hash: h, Kind: kind})
			}
		}
	}
	return out
}

// decodeChildren decodes data under reg and returns its references as wire
// Refs, resolving each referenced hash's own recipe type when this store
// already holds it (best-effort: a reference to something not yet fetched,
// or to an untyped BLOB/CLOB, simply carries an empty Type).
func decodeChildren(reg *codec.Registry, data []byte, typeOf func(common.Hash, common.ReferenceKind) string) ([]Ref, error) {
	rec, recipe, err := reg.Decode(data)
	if err != nil {
		return nil, err
	}
	refs := decodeRecordReferences(recipe, rec)
	out := make([]Ref, 0, len(refs))
	for _, ri := range refs {
		out = append(out, Ref{Hash: ri.Hash.String(), Kind: ri.Kind, Type: typeOf(ri.Hash, ri.Kind)})
	}
	return out, nil
}
