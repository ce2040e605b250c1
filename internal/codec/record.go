// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.
//
// The OneCore library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The OneCore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the OneCore library. If not, see <http://www.gnu.org/licenses/>.

package codec

import "github.com/refinio/onecore/common"

// Record is the in-memory, recipe-agnostic representation of an object: a
// type tag plus a set of named field values. It stands in for the "closed
// sum type over the recipe-defined object kinds" from spec.md §9 — callers
// that want a typed view build one from a Record, but the codec itself only
// ever needs this shape to encode or decode.
type Record struct {
	Type   string
	Values map[string]Value
}

// Value is the tagged union of everything a Field can hold: a scalar, or a
// collection of scalars, keyed by the field's declared Kind/Collection.
type Value struct {
	// Scalar holds a string, int64, bool, or common.Hash for
	// NotCollection fields.
	Scalar interface{}

	// Items holds the elements of a Bag/Set/Array field, each a string,
	// int64, bool, or common.Hash depending on the field's Kind.
	Items []interface{}

	// MapItems holds the entries of a Map field, keyed by the canonical
	// string form of the map key.
	MapItems map[string]interface{}
}

// NewRecord creates an empty record of the given type.
func NewRecord(typeName string) *Record {
	return &Record{Type: typeName, Values: make(map[string]Value)}
}

// SetScalar sets a non-collection field.
func (r *Record) SetScalar(name string, v interface{}) {
	r.Values[name] = Value{Scalar: v}
}

// SetItems sets a Bag/Set/Array field.
func (r *Record) SetItems(name string, items []interface{}) {
	r.Values[name] = Value{Items: items}
}

// SetMap sets a Map field.
func (r *Record) SetMap(name string, m map[string]interface{}) {
	r.Values[name] = Value{MapItems: m}
}

// IDHash returns the ID-hash of r under recipe rec: the hash of a record
// built from only rec.IDFields. Returns common.ZeroHash if rec has no ID
// fields (the type is not versioned).
func (reg *Registry) IDHash(rec *Recipe, r *Record) (common.Hash, error) {
	if len(rec.IDFields) == 0 {
		return common.ZeroHash, nil
	}
	idRecipe := &Recipe{TypeName: rec.TypeName}
	idSet := rec.idFieldSet()
	for _, f := range rec.Fields {
		if _, ok := idSet[f.Name]; ok {
			idRecipe.Fields = append(idRecipe.Fields, f)
		}
	}
	idRecord := NewRecord(rec.TypeName)
	for _, f := range idRecipe.Fields {
		if v, ok := r.Values[f.Name]; ok {
			idRecord.Values[f.Name] = v
		}
	}
	_, h, err := reg.Encode(idRecipe, idRecord)
	return h, err
}
