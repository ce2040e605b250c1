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

// Package codec implements the canonical microdata serialization: a stable,
// tagged text encoding of typed records whose SHA-256 is the object's
// content hash. Field order and collection kind are fixed per type by a
// registered recipe, not by struct-tag declaration order at call time, so
// that two processes with the same recipe always produce byte-identical
// output for equal values.
package codec

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/refinio/onecore/common"
)

// CollectionKind describes how a multi-valued field is encoded.
type CollectionKind int

const (
	// NotCollection marks a scalar or reference field.
	NotCollection CollectionKind = iota
	// Bag is an unordered collection that may repeat values.
	Bag
	// Set is an unordered collection of unique values.
	Set
	// Array is an ordered collection.
	Array
	// Map is a collection sorted by the canonical encoding of its keys.
	Map
)

// FieldKind describes the Go-level shape of a field's values.
type FieldKind int

const (
	// KindString is a UTF-8 string field.
	KindString FieldKind = iota
	// KindNumber is an integer field, rendered in canonical decimal form.
	KindNumber
	// KindBool is a boolean field.
	KindBool
	// KindReference is a hash-valued field tagged with a ReferenceKind.
	KindReference
)

// Field describes one recipe field: its item property name, its Go-level
// value kind, its collection kind, and (for reference fields) which
// reference variant it carries.
type Field struct {
	Name          string
	Kind          FieldKind
	Collection    CollectionKind
	ReferenceKind common.ReferenceKind
}

// Recipe is the registered schema for one object type: its canonical field
// order and per-field encoding rules.
type Recipe struct {
	TypeName string
	Fields   []Field
	// IDFields names the subset of Fields whose values are hashed to
	// produce the type's ID-hash for versioned objects. Empty means the
	// type is not versioned.
	IDFields []string
}

// Registry is a name -> recipe lookup, built up at process start by calling
// Register for every known type. It is the "closed sum type... plus an
// extensibility escape hatch for user-declared types registered at
// runtime" that spec.md §9 calls for.
type Registry struct {
	mu      sync.RWMutex
	recipes map[string]*Recipe
}

// NewRegistry creates an empty recipe registry.
func NewRegistry() *Registry {
	return &Registry{recipes: make(map[string]*Recipe)}
}

// Register adds or replaces the recipe for r.TypeName.
func (reg *Registry) Register(r *Recipe) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.recipes[r.TypeName] = r
}

// Lookup returns the recipe for typeName, or false if none is registered.
func (reg *Registry) Lookup(typeName string) (*Recipe, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.recipes[typeName]
	return r, ok
}

// idFieldSet returns r.IDFields as a lookup set.
func (r *Recipe) idFieldSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.IDFields))
	for _, f := range r.IDFields {
		set[f] = struct{}{}
	}
	return set
}

// sortedKeys returns keys in the canonical order used for Map collections:
// byte-lexicographic order of their own canonical string encoding.
func sortedKeys(keys []string) []string {
	out := append([]string(nil), keys...)
	slices.Sort(out)
	return out
}
