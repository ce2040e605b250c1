// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package access

import (
	"github.com/refinio/onecore/common"
	"github.com/refinio/onecore/internal/codec"
)

// TypeAccess and TypeIdAccess are the canonical microdata type names for
// the two grant kinds (spec.md §3's glossary: Access governs one
// unversioned target, IdAccess governs every version of an ID-object).
const (
	TypeAccess   = "Access"
	TypeIdAccess = "IdAccess"
)

// Recipes registers the Access and IdAccess recipes into reg. Both share
// the same field layout; only the type name and the Target field's
// reference kind differ (object hash for Access, ID-hash for IdAccess).
func Recipes(reg *codec.Registry) {
	reg.Register(&codec.Recipe{
		TypeName: TypeAccess,
		Fields:   Field(common.RefObject, TypeAccess),
		IDFields: []string{"target"},
	})
	reg.Register(&codec.Recipe{
		TypeName: TypeIdAccess,
		Fields:   Field(common.RefID, TypeIdAccess),
		IDFields: []string{"target"},
	})
}

// Field builds the shared [target, person, group] field layout for the
// given target reference kind.
func Field(targetKind common.ReferenceKind, typeName string) []codec.Field {
	return []codec.Field{
		{Name: "target", Kind: codec.KindReference, Collection: codec.NotCollection, ReferenceKind: targetKind},
		{Name: "person", Kind: codec.KindReference, Collection: codec.Set, ReferenceKind: common.RefID},
		{Name: "group", Kind: codec.KindReference, Collection: codec.Set, ReferenceKind: common.RefID},
	}
}
