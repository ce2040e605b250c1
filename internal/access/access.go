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

// Package access implements Access and IdAccess objects: spec.md §4.8's
// grant that some set of persons and groups may read one target. Both
// kinds are versioned through internal/versiontree, with mode=add unioning
// the new grant into the previous version's person/group sets (deduplicated
// via deckarep/golang-set/v2) and mode=replace discarding them outright.
package access

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/refinio/onecore/common"
)

// PersonID and GroupID are person/group identities, always a Keys object's
// ID-hash. Both are aliases of common.Hash, so the compiler does not tell a
// person from a group; the names only document which one is expected.
type PersonID = common.Hash
type GroupID = common.Hash

// Mode selects how a new Access/IdAccess version combines with whatever
// version (if any) preceded it.
type Mode int

const (
	// ModeAdd unions this grant's person/group sets into the previous
	// version's, so access is monotonically non-decreasing (spec.md §2's
	// "Access monotonicity when mode=add" invariant).
	ModeAdd Mode = iota
	// ModeReplace discards the previous version's sets entirely.
	ModeReplace
)

// Grant is the unversioned payload of one Access or IdAccess object: the
// target it governs and the persons/groups it admits.
type Grant struct {
	// Target is the hash the grant governs: an object hash for Access, an
	// ID-hash for IdAccess.
	Target  common.Hash
	Persons mapset.Set[PersonID]
	Groups  mapset.Set[GroupID]
	Mode    Mode
}

// NewGrant builds a Grant over target with the given persons and groups.
func NewGrant(target common.Hash, mode Mode, persons []PersonID, groups []GroupID) Grant {
	return Grant{
		Target:  target,
		Persons: mapset.NewSet(persons...),
		Groups:  mapset.NewSet(groups...),
		Mode:    mode,
	}
}

// Resolve combines g with the previous version's grant (previous may be the
// zero Grant when this is the first version) per g.Mode, returning the
// effective grant to store as this version's content.
func Resolve(previous, g Grant) Grant {
	if g.Mode == ModeReplace || previous.Persons == nil {
		persons := g.Persons
		if persons == nil {
			persons = mapset.NewSet[PersonID]()
		}
		groups := g.Groups
		if groups == nil {
			groups = mapset.NewSet[GroupID]()
		}
		return Grant{Target: g.Target, Persons: persons, Groups: groups, Mode: g.Mode}
	}

	return Grant{
		Target:  g.Target,
		Persons: previous.Persons.Union(g.Persons),
		Groups:  previous.Groups.Union(g.Groups),
		Mode:    g.Mode,
	}
}

// Permits reports whether person is admitted by g, either directly or
// through membership in an admitted group. membership answers whether
// person belongs to a given group (supplied by the caller, or a test double
// in unit tests); it is nil-safe: a nil membership function treats every
// group as empty.
func Permits(g Grant, person PersonID, membership func(group GroupID, person PersonID) bool) bool {
	if g.Persons != nil && g.Persons.Contains(person) {
		return true
	}
	if membership == nil || g.Groups == nil {
		return false
	}
	found := false
	g.Groups.Each(func(group GroupID) bool {
		if membership(group, person) {
			found = true
			return true
		}
		return false
	})
	return found
}
