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

package store

import "github.com/refinio/onecore/common"

// Reference describes one outgoing reference discovered in a just-written
// object's fields, for the caller (usually internal/chum's link-finder) to
// report back to PutObjectWithReferences.
type Reference struct {
	Target common.Hash
	Kind   common.ReferenceKind
}

// PutObjectWithReferences records typeName as a referencer of every
// reference target that participates in the reverse map (spec.md §3:
// reference-to-object and reference-to-id only), then writes data as an
// object. The reverse-map writes precede the object write so a crash
// between them leaves only a harmless dangling reverse-map entry pointing
// at a hash that does not exist yet (a consumer walking the index and then
// failing to load it hits the same not-found path Chum already tolerates
// per object); the ordering never lets the object exist without its
// reverse-map entries, which is what reverse-map completeness requires.
func (s *Store) PutObjectWithReferences(typeName string, data []byte, refs []Reference) (common.Hash, Status, error) {
	hash := sha256Sum(data)

	for _, r := range refs {
		if !r.Kind.ParticipatesInReverseMap() {
			continue
		}
		if err := s.revmap.Add(r.Target, typeName, hash); err != nil {
			return common.ZeroHash, 0, err
		}
	}

	hash, status, err := s.Put(KindObject, data)
	if err != nil {
		return common.ZeroHash, 0, err
	}

	return hash, status, nil
}
