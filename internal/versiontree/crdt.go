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

package versiontree

import (
	"github.com/refinio/onecore/common"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// MergeResult is the outcome of resolving two branch heads into one value.
type MergeResult struct {
	// Defined is always true for Register, and for OptionalValue reports
	// whether the merged value exists at all.
	Defined bool
	// Data is the winning node's object snapshot hash. Zero when Defined
	// is false.
	Data common.Hash
}

// RegisterMerge implements spec.md §4.2's Register CRDT: last-write-wins
// over the total order in compareTieBreak. It walks back from each branch
// head to the nearest ancestor that actually set a value (skipping no-op
// nodes produced when a write re-affirmed the same canonical bytes), then
// picks the tie-break winner between those two ancestors.
//
// An empty common history with no ancestor ever setting a value on either
// side is the "unreachable... undefined winner" case spec.md §9 flags as an
// Open Question; this implementation resolves it as an explicit error
// rather than a panic or an arbitrary default.
func (t *Tree) RegisterMerge(headA, headB common.Hash) (MergeResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if headA == headB {
		n, ok := t.nodes[headA]
		if !ok {
			return MergeResult{}, onecoreerrors.New(onecoreerrors.KindNotFound, "versiontree: head not found")
		}
		return MergeResult{Defined: true, Data: n.Data}, nil
	}

	a := t.findLastOpAncestor(headA)
	b := t.findLastOpAncestor(headB)

	switch {
	case a == nil && b == nil:
		return MergeResult{}, onecoreerrors.New(onecoreerrors.KindCodecError,
			"versiontree: Register merge has no ancestor with a set op on either branch")
	case a == nil:
		return MergeResult{Defined: true, Data: b.Data}, nil
	case b == nil:
		return MergeResult{Defined: true, Data: a.Data}, nil
	}

	if compareTieBreak(a, b) >= 0 {
		return MergeResult{Defined: true, Data: a.Data}, nil
	}
	return MergeResult{Defined: true, Data: b.Data}, nil
}

// OptionalValueMerge implements spec.md §4.2's OptionalValue CRDT: each
// node either sets a value, deletes it, or leaves it unchanged (OpNone).
// The branch with the tie-break-winning set/delete ancestor determines the
// result; if neither branch ever set or deleted the value the result is
// "undefined" (there is nothing to merge into existence).
func (t *Tree) OptionalValueMerge(headA, headB common.Hash) (MergeResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if headA == headB {
		n, ok := t.nodes[headA]
		if !ok {
			return MergeResult{}, onecoreerrors.New(onecoreerrors.KindNotFound, "versiontree: head not found")
		}
		return nodeResult(n), nil
	}

	a := t.findLastOpAncestor(headA)
	b := t.findLastOpAncestor(headB)

	switch {
	case a == nil && b == nil:
		return MergeResult{Defined: false}, nil
	case a == nil:
		return nodeResult(b), nil
	case b == nil:
		return nodeResult(a), nil
	}

	if compareTieBreak(a, b) >= 0 {
		return nodeResult(a), nil
	}
	return nodeResult(b), nil
}

func nodeResult(n *Node) MergeResult {
	if n.Op == OpDelete {
		return MergeResult{Defined: false}
	}
	return MergeResult{Defined: true, Data: n.Data}
}
