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

// Package versiontree implements the per-ID-hash DAG of version nodes and
// the Register/OptionalValue CRDT merge algorithms defined in spec.md §4.2.
// Every node is also inserted into a google/btree.BTree ordered by
// (creationTime, hash); the merge functions do not query that index and
// find the nearest ancestor with a set op by walking Previous links.
package versiontree

import (
	"sync"

	"github.com/google/btree"

	"github.com/refinio/onecore/common"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// Op tags what a version node did to the CRDT value relative to its
// predecessor: nothing (the snapshot was unchanged), set (a new value was
// written), or delete (OptionalValue only: the value became undefined).
type Op int

const (
	OpNone Op = iota
	OpSet
	OpDelete
)

// Node is one entry in a version tree: the hash of the canonical object
// snapshot it carries (Data), when it was created, which prior node(s) it
// follows, and what CRDT operation produced it.
type Node struct {
	Hash         common.Hash
	CreationTime int64
	Data         common.Hash
	Previous     []common.Hash
	Op           Op
}

// byOrder is the btree.Item ordering key: (CreationTime, Hash), ascending.
type byOrder struct {
	creationTime int64
	hash         common.Hash
}

func (a byOrder) Less(than btree.Item) bool {
	b := than.(byOrder)
	if a.creationTime != b.creationTime {
		return a.creationTime < b.creationTime
	}
	return a.hash.Less(b.hash)
}

// Tree is the version DAG for a single ID-hash.
type Tree struct {
	mu      sync.RWMutex
	idHash  common.Hash
	nodes   map[common.Hash]*Node
	order   *btree.BTree
	headSet map[common.Hash]struct{} // nodes with no known successor
}

// New creates an empty version tree for idHash.
func New(idHash common.Hash) *Tree {
	return &Tree{
		idHash:  idHash,
		nodes:   make(map[common.Hash]*Node),
		order:   btree.New(32),
		headSet: make(map[common.Hash]struct{}),
	}
}

// Append adds a new version node. previous must reference nodes already in
// the tree (or be empty for the root). Appending a node whose previous
// pointers would close a cycle fails CycleDetected.
func (t *Tree) Append(hash common.Hash, creationTime int64, data common.Hash, previous []common.Hash, op Op) (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.nodes[hash]; exists {
		return t.nodes[hash], nil // idempotent re-append
	}

	for _, p := range previous {
		if _, ok := t.nodes[p]; !ok {
			return nil, onecoreerrors.New(onecoreerrors.KindNotFound, "versiontree: previous node not found: "+p.String())
		}
	}
	if t.wouldCycle(hash, previous) {
		return nil, onecoreerrors.ErrCycleDetected
	}

	n := &Node{Hash: hash, CreationTime: creationTime, Data: data, Previous: previous, Op: op}
	t.nodes[hash] = n
	t.order.ReplaceOrInsert(byOrder{creationTime: creationTime, hash: hash})

	for _, p := range previous {
		delete(t.headSet, p)
	}
	t.headSet[hash] = struct{}{}

	return n, nil
}

// wouldCycle reports whether adding a node `hash` with the given previous
// pointers would make hash reachable from itself by following Previous
// links backwards — i.e. whether hash is already an ancestor of one of its
// own proposed predecessors.
func (t *Tree) wouldCycle(hash common.Hash, previous []common.Hash) bool {
	visited := make(map[common.Hash]bool)
	var walk func(h common.Hash) bool
	walk = func(h common.Hash) bool {
		if h == hash {
			return true
		}
		if visited[h] {
			return false
		}
		visited[h] = true
		n, ok := t.nodes[h]
		if !ok {
			return false
		}
		for _, p := range n.Previous {
			if walk(p) {
				return true
			}
		}
		return false
	}
	for _, p := range previous {
		if walk(p) {
			return true
		}
	}
	return false
}

// Get returns the node for hash.
func (t *Tree) Get(hash common.Hash) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[hash]
	return n, ok
}

// Heads returns every node with no recorded successor (the tips of every
// branch). A tree with exactly one head is fully merged.
func (t *Tree) Heads() []common.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]common.Hash, 0, len(t.headSet))
	for h := range t.headSet {
		out = append(out, h)
	}
	return out
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// compareTieBreak implements spec.md §4.2's total order over candidate
// nodes: (1) has-op beats no-op; (2) greater creationTime; (3) greater hash
// lexicographically. It returns a positive number if a wins, negative if b
// wins, zero if they are equal in every tie-break dimension.
func compareTieBreak(a, b *Node) int {
	aHasOp := a.Op != OpNone
	bHasOp := b.Op != OpNone
	if aHasOp != bHasOp {
		if aHasOp {
			return 1
		}
		return -1
	}
	if a.CreationTime != b.CreationTime {
		if a.CreationTime > b.CreationTime {
			return 1
		}
		return -1
	}
	if a.Hash == b.Hash {
		return 0
	}
	if b.Hash.Less(a.Hash) {
		return 1
	}
	return -1
}

// findLastOpAncestor walks from start (inclusive) back through Previous
// links, returning the first node encountered whose Op is not OpNone — the
// "maximum ancestor that has a set op" spec.md §4.2 describes for Register,
// generalized to also recognize OpDelete for OptionalValue. Returns nil if
// no ancestor (including start) ever set or deleted the value.
func (t *Tree) findLastOpAncestor(start common.Hash) *Node {
	visited := make(map[common.Hash]bool)
	var walk func(h common.Hash) *Node
	walk = func(h common.Hash) *Node {
		if visited[h] {
			return nil
		}
		visited[h] = true
		n, ok := t.nodes[h]
		if !ok {
			return nil
		}
		if n.Op != OpNone {
			return n
		}
		// A no-op node may have multiple predecessors only if it is itself
		// a merge node that happened to resolve to "no change"; scan all
		// and pick the tie-break winner among whatever ancestors do carry
		// an op.
		var best *Node
		for _, p := range n.Previous {
			if cand := walk(p); cand != nil {
				if best == nil || compareTieBreak(cand, best) > 0 {
					best = cand
				}
			}
		}
		return best
	}
	return walk(start)
}
