// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package access

import (
	"github.com/refinio/onecore/common"
	"github.com/refinio/onecore/internal/codec"
	"github.com/refinio/onecore/internal/store"
	"github.com/refinio/onecore/internal/versiontree"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// Manager writes Access/IdAccess grants through the codec, the object
// store, and a version tree per target, so that createAccess (spec.md
// §4.8) behaves as "write a new version whose content is this version's
// resolved grant, with mode=add unioning into whatever the previous
// version held".
type Manager struct {
	reg   *codec.Registry
	st    *store.Store
	trees map[common.Hash]*versiontree.Tree // keyed by target
}

// NewManager creates a Manager writing through st using the recipes
// registered in reg (call Recipes(reg) once beforehand).
func NewManager(reg *codec.Registry, st *store.Store) *Manager {
	return &Manager{reg: reg, st: st, trees: make(map[common.Hash]*versiontree.Tree)}
}

func (m *Manager) treeFor(target common.Hash) *versiontree.Tree {
	t, ok := m.trees[target]
	if !ok {
		t = versiontree.New(target)
		m.trees[target] = t
	}
	return t
}

// Grant writes a new version of the Access (or IdAccess) object governing
// target, combining g with whatever version currently governs it per
// g.Mode, and returns the new version's content hash (the value an
// importer would fetch to see "the access object as of now").
func (m *Manager) Grant(typeName string, g Grant, creationTime int64, nodeHash common.Hash) (common.Hash, error) {
	tree := m.treeFor(g.Target)

	previous := Grant{}
	heads := tree.Heads()
	if len(heads) > 0 {
		winner, err := m.resolveHeads(tree, heads)
		if err != nil {
			return common.ZeroHash, err
		}
		data, err := m.st.Get(store.KindObject, winner)
		if err != nil {
			return common.ZeroHash, err
		}
		previous, err = Decode(m.reg, typeName, data)
		if err != nil {
			return common.ZeroHash, err
		}
	}

	resolved := Resolve(previous, g)

	data, contentHash, idHash, err := Encode(m.reg, typeName, resolved)
	if err != nil {
		return common.ZeroHash, err
	}

	refs := []store.Reference{{Target: resolved.Target, Kind: refKindFor(typeName)}}
	if _, _, err := m.st.PutObjectWithReferences(typeName, data, refs); err != nil {
		return common.ZeroHash, err
	}

	var previousNodes []common.Hash
	if heads := tree.Heads(); len(heads) > 0 {
		previousNodes = heads
	}
	if _, err := tree.Append(nodeHash, creationTime, contentHash, previousNodes, versiontree.OpSet); err != nil {
		return common.ZeroHash, err
	}
	if err := m.st.SetHead(idHash, nodeHash); err != nil {
		return common.ZeroHash, err
	}

	return contentHash, nil
}

// Current returns the grant currently governing target, resolving any
// concurrent heads first. It reports ok=false if target has never been
// granted any access at all (as opposed to an empty grant, which Decode
// still returns successfully).
func (m *Manager) Current(typeName string, target common.Hash) (Grant, bool, error) {
	tree, ok := m.trees[target]
	if !ok {
		return Grant{}, false, nil
	}
	heads := tree.Heads()
	if len(heads) == 0 {
		return Grant{}, false, nil
	}
	winner, err := m.resolveHeads(tree, heads)
	if err != nil {
		return Grant{}, false, err
	}
	data, err := m.st.Get(store.KindObject, winner)
	if err != nil {
		return Grant{}, false, err
	}
	g, err := Decode(m.reg, typeName, data)
	if err != nil {
		return Grant{}, false, err
	}
	return g, true, nil
}

func refKindFor(typeName string) common.ReferenceKind {
	if typeName == TypeIdAccess {
		return common.RefID
	}
	return common.RefObject
}

// resolveHeads folds concurrent heads pairwise through RegisterMerge until
// one content hash remains. The tie-break winner's data is the basis the
// new grant is combined with; persons and groups that only a losing branch
// holds are not carried over.
func (m *Manager) resolveHeads(tree *versiontree.Tree, heads []common.Hash) (common.Hash, error) {
	winner := heads[0]
	for _, h := range heads[1:] {
		result, err := tree.RegisterMerge(winner, h)
		if err != nil {
			return common.ZeroHash, err
		}
		if !result.Defined {
			return common.ZeroHash, onecoreerrors.New(onecoreerrors.KindCodecError, "access: RegisterMerge returned an undefined result")
		}
		// RegisterMerge reports a content hash, not a node hash; find the
		// node that carries it among the two candidates so the next fold
		// iteration has a node hash to compare against again.
		if nodeA, ok := tree.Get(winner); ok && nodeA.Data == result.Data {
			continue
		}
		winner = h
	}
	if node, ok := tree.Get(winner); ok {
		return node.Data, nil
	}
	return common.ZeroHash, onecoreerrors.New(onecoreerrors.KindNotFound, "access: unresolved head")
}
