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

// Package revmap maintains the per-target, per-type reverse index spec.md
// §4.3 and §6 describe: reverse-map/<target-hash>/<type> lists the hashes
// of every stored object of that type which references target. Entries are
// written by store.PutObjectWithReferences, including every grant that
// access.Manager stores; the Chum exporter's root filtering reads grants
// through access.Manager and does not consult this index.
package revmap

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/refinio/onecore/common"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// Index is a directory-backed reverse-map index rooted at dir (typically
// "<instance-root>/reverse-map").
type Index struct {
	dir string
	mu  sync.Mutex
}

// Open returns an Index rooted at dir, creating dir if necessary.
func Open(dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "revmap: create root", err)
	}
	return &Index{dir: dir}, nil
}

func (idx *Index) typeDir(target common.Hash, typeName string) string {
	return filepath.Join(idx.dir, target.String(), typeName)
}

// Add records that referencingHash (an object of type typeName) references
// target. It is idempotent: adding the same pair twice leaves the index
// unchanged. Call this in the same logical transaction as the object write
// that creates the reference (spec.md §4.3).
func (idx *Index) Add(target common.Hash, typeName string, referencingHash common.Hash) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	dir := idx.typeDir(target, typeName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return onecoreerrors.Wrap(onecoreerrors.KindCodecError, "revmap: create type dir", err)
	}

	path := filepath.Join(dir, referencingHash.String())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return onecoreerrors.Wrap(onecoreerrors.KindCodecError, "revmap: write entry", err)
	}
	return f.Close()
}

// List returns every hash of type typeName that references target.
func (idx *Index) List(target common.Hash, typeName string) ([]common.Hash, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	dir := idx.typeDir(target, typeName)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "revmap: list", err)
	}

	hashes := make([]common.Hash, 0, len(entries))
	for _, e := range entries {
		h, err := common.HashFromHex(e.Name())
		if err != nil {
			continue // skip non-canonical stray files
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// Types returns every type name under which target has at least one
// referencing entry.
func (idx *Index) Types(target common.Hash) ([]string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	dir := filepath.Join(idx.dir, target.String())
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "revmap: types", err)
	}

	types := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			types = append(types, e.Name())
		}
	}
	return types, nil
}
