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

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/refinio/onecore/common"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

func (s *Store) idObjectPath(idHash common.Hash) string {
	return filepath.Join(s.root, "id-objects", idHash.String())
}

// SetHead records headHash as the current version-tree head for idHash.
// internal/versiontree calls this whenever a new version node becomes the
// head after a write or a merge.
func (s *Store) SetHead(idHash, headHash common.Hash) error {
	return writeAtomic(s.idObjectPath(idHash), []byte(headHash.String()))
}

// Head returns the current head hash for idHash, failing NotFound if the
// ID-object has never been written.
func (s *Store) Head(idHash common.Hash) (common.Hash, error) {
	data, err := os.ReadFile(s.idObjectPath(idHash))
	if os.IsNotExist(err) {
		return common.ZeroHash, onecoreerrors.ErrNotFound
	}
	if err != nil {
		return common.ZeroHash, fmt.Errorf("store: read id-object: %w", err)
	}
	return common.HashFromHex(string(data))
}

// HasHead reports whether idHash has a recorded head.
func (s *Store) HasHead(idHash common.Hash) bool {
	_, err := os.Stat(s.idObjectPath(idHash))
	return err == nil
}
