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

// Package store implements the write-once, content-addressed object store
// (spec.md §4.3): objects/<hash>, id-objects/<id-hash>, and the BLOB/CLOB
// variants, all written crash-safely via temp-then-rename. A gofrs/flock
// lock on the instance root enforces the single-writer policy spec.md §5
// requires of the object store's directory.
package store

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/gofrs/flock"

	"github.com/refinio/onecore/common"
	"github.com/refinio/onecore/internal/idcache"
	"github.com/refinio/onecore/internal/revmap"
	"github.com/refinio/onecore/log"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// Status reports whether Put created a new file or the content already existed.
type Status int

const (
	// Created means this call wrote a new file.
	Created Status = iota
	// Exists means the content was already present; the call was a no-op.
	Exists
)

// Kind selects which subdirectory (and hashing domain) a put/get targets.
type Kind int

const (
	// KindObject stores canonical microdata objects under objects/.
	KindObject Kind = iota
	// KindBlob stores opaque binary content under blobs/.
	KindBlob
	// KindCLOB stores UTF-8 text content under clobs/; Put rejects
	// non-UTF-8 bytes.
	KindCLOB
)

func (k Kind) dirName() string {
	switch k {
	case KindBlob:
		return "blobs"
	case KindCLOB:
		return "clobs"
	default:
		return "objects"
	}
}

// Store is a single instance's object store rooted at dir.
type Store struct {
	root   string
	lock   *flock.Flock
	revmap *revmap.Index
	ids    *idcache.Cache
	log    log.Logger
}

// Open opens (and if necessary initializes) the object store rooted at
// root, taking an exclusive advisory lock on root/.lock so a second process
// cannot open the same instance directory concurrently (spec.md §5: "Object
// store: per-hash writes are naturally idempotent; no cross-hash locking
// needed" — the directory-level lock instead guards against two *processes*
// racing to initialize the same data directory).
func Open(root string) (*Store, error) {
	for _, sub := range []string{"objects", "blobs", "clobs", "id-objects", "reverse-map", "private"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0755); err != nil {
			return nil, fmt.Errorf("store: mkdir %s: %w", sub, err)
		}
	}

	lk := flock.New(filepath.Join(root, ".lock"))
	locked, err := lk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("store: lock instance root: %w", err)
	}
	if !locked {
		return nil, onecoreerrors.New(onecoreerrors.KindCodecError, "store: instance root is locked by another process")
	}

	rm, err := revmap.Open(filepath.Join(root, "reverse-map"))
	if err != nil {
		lk.Unlock()
		return nil, err
	}

	return &Store{
		root:   root,
		lock:   lk,
		revmap: rm,
		ids:    idcache.New(),
		log:    log.New("component", "store"),
	}, nil
}

// Close releases the instance-root lock.
func (s *Store) Close() error {
	return s.lock.Unlock()
}

// Root returns the instance root directory.
func (s *Store) Root() string { return s.root }

// RevMap returns the reverse-map index for this store.
func (s *Store) RevMap() *revmap.Index { return s.revmap }

// IDCache returns the ID-hash cache for this store.
func (s *Store) IDCache() *idcache.Cache { return s.ids }

func (s *Store) pathFor(kind Kind, hash common.Hash) string {
	return filepath.Join(s.root, kind.dirName(), hash.String())
}

// Put writes data under kind's domain, returning its content hash and
// whether this call created the file or it already existed. Put is
// idempotent: writing the same bytes twice yields the same hash and only
// stores the file once.
func (s *Store) Put(kind Kind, data []byte) (common.Hash, Status, error) {
	if kind == KindCLOB && !utf8.Valid(data) {
		return common.ZeroHash, 0, onecoreerrors.New(onecoreerrors.KindCodecError, "store: CLOB content is not valid UTF-8")
	}

	hash := sha256Sum(data)
	path := s.pathFor(kind, hash)

	if _, err := os.Stat(path); err == nil {
		return hash, Exists, nil
	}

	if err := writeAtomic(path, data); err != nil {
		return common.ZeroHash, 0, err
	}
	return hash, Created, nil
}

// Get reads the bytes stored under hash in kind's domain, verifying that
// their content hashes back to hash.
func (s *Store) Get(kind Kind, hash common.Hash) ([]byte, error) {
	path := s.pathFor(kind, hash)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, onecoreerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read: %w", err)
	}
	if sha256Sum(data) != hash {
		return nil, onecoreerrors.ErrHashMismatch
	}
	return data, nil
}

// Exists reports whether hash is present in kind's domain.
func (s *Store) Exists(kind Kind, hash common.Hash) bool {
	_, err := os.Stat(s.pathFor(kind, hash))
	return err == nil
}

// Size returns the byte length stored under hash, failing NotFound if absent.
func (s *Store) Size(kind Kind, hash common.Hash) (uint64, error) {
	info, err := os.Stat(s.pathFor(kind, hash))
	if os.IsNotExist(err) {
		return 0, onecoreerrors.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("store: stat: %w", err)
	}
	return uint64(info.Size()), nil
}

// StreamRead opens hash for sequential reading without loading it entirely
// into memory; callers verify the hash themselves (e.g. chum.Importer hashes
// as it relays the stream to its own Put).
func (s *Store) StreamRead(kind Kind, hash common.Hash) (io.ReadCloser, error) {
	f, err := os.Open(s.pathFor(kind, hash))
	if os.IsNotExist(err) {
		return nil, onecoreerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return f, nil
}

// Writer stages bytes in a temporary file and finalizes them into the store
// on Close, which reads the staged file back in full to compute the content
// hash; the hash is not computed incrementally during Write.
type Writer struct {
	store *Store
	kind  Kind
	tmp   *os.File
	buf   bytes.Buffer // mirrors the tmp file for the UTF-8 validity check on CLOB
	hash  common.Hash
	done  bool
}

// StreamWrite opens a finalizing writer: bytes written to it are staged
// under a temporary name and atomically renamed into place on Close, which
// also returns the resulting content hash.
func (s *Store) StreamWrite(kind Kind) (*Writer, error) {
	tmp, err := os.CreateTemp(filepath.Join(s.root, kind.dirName()), ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("store: create temp: %w", err)
	}
	return &Writer{store: s, kind: kind, tmp: tmp}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.kind == KindCLOB {
		w.buf.Write(p)
	}
	return w.tmp.Write(p)
}

// Close finalizes the writer: flushes to disk, computes the content hash,
// renames into place (or discards if content already existed), and returns
// the hash plus whether this call created the file.
func (w *Writer) Close() (common.Hash, Status, error) {
	if w.done {
		return w.hash, 0, fmt.Errorf("store: writer already closed")
	}
	w.done = true

	if w.kind == KindCLOB && !utf8.Valid(w.buf.Bytes()) {
		w.tmp.Close()
		os.Remove(w.tmp.Name())
		return common.ZeroHash, 0, onecoreerrors.New(onecoreerrors.KindCodecError, "store: CLOB content is not valid UTF-8")
	}

	if err := w.tmp.Sync(); err != nil {
		w.tmp.Close()
		os.Remove(w.tmp.Name())
		return common.ZeroHash, 0, fmt.Errorf("store: sync: %w", err)
	}
	if _, err := w.tmp.Seek(0, io.SeekStart); err != nil {
		w.tmp.Close()
		os.Remove(w.tmp.Name())
		return common.ZeroHash, 0, fmt.Errorf("store: seek: %w", err)
	}

	data, err := io.ReadAll(w.tmp)
	w.tmp.Close()
	if err != nil {
		os.Remove(w.tmp.Name())
		return common.ZeroHash, 0, fmt.Errorf("store: read back: %w", err)
	}

	hash := sha256Sum(data)
	w.hash = hash
	final := w.store.pathFor(w.kind, hash)

	if _, err := os.Stat(final); err == nil {
		os.Remove(w.tmp.Name())
		return hash, Exists, nil
	}

	if err := os.Rename(w.tmp.Name(), final); err != nil {
		os.Remove(w.tmp.Name())
		return common.ZeroHash, 0, fmt.Errorf("store: rename: %w", err)
	}
	return hash, Created, nil
}

// writeAtomic stages data under a temp file in the same directory as path
// and renames it into place, so a crash mid-write never leaves a partial
// file visible under the final name.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}
