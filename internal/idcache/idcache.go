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

// Package idcache bounds the hash -> id-hash memo spec.md §4.3 calls for:
// an LRU(500) populated on write and consulted on reference resolution, so
// that walking a reference to a versioned object doesn't re-parse its
// microdata just to learn which ID-hash it belongs to.
package idcache

import (
	"github.com/refinio/onecore/common"
	"github.com/refinio/onecore/internal/cache"
)

// DefaultCapacity is spec.md §4.3's "LRU(500)".
const DefaultCapacity = 500

// entry is none when a hash is known not to belong to any versioned object,
// distinguishing "looked up, not versioned" from "never looked up".
type entry struct {
	id      common.Hash
	present bool
}

// Cache memoizes hash -> id-hash|none.
type Cache struct {
	lru *cache.LRU[common.Hash, entry]
}

// New creates an ID-hash cache with the default capacity.
func New() *Cache {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity creates an ID-hash cache with an explicit capacity
// (tests use a small one to exercise eviction deterministically).
func NewWithCapacity(capacity int) *Cache {
	return &Cache{lru: cache.NewLRU[common.Hash, entry](capacity)}
}

// Lookup returns the id-hash memoized for hash, and whether hash is known to
// be a versioned object at all (false,false means "not in cache": the
// caller must resolve the miss itself and call Put).
func (c *Cache) Lookup(hash common.Hash) (id common.Hash, isVersioned bool, cached bool) {
	e, ok := c.lru.Get(hash)
	if !ok {
		return common.ZeroHash, false, false
	}
	return e.id, e.present, true
}

// Put memoizes that hash belongs to id-hash id (a versioned object).
func (c *Cache) Put(hash, id common.Hash) {
	c.lru.Set(hash, entry{id: id, present: true})
}

// PutNotVersioned memoizes that hash does not belong to any ID-object.
func (c *Cache) PutNotVersioned(hash common.Hash) {
	c.lru.Set(hash, entry{present: false})
}

// Len reports the number of memoized entries.
func (c *Cache) Len() int { return c.lru.Len() }
