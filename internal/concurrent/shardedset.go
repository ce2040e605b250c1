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

package concurrent

import (
	"sync"

	"github.com/refinio/onecore/common"
)

// ShardCount is the number of shards for ShardedHashSet. It must be a power
// of 2 so that a single hash byte can index it directly.
const ShardCount = 256

// ShardedHashSet is a concurrent set of content hashes, sharded by the
// hash's first byte to reduce lock contention. The Chum exporter keeps one
// per session to record the hashes it has sent (spec.md §4.7).
type ShardedHashSet struct {
	shards [ShardCount]struct {
		sync.RWMutex
		data map[common.Hash]struct{}
	}
}

// NewShardedHashSet creates an empty sharded hash set.
func NewShardedHashSet() *ShardedHashSet {
	s := &ShardedHashSet{}
	for i := range s.shards {
		s.shards[i].data = make(map[common.Hash]struct{})
	}
	return s
}

func (s *ShardedHashSet) shard(h common.Hash) *struct {
	sync.RWMutex
	data map[common.Hash]struct{}
} {
	return &s.shards[h[0]]
}

// Add inserts h and reports whether it was newly added (false if it was
// already a member).
func (s *ShardedHashSet) Add(h common.Hash) bool {
	shard := s.shard(h)
	shard.Lock()
	defer shard.Unlock()
	if _, ok := shard.data[h]; ok {
		return false
	}
	shard.data[h] = struct{}{}
	return true
}

// Contains reports whether h is a member.
func (s *ShardedHashSet) Contains(h common.Hash) bool {
	shard := s.shard(h)
	shard.RLock()
	defer shard.RUnlock()
	_, ok := shard.data[h]
	return ok
}

// Delete removes h.
func (s *ShardedHashSet) Delete(h common.Hash) {
	shard := s.shard(h)
	shard.Lock()
	delete(shard.data, h)
	shard.Unlock()
}

// Len returns the total number of members across all shards.
func (s *ShardedHashSet) Len() int {
	total := 0
	for i := range s.shards {
		s.shards[i].RLock()
		total += len(s.shards[i].data)
		s.shards[i].RUnlock()
	}
	return total
}
