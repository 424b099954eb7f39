package world

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const posShards = 64

// PositionSet is a concurrent set of packed block positions. It gives each
// destruction run at-most-once semantics per coordinate.
type PositionSet struct {
	shards [posShards]posShard
	n      atomic.Int64
}

type posShard struct {
	mu sync.Mutex
	m  map[uint64]struct{}
}

// NewPositionSet returns an empty set.
func NewPositionSet() *PositionSet {
	s := &PositionSet{}
	for i := range s.shards {
		s.shards[i].m = make(map[uint64]struct{})
	}
	return s
}

func (s *PositionSet) shard(key uint64) *posShard {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return &s.shards[xxhash.Sum64(buf[:])%posShards]
}

// Add inserts (x, y, z) and reports whether it was absent.
func (s *PositionSet) Add(x, y, z int) bool {
	return s.AddPacked(PackBlock(x, y, z))
}

// AddPacked inserts a PackBlock key and reports whether it was absent.
func (s *PositionSet) AddPacked(key uint64) bool {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.m[key]; ok {
		return false
	}
	sh.m[key] = struct{}{}
	s.n.Add(1)
	return true
}

// Contains reports whether (x, y, z) is in the set.
func (s *PositionSet) Contains(x, y, z int) bool {
	key := PackBlock(x, y, z)
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.m[key]
	return ok
}

// Remove deletes (x, y, z) from the set.
func (s *PositionSet) Remove(x, y, z int) {
	key := PackBlock(x, y, z)
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.m[key]; ok {
		delete(sh.m, key)
		s.n.Add(-1)
	}
}

// Len returns the number of positions in the set.
func (s *PositionSet) Len() int { return int(s.n.Load()) }

// Clear empties the set.
func (s *PositionSet) Clear() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		s.n.Add(-int64(len(sh.m)))
		clear(sh.m)
		sh.mu.Unlock()
	}
}
