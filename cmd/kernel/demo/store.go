package demo

import (
	"fmt"
	"sort"
	"sync"
)

// Store is the in-memory ledger the indexer reads from.
type Store struct {
	mu     sync.RWMutex
	open   bool
	blocks map[uint64]string
}

// NewStore creates a closed store.
func NewStore() *Store {
	return &Store{blocks: make(map[uint64]string)}
}

// Open makes the store writable.
func (s *Store) Open() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
}

// Put records a block hash at height.
func (s *Store) Put(height uint64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return fmt.Errorf("store closed")
	}
	s.blocks[height] = hash
	return nil
}

// Heights returns the stored heights in ascending order.
func (s *Store) Heights() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint64, 0, len(s.blocks))
	for h := range s.blocks {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsOpen reports whether the store accepts writes.
func (s *Store) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// Close implements io.Closer so the container can release it.
func (s *Store) Close() error {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	return nil
}
