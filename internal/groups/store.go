package groups

import (
	"slices"
	"sync"
)

// Store owns the current partition and applies manual edits to it.
//
// Every mutation builds a fresh Partition and never writes into a group slice
// that a previous snapshot could still reference. Mutations are serialized and
// fully applied (including the empty-group cleanup) before the next one runs.
// Callers must re-read indices from a fresh Snapshot after any mutation.
type Store struct {
	mu        sync.RWMutex
	partition Partition
}

// NewStore returns a store seeded with p.
func NewStore(p Partition) *Store {
	s := &Store{}
	s.Reseed(p)
	return s
}

// Reseed replaces the partition wholesale, typically after re-clustering.
func (s *Store) Reseed(p Partition) Partition {
	next := p.Clone()
	if next == nil {
		next = Partition{}
	}
	s.mu.Lock()
	s.partition = next
	s.mu.Unlock()
	return next.Clone()
}

// Snapshot returns a copy of the current partition.
func (s *Store) Snapshot() Partition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partition.Clone()
}

// Len returns the current number of groups.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partition)
}

// ItemCount returns the current number of items.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partition.ItemCount()
}

// AddEmptyGroup appends one empty group awaiting a manual placement.
func (s *Store) AddEmptyGroup() Partition {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(Partition, len(s.partition), len(s.partition)+1)
	copy(next, s.partition)
	s.partition = append(next, Group{})
	return s.partition.Clone()
}

// MoveItem removes the item at srcItem from group srcGroup and inserts it at
// dstItem in group dstGroup. srcGroup may equal dstGroup to reorder a group.
// Afterwards every empty group is dropped and later group indices shift down.
// An out-of-range index returns an *IndexError and leaves the partition as is.
func (s *Store) MoveItem(srcGroup, dstGroup, srcItem, dstItem int) (Partition, error) {
	const op = "move item"
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.partition
	if err := checkIndex(op, "source group", srcGroup, len(cur)); err != nil {
		return nil, err
	}
	if err := checkIndex(op, "destination group", dstGroup, len(cur)); err != nil {
		return nil, err
	}
	if err := checkIndex(op, "source item", srcItem, len(cur[srcGroup])); err != nil {
		return nil, err
	}
	// Insertion may append, so the destination range is one past the end of the
	// group as it looks after the removal.
	dstLen := len(cur[dstGroup])
	if dstGroup == srcGroup {
		dstLen--
	}
	if err := checkIndex(op, "destination item", dstItem, dstLen+1); err != nil {
		return nil, err
	}

	next := make(Partition, len(cur))
	copy(next, cur)
	moved := cur[srcGroup][srcItem]
	next[srcGroup] = slices.Delete(slices.Clone(cur[srcGroup]), srcItem, srcItem+1)
	next[dstGroup] = slices.Insert(slices.Clone(next[dstGroup]), dstItem, moved)

	s.partition = next.withoutEmpty()
	return s.partition.Clone(), nil
}

// MoveItemToNewGroup moves the item at srcItem of srcGroup into a new group
// appended at the end, then drops empty groups.
func (s *Store) MoveItemToNewGroup(srcGroup, srcItem int) (Partition, error) {
	const op = "move item to new group"
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.partition
	if err := checkIndex(op, "source group", srcGroup, len(cur)); err != nil {
		return nil, err
	}
	if err := checkIndex(op, "source item", srcItem, len(cur[srcGroup])); err != nil {
		return nil, err
	}

	next := make(Partition, len(cur), len(cur)+1)
	copy(next, cur)
	moved := cur[srcGroup][srcItem]
	next[srcGroup] = slices.Delete(slices.Clone(cur[srcGroup]), srcItem, srcItem+1)
	next = append(next, Group{moved})

	s.partition = next.withoutEmpty()
	return s.partition.Clone(), nil
}
