// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ordered

// Set is an insertion-ordered set of keys: a Map with no mapped values and
// a key-only surface. The zero value is not usable; construct with NewSet.
type Set[K comparable] struct {
	m Map[K, struct{}]
}

// NewSet constructs a Set with at least bucketCount index cells, rounded up
// to a power of two. A bucketCount of 0 rounds up to the minimum of 1.
func NewSet[K comparable](bucketCount int, options ...Option[K, struct{}]) *Set[K] {
	return &Set[K]{m: *New[K, struct{}](bucketCount, options...)}
}

// Len returns the number of keys in the set.
func (s *Set[K]) Len() int {
	return s.m.Len()
}

// Empty reports whether the set has no keys.
func (s *Set[K]) Empty() bool {
	return s.m.Empty()
}

// Insert adds key if absent and reports whether an insertion happened.
func (s *Set[K]) Insert(key K) (bool, error) {
	_, inserted, err := s.m.Insert(key, struct{}{})
	return inserted, err
}

// InsertSlice bulk-inserts keys in order, reserving up front.
func (s *Set[K]) InsertSlice(keys []K) error {
	if free := s.m.loadThreshold - s.m.Len(); len(keys) > 0 && free < len(keys) {
		if err := s.m.Reserve(s.m.Len() + len(keys)); err != nil {
			return err
		}
	}
	for _, k := range keys {
		if _, err := s.Insert(k); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether key is present.
func (s *Set[K]) Contains(key K) bool {
	return s.m.Contains(key)
}

// ContainsWithHash is Contains with a precomputed hash.
func (s *Set[K]) ContainsWithHash(key K, h uintptr) bool {
	_, ok := s.m.GetWithHash(key, h)
	return ok
}

// ContainsFunc looks up by a precomputed hash and key predicate.
func (s *Set[K]) ContainsFunc(h uintptr, match func(*K) bool) bool {
	_, ok := s.m.GetFunc(h, match)
	return ok
}

// Count returns 0 or 1.
func (s *Set[K]) Count(key K) int {
	return s.m.Count(key)
}

// Position returns the insertion-order index of key.
func (s *Set[K]) Position(key K) (int, bool) {
	it, ok := s.m.Find(key)
	return it.pos, ok
}

// Delete removes key, preserving the order of the remaining keys.
func (s *Set[K]) Delete(key K) bool {
	return s.m.Delete(key)
}

// DeleteFunc is Delete by precomputed hash and key predicate.
func (s *Set[K]) DeleteFunc(h uintptr, match func(*K) bool) bool {
	return s.m.DeleteFunc(h, match)
}

// UnorderedDelete removes key in O(1); the last key takes over its place in
// the iteration order.
func (s *Set[K]) UnorderedDelete(key K) bool {
	return s.m.UnorderedDelete(key)
}

// PopBack removes the most recently inserted key.
func (s *Set[K]) PopBack() {
	s.m.PopBack()
}

// Clear removes all keys, keeping the index capacity.
func (s *Set[K]) Clear() {
	s.m.Clear()
}

// Nth returns the i-th key in insertion order.
func (s *Set[K]) Nth(i int) K {
	return s.m.store.At(i).Key
}

// Front returns the oldest key.
func (s *Set[K]) Front() K {
	return s.m.Front().Key
}

// Back returns the most recently inserted key.
func (s *Set[K]) Back() K {
	return s.m.Back().Key
}

// All calls yield for each key in insertion order until yield returns
// false.
func (s *Set[K]) All(yield func(key K) bool) {
	s.m.All(func(k K, _ struct{}) bool {
		return yield(k)
	})
}

// Keys returns the keys in insertion order as a fresh slice.
func (s *Set[K]) Keys() []K {
	keys := make([]K, 0, s.Len())
	s.All(func(k K) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Equal reports whether two sets hold the same keys in the same insertion
// order.
func (s *Set[K]) Equal(other *Set[K]) bool {
	return s.m.Equal(&other.m, func(struct{}, struct{}) bool { return true })
}

// Hash returns the full hash the set computes for key.
func (s *Set[K]) Hash(key K) uintptr {
	return s.m.Hash(key)
}

// Seed returns the hash seed.
func (s *Set[K]) Seed() uintptr {
	return s.m.Seed()
}

// Reserve prepares the set for n keys without intervening growth.
func (s *Set[K]) Reserve(n int) error {
	return s.m.Reserve(n)
}

// Rehash resizes the index to at least bucketCount cells.
func (s *Set[K]) Rehash(bucketCount int) error {
	return s.m.Rehash(bucketCount)
}

// BucketCount returns the length of the index array.
func (s *Set[K]) BucketCount() int {
	return s.m.BucketCount()
}

// LoadFactor returns Len() / BucketCount().
func (s *Set[K]) LoadFactor() float64 {
	return s.m.LoadFactor()
}

// MaxLoadFactor returns the load factor at which the set grows.
func (s *Set[K]) MaxLoadFactor() float64 {
	return s.m.MaxLoadFactor()
}

// SetMaxLoadFactor adjusts the growth threshold.
func (s *Set[K]) SetMaxLoadFactor(v float64) error {
	return s.m.SetMaxLoadFactor(v)
}

// Map exposes the set's underlying table, for operations the key-only
// surface does not carry (serialization, iterators, range deletes).
func (s *Set[K]) Map() *Map[K, struct{}] {
	return &s.m
}
