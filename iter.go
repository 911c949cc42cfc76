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

// Iterator is a position in a map's insertion-ordered sequence. Iterators
// are values: advancing returns a new Iterator and never mutates the
// receiver. Two iterators over the same map compare equal with == when
// they reference the same position.
//
// An Iterator borrows the map. Operations that shift positions, grow the
// store, or rehash invalidate it (see the package documentation);
// dereferencing an invalidated iterator yields whichever entry now sits at
// the position. Past the end, a SliceStore panics; a SegmentedStore panics
// or yields a zero-valued entry, depending on whether the position still
// falls inside an allocated block.
type Iterator[K comparable, V any] struct {
	m   *Map[K, V]
	pos int
}

// Valid reports whether the iterator references an entry, as opposed to
// the position one past the end.
func (it Iterator[K, V]) Valid() bool {
	return it.m != nil && it.pos >= 0 && it.pos < it.m.store.Len()
}

// Position returns the iterator's index in insertion order.
func (it Iterator[K, V]) Position() int {
	return it.pos
}

// Key returns the key of the referenced entry.
func (it Iterator[K, V]) Key() K {
	return it.m.store.At(it.pos).Key
}

// Value returns the mapped value of the referenced entry.
func (it Iterator[K, V]) Value() V {
	return it.m.store.At(it.pos).Value
}

// SetValue overwrites the mapped value of the referenced entry.
func (it Iterator[K, V]) SetValue(v V) {
	it.m.store.At(it.pos).Value = v
}

// Entry returns a copy of the referenced entry.
func (it Iterator[K, V]) Entry() Entry[K, V] {
	return *it.m.store.At(it.pos)
}

// Next returns an iterator one position later.
func (it Iterator[K, V]) Next() Iterator[K, V] {
	return Iterator[K, V]{m: it.m, pos: it.pos + 1}
}

// Prev returns an iterator one position earlier.
func (it Iterator[K, V]) Prev() Iterator[K, V] {
	return Iterator[K, V]{m: it.m, pos: it.pos - 1}
}

// Add returns an iterator n positions later (earlier if n is negative).
func (it Iterator[K, V]) Add(n int) Iterator[K, V] {
	return Iterator[K, V]{m: it.m, pos: it.pos + n}
}

// Seek returns an iterator at the absolute position i in insertion order.
func (it Iterator[K, V]) Seek(i int) Iterator[K, V] {
	return Iterator[K, V]{m: it.m, pos: i}
}
