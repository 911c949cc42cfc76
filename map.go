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

// Package ordered provides a hash table that remembers the order in which
// keys were first inserted and exposes that order as a random-access
// sequence.
//
// # Design
//
// A Map couples two arrays. The store is a dense sequence of entries in
// insertion order with no holes. The index is a power-of-two array of
// 64-bit cells, each holding the position of an entry in the store together
// with the low 32 bits of the entry's hash, or an empty marker. Lookups
// probe the index; iteration and positional access walk the store directly.
//
// The index uses open addressing with linear probing and Robin Hood
// displacement: on collision, whichever of the two cells sits farther from
// its preferred bucket stays, and the other continues down the chain. See
// https://codecapsule.com/2013/11/11/robin-hood-hashing/ for background.
// Deletion uses backward shift rather than tombstones, pulling subsequent
// cells one slot earlier until an empty cell or a cell already in its
// preferred bucket, so probe chains stay short and lookups can stop as soon
// as the probed distance exceeds the resident cell's distance.
//
// Index cells store positions rather than pointers so that the store can be
// kept dense. Erasing an entry in the middle shifts every later entry left
// by one; the affected cells are found by walking the store tail and
// re-probing each shifted key, then decrementing the matching cell. The
// cells also keep the truncated hash of their key, which makes a rehash
// able to redistribute cells without hashing any key again.
//
// UnorderedDelete trades order for speed: the erased entry is replaced by
// the last entry in the store and the two index cells swap positions, which
// is O(1) but moves the previously-last key to the erased key's place in
// the iteration order.
//
// # Growth
//
// The table grows to twice its bucket count when an insert would push the
// size past floor(bucketCount * maxLoadFactor). A second trigger guards
// against clustering: if a single insertion probes more than 128 cells
// while the load factor is at least 0.15, the table schedules a grow for
// the next insert. Deferring keeps the displacement loop itself free of
// allocation.
//
// # Iterator invalidation
//
// Iterators are positions into the store and hold no pointers, but the
// entry a position refers to changes under mutation:
//   - Clear, Reserve, Rehash, and any insert that grows the table
//     invalidate all iterators.
//   - An ordered Delete invalidates iterators at and after the erased
//     position.
//   - UnorderedDelete invalidates iterators to the erased and last
//     positions.
//
// A Map is NOT goroutine-safe. Concurrent readers are fine while no writer
// is active.
package ordered

import (
	"fmt"
	"math"
	"math/bits"
	"math/rand/v2"
	"strings"
	"unsafe"
)

const (
	debug = false

	// defaultInitialBuckets is the bucket count NewMap uses.
	defaultInitialBuckets = 16

	// defaultMaxLoadFactor balances probe length against memory. Robin
	// Hood probing keeps chains usable at loads well past what plain
	// linear probing tolerates.
	defaultMaxLoadFactor = 0.9

	// MinMaxLoadFactor and MaxMaxLoadFactor bound the values accepted by
	// SetMaxLoadFactor and by deserialized streams.
	MinMaxLoadFactor = 0.1
	MaxMaxLoadFactor = 0.95

	// rehashNumProbes and rehashMinLoadFactor drive the emergency growth
	// trigger: a displacement run longer than rehashNumProbes while the
	// table holds at least rehashMinLoadFactor * bucketCount entries sets
	// the deferred-grow flag.
	rehashNumProbes     = 128
	rehashMinLoadFactor = 0.15

	// maxBuckets caps the index array. The bucket mask must fit in the 32
	// bits of a truncated hash for rehash to recompute preferred buckets
	// from stored hashes.
	maxBuckets = 1 << 30
)

// Entry is a key and its mapped value, the unit stored in insertion order.
// For sets the value is struct{}.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Map is an insertion-ordered map from keys to values. The zero value is
// not usable; construct with New or NewMap.
type Map[K comparable, V any] struct {
	// hash and seed produce the full hash of a key. The hash function is
	// extracted from the Go runtime's implementation of map[K]struct{}
	// unless overridden with WithHash.
	hash hashFn
	seed uintptr
	// eq overrides == when set (WithEqual).
	eq func(a, b K) bool

	buckets []bucketEntry
	mask    uintptr

	store Store[Entry[K, V]]

	growOnNextInsert bool
	maxLoadFactor    float64
	// loadThreshold is floor(len(buckets) * maxLoadFactor): the size at
	// which the next insert grows the table.
	loadThreshold int
	// minLoadRehash is floor(len(buckets) * rehashMinLoadFactor), the size
	// below which long probe runs do not schedule a grow.
	minLoadRehash int

	// restoreFill tracks how many index cells a resumable hash-compatible
	// deserialization has loaded so far. Unused outside deserialization.
	restoreFill int
}

// New constructs a Map with at least bucketCount index cells, rounded up to
// a power of two. A bucketCount of 0 rounds up to the minimum of 1.
func New[K comparable, V any](bucketCount int, options ...Option[K, V]) *Map[K, V] {
	m := &Map[K, V]{
		hash:          getRuntimeHasher[K](),
		seed:          uintptr(rand.Uint64()),
		store:         &SegmentedStore[Entry[K, V]]{},
		maxLoadFactor: defaultMaxLoadFactor,
	}
	for _, op := range options {
		op.apply(m)
	}
	if m.maxLoadFactor < MinMaxLoadFactor || m.maxLoadFactor > MaxMaxLoadFactor {
		panic(ErrInvalidMaxLoadFactor)
	}

	n := roundUpPowerOfTwo(bucketCount)
	if n > maxBuckets {
		panic(ErrCapacityExceeded)
	}
	m.buckets = newBuckets(n)
	m.mask = uintptr(n - 1)
	m.updateThresholds()
	return m
}

// NewMap constructs a Map with the default bucket count of 16.
func NewMap[K comparable, V any](options ...Option[K, V]) *Map[K, V] {
	return New[K, V](defaultInitialBuckets, options...)
}

func roundUpPowerOfTwo(v int) int {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(v-1))
}

func (m *Map[K, V]) updateThresholds() {
	m.loadThreshold = int(float64(len(m.buckets)) * m.maxLoadFactor)
	m.minLoadRehash = int(float64(len(m.buckets)) * rehashMinLoadFactor)
}

// Hash returns the full hash the table computes for key. Pass the result to
// the WithHash variants of the lookup and mutation operations to skip
// recomputation, for example when probing several tables keyed the same
// way.
func (m *Map[K, V]) Hash(key K) uintptr {
	return m.hash(noescape(unsafe.Pointer(&key)), m.seed)
}

// Seed returns the hash seed. A table built with WithSeed of the same seed
// (and the same hash and equality functions) computes identical hashes,
// which is what the hash-compatible deserialization mode requires.
func (m *Map[K, V]) Seed() uintptr {
	return m.seed
}

func (m *Map[K, V]) hashKey(key *K) uintptr {
	return m.hash(noescape(unsafe.Pointer(key)), m.seed)
}

func (m *Map[K, V]) equal(a K, b *K) bool {
	if m.eq != nil {
		return m.eq(a, *b)
	}
	return a == *b
}

// bucketForHash returns the preferred bucket for a truncated hash.
func (m *Map[K, V]) bucketForHash(th uint32) int {
	return int(uintptr(th) & m.mask)
}

func (m *Map[K, V]) nextBucket(i int) int {
	return int(uintptr(i+1) & m.mask)
}

// probeDistance returns how many slots past its preferred bucket the cell
// at index i sits.
func (m *Map[K, V]) probeDistance(i int) int {
	return probeDist(m.mask, i, m.buckets[i].hash)
}

func probeDist(mask uintptr, i int, th uint32) int {
	initial := int(uintptr(th) & mask)
	if i >= initial {
		return i - initial
	}
	return int(mask) + 1 + i - initial
}

// findBucket returns the index of the cell holding key, or -1.
func (m *Map[K, V]) findBucket(key K, h uintptr) int {
	th := truncateHash(h)
	for i, dist := m.bucketForHash(th), 0; ; i, dist = m.nextBucket(i), dist+1 {
		b := &m.buckets[i]
		if b.empty() {
			return -1
		}
		if b.hash == th && m.equal(key, &m.store.At(int(b.pos)).Key) {
			if debug {
				fmt.Printf("find(%v): bucket=%d dist=%d\n", key, i, dist)
			}
			return i
		}
		if dist > m.probeDistance(i) {
			// Robin Hood short-circuit: key would have displaced this cell.
			return -1
		}
	}
}

// findBucketFunc is findBucket for a caller-supplied hash and key
// predicate. It backs the heterogeneous lookups, which must not coerce the
// lookup type to K.
func (m *Map[K, V]) findBucketFunc(h uintptr, match func(*K) bool) int {
	th := truncateHash(h)
	for i, dist := m.bucketForHash(th), 0; ; i, dist = m.nextBucket(i), dist+1 {
		b := &m.buckets[i]
		if b.empty() {
			return -1
		}
		if b.hash == th && match(&m.store.At(int(b.pos)).Key) {
			return i
		}
		if dist > m.probeDistance(i) {
			return -1
		}
	}
}

// emplace is the single insertion path: find key or claim a cell, append to
// the store, and place the new cell with Robin Hood displacement. mkValue
// runs only when the key is absent.
func (m *Map[K, V]) emplace(key K, h uintptr, mkValue func() V) (pos int, inserted bool, err error) {
	th := truncateHash(h)
	i := m.bucketForHash(th)
	dist := 0
	for !m.buckets[i].empty() && dist <= m.probeDistance(i) {
		b := &m.buckets[i]
		if b.hash == th && m.equal(key, &m.store.At(int(b.pos)).Key) {
			return int(b.pos), false, nil
		}
		i = m.nextBucket(i)
		dist++
	}

	if m.store.Len() >= maxEntries {
		return -1, false, ErrCapacityExceeded
	}

	if grew, err := m.growOnHighLoad(); err != nil {
		return -1, false, err
	} else if grew {
		i = m.bucketForHash(th)
		dist = 0
	}

	m.store.PushBack(Entry[K, V]{Key: key, Value: mkValue()})
	m.placeCell(i, dist, uint32(m.store.Len()-1), th)
	if debug {
		fmt.Printf("insert(%v): pos=%d bucket-count=%d\n", key, m.store.Len()-1, len(m.buckets))
	}
	m.checkInvariants()
	return m.store.Len() - 1, true, nil
}

// placeCell inserts (pos, th) starting at bucket i with the given probe
// distance, displacing resident cells that sit closer to their preferred
// bucket. The loop allocates nothing; if it runs long on a loaded table it
// schedules a grow for the next insert instead of growing here.
func (m *Map[K, V]) placeCell(i, dist int, pos, th uint32) {
	for !m.buckets[i].empty() {
		d := m.probeDistance(i)
		if dist > d {
			b := &m.buckets[i]
			pos, b.pos = b.pos, pos
			th, b.hash = b.hash, th
			dist = d
		}
		i = m.nextBucket(i)
		dist++
		if dist > rehashNumProbes && m.store.Len() >= m.minLoadRehash {
			m.growOnNextInsert = true
		}
	}
	m.buckets[i] = bucketEntry{pos: pos, hash: th}
}

// growOnHighLoad reports whether it rehashed.
func (m *Map[K, V]) growOnHighLoad() (bool, error) {
	if m.growOnNextInsert || m.store.Len() >= m.loadThreshold {
		if err := m.rehashTo(2 * len(m.buckets)); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (m *Map[K, V]) rehashTo(bucketCount int) error {
	bucketCount = roundUpPowerOfTwo(bucketCount)
	if bucketCount == len(m.buckets) {
		m.growOnNextInsert = false
		return nil
	}
	if bucketCount > maxBuckets {
		return ErrCapacityExceeded
	}
	if debug {
		fmt.Printf("rehash: %d -> %d buckets\n", len(m.buckets), bucketCount)
	}

	newB := newBuckets(bucketCount)
	newMask := uintptr(bucketCount - 1)
	// Cells carry their truncated hash, so redistribution never hashes a
	// key: recompute the preferred bucket from the stored hash and replay
	// the Robin Hood placement.
	for k := range m.buckets {
		old := &m.buckets[k]
		if old.empty() {
			continue
		}
		placeCellIn(newB, newMask, old.pos, old.hash)
	}
	m.buckets = newB
	m.mask = newMask
	m.growOnNextInsert = false
	m.updateThresholds()
	m.checkInvariants()
	return nil
}

// placeCellIn is Robin Hood placement into an arbitrary bucket array, used
// by rehash and by range erase when rebuilding the index.
func placeCellIn(buckets []bucketEntry, mask uintptr, pos, th uint32) {
	i := int(uintptr(th) & mask)
	dist := 0
	for !buckets[i].empty() {
		d := probeDist(mask, i, buckets[i].hash)
		if dist > d {
			b := &buckets[i]
			pos, b.pos = b.pos, pos
			th, b.hash = b.hash, th
			dist = d
		}
		i = int(uintptr(i+1) & mask)
		dist++
	}
	buckets[i] = bucketEntry{pos: pos, hash: th}
}

// backwardShift repairs the probe chain after the cell at emptied became
// empty: subsequent cells move one slot earlier until an empty cell or one
// already in its preferred bucket.
func (m *Map[K, V]) backwardShift(emptied int) {
	prev := emptied
	for cur := m.nextBucket(prev); !m.buckets[cur].empty() && m.probeDistance(cur) > 0; prev, cur = cur, m.nextBucket(cur) {
		m.buckets[prev], m.buckets[cur] = m.buckets[cur], m.buckets[prev]
	}
}

// shiftPositions decrements by one the index cell of every store entry now
// at position [from, Len): their entries just shifted left after an ordered
// erase. Cells are located by re-probing from each shifted key's preferred
// bucket, so the cost scales with the store tail rather than the whole
// index.
func (m *Map[K, V]) shiftPositions(from int) {
	for iv := from; iv < m.store.Len(); iv++ {
		th := truncateHash(m.hashKey(&m.store.At(iv).Key))
		ib := m.bucketForHash(th)
		for int(m.buckets[ib].pos) != iv+1 {
			ib = m.nextBucket(ib)
		}
		m.buckets[ib].setPosition(iv)
	}
}

// eraseBucket removes the entry referenced by the cell at ib, preserving
// insertion order.
func (m *Map[K, V]) eraseBucket(ib int) {
	p := int(m.buckets[ib].position())
	m.store.EraseAt(p)
	if p != m.store.Len() {
		m.shiftPositions(p)
	}
	m.buckets[ib].clear()
	m.backwardShift(ib)
	m.checkInvariants()
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.store.Len()
}

// Empty reports whether the map has no entries.
func (m *Map[K, V]) Empty() bool {
	return m.store.Empty()
}

// BucketCount returns the length of the index array.
func (m *Map[K, V]) BucketCount() int {
	return len(m.buckets)
}

// LoadFactor returns Len() / BucketCount().
func (m *Map[K, V]) LoadFactor() float64 {
	return float64(m.store.Len()) / float64(len(m.buckets))
}

// MaxLoadFactor returns the load factor at which the table grows.
func (m *Map[K, V]) MaxLoadFactor() float64 {
	return m.maxLoadFactor
}

// SetMaxLoadFactor adjusts the growth threshold. Values outside
// [MinMaxLoadFactor, MaxMaxLoadFactor] return ErrInvalidMaxLoadFactor.
func (m *Map[K, V]) SetMaxLoadFactor(v float64) error {
	if v < MinMaxLoadFactor || v > MaxMaxLoadFactor {
		return ErrInvalidMaxLoadFactor
	}
	m.maxLoadFactor = v
	m.updateThresholds()
	return nil
}

// Reserve prepares the table for n entries without intervening growth: the
// index is rehashed up to hold n at the current max load factor and the
// store pre-allocates.
func (m *Map[K, V]) Reserve(n int) error {
	m.store.Reserve(n)
	if need := int(math.Ceil(float64(n) / m.maxLoadFactor)); need > len(m.buckets) {
		return m.Rehash(need)
	}
	return nil
}

// Rehash resizes the index to at least bucketCount cells, rounded up to a
// power of two and never below what the current size requires. Entry order
// is unaffected.
func (m *Map[K, V]) Rehash(bucketCount int) error {
	need := int(math.Ceil(float64(m.store.Len()) / m.maxLoadFactor))
	if bucketCount < need {
		bucketCount = need
	}
	return m.rehashTo(bucketCount)
}

// ShrinkToFit releases excess store capacity. Best effort: only the
// contiguous store holds excess capacity worth releasing.
func (m *Map[K, V]) ShrinkToFit() {
	if s, ok := m.store.(*SliceStore[Entry[K, V]]); ok {
		s.ShrinkToFit()
	}
}

// Clear removes all entries, keeping the index capacity.
func (m *Map[K, V]) Clear() {
	for i := range m.buckets {
		m.buckets[i].clear()
	}
	m.store.Clear()
	m.growOnNextInsert = false
	m.restoreFill = 0
}

// Get returns the value for key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.GetWithHash(key, m.Hash(key))
}

// GetWithHash is Get with a precomputed hash.
func (m *Map[K, V]) GetWithHash(key K, h uintptr) (V, bool) {
	if ib := m.findBucket(key, h); ib >= 0 {
		return m.store.At(int(m.buckets[ib].pos)).Value, true
	}
	var zero V
	return zero, false
}

// GetFunc looks up by a precomputed hash and a key predicate. The hash and
// predicate must be consistent with the table's hash and equality for keys
// of type K; the lookup type never converts to K.
func (m *Map[K, V]) GetFunc(h uintptr, match func(*K) bool) (V, bool) {
	if ib := m.findBucketFunc(h, match); ib >= 0 {
		return m.store.At(int(m.buckets[ib].pos)).Value, true
	}
	var zero V
	return zero, false
}

// Contains reports whether key is present.
func (m *Map[K, V]) Contains(key K) bool {
	return m.findBucket(key, m.Hash(key)) >= 0
}

// Count returns 0 or 1.
func (m *Map[K, V]) Count(key K) int {
	if m.Contains(key) {
		return 1
	}
	return 0
}

// At returns the value for key or ErrKeyNotFound.
func (m *Map[K, V]) At(key K) (V, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}
	var zero V
	return zero, ErrKeyNotFound
}

// Find returns an iterator to key's entry.
func (m *Map[K, V]) Find(key K) (Iterator[K, V], bool) {
	return m.FindWithHash(key, m.Hash(key))
}

// FindWithHash is Find with a precomputed hash.
func (m *Map[K, V]) FindWithHash(key K, h uintptr) (Iterator[K, V], bool) {
	if ib := m.findBucket(key, h); ib >= 0 {
		return Iterator[K, V]{m: m, pos: int(m.buckets[ib].pos)}, true
	}
	return Iterator[K, V]{m: m, pos: m.store.Len()}, false
}

// FindFunc is Find by precomputed hash and key predicate.
func (m *Map[K, V]) FindFunc(h uintptr, match func(*K) bool) (Iterator[K, V], bool) {
	if ib := m.findBucketFunc(h, match); ib >= 0 {
		return Iterator[K, V]{m: m, pos: int(m.buckets[ib].pos)}, true
	}
	return Iterator[K, V]{m: m, pos: m.store.Len()}, false
}

// EqualRange returns the half-open iterator range of entries equal to key:
// at most one element.
func (m *Map[K, V]) EqualRange(key K) (Iterator[K, V], Iterator[K, V]) {
	it, ok := m.Find(key)
	if !ok {
		return it, it
	}
	return it, it.Next()
}

// Insert adds key with value if absent. It reports the entry's iterator
// and whether an insertion happened; an existing key keeps its value.
func (m *Map[K, V]) Insert(key K, value V) (Iterator[K, V], bool, error) {
	return m.InsertWithHash(key, m.Hash(key), value)
}

// InsertWithHash is Insert with a precomputed hash.
func (m *Map[K, V]) InsertWithHash(key K, h uintptr, value V) (Iterator[K, V], bool, error) {
	pos, inserted, err := m.emplace(key, h, func() V { return value })
	if err != nil {
		return Iterator[K, V]{m: m, pos: m.store.Len()}, false, err
	}
	return Iterator[K, V]{m: m, pos: pos}, inserted, nil
}

// InsertWithHint is Insert with an iterator hint: if the hint references an
// entry with an equal key, it is returned without probing.
func (m *Map[K, V]) InsertWithHint(hint Iterator[K, V], key K, value V) (Iterator[K, V], bool, error) {
	if hint.m == m && hint.Valid() && m.equal(key, &m.store.At(hint.pos).Key) {
		return hint, false, nil
	}
	return m.Insert(key, value)
}

// Put sets key to value, overwriting the mapped value if the key exists.
// The key's place in the insertion order does not change.
func (m *Map[K, V]) Put(key K, value V) error {
	pos, inserted, err := m.emplace(key, m.Hash(key), func() V { return value })
	if err != nil {
		return err
	}
	if !inserted {
		m.store.At(pos).Value = value
	}
	return nil
}

// PutWithHint is Put with an iterator hint.
func (m *Map[K, V]) PutWithHint(hint Iterator[K, V], key K, value V) error {
	if hint.m == m && hint.Valid() && m.equal(key, &m.store.At(hint.pos).Key) {
		m.store.At(hint.pos).Value = value
		return nil
	}
	return m.Put(key, value)
}

// TryEmplace inserts key with a value built by mkValue only if the key is
// absent; an existing key's value is untouched and mkValue does not run.
func (m *Map[K, V]) TryEmplace(key K, mkValue func() V) (Iterator[K, V], bool, error) {
	pos, inserted, err := m.emplace(key, m.Hash(key), mkValue)
	if err != nil {
		return Iterator[K, V]{m: m, pos: m.store.Len()}, false, err
	}
	return Iterator[K, V]{m: m, pos: pos}, inserted, nil
}

// GetOrInsert returns a pointer to key's value, inserting the zero value
// first if the key is absent. The pointer is valid until the next
// mutation.
func (m *Map[K, V]) GetOrInsert(key K) (*V, error) {
	pos, _, err := m.emplace(key, m.Hash(key), func() V { var zero V; return zero })
	if err != nil {
		return nil, err
	}
	return &m.store.At(pos).Value, nil
}

// InsertSlice bulk-inserts entries in order, reserving up front when the
// batch would outgrow the current threshold. Existing keys keep their
// values.
func (m *Map[K, V]) InsertSlice(entries []Entry[K, V]) error {
	if free := m.loadThreshold - m.store.Len(); len(entries) > 0 && free < len(entries) {
		if err := m.Reserve(m.store.Len() + len(entries)); err != nil {
			return err
		}
	}
	for i := range entries {
		if _, _, err := m.Insert(entries[i].Key, entries[i].Value); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes key, preserving the order of the remaining entries. It
// reports whether the key was present.
func (m *Map[K, V]) Delete(key K) bool {
	return m.DeleteWithHash(key, m.Hash(key))
}

// DeleteWithHash is Delete with a precomputed hash.
func (m *Map[K, V]) DeleteWithHash(key K, h uintptr) bool {
	ib := m.findBucket(key, h)
	if ib < 0 {
		return false
	}
	m.eraseBucket(ib)
	return true
}

// DeleteFunc is Delete by precomputed hash and key predicate.
func (m *Map[K, V]) DeleteFunc(h uintptr, match func(*K) bool) bool {
	ib := m.findBucketFunc(h, match)
	if ib < 0 {
		return false
	}
	m.eraseBucket(ib)
	return true
}

// DeleteIter removes the entry at it, preserving order, and returns an
// iterator to the entry that took its position.
func (m *Map[K, V]) DeleteIter(it Iterator[K, V]) Iterator[K, V] {
	key := &m.store.At(it.pos).Key
	ib := m.findBucket(*key, m.hashKey(key))
	m.eraseBucket(ib)
	return Iterator[K, V]{m: m, pos: it.pos}
}

// DeleteRange removes the entries in [first, last), preserving the order
// of the rest, and returns an iterator to the entry that took first's
// position. Surviving cells are rebuilt in one pass over the index,
// replaying the Robin Hood placement from their stored hashes the way
// rehash does.
func (m *Map[K, V]) DeleteRange(first, last Iterator[K, V]) Iterator[K, V] {
	lo, hi := first.pos, last.pos
	if lo >= hi {
		return Iterator[K, V]{m: m, pos: lo}
	}
	m.store.EraseRange(lo, hi)

	nb := uint32(hi - lo)
	newB := newBuckets(len(m.buckets))
	for i := range m.buckets {
		b := &m.buckets[i]
		if b.empty() {
			continue
		}
		switch {
		case int(b.pos) >= hi:
			placeCellIn(newB, m.mask, b.pos-nb, b.hash)
		case int(b.pos) < lo:
			placeCellIn(newB, m.mask, b.pos, b.hash)
		}
	}
	m.buckets = newB
	m.checkInvariants()
	return Iterator[K, V]{m: m, pos: lo}
}

// UnorderedDelete removes key in O(1) by swapping its entry with the last
// entry in the store, which takes over the erased key's place in the
// iteration order. It reports whether the key was present.
func (m *Map[K, V]) UnorderedDelete(key K) bool {
	return m.UnorderedDeleteWithHash(key, m.Hash(key))
}

// UnorderedDeleteWithHash is UnorderedDelete with a precomputed hash.
func (m *Map[K, V]) UnorderedDeleteWithHash(key K, h uintptr) bool {
	ib := m.findBucket(key, h)
	if ib < 0 {
		return false
	}
	m.unorderedEraseBucket(ib)
	return true
}

// UnorderedDeleteFunc is UnorderedDelete by precomputed hash and key
// predicate.
func (m *Map[K, V]) UnorderedDeleteFunc(h uintptr, match func(*K) bool) bool {
	ib := m.findBucketFunc(h, match)
	if ib < 0 {
		return false
	}
	m.unorderedEraseBucket(ib)
	return true
}

// UnorderedDeleteIter is UnorderedDelete of the entry at it, returning an
// iterator to the entry that took its position.
func (m *Map[K, V]) UnorderedDeleteIter(it Iterator[K, V]) Iterator[K, V] {
	key := m.store.At(it.pos).Key
	m.UnorderedDeleteWithHash(key, m.hashKey(&key))
	return Iterator[K, V]{m: m, pos: it.pos}
}

func (m *Map[K, V]) unorderedEraseBucket(ib int) {
	last := m.store.Len() - 1
	if p := int(m.buckets[ib].position()); p != last {
		backKey := &m.store.At(last).Key
		ibLast := m.findBucket(*backKey, m.hashKey(backKey))
		if invariants && int(m.buckets[ibLast].pos) != last {
			panic("last entry's cell does not reference the last position")
		}
		*m.store.At(p), *m.store.At(last) = *m.store.At(last), *m.store.At(p)
		m.buckets[ib].pos, m.buckets[ibLast].pos = m.buckets[ibLast].pos, m.buckets[ib].pos
	}
	m.store.PopBack()
	m.buckets[ib].clear()
	m.backwardShift(ib)
	m.checkInvariants()
}

// PopBack removes the most recently inserted entry.
func (m *Map[K, V]) PopBack() {
	back := &m.store.At(m.store.Len() - 1).Key
	ib := m.findBucket(*back, m.hashKey(back))
	m.eraseBucket(ib)
}

// Nth returns an iterator to the i-th entry in insertion order.
func (m *Map[K, V]) Nth(i int) Iterator[K, V] {
	if i < 0 || i > m.store.Len() {
		panic("ordered: position out of range")
	}
	return Iterator[K, V]{m: m, pos: i}
}

// Front returns the oldest entry.
func (m *Map[K, V]) Front() Entry[K, V] {
	return *m.store.At(0)
}

// Back returns the most recently inserted entry.
func (m *Map[K, V]) Back() Entry[K, V] {
	return *m.store.At(m.store.Len() - 1)
}

// Values returns the underlying store. The store is a read-only borrow:
// mutating it directly corrupts the index.
func (m *Map[K, V]) Values() Store[Entry[K, V]] {
	return m.store
}

// Data returns the contiguous backing slice of entries, valid until the
// next mutation. It reports false when the table was not built with
// WithContiguousStore.
func (m *Map[K, V]) Data() ([]Entry[K, V], bool) {
	if s, ok := m.store.(*SliceStore[Entry[K, V]]); ok {
		return s.Data(), true
	}
	return nil, false
}

// All calls yield for each entry in insertion order until yield returns
// false. The map must not be mutated during iteration.
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	for i := 0; i < m.store.Len(); i++ {
		e := m.store.At(i)
		if !yield(e.Key, e.Value) {
			return
		}
	}
}

// Iter returns an iterator positioned at the oldest entry.
func (m *Map[K, V]) Iter() Iterator[K, V] {
	return Iterator[K, V]{m: m, pos: 0}
}

// Swap exchanges the contents of two maps.
func (m *Map[K, V]) Swap(other *Map[K, V]) {
	*m, *other = *other, *m
}

// Equal reports whether two maps hold equal entries in the same insertion
// order, comparing values with eqValue.
func (m *Map[K, V]) Equal(other *Map[K, V], eqValue func(a, b V) bool) bool {
	if m.store.Len() != other.store.Len() {
		return false
	}
	for i := 0; i < m.store.Len(); i++ {
		a, b := m.store.At(i), other.store.At(i)
		if a.Key != b.Key || !eqValue(a.Value, b.Value) {
			return false
		}
	}
	return true
}

func (m *Map[K, V]) checkInvariants() {
	if invariants {
		if len(m.buckets) == 0 || len(m.buckets)&(len(m.buckets)-1) != 0 {
			panic(fmt.Sprintf("invariant failed: bucket count %d is not a power of two", len(m.buckets)))
		}

		seen := make([]bool, m.store.Len())
		nonEmpty := 0
		for i := range m.buckets {
			b := &m.buckets[i]
			if b.empty() {
				continue
			}
			nonEmpty++
			if int(b.pos) >= m.store.Len() {
				panic(fmt.Sprintf("invariant failed: bucket %d references position %d of %d\n%s",
					i, b.pos, m.store.Len(), m.debugString()))
			}
			if seen[b.pos] {
				panic(fmt.Sprintf("invariant failed: position %d referenced twice\n%s", b.pos, m.debugString()))
			}
			seen[b.pos] = true
			if th := truncateHash(m.hashKey(&m.store.At(int(b.pos)).Key)); th != b.hash {
				panic(fmt.Sprintf("invariant failed: bucket %d stores hash %08x, key hashes to %08x\n%s",
					i, b.hash, th, m.debugString()))
			}
			// Probe distances grow by at most one slot per step along a
			// chain: a cell past its preferred bucket must follow an occupied
			// cell displaced by at least one slot less than itself.
			if d := m.probeDistance(i); d > 0 {
				prev := int(uintptr(i-1) & m.mask)
				if m.buckets[prev].empty() || m.probeDistance(prev) < d-1 {
					panic(fmt.Sprintf("invariant failed: bucket %d at distance %d has no predecessor\n%s",
						i, d, m.debugString()))
				}
			}
		}
		if nonEmpty != m.store.Len() {
			panic(fmt.Sprintf("invariant failed: %d occupied buckets for %d entries\n%s",
				nonEmpty, m.store.Len(), m.debugString()))
		}
		if !m.growOnNextInsert && m.store.Len() > m.loadThreshold {
			panic(fmt.Sprintf("invariant failed: size %d above load threshold %d without a scheduled grow",
				m.store.Len(), m.loadThreshold))
		}
	}
}

func (m *Map[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "size=%d  buckets=%d  load-threshold=%d  grow-on-next-insert=%t\n",
		m.store.Len(), len(m.buckets), m.loadThreshold, m.growOnNextInsert)
	for i := range m.buckets {
		b := &m.buckets[i]
		if b.empty() {
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
		} else {
			fmt.Fprintf(&buf, "  %4d: pos=%d hash=%08x dist=%d key=%v\n",
				i, b.pos, b.hash, m.probeDistance(i), m.store.At(int(b.pos)).Key)
		}
	}
	return buf.String()
}
