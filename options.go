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

import "unsafe"

// Option provides an interface to do work on a Map while it is being
// created.
type Option[K comparable, V any] interface {
	apply(m *Map[K, V])
}

type hashOption[K comparable, V any] struct {
	hash func(key *K, seed uintptr) uintptr
}

func (op hashOption[K, V]) apply(m *Map[K, V]) {
	m.hash = *(*hashFn)(noescape(unsafe.Pointer(&op.hash)))
}

// WithHash is an option to specify the hash function for a Map[K,V],
// replacing the hash extracted from the Go runtime. A deterministic hash
// (together with WithSeed) is what makes serialized tables loadable in
// hash-compatible mode across processes.
func WithHash[K comparable, V any](hash func(key *K, seed uintptr) uintptr) Option[K, V] {
	return hashOption[K, V]{hash}
}

type seedOption[K comparable, V any] struct {
	seed uintptr
}

func (op seedOption[K, V]) apply(m *Map[K, V]) {
	m.seed = op.seed
}

// WithSeed is an option to fix the hash seed instead of drawing a random
// one. Two tables with the same hash function and seed compute identical
// hashes, as required by hash-compatible deserialization.
func WithSeed[K comparable, V any](seed uintptr) Option[K, V] {
	return seedOption[K, V]{seed}
}

type equalOption[K comparable, V any] struct {
	eq func(a, b K) bool
}

func (op equalOption[K, V]) apply(m *Map[K, V]) {
	m.eq = op.eq
}

// WithEqual is an option to replace == as the key equality. The hash
// function must hash equal keys identically.
func WithEqual[K comparable, V any](eq func(a, b K) bool) Option[K, V] {
	return equalOption[K, V]{eq}
}

type maxLoadFactorOption[K comparable, V any] struct {
	v float64
}

func (op maxLoadFactorOption[K, V]) apply(m *Map[K, V]) {
	m.maxLoadFactor = op.v
}

// WithMaxLoadFactor is an option to set the growth threshold. New panics
// with ErrInvalidMaxLoadFactor for values outside
// [MinMaxLoadFactor, MaxMaxLoadFactor].
func WithMaxLoadFactor[K comparable, V any](v float64) Option[K, V] {
	return maxLoadFactorOption[K, V]{v}
}

type contiguousStoreOption[K comparable, V any] struct{}

func (contiguousStoreOption[K, V]) apply(m *Map[K, V]) {
	m.store = &SliceStore[Entry[K, V]]{}
}

// WithContiguousStore is an option to back the table with a single
// contiguous slice instead of the default segmented blocks. The entries
// become addressable through Map.Data, at the cost of reallocation on
// growth.
func WithContiguousStore[K comparable, V any]() Option[K, V] {
	return contiguousStoreOption[K, V]{}
}

type storeOption[K comparable, V any] struct {
	store Store[Entry[K, V]]
}

func (op storeOption[K, V]) apply(m *Map[K, V]) {
	m.store = op.store
}

// WithStore is an option to supply a custom (empty) Store implementation.
func WithStore[K comparable, V any](store Store[Entry[K, V]]) Option[K, V] {
	return storeOption[K, V]{store}
}
