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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIterator(t *testing.T) {
	m := NewMap[int, string]()
	mustInsert(t, m, 1, "a")
	mustInsert(t, m, 2, "b")
	mustInsert(t, m, 3, "c")

	it := m.Iter()
	require.True(t, it.Valid())
	require.Equal(t, 0, it.Position())
	require.Equal(t, 1, it.Key())
	require.Equal(t, "a", it.Value())
	require.Equal(t, Entry[int, string]{1, "a"}, it.Entry())

	it = it.Next()
	require.Equal(t, 2, it.Key())
	it = it.Next().Next()
	require.False(t, it.Valid())
	it = it.Prev()
	require.Equal(t, 3, it.Key())
	require.Equal(t, 0, it.Add(-2).Position())

	// Iterators are positions: == compares them.
	require.Equal(t, m.Nth(2), it)

	// Seek is absolute, wherever the iterator sits.
	require.Equal(t, 1, it.Seek(0).Key())
	require.Equal(t, m.Nth(1), it.Seek(1))

	it.SetValue("c2")
	v, _ := m.Get(3)
	require.Equal(t, "c2", v)
}

func TestIteratorWalk(t *testing.T) {
	m := NewMap[int, int]()
	for i := 0; i < 100; i++ {
		mustInsert(t, m, i*10, i)
	}
	var keys []int
	for it := m.Iter(); it.Valid(); it = it.Next() {
		keys = append(keys, it.Key())
	}
	require.Equal(t, m.keys(), keys)
}

func TestDeleteIter(t *testing.T) {
	m := NewMap[int, string]()
	mustInsert(t, m, 1, "a")
	mustInsert(t, m, 2, "b")
	mustInsert(t, m, 3, "c")

	it, ok := m.Find(2)
	require.True(t, ok)
	next := m.DeleteIter(it)
	require.Equal(t, 3, next.Key())
	require.Equal(t, []int{1, 3}, m.keys())

	// Deleting the last entry returns the end position.
	it, ok = m.Find(3)
	require.True(t, ok)
	next = m.DeleteIter(it)
	require.False(t, next.Valid())
}

func TestUnorderedDeleteIter(t *testing.T) {
	m := NewMap[int, string]()
	mustInsert(t, m, 1, "a")
	mustInsert(t, m, 2, "b")
	mustInsert(t, m, 3, "c")

	it, ok := m.Find(1)
	require.True(t, ok)
	next := m.UnorderedDeleteIter(it)
	require.Equal(t, 3, next.Key())
	require.Equal(t, []int{3, 2}, m.keys())
}

func TestFindMiss(t *testing.T) {
	m := NewMap[int, int]()
	mustInsert(t, m, 1, 1)
	it, ok := m.Find(2)
	require.False(t, ok)
	require.False(t, it.Valid())
}
