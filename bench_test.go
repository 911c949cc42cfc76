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
	"fmt"
	"io"
	"strconv"
	"testing"
	"unsafe"

	"github.com/aclements/go-perfevent/perfbench"
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// The ordered map is benchmarked against Go's builtin map (which does not
// keep order, a lower bound) and gods' linkedhashmap (the usual
// order-keeping alternative, built on a linked list over a map).

func BenchmarkMapIter(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapIter[int64], genKeys[int64]))
	})
	b.Run("impl=orderedMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOrderedMapIter[int64], genKeys[int64]))
	})
	b.Run("impl=linkedHashMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkLinkedHashMapIter[int64], genKeys[int64]))
	})
}

func BenchmarkMapGetHit(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapGetHit[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapGetHit[string], genKeys[string]))
	})
	b.Run("impl=orderedMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOrderedMapGetHit[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkOrderedMapGetHit[string], genKeys[string]))
	})
	b.Run("impl=linkedHashMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkLinkedHashMapGetHit[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkLinkedHashMapGetHit[string], genKeys[string]))
	})
}

func BenchmarkMapGetMiss(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapGetMiss[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapGetMiss[string], genKeys[string]))
	})
	b.Run("impl=orderedMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOrderedMapGetMiss[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkOrderedMapGetMiss[string], genKeys[string]))
	})
}

func BenchmarkMapPutGrow(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapPutGrow[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapPutGrow[string], genKeys[string]))
	})
	b.Run("impl=orderedMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOrderedMapPutGrow[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkOrderedMapPutGrow[string], genKeys[string]))
	})
	b.Run("impl=linkedHashMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkLinkedHashMapPutGrow[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkLinkedHashMapPutGrow[string], genKeys[string]))
	})
}

func BenchmarkMapPutDelete(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapPutDelete[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapPutDelete[string], genKeys[string]))
	})
	// The ordered delete pays for the position fixup of every later entry;
	// the unordered one is the apples-to-apples comparison with maps that
	// keep no order.
	b.Run("impl=orderedMap/erase=ordered", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOrderedMapPutDelete[int64], genKeys[int64]))
	})
	b.Run("impl=orderedMap/erase=unordered", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOrderedMapPutUnorderedDelete[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkOrderedMapPutUnorderedDelete[string], genKeys[string]))
	})
}

type benchTypes interface {
	int64 | string
}

func benchSizes[T benchTypes](
	f func(b *testing.B, n int, genKeys func(start, end int) []T), genKeys func(start, end int) []T,
) func(*testing.B) {
	var cases = []int{16, 128, 1024, 8192, 1 << 16}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n, genKeys) })
		}
	}
}

func genKeys[T benchTypes](start, end int) []T {
	var t T
	switch any(t).(type) {
	case int64:
		keys := make([]int64, end-start)
		for i := range keys {
			keys[i] = int64(start + i)
		}
		return unsafeConvertSlice[T](keys)
	case string:
		keys := make([]string, end-start)
		for i := range keys {
			keys[i] = strconv.Itoa(start + i)
		}
		return unsafeConvertSlice[T](keys)
	default:
		panic("not reached")
	}
}

func unsafeConvertSlice[Dest any, Src any](s []Src) []Dest {
	return unsafe.Slice((*Dest)(unsafe.Pointer(unsafe.SliceData(s))), len(s))
}

func benchmarkRuntimeMapIter[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	m := make(map[T]T, n)
	for _, k := range genKeys(0, n) {
		m[k] = k
	}
	b.ResetTimer()
	var sink T
	for i := 0; i < b.N; i++ {
		for k := range m {
			sink = k
		}
	}
	fmt.Fprint(io.Discard, sink)
}

func benchmarkOrderedMapIter[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	m := New[T, T](n)
	for _, k := range genKeys(0, n) {
		_, _, _ = m.Insert(k, k)
	}
	b.ResetTimer()
	var sink T
	for i := 0; i < b.N; i++ {
		m.All(func(k, v T) bool {
			sink = k
			return true
		})
	}
	fmt.Fprint(io.Discard, sink)
}

func benchmarkLinkedHashMapIter[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	m := linkedhashmap.New()
	for _, k := range genKeys(0, n) {
		m.Put(k, k)
	}
	b.ResetTimer()
	var sink T
	for i := 0; i < b.N; i++ {
		it := m.Iterator()
		for it.Next() {
			sink = it.Key().(T)
		}
	}
	fmt.Fprint(io.Discard, sink)
}

func benchmarkRuntimeMapGetHit[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	m := make(map[T]T, n)
	for _, k := range genKeys(0, n) {
		m[k] = k
	}
	// Regenerate to defeat the builtin map's pointer-equality fast path on
	// string keys.
	keys := genKeys(0, n)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m[keys[i&(n-1)]]
	}
}

func benchmarkOrderedMapGetHit[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	cs := perfbench.Open(b)
	m := New[T, T](n)
	for _, k := range genKeys(0, n) {
		_, _, _ = m.Insert(k, k)
	}
	keys := genKeys(0, n)
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Get(keys[i&(n-1)])
	}
	b.StopTimer()
	cs.Stop()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkLinkedHashMapGetHit[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	m := linkedhashmap.New()
	for _, k := range genKeys(0, n) {
		m.Put(k, k)
	}
	keys := genKeys(0, n)
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Get(keys[i&(n-1)])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapGetMiss[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	m := make(map[T]T)
	for _, k := range genKeys(0, n) {
		m[k] = k
	}
	miss := genKeys(-n, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m[miss[i%len(miss)]]
	}
}

func benchmarkOrderedMapGetMiss[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	m := New[T, T](0)
	for _, k := range genKeys(0, n) {
		_, _, _ = m.Insert(k, k)
	}
	miss := genKeys(-n, 0)
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Get(miss[i%len(miss)])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapPutGrow[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	keys := genKeys(0, n)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := make(map[T]T)
		for _, k := range keys {
			m[k] = k
		}
	}
}

func benchmarkOrderedMapPutGrow[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	keys := genKeys(0, n)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := New[T, T](0)
		for _, k := range keys {
			_, _, _ = m.Insert(k, k)
		}
	}
}

func benchmarkLinkedHashMapPutGrow[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	keys := genKeys(0, n)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := linkedhashmap.New()
		for _, k := range keys {
			m.Put(k, k)
		}
	}
}

func benchmarkRuntimeMapPutDelete[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	m := make(map[T]T, n)
	keys := genKeys(0, n)
	for _, k := range keys {
		m[k] = k
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % n
		delete(m, keys[j])
		m[keys[j]] = keys[j]
	}
}

func benchmarkOrderedMapPutDelete[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	m := New[T, T](n)
	keys := genKeys(0, n)
	for _, k := range keys {
		_, _, _ = m.Insert(k, k)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % n
		m.Delete(keys[j])
		_, _, _ = m.Insert(keys[j], keys[j])
	}
}

func benchmarkOrderedMapPutUnorderedDelete[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	cs := perfbench.Open(b)
	m := New[T, T](n)
	keys := genKeys(0, n)
	for _, k := range keys {
		_, _, _ = m.Insert(k, k)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % n
		m.UnorderedDelete(keys[j])
		_, _, _ = m.Insert(keys[j], keys[j])
	}
	b.StopTimer()
	cs.Stop()
}
