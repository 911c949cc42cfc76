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

// hashFn is the internal signature for hashing a key: a pointer to the key
// and a seed. It matches the signature of the hash functions in the Go
// runtime's type descriptors.
type hashFn func(key unsafe.Pointer, seed uintptr) uintptr

// getRuntimeHasher extracts the hash function that the builtin map[K]V uses
// for keys of type K by reaching into the runtime's representation of the
// map type. The same trick is used by a number of Go hash table
// implementations. This might break in a future version of Go, but is
// likely fixable unless the runtime does something drastic.
func getRuntimeHasher[K comparable]() hashFn {
	a := any((map[K]struct{})(nil))
	return (*rtEface)(unsafe.Pointer(&a)).typ.Hasher
}

// rtEface mirrors runtime/runtime2.go:eface.
type rtEface struct {
	typ  *rtMapType
	data unsafe.Pointer
}

// rtMapType mirrors internal/abi/type.go:MapType.
type rtMapType struct {
	rtType
	Key    *rtType
	Elem   *rtType
	Bucket *rtType
	// Hasher is the function for hashing keys: (ptr to key, seed) -> hash.
	Hasher     hashFn
	KeySize    uint8
	ValueSize  uint8
	BucketSize uint16
	Flags      uint32
}

type rtTFlag uint8
type rtNameOff int32
type rtTypeOff int32

// rtType mirrors internal/abi/type.go:Type.
type rtType struct {
	Size_       uintptr
	PtrBytes    uintptr
	Hash        uint32
	TFlag       rtTFlag
	Align_      uint8
	FieldAlign_ uint8
	Kind_       uint8
	Equal       func(unsafe.Pointer, unsafe.Pointer) bool
	GCData      *byte
	Str         rtNameOff
	PtrToThis   rtTypeOff
}

// noescape hides a pointer from escape analysis.  noescape is
// the identity function but escape analysis doesn't think the
// output depends on the input.  noescape is inlined and currently
// compiles down to zero instructions.
// USE CAREFULLY!
//
//go:nosplit
//go:nocheckptr
func noescape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
