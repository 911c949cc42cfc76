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

import "github.com/pkg/errors"

var (
	// ErrCapacityExceeded is returned when an insert would push the table
	// past the number of entries addressable by 32-bit positions.
	ErrCapacityExceeded = errors.New("ordered: table is at its maximum size")

	// ErrKeyNotFound is returned by At for a missing key.
	ErrKeyNotFound = errors.New("ordered: key not found")

	// ErrInvalidMaxLoadFactor is returned when a max load factor, supplied
	// directly or read from a serialized stream, falls outside
	// [MinMaxLoadFactor, MaxMaxLoadFactor].
	ErrInvalidMaxLoadFactor = errors.New("ordered: max load factor out of range")

	// ErrProtocolMismatch is returned when deserializing a stream written
	// with an unknown protocol version.
	ErrProtocolMismatch = errors.New("ordered: unknown serialization protocol version")

	// ErrMalformedStream is returned when deserialized counts or positions
	// are out of range for the stream that carries them.
	ErrMalformedStream = errors.New("ordered: malformed stream")
)
