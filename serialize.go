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
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
)

// Stream layout (everything little-endian, fixed widths):
//
//	header   u32 version | u64 element count | u64 bucket count | f32 max load factor
//	elements element-count entries in insertion order, caller-defined encoding
//	buckets  bucket-count records of (u32 position-or-sentinel, u32 truncated hash)
//
// The flat format is the three sections back to back. The chunked format
// frames the same bytes as (u32 kind, u32 byte length, payload) chunks so a
// consumer can stream a large table without materializing it; elements and
// buckets may span several consecutive chunks of the same kind, and an
// entry never straddles a chunk boundary. The header counts are
// authoritative; a chunk's byte length only bounds reads within that chunk.
const (
	serializationVersion = 1

	chunkKindHeader   = 1
	chunkKindElements = 2
	chunkKindBuckets  = 3
	chunkKindEnd      = 4

	// DefaultChunkSize is the target chunk payload size for
	// SerializeChunked. A chunk is closed once it reaches the target, so
	// chunks run over by at most one entry.
	DefaultChunkSize = 4096

	headerPayloadSize = 4 + 8 + 8 + 4
	bucketRecordSize  = 8
)

// EntryEncoder writes one entry to w.
type EntryEncoder[K comparable, V any] func(w io.Writer, e Entry[K, V]) error

// EntryDecoder reads one entry from r. It returns io.EOF only when r is
// exhausted before the first byte of an entry.
type EntryDecoder[K comparable, V any] func(r io.Reader) (Entry[K, V], error)

// KeyOnlyEncoder adapts a key encoder to an EntryEncoder for set-shaped
// tables.
func KeyOnlyEncoder[K comparable](enc func(w io.Writer, k K) error) EntryEncoder[K, struct{}] {
	return func(w io.Writer, e Entry[K, struct{}]) error {
		return enc(w, e.Key)
	}
}

// KeyOnlyDecoder adapts a key decoder to an EntryDecoder for set-shaped
// tables.
func KeyOnlyDecoder[K comparable](dec func(r io.Reader) (K, error)) EntryDecoder[K, struct{}] {
	return func(r io.Reader) (Entry[K, struct{}], error) {
		k, err := dec(r)
		return Entry[K, struct{}]{Key: k}, err
	}
}

// Serialize writes the table in the flat format. Entries are written in
// insertion order with enc, followed by the raw index records, so a reader
// with a compatible hasher can reload without rehashing.
func (m *Map[K, V]) Serialize(w io.Writer, enc EntryEncoder[K, V]) error {
	if err := m.writeHeader(w); err != nil {
		return err
	}
	for i := 0; i < m.store.Len(); i++ {
		if err := enc(w, *m.store.At(i)); err != nil {
			return errors.Wrap(err, "ordered: encoding entry")
		}
	}
	var rec [bucketRecordSize]byte
	for i := range m.buckets {
		b := &m.buckets[i]
		binary.LittleEndian.PutUint32(rec[0:4], b.pos)
		binary.LittleEndian.PutUint32(rec[4:8], b.hash)
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize reads a flat stream into an empty table.
//
// With hashCompatible false the index records in the stream are ignored and
// every entry is re-inserted, so the stream is portable across hash
// functions; iteration order is preserved because entries were written in
// insertion order.
//
// With hashCompatible true the index records are copied verbatim and no key
// is hashed. This requires the reader's hash function, seed, and equality
// to match the writer's (see WithSeed); if they differ the resulting table
// is corrupt and behavior is unspecified.
func (m *Map[K, V]) Deserialize(r io.Reader, dec EntryDecoder[K, V], hashCompatible bool) error {
	if m.store.Len() != 0 {
		return errors.Wrap(ErrMalformedStream, "deserializing into a non-empty table")
	}
	hdr, err := m.readHeader(r)
	if err != nil {
		return err
	}
	if err := m.applyHeader(hdr, hashCompatible); err != nil {
		return err
	}

	for i := uint64(0); i < hdr.elements; i++ {
		e, err := dec(r)
		if err != nil {
			return errors.Wrap(err, "ordered: decoding entry")
		}
		if hashCompatible {
			m.store.PushBack(e)
		} else if _, _, err := m.Insert(e.Key, e.Value); err != nil {
			return err
		}
	}

	if !hashCompatible {
		_, err := io.CopyN(io.Discard, r, int64(hdr.buckets)*bucketRecordSize)
		return err
	}
	var rec [bucketRecordSize]byte
	for i := uint64(0); i < hdr.buckets; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return err
		}
		m.buckets[i] = bucketEntry{
			pos:  binary.LittleEndian.Uint32(rec[0:4]),
			hash: binary.LittleEndian.Uint32(rec[4:8]),
		}
	}
	return m.validateRestored()
}

// SerializeChunked writes the table in the chunked format with the given
// target chunk payload size (DefaultChunkSize if chunkSize <= 0).
func (m *Map[K, V]) SerializeChunked(w io.Writer, enc EntryEncoder[K, V], chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var buf bytes.Buffer
	if err := m.writeHeader(&buf); err != nil {
		return err
	}
	if err := writeChunk(w, chunkKindHeader, buf.Bytes()); err != nil {
		return err
	}

	buf.Reset()
	for i := 0; i < m.store.Len(); i++ {
		if buf.Len() >= chunkSize {
			if err := writeChunk(w, chunkKindElements, buf.Bytes()); err != nil {
				return err
			}
			buf.Reset()
		}
		if err := enc(&buf, *m.store.At(i)); err != nil {
			return errors.Wrap(err, "ordered: encoding entry")
		}
	}
	if buf.Len() > 0 {
		if err := writeChunk(w, chunkKindElements, buf.Bytes()); err != nil {
			return err
		}
	}

	buf.Reset()
	var rec [bucketRecordSize]byte
	for i := range m.buckets {
		if buf.Len() >= chunkSize {
			if err := writeChunk(w, chunkKindBuckets, buf.Bytes()); err != nil {
				return err
			}
			buf.Reset()
		}
		b := &m.buckets[i]
		binary.LittleEndian.PutUint32(rec[0:4], b.pos)
		binary.LittleEndian.PutUint32(rec[4:8], b.hash)
		buf.Write(rec[:])
	}
	if buf.Len() > 0 {
		if err := writeChunk(w, chunkKindBuckets, buf.Bytes()); err != nil {
			return err
		}
	}

	return writeChunk(w, chunkKindEnd, nil)
}

// DeserializeChunked reads a chunked stream. The hashCompatible modes are
// those of Deserialize.
//
// Deserialization is resumable: a stream may be split at any chunk
// boundary and fed to DeserializeChunked in pieces. A call returns nil
// either at the END chunk (the table is complete) or at a clean end of
// input between chunks (feed the continuation next). When resuming into a
// non-empty table the repeated HEADER chunk is validated and skipped.
func (m *Map[K, V]) DeserializeChunked(r io.Reader, dec EntryDecoder[K, V], hashCompatible bool) error {
	resuming := m.store.Len() != 0 || m.restoreFill != 0
	// elements is the authoritative element count once the header chunk has
	// been seen by this call; -1 while unknown (resumed continuations).
	elements := int64(-1)

	for {
		kind, length, err := readChunkHeader(r)
		if err == io.EOF {
			// Clean break between chunks: the rest of the stream resumes in
			// a later call.
			return nil
		}
		if err != nil {
			return err
		}

		switch kind {
		case chunkKindHeader:
			if length != headerPayloadSize {
				return errors.Wrapf(ErrMalformedStream, "header chunk of %d bytes", length)
			}
			hdr, err := m.readHeader(r)
			if err != nil {
				return err
			}
			if resuming {
				continue
			}
			if err := m.applyHeader(hdr, hashCompatible); err != nil {
				return err
			}
			elements = int64(hdr.elements)

		case chunkKindElements:
			lr := io.LimitReader(r, int64(length))
			for {
				e, err := dec(lr)
				if err == io.EOF {
					break
				}
				if err != nil {
					return errors.Wrap(err, "ordered: decoding entry")
				}
				if hashCompatible {
					if m.store.Len() >= maxEntries {
						return errors.Wrap(ErrMalformedStream, "more elements than the table can hold")
					}
					m.store.PushBack(e)
				} else if _, _, err := m.Insert(e.Key, e.Value); err != nil {
					return err
				}
			}

		case chunkKindBuckets:
			if length%bucketRecordSize != 0 {
				return errors.Wrapf(ErrMalformedStream, "bucket chunk of %d bytes", length)
			}
			if !hashCompatible {
				if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
					return err
				}
				continue
			}
			var rec [bucketRecordSize]byte
			for n := int(length) / bucketRecordSize; n > 0; n-- {
				if _, err := io.ReadFull(r, rec[:]); err != nil {
					return err
				}
				if m.restoreFill >= len(m.buckets) {
					return errors.Wrap(ErrMalformedStream, "more bucket records than buckets")
				}
				m.buckets[m.restoreFill] = bucketEntry{
					pos:  binary.LittleEndian.Uint32(rec[0:4]),
					hash: binary.LittleEndian.Uint32(rec[4:8]),
				}
				m.restoreFill++
			}

		case chunkKindEnd:
			if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
				return err
			}
			if elements >= 0 && int64(m.store.Len()) != elements {
				return errors.Wrapf(ErrMalformedStream, "stream holds %d of %d elements", m.store.Len(), elements)
			}
			if hashCompatible {
				if m.restoreFill != len(m.buckets) {
					return errors.Wrapf(ErrMalformedStream, "stream holds %d of %d bucket records", m.restoreFill, len(m.buckets))
				}
				m.restoreFill = 0
				return m.validateRestored()
			}
			return nil

		default:
			return errors.Wrapf(ErrMalformedStream, "unknown chunk kind %d", kind)
		}
	}
}

// SerializeLZ4 writes the chunked format through an LZ4 frame.
func (m *Map[K, V]) SerializeLZ4(w io.Writer, enc EntryEncoder[K, V], chunkSize int) error {
	zw := lz4.NewWriter(w)
	if err := m.SerializeChunked(zw, enc, chunkSize); err != nil {
		return err
	}
	return zw.Close()
}

// DeserializeLZ4 reads an LZ4-framed chunked stream. The whole frame must
// be presented in one call; resumption applies to the uncompressed chunked
// format only.
func (m *Map[K, V]) DeserializeLZ4(r io.Reader, dec EntryDecoder[K, V], hashCompatible bool) error {
	return m.DeserializeChunked(lz4.NewReader(r), dec, hashCompatible)
}

type streamHeader struct {
	version       uint32
	elements      uint64
	buckets       uint64
	maxLoadFactor float32
}

func (m *Map[K, V]) writeHeader(w io.Writer) error {
	var hdr [headerPayloadSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], serializationVersion)
	binary.LittleEndian.PutUint64(hdr[4:12], uint64(m.store.Len()))
	binary.LittleEndian.PutUint64(hdr[12:20], uint64(len(m.buckets)))
	binary.LittleEndian.PutUint32(hdr[20:24], math.Float32bits(float32(m.maxLoadFactor)))
	_, err := w.Write(hdr[:])
	return err
}

// readHeader reads and validates the header fields that do not depend on
// the load mode.
func (m *Map[K, V]) readHeader(r io.Reader) (streamHeader, error) {
	var raw [headerPayloadSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return streamHeader{}, err
	}
	hdr := streamHeader{
		version:       binary.LittleEndian.Uint32(raw[0:4]),
		elements:      binary.LittleEndian.Uint64(raw[4:12]),
		buckets:       binary.LittleEndian.Uint64(raw[12:20]),
		maxLoadFactor: math.Float32frombits(binary.LittleEndian.Uint32(raw[20:24])),
	}
	if hdr.version != serializationVersion {
		return streamHeader{}, errors.Wrapf(ErrProtocolMismatch, "stream version %d", hdr.version)
	}
	if hdr.elements > maxEntries {
		return streamHeader{}, errors.Wrapf(ErrMalformedStream, "element count %d", hdr.elements)
	}
	if hdr.buckets == 0 || hdr.buckets > maxBuckets || hdr.buckets&(hdr.buckets-1) != 0 {
		return streamHeader{}, errors.Wrapf(ErrMalformedStream, "bucket count %d", hdr.buckets)
	}
	// The stored max load factor is rejected, not clamped: a value outside
	// the legal range means the stream was written by something else (or a
	// serializer silently converted the float).
	if hdr.maxLoadFactor < MinMaxLoadFactor || hdr.maxLoadFactor > MaxMaxLoadFactor {
		return streamHeader{}, errors.Wrapf(ErrInvalidMaxLoadFactor, "stream max load factor %f", hdr.maxLoadFactor)
	}
	return hdr, nil
}

func (m *Map[K, V]) applyHeader(hdr streamHeader, hashCompatible bool) error {
	m.maxLoadFactor = float64(hdr.maxLoadFactor)
	m.updateThresholds()
	if !hashCompatible {
		return m.Reserve(int(hdr.elements))
	}
	m.buckets = newBuckets(int(hdr.buckets))
	m.mask = uintptr(hdr.buckets - 1)
	m.updateThresholds()
	m.store.Reserve(int(hdr.elements))
	m.restoreFill = 0
	return nil
}

// validateRestored checks that verbatim-loaded index records reference the
// store consistently: positions in range and exactly one cell per entry.
// Hashes are not rechecked; a mismatched hasher is unspecified behavior by
// contract.
func (m *Map[K, V]) validateRestored() error {
	n := m.store.Len()
	seen := make([]bool, n)
	occupied := 0
	for i := range m.buckets {
		b := &m.buckets[i]
		if b.empty() {
			continue
		}
		if int(b.pos) >= n {
			return errors.Wrapf(ErrMalformedStream, "bucket record references position %d of %d", b.pos, n)
		}
		if seen[b.pos] {
			return errors.Wrapf(ErrMalformedStream, "two bucket records reference position %d", b.pos)
		}
		seen[b.pos] = true
		occupied++
	}
	if occupied != n {
		return errors.Wrapf(ErrMalformedStream, "%d bucket records for %d elements", occupied, n)
	}
	return nil
}

func writeChunk(w io.Writer, kind uint32, payload []byte) error {
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], kind)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

func readChunkHeader(r io.Reader) (kind, length uint32, err error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:4]); err != nil {
		return 0, 0, err // io.EOF here is a clean break between chunks
	}
	if _, err := io.ReadFull(r, hdr[4:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, 0, err
	}
	return binary.LittleEndian.Uint32(hdr[0:4]), binary.LittleEndian.Uint32(hdr[4:8]), nil
}

// WriteString writes a string as a u32 length followed by the bytes: a
// building block for entry encoders.
func WriteString(w io.Writer, s string) error {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	if _, err := w.Write(n[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadString reads a string written by WriteString. It returns io.EOF only
// when the reader is exhausted before the length prefix.
func ReadString(r io.Reader) (string, error) {
	var n [4]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", err
	}
	b := make([]byte, binary.LittleEndian.Uint32(n[:]))
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	return string(b), nil
}

// WriteUint64 writes a fixed-width little-endian u64.
func WriteUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// ReadUint64 reads a fixed-width little-endian u64. It returns io.EOF only
// when the reader is exhausted before the first byte.
func ReadUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
