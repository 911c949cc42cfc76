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
	"strconv"

	"github.com/pkg/errors"
	"github.com/sugawarayuuta/sonnet"
)

// MarshalJSON encodes the map as a JSON object whose members appear in
// insertion order. Keys that do not encode to JSON strings (ints, for
// example) are quoted.
func (m *Map[K, V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for i := 0; i < m.store.Len(); i++ {
		e := m.store.At(i)
		kb, err := sonnet.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		vb, err := sonnet.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if len(kb) > 0 && kb[0] == '"' {
			buf.Write(kb)
		} else {
			buf.WriteString(strconv.Quote(string(kb)))
		}
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, inserting members in document
// order. Members already present keep their position and get the new
// value.
func (m *Map[K, V]) UnmarshalJSON(data []byte) error {
	dec := sonnet.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(sonnet.Delim); !ok || d != '{' {
		return errors.New("ordered: expected a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return errors.New("ordered: expected a JSON object key")
		}
		key, err := decodeJSONKey[K](name)
		if err != nil {
			return err
		}
		var value V
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if err := m.Put(key, value); err != nil {
			return err
		}
	}
	_, err = dec.Token() // closing '}'
	return err
}

// MarshalJSON encodes the set as a JSON array of keys in insertion order.
func (s *Set[K]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	first := true
	var failed error
	s.All(func(k K) bool {
		kb, err := sonnet.Marshal(k)
		if err != nil {
			failed = err
			return false
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(kb)
		return true
	})
	if failed != nil {
		return nil, failed
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON array of keys, inserting them in document
// order.
func (s *Set[K]) UnmarshalJSON(data []byte) error {
	dec := sonnet.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(sonnet.Delim); !ok || d != '[' {
		return errors.New("ordered: expected a JSON array")
	}
	for dec.More() {
		var key K
		if err := dec.Decode(&key); err != nil {
			return err
		}
		if _, err := s.Insert(key); err != nil {
			return err
		}
	}
	_, err = dec.Token() // closing ']'
	return err
}

// decodeJSONKey converts an object member name back to K: directly for
// string keys, otherwise by decoding the name as the key's JSON form.
func decodeJSONKey[K comparable](name string) (K, error) {
	var key K
	if p, ok := any(&key).(*string); ok {
		*p = name
		return key, nil
	}
	if err := sonnet.Unmarshal([]byte(name), &key); err != nil {
		return key, err
	}
	return key, nil
}
