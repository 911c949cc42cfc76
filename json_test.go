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

func TestMapJSON(t *testing.T) {
	t.Run("string-keys", func(t *testing.T) {
		m := NewMap[string, int]()
		mustInsert(t, m, "z", 26)
		mustInsert(t, m, "a", 1)
		mustInsert(t, m, "m", 13)

		b, err := m.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `{"z":26,"a":1,"m":13}`, string(b))

		restored := NewMap[string, int]()
		require.NoError(t, restored.UnmarshalJSON(b))
		require.Equal(t, m.entries(), restored.entries())
	})

	t.Run("int-keys", func(t *testing.T) {
		m := NewMap[int, string]()
		mustInsert(t, m, 3, "c")
		mustInsert(t, m, 1, "a")

		b, err := m.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `{"3":"c","1":"a"}`, string(b))

		restored := NewMap[int, string]()
		require.NoError(t, restored.UnmarshalJSON(b))
		require.Equal(t, []Entry[int, string]{{3, "c"}, {1, "a"}}, restored.entries())
	})

	t.Run("struct-values", func(t *testing.T) {
		type point struct {
			X int `json:"x"`
			Y int `json:"y"`
		}
		m := NewMap[string, point]()
		mustInsert(t, m, "origin", point{})
		mustInsert(t, m, "unit", point{1, 1})

		b, err := m.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `{"origin":{"x":0,"y":0},"unit":{"x":1,"y":1}}`, string(b))

		restored := NewMap[string, point]()
		require.NoError(t, restored.UnmarshalJSON(b))
		require.Equal(t, m.entries(), restored.entries())
	})

	t.Run("empty", func(t *testing.T) {
		m := NewMap[string, int]()
		b, err := m.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `{}`, string(b))
		require.NoError(t, m.UnmarshalJSON([]byte(`{}`)))
		require.Equal(t, 0, m.Len())
	})

	t.Run("duplicate-member-keeps-position", func(t *testing.T) {
		m := NewMap[string, int]()
		require.NoError(t, m.UnmarshalJSON([]byte(`{"a":1,"b":2,"a":3}`)))
		require.Equal(t, []Entry[string, int]{{"a", 3}, {"b", 2}}, m.entries())
	})

	t.Run("not-an-object", func(t *testing.T) {
		m := NewMap[string, int]()
		require.Error(t, m.UnmarshalJSON([]byte(`[1,2]`)))
	})
}

func TestSetJSON(t *testing.T) {
	s := NewSet[string](0)
	require.NoError(t, s.InsertSlice([]string{"c", "a", "b"}))

	b, err := s.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `["c","a","b"]`, string(b))

	restored := NewSet[string](0)
	require.NoError(t, restored.UnmarshalJSON(b))
	require.Equal(t, []string{"c", "a", "b"}, restored.Keys())

	require.Error(t, restored.UnmarshalJSON([]byte(`{"a":1}`)))
}
