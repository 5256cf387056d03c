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
package chainmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntry(t *testing.T) {
	m := New[string, int]()
	m.Put("foo", 42)
	*m.Entry("foo").OrInsert(42) += 1
	require.Equal(t, 43, m.MustGet("foo"))
	require.EqualValues(t, 1, m.Len())

	*m.Entry("bar").OrInsert(70) -= 1
	require.Equal(t, 69, m.MustGet("bar"))
	require.EqualValues(t, 2, m.Len())
	require.NoError(t, m.validate())
}

func TestEntryEmptyMap(t *testing.T) {
	m := New[string, int]()
	*m.Entry("foo").OrInsert(42) += 1
	v, ok := m.Get("foo")
	require.True(t, ok)
	require.Equal(t, 43, v)
	require.EqualValues(t, 1, m.Len())
}

func TestEntryOccupied(t *testing.T) {
	m := New[string, int]()
	e := m.Entry("foo")
	require.False(t, e.Occupied())
	require.Equal(t, "foo", e.Key())
	e.OrDefault()

	e = m.Entry("foo")
	require.True(t, e.Occupied())
	require.Equal(t, 0, *e.OrInsert(5))
}

func TestEntryOrInsertWith(t *testing.T) {
	m := New[string, []int]()
	var calls int
	makeSlice := func() []int {
		calls++
		return []int{1}
	}

	p := m.Entry("foo").OrInsertWith(makeSlice)
	require.Equal(t, 1, calls)
	*p = append(*p, 2)

	// The producer is not invoked for an existing key.
	p = m.Entry("foo").OrInsertWith(makeSlice)
	require.Equal(t, 1, calls)
	require.Equal(t, []int{1, 2}, *p)

	// Even a nil producer is fine for an existing key.
	require.NotPanics(t, func() {
		m.Entry("foo").OrInsertWith(nil)
	})
	require.Panics(t, func() {
		m.Entry("bar").OrInsertWith(nil)
	})
}

func TestEntryOrDefault(t *testing.T) {
	m := New[string, int]()
	for _, w := range []string{"a", "b", "a", "c", "a", "b"} {
		*m.Entry(w).OrDefault() += 1
	}
	require.Equal(t, map[string]int{"a": 3, "b": 2, "c": 1}, m.toBuiltinMap())
	require.EqualValues(t, 3, m.Len())
}

func TestEntryGrowth(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 100; i++ {
		*m.Entry(i).OrInsert(i) += 1
		require.NoError(t, m.validate())
		require.EqualValues(t, i+1, m.Len())
	}
	// Entry grows the map the same way Put does.
	require.Len(t, m.buckets, 256)
	for i := 0; i < 100; i++ {
		require.Equal(t, i+1, m.MustGet(i))
	}
}
