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
	"hash/maphash"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
)

func TestDefaultHash(t *testing.T) {
	h := defaultHash[string]()
	require.Equal(t, h("foo"), h("foo"))

	m := New[string, int]()
	m.Put("foo", 1)
	require.NotNil(t, m.hash)
	require.Equal(t, m.hash("foo"), m.hash("foo"))

	seed := maphash.MakeSeed()
	require.Equal(t, maphash.Comparable(seed, 42), maphash.Comparable(seed, 42))
}

func TestStringHash(t *testing.T) {
	require.Equal(t, xxhash.Sum64String("foo"), StringHash("foo"))
	require.Equal(t, StringHash("foo"), BytesEquivalent{}.Hash([]byte("foo")))
	require.True(t, BytesEquivalent{}.Equal([]byte("foo"), "foo"))
	require.False(t, BytesEquivalent{}.Equal([]byte("foo"), "bar"))
}

func TestEquivalentLookup(t *testing.T) {
	m := New[string, int](WithHash[string, int](StringHash))
	var eq BytesEquivalent

	_, ok := GetBy(m, eq, []byte("foo"))
	require.False(t, ok)
	require.False(t, ContainsBy(m, eq, []byte("foo")))

	for i, k := range []string{"foo", "bar", "baz", "qux", "quux"} {
		m.Put(k, i)
	}

	v, ok := GetBy(m, eq, []byte("baz"))
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.True(t, ContainsBy(m, eq, []byte("quux")))
	require.False(t, ContainsBy(m, eq, []byte("nope")))

	v, ok = DeleteBy(m, eq, []byte("foo"))
	require.True(t, ok)
	require.Equal(t, 0, v)
	require.EqualValues(t, 4, m.Len())
	require.False(t, m.Contains("foo"))

	_, ok = DeleteBy(m, eq, []byte("foo"))
	require.False(t, ok)
	require.NoError(t, m.validate())
}

// caseless looks up lower-case keys with queries of any case.
type caseless struct{}

func (caseless) Hash(q string) uint64 {
	return StringHash(lower(q))
}

func (caseless) Equal(q string, key string) bool {
	return lower(q) == key
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestEquivalentCustom(t *testing.T) {
	m := New[string, int](WithHash[string, int](StringHash))
	m.Put("hello", 1)

	v, ok := GetBy[string, int, string](m, caseless{}, "HeLLo")
	require.True(t, ok)
	require.Equal(t, 1, v)
}
