// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := Make[int](10)
	assert.Len(t, s, 0)
	s.Insert(3, 7)
	assert.Len(t, s, 2)
	assert.True(t, s.Has(3))
	assert.False(t, s.Has(5))

	s2 := MakeWith(5, 7, 7)
	assert.Len(t, s2, 2)
	assert.True(t, s2.Has(5))
}

func TestOrdered(t *testing.T) {
	var s Ordered[string]
	assert.False(t, s.Has("a"))
	assert.Equal(t, 0, s.Len())

	assert.True(t, s.Insert("c"))
	assert.True(t, s.Insert("a"))
	assert.False(t, s.Insert("c"))
	assert.True(t, s.Insert("b"))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"c", "a", "b"}, s.Slice())
	assert.Equal(t, []string{"c", "a", "b"}, slices.Collect(s.All()))

	// Early break of the iterator.
	var first []string
	for item := range s.All() {
		first = append(first, item)
		break
	}
	assert.Equal(t, []string{"c"}, first)
}
