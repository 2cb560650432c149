// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sets implement set types with better ergonomics than a bare map.
//
// Set is a plain `map[T]struct{}`. Ordered also remembers insertion order, which is needed
// wherever iteration must be deterministic -- e.g. when emitting generated code.
package sets

import "iter"

// Set implements a Set for the key type T.
type Set[T comparable] map[T]struct{}

// Make returns an empty Set of the given type. Size is optional, and if given
// will reserve the expected size.
func Make[T comparable](size ...int) Set[T] {
	if len(size) == 0 {
		return make(Set[T])
	}
	return make(Set[T], size[0])
}

// MakeWith creates a Set[T] with the given elements inserted.
func MakeWith[T comparable](elements ...T) Set[T] {
	s := Make[T](len(elements))
	s.Insert(elements...)
	return s
}

// Has returns true if Set s has the given key.
func (s Set[T]) Has(key T) bool {
	_, found := s[key]
	return found
}

// Insert keys into set.
func (s Set[T]) Insert(keys ...T) {
	for _, key := range keys {
		s[key] = struct{}{}
	}
}

// Ordered is a set that iterates in insertion order. The zero value is ready to use.
//
// It is not safe for concurrent use.
type Ordered[T comparable] struct {
	index map[T]int
	items []T
}

// Has returns true if the set has the given key.
func (s *Ordered[T]) Has(key T) bool {
	_, found := s.index[key]
	return found
}

// Insert adds key at the end of the order, if not yet present.
// It returns whether the key was inserted.
func (s *Ordered[T]) Insert(key T) bool {
	if s.Has(key) {
		return false
	}
	if s.index == nil {
		s.index = make(map[T]int)
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, key)
	return true
}

// Len returns the number of elements.
func (s *Ordered[T]) Len() int { return len(s.items) }

// All iterates over the elements in insertion order.
func (s *Ordered[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range s.items {
			if !yield(item) {
				return
			}
		}
	}
}

// Slice returns a copy of the elements in insertion order.
func (s *Ordered[T]) Slice() []T {
	return append([]T(nil), s.items...)
}
