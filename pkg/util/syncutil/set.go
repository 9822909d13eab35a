// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package syncutil

import (
	"slices"
	"sync/atomic"
)

// Set is a concurrent set of comparable values with copy-on-write
// semantics. Writers serialize on a mutex and publish a fresh snapshot;
// readers load the current snapshot without locking, so an iteration in
// progress observes either the membership before a concurrent Add/Remove or
// the membership after it, never a mix of both.
//
// Set is meant for rarely written, frequently read collections such as
// listener registries. Values are iterated in insertion order.
//
// The zero value is an empty set ready to use.
type Set[V comparable] struct {
	mu   Mutex
	snap atomic.Pointer[[]V]
}

func (s *Set[V]) load() []V {
	if p := s.snap.Load(); p != nil {
		return *p
	}
	return nil
}

// Add adds the value to the set. Returns false if it was already present.
func (s *Set[V]) Add(v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.load()
	if slices.Contains(cur, v) {
		return false
	}
	next := make([]V, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, v)
	s.snap.Store(&next)
	return true
}

// Remove removes the value from the set. Returns false if it was not
// present.
func (s *Set[V]) Remove(v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.load()
	i := slices.Index(cur, v)
	if i < 0 {
		return false
	}
	next := make([]V, 0, len(cur)-1)
	next = append(next, cur[:i]...)
	next = append(next, cur[i+1:]...)
	s.snap.Store(&next)
	return true
}

// Contains returns true if the value is in the set.
func (s *Set[V]) Contains(v V) bool {
	return slices.Contains(s.load(), v)
}

// Len returns the number of values in the current snapshot.
func (s *Set[V]) Len() int {
	return len(s.load())
}

// Range calls f for each value of one snapshot of the set, stopping early
// if f returns false. Mutations made by f are not observed by the ongoing
// iteration.
func (s *Set[V]) Range(f func(V) bool) {
	for _, v := range s.load() {
		if !f(v) {
			return
		}
	}
}

// Snapshot returns the current membership. The returned slice must not be
// modified.
func (s *Set[V]) Snapshot() []V {
	return s.load()
}
