// Copyright 2014 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package roachpb holds the key and span types shared by the storage and
// transaction layers.
package roachpb

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/groupsql/pkg/util/encoding"
)

// Key is a custom type for a byte string in proto
// messages which refer to Cockroach keys.
type Key []byte

// KeyMin is a minimum key value which sorts before all other keys.
var KeyMin = Key{}

// KeyMax is a maximum key value which sorts after all other keys.
var KeyMax = Key{0xff, 0xff}

// Next returns the next key in lexicographic sort order. The method may only
// take a shallow copy of the Key, so both the receiver and the return
// value should be treated as immutable after.
func (k Key) Next() Key {
	return Key(append(append(make([]byte, 0, len(k)+1), k...), 0))
}

// PrefixEnd determines the end key given key as a prefix, that is the
// key that sorts precisely behind all keys starting with prefix: "1"
// is added to the final byte and the carry propagated. The special
// cases of nil and KeyMin always returns KeyMax.
func (k Key) PrefixEnd() Key {
	if len(k) == 0 {
		return Key(KeyMax)
	}
	end := append([]byte(nil), k...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i] = end[i] + 1
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	// This statement will only be reached if the key is already a
	// maximal byte string (i.e. already \xff...).
	return k
}

// Equal returns whether two keys are identical.
func (k Key) Equal(l Key) bool {
	return bytes.Equal(k, l)
}

// Compare compares the two Keys.
func (k Key) Compare(b Key) int {
	return bytes.Compare(k, b)
}

// String returns a string-formatted version of the key.
func (k Key) String() string {
	return encoding.PrettyPrintValue(k, "/")
}

// Span is a key range with an inclusive start Key and an exclusive end Key.
type Span struct {
	Key    Key
	EndKey Key
}

// MakePrefixSpan returns the span holding every key that starts with prefix.
func MakePrefixSpan(prefix Key) Span {
	return Span{Key: prefix, EndKey: prefix.PrefixEnd()}
}

// Valid returns whether or not the span is a "valid span". A valid span
// has a start key strictly less than its end key.
func (s Span) Valid() bool {
	return bytes.Compare(s.Key, s.EndKey) < 0
}

// ZeroLength returns true if the distance between the start and end key is 0.
func (s Span) ZeroLength() bool {
	return bytes.Equal(s.Key, s.EndKey)
}

// ContainsKey returns whether the span contains the given key.
func (s Span) ContainsKey(key Key) bool {
	return bytes.Compare(key, s.Key) >= 0 && bytes.Compare(key, s.EndKey) < 0
}

// Equal compares two spans.
func (s Span) Equal(o Span) bool {
	return s.Key.Equal(o.Key) && s.EndKey.Equal(o.EndKey)
}

// Clamp clamps span s's keys within the span defined in bounds.
func (s Span) Clamp(bounds Span) Span {
	res := s
	if bytes.Compare(res.Key, bounds.Key) < 0 {
		res.Key = bounds.Key
	}
	if bytes.Compare(res.EndKey, bounds.EndKey) > 0 {
		res.EndKey = bounds.EndKey
	}
	return res
}

func (s Span) String() string {
	return fmt.Sprintf("[%s, %s)", s.Key, s.EndKey)
}
