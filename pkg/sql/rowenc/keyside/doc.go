// Copyright 2021 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package keyside contains low-level primitives used to encode/decode SQL
// values into/from KV keys.
//
// Low-level here means that these primitives do not operate with table or index
// descriptors. The encodings are order-preserving: for two datums a and b of
// the same type, a < b iff Encode(a) sorts before Encode(b) bytewise, with the
// relation inverted for the descending direction. NULL sorts first when
// ascending and last when descending.
package keyside
