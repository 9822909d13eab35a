// Copyright 2014 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
)

const (
	encodedNull = 0x00
	// A marker greater than NULL but lower than any other value.
	// This value is not actually ever present in a stored key, but
	// it's used in keys used as span boundaries for index scans.
	encodedNotNull = 0x01

	floatNaN     = encodedNotNull + 1
	floatNeg     = floatNaN + 1
	floatZero    = floatNeg + 1
	floatPos     = floatZero + 1
	floatNaNDesc = floatPos + 1 // NaN encoded descendingly

	bytesMarker     byte = 0x12
	bytesDescMarker byte = bytesMarker + 1
	timeMarker      byte = bytesDescMarker + 1
	timeDescMarker  byte = timeMarker + 1

	decimalNegative     byte = 0x20
	decimalZero         byte = decimalNegative + 1
	decimalPositive     byte = decimalZero + 1
	decimalPositiveDesc byte = decimalPositive + 1
	decimalZeroDesc     byte = decimalPositiveDesc + 1
	decimalNegativeDesc byte = decimalZeroDesc + 1
	decimalTerminator   byte = 0x00

	// IntMin is chosen such that the range of int tags does not overlap the
	// ascii character set that is frequently used in testing.
	IntMin      = 0x80
	intMaxWidth = 8
	intZero     = IntMin + intMaxWidth
	intSmall    = IntMax - intZero - intMaxWidth // 109
	// IntMax is the maximum int tag value.
	IntMax = 0xfd

	// Nulls come last when encoded descendingly.
	encodedNotNullDesc = 0xfe
	encodedNullDesc    = 0xff
)

// Direction for ordering results.
type Direction int

// Direction values.
const (
	_ Direction = iota
	Ascending
	Descending
)

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	switch d {
	case Ascending:
		return Descending
	case Descending:
		return Ascending
	default:
		panic(errors.AssertionFailedf("invalid direction %d", d))
	}
}

func (d Direction) String() string {
	switch d {
	case Ascending:
		return "ASC"
	case Descending:
		return "DESC"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

func onesComplement(b []byte) {
	for i := range b {
		b[i] = ^b[i]
	}
}

// EncodeUint64Ascending appends v as 8 big-endian bytes.
func EncodeUint64Ascending(b []byte, v uint64) []byte {
	return append(b,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// DecodeUint64Ascending decodes 8 big-endian bytes and returns the rest of
// b.
func DecodeUint64Ascending(b []byte) ([]byte, uint64, error) {
	if len(b) < 8 {
		return nil, 0, errors.Errorf("%d bytes left, need 8 to decode a uint64", len(b))
	}
	return b[8:], binary.BigEndian.Uint64(b), nil
}

// EncodeVarintAscending encodes the int64 value using a variable length
// (length-prefixed) representation. The length is encoded as a single
// byte. If the value to be encoded is negative the length is encoded
// as 8-numBytes. If the value is positive it is encoded as
// 8+numBytes. The encoded bytes are appended to the supplied buffer
// and the final buffer is returned.
func EncodeVarintAscending(b []byte, v int64) []byte {
	if v < 0 {
		switch {
		case v >= -0xff:
			return append(b, IntMin+7, byte(v))
		case v >= -0xffff:
			return append(b, IntMin+6, byte(v>>8), byte(v))
		case v >= -0xffffff:
			return append(b, IntMin+5, byte(v>>16), byte(v>>8), byte(v))
		case v >= -0xffffffff:
			return append(b, IntMin+4, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
		case v >= -0xffffffffff:
			return append(b, IntMin+3, byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8),
				byte(v))
		case v >= -0xffffffffffff:
			return append(b, IntMin+2, byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16),
				byte(v>>8), byte(v))
		case v >= -0xffffffffffffff:
			return append(b, IntMin+1, byte(v>>48), byte(v>>40), byte(v>>32), byte(v>>24),
				byte(v>>16), byte(v>>8), byte(v))
		default:
			return append(b, IntMin, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
				byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
		}
	}
	return EncodeUvarintAscending(b, uint64(v))
}

// EncodeVarintDescending encodes the int64 value so that it sorts in reverse
// order, from largest to smallest.
func EncodeVarintDescending(b []byte, v int64) []byte {
	return EncodeVarintAscending(b, ^v)
}

// DecodeVarintAscending decodes a value encoded by EncodeVarintAscending.
func DecodeVarintAscending(b []byte) ([]byte, int64, error) {
	if len(b) == 0 {
		return nil, 0, errors.Errorf("insufficient bytes to decode varint value")
	}
	length := int(b[0]) - intZero
	if length < 0 {
		length = -length
		remB := b[1:]
		if len(remB) < length {
			return nil, 0, errors.Errorf("insufficient bytes to decode varint value: %q", remB)
		}
		var v int64
		// Use the ones-complement of each encoded byte in order to build
		// up a positive number, then take the ones-complement again to
		// arrive at our negative value.
		for _, t := range remB[:length] {
			v = (v << 8) | int64(^t)
		}
		return remB[length:], ^v, nil
	}

	remB, v, err := DecodeUvarintAscending(b)
	if err != nil {
		return remB, 0, err
	}
	if v > math.MaxInt64 {
		return nil, 0, errors.Errorf("varint %d overflows int64", v)
	}
	return remB, int64(v), nil
}

// DecodeVarintDescending decodes a int64 value which was encoded
// using EncodeVarintDescending.
func DecodeVarintDescending(b []byte) ([]byte, int64, error) {
	leftover, v, err := DecodeVarintAscending(b)
	return leftover, ^v, err
}

// EncodeUvarintAscending encodes the uint64 value using a variable length
// (length-prefixed) representation. The length is encoded as a single
// byte indicating the number of encoded bytes (-8) to follow. See
// EncodeVarintAscending for rationale. The encoded bytes are appended to the
// supplied buffer and the final buffer is returned.
func EncodeUvarintAscending(b []byte, v uint64) []byte {
	switch {
	case v <= intSmall:
		return append(b, intZero+byte(v))
	case v <= 0xff:
		return append(b, IntMax-7, byte(v))
	case v <= 0xffff:
		return append(b, IntMax-6, byte(v>>8), byte(v))
	case v <= 0xffffff:
		return append(b, IntMax-5, byte(v>>16), byte(v>>8), byte(v))
	case v <= 0xffffffff:
		return append(b, IntMax-4, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	case v <= 0xffffffffff:
		return append(b, IntMax-3, byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8),
			byte(v))
	case v <= 0xffffffffffff:
		return append(b, IntMax-2, byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16),
			byte(v>>8), byte(v))
	case v <= 0xffffffffffffff:
		return append(b, IntMax-1, byte(v>>48), byte(v>>40), byte(v>>32), byte(v>>24),
			byte(v>>16), byte(v>>8), byte(v))
	default:
		return append(b, IntMax, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
			byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
}

// EncodeUvarintDescending encodes the uint64 value so that it sorts in
// reverse order, from largest to smallest.
func EncodeUvarintDescending(b []byte, v uint64) []byte {
	switch {
	case v == 0:
		return append(b, IntMin+8)
	case v <= 0xff:
		v = ^v
		return append(b, IntMin+7, byte(v))
	case v <= 0xffff:
		v = ^v
		return append(b, IntMin+6, byte(v>>8), byte(v))
	case v <= 0xffffff:
		v = ^v
		return append(b, IntMin+5, byte(v>>16), byte(v>>8), byte(v))
	case v <= 0xffffffff:
		v = ^v
		return append(b, IntMin+4, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	case v <= 0xffffffffff:
		v = ^v
		return append(b, IntMin+3, byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8),
			byte(v))
	case v <= 0xffffffffffff:
		v = ^v
		return append(b, IntMin+2, byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16),
			byte(v>>8), byte(v))
	case v <= 0xffffffffffffff:
		v = ^v
		return append(b, IntMin+1, byte(v>>48), byte(v>>40), byte(v>>32), byte(v>>24),
			byte(v>>16), byte(v>>8), byte(v))
	default:
		v = ^v
		return append(b, IntMin, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
			byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
}

// DecodeUvarintAscending decodes a varint encoded uint64 from the input
// buffer. The remainder of the input buffer and the decoded uint64
// are returned.
func DecodeUvarintAscending(b []byte) ([]byte, uint64, error) {
	if len(b) == 0 {
		return nil, 0, errors.Errorf("insufficient bytes to decode uvarint value")
	}
	length := int(b[0]) - intZero
	b = b[1:] // skip length byte
	if length <= intSmall {
		if length < 0 {
			return nil, 0, errors.Errorf("invalid uvarint length of %d", length)
		}
		return b, uint64(length), nil
	}
	length -= intSmall
	if length < 0 || length > 8 {
		return nil, 0, errors.Errorf("invalid uvarint length of %d", length)
	} else if len(b) < length {
		return nil, 0, errors.Errorf("insufficient bytes to decode uvarint value: %q", b)
	}
	var v uint64
	// It is faster to range over the elements in a slice than to index
	// into the slice on each loop iteration.
	for _, t := range b[:length] {
		v = (v << 8) | uint64(t)
	}
	return b[length:], v, nil
}

// DecodeUvarintDescending decodes a uint64 value which was encoded
// using EncodeUvarintDescending.
func DecodeUvarintDescending(b []byte) ([]byte, uint64, error) {
	if len(b) == 0 {
		return nil, 0, errors.Errorf("insufficient bytes to decode uvarint value")
	}
	length := intZero - int(b[0])
	b = b[1:] // skip length byte
	if length < 0 || length > 8 {
		return nil, 0, errors.Errorf("invalid uvarint length of %d", length)
	} else if len(b) < length {
		return nil, 0, errors.Errorf("insufficient bytes to decode uvarint value: %q", b)
	}
	var x uint64
	for _, t := range b[:length] {
		x = (x << 8) | uint64(^t)
	}
	return b[length:], x, nil
}

// EncodeBoolAscending encodes a bool as a varint 0 or 1.
func EncodeBoolAscending(b []byte, v bool) []byte {
	if v {
		return EncodeVarintAscending(b, 1)
	}
	return EncodeVarintAscending(b, 0)
}

// EncodeBoolDescending is the descending version of EncodeBoolAscending.
func EncodeBoolDescending(b []byte, v bool) []byte {
	if v {
		return EncodeVarintDescending(b, 1)
	}
	return EncodeVarintDescending(b, 0)
}

// EncodeFloatAscending returns the resulting byte slice with the encoded
// float64 appended to b. The encoded format for a float64 value f is, for
// positive f, the encoding of the 64 bits (in IEEE 754 format) re-interpreted
// as an int64 and encoded using EncodeUint64Ascending. For negative f, we keep
// the sign bit and invert all other bits, encoding this value using
// EncodeUint64Descending. This approach was inspired by
// github.com/google/orderedcode/orderedcode.go.
//
// One of five single-byte prefix tags are appended to the front of the
// encoding. These tags enforce logical ordering of keys for both ascending
// and descending encoding directions. The tags split the encoded floats into
// five categories:
// - NaN for an ascending encoding direction
// - Negative valued floats
// - Zero (positive and negative)
// - Positive valued floats
// - NaN for a descending encoding direction
// This ordering ensures that NaNs are always sorted first in either encoding
// direction, and that after them a logical ordering is followed.
func EncodeFloatAscending(b []byte, f float64) []byte {
	// Handle the simplistic cases first.
	switch {
	case math.IsNaN(f):
		return append(b, floatNaN)
	case f == 0:
		// This encodes both positive and negative zero the same. Negative zero uses
		// composite indexes to decode itself correctly.
		return append(b, floatZero)
	}
	u := math.Float64bits(f)
	if u&(1<<63) != 0 {
		u = ^u
		b = append(b, floatNeg)
	} else {
		b = append(b, floatPos)
	}
	return EncodeUint64Ascending(b, u)
}

// EncodeFloatDescending is the descending version of EncodeFloatAscending.
func EncodeFloatDescending(b []byte, f float64) []byte {
	if math.IsNaN(f) {
		return append(b, floatNaNDesc)
	}
	return EncodeFloatAscending(b, -f)
}

// DecodeFloatAscending returns the remaining byte slice after decoding and the decoded
// float64 from buf.
func DecodeFloatAscending(buf []byte) ([]byte, float64, error) {
	if PeekType(buf) != Float {
		return buf, 0, errors.Errorf("did not find marker")
	}
	switch buf[0] {
	case floatNaN, floatNaNDesc:
		return buf[1:], math.NaN(), nil
	case floatNeg:
		b, u, err := DecodeUint64Ascending(buf[1:])
		if err != nil {
			return b, 0, err
		}
		u = ^u
		return b, math.Float64frombits(u), nil
	case floatZero:
		return buf[1:], 0, nil
	case floatPos:
		b, u, err := DecodeUint64Ascending(buf[1:])
		if err != nil {
			return b, 0, err
		}
		return b, math.Float64frombits(u), nil
	default:
		return nil, 0, errors.Errorf("unknown prefix of the encoded byte slice: %q", buf)
	}
}

// DecodeFloatDescending decodes floats encoded with EncodeFloatDescending.
func DecodeFloatDescending(buf []byte) ([]byte, float64, error) {
	b, r, err := DecodeFloatAscending(buf)
	if r != 0 && !math.IsNaN(r) {
		// All values except for 0 and NaN were negated in EncodeFloatDescending, so
		// we have to negate them back.
		r = -r
	}
	return b, r, err
}

const (
	// <term>     -> \x00\x01
	// \x00       -> \x00\xff
	escape      byte = 0x00
	escapedTerm byte = 0x01
	escaped00   byte = 0xff
	escapedFF   byte = 0x00
)

type escapes struct {
	escape      byte
	escapedTerm byte
	escaped00   byte
	escapedFF   byte
	marker      byte
}

var (
	ascendingEscapes  = escapes{escape, escapedTerm, escaped00, escapedFF, bytesMarker}
	descendingEscapes = escapes{^escape, ^escapedTerm, ^escaped00, ^escapedFF, bytesDescMarker}
)

// EncodeBytesAscending encodes the []byte value using an escape-based
// encoding. The encoded value is terminated with the sequence
// "\x00\x01" which is guaranteed to not occur elsewhere in the
// encoded value. The encoded bytes are append to the supplied buffer
// and the resulting buffer is returned.
func EncodeBytesAscending(b []byte, data []byte) []byte {
	b = append(b, bytesMarker)
	for {
		// IndexByte is implemented by the go runtime in assembly and is
		// much faster than looping over the bytes in the slice.
		i := bytes.IndexByte(data, escape)
		if i == -1 {
			break
		}
		b = append(b, data[:i]...)
		b = append(b, escape, escaped00)
		data = data[i+1:]
	}
	b = append(b, data...)
	return append(b, escape, escapedTerm)
}

// EncodeBytesDescending encodes the []byte value using an
// escape-based encoding and then inverts (ones complement) the result
// so that it sorts in reverse order, from larger to smaller
// lexicographically.
func EncodeBytesDescending(b []byte, data []byte) []byte {
	n := len(b)
	b = EncodeBytesAscending(b, data)
	b[n] = bytesDescMarker
	onesComplement(b[n+1:])
	return b
}

// DecodeBytesAscending decodes a []byte value from the input buffer
// which was encoded using EncodeBytesAscending. The decoded bytes
// are appended to r. The remainder of the input buffer and the
// decoded []byte are returned.
func DecodeBytesAscending(b []byte, r []byte) ([]byte, []byte, error) {
	return decodeBytesInternal(b, r, ascendingEscapes, true)
}

// DecodeBytesDescending decodes a []byte value from the input buffer
// which was encoded using EncodeBytesDescending. The decoded bytes
// are appended to r. The remainder of the input buffer and the
// decoded []byte are returned.
func DecodeBytesDescending(b []byte, r []byte) ([]byte, []byte, error) {
	// Always pass an `r` to make sure we never get back a sub-slice of `b`,
	// since we're going to modify the contents of the slice.
	if r == nil {
		r = []byte{}
	}
	b, r, err := decodeBytesInternal(b, r, descendingEscapes, true)
	onesComplement(r)
	return b, r, err
}

func decodeBytesInternal(b []byte, r []byte, e escapes, expectMarker bool) ([]byte, []byte, error) {
	if expectMarker {
		if len(b) == 0 || b[0] != e.marker {
			return nil, nil, errors.Errorf("did not find marker %#x in buffer %#x", e.marker, b)
		}
		b = b[1:]
	}

	for {
		i := bytes.IndexByte(b, e.escape)
		if i == -1 {
			return nil, nil, errors.Errorf("did not find terminator %#x in buffer %#x", e.escape, b)
		}
		if i+1 >= len(b) {
			return nil, nil, errors.Errorf("malformed escape in buffer %#x", b)
		}

		v := b[i+1]
		if v == e.escapedTerm {
			if r == nil {
				r = b[:i]
			} else {
				r = append(r, b[:i]...)
			}
			return b[i+2:], r, nil
		}

		if v != e.escaped00 {
			return nil, nil, errors.Errorf("unknown escape sequence: %#x %#x", e.escape, v)
		}

		r = append(r, b[:i]...)
		r = append(r, e.escapedFF)
		b = b[i+2:]
	}
}

// getBytesLength finds the length of a bytes encoding.
func getBytesLength(b []byte, e escapes) (int, error) {
	// Skip the tag.
	skipped := 1
	for {
		i := bytes.IndexByte(b[skipped:], e.escape)
		if i == -1 {
			return 0, errors.Errorf("did not find terminator %#x in buffer %#x", e.escape, b)
		}
		if i+1 >= len(b) {
			return 0, errors.Errorf("malformed escape in buffer %#x", b)
		}
		skipped += i + 2
		if b[skipped-1] == e.escapedTerm {
			return skipped, nil
		}
	}
}

// EncodeStringAscending encodes the string value using an escape-based encoding. See
// EncodeBytes for details. The encoded bytes are append to the supplied buffer
// and the resulting buffer is returned.
func EncodeStringAscending(b []byte, s string) []byte {
	return EncodeBytesAscending(b, []byte(s))
}

// EncodeStringDescending is the descending version of EncodeStringAscending.
func EncodeStringDescending(b []byte, s string) []byte {
	return EncodeBytesDescending(b, []byte(s))
}

// DecodeStringAscending decodes a string value from the input buffer which was encoded
// using EncodeString or EncodeBytes. The r []byte is used as a temporary
// buffer in order to avoid memory allocations. The remainder of the input
// buffer and the decoded string are returned.
func DecodeStringAscending(b []byte, r []byte) ([]byte, string, error) {
	b, r, err := DecodeBytesAscending(b, r)
	return b, string(r), err
}

// DecodeStringDescending decodes a string value from the input buffer which
// was encoded using EncodeStringDescending or EncodeBytesDescending.
func DecodeStringDescending(b []byte, r []byte) ([]byte, string, error) {
	b, r, err := DecodeBytesDescending(b, r)
	return b, string(r), err
}

// EncodeNullAscending appends the NULL marker, which sorts before every
// other ascending encoding and is a prefix of none of them.
func EncodeNullAscending(b []byte) []byte {
	return append(b, encodedNull)
}

// EncodeNullDescending is the descending equivalent of EncodeNullAscending.
func EncodeNullDescending(b []byte) []byte {
	return append(b, encodedNullDesc)
}

// DecodeIfNull strips a leading NULL marker, in either direction, and
// reports whether there was one. Otherwise b is returned unchanged.
func DecodeIfNull(b []byte) ([]byte, bool) {
	if PeekType(b) == Null {
		return b[1:], true
	}
	return b, false
}

// EncodeTimeAscending encodes a time value, appends it to the supplied buffer,
// and returns the final buffer. The encoding is guaranteed to be ordered
// Such that if t1.Before(t2) then after EncodeTime(b1, t1), and
// EncodeTime(b2, t1), Compare(b1, b2) < 0. The time zone offset not
// included in the encoding.
func EncodeTimeAscending(b []byte, t time.Time) []byte {
	return encodeTime(b, timeMarker, t.Unix(), int64(t.Nanosecond()))
}

// EncodeTimeDescending is the descending version of EncodeTimeAscending.
func EncodeTimeDescending(b []byte, t time.Time) []byte {
	return encodeTime(b, timeDescMarker, ^t.Unix(), ^int64(t.Nanosecond()))
}

func encodeTime(b []byte, marker byte, unix, nanos int64) []byte {
	// Read the unix absolute time. This is the absolute time and is
	// not time zone offset dependent.
	b = append(b, marker)
	b = EncodeVarintAscending(b, unix)
	b = EncodeVarintAscending(b, nanos)
	return b
}

// DecodeTimeAscending decodes a time.Time value which was encoded using
// EncodeTime. The remainder of the input buffer and the decoded
// time.Time are returned.
func DecodeTimeAscending(b []byte) ([]byte, time.Time, error) {
	b, sec, nsec, err := decodeTime(b, timeMarker)
	if err != nil {
		return b, time.Time{}, err
	}
	return b, time.Unix(sec, nsec).UTC(), nil
}

// DecodeTimeDescending is the descending version of DecodeTimeAscending.
func DecodeTimeDescending(b []byte) ([]byte, time.Time, error) {
	b, sec, nsec, err := decodeTime(b, timeDescMarker)
	if err != nil {
		return b, time.Time{}, err
	}
	return b, time.Unix(^sec, ^nsec).UTC(), nil
}

func decodeTime(b []byte, marker byte) (r []byte, sec int64, nsec int64, err error) {
	if len(b) == 0 || b[0] != marker {
		return nil, 0, 0, errors.Errorf("did not find marker %#x", marker)
	}
	b = b[1:]
	b, sec, err = DecodeVarintAscending(b)
	if err != nil {
		return b, 0, 0, err
	}
	b, nsec, err = DecodeVarintAscending(b)
	if err != nil {
		return b, 0, 0, err
	}
	return b, sec, nsec, nil
}

// Type represents the type of a value encoded by
// Encode{Null,NotNull,Varint,Uvarint,Float,Bytes}.
type Type int

// Type values.
const (
	Unknown Type = iota
	Null
	NotNull
	Int
	Float
	Decimal
	Bytes
	BytesDesc // Bytes encoded descendingly
	Time
	TimeDesc
	DecimalDesc
)

// PeekType peeks at the type of the value encoded at the start of b.
func PeekType(b []byte) Type {
	if len(b) >= 1 {
		m := b[0]
		switch {
		case m == encodedNull, m == encodedNullDesc:
			return Null
		case m == encodedNotNull, m == encodedNotNullDesc:
			return NotNull
		case m == bytesMarker:
			return Bytes
		case m == bytesDescMarker:
			return BytesDesc
		case m == timeMarker:
			return Time
		case m == timeDescMarker:
			return TimeDesc
		case m >= IntMin && m <= IntMax:
			return Int
		case m >= floatNaN && m <= floatNaNDesc:
			return Float
		case m >= decimalNegative && m <= decimalPositive:
			return Decimal
		case m >= decimalPositiveDesc && m <= decimalNegativeDesc:
			return DecimalDesc
		}
	}
	return Unknown
}

// PeekLength returns the length of the encoded value at the start of b.
// Note: if this function succeeds, it's not a guarantee that decoding the
// value will succeed.
func PeekLength(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, errors.Errorf("empty slice")
	}
	m := b[0]
	switch {
	case m == encodedNull, m == encodedNullDesc,
		m == encodedNotNull, m == encodedNotNullDesc,
		m == floatNaN, m == floatNaNDesc, m == floatZero:
		return 1, nil
	case m == bytesMarker:
		return getBytesLength(b, ascendingEscapes)
	case m == bytesDescMarker:
		return getBytesLength(b, descendingEscapes)
	case m == timeMarker, m == timeDescMarker:
		n := 1
		for i := 0; i < 2; i++ {
			l, err := getVarintLen(b[n:])
			if err != nil {
				return 0, err
			}
			n += l
		}
		return n, nil
	case m >= IntMin && m <= IntMax:
		return getVarintLen(b)
	case m == floatNeg, m == floatPos:
		// the marker is followed by 8 bytes
		if len(b) < 9 {
			return 0, errors.Errorf("slice too short for float (%d)", len(b))
		}
		return 9, nil
	case m >= decimalNegative && m <= decimalPositive:
		return getDecimalLen(b, false)
	case m >= decimalPositiveDesc && m <= decimalNegativeDesc:
		return getDecimalLen(b, true)
	}
	return 0, errors.Errorf("unknown tag %d", m)
}

// getVarintLen returns the encoded length of a varint, signed or unsigned,
// in either direction.
func getVarintLen(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, errors.Errorf("insufficient bytes to decode varint value")
	}
	n, err := varintLenFromTag(b[0])
	if err != nil {
		return 0, err
	}
	if len(b) < n {
		return 0, errors.Errorf("varint length %d exceeds slice length %d", n, len(b))
	}
	return n, nil
}

func varintLenFromTag(tag byte) (int, error) {
	if tag < IntMin || tag > IntMax {
		return 0, errors.Errorf("invalid varint tag %#x", tag)
	}
	length := int(tag) - intZero
	if length >= 0 {
		if length <= intSmall {
			return 1, nil
		}
		length -= intSmall
	} else {
		length = -length
	}
	return length + 1, nil
}

// EncodeDecimalAscending returns the resulting byte slice with the encoded
// decimal appended to b.
//
// A non-zero decimal is normalized to ±0.d1d2d3... * 10^e with d1 != 0 and
// no trailing zero digit. The encoding is a sign marker, the exponent e as
// a varint, then the digits in pairs of base-100 bytes (2*pair+1), then a
// zero terminator. For negative values the exponent is encoded descending
// and the digits and terminator are complemented so that larger magnitudes
// sort first.
func EncodeDecimalAscending(b []byte, d *apd.Decimal) []byte {
	if d.Form != apd.Finite {
		panic(errors.AssertionFailedf("cannot encode non-finite decimal %s", d))
	}
	if d.IsZero() {
		return append(b, decimalZero)
	}
	digits := d.Coeff.String()
	e := int64(len(digits)) + int64(d.Exponent)
	digits = strings.TrimRight(digits, "0")
	neg := d.Negative
	if neg {
		b = append(b, decimalNegative)
		b = EncodeVarintDescending(b, e)
	} else {
		b = append(b, decimalPositive)
		b = EncodeVarintAscending(b, e)
	}
	start := len(b)
	for i := 0; i < len(digits); i += 2 {
		pair := int(digits[i]-'0') * 10
		if i+1 < len(digits) {
			pair += int(digits[i+1] - '0')
		}
		b = append(b, byte(2*pair+1))
	}
	b = append(b, decimalTerminator)
	if neg {
		onesComplement(b[start:])
	}
	return b
}

// EncodeDecimalDescending is the descending version of EncodeDecimalAscending.
func EncodeDecimalDescending(b []byte, d *apd.Decimal) []byte {
	n := len(b)
	b = EncodeDecimalAscending(b, d)
	switch b[n] {
	case decimalNegative:
		b[n] = decimalNegativeDesc
	case decimalZero:
		b[n] = decimalZeroDesc
	case decimalPositive:
		b[n] = decimalPositiveDesc
	}
	onesComplement(b[n+1:])
	return b
}

// DecodeDecimalAscending returns the remaining byte slice after decoding and
// the decoded decimal from buf.
func DecodeDecimalAscending(buf []byte) ([]byte, apd.Decimal, error) {
	return decodeDecimal(buf, false)
}

// DecodeDecimalDescending decodes decimals encoded with EncodeDecimalDescending.
func DecodeDecimalDescending(buf []byte) ([]byte, apd.Decimal, error) {
	return decodeDecimal(buf, true)
}

func decodeDecimal(buf []byte, desc bool) ([]byte, apd.Decimal, error) {
	var d apd.Decimal
	n, err := getDecimalLen(buf, desc)
	if err != nil {
		return nil, d, err
	}
	enc := append([]byte(nil), buf[:n]...)
	if desc {
		enc[0] = ascendingDecimalMarker(enc[0])
		onesComplement(enc[1:])
	}
	switch enc[0] {
	case decimalZero:
		return buf[n:], d, nil
	case decimalNegative, decimalPositive:
	default:
		return nil, d, errors.Errorf("unknown decimal prefix %#x", enc[0])
	}
	neg := enc[0] == decimalNegative
	rest := enc[1:]
	var e int64
	if neg {
		rest, e, err = DecodeVarintDescending(rest)
	} else {
		rest, e, err = DecodeVarintAscending(rest)
	}
	if err != nil {
		return nil, d, err
	}
	// Drop the terminator.
	rest = rest[:len(rest)-1]
	if neg {
		onesComplement(rest)
	}
	var sb strings.Builder
	for _, c := range rest {
		pair := int(c-1) / 2
		sb.WriteByte(byte('0' + pair/10))
		sb.WriteByte(byte('0' + pair%10))
	}
	digits := strings.TrimRight(sb.String(), "0")
	if _, ok := d.Coeff.SetString(digits, 10); !ok {
		return nil, d, errors.Errorf("malformed decimal digits %q", digits)
	}
	d.Exponent = int32(e - int64(len(digits)))
	d.Negative = neg
	return buf[n:], d, nil
}

func ascendingDecimalMarker(m byte) byte {
	switch m {
	case decimalNegativeDesc:
		return decimalNegative
	case decimalZeroDesc:
		return decimalZero
	case decimalPositiveDesc:
		return decimalPositive
	}
	return m
}

func getDecimalLen(buf []byte, desc bool) (int, error) {
	if len(buf) == 0 {
		return 0, errors.Errorf("empty slice")
	}
	// at returns the byte at i as it would appear in the ascending encoding.
	at := func(i int) byte {
		if desc {
			return ^buf[i]
		}
		return buf[i]
	}
	m := buf[0]
	if desc {
		m = ascendingDecimalMarker(m)
	}
	switch m {
	case decimalZero:
		return 1, nil
	case decimalNegative, decimalPositive:
	default:
		return 0, errors.Errorf("unknown decimal prefix %#x", buf[0])
	}
	if len(buf) < 2 {
		return 0, errors.Errorf("insufficient bytes to decode decimal")
	}
	l, err := varintLenFromTag(at(1))
	if err != nil {
		return 0, err
	}
	term := byte(decimalTerminator)
	if m == decimalNegative {
		term = ^term
	}
	for i := 1 + l; i < len(buf); i++ {
		if at(i) == term {
			return i + 1, nil
		}
	}
	return 0, errors.Errorf("did not find decimal terminator in buffer %#x", buf)
}

// PrettyPrintValue returns the string representation of all contiguous decodable
// values in the provided byte slice, separated by a provided separator.
func PrettyPrintValue(b []byte, sep string) string {
	var buf bytes.Buffer
	for len(b) > 0 {
		bb, s, err := prettyPrintFirstValue(b)
		if err != nil {
			fmt.Fprintf(&buf, "%s<%v>", sep, err)
			break
		}
		fmt.Fprintf(&buf, "%s%s", sep, s)
		b = bb
	}
	return buf.String()
}

// prettyPrintFirstValue returns a string representation of the first decodable
// value in the provided byte slice, along with the remaining byte slice
// after decoding.
func prettyPrintFirstValue(b []byte) ([]byte, string, error) {
	var err error
	switch PeekType(b) {
	case Null:
		b, _ = DecodeIfNull(b)
		return b, "NULL", nil
	case NotNull:
		return b[1:], "#", nil
	case Int:
		var i int64
		b, i, err = DecodeVarintAscending(b)
		if err != nil {
			return b, "", err
		}
		return b, strconv.FormatInt(i, 10), nil
	case Float:
		var f float64
		b, f, err = DecodeFloatAscending(b)
		if err != nil {
			return b, "", err
		}
		return b, strconv.FormatFloat(f, 'g', -1, 64), nil
	case Decimal:
		var d apd.Decimal
		b, d, err = DecodeDecimalAscending(b)
		if err != nil {
			return b, "", err
		}
		return b, d.String(), nil
	case DecimalDesc:
		var d apd.Decimal
		b, d, err = DecodeDecimalDescending(b)
		if err != nil {
			return b, "", err
		}
		return b, d.String(), nil
	case Bytes:
		var s string
		b, s, err = DecodeStringAscending(b, nil)
		if err != nil {
			return b, "", err
		}
		return b, strconv.Quote(s), nil
	case BytesDesc:
		var s string
		b, s, err = DecodeStringDescending(b, nil)
		if err != nil {
			return b, "", err
		}
		return b, strconv.Quote(s), nil
	case Time:
		var t time.Time
		b, t, err = DecodeTimeAscending(b)
		if err != nil {
			return b, "", err
		}
		return b, t.UTC().Format(time.RFC3339Nano), nil
	case TimeDesc:
		var t time.Time
		b, t, err = DecodeTimeDescending(b)
		if err != nil {
			return b, "", err
		}
		return b, t.UTC().Format(time.RFC3339Nano), nil
	default:
		return nil, "", errors.Errorf("unknown tag %q", b[:1])
	}
}
