// Copyright 2014 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package encoding

import (
	"bytes"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/require"
)

type byteSlices [][]byte

func (b byteSlices) Len() int           { return len(b) }
func (b byteSlices) Less(i, j int) bool { return bytes.Compare(b[i], b[j]) < 0 }
func (b byteSlices) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

func TestEncodeDecodeVarint(t *testing.T) {
	testCases := []struct {
		value   int64
		encoded []byte
	}{
		{math.MinInt64, []byte{0x80, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
		{-1 << 8, []byte{0x86, 0xff, 0x00}},
		{-1, []byte{0x87, 0xff}},
		{0, []byte{0x88}},
		{1, []byte{0x89}},
		{109, []byte{0xf5}},
		{112, []byte{0xf6, 0x70}},
		{1 << 8, []byte{0xf7, 0x01, 0x00}},
		{math.MaxInt64, []byte{0xfd, 0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	var lastEnc []byte
	for i, c := range testCases {
		enc := EncodeVarintAscending(nil, c.value)
		require.Equal(t, c.encoded, enc, "value %d", c.value)
		if i > 0 {
			require.Equal(t, -1, bytes.Compare(lastEnc, enc), "%d: unordered", c.value)
		}
		rest, dec, err := DecodeVarintAscending(enc)
		require.NoError(t, err)
		require.Empty(t, rest)
		require.Equal(t, c.value, dec)

		n, err := PeekLength(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)

		descEnc := EncodeVarintDescending(nil, c.value)
		_, descDec, err := DecodeVarintDescending(descEnc)
		require.NoError(t, err)
		require.Equal(t, c.value, descDec)
		lastEnc = enc
	}
}

func TestEncodeDecodeUvarint(t *testing.T) {
	values := []uint64{0, 1, 109, 110, 0xff, 0x100, 0xffff, 1 << 24, 1 << 40, math.MaxUint64}
	var last []byte
	var lastDesc []byte
	for i, v := range values {
		enc := EncodeUvarintAscending(nil, v)
		_, dec, err := DecodeUvarintAscending(enc)
		require.NoError(t, err)
		require.Equal(t, v, dec)

		desc := EncodeUvarintDescending(nil, v)
		_, decDesc, err := DecodeUvarintDescending(desc)
		require.NoError(t, err)
		require.Equal(t, v, decDesc)

		if i > 0 {
			require.Less(t, bytes.Compare(last, enc), 0)
			require.Greater(t, bytes.Compare(lastDesc, desc), 0)
		}
		last, lastDesc = enc, desc
	}
}

func TestStringOrdering(t *testing.T) {
	strs := []string{
		"foo",
		"baaaar",
		"bazz",
		"Hello, 世界",
		"",
		"abcd",
		"a\x00b",
		"a\x00",
		"a",
		"☺☻☹",
	}
	encoded := make(byteSlices, len(strs))
	for i := range strs {
		encoded[i] = EncodeStringAscending(nil, strs[i])
	}
	sort.Strings(strs)
	sort.Sort(encoded)
	for i := range strs {
		rest, decoded, err := DecodeStringAscending(encoded[i], nil)
		require.NoError(t, err)
		require.Empty(t, rest)
		require.Equal(t, strs[i], decoded)

		n, err := PeekLength(encoded[i])
		require.NoError(t, err)
		require.Equal(t, len(encoded[i]), n)
	}
}

func TestBytesDescending(t *testing.T) {
	values := [][]byte{{}, {0x00}, {0x00, 0x01}, {0x01}, []byte("abc"), {0xff}}
	encoded := make(byteSlices, len(values))
	for i, v := range values {
		encoded[i] = EncodeBytesDescending(nil, v)
		_, dec, err := DecodeBytesDescending(encoded[i], nil)
		require.NoError(t, err)
		require.Equal(t, v, dec)
		n, err := PeekLength(encoded[i])
		require.NoError(t, err)
		require.Equal(t, len(encoded[i]), n)
	}
	for i := 1; i < len(encoded); i++ {
		require.Greater(t, bytes.Compare(encoded[i-1], encoded[i]), 0, "%q vs %q", values[i-1], values[i])
	}
}

func TestFloatOrdering(t *testing.T) {
	values := []float64{math.NaN(), math.Inf(-1), -1e10, -1.5, -math.SmallestNonzeroFloat64, 0,
		math.SmallestNonzeroFloat64, 1, 1.5, 1e10, math.Inf(1)}
	var last []byte
	for i, v := range values {
		enc := EncodeFloatAscending(nil, v)
		_, dec, err := DecodeFloatAscending(enc)
		require.NoError(t, err)
		if math.IsNaN(v) {
			require.True(t, math.IsNaN(dec))
		} else {
			require.Equal(t, v, dec)
		}
		if i > 0 {
			require.Less(t, bytes.Compare(last, enc), 0, "%v", v)
		}
		last = enc

		desc := EncodeFloatDescending(nil, v)
		_, decDesc, err := DecodeFloatDescending(desc)
		require.NoError(t, err)
		if !math.IsNaN(v) {
			require.Equal(t, v, decDesc)
		}
	}
}

func TestDecimalOrdering(t *testing.T) {
	strs := []string{"-1e10", "-123.45", "-12.5", "-1", "-0.101", "-0.1", "0",
		"0.001", "0.1", "0.101", "1", "1.5", "9.99", "10", "12.5", "100", "1e20"}
	var last, lastDesc []byte
	for i, s := range strs {
		d, _, err := apd.NewFromString(s)
		require.NoError(t, err)

		enc := EncodeDecimalAscending(nil, d)
		rest, dec, err := DecodeDecimalAscending(append(enc, 0x88))
		require.NoError(t, err)
		require.Equal(t, []byte{0x88}, rest)
		require.Equal(t, 0, dec.Cmp(d), "%s decoded as %s", s, &dec)

		n, err := PeekLength(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)

		desc := EncodeDecimalDescending(nil, d)
		_, decDesc, err := DecodeDecimalDescending(desc)
		require.NoError(t, err)
		require.Equal(t, 0, decDesc.Cmp(d), "%s decoded as %s", s, &decDesc)
		n, err = PeekLength(desc)
		require.NoError(t, err)
		require.Equal(t, len(desc), n)

		if i > 0 {
			require.Less(t, bytes.Compare(last, enc), 0, "%s", s)
			require.Greater(t, bytes.Compare(lastDesc, desc), 0, "%s", s)
		}
		last, lastDesc = enc, desc
	}
}

func TestTimeOrdering(t *testing.T) {
	base := time.Date(2020, 1, 2, 3, 4, 5, 6, time.UTC)
	times := []time.Time{base.Add(-time.Hour), base, base.Add(time.Nanosecond), base.Add(time.Hour)}
	var last []byte
	for i, ts := range times {
		enc := EncodeTimeAscending(nil, ts)
		_, dec, err := DecodeTimeAscending(enc)
		require.NoError(t, err)
		require.True(t, ts.Equal(dec))
		if i > 0 {
			require.Less(t, bytes.Compare(last, enc), 0)
		}
		last = enc

		desc := EncodeTimeDescending(nil, ts)
		_, decDesc, err := DecodeTimeDescending(desc)
		require.NoError(t, err)
		require.True(t, ts.Equal(decDesc))
	}
}

func TestNullSortsFirst(t *testing.T) {
	null := EncodeNullAscending(nil)
	for _, enc := range [][]byte{
		EncodeVarintAscending(nil, math.MinInt64),
		EncodeStringAscending(nil, ""),
		EncodeFloatAscending(nil, math.NaN()),
		EncodeBytesAscending(nil, nil),
	} {
		require.Less(t, bytes.Compare(null, enc), 0)
	}
	rest, isNull := DecodeIfNull(append(null, 0x88))
	require.True(t, isNull)
	require.Equal(t, []byte{0x88}, rest)
	_, isNull = DecodeIfNull(EncodeNullDescending(nil))
	require.True(t, isNull)
}

func TestPrettyPrintValue(t *testing.T) {
	var b []byte
	b = EncodeUvarintAscending(b, 3)
	b = EncodeStringAscending(b, "abc")
	b = EncodeNullAscending(b)
	b = EncodeVarintAscending(b, -7)
	require.Equal(t, `/3/"abc"/NULL/-7`, PrettyPrintValue(b, "/"))
}
