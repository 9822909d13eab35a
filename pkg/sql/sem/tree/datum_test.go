// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package tree

import (
	"testing"
	"time"

	"github.com/cockroachdb/groupsql/pkg/sql/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDatumCompare(t *testing.T) {
	dec := func(s string) Datum {
		d, err := ParseDDecimal(s)
		require.NoError(t, err)
		return d
	}
	u1 := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	u2 := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

	testCases := []struct {
		a, b Datum
		exp  int
	}{
		{DNull, DNull, 0},
		{DNull, NewDInt(1), -1},
		{NewDInt(1), DNull, 1},
		{NewDInt(1), NewDInt(2), -1},
		{NewDInt(2), NewDFloat(1.5), 1},
		{NewDFloat(1.5), NewDFloat(1.5), 0},
		{dec("1.50"), dec("1.5"), 0},
		{dec("-2"), dec("1"), -1},
		{NewDString("abc"), NewDString("abd"), -1},
		{NewDBytes("b"), NewDBytes("a"), 1},
		{DBoolFalse, DBoolTrue, -1},
		{MakeDTimestamp(ts), MakeDTimestamp(ts.Add(time.Second)), -1},
		{NewDUuid(u2), NewDUuid(u1), 1},
	}
	for _, tc := range testCases {
		c, err := tc.a.Compare(tc.b)
		require.NoError(t, err)
		require.Equal(t, tc.exp, c, "%s vs %s", tc.a, tc.b)
	}

	_, err := NewDString("a").Compare(NewDInt(1))
	require.Error(t, err)
}

func TestDatumsCompare(t *testing.T) {
	a := Datums{NewDInt(1), NewDString("x")}
	b := Datums{NewDInt(1), NewDString("y")}
	c, err := a.Compare(b)
	require.NoError(t, err)
	require.Equal(t, -1, c)

	c, err = a.Compare(a[:1])
	require.NoError(t, err)
	require.Equal(t, 1, c)

	require.False(t, a.HasNull())
	require.True(t, Datums{NewDInt(1), DNull}.HasNull())
	require.Equal(t, "(1, 'x')", a.String())
}

func TestParseDatum(t *testing.T) {
	testCases := []struct {
		typ *types.T
		in  string
		out string
	}{
		{types.Int, "42", "42"},
		{types.Int, "null", "NULL"},
		{types.Float, "1.25", "1.25"},
		{types.Decimal, "3.140", "3.140"},
		{types.String, "it's", "'it''s'"},
		{types.Bytes, `\x6162`, `'\x6162'`},
		{types.Bool, "true", "true"},
		{types.Timestamp, "2020-01-02 03:04:05", "'2020-01-02 03:04:05'"},
		{types.Uuid, "00000000-0000-0000-0000-000000000001", "'00000000-0000-0000-0000-000000000001'"},
	}
	for _, tc := range testCases {
		d, err := ParseDatum(tc.typ, tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.out, d.String())
	}

	_, err := ParseDatum(types.Int, "abc")
	require.Error(t, err)
}

func TestMakeDatum(t *testing.T) {
	d, err := MakeDatum(types.Int, 7)
	require.NoError(t, err)
	require.Equal(t, NewDInt(7), d)

	d, err = MakeDatum(types.String, "abc")
	require.NoError(t, err)
	require.Equal(t, NewDString("abc"), d)

	d, err = MakeDatum(types.Float, 2)
	require.NoError(t, err)
	require.Equal(t, NewDFloat(2), d)

	d, err = MakeDatum(types.Int, nil)
	require.NoError(t, err)
	require.Equal(t, DNull, d)

	_, err = MakeDatum(types.Bool, 3)
	require.Error(t, err)
}
