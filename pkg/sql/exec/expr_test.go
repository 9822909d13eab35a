// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec_test

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/groupsql/pkg/sql/exec"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/stretchr/testify/require"
)

func lit(d tree.Datum) exec.Expr { return &exec.Literal{Datum: d} }

func TestThreeValuedLogic(t *testing.T) {
	vals := []tree.Datum{tree.DBoolTrue, tree.DBoolFalse, tree.DNull}
	and := map[[2]string]string{
		{"true", "true"}: "true", {"true", "false"}: "false", {"true", "NULL"}: "NULL",
		{"false", "true"}: "false", {"false", "false"}: "false", {"false", "NULL"}: "false",
		{"NULL", "true"}: "NULL", {"NULL", "false"}: "false", {"NULL", "NULL"}: "NULL",
	}
	or := map[[2]string]string{
		{"true", "true"}: "true", {"true", "false"}: "true", {"true", "NULL"}: "true",
		{"false", "true"}: "true", {"false", "false"}: "false", {"false", "NULL"}: "NULL",
		{"NULL", "true"}: "true", {"NULL", "false"}: "NULL", {"NULL", "NULL"}: "NULL",
	}
	for _, l := range vals {
		for _, r := range vals {
			key := [2]string{l.String(), r.String()}
			t.Run(fmt.Sprintf("%s,%s", key[0], key[1]), func(t *testing.T) {
				d, err := (&exec.And{Left: lit(l), Right: lit(r)}).Eval(nil, nil)
				require.NoError(t, err)
				require.Equal(t, and[key], d.String())
				d, err = (&exec.Or{Left: lit(l), Right: lit(r)}).Eval(nil, nil)
				require.NoError(t, err)
				require.Equal(t, or[key], d.String())
			})
		}
	}

	for d, expected := range map[tree.Datum]string{
		tree.DBoolTrue: "false", tree.DBoolFalse: "true", tree.DNull: "NULL",
	} {
		res, err := (&exec.Not{Input: lit(d)}).Eval(nil, nil)
		require.NoError(t, err)
		require.Equal(t, expected, res.String())
	}

	_, err := (&exec.And{Left: lit(tree.NewDInt(1)), Right: lit(tree.DBoolTrue)}).Eval(nil, nil)
	require.Equal(t, pgcode.DatatypeMismatch, pgerror.GetPGCode(err))
}

func TestComparison(t *testing.T) {
	one, two := tree.NewDInt(1), tree.NewDInt(2)
	testCases := []struct {
		op       exec.ComparisonOp
		l, r     tree.Datum
		expected string
	}{
		{exec.EQ, one, one, "true"},
		{exec.EQ, one, two, "false"},
		{exec.NE, one, two, "true"},
		{exec.LT, one, two, "true"},
		{exec.LE, two, two, "true"},
		{exec.GT, one, two, "false"},
		{exec.GE, two, one, "true"},
		{exec.EQ, one, tree.DNull, "NULL"},
		{exec.NE, tree.DNull, tree.DNull, "NULL"},
	}
	for _, tc := range testCases {
		c := &exec.Comparison{Op: tc.op, Left: lit(tc.l), Right: lit(tc.r)}
		t.Run(c.String(), func(t *testing.T) {
			d, err := c.Eval(nil, nil)
			require.NoError(t, err)
			require.Equal(t, tc.expected, d.String())
		})
	}

	isNull, err := (&exec.IsNull{Input: lit(tree.DNull)}).Eval(nil, nil)
	require.NoError(t, err)
	require.Equal(t, tree.DBoolTrue, isNull)

	_, err = (&exec.Comparison{Op: exec.LT, Left: lit(one), Right: lit(tree.NewDString("a"))}).Eval(nil, nil)
	require.Equal(t, pgcode.DatatypeMismatch, pgerror.GetPGCode(err))
}

func TestParams(t *testing.T) {
	b := exec.MakeBindings(tree.NewDInt(7))
	d, err := (&exec.Param{N: 1}).Eval(nil, b)
	require.NoError(t, err)
	require.Equal(t, "7", d.String())

	for _, n := range []int{0, 2} {
		_, err := (&exec.Param{N: n}).Eval(nil, b)
		require.Equal(t, pgcode.UndefinedParameter, pgerror.GetPGCode(err))
	}
	require.Equal(t, "$2", (&exec.Param{N: 2}).String())
}
