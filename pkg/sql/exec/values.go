// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/exec/explain"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/sqlerrors"
)

// Values produces rows computed from expressions. The expressions are
// evaluated every time a cursor is opened, so parameters take the values of
// the bindings of the execution.
type Values struct {
	RowType *rowenc.RowType
	Rows    [][]Expr
}

var _ RowOperator = &Values{}

// NewValues returns a Values operator producing rows of type rt.
func NewValues(rt *rowenc.RowType, rows [][]Expr) (*Values, error) {
	for i, exprs := range rows {
		if len(exprs) != rt.NumColumns() {
			return nil, errors.AssertionFailedf("values row %d has %d expressions, %s has %d columns",
				i, len(exprs), rt, rt.NumColumns())
		}
	}
	return &Values{RowType: rt, Rows: rows}, nil
}

// Cursor is part of the RowOperator interface.
func (v *Values) Cursor(qctx *QueryContext) (execinfra.Cursor, error) {
	c := &valuesCursor{op: v, bindings: qctx.Bindings}
	c.Init("values")
	return qctx.track(c), nil
}

// RowTypes is part of the RowOperator interface.
func (v *Values) RowTypes() []*rowenc.RowType { return []*rowenc.RowType{v.RowType} }

// Explain is part of the explain.Node interface.
func (v *Values) Explain(ob *explain.OutputBuilder) {
	ob.EnterNode("values")
	ob.AddField("size", strconv.Itoa(v.RowType.NumColumns())+" columns, "+strconv.Itoa(len(v.Rows))+" rows")
	ob.LeaveNode()
}

type valuesCursor struct {
	execinfra.Lifecycle
	op       *Values
	bindings Bindings
	rows     []*rowenc.Row
	pos      int
}

var _ execinfra.Cursor = &valuesCursor{}

func (c *valuesCursor) Open(ctx context.Context) error {
	if err := c.StartOpen(); err != nil {
		return err
	}
	rows, err := c.eval()
	if err != nil {
		c.Finish()
		return err
	}
	c.rows, c.pos = rows, 0
	return nil
}

func (c *valuesCursor) eval() ([]*rowenc.Row, error) {
	rt := c.op.RowType
	rows := make([]*rowenc.Row, len(c.op.Rows))
	for i, exprs := range c.op.Rows {
		vals, err := evalExprs(exprs, nil /* row */, c.bindings)
		if err != nil {
			return nil, err
		}
		for j, d := range vals {
			if d != tree.DNull && !rt.Types[j].Equivalent(d.ResolvedType()) {
				return nil, sqlerrors.NewDatatypeMismatchError(rt.Names[j], d.ResolvedType(), rt.Types[j])
			}
		}
		rows[i] = rowenc.NewRow(rt, nil /* hkey */, vals)
	}
	return rows, nil
}

func (c *valuesCursor) Next(ctx context.Context) (*rowenc.Row, error) {
	if err := c.CheckNext(); err != nil {
		return nil, err
	}
	if c.pos >= len(c.rows) {
		c.Close(ctx)
		return nil, nil
	}
	row := c.rows[c.pos]
	c.pos++
	c.Advance()
	return row, nil
}

func (c *valuesCursor) Close(context.Context) {
	if c.Finish() {
		c.rows = nil
	}
}
