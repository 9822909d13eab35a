// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/exec/explain"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/storeadapter"
	"github.com/cockroachdb/groupsql/pkg/util/log"
)

// rowMutator applies the mutation of a DML operator to one source row.
type rowMutator func(ctx context.Context, qctx *QueryContext, row *rowenc.Row) (storeadapter.MutationOutcome, error)

// runDML drives a DML operator: it pulls the rows of input, passes the rows
// of the target table to mutate and accounts for the outcomes. Every row
// pulled counts as touched, including rows of other types, which are passed
// over without a mutation. An entry of an index of the target table stands
// for the row it points to.
//
// The first error aborts the operation. No partial result is returned with
// an error, and every cursor of the execution is closed.
func runDML(
	ctx context.Context,
	qctx *QueryContext,
	op string,
	input RowOperator,
	target *catalog.Table,
	anyRow bool,
	mutate rowMutator,
) (_ UpdateResult, retErr error) {
	ctx = qctx.Session.AnnotateCtx(ctx)
	ctx, cancel := qctx.Session.WithTimeout(ctx)
	defer cancel()
	defer func() {
		if retErr != nil {
			qctx.Metrics.DMLErrors.WithLabelValues(op).Inc()
			qctx.CloseAll(ctx)
		}
	}()

	c, err := input.Cursor(qctx)
	if err != nil {
		return UpdateResult{}, err
	}
	if err := c.Open(ctx); err != nil {
		return UpdateResult{}, err
	}
	defer c.Close(ctx)

	var res UpdateResult
	for {
		if err := canceledError(ctx); err != nil {
			return UpdateResult{}, err
		}
		row, err := c.Next(ctx)
		if err != nil {
			return UpdateResult{}, err
		}
		if row == nil {
			break
		}
		res.RowsTouched++
		if !anyRow {
			if row, err = targetRow(ctx, qctx, target, row); err != nil {
				return UpdateResult{}, err
			}
			if row == nil {
				continue
			}
		}
		outcome, err := mutate(ctx, qctx, row)
		if err != nil {
			return UpdateResult{}, err
		}
		if outcome == storeadapter.Modified {
			res.RowsModified++
		}
	}
	qctx.Metrics.RowsTouched.Add(float64(res.RowsTouched))
	qctx.Metrics.RowsModified.Add(float64(res.RowsModified))
	log.VEventf(ctx, 2, "%s %s: %s", op, target.Name, res)
	return res, nil
}

// targetRow returns the full row of t that row stands for, or nil if row is
// not a row of t.
func targetRow(
	ctx context.Context, qctx *QueryContext, t *catalog.Table, row *rowenc.Row,
) (*rowenc.Row, error) {
	switch {
	case row.Type.IsTable(t):
		return row, nil
	case row.Type.Kind == rowenc.IndexRow && row.Type.ID.TableID == t.ID:
		full, err := qctx.Adapter.LookupRow(ctx, t, row.HKey)
		if err != nil {
			return nil, err
		}
		if full == nil {
			return nil, errors.AssertionFailedf("index entry %s points to a missing row", row)
		}
		return full, nil
	}
	return nil, nil
}

func explainDML(ob *explain.OutputBuilder, name string, t *catalog.Table, input RowOperator) {
	ob.EnterNode(name)
	ob.AddField("table", t.Name)
	explainInput(ob, input)
	ob.LeaveNode()
}

// Insert writes every row of its input into a table. Input rows must have
// the columns of the table, in order.
type Insert struct {
	Input RowOperator
	Table *catalog.Table
}

var _ UpdateOperator = &Insert{}

// NewInsert returns an Insert.
func NewInsert(input RowOperator, t *catalog.Table) *Insert {
	return &Insert{Input: input, Table: t}
}

// Run is part of the UpdateOperator interface.
func (ins *Insert) Run(ctx context.Context, qctx *QueryContext) (UpdateResult, error) {
	return runDML(ctx, qctx, "insert", ins.Input, ins.Table, true /* anyRow */,
		func(ctx context.Context, qctx *QueryContext, row *rowenc.Row) (storeadapter.MutationOutcome, error) {
			if row.Type.NumColumns() != len(ins.Table.Columns) {
				return 0, errors.AssertionFailedf("inserting %s row with %d columns into %s",
					row.Type, row.Type.NumColumns(), ins.Table.Name)
			}
			vals, err := row.Datums()
			if err != nil {
				return 0, err
			}
			return qctx.Adapter.WriteRow(ctx, ins.Table, vals)
		})
}

// Explain is part of the explain.Node interface.
func (ins *Insert) Explain(ob *explain.OutputBuilder) {
	explainDML(ob, "insert", ins.Table, ins.Input)
}

// Assignment sets a column of an updated row. Value is evaluated against the
// row before the update.
type Assignment struct {
	Column int
	Value  Expr
}

// Update changes the rows of a table produced by its input.
type Update struct {
	Input RowOperator
	Table *catalog.Table
	Set   []Assignment
}

var _ UpdateOperator = &Update{}

// NewUpdate returns an Update.
func NewUpdate(input RowOperator, t *catalog.Table, set []Assignment) (*Update, error) {
	for _, a := range set {
		if a.Column < 0 || a.Column >= len(t.Columns) {
			return nil, errors.AssertionFailedf("assignment to column %d of %s", a.Column, t.Name)
		}
	}
	return &Update{Input: input, Table: t, Set: set}, nil
}

// Run is part of the UpdateOperator interface.
func (u *Update) Run(ctx context.Context, qctx *QueryContext) (UpdateResult, error) {
	return runDML(ctx, qctx, "update", u.Input, u.Table, false /* anyRow */,
		func(ctx context.Context, qctx *QueryContext, row *rowenc.Row) (storeadapter.MutationOutcome, error) {
			oldVals, err := row.Datums()
			if err != nil {
				return 0, err
			}
			newVals := append(tree.Datums(nil), oldVals...)
			for _, a := range u.Set {
				if newVals[a.Column], err = a.Value.Eval(row, qctx.Bindings); err != nil {
					return 0, err
				}
			}
			return qctx.Adapter.UpdateRow(ctx, u.Table, oldVals, newVals)
		})
}

// Explain is part of the explain.Node interface.
func (u *Update) Explain(ob *explain.OutputBuilder) {
	ob.EnterNode("update")
	ob.AddField("table", u.Table.Name)
	set := make([]string, len(u.Set))
	for i, a := range u.Set {
		set[i] = fmt.Sprintf("%s = %s", u.Table.Columns[a.Column].Name, a.Value)
	}
	ob.AddField("set", strings.Join(set, ", "))
	explainInput(ob, u.Input)
	ob.LeaveNode()
}

// Delete removes the rows of a table produced by its input. Rows of child
// tables below a deleted row become orphans.
type Delete struct {
	Input RowOperator
	Table *catalog.Table
}

var _ UpdateOperator = &Delete{}

// NewDelete returns a Delete.
func NewDelete(input RowOperator, t *catalog.Table) *Delete {
	return &Delete{Input: input, Table: t}
}

// Run is part of the UpdateOperator interface.
func (d *Delete) Run(ctx context.Context, qctx *QueryContext) (UpdateResult, error) {
	return runDML(ctx, qctx, "delete", d.Input, d.Table, false /* anyRow */,
		func(ctx context.Context, qctx *QueryContext, row *rowenc.Row) (storeadapter.MutationOutcome, error) {
			vals, err := row.Datums()
			if err != nil {
				return 0, err
			}
			return qctx.Adapter.DeleteRow(ctx, d.Table, vals)
		})
}

// Explain is part of the explain.Node interface.
func (d *Delete) Explain(ob *explain.OutputBuilder) {
	explainDML(ob, "delete", d.Table, d.Input)
}
