// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package exec contains the operators that plans are built from. Read
// operators hand out cursors, DML operators consume a cursor and apply
// single-row mutations through a StoreAdapter.
//
// Operators are immutable templates. All the state of an execution lives in
// its QueryContext and in the cursors created through it, so that one
// operator tree can be executed repeatedly with different bindings.
package exec

import (
	"context"
	"fmt"

	"github.com/cockroachdb/groupsql/pkg/sql/exec/explain"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
)

// RowOperator is an operator that produces rows.
type RowOperator interface {
	explain.Node
	// Cursor returns a closed cursor over the rows of the operator for the
	// execution described by qctx.
	Cursor(qctx *QueryContext) (execinfra.Cursor, error)
	// RowTypes returns the types of the rows the operator can produce.
	RowTypes() []*rowenc.RowType
}

// UpdateOperator is an operator that modifies rows.
type UpdateOperator interface {
	explain.Node
	// Run executes the operator to completion.
	Run(ctx context.Context, qctx *QueryContext) (UpdateResult, error)
}

// UpdateResult reports the effect of a DML execution. RowsModified never
// exceeds RowsTouched.
type UpdateResult struct {
	// RowsTouched is the number of source rows the operator visited.
	RowsTouched int
	// RowsModified is the number of those rows that were actually inserted,
	// changed or removed.
	RowsModified int
}

func (r UpdateResult) String() string {
	return fmt.Sprintf("touched: %d, modified: %d", r.RowsTouched, r.RowsModified)
}

// unaryCursor is the base of cursors that transform the rows of one input.
// Embedders implement Next on top of nextInput.
type unaryCursor struct {
	execinfra.Lifecycle
	input execinfra.Cursor
}

func (c *unaryCursor) init(name string, input execinfra.Cursor) {
	c.Init(name)
	c.input = input
}

// Open is part of the Cursor interface.
func (c *unaryCursor) Open(ctx context.Context) error {
	if err := c.StartOpen(); err != nil {
		return err
	}
	if err := c.input.Open(ctx); err != nil {
		c.Finish()
		return err
	}
	return nil
}

// nextInput pulls the next input row. At the end of the input, or on error,
// the cursor is closed.
func (c *unaryCursor) nextInput(ctx context.Context) (*rowenc.Row, error) {
	row, err := c.input.Next(ctx)
	if err != nil || row == nil {
		c.Close(ctx)
	}
	return row, err
}

// Close is part of the Cursor interface.
func (c *unaryCursor) Close(ctx context.Context) {
	if c.Finish() {
		c.input.Close(ctx)
	}
}

// rowQueue holds rows produced ahead of the consumer.
type rowQueue struct {
	rows []*rowenc.Row
}

func (q *rowQueue) push(rows ...*rowenc.Row) { q.rows = append(q.rows, rows...) }

func (q *rowQueue) pop() (*rowenc.Row, bool) {
	if len(q.rows) == 0 {
		return nil, false
	}
	row := q.rows[0]
	q.rows[0] = nil
	q.rows = q.rows[1:]
	return row, true
}

func (q *rowQueue) reset() { q.rows = nil }

func explainInput(ob *explain.OutputBuilder, input RowOperator) {
	if input != nil {
		input.Explain(ob)
	}
}

func containsType(rts []*rowenc.RowType, rt *rowenc.RowType) bool {
	for _, t := range rts {
		if t.Is(rt) {
			return true
		}
	}
	return false
}
