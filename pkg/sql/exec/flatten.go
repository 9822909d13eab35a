// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/exec/explain"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
)

// JoinType is the kind of join a Flatten performs.
type JoinType int

const (
	// InnerJoin emits a flattened row for every child of a parent.
	InnerJoin JoinType = iota
	// LeftJoin also emits parents without children, with NULL child
	// columns.
	LeftJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "inner"
	case LeftJoin:
		return "left outer"
	}
	return fmt.Sprintf("JoinType(%d)", int(j))
}

// Flatten joins parent rows with their child rows by proximity in hkey
// order: a child row that follows its parent in the input is a descendant
// of it. Parent and child rows are replaced by flattened rows; rows of
// other types pass through.
type Flatten struct {
	Input      RowOperator
	ParentType *rowenc.RowType
	ChildType  *rowenc.RowType
	JoinType   JoinType

	flattened *rowenc.RowType
}

var _ RowOperator = &Flatten{}

// NewFlatten returns a Flatten of the rows of child below their parent
// rows.
func NewFlatten(
	input RowOperator, parent, child *rowenc.RowType, joinType JoinType,
) (*Flatten, error) {
	if parent.Kind != rowenc.TableRow || child.Kind != rowenc.TableRow {
		return nil, errors.AssertionFailedf("flatten of %s and %s rows", parent.Kind, child.Kind)
	}
	if child.Table.ParentID != parent.Table.ID {
		return nil, errors.AssertionFailedf("%s is not the parent of %s", parent, child)
	}
	return &Flatten{
		Input:      input,
		ParentType: parent,
		ChildType:  child,
		JoinType:   joinType,
		flattened:  rowenc.NewFlattenedRowType(parent, child),
	}, nil
}

// FlattenedType returns the type of the rows produced by the join.
func (f *Flatten) FlattenedType() *rowenc.RowType { return f.flattened }

// Cursor is part of the RowOperator interface.
func (f *Flatten) Cursor(qctx *QueryContext) (execinfra.Cursor, error) {
	input, err := f.Input.Cursor(qctx)
	if err != nil {
		return nil, err
	}
	c := &flattenCursor{op: f}
	c.init("flatten", input)
	return qctx.track(c), nil
}

// RowTypes is part of the RowOperator interface.
func (f *Flatten) RowTypes() []*rowenc.RowType {
	rts := []*rowenc.RowType{f.flattened}
	for _, rt := range f.Input.RowTypes() {
		if !rt.Is(f.ParentType) && !rt.Is(f.ChildType) {
			rts = append(rts, rt)
		}
	}
	return rts
}

// Explain is part of the explain.Node interface.
func (f *Flatten) Explain(ob *explain.OutputBuilder) {
	ob.EnterNode("flatten")
	ob.AddField("type", f.JoinType.String())
	ob.AddField("parent", f.ParentType.String())
	ob.AddField("child", f.ChildType.String())
	explainInput(ob, f.Input)
	ob.LeaveNode()
}

type flattenCursor struct {
	unaryCursor
	op *Flatten

	// parent is the last parent row, while its descendants may follow.
	parent    *rowenc.Row
	matched   bool
	inputDone bool
	pending   rowQueue
}

func (c *flattenCursor) Open(ctx context.Context) error {
	if err := c.unaryCursor.Open(ctx); err != nil {
		return err
	}
	c.parent, c.matched, c.inputDone = nil, false, false
	c.pending.reset()
	return nil
}

func (c *flattenCursor) Next(ctx context.Context) (*rowenc.Row, error) {
	if err := c.CheckNext(); err != nil {
		return nil, err
	}
	for {
		if row, ok := c.pending.pop(); ok {
			c.Advance()
			return row, nil
		}
		if c.inputDone {
			c.Close(ctx)
			return nil, nil
		}
		row, err := c.input.Next(ctx)
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		if row == nil {
			c.inputDone = true
			c.endParent()
			continue
		}
		switch {
		case row.Type.Is(c.op.ParentType):
			c.endParent()
			c.parent, c.matched = row.Copy(), false

		case row.Type.Is(c.op.ChildType):
			if c.parent == nil || !row.IsDescendantOf(c.parent) {
				c.endParent()
				// A child without its parent, such as an orphan, has nothing to
				// join with.
				continue
			}
			c.matched = true
			c.pending.push(c.join(c.parent, row))

		default:
			if c.parent != nil && !row.IsDescendantOf(c.parent) {
				c.endParent()
			}
			c.pending.push(row)
		}
	}
}

// endParent forgets the current parent, emitting it with NULL child columns
// if it had no children and the join is an outer join.
func (c *flattenCursor) endParent() {
	if c.parent != nil && !c.matched && c.op.JoinType == LeftJoin {
		c.pending.push(c.join(c.parent, nil))
	}
	c.parent, c.matched = nil, false
}

func (c *flattenCursor) join(parent, child *rowenc.Row) *rowenc.Row {
	rt := c.op.flattened
	row := &rowenc.Row{Type: rt, Values: make(rowenc.EncDatumRow, 0, len(rt.Types))}
	row.Values = append(row.Values, parent.Values...)
	if child == nil {
		row.HKey = parent.HKey
		for range c.op.ChildType.Types {
			row.Values = append(row.Values, rowenc.EncDatum{Datum: tree.DNull})
		}
		return row
	}
	row.HKey = child.HKey
	row.Values = append(row.Values, child.Values...)
	return row
}
