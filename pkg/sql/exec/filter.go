// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/exec/explain"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
)

// Filter keeps the rows of the listed types, in input order.
type Filter struct {
	Input RowOperator
	Keep  []*rowenc.RowType
}

var _ RowOperator = &Filter{}

// NewFilter returns a Filter.
func NewFilter(input RowOperator, keep ...*rowenc.RowType) *Filter {
	return &Filter{Input: input, Keep: keep}
}

// Cursor is part of the RowOperator interface.
func (f *Filter) Cursor(qctx *QueryContext) (execinfra.Cursor, error) {
	input, err := f.Input.Cursor(qctx)
	if err != nil {
		return nil, err
	}
	c := &filterCursor{keep: f.Keep}
	c.init("filter", input)
	return qctx.track(c), nil
}

// RowTypes is part of the RowOperator interface.
func (f *Filter) RowTypes() []*rowenc.RowType { return f.Keep }

// Explain is part of the explain.Node interface.
func (f *Filter) Explain(ob *explain.OutputBuilder) {
	ob.EnterNode("filter")
	names := make([]string, len(f.Keep))
	for i, rt := range f.Keep {
		names[i] = rt.String()
	}
	ob.AddField("keep", strings.Join(names, ", "))
	explainInput(ob, f.Input)
	ob.LeaveNode()
}

type filterCursor struct {
	unaryCursor
	keep []*rowenc.RowType
}

func (c *filterCursor) Next(ctx context.Context) (*rowenc.Row, error) {
	if err := c.CheckNext(); err != nil {
		return nil, err
	}
	for {
		row, err := c.nextInput(ctx)
		if err != nil || row == nil {
			return nil, err
		}
		if containsType(c.keep, row.Type) {
			c.Advance()
			return row, nil
		}
	}
}

// Select filters the rows of one type by a predicate. The descendants of a
// rejected row are dropped along with it; rows of other types that are not
// below a rejected row pass through.
type Select struct {
	Input     RowOperator
	RowType   *rowenc.RowType
	Predicate Expr
}

var _ RowOperator = &Select{}

// NewSelect returns a Select.
func NewSelect(input RowOperator, rt *rowenc.RowType, predicate Expr) *Select {
	return &Select{Input: input, RowType: rt, Predicate: predicate}
}

// Cursor is part of the RowOperator interface.
func (s *Select) Cursor(qctx *QueryContext) (execinfra.Cursor, error) {
	input, err := s.Input.Cursor(qctx)
	if err != nil {
		return nil, err
	}
	c := &selectCursor{op: s, bindings: qctx.Bindings}
	c.init("select", input)
	return qctx.track(c), nil
}

// RowTypes is part of the RowOperator interface.
func (s *Select) RowTypes() []*rowenc.RowType { return s.Input.RowTypes() }

// Explain is part of the explain.Node interface.
func (s *Select) Explain(ob *explain.OutputBuilder) {
	ob.EnterNode("select")
	ob.AddField("type", s.RowType.String())
	ob.AddField("filter", s.Predicate.String())
	explainInput(ob, s.Input)
	ob.LeaveNode()
}

type selectCursor struct {
	unaryCursor
	op       *Select
	bindings Bindings
	// rejected is the last row of the selected type that failed the
	// predicate, as long as its descendants may still follow.
	rejected *rowenc.Row
}

func (c *selectCursor) Open(ctx context.Context) error {
	if err := c.unaryCursor.Open(ctx); err != nil {
		return err
	}
	c.rejected = nil
	return nil
}

func (c *selectCursor) Next(ctx context.Context) (*rowenc.Row, error) {
	if err := c.CheckNext(); err != nil {
		return nil, err
	}
	for {
		row, err := c.nextInput(ctx)
		if err != nil || row == nil {
			return nil, err
		}
		if c.rejected != nil {
			if row.IsDescendantOf(c.rejected) {
				continue
			}
			c.rejected = nil
		}
		if row.Type.Is(c.op.RowType) {
			ok, err := evalPredicate(c.op.Predicate, row, c.bindings)
			if err != nil {
				c.Close(ctx)
				return nil, err
			}
			if !ok {
				if row.HKey != nil {
					c.rejected = row.Copy()
				}
				continue
			}
		}
		c.Advance()
		return row, nil
	}
}

// Limit produces at most N rows of its input.
type Limit struct {
	Input RowOperator
	N     int
}

var _ RowOperator = &Limit{}

// NewLimit returns a Limit.
func NewLimit(input RowOperator, n int) (*Limit, error) {
	if n < 0 {
		return nil, errors.AssertionFailedf("negative limit %d", n)
	}
	return &Limit{Input: input, N: n}, nil
}

// Cursor is part of the RowOperator interface.
func (l *Limit) Cursor(qctx *QueryContext) (execinfra.Cursor, error) {
	input, err := l.Input.Cursor(qctx)
	if err != nil {
		return nil, err
	}
	c := &limitCursor{limit: l.N}
	c.init("limit", input)
	return qctx.track(c), nil
}

// RowTypes is part of the RowOperator interface.
func (l *Limit) RowTypes() []*rowenc.RowType { return l.Input.RowTypes() }

// Explain is part of the explain.Node interface.
func (l *Limit) Explain(ob *explain.OutputBuilder) {
	ob.EnterNode("limit")
	ob.AddField("count", strconv.Itoa(l.N))
	explainInput(ob, l.Input)
	ob.LeaveNode()
}

type limitCursor struct {
	unaryCursor
	limit, seen int
}

func (c *limitCursor) Open(ctx context.Context) error {
	if err := c.unaryCursor.Open(ctx); err != nil {
		return err
	}
	c.seen = 0
	return nil
}

func (c *limitCursor) Next(ctx context.Context) (*rowenc.Row, error) {
	if err := c.CheckNext(); err != nil {
		return nil, err
	}
	if c.seen >= c.limit {
		c.Close(ctx)
		return nil, nil
	}
	row, err := c.nextInput(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	c.seen++
	c.Advance()
	return row, nil
}
