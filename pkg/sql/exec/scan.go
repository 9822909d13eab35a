// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/exec/explain"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/storeadapter"
)

// GroupScan produces every row of a group in hkey order, parents before
// their descendants.
type GroupScan struct {
	Group *catalog.Group
}

var _ RowOperator = &GroupScan{}

// NewGroupScan returns a scan of group g.
func NewGroupScan(g *catalog.Group) *GroupScan {
	return &GroupScan{Group: g}
}

// Cursor is part of the RowOperator interface.
func (s *GroupScan) Cursor(qctx *QueryContext) (execinfra.Cursor, error) {
	c, err := qctx.Adapter.NewGroupCursor(rowenc.NewTableRowType(s.Group.Root()), qctx.Flush)
	if err != nil {
		return nil, err
	}
	return qctx.track(c), nil
}

// RowTypes is part of the RowOperator interface.
func (s *GroupScan) RowTypes() []*rowenc.RowType {
	tables := s.Group.Tables()
	rts := make([]*rowenc.RowType, len(tables))
	for i, t := range tables {
		rts[i] = rowenc.NewTableRowType(t)
	}
	return rts
}

// Explain is part of the explain.Node interface.
func (s *GroupScan) Explain(ob *explain.OutputBuilder) {
	ob.EnterNode("group scan")
	ob.AddField("group", s.Group.Name())
	ob.LeaveNode()
}

// ScanBound is one end of the range of an IndexScan. Values are evaluated
// when the scan is opened and constrain a prefix of the index columns.
type ScanBound struct {
	Values    []Expr
	Inclusive bool
}

func (b *ScanBound) eval(bindings Bindings) (*storeadapter.IndexBound, error) {
	if b == nil {
		return nil, nil
	}
	vals, err := evalExprs(b.Values, nil /* row */, bindings)
	if err != nil {
		return nil, err
	}
	return &storeadapter.IndexBound{Values: vals, Inclusive: b.Inclusive}, nil
}

func (b *ScanBound) format(exclusive, inclusive string) string {
	op := exclusive
	if b.Inclusive {
		op = inclusive
	}
	strs := make([]string, len(b.Values))
	for i, v := range b.Values {
		strs[i] = v.String()
	}
	return op + " (" + strings.Join(strs, ", ") + ")"
}

// IndexScan produces the entries of an index in index key order, or its
// reverse, within an optional range.
type IndexScan struct {
	RowType    *rowenc.RowType
	Start, End *ScanBound
	Ordering   storeadapter.Ordering
}

var _ RowOperator = &IndexScan{}

// NewIndexScan returns a scan of the index with row type rt.
func NewIndexScan(
	rt *rowenc.RowType, start, end *ScanBound, ordering storeadapter.Ordering,
) (*IndexScan, error) {
	if rt.Kind != rowenc.IndexRow {
		return nil, errors.AssertionFailedf("index scan of %s rows", rt.Kind)
	}
	for _, b := range []*ScanBound{start, end} {
		if b != nil && len(b.Values) > len(rt.Types) {
			return nil, errors.AssertionFailedf("bound with %d values for index %s of %d columns",
				len(b.Values), rt, len(rt.Types))
		}
	}
	return &IndexScan{RowType: rt, Start: start, End: end, Ordering: ordering}, nil
}

// Cursor is part of the RowOperator interface.
func (s *IndexScan) Cursor(qctx *QueryContext) (execinfra.Cursor, error) {
	c := &indexScanCursor{scan: s, qctx: qctx}
	c.Init("index scan " + s.RowType.String())
	return qctx.track(c), nil
}

// RowTypes is part of the RowOperator interface.
func (s *IndexScan) RowTypes() []*rowenc.RowType { return []*rowenc.RowType{s.RowType} }

// Explain is part of the explain.Node interface.
func (s *IndexScan) Explain(ob *explain.OutputBuilder) {
	ob.EnterNode("index scan")
	ob.AddField("index", s.RowType.String())
	if s.Start != nil {
		ob.AddField("start", s.Start.format(">", ">="))
	}
	if s.End != nil {
		ob.AddField("end", s.End.format("<", "<="))
	}
	if s.Ordering == storeadapter.Reverse {
		ob.AddField("ordering", s.Ordering.String())
	}
	ob.LeaveNode()
}

// indexScanCursor evaluates the bounds of its scan when it is opened and
// reads through a storage cursor created for those bounds.
type indexScanCursor struct {
	execinfra.Lifecycle
	scan  *IndexScan
	qctx  *QueryContext
	input execinfra.Cursor
}

func (c *indexScanCursor) Open(ctx context.Context) error {
	if err := c.StartOpen(); err != nil {
		return err
	}
	if err := c.open(ctx); err != nil {
		c.Finish()
		return err
	}
	return nil
}

func (c *indexScanCursor) open(ctx context.Context) error {
	var r storeadapter.IndexKeyRange
	var err error
	if r.Start, err = c.scan.Start.eval(c.qctx.Bindings); err != nil {
		return err
	}
	if r.End, err = c.scan.End.eval(c.qctx.Bindings); err != nil {
		return err
	}
	c.input, err = c.qctx.Adapter.NewIndexCursor(c.scan.RowType, r, c.scan.Ordering)
	if err != nil {
		return err
	}
	return c.input.Open(ctx)
}

func (c *indexScanCursor) Next(ctx context.Context) (*rowenc.Row, error) {
	if err := c.CheckNext(); err != nil {
		return nil, err
	}
	row, err := c.input.Next(ctx)
	if err != nil || row == nil {
		c.Close(ctx)
		return nil, err
	}
	c.Advance()
	return row, nil
}

func (c *indexScanCursor) Close(ctx context.Context) {
	if c.Finish() && c.input != nil {
		c.input.Close(ctx)
		c.input = nil
	}
}
