// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/exec/explain"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
)

// AncestorLookup is a lookup join on the shared hkey prefix. For every input
// row of SourceType it emits the rows of the requested ancestor tables, root
// first, followed by the input row itself if KeepInput is set. Ancestor rows
// that do not exist, as for orphans, are skipped. Rows of other types pass
// through.
//
// When the source is an index, the indexed table may be requested as well:
// the lookup then fetches the full row an index entry points to.
type AncestorLookup struct {
	Input      RowOperator
	SourceType *rowenc.RowType
	Ancestors  []*catalog.Table
	KeepInput  bool
}

var _ RowOperator = &AncestorLookup{}

// NewAncestorLookup returns an AncestorLookup. The ancestors may be given in
// any order.
func NewAncestorLookup(
	input RowOperator, sourceType *rowenc.RowType, ancestors []*catalog.Table, keepInput bool,
) (*AncestorLookup, error) {
	src := sourceType.Table
	if src == nil || (sourceType.Kind != rowenc.TableRow && sourceType.Kind != rowenc.IndexRow) {
		return nil, errors.AssertionFailedf("ancestor lookup from %s rows", sourceType.Kind)
	}
	if len(ancestors) == 0 {
		return nil, errors.AssertionFailedf("ancestor lookup from %s without ancestors", sourceType)
	}
	sorted := append([]*catalog.Table(nil), ancestors...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Depth() < sorted[j].Depth() })
	for i, a := range sorted {
		self := a.ID == src.ID && sourceType.Kind == rowenc.IndexRow
		if !self && !a.IsAncestorOf(src) {
			return nil, errors.AssertionFailedf("%s is not an ancestor of %s", a.Name, sourceType)
		}
		if i > 0 && sorted[i-1].ID == a.ID {
			return nil, errors.AssertionFailedf("ancestor %s requested twice", a.Name)
		}
	}
	return &AncestorLookup{
		Input:      input,
		SourceType: sourceType,
		Ancestors:  sorted,
		KeepInput:  keepInput,
	}, nil
}

// Cursor is part of the RowOperator interface.
func (l *AncestorLookup) Cursor(qctx *QueryContext) (execinfra.Cursor, error) {
	input, err := l.Input.Cursor(qctx)
	if err != nil {
		return nil, err
	}
	c := &ancestorLookupCursor{op: l, qctx: qctx}
	c.init("ancestor lookup", input)
	return qctx.track(c), nil
}

// RowTypes is part of the RowOperator interface.
func (l *AncestorLookup) RowTypes() []*rowenc.RowType {
	var rts []*rowenc.RowType
	for _, rt := range l.Input.RowTypes() {
		if l.KeepInput || !rt.Is(l.SourceType) {
			rts = append(rts, rt)
		}
	}
	for _, a := range l.Ancestors {
		rts = append(rts, rowenc.NewTableRowType(a))
	}
	return rts
}

// Explain is part of the explain.Node interface.
func (l *AncestorLookup) Explain(ob *explain.OutputBuilder) {
	ob.EnterNode("ancestor lookup")
	ob.AddField("source", l.SourceType.String())
	names := make([]string, len(l.Ancestors))
	for i, a := range l.Ancestors {
		names[i] = a.Name
	}
	ob.AddField("ancestors", strings.Join(names, ", "))
	if l.KeepInput {
		ob.AddField("keep input", "true")
	}
	explainInput(ob, l.Input)
	ob.LeaveNode()
}

type ancestorLookupCursor struct {
	unaryCursor
	op      *AncestorLookup
	qctx    *QueryContext
	pending rowQueue
}

func (c *ancestorLookupCursor) Open(ctx context.Context) error {
	if err := c.unaryCursor.Open(ctx); err != nil {
		return err
	}
	c.pending.reset()
	return nil
}

func (c *ancestorLookupCursor) Next(ctx context.Context) (*rowenc.Row, error) {
	if err := c.CheckNext(); err != nil {
		return nil, err
	}
	for {
		if row, ok := c.pending.pop(); ok {
			c.Advance()
			return row, nil
		}
		row, err := c.nextInput(ctx)
		if err != nil || row == nil {
			return nil, err
		}
		if !row.Type.Is(c.op.SourceType) {
			c.pending.push(row)
			continue
		}
		if err := c.lookup(ctx, row); err != nil {
			c.Close(ctx)
			return nil, err
		}
		if c.op.KeepInput {
			c.pending.push(row)
		}
	}
}

func (c *ancestorLookupCursor) lookup(ctx context.Context, row *rowenc.Row) error {
	if row.HKey == nil {
		return errors.AssertionFailedf("%s row without hkey", row.Type)
	}
	g := c.op.SourceType.Table.Group()
	for _, a := range c.op.Ancestors {
		hkey, ok, err := rowenc.AncestorHKey(g, row.HKey, a)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		ancestor, err := c.qctx.Adapter.LookupRow(ctx, a, hkey)
		if err != nil {
			return err
		}
		if ancestor != nil {
			c.pending.push(ancestor)
		}
	}
	return nil
}
