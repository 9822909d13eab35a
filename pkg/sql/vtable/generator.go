// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package vtable

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/sqlerrors"
	"github.com/cockroachdb/groupsql/pkg/util/log"
)

// Generator produces the rows of a single-table virtual group in batches.
// It follows the batch protocol of VirtualGroupCursor: an empty batch with
// more set means "nothing yet, call again".
//
// Generators run on the caller's goroutine; they must not start goroutines
// of their own.
type Generator interface {
	Next(ctx context.Context) (rows []tree.Datums, more bool, err error)
}

// GeneratorFunc creates the generator of one scan of table t.
type GeneratorFunc func(ctx context.Context, view AdapterView, t *catalog.Table) (Generator, error)

// GeneratorFactory is a VirtualScanFactory for single-table virtual groups
// whose rows come from a Generator.
type GeneratorFactory struct {
	name     string
	estimate int64
	newGen   GeneratorFunc
}

var _ VirtualScanFactory = &GeneratorFactory{}

// NewGeneratorFactory returns a factory for the named table.
func NewGeneratorFactory(name string, estimate int64, newGen GeneratorFunc) *GeneratorFactory {
	return &GeneratorFactory{name: name, estimate: estimate, newGen: newGen}
}

// Name is part of the VirtualScanFactory interface.
func (f *GeneratorFactory) Name() string { return f.name }

// RowCountEstimate is part of the VirtualScanFactory interface.
func (f *GeneratorFactory) RowCountEstimate() int64 { return f.estimate }

// GroupScan is part of the VirtualScanFactory interface.
func (f *GeneratorFactory) GroupScan(view AdapterView, g *catalog.Group) (VirtualGroupCursor, error) {
	root := g.Root()
	if root.Name != f.name {
		return nil, errors.AssertionFailedf("factory %q cannot scan group %q", f.name, root.Name)
	}
	if len(root.ChildIDs) > 0 {
		return nil, sqlerrors.NewFeatureNotSupportedError(
			"generated virtual table %q cannot have child tables", root.Name)
	}
	c := &generatorCursor{
		view:   view,
		table:  root,
		rt:     rowenc.NewTableRowType(root),
		newGen: f.newGen,
	}
	c.Init(f.name)
	return c, nil
}

// generatorCursor adapts a Generator to VirtualGroupCursor. Each Open
// creates a fresh generator, so that reopening restarts the scan.
type generatorCursor struct {
	execinfra.Lifecycle
	view   AdapterView
	table  *catalog.Table
	rt     *rowenc.RowType
	newGen GeneratorFunc
	gen    Generator
}

func (c *generatorCursor) Open(ctx context.Context) error {
	if err := c.StartOpen(); err != nil {
		return err
	}
	gen, err := c.newGen(ctx, c.view, c.table)
	if err != nil {
		c.Finish()
		return err
	}
	c.gen = gen
	return nil
}

func (c *generatorCursor) Next(ctx context.Context) ([]*rowenc.Row, bool, error) {
	if err := c.CheckNext(); err != nil {
		return nil, false, err
	}
	batch, more, err := c.gen.Next(ctx)
	if err != nil {
		c.Close(ctx)
		return nil, false, err
	}
	rows := make([]*rowenc.Row, 0, len(batch))
	for _, vals := range batch {
		row, err := c.makeRow(vals)
		if err != nil {
			c.Close(ctx)
			return nil, false, err
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 {
		c.Advance()
	}
	if !more {
		log.VEventf(ctx, 2, "virtual table %s exhausted", c.table.Name)
		c.Close(ctx)
	}
	return rows, more, nil
}

func (c *generatorCursor) makeRow(vals tree.Datums) (*rowenc.Row, error) {
	if len(vals) != len(c.table.Columns) {
		return nil, errors.AssertionFailedf("virtual table %q produced %d values, expected %d",
			c.table.Name, len(vals), len(c.table.Columns))
	}
	for i, col := range c.table.Columns {
		if vals[i] == tree.DNull {
			if !col.Nullable {
				return nil, sqlerrors.NewNonNullViolationError(col.Name)
			}
			continue
		}
		if !col.Type.Equivalent(vals[i].ResolvedType()) {
			return nil, sqlerrors.NewDatatypeMismatchError(col.Name, vals[i].ResolvedType(), col.Type)
		}
	}
	h, err := c.table.MakeHKey(c.table.PrimaryKeyValues(vals))
	if err != nil {
		return nil, err
	}
	hkey, err := h.Encode(nil)
	if err != nil {
		return nil, err
	}
	return rowenc.NewRow(c.rt, hkey, vals), nil
}

func (c *generatorCursor) Close(context.Context) {
	if c.Finish() {
		c.gen = nil
	}
}

// SliceGenerator returns a generator producing rows in batches of at most
// batchSize.
func SliceGenerator(rows []tree.Datums, batchSize int) Generator {
	if batchSize <= 0 {
		batchSize = len(rows)
	}
	return &sliceGenerator{rows: rows, batchSize: batchSize}
}

type sliceGenerator struct {
	rows      []tree.Datums
	batchSize int
}

func (g *sliceGenerator) Next(context.Context) ([]tree.Datums, bool, error) {
	n := g.batchSize
	if n > len(g.rows) {
		n = len(g.rows)
	}
	batch := g.rows[:n]
	g.rows = g.rows[n:]
	return batch, len(g.rows) > 0, nil
}

// GeneratorFromFunc adapts a function to the Generator interface.
type GeneratorFromFunc func(ctx context.Context) ([]tree.Datums, bool, error)

// Next is part of the Generator interface.
func (f GeneratorFromFunc) Next(ctx context.Context) ([]tree.Datums, bool, error) {
	return f(ctx)
}
