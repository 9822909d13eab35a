// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package vtable_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/vtable"
	"github.com/cockroachdb/groupsql/pkg/testutils/grouptest"
	"github.com/stretchr/testify/require"
)

type schemaView struct{ s *catalog.Schema }

func (v schemaView) Schema() *catalog.Schema { return v.s }

func catalogSchema(t *testing.T) (*catalog.Schema, *vtable.Registry) {
	b := catalog.NewBuilder(grouptest.Schema(t))
	require.NoError(t, vtable.InstallCatalog(b))
	s, err := b.Build()
	require.NoError(t, err)
	r := vtable.NewRegistry()
	require.NoError(t, vtable.RegisterCatalog(r, s))
	return s, r
}

// drain reads every batch of c, counting the empty batches that asked for a
// flush.
func drain(t *testing.T, c vtable.VirtualGroupCursor) (rows []*rowenc.Row, flushes int) {
	ctx := context.Background()
	require.NoError(t, c.Open(ctx))
	defer c.Close(ctx)
	for {
		batch, more, err := c.Next(ctx)
		require.NoError(t, err)
		if len(batch) == 0 && more {
			flushes++
		}
		rows = append(rows, batch...)
		if !more {
			return rows, flushes
		}
	}
}

func TestCatalogViews(t *testing.T) {
	s, r := catalogSchema(t)
	require.Equal(t, []string{
		"groupsql_catalog.columns",
		"groupsql_catalog.groups",
		"groupsql_catalog.indexes",
		"groupsql_catalog.tables",
	}, r.Names())

	scan := func(name string) []string {
		f, ok := r.Lookup(name)
		require.True(t, ok)
		g, err := s.GroupByName(name)
		require.NoError(t, err)
		c, err := f.GroupScan(schemaView{s}, g)
		require.NoError(t, err)
		rows, _ := drain(t, c)
		res := make([]string, len(rows))
		for i, row := range rows {
			res[i] = row.String()
		}
		return res
	}

	groups := scan("groupsql_catalog.groups")
	require.Len(t, groups, 5)
	require.Equal(t, "groupsql_catalog.groups /1/1 (1, 'customer', 4, 2, 'default')", groups[0])
	require.Equal(t, "groupsql_catalog.groups /1/5 (5, 'groupsql_catalog.tables', 1, 0, 'virtual')", groups[1])

	tables := scan("groupsql_catalog.tables")
	require.Len(t, tables, 8)
	require.Equal(t, "groupsql_catalog.tables /1/3 (3, 'item', 'customer', 'orders', 3, 2, 'default')", tables[2])

	columns := scan("groupsql_catalog.columns")
	require.Contains(t, columns,
		"groupsql_catalog.columns /1/2/3 (2, 3, 'odate', 'TIMESTAMP', 1114, 'TIMESTAMP', true, false)")
	require.Contains(t, columns,
		"groupsql_catalog.columns /1/2/2 (2, 2, 'cid', 'INT8', 20, 'INT8', true, true)")

	indexes := scan("groupsql_catalog.indexes")
	require.Contains(t, indexes,
		"groupsql_catalog.indexes /1/3/2 (3, 2, 'item_sku_qty', false, true, 'sku ASC, qty ASC')")
	require.Contains(t, indexes,
		"groupsql_catalog.indexes /1/2/2 (2, 2, 'orders_date', false, false, 'odate DESC')")
}

func TestRegistry(t *testing.T) {
	s, r := catalogSchema(t)
	tbl := s.MustTableByName("groupsql_catalog.tables")
	f, ok := r.Lookup(tbl.Name)
	require.True(t, ok)

	err := r.Register(tbl, f)
	require.Equal(t, pgcode.DuplicateRelation, pgerror.GetPGCode(err))
	require.Error(t, r.Register(s.MustTableByName("customer"), f))

	// A cursor created before Unregister keeps working.
	c, err := f.GroupScan(schemaView{s}, tbl.Group())
	require.NoError(t, err)
	require.True(t, r.Unregister(tbl.Name))
	require.False(t, r.Unregister(tbl.Name))
	_, ok = r.Lookup(tbl.Name)
	require.False(t, ok)
	rows, _ := drain(t, c)
	require.Len(t, rows, 8)

	require.NoError(t, r.Register(tbl, f))
}

func TestGeneratorFlushAndReopen(t *testing.T) {
	ctx := context.Background()
	b := catalog.NewBuilder(nil)
	require.NoError(t, b.CreateTable(catalog.TableDef{
		Name:       "ticks",
		Virtual:    true,
		Columns:    []catalog.ColumnDef{{Name: "n", Type: "int"}},
		PrimaryKey: []string{"n"},
	}))
	s, err := b.Build()
	require.NoError(t, err)
	tbl := s.MustTableByName("ticks")

	// The generator alternates between a row and an empty batch.
	f := vtable.NewGeneratorFactory("ticks", 3,
		func(context.Context, vtable.AdapterView, *catalog.Table) (vtable.Generator, error) {
			step := 0
			return vtable.GeneratorFromFunc(func(context.Context) ([]tree.Datums, bool, error) {
				step++
				if step%2 == 0 {
					return nil, true, nil
				}
				return []tree.Datums{grouptest.Row(step)}, step < 5, nil
			}), nil
		})
	require.Equal(t, int64(3), f.RowCountEstimate())

	c, err := f.GroupScan(schemaView{s}, tbl.Group())
	require.NoError(t, err)
	rows, flushes := drain(t, c)
	require.Len(t, rows, 3)
	require.Equal(t, 2, flushes)

	// Reopening starts a new generator.
	rows, _ = drain(t, c)
	require.Len(t, rows, 3)
	require.Equal(t, "ticks /1/5 (5)", rows[2].String())

	// Exhausted cursors reject Next.
	_, _, err = c.Next(ctx)
	require.True(t, errors.Is(err, execinfra.ErrCursorNotOpen))
}

func TestGeneratorRowValidation(t *testing.T) {
	s, _ := catalogSchema(t)
	tbl := s.MustTableByName("groupsql_catalog.groups")
	bad := func(row tree.Datums) error {
		f := vtable.NewGeneratorFactory(tbl.Name, 1,
			func(context.Context, vtable.AdapterView, *catalog.Table) (vtable.Generator, error) {
				return vtable.SliceGenerator([]tree.Datums{row}, 0), nil
			})
		c, err := f.GroupScan(schemaView{s}, tbl.Group())
		require.NoError(t, err)
		ctx := context.Background()
		require.NoError(t, c.Open(ctx))
		defer c.Close(ctx)
		_, _, err = c.Next(ctx)
		return err
	}
	err := bad(grouptest.Row(1, "x", 1, 0, nil))
	require.Equal(t, pgcode.NotNullViolation, pgerror.GetPGCode(err))
	err = bad(grouptest.Row(1, 2, 1, 0, "default"))
	require.Equal(t, pgcode.DatatypeMismatch, pgerror.GetPGCode(err))
	err = bad(grouptest.Row(1))
	require.True(t, errors.IsAssertionFailure(err))
}
