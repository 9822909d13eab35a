// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package storeadapter_test

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/kv"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/listener"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/sessiondata"
	"github.com/cockroachdb/groupsql/pkg/sql/storeadapter"
	"github.com/cockroachdb/groupsql/pkg/sql/vtable"
	"github.com/cockroachdb/groupsql/pkg/testutils/grouptest"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	s   *catalog.Schema
	txn *kv.Txn
	a   *storeadapter.Adapter
}

func newTestEnv(t *testing.T) *testEnv {
	s := grouptest.Schema(t)
	db := grouptest.NewDB(t)
	txn := db.NewTxn(context.Background())
	t.Cleanup(func() { txn.Rollback(context.Background()) })
	return &testEnv{
		s:   s,
		txn: txn,
		a:   storeadapter.New(storeadapter.Config{Schema: s, Txn: txn}),
	}
}

func (e *testEnv) table(name string) *catalog.Table { return e.s.MustTableByName(name) }

func (e *testEnv) insert(t *testing.T, table string, vals ...interface{}) {
	res, err := e.a.WriteRow(context.Background(), e.table(table), grouptest.Row(vals...))
	require.NoError(t, err)
	require.Equal(t, storeadapter.Modified, res)
}

func (e *testEnv) groupScan(t *testing.T) []string {
	c, err := e.a.NewGroupCursor(rowenc.NewTableRowType(e.table("customer")), nil /* flush */)
	require.NoError(t, err)
	return rowStrings(t, c)
}

func (e *testEnv) indexScan(
	t *testing.T, table, index string, r storeadapter.IndexKeyRange, o storeadapter.Ordering,
) []string {
	tbl := e.table(table)
	idx, ok := tbl.FindIndexByName(index)
	require.True(t, ok)
	c, err := e.a.NewIndexCursor(rowenc.NewIndexRowType(tbl, idx), r, o)
	require.NoError(t, err)
	return rowStrings(t, c)
}

func (e *testEnv) lookup(t *testing.T, table string, pk ...interface{}) string {
	row, err := e.a.LookupByPrimaryKey(context.Background(), e.table(table), grouptest.Row(pk...))
	require.NoError(t, err)
	if row == nil {
		return ""
	}
	return row.String()
}

func rowStrings(t *testing.T, c execinfra.Cursor) []string {
	rows, err := execinfra.Drain(context.Background(), c)
	require.NoError(t, err)
	res := make([]string, len(rows))
	for i, row := range rows {
		res[i] = row.String()
	}
	return res
}

type fixtureRow struct {
	table string
	vals  []interface{}
}

var fixtureRows = []fixtureRow{
	{"customer", []interface{}{1, "alice"}},
	{"customer", []interface{}{2, "bob"}},
	{"orders", []interface{}{10, 1, nil}},
	{"orders", []interface{}{11, 1, nil}},
	{"orders", []interface{}{20, 2, nil}},
	{"item", []interface{}{100, 10, "a", 1}},
	{"item", []interface{}{101, 10, "b", 1}},
	{"item", []interface{}{200, 20, "a", 2}},
	{"address", []interface{}{1000, 1, "paris"}},
}

var fixtureScan = []string{
	"customer /1/1 (1, 'alice')",
	"orders /1/1/2/10 (10, 1, NULL)",
	"item /1/1/2/10/3/100 (100, 10, 'a', 1)",
	"item /1/1/2/10/3/101 (101, 10, 'b', 1)",
	"orders /1/1/2/11 (11, 1, NULL)",
	"address /1/1/4/1000 (1000, 1, 'paris')",
	"customer /1/2 (2, 'bob')",
	"orders /1/2/2/20 (20, 2, NULL)",
	"item /1/2/2/20/3/200 (200, 20, 'a', 2)",
}

func TestGroupScanOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	for i := 0; i < 20; i++ {
		e := newTestEnv(t)
		perm := rng.Perm(len(fixtureRows))
		for _, j := range perm {
			e.insert(t, fixtureRows[j].table, fixtureRows[j].vals...)
		}
		// Whatever the insertion order, children end up below their parents
		// and the group reads back in pre-order.
		require.Equal(t, fixtureScan, e.groupScan(t), "insertion order %v", perm)

		c, err := e.a.NewGroupCursor(rowenc.NewTableRowType(e.table("customer")), nil /* flush */)
		require.NoError(t, err)
		rows, err := execinfra.Drain(context.Background(), c)
		require.NoError(t, err)
		for k := 1; k < len(rows); k++ {
			require.Equal(t, -1, bytes.Compare(rows[k-1].HKey, rows[k].HKey))
		}
		require.True(t, rows[2].IsDescendantOf(rows[1]))
		require.True(t, rows[2].IsDescendantOf(rows[0]))
		require.False(t, rows[4].IsDescendantOf(rows[1]))
	}
}

func TestGroupCursorLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.insert(t, "customer", 1, "alice")

	_, err := e.a.NewGroupCursor(rowenc.NewTableRowType(e.table("orders")), nil /* flush */)
	require.True(t, errors.IsAssertionFailure(err))

	c, err := e.a.NewGroupCursor(rowenc.NewTableRowType(e.table("customer")), nil /* flush */)
	require.NoError(t, err)
	require.Equal(t, execinfra.StateClosed, c.State())
	_, err = c.Next(ctx)
	require.True(t, errors.Is(err, execinfra.ErrCursorNotOpen))

	require.NoError(t, c.Open(ctx))
	require.Equal(t, execinfra.StateIdle, c.State())
	row, err := c.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, execinfra.StateActive, c.State())
	row, err = c.Next(ctx)
	require.NoError(t, err)
	require.Nil(t, row)
	require.Equal(t, execinfra.StateClosed, c.State())
	_, err = c.Next(ctx)
	require.True(t, errors.Is(err, execinfra.ErrCursorNotOpen))
	c.Close(ctx)
	c.Close(ctx)

	// Writes made after a cursor opens are not visible to it.
	require.NoError(t, c.Open(ctx))
	e.insert(t, "customer", 2, "bob")
	rows := 0
	for {
		row, err := c.Next(ctx)
		require.NoError(t, err)
		if row == nil {
			break
		}
		rows++
	}
	require.Equal(t, 1, rows)
	require.Len(t, e.groupScan(t), 2)
}

func TestIndexScan(t *testing.T) {
	e := newTestEnv(t)
	e.insert(t, "customer", 1, "alice")
	e.insert(t, "customer", 2, "bob")
	e.insert(t, "customer", 3, "carol")
	e.insert(t, "customer", 4, nil)

	full := e.indexScan(t, "customer", "customer_name", storeadapter.FullRange, storeadapter.Forward)
	require.Equal(t, []string{
		"customer@customer_name /1/4 (NULL)",
		"customer@customer_name /1/1 ('alice')",
		"customer@customer_name /1/2 ('bob')",
		"customer@customer_name /1/3 ('carol')",
	}, full)

	rev := e.indexScan(t, "customer", "customer_name", storeadapter.FullRange, storeadapter.Reverse)
	require.Equal(t, "customer@customer_name /1/3 ('carol')", rev[0])
	require.Len(t, rev, 4)

	bound := func(inclusive bool, v string) *storeadapter.IndexBound {
		return &storeadapter.IndexBound{Values: grouptest.Row(v), Inclusive: inclusive}
	}
	require.Equal(t, []string{
		"customer@customer_name /1/2 ('bob')",
		"customer@customer_name /1/3 ('carol')",
	}, e.indexScan(t, "customer", "customer_name",
		storeadapter.IndexKeyRange{Start: bound(true, "bob")}, storeadapter.Forward))
	require.Equal(t, []string{
		"customer@customer_name /1/3 ('carol')",
	}, e.indexScan(t, "customer", "customer_name",
		storeadapter.IndexKeyRange{Start: bound(false, "bob")}, storeadapter.Forward))
	require.Equal(t, []string{
		"customer@customer_name /1/2 ('bob')",
		"customer@customer_name /1/1 ('alice')",
	}, e.indexScan(t, "customer", "customer_name",
		storeadapter.IndexKeyRange{Start: bound(true, "alice"), End: bound(true, "bob")}, storeadapter.Reverse))
	require.Empty(t, e.indexScan(t, "customer", "customer_name",
		storeadapter.IndexKeyRange{Start: bound(true, "alice"), End: bound(false, "alice")}, storeadapter.Forward))

	// The primary index maps primary keys to hkeys.
	e.insert(t, "orders", 10, 1, nil)
	require.Equal(t, []string{"orders@orders_pkey /1/1/2/10 (10)"},
		e.indexScan(t, "orders", "orders_pkey", storeadapter.FullRange, storeadapter.Forward))
}

func TestUniqueViolation(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.insert(t, "customer", 1, "alice")
	e.insert(t, "orders", 10, 1, nil)
	e.insert(t, "item", 100, 10, "a", 1)
	before := e.groupScan(t)

	_, err := e.a.WriteRow(ctx, e.table("item"), grouptest.Row(101, 10, "a", 1))
	require.True(t, pgerror.HasCode(err, pgcode.UniqueViolation))
	require.EqualError(t, err,
		`duplicate key value (sku,qty)=('a',1) violates unique constraint "item_sku_qty"`)

	_, err = e.a.WriteRow(ctx, e.table("customer"), grouptest.Row(1, "other"))
	require.EqualError(t, err,
		`duplicate key value (cid)=(1) violates unique constraint "customer_pkey"`)

	// Failed inserts leave nothing behind, including entries of indexes that
	// were checked before the violation was found.
	require.Equal(t, before, e.groupScan(t))
	require.Len(t, e.indexScan(t, "customer", "customer_name", storeadapter.FullRange, storeadapter.Forward), 1)

	// Non-unique indexes accept duplicates.
	e.insert(t, "customer", 2, "alice")
	require.Len(t, e.indexScan(t, "customer", "customer_name", storeadapter.FullRange, storeadapter.Forward), 2)
}

func TestRowValidation(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	_, err := e.a.WriteRow(ctx, e.table("customer"), grouptest.Row(nil, "x"))
	require.Equal(t, pgcode.NotNullViolation, pgerror.GetPGCode(err))
	_, err = e.a.WriteRow(ctx, e.table("customer"), grouptest.Row("x", "y"))
	require.Equal(t, pgcode.DatatypeMismatch, pgerror.GetPGCode(err))
	_, err = e.a.WriteRow(ctx, e.table("customer"), grouptest.Row(1))
	require.True(t, errors.IsAssertionFailure(err))
	require.Empty(t, e.groupScan(t))
}

func TestOrphans(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	// An item whose order does not exist yet is stored in the orphan space
	// of its order.
	e.insert(t, "item", 100, 10, "a", 1)
	require.Equal(t, "item /1/NULL/2/10/3/100 (100, 10, 'a', 1)", e.lookup(t, "item", 100))

	// Inserting the order adopts it.
	e.insert(t, "orders", 10, 1, nil)
	require.Equal(t, "item /1/1/2/10/3/100 (100, 10, 'a', 1)", e.lookup(t, "item", 100))
	require.Equal(t, []string{"item@item_sku_qty /1/1/2/10/3/100 ('a', 1)"},
		e.indexScan(t, "item", "item_sku_qty", storeadapter.FullRange, storeadapter.Forward))

	// Deleting the order orphans the item again, index entries included.
	res, err := e.a.DeleteRow(ctx, e.table("orders"), grouptest.Row(10, 1, nil))
	require.NoError(t, err)
	require.Equal(t, storeadapter.Modified, res)
	require.Equal(t, []string{"item /1/NULL/2/10/3/100 (100, 10, 'a', 1)"}, e.groupScan(t))
	require.Equal(t, []string{"item@item_sku_qty /1/NULL/2/10/3/100 ('a', 1)"},
		e.indexScan(t, "item", "item_sku_qty", storeadapter.FullRange, storeadapter.Forward))

	// Rows with a NULL grouping value are orphans that nothing adopts.
	e.insert(t, "orders", 30, nil, nil)
	require.Equal(t, "orders /1/NULL/2/30 (30, NULL, NULL)", e.lookup(t, "orders", 30))
	e.insert(t, "item", 300, 30, "c", 1)
	require.Equal(t, "item /1/NULL/2/30/3/300 (300, 30, 'c', 1)", e.lookup(t, "item", 300))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	for _, r := range fixtureRows {
		e.insert(t, r.table, r.vals...)
	}
	update := func(table string, oldRow, newRow tree.Datums) (storeadapter.MutationOutcome, error) {
		return e.a.UpdateRow(ctx, e.table(table), oldRow, newRow)
	}

	res, err := update("customer", grouptest.Row(1, "alice"), grouptest.Row(1, "alice"))
	require.NoError(t, err)
	require.Equal(t, storeadapter.Unchanged, res)

	res, err = update("customer", grouptest.Row(9, "x"), grouptest.Row(9, "y"))
	require.NoError(t, err)
	require.Equal(t, storeadapter.NotFound, res)

	res, err = update("customer", grouptest.Row(1, "alice"), grouptest.Row(1, "alicia"))
	require.NoError(t, err)
	require.Equal(t, storeadapter.Modified, res)
	require.Equal(t, "customer /1/1 (1, 'alicia')", e.lookup(t, "customer", 1))
	require.Equal(t, []string{
		"customer@customer_name /1/1 ('alicia')",
		"customer@customer_name /1/2 ('bob')",
	}, e.indexScan(t, "customer", "customer_name", storeadapter.FullRange, storeadapter.Forward))

	// Moving an order to another customer moves its items along.
	res, err = update("orders", grouptest.Row(10, 1, nil), grouptest.Row(10, 2, nil))
	require.NoError(t, err)
	require.Equal(t, storeadapter.Modified, res)
	require.Equal(t, "orders /1/2/2/10 (10, 2, NULL)", e.lookup(t, "orders", 10))
	require.Equal(t, "item /1/2/2/10/3/101 (101, 10, 'b', 1)", e.lookup(t, "item", 101))

	// The primary key of a row with children cannot change.
	_, err = update("orders", grouptest.Row(10, 2, nil), grouptest.Row(12, 2, nil))
	require.Equal(t, pgcode.ForeignKeyViolation, pgerror.GetPGCode(err))

	// A leaf row can change its primary key.
	res, err = update("item", grouptest.Row(101, 10, "b", 1), grouptest.Row(102, 10, "b", 1))
	require.NoError(t, err)
	require.Equal(t, storeadapter.Modified, res)
	require.Equal(t, "", e.lookup(t, "item", 101))
	require.Equal(t, "item /1/2/2/10/3/102 (102, 10, 'b', 1)", e.lookup(t, "item", 102))

	// A changed unique key is checked.
	_, err = update("item", grouptest.Row(102, 10, "b", 1), grouptest.Row(102, 10, "a", 1))
	require.True(t, sqlerrorsIsUnique(err))

	// Changing an order's primary key to one that orphans wait for adopts
	// them.
	e.insert(t, "item", 500, 50, "z", 1)
	res, err = update("orders", grouptest.Row(11, 1, nil), grouptest.Row(50, 1, nil))
	require.NoError(t, err)
	require.Equal(t, storeadapter.Modified, res)
	require.Equal(t, "item /1/1/2/50/3/500 (500, 50, 'z', 1)", e.lookup(t, "item", 500))
}

func sqlerrorsIsUnique(err error) bool {
	return pgerror.HasCode(err, pgcode.UniqueViolation)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.insert(t, "customer", 1, "alice")
	e.insert(t, "address", 1000, 1, "paris")

	res, err := e.a.DeleteRow(ctx, e.table("customer"), grouptest.Row(2, nil))
	require.NoError(t, err)
	require.Equal(t, storeadapter.NotFound, res)

	res, err = e.a.DeleteRow(ctx, e.table("customer"), grouptest.Row(1, "alice"))
	require.NoError(t, err)
	require.Equal(t, storeadapter.Modified, res)
	require.Empty(t, e.indexScan(t, "customer", "customer_name", storeadapter.FullRange, storeadapter.Forward))
	require.Empty(t, e.indexScan(t, "customer", "customer_pkey", storeadapter.FullRange, storeadapter.Forward))
	// Children of a deleted root row keep their place.
	require.Equal(t, []string{"address /1/1/4/1000 (1000, 1, 'paris')"}, e.groupScan(t))

	res, err = e.a.DeleteRow(ctx, e.table("customer"), grouptest.Row(1, "alice"))
	require.NoError(t, err)
	require.Equal(t, storeadapter.NotFound, res)
}

func TestTruncateAndBackfill(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	for _, r := range fixtureRows {
		e.insert(t, r.table, r.vals...)
	}
	items := e.table("item")
	idx, _ := items.FindIndexByName("item_sku_qty")

	n, err := e.a.ClearIndex(ctx, items, idx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Empty(t, e.indexScan(t, "item", "item_sku_qty", storeadapter.FullRange, storeadapter.Forward))

	n, err = e.a.BackfillIndex(ctx, items, idx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Len(t, e.indexScan(t, "item", "item_sku_qty", storeadapter.FullRange, storeadapter.Forward), 3)

	n, err = e.a.TruncateTable(ctx, e.table("orders"))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []string{
		"item /1/NULL/2/10/3/100 (100, 10, 'a', 1)",
		"item /1/NULL/2/10/3/101 (101, 10, 'b', 1)",
		"item /1/NULL/2/20/3/200 (200, 20, 'a', 2)",
		"customer /1/1 (1, 'alice')",
		"address /1/1/4/1000 (1000, 1, 'paris')",
		"customer /1/2 (2, 'bob')",
	}, e.groupScan(t))
	require.Empty(t, e.indexScan(t, "orders", "orders_date", storeadapter.FullRange, storeadapter.Forward))
}

func TestUndefinedTable(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	b := catalog.NewBuilder(e.s)
	require.NoError(t, b.CreateTable(catalog.TableDef{
		Name:       "extra",
		Columns:    []catalog.ColumnDef{{Name: "k", Type: "int"}},
		PrimaryKey: []string{"k"},
	}))
	newer, err := b.Build()
	require.NoError(t, err)

	// The adapter resolves tables against its own snapshot.
	_, err = e.a.WriteRow(ctx, newer.MustTableByName("extra"), grouptest.Row(1))
	require.Equal(t, pgcode.UndefinedTable, pgerror.GetPGCode(err))
	_, err = e.a.NewGroupCursor(rowenc.NewTableRowType(newer.MustTableByName("extra")), nil /* flush */)
	require.Equal(t, pgcode.UndefinedTable, pgerror.GetPGCode(err))
}

type recordingListener struct {
	listener.NoopRowListener
	events []string
}

func (l *recordingListener) OnInsert(
	_ context.Context, _ *sessiondata.SessionData, t *catalog.Table, row tree.Datums,
) error {
	l.events = append(l.events, "insert "+t.Name+" "+row.String())
	return nil
}

func (l *recordingListener) OnUpdate(
	_ context.Context, _ *sessiondata.SessionData, t *catalog.Table, oldRow, newRow tree.Datums,
) error {
	l.events = append(l.events, "update "+t.Name+" "+oldRow.String()+" -> "+newRow.String())
	return nil
}

func (l *recordingListener) OnDelete(
	_ context.Context, _ *sessiondata.SessionData, t *catalog.Table, row tree.Datums,
) error {
	l.events = append(l.events, "delete "+t.Name+" "+row.String())
	return nil
}

func TestRowListeners(t *testing.T) {
	ctx := context.Background()
	s := grouptest.Schema(t)
	txn := grouptest.NewDB(t).NewTxn(ctx)
	defer txn.Rollback(ctx)
	reg := listener.NewRegistry()
	l := &recordingListener{}
	reg.RegisterRowListener(l)
	a := storeadapter.New(storeadapter.Config{
		Schema: s, Txn: txn, Listeners: reg, Session: sessiondata.New("root", "test"),
	})
	customer := s.MustTableByName("customer")

	_, err := a.WriteRow(ctx, customer, grouptest.Row(1, "alice"))
	require.NoError(t, err)
	_, err = a.UpdateRow(ctx, customer, grouptest.Row(1, "alice"), grouptest.Row(1, "alice"))
	require.NoError(t, err)
	_, err = a.UpdateRow(ctx, customer, grouptest.Row(1, "alice"), grouptest.Row(1, "bob"))
	require.NoError(t, err)
	_, err = a.DeleteRow(ctx, customer, grouptest.Row(2, nil))
	require.NoError(t, err)
	_, err = a.DeleteRow(ctx, customer, grouptest.Row(1, "bob"))
	require.NoError(t, err)
	_, err = a.WriteRow(ctx, customer, grouptest.Row(1, nil, nil))
	require.Error(t, err)

	// Only writes that changed something are reported.
	require.Equal(t, []string{
		"insert customer (1, 'alice')",
		"update customer (1, 'alice') -> (1, 'bob')",
		"delete customer (1, 'bob')",
	}, l.events)
}

func virtualSchema(t *testing.T) (*catalog.Schema, *catalog.Table) {
	b := catalog.NewBuilder(grouptest.Schema(t))
	require.NoError(t, b.CreateTable(catalog.TableDef{
		Name:       "ticks",
		Virtual:    true,
		Columns:    []catalog.ColumnDef{{Name: "n", Type: "int"}},
		PrimaryKey: []string{"n"},
	}))
	s, err := b.Build()
	require.NoError(t, err)
	return s, s.MustTableByName("ticks")
}

// ticksFactory produces the rows 1 to 3 with an empty batch between rows.
func ticksFactory() vtable.VirtualScanFactory {
	return vtable.NewGeneratorFactory("ticks", 3,
		func(context.Context, vtable.AdapterView, *catalog.Table) (vtable.Generator, error) {
			step := 0
			return vtable.GeneratorFromFunc(func(context.Context) ([]tree.Datums, bool, error) {
				step++
				if step%2 == 0 {
					return nil, true, nil
				}
				return []tree.Datums{grouptest.Row(step/2 + 1)}, step < 5, nil
			}), nil
		})
}

func TestVirtualTable(t *testing.T) {
	ctx := context.Background()
	s, ticks := virtualSchema(t)
	reg := vtable.NewRegistry()
	require.NoError(t, reg.Register(ticks, ticksFactory()))
	a := storeadapter.New(storeadapter.Config{Schema: s, Virtual: reg})
	flushes := 0
	countFlushes := func(context.Context) error {
		flushes++
		return nil
	}

	c, err := a.NewGroupCursor(rowenc.NewTableRowType(ticks), countFlushes)
	require.NoError(t, err)
	require.Equal(t, []string{"ticks /1/1 (1)", "ticks /1/2 (2)", "ticks /1/3 (3)"}, rowStrings(t, c))
	require.Equal(t, 2, flushes)
	require.Equal(t, execinfra.StateClosed, c.State())

	row, err := a.LookupByPrimaryKey(ctx, ticks, grouptest.Row(2))
	require.NoError(t, err)
	require.Equal(t, "ticks /1/2 (2)", row.String())
	row, err = a.LookupRow(ctx, ticks, row.HKey)
	require.NoError(t, err)
	require.Equal(t, "ticks /1/2 (2)", row.String())
	row, err = a.LookupByPrimaryKey(ctx, ticks, grouptest.Row(7))
	require.NoError(t, err)
	require.Nil(t, row)

	_, err = a.WriteRow(ctx, ticks, grouptest.Row(4))
	require.Equal(t, pgcode.WrongObjectType, pgerror.GetPGCode(err))
	_, err = a.DeleteRow(ctx, ticks, grouptest.Row(1))
	require.Equal(t, pgcode.WrongObjectType, pgerror.GetPGCode(err))
	_, err = a.NewIndexCursor(rowenc.NewIndexRowType(ticks, ticks.PrimaryIndex()),
		storeadapter.FullRange, storeadapter.Forward)
	require.Equal(t, pgcode.FeatureNotSupported, pgerror.GetPGCode(err))

	// A flush that fails ends the scan.
	c, err = a.NewGroupCursor(rowenc.NewTableRowType(ticks),
		func(context.Context) error { return errors.New("boom") })
	require.NoError(t, err)
	_, err = execinfra.Drain(ctx, c)
	require.EqualError(t, err, "boom")
	require.Equal(t, execinfra.StateClosed, c.State())

	require.True(t, reg.Unregister("ticks"))
	_, err = a.NewGroupCursor(rowenc.NewTableRowType(ticks), nil /* flush */)
	require.Equal(t, pgcode.UndefinedTable, pgerror.GetPGCode(err))

	// Stored tables cannot be read without a transaction.
	_, err = a.NewGroupCursor(rowenc.NewTableRowType(s.MustTableByName("customer")), nil /* flush */)
	require.True(t, errors.IsAssertionFailure(err))
}
