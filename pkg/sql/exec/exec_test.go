// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/exec"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/storeadapter"
	"github.com/cockroachdb/groupsql/pkg/sql/vtable"
	"github.com/cockroachdb/groupsql/pkg/testutils/grouptest"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	s       *catalog.Schema
	a       *storeadapter.Adapter
	metrics *exec.Metrics
}

func newTestEnv(t *testing.T, s *catalog.Schema) *testEnv {
	db := grouptest.NewDB(t)
	txn := db.NewTxn(context.Background())
	t.Cleanup(func() { txn.Rollback(context.Background()) })
	return &testEnv{
		s:       s,
		a:       storeadapter.New(storeadapter.Config{Schema: s, Txn: txn}),
		metrics: exec.MakeMetrics(prometheus.NewRegistry()),
	}
}

func (e *testEnv) table(name string) *catalog.Table { return e.s.MustTableByName(name) }

func (e *testEnv) rowType(name string) *rowenc.RowType {
	return rowenc.NewTableRowType(e.table(name))
}

func (e *testEnv) indexType(t *testing.T, table, index string) *rowenc.RowType {
	tbl := e.table(table)
	idx, ok := tbl.FindIndexByName(index)
	require.True(t, ok)
	return rowenc.NewIndexRowType(tbl, idx)
}

func (e *testEnv) qctx(bindings ...tree.Datum) *exec.QueryContext {
	return exec.NewQueryContext(e.a, exec.MakeBindings(bindings...), e.metrics)
}

func (e *testEnv) groupScan() *exec.GroupScan {
	return exec.NewGroupScan(e.table("customer").Group())
}

// values returns a Values operator producing rows for table.
func (e *testEnv) values(t *testing.T, table string, rows ...[]interface{}) *exec.Values {
	tbl := e.table(table)
	exprs := make([][]exec.Expr, len(rows))
	for i, r := range rows {
		exprs[i] = literals(r...)
	}
	v, err := exec.NewValues(rowenc.NewValuesRowType(tbl.ColumnNames(), tbl.ColumnTypes()), exprs)
	require.NoError(t, err)
	return v
}

func (e *testEnv) insert(t *testing.T, table string, rows ...[]interface{}) exec.UpdateResult {
	res, err := exec.NewInsert(e.values(t, table, rows...), e.table(table)).Run(context.Background(), e.qctx())
	require.NoError(t, err)
	return res
}

func (e *testEnv) collect(t *testing.T, op exec.RowOperator, bindings ...tree.Datum) []string {
	rows, err := exec.Collect(context.Background(), e.qctx(bindings...), op)
	require.NoError(t, err)
	return rowStrings(rows)
}

func literals(vals ...interface{}) []exec.Expr {
	datums := grouptest.Row(vals...)
	exprs := make([]exec.Expr, len(datums))
	for i, d := range datums {
		exprs[i] = &exec.Literal{Datum: d}
	}
	return exprs
}

func rowStrings(rows []*rowenc.Row) []string {
	res := make([]string, len(rows))
	for i, row := range rows {
		res[i] = row.String()
	}
	return res
}

func column(t *testing.T, rt *rowenc.RowType, name string) *exec.ColumnRef {
	c, err := exec.NewColumnRef(rt, name)
	require.NoError(t, err)
	return c
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func row(vals ...interface{}) []interface{} { return vals }

func loadFixture(t *testing.T, e *testEnv) {
	e.insert(t, "customer", row(1, "alice"), row(2, "bob"))
	e.insert(t, "orders", row(10, 1, nil), row(11, 1, nil), row(20, 2, nil))
	e.insert(t, "item", row(100, 10, "a", 1), row(101, 10, "b", 1), row(200, 20, "a", 2))
	e.insert(t, "address", row(1000, 1, "paris"))
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

func TestGroupScanPreOrder(t *testing.T) {
	type insertion struct {
		table string
		vals  []interface{}
	}
	insertions := []insertion{
		{"customer", row(1, "alice")},
		{"customer", row(2, "bob")},
		{"orders", row(10, 1, nil)},
		{"orders", row(11, 1, nil)},
		{"orders", row(20, 2, nil)},
		{"item", row(100, 10, "a", 1)},
		{"item", row(101, 10, "b", 1)},
		{"item", row(200, 20, "a", 2)},
		{"address", row(1000, 1, "paris")},
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		e := newTestEnv(t, grouptest.Schema(t))
		perm := rng.Perm(len(insertions))
		for _, j := range perm {
			res := e.insert(t, insertions[j].table, insertions[j].vals)
			require.Equal(t, exec.UpdateResult{RowsTouched: 1, RowsModified: 1}, res)
		}
		require.Equal(t, fixtureScan, e.collect(t, e.groupScan()), "insertion order %v", perm)
	}
}

func TestUpdateResultAccounting(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, grouptest.Schema(t))
	loadFixture(t, e)
	e.insert(t, "customer", row(3, "carol"))
	cust := e.table("customer")

	// Every row of the group is visited, only customers are updated and bob
	// already has the new name.
	upd, err := exec.NewUpdate(e.groupScan(), cust, []exec.Assignment{
		{Column: 1, Value: &exec.Literal{Datum: tree.NewDString("bob")}},
	})
	require.NoError(t, err)
	res, err := upd.Run(ctx, e.qctx())
	require.NoError(t, err)
	require.Equal(t, exec.UpdateResult{RowsTouched: 10, RowsModified: 2}, res)

	// Running it again changes nothing.
	res, err = upd.Run(ctx, e.qctx())
	require.NoError(t, err)
	require.Equal(t, exec.UpdateResult{RowsTouched: 10, RowsModified: 0}, res)

	// Assignments see the row before the update.
	custType := e.rowType("customer")
	upd, err = exec.NewUpdate(
		exec.NewSelect(e.groupScan(), custType, &exec.Comparison{
			Op: exec.EQ, Left: column(t, custType, "cid"), Right: &exec.Param{N: 1},
		}),
		cust,
		[]exec.Assignment{{Column: 1, Value: &exec.Param{N: 2}}},
	)
	require.NoError(t, err)
	res, err = upd.Run(ctx, e.qctx(tree.NewDInt(3), tree.NewDString("carla")))
	require.NoError(t, err)
	require.Equal(t, exec.UpdateResult{RowsTouched: 1, RowsModified: 1}, res)
	require.Equal(t, []string{
		"customer /1/1 (1, 'bob')",
		"customer /1/2 (2, 'bob')",
		"customer /1/3 (3, 'carla')",
	}, e.collect(t, exec.NewFilter(e.groupScan(), custType)))

	del := exec.NewDelete(e.groupScan(), e.table("item"))
	res, err = del.Run(ctx, e.qctx())
	require.NoError(t, err)
	require.Equal(t, exec.UpdateResult{RowsTouched: 10, RowsModified: 3}, res)
	require.Empty(t, e.collect(t, exec.NewFilter(e.groupScan(), e.rowType("item"))))

	// The fixture, carol, and the four statements above.
	require.Equal(t, 9+1+10+10+1+10, int(counterValue(t, e.metrics.RowsTouched)))
}

func TestDuplicateKey(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, grouptest.Schema(t))
	loadFixture(t, e)

	testCases := []struct {
		table string
		rows  [][]interface{}
		index string
	}{
		{"item", [][]interface{}{row(300, 20, "c", 1), row(301, 20, "b", 1)}, "item_sku_qty"},
		{"address", [][]interface{}{row(2000, 2, "paris")}, "address_city"},
		{"customer", [][]interface{}{row(2, "robert")}, "customer_pkey"},
	}
	for _, tc := range testCases {
		t.Run(tc.index, func(t *testing.T) {
			qctx := e.qctx()
			ins := exec.NewInsert(e.values(t, tc.table, tc.rows...), e.table(tc.table))
			res, err := ins.Run(ctx, qctx)
			require.Error(t, err)
			require.Equal(t, exec.UpdateResult{}, res)
			require.Equal(t, pgcode.UniqueViolation, pgerror.GetPGCode(err))
			require.Contains(t, err.Error(), `"`+tc.index+`"`)
			require.Zero(t, qctx.OpenCursors())
		})
	}
	require.Equal(t, 3, int(counterValue(t, e.metrics.DMLErrors.WithLabelValues("insert"))))
}

const deleteSchemaYAML = `
tables:
  - name: customer
    columns:
      - {name: id, type: int}
      - {name: name, type: string}
    primary_key: [id]
    indexes:
      - {name: customer_name, columns: [name]}
  - name: item
    parent: customer
    grouping_columns: [cid]
    columns:
      - {name: iid, type: int}
      - {name: cid, type: int, nullable: true}
    primary_key: [iid]
`

func TestDeleteCustomer(t *testing.T) {
	ctx := context.Background()
	s, err := catalog.LoadYAML(nil, []byte(deleteSchemaYAML))
	require.NoError(t, err)
	e := newTestEnv(t, s)
	e.insert(t, "customer", row(1, "xyz"), row(2, "abc"))
	e.insert(t, "item", row(100, 1))

	byName := e.indexType(t, "customer", "customer_name")
	bound := &exec.ScanBound{Values: []exec.Expr{&exec.Param{N: 1}}, Inclusive: true}
	scan, err := exec.NewIndexScan(byName, bound, bound, storeadapter.Forward)
	require.NoError(t, err)
	res, err := exec.NewDelete(scan, e.table("customer")).Run(ctx, e.qctx(tree.NewDString("abc")))
	require.NoError(t, err)
	require.Equal(t, exec.UpdateResult{RowsTouched: 1, RowsModified: 1}, res)

	require.Equal(t, []string{
		"customer /1/1 (1, 'xyz')",
		"item /1/1/2/100 (100, 1)",
	}, e.collect(t, exec.NewGroupScan(e.table("customer").Group())))
	full, err := exec.NewIndexScan(byName, nil, nil, storeadapter.Forward)
	require.NoError(t, err)
	require.Equal(t, []string{"customer@customer_name /1/1 ('xyz')"}, e.collect(t, full))
	require.Empty(t, e.collect(t, scan, tree.NewDString("abc")))

	// Deleting a missing row visits it without modifying anything.
	gone, err := exec.NewValues(e.rowType("customer"), [][]exec.Expr{literals(2, "abc")})
	require.NoError(t, err)
	res, err = exec.NewDelete(gone, e.table("customer")).Run(ctx, e.qctx())
	require.NoError(t, err)
	require.Equal(t, exec.UpdateResult{RowsTouched: 1, RowsModified: 0}, res)
}

func TestRebindablePlan(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, grouptest.Schema(t))
	loadFixture(t, e)
	custType := e.rowType("customer")
	plan := exec.NewFilter(
		exec.NewSelect(e.groupScan(), custType, &exec.Comparison{
			Op: exec.EQ, Left: column(t, custType, "cid"), Right: &exec.Param{N: 1},
		}),
		custType,
	)

	c1, err := plan.Cursor(e.qctx(tree.NewDInt(1)))
	require.NoError(t, err)
	c2, err := plan.Cursor(e.qctx(tree.NewDInt(2)))
	require.NoError(t, err)
	require.NoError(t, c1.Open(ctx))
	require.NoError(t, c2.Open(ctx))

	next := func(c execinfra.Cursor) string {
		row, err := c.Next(ctx)
		require.NoError(t, err)
		if row == nil {
			return ""
		}
		return row.String()
	}
	require.Equal(t, "customer /1/1 (1, 'alice')", next(c1))
	require.Equal(t, "customer /1/2 (2, 'bob')", next(c2))
	require.Equal(t, "", next(c1))
	require.Equal(t, execinfra.StateClosed, c1.State())
	require.Equal(t, execinfra.StateActive, c2.State())
	require.Equal(t, "", next(c2))

	// A closed cursor can be opened again.
	require.NoError(t, c1.Open(ctx))
	require.Equal(t, "customer /1/1 (1, 'alice')", next(c1))
	c1.Close(ctx)
	c1.Close(ctx)

	require.Equal(t, []string{"customer /1/2 (2, 'bob')"}, e.collect(t, plan, tree.NewDInt(2)))
	require.Empty(t, e.collect(t, plan, tree.NewDInt(3)))

	_, err = exec.Collect(ctx, e.qctx(), plan)
	require.Equal(t, pgcode.UndefinedParameter, pgerror.GetPGCode(err))
}

func TestAncestorLookup(t *testing.T) {
	e := newTestEnv(t, grouptest.Schema(t))
	loadFixture(t, e)
	skuType := e.indexType(t, "item", "item_sku_qty")
	bound := &exec.ScanBound{Values: literals("a"), Inclusive: true}
	scan, err := exec.NewIndexScan(skuType, bound, bound, storeadapter.Forward)
	require.NoError(t, err)

	lookup, err := exec.NewAncestorLookup(
		scan, skuType, []*catalog.Table{e.table("orders"), e.table("customer")}, true /* keepInput */)
	require.NoError(t, err)
	require.Equal(t, []string{
		"customer /1/1 (1, 'alice')",
		"orders /1/1/2/10 (10, 1, NULL)",
		"item@item_sku_qty /1/1/2/10/3/100 ('a', 1)",
		"customer /1/2 (2, 'bob')",
		"orders /1/2/2/20 (20, 2, NULL)",
		"item@item_sku_qty /1/2/2/20/3/200 ('a', 2)",
	}, e.collect(t, lookup))

	// From an index, the indexed table itself can be looked up.
	lookup, err = exec.NewAncestorLookup(scan, skuType, []*catalog.Table{e.table("item")}, false /* keepInput */)
	require.NoError(t, err)
	require.Equal(t, []string{
		"item /1/1/2/10/3/100 (100, 10, 'a', 1)",
		"item /1/2/2/20/3/200 (200, 20, 'a', 2)",
	}, e.collect(t, lookup))

	// An index entry can be the source of a delete.
	res, err := exec.NewDelete(scan, e.table("item")).Run(context.Background(), e.qctx())
	require.NoError(t, err)
	require.Equal(t, exec.UpdateResult{RowsTouched: 2, RowsModified: 2}, res)

	_, err = exec.NewAncestorLookup(scan, skuType, []*catalog.Table{e.table("address")}, true)
	require.True(t, errors.IsAssertionFailure(err))
	_, err = exec.NewAncestorLookup(e.groupScan(), e.rowType("item"), []*catalog.Table{e.table("item")}, true)
	require.True(t, errors.IsAssertionFailure(err))
}

func TestFlatten(t *testing.T) {
	e := newTestEnv(t, grouptest.Schema(t))
	loadFixture(t, e)
	e.insert(t, "customer", row(3, "carol"))

	inner := []string{
		"flatten(customer, orders) /1/1/2/10 (1, 'alice', 10, 1, NULL)",
		"flatten(customer, orders) /1/1/2/11 (1, 'alice', 11, 1, NULL)",
		"flatten(customer, orders) /1/2/2/20 (2, 'bob', 20, 2, NULL)",
	}
	testCases := []struct {
		joinType exec.JoinType
		expected []string
	}{
		{exec.InnerJoin, inner},
		{exec.LeftJoin, append(inner[:3:3], "flatten(customer, orders) /1/3 (3, 'carol', NULL, NULL, NULL)")},
	}
	for _, tc := range testCases {
		t.Run(tc.joinType.String(), func(t *testing.T) {
			f, err := exec.NewFlatten(e.groupScan(), e.rowType("customer"), e.rowType("orders"), tc.joinType)
			require.NoError(t, err)
			require.Equal(t, tc.expected, e.collect(t, exec.NewFilter(f, f.FlattenedType())))

			// Rows of other types pass through in order.
			rows := e.collect(t, f)
			require.Equal(t, len(tc.expected)+4, len(rows))
			require.Equal(t, "item /1/1/2/10/3/100 (100, 10, 'a', 1)", rows[1])
		})
	}

	_, err := exec.NewFlatten(e.groupScan(), e.rowType("customer"), e.rowType("item"), exec.InnerJoin)
	require.True(t, errors.IsAssertionFailure(err))
}

func TestOpenOnOpenCursorKeepsPosition(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, grouptest.Schema(t))
	loadFixture(t, e)
	custType, ordType := e.rowType("customer"), e.rowType("orders")

	flatten, err := exec.NewFlatten(e.groupScan(), custType, ordType, exec.InnerJoin)
	require.NoError(t, err)
	skuType := e.indexType(t, "item", "item_sku_qty")
	skuScan, err := exec.NewIndexScan(skuType, nil, nil, storeadapter.Forward)
	require.NoError(t, err)
	lookup, err := exec.NewAncestorLookup(
		skuScan, skuType, []*catalog.Table{e.table("orders"), e.table("customer")}, true /* keepInput */)
	require.NoError(t, err)
	limit, err := exec.NewLimit(e.groupScan(), 4)
	require.NoError(t, err)

	testCases := map[string]exec.RowOperator{
		"flatten":         flatten,
		"ancestor lookup": lookup,
		"select": exec.NewSelect(e.groupScan(), ordType, &exec.Comparison{
			Op: exec.NE, Left: column(t, ordType, "oid"), Right: &exec.Literal{Datum: tree.NewDInt(10)},
		}),
		"limit": limit,
	}
	for name, op := range testCases {
		t.Run(name, func(t *testing.T) {
			expected := e.collect(t, op)
			require.Greater(t, len(expected), 2)

			c, err := op.Cursor(e.qctx())
			require.NoError(t, err)
			require.NoError(t, c.Open(ctx))
			var got []string
			for i := 0; i < 2; i++ {
				row, err := c.Next(ctx)
				require.NoError(t, err)
				got = append(got, row.String())
			}
			err = c.Open(ctx)
			require.True(t, errors.Is(err, execinfra.ErrCursorAlreadyOpen))
			for {
				row, err := c.Next(ctx)
				require.NoError(t, err)
				if row == nil {
					break
				}
				got = append(got, row.String())
			}
			require.Equal(t, expected, got)
		})
	}
}

func TestSelectPrunesDescendants(t *testing.T) {
	e := newTestEnv(t, grouptest.Schema(t))
	loadFixture(t, e)
	custType := e.rowType("customer")
	sel := exec.NewSelect(e.groupScan(), custType, &exec.Comparison{
		Op: exec.EQ, Left: column(t, custType, "name"), Right: &exec.Literal{Datum: tree.NewDString("bob")},
	})
	require.Equal(t, fixtureScan[6:], e.collect(t, sel))

	ordType := e.rowType("orders")
	sel = exec.NewSelect(e.groupScan(), ordType, &exec.Comparison{
		Op: exec.NE, Left: column(t, ordType, "oid"), Right: &exec.Literal{Datum: tree.NewDInt(10)},
	})
	require.Equal(t, []string{
		fixtureScan[0], fixtureScan[4], fixtureScan[5], fixtureScan[6], fixtureScan[7], fixtureScan[8],
	}, e.collect(t, sel))
}

func TestLimitAndCloseAll(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, grouptest.Schema(t))
	loadFixture(t, e)

	limit, err := exec.NewLimit(e.groupScan(), 2)
	require.NoError(t, err)
	require.Equal(t, fixtureScan[:2], e.collect(t, limit))
	zero, err := exec.NewLimit(e.groupScan(), 0)
	require.NoError(t, err)
	require.Empty(t, e.collect(t, zero))

	qctx := e.qctx()
	c, err := limit.Cursor(qctx)
	require.NoError(t, err)
	require.NoError(t, c.Open(ctx))
	row, err := c.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, 2, qctx.OpenCursors())

	qctx.CloseAll(ctx)
	require.Zero(t, qctx.OpenCursors())
	require.Equal(t, execinfra.StateClosed, c.State())
	qctx.CloseAll(ctx)
	_, err = c.Next(ctx)
	require.True(t, errors.Is(err, execinfra.ErrCursorNotOpen))
}

func TestCanceledExecution(t *testing.T) {
	e := newTestEnv(t, grouptest.Schema(t))
	loadFixture(t, e)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	qctx := e.qctx()
	res, err := exec.NewDelete(e.groupScan(), e.table("item")).Run(ctx, qctx)
	require.Equal(t, pgcode.QueryCanceled, pgerror.GetPGCode(err))
	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, exec.UpdateResult{}, res)
	require.Zero(t, qctx.OpenCursors())

	_, err = exec.Collect(ctx, e.qctx(), e.groupScan())
	require.Equal(t, pgcode.QueryCanceled, pgerror.GetPGCode(err))
	require.Equal(t, fixtureScan, e.collect(t, e.groupScan()))
}

func TestValuesTypeCheck(t *testing.T) {
	e := newTestEnv(t, grouptest.Schema(t))
	v := e.values(t, "customer", row("one", "alice"))
	_, err := exec.Collect(context.Background(), e.qctx(), v)
	require.Equal(t, pgcode.DatatypeMismatch, pgerror.GetPGCode(err))

	_, err = exec.NewValues(e.rowType("customer"), [][]exec.Expr{literals(1)})
	require.True(t, errors.IsAssertionFailure(err))
}

func TestFlushHookPerExecution(t *testing.T) {
	ctx := context.Background()
	b := catalog.NewBuilder(catalog.Empty)
	require.NoError(t, b.CreateTable(catalog.TableDef{
		Name:       "ticks",
		Virtual:    true,
		Columns:    []catalog.ColumnDef{{Name: "n", Type: "int"}},
		PrimaryKey: []string{"n"},
	}))
	s, err := b.Build()
	require.NoError(t, err)
	ticks := s.MustTableByName("ticks")

	// One row, then an empty batch asking for a flush, then a last row.
	reg := vtable.NewRegistry()
	require.NoError(t, reg.Register(ticks, vtable.NewGeneratorFactory("ticks", 2,
		func(context.Context, vtable.AdapterView, *catalog.Table) (vtable.Generator, error) {
			step := 0
			return vtable.GeneratorFromFunc(func(context.Context) ([]tree.Datums, bool, error) {
				step++
				switch step {
				case 1:
					return []tree.Datums{grouptest.Row(1)}, true, nil
				case 2:
					return nil, true, nil
				default:
					return []tree.Datums{grouptest.Row(2)}, false, nil
				}
			}), nil
		})))
	a := storeadapter.New(storeadapter.Config{Schema: s, Virtual: reg})

	// Two executions share the adapter, each sees only its own flushes.
	var flushes [2]int
	q1 := exec.NewQueryContext(a, nil, nil)
	q1.SetFlushHook(func(context.Context) error {
		flushes[0]++
		return nil
	})
	q2 := exec.NewQueryContext(a, nil, nil)
	q2.SetFlushHook(func(context.Context) error {
		flushes[1]++
		return nil
	})

	rows, err := exec.Collect(ctx, q1, exec.NewGroupScan(ticks.Group()))
	require.NoError(t, err)
	require.Equal(t, []string{"ticks /1/1 (1)", "ticks /1/2 (2)"}, rowStrings(rows))
	require.Equal(t, [2]int{1, 0}, flushes)

	_, err = exec.Collect(ctx, q2, exec.NewGroupScan(ticks.Group()))
	require.NoError(t, err)
	require.Equal(t, [2]int{1, 1}, flushes)

	// An execution without a hook scans the same rows.
	rows, err = exec.Collect(ctx, exec.NewQueryContext(a, nil, nil), exec.NewGroupScan(ticks.Group()))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, [2]int{1, 1}, flushes)
}
