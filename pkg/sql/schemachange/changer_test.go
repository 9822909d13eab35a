// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package schemachange_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/kv"
	"github.com/cockroachdb/groupsql/pkg/roachpb"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/listener"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/schemachange"
	"github.com/cockroachdb/groupsql/pkg/sql/sessiondata"
	"github.com/cockroachdb/groupsql/pkg/sql/storeadapter"
	"github.com/cockroachdb/groupsql/pkg/testutils/grouptest"
	"github.com/stretchr/testify/require"
)

// recordingListener records the table events it sees and fails the events
// listed in fail.
type recordingListener struct {
	events []string
	fail   map[string]bool
}

var _ listener.TableListener = &recordingListener{}

func (l *recordingListener) record(event string) error {
	l.events = append(l.events, event)
	if l.fail[event] {
		return errors.Newf("refusing %s", event)
	}
	return nil
}

func (l *recordingListener) OnCreate(
	_ context.Context, _ *sessiondata.SessionData, t *catalog.Table,
) error {
	return l.record("create " + t.Name)
}

func (l *recordingListener) OnDrop(
	_ context.Context, _ *sessiondata.SessionData, t *catalog.Table,
) error {
	return l.record("drop " + t.Name)
}

func (l *recordingListener) OnTruncate(
	_ context.Context, _ *sessiondata.SessionData, t *catalog.Table,
) error {
	return l.record("truncate " + t.Name)
}

func (l *recordingListener) OnCreateIndex(
	_ context.Context, _ *sessiondata.SessionData, t *catalog.Table, idx *catalog.Index,
) error {
	return l.record("create index " + t.Name + "@" + idx.Name)
}

func (l *recordingListener) OnDropIndex(
	_ context.Context, _ *sessiondata.SessionData, t *catalog.Table, idx *catalog.Index,
) error {
	return l.record("drop index " + t.Name + "@" + idx.Name)
}

type testEnv struct {
	db *kv.DB
	ch *schemachange.Changer
	l  *recordingListener
}

func newTestEnv(t *testing.T) *testEnv {
	ctx := context.Background()
	e := &testEnv{db: grouptest.NewDB(t), l: &recordingListener{fail: map[string]bool{}}}
	listeners := listener.NewRegistry()
	listeners.RegisterTableListener(e.l)
	e.ch = schemachange.NewChanger(schemachange.Config{
		DB:        e.db,
		Listeners: listeners,
		Session:   sessiondata.New("root", "schemachange_test"),
	})
	def, err := catalog.ParseYAML([]byte(grouptest.SchemaYAML))
	require.NoError(t, err)
	_, err = e.ch.CreateTables(ctx, def.Tables...)
	require.NoError(t, err)
	e.l.events = nil
	return e
}

func (e *testEnv) write(t *testing.T, fn func(ctx context.Context, a *storeadapter.Adapter) error) {
	require.NoError(t, e.db.Txn(context.Background(), func(ctx context.Context, txn *kv.Txn) error {
		return fn(ctx, storeadapter.New(storeadapter.Config{Schema: e.ch.Current(), Txn: txn}))
	}))
}

func (e *testEnv) loadRows(t *testing.T) {
	s := e.ch.Current()
	e.write(t, func(ctx context.Context, a *storeadapter.Adapter) error {
		for _, r := range []struct {
			table string
			vals  []interface{}
		}{
			{"customer", []interface{}{1, "alice"}},
			{"orders", []interface{}{10, 1, nil}},
			{"item", []interface{}{100, 10, "a", 1}},
			{"item", []interface{}{101, 10, "b", 1}},
			{"item", []interface{}{102, 10, "c", 2}},
		} {
			if _, err := a.WriteRow(ctx, s.MustTableByName(r.table), grouptest.Row(r.vals...)); err != nil {
				return err
			}
		}
		return nil
	})
}

// read runs fn in a transaction over the current snapshot that is rolled
// back afterwards.
func (e *testEnv) read(t *testing.T, fn func(ctx context.Context, txn *kv.Txn, a *storeadapter.Adapter)) {
	ctx := context.Background()
	txn := e.db.NewTxn(ctx)
	defer txn.Rollback(ctx)
	fn(ctx, txn, storeadapter.New(storeadapter.Config{Schema: e.ch.Current(), Txn: txn}))
}

func (e *testEnv) indexEntries(t *testing.T, table, index string) int {
	var n int
	e.read(t, func(ctx context.Context, _ *kv.Txn, a *storeadapter.Adapter) {
		tbl := a.Schema().MustTableByName(table)
		idx, ok := tbl.FindIndexByName(index)
		require.True(t, ok)
		c, err := a.NewIndexCursor(rowenc.NewIndexRowType(tbl, idx), storeadapter.FullRange, storeadapter.Forward)
		require.NoError(t, err)
		rows, err := execinfra.Drain(ctx, c)
		require.NoError(t, err)
		n = len(rows)
	})
	return n
}

func (e *testEnv) keysIn(t *testing.T, span roachpb.Span) int {
	var n int
	e.read(t, func(_ context.Context, txn *kv.Txn, _ *storeadapter.Adapter) {
		it, err := txn.NewIterator(span, false /* reverse */)
		require.NoError(t, err)
		defer it.Close()
		for it.SeekStart(); ; it.Next() {
			ok, err := it.Valid()
			require.NoError(t, err)
			if !ok {
				break
			}
			n++
		}
	})
	return n
}

func TestCreateTables(t *testing.T) {
	ctx := context.Background()
	e := &testEnv{db: grouptest.NewDB(t), l: &recordingListener{}}
	listeners := listener.NewRegistry()
	listeners.RegisterTableListener(e.l)
	e.ch = schemachange.NewChanger(schemachange.Config{DB: e.db, Listeners: listeners})
	require.Equal(t, int64(0), e.ch.Current().Version())

	def, err := catalog.ParseYAML([]byte(grouptest.SchemaYAML))
	require.NoError(t, err)
	s, err := e.ch.CreateTables(ctx, def.Tables...)
	require.NoError(t, err)
	require.Equal(t, int64(1), s.Version())
	require.Same(t, s, e.ch.Current())
	require.Equal(t, []string{
		"create customer", "create orders", "create item", "create address",
	}, e.l.events)

	// A rejected definition publishes nothing.
	_, err = e.ch.CreateTable(ctx, def.Tables[0])
	require.Equal(t, pgcode.DuplicateRelation, pgerror.GetPGCode(err))
	require.Same(t, s, e.ch.Current())
}

func TestCreateIndexBackfill(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.loadRows(t)

	s, n, err := e.ch.CreateIndex(ctx, "item", catalog.IndexDef{Name: "item_qty", Columns: []string{"qty"}})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, int64(2), s.Version())
	require.Equal(t, 3, e.indexEntries(t, "item", "item_qty"))
	require.Equal(t, []string{"create index item@item_qty"}, e.l.events)

	// The existing rows violate a unique index on qty.
	_, _, err = e.ch.CreateIndex(ctx, "item", catalog.IndexDef{
		Name: "item_qty_unique", Columns: []string{"qty"}, Unique: true,
	})
	require.Equal(t, pgcode.UniqueViolation, pgerror.GetPGCode(err))
	require.Same(t, s, e.ch.Current())

	_, _, err = e.ch.CreateIndex(ctx, "missing", catalog.IndexDef{Name: "x", Columns: []string{"a"}})
	require.Equal(t, pgcode.UndefinedTable, pgerror.GetPGCode(err))
}

func TestListenerErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.loadRows(t)
	before := e.ch.Current()

	def := catalog.IndexDef{Name: "item_qty", Columns: []string{"qty"}}
	e.l.fail["create index item@item_qty"] = true
	_, _, err := e.ch.CreateIndex(ctx, "item", def)
	require.Error(t, err)
	require.Contains(t, err.Error(), "refusing create index item@item_qty")
	require.Same(t, before, e.ch.Current())

	// The index the failed change would have created has no entries: the
	// backfill was rolled back with the transaction.
	b := catalog.NewBuilder(before)
	require.NoError(t, b.CreateIndex("item", def))
	would, err := b.Build()
	require.NoError(t, err)
	item := would.MustTableByName("item")
	idx, ok := item.FindIndexByName("item_qty")
	require.True(t, ok)
	require.Equal(t, 0, e.keysIn(t, rowenc.MakeIndexSpan(item, idx)))

	e.l.fail["truncate orders"] = true
	_, err = e.ch.TruncateTable(ctx, "orders")
	require.Error(t, err)
	require.Equal(t, 1, e.keysIn(t, rowenc.MakeIndexSpan(
		before.MustTableByName("orders"), before.MustTableByName("orders").PrimaryIndex())))
}

func TestDropIndex(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.loadRows(t)
	before := e.ch.Current()
	item := before.MustTableByName("item")
	idx, ok := item.FindIndexByName("item_sku_qty")
	require.True(t, ok)
	require.Equal(t, 3, e.keysIn(t, rowenc.MakeIndexSpan(item, idx)))

	s, err := e.ch.DropIndex(ctx, "item", "item_sku_qty")
	require.NoError(t, err)
	require.Equal(t, before.Version()+1, s.Version())
	_, ok = s.MustTableByName("item").FindIndexByName("item_sku_qty")
	require.False(t, ok)
	require.Equal(t, 0, e.keysIn(t, rowenc.MakeIndexSpan(item, idx)))
	require.Equal(t, []string{"drop index item@item_sku_qty"}, e.l.events)

	_, err = e.ch.DropIndex(ctx, "item", "item_pkey")
	require.Equal(t, pgcode.InvalidTableDefinition, pgerror.GetPGCode(err))
	_, err = e.ch.DropIndex(ctx, "item", "item_sku_qty")
	require.Equal(t, pgcode.UndefinedObject, pgerror.GetPGCode(err))
}

func TestDropAndTruncateTable(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.loadRows(t)

	_, err := e.ch.DropTable(ctx, "orders")
	require.Equal(t, pgcode.DependentObjectsStillExist, pgerror.GetPGCode(err))

	// Truncating orders leaves its items in place as orphans.
	n, err := e.ch.TruncateTable(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 3, e.indexEntries(t, "item", "item_sku_qty"))
	e.read(t, func(ctx context.Context, _ *kv.Txn, a *storeadapter.Adapter) {
		row, err := a.LookupByPrimaryKey(ctx, a.Schema().MustTableByName("orders"), grouptest.Row(10))
		require.NoError(t, err)
		require.Nil(t, row)
		row, err = a.LookupByPrimaryKey(ctx, a.Schema().MustTableByName("item"), grouptest.Row(100))
		require.NoError(t, err)
		require.NotNil(t, row)
	})

	before := e.ch.Current()
	item := before.MustTableByName("item")
	s, err := e.ch.DropTable(ctx, "item")
	require.NoError(t, err)
	_, err = s.TableByName("item")
	require.Equal(t, pgcode.UndefinedTable, pgerror.GetPGCode(err))
	for _, idx := range item.Indexes {
		require.Equal(t, 0, e.keysIn(t, rowenc.MakeIndexSpan(item, idx)), "index %s", idx.Name)
	}
	require.Equal(t, []string{"truncate orders", "drop item"}, e.l.events)
}
