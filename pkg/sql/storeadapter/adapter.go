// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package storeadapter maps the rows of tables onto their sources. Rows of
// stored tables are read from and written to the transactional key-value
// store, in hkey order; rows of virtual tables are produced by the factories
// of a vtable.Registry. Operators only see Cursors and never learn which
// source a row came from.
package storeadapter

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/kv"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/listener"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/sessiondata"
	"github.com/cockroachdb/groupsql/pkg/sql/sqlerrors"
	"github.com/cockroachdb/groupsql/pkg/sql/vtable"
)

// MutationOutcome is the result of a successful single-row mutation.
type MutationOutcome int

const (
	// Modified means the row was written.
	Modified MutationOutcome = iota
	// Unchanged means an update found the row already holding the new
	// values.
	Unchanged
	// NotFound means the row to update or delete does not exist.
	NotFound
)

func (o MutationOutcome) String() string {
	switch o {
	case Modified:
		return "modified"
	case Unchanged:
		return "unchanged"
	case NotFound:
		return "not found"
	}
	return fmt.Sprintf("MutationOutcome(%d)", int(o))
}

// Ordering is the direction of an index scan.
type Ordering int

const (
	// Forward scans an index in index key order.
	Forward Ordering = iota
	// Reverse scans an index in reverse index key order.
	Reverse
)

func (o Ordering) String() string {
	if o == Reverse {
		return "reverse"
	}
	return "forward"
}

// IndexBound is one end of an IndexKeyRange: the values of a prefix of the
// index key columns.
type IndexBound struct {
	Values    tree.Datums
	Inclusive bool
}

// IndexKeyRange restricts an index scan. Bounds are expressed in index key
// order, which follows the direction of each index column: for a descending
// column, Start holds the larger value. A nil bound leaves that end open.
type IndexKeyRange struct {
	Start, End *IndexBound
}

// FullRange is the range of every entry of an index.
var FullRange = IndexKeyRange{}

func (r IndexKeyRange) String() string {
	format := func(b *IndexBound, open, closed string) string {
		if b == nil {
			return ""
		}
		if b.Inclusive {
			return closed + b.Values.String()
		}
		return open + b.Values.String()
	}
	if r.Start == nil && r.End == nil {
		return "full"
	}
	return format(r.Start, ">", ">=") + " " + format(r.End, "<", "<=")
}

// FlushFunc is run when a virtual table asks for the output buffered so far
// to be flushed.
type FlushFunc func(ctx context.Context) error

// StoreAdapter hands out cursors over the rows of tables and applies
// single-row mutations.
type StoreAdapter interface {
	// Schema returns the snapshot the adapter resolves tables against.
	Schema() *catalog.Schema
	// Session returns the session the adapter works on behalf of.
	Session() *sessiondata.SessionData
	// NewGroupCursor returns a closed cursor over every row of the group
	// whose root table has the given row type, in hkey order. flush is run
	// by cursors over virtual groups when they ask for a flush; it may be nil.
	NewGroupCursor(rootRowType *rowenc.RowType, flush FlushFunc) (execinfra.Cursor, error)
	// NewIndexCursor returns a closed cursor over the entries of an index,
	// in index key order or its reverse.
	NewIndexCursor(indexRowType *rowenc.RowType, r IndexKeyRange, o Ordering) (execinfra.Cursor, error)
	// LookupRow returns the row of t with the given encoded hkey, or nil.
	LookupRow(ctx context.Context, t *catalog.Table, hkey []byte) (*rowenc.Row, error)
	// LookupByPrimaryKey returns the row of t with the given primary key, or
	// nil.
	LookupByPrimaryKey(ctx context.Context, t *catalog.Table, pk tree.Datums) (*rowenc.Row, error)
	// WriteRow inserts a row.
	WriteRow(ctx context.Context, t *catalog.Table, row tree.Datums) (MutationOutcome, error)
	// UpdateRow replaces the row identified by the primary key of oldRow.
	UpdateRow(ctx context.Context, t *catalog.Table, oldRow, newRow tree.Datums) (MutationOutcome, error)
	// DeleteRow deletes the row identified by the primary key of row.
	DeleteRow(ctx context.Context, t *catalog.Table, row tree.Datums) (MutationOutcome, error)
}

// rowSource is the set of operations with one implementation per storage
// format.
type rowSource interface {
	groupCursor(g *catalog.Group, flush FlushFunc) (execinfra.Cursor, error)
	indexCursor(rt *rowenc.RowType, r IndexKeyRange, o Ordering) (execinfra.Cursor, error)
	lookupRow(ctx context.Context, t *catalog.Table, hkey []byte) (*rowenc.Row, error)
	lookupByPrimaryKey(ctx context.Context, t *catalog.Table, pk tree.Datums) (*rowenc.Row, error)
	insert(ctx context.Context, t *catalog.Table, row tree.Datums) (MutationOutcome, error)
	update(ctx context.Context, t *catalog.Table, oldRow, newRow tree.Datums) (MutationOutcome, error)
	delete(ctx context.Context, t *catalog.Table, row tree.Datums) (MutationOutcome, error)
}

// Config configures an Adapter.
type Config struct {
	Schema *catalog.Schema
	// Txn is the transaction stored tables are read and written in. It may
	// be nil if only virtual tables are accessed.
	Txn       *kv.Txn
	Virtual   *vtable.Registry
	Listeners *listener.Registry
	Session   *sessiondata.SessionData
}

// Adapter is the StoreAdapter of one execution. It is not safe for
// concurrent use.
type Adapter struct {
	schema    *catalog.Schema
	listeners *listener.Registry
	session   *sessiondata.SessionData

	kv      kvSource
	virtual virtualSource
}

var _ StoreAdapter = &Adapter{}
var _ vtable.AdapterView = &Adapter{}

// New returns an Adapter.
func New(cfg Config) *Adapter {
	if cfg.Schema == nil {
		cfg.Schema = catalog.Empty
	}
	if cfg.Virtual == nil {
		cfg.Virtual = vtable.NewRegistry()
	}
	a := &Adapter{
		schema:    cfg.Schema,
		listeners: cfg.Listeners,
		session:   cfg.Session,
	}
	a.kv = kvSource{txn: cfg.Txn}
	a.virtual = virtualSource{adapter: a, registry: cfg.Virtual}
	return a
}

// Schema is part of the StoreAdapter interface.
func (a *Adapter) Schema() *catalog.Schema { return a.schema }

// Session is part of the StoreAdapter interface.
func (a *Adapter) Session() *sessiondata.SessionData { return a.session }

// Txn returns the transaction of the adapter.
func (a *Adapter) Txn() *kv.Txn { return a.kv.txn }

// resolve returns the table with the given ID in the adapter's snapshot and
// the source of its rows. Tables that are absent from the snapshot, because
// they were dropped or never existed, are an error rather than an empty
// source.
func (a *Adapter) resolve(id catalog.TableID) (*catalog.Table, rowSource, error) {
	t, ok := a.schema.TableByID(id)
	if !ok {
		return nil, nil, sqlerrors.NewUndefinedTableIDError(id, a.schema.Version())
	}
	if t.IsVirtual() {
		return t, &a.virtual, nil
	}
	if a.kv.txn == nil {
		return nil, nil, errors.AssertionFailedf("no transaction to access table %q", t.Name)
	}
	return t, &a.kv, nil
}

// NewGroupCursor is part of the StoreAdapter interface.
func (a *Adapter) NewGroupCursor(
	rootRowType *rowenc.RowType, flush FlushFunc,
) (execinfra.Cursor, error) {
	if rootRowType.Kind != rowenc.TableRow && rootRowType.Kind != rowenc.VirtualRow {
		return nil, errors.AssertionFailedf("group scan of %s rows", rootRowType.Kind)
	}
	t, src, err := a.resolve(rootRowType.ID.TableID)
	if err != nil {
		return nil, err
	}
	if !t.IsRoot() {
		return nil, errors.AssertionFailedf("table %q is not the root of its group", t.Name)
	}
	return src.groupCursor(t.Group(), flush)
}

// NewIndexCursor is part of the StoreAdapter interface.
func (a *Adapter) NewIndexCursor(
	indexRowType *rowenc.RowType, r IndexKeyRange, o Ordering,
) (execinfra.Cursor, error) {
	if indexRowType.Kind != rowenc.IndexRow {
		return nil, errors.AssertionFailedf("index scan of %s rows", indexRowType.Kind)
	}
	t, src, err := a.resolve(indexRowType.ID.TableID)
	if err != nil {
		return nil, err
	}
	idx, ok := t.FindIndexByID(indexRowType.ID.IndexID)
	if !ok {
		return nil, sqlerrors.NewUndefinedIndexError(t.Name, indexRowType.Index.Name)
	}
	return src.indexCursor(rowenc.NewIndexRowType(t, idx), r, o)
}

// LookupRow is part of the StoreAdapter interface.
func (a *Adapter) LookupRow(
	ctx context.Context, t *catalog.Table, hkey []byte,
) (*rowenc.Row, error) {
	t, src, err := a.resolve(t.ID)
	if err != nil {
		return nil, err
	}
	return src.lookupRow(ctx, t, hkey)
}

// LookupByPrimaryKey is part of the StoreAdapter interface.
func (a *Adapter) LookupByPrimaryKey(
	ctx context.Context, t *catalog.Table, pk tree.Datums,
) (*rowenc.Row, error) {
	t, src, err := a.resolve(t.ID)
	if err != nil {
		return nil, err
	}
	if len(pk) != len(t.PrimaryIndex().ColumnOrdinals) {
		return nil, errors.AssertionFailedf("table %q has %d primary key columns, got %d values",
			t.Name, len(t.PrimaryIndex().ColumnOrdinals), len(pk))
	}
	return src.lookupByPrimaryKey(ctx, t, pk)
}

// WriteRow is part of the StoreAdapter interface.
func (a *Adapter) WriteRow(
	ctx context.Context, t *catalog.Table, row tree.Datums,
) (MutationOutcome, error) {
	t, src, err := a.resolve(t.ID)
	if err != nil {
		return 0, err
	}
	res, err := src.insert(ctx, t, row)
	if err != nil || res != Modified {
		return res, err
	}
	return res, a.listeners.NotifyInsert(ctx, a.session, t, row)
}

// UpdateRow is part of the StoreAdapter interface.
func (a *Adapter) UpdateRow(
	ctx context.Context, t *catalog.Table, oldRow, newRow tree.Datums,
) (MutationOutcome, error) {
	t, src, err := a.resolve(t.ID)
	if err != nil {
		return 0, err
	}
	res, err := src.update(ctx, t, oldRow, newRow)
	if err != nil || res != Modified {
		return res, err
	}
	return res, a.listeners.NotifyUpdate(ctx, a.session, t, oldRow, newRow)
}

// DeleteRow is part of the StoreAdapter interface.
func (a *Adapter) DeleteRow(
	ctx context.Context, t *catalog.Table, row tree.Datums,
) (MutationOutcome, error) {
	t, src, err := a.resolve(t.ID)
	if err != nil {
		return 0, err
	}
	res, err := src.delete(ctx, t, row)
	if err != nil || res != Modified {
		return res, err
	}
	return res, a.listeners.NotifyDelete(ctx, a.session, t, row)
}

// storedTable resolves t and checks that its rows are in the store.
func (a *Adapter) storedTable(t *catalog.Table) (*catalog.Table, error) {
	t, src, err := a.resolve(t.ID)
	if err != nil {
		return nil, err
	}
	if src != &a.kv {
		return nil, sqlerrors.NewReadOnlyTableError(t.Name)
	}
	return t, nil
}

// BackfillIndex writes the entries of idx for every existing row of t and
// returns the number of entries written.
func (a *Adapter) BackfillIndex(ctx context.Context, t *catalog.Table, idx *catalog.Index) (int, error) {
	t, err := a.storedTable(t)
	if err != nil {
		return 0, err
	}
	return a.kv.backfillIndex(ctx, t, idx)
}

// ClearIndex removes every entry of idx and returns the number of entries
// removed.
func (a *Adapter) ClearIndex(ctx context.Context, t *catalog.Table, idx *catalog.Index) (int, error) {
	t, err := a.storedTable(t)
	if err != nil {
		return 0, err
	}
	return a.kv.txn.DelRange(ctx, rowenc.MakeIndexSpan(t, idx))
}

// TruncateTable deletes every row of t along with its index entries and
// returns the number of rows deleted. Rows of descendant tables are kept as
// orphans. Row listeners are not notified.
func (a *Adapter) TruncateTable(ctx context.Context, t *catalog.Table) (int, error) {
	t, err := a.storedTable(t)
	if err != nil {
		return 0, err
	}
	return a.kv.truncate(ctx, t)
}
