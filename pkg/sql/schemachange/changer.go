// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package schemachange runs DDL statements. Each schema change builds a new
// snapshot from the current one, performs the storage work it implies
// (index backfill, index and row removal) and notifies the table listeners
// in one transaction, and publishes the snapshot once the transaction has
// committed. If any step fails, the transaction rolls back and the current
// snapshot stays in place.
package schemachange

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/kv"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/listener"
	"github.com/cockroachdb/groupsql/pkg/sql/sessiondata"
	"github.com/cockroachdb/groupsql/pkg/sql/sqlerrors"
	"github.com/cockroachdb/groupsql/pkg/sql/storeadapter"
	"github.com/cockroachdb/groupsql/pkg/sql/vtable"
	"github.com/cockroachdb/groupsql/pkg/util/log"
	"github.com/cockroachdb/groupsql/pkg/util/syncutil"
)

// Config configures a Changer.
type Config struct {
	DB        *kv.DB
	Holder    *catalog.Holder
	Virtual   *vtable.Registry
	Listeners *listener.Registry
	Session   *sessiondata.SessionData
}

// Changer applies schema changes. Changes are serialized: each one starts
// from the snapshot the previous one published.
type Changer struct {
	cfg Config
	mu  syncutil.Mutex
}

// NewChanger returns a Changer.
func NewChanger(cfg Config) *Changer {
	if cfg.Holder == nil {
		cfg.Holder = catalog.NewHolder(nil)
	}
	return &Changer{cfg: cfg}
}

// Holder returns the holder the changer publishes to.
func (c *Changer) Holder() *catalog.Holder { return c.cfg.Holder }

// Current returns the current snapshot.
func (c *Changer) Current() *catalog.Schema { return c.cfg.Holder.Current() }

// storageFn performs the storage work and the notifications of a schema
// change. The adapter it is given resolves tables against the snapshot
// the work must see.
type storageFn func(ctx context.Context, a *storeadapter.Adapter) error

// run executes fn in a transaction against the adapter over s, and
// publishes next if the transaction commits. A nil next publishes nothing.
func (c *Changer) run(
	ctx context.Context, op string, s, next *catalog.Schema, fn storageFn,
) error {
	c.mu.AssertHeld()
	ctx = c.cfg.Session.AnnotateCtx(ctx)
	ctx, cancel := c.cfg.Session.WithTimeout(ctx)
	defer cancel()

	if err := c.cfg.DB.Txn(ctx, func(ctx context.Context, txn *kv.Txn) error {
		return fn(ctx, storeadapter.New(storeadapter.Config{
			Schema:    s,
			Txn:       txn,
			Virtual:   c.cfg.Virtual,
			Listeners: c.cfg.Listeners,
			Session:   c.cfg.Session,
		}))
	}); err != nil {
		log.VEventf(ctx, 1, "%s failed: %v", op, err)
		return err
	}
	if next == nil {
		return nil
	}
	if err := c.cfg.Holder.Publish(next); err != nil {
		return errors.Wrapf(err, "publishing schema after %s", op)
	}
	log.VEventf(ctx, 1, "%s: published schema version %d", op, next.Version())
	return nil
}

// build applies fn to a builder over the current snapshot and returns the
// current and the new snapshot.
func (c *Changer) build(fn func(b *catalog.Builder) error) (cur, next *catalog.Schema, _ error) {
	cur = c.cfg.Holder.Current()
	b := catalog.NewBuilder(cur)
	if err := fn(b); err != nil {
		return nil, nil, err
	}
	next, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return cur, next, nil
}

// CreateTable creates a table.
func (c *Changer) CreateTable(ctx context.Context, def catalog.TableDef) (*catalog.Schema, error) {
	return c.CreateTables(ctx, def)
}

// CreateTables creates several tables in one schema change, so that a group
// can be declared in one batch.
func (c *Changer) CreateTables(
	ctx context.Context, defs ...catalog.TableDef,
) (*catalog.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, next, err := c.build(func(b *catalog.Builder) error { return b.CreateTables(defs...) })
	if err != nil {
		return nil, err
	}
	if err := c.run(ctx, "create table", next, next, func(ctx context.Context, a *storeadapter.Adapter) error {
		for i := range defs {
			if err := c.cfg.Listeners.NotifyCreate(ctx, c.cfg.Session, next.MustTableByName(defs[i].Name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return next, nil
}

// DropTable drops a table and deletes its rows and index entries. A table
// that still has child tables cannot be dropped.
func (c *Changer) DropTable(ctx context.Context, name string) (*catalog.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, next, err := c.build(func(b *catalog.Builder) error { return b.DropTable(name) })
	if err != nil {
		return nil, err
	}
	t := cur.MustTableByName(name)
	if err := c.run(ctx, "drop table", cur, next, func(ctx context.Context, a *storeadapter.Adapter) error {
		if !t.IsVirtual() {
			n, err := a.TruncateTable(ctx, t)
			if err != nil {
				return err
			}
			log.VEventf(ctx, 2, "dropped %d rows of %s", n, t.Name)
		}
		return c.cfg.Listeners.NotifyDrop(ctx, c.cfg.Session, t)
	}); err != nil {
		return nil, err
	}
	return next, nil
}

// TruncateTable deletes every row of a table and returns the number of rows
// deleted. Rows of child tables are kept as orphans. The schema is not
// changed.
func (c *Changer) TruncateTable(ctx context.Context, name string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.cfg.Holder.Current()
	t, err := cur.TableByName(name)
	if err != nil {
		return 0, err
	}
	if t.IsVirtual() {
		return 0, sqlerrors.NewReadOnlyTableError(name)
	}
	var n int
	if err := c.run(ctx, "truncate", cur, nil /* next */, func(ctx context.Context, a *storeadapter.Adapter) (err error) {
		if n, err = a.TruncateTable(ctx, t); err != nil {
			return err
		}
		return c.cfg.Listeners.NotifyTruncate(ctx, c.cfg.Session, t)
	}); err != nil {
		return 0, err
	}
	return n, nil
}

// CreateIndex adds a secondary index to a table and backfills its entries
// from the existing rows. It returns the number of entries written. A
// unique index cannot be created over rows that violate it.
func (c *Changer) CreateIndex(
	ctx context.Context, table string, def catalog.IndexDef,
) (*catalog.Schema, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, next, err := c.build(func(b *catalog.Builder) error { return b.CreateIndex(table, def) })
	if err != nil {
		return nil, 0, err
	}
	t := next.MustTableByName(table)
	idx, ok := t.FindIndexByName(def.Name)
	if !ok {
		return nil, 0, errors.AssertionFailedf("index %s missing from %s after creation", def.Name, table)
	}
	var n int
	if err := c.run(ctx, "create index", next, next, func(ctx context.Context, a *storeadapter.Adapter) (err error) {
		if n, err = a.BackfillIndex(ctx, t, idx); err != nil {
			return err
		}
		return c.cfg.Listeners.NotifyCreateIndex(ctx, c.cfg.Session, t, idx)
	}); err != nil {
		return nil, 0, err
	}
	return next, n, nil
}

// DropIndex removes a secondary index and its entries.
func (c *Changer) DropIndex(ctx context.Context, table, index string) (*catalog.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, next, err := c.build(func(b *catalog.Builder) error { return b.DropIndex(table, index) })
	if err != nil {
		return nil, err
	}
	t := cur.MustTableByName(table)
	idx, _ := t.FindIndexByName(index)
	if err := c.run(ctx, "drop index", cur, next, func(ctx context.Context, a *storeadapter.Adapter) error {
		n, err := a.ClearIndex(ctx, t, idx)
		if err != nil {
			return err
		}
		log.VEventf(ctx, 2, "cleared %d entries of %s@%s", n, t.Name, idx.Name)
		return c.cfg.Listeners.NotifyDropIndex(ctx, c.cfg.Session, t, idx)
	}); err != nil {
		return nil, err
	}
	return next, nil
}
