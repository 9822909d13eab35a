// Copyright 2019 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package listener contains the observers notified of table and row
// lifecycle events, and the registry they are kept in.
package listener

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/sessiondata"
	"github.com/cockroachdb/groupsql/pkg/util/log"
	"github.com/cockroachdb/groupsql/pkg/util/syncutil"
)

// TableListener is notified synchronously while a schema change runs. An
// error returned by any callback aborts the schema change.
type TableListener interface {
	OnCreate(ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table) error
	OnDrop(ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table) error
	OnTruncate(ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table) error
	OnCreateIndex(ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table, idx *catalog.Index) error
	OnDropIndex(ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table, idx *catalog.Index) error
}

// RowListener is notified after every successful single-row mutation. An
// error returned by any callback fails the statement.
type RowListener interface {
	OnInsert(ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table, row tree.Datums) error
	OnUpdate(ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table, oldRow, newRow tree.Datums) error
	OnDelete(ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table, row tree.Datums) error
}

// Registry holds the registered listeners. Registration is rare and
// notification frequent: notifications iterate a snapshot of the membership
// without locking, and a listener registered or unregistered during a
// notification takes effect from the next one.
//
// Listeners must be comparable values, typically pointers.
type Registry struct {
	tables syncutil.Set[TableListener]
	rows   syncutil.Set[RowListener]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterTableListener adds l. Returns false if it was already registered.
func (r *Registry) RegisterTableListener(l TableListener) bool {
	return r.tables.Add(l)
}

// UnregisterTableListener removes l. Returns false if it was not registered.
func (r *Registry) UnregisterTableListener(l TableListener) bool {
	return r.tables.Remove(l)
}

// RegisterRowListener adds l. Returns false if it was already registered.
func (r *Registry) RegisterRowListener(l RowListener) bool {
	return r.rows.Add(l)
}

// UnregisterRowListener removes l. Returns false if it was not registered.
func (r *Registry) UnregisterRowListener(l RowListener) bool {
	return r.rows.Remove(l)
}

// TableListeners returns the current table listeners.
func (r *Registry) TableListeners() []TableListener { return r.tables.Snapshot() }

// RowListeners returns the current row listeners.
func (r *Registry) RowListeners() []RowListener { return r.rows.Snapshot() }

// HasRowListeners returns true if at least one row listener is registered.
// Callers use it to skip building notification payloads.
func (r *Registry) HasRowListeners() bool { return r.rows.Len() > 0 }

func (r *Registry) notifyTables(
	ctx context.Context, event string, t *catalog.Table, fn func(TableListener) error,
) error {
	if r == nil {
		return nil
	}
	var err error
	r.tables.Range(func(l TableListener) bool {
		err = fn(l)
		return err == nil
	})
	if err != nil {
		log.VEventf(ctx, 1, "%s listener for table %s failed: %v", event, t.Name, err)
		return errors.Wrapf(err, "%s listener for table %q", event, t.Name)
	}
	return nil
}

// NotifyCreate calls OnCreate on every table listener, stopping at the
// first error.
func (r *Registry) NotifyCreate(ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table) error {
	return r.notifyTables(ctx, "create", t, func(l TableListener) error {
		return l.OnCreate(ctx, sd, t)
	})
}

// NotifyDrop calls OnDrop on every table listener.
func (r *Registry) NotifyDrop(ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table) error {
	return r.notifyTables(ctx, "drop", t, func(l TableListener) error {
		return l.OnDrop(ctx, sd, t)
	})
}

// NotifyTruncate calls OnTruncate on every table listener.
func (r *Registry) NotifyTruncate(ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table) error {
	return r.notifyTables(ctx, "truncate", t, func(l TableListener) error {
		return l.OnTruncate(ctx, sd, t)
	})
}

// NotifyCreateIndex calls OnCreateIndex on every table listener.
func (r *Registry) NotifyCreateIndex(
	ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table, idx *catalog.Index,
) error {
	return r.notifyTables(ctx, "create index", t, func(l TableListener) error {
		return l.OnCreateIndex(ctx, sd, t, idx)
	})
}

// NotifyDropIndex calls OnDropIndex on every table listener.
func (r *Registry) NotifyDropIndex(
	ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table, idx *catalog.Index,
) error {
	return r.notifyTables(ctx, "drop index", t, func(l TableListener) error {
		return l.OnDropIndex(ctx, sd, t, idx)
	})
}

func (r *Registry) notifyRows(t *catalog.Table, event string, fn func(RowListener) error) error {
	if r == nil {
		return nil
	}
	var err error
	r.rows.Range(func(l RowListener) bool {
		err = fn(l)
		return err == nil
	})
	return errors.Wrapf(err, "%s listener for table %q", event, t.Name)
}

// NotifyInsert calls OnInsert on every row listener.
func (r *Registry) NotifyInsert(
	ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table, row tree.Datums,
) error {
	return r.notifyRows(t, "insert", func(l RowListener) error {
		return l.OnInsert(ctx, sd, t, row)
	})
}

// NotifyUpdate calls OnUpdate on every row listener.
func (r *Registry) NotifyUpdate(
	ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table, oldRow, newRow tree.Datums,
) error {
	return r.notifyRows(t, "update", func(l RowListener) error {
		return l.OnUpdate(ctx, sd, t, oldRow, newRow)
	})
}

// NotifyDelete calls OnDelete on every row listener.
func (r *Registry) NotifyDelete(
	ctx context.Context, sd *sessiondata.SessionData, t *catalog.Table, row tree.Datums,
) error {
	return r.notifyRows(t, "delete", func(l RowListener) error {
		return l.OnDelete(ctx, sd, t, row)
	})
}
