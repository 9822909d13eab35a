// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package vtable contains virtual tables: tables whose rows are computed on
// demand instead of being read from storage.
//
// A virtual table is declared in the schema like any other table, with
// virtual storage, and is bound to a VirtualScanFactory through a Registry.
// Scans of the table obtain a VirtualGroupCursor from the factory, which
// produces rows in batches.
package vtable

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sqlerrors"
	"github.com/cockroachdb/groupsql/pkg/util/syncutil"
)

// AdapterView is the part of the store adapter visible to virtual tables.
type AdapterView interface {
	// Schema returns the snapshot the scan was planned against.
	Schema() *catalog.Schema
}

// VirtualGroupCursor produces the rows of a virtual group in batches.
//
// Next returns the next batch. An empty batch with more set to true means
// that the cursor has nothing to produce right now: the caller flushes the
// results it has buffered and calls Next again. more set to false means that
// the cursor is exhausted; the last batch may be non-empty.
type VirtualGroupCursor interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (rows []*rowenc.Row, more bool, err error)
	Close(ctx context.Context)
}

// VirtualScanFactory creates the cursors of one virtual table.
type VirtualScanFactory interface {
	// Name returns the name of the table the factory is bound to.
	Name() string
	// RowCountEstimate returns the expected number of rows of a scan.
	RowCountEstimate() int64
	// GroupScan returns a closed cursor over every row of the group.
	GroupScan(view AdapterView, g *catalog.Group) (VirtualGroupCursor, error)
}

// Registry binds virtual tables, by name, to their factories. The registry
// is copy-on-write: cursors keep the factory they were created with even if
// the table is unregistered while they are open.
type Registry struct {
	mu        syncutil.Mutex
	factories atomic.Pointer[map[string]VirtualScanFactory]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	m := map[string]VirtualScanFactory{}
	r.factories.Store(&m)
	return r
}

// Register binds the virtual table t to f.
func (r *Registry) Register(t *catalog.Table, f VirtualScanFactory) error {
	if !t.IsVirtual() {
		return errors.Newf("table %q is not virtual", t.Name)
	}
	if f.Name() != t.Name {
		return errors.AssertionFailedf("factory %q cannot serve table %q", f.Name(), t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := *r.factories.Load()
	if _, ok := cur[t.Name]; ok {
		return sqlerrors.NewRelationAlreadyExistsError(t.Name)
	}
	next := make(map[string]VirtualScanFactory, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[t.Name] = f
	r.factories.Store(&next)
	return nil
}

// Unregister removes the binding of the named table. Returns false if the
// table was not registered.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := *r.factories.Load()
	if _, ok := cur[name]; !ok {
		return false
	}
	next := make(map[string]VirtualScanFactory, len(cur))
	for k, v := range cur {
		if k != name {
			next[k] = v
		}
	}
	r.factories.Store(&next)
	return true
}

// Lookup returns the factory bound to the named table.
func (r *Registry) Lookup(name string) (VirtualScanFactory, bool) {
	f, ok := (*r.factories.Load())[name]
	return f, ok
}

// Names returns the names of the registered tables, sorted.
func (r *Registry) Names() []string {
	m := *r.factories.Load()
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
